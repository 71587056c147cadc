// Package cocsv reads CSV files (RFC 4180) into cobj object graphs: a vector
// of rows, each a vector of strings.
package cocsv

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"

	"github.com/andreyvit/cobj"
)

type Options struct {
	// Quota is charged for the graph being built. Nil means unlimited.
	Quota *cobj.Quota

	// Separator between fields. Zero means ','.
	Separator rune
}

func Read(r io.Reader, opt Options) (*cobj.Object, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(data, opt)
}

// Parse reads all rows. Quoted fields may contain separators, line breaks
// and doubled quotes; a separator at the very end of the input yields a
// final empty field. Rows may have different lengths.
func Parse(data []byte, opt Options) (*cobj.Object, error) {
	if opt.Separator == 0 {
		opt.Separator = ','
	}
	q := opt.Quota

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = opt.Separator
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	file, err := q.NewVector(cobj.Owning)
	if err != nil {
		return nil, cobj.SyntaxErrf("csv", data, 0, err, "")
	}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return file, nil
		}
		if err != nil {
			cobj.Destroy(file)
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, &cobj.SyntaxError{Format: "csv", Line: pe.Line, Col: pe.Column, Msg: pe.Err.Error()}
			}
			return nil, err
		}
		if err := addRow(q, file.Vector(), rec); err != nil {
			cobj.Destroy(file)
			line, col := cr.FieldPos(0)
			return nil, &cobj.SyntaxError{Format: "csv", Line: line, Col: col, Err: err}
		}
	}
}

func addRow(q *cobj.Quota, file cobj.Vector, rec []string) error {
	row, err := q.NewVector(cobj.Owning)
	if err != nil {
		return err
	}
	for _, field := range rec {
		el, err := q.NewString(cobj.CopyStrings, field)
		if err == nil {
			_, err = row.Vector().Add(el)
			if err != nil {
				cobj.Destroy(el)
			}
		}
		if err != nil {
			cobj.Destroy(row)
			return err
		}
	}
	if _, err := file.Add(row); err != nil {
		cobj.Destroy(row)
		return err
	}
	return nil
}
