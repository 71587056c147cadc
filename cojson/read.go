// Package cojson reads and writes JSON as cobj object graphs.
//
// Objects become maps, arrays become vectors, strings become owned strings,
// numbers become doubles, true and false become the doubles 1 and 0, and
// null becomes a blank.
package cojson

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"github.com/andreyvit/cobj"
)

const formatName = "json"

type Options struct {
	// Quota is charged for the graph being built. Nil means unlimited.
	Quota *cobj.Quota

	// MaxDepth limits nesting. Zero means 10000.
	MaxDepth int
}

func (o Options) withDefaults() Options {
	if o.MaxDepth == 0 {
		o.MaxDepth = 10000
	}
	return o
}

// Read reads one JSON value from r.
func Read(r io.Reader, opt Options) (*cobj.Object, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(data, opt)
}

// Parse parses one JSON value. Trailing whitespace is allowed, anything else
// after the value is an error. On error no part of the graph survives.
func Parse(data []byte, opt Options) (*cobj.Object, error) {
	p := &parser{
		data: data,
		dec:  json.NewDecoder(bytes.NewReader(data)),
		opt:  opt.withDefaults(),
	}
	p.dec.UseNumber()

	tok, err := p.token()
	if err != nil {
		return nil, err
	}
	o, err := p.value(tok, 0)
	if err != nil {
		return nil, err
	}
	if _, err := p.dec.Token(); err != io.EOF {
		cobj.Destroy(o)
		if err == nil {
			return nil, p.errf(nil, "unexpected data after the top-level value")
		}
		return nil, p.wrap(err)
	}
	return o, nil
}

type parser struct {
	data []byte
	dec  *json.Decoder
	opt  Options
}

func (p *parser) errf(err error, format string, args ...any) error {
	return cobj.SyntaxErrf(formatName, p.data, int(p.dec.InputOffset()), err, format, args...)
}

func (p *parser) wrap(err error) error {
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	var se *json.SyntaxError
	if errors.As(err, &se) {
		return cobj.SyntaxErrf(formatName, p.data, int(se.Offset), nil, "%s", se.Error())
	}
	return p.errf(err, "")
}

func (p *parser) token() (json.Token, error) {
	tok, err := p.dec.Token()
	if err != nil {
		return nil, p.wrap(err)
	}
	return tok, nil
}

func (p *parser) value(tok json.Token, depth int) (*cobj.Object, error) {
	q := p.opt.Quota
	var o *cobj.Object
	var err error
	switch v := tok.(type) {
	case nil:
		o, err = q.NewBlank()
	case bool:
		if v {
			o, err = q.NewDouble(1)
		} else {
			o, err = q.NewDouble(0)
		}
	case json.Number:
		f, ferr := v.Float64()
		if ferr != nil {
			return nil, p.errf(ferr, "invalid number %s", v)
		}
		o, err = q.NewDouble(f)
	case string:
		o, err = q.NewString(cobj.CopyStrings, v)
	case json.Delim:
		if depth >= p.opt.MaxDepth {
			return nil, p.errf(nil, "nesting deeper than %d", p.opt.MaxDepth)
		}
		switch v {
		case '[':
			return p.array(depth + 1)
		case '{':
			return p.object(depth + 1)
		default:
			return nil, p.errf(nil, "unexpected %q", rune(v))
		}
	default:
		return nil, p.errf(nil, "unexpected token %v", tok)
	}
	if err != nil {
		return nil, p.errf(err, "")
	}
	return o, nil
}

func (p *parser) array(depth int) (*cobj.Object, error) {
	res, err := p.opt.Quota.NewVector(cobj.Owning)
	if err != nil {
		return nil, p.errf(err, "")
	}
	v := res.Vector()
	for {
		tok, err := p.token()
		if err != nil {
			cobj.Destroy(res)
			return nil, err
		}
		if tok == json.Delim(']') {
			return res, nil
		}
		el, err := p.value(tok, depth)
		if err != nil {
			cobj.Destroy(res)
			return nil, err
		}
		if _, err := v.Add(el); err != nil {
			cobj.Destroy(el)
			cobj.Destroy(res)
			return nil, p.errf(err, "")
		}
	}
}

func (p *parser) object(depth int) (*cobj.Object, error) {
	res, err := p.opt.Quota.NewMap(cobj.Owning)
	if err != nil {
		return nil, p.errf(err, "")
	}
	m := res.Map()
	for {
		tok, err := p.token()
		if err != nil {
			cobj.Destroy(res)
			return nil, err
		}
		if tok == json.Delim('}') {
			return res, nil
		}
		key, ok := tok.(string)
		if !ok {
			cobj.Destroy(res)
			return nil, p.errf(nil, "object key must be a string")
		}
		tok, err = p.token()
		if err != nil {
			cobj.Destroy(res)
			return nil, err
		}
		el, err := p.value(tok, depth)
		if err != nil {
			cobj.Destroy(res)
			return nil, err
		}
		if err := m.Add(key, el); err != nil {
			cobj.Destroy(el)
			cobj.Destroy(res)
			return nil, p.errf(err, "")
		}
	}
}
