package cobj

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// ErrAllocation is the only recoverable error of the object core. Every
// *AllocError unwraps to it.
var ErrAllocation = errors.New("allocation failed")

type AllocError struct {
	Op    string
	Size  int64
	Used  int64
	Limit int64
}

func (e *AllocError) Unwrap() error {
	return ErrAllocation
}

func (e *AllocError) Error() string {
	return fmt.Sprintf("%s: %v: %d more bytes requested, %d of %d in use", e.Op, ErrAllocation, e.Size, e.Used, e.Limit)
}

// KindError is the panic value raised when an object is used as a kind it
// is not, e.g. o.Vector() on a string.
type KindError struct {
	Op   string
	Want Kind
	Got  Kind
}

func (e *KindError) Error() string {
	return fmt.Sprintf("cobj: %s: %v object used as %v", e.Op, e.Got, e.Want)
}

func reportKindMismatch(op string, o *Object, want Kind) {
	panic(&KindError{Op: op, Want: want, Got: o.Kind()})
}

var errNilResult = errors.New("map function returned nil object")

// SyntaxError reports malformed input found by one of the format readers.
// Err is set when reading failed for another reason at that position, e.g.
// an *AllocError.
type SyntaxError struct {
	Format string
	Line   int
	Col    int
	Msg    string
	Err    error
}

// SyntaxErrf builds a *SyntaxError for the byte offset off of data.
func SyntaxErrf(format string, data []byte, off int, err error, msgFormat string, args ...any) error {
	line, col := Position(data, off)
	return &SyntaxError{format, line, col, fmt.Sprintf(msgFormat, args...), err}
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

func (e *SyntaxError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "%s: line %d, col %d", e.Format, e.Line, e.Col)
	if e.Msg != "" {
		buf.WriteString(": ")
		buf.WriteString(e.Msg)
	}
	if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}

// Position converts a byte offset into a 1-based line and column.
func Position(data []byte, off int) (line, col int) {
	off = min(max(off, 0), len(data))
	head := data[:off]
	line = 1 + bytes.Count(head, []byte{'\n'})
	col = 1 + off - (bytes.LastIndexByte(head, '\n') + 1)
	return line, col
}
