package store

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	errNoBucket = errors.New("collection not found")
)

// DataError reports a stored value that cannot be decoded.
type DataError struct {
	Collection string
	Name       string
	Data       []byte
	Off        int
	Err        error
	Msg        string
}

func dataErrf(data []byte, off int, err error, format string, args ...any) *DataError {
	return &DataError{Data: data, Off: off, Err: err, Msg: fmt.Sprintf(format, args...)}
}

// detach names the value and copies Data out of the transaction's memory.
func (e *DataError) detach(collection, name string) *DataError {
	e.Collection, e.Name = collection, name
	e.Data = append([]byte(nil), e.Data...)
	return e
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func (e *DataError) Error() string {
	const prefixLen = 32
	n := len(e.Data)
	var sample string
	if n <= prefixLen {
		sample = fmt.Sprintf("(%d) %x", n, e.Data)
	} else {
		sample = fmt.Sprintf("(%d) %x...", n, e.Data[:prefixLen])
	}
	msg := e.Msg
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return fmt.Sprintf("store: %s/%s: %s at offset %d: %s", e.Collection, e.Name, msg, e.Off, sample)
}
