package cobj

import (
	"unsafe"
)

type stringRep struct {
	buf     []byte
	charged int64
}

func borrowString(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

func (o *Object) setupString(b []byte) error {
	sr := &stringRep{}
	if o.flags.Has(OwnStrings) {
		if err := sr.grow(o, b); err != nil {
			return err
		}
	} else {
		sr.buf = b
	}
	o.rep = sr
	return nil
}

// grow appends b to an owned buffer, charging any new capacity.
func (sr *stringRep) grow(o *Object, b []byte) error {
	n := len(sr.buf) + len(b)
	if n > cap(sr.buf) {
		newCap := max(n, 2*cap(sr.buf))
		if err := o.quota.charge("string grow", int64(newCap)-sr.charged); err != nil {
			return err
		}
		sr.charged = int64(newCap)
		buf := make([]byte, len(sr.buf), newCap)
		copy(buf, sr.buf)
		sr.buf = buf
	}
	sr.buf = append(sr.buf, b...)
	return nil
}

func (sr *stringRep) kind() Kind { return KindString }
func (sr *stringRep) size() int  { return len(sr.buf) }

func (sr *stringRep) render(r *renderer) {
	r.buf = append(r.buf, sr.buf...)
}

func (sr *stringRep) destroy(o *Object) {
	o.quota.release(sr.charged)
	sr.charged = 0
	sr.buf = nil
}

func (sr *stringRep) clone(o *Object, q *Quota) (*Object, error) {
	return q.NewStringBytes(Owning, sr.buf)
}

// Str is a view of a string object.
type Str struct {
	o  *Object
	sr *stringRep
}

// Str returns a string view of o. Panics if o is not a string.
func (o *Object) Str() Str {
	o.alive("Str")
	sr, ok := o.rep.(*stringRep)
	if !ok {
		reportKindMismatch("Str", o, KindString)
	}
	return Str{o, sr}
}

func (s Str) Object() *Object {
	return s.o
}

// Owned reports whether the string has a private growable buffer.
func (s Str) Owned() bool {
	return s.o.flags.Has(OwnStrings)
}

func (s Str) Len() int {
	return len(s.sr.buf)
}

func (s Str) Value() string {
	return string(s.sr.buf)
}

// Bytes returns the underlying bytes. The caller must not modify them, and
// they are only valid until the next change of the string.
func (s Str) Bytes() []byte {
	return s.sr.buf
}

// Append appends v to an owned string. Borrowed strings are immutable:
// Append returns false and leaves them unchanged. Allocation failure also
// returns false without side effects.
func (s Str) Append(v string) bool {
	return s.AppendBytes(borrowString(v))
}

func (s Str) AppendBytes(b []byte) bool {
	s.o.alive("Str.Append")
	if !s.Owned() {
		return false
	}
	return s.sr.grow(s.o, b) == nil
}

// Set replaces the content. An owned string copies v into its buffer; a
// borrowed string starts borrowing v. Returns false on allocation failure,
// leaving the old content.
func (s Str) Set(v string) bool {
	s.o.alive("Str.Set")
	if !s.Owned() {
		s.sr.buf = borrowString(v)
		return true
	}
	if len(v) > cap(s.sr.buf) {
		if err := s.o.quota.charge("string grow", int64(len(v))-s.sr.charged); err != nil {
			return false
		}
		s.sr.charged = int64(len(v))
		s.sr.buf = make([]byte, 0, len(v))
	}
	s.sr.buf = append(s.sr.buf[:0], v...)
	return true
}

// Extract destroys the string object and returns its content as a buffer
// the caller owns. A borrowed string is copied first. Panics if the string
// belongs to a container.
func (s Str) Extract() []byte {
	o := s.o
	o.alive("Str.Extract")
	if o.state == stateAttached {
		panic("cobj: Str.Extract: string is owned by a container")
	}
	var buf []byte
	if s.Owned() {
		buf = s.sr.buf
		s.sr.buf = nil
	} else {
		buf = append([]byte(nil), s.sr.buf...)
	}
	o.free()
	return buf
}
