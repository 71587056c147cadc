package cojson

import (
	"encoding/hex"
	"io"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/andreyvit/cobj"
)

type WriteOptions struct {
	// Indent is repeated once per nesting level. Empty means compact output
	// on a single line.
	Indent string

	// Prefix starts every line but the first.
	Prefix string
}

// Write writes o as JSON. Maps are written in key order, memory blocks as
// hex strings, and doubles that JSON cannot represent (NaN, infinities) as
// null.
func Write(w io.Writer, o *cobj.Object, opt WriteOptions) error {
	buf := Append(nil, o, opt)
	_, err := w.Write(buf)
	return err
}

func Marshal(o *cobj.Object, opt WriteOptions) []byte {
	return Append(nil, o, opt)
}

func Append(buf []byte, o *cobj.Object, opt WriteOptions) []byte {
	wr := writer{buf: buf, opt: opt}
	wr.value(o, 0)
	return wr.buf
}

type writer struct {
	buf []byte
	opt WriteOptions
}

func (wr *writer) newline(depth int) {
	if wr.opt.Indent == "" {
		return
	}
	wr.buf = append(wr.buf, '\n')
	wr.buf = append(wr.buf, wr.opt.Prefix...)
	for range depth {
		wr.buf = append(wr.buf, wr.opt.Indent...)
	}
}

func (wr *writer) value(o *cobj.Object, depth int) {
	switch o.Kind() {
	case cobj.KindBlank:
		wr.buf = append(wr.buf, "null"...)
	case cobj.KindDouble:
		f := o.Double().Get()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			wr.buf = append(wr.buf, "null"...)
		} else {
			wr.buf = strconv.AppendFloat(wr.buf, f, 'g', -1, 64)
		}
	case cobj.KindString:
		wr.buf = appendString(wr.buf, o.Str().Bytes())
	case cobj.KindMemBlock:
		wr.buf = append(wr.buf, '"')
		wr.buf = hex.AppendEncode(wr.buf, o.MemBlock().Raw())
		wr.buf = append(wr.buf, '"')
	case cobj.KindVector:
		v := o.Vector()
		if v.IsEmpty() {
			wr.buf = append(wr.buf, "[]"...)
			return
		}
		wr.buf = append(wr.buf, '[')
		v.ForEach(func(idx int, el *cobj.Object) bool {
			if idx > 0 {
				wr.buf = append(wr.buf, ',')
			}
			wr.newline(depth + 1)
			wr.value(el, depth+1)
			return true
		})
		wr.newline(depth)
		wr.buf = append(wr.buf, ']')
	case cobj.KindMap:
		m := o.Map()
		if m.IsEmpty() {
			wr.buf = append(wr.buf, "{}"...)
			return
		}
		wr.buf = append(wr.buf, '{')
		m.ForEach(func(idx int, key string, value *cobj.Object) bool {
			if idx > 0 {
				wr.buf = append(wr.buf, ',')
			}
			wr.newline(depth + 1)
			wr.buf = appendString(wr.buf, []byte(key))
			wr.buf = append(wr.buf, ':')
			if wr.opt.Indent != "" {
				wr.buf = append(wr.buf, ' ')
			}
			wr.value(value, depth+1)
			return true
		})
		wr.newline(depth)
		wr.buf = append(wr.buf, '}')
	}
}

const hexDigits = "0123456789abcdef"

func appendString(buf, s []byte) []byte {
	buf = append(buf, '"')
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			switch {
			case c == '"' || c == '\\':
				buf = append(buf, '\\', c)
			case c == '\n':
				buf = append(buf, '\\', 'n')
			case c == '\r':
				buf = append(buf, '\\', 'r')
			case c == '\t':
				buf = append(buf, '\\', 't')
			case c < 0x20:
				buf = append(buf, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xF])
			default:
				buf = append(buf, c)
			}
			i++
			continue
		}
		r, size := utf8.DecodeRune(s[i:])
		if r == utf8.RuneError && size == 1 {
			buf = append(buf, `�`...)
		} else {
			buf = append(buf, s[i:i+size]...)
		}
		i += size
	}
	return append(buf, '"')
}
