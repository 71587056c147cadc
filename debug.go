package cobj

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

type DumpFlags uint64

const (
	DumpOwnership = DumpFlags(1 << iota)
	DumpSizes
	DumpQuota

	DumpAll = DumpFlags(0xFFFFFFFFFFFFFFFF)

	indentStep = "  "
)

func (f DumpFlags) Contains(v DumpFlags) bool {
	return (f & v) == v
}

// Dump renders o as an indented tree, one object per line, for debugging
// and tests.
func Dump(o *Object, f DumpFlags) string {
	var buf strings.Builder
	if f.Contains(DumpQuota) && o != nil && o.quota != nil {
		fmt.Fprintf(&buf, "quota: used = %d, peak = %d, limit = %d\n", o.quota.used, o.quota.peak, o.quota.limit)
	}
	dump(&buf, "", f, o)
	return buf.String()
}

func dump(w *strings.Builder, indent string, f DumpFlags, o *Object) {
	w.WriteString(indent)
	if o == nil {
		w.WriteString("<nil>\n")
		return
	}
	if o.state == stateDestroyed {
		w.WriteString("<destroyed>\n")
		return
	}
	kind := o.rep.kind()
	w.WriteString(kind.String())
	if f.Contains(DumpOwnership) && kind != KindDouble && kind != KindBlank {
		fmt.Fprintf(w, " (%v)", o.flags)
	}
	if f.Contains(DumpSizes) {
		fmt.Fprintf(w, " #%d", o.rep.size())
	}

	switch r := o.rep.(type) {
	case *vectorRep:
		w.WriteByte('\n')
		for i, el := range r.elems {
			fmt.Fprintf(w, "%s%s[%d]\n", indent, indentStep, i)
			dump(w, indent+indentStep+indentStep, f, el)
		}
	case *mapRep:
		w.WriteByte('\n')
		r.tree.ForEach(func(_ int, key string, value *Object) bool {
			fmt.Fprintf(w, "%s%s%s:\n", indent, indentStep, strconv.Quote(key))
			dump(w, indent+indentStep+indentStep, f, value)
			return true
		})
	case *stringRep:
		w.WriteByte(' ')
		w.WriteString(strconv.Quote(string(r.buf)))
		w.WriteByte('\n')
	case *doubleRep:
		w.WriteByte(' ')
		w.WriteString(strconv.FormatFloat(r.v, 'g', -1, 64))
		w.WriteByte('\n')
	case *memRep:
		w.WriteByte(' ')
		w.WriteString(hexstr(r.buf))
		w.WriteByte('\n')
	default:
		w.WriteByte('\n')
	}
}

func hexstr(b []byte) string {
	if len(b) == 0 {
		return "<empty>"
	}
	return hex.EncodeToString(b)
}
