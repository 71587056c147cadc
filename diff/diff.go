// Package diff compares two object graphs structurally and reports where
// they differ.
package diff

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/andreyvit/cobj"
)

type Kind string

const (
	VectorSize Kind = "vector size"
	MissingKey Kind = "missing key"
	ExtraKey   Kind = "extra key"
	String     Kind = "string"
	Number     Kind = "number"
	MemBlock   Kind = "memblock"
	Type       Kind = "type"
)

// Diff is one difference. Path leads from the roots to the differing
// values; its elements are vector indexes (int) and map keys (string).
type Diff struct {
	Path  []any
	Kind  Kind
	Left  string
	Right string
}

func (d Diff) String() string {
	return fmt.Sprintf("%s: %s difference %s vs %s", FormatPath(d.Path), d.Kind, d.Left, d.Right)
}

// FormatPath renders a path like $.a[3]["b c"].
func FormatPath(path []any) string {
	var buf strings.Builder
	buf.WriteByte('$')
	for _, el := range path {
		switch el := el.(type) {
		case int:
			buf.WriteByte('[')
			buf.WriteString(strconv.Itoa(el))
			buf.WriteByte(']')
		case string:
			if isIdent(el) {
				buf.WriteByte('.')
				buf.WriteString(el)
			} else {
				buf.WriteByte('[')
				buf.WriteString(strconv.Quote(el))
				buf.WriteByte(']')
			}
		}
	}
	return buf.String()
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (i > 0 && c >= '0' && c <= '9') {
			continue
		}
		return false
	}
	return true
}

type Options struct {
	// MaxDiffs stops the comparison after this many differences. Zero
	// means 100; negative means no limit.
	MaxDiffs int
}

type Report struct {
	Diffs []Diff

	// Truncated is set when the comparison stopped at MaxDiffs.
	Truncated bool
}

func (r *Report) Identical() bool {
	return len(r.Diffs) == 0
}

// Compare walks a and b in parallel. Maps are compared key by key in order,
// vectors element by element over their common length.
func Compare(a, b *cobj.Object, opt Options) *Report {
	if opt.MaxDiffs == 0 {
		opt.MaxDiffs = 100
	}
	c := &comparer{opt: opt, report: &Report{}}
	if a.Hash() == b.Hash() && cobj.Equal(a, b) {
		return c.report
	}
	c.compare(a, b)
	return c.report
}

type comparer struct {
	opt    Options
	path   []any
	report *Report
}

// add records a difference and reports whether comparison should continue.
func (c *comparer) add(kind Kind, left, right string) bool {
	if c.opt.MaxDiffs > 0 && len(c.report.Diffs) >= c.opt.MaxDiffs {
		c.report.Truncated = true
		return false
	}
	c.report.Diffs = append(c.report.Diffs, Diff{
		Path:  append([]any(nil), c.path...),
		Kind:  kind,
		Left:  left,
		Right: right,
	})
	return true
}

func (c *comparer) compare(a, b *cobj.Object) bool {
	if a.Kind() != b.Kind() {
		return c.add(Type, a.Kind().String(), b.Kind().String())
	}
	switch a.Kind() {
	case cobj.KindVector:
		va, vb := a.Vector(), b.Vector()
		if va.Len() != vb.Len() {
			if !c.add(VectorSize, strconv.Itoa(va.Len()), strconv.Itoa(vb.Len())) {
				return false
			}
		}
		for i := range min(va.Len(), vb.Len()) {
			c.path = append(c.path, i)
			ok := c.compare(va.Get(i), vb.Get(i))
			c.path = c.path[:len(c.path)-1]
			if !ok {
				return false
			}
		}
		return true

	case cobj.KindMap:
		ia, ib := a.Map().Iter(), b.Map().Iter()
		ia.First()
		ib.First()
		for ia.Valid() || ib.Valid() {
			var ok bool
			switch {
			case !ib.Valid() || (ia.Valid() && ia.Key() < ib.Key()):
				ok = c.add(MissingKey, ia.Key(), "")
				ia.Next()
			case !ia.Valid() || ib.Key() < ia.Key():
				ok = c.add(ExtraKey, "", ib.Key())
				ib.Next()
			default:
				c.path = append(c.path, ia.Key())
				ok = c.compare(ia.Value(), ib.Value())
				c.path = c.path[:len(c.path)-1]
				ia.Next()
				ib.Next()
			}
			if !ok {
				return false
			}
		}
		return true

	case cobj.KindString:
		if sa, sb := a.Str().Value(), b.Str().Value(); sa != sb {
			return c.add(String, strconv.Quote(sa), strconv.Quote(sb))
		}
	case cobj.KindDouble:
		if !cobj.Equal(a, b) {
			return c.add(Number, a.String(), b.String())
		}
	case cobj.KindMemBlock:
		if !bytes.Equal(a.MemBlock().Raw(), b.MemBlock().Raw()) {
			return c.add(MemBlock, a.String(), b.String())
		}
	}
	return true
}

// Object renders the report as
//
//	{"identical": 1|0, "truncated": 1|0, "differences": [{"path": [...], "kind": ..., "left": ..., "right": ...}]}
func (r *Report) Object(q *cobj.Quota) (*cobj.Object, error) {
	diffs := make([]any, 0, len(r.Diffs))
	for _, d := range r.Diffs {
		diffs = append(diffs, map[string]any{
			"path":  d.Path,
			"kind":  string(d.Kind),
			"left":  d.Left,
			"right": d.Right,
		})
	}
	return q.FromValue(map[string]any{
		"identical":   r.Identical(),
		"truncated":   r.Truncated,
		"differences": diffs,
	})
}
