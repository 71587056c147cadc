package calib

import (
	"bufio"
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/andreyvit/cobj"
)

// DataTypeSize returns the size in bytes of an A2L atomic data type, or 0
// if it is unknown.
func DataTypeSize(dataType string) int {
	switch dataType {
	case "UBYTE", "SBYTE":
		return 1
	case "UWORD", "SWORD", "FLOAT16_IEEE":
		return 2
	case "ULONG", "SLONG", "FLOAT32_IEEE":
		return 4
	case "A_UINT64", "A_INT64", "FLOAT64_IEEE":
		return 8
	}
	return 0
}

// Multiplier returns how many times the repeated part of a record layout is
// stored for a CHARACTERISTIC or AXIS_PTS record: the product of its
// MATRIX_DIM values, its NUMBER or ARRAY_SIZE, and its axis point counts
// (MAX_AXIS_POINTS of an AXIS_PTS, or of every AXIS_DESCR).
func Multiplier(rec cobj.Vector) int {
	var (
		matrixProduct = 1
		matrixDims    = 0
		number        = 0
		axisPoints    = 0
	)
	if str(rec, 0) == AxisPts {
		axisPoints = atoi(str(rec, 8))
	}
	for i := 0; i < rec.Len(); {
		el := rec.Get(i)
		i++
		switch {
		case el.Is(cobj.KindString):
			switch el.Str().Value() {
			case "MATRIX_DIM":
				for ; matrixDims < 10; matrixDims++ {
					d := atoi(str(rec, i))
					if d == 0 {
						break
					}
					matrixProduct *= d
					i++
				}
			case "NUMBER", "ARRAY_SIZE":
				if o := rec.Get(i); o != nil && o.Is(cobj.KindString) {
					number = atoi(o.Str().Value())
					i++
				}
			}
		case el.Is(cobj.KindVector):
			if sub := el.Vector(); str(sub, 0) == "AXIS_DESCR" {
				if n := atoi(str(sub, 4)); axisPoints == 0 {
					axisPoints = n
				} else {
					axisPoints *= n
				}
			}
		}
	}

	m := 1
	if matrixDims > 0 {
		m *= matrixProduct
	}
	if number > 0 {
		m *= number
	}
	if axisPoints > 0 {
		m *= axisPoints
	}
	return m
}

// LayoutSize splits a RECORD_LAYOUT into bytes stored once (fixed) and
// bytes stored once per Multiplier (dynamic). ok is false when the layout
// uses items whose size cannot be determined.
func LayoutSize(layout cobj.Vector) (fixed, dynamic int, ok bool) {
	for i := 2; i < layout.Len(); {
		s := str(layout, i)
		switch {
		// <pos> <type> <mode> <addressing>
		case strings.HasPrefix(s, "AXIS_PTS_") || strings.HasPrefix(s, "FNC"):
			size := DataTypeSize(str(layout, i+2))
			if size == 0 || !strings.HasPrefix(str(layout, i+4), "D") {
				return 0, 0, false
			}
			dynamic += size
			i += 5
		// <pos> <type>
		case strings.HasPrefix(s, "NO_AXIS_PTS_"):
			size := DataTypeSize(str(layout, i+2))
			if size == 0 {
				return 0, 0, false
			}
			fixed += size
			i += 3
		case strings.HasPrefix(s, "FIX_NO_AXIS_PTS_"),
			strings.HasPrefix(s, "SHIFT_OP_"),
			strings.HasPrefix(s, "SRC_ADDR_"),
			strings.HasPrefix(s, "RIP_ADDR_"),
			strings.HasPrefix(s, "OFFSET_"),
			strings.HasPrefix(s, "NO_RESCALE_"),
			strings.HasPrefix(s, "DIST_OP_"),
			strings.HasPrefix(s, "AXIS_RESCALE_"),
			strings.HasPrefix(s, "ALIGNMENT_"),
			s == "IDENTIFICATION":
			return 0, 0, false
		default:
			i++
		}
	}
	return fixed, dynamic, true
}

// Entry describes the memory occupied by one CHARACTERISTIC or AXIS_PTS.
type Entry struct {
	Addr      uint64
	Type      string
	Name      string
	Layout    string
	Factor    int
	Dynamic   int
	Fixed     int
	Supported bool
}

func (e Entry) Size() int {
	return e.Factor*e.Dynamic + e.Fixed
}

func (e Entry) End() uint64 {
	return e.Addr + uint64(e.Size())
}

// Entry computes the memory entry of a CHARACTERISTIC or AXIS_PTS record.
func (ix *Index) Entry(rec cobj.Vector) Entry {
	addr, _ := Address(rec)
	e := Entry{
		Addr:   addr,
		Type:   str(rec, 0),
		Name:   str(rec, 1),
		Layout: str(rec, 5),
		Factor: Multiplier(rec),
	}
	if layout := ix.RecordLayouts.Map().Get(e.Layout); layout != nil {
		e.Fixed, e.Dynamic, e.Supported = LayoutSize(layout.Vector())
	}
	return e
}

type IssueKind string

const (
	Gap     IssueKind = "GAP"
	Overlap IssueKind = "OVERLAP ERROR"
)

// Issue is a gap or an overlap between the end of one entry (Addr) and the
// start of the next.
type Issue struct {
	Kind  IssueKind
	Addr  uint64
	Bytes uint64
	// Index of the entry that follows the issue.
	Before int
}

type Layout struct {
	Entries []Entry
	Issues  []Issue
}

type LayoutOptions struct {
	// MaxOverlap ignores overlaps larger than this many bytes, which
	// usually mean the entries live in unrelated memory regions. Zero means
	// 10000.
	MaxOverlap uint64
}

// Layout lists all addressed entries in address order and reports gaps and
// overlaps between neighbours.
func (ix *Index) Layout(opt LayoutOptions) *Layout {
	if opt.MaxOverlap == 0 {
		opt.MaxOverlap = 10000
	}
	l := &Layout{Entries: make([]Entry, 0, ix.ByAddress.Map().Len())}
	for _, rec := range ix.ByAddress.Map().All() {
		l.Entries = append(l.Entries, ix.Entry(rec.Vector()))
	}
	slices.SortStableFunc(l.Entries, func(a, b Entry) int { return cmp.Compare(a.Addr, b.Addr) })

	for i := 1; i < len(l.Entries); i++ {
		last, cur := l.Entries[i-1].End(), l.Entries[i].Addr
		switch {
		case last > cur && last-cur <= opt.MaxOverlap:
			l.Issues = append(l.Issues, Issue{Overlap, last, last - cur, i})
		case last < cur:
			l.Issues = append(l.Issues, Issue{Gap, last, cur - last, i})
		}
	}
	return l
}

// WriteTo prints one line per entry, preceded by any gap or overlap that
// ends at it.
func (l *Layout) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	bw := bufio.NewWriter(cw)
	issues := l.Issues
	for i, e := range l.Entries {
		for len(issues) > 0 && issues[0].Before == i {
			is := issues[0]
			issues = issues[1:]
			fmt.Fprintf(bw, "0x%08X  %11d %s %d Bytes\n", is.Addr, is.Addr, is.Kind, is.Bytes)
		}
		var note string
		if !e.Supported {
			note = "NOT SUPPORTED"
		}
		fmt.Fprintf(bw, "%08X    %11d %3d*%3d+%3d=%4d  %s: %s %s\n",
			e.Addr, e.Addr, e.Factor, e.Dynamic, e.Fixed, e.Size(), e.Type, e.Name, note)
	}
	err := bw.Flush()
	return cw.n, err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
