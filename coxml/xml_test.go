package coxml

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/andreyvit/cobj"
)

const sample = `<?xml version="1.0"?>
<!-- catalog -->
<catalog xmlns:x="urn:x" version="2">
  <book id="b1" x:lang="en">Go &amp; you</book>
  <empty/>
  text <![CDATA[<raw>]]> tail
</catalog>
`

func TestRead(t *testing.T) {
	o := must(Read(strings.NewReader(sample), Options{}))
	defer cobj.Destroy(o)
	deepEqual(t, o.Value(), any([]any{
		"catalog", map[string]any{"xmlns:x": "urn:x", "version": "2"},
		"\n  ",
		[]any{"book", map[string]any{"id": "b1", "x:lang": "en"}, "Go & you"},
		"\n  ",
		[]any{"empty", map[string]any{}},
		"\n  text <raw> tail\n",
	}))
}

func TestRead_skipWhitespace(t *testing.T) {
	o := must(Parse([]byte(sample), Options{SkipWhitespace: true}))
	defer cobj.Destroy(o)
	v := o.Vector()
	deepEqual(t, v.Len(), 5)
	deepEqual(t, v.Get(2).String(), "[book, {id:b1, x:lang:en}, Go & you]")
	deepEqual(t, v.Get(3).String(), "[empty, {}]")
	deepEqual(t, v.Get(4).Str().Value(), "\n  text <raw> tail\n")
}

func TestRead_errors(t *testing.T) {
	tests := []struct {
		input string
		msg   string
	}{
		{"", "no root element"},
		{"<a><b></a>", "element <b> closed by </a>"},
		{"<a></a><b/>", "second root element <b>"},
		{"<a>\n<b>", "unclosed element"},
		{"<a x=1/>", ""},
		{"</a>", "unexpected </a>"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			q := cobj.NewQuota(0)
			_, err := Parse([]byte(tt.input), Options{Quota: q})
			var se *cobj.SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("Parse err = %v, wanted *cobj.SyntaxError", err)
			}
			if !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("err = %q, wanted it to contain %q", err, tt.msg)
			}
			deepEqual(t, q.Used(), int64(0))
		})
	}
}

func TestRead_maxDepth(t *testing.T) {
	_, err := Parse([]byte("<a><b><c/></b></a>"), Options{MaxDepth: 2})
	if err == nil || !strings.Contains(err.Error(), "nested too deeply") {
		t.Fatalf("Parse err = %v, wanted nesting error", err)
	}
}

func TestRead_quota(t *testing.T) {
	q := cobj.NewQuota(0)
	for limit := int64(0); ; limit += 32 {
		q.SetLimit(limit)
		o, err := Parse([]byte(sample), Options{Quota: q})
		if err == nil {
			deepEqual(t, o.Vector().Len(), 7)
			cobj.Destroy(o)
			break
		}
		if !errors.Is(err, cobj.ErrAllocation) {
			t.Fatalf("Parse err = %v, wanted ErrAllocation", err)
		}
		deepEqual(t, q.Used(), int64(0))
	}
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func deepEqual[T any](t testing.TB, a, e T) {
	if !reflect.DeepEqual(a, e) {
		t.Helper()
		t.Fatalf("** got %v, wanted %v", a, e)
	}
}
