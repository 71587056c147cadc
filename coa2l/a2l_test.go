package coa2l

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/andreyvit/cobj"
)

const sample = `ASAP2_VERSION 1 71
/* header comment
   spanning lines */
/begin PROJECT Demo "demo \"project\""
  // line comment
  /begin MODULE M ""
    /begin MEASUREMENT rpm "engine\tspeed" UWORD NO_COMPU_METHOD 0 0 0 8000
      /begin IF_DATA XCP 1 /end IF_DATA
    /end MEASUREMENT
  /end MODULE
/end PROJECT
`

func TestParse(t *testing.T) {
	o := must(Read(strings.NewReader(sample), Options{}))
	defer cobj.Destroy(o)
	deepEqual(t, o.Value(), any([]any{
		"ASAP2_VERSION", "1", "71",
		[]any{"PROJECT", "Demo", `"demo "project""`,
			[]any{"MODULE", "M", `""`,
				[]any{"MEASUREMENT", "rpm", "\"engine\tspeed\"", "UWORD", "NO_COMPU_METHOD", "0", "0", "0", "8000",
					[]any{"IF_DATA", "XCP", "1"},
				},
			},
		},
	}))
}

func TestParse_staticTokens(t *testing.T) {
	o := must(Parse([]byte("0 1 IF_DATA MEASUREMENT 10 MEASURE"), Options{}))
	defer cobj.Destroy(o)
	v := o.Vector()
	deepEqual(t, v.Len(), 6)
	for i, owned := range []bool{false, false, false, false, true, true} {
		deepEqual(t, v.Get(i).Str().Owned(), owned)
	}
}

func TestParse_lastToken(t *testing.T) {
	o := must(Parse([]byte("A B"), Options{}))
	defer cobj.Destroy(o)
	deepEqual(t, o.String(), "[A, B]")
}

func TestParse_errors(t *testing.T) {
	tests := []struct {
		input string
		opt   Options
		line  int
		msg   string
	}{
		{"/begin A\n x", Options{}, 2, "missing /end A"},
		{"x\n/end A", Options{}, 2, "/end without /begin"},
		{"/begin A /end B", Options{}, 1, "/end B closes /begin A"},
		{"/begin A /end", Options{}, 1, "/end must be followed by a block name, got EOF"},
		{"/begin A /end \"A\"", Options{}, 1, "got string"},
		{"a \"bc", Options{}, 1, "unterminated string"},
		{"a\n/* bc", Options{}, 2, "unterminated comment"},
		{"abcdef", Options{MaxTokenLen: 4}, 1, "identifier longer than 4 bytes"},
		{"\"abcdef\"", Options{MaxTokenLen: 4}, 1, "string longer than 4 bytes"},
		{"/begin A /begin B /begin C", Options{MaxDepth: 2}, 1, "nesting deeper than 2"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			q := cobj.NewQuota(0)
			tt.opt.Quota = q
			_, err := Parse([]byte(tt.input), tt.opt)
			var se *cobj.SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("Parse err = %v, wanted *cobj.SyntaxError", err)
			}
			deepEqual(t, se.Format, "a2l")
			deepEqual(t, se.Line, tt.line)
			if !strings.Contains(se.Msg, tt.msg) {
				t.Errorf("Msg = %q, wanted it to contain %q", se.Msg, tt.msg)
			}
			deepEqual(t, q.Used(), int64(0))
		})
	}
}

func TestParse_quota(t *testing.T) {
	q := cobj.NewQuota(0)
	for limit := int64(0); ; limit += 32 {
		q.SetLimit(limit)
		o, err := Parse([]byte(sample), Options{Quota: q})
		if err == nil {
			deepEqual(t, o.Vector().Len(), 4)
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
