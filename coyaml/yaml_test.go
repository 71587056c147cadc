package coyaml

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/andreyvit/cobj"
)

func TestRead(t *testing.T) {
	input := `
name: demo
count: 3
ratio: 0.5
hex: 0x10
enabled: true
off: false
nothing: ~
quoted: "42"
blob: !!binary AQID
list:
  - &x {a: 1}
  - *x
  - [b, c]
`
	o := must(Read(strings.NewReader(input), Options{}))
	defer cobj.Destroy(o)
	deepEqual(t, o.Value(), any(map[string]any{
		"name":    "demo",
		"count":   3.0,
		"ratio":   0.5,
		"hex":     16.0,
		"enabled": 1.0,
		"off":     0.0,
		"nothing": nil,
		"quoted":  "42",
		"blob":    []byte{1, 2, 3},
		"list":    []any{map[string]any{"a": 1.0}, map[string]any{"a": 1.0}, []any{"b", "c"}},
	}))
}

func TestRead_binary(t *testing.T) {
	o := must(Read(strings.NewReader("blob: !!binary AQID\n"), Options{}))
	defer cobj.Destroy(o)
	blob := o.Map().Get("blob")
	deepEqual(t, blob.Kind(), cobj.KindMemBlock)
	deepEqual(t, blob.MemBlock().Raw(), []byte{1, 2, 3})
}

func TestRead_empty(t *testing.T) {
	for _, input := range []string{"", "---\n", "null"} {
		o := must(Parse([]byte(input), Options{}))
		deepEqual(t, o.Kind(), cobj.KindBlank)
		cobj.Destroy(o)
	}
}

func TestRead_errors(t *testing.T) {
	tests := []struct {
		input string
		line  int
		msg   string
	}{
		{"a: [1, 2\nb: 3", 0, ""},
		{"a: b: c", 1, "mapping values are not allowed"},
		{"? [1, 2]\n: x", 1, "mapping key must be a scalar"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Parse([]byte(tt.input), Options{})
			var se *cobj.SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("Parse err = %v, wanted *cobj.SyntaxError", err)
			}
			if tt.line != 0 {
				deepEqual(t, se.Line, tt.line)
			}
			if !strings.Contains(se.Msg, tt.msg) {
				t.Errorf("Msg = %q, wanted it to contain %q", se.Msg, tt.msg)
			}
		})
	}
}

func TestRead_recursiveAlias(t *testing.T) {
	_, err := Parse([]byte("a: &x [*x]"), Options{MaxDepth: 50})
	if err == nil {
		t.Fatalf("Parse accepted a self-referencing alias")
	}
}

func TestRead_quota(t *testing.T) {
	input := []byte("a: [1, {b: x}]\nc: text\n")
	q := cobj.NewQuota(0)
	for limit := int64(0); ; limit += 16 {
		q.SetLimit(limit)
		o, err := Parse(input, Options{Quota: q})
		if err == nil {
			deepEqual(t, o.String(), "{a:[1, {b:x}], c:text}")
			cobj.Destroy(o)
			break
		}
		if !errors.Is(err, cobj.ErrAllocation) {
			t.Fatalf("Parse err = %v, wanted ErrAllocation", err)
		}
		deepEqual(t, q.Used(), int64(0))
	}
}

func TestWrite(t *testing.T) {
	o := must(cobj.FromValue(map[string]any{
		"s":   "1",
		"n":   []any{1.0, 2.5, 1e21, nil, math.Inf(-1)},
		"mem": []byte{1, 2, 3},
		"e":   map[string]any{},
	}))
	defer cobj.Destroy(o)
	expected := `e: {}
mem: !!binary AQID
n:
  - 1
  - 2.5
  - 1e+21
  - null
  - -.inf
s: "1"
`
	deepEqual(t, string(must(Marshal(o, WriteOptions{}))), expected)
}

func TestRoundTrip(t *testing.T) {
	o := must(cobj.FromValue(map[string]any{
		"k":    []any{"true", "x y", -3.0, 0.125},
		"blob": []byte{0xFF, 0},
		"nil":  nil,
	}))
	defer cobj.Destroy(o)
	back := must(Parse(must(Marshal(o, WriteOptions{Indent: 4})), Options{}))
	defer cobj.Destroy(back)
	if !cobj.Equal(o, back) {
		t.Fatalf("** got %v, wanted %v", back, o)
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
