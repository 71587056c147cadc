package cojson

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/andreyvit/cobj"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`null`, ``},
		{`true`, `1`},
		{`false`, `0`},
		{`-12.5e1`, `-125`},
		{`"a\nb"`, "a\nb"},
		{`[]`, `[]`},
		{`{}`, `{}`},
		{` [1, "x", [null]] `, `[1, x, []]`},
		{`{"b": {"c": [1]}, "a": 2}`, `{a:2, b:{c:[1]}}`},
		{`{"k": 1, "k": 2}`, `{k:2}`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			o := must(Parse([]byte(tt.input), Options{}))
			defer cobj.Destroy(o)
			deepEqual(t, o.String(), tt.expected)
		})
	}
}

func TestParse_errors(t *testing.T) {
	tests := []struct {
		input string
		line  int
	}{
		{"", 1},
		{"[1,\n 2", 2},
		{"{\"a\" 1}", 1},
		{"[1] [2]", 1},
		{"[\n  1,\n  }", 3},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			q := cobj.NewQuota(0)
			_, err := Parse([]byte(tt.input), Options{Quota: q})
			var se *cobj.SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("Parse err = %v, wanted *cobj.SyntaxError", err)
			}
			deepEqual(t, se.Format, "json")
			deepEqual(t, se.Line, tt.line)
			if se.Col < 1 {
				t.Errorf("Col = %d, wanted a 1-based column", se.Col)
			}
			deepEqual(t, q.Used(), int64(0))
		})
	}
}

func TestParse_maxDepth(t *testing.T) {
	_, err := Parse([]byte(`[[[1]]]`), Options{MaxDepth: 2})
	if err == nil || !strings.Contains(err.Error(), "nesting deeper than 2") {
		t.Fatalf("Parse err = %v, wanted nesting error", err)
	}
}

func TestParse_quotaExhaustion(t *testing.T) {
	input := []byte(`{"list": [1, 2, 3, {"deep": "value"}], "name": "x"}`)
	q := cobj.NewQuota(0)
	for limit := int64(0); ; limit += 24 {
		q.SetLimit(limit)
		o, err := Parse(input, Options{Quota: q})
		if err == nil {
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
		"s":    "q\"\\\x01é",
		"n":    []any{1.5, nil, 0.0},
		"mem":  []byte{0xAB},
		"e":    map[string]any{},
		"list": []any{},
	}))
	defer cobj.Destroy(o)

	deepEqual(t, string(Marshal(o, WriteOptions{})), `{"e":{},"list":[],"mem":"ab","n":[1.5,null,0],"s":"q\"\\\u0001é"}`)

	var buf strings.Builder
	ensure(Write(&buf, o, WriteOptions{Indent: "  "}))
	expected := `{
  "e": {},
  "list": [],
  "mem": "ab",
  "n": [
    1.5,
    null,
    0
  ],
  "s": "q\"\\\u0001é"
}`
	deepEqual(t, buf.String(), expected)
}

func TestRoundTrip(t *testing.T) {
	input := `{"a":[1,2,{"b":"c"}],"d":"e\tf","g":null}`
	o := must(Parse([]byte(input), Options{}))
	defer cobj.Destroy(o)
	deepEqual(t, string(Marshal(o, WriteOptions{})), input)
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func ensure(err error) {
	if err != nil {
		panic(err)
	}
}

func deepEqual[T any](t testing.TB, a, e T) {
	if !reflect.DeepEqual(a, e) {
		t.Helper()
		t.Fatalf("** got %v, wanted %v", a, e)
	}
}
