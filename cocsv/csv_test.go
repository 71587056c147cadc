package cocsv

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/andreyvit/cobj"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		sep      rune
		expected any
	}{
		{"simple", "a,b\nc,d\n", 0, []any{[]any{"a", "b"}, []any{"c", "d"}}},
		{"crlf", "a,b\r\nc\r\n", 0, []any{[]any{"a", "b"}, []any{"c"}}},
		{"quoted", "\"x, y\",\"say \"\"hi\"\"\"\n", 0, []any{[]any{"x, y", `say "hi"`}}},
		{"quoted newline", "\"l1\nl2\",z", 0, []any{[]any{"l1\nl2", "z"}}},
		{"trailing separator", "a,b,", 0, []any{[]any{"a", "b", ""}}},
		{"semicolon", "a;b\n", ';', []any{[]any{"a", "b"}}},
		{"leading blank lines", "\n\na,b", 0, []any{[]any{"a", "b"}}},
		{"leading spaces kept", "  a,b\n c", 0, []any{[]any{"  a", "b"}, []any{" c"}}},
		{"stray quote", "a\"b,c", 0, []any{[]any{"a\"b", "c"}}},
		{"empty", "", 0, []any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := Read(strings.NewReader(tt.input), Options{Separator: tt.sep})
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			defer cobj.Destroy(o)
			deepEqual(t, o.Value(), tt.expected)
		})
	}
}

func TestParse_invalidSeparator(t *testing.T) {
	q := cobj.NewQuota(0)
	_, err := Parse([]byte("a,b\n"), Options{Quota: q, Separator: '"'})
	if err == nil {
		t.Fatalf("Parse succeeded with a quote as the separator")
	}
	deepEqual(t, q.Used(), int64(0))
}

func TestParse_quota(t *testing.T) {
	input := []byte("name,value\nalpha,1\nbeta,2\n")
	q := cobj.NewQuota(0)
	for limit := int64(0); ; limit += 16 {
		q.SetLimit(limit)
		o, err := Parse(input, Options{Quota: q})
		if err == nil {
			deepEqual(t, o.String(), "[[name, value], [alpha, 1], [beta, 2]]")
			cobj.Destroy(o)
			break
		}
		if !errors.Is(err, cobj.ErrAllocation) {
			t.Fatalf("Parse err = %v, wanted ErrAllocation", err)
		}
		deepEqual(t, q.Used(), int64(0))
	}
}

func deepEqual[T any](t testing.TB, a, e T) {
	if !reflect.DeepEqual(a, e) {
		t.Helper()
		t.Fatalf("** got %v, wanted %v", a, e)
	}
}
