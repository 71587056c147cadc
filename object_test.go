package cobj

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"testing"
)

func TestNew_kinds(t *testing.T) {
	tests := []struct {
		kind  Kind
		init  any
		size  int
		print string
	}{
		{KindBlank, nil, 0, ""},
		{KindVector, nil, 0, "[]"},
		{KindMap, nil, 0, "{}"},
		{KindString, "hello", 5, "hello"},
		{KindString, []byte("hi"), 2, "hi"},
		{KindDouble, 2.5, 1, "2.5"},
		{KindMemBlock, []byte{0xDE, 0xAD}, 2, "<dead>"},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			o, err := New(tt.kind, Owning, tt.init)
			ensure(err)
			deepEqual(t, o.Kind(), tt.kind)
			deepEqual(t, o.Size(), tt.size)
			deepEqual(t, o.String(), tt.print)
			Destroy(o)
		})
	}
}

func TestNew_initFailureRollsBackHandle(t *testing.T) {
	q := NewQuota(handleSize + 3)
	_, err := q.NewString(CopyStrings, "too long for the quota")
	if !errors.Is(err, ErrAllocation) {
		t.Fatalf("NewString err = %v, wanted ErrAllocation", err)
	}
	deepEqual(t, q.Used(), int64(0))

	_, err = q.NewVector(Owning)
	if !errors.Is(err, ErrAllocation) {
		t.Fatalf("NewVector err = %v, wanted ErrAllocation", err)
	}
	deepEqual(t, q.Used(), int64(0))

	o, err := q.NewDouble(1)
	ensure(err)
	deepEqual(t, q.Used(), handleSize)
	Destroy(o)
	deepEqual(t, q.Used(), int64(0))
	deepEqual(t, q.Peak(), handleSize)
}

func TestAllocError(t *testing.T) {
	q := NewQuota(10)
	_, err := q.NewBlank()
	var ae *AllocError
	if !errors.As(err, &ae) {
		t.Fatalf("err = %T, wanted *AllocError", err)
	}
	deepEqual(t, ae.Limit, int64(10))
	deepEqual(t, ae.Size, handleSize)
	if !strings.Contains(err.Error(), "new object") {
		t.Errorf("err.Error() = %q, wanted operation name", err.Error())
	}
}

func TestDestroy_nilAndEmpty(t *testing.T) {
	Destroy(nil)

	q := NewQuota(0)
	for _, kind := range []Kind{KindBlank, KindVector, KindMap} {
		o, err := q.New(kind, Owning, nil)
		ensure(err)
		Destroy(o)
		deepEqual(t, q.Used(), int64(0))
	}
}

func TestDestroy_misuse(t *testing.T) {
	t.Run("twice", func(t *testing.T) {
		o := NewBlank()
		Destroy(o)
		expectPanic(t, "destroyed twice", func() { Destroy(o) })
	})
	t.Run("attached", func(t *testing.T) {
		v := NewVector(Owning)
		el := NewDouble(1)
		must(v.Vector().Add(el))
		expectPanic(t, "owned by a container", func() { Destroy(el) })
		Destroy(v)
	})
	t.Run("use after destroy", func(t *testing.T) {
		o := NewString(None, "x")
		Destroy(o)
		expectPanic(t, "destroyed object", func() { o.Size() })
		deepEqual(t, o.String(), "<destroyed>")
	})
}

func TestKindMismatchPanics(t *testing.T) {
	o := NewDouble(1)
	defer Destroy(o)
	defer func() {
		e := recover()
		ke, ok := e.(*KindError)
		if !ok {
			t.Fatalf("recover() = %v, wanted *KindError", e)
		}
		deepEqual(t, ke.Want, KindVector)
		deepEqual(t, ke.Got, KindDouble)
	}()
	o.Vector()
}

func TestFlags(t *testing.T) {
	deepEqual(t, NewMap(CopyStrings).Flags(), CopyStrings|OwnStrings)
	deepEqual(t, Owning.String(), "own-values|copy-strings|own-strings")
	deepEqual(t, None.String(), "none")
}

func TestPrint(t *testing.T) {
	m := NewMap(Owning)
	v := NewVector(Owning)
	must(v.Vector().Add(NewDouble(1)))
	must(v.Vector().Add(NewString(None, "two")))
	must(v.Vector().Add(NewBlank()))
	ensure(m.Map().Add("b", v))
	ensure(m.Map().Add("a", NewDouble(math.Inf(-1))))
	defer Destroy(m)

	var buf strings.Builder
	ensure(m.Print(&buf))
	deepEqual(t, buf.String(), "{a:-Inf, b:[1, two, ]}")
	deepEqual(t, m.String(), buf.String())
}

func TestDump(t *testing.T) {
	m := must(FromValue(map[string]any{"k": []any{"v", 1.5}, "mem": []byte{1}}))
	defer Destroy(m)
	expected := `map (own-values|copy-strings|own-strings) #2
  "k":
    vector (own-values|copy-strings|own-strings) #2
      [0]
        string (own-values|copy-strings|own-strings) #1 "v"
      [1]
        double #1 1.5
  "mem":
    memblock (own-values|copy-strings|own-strings) #1 01
`
	deepEqual(t, Dump(m, DumpOwnership|DumpSizes), expected)
	deepEqual(t, Dump(nil, 0), "<nil>\n")
}

func expectPanic(t testing.TB, substr string, f func()) {
	t.Helper()
	defer func() {
		t.Helper()
		e := recover()
		if e == nil {
			t.Fatalf("did not panic, wanted panic containing %q", substr)
		}
		if s := fmt.Sprint(e); !strings.Contains(s, substr) {
			t.Fatalf("panic %q, wanted panic containing %q", s, substr)
		}
	}()
	f()
}

func deepEqual[T any](t testing.TB, a, e T) {
	if !reflect.DeepEqual(a, e) {
		t.Helper()
		t.Fatalf("** got %v, wanted %v", a, e)
	}
}
