package avl

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"reflect"
	"slices"
	"strings"
	"testing"
)

func TestTree_trivial(t *testing.T) {
	var tr Tree[int]
	ensure(tr.Insert("c", 3))
	ensure(tr.Insert("a", 1))
	ensure(tr.Insert("b", 2))

	var keys []string
	var values []int
	tr.ForEach(func(idx int, key string, value int) bool {
		if idx != len(keys) {
			t.Errorf("idx = %d, wanted %d", idx, len(keys))
		}
		keys = append(keys, key)
		values = append(values, value)
		return true
	})
	deepEqual(t, keys, []string{"a", "b", "c"})
	deepEqual(t, values, []int{1, 2, 3})
	deepEqual(t, tr.Len(), 3)
	deepEqual(t, tr.Height(), 2)

	v, ok := tr.Get("b")
	deepEqual(t, v, 2)
	deepEqual(t, ok, true)
	_, ok = tr.Get("d")
	deepEqual(t, ok, false)
}

func TestTree_replaceKeepsShapeAndFreesOld(t *testing.T) {
	var freedKeys []string
	var freedValues []int
	tr := New(Hooks[int]{
		FreeKey:   func(key string) { freedKeys = append(freedKeys, key) },
		FreeValue: func(value int) { freedValues = append(freedValues, value) },
	})
	for i, k := range []string{"m", "f", "t", "a"} {
		ensure(tr.Insert(k, i))
	}
	var before strings.Builder
	tr.Dump(&before)

	ensure(tr.Insert("f", 100))

	var after strings.Builder
	tr.Dump(&after)
	deepEqual(t, after.String(), before.String())
	deepEqual(t, freedKeys, []string{"f"})
	deepEqual(t, freedValues, []int{1})
	v, _ := tr.Get("f")
	deepEqual(t, v, 100)
}

func TestTree_deleteReleasesEverythingOnce(t *testing.T) {
	var nodes, keys, values int
	tr := New(Hooks[int]{
		AllocNode: func() error { nodes++; return nil },
		FreeNode:  func() { nodes-- },
		FreeKey:   func(string) { keys++ },
		FreeValue: func(int) { values++ },
	})
	for i := range 100 {
		ensure(tr.Insert(fmt.Sprintf("%03d", i), i))
	}
	deepEqual(t, nodes, 100)

	deepEqual(t, tr.Delete("050"), true)
	deepEqual(t, tr.Delete("050"), false)
	deepEqual(t, tr.Delete("zzz"), false)
	deepEqual(t, nodes, 99)
	deepEqual(t, keys, 1)
	deepEqual(t, values, 1)
	ensure(tr.Verify())

	tr.Clear()
	deepEqual(t, nodes, 0)
	deepEqual(t, keys, 100)
	deepEqual(t, values, 100)
	deepEqual(t, tr.IsEmpty(), true)
	deepEqual(t, tr.Height(), 0)

	// the tree stays usable after Clear
	ensure(tr.Insert("x", 1))
	deepEqual(t, tr.Len(), 1)
}

func TestTree_allocFailureLeavesTreeUntouched(t *testing.T) {
	errFull := errors.New("full")
	var budget = 3
	tr := New(Hooks[string]{
		AllocNode: func() error {
			if budget == 0 {
				return errFull
			}
			budget--
			return nil
		},
	})
	ensure(tr.Insert("b", "B"))
	ensure(tr.Insert("a", "A"))
	ensure(tr.Insert("c", "C"))

	err := tr.Insert("d", "D")
	if err != errFull {
		t.Fatalf("Insert = %v, wanted %v", err, errFull)
	}
	deepEqual(t, collectKeys(tr), []string{"a", "b", "c"})
	ensure(tr.Verify())

	// replacing does not allocate
	ensure(tr.Insert("a", "AA"))
	v, _ := tr.Get("a")
	deepEqual(t, v, "AA")
}

func TestTree_randomInsertDelete(t *testing.T) {
	const maxVal = 25
	for seed := range uint64(20) {
		t.Run(fmt.Sprintf("seed%d", seed), func(t *testing.T) {
			rnd := rand.New(rand.NewPCG(seed, 42))
			var live int
			tr := New(Hooks[int]{
				AllocNode: func() error { live++; return nil },
				FreeNode:  func() { live-- },
			})
			model := make(map[string]int)
			for i := range 10 * maxVal {
				key := fmt.Sprintf("%03d", rnd.IntN(maxVal))
				if rnd.IntN(2) == 0 {
					ensure(tr.Insert(key, i))
					model[key] = i
				} else {
					_, inModel := model[key]
					deepEqual(t, tr.Delete(key), inModel)
					delete(model, key)
				}
				if err := tr.Verify(); err != nil {
					var buf strings.Builder
					tr.Dump(&buf)
					t.Fatalf("after op %d: %v\n%s", i, err, buf.String())
				}
				deepEqual(t, live, len(model))
			}

			expected := make([]string, 0, len(model))
			for k := range model {
				expected = append(expected, k)
			}
			slices.Sort(expected)
			deepEqual(t, collectKeys(tr), expected)
			for k, v := range model {
				got, ok := tr.Get(k)
				if !ok || got != v {
					t.Errorf("Get(%q) = %v, %v, wanted %v", k, got, ok, v)
				}
			}

			for i := range maxVal {
				tr.Delete(fmt.Sprintf("%03d", i))
				ensure(tr.Verify())
			}
			deepEqual(t, tr.IsEmpty(), true)
			deepEqual(t, live, 0)
		})
	}
}

func TestTree_ascendingInsertStaysLogarithmic(t *testing.T) {
	var tr Tree[struct{}]
	for i := range 1024 {
		ensure(tr.Insert(fmt.Sprintf("%06d", i), struct{}{}))
	}
	ensure(tr.Verify())
	if h := tr.Height(); h > 14 {
		t.Fatalf("Height = %d, wanted <= 14", h)
	}
}

func TestTree_forEachStopsEarly(t *testing.T) {
	var tr Tree[int]
	for i, k := range []string{"d", "b", "f", "a", "c", "e", "g"} {
		ensure(tr.Insert(k, i))
	}
	var seen []string
	ok := tr.ForEach(func(idx int, key string, _ int) bool {
		seen = append(seen, key)
		return key != "c"
	})
	deepEqual(t, ok, false)
	deepEqual(t, seen, []string{"a", "b", "c"})
}

func TestTree_floor(t *testing.T) {
	var tr Tree[int]
	for _, k := range []string{"00001000", "00002000", "00008000"} {
		ensure(tr.Insert(k, len(k)))
	}
	tests := []struct {
		key   string
		floor string
		ok    bool
	}{
		{"00000FFF", "", false},
		{"00001000", "00001000", true},
		{"00001FFF", "00001000", true},
		{"00007000", "00002000", true},
		{"FFFFFFFF", "00008000", true},
	}
	for _, tt := range tests {
		k, _, ok := tr.Floor(tt.key)
		if k != tt.floor || ok != tt.ok {
			t.Errorf("Floor(%q) = %q, %v, wanted %q, %v", tt.key, k, ok, tt.floor, tt.ok)
		}
	}
}

func TestIter(t *testing.T) {
	var tr Tree[int]
	it := tr.Iter()
	deepEqual(t, it.First(), false)
	deepEqual(t, it.Valid(), false)

	for i, k := range []string{"e", "a", "c", "b", "d"} {
		ensure(tr.Insert(k, i))
	}
	it = tr.Iter()
	var keys []string
	for ok := it.First(); ok; ok = it.Next() {
		keys = append(keys, it.Key())
	}
	deepEqual(t, keys, []string{"a", "b", "c", "d", "e"})
	deepEqual(t, it.Next(), false)

	deepEqual(t, it.Seek("bb"), true)
	deepEqual(t, it.Key(), "c")
	deepEqual(t, it.Value(), 2)
	deepEqual(t, it.Seek("f"), false)

	var all []string
	for k := range tr.All() {
		all = append(all, k)
	}
	deepEqual(t, all, keys)
}

func collectKeys[V any](tr *Tree[V]) []string {
	keys := []string{}
	for k := range tr.All() {
		keys = append(keys, k)
	}
	return keys
}

func deepEqual[T any](t testing.TB, a, e T) {
	if !reflect.DeepEqual(a, e) {
		t.Helper()
		t.Fatalf("** got %v, wanted %v", a, e)
	}
}

func ensure(err error) {
	if err != nil {
		panic(err)
	}
}
