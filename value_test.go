package cobj

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func TestFromValue(t *testing.T) {
	o := must(FromValue(map[string]any{
		"b":   true,
		"n":   json.Number("12.5"),
		"i":   int64(-3),
		"s":   "str",
		"raw": []byte{1},
		"v":   []any{nil, uint8(7)},
	}))
	defer Destroy(o)
	deepEqual(t, o.String(), "{b:1, i:-3, n:12.5, raw:<01>, s:str, v:[, 7]}")
	deepEqual(t, o.Value(), any(map[string]any{
		"b":   1.0,
		"i":   -3.0,
		"n":   12.5,
		"raw": []byte{1},
		"s":   "str",
		"v":   []any{nil, 7.0},
	}))
}

func TestFromValue_unsupported(t *testing.T) {
	q := NewQuota(0)
	_, err := q.FromValue([]any{"ok", struct{}{}})
	if err == nil {
		t.Fatalf("FromValue succeeded, wanted error")
	}
	deepEqual(t, q.Used(), int64(0))
}

func TestFromValue_clonesObjects(t *testing.T) {
	src := NewMap(Owning)
	defer Destroy(src)
	ensure(src.Map().Add("k", NewDouble(1)))

	o := must(FromValue([]any{src}))
	defer Destroy(o)
	inner := o.Vector().Get(0)
	if inner == src {
		t.Fatalf("FromValue shared the object")
	}
	ensure(inner.Map().Add("k2", NewDouble(2)))
	deepEqual(t, src.Map().Len(), 1)
	deepEqual(t, inner.String(), "{k:1, k2:2}")
}

func TestMsgpack_roundTrip(t *testing.T) {
	src := sampleGraph(t)
	defer Destroy(src)

	data := must(AppendMsgpack(nil, src))
	o := must(UnmarshalMsgpack(data))
	defer Destroy(o)
	deepEqual(t, Equal(src, o), true)

	// through the reflection-based API
	raw := must(msgpack.Marshal(src))
	deepEqual(t, raw, data)
	var o2 *Object
	ensure(msgpack.Unmarshal(raw, &o2))
	defer Destroy(o2)
	deepEqual(t, Equal(src, o2), true)
}

func TestMsgpack_foreignInput(t *testing.T) {
	data := must(msgpack.Marshal(map[string]any{
		"bool": true,
		"int":  int8(-5),
		"uint": uint64(300),
		"f32":  float32(0.5),
		"nil":  nil,
		"list": []string{"a"},
	}))
	o := must(UnmarshalMsgpack(data))
	defer Destroy(o)
	deepEqual(t, o.String(), "{bool:1, f32:0.5, int:-5, list:[a], nil:, uint:300}")
}

func TestMsgpack_decodeFailureLeaksNothing(t *testing.T) {
	src := sampleGraph(t)
	defer Destroy(src)
	data := must(AppendMsgpack(nil, src))

	q := NewQuota(0)
	for limit := int64(0); ; limit += 32 {
		q.SetLimit(limit)
		o, err := q.UnmarshalMsgpack(data)
		if err == nil {
			Destroy(o)
			break
		}
		if !errors.Is(err, ErrAllocation) {
			t.Fatalf("UnmarshalMsgpack err = %v, wanted ErrAllocation", err)
		}
		deepEqual(t, q.Used(), int64(0))
	}

	_, err := UnmarshalMsgpack(data[:len(data)-1])
	if err == nil {
		t.Fatalf("UnmarshalMsgpack accepted truncated input")
	}
	_, err = UnmarshalMsgpack(bytes.Repeat([]byte{0xd4}, 3))
	if err == nil {
		t.Fatalf("UnmarshalMsgpack accepted an extension type")
	}
}
