package cohex

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/andreyvit/cobj"
)

const s19Sample = `S00600004844521B
S107100001020304DE
S10510040506DB

S206020000AABB92
S30680000000CCAD
S9030000FC
`

const hexSample = ":020100001122CA\r\n" +
	":0101020033C9\r\n" +
	":020000040001F9\r\n" +
	":02000000445565\r\n" +
	":020000021000EC\r\n" +
	":010010006689\r\n" +
	":0400000500000000F7\r\n" +
	":00000001FF\r\n" +
	":010200007786\r\n"

func TestParseS19(t *testing.T) {
	o := must(ReadS19(strings.NewReader(s19Sample), Options{}))
	defer cobj.Destroy(o)
	deepEqual(t, o.Value(), any(map[string]any{
		"00001000": []byte{1, 2, 3, 4, 5, 6},
		"00020000": []byte{0xAA, 0xBB},
		"80000000": []byte{0xCC},
	}))
}

func TestParseHex(t *testing.T) {
	o := must(ReadHex(strings.NewReader(hexSample), Options{}))
	defer cobj.Destroy(o)
	deepEqual(t, o.Value(), any(map[string]any{
		"00000100": []byte{0x11, 0x22, 0x33},
		"00010000": []byte{0x44, 0x55},
		"00010010": []byte{0x66},
	}))
}

func TestParse_errors(t *testing.T) {
	tests := []struct {
		name  string
		parse func([]byte, Options) (*cobj.Object, error)
		input string
		line  int
		msg   string
	}{
		{"s19 checksum", ParseS19, "S107100001020304DE\nS10510040506DC\n", 2, "checksum mismatch"},
		{"s19 count", ParseS19, "S1071000010203DE\n", 1, "byte count"},
		{"s19 digits", ParseS19, "S1071000010203Z4DE\n", 1, "invalid hex digits"},
		{"s19 type", ParseS19, "\n\nSX00\n", 3, "invalid record type"},
		{"hex checksum", ParseHex, ":020100001122CB\n", 1, "checksum mismatch"},
		{"hex count", ParseHex, ":020100001122\n", 1, "count mismatch"},
		{"hex type", ParseHex, ":020100001122CA\n:00000007F9\n", 2, "unknown record type 07"},
		{"hex segment", ParseHex, ":0100000210ED\n", 1, "needs 2 data bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := cobj.NewQuota(0)
			_, err := tt.parse([]byte(tt.input), Options{Quota: q})
			var se *cobj.SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("err = %v, wanted *cobj.SyntaxError", err)
			}
			deepEqual(t, se.Line, tt.line)
			if !strings.Contains(se.Msg, tt.msg) {
				t.Errorf("Msg = %q, wanted it to contain %q", se.Msg, tt.msg)
			}
			deepEqual(t, q.Used(), int64(0))
		})
	}
}

func TestParse_ignoreChecksums(t *testing.T) {
	o := must(ParseS19([]byte("S1051000AABB00\n"), Options{IgnoreChecksums: true}))
	defer cobj.Destroy(o)
	deepEqual(t, o.Value(), any(map[string]any{"00001000": []byte{0xAA, 0xBB}}))
}

func TestParse_quota(t *testing.T) {
	q := cobj.NewQuota(0)
	for limit := int64(0); ; limit += 8 {
		q.SetLimit(limit)
		o, err := ParseHex([]byte(hexSample), Options{Quota: q})
		if err == nil {
			deepEqual(t, o.Map().Len(), 3)
			cobj.Destroy(o)
			break
		}
		if !errors.Is(err, cobj.ErrAllocation) {
			t.Fatalf("ParseHex err = %v, wanted ErrAllocation", err)
		}
		deepEqual(t, q.Used(), int64(0))
	}
}

func TestBlocks(t *testing.T) {
	image := cobj.NewMap(cobj.Owning)
	defer cobj.Destroy(image)
	for key, data := range map[string][]byte{
		"00000010":  {1, 2},
		"00000012":  {3, 4},
		"00000100":  {9},
		"100000000": {7},
	} {
		ensure(image.Map().Add(key, must(cobj.New(cobj.KindMemBlock, cobj.Owning, data))))
	}
	bs := must(NewBlocks(image.Map()))
	deepEqual(t, len(bs), 4)
	deepEqual(t, bs[3].Addr, uint64(0x100000000))
	deepEqual(t, bs.Size(), 6)

	b, ok := bs.Find(0x13)
	deepEqual(t, ok, true)
	deepEqual(t, b.Addr, uint64(0x12))
	_, ok = bs.Find(0x14)
	deepEqual(t, ok, false)
	_, ok = bs.Find(0x0F)
	deepEqual(t, ok, false)

	deepEqual(t, must(bs.ReadAt(0x10, 2)), []byte{1, 2})
	deepEqual(t, must(bs.ReadAt(0x11, 3)), []byte{2, 3, 4})
	deepEqual(t, must(bs.ReadAt(0x100000000, 1)), []byte{7})

	for _, addr := range []uint64{0x11, 0xFF} {
		if _, err := bs.ReadAt(addr, 5); !errors.Is(err, ErrUnmapped) {
			t.Errorf("ReadAt(%X, 5) err = %v, wanted ErrUnmapped", addr, err)
		}
	}
}

func TestNewBlocks_invalid(t *testing.T) {
	image := must(cobj.FromValue(map[string]any{"xyz": []byte{1}}))
	defer cobj.Destroy(image)
	if _, err := NewBlocks(image.Map()); err == nil {
		t.Fatalf("NewBlocks accepted a non-hex key")
	}
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
