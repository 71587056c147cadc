package mapfile

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestOptionsHas(t *testing.T) {
	var o Options = SequentialAccess | Prefault
	if !o.Has(Prefault) || o.Has(RandomAccess) {
		t.Fatalf("Options.Has returned unexpected results for %v", o)
	}
}

func TestOpen(t *testing.T) {
	content := bytes.Repeat([]byte("0123456789abcdef"), 1000)
	path := writeTemp(t, content)

	for _, opt := range []Options{0, SequentialAccess, RandomAccess | Prefault, NoMmap} {
		f := must(Open(path, opt))
		if !bytes.Equal(f.Data(), content) {
			t.Fatalf("** opt %v: content mismatch, len %d", opt, len(f.Data()))
		}
		wantMapped := opt != NoMmap && runtime.GOOS != "windows" && runtime.GOOS != "plan9" && runtime.GOOS != "js" && runtime.GOOS != "wasip1"
		if f.Mapped() != wantMapped {
			t.Errorf("** opt %v: Mapped() = %v, wanted %v", opt, f.Mapped(), wantMapped)
		}
		ensure(f.Close())
		if f.Data() != nil {
			t.Errorf("** Data() not cleared by Close")
		}
		ensure(f.Close())
	}
}

func TestOpen_empty(t *testing.T) {
	f := must(Open(writeTemp(t, nil), 0))
	defer f.Close()
	if len(f.Data()) != 0 || f.Mapped() {
		t.Fatalf("** got %d bytes, mapped=%v", len(f.Data()), f.Mapped())
	}
}

func TestOpen_missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope"), 0)
	if !os.IsNotExist(err) {
		t.Fatalf("** got %v, wanted a not-exist error", err)
	}
}

func TestRead(t *testing.T) {
	f := must(Read("stdin", strings.NewReader("hello")))
	defer f.Close()
	if string(f.Data()) != "hello" || f.Mapped() || f.Name != "stdin" {
		t.Fatalf("** got %q mapped=%v name=%q", f.Data(), f.Mapped(), f.Name)
	}
}

func writeTemp(t *testing.T, data []byte) string {
	path := filepath.Join(t.TempDir(), "input")
	ensure(os.WriteFile(path, data, 0o644))
	return path
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
