// Package mapfile gives read-only access to whole input files, memory mapped
// where the platform allows it.
package mapfile

import (
	"errors"
	"fmt"
	"io"
	"os"
)

type Options uint

const (
	// SequentialAccess is a hint requesting aggressive read-ahead.
	// Incompatible with RandomAccess. Maps to MADV_SEQUENTIAL on Unix.
	SequentialAccess Options = 1 << iota

	// RandomAccess is a hint that read ahead is less useful than normally.
	// Maps to MADV_RANDOM on Unix.
	RandomAccess

	// Prefault asks for the entire file to be loaded up front. Maps to
	// MAP_POPULATE on Linux.
	Prefault

	// NoMmap reads the file into memory instead of mapping it.
	NoMmap
)

func (o Options) Has(v Options) bool {
	return o&v != 0
}

var errNoMmap = errors.New("mmap not supported")

// File is the content of a file. Data must not be modified and must not be
// used after Close.
type File struct {
	Name   string
	data   []byte
	mapped bool
}

func (f *File) Data() []byte {
	return f.data
}

// Mapped reports whether Data is backed by a memory mapping.
func (f *File) Mapped() bool {
	return f.mapped
}

// Open maps the named file. Empty files, special files such as pipes, and
// platforms without mmap fall back to reading the file into memory.
func Open(name string, opt Options) (*File, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := fi.Size()
	if !fi.Mode().IsRegular() || size == 0 || opt.Has(NoMmap) {
		return read(name, f)
	}
	if size > MaxSize {
		return nil, fmt.Errorf("%s: %d bytes is over the %d bytes mapping limit", name, size, int64(MaxSize))
	}

	b, err := mmap(f, int(size), opt)
	if errors.Is(err, errNoMmap) {
		return read(name, f)
	} else if err != nil {
		return nil, fmt.Errorf("%s: mmap: %w", name, err)
	}
	return &File{Name: name, data: b, mapped: true}, nil
}

// Read wraps data already in memory, e.g. standard input.
func Read(name string, r io.Reader) (*File, error) {
	return read(name, r)
}

func read(name string, r io.Reader) (*File, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &File{Name: name, data: b}, nil
}

func (f *File) Close() error {
	data, mapped := f.data, f.mapped
	f.data, f.mapped = nil, false
	if mapped {
		return munmap(data)
	}
	return nil
}
