package journal

import (
	"bytes"
	"context"
	"encoding/binary"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

type Record struct {
	Segment uint32
	Time    time.Time
	Data    []byte // only valid during the callback
}

// Read calls fn for every valid record in dir, oldest first. Corrupted
// segments and records after a corrupted one are skipped with a warning.
// An error from fn stops the iteration and is returned.
func Read(ctx context.Context, dir string, opt Options, fn func(r Record) error) error {
	opt.fillDefaults()
	prefix, suffix, _ := strings.Cut(opt.FileName, "*")
	segs, err := listSegments(dir, prefix, suffix)
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return err
	}
	for _, seg := range segs {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := os.ReadFile(filepath.Join(dir, seg.name))
		if err != nil {
			return err
		}
		n, err := readSegment(data, seg.ordinal, fn)
		if err == errCorrupted || err == ErrUnsupportedVersion {
			opt.Logger.LogAttrs(ctx, slog.LevelWarn, "journal: skipping rest of segment",
				slog.String("file", seg.name),
				slog.Int("records", n),
				slog.Int("size", len(data)),
				slog.Any("err", err))
			continue
		} else if err != nil {
			return err
		}
	}
	return nil
}

// readSegment returns the number of records passed to fn.
func readSegment(data []byte, ordinal uint32, fn func(r Record) error) (int, error) {
	if len(data) < headerSize {
		return 0, errCorrupted
	}
	var h segmentHeader
	if _, err := binary.Decode(data[:headerSize], binary.LittleEndian, &h); err != nil {
		panic(err)
	}
	if h.Magic != magic || h.Checksum != xxhash.Sum64(data[:headerSize-8]) || h.Ordinal != ordinal {
		return 0, errCorrupted
	}
	if h.Version > version0 {
		return 0, ErrUnsupportedVersion
	}

	var hash xxhash.Digest
	hash.Reset()
	hash.Write(data[:headerSize])
	ts := h.Timestamp
	var count int
	for off := headerSize; off < len(data); {
		size, n1 := binary.Uvarint(data[off:])
		if n1 <= 0 {
			return count, errCorrupted
		}
		delta, n2 := binary.Uvarint(data[off+n1:])
		if n2 <= 0 || delta > 0xFFFF_FFFF {
			return count, errCorrupted
		}
		start := off + n1 + n2
		if size > uint64(len(data)-start) || len(data)-start-int(size) < 8 {
			return count, errCorrupted
		}
		end := start + int(size)
		hash.Write(data[off:end])
		var sum [8]byte
		binary.LittleEndian.PutUint64(sum[:], hash.Sum64())
		if !bytes.Equal(sum[:], data[end:end+8]) {
			return count, errCorrupted
		}
		hash.Write(sum[:])

		ts += uint32(delta)
		if err := fn(Record{ordinal, time.Unix(int64(ts), 0).UTC(), data[start:end]}); err != nil {
			return count, err
		}
		count++
		off = end + 8
	}
	return count, nil
}
