// Package journal implements append-only change logs split into segment
// files.
//
// A segment is a header followed by records:
//
//   - header = magic:64 version:8 pad:24 ordinal:32 timestamp:32 pad:32 checksum:64
//   - record = size:uvarint tsDelta:uvarint data checksum:64
//
// Checksums are xxhash64 values of everything in the segment before them,
// so a record is only valid if the whole segment up to it is. Readers stop
// at the first invalid record, which is what a crash in the middle of a
// write leaves behind.
//
// Every Journal starts a new segment on its first write, and moves to the
// next one when a segment grows past MaxFileSize.
package journal

import (
	"cmp"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

var (
	ErrClosed             = errors.New("journal closed")
	ErrUnsupportedVersion = errors.New("unsupported journal version")
	errCorrupted          = errors.New("corrupted journal segment")
)

type Options struct {
	FileName    string // e.g. "changes-*.log"
	MaxFileSize int64  // new segment after this size
	Now         func() time.Time
	Logger      *slog.Logger
}

const DefaultMaxFileSize = 4 * 1024 * 1024

func (o *Options) fillDefaults() {
	if o.FileName == "" {
		o.FileName = "*"
	}
	if o.MaxFileSize == 0 {
		o.MaxFileSize = DefaultMaxFileSize
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

const (
	magic    = 0x4c4e524a4a424f43 // "COBJJRNL" as little-endian uint64
	version0 = 0

	headerSize   = 32
	timestampFmt = "20060102T150405"
)

type segmentHeader struct {
	Magic     uint64
	Version   uint8
	_         [3]uint8
	Ordinal   uint32
	Timestamp uint32
	_         uint32
	Checksum  uint64
}

type Journal struct {
	dir            string
	prefix, suffix string
	opt            Options

	mu   sync.Mutex
	err  error
	seg  uint32 // ordinal of the last segment on disk
	w    *segmentWriter
	done bool
}

// Open prepares to append to the journal in dir, creating the directory
// if needed. Nothing is written until the first Append.
func Open(dir string, opt Options) (*Journal, error) {
	opt.fillDefaults()
	if err := os.MkdirAll(dir, 0o777); err != nil {
		return nil, err
	}
	j := &Journal{dir: dir, opt: opt}
	j.prefix, j.suffix, _ = strings.Cut(opt.FileName, "*")

	segs, err := listSegments(dir, j.prefix, j.suffix)
	if err != nil {
		return nil, err
	}
	if len(segs) > 0 {
		j.seg = segs[len(segs)-1].ordinal
	}
	return j, nil
}

func (j *Journal) String() string {
	return j.dir
}

func (j *Journal) now() uint32 {
	v := j.opt.Now().Unix()
	if v < 0 || v > 0xFFFF_FFFF {
		panic("journal: timestamp out of range")
	}
	return uint32(v)
}

// Append writes one record. Once a write fails, the journal refuses all
// further writes.
func (j *Journal) Append(data []byte) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.done {
		return ErrClosed
	}
	if j.err != nil {
		return j.err
	}
	ts := j.now()
	if j.w != nil && j.w.size >= j.opt.MaxFileSize {
		if err := j.w.close(); err != nil {
			return j.fail(err)
		}
		j.w = nil
	}
	if j.w == nil {
		w, err := j.startSegment(j.seg+1, ts)
		if err != nil {
			return j.fail(err)
		}
		j.seg++
		j.w = w
	}
	return j.fail(j.w.writeRecord(ts, data))
}

// Sync flushes written records to stable storage.
func (j *Journal) Sync() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.w == nil || j.err != nil {
		return j.err
	}
	return j.fail(j.w.f.Sync())
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.done {
		return nil
	}
	j.done = true
	if j.w == nil {
		return nil
	}
	err := j.w.close()
	j.w = nil
	return err
}

func (j *Journal) fail(err error) error {
	if err == nil {
		return nil
	}
	j.opt.Logger.LogAttrs(context.Background(), slog.LevelError, "journal: failed",
		slog.String("dir", j.dir),
		slog.Any("err", err))
	if j.w != nil {
		_ = j.w.close()
		j.w = nil
	}
	if j.err == nil {
		j.err = err
	}
	return err
}

type segmentWriter struct {
	f    *os.File
	ts   uint32
	size int64
	hash xxhash.Digest
}

func (j *Journal) startSegment(ordinal, ts uint32) (*segmentWriter, error) {
	name := formatSegmentName(j.prefix, j.suffix, ordinal, ts)
	f, err := os.OpenFile(filepath.Join(j.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o666)
	if err != nil {
		return nil, err
	}
	w := &segmentWriter{f: f, ts: ts, size: headerSize}
	w.hash.Reset()

	var buf [headerSize]byte
	h := segmentHeader{Magic: magic, Version: version0, Ordinal: ordinal, Timestamp: ts}
	if _, err := binary.Encode(buf[:], binary.LittleEndian, h); err != nil {
		panic(err)
	}
	w.hash.Write(buf[:headerSize-8])
	binary.LittleEndian.PutUint64(buf[headerSize-8:], w.hash.Sum64())
	w.hash.Write(buf[headerSize-8:])

	if _, err := f.Write(buf[:]); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, err
	}
	j.opt.Logger.LogAttrs(context.Background(), slog.LevelDebug, "journal: new segment",
		slog.String("dir", j.dir),
		slog.String("file", name))
	return w, nil
}

const maxRecordHeaderLen = binary.MaxVarintLen64 + binary.MaxVarintLen32

func (w *segmentWriter) writeRecord(ts uint32, data []byte) error {
	var delta uint32
	if ts > w.ts {
		delta = ts - w.ts
		w.ts = ts
	}
	buf := make([]byte, 0, maxRecordHeaderLen+len(data)+8)
	buf = binary.AppendUvarint(buf, uint64(len(data)))
	buf = binary.AppendUvarint(buf, uint64(delta))
	buf = append(buf, data...)
	w.hash.Write(buf)
	buf = binary.LittleEndian.AppendUint64(buf, w.hash.Sum64())
	w.hash.Write(buf[len(buf)-8:])

	n, err := w.f.Write(buf)
	w.size += int64(n)
	return err
}

func (w *segmentWriter) close() error {
	return w.f.Close()
}

type segmentFile struct {
	name    string
	ordinal uint32
}

// listSegments returns segment files in ordinal order.
func listSegments(dir, prefix, suffix string) ([]segmentFile, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var segs []segmentFile
	for _, ent := range ents {
		name := ent.Name()
		if !ent.Type().IsRegular() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) || len(name) < len(prefix)+len(suffix) {
			continue
		}
		ordinal, _, err := parseSegmentName(name[len(prefix) : len(name)-len(suffix)])
		if err != nil {
			continue
		}
		segs = append(segs, segmentFile{name, ordinal})
	}
	slices.SortFunc(segs, func(a, b segmentFile) int { return cmp.Compare(a.ordinal, b.ordinal) })
	return segs, nil
}

func formatSegmentName(prefix, suffix string, ordinal, ts uint32) string {
	t := time.Unix(int64(ts), 0).UTC()
	return fmt.Sprintf("%s%012d-%s%s", prefix, ordinal, t.Format(timestampFmt), suffix)
}

// parseSegmentName parses the part of a file name between prefix and
// suffix.
func parseSegmentName(s string) (ordinal, ts uint32, err error) {
	ordStr, tsStr, ok := strings.Cut(s, "-")
	if !ok {
		return 0, 0, fmt.Errorf("invalid segment name %q", s)
	}
	v, err := strconv.ParseUint(ordStr, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid segment name %q (invalid ordinal)", s)
	}
	t, err := time.ParseInLocation(timestampFmt, tsStr, time.UTC)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid segment name %q (invalid timestamp)", s)
	}
	return uint32(v), uint32(t.Unix()), nil
}
