package store

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/andreyvit/cobj"
	"github.com/andreyvit/cobj/internal/journal"
)

type Op string

const (
	OpPut    Op = "put"
	OpDelete Op = "delete"
	OpDrop   Op = "drop"
)

// Change is one entry of the change journal. Name is empty for OpDrop,
// Fingerprint is zero for everything but OpPut.
type Change struct {
	Time        time.Time
	Op          Op
	Collection  string
	Name        string
	Fingerprint uint64
}

var journalOptions = journal.Options{FileName: "changes-*.log"}

// record appends a change to the journal, if there is one. Journal records
// are cobj maps in msgpack encoding.
func (s *Store) record(ctx context.Context, op Op, collection, name string, fp uint64) error {
	if s.journal == nil {
		return nil
	}
	m := map[string]any{"op": string(op), "collection": collection}
	if name != "" {
		m["name"] = name
	}
	if op == OpPut {
		m["fingerprint"] = strconv.FormatUint(fp, 16)
	}
	o, err := cobj.FromValue(m)
	if err != nil {
		return err
	}
	defer cobj.Destroy(o)
	data, err := cobj.AppendMsgpack(nil, o)
	if err == nil {
		err = s.journal.Append(data)
	}
	if err != nil {
		// the change itself is already committed
		s.logger.LogAttrs(ctx, slog.LevelError, "store: journal write failed",
			slog.String("op", string(op)),
			slog.String("collection", collection),
			slog.String("name", name),
			slog.Any("err", err))
		return fmt.Errorf("store: journal: %w", err)
	}
	return nil
}

// ReadChanges calls fn for every change recorded in the journal directory
// dir, oldest first.
func ReadChanges(ctx context.Context, dir string, logger *slog.Logger, fn func(c Change) error) error {
	opt := journalOptions
	opt.Logger = logger
	return journal.Read(ctx, dir, opt, func(r journal.Record) error {
		c, err := decodeChange(r)
		if err != nil {
			return fmt.Errorf("store: journal segment %d: %w", r.Segment, err)
		}
		return fn(c)
	})
}

func decodeChange(r journal.Record) (Change, error) {
	o, err := cobj.UnmarshalMsgpack(r.Data)
	if err != nil {
		return Change{}, err
	}
	defer cobj.Destroy(o)
	if !o.Is(cobj.KindMap) {
		return Change{}, fmt.Errorf("change record is a %v", o.Kind())
	}
	m := o.Map()
	c := Change{
		Time:       r.Time,
		Op:         Op(mapString(m, "op")),
		Collection: mapString(m, "collection"),
		Name:       mapString(m, "name"),
	}
	if fp := mapString(m, "fingerprint"); fp != "" {
		c.Fingerprint, err = strconv.ParseUint(fp, 16, 64)
		if err != nil {
			return Change{}, fmt.Errorf("invalid fingerprint %q", fp)
		}
	}
	return c, nil
}

func mapString(m cobj.Map, key string) string {
	if o := m.Get(key); o != nil && o.Is(cobj.KindString) {
		return o.Str().Value()
	}
	return ""
}
