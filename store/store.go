// Package store persists object graphs in named collections, on disk in a
// bbolt file or in memory.
//
// Each value is stored as a uvarint format version, the 8-byte fingerprint
// of the graph (see cobj.Object.Hash) and the graph's msgpack encoding.
// Writing a graph whose fingerprint matches the stored one is a no-op.
//
// Changes can additionally be recorded in an append-only journal
// directory, see Options.JournalDir.
package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/andreyvit/cobj"
	"github.com/andreyvit/cobj/internal/journal"
	"go.etcd.io/bbolt"
)

const formatVersion = 1

type Options struct {
	Logger *slog.Logger

	// Quota is charged for graphs returned by Get.
	Quota *cobj.Quota

	// Timeout bounds waiting for the file lock. Zero means 10 seconds.
	Timeout  time.Duration
	ReadOnly bool
	NoSync   bool

	// JournalDir, if set, receives a record of every change (see
	// ReadChanges).
	JournalDir string
}

type Store struct {
	be      backend
	logger  *slog.Logger
	quota   *cobj.Quota
	journal *journal.Journal
}

// Open opens or creates a bbolt-backed store.
func Open(path string, opt Options) (*Store, error) {
	bopt := *bbolt.DefaultOptions
	bopt.Timeout = opt.Timeout
	if bopt.Timeout == 0 {
		bopt.Timeout = 10 * time.Second
	}
	bopt.ReadOnly = opt.ReadOnly
	bopt.NoSync = opt.NoSync
	bopt.FreelistType = bbolt.FreelistMapType

	bdb, err := bbolt.Open(path, 0666, &bopt)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	s, err := newStore(&boltBackend{bdb}, opt)
	if err != nil {
		bdb.Close()
		return nil, err
	}
	return s, nil
}

// OpenMem returns a transient in-memory store. Only a JournalDir that
// cannot be created makes it fail.
func OpenMem(opt Options) (*Store, error) {
	return newStore(newMemBackend(), opt)
}

func newStore(be backend, opt Options) (*Store, error) {
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	s := &Store{be: be, logger: opt.Logger, quota: opt.Quota}
	if opt.JournalDir != "" && !opt.ReadOnly {
		jopt := journalOptions
		jopt.Logger = opt.Logger
		j, err := journal.Open(opt.JournalDir, jopt)
		if err != nil {
			return nil, fmt.Errorf("store: journal: %w", err)
		}
		s.journal = j
	}
	return s, nil
}

func (s *Store) Close() error {
	err := s.be.close()
	if s.journal != nil {
		if jerr := s.journal.Close(); err == nil {
			err = jerr
		}
	}
	return err
}

func (s *Store) read(ctx context.Context, f func(tx backendTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx, err := s.be.begin(false)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer tx.rollback()
	return f(tx)
}

func (s *Store) write(ctx context.Context, f func(tx backendTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx, err := s.be.begin(true)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer tx.rollback()
	if err := f(tx); err != nil {
		return err
	}
	if err := tx.commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// Put stores o under collection/name. changed is false when the stored
// graph already has the same fingerprint, in which case nothing is written.
// o is borrowed.
func (s *Store) Put(ctx context.Context, collection, name string, o *cobj.Object) (changed bool, err error) {
	if collection == "" || name == "" {
		return false, fmt.Errorf("store: empty collection or name")
	}
	fp := o.Hash()
	val := binary.AppendUvarint(nil, formatVersion)
	val = binary.BigEndian.AppendUint64(val, fp)
	val, err = cobj.AppendMsgpack(val, o)
	if err != nil {
		return false, fmt.Errorf("store: %s/%s: %w", collection, name, err)
	}

	err = s.write(ctx, func(tx backendTx) error {
		b, err := tx.createBucket(collection)
		if err != nil {
			return fmt.Errorf("store: %s: %w", collection, err)
		}
		if old := b.get([]byte(name)); old != nil {
			if oldFP, _, err := decodeHeader(old); err == nil && oldFP == fp {
				return nil
			}
		}
		changed = true
		return b.put([]byte(name), val)
	})
	if err != nil {
		return false, err
	}
	s.logger.LogAttrs(ctx, slog.LevelDebug, "store: put",
		slog.String("collection", collection),
		slog.String("name", name),
		slog.Int("bytes", len(val)),
		slog.Bool("changed", changed))
	if changed {
		return true, s.record(ctx, OpPut, collection, name, fp)
	}
	return false, nil
}

// Get decodes the graph stored under collection/name into a fresh owning
// graph charged to Options.Quota.
func (s *Store) Get(ctx context.Context, collection, name string) (*cobj.Object, error) {
	var o *cobj.Object
	err := s.read(ctx, func(tx backendTx) error {
		b := tx.bucket(collection)
		if b == nil {
			return fmt.Errorf("%s/%s: %w", collection, name, ErrNotFound)
		}
		data := b.get([]byte(name))
		if data == nil {
			return fmt.Errorf("%s/%s: %w", collection, name, ErrNotFound)
		}
		_, payload, derr := decodeHeader(data)
		if derr == nil {
			var err error
			o, err = s.quota.UnmarshalMsgpack(payload)
			if err != nil {
				derr = dataErrf(data, len(data)-len(payload), err, "invalid payload")
			}
		}
		if derr != nil {
			return derr.detach(collection, name)
		}
		return nil
	})
	return o, err
}

// Fingerprint returns the stored fingerprint of collection/name without
// decoding the graph.
func (s *Store) Fingerprint(ctx context.Context, collection, name string) (uint64, error) {
	var fp uint64
	err := s.read(ctx, func(tx backendTx) error {
		var data []byte
		if b := tx.bucket(collection); b != nil {
			data = b.get([]byte(name))
		}
		if data == nil {
			return fmt.Errorf("%s/%s: %w", collection, name, ErrNotFound)
		}
		var derr *DataError
		fp, _, derr = decodeHeader(data)
		if derr != nil {
			return derr.detach(collection, name)
		}
		return nil
	})
	return fp, err
}

// Delete removes collection/name and reports whether it existed. A
// collection left empty is removed too.
func (s *Store) Delete(ctx context.Context, collection, name string) (bool, error) {
	var found bool
	err := s.write(ctx, func(tx backendTx) error {
		b := tx.bucket(collection)
		if b == nil || b.get([]byte(name)) == nil {
			return nil
		}
		found = true
		if err := b.delete([]byte(name)); err != nil {
			return err
		}
		if k, _ := b.cursor().first(); k == nil {
			return tx.deleteBucket(collection)
		}
		return nil
	})
	if err != nil || !found {
		return found, err
	}
	s.logger.LogAttrs(ctx, slog.LevelDebug, "store: deleted",
		slog.String("collection", collection),
		slog.String("name", name))
	return true, s.record(ctx, OpDelete, collection, name, 0)
}

// DropCollection removes a collection with everything in it.
func (s *Store) DropCollection(ctx context.Context, collection string) error {
	err := s.write(ctx, func(tx backendTx) error {
		err := tx.deleteBucket(collection)
		if errors.Is(err, errNoBucket) {
			return fmt.Errorf("%s: %w", collection, ErrNotFound)
		}
		return err
	})
	if err != nil {
		return err
	}
	return s.record(ctx, OpDrop, collection, "", 0)
}

// Names lists the names in a collection that start with prefix, in byte
// order. A missing collection has no names.
func (s *Store) Names(ctx context.Context, collection, prefix string) ([]string, error) {
	var names []string
	err := s.read(ctx, func(tx backendTx) error {
		b := tx.bucket(collection)
		if b == nil {
			return nil
		}
		c := b.cursor()
		var k []byte
		if prefix == "" {
			k, _ = c.first()
		} else {
			k, _ = c.seek([]byte(prefix))
		}
		for ; k != nil && hasPrefix(k, prefix); k, _ = c.next() {
			names = append(names, string(k))
		}
		return nil
	})
	return names, err
}

type CollectionInfo struct {
	Name  string
	Count int
}

func (s *Store) Collections(ctx context.Context) ([]CollectionInfo, error) {
	var infos []CollectionInfo
	err := s.read(ctx, func(tx backendTx) error {
		for _, name := range tx.bucketNames() {
			infos = append(infos, CollectionInfo{name, tx.bucket(name).count()})
		}
		return nil
	})
	return infos, err
}

func decodeHeader(data []byte) (fp uint64, payload []byte, err *DataError) {
	ver, n := binary.Uvarint(data)
	if n <= 0 {
		return 0, nil, dataErrf(data, 0, nil, "invalid format version")
	}
	if ver != formatVersion {
		return 0, nil, dataErrf(data, 0, nil, "unsupported format version %d", ver)
	}
	if len(data) < n+8 {
		return 0, nil, dataErrf(data, n, nil, "truncated fingerprint")
	}
	return binary.BigEndian.Uint64(data[n:]), data[n+8:], nil
}

func hasPrefix(k []byte, prefix string) bool {
	return len(k) >= len(prefix) && string(k[:len(prefix)]) == prefix
}
