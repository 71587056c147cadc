package store

import (
	"errors"
	"unsafe"

	"go.etcd.io/bbolt"
)

type boltBackend struct {
	bdb *bbolt.DB
}

func (s *boltBackend) begin(writable bool) (backendTx, error) {
	btx, err := s.bdb.Begin(writable)
	if err != nil {
		return nil, err
	}
	return boltTx{btx}, nil
}

func (s *boltBackend) close() error {
	return s.bdb.Close()
}

type boltTx struct {
	btx *bbolt.Tx
}

func (tx boltTx) writable() bool { return tx.btx.Writable() }

func (tx boltTx) bucket(name string) backendBucket {
	b := tx.btx.Bucket(unsafeBytes(name))
	if b == nil {
		return nil
	}
	return boltBucket{b}
}

func (tx boltTx) createBucket(name string) (backendBucket, error) {
	// bbolt keeps the key, so it must not alias the caller's string.
	b, err := tx.btx.CreateBucketIfNotExists([]byte(name))
	if err != nil {
		return nil, err
	}
	return boltBucket{b}, nil
}

func (tx boltTx) deleteBucket(name string) error {
	err := tx.btx.DeleteBucket(unsafeBytes(name))
	if errors.Is(err, bbolt.ErrBucketNotFound) {
		return errNoBucket
	}
	return err
}

func (tx boltTx) bucketNames() []string {
	var names []string
	_ = tx.btx.ForEach(func(name []byte, _ *bbolt.Bucket) error {
		names = append(names, string(name))
		return nil
	})
	return names
}

func (tx boltTx) commit() error { return tx.btx.Commit() }

func (tx boltTx) rollback() error {
	err := tx.btx.Rollback()
	if errors.Is(err, bbolt.ErrTxClosed) {
		return nil
	}
	return err
}

type boltBucket struct {
	b *bbolt.Bucket
}

func (b boltBucket) get(key []byte) []byte { return b.b.Get(key) }
func (b boltBucket) put(key, value []byte) error { return b.b.Put(key, value) }
func (b boltBucket) delete(key []byte) error { return b.b.Delete(key) }
func (b boltBucket) cursor() backendCursor { return boltCursor{b.b.Cursor()} }
func (b boltBucket) count() int { return b.b.Stats().KeyN }

type boltCursor struct {
	c *bbolt.Cursor
}

func (c boltCursor) first() ([]byte, []byte) { return c.c.First() }
func (c boltCursor) seek(seek []byte) ([]byte, []byte) { return c.c.Seek(seek) }
func (c boltCursor) next() ([]byte, []byte) { return c.c.Next() }

func unsafeBytes(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
