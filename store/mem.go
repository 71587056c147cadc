package store

import (
	"bytes"
	"errors"
	"slices"
	"sort"
	"sync"
)

var (
	errClosed      = errors.New("store closed")
	errNotWritable = errors.New("tx not writable")
)

// memBackend keeps everything in memory. Every transaction works on a
// private snapshot; a commit replaces the whole state. Writers are
// serialized.
type memBackend struct {
	mu      sync.Mutex
	cond    *sync.Cond
	buckets map[string]*memBucket
	closed  bool
	writer  bool
}

func newMemBackend() *memBackend {
	s := &memBackend{buckets: make(map[string]*memBucket)}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *memBackend) begin(writable bool) (backendTx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if writable {
		for s.writer && !s.closed {
			s.cond.Wait()
		}
	}
	if s.closed {
		return nil, errClosed
	}
	if writable {
		s.writer = true
	}
	snap := make(map[string]*memBucket, len(s.buckets))
	for k, b := range s.buckets {
		snap[k] = b.clone()
	}
	return &memTx{base: s, rw: writable, buckets: snap}, nil
}

func (s *memBackend) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.buckets = nil
	s.cond.Broadcast()
	return nil
}

type memTx struct {
	base    *memBackend
	rw      bool
	buckets map[string]*memBucket
	done    bool
}

func (tx *memTx) writable() bool { return tx.rw }

func (tx *memTx) bucket(name string) backendBucket {
	if tx.done {
		panic("store: tx is closed")
	}
	b := tx.buckets[name]
	if b == nil {
		return nil
	}
	return memBucketHandle{tx, b}
}

func (tx *memTx) createBucket(name string) (backendBucket, error) {
	if !tx.rw {
		return nil, errNotWritable
	}
	b := tx.buckets[name]
	if b == nil {
		b = &memBucket{}
		tx.buckets[name] = b
	}
	return memBucketHandle{tx, b}, nil
}

func (tx *memTx) deleteBucket(name string) error {
	if !tx.rw {
		return errNotWritable
	}
	if tx.buckets[name] == nil {
		return errNoBucket
	}
	delete(tx.buckets, name)
	return nil
}

func (tx *memTx) bucketNames() []string {
	names := make([]string, 0, len(tx.buckets))
	for name := range tx.buckets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (tx *memTx) commit() error {
	if !tx.rw {
		return errNotWritable
	}
	tx.base.mu.Lock()
	defer tx.base.mu.Unlock()
	if tx.done {
		return nil
	}
	if tx.base.closed {
		tx.finishLocked()
		return errClosed
	}
	tx.base.buckets = tx.buckets
	tx.finishLocked()
	return nil
}

func (tx *memTx) rollback() error {
	tx.base.mu.Lock()
	defer tx.base.mu.Unlock()
	tx.finishLocked()
	return nil
}

func (tx *memTx) finishLocked() {
	if tx.done {
		return
	}
	tx.done = true
	if tx.rw {
		tx.base.writer = false
		tx.base.cond.Broadcast()
	}
}

type memKV struct {
	key   []byte
	value []byte
}

type memBucket struct {
	items []memKV // sorted by key
}

func (b *memBucket) clone() *memBucket {
	out := &memBucket{items: make([]memKV, len(b.items))}
	copy(out.items, b.items)
	return out
}

// search returns the index of the first item with key >= key.
func (b *memBucket) search(key []byte) int {
	return sort.Search(len(b.items), func(i int) bool {
		return bytes.Compare(b.items[i].key, key) >= 0
	})
}

type memBucketHandle struct {
	tx *memTx
	b  *memBucket
}

func (h memBucketHandle) find(key []byte) (int, bool) {
	i := h.b.search(key)
	return i, i < len(h.b.items) && bytes.Equal(h.b.items[i].key, key)
}

func (h memBucketHandle) get(key []byte) []byte {
	if i, ok := h.find(key); ok {
		return h.b.items[i].value
	}
	return nil
}

// put never modifies stored slices in place, so snapshots can share them.
func (h memBucketHandle) put(key, value []byte) error {
	if !h.tx.rw {
		return errNotWritable
	}
	kv := memKV{slices.Clone(key), slices.Clone(value)}
	if i, ok := h.find(key); ok {
		h.b.items[i] = kv
	} else {
		h.b.items = slices.Insert(h.b.items, i, kv)
	}
	return nil
}

func (h memBucketHandle) delete(key []byte) error {
	if !h.tx.rw {
		return errNotWritable
	}
	if i, ok := h.find(key); ok {
		h.b.items = slices.Delete(h.b.items, i, i+1)
	}
	return nil
}

func (h memBucketHandle) cursor() backendCursor {
	return &memCursor{b: h.b, pos: -1}
}

func (h memBucketHandle) count() int { return len(h.b.items) }

type memCursor struct {
	b   *memBucket
	pos int
}

func (c *memCursor) at() ([]byte, []byte) {
	if c.pos < 0 || c.pos >= len(c.b.items) {
		return nil, nil
	}
	kv := c.b.items[c.pos]
	return kv.key, kv.value
}

func (c *memCursor) first() ([]byte, []byte) {
	c.pos = 0
	return c.at()
}

func (c *memCursor) seek(seek []byte) ([]byte, []byte) {
	c.pos = c.b.search(seek)
	return c.at()
}

func (c *memCursor) next() ([]byte, []byte) {
	c.pos++
	return c.at()
}
