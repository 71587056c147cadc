package cobj

import "unsafe"

var (
	handleSize = int64(unsafe.Sizeof(Object{}))
	slotSize   = int64(unsafe.Sizeof((*Object)(nil)))
	nodeSize   = int64(unsafe.Sizeof(struct {
		key    string
		value  *Object
		kid    [2]unsafe.Pointer
		height int
	}{}))
)

// Quota is a memory budget for a graph of objects.
//
// Every handle, vector chunk, map node and owned byte buffer is charged to
// the quota of the object that holds it and released when that object is
// destroyed. When a charge would exceed the limit, the operation fails with
// an *AllocError and leaves no partial state behind, so Used returns to its
// previous value after any failed operation.
//
// A nil *Quota is unlimited and does no accounting. Quotas are not safe for
// concurrent use; build one graph per goroutine.
type Quota struct {
	limit int64
	used  int64
	peak  int64
}

// NewQuota returns a quota that allows up to limit bytes. Zero means no
// limit, which still tracks usage.
func NewQuota(limit int64) *Quota {
	return &Quota{limit: limit}
}

func (q *Quota) Limit() int64 {
	if q == nil {
		return 0
	}
	return q.limit
}

func (q *Quota) SetLimit(limit int64) {
	q.limit = limit
}

// Used returns the number of bytes currently charged.
func (q *Quota) Used() int64 {
	if q == nil {
		return 0
	}
	return q.used
}

// Peak returns the highest value of Used so far.
func (q *Quota) Peak() int64 {
	if q == nil {
		return 0
	}
	return q.peak
}

func (q *Quota) charge(op string, n int64) error {
	if q == nil || n == 0 {
		return nil
	}
	if q.limit > 0 && q.used+n > q.limit {
		return &AllocError{Op: op, Size: n, Used: q.used, Limit: q.limit}
	}
	q.used += n
	q.peak = max(q.peak, q.used)
	return nil
}

func (q *Quota) release(n int64) {
	if q == nil || n == 0 {
		return
	}
	q.used -= n
	if q.used < 0 {
		panic("cobj: quota released more than it was charged")
	}
}
