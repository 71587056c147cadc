package store

// backend is a transactional key-value storage with one level of named
// buckets (collections).
type backend interface {
	begin(writable bool) (backendTx, error)
	close() error
}

type backendTx interface {
	writable() bool

	// bucket returns nil if the bucket doesn't exist.
	bucket(name string) backendBucket

	// createBucket returns the existing bucket if there is one.
	createBucket(name string) (backendBucket, error)

	// deleteBucket returns errNoBucket if the bucket doesn't exist.
	deleteBucket(name string) error

	// bucketNames lists bucket names in key order.
	bucketNames() []string

	commit() error

	// rollback is safe to call after commit.
	rollback() error
}

type backendBucket interface {
	// get returns nil if the key is not found. The slice is only valid
	// until the end of the transaction.
	get(key []byte) []byte
	put(key, value []byte) error
	delete(key []byte) error
	cursor() backendCursor
	// count may not reflect changes made by the current transaction.
	count() int
}

type backendCursor interface {
	first() (key, value []byte)
	// seek moves to the first key >= seek.
	seek(seek []byte) (key, value []byte)
	next() (key, value []byte)
}
