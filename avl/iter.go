package avl

// Iter is a cursor over a tree in ascending key order. Modifying the tree
// invalidates the cursor.
type Iter[V any] struct {
	t     *Tree[V]
	stack []*node[V]
	cur   *node[V]
}

// Iter returns a cursor positioned before the first node. Call First.
func (t *Tree[V]) Iter() *Iter[V] {
	t.init()
	return &Iter[V]{t: t}
}

func (it *Iter[V]) pushLeft(n *node[V]) {
	for n != it.t.nnil {
		it.stack = append(it.stack, n)
		n = n.kid[0]
	}
}

func (it *Iter[V]) pop() bool {
	n := len(it.stack)
	if n == 0 {
		it.cur = nil
		return false
	}
	it.cur = it.stack[n-1]
	it.stack = it.stack[:n-1]
	it.pushLeft(it.cur.kid[1])
	return true
}

// First moves to the smallest key. Returns false for an empty tree.
func (it *Iter[V]) First() bool {
	it.stack = it.stack[:0]
	it.pushLeft(it.t.root)
	return it.pop()
}

// Seek moves to the smallest key greater than or equal to the given one.
func (it *Iter[V]) Seek(key string) bool {
	it.stack = it.stack[:0]
	n := it.t.root
	for n != it.t.nnil {
		if key <= n.key {
			it.stack = append(it.stack, n)
			n = n.kid[0]
		} else {
			n = n.kid[1]
		}
	}
	return it.pop()
}

// Next advances to the following key. Returns false past the last one.
func (it *Iter[V]) Next() bool {
	if it.cur == nil {
		return false
	}
	return it.pop()
}

// Valid reports whether the cursor points at a node.
func (it *Iter[V]) Valid() bool {
	return it.cur != nil
}

func (it *Iter[V]) Key() string {
	if it.cur == nil {
		return ""
	}
	return it.cur.key
}

func (it *Iter[V]) Value() V {
	if it.cur == nil {
		var zero V
		return zero
	}
	return it.cur.value
}
