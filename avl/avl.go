// Package avl implements a height-balanced binary search tree keyed by
// byte strings.
//
// The tree stores a key and an opaque value per node. It does not own
// anything by itself: whenever a key, a value or a node leaves the tree, the
// corresponding hook is invoked, so the owner decides what “freeing” means.
//
// Every leaf edge and the root of an empty tree point to a per-tree sentinel
// node of height 0 whose children point back to itself. This keeps the
// balancing code free of nil checks.
//
// Insertion walks down by lexicographic key comparison, adds a leaf, and
// rebalances on the way back up. Deletion rotates the node to be removed
// towards its taller child until it becomes a leaf and falls off the tree,
// then rebalances on the way back up.
package avl

import (
	"fmt"
	"io"
	"iter"
	"strings"
)

// Hooks are invoked when the tree gains or loses memory. All of them are
// optional.
type Hooks[V any] struct {
	// AllocNode is called before a new node is created. Returning an error
	// aborts the insertion without modifying the tree.
	AllocNode func() error

	// FreeNode is called after a node has been unlinked and its key and value
	// have been released.
	FreeNode func()

	// FreeKey is called for a key that leaves the tree, including the new key
	// passed to Insert when it replaces the value of an existing key (the
	// existing key is kept).
	FreeKey func(key string)

	// FreeValue is called for a value that leaves the tree, including the old
	// value replaced by Insert.
	FreeValue func(value V)
}

type node[V any] struct {
	key    string
	value  V
	kid    [2]*node[V]
	height int
}

// Tree is an AVL tree. The zero value is an empty tree ready to use.
type Tree[V any] struct {
	Hooks Hooks[V]

	root *node[V]
	nnil *node[V]
}

// New returns an empty tree with the given hooks.
func New[V any](hooks Hooks[V]) *Tree[V] {
	t := &Tree[V]{Hooks: hooks}
	t.init()
	return t
}

func (t *Tree[V]) init() {
	if t.nnil != nil {
		return
	}
	n := &node[V]{}
	n.kid[0], n.kid[1] = n, n
	t.nnil = n
	t.root = n
}

func (t *Tree[V]) newNode(key string, value V) (*node[V], error) {
	if t.Hooks.AllocNode != nil {
		if err := t.Hooks.AllocNode(); err != nil {
			return nil, err
		}
	}
	return &node[V]{key: key, value: value, kid: [2]*node[V]{t.nnil, t.nnil}, height: 1}, nil
}

func (t *Tree[V]) freeKey(key string) {
	if t.Hooks.FreeKey != nil {
		t.Hooks.FreeKey(key)
	}
}

func (t *Tree[V]) freeValue(value V) {
	if t.Hooks.FreeValue != nil {
		t.Hooks.FreeValue(value)
	}
}

func (t *Tree[V]) deleteNode(n *node[V]) {
	t.freeKey(n.key)
	t.freeValue(n.value)
	var zero V
	n.value = zero
	n.kid[0], n.kid[1] = nil, nil
	if t.Hooks.FreeNode != nil {
		t.Hooks.FreeNode()
	}
}

func dirOf(b bool) int {
	if b {
		return 1
	}
	return 0
}

func setHeight[V any](n *node[V]) {
	n.height = 1 + max(n.kid[0].height, n.kid[1].height)
}

func balanceOf[V any](n *node[V]) int {
	return n.kid[0].height - n.kid[1].height
}

// rotate makes kid[dir] the new root of the subtree. If that kid is the
// sentinel, the old root is a leaf, so it is deleted instead.
func (t *Tree[V]) rotate(rootp **node[V], dir int) *node[V] {
	oldR := *rootp
	newR := oldR.kid[dir]
	*rootp = newR
	if newR == t.nnil {
		t.deleteNode(oldR)
	} else {
		oldR.kid[dir] = newR.kid[1-dir]
		setHeight(oldR)
		newR.kid[1-dir] = oldR
	}
	return newR
}

func (t *Tree[V]) adjustBalance(rootp **node[V]) {
	root := *rootp
	b := balanceOf(root) / 2
	if b != 0 {
		dir := (1 - b) / 2
		if balanceOf(root.kid[dir]) == -b {
			t.rotate(&root.kid[dir], 1-dir)
		}
		root = t.rotate(rootp, dir)
	}
	if root != t.nnil {
		setHeight(root)
	}
}

// Insert adds key with the given value. If the key already exists, the value
// is replaced: the old value is passed to FreeValue, the new key to FreeKey,
// and the shape of the tree does not change.
//
// The only possible error is the one returned by Hooks.AllocNode, in which
// case the tree is left untouched and the caller still owns key and value.
func (t *Tree[V]) Insert(key string, value V) error {
	t.init()
	return t.insert(&t.root, key, value)
}

func (t *Tree[V]) insert(rootp **node[V], key string, value V) error {
	root := *rootp
	if root == t.nnil {
		n, err := t.newNode(key, value)
		if err != nil {
			return err
		}
		*rootp = n
		return nil
	}

	c := strings.Compare(key, root.key)
	if c == 0 {
		t.freeKey(key)
		t.freeValue(root.value)
		root.value = value
		return nil
	}
	if err := t.insert(&root.kid[dirOf(c > 0)], key, value); err != nil {
		return err
	}
	t.adjustBalance(rootp)
	return nil
}

// Delete removes key, releasing its key, value and node through the hooks.
// Returns false if the key was not found.
func (t *Tree[V]) Delete(key string) bool {
	t.init()
	return t.delete(&t.root, key)
}

func (t *Tree[V]) delete(rootp **node[V], key string) bool {
	root := *rootp
	if root == t.nnil {
		return false
	}
	if key == root.key {
		root = t.rotate(rootp, dirOf(balanceOf(root) < 0))
		if root == t.nnil {
			return true
		}
	}
	found := t.delete(&root.kid[dirOf(key > root.key)], key)
	t.adjustBalance(rootp)
	return found
}

func (t *Tree[V]) find(key string) *node[V] {
	t.init()
	n := t.root
	for n != t.nnil {
		c := strings.Compare(key, n.key)
		if c == 0 {
			return n
		}
		n = n.kid[dirOf(c > 0)]
	}
	return nil
}

// Get returns the value stored under key.
func (t *Tree[V]) Get(key string) (V, bool) {
	if n := t.find(key); n != nil {
		return n.value, true
	}
	var zero V
	return zero, false
}

// Has reports whether key is present.
func (t *Tree[V]) Has(key string) bool {
	return t.find(key) != nil
}

// Floor returns the greatest key less than or equal to the given one.
func (t *Tree[V]) Floor(key string) (string, V, bool) {
	t.init()
	var best *node[V]
	n := t.root
	for n != t.nnil {
		c := strings.Compare(key, n.key)
		if c == 0 {
			return n.key, n.value, true
		} else if c > 0 {
			best = n
			n = n.kid[1]
		} else {
			n = n.kid[0]
		}
	}
	if best == nil {
		var zero V
		return "", zero, false
	}
	return best.key, best.value, true
}

// IsEmpty reports whether the tree has no nodes.
func (t *Tree[V]) IsEmpty() bool {
	return t.root == nil || t.root == t.nnil
}

// Height returns the height of the root node, 0 for an empty tree.
func (t *Tree[V]) Height() int {
	if t.IsEmpty() {
		return 0
	}
	return t.root.height
}

// ForEach visits all nodes in ascending key order. Iteration stops when f
// returns false, in which case ForEach returns false too.
func (t *Tree[V]) ForEach(f func(idx int, key string, value V) bool) bool {
	t.init()
	var idx int
	return t.forEach(t.root, f, &idx)
}

func (t *Tree[V]) forEach(n *node[V], f func(idx int, key string, value V) bool, idx *int) bool {
	if n == t.nnil {
		return true
	}
	if !t.forEach(n.kid[0], f, idx) {
		return false
	}
	if !f(*idx, n.key, n.value) {
		return false
	}
	*idx++
	return t.forEach(n.kid[1], f, idx)
}

// All returns an iterator over key-value pairs in ascending key order.
func (t *Tree[V]) All() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		t.ForEach(func(_ int, key string, value V) bool {
			return yield(key, value)
		})
	}
}

// Len counts the nodes. It is O(n); the count is not cached.
func (t *Tree[V]) Len() int {
	var n int
	t.ForEach(func(int, string, V) bool {
		n++
		return true
	})
	return n
}

// Clear deletes all nodes in post-order, releasing every key, value and node
// exactly once.
func (t *Tree[V]) Clear() {
	t.init()
	t.deleteAll(&t.root)
}

func (t *Tree[V]) deleteAll(np **node[V]) {
	n := *np
	if n == t.nnil {
		return
	}
	t.deleteAll(&n.kid[0])
	t.deleteAll(&n.kid[1])
	t.deleteNode(n)
	*np = t.nnil
}

// Verify checks the AVL invariants and the key ordering of every node.
func (t *Tree[V]) Verify() error {
	t.init()
	_, err := t.verify(t.root, "", "", false, false)
	return err
}

func (t *Tree[V]) verify(n *node[V], lo, hi string, hasLo, hasHi bool) (int, error) {
	if n == t.nnil {
		if n.height != 0 {
			return 0, fmt.Errorf("sentinel has height %d", n.height)
		}
		return 0, nil
	}
	if hasLo && n.key <= lo {
		return 0, fmt.Errorf("node %q is not greater than %q", n.key, lo)
	}
	if hasHi && n.key >= hi {
		return 0, fmt.Errorf("node %q is not less than %q", n.key, hi)
	}
	h0, err := t.verify(n.kid[0], lo, n.key, hasLo, true)
	if err != nil {
		return 0, err
	}
	h1, err := t.verify(n.kid[1], n.key, hi, true, hasHi)
	if err != nil {
		return 0, err
	}
	if b := h0 - h1; b < -1 || b > 1 {
		return 0, fmt.Errorf("node %q is unbalanced: balance %d", n.key, b)
	}
	if n.height != 1+max(h0, h1) {
		return 0, fmt.Errorf("node %q has height %d, wanted %d", n.key, n.height, 1+max(h0, h1))
	}
	return n.height, nil
}

// Dump writes the tree sideways, right subtree first, one key per line.
func (t *Tree[V]) Dump(w io.Writer) {
	t.init()
	t.dump(w, t.root, 0)
}

func (t *Tree[V]) dump(w io.Writer, n *node[V], depth int) {
	if n == t.nnil {
		return
	}
	t.dump(w, n.kid[1], depth+1)
	fmt.Fprintf(w, "%s%s (%d)\n", strings.Repeat("    ", depth), n.key, n.height)
	t.dump(w, n.kid[0], depth+1)
}
