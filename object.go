package cobj

import (
	"fmt"
)

type Kind uint8

const (
	KindBlank Kind = iota
	KindVector
	KindMap
	KindString
	KindDouble
	KindMemBlock
)

var kindNames = [...]string{
	KindBlank:    "blank",
	KindVector:   "vector",
	KindMap:      "map",
	KindString:   "string",
	KindDouble:   "double",
	KindMemBlock: "memblock",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// rep is the per-kind payload and behavior of an object.
type rep interface {
	kind() Kind
	size() int
	render(r *renderer)
	destroy(o *Object)
	clone(o *Object, q *Quota) (*Object, error)
}

type objState uint8

const (
	stateFree objState = iota
	stateAttached
	stateDestroyed
)

// Object is a dynamically-typed value: a Blank, a Vector, a Map, a String,
// a Double or a MemBlock.
//
// Objects are always handled by pointer. An object is destroyed exactly once,
// either explicitly via Destroy or by the owning container it has been moved
// into. Moving an object into an owning container attaches it: from then on
// only the container may destroy it, and it cannot be moved anywhere else.
type Object struct {
	rep   rep
	flags Flags
	state objState
	quota *Quota
}

func (q *Quota) alloc(flags Flags) (*Object, error) {
	if err := q.charge("new object", handleSize); err != nil {
		return nil, err
	}
	return &Object{flags: flags.normalize(), quota: q}, nil
}

// New creates an object of the given kind. init is the optional initial data:
// a string or []byte for KindString and KindMemBlock, a float64 for
// KindDouble. Other kinds take no initial data.
func New(kind Kind, flags Flags, init any) (*Object, error) {
	return (*Quota)(nil).New(kind, flags, init)
}

// New creates an object charged to q. If the initializer fails, the handle is
// released and no object is returned.
func (q *Quota) New(kind Kind, flags Flags, init any) (*Object, error) {
	o, err := q.alloc(flags)
	if err != nil {
		return nil, err
	}
	err = o.setup(kind, init)
	if err != nil {
		q.release(handleSize)
		return nil, err
	}
	return o, nil
}

func (o *Object) setup(kind Kind, init any) error {
	switch kind {
	case KindBlank:
		if init != nil {
			panic(fmt.Errorf("cobj: %v takes no initial data, got %T", kind, init))
		}
		o.rep = blankRep{}
		return nil
	case KindVector:
		if init != nil {
			panic(fmt.Errorf("cobj: %v takes no initial data, got %T", kind, init))
		}
		return o.setupVector()
	case KindMap:
		if init != nil {
			panic(fmt.Errorf("cobj: %v takes no initial data, got %T", kind, init))
		}
		o.setupMap()
		return nil
	case KindString:
		switch v := init.(type) {
		case nil:
			return o.setupString(nil)
		case string:
			return o.setupString(borrowString(v))
		case []byte:
			return o.setupString(v)
		default:
			panic(fmt.Errorf("cobj: %v cannot be initialized from %T", kind, init))
		}
	case KindDouble:
		switch v := init.(type) {
		case nil:
			o.rep = &doubleRep{}
		case float64:
			o.rep = &doubleRep{v: v}
		case int:
			o.rep = &doubleRep{v: float64(v)}
		default:
			panic(fmt.Errorf("cobj: %v cannot be initialized from %T", kind, init))
		}
		return nil
	case KindMemBlock:
		o.flags |= OwnStrings
		o.rep = &memRep{}
		switch v := init.(type) {
		case nil:
			return nil
		case string:
			return o.rep.(*memRep).append(o, borrowString(v))
		case []byte:
			return o.rep.(*memRep).append(o, v)
		default:
			panic(fmt.Errorf("cobj: %v cannot be initialized from %T", kind, init))
		}
	default:
		panic(fmt.Errorf("cobj: invalid kind %v", kind))
	}
}

func NewBlank() *Object                       { return must((*Quota)(nil).NewBlank()) }
func NewVector(flags Flags) *Object           { return must((*Quota)(nil).NewVector(flags)) }
func NewMap(flags Flags) *Object              { return must((*Quota)(nil).NewMap(flags)) }
func NewDouble(v float64) *Object             { return must((*Quota)(nil).NewDouble(v)) }
func NewMemBlock() *Object                    { return must((*Quota)(nil).NewMemBlock()) }
func NewString(flags Flags, s string) *Object { return must((*Quota)(nil).NewString(flags, s)) }

// NewStringBytes creates a string over b. Without CopyStrings the object
// borrows b, and the caller must keep it unchanged while the object lives.
func NewStringBytes(flags Flags, b []byte) *Object {
	return must((*Quota)(nil).NewStringBytes(flags, b))
}

func (q *Quota) NewBlank() (*Object, error) {
	return q.New(KindBlank, None, nil)
}

func (q *Quota) NewVector(flags Flags) (*Object, error) {
	return q.New(KindVector, flags, nil)
}

func (q *Quota) NewMap(flags Flags) (*Object, error) {
	return q.New(KindMap, flags, nil)
}

func (q *Quota) NewDouble(v float64) (*Object, error) {
	return q.New(KindDouble, None, v)
}

func (q *Quota) NewMemBlock() (*Object, error) {
	return q.New(KindMemBlock, None, nil)
}

// NewString creates a string. With CopyStrings (or OwnStrings) the object
// owns a private copy of s and can be appended to; otherwise it borrows s
// and is immutable.
func (q *Quota) NewString(flags Flags, s string) (*Object, error) {
	return q.New(KindString, flags, s)
}

func (q *Quota) NewStringBytes(flags Flags, b []byte) (*Object, error) {
	return q.New(KindString, flags, b)
}

// Destroy destroys o together with everything it owns. Destroying nil is a
// no-op. Destroying an object twice, or destroying an object that has been
// moved into an owning container, panics.
func Destroy(o *Object) {
	if o == nil {
		return
	}
	switch o.state {
	case stateDestroyed:
		panic("cobj: object destroyed twice")
	case stateAttached:
		panic(fmt.Errorf("cobj: destroying a %v owned by a container", o.rep.kind()))
	}
	o.free()
}

func (o *Object) free() {
	o.rep.destroy(o)
	o.rep = nil
	o.state = stateDestroyed
	o.quota.release(handleSize)
}

func (o *Object) alive(op string) {
	if o.state == stateDestroyed {
		panic(fmt.Errorf("cobj: %s: use of destroyed object", op))
	}
}

// checkMove panics unless o can be moved into the owning container parent.
func (o *Object) checkMove(op string, parent *Object) {
	o.alive(op)
	if o == parent {
		panic(fmt.Errorf("cobj: %s: cannot add a %v to itself", op, o.rep.kind()))
	}
	if o.state == stateAttached {
		panic(fmt.Errorf("cobj: %s: %v already belongs to a container", op, o.rep.kind()))
	}
}

// release destroys a child owned by a container.
func (o *Object) release() {
	o.state = stateFree
	o.free()
}

func (o *Object) Kind() Kind {
	o.alive("Kind")
	return o.rep.kind()
}

func (o *Object) Is(kind Kind) bool {
	return o != nil && o.state != stateDestroyed && o.rep.kind() == kind
}

func (o *Object) Flags() Flags {
	return o.flags
}

// Quota returns the quota the object is charged to, nil when unlimited.
func (o *Object) Quota() *Quota {
	return o.quota
}

// Attached reports whether o has been moved into an owning container.
func (o *Object) Attached() bool {
	return o.state == stateAttached
}

// Size returns the element count of a Vector or a Map, the byte length of a
// String or a MemBlock, 1 for a Double and 0 for a Blank. Map size is
// computed by a full traversal.
func (o *Object) Size() int {
	o.alive("Size")
	return o.rep.size()
}

// Clone returns a deep copy of o charged to the same quota. The copy owns
// everything regardless of the flags of o. On failure nothing is leaked.
func (o *Object) Clone() (*Object, error) {
	return o.CloneInto(o.quota)
}

// CloneInto is like Clone but charges the copy to q.
func (o *Object) CloneInto(q *Quota) (*Object, error) {
	o.alive("Clone")
	return o.rep.clone(o, q)
}

type blankRep struct{}

func (blankRep) kind() Kind         { return KindBlank }
func (blankRep) size() int          { return 0 }
func (blankRep) render(r *renderer) {}
func (blankRep) destroy(o *Object)  {}
func (blankRep) clone(o *Object, q *Quota) (*Object, error) {
	return q.New(KindBlank, Owning, nil)
}
