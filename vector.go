package cobj

import (
	"fmt"
	"iter"
)

// VectorChunk is the number of slots a vector grows by.
const VectorChunk = 32

type vectorRep struct {
	elems []*Object
}

func (o *Object) setupVector() error {
	if err := o.quota.charge("new vector", VectorChunk*slotSize); err != nil {
		return err
	}
	o.rep = &vectorRep{elems: make([]*Object, 0, VectorChunk)}
	return nil
}

func (vr *vectorRep) kind() Kind { return KindVector }
func (vr *vectorRep) size() int  { return len(vr.elems) }

func (vr *vectorRep) render(r *renderer) {
	r.buf = append(r.buf, '[')
	for i, el := range vr.elems {
		if i > 0 {
			r.buf = append(r.buf, ", "...)
		}
		el.rep.render(r)
	}
	r.buf = append(r.buf, ']')
}

func (vr *vectorRep) destroy(o *Object) {
	vr.clear(o)
	o.quota.release(int64(cap(vr.elems)) * slotSize)
	vr.elems = nil
}

func (vr *vectorRep) clear(o *Object) {
	owning := o.flags.Has(OwnValues)
	for i, el := range vr.elems {
		if owning {
			el.release()
		}
		vr.elems[i] = nil
	}
	vr.elems = vr.elems[:0]
}

func (vr *vectorRep) shrink(o *Object, capacity int) {
	if cap(vr.elems) <= capacity {
		return
	}
	o.quota.release(int64(cap(vr.elems)-capacity) * slotSize)
	elems := make([]*Object, len(vr.elems), capacity)
	copy(elems, vr.elems)
	vr.elems = elems
}

func (vr *vectorRep) clone(o *Object, q *Quota) (*Object, error) {
	res, err := q.NewVector(Owning)
	if err != nil {
		return nil, err
	}
	v := res.Vector()
	for _, el := range vr.elems {
		c, err := el.CloneInto(q)
		if err != nil {
			Destroy(res)
			return nil, err
		}
		_, err = v.Add(c)
		if err != nil {
			Destroy(c)
			Destroy(res)
			return nil, err
		}
	}
	return res, nil
}

// Vector is a view of a vector object.
type Vector struct {
	o  *Object
	vr *vectorRep
}

// Vector returns a vector view of o. Panics if o is not a vector.
func (o *Object) Vector() Vector {
	o.alive("Vector")
	vr, ok := o.rep.(*vectorRep)
	if !ok {
		reportKindMismatch("Vector", o, KindVector)
	}
	return Vector{o, vr}
}

func (v Vector) Object() *Object {
	return v.o
}

func (v Vector) Len() int {
	return len(v.vr.elems)
}

func (v Vector) Cap() int {
	return cap(v.vr.elems)
}

func (v Vector) IsEmpty() bool {
	return len(v.vr.elems) == 0
}

// Get returns the element at idx, or nil if idx is out of range. The result
// is borrowed from the vector.
func (v Vector) Get(idx int) *Object {
	if idx < 0 || idx >= len(v.vr.elems) {
		return nil
	}
	return v.vr.elems[idx]
}

// Add appends el and returns its index. An owning vector takes ownership of
// el; on error the caller keeps it.
func (v Vector) Add(el *Object) (int, error) {
	v.o.alive("Vector.Add")
	if el == nil {
		panic("cobj: Vector.Add: nil element")
	}
	owning := v.o.flags.Has(OwnValues)
	if owning {
		el.checkMove("Vector.Add", v.o)
	} else {
		el.alive("Vector.Add")
	}
	vr := v.vr
	if len(vr.elems) == cap(vr.elems) {
		if err := v.o.quota.charge("vector grow", VectorChunk*slotSize); err != nil {
			return -1, err
		}
		elems := make([]*Object, len(vr.elems), cap(vr.elems)+VectorChunk)
		copy(elems, vr.elems)
		vr.elems = elems
	}
	vr.elems = append(vr.elems, el)
	if owning {
		el.state = stateAttached
	}
	return len(vr.elems) - 1, nil
}

// Erase removes the element at idx, destroying it if the vector owns it, and
// shifts the following elements down. Out-of-range indices are ignored.
func (v Vector) Erase(idx int) {
	vr := v.vr
	if idx < 0 || idx >= len(vr.elems) {
		return
	}
	if v.o.flags.Has(OwnValues) {
		vr.elems[idx].release()
	}
	n := len(vr.elems)
	copy(vr.elems[idx:], vr.elems[idx+1:])
	vr.elems[n-1] = nil
	vr.elems = vr.elems[:n-1]
}

func (v Vector) EraseLast() {
	v.Erase(len(v.vr.elems) - 1)
}

// Clear removes all elements, destroying them if the vector owns them. The
// capacity is kept.
func (v Vector) Clear() {
	v.vr.clear(v.o)
}

// ForEach calls f for each element in order and stops as soon as f returns
// false, in which case ForEach returns false too. The element count is taken
// once on entry; modifying the vector from f has unspecified effect.
func (v Vector) ForEach(f func(idx int, el *Object) bool) bool {
	n := len(v.vr.elems)
	for i := 0; i < n && i < len(v.vr.elems); i++ {
		if !f(i, v.vr.elems[i]) {
			return false
		}
	}
	return true
}

func (v Vector) All() iter.Seq2[int, *Object] {
	return func(yield func(int, *Object) bool) {
		v.ForEach(yield)
	}
}

// Map calls f for every element and collects the results into a new owning
// vector charged to the same quota. f receives ownership of nothing and must
// return a fresh free object. If f or an insertion fails, everything built so
// far is destroyed.
func (v Vector) Map(f func(v Vector, idx int, el *Object) (*Object, error)) (*Object, error) {
	res, err := v.o.quota.NewVector(Owning)
	if err != nil {
		return nil, err
	}
	rv := res.Vector()
	ok := v.ForEach(func(idx int, el *Object) bool {
		var r *Object
		r, err = f(v, idx, el)
		if err == nil && r == nil {
			err = fmt.Errorf("cobj: Vector.Map at %d: %w", idx, errNilResult)
		}
		if err != nil {
			return false
		}
		if _, err = rv.Add(r); err != nil {
			Destroy(r)
			return false
		}
		return true
	})
	if !ok {
		Destroy(res)
		return nil, err
	}
	return res, nil
}

// AppendFrom appends clones of all elements of src. Either every element is
// appended, or, on failure, the vector is restored to its previous content.
// The vector must own its values, since clones have no other owner.
func (v Vector) AppendFrom(src Vector) error {
	if !v.o.flags.Has(OwnValues) {
		panic("cobj: Vector.AppendFrom: target does not own its values")
	}
	start, startCap := v.Len(), v.Cap()
	n := src.Len()
	for i := range n {
		c, err := src.vr.elems[i].CloneInto(v.o.quota)
		if err == nil {
			_, err = v.Add(c)
			if err != nil {
				Destroy(c)
			}
		}
		if err != nil {
			for v.Len() > start {
				v.EraseLast()
			}
			v.vr.shrink(v.o, startCap)
			return err
		}
	}
	return nil
}
