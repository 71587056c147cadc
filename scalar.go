package cobj

import (
	"encoding/hex"
	"strconv"
)

type doubleRep struct {
	v float64
}

func (dr *doubleRep) kind() Kind { return KindDouble }
func (dr *doubleRep) size() int  { return 1 }

func (dr *doubleRep) render(r *renderer) {
	r.buf = strconv.AppendFloat(r.buf, dr.v, 'g', -1, 64)
}

func (dr *doubleRep) destroy(o *Object) {}

func (dr *doubleRep) clone(o *Object, q *Quota) (*Object, error) {
	return q.NewDouble(dr.v)
}

// Double is a view of a double object.
type Double struct {
	o  *Object
	dr *doubleRep
}

func (o *Object) Double() Double {
	o.alive("Double")
	dr, ok := o.rep.(*doubleRep)
	if !ok {
		reportKindMismatch("Double", o, KindDouble)
	}
	return Double{o, dr}
}

func (d Double) Object() *Object { return d.o }
func (d Double) Get() float64    { return d.dr.v }
func (d Double) Set(v float64)   { d.dr.v = v }

type memRep struct {
	buf []byte
}

func (mr *memRep) append(o *Object, b []byte) error {
	n := len(mr.buf) + len(b)
	if n > cap(mr.buf) {
		newCap := max(n, 2*cap(mr.buf))
		if err := o.quota.charge("memblock grow", int64(newCap-cap(mr.buf))); err != nil {
			return err
		}
		buf := make([]byte, len(mr.buf), newCap)
		copy(buf, mr.buf)
		mr.buf = buf
	}
	mr.buf = append(mr.buf, b...)
	return nil
}

func (mr *memRep) kind() Kind { return KindMemBlock }
func (mr *memRep) size() int  { return len(mr.buf) }

func (mr *memRep) render(r *renderer) {
	r.buf = append(r.buf, '<')
	r.buf = hex.AppendEncode(r.buf, mr.buf)
	r.buf = append(r.buf, '>')
}

func (mr *memRep) destroy(o *Object) {
	o.quota.release(int64(cap(mr.buf)))
	mr.buf = nil
}

func (mr *memRep) clone(o *Object, q *Quota) (*Object, error) {
	return q.New(KindMemBlock, Owning, mr.buf)
}

// MemBlock is a view of a memory block: an append-only owned byte buffer.
type MemBlock struct {
	o  *Object
	mr *memRep
}

func (o *Object) MemBlock() MemBlock {
	o.alive("MemBlock")
	mr, ok := o.rep.(*memRep)
	if !ok {
		reportKindMismatch("MemBlock", o, KindMemBlock)
	}
	return MemBlock{o, mr}
}

func (m MemBlock) Object() *Object { return m.o }
func (m MemBlock) Len() int        { return len(m.mr.buf) }

// Raw returns the buffer. It stays valid until the next Append.
func (m MemBlock) Raw() []byte {
	return m.mr.buf
}

// Append grows the block by b. Returns false on allocation failure, leaving
// the block unchanged.
func (m MemBlock) Append(b []byte) bool {
	m.o.alive("MemBlock.Append")
	return m.mr.append(m.o, b) == nil
}
