package cobj

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Equal reports whether a and b are structurally equal: same kind and equal
// content, recursively. Ownership flags are ignored, and NaN equals NaN.
func Equal(a, b *Object) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a == b {
		return true
	}
	a.alive("Equal")
	b.alive("Equal")
	switch ar := a.rep.(type) {
	case blankRep:
		_, ok := b.rep.(blankRep)
		return ok
	case *doubleRep:
		br, ok := b.rep.(*doubleRep)
		return ok && (ar.v == br.v || (math.IsNaN(ar.v) && math.IsNaN(br.v)))
	case *stringRep:
		br, ok := b.rep.(*stringRep)
		return ok && bytes.Equal(ar.buf, br.buf)
	case *memRep:
		br, ok := b.rep.(*memRep)
		return ok && bytes.Equal(ar.buf, br.buf)
	case *vectorRep:
		br, ok := b.rep.(*vectorRep)
		if !ok || len(ar.elems) != len(br.elems) {
			return false
		}
		for i, el := range ar.elems {
			if !Equal(el, br.elems[i]) {
				return false
			}
		}
		return true
	case *mapRep:
		br, ok := b.rep.(*mapRep)
		if !ok {
			return false
		}
		ai, bi := ar.tree.Iter(), br.tree.Iter()
		aok, bok := ai.First(), bi.First()
		for aok && bok {
			if ai.Key() != bi.Key() || !Equal(ai.Value(), bi.Value()) {
				return false
			}
			aok, bok = ai.Next(), bi.Next()
		}
		return aok == bok
	default:
		panic("unreachable")
	}
}

// Hash returns a 64-bit fingerprint of the structure and content of o.
// Objects that are Equal have the same hash.
func (o *Object) Hash() uint64 {
	o.alive("Hash")
	var d xxhash.Digest
	d.Reset()
	buf := hashBytesPool.Get().([]byte)
	buf = o.appendHash(&d, buf[:0])
	d.Write(buf)
	hashBytesPool.Put(buf[:0])
	return d.Sum64()
}

const hashFlushSize = 4096

// appendHash appends a canonical tagged encoding of o to buf, flushing it
// into d when it gets long.
func (o *Object) appendHash(d *xxhash.Digest, buf []byte) []byte {
	if len(buf) >= hashFlushSize {
		d.Write(buf)
		buf = buf[:0]
	}
	kind := o.rep.kind()
	buf = append(buf, byte(kind))
	switch r := o.rep.(type) {
	case *doubleRep:
		v := r.v
		switch {
		case math.IsNaN(v):
			v = math.NaN()
		case v == 0:
			v = 0
		}
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	case *stringRep:
		buf = appendHashBytes(d, buf, r.buf)
	case *memRep:
		buf = appendHashBytes(d, buf, r.buf)
	case *vectorRep:
		buf = binary.AppendUvarint(buf, uint64(len(r.elems)))
		for _, el := range r.elems {
			buf = el.appendHash(d, buf)
		}
	case *mapRep:
		r.tree.ForEach(func(_ int, key string, value *Object) bool {
			buf = append(buf, 1)
			buf = appendHashBytes(d, buf, borrowString(key))
			buf = value.appendHash(d, buf)
			return true
		})
		buf = append(buf, 0)
	}
	return buf
}

func appendHashBytes(d *xxhash.Digest, buf, b []byte) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(b)))
	if len(b) > hashFlushSize {
		d.Write(buf)
		d.Write(b)
		return buf[:0]
	}
	return append(buf, b...)
}
