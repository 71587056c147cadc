package cobj

import (
	"iter"
	"strings"

	"github.com/andreyvit/cobj/avl"
)

type mapRep struct {
	owner *Object
	tree  avl.Tree[*Object]
}

func (o *Object) setupMap() {
	mr := &mapRep{owner: o}
	mr.tree.Hooks = avl.Hooks[*Object]{
		AllocNode: mr.allocNode,
		FreeNode:  mr.freeNode,
		FreeKey:   mr.freeKey,
		FreeValue: mr.freeValue,
	}
	o.rep = mr
}

func (mr *mapRep) allocNode() error {
	return mr.owner.quota.charge("map node", nodeSize)
}

func (mr *mapRep) freeNode() {
	mr.owner.quota.release(nodeSize)
}

func (mr *mapRep) freeKey(key string) {
	if mr.owner.flags.Has(OwnStrings) {
		mr.owner.quota.release(int64(len(key)))
	}
}

func (mr *mapRep) freeValue(value *Object) {
	if mr.owner.flags.Has(OwnValues) {
		value.release()
	}
}

func (mr *mapRep) kind() Kind { return KindMap }
func (mr *mapRep) size() int  { return mr.tree.Len() }

func (mr *mapRep) render(r *renderer) {
	r.buf = append(r.buf, '{')
	mr.tree.ForEach(func(idx int, key string, value *Object) bool {
		if idx > 0 {
			r.buf = append(r.buf, ", "...)
		}
		r.buf = append(r.buf, key...)
		r.buf = append(r.buf, ':')
		value.rep.render(r)
		return true
	})
	r.buf = append(r.buf, '}')
}

func (mr *mapRep) destroy(o *Object) {
	mr.tree.Clear()
}

func (mr *mapRep) clone(o *Object, q *Quota) (*Object, error) {
	res, err := q.NewMap(Owning)
	if err != nil {
		return nil, err
	}
	m := res.Map()
	mr.tree.ForEach(func(_ int, key string, value *Object) bool {
		var c *Object
		c, err = value.CloneInto(q)
		if err != nil {
			return false
		}
		if err = m.Add(key, c); err != nil {
			Destroy(c)
			return false
		}
		return true
	})
	if err != nil {
		Destroy(res)
		return nil, err
	}
	return res, nil
}

// Map is a view of a map object: an ordered string-keyed dictionary.
type Map struct {
	o  *Object
	mr *mapRep
}

// Map returns a map view of o. Panics if o is not a map.
func (o *Object) Map() Map {
	o.alive("Map")
	mr, ok := o.rep.(*mapRep)
	if !ok {
		reportKindMismatch("Map", o, KindMap)
	}
	return Map{o, mr}
}

func (m Map) Object() *Object {
	return m.o
}

// Add stores value under key, replacing (and, if the map owns its values,
// destroying) any previous value. With CopyStrings the key is copied. An
// owning map takes ownership of value; on error the caller keeps it.
func (m Map) Add(key string, value *Object) error {
	o := m.o
	o.alive("Map.Add")
	if value == nil {
		panic("cobj: Map.Add: nil value")
	}
	owning := o.flags.Has(OwnValues)
	if owning {
		value.checkMove("Map.Add", o)
	} else {
		value.alive("Map.Add")
	}
	if o.flags.Has(OwnStrings) {
		if err := o.quota.charge("map key", int64(len(key))); err != nil {
			return err
		}
		if o.flags.Has(CopyStrings) {
			key = strings.Clone(key)
		}
	}
	if err := m.mr.tree.Insert(key, value); err != nil {
		if o.flags.Has(OwnStrings) {
			o.quota.release(int64(len(key)))
		}
		return err
	}
	if owning {
		value.state = stateAttached
	}
	return nil
}

// Get returns the value stored under key, or nil. The result is borrowed
// from the map.
func (m Map) Get(key string) *Object {
	v, _ := m.mr.tree.Get(key)
	return v
}

func (m Map) Has(key string) bool {
	return m.mr.tree.Has(key)
}

// Floor returns the greatest key less than or equal to key, with its value.
func (m Map) Floor(key string) (string, *Object, bool) {
	return m.mr.tree.Floor(key)
}

// Erase removes key, destroying the value if the map owns it. Returns false
// if the key was not present.
func (m Map) Erase(key string) bool {
	return m.mr.tree.Delete(key)
}

func (m Map) Clear() {
	m.mr.tree.Clear()
}

func (m Map) IsEmpty() bool {
	return m.mr.tree.IsEmpty()
}

// Len counts the entries. It is a full traversal.
func (m Map) Len() int {
	return m.mr.tree.Len()
}

// ForEach visits entries in ascending key order and stops as soon as f
// returns false, in which case ForEach returns false too.
func (m Map) ForEach(f func(idx int, key string, value *Object) bool) bool {
	return m.mr.tree.ForEach(f)
}

func (m Map) All() iter.Seq2[string, *Object] {
	return m.mr.tree.All()
}

func (m Map) Keys() []string {
	var keys []string
	for k := range m.mr.tree.All() {
		keys = append(keys, k)
	}
	return keys
}

// MapIter is a cursor over a map in ascending key order. Modifying the map
// invalidates it.
type MapIter struct {
	it *avl.Iter[*Object]
}

// Iter returns a cursor; call First to position it.
func (m Map) Iter() MapIter {
	return MapIter{m.mr.tree.Iter()}
}

func (it MapIter) First() bool          { return it.it.First() }
func (it MapIter) Next() bool           { return it.it.Next() }
func (it MapIter) Seek(key string) bool { return it.it.Seek(key) }
func (it MapIter) Valid() bool          { return it.it.Valid() }
func (it MapIter) Key() string          { return it.it.Key() }
func (it MapIter) Value() *Object       { return it.it.Value() }
