package cobj

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// FromValue builds an owning object graph from a plain Go value: nil, bool
// (as a Double 1 or 0), any integer or float type, json.Number, string,
// []byte (as a MemBlock), []any, []string, map[string]any and *Object (which
// is cloned).
func FromValue(v any) (*Object, error) {
	return (*Quota)(nil).FromValue(v)
}

func (q *Quota) FromValue(v any) (*Object, error) {
	o, err := q.alloc(Owning)
	if err != nil {
		return nil, err
	}
	if err := o.assign(v); err != nil {
		q.release(handleSize)
		return nil, err
	}
	return o, nil
}

// assign sets up a freshly allocated owning object o from v. On failure o
// has no payload and nothing beyond the handle stays charged.
func (o *Object) assign(v any) error {
	switch v := v.(type) {
	case nil:
		return o.setup(KindBlank, nil)
	case *Object:
		c, err := v.CloneInto(o.quota)
		if err != nil {
			return err
		}
		// adopt the payload of the clone; map hooks refer to their owner
		o.rep = c.rep
		if mr, ok := c.rep.(*mapRep); ok {
			mr.owner = o
		}
		c.rep = blankRep{}
		c.free()
		return nil
	case bool:
		if v {
			return o.setup(KindDouble, 1.0)
		}
		return o.setup(KindDouble, 0.0)
	case float64:
		return o.setup(KindDouble, v)
	case float32:
		return o.setup(KindDouble, float64(v))
	case int:
		return o.setup(KindDouble, float64(v))
	case int8:
		return o.setup(KindDouble, float64(v))
	case int16:
		return o.setup(KindDouble, float64(v))
	case int32:
		return o.setup(KindDouble, float64(v))
	case int64:
		return o.setup(KindDouble, float64(v))
	case uint:
		return o.setup(KindDouble, float64(v))
	case uint8:
		return o.setup(KindDouble, float64(v))
	case uint16:
		return o.setup(KindDouble, float64(v))
	case uint32:
		return o.setup(KindDouble, float64(v))
	case uint64:
		return o.setup(KindDouble, float64(v))
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return fmt.Errorf("cobj: invalid number %q: %w", v, err)
		}
		return o.setup(KindDouble, f)
	case string:
		return o.setup(KindString, v)
	case []byte:
		return o.setup(KindMemBlock, v)
	case []string:
		if err := o.setup(KindVector, nil); err != nil {
			return err
		}
		for _, s := range v {
			if err := o.addValue(s); err != nil {
				o.rep.destroy(o)
				return err
			}
		}
		return nil
	case []any:
		if err := o.setup(KindVector, nil); err != nil {
			return err
		}
		for _, el := range v {
			if err := o.addValue(el); err != nil {
				o.rep.destroy(o)
				return err
			}
		}
		return nil
	case map[string]any:
		o.setupMap()
		m := o.Map()
		for k, el := range v {
			c, err := o.quota.FromValue(el)
			if err == nil {
				err = m.Add(k, c)
				if err != nil {
					Destroy(c)
				}
			}
			if err != nil {
				o.rep.destroy(o)
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("cobj: cannot convert %T to an object", v)
	}
}

func (o *Object) addValue(v any) error {
	c, err := o.quota.FromValue(v)
	if err != nil {
		return err
	}
	if _, err := o.Vector().Add(c); err != nil {
		Destroy(c)
		return err
	}
	return nil
}

// Value converts o into plain Go values: nil, float64, string, []byte,
// []any and map[string]any. The result shares nothing with o.
func (o *Object) Value() any {
	o.alive("Value")
	switch r := o.rep.(type) {
	case blankRep:
		return nil
	case *doubleRep:
		return r.v
	case *stringRep:
		return string(r.buf)
	case *memRep:
		return slices.Clone(r.buf)
	case *vectorRep:
		res := make([]any, len(r.elems))
		for i, el := range r.elems {
			res[i] = el.Value()
		}
		return res
	case *mapRep:
		res := make(map[string]any)
		r.tree.ForEach(func(_ int, key string, value *Object) bool {
			res[strings.Clone(key)] = value.Value()
			return true
		})
		return res
	default:
		panic("unreachable")
	}
}
