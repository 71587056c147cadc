package cobj

import (
	"bytes"
	"fmt"
	"unsafe"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

var (
	_ msgpack.CustomEncoder = (*Object)(nil)
	_ msgpack.CustomDecoder = (*Object)(nil)
)

// EncodeMsgpack writes blanks as nil, doubles as float64, strings as str,
// memory blocks as bin, vectors as arrays and maps as maps in key order.
func (o *Object) EncodeMsgpack(enc *msgpack.Encoder) error {
	o.alive("EncodeMsgpack")
	switch r := o.rep.(type) {
	case blankRep:
		return enc.EncodeNil()
	case *doubleRep:
		return enc.EncodeFloat64(r.v)
	case *stringRep:
		return enc.EncodeString(unsafeString(r.buf))
	case *memRep:
		return enc.EncodeBytes(r.buf)
	case *vectorRep:
		if err := enc.EncodeArrayLen(len(r.elems)); err != nil {
			return err
		}
		for _, el := range r.elems {
			if err := el.EncodeMsgpack(enc); err != nil {
				return err
			}
		}
		return nil
	case *mapRep:
		if err := enc.EncodeMapLen(r.tree.Len()); err != nil {
			return err
		}
		var err error
		r.tree.ForEach(func(_ int, key string, value *Object) bool {
			if err = enc.EncodeString(key); err != nil {
				return false
			}
			err = value.EncodeMsgpack(enc)
			return err == nil
		})
		return err
	default:
		panic("unreachable")
	}
}

// DecodeMsgpack fills a zero Object with an owning graph. Booleans become
// doubles 1 and 0; every integer and float becomes a double.
func (o *Object) DecodeMsgpack(dec *msgpack.Decoder) error {
	if o.rep != nil || o.state != stateFree {
		panic("cobj: DecodeMsgpack into an object that is already set up")
	}
	o.flags = Owning
	return o.decode(dec)
}

func (q *Quota) decodeChild(dec *msgpack.Decoder) (*Object, error) {
	o, err := q.alloc(Owning)
	if err != nil {
		return nil, err
	}
	if err := o.decode(dec); err != nil {
		q.release(handleSize)
		return nil, err
	}
	return o, nil
}

func (o *Object) decode(dec *msgpack.Decoder) error {
	c, err := dec.PeekCode()
	if err != nil {
		return err
	}
	switch {
	case c == msgpcode.Nil:
		if err := dec.DecodeNil(); err != nil {
			return err
		}
		return o.setup(KindBlank, nil)
	case c == msgpcode.True || c == msgpcode.False:
		b, err := dec.DecodeBool()
		if err != nil {
			return err
		}
		if b {
			return o.setup(KindDouble, 1.0)
		}
		return o.setup(KindDouble, 0.0)
	case msgpcode.IsString(c):
		s, err := dec.DecodeString()
		if err != nil {
			return err
		}
		return o.setup(KindString, s)
	case msgpcode.IsBin(c):
		b, err := dec.DecodeBytes()
		if err != nil {
			return err
		}
		return o.setup(KindMemBlock, b)
	case msgpcode.IsFixedArray(c) || c == msgpcode.Array16 || c == msgpcode.Array32:
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return err
		}
		if n < 0 {
			return o.setup(KindBlank, nil)
		}
		if err := o.setupVector(); err != nil {
			return err
		}
		v := o.Vector()
		for range n {
			el, err := o.quota.decodeChild(dec)
			if err == nil {
				if _, err = v.Add(el); err != nil {
					Destroy(el)
				}
			}
			if err != nil {
				o.rep.destroy(o)
				o.rep = nil
				return err
			}
		}
		return nil
	case msgpcode.IsFixedMap(c) || c == msgpcode.Map16 || c == msgpcode.Map32:
		n, err := dec.DecodeMapLen()
		if err != nil {
			return err
		}
		if n < 0 {
			return o.setup(KindBlank, nil)
		}
		o.setupMap()
		m := o.Map()
		for range n {
			var key string
			var el *Object
			key, err = dec.DecodeString()
			if err == nil {
				el, err = o.quota.decodeChild(dec)
			}
			if err == nil {
				if err = m.Add(key, el); err != nil {
					Destroy(el)
				}
			}
			if err != nil {
				o.rep.destroy(o)
				o.rep = nil
				return err
			}
		}
		return nil
	case msgpcode.IsFixedNum(c) || (c >= msgpcode.Float && c <= msgpcode.Int64):
		f, err := dec.DecodeFloat64()
		if err != nil {
			return err
		}
		return o.setup(KindDouble, f)
	default:
		return fmt.Errorf("cobj: unsupported msgpack code 0x%02x", c)
	}
}

// AppendMsgpack appends the msgpack encoding of o to buf.
func AppendMsgpack(buf []byte, o *Object) ([]byte, error) {
	bb := bytesBuilder{buf}
	enc := msgpack.GetEncoder()
	enc.ResetDict(&bb, nil)
	err := o.EncodeMsgpack(enc)
	msgpack.PutEncoder(enc)
	return bb.Buf, err
}

// UnmarshalMsgpack decodes an owning graph charged to q.
func (q *Quota) UnmarshalMsgpack(data []byte) (*Object, error) {
	var r bytes.Reader
	r.Reset(data)
	dec := msgpack.GetDecoder()
	dec.ResetDict(&r, nil)
	o, err := q.decodeChild(dec)
	msgpack.PutDecoder(dec)
	if err != nil {
		return nil, fmt.Errorf("cobj: failed to decode msgpack: %w", err)
	}
	return o, nil
}

func UnmarshalMsgpack(data []byte) (*Object, error) {
	return (*Quota)(nil).UnmarshalMsgpack(data)
}

type bytesBuilder struct {
	Buf []byte
}

func (bb *bytesBuilder) Write(b []byte) (int, error) {
	bb.Buf = append(bb.Buf, b...)
	return len(b), nil
}

func (bb *bytesBuilder) WriteByte(c byte) error {
	bb.Buf = append(bb.Buf, c)
	return nil
}

func (bb *bytesBuilder) WriteString(s string) (int, error) {
	bb.Buf = append(bb.Buf, s...)
	return len(s), nil
}

func unsafeString(b []byte) string {
	return unsafe.String(unsafe.SliceData(b), len(b))
}
