// Package coxml reads XML documents into cobj object graphs.
//
// Every element becomes an owning vector [name, attrs, children...] where
// attrs is a map from attribute name to string value and the children are
// element vectors or text strings in document order. Names keep their
// namespace prefixes as written.
package coxml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"

	"github.com/andreyvit/cobj"
)

type Options struct {
	// Quota is charged for the graph being built. Nil means unlimited.
	Quota *cobj.Quota

	// SkipWhitespace drops text runs that consist of whitespace only.
	SkipWhitespace bool

	// MaxDepth limits element nesting. Zero means 10000.
	MaxDepth int
}

var errNoRoot = errors.New("document has no root element")

// reader holds the elements that are open. The stack borrows them; an
// element is moved into its parent when it is closed.
type reader struct {
	dec   *xml.Decoder
	opt   Options
	stack *cobj.Object
	root  *cobj.Object
}

func Read(r io.Reader, opt Options) (*cobj.Object, error) {
	if opt.MaxDepth == 0 {
		opt.MaxDepth = 10000
	}
	dec := xml.NewDecoder(r)
	stack, err := opt.Quota.NewVector(cobj.None)
	if err != nil {
		return nil, &cobj.SyntaxError{Format: "xml", Line: 1, Col: 1, Err: err}
	}
	rd := &reader{dec: dec, opt: opt, stack: stack}
	defer rd.close()

	if err := rd.run(); err != nil {
		cobj.Destroy(rd.root)
		return nil, err
	}
	root := rd.root
	rd.root = nil
	return root, nil
}

func Parse(data []byte, opt Options) (*cobj.Object, error) {
	return Read(bytes.NewReader(data), opt)
}

// close destroys elements that were never moved into a parent.
func (rd *reader) close() {
	st := rd.stack.Vector()
	for i := st.Len() - 1; i >= 0; i-- {
		cobj.Destroy(st.Get(i))
	}
	cobj.Destroy(rd.stack)
}

func (rd *reader) fail(err error, msg string) error {
	line, col := rd.dec.InputPos()
	return &cobj.SyntaxError{Format: "xml", Line: line, Col: col, Msg: msg, Err: err}
}

func (rd *reader) run() error {
	for {
		tok, err := rd.dec.RawToken()
		if err == io.EOF {
			if n := rd.stack.Vector().Len(); n > 0 {
				return rd.fail(nil, "unclosed element <"+elementName(rd.top())+">")
			}
			if rd.root == nil {
				return rd.fail(errNoRoot, "")
			}
			return nil
		}
		if err != nil {
			var se *xml.SyntaxError
			if errors.As(err, &se) {
				return &cobj.SyntaxError{Format: "xml", Line: se.Line, Col: 1, Msg: se.Msg}
			}
			return rd.fail(err, "")
		}

		switch tok := tok.(type) {
		case xml.StartElement:
			if err := rd.start(tok); err != nil {
				return err
			}
		case xml.EndElement:
			if err := rd.end(tok); err != nil {
				return err
			}
		case xml.CharData:
			if err := rd.text(tok); err != nil {
				return err
			}
		}
	}
}

func (rd *reader) top() *cobj.Object {
	st := rd.stack.Vector()
	return st.Get(st.Len() - 1)
}

func (rd *reader) start(se xml.StartElement) error {
	st := rd.stack.Vector()
	if st.Len() == 0 && rd.root != nil {
		return rd.fail(nil, "second root element <"+qname(se.Name)+">")
	}
	if st.Len() >= rd.opt.MaxDepth {
		return rd.fail(nil, "elements nested too deeply")
	}

	q := rd.opt.Quota
	el, err := q.NewVector(cobj.Owning)
	if err != nil {
		return rd.fail(err, "")
	}
	if _, err := st.Add(el); err != nil {
		cobj.Destroy(el)
		return rd.fail(err, "")
	}
	if err := addString(q, el.Vector(), qname(se.Name)); err != nil {
		return rd.fail(err, "")
	}
	attrs, err := q.NewMap(cobj.Owning)
	if err != nil {
		return rd.fail(err, "")
	}
	if _, err := el.Vector().Add(attrs); err != nil {
		cobj.Destroy(attrs)
		return rd.fail(err, "")
	}
	for _, a := range se.Attr {
		s, err := q.NewString(cobj.CopyStrings, a.Value)
		if err == nil {
			if err = attrs.Map().Add(qname(a.Name), s); err != nil {
				cobj.Destroy(s)
			}
		}
		if err != nil {
			return rd.fail(err, "")
		}
	}
	return nil
}

func (rd *reader) end(ee xml.EndElement) error {
	st := rd.stack.Vector()
	if st.Len() == 0 {
		return rd.fail(nil, "unexpected </"+qname(ee.Name)+">")
	}
	el := rd.top()
	if name := elementName(el); name != qname(ee.Name) {
		return rd.fail(nil, "element <"+name+"> closed by </"+qname(ee.Name)+">")
	}
	st.EraseLast()
	if st.Len() == 0 {
		rd.root = el
		return nil
	}
	if _, err := rd.top().Vector().Add(el); err != nil {
		cobj.Destroy(el)
		return rd.fail(err, "")
	}
	return nil
}

func (rd *reader) text(data xml.CharData) error {
	st := rd.stack.Vector()
	if st.Len() == 0 {
		return nil
	}
	el := rd.top().Vector()
	if last := el.Get(el.Len() - 1); last.Is(cobj.KindString) {
		if !last.Str().AppendBytes(data) {
			return rd.fail(cobj.ErrAllocation, "")
		}
		return nil
	}
	if rd.opt.SkipWhitespace && len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	s, err := rd.opt.Quota.NewStringBytes(cobj.CopyStrings, data)
	if err == nil {
		if _, err = el.Add(s); err != nil {
			cobj.Destroy(s)
		}
	}
	if err != nil {
		return rd.fail(err, "")
	}
	return nil
}

func addString(q *cobj.Quota, v cobj.Vector, s string) error {
	o, err := q.NewString(cobj.CopyStrings, s)
	if err != nil {
		return err
	}
	if _, err := v.Add(o); err != nil {
		cobj.Destroy(o)
		return err
	}
	return nil
}

func qname(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// elementName returns the name of an element vector.
func elementName(el *cobj.Object) string {
	return el.Vector().Get(0).Str().Value()
}
