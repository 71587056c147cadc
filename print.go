package cobj

import (
	"io"
)

// Print writes the human-readable rendering of o to w: vectors as
// "[a, b]", maps as "{k:v, k2:v2}", strings as their raw bytes, doubles in
// the shortest exact decimal form, memory blocks as "<hex>" and blanks as
// nothing.
func (o *Object) Print(w io.Writer) error {
	o.alive("Print")
	r := getRenderer()
	defer releaseRenderer(r)
	o.rep.render(r)
	_, err := w.Write(r.buf)
	return err
}

func (o *Object) String() string {
	if o == nil {
		return "<nil>"
	}
	if o.state == stateDestroyed {
		return "<destroyed>"
	}
	r := getRenderer()
	defer releaseRenderer(r)
	o.rep.render(r)
	return string(r.buf)
}
