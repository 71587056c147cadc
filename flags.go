package cobj

import "strings"

// Flags decide, per object, what the object owns.
type Flags uint32

const (
	// OwnValues makes a Vector or a Map own its elements: adding an element
	// moves it into the container, and the container destroys and deep-clones
	// its elements. Without this flag the container only references them.
	OwnValues = Flags(1 << iota)

	// CopyStrings makes a Map copy the key passed to Add, and a String copy
	// its initial content. Implies OwnStrings.
	CopyStrings

	// OwnStrings makes a Map account for and release the key buffers it holds,
	// and a String own its buffer (only owned strings can grow).
	OwnStrings

	None   Flags = 0
	Owning       = OwnValues | CopyStrings | OwnStrings
)

func (f Flags) Has(v Flags) bool {
	return f&v == v
}

func (f Flags) normalize() Flags {
	if f.Has(CopyStrings) {
		f |= OwnStrings
	}
	return f
}

func (f Flags) String() string {
	if f == None {
		return "none"
	}
	var parts []string
	if f.Has(OwnValues) {
		parts = append(parts, "own-values")
	}
	if f.Has(CopyStrings) {
		parts = append(parts, "copy-strings")
	}
	if f.Has(OwnStrings) {
		parts = append(parts, "own-strings")
	}
	return strings.Join(parts, "|")
}
