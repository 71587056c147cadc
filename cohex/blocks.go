package cohex

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/andreyvit/cobj"
)

var ErrUnmapped = errors.New("address not covered by the image")

// Block is one contiguous memory region. Data borrows the memory block's
// buffer and stays valid while the image graph is alive and unmodified.
type Block struct {
	Addr uint64
	Data []byte
}

func (b Block) End() uint64 {
	return b.Addr + uint64(len(b.Data))
}

// Blocks is an address-ordered view of an image map.
type Blocks []Block

// NewBlocks indexes a map produced by ParseS19 or ParseHex.
func NewBlocks(image cobj.Map) (Blocks, error) {
	bs := make(Blocks, 0, image.Len())
	for key, value := range image.All() {
		addr, err := strconv.ParseUint(key, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("image key %q is not a hex address", key)
		}
		if !value.Is(cobj.KindMemBlock) {
			return nil, fmt.Errorf("image entry %s is a %v, wanted memblock", key, value.Kind())
		}
		bs = append(bs, Block{addr, value.MemBlock().Raw()})
	}
	// keys longer than 8 digits break lexicographic order
	slices.SortFunc(bs, func(a, b Block) int { return cmp.Compare(a.Addr, b.Addr) })
	return bs, nil
}

// Find returns the block containing addr.
func (bs Blocks) Find(addr uint64) (Block, bool) {
	i := bs.search(addr)
	if i < 0 {
		return Block{}, false
	}
	return bs[i], true
}

// search returns the index of the block containing addr, or -1.
func (bs Blocks) search(addr uint64) int {
	i, found := slices.BinarySearchFunc(bs, addr, func(b Block, addr uint64) int {
		return cmp.Compare(b.Addr, addr)
	})
	if !found {
		i--
	}
	if i < 0 || addr >= bs[i].End() {
		return -1
	}
	return i
}

// ReadAt returns n bytes starting at addr. The range may span adjacent
// blocks; the result is a fresh slice then, otherwise it aliases the block.
func (bs Blocks) ReadAt(addr uint64, n int) ([]byte, error) {
	i := bs.search(addr)
	if i < 0 {
		return nil, fmt.Errorf("%08X: %w", addr, ErrUnmapped)
	}
	off := addr - bs[i].Addr
	if off+uint64(n) <= uint64(len(bs[i].Data)) {
		return bs[i].Data[off : off+uint64(n)], nil
	}

	buf := make([]byte, 0, n)
	buf = append(buf, bs[i].Data[off:]...)
	for i++; len(buf) < n; i++ {
		next := addr + uint64(len(buf))
		if i >= len(bs) || bs[i].Addr != next {
			return nil, fmt.Errorf("%08X: %w", next, ErrUnmapped)
		}
		buf = append(buf, bs[i].Data[:min(n-len(buf), len(bs[i].Data))]...)
	}
	return buf, nil
}

// Size is the total number of bytes in the image.
func (bs Blocks) Size() int {
	var n int
	for _, b := range bs {
		n += len(b.Data)
	}
	return n
}
