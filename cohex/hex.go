// Package cohex reads firmware images in Motorola S-record and Intel HEX
// formats.
//
// Both readers return an owning map from the start address of each
// contiguous memory region, formatted as 8 uppercase hex digits, to a
// memory block with the region's bytes. Data records that continue exactly
// where the previous one ended are merged into the same block.
package cohex

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/andreyvit/cobj"
)

type Options struct {
	// Quota is charged for the graph being built. Nil means unlimited.
	Quota *cobj.Quota

	// IgnoreChecksums accepts records whose checksum does not match.
	IgnoreChecksums bool
}

// AddrKey formats an address the way the readers key their maps.
func AddrKey(addr uint64) string {
	return fmt.Sprintf("%08X", addr)
}

type builder struct {
	data    []byte
	format  string
	opt     Options
	res     *cobj.Object
	cur     *cobj.Object
	nextAdr uint64
	off     int
}

func newBuilder(format string, data []byte, opt Options) (*builder, error) {
	res, err := opt.Quota.NewMap(cobj.Owning)
	if err != nil {
		return nil, cobj.SyntaxErrf(format, data, 0, err, "")
	}
	return &builder{data: data, format: format, opt: opt, res: res}, nil
}

func (b *builder) errf(err error, msgFormat string, args ...any) error {
	cobj.Destroy(b.res)
	return cobj.SyntaxErrf(b.format, b.data, b.off, err, msgFormat, args...)
}

func (b *builder) addData(addr uint64, payload []byte) error {
	if b.cur != nil && addr == b.nextAdr {
		if !b.cur.MemBlock().Append(payload) {
			return b.errf(cobj.ErrAllocation, "cannot extend block at %08X", addr)
		}
		b.nextAdr += uint64(len(payload))
		return nil
	}
	mb, err := b.opt.Quota.New(cobj.KindMemBlock, cobj.Owning, payload)
	if err != nil {
		return b.errf(err, "")
	}
	if err := b.res.Map().Add(AddrKey(addr), mb); err != nil {
		cobj.Destroy(mb)
		return b.errf(err, "")
	}
	b.cur = mb
	b.nextAdr = addr + uint64(len(payload))
	return nil
}

// lines calls f for every non-blank line with surrounding whitespace
// removed, keeping b.off at the start of the line.
func (b *builder) lines(f func(line []byte) (bool, error)) error {
	rest := b.data
	for len(rest) > 0 {
		b.off = len(b.data) - len(rest)
		var line []byte
		line, rest, _ = bytes.Cut(rest, []byte{'\n'})
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		more, err := f(line)
		if err != nil || !more {
			return err
		}
	}
	return nil
}

func decodeRecord(hexdigits []byte) ([]byte, bool) {
	if len(hexdigits)%2 != 0 {
		return nil, false
	}
	rec := make([]byte, len(hexdigits)/2)
	if _, err := hex.Decode(rec, hexdigits); err != nil {
		return nil, false
	}
	return rec, true
}

func readAll(r io.Reader, parse func([]byte, Options) (*cobj.Object, error), opt Options) (*cobj.Object, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return parse(data, opt)
}

// byteSum is the modulo-256 sum of a record. Including the checksum byte, it
// is 0xFF for a valid S-record and 0 for a valid Intel HEX record.
func byteSum(rec []byte) byte {
	var sum byte
	for _, c := range rec {
		sum += c
	}
	return sum
}
