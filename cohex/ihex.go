package cohex

import (
	"bytes"
	"io"

	"github.com/andreyvit/cobj"
)

const (
	ihexData = iota
	ihexEOF
	ihexExtSegment
	ihexStartSegment
	ihexExtLinear
	ihexStartLinear
)

func ReadHex(r io.Reader, opt Options) (*cobj.Object, error) {
	return readAll(r, ParseHex, opt)
}

// ParseHex reads Intel HEX records. Data records are placed at the current
// base address, which extended segment (02) and extended linear (04)
// records change. Reading stops at the end-of-file record (01) or at the end
// of input. Start address records are ignored.
func ParseHex(data []byte, opt Options) (*cobj.Object, error) {
	b, err := newBuilder("hex", data, opt)
	if err != nil {
		return nil, err
	}
	var base uint64
	err = b.lines(func(line []byte) (bool, error) {
		i := bytes.IndexByte(line, ':')
		if i < 0 {
			return true, nil
		}
		rec, ok := decodeRecord(line[i+1:])
		if !ok {
			return true, b.errf(nil, "invalid hex digits")
		}
		if len(rec) < 5 || len(rec) != int(rec[0])+5 {
			return true, b.errf(nil, "count mismatch")
		}
		if !opt.IgnoreChecksums && byteSum(rec) != 0 {
			return true, b.errf(nil, "checksum mismatch")
		}
		addr := uint64(rec[1])<<8 | uint64(rec[2])
		payload := rec[4 : len(rec)-1]

		switch rec[3] {
		case ihexData:
			return true, b.addData(base+addr, payload)
		case ihexEOF:
			return false, nil
		case ihexExtSegment, ihexExtLinear:
			if len(payload) != 2 {
				return true, b.errf(nil, "record type %02X needs 2 data bytes, got %d", rec[3], len(payload))
			}
			v := uint64(payload[0])<<8 | uint64(payload[1])
			if rec[3] == ihexExtSegment {
				base = v << 4
			} else {
				base = v << 16
			}
		case ihexStartSegment, ihexStartLinear:
		default:
			return true, b.errf(nil, "unknown record type %02X", rec[3])
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return b.res, nil
}
