package cohex

import (
	"bytes"
	"io"

	"github.com/andreyvit/cobj"
)

func ReadS19(r io.Reader, opt Options) (*cobj.Object, error) {
	return readAll(r, ParseS19, opt)
}

// ParseS19 reads Motorola S-records. S1, S2 and S3 data records (16, 24 and
// 32-bit addresses) contribute data; header, count and termination records
// are skipped, as is anything before the 'S' of each line.
func ParseS19(data []byte, opt Options) (*cobj.Object, error) {
	b, err := newBuilder("s19", data, opt)
	if err != nil {
		return nil, err
	}
	err = b.lines(func(line []byte) (bool, error) {
		i := bytes.IndexByte(line, 'S')
		if i < 0 || i+1 >= len(line) {
			return true, nil
		}
		typ := line[i+1]
		if typ < '0' || typ > '9' {
			return true, b.errf(nil, "invalid record type S%c", typ)
		}
		rec, ok := decodeRecord(line[i+2:])
		if !ok || len(rec) < 1 {
			return true, b.errf(nil, "invalid hex digits in S%c record", typ)
		}
		count := int(rec[0])
		if count != len(rec)-1 {
			return true, b.errf(nil, "byte count %d does not match record length %d", count, len(rec)-1)
		}
		if !opt.IgnoreChecksums && byteSum(rec) != 0xFF {
			return true, b.errf(nil, "checksum mismatch in S%c record", typ)
		}

		var addrLen int
		switch typ {
		case '1':
			addrLen = 2
		case '2':
			addrLen = 3
		case '3':
			addrLen = 4
		default:
			return true, nil
		}
		// count covers the address, the data and the checksum
		if count < addrLen+1 {
			return true, b.errf(nil, "S%c record too short", typ)
		}
		var addr uint64
		for _, c := range rec[1 : 1+addrLen] {
			addr = addr<<8 | uint64(c)
		}
		return true, b.addData(addr, rec[1+addrLen:len(rec)-1])
	})
	if err != nil {
		return nil, err
	}
	return b.res, nil
}
