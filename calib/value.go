package calib

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/andreyvit/cobj/cohex"
)

var (
	ErrUnknownObject = errors.New("no CHARACTERISTIC or AXIS_PTS with this name")
	ErrUnsupported   = errors.New("record layout not supported")
)

// Raw returns the bytes a CHARACTERISTIC or AXIS_PTS occupies in the image.
func (ix *Index) Raw(name string, image cohex.Blocks) ([]byte, error) {
	rec, ok := ix.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrUnknownObject)
	}
	e := ix.Entry(rec)
	if !e.Supported {
		return nil, fmt.Errorf("%s: %s: %w", name, e.Layout, ErrUnsupported)
	}
	data, err := image.ReadAt(e.Addr, e.Size())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return data, nil
}

// Scalar reads a single-valued CHARACTERISTIC, i.e. one whose record
// layout consists of one FNC_VALUES item and nothing stored per axis.
func (ix *Index) Scalar(name string, image cohex.Blocks, order binary.ByteOrder) (float64, error) {
	rec, ok := ix.Lookup(name)
	if !ok {
		return 0, fmt.Errorf("%s: %w", name, ErrUnknownObject)
	}
	e := ix.Entry(rec)
	dataType := ix.valueType(e.Layout)
	if !e.Supported || e.Size() != DataTypeSize(dataType) {
		return 0, fmt.Errorf("%s: not a scalar: %w", name, ErrUnsupported)
	}
	data, err := image.ReadAt(e.Addr, e.Size())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return DecodeScalar(data, dataType, order)
}

// valueType returns the data type of the FNC_VALUES item of a layout.
func (ix *Index) valueType(layout string) string {
	o := ix.RecordLayouts.Map().Get(layout)
	if o == nil {
		return ""
	}
	v := o.Vector()
	for i := 2; i < v.Len(); i++ {
		if str(v, i) == "FNC_VALUES" {
			return str(v, i+2)
		}
	}
	return ""
}

// DecodeScalar converts the leading bytes of data holding an A2L atomic
// data type.
func DecodeScalar(data []byte, dataType string, order binary.ByteOrder) (float64, error) {
	n := DataTypeSize(dataType)
	if n == 0 {
		return 0, fmt.Errorf("unknown data type %q", dataType)
	}
	if len(data) < n {
		return 0, fmt.Errorf("%s needs %d bytes, got %d", dataType, n, len(data))
	}
	switch dataType {
	case "UBYTE":
		return float64(data[0]), nil
	case "SBYTE":
		return float64(int8(data[0])), nil
	case "UWORD":
		return float64(order.Uint16(data)), nil
	case "SWORD":
		return float64(int16(order.Uint16(data))), nil
	case "ULONG":
		return float64(order.Uint32(data)), nil
	case "SLONG":
		return float64(int32(order.Uint32(data))), nil
	case "A_UINT64":
		return float64(order.Uint64(data)), nil
	case "A_INT64":
		return float64(int64(order.Uint64(data))), nil
	case "FLOAT16_IEEE":
		return float16(order.Uint16(data)), nil
	case "FLOAT32_IEEE":
		return float64(math.Float32frombits(order.Uint32(data))), nil
	default:
		return math.Float64frombits(order.Uint64(data)), nil
	}
}

func float16(h uint16) float64 {
	sign := 1.0
	if h&0x8000 != 0 {
		sign = -1
	}
	exp := int(h>>10) & 0x1F
	frac := float64(h & 0x3FF)
	switch exp {
	case 0:
		return sign * math.Ldexp(frac, -24)
	case 0x1F:
		if frac != 0 {
			return math.NaN()
		}
		return math.Inf(int(sign))
	}
	return sign * math.Ldexp(1024+frac, exp-25)
}
