// Package calib analyses parsed A2L calibration descriptions: it indexes the
// records of interest, computes how many bytes each calibration object
// occupies in ECU memory, checks the memory layout for gaps and overlaps
// and extracts values from firmware images.
package calib

import (
	"strconv"

	"github.com/andreyvit/cobj"
	"github.com/andreyvit/cobj/cohex"
)

const (
	Characteristic = "CHARACTERISTIC"
	AxisPts        = "AXIS_PTS"
	CompuMethod    = "COMPU_METHOD"
	CompuVTab      = "COMPU_VTAB"
	RecordLayout   = "RECORD_LAYOUT"
)

// Index holds lookup tables over an A2L graph. The tables borrow both keys
// and records from the graph, which must outlive the index.
type Index struct {
	CompuMethods        *cobj.Object // name -> COMPU_METHOD record
	CompuVTabs          *cobj.Object // name -> COMPU_VTAB record
	RecordLayouts       *cobj.Object // name -> RECORD_LAYOUT record
	Characteristics     *cobj.Object // name -> CHARACTERISTIC record
	AxisPts             *cobj.Object // name -> AXIS_PTS record
	ByAddress           *cobj.Object // cohex.AddrKey(address) -> CHARACTERISTIC or AXIS_PTS record
	CharacteristicsList *cobj.Object // CHARACTERISTIC records in file order
	AxisPtsList         *cobj.Object // AXIS_PTS records in file order
}

// NewIndex walks the A2L graph produced by coa2l.Parse and fills the
// tables. The tables are charged to q.
func NewIndex(a2l *cobj.Object, q *cobj.Quota) (*Index, error) {
	ix := &Index{}
	tables := []**cobj.Object{
		&ix.CompuMethods, &ix.CompuVTabs, &ix.RecordLayouts,
		&ix.Characteristics, &ix.AxisPts, &ix.ByAddress,
	}
	for _, t := range tables {
		m, err := q.NewMap(cobj.None)
		if err != nil {
			ix.Close()
			return nil, err
		}
		*t = m
	}
	for _, t := range []**cobj.Object{&ix.CharacteristicsList, &ix.AxisPtsList} {
		v, err := q.NewVector(cobj.None)
		if err != nil {
			ix.Close()
			return nil, err
		}
		*t = v
	}
	// The root holds top-level tokens and blocks, with no block name at 0.
	for _, child := range a2l.Vector().All() {
		if !child.Is(cobj.KindVector) {
			continue
		}
		if err := ix.add(child.Vector()); err != nil {
			ix.Close()
			return nil, err
		}
	}
	return ix, nil
}

// Close destroys the tables. The A2L graph is not affected. Close may be
// called more than once.
func (ix *Index) Close() {
	for _, t := range []**cobj.Object{
		&ix.CompuMethods, &ix.CompuVTabs, &ix.RecordLayouts,
		&ix.Characteristics, &ix.AxisPts, &ix.ByAddress,
		&ix.CharacteristicsList, &ix.AxisPtsList,
	} {
		cobj.Destroy(*t)
		*t = nil
	}
}

func (ix *Index) add(rec cobj.Vector) error {
	if rec.IsEmpty() {
		return nil
	}
	var err error
	switch str(rec, 0) {
	case CompuMethod:
		err = ix.CompuMethods.Map().Add(str(rec, 1), rec.Object())
	case CompuVTab:
		err = ix.CompuVTabs.Map().Add(str(rec, 1), rec.Object())
	case RecordLayout:
		err = ix.RecordLayouts.Map().Add(str(rec, 1), rec.Object())
	case Characteristic:
		err = ix.addAddressed(rec, ix.Characteristics, ix.CharacteristicsList, 4)
	case AxisPts:
		err = ix.addAddressed(rec, ix.AxisPts, ix.AxisPtsList, 3)
	}
	if err != nil {
		return err
	}
	for i := 1; i < rec.Len(); i++ {
		if child := rec.Get(i); child.Is(cobj.KindVector) {
			if err := ix.add(child.Vector()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (ix *Index) addAddressed(rec cobj.Vector, byName, list *cobj.Object, addrIdx int) error {
	if _, err := list.Vector().Add(rec.Object()); err != nil {
		return err
	}
	if err := byName.Map().Add(str(rec, 1), rec.Object()); err != nil {
		return err
	}
	if addr, ok := parseAddr(str(rec, addrIdx)); ok {
		return ix.ByAddress.Map().Add(cohex.AddrKey(addr), rec.Object())
	}
	return nil
}

// Lookup finds a CHARACTERISTIC or AXIS_PTS record by name.
func (ix *Index) Lookup(name string) (cobj.Vector, bool) {
	if o := ix.Characteristics.Map().Get(name); o != nil {
		return o.Vector(), true
	}
	if o := ix.AxisPts.Map().Get(name); o != nil {
		return o.Vector(), true
	}
	return cobj.Vector{}, false
}

// Address returns the ECU address of a CHARACTERISTIC or AXIS_PTS record.
func Address(rec cobj.Vector) (uint64, bool) {
	switch str(rec, 0) {
	case Characteristic:
		return parseAddr(str(rec, 4))
	case AxisPts:
		return parseAddr(str(rec, 3))
	}
	return 0, false
}

// str returns the string at idx, or "" if there is none.
func str(v cobj.Vector, idx int) string {
	if o := v.Get(idx); o != nil && o.Is(cobj.KindString) {
		return o.Str().Value()
	}
	return ""
}

func parseAddr(s string) (uint64, bool) {
	v, err := strconv.ParseUint(s, 0, 64)
	return v, err == nil
}

// atoi parses a decimal count, returning 0 for anything else.
func atoi(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}
