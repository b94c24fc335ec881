package ctypes

import "github.com/raymyers/ralph-c2rust/pkg/diag"

// Layout follows the LP64 System V rules: natural alignment for scalars,
// records aligned to their most aligned member.

const pointerSize = 8

// Slot is one storage position of a record: a single field, or a run of
// bitfields sharing one storage unit.
type Slot struct {
	Fields     []DeclID
	Bitfield   bool
	BitOffsets []uint64 // per field, from the low bit of the unit
	Offset     int64
	Size       int64
	Align      int64
	// PadBefore is the number of explicit padding bytes required before
	// this slot for it to land at the front-end's offset.
	PadBefore int64
}

// RecordLayout is the computed layout of a struct or union
type RecordLayout struct {
	Slots []Slot
	Size  int64
	Align int64
	// TailPad is the number of explicit padding bytes to append after the
	// last slot to reach the front-end's record size.
	TailPad int64
}

// SizeOf returns the size in bytes of id. Variable-length arrays and
// function types have no static size.
func (c *Context) SizeOf(id TypeID) (int64, bool) {
	switch t := c.Index(id).(type) {
	case Tvoid:
		return 1, true // GNU void* arithmetic
	case Tbool:
		return 1, true
	case Tint:
		return t.Kind.Size(), true
	case Tfloat:
		return t.Kind.Size(), true
	case Tpointer:
		return pointerSize, true
	case TconstArray:
		elem, ok := c.SizeOf(t.Elem)
		return int64(t.Count) * elem, ok
	case TincompleteArray:
		return 0, true
	case Tstruct, Tunion:
		l, ok := c.RecordLayout(recordDecl(t))
		return l.Size, ok
	case Tenum:
		return c.SizeOf(c.EnumIntegral(t.Decl))
	case Tcomplex:
		elem, ok := c.SizeOf(t.Elem)
		return 2 * elem, ok
	case Ttypedef, Telaborated, Tparen, Tdecayed, TtypeOf, Tattributed:
		return c.SizeOf(c.ResolveTypeID(id))
	}
	return 0, false
}

// AlignOf returns the alignment in bytes of id
func (c *Context) AlignOf(id TypeID) (int64, bool) {
	switch t := c.Index(id).(type) {
	case Tvoid, Tbool:
		return 1, true
	case Tint:
		return t.Kind.Size(), true
	case Tfloat:
		return t.Kind.Size(), true
	case Tpointer:
		return pointerSize, true
	case TconstArray:
		return c.AlignOf(t.Elem)
	case TincompleteArray:
		return c.AlignOf(t.Elem)
	case Tstruct, Tunion:
		l, ok := c.RecordLayout(recordDecl(t))
		return l.Align, ok
	case Tenum:
		return c.AlignOf(c.EnumIntegral(t.Decl))
	case Tcomplex:
		return c.AlignOf(t.Elem)
	case Ttypedef, Telaborated, Tparen, Tdecayed, TtypeOf, Tattributed:
		return c.AlignOf(c.ResolveTypeID(id))
	}
	return 0, false
}

// EnumIntegral returns the underlying integer type of an enum declaration.
// Enums without one are unsigned int, which must be present in the graph.
func (c *Context) EnumIntegral(decl DeclID) TypeID {
	if e, ok := c.Decl(decl).Kind.(Denum); ok && e.Integral != nil {
		return *e.Integral
	}
	for id, k := range c.types {
		if t, ok := k.(Tint); ok && t.Kind == UInt {
			return id
		}
	}
	panic(diag.Invariantf("enum decl %d has no integral type", decl))
}

func recordDecl(k TypeKind) DeclID {
	switch t := k.(type) {
	case Tstruct:
		return t.Decl
	case Tunion:
		return t.Decl
	}
	return 0
}

// RecordLayout computes the slots of a struct or union declaration.
// Consecutive bitfields of the same unit size share a unit until it is full
// or a zero-width bitfield closes it.
func (c *Context) RecordLayout(decl DeclID) (RecordLayout, bool) {
	var (
		fields   []DeclID
		isUnion  bool
		declared *int64
	)
	switch d := c.Decl(decl).Kind.(type) {
	case Dstruct:
		fields, declared = d.Fields, d.Size
	case Dunion:
		fields, declared, isUnion = d.Fields, d.Size, true
	default:
		return RecordLayout{}, false
	}

	var (
		layout   = RecordLayout{Align: 1}
		offset   int64
		run      *Slot
		runBits  uint64
		maxSize  int64
		complete = true
	)

	closeRun := func() {
		if run != nil {
			layout.Slots = append(layout.Slots, *run)
			run = nil
		}
	}

	for _, fid := range fields {
		f, ok := c.Decl(fid).Kind.(Dfield)
		if !ok {
			return RecordLayout{}, false
		}
		size, okSize := c.SizeOf(f.Typ.Type)
		align, okAlign := c.AlignOf(f.Typ.Type)
		if !okSize || !okAlign {
			complete = false
			size, align = 0, 1
		}
		if align > layout.Align {
			layout.Align = align
		}

		if f.IsBitfield() {
			width := *f.BitWidth
			unitBits := uint64(size) * 8
			if width == 0 {
				closeRun()
				if !isUnion {
					offset = alignUp(offset, align)
				}
				continue
			}
			if isUnion || run == nil || run.Size != size || runBits+width > unitBits {
				closeRun()
				start := int64(0)
				if !isUnion {
					start = alignUp(offset, align)
					offset = start + size
				}
				run = &Slot{Bitfield: true, Offset: start, Size: size, Align: align}
				runBits = 0
			}
			run.Fields = append(run.Fields, fid)
			run.BitOffsets = append(run.BitOffsets, runBits)
			runBits += width
			if size > maxSize {
				maxSize = size
			}
			continue
		}

		closeRun()
		slot := Slot{Fields: []DeclID{fid}, Size: size, Align: align}
		if !isUnion {
			natural := alignUp(offset, align)
			if f.BitOffset != nil {
				want := int64(*f.BitOffset / 8)
				if want > natural {
					slot.PadBefore = want - offset
					natural = want
				}
			}
			slot.Offset = natural
			offset = natural + size
		}
		if size > maxSize {
			maxSize = size
		}
		layout.Slots = append(layout.Slots, slot)
	}
	closeRun()

	end := offset
	if isUnion {
		end = maxSize
	}
	layout.Size = alignUp(end, layout.Align)
	if declared != nil && *declared > layout.Size {
		layout.TailPad = *declared - end
		if isUnion {
			// union members all start at offset zero
			layout.TailPad = *declared
		}
		layout.Size = *declared
	}
	return layout, complete
}

// alignUp rounds n up to the next multiple of align
func alignUp(n, align int64) int64 {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}
