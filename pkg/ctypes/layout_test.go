package ctypes

import "testing"

func TestSizeOfScalars(t *testing.T) {
	b := NewBuilder()
	tests := []struct {
		name  string
		id    TypeID
		size  int64
		align int64
	}{
		{"char", b.Int(Char), 1, 1},
		{"short", b.Int(Short), 2, 2},
		{"int", b.Int(Int), 4, 4},
		{"long", b.Int(Long), 8, 8},
		{"unsigned __int128", b.Int(UInt128), 16, 16},
		{"float", b.Float(Float), 4, 4},
		{"double", b.Float(Double), 8, 8},
		{"long double", b.Float(LongDouble), 16, 16},
		{"_Bool", b.Bool(), 1, 1},
		{"pointer", b.Pointer(Unqualified(b.Int(Char))), 8, 8},
		{"int[10]", b.Array(b.Int(Int), 10), 40, 4},
		{"void", b.Void(), 1, 1},
	}
	ctx := b.Context()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size, ok := ctx.SizeOf(tt.id)
			if !ok || size != tt.size {
				t.Errorf("SizeOf = %d, %v; want %d", size, ok, tt.size)
			}
			align, ok := ctx.AlignOf(tt.id)
			if !ok || align != tt.align {
				t.Errorf("AlignOf = %d, %v; want %d", align, ok, tt.align)
			}
		})
	}
}

func TestNoStaticSize(t *testing.T) {
	b := NewBuilder()
	intT := b.Int(Int)
	vla := b.Type(TvariableArray{Elem: intT})
	fn := b.Function(Unqualified(intT), nil, false)
	ctx := b.Context()

	if _, ok := ctx.SizeOf(vla); ok {
		t.Error("variable-length arrays have no static size")
	}
	if _, ok := ctx.SizeOf(fn); ok {
		t.Error("functions have no size")
	}
}

func TestStructLayout(t *testing.T) {
	b := NewBuilder()
	c := b.Field("c", Unqualified(b.Int(Char)))
	l := b.Field("l", Unqualified(b.Int(Long)))
	s := b.Field("s", Unqualified(b.Int(Short)))
	decl, typ := b.Struct("mixed", c, l, s)
	ctx := b.Context()

	layout, ok := ctx.RecordLayout(decl)
	if !ok {
		t.Fatal("layout incomplete")
	}
	wantOffsets := []int64{0, 8, 16}
	if len(layout.Slots) != len(wantOffsets) {
		t.Fatalf("got %d slots, want %d", len(layout.Slots), len(wantOffsets))
	}
	for i, want := range wantOffsets {
		if got := layout.Slots[i].Offset; got != want {
			t.Errorf("slot %d offset = %d, want %d", i, got, want)
		}
	}
	if layout.Size != 24 || layout.Align != 8 {
		t.Errorf("size/align = %d/%d, want 24/8", layout.Size, layout.Align)
	}
	if size, _ := ctx.SizeOf(typ); size != 24 {
		t.Errorf("SizeOf(struct) = %d, want 24", size)
	}
}

func TestUnionLayout(t *testing.T) {
	b := NewBuilder()
	i := b.Field("i", Unqualified(b.Int(Int)))
	d := b.Field("d", Unqualified(b.Float(Double)))
	arr := b.Field("bytes", Unqualified(b.Array(b.Int(Char), 12)))
	_, typ := b.Union("u", i, d, arr)
	ctx := b.Context()

	size, _ := ctx.SizeOf(typ)
	align, _ := ctx.AlignOf(typ)
	if size != 16 || align != 8 {
		t.Errorf("union size/align = %d/%d, want 16/8", size, align)
	}
}

func TestBitfieldPacking(t *testing.T) {
	b := NewBuilder()
	uintQ := Unqualified(b.Int(UInt))
	a := b.Bitfield("a", uintQ, 3)
	bb := b.Bitfield("b", uintQ, 5)
	big := b.Bitfield("big", uintQ, 30)
	v := b.Field("v", Volatile(b.Int(Int)))
	decl, _ := b.Struct("flags", a, bb, big, v)
	ctx := b.Context()

	layout, ok := ctx.RecordLayout(decl)
	if !ok {
		t.Fatal("layout incomplete")
	}
	if len(layout.Slots) != 3 {
		t.Fatalf("got %d slots, want 3", len(layout.Slots))
	}

	first := layout.Slots[0]
	if !first.Bitfield || len(first.Fields) != 2 {
		t.Fatalf("first slot = %+v, want a run of a and b", first)
	}
	if first.BitOffsets[0] != 0 || first.BitOffsets[1] != 3 {
		t.Errorf("bit offsets = %v, want [0 3]", first.BitOffsets)
	}

	// 8 + 30 bits do not fit in one unsigned int
	second := layout.Slots[1]
	if !second.Bitfield || second.Fields[0] != big || second.Offset != 4 {
		t.Errorf("second slot = %+v, want big at offset 4", second)
	}
	if layout.Slots[2].Offset != 8 || layout.Size != 12 {
		t.Errorf("v offset %d, size %d; want 8, 12", layout.Slots[2].Offset, layout.Size)
	}
}

func TestExplicitPadding(t *testing.T) {
	b := NewBuilder()
	off := uint64(8 * 8)
	x := b.Field("x", Unqualified(b.Int(Int)))
	y := b.Decl(Dfield{Name: "y", Typ: Unqualified(b.Int(Int)), BitOffset: &off})
	size := int64(32)
	decl := b.Decl(Dstruct{Name: "padded", Fields: []DeclID{x, y}, Size: &size})
	ctx := b.Context()

	layout, ok := ctx.RecordLayout(decl)
	if !ok {
		t.Fatal("layout incomplete")
	}
	if got := layout.Slots[1].PadBefore; got != 4 {
		t.Errorf("PadBefore = %d, want 4", got)
	}
	if layout.Slots[1].Offset != 8 {
		t.Errorf("y offset = %d, want 8", layout.Slots[1].Offset)
	}
	if layout.TailPad != 20 || layout.Size != 32 {
		t.Errorf("TailPad/Size = %d/%d, want 20/32", layout.TailPad, layout.Size)
	}
}
