package typeconv

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raymyers/ralph-c2rust/pkg/ctypes"
	"github.com/raymyers/ralph-c2rust/pkg/diag"
	"github.com/raymyers/ralph-c2rust/pkg/rast"
)

func convertString(t *testing.T, tc *TypeConverter, ctx *ctypes.Context, id ctypes.TypeID) string {
	t.Helper()
	ty, err := tc.Convert(ctx, id)
	require.NoError(t, err)
	return rast.TyString(ty)
}

func TestConvertPrimitives(t *testing.T) {
	b := ctypes.NewBuilder()
	tests := []struct {
		id   ctypes.TypeID
		want string
	}{
		{b.Void(), "()"},
		{b.Bool(), "bool"},
		{b.Int(ctypes.Char), "libc::c_char"},
		{b.Int(ctypes.SChar), "libc::c_schar"},
		{b.Int(ctypes.UChar), "libc::c_uchar"},
		{b.Int(ctypes.Short), "libc::c_short"},
		{b.Int(ctypes.UShort), "libc::c_ushort"},
		{b.Int(ctypes.Int), "libc::c_int"},
		{b.Int(ctypes.UInt), "libc::c_uint"},
		{b.Int(ctypes.Long), "libc::c_long"},
		{b.Int(ctypes.ULong), "libc::c_ulong"},
		{b.Int(ctypes.LongLong), "libc::c_longlong"},
		{b.Int(ctypes.ULongLong), "libc::c_ulonglong"},
		{b.Int(ctypes.Int128), "i128"},
		{b.Int(ctypes.UInt128), "u128"},
		{b.Float(ctypes.Float), "libc::c_float"},
		{b.Float(ctypes.Double), "libc::c_double"},
	}
	tc := New(nil)
	for _, tt := range tests {
		assert.Equal(t, tt.want, convertString(t, tc, b.Context(), tt.id))
	}
	assert.Empty(t, tc.FeaturesUsed(), "primitives need no features")
}

func TestLongDoubleRecordsFeature(t *testing.T) {
	b := ctypes.NewBuilder()
	tc := New(nil)
	assert.Equal(t, "f128::f128", convertString(t, tc, b.Context(), b.Float(ctypes.LongDouble)))
	assert.Equal(t, []string{FeatureF128}, tc.FeaturesUsed())

	// monotonic
	convertString(t, tc, b.Context(), b.Int(ctypes.Int))
	assert.Equal(t, []string{FeatureF128}, tc.FeaturesUsed())
}

func TestConvertPointers(t *testing.T) {
	b := ctypes.NewBuilder()
	cInt := b.Int(ctypes.Int)
	fn := b.Function(ctypes.Unqualified(cInt), []ctypes.QualType{ctypes.Unqualified(cInt)}, false)
	_, fnTypedef := b.Typedef("callback", ctypes.Unqualified(fn))
	count := b.IntLit(4)
	vla := b.Type(ctypes.TvariableArray{Elem: b.Type(ctypes.TvariableArray{Elem: cInt, Count: &count}), Count: &count})

	tests := []struct {
		name string
		id   ctypes.TypeID
		want string
	}{
		{"int", b.Pointer(ctypes.Unqualified(cInt)), "*mut libc::c_int"},
		{"const int", b.Pointer(ctypes.Const(cInt)), "*const libc::c_int"},
		{"volatile int", b.Pointer(ctypes.Volatile(cInt)), "*mut libc::c_int"},
		{"void", b.Pointer(ctypes.Unqualified(b.Void())), "*mut libc::c_void"},
		{"const void", b.Pointer(ctypes.Const(b.Void())), "*const libc::c_void"},
		{"function", b.Pointer(ctypes.Unqualified(fn)), `Option<unsafe extern "C" fn(libc::c_int) -> libc::c_int>`},
		{"function typedef", b.Pointer(ctypes.Unqualified(fnTypedef)), "Option<callback>"},
		{"nested vla", b.Pointer(ctypes.Unqualified(vla)), "*mut libc::c_int"},
		{"pointer to pointer", b.Pointer(ctypes.Unqualified(b.Pointer(ctypes.Const(cInt)))), "*mut *const libc::c_int"},
	}

	tc := New(nil)
	require.NoError(t, tc.DeclareNames(b.Context()))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, convertString(t, tc, b.Context(), tt.id))
		})
	}
}

func TestNoStdVoidPointer(t *testing.T) {
	b := ctypes.NewBuilder()
	tc := New(nil)
	tc.EmitNoStd = true
	assert.Equal(t, "*mut core::ffi::c_void", convertString(t, tc, b.Context(), b.Pointer(ctypes.Unqualified(b.Void()))))
}

func TestConvertArrays(t *testing.T) {
	b := ctypes.NewBuilder()
	cChar := b.Int(ctypes.Char)
	n := b.IntLit(3)
	tc := New(nil)
	ctx := b.Context()

	assert.Equal(t, "[libc::c_char; 16]", convertString(t, tc, ctx, b.Array(cChar, 16)))
	assert.Equal(t, "[[libc::c_char; 2]; 3]", convertString(t, tc, ctx, b.Array(b.Array(cChar, 2), 3)))
	assert.Equal(t, "[libc::c_char; 0]", convertString(t, tc, ctx, b.Type(ctypes.TincompleteArray{Elem: cChar})))
	assert.Equal(t, "*mut libc::c_char", convertString(t, tc, ctx, b.Type(ctypes.TvariableArray{Elem: cChar, Count: &n})))
}

func TestConvertFunctions(t *testing.T) {
	b := ctypes.NewBuilder()
	cInt := ctypes.Unqualified(b.Int(ctypes.Int))
	charPtr := ctypes.Unqualified(b.Pointer(ctypes.Const(b.Int(ctypes.Char))))
	void := ctypes.Unqualified(b.Void())

	tests := []struct {
		name string
		fn   ctypes.Tfunction
		want string
	}{
		{
			"prototyped",
			ctypes.Tfunction{Return: cInt, Params: []ctypes.QualType{cInt, cInt}, Prototyped: true},
			`unsafe extern "C" fn(libc::c_int, libc::c_int) -> libc::c_int`,
		},
		{
			"variadic",
			ctypes.Tfunction{Return: cInt, Params: []ctypes.QualType{charPtr}, Variadic: true, Prototyped: true},
			`unsafe extern "C" fn(*const libc::c_char, ...) -> libc::c_int`,
		},
		{
			"void return",
			ctypes.Tfunction{Return: void, Prototyped: true},
			`unsafe extern "C" fn() -> ()`,
		},
		{
			"noreturn",
			ctypes.Tfunction{Return: void, Params: []ctypes.QualType{cInt}, NoReturn: true, Prototyped: true},
			`unsafe extern "C" fn(libc::c_int) -> !`,
		},
		{
			"knr ignores params",
			ctypes.Tfunction{Return: cInt, Params: []ctypes.QualType{cInt}, Variadic: true},
			`unsafe extern "C" fn() -> libc::c_int`,
		},
	}

	tc := New(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, convertString(t, tc, b.Context(), b.Type(tt.fn)))
		})
	}
}

func TestTranslateValist(t *testing.T) {
	b := ctypes.NewBuilder()
	_, tag := b.Struct("__va_list_tag")
	_, builtin := b.Typedef("__builtin_va_list", ctypes.Unqualified(b.Array(tag, 1)))
	_, vaList := b.Typedef("va_list", ctypes.Unqualified(builtin))
	ctx := b.Context()

	t.Run("translated", func(t *testing.T) {
		tc := New(nil)
		tc.TranslateValist = true
		require.NoError(t, tc.DeclareNames(ctx))
		assert.Equal(t, "::std::ffi::VaList", convertString(t, tc, ctx, vaList))
		assert.Equal(t, []string{FeatureCVariadic}, tc.FeaturesUsed())

		tc.EmitNoStd = true
		assert.Equal(t, "::core::ffi::VaList", convertString(t, tc, ctx, vaList))
	})

	t.Run("structural", func(t *testing.T) {
		tc := New(nil)
		require.NoError(t, tc.DeclareNames(ctx))
		assert.Equal(t, "va_list", convertString(t, tc, ctx, vaList))
		assert.Empty(t, tc.FeaturesUsed())
	})
}

func TestConvertErrors(t *testing.T) {
	b := ctypes.NewBuilder()
	_, undeclared := b.Struct("never_declared")
	complexTy := b.Type(ctypes.Tcomplex{Elem: b.Float(ctypes.Double)})
	tc := New(nil)

	_, err := tc.Convert(b.Context(), undeclared)
	require.Error(t, err)
	assert.True(t, diag.Is(err, diag.InvariantViolation))
	assert.Contains(t, err.Error(), "unknown decl id")

	_, err = tc.Convert(b.Context(), complexTy)
	require.Error(t, err)
	assert.True(t, diag.Is(err, diag.Unsupported))
	assert.False(t, diag.IsFatal(err))

	// errors propagate out of composite types
	_, err = tc.Convert(b.Context(), b.Pointer(ctypes.Unqualified(complexTy)))
	assert.True(t, diag.Is(err, diag.Unsupported))
}

func TestDeclareDeclName(t *testing.T) {
	tc := New(nil)

	a, err := tc.DeclareDeclName(1, "node")
	require.NoError(t, err)
	b, err := tc.DeclareDeclName(2, "node")
	require.NoError(t, err)
	assert.Equal(t, "node", a)
	assert.Equal(t, "node_0", b)

	_, err = tc.DeclareDeclName(1, "other")
	require.Error(t, err)
	assert.True(t, diag.Is(err, diag.NameCollision))
	assert.True(t, diag.IsFatal(err))

	for i, reserved := range []string{"match", "Option", "u8", "type"} {
		name, err := tc.DeclareDeclName(ctypes.DeclID(10+i), reserved)
		require.NoError(t, err)
		assert.NotContains(t, ReservedNames, name)
	}

	require.NoError(t, tc.AliasDeclName(20, 1))
	got, ok := tc.ResolveDeclName(20)
	require.True(t, ok)
	assert.Equal(t, "node", got)

	_, ok = tc.ResolveDeclName(99)
	assert.False(t, ok)
}

func TestReservedNamesComplete(t *testing.T) {
	assert.Len(t, ReservedNames, 103)
}

func TestResolveDeclSuffixName(t *testing.T) {
	tc := New(nil)
	_, err := tc.DeclareDeclName(1, "outer")
	require.NoError(t, err)

	first := tc.ResolveDeclSuffixName(1, "_inner")
	assert.Equal(t, "outer_inner", first)
	assert.Equal(t, first, tc.ResolveDeclSuffixName(1, "_inner"), "memoized")

	assert.Equal(t, "C2RustUnnamed_tag", tc.ResolveDeclSuffixName(7, "_tag"))

	// a later declaration cannot take the derived name
	name, err := tc.DeclareDeclName(2, "outer_inner")
	require.NoError(t, err)
	assert.Equal(t, "outer_inner_0", name)
}

func TestFieldNames(t *testing.T) {
	tc := New(nil)

	x, err := tc.DeclareFieldName(1, 10, "x")
	require.NoError(t, err)
	assert.Equal(t, "x", x)

	// scopes are per record
	x2, err := tc.DeclareFieldName(2, 20, "x")
	require.NoError(t, err)
	assert.Equal(t, "x", x2)

	anon, err := tc.DeclareFieldName(1, 11, "")
	require.NoError(t, err)
	assert.Equal(t, "c2rust_unnamed", anon)

	kw, err := tc.DeclareFieldName(1, 12, "type")
	require.NoError(t, err)
	assert.Equal(t, "type_0", kw)

	_, err = tc.DeclareFieldName(1, 10, "again")
	assert.True(t, diag.Is(err, diag.NameCollision))

	pad := tc.DeclarePadding(1, 0)
	assert.Equal(t, "c2rust_padding", pad)
	assert.Equal(t, pad, tc.DeclarePadding(1, 0), "idempotent")
	assert.Equal(t, "c2rust_padding_0", tc.DeclarePadding(1, 1))

	// a user field named like padding does not collide with it
	user, err := tc.DeclareFieldName(1, 13, "c2rust_padding")
	require.NoError(t, err)
	assert.Equal(t, "c2rust_padding_1", user)

	rec := ctypes.DeclID(1)
	got, ok := tc.ResolveFieldName(&rec, 12)
	require.True(t, ok)
	assert.Equal(t, "type_0", got)

	got, ok = tc.ResolveFieldName(nil, 20)
	require.True(t, ok)
	assert.Equal(t, "x", got)

	_, ok = tc.ResolveFieldName(&rec, 20)
	assert.False(t, ok, "field of another record")
}

func TestDeclarePaddingPerRecord(t *testing.T) {
	tc := New(nil)
	_, err := tc.DeclareFieldName(1, 10, "c2rust_padding")
	require.NoError(t, err)

	var first, other string
	require.NotPanics(t, func() {
		first = tc.DeclarePadding(1, 0)
		other = tc.DeclarePadding(2, 0)
	})
	assert.Equal(t, "c2rust_padding_0", first, "a field already holds the plain name")
	assert.Equal(t, "c2rust_padding", other, "padding names are scoped to their record")
	assert.Equal(t, first, tc.DeclarePadding(1, 0))
}

func TestKnrFunctionTypeWithParameters(t *testing.T) {
	b := ctypes.NewBuilder()
	cInt := ctypes.Unqualified(b.Int(ctypes.Int))
	cLong := ctypes.Unqualified(b.Int(ctypes.Long))
	knr := b.Type(ctypes.Tfunction{Return: cInt})
	_, knrTypedef := b.Typedef("handler", ctypes.Unqualified(b.Type(ctypes.Tparen{Inner: knr})))
	proto := b.Function(cInt, nil, false)
	params := []ctypes.DeclID{b.Var("a", cInt), b.Var("b", cLong)}
	ctx := b.Context()
	tc := New(nil)

	ty, err := tc.KnrFunctionTypeWithParameters(ctx, proto, params)
	require.NoError(t, err)
	assert.Nil(t, ty, "prototyped functions keep their own type")

	for _, id := range []ctypes.TypeID{knr, knrTypedef, b.Type(ctypes.Telaborated{Inner: knrTypedef})} {
		ty, err = tc.KnrFunctionTypeWithParameters(ctx, id, params)
		require.NoError(t, err)
		assert.Equal(t, `unsafe extern "C" fn(libc::c_int, libc::c_long) -> libc::c_int`, rast.TyString(ty))
	}

	notVar := b.Field("f", cInt)
	assert.Panics(t, func() {
		_, _ = tc.KnrFunctionTypeWithParameters(ctx, knr, []ctypes.DeclID{notVar})
	})
	assert.Panics(t, func() {
		_, _ = tc.KnrFunctionTypeWithParameters(ctx, cInt.Type, params)
	})
}

func TestDeclareNames(t *testing.T) {
	b := ctypes.NewBuilder()
	cInt := ctypes.Unqualified(b.Int(ctypes.Int))

	// typedef struct { int x; } point;
	px := b.Field("x", cInt)
	anonPoint, anonPointTy := b.Struct("", px)
	pointTd, _ := b.Typedef("point", ctypes.Unqualified(b.Type(ctypes.Telaborated{Inner: anonPointTy})))

	// struct outer { struct { int a; } inner; union { int u; }; int type; };
	ia := b.Field("a", cInt)
	inner, innerTy := b.Struct("", ia)
	uu := b.Field("u", cInt)
	anonUnion, anonUnionTy := b.Union("", uu)
	innerField := b.Field("inner", ctypes.Unqualified(innerTy))
	unionField := b.Field("", ctypes.Unqualified(anonUnionTy))
	typeField := b.Field("type", cInt)
	outer, _ := b.Struct("outer", innerField, unionField, typeField)

	// struct point { int y; }; clashes with the squashed typedef
	py := b.Field("y", cInt)
	pointTag, _ := b.Struct("point", py)

	tc := New(nil)
	require.NoError(t, tc.DeclareNames(b.Context()))

	name := func(id ctypes.DeclID) string {
		n, ok := tc.ResolveDeclName(id)
		require.True(t, ok, "decl %d has no name", id)
		return n
	}
	assert.Equal(t, "point", name(anonPoint))
	assert.Equal(t, "point", name(pointTd))
	assert.True(t, tc.IsSquashed(pointTd))
	assert.Equal(t, "point_0", name(pointTag))
	assert.Equal(t, "outer", name(outer))
	assert.Equal(t, "outer_inner", name(inner))
	assert.Equal(t, "C2RustUnnamed", name(anonUnion))

	field := func(rec, f ctypes.DeclID) string {
		n, ok := tc.ResolveFieldName(&rec, f)
		require.True(t, ok)
		return n
	}
	assert.Equal(t, "x", field(anonPoint, px))
	assert.Equal(t, "c2rust_unnamed", field(outer, unionField))
	assert.Equal(t, "type_0", field(outer, typeField))

	_, emitted, err := tc.ConvertTypedef(b.Context(), pointTd)
	require.NoError(t, err)
	assert.False(t, emitted, "squashed typedef has no alias")
}

func TestDeclareNamesTwiceCollides(t *testing.T) {
	b := ctypes.NewBuilder()
	b.Struct("s")
	tc := New(nil)
	require.NoError(t, tc.DeclareNames(b.Context()))
	err := tc.DeclareNames(b.Context())
	assert.True(t, diag.Is(err, diag.NameCollision))
}

func TestConvertRecordWithBitfields(t *testing.T) {
	b := ctypes.NewBuilder()
	cInt := ctypes.Unqualified(b.Int(ctypes.Int))
	uInt := ctypes.Unqualified(b.Int(ctypes.UInt))

	// struct flags { unsigned ready : 1; int level : 4; volatile int count; };
	ready := b.Bitfield("ready", uInt, 1)
	level := b.Bitfield("level", cInt, 4)
	count := b.Field("count", ctypes.Volatile(cInt.Type))
	rec, _ := b.Struct("flags", ready, level, count)
	ctx := b.Context()

	tc := New(nil)
	require.NoError(t, tc.DeclareNames(ctx))
	def, err := tc.ConvertRecord(ctx, rec)
	require.NoError(t, err)

	want := rast.StructDef{
		Name:  "flags",
		Attrs: []string{"derive(Copy, Clone)", "repr(C)"},
		Fields: []rast.StructField{
			{Name: "ready_level", Ty: rast.PathTy("libc", "c_uint")},
			{Name: "count", Ty: rast.PathTy("libc", "c_int")},
		},
	}
	if diff := cmp.Diff(want, def); diff != "" {
		t.Errorf("ConvertRecord mismatch (-want +got):\n%s", diff)
	}

	bf, err := tc.Bitfield(ctx, level)
	require.NoError(t, err)
	assert.Equal(t, "ready_level", bf.Storage)
	assert.Equal(t, uint64(1), bf.Offset)
	assert.Equal(t, uint64(4), bf.Width)
	assert.Equal(t, uint64(32), bf.UnitBits)
	assert.True(t, bf.Signed)
	assert.Equal(t, uint64(0x1e), bf.Mask())
	assert.Equal(t, "libc::c_int", rast.TyString(bf.SignedTy))

	bf, err = tc.Bitfield(ctx, ready)
	require.NoError(t, err)
	assert.False(t, bf.Signed)
	assert.Equal(t, uint64(1), bf.Mask())

	_, err = tc.Bitfield(ctx, count)
	assert.True(t, diag.Is(err, diag.InvariantViolation))
}

func TestConvertRecordPadding(t *testing.T) {
	b := ctypes.NewBuilder()
	cChar := ctypes.Unqualified(b.Int(ctypes.Char))
	cInt := ctypes.Unqualified(b.Int(ctypes.Int))

	// the front-end placed b at byte 8 and sized the record at 16
	bitOffset := uint64(64)
	size := int64(16)
	fa := b.Field("a", cChar)
	fb := b.Decl(ctypes.Dfield{Name: "b", Typ: cInt, BitOffset: &bitOffset})
	rec := b.Decl(ctypes.Dstruct{Name: "padded", Fields: []ctypes.DeclID{fa, fb}, Size: &size})

	tc := New(nil)
	require.NoError(t, tc.DeclareNames(b.Context()))
	def, err := tc.ConvertRecord(b.Context(), rec)
	require.NoError(t, err)

	got := make([]string, len(def.Fields))
	for i, f := range def.Fields {
		got[i] = f.Name + ": " + rast.TyString(f.Ty)
	}
	want := []string{
		"a: libc::c_char",
		"c2rust_padding: [u8; 7]",
		"b: libc::c_int",
		"c2rust_padding_0: [u8; 4]",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestConvertEnumAndTypedef(t *testing.T) {
	b := ctypes.NewBuilder()
	uChar := b.Int(ctypes.UChar)
	color := b.Decl(ctypes.Denum{Name: "color", Integral: &uChar})
	colorTy := b.Type(ctypes.Tenum{Decl: color})
	td, _ := b.Typedef("color_t", ctypes.Unqualified(b.Pointer(ctypes.Const(colorTy))))
	ctx := b.Context()

	tc := New(nil)
	require.NoError(t, tc.DeclareNames(ctx))

	alias, err := tc.ConvertEnum(ctx, color)
	require.NoError(t, err)
	assert.Equal(t, rast.TypeAlias{Name: "color", Ty: rast.PathTy("libc", "c_uchar")}, alias)

	alias, ok, err := tc.ConvertTypedef(ctx, td)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "color_t", alias.Name)
	assert.Equal(t, "*const color", rast.TyString(alias.Ty))
}
