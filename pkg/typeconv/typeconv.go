// Package typeconv converts the C type graph into Rust types. It owns the
// names of every record, enum and typedef, the per-record field names, and
// the set of language features the converted types need.
package typeconv

import (
	"sort"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/raymyers/ralph-c2rust/pkg/ctypes"
	"github.com/raymyers/ralph-c2rust/pkg/diag"
	"github.com/raymyers/ralph-c2rust/pkg/rast"
	"github.com/raymyers/ralph-c2rust/pkg/renamer"
)

// Feature tags recorded while converting
const (
	FeatureF128                  = "f128"
	FeatureCVariadic             = "c_variadic"
	FeatureConstTransmute        = "const_transmute"
	FeaturePtrWrappingOffsetFrom = "ptr_wrapping_offset_from"
)

// ReservedNames are never handed out for declarations: keywords, reserved
// keywords, prelude names and primitive types.
var ReservedNames = []string{
	// keywords
	"as", "break", "const", "continue", "crate", "else", "enum", "extern",
	"false", "fn", "for", "if", "impl", "in", "let", "loop", "match", "mod",
	"move", "mut", "pub", "ref", "return", "Self", "self", "static", "struct",
	"super", "trait", "true", "type", "unsafe", "use", "where", "while",
	"dyn",
	// reserved keywords
	"abstract", "alignof", "become", "box", "do", "final", "macro",
	"offsetof", "override", "priv", "proc", "pure", "sizeof", "typeof",
	"unsized", "virtual", "yield", "async", "try",
	// prelude
	"Copy", "Send", "Sized", "Sync", "Drop", "Fn", "FnMut", "FnOnce", "Box",
	"ToOwned", "Clone", "PartialEq", "PartialOrd", "Eq", "Ord", "AsRef",
	"AsMut", "Into", "From", "Default", "Iterator", "Extend", "IntoIterator",
	"DoubleEndedIterator", "ExactSizeIterator", "Option", "Result",
	"SliceConcatExt", "String", "ToString", "Vec",
	// primitives
	"bool", "char", "f32", "f64", "i8", "i16", "i32", "i64", "i128", "isize",
	"u8", "u16", "u32", "u64", "u128", "usize", "str",
}

const (
	unnamedDecl  = "C2RustUnnamed"
	unnamedField = "c2rust_unnamed"
	paddingField = "c2rust_padding"
)

type fieldKeyKind int

const (
	keyField fieldKeyKind = iota
	keyPadding
	keyStorage
)

// fieldKey addresses a name in a record's field scope. Padding is keyed by
// position, storage units by the first bitfield they hold.
type fieldKey struct {
	kind  fieldKeyKind
	field ctypes.DeclID
	index int
}

type suffixKey struct {
	decl   ctypes.DeclID
	suffix string
}

// TypeConverter converts C types and owns the names they are spelled with
type TypeConverter struct {
	// TranslateValist maps va_list to the VaList type instead of its
	// structural definition.
	TranslateValist bool
	// EmitNoStd spells paths through core rather than std.
	EmitNoStd bool

	names       *renamer.Renamer[ctypes.DeclID]
	fields      map[ctypes.DeclID]*renamer.Renamer[fieldKey]
	suffixNames map[suffixKey]string
	squashed    map[ctypes.DeclID]ctypes.DeclID
	features    map[string]bool
	log         *logrus.Entry
}

// New creates a type converter. A nil log uses the standard logger.
func New(log *logrus.Entry) *TypeConverter {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &TypeConverter{
		names:       renamer.New[ctypes.DeclID](ReservedNames...),
		fields:      make(map[ctypes.DeclID]*renamer.Renamer[fieldKey]),
		suffixNames: make(map[suffixKey]string),
		squashed:    make(map[ctypes.DeclID]ctypes.DeclID),
		features:    make(map[string]bool),
		log:         log.WithField("component", "typeconv"),
	}
}

// StdRoot is the crate standard paths start from
func (t *TypeConverter) StdRoot() string {
	if t.EmitNoStd {
		return "core"
	}
	return "std"
}

// UseFeature records that the output needs a language feature
func (t *TypeConverter) UseFeature(name string) {
	if !t.features[name] {
		t.log.WithField("feature", name).Debug("feature used")
	}
	t.features[name] = true
}

// FeaturesUsed returns the recorded features in sorted order
func (t *TypeConverter) FeaturesUsed() []string {
	out := lo.Keys(t.features)
	sort.Strings(out)
	return out
}

// DeclareDeclName assigns a name to a record, enum or typedef. Naming the
// same declaration twice is a name collision.
func (t *TypeConverter) DeclareDeclName(decl ctypes.DeclID, name string) (string, error) {
	assigned, err := t.names.Insert(decl, name)
	if err != nil {
		return "", diag.Wrap(diag.NameCollision, err, "declare decl name")
	}
	t.log.WithFields(logrus.Fields{"decl": decl, "name": assigned}).Debug("declared name")
	return assigned, nil
}

// AliasDeclName makes decl resolve to the name of existing
func (t *TypeConverter) AliasDeclName(decl, existing ctypes.DeclID) error {
	if err := t.names.Alias(decl, existing); err != nil {
		return diag.Wrap(diag.NameCollision, err, "alias decl name")
	}
	t.log.WithFields(logrus.Fields{"decl": decl, "alias_of": existing}).Debug("aliased name")
	return nil
}

// ResolveDeclName returns the name assigned to decl
func (t *TypeConverter) ResolveDeclName(decl ctypes.DeclID) (string, bool) {
	return t.names.Get(decl)
}

// ResolveDeclSuffixName derives a name from decl's name and suffix. The
// derived name is picked once and reused for the same pair.
func (t *TypeConverter) ResolveDeclSuffixName(decl ctypes.DeclID, suffix string) string {
	key := suffixKey{decl: decl, suffix: suffix}
	if name, ok := t.suffixNames[key]; ok {
		return name
	}
	base, ok := t.ResolveDeclName(decl)
	if !ok {
		base = unnamedDecl
	}
	name := t.names.PickName(base + suffix)
	t.suffixNames[key] = name
	return name
}

func (t *TypeConverter) fieldScope(record ctypes.DeclID) *renamer.Renamer[fieldKey] {
	scope, ok := t.fields[record]
	if !ok {
		scope = renamer.New[fieldKey](ReservedNames...)
		t.fields[record] = scope
	}
	return scope
}

// DeclareFieldName names field within record. Anonymous fields get a
// placeholder name.
func (t *TypeConverter) DeclareFieldName(record, field ctypes.DeclID, name string) (string, error) {
	if name == "" {
		name = unnamedField
	}
	assigned, err := t.fieldScope(record).Insert(fieldKey{kind: keyField, field: field}, name)
	if err != nil {
		return "", diag.Wrap(diag.NameCollision, err, "declare field name")
	}
	return assigned, nil
}

// DeclarePadding returns the name of the index'th padding field of record,
// picking it on first use.
func (t *TypeConverter) DeclarePadding(record ctypes.DeclID, index int) string {
	scope := t.fieldScope(record)
	key := fieldKey{kind: keyPadding, index: index}
	if name, ok := scope.Get(key); ok {
		return name
	}
	name, err := scope.Insert(key, paddingField)
	if err != nil {
		panic(diag.Invariantf("padding %d of record %d: %v", index, record, err))
	}
	return name
}

// ResolveFieldName returns the name of field. With a nil record every
// record scope is searched.
func (t *TypeConverter) ResolveFieldName(record *ctypes.DeclID, field ctypes.DeclID) (string, bool) {
	key := fieldKey{kind: keyField, field: field}
	if record != nil {
		scope, ok := t.fields[*record]
		if !ok {
			return "", false
		}
		return scope.Get(key)
	}
	records := lo.Keys(t.fields)
	sort.Slice(records, func(i, j int) bool { return records[i] < records[j] })
	for _, r := range records {
		if name, ok := t.fields[r].Get(key); ok {
			return name, true
		}
	}
	return "", false
}

// Convert converts a C type to the Rust type it is spelled as
func (t *TypeConverter) Convert(ctx *ctypes.Context, id ctypes.TypeID) (rast.Ty, error) {
	if t.TranslateValist && ctx.IsVaList(id) {
		t.UseFeature(FeatureCVariadic)
		return rast.GlobalPathTy(t.StdRoot(), "ffi", "VaList"), nil
	}

	switch ty := ctx.Index(id).(type) {
	case ctypes.Tvoid:
		return rast.Unit(), nil
	case ctypes.Tbool:
		return rast.PathTy("bool"), nil
	case ctypes.Tint:
		return intTy(ty.Kind), nil
	case ctypes.Tfloat:
		switch ty.Kind {
		case ctypes.Float:
			return rast.PathTy("libc", "c_float"), nil
		case ctypes.Double:
			return rast.PathTy("libc", "c_double"), nil
		}
		t.UseFeature(FeatureF128)
		return rast.PathTy("f128", "f128"), nil

	case ctypes.Tpointer:
		return t.ConvertPointer(ctx, ty.Pointee)

	case ctypes.Telaborated:
		return t.Convert(ctx, ty.Inner)
	case ctypes.Tparen:
		return t.Convert(ctx, ty.Inner)
	case ctypes.Tdecayed:
		return t.Convert(ctx, ty.Inner)
	case ctypes.TtypeOf:
		return t.Convert(ctx, ty.Inner)
	case ctypes.Tattributed:
		return t.Convert(ctx, ty.Inner.Type)

	case ctypes.Tstruct:
		return t.declTy(ty.Decl)
	case ctypes.Tunion:
		return t.declTy(ty.Decl)
	case ctypes.Tenum:
		return t.declTy(ty.Decl)
	case ctypes.Ttypedef:
		return t.declTy(ty.Decl)

	case ctypes.TconstArray:
		elem, err := t.Convert(ctx, ty.Elem)
		if err != nil {
			return nil, err
		}
		return rast.TyArray{Elem: elem, Len: rast.Int(ty.Count)}, nil

	case ctypes.TincompleteArray:
		elem, err := t.Convert(ctx, ty.Elem)
		if err != nil {
			return nil, err
		}
		return rast.TyArray{Elem: elem, Len: rast.Int(0)}, nil

	case ctypes.TvariableArray:
		elem, err := t.Convert(ctx, vlaElem(ctx, id))
		if err != nil {
			return nil, err
		}
		return rast.Ptr(true, elem), nil

	case ctypes.Tfunction:
		var ret *ctypes.QualType
		if !ty.NoReturn {
			ret = &ty.Return
		}
		if !ty.Prototyped {
			return t.ConvertFunction(ctx, ret, nil, false)
		}
		return t.ConvertFunction(ctx, ret, ty.Params, ty.Variadic)

	case ctypes.Tcomplex:
		return nil, diag.Unsupportedf("type %s has no Rust equivalent", ty)
	}
	return nil, diag.Unsupportedf("cannot convert type #%d", id)
}

func (t *TypeConverter) declTy(decl ctypes.DeclID) (rast.Ty, error) {
	name, ok := t.ResolveDeclName(decl)
	if !ok {
		return nil, diag.Invariantf("unknown decl id %d", decl)
	}
	return rast.PathTy(name), nil
}

func intTy(k ctypes.IntKind) rast.Ty {
	switch k {
	case ctypes.Char:
		return rast.PathTy("libc", "c_char")
	case ctypes.SChar:
		return rast.PathTy("libc", "c_schar")
	case ctypes.UChar:
		return rast.PathTy("libc", "c_uchar")
	case ctypes.Short:
		return rast.PathTy("libc", "c_short")
	case ctypes.UShort:
		return rast.PathTy("libc", "c_ushort")
	case ctypes.Int:
		return rast.PathTy("libc", "c_int")
	case ctypes.UInt:
		return rast.PathTy("libc", "c_uint")
	case ctypes.Long:
		return rast.PathTy("libc", "c_long")
	case ctypes.ULong:
		return rast.PathTy("libc", "c_ulong")
	case ctypes.LongLong:
		return rast.PathTy("libc", "c_longlong")
	case ctypes.ULongLong:
		return rast.PathTy("libc", "c_ulonglong")
	case ctypes.Int128:
		return rast.PathTy("i128")
	case ctypes.UInt128:
		return rast.PathTy("u128")
	}
	panic(diag.Invariantf("unhandled integer kind %d", k))
}

// vlaElem strips nested variable-length array layers
func vlaElem(ctx *ctypes.Context, id ctypes.TypeID) ctypes.TypeID {
	for {
		vla, ok := ctx.ResolveType(id).(ctypes.TvariableArray)
		if !ok {
			return id
		}
		id = vla.Elem
	}
}

// ConvertPointer converts a pointer to pointee. Function pointers are
// optional; constness of the pointee picks the pointer's mutability.
func (t *TypeConverter) ConvertPointer(ctx *ctypes.Context, pointee ctypes.QualType) (rast.Ty, error) {
	mutable := !pointee.Quals.Const

	switch ctx.ResolveType(pointee.Type).(type) {
	case ctypes.Tvoid:
		if t.EmitNoStd {
			return rast.Ptr(mutable, rast.PathTy("core", "ffi", "c_void")), nil
		}
		return rast.Ptr(mutable, rast.PathTy("libc", "c_void")), nil

	case ctypes.TvariableArray:
		elem, err := t.Convert(ctx, vlaElem(ctx, pointee.Type))
		if err != nil {
			return nil, err
		}
		return rast.Ptr(mutable, elem), nil

	case ctypes.Tfunction:
		fn, err := t.Convert(ctx, pointee.Type)
		if err != nil {
			return nil, err
		}
		return rast.GenericTy("Option", fn), nil
	}

	elem, err := t.Convert(ctx, pointee.Type)
	if err != nil {
		return nil, err
	}
	return rast.Ptr(mutable, elem), nil
}

// ConvertFunction builds an unsafe extern "C" function type. A nil ret
// means the function does not return.
func (t *TypeConverter) ConvertFunction(ctx *ctypes.Context, ret *ctypes.QualType, params []ctypes.QualType, variadic bool) (rast.Ty, error) {
	fn := rast.TyBareFn{Unsafe: true, ABI: "C"}
	for _, p := range params {
		ty, err := t.Convert(ctx, p.Type)
		if err != nil {
			return nil, err
		}
		fn.Params = append(fn.Params, ty)
	}
	if variadic {
		fn.Params = append(fn.Params, rast.TyCVarArgs{})
	}

	if ret == nil {
		fn.Ret = rast.TyNever{}
		return fn, nil
	}
	r, err := t.Convert(ctx, ret.Type)
	if err != nil {
		return nil, err
	}
	fn.Ret = r
	return fn, nil
}

// KnrFunctionTypeWithParameters recovers the type of a K&R function from
// the parameter declarations of its definition. Prototyped functions
// return a nil type.
func (t *TypeConverter) KnrFunctionTypeWithParameters(ctx *ctypes.Context, id ctypes.TypeID, params []ctypes.DeclID) (rast.Ty, error) {
	switch ty := ctx.Index(id).(type) {
	case ctypes.Tfunction:
		if ty.Prototyped {
			return nil, nil
		}
		paramTys := lo.Map(params, func(p ctypes.DeclID, _ int) ctypes.QualType {
			v, ok := ctx.Decl(p).Kind.(ctypes.Dvariable)
			if !ok {
				panic(diag.Invariantf("K&R parameter decl %d is not a variable", p))
			}
			return v.Typ
		})
		var ret *ctypes.QualType
		if !ty.NoReturn {
			ret = &ty.Return
		}
		return t.ConvertFunction(ctx, ret, paramTys, false)

	case ctypes.Telaborated:
		return t.KnrFunctionTypeWithParameters(ctx, ty.Inner, params)
	case ctypes.Tdecayed:
		return t.KnrFunctionTypeWithParameters(ctx, ty.Inner, params)
	case ctypes.Tparen:
		return t.KnrFunctionTypeWithParameters(ctx, ty.Inner, params)
	case ctypes.TtypeOf:
		return t.KnrFunctionTypeWithParameters(ctx, ty.Inner, params)
	case ctypes.Ttypedef:
		td, ok := ctx.Decl(ty.Decl).Kind.(ctypes.Dtypedef)
		if !ok {
			panic(diag.Invariantf("typedef type %d refers to non-typedef decl %d", id, ty.Decl))
		}
		return t.KnrFunctionTypeWithParameters(ctx, td.Typ.Type, params)
	}
	panic(diag.Invariantf("type #%d is not a function type", id))
}
