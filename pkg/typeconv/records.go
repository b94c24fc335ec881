package typeconv

import (
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/raymyers/ralph-c2rust/pkg/ctypes"
	"github.com/raymyers/ralph-c2rust/pkg/diag"
	"github.com/raymyers/ralph-c2rust/pkg/rast"
)

// DeclareNames names every record, enum and typedef of the unit, then the
// fields of every record. A typedef of an anonymous record gives its name
// to the record and resolves to it. Other anonymous records are named
// after the field that holds them, or C2RustUnnamed.
func (t *TypeConverter) DeclareNames(ctx *ctypes.Context) error {
	decls := ctx.Decls()

	typedefOf := make(map[ctypes.DeclID]ctypes.DeclID)
	for _, id := range decls {
		td, ok := ctx.Decl(id).Kind.(ctypes.Dtypedef)
		if !ok {
			continue
		}
		rec, ok := anonymousTag(ctx, td.Typ.Type)
		if !ok {
			continue
		}
		if _, taken := typedefOf[rec]; taken {
			continue
		}
		typedefOf[rec] = id
		t.squashed[id] = rec
	}

	var anonymous []ctypes.DeclID
	for _, id := range decls {
		switch k := ctx.Decl(id).Kind.(type) {
		case ctypes.Dstruct, ctypes.Dunion, ctypes.Denum:
			name := k.DeclName()
			if td, ok := typedefOf[id]; ok {
				name = ctx.Decl(td).Kind.DeclName()
			}
			if name == "" {
				anonymous = append(anonymous, id)
				continue
			}
			if _, err := t.DeclareDeclName(id, name); err != nil {
				return err
			}
		case ctypes.Dtypedef:
			if _, ok := t.squashed[id]; ok {
				continue
			}
			if _, err := t.DeclareDeclName(id, k.Name); err != nil {
				return err
			}
		}
	}

	if err := t.nameAnonymous(ctx, anonymous); err != nil {
		return err
	}

	typedefs := lo.Keys(t.squashed)
	sort.Slice(typedefs, func(i, j int) bool { return typedefs[i] < typedefs[j] })
	for _, td := range typedefs {
		if err := t.AliasDeclName(td, t.squashed[td]); err != nil {
			return err
		}
	}

	for _, id := range decls {
		fields, ok := ctypes.RecordFields(ctx.Decl(id).Kind)
		if !ok {
			continue
		}
		for _, f := range fields {
			if _, err := t.fieldName(ctx, id, f); err != nil {
				return err
			}
		}
	}
	return nil
}

// anonymousTag returns the declaration of an unnamed record or enum
// spelled by id, looking through elaboration only
func anonymousTag(ctx *ctypes.Context, id ctypes.TypeID) (ctypes.DeclID, bool) {
	for {
		switch ty := ctx.Index(id).(type) {
		case ctypes.Telaborated:
			id = ty.Inner
		case ctypes.Tparen:
			id = ty.Inner
		case ctypes.Tstruct:
			return ty.Decl, ctx.Decl(ty.Decl).Kind.DeclName() == ""
		case ctypes.Tunion:
			return ty.Decl, ctx.Decl(ty.Decl).Kind.DeclName() == ""
		case ctypes.Tenum:
			return ty.Decl, ctx.Decl(ty.Decl).Kind.DeclName() == ""
		default:
			return 0, false
		}
	}
}

type fieldUse struct {
	record ctypes.DeclID
	field  string
}

func (t *TypeConverter) nameAnonymous(ctx *ctypes.Context, anonymous []ctypes.DeclID) error {
	if len(anonymous) == 0 {
		return nil
	}

	holder := make(map[ctypes.DeclID]fieldUse)
	for _, id := range ctx.Decls() {
		fields, ok := ctypes.RecordFields(ctx.Decl(id).Kind)
		if !ok {
			continue
		}
		for _, fid := range fields {
			f := ctx.Decl(fid).Kind.(ctypes.Dfield)
			inner, ok := anonymousTag(ctx, f.Typ.Type)
			if !ok || f.Name == "" {
				continue
			}
			if _, seen := holder[inner]; !seen {
				holder[inner] = fieldUse{record: id, field: f.Name}
			}
		}
	}

	// a holder may itself be anonymous, so name outward-in until stuck
	pending := anonymous
	for progress := true; progress; {
		progress = false
		var next []ctypes.DeclID
		for _, id := range pending {
			use, ok := holder[id]
			if !ok {
				next = append(next, id)
				continue
			}
			if _, named := t.ResolveDeclName(use.record); !named {
				next = append(next, id)
				continue
			}
			name := t.ResolveDeclSuffixName(use.record, "_"+use.field)
			if err := t.names.Bind(id, name); err != nil {
				return diag.Wrap(diag.NameCollision, err, "name anonymous record")
			}
			t.log.WithFields(logrus.Fields{"decl": id, "name": name}).Debug("declared name")
			progress = true
		}
		pending = next
	}

	for _, id := range pending {
		if _, err := t.DeclareDeclName(id, unnamedDecl); err != nil {
			return err
		}
	}
	return nil
}

func (t *TypeConverter) fieldName(ctx *ctypes.Context, record, field ctypes.DeclID) (string, error) {
	if name, ok := t.ResolveFieldName(&record, field); ok {
		return name, nil
	}
	return t.DeclareFieldName(record, field, ctx.Decl(field).Kind.DeclName())
}

// IsSquashed reports whether typedef decl was folded into the anonymous
// record it names
func (t *TypeConverter) IsSquashed(decl ctypes.DeclID) bool {
	_, ok := t.squashed[decl]
	return ok
}

// ConvertRecord builds the definition of a struct or union. Runs of
// bitfields share one storage field; padding the front-end's layout
// requires is spelled out as byte arrays.
func (t *TypeConverter) ConvertRecord(ctx *ctypes.Context, decl ctypes.DeclID) (rast.StructDef, error) {
	name, ok := t.ResolveDeclName(decl)
	if !ok {
		return rast.StructDef{}, diag.Invariantf("unknown decl id %d", decl)
	}
	_, isUnion := ctx.Decl(decl).Kind.(ctypes.Dunion)
	layout, ok := ctx.RecordLayout(decl)
	if !ok && len(layout.Slots) == 0 {
		return rast.StructDef{}, diag.Invariantf("decl %d is not a record", decl)
	}

	def := rast.StructDef{
		Name:  name,
		Union: isUnion,
		Attrs: []string{"derive(Copy, Clone)", "repr(C)"},
	}
	padding := 0
	addPadding := func(n int64) {
		def.Fields = append(def.Fields, rast.StructField{
			Name: t.DeclarePadding(decl, padding),
			Ty:   rast.TyArray{Elem: rast.PathTy("u8"), Len: rast.Int(uint64(n))},
		})
		padding++
	}

	for _, slot := range layout.Slots {
		if slot.PadBefore > 0 {
			addPadding(slot.PadBefore)
		}

		if slot.Bitfield {
			storage, err := t.storageName(ctx, decl, slot)
			if err != nil {
				return rast.StructDef{}, err
			}
			unit, ok := unitTy(slot.Size, false)
			if !ok {
				return rast.StructDef{}, diag.Unsupportedf("bitfield storage of %d bytes in %s", slot.Size, name)
			}
			def.Fields = append(def.Fields, rast.StructField{Name: storage, Ty: unit})
			continue
		}

		fid := slot.Fields[0]
		fname, err := t.fieldName(ctx, decl, fid)
		if err != nil {
			return rast.StructDef{}, err
		}
		ty, err := t.Convert(ctx, ctx.Decl(fid).Kind.(ctypes.Dfield).Typ.Type)
		if err != nil {
			return rast.StructDef{}, err
		}
		def.Fields = append(def.Fields, rast.StructField{Name: fname, Ty: ty})
	}

	if layout.TailPad > 0 {
		addPadding(layout.TailPad)
	}
	return def, nil
}

// ConvertTypedef builds the alias for a typedef. Typedefs folded into an
// anonymous record produce nothing.
func (t *TypeConverter) ConvertTypedef(ctx *ctypes.Context, decl ctypes.DeclID) (rast.TypeAlias, bool, error) {
	if t.IsSquashed(decl) {
		return rast.TypeAlias{}, false, nil
	}
	td, ok := ctx.Decl(decl).Kind.(ctypes.Dtypedef)
	if !ok {
		return rast.TypeAlias{}, false, diag.Invariantf("decl %d is not a typedef", decl)
	}
	name, ok := t.ResolveDeclName(decl)
	if !ok {
		return rast.TypeAlias{}, false, diag.Invariantf("unknown decl id %d", decl)
	}
	ty, err := t.Convert(ctx, td.Typ.Type)
	if err != nil {
		return rast.TypeAlias{}, false, err
	}
	return rast.TypeAlias{Name: name, Ty: ty}, true, nil
}

// ConvertEnum spells an enum as an alias of its underlying integer type
func (t *TypeConverter) ConvertEnum(ctx *ctypes.Context, decl ctypes.DeclID) (rast.TypeAlias, error) {
	name, ok := t.ResolveDeclName(decl)
	if !ok {
		return rast.TypeAlias{}, diag.Invariantf("unknown decl id %d", decl)
	}
	ty, err := t.Convert(ctx, ctx.EnumIntegral(decl))
	if err != nil {
		return rast.TypeAlias{}, err
	}
	return rast.TypeAlias{Name: name, Ty: ty}, nil
}

// BitfieldStorage locates a bitfield within its storage unit
type BitfieldStorage struct {
	Storage  string  // name of the storage field
	UnitTy   rast.Ty // unsigned integer of the unit's size
	SignedTy rast.Ty // signed integer of the unit's size
	UnitBits uint64
	Offset   uint64
	Width    uint64
	Signed   bool
}

// Mask selects the bitfield's bits within the unit
func (b BitfieldStorage) Mask() uint64 {
	return (uint64(1)<<b.Width - 1) << b.Offset
}

// Bitfield returns where field is stored
func (t *TypeConverter) Bitfield(ctx *ctypes.Context, field ctypes.DeclID) (BitfieldStorage, error) {
	f, ok := ctx.Decl(field).Kind.(ctypes.Dfield)
	if !ok || !f.IsBitfield() {
		return BitfieldStorage{}, diag.Invariantf("decl %d is not a bitfield", field)
	}
	record, ok := ctx.FieldRecord(field)
	if !ok {
		return BitfieldStorage{}, diag.Invariantf("field %d belongs to no record", field)
	}
	layout, _ := ctx.RecordLayout(record)

	for _, slot := range layout.Slots {
		i := lo.IndexOf(slot.Fields, field)
		if !slot.Bitfield || i < 0 {
			continue
		}
		storage, err := t.storageName(ctx, record, slot)
		if err != nil {
			return BitfieldStorage{}, err
		}
		unit, okU := unitTy(slot.Size, false)
		signed, okS := unitTy(slot.Size, true)
		if !okU || !okS {
			return BitfieldStorage{}, diag.Unsupportedf("bitfield storage of %d bytes", slot.Size)
		}
		return BitfieldStorage{
			Storage:  storage,
			UnitTy:   unit,
			SignedTy: signed,
			UnitBits: uint64(slot.Size) * 8,
			Offset:   slot.BitOffsets[i],
			Width:    *f.BitWidth,
			Signed:   isSignedBitfield(ctx, f.Typ.Type),
		}, nil
	}
	return BitfieldStorage{}, diag.Invariantf("bitfield %q has no width", f.Name)
}

// storageName names the field holding a run of bitfields after the
// bitfields it holds
func (t *TypeConverter) storageName(ctx *ctypes.Context, record ctypes.DeclID, slot ctypes.Slot) (string, error) {
	scope := t.fieldScope(record)
	key := fieldKey{kind: keyStorage, field: slot.Fields[0]}
	if name, ok := scope.Get(key); ok {
		return name, nil
	}
	parts := make([]string, 0, len(slot.Fields))
	for _, fid := range slot.Fields {
		name, err := t.fieldName(ctx, record, fid)
		if err != nil {
			return "", err
		}
		parts = append(parts, name)
	}
	name, err := scope.Insert(key, strings.Join(parts, "_"))
	if err != nil {
		return "", diag.Wrap(diag.NameCollision, err, "declare bitfield storage")
	}
	t.log.WithFields(logrus.Fields{"record": record, "storage": name}).Debug("bitfield storage")
	return name, nil
}

func unitTy(size int64, signed bool) (rast.Ty, bool) {
	kinds := map[int64][2]ctypes.IntKind{
		1:  {ctypes.UChar, ctypes.SChar},
		2:  {ctypes.UShort, ctypes.Short},
		4:  {ctypes.UInt, ctypes.Int},
		8:  {ctypes.ULong, ctypes.Long},
		16: {ctypes.UInt128, ctypes.Int128},
	}
	k, ok := kinds[size]
	if !ok {
		return nil, false
	}
	if signed {
		return intTy(k[1]), true
	}
	return intTy(k[0]), true
}

func isSignedBitfield(ctx *ctypes.Context, id ctypes.TypeID) bool {
	switch ty := ctx.ResolveType(id).(type) {
	case ctypes.Tint:
		return !ty.Kind.IsUnsigned()
	case ctypes.Tenum:
		return !ctx.IsUnsignedIntegralType(ctx.EnumIntegral(ty.Decl))
	}
	return false
}
