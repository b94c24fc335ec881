package translator

import (
	"github.com/raymyers/ralph-c2rust/pkg/ctypes"
	"github.com/raymyers/ralph-c2rust/pkg/diag"
	"github.com/raymyers/ralph-c2rust/pkg/rast"
	"github.com/raymyers/ralph-c2rust/pkg/typeconv"
)

// bitfieldAccess is a bitfield member with its record place resolved
type bitfieldAccess struct {
	storage  typeconv.BitfieldStorage
	unit     rast.Expr // the storage field as a place
	field    ctypes.QualType
	fieldTy  rast.Ty
	volatile bool
}

// resolveBitfield translates the record holding m. When bind is set the
// record place is bound so it is evaluated once.
func (t *Translation) resolveBitfield(s *seq, ctx ExprContext, m ctypes.Emember, bind bool) (bitfieldAccess, error) {
	f := t.ctx.Decl(m.Field).Kind.(ctypes.Dfield)
	st, err := t.types.Bitfield(t.ctx, m.Field)
	if err != nil {
		return bitfieldAccess{}, err
	}
	if st.Offset+st.Width > 64 {
		return bitfieldAccess{}, diag.Unsupportedf("bitfield %q ends past bit 64", f.Name)
	}

	b, err := t.ConvertExpr(ctx.Used(), m.Base)
	if err != nil {
		return bitfieldAccess{}, err
	}
	base := s.take(b)
	if m.Arrow {
		base = rast.DerefOf(base)
		s.markUnsafe()
	}
	if bind {
		base = t.bindPlace(s, base)
	}

	fieldTy, err := t.ConvertType(f.Typ.Type)
	if err != nil {
		return bitfieldAccess{}, err
	}
	return bitfieldAccess{
		storage:  st,
		unit:     rast.Field{X: base, Name: st.Storage},
		field:    f.Typ,
		fieldTy:  fieldTy,
		volatile: f.Typ.Quals.Volatile,
	}, nil
}

// readUnit reads the whole storage unit
func (t *Translation) readUnit(s *seq, b bitfieldAccess) rast.Expr {
	if !b.volatile {
		return b.unit
	}
	s.markUnsafe()
	return t.volatileRead(b.unit, b.storage.UnitTy)
}

// extract isolates the bitfield's value from a unit value
func (t *Translation) extract(b bitfieldAccess, unit rast.Expr) rast.Expr {
	st := b.storage
	if st.Signed {
		// shift the field to the top, then arithmetic-shift it back down
		v := unit
		if left := st.UnitBits - st.Offset - st.Width; left > 0 {
			v = rast.Bin(rast.Shl, v, rast.Int(left))
		}
		v = rast.CastTo(v, st.SignedTy)
		if right := st.UnitBits - st.Width; right > 0 {
			v = rast.Bin(rast.Shr, v, rast.Int(right))
		}
		return rast.CastTo(v, b.fieldTy)
	}

	v := unit
	if st.Offset > 0 {
		v = rast.Bin(rast.Shr, v, rast.Int(st.Offset))
	}
	if st.Width < st.UnitBits {
		v = rast.Bin(rast.BitAnd, v, rast.Hex(uint64(1)<<st.Width-1))
	}
	if _, ok := t.ctx.ResolveType(b.field.Type).(ctypes.Tbool); ok {
		return rast.Bin(rast.Ne, v, rast.Int(0))
	}
	return rast.CastTo(v, b.fieldTy)
}

// insert stores val into the bitfield's bits of the unit
func (t *Translation) insert(s *seq, b bitfieldAccess, val rast.Expr) rast.Stmt {
	st := b.storage
	bits := rast.Expr(rast.CastTo(val, st.UnitTy))
	if st.Offset > 0 {
		bits = rast.Bin(rast.Shl, bits, rast.Int(st.Offset))
	}
	merged := rast.Bin(rast.BitOr,
		rast.Bin(rast.BitAnd, t.readUnit(s, b), rast.NotOf(rast.Hex(st.Mask()))),
		rast.Bin(rast.BitAnd, bits, rast.Hex(st.Mask())))
	if b.volatile {
		s.markUnsafe()
		return rast.Semi{X: t.volatileWrite(b.unit, st.UnitTy, merged)}
	}
	return rast.Semi{X: rast.Assign{L: b.unit, R: merged}}
}

func (t *Translation) convertBitfieldRead(ctx ExprContext, m ctypes.Emember) (WithStmts[rast.Expr], error) {
	var s seq
	b, err := t.resolveBitfield(&s, ctx, m, false)
	if err != nil {
		return WithStmts[rast.Expr]{}, err
	}
	return s.done(t.extract(b, t.readUnit(&s, b))), nil
}

// convertBitfieldAssignment stores into a bitfield by read-modify-write of
// its storage unit. With saveOld the result is the value before the store.
func (t *Translation) convertBitfieldAssignment(ctx ExprContext, op ctypes.BinOp, lhs ctypes.ExprID, m ctypes.Emember, rhsType ctypes.QualType, rhs WithStmts[rast.Expr], computeLHS, computeRes *ctypes.QualType, saveOld bool) (WithStmts[rast.Expr], error) {
	var s seq
	rhsVal := s.take(rhs)
	b, err := t.resolveBitfield(&s, ctx, m, true)
	if err != nil {
		return WithStmts[rast.Expr]{}, err
	}
	lhsType := t.ctx.ExprQualType(lhs)

	var result rast.Expr
	newVal := rhsVal
	if op != ctypes.Assign {
		current := t.extract(b, t.readUnit(&s, b))
		if saveOld {
			fresh := t.values.Fresh()
			s.stmt(rast.Local{Name: fresh, Init: current})
			current = rast.Ident(fresh)
			result = current
		}
		underlying, _ := op.UnderlyingAssignment()
		cl, cr := lhsType, lhsType
		if computeLHS != nil {
			cl = *computeLHS
		}
		if computeRes != nil {
			cr = *computeRes
		}
		newVal, err = t.computeInType(&s, ctx, underlying, lhsType, current, rhsVal, rhsType, cl, cr)
		if err != nil {
			return WithStmts[rast.Expr]{}, err
		}
	}

	s.stmt(t.insert(&s, b, newVal))
	t.log.WithField("storage", b.storage.Storage).Debug("bitfield read-modify-write")

	switch {
	case result != nil:
	case ctx.IsUsed():
		result = t.extract(b, t.readUnit(&s, b))
	default:
		result = t.panicOrErr("value is not supposed to be read")
	}
	return s.done(result), nil
}
