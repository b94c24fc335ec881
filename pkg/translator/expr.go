package translator

import (
	"github.com/raymyers/ralph-c2rust/pkg/ctypes"
	"github.com/raymyers/ralph-c2rust/pkg/diag"
	"github.com/raymyers/ralph-c2rust/pkg/rast"
	"github.com/raymyers/ralph-c2rust/pkg/typeconv"
)

// ConvertExpr translates the expression id. Errors carry the expression's
// source position.
func (t *Translation) ConvertExpr(ctx ExprContext, id ctypes.ExprID) (WithStmts[rast.Expr], error) {
	e, ok := t.ctx.LookupExpr(id)
	if !ok {
		return WithStmts[rast.Expr]{}, diag.Invariantf("unknown expression id %d", id)
	}
	w, err := t.convertExpr(ctx, id, e)
	if err != nil {
		return WithStmts[rast.Expr]{}, diag.At(err, t.loc(id))
	}
	return w, nil
}

func (t *Translation) convertExpr(ctx ExprContext, id ctypes.ExprID, e ctypes.Expr) (WithStmts[rast.Expr], error) {
	switch k := e.Kind.(type) {
	case ctypes.Eliteral:
		return Pure(t.convertLiteral(e.Typ, k)), nil

	case ctypes.EdeclRef:
		name, err := t.valueName(k.Decl)
		if err != nil {
			return WithStmts[rast.Expr]{}, err
		}
		if v, ok := t.ctx.Decl(k.Decl).Kind.(ctypes.Dvariable); ok && v.Static {
			return UnsafeVal[rast.Expr](rast.Ident(name)), nil
		}
		return Pure[rast.Expr](rast.Ident(name)), nil

	case ctypes.Emember:
		return t.convertMember(ctx, k)

	case ctypes.Eindex:
		return t.convertIndex(ctx, k)

	case ctypes.Eunary:
		return t.ConvertUnaryOperator(ctx, k.Op, e.Typ, k.Arg, LValue)

	case ctypes.Ebinary:
		return t.ConvertBinaryExpr(ctx, e.Typ, k.Op, k.LHS, k.RHS, k.ComputeLHSType, k.ComputeResultType)

	case ctypes.EimplicitCast:
		return t.convertCast(ctx, e.Typ, k.Kind, k.Arg)
	case ctypes.EexplicitCast:
		return t.convertCast(ctx, e.Typ, k.Kind, k.Arg)

	case ctypes.Eparen:
		return t.ConvertExpr(ctx, k.Inner)
	}
	return WithStmts[rast.Expr]{}, diag.Invariantf("unhandled expression %T", e.Kind)
}

func (t *Translation) convertLiteral(typ ctypes.QualType, lit ctypes.Eliteral) rast.Expr {
	if lit.Lit != ctypes.LitFloat {
		return rast.Int(lit.Int)
	}
	if f, ok := t.ctx.ResolveType(typ.Type).(ctypes.Tfloat); ok && f.Kind == ctypes.LongDouble {
		return t.f128Lit(lit.Float)
	}
	return rast.Float(lit.Float)
}

// f128Lit builds a long double constant
func (t *Translation) f128Lit(v float64) rast.Expr {
	t.types.UseFeature(typeconv.FeatureF128)
	return rast.CallPath(rast.Path("f128", "f128", "new"), rast.Float(v))
}

// fieldName returns the Rust name of a record member
func (t *Translation) fieldName(field ctypes.DeclID) (string, error) {
	record, ok := t.ctx.FieldRecord(field)
	if !ok {
		return "", diag.Invariantf("field %d belongs to no record", field)
	}
	if name, ok := t.types.ResolveFieldName(&record, field); ok {
		return name, nil
	}
	return t.types.DeclareFieldName(record, field, t.ctx.Decl(field).Kind.DeclName())
}

// bitfieldMember reports whether id names a bitfield member
func (t *Translation) bitfieldMember(id ctypes.ExprID) (ctypes.Emember, bool) {
	m, ok := t.ctx.Expr(t.skipParens(id)).Kind.(ctypes.Emember)
	if !ok {
		return ctypes.Emember{}, false
	}
	f, ok := t.ctx.Decl(m.Field).Kind.(ctypes.Dfield)
	return m, ok && f.IsBitfield()
}

func (t *Translation) convertMember(ctx ExprContext, m ctypes.Emember) (WithStmts[rast.Expr], error) {
	if f, ok := t.ctx.Decl(m.Field).Kind.(ctypes.Dfield); ok && f.IsBitfield() {
		return WithStmts[rast.Expr]{}, diag.Unsupportedf("bitfield %q used as a place", f.Name)
	}
	var s seq
	b, err := t.ConvertExpr(ctx.Used(), m.Base)
	if err != nil {
		return WithStmts[rast.Expr]{}, err
	}
	base := s.take(b)
	if m.Arrow {
		base = rast.DerefOf(base)
		s.markUnsafe()
	}
	name, err := t.fieldName(m.Field)
	if err != nil {
		return WithStmts[rast.Expr]{}, err
	}
	return s.done(rast.Field{X: base, Name: name}), nil
}

// arrayDecayArg returns the array operand of an array-to-pointer decay of
// a fixed or incomplete array
func (t *Translation) arrayDecayArg(id ctypes.ExprID) (ctypes.ExprID, bool) {
	kind, arg, ok := ctypes.CastOf(t.ctx.Expr(t.skipParens(id)).Kind)
	if !ok || kind != ctypes.ArrayToPointerDecay {
		return 0, false
	}
	switch t.ctx.ResolveType(t.ctx.ExprQualType(arg).Type).(type) {
	case ctypes.TconstArray, ctypes.TincompleteArray:
		return arg, true
	}
	return 0, false
}

// subscriptOperands orders the operands of a[i] so the pointer comes first
func (t *Translation) subscriptOperands(k ctypes.Eindex) (base, idx ctypes.ExprID) {
	if !t.isPointer(t.ctx.ExprQualType(k.Base)) && t.isPointer(t.ctx.ExprQualType(k.Index)) {
		return k.Index, k.Base
	}
	return k.Base, k.Index
}

// pointerSubscript reports whether k indexes through a pointer rather than
// an array value
func (t *Translation) pointerSubscript(k ctypes.Eindex) (base, idx ctypes.ExprID, ok bool) {
	base, idx = t.subscriptOperands(k)
	if _, isArray := t.arrayDecayArg(base); isArray {
		return 0, 0, false
	}
	return base, idx, t.isPointer(t.ctx.ExprQualType(base))
}

func (t *Translation) convertIndex(ctx ExprContext, k ctypes.Eindex) (WithStmts[rast.Expr], error) {
	base, idx := t.subscriptOperands(k)
	var s seq

	if arr, ok := t.arrayDecayArg(base); ok {
		a, err := t.ConvertExpr(ctx.Used(), arr)
		if err != nil {
			return WithStmts[rast.Expr]{}, err
		}
		av := s.take(a)
		i, err := t.ConvertExpr(ctx.Used(), idx)
		if err != nil {
			return WithStmts[rast.Expr]{}, err
		}
		return s.done(rast.Index{X: av, Idx: rast.CastTo(s.take(i), rast.PathTy("usize"))}), nil
	}

	p, err := t.ConvertExpr(ctx.Used(), base)
	if err != nil {
		return WithStmts[rast.Expr]{}, err
	}
	pv := s.take(p)
	i, err := t.ConvertExpr(ctx.Used(), idx)
	if err != nil {
		return WithStmts[rast.Expr]{}, err
	}
	iv := s.take(i)
	elem, err := t.pointerOffset(pv, iv, t.ctx.ExprQualType(base), false, true)
	if err != nil {
		return WithStmts[rast.Expr]{}, err
	}
	return s.done(s.take(elem)), nil
}

func (t *Translation) convertCast(ctx ExprContext, typ ctypes.QualType, kind ctypes.CastKind, arg ctypes.ExprID) (WithStmts[rast.Expr], error) {
	switch kind {
	case ctypes.LValueToRValue:
		return t.convertLoad(ctx, arg)

	case ctypes.NoOp:
		return t.ConvertExpr(ctx, arg)

	case ctypes.NullToPointer:
		if t.ctx.IsFunctionPointer(typ.Type) {
			return Pure[rast.Expr](rast.Ident("None")), nil
		}
		ty, err := t.ConvertType(typ.Type)
		if err != nil {
			return WithStmts[rast.Expr]{}, err
		}
		return Pure[rast.Expr](rast.CastTo(rast.Int(0), ty)), nil
	}

	w, err := t.ConvertExpr(ctx.Used(), arg)
	if err != nil {
		return WithStmts[rast.Expr]{}, err
	}
	argType := t.ctx.ExprQualType(arg)

	switch kind {
	case ctypes.IntegralToBoolean:
		return Map(w, func(x rast.Expr) rast.Expr { return rast.Bin(rast.Ne, x, rast.Int(0)) }), nil

	case ctypes.FunctionToPointerDecay:
		return Map(w, func(x rast.Expr) rast.Expr { return rast.CallPath(rast.Ident("Some"), x) }), nil

	case ctypes.ArrayToPointerDecay:
		if _, vla := t.ctx.ResolveType(argType.Type).(ctypes.TvariableArray); vla {
			return w, nil
		}
		method := "as_mut_ptr"
		if pointee, ok := t.ctx.GetPointeeQualType(typ.Type); ok && pointee.Quals.Const {
			method = "as_ptr"
		}
		return Map(w, func(x rast.Expr) rast.Expr { return rast.Method(x, method) }), nil
	}

	ty, err := t.ConvertType(typ.Type)
	if err != nil {
		return WithStmts[rast.Expr]{}, err
	}
	if kind == ctypes.BitCast && (t.ctx.IsFunctionPointer(typ.Type) || t.ctx.IsFunctionPointer(argType.Type)) {
		from, err := t.ConvertType(argType.Type)
		if err != nil {
			return WithStmts[rast.Expr]{}, err
		}
		var s seq
		v := s.take(w)
		s.markUnsafe()
		return s.done(t.transmute(ctx, v, from, ty)), nil
	}
	return Map(w, func(x rast.Expr) rast.Expr { return rast.CastTo(x, ty) }), nil
}

// convertLoad reads the value of the lvalue arg
func (t *Translation) convertLoad(ctx ExprContext, arg ctypes.ExprID) (WithStmts[rast.Expr], error) {
	inner := t.skipParens(arg)
	argType := t.ctx.ExprQualType(arg)

	if u, ok := t.ctx.Expr(inner).Kind.(ctypes.Eunary); ok && u.Op == ctypes.Deref {
		return t.ConvertUnaryOperator(ctx, ctypes.Deref, argType, u.Arg, RValue)
	}
	if m, ok := t.bitfieldMember(inner); ok {
		return t.convertBitfieldRead(ctx, m)
	}

	w, err := t.ConvertExpr(ctx, arg)
	if err != nil || !argType.Quals.Volatile {
		return w, err
	}
	var s seq
	v, err := t.volatileReadOf(s.take(w), argType)
	if err != nil {
		return WithStmts[rast.Expr]{}, err
	}
	s.markUnsafe()
	return s.done(v), nil
}

// ConvertCondition translates id as a Rust bool that holds when the C value
// is true, or when it is false if target is unset
func (t *Translation) ConvertCondition(ctx ExprContext, target bool, id ctypes.ExprID) (WithStmts[rast.Expr], error) {
	inner := t.skipParens(id)
	switch k := t.ctx.Expr(inner).Kind.(type) {
	case ctypes.Ebinary:
		if k.Op == ctypes.Eq || k.Op == ctypes.Ne {
			if ptr, ok := t.nullComparison(k); ok {
				return t.convertNullTest(ctx, (k.Op == ctypes.Eq) == target, ptr)
			}
		}
	case ctypes.Eunary:
		if k.Op == ctypes.Not {
			return t.ConvertCondition(ctx, !target, k.Arg)
		}
	}

	w, err := t.ConvertExpr(ctx.Used().WithDecayRef(DecayYes), id)
	if err != nil {
		return WithStmts[rast.Expr]{}, err
	}
	typ := t.ctx.ExprQualType(id)
	return Map(w, func(x rast.Expr) rast.Expr { return t.matchBool(target, typ, x) }), nil
}

// nullComparison returns the pointer operand of a comparison against a null
// pointer constant
func (t *Translation) nullComparison(k ctypes.Ebinary) (ctypes.ExprID, bool) {
	switch {
	case t.ctx.IsNullExpr(k.LHS) && t.isPointer(t.ctx.ExprQualType(k.RHS)):
		return k.RHS, true
	case t.ctx.IsNullExpr(k.RHS) && t.isPointer(t.ctx.ExprQualType(k.LHS)):
		return k.LHS, true
	}
	return 0, false
}

func (t *Translation) convertNullTest(ctx ExprContext, isNull bool, ptr ctypes.ExprID) (WithStmts[rast.Expr], error) {
	w, err := t.ConvertExpr(ctx.Used().WithDecayRef(DecayYes), ptr)
	if err != nil {
		return WithStmts[rast.Expr]{}, err
	}
	fnPtr := t.ctx.IsFunctionPointer(t.ctx.ExprQualType(ptr).Type)
	return Map(w, func(x rast.Expr) rast.Expr { return nullTest(x, fnPtr, isNull) }), nil
}

func nullTest(x rast.Expr, fnPtr, isNull bool) rast.Expr {
	switch {
	case fnPtr && isNull:
		return rast.Method(x, "is_none")
	case fnPtr:
		return rast.Method(x, "is_some")
	case isNull:
		return rast.Method(x, "is_null")
	}
	return rast.NotOf(rast.Method(x, "is_null"))
}

// isBoolExpr reports whether e already has Rust type bool
func isBoolExpr(e rast.Expr) bool {
	switch x := e.(type) {
	case rast.Binary:
		return x.Op.IsComparison() || x.Op == rast.And || x.Op == rast.Or
	case rast.Unary:
		return x.Op == rast.Not && isBoolExpr(x.X)
	case rast.MethodCall:
		switch x.Method {
		case "is_null", "is_none", "is_some":
			return true
		}
	case rast.Lit:
		return x.Kind == rast.LitBool
	}
	return false
}

// matchBool tests a translated C scalar of type typ for truth
func (t *Translation) matchBool(target bool, typ ctypes.QualType, val rast.Expr) rast.Expr {
	if c, ok := val.(rast.Cast); ok && isBoolExpr(c.X) && rast.TyString(c.Ty) == rast.TyString(cInt()) {
		return truth(target, c.X)
	}

	switch k := t.ctx.ResolveType(typ.Type).(type) {
	case ctypes.Tbool:
		return truth(target, val)
	case ctypes.Tpointer:
		return nullTest(val, t.ctx.IsFunctionPointer(typ.Type), !target)
	case ctypes.Tfloat:
		zero := rast.Expr(rast.Float(0))
		if k.Kind == ctypes.LongDouble {
			zero = t.f128Lit(0)
		}
		return zeroTest(target, val, zero)
	}
	return zeroTest(target, val, rast.Int(0))
}

func truth(target bool, b rast.Expr) rast.Expr {
	if target {
		return b
	}
	return rast.NotOf(b)
}

func zeroTest(target bool, val, zero rast.Expr) rast.Expr {
	if target {
		return rast.Bin(rast.Ne, val, zero)
	}
	return rast.Bin(rast.Eq, val, zero)
}
