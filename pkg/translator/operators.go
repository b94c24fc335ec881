package translator

import (
	"github.com/sirupsen/logrus"

	"github.com/raymyers/ralph-c2rust/pkg/ctypes"
	"github.com/raymyers/ralph-c2rust/pkg/diag"
	"github.com/raymyers/ralph-c2rust/pkg/rast"
)

// Operand is a translated operand with its C type. ID is the expression it
// was translated from, when there is one.
type Operand struct {
	Val  rast.Expr
	Type ctypes.QualType
	ID   *ctypes.ExprID
}

// rustBinOp maps the C arithmetic, bitwise and comparison operators
func rustBinOp(op ctypes.BinOp) rast.BinOp {
	switch op {
	case ctypes.Mul:
		return rast.Mul
	case ctypes.Div:
		return rast.Div
	case ctypes.Rem:
		return rast.Rem
	case ctypes.Add:
		return rast.Add
	case ctypes.Sub:
		return rast.Sub
	case ctypes.Shl:
		return rast.Shl
	case ctypes.Shr:
		return rast.Shr
	case ctypes.Lt:
		return rast.Lt
	case ctypes.Gt:
		return rast.Gt
	case ctypes.Le:
		return rast.Le
	case ctypes.Ge:
		return rast.Ge
	case ctypes.Eq:
		return rast.Eq
	case ctypes.Ne:
		return rast.Ne
	case ctypes.BitAnd:
		return rast.BitAnd
	case ctypes.BitXor:
		return rast.BitXor
	case ctypes.BitOr:
		return rast.BitOr
	case ctypes.And:
		return rast.And
	case ctypes.Or:
		return rast.Or
	}
	panic(diag.Invariantf("no Rust operator for %s", op))
}

// ConvertBinaryExpr translates a binary operator expression of type typ.
// The compute types are set for compound assignments.
func (t *Translation) ConvertBinaryExpr(ctx ExprContext, typ ctypes.QualType, op ctypes.BinOp, lhs, rhs ctypes.ExprID, computeLHS, computeRes *ctypes.QualType) (WithStmts[rast.Expr], error) {
	if !op.IsAssignment() {
		ctx.TernaryNeedsParens = true
	}

	switch op {
	case ctypes.Comma:
		var s seq
		l, err := t.ConvertExpr(ctx.Unused(), lhs)
		if err != nil {
			return WithStmts[rast.Expr]{}, err
		}
		s.stmt(ToStmts(l)...)
		s.unsafe = s.unsafe || l.Unsafe
		r, err := t.ConvertExpr(ctx, rhs)
		if err != nil {
			return WithStmts[rast.Expr]{}, err
		}
		return s.done(s.take(r)), nil

	case ctypes.And, ctypes.Or:
		var s seq
		l, err := t.ConvertCondition(ctx, true, lhs)
		if err != nil {
			return WithStmts[rast.Expr]{}, err
		}
		r, err := t.ConvertCondition(ctx, true, rhs)
		if err != nil {
			return WithStmts[rast.Expr]{}, err
		}
		// the right operand only runs when the left one does not decide
		rval := r.Val
		if len(r.Stmts) > 0 {
			rval = rast.Block{Stmts: r.Stmts, Value: r.Val}
		}
		s.unsafe = r.Unsafe
		val := rast.Bin(rustBinOp(op), s.take(l), rval)
		if ctx.IsUnused() {
			s.stmt(rast.Semi{X: val})
			return s.done(t.panicOrErr("Binary conditional expression is not supposed to be used")), nil
		}
		return s.done(boolToInt(val)), nil
	}

	if op.IsAssignment() {
		return t.convertAssignmentOperator(ctx, op, typ, lhs, rhs, computeLHS, computeRes)
	}

	lhsType := t.ctx.ExprQualType(lhs)
	rhsType := t.ctx.ExprQualType(rhs)
	lctx, rctx := ctx, ctx
	if op == ctypes.Eq || op == ctypes.Ne {
		lctx = lctx.WithDecayRef(DecayYes)
		rctx = rctx.WithDecayRef(DecayYes)
	}

	var s seq
	if ctx.IsUnused() {
		for _, operand := range []struct {
			ctx ExprContext
			id  ctypes.ExprID
		}{{lctx, lhs}, {rctx, rhs}} {
			w, err := t.ConvertExpr(operand.ctx.Unused(), operand.id)
			if err != nil {
				return WithStmts[rast.Expr]{}, err
			}
			s.take(w)
		}
		return s.done(t.panicOrErr("Binary expression is not supposed to be used")), nil
	}

	if (op == ctypes.Add || op == ctypes.Sub) && t.isPointer(lhsType) {
		lctx = lctx.WithDecayRef(DecayYes)
	}
	l, err := t.ConvertExpr(lctx, lhs)
	if err != nil {
		return WithStmts[rast.Expr]{}, err
	}
	lval := s.take(l)
	r, err := t.ConvertExpr(rctx, rhs)
	if err != nil {
		return WithStmts[rast.Expr]{}, err
	}
	rval := s.take(r)

	ty, err := t.ConvertType(typ.Type)
	if err != nil {
		return WithStmts[rast.Expr]{}, err
	}
	res, err := t.ConvertBinaryOperator(ctx, op, ty, typ.Type,
		Operand{Val: lval, Type: lhsType, ID: &lhs},
		Operand{Val: rval, Type: rhsType, ID: &rhs})
	if err != nil {
		return WithStmts[rast.Expr]{}, err
	}
	return s.done(s.take(res)), nil
}

// ConvertBinaryOperator combines two translated operands. ty and ctype are
// the type of the result.
func (t *Translation) ConvertBinaryOperator(ctx ExprContext, op ctypes.BinOp, ty rast.Ty, ctype ctypes.TypeID, lhs, rhs Operand) (WithStmts[rast.Expr], error) {
	isUnsigned := t.ctx.IsUnsignedIntegralType(ctype)

	switch op {
	case ctypes.Add:
		return t.convertAddition(ctx, lhs, rhs)
	case ctypes.Sub:
		return t.convertSubtraction(ctx, ty, lhs, rhs)

	case ctypes.Mul, ctypes.Div, ctypes.Rem:
		if !isUnsigned {
			return Pure[rast.Expr](rast.Bin(rustBinOp(op), lhs.Val, rhs.Val)), nil
		}
		method := map[ctypes.BinOp]string{
			ctypes.Mul: "wrapping_mul",
			ctypes.Div: "wrapping_div",
			ctypes.Rem: "wrapping_rem",
		}[op]
		if ctx.IsConst {
			return WithStmts[rast.Expr]{}, diag.ContextViolationf("cannot use %s in a constant expression", method)
		}
		return Pure[rast.Expr](rast.Method(lhs.Val, method, rhs.Val)), nil

	case ctypes.Shl, ctypes.Shr, ctypes.BitAnd, ctypes.BitXor, ctypes.BitOr:
		return Pure[rast.Expr](rast.Bin(rustBinOp(op), lhs.Val, rhs.Val)), nil

	case ctypes.Eq, ctypes.Ne:
		if cmp, ok := t.functionPointerNullTest(op, lhs, rhs); ok {
			return Pure(boolToInt(cmp)), nil
		}
		return Pure(boolToInt(rast.Bin(rustBinOp(op), lhs.Val, rhs.Val))), nil

	case ctypes.Lt, ctypes.Gt, ctypes.Le, ctypes.Ge:
		return Pure(boolToInt(rast.Bin(rustBinOp(op), lhs.Val, rhs.Val))), nil
	}
	panic(diag.Invariantf("binary operator %s is not a value operator", op))
}

// functionPointerNullTest turns a comparison of a function pointer with a
// null constant into a presence test of the optional pointer
func (t *Translation) functionPointerNullTest(op ctypes.BinOp, lhs, rhs Operand) (rast.Expr, bool) {
	if lhs.ID == nil || rhs.ID == nil {
		return nil, false
	}
	method := "is_none"
	if op == ctypes.Ne {
		method = "is_some"
	}
	switch {
	case t.ctx.IsNullExpr(*rhs.ID) && t.ctx.IsFunctionPointer(lhs.Type.Type):
		return rast.Method(lhs.Val, method), true
	case t.ctx.IsNullExpr(*lhs.ID) && t.ctx.IsFunctionPointer(rhs.Type.Type):
		return rast.Method(rhs.Val, method), true
	}
	return nil, false
}

func (t *Translation) convertAddition(ctx ExprContext, lhs, rhs Operand) (WithStmts[rast.Expr], error) {
	switch {
	case t.isPointer(lhs.Type):
		return t.pointerOffset(lhs.Val, rhs.Val, lhs.Type, false, false)
	case t.isPointer(rhs.Type):
		return t.pointerOffset(rhs.Val, lhs.Val, rhs.Type, false, false)
	case t.ctx.IsUnsignedIntegralType(lhs.Type.Type):
		if ctx.IsConst {
			return WithStmts[rast.Expr]{}, diag.ContextViolationf("cannot use wrapping_add in a constant expression")
		}
		return Pure[rast.Expr](rast.Method(lhs.Val, "wrapping_add", rhs.Val)), nil
	}
	return Pure[rast.Expr](rast.Bin(rast.Add, lhs.Val, rhs.Val)), nil
}

func (t *Translation) convertSubtraction(ctx ExprContext, ty rast.Ty, lhs, rhs Operand) (WithStmts[rast.Expr], error) {
	switch {
	case t.isPointer(lhs.Type) && t.isPointer(rhs.Type):
		return t.pointerDistance(ctx, ty, lhs.Val, rhs.Val, lhs.Type)
	case t.isPointer(lhs.Type):
		return t.pointerOffset(lhs.Val, rhs.Val, lhs.Type, true, false)
	case t.ctx.IsUnsignedIntegralType(lhs.Type.Type):
		if ctx.IsConst {
			return WithStmts[rast.Expr]{}, diag.ContextViolationf("cannot use wrapping_sub in a constant expression")
		}
		return Pure[rast.Expr](rast.Method(lhs.Val, "wrapping_sub", rhs.Val)), nil
	}
	return Pure[rast.Expr](rast.Bin(rast.Sub, lhs.Val, rhs.Val)), nil
}

func (t *Translation) convertAssignmentOperator(ctx ExprContext, op ctypes.BinOp, typ ctypes.QualType, lhs, rhs ctypes.ExprID, computeLHS, computeRes *ctypes.QualType) (WithStmts[rast.Expr], error) {
	rhsType := t.ctx.ExprQualType(rhs)
	r, err := t.ConvertExpr(ctx.Used(), rhs)
	if err != nil {
		return WithStmts[rast.Expr]{}, err
	}
	return t.convertAssignmentOperatorWithRHS(ctx, op, typ, lhs, rhsType, r, computeLHS, computeRes)
}

func isUnsignedArithAssign(op ctypes.BinOp) bool {
	switch op {
	case ctypes.AddAssign, ctypes.SubAssign, ctypes.MulAssign, ctypes.DivAssign, ctypes.RemAssign:
		return true
	}
	return false
}

// convertAssignmentOperatorWithRHS stores the already translated rhs into
// lhs with assignment operator op. The result is the stored value when ctx
// is used.
func (t *Translation) convertAssignmentOperatorWithRHS(ctx ExprContext, op ctypes.BinOp, typ ctypes.QualType, lhs ctypes.ExprID, rhsType ctypes.QualType, rhs WithStmts[rast.Expr], computeLHS, computeRes *ctypes.QualType) (WithStmts[rast.Expr], error) {
	if field, ok := t.bitfieldMember(lhs); ok {
		return t.convertBitfieldAssignment(ctx, op, lhs, field, rhsType, rhs, computeLHS, computeRes, false)
	}

	lhsType := t.ctx.ExprQualType(lhs)
	computeLHSType, computeResType := lhsType, lhsType
	if computeLHS != nil {
		computeLHSType = *computeLHS
	}
	if computeRes != nil {
		computeResType = *computeRes
	}

	isVolatile := lhsType.Quals.Volatile
	isVolatileCompound := isVolatile && op != ctypes.Assign
	isUnsignedArith := isUnsignedArithAssign(op) && t.ctx.IsUnsignedIntegralType(computeResType.Type)
	pointerLHS := t.isPointer(lhsType)
	sameCompute := t.sameType(lhsType.Type, computeLHSType.Type)

	var s seq
	rhsVal := s.take(rhs)

	var ref WithStmts[place]
	var err error
	if !sameCompute || ctx.IsUsed() || pointerLHS || isVolatileCompound || isUnsignedArith {
		ref, err = t.nameReferenceWriteRead(ctx, lhs)
	} else {
		ref, err = t.nameReferenceWrite(ctx, lhs)
	}
	if err != nil {
		return WithStmts[rast.Expr]{}, err
	}
	s.stmts = append(s.stmts, ref.Stmts...)
	s.unsafe = s.unsafe || ref.Unsafe
	write, read := ref.Val.write, ref.Val.read
	underlying, _ := op.UnderlyingAssignment()

	lhsTy, err := t.ConvertType(lhsType.Type)
	if err != nil {
		return WithStmts[rast.Expr]{}, err
	}
	store := func(val rast.Expr) rast.Expr {
		if isVolatile {
			s.markUnsafe()
			return t.volatileWrite(write, lhsTy, val)
		}
		return rast.Assign{L: write, R: val}
	}

	var assign rast.Expr
	switch {
	case op == ctypes.Assign:
		assign = store(rhsVal)

	case pointerLHS && (op == ctypes.AddAssign || op == ctypes.SubAssign):
		moved, err := t.pointerOffset(read, rhsVal, lhsType, op == ctypes.SubAssign, false)
		if err != nil {
			return WithStmts[rast.Expr]{}, err
		}
		assign = store(s.take(moved))

	case isVolatile || isUnsignedArith || !sameCompute:
		if isVolatile {
			t.log.WithField("op", op.String()).Debug("volatile compound assignment desugared")
		}
		val, err := t.computeInType(&s, ctx, underlying, lhsType, read, rhsVal, rhsType, computeLHSType, computeResType)
		if err != nil {
			return WithStmts[rast.Expr]{}, err
		}
		assign = store(val)

	default:
		assign = rast.AssignOp{Op: rustBinOp(underlying), L: write, R: rhsVal}
	}

	s.stmt(rast.Semi{X: assign})
	return s.done(read), nil
}

// computeInType applies op to the current value read and rhs in the
// compute types, then brings the result back to the stored type typ.
// Enum results are reinterpreted rather than cast.
func (t *Translation) computeInType(s *seq, ctx ExprContext, op ctypes.BinOp, typ ctypes.QualType, read, rhs rast.Expr, rhsType, computeLHS, computeRes ctypes.QualType) (rast.Expr, error) {
	lhsVal := read
	if !t.sameType(typ.Type, computeLHS.Type) {
		ty, err := t.ConvertType(computeLHS.Type)
		if err != nil {
			return nil, err
		}
		lhsVal = rast.CastTo(read, ty)
	}

	resTy, err := t.ConvertType(computeRes.Type)
	if err != nil {
		return nil, err
	}
	res, err := t.ConvertBinaryOperator(ctx, op, resTy, computeRes.Type,
		Operand{Val: lhsVal, Type: computeLHS},
		Operand{Val: rhs, Type: rhsType})
	if err != nil {
		return nil, err
	}
	val := s.take(res)

	if t.sameType(typ.Type, computeRes.Type) {
		return val, nil
	}
	storeTy, err := t.ConvertType(typ.Type)
	if err != nil {
		return nil, err
	}
	if t.ctx.IsEnum(typ.Type) {
		s.markUnsafe()
		return t.transmute(ctx, val, resTy, storeTy), nil
	}
	return rast.CastTo(val, storeTy), nil
}

// ConvertUnaryOperator translates a unary operator applied to arg. lrvalue
// says whether a dereference is read as a value.
func (t *Translation) ConvertUnaryOperator(ctx ExprContext, op ctypes.UnOp, cqual ctypes.QualType, arg ctypes.ExprID, lrvalue LRValue) (WithStmts[rast.Expr], error) {
	switch op {
	case ctypes.AddressOf:
		return t.convertAddressOf(ctx, cqual, arg)
	case ctypes.Deref:
		return t.convertDeref(ctx, cqual, arg, lrvalue)
	case ctypes.PreInc, ctypes.PreDec:
		return t.convertPreIncrement(ctx, cqual, op == ctypes.PreInc, arg)
	case ctypes.PostInc, ctypes.PostDec:
		return t.convertPostIncrement(ctx, cqual, op == ctypes.PostInc, arg)
	case ctypes.Plus, ctypes.Extension:
		return t.ConvertExpr(ctx, arg)

	case ctypes.Negate:
		w, err := t.ConvertExpr(ctx, arg)
		if err != nil {
			return WithStmts[rast.Expr]{}, err
		}
		if !t.ctx.IsUnsignedIntegralType(cqual.Type) {
			return Map(w, func(x rast.Expr) rast.Expr { return rast.NegOf(x) }), nil
		}
		if ctx.IsConst {
			return WithStmts[rast.Expr]{}, diag.ContextViolationf("cannot use wrapping_neg in a constant expression")
		}
		return Map(w, func(x rast.Expr) rast.Expr { return rast.Method(x, "wrapping_neg") }), nil

	case ctypes.Complement:
		w, err := t.ConvertExpr(ctx, arg)
		if err != nil {
			return WithStmts[rast.Expr]{}, err
		}
		return Map(w, func(x rast.Expr) rast.Expr { return rast.NotOf(x) }), nil

	case ctypes.Not:
		w, err := t.ConvertCondition(ctx, false, arg)
		if err != nil {
			return WithStmts[rast.Expr]{}, err
		}
		return Map(w, boolToInt), nil
	}
	panic(diag.Unsupportedf("unary operator %s has no Rust equivalent", op))
}

func (t *Translation) convertAddressOf(ctx ExprContext, cqual ctypes.QualType, arg ctypes.ExprID) (WithStmts[rast.Expr], error) {
	inner := t.skipParens(arg)
	switch k := t.ctx.Expr(inner).Kind.(type) {
	case ctypes.Eunary:
		if k.Op == ctypes.Deref {
			return t.ConvertExpr(ctx, k.Arg)
		}
	case ctypes.Eindex:
		// &p[i] is p + i
		if base, idx, ok := t.pointerSubscript(k); ok {
			return t.ConvertBinaryExpr(ctx.Used(), cqual, ctypes.Add, base, idx, nil, nil)
		}
	case ctypes.EdeclRef, ctypes.Emember:
		ctx.DecayRef = ctx.DecayRef.defaultToNo()
	}

	w, err := t.ConvertExpr(ctx.Used(), arg)
	if err != nil {
		return WithStmts[rast.Expr]{}, err
	}
	if t.ctx.IsFunctionPointer(cqual.Type) {
		return Map(w, func(x rast.Expr) rast.Expr { return rast.CallPath(rast.Ident("Some"), x) }), nil
	}

	pointee, _ := t.ctx.GetPointeeQualType(cqual.Type)
	mutable := !pointee.Quals.Const
	ptrTy, err := t.ConvertType(cqual.Type)
	if err != nil {
		return WithStmts[rast.Expr]{}, err
	}

	if ctx.IsStatic && mutable {
		// no &mut in static initializers
		elemTy, err := t.ConvertType(pointee.Type)
		if err != nil {
			return WithStmts[rast.Expr]{}, err
		}
		return Map(w, func(x rast.Expr) rast.Expr {
			return rast.CastTo(rast.CastTo(rast.AddrOf{X: x}, rast.Ptr(false, elemTy)), ptrTy)
		}), nil
	}

	return Map(w, func(x rast.Expr) rast.Expr {
		addr := rast.Expr(rast.AddrOf{Mutable: mutable && !ctx.IsStatic, X: x})
		if ctx.DecayRef.IsNo() {
			return addr
		}
		return rast.CastTo(addr, ptrTy)
	}), nil
}

func (t *Translation) convertDeref(ctx ExprContext, cqual ctypes.QualType, arg ctypes.ExprID, lrvalue LRValue) (WithStmts[rast.Expr], error) {
	inner := t.skipParens(arg)
	if u, ok := t.ctx.Expr(inner).Kind.(ctypes.Eunary); ok && u.Op == ctypes.AddressOf {
		return t.ConvertExpr(ctx, u.Arg)
	}

	w, err := t.ConvertExpr(ctx.Used(), arg)
	if err != nil {
		return WithStmts[rast.Expr]{}, err
	}
	pointee, ok := t.ctx.GetPointeeQualType(t.ctx.ExprQualType(arg).Type)
	if !ok {
		return WithStmts[rast.Expr]{}, diag.Invariantf("dereference of non-pointer %s", t.ctx.ResolveType(t.ctx.ExprQualType(arg).Type))
	}

	switch t.ctx.ResolveType(pointee.Type).(type) {
	case ctypes.Tfunction:
		return Map(w, func(x rast.Expr) rast.Expr {
			return rast.Method(x, "expect", rast.Str("non-null function pointer"))
		}), nil
	case ctypes.TvariableArray:
		return w, nil
	}

	var s seq
	deref := rast.Expr(rast.DerefOf(s.take(w)))
	s.markUnsafe()
	if lrvalue == RValue && cqual.Quals.Volatile {
		ty, err := t.ConvertType(cqual.Type)
		if err != nil {
			return WithStmts[rast.Expr]{}, err
		}
		deref = t.volatileRead(deref, ty)
	}
	return s.done(deref), nil
}

// one is the literal 1 of type id
func (t *Translation) one(id ctypes.TypeID) rast.Expr {
	f, ok := t.ctx.ResolveType(id).(ctypes.Tfloat)
	switch {
	case !ok:
		return rast.Int(1)
	case f.Kind == ctypes.LongDouble:
		return t.f128Lit(1)
	}
	return rast.Float(1)
}

func (t *Translation) convertPreIncrement(ctx ExprContext, cqual ctypes.QualType, up bool, arg ctypes.ExprID) (WithStmts[rast.Expr], error) {
	op := ctypes.AddAssign
	if !up {
		op = ctypes.SubAssign
	}
	argType := t.ctx.ExprQualType(arg)
	return t.convertAssignmentOperatorWithRHS(ctx.Used(), op, argType, arg, cqual, Pure(t.one(cqual.Type)), &argType, &argType)
}

func (t *Translation) convertPostIncrement(ctx ExprContext, cqual ctypes.QualType, up bool, arg ctypes.ExprID) (WithStmts[rast.Expr], error) {
	if ctx.IsUnused() {
		return t.convertPreIncrement(ctx, cqual, up, arg)
	}

	argType := t.ctx.ExprQualType(arg)
	if field, ok := t.bitfieldMember(arg); ok {
		op := ctypes.AddAssign
		if !up {
			op = ctypes.SubAssign
		}
		return t.convertBitfieldAssignment(ctx, op, arg, field, cqual, Pure(t.one(cqual.Type)), &argType, &argType, true)
	}

	ref, err := t.nameReferenceWriteRead(ctx, arg)
	if err != nil {
		return WithStmts[rast.Expr]{}, err
	}
	s := seq{stmts: ref.Stmts, unsafe: ref.Unsafe}
	write, read := ref.Val.write, ref.Val.read

	fresh := t.values.Fresh()
	s.stmt(rast.Local{Name: fresh, Init: read})
	old := rast.Ident(fresh)

	var val rast.Expr
	switch {
	case t.isPointer(argType):
		moved, err := t.pointerOffset(old, rast.Int(1), argType, !up, false)
		if err != nil {
			return WithStmts[rast.Expr]{}, err
		}
		val = s.take(moved)
	case t.ctx.IsUnsignedIntegralType(cqual.Type):
		method := "wrapping_add"
		if !up {
			method = "wrapping_sub"
		}
		val = rast.Method(old, method, t.one(cqual.Type))
	default:
		k := rast.Add
		if !up {
			k = rast.Sub
		}
		val = rast.Bin(k, old, t.one(cqual.Type))
	}

	if argType.Quals.Volatile {
		ty, err := t.ConvertType(argType.Type)
		if err != nil {
			return WithStmts[rast.Expr]{}, err
		}
		s.markUnsafe()
		s.stmt(rast.Semi{X: t.volatileWrite(write, ty, val)})
	} else {
		s.stmt(rast.Semi{X: rast.Assign{L: write, R: val}})
	}
	t.log.WithFields(logrus.Fields{"temp": fresh}).Debug("post-increment saved old value")
	return s.done(old), nil
}
