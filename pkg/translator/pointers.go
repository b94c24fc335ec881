package translator

import (
	"github.com/raymyers/ralph-c2rust/pkg/ctypes"
	"github.com/raymyers/ralph-c2rust/pkg/diag"
	"github.com/raymyers/ralph-c2rust/pkg/rast"
	"github.com/raymyers/ralph-c2rust/pkg/typeconv"
)

func isize() rast.Ty { return rast.PathTy("isize") }

// elementSize is the size in bytes of one element pointed to by a pointer
// to pointee. Variable-length arrays multiply their runtime count in.
func (t *Translation) elementSize(pointee ctypes.TypeID) (WithStmts[rast.Expr], error) {
	if size, ok := t.ctx.SizeOf(pointee); ok {
		return Pure[rast.Expr](rast.Int(uint64(size))), nil
	}

	vla, ok := t.ctx.ResolveType(pointee).(ctypes.TvariableArray)
	if !ok {
		return WithStmts[rast.Expr]{}, diag.Unsupportedf("pointer arithmetic on %s, which has no size", t.ctx.ResolveType(pointee))
	}
	if vla.Count == nil {
		return WithStmts[rast.Expr]{}, diag.Unsupportedf("pointer arithmetic on an array of unspecified size")
	}

	var s seq
	countW, err := t.ConvertExpr(ExprContext{}, *vla.Count)
	if err != nil {
		return WithStmts[rast.Expr]{}, err
	}
	count := s.take(countW)
	elem, err := t.elementSize(vla.Elem)
	if err != nil {
		return WithStmts[rast.Expr]{}, err
	}
	size := s.take(elem)
	return s.done(rast.Bin(rast.Mul, rast.CastTo(count, isize()), size)), nil
}

// pointerOffset moves ptr by offset elements of its pointee, optionally
// backwards, optionally dereferencing the result
func (t *Translation) pointerOffset(ptr, offset rast.Expr, ptrType ctypes.QualType, negate, deref bool) (WithStmts[rast.Expr], error) {
	pointee, ok := t.ctx.GetPointeeQualType(ptrType.Type)
	if !ok {
		return WithStmts[rast.Expr]{}, diag.Invariantf("pointer offset on non-pointer type %s", t.ctx.ResolveType(ptrType.Type))
	}
	var s seq
	size, err := t.elementSize(pointee.Type)
	if err != nil {
		return WithStmts[rast.Expr]{}, err
	}
	scaled := rast.Expr(rast.Bin(rast.Mul, rast.CastTo(offset, isize()), s.take(size)))
	if negate {
		scaled = rast.NegOf(scaled)
	}
	var res rast.Expr = rast.Method(ptr, "byte_offset", scaled)
	if deref {
		res = rast.DerefOf(res)
	}
	s.markUnsafe()
	return s.done(res), nil
}

// pointerDistance is the number of elements between two pointers
func (t *Translation) pointerDistance(ctx ExprContext, ty rast.Ty, lhs, rhs rast.Expr, lhsType ctypes.QualType) (WithStmts[rast.Expr], error) {
	if ctx.IsConst {
		return WithStmts[rast.Expr]{}, diag.ContextViolationf("cannot subtract pointers in a constant expression")
	}
	pointee, _ := t.ctx.GetPointeeQualType(lhsType.Type)
	var s seq
	size, err := t.elementSize(pointee.Type)
	if err != nil {
		return WithStmts[rast.Expr]{}, err
	}
	t.types.UseFeature(typeconv.FeaturePtrWrappingOffsetFrom)

	var dist rast.Expr = rast.Method(lhs, "wrapping_byte_offset_from", rhs)
	if lit, ok := size.Val.(rast.Lit); !ok || lit.Text != "1" {
		dist = rast.Bin(rast.Div, dist, s.take(size))
	}
	return s.done(rast.CastTo(dist, ty)), nil
}

// isLvalue reports whether e names a place
func isLvalue(e rast.Expr) bool {
	switch x := e.(type) {
	case rast.PathExpr, rast.Field, rast.Index:
		return true
	case rast.Unary:
		return x.Op == rast.Deref
	case rast.Paren:
		return isLvalue(x.X)
	}
	return false
}

// isSimpleLvalue reports whether e can be evaluated twice without
// repeating side effects or computation
func isSimpleLvalue(e rast.Expr) bool {
	switch x := e.(type) {
	case rast.PathExpr:
		return true
	case rast.Unary:
		return x.Op == rast.Deref && isSimpleLvalue(x.X)
	case rast.Field:
		return isSimpleLvalue(x.X)
	case rast.Paren:
		return isSimpleLvalue(x.X)
	}
	return false
}

// place is an lvalue translated for writing and, optionally, reading
type place struct {
	write rast.Expr
	read  rast.Expr
}

// bindPlace makes lvalue safe to use more than once. Complex places are
// bound by reference to a fresh name.
func (t *Translation) bindPlace(s *seq, lvalue rast.Expr) rast.Expr {
	if isSimpleLvalue(lvalue) {
		return lvalue
	}
	name := t.values.PickName("ptr")
	s.stmt(rast.Local{Name: name, Ref: true, Mutable: true, Init: lvalue})
	return rast.DerefOf(rast.Ident(name))
}

// nameReferenceWrite translates an lvalue for writing only
func (t *Translation) nameReferenceWrite(ctx ExprContext, id ctypes.ExprID) (WithStmts[place], error) {
	return t.nameReference(ctx, id, false)
}

// nameReferenceWriteRead translates an lvalue for writing and reading.
// Reads of volatile lvalues are volatile.
func (t *Translation) nameReferenceWriteRead(ctx ExprContext, id ctypes.ExprID) (WithStmts[place], error) {
	return t.nameReference(ctx, id, true)
}

func (t *Translation) nameReference(ctx ExprContext, id ctypes.ExprID, usesRead bool) (WithStmts[place], error) {
	q := t.ctx.ExprQualType(id)
	w, err := t.ConvertExpr(ctx.Used(), id)
	if err != nil {
		return WithStmts[place]{}, err
	}
	var s seq
	ref := s.take(w)

	if !usesRead && isLvalue(ref) {
		return WithStmts[place]{Stmts: s.stmts, Unsafe: s.unsafe, Val: place{
			write: ref,
			read:  t.panicOrErr("value is not supposed to be read"),
		}}, nil
	}

	ref = t.bindPlace(&s, ref)
	read := ref
	if q.Quals.Volatile {
		read, err = t.volatileReadOf(ref, q)
		if err != nil {
			return WithStmts[place]{}, err
		}
		s.markUnsafe()
	}
	return WithStmts[place]{Stmts: s.stmts, Unsafe: s.unsafe, Val: place{write: ref, read: read}}, nil
}
