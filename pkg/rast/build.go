package rast

import (
	"strconv"
	"strings"
)

func segments(names []string) []PathSegment {
	segs := make([]PathSegment, len(names))
	for i, n := range names {
		segs[i] = PathSegment{Name: n}
	}
	return segs
}

// PathTy builds a relative type path, e.g. PathTy("libc", "c_int")
func PathTy(names ...string) TyPath {
	return TyPath{Segments: segments(names)}
}

// GlobalPathTy builds a type path with a leading ::
func GlobalPathTy(names ...string) TyPath {
	return TyPath{Global: true, Segments: segments(names)}
}

// GenericTy builds a single-segment generic type such as Option<T>
func GenericTy(name string, args ...Ty) TyPath {
	return TyPath{Segments: []PathSegment{{Name: name, Args: args}}}
}

// Unit is the empty tuple type
func Unit() TyTuple {
	return TyTuple{}
}

// Ptr builds *const T or *mut T
func Ptr(mutable bool, elem Ty) TyPtr {
	return TyPtr{Mutable: mutable, Elem: elem}
}

// Ident is a single-segment path expression
func Ident(name string) PathExpr {
	return PathExpr{Segments: segments([]string{name})}
}

// Path builds a relative path expression
func Path(names ...string) PathExpr {
	return PathExpr{Segments: segments(names)}
}

// GlobalPath builds a path expression with a leading ::
func GlobalPath(names ...string) PathExpr {
	return PathExpr{Global: true, Segments: segments(names)}
}

// WithGenerics attaches generic arguments to the last segment of p
func (p PathExpr) WithGenerics(args ...Ty) PathExpr {
	segs := append([]PathSegment(nil), p.Segments...)
	segs[len(segs)-1].Args = args
	return PathExpr{Global: p.Global, Segments: segs}
}

// Int is an unsuffixed integer literal
func Int(v uint64) Lit {
	return Lit{Kind: LitInt, Text: strconv.FormatUint(v, 10)}
}

// Hex is an unsuffixed hexadecimal integer literal
func Hex(v uint64) Lit {
	return Lit{Kind: LitInt, Text: "0x" + strings.ToLower(strconv.FormatUint(v, 16))}
}

// Float is a floating literal. Integral values keep a trailing dot so the
// literal stays a float.
func Float(v float64) Lit {
	text := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(text, ".eE") {
		text += "."
	}
	return Lit{Kind: LitFloat, Text: text}
}

// Bool is true or false
func Bool(v bool) Lit {
	return Lit{Kind: LitBool, Text: strconv.FormatBool(v)}
}

// Str is a string literal
func Str(s string) Lit {
	return Lit{Kind: LitStr, Text: strconv.Quote(s)}
}

// Bin builds l op r
func Bin(op BinOp, l, r Expr) Binary {
	return Binary{Op: op, L: l, R: r}
}

// CastTo builds x as ty
func CastTo(x Expr, ty Ty) Cast {
	return Cast{X: x, Ty: ty}
}

// Method builds recv.name(args...)
func Method(recv Expr, name string, args ...Expr) MethodCall {
	return MethodCall{Recv: recv, Method: name, Args: args}
}

// CallPath builds a call of a path, e.g. CallPath(Ident("Some"), x)
func CallPath(fn PathExpr, args ...Expr) Call {
	return Call{Fn: fn, Args: args}
}

// DerefOf builds *x
func DerefOf(x Expr) Unary {
	return Unary{Op: Deref, X: x}
}

// NegOf builds -x
func NegOf(x Expr) Unary {
	return Unary{Op: Neg, X: x}
}

// NotOf builds !x
func NotOf(x Expr) Unary {
	return Unary{Op: Not, X: x}
}

// UnsafeBlock wraps value in an unsafe block
func UnsafeBlock(stmts []Stmt, value Expr) Block {
	return Block{Unsafe: true, Stmts: stmts, Value: value}
}
