package ctypes

import (
	"fmt"

	"github.com/raymyers/ralph-c2rust/pkg/diag"
)

// UnOp represents C unary operators
type UnOp int

const (
	AddressOf  UnOp = iota // &x
	Deref                  // *x
	Plus                   // +x
	Negate                 // -x
	Complement             // ~x
	Not                    // !x
	PreInc                 // ++x
	PreDec                 // --x
	PostInc                // x++
	PostDec                // x--
	Real                   // __real x
	Imag                   // __imag x
	Extension              // __extension__ x
	Coawait                // co_await x
)

var unOpNames = []string{
	"&", "*", "+", "-", "~", "!", "++x", "--x", "x++", "x--",
	"__real", "__imag", "__extension__", "co_await",
}

func (op UnOp) String() string {
	if int(op) < len(unOpNames) {
		return unOpNames[op]
	}
	return "?"
}

// ParseUnOp returns the operator spelled s, as printed by UnOp.String
func ParseUnOp(s string) (UnOp, error) {
	for i, name := range unOpNames {
		if name == s {
			return UnOp(i), nil
		}
	}
	return 0, fmt.Errorf("unknown unary operator %q", s)
}

// BinOp represents C binary operators, including assignments
type BinOp int

const (
	Mul BinOp = iota
	Div
	Rem
	Add
	Sub
	Shl
	Shr
	Lt
	Gt
	Le
	Ge
	Eq
	Ne
	BitAnd
	BitXor
	BitOr
	And
	Or
	Comma
	Assign
	MulAssign
	DivAssign
	RemAssign
	AddAssign
	SubAssign
	ShlAssign
	ShrAssign
	BitAndAssign
	BitXorAssign
	BitOrAssign
)

var binOpNames = []string{
	"*", "/", "%", "+", "-", "<<", ">>", "<", ">", "<=", ">=", "==", "!=",
	"&", "^", "|", "&&", "||", ",",
	"=", "*=", "/=", "%=", "+=", "-=", "<<=", ">>=", "&=", "^=", "|=",
}

func (op BinOp) String() string {
	if int(op) < len(binOpNames) {
		return binOpNames[op]
	}
	return "?"
}

// ParseBinOp returns the operator spelled s
func ParseBinOp(s string) (BinOp, error) {
	for i, name := range binOpNames {
		if name == s {
			return BinOp(i), nil
		}
	}
	return 0, fmt.Errorf("unknown binary operator %q", s)
}

// IsAssignment reports whether op is = or a compound assignment
func (op BinOp) IsAssignment() bool {
	return op >= Assign
}

// UnderlyingAssignment maps a compound assignment to its arithmetic
// operator. Plain assignment and non-assignments report false.
func (op BinOp) UnderlyingAssignment() (BinOp, bool) {
	switch op {
	case MulAssign:
		return Mul, true
	case DivAssign:
		return Div, true
	case RemAssign:
		return Rem, true
	case AddAssign:
		return Add, true
	case SubAssign:
		return Sub, true
	case ShlAssign:
		return Shl, true
	case ShrAssign:
		return Shr, true
	case BitAndAssign:
		return BitAnd, true
	case BitXorAssign:
		return BitXor, true
	case BitOrAssign:
		return BitOr, true
	}
	return 0, false
}

// CastKind classifies implicit and explicit conversions
type CastKind int

const (
	LValueToRValue CastKind = iota
	NoOp
	IntegralCast
	IntegralToFloating
	FloatingToIntegral
	FloatingCast
	IntegralToBoolean
	NullToPointer
	BitCast
	FunctionToPointerDecay
	ArrayToPointerDecay
	PointerToIntegral
	IntegralToPointer
)

var castKindNames = []string{
	"lvalue_to_rvalue", "noop", "integral", "integral_to_floating",
	"floating_to_integral", "floating", "integral_to_boolean", "null_to_pointer",
	"bitcast", "function_to_pointer_decay", "array_to_pointer_decay",
	"pointer_to_integral", "integral_to_pointer",
}

func (k CastKind) String() string {
	if int(k) < len(castKindNames) {
		return castKindNames[k]
	}
	return "?"
}

// ParseCastKind returns the cast kind named s
func ParseCastKind(s string) (CastKind, error) {
	for i, name := range castKindNames {
		if name == s {
			return CastKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown cast kind %q", s)
}

// LitKind distinguishes literal expressions
type LitKind int

const (
	LitInt LitKind = iota
	LitFloat
	LitChar
)

// ExprKind is the interface for all expression kinds
type ExprKind interface {
	implExpr()
}

// Expr is an expression node. Typ is the C type of the expression.
type Expr struct {
	Kind ExprKind
	Typ  QualType
	Loc  *diag.Loc
}

// Eliteral is an integer, floating or character constant
type Eliteral struct {
	Lit   LitKind
	Int   uint64
	Float float64
}

// EdeclRef names a variable, parameter or function
type EdeclRef struct {
	Decl DeclID
}

// Emember is s.f, or p->f when Arrow is set
type Emember struct {
	Base  ExprID
	Field DeclID
	Arrow bool
}

// Eindex is base[index]
type Eindex struct {
	Base  ExprID
	Index ExprID
}

// Eunary applies a unary operator
type Eunary struct {
	Op  UnOp
	Arg ExprID
}

// Ebinary applies a binary operator. For compound assignments the
// front-end records the type the left operand is converted to
// (ComputeLHSType) and the type of the computation (ComputeResultType).
type Ebinary struct {
	Op                BinOp
	LHS               ExprID
	RHS               ExprID
	ComputeLHSType    *QualType
	ComputeResultType *QualType
}

// EimplicitCast is a conversion inserted by the front-end
type EimplicitCast struct {
	Kind CastKind
	Arg  ExprID
}

// EexplicitCast is a cast written in the source
type EexplicitCast struct {
	Kind CastKind
	Arg  ExprID
}

// Eparen is a parenthesized expression
type Eparen struct {
	Inner ExprID
}

func (Eliteral) implExpr()      {}
func (EdeclRef) implExpr()      {}
func (Emember) implExpr()       {}
func (Eindex) implExpr()        {}
func (Eunary) implExpr()        {}
func (Ebinary) implExpr()       {}
func (EimplicitCast) implExpr() {}
func (EexplicitCast) implExpr() {}
func (Eparen) implExpr()        {}

// CastOf returns the kind and operand of an implicit or explicit cast
func CastOf(k ExprKind) (CastKind, ExprID, bool) {
	switch e := k.(type) {
	case EimplicitCast:
		return e.Kind, e.Arg, true
	case EexplicitCast:
		return e.Kind, e.Arg, true
	}
	return 0, 0, false
}
