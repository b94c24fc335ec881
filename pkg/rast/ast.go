// Package rast defines the Rust syntax tree produced by the translator.
// It covers the subset of Rust needed to express translated C types and
// expressions: raw pointers, bare function types, casts, method calls and
// unsafe blocks.
package rast

// Node is the base interface for all Rust AST nodes
type Node interface {
	implRustNode()
}

// Ty is the interface for Rust types
type Ty interface {
	Node
	implRustTy()
}

// Expr is the interface for Rust expressions
type Expr interface {
	Node
	implRustExpr()
}

// Stmt is the interface for statements inside a block
type Stmt interface {
	Node
	implRustStmt()
}

// Item is the interface for module-level items
type Item interface {
	Node
	implRustItem()
}

// PathSegment is one segment of a path with optional generic arguments.
// In expression position the arguments print as a turbofish.
type PathSegment struct {
	Name string
	Args []Ty
}

// --- Types ---

// TyPath is a named type such as libc::c_int or Option<T>. Global paths
// print with a leading ::.
type TyPath struct {
	Global   bool
	Segments []PathSegment
}

// TyPtr is *const T or *mut T
type TyPtr struct {
	Mutable bool
	Elem    Ty
}

// TyArray is [T; N]
type TyArray struct {
	Elem Ty
	Len  Expr
}

// TyTuple is a tuple type; the empty tuple is the unit type
type TyTuple struct {
	Elems []Ty
}

// TyNever is the uninhabited type !
type TyNever struct{}

// TyBareFn is a function pointer type. Ret is nil for unit.
type TyBareFn struct {
	Unsafe bool
	ABI    string
	Params []Ty
	Ret    Ty
}

// TyCVarArgs is the trailing ... of a variadic foreign signature
type TyCVarArgs struct{}

// --- Expressions ---

// LitKind distinguishes literal forms
type LitKind int

const (
	LitInt LitKind = iota
	LitFloat
	LitBool
	LitStr
)

// Lit is a literal; Text is its Rust spelling
type Lit struct {
	Kind LitKind
	Text string
}

// PathExpr is a path in expression position (a variable, a function)
type PathExpr struct {
	Global   bool
	Segments []PathSegment
}

// UnOp represents Rust unary operators
type UnOp int

const (
	Neg   UnOp = iota // -x
	Not               // !x
	Deref             // *x
)

func (op UnOp) String() string {
	names := []string{"-", "!", "*"}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// BinOp represents Rust binary operators
type BinOp int

const (
	Add BinOp = iota
	Sub
	Mul
	Div
	Rem
	And
	Or
	BitXor
	BitAnd
	BitOr
	Shl
	Shr
	Eq
	Lt
	Le
	Ne
	Ge
	Gt
)

func (op BinOp) String() string {
	names := []string{"+", "-", "*", "/", "%", "&&", "||", "^", "&", "|", "<<", ">>", "==", "<", "<=", "!=", ">=", ">"}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// IsComparison reports whether op yields bool from two operands
func (op BinOp) IsComparison() bool {
	return op >= Eq
}

// Unary applies a unary operator
type Unary struct {
	Op UnOp
	X  Expr
}

// Binary applies a binary operator
type Binary struct {
	Op BinOp
	L  Expr
	R  Expr
}

// Assign is L = R
type Assign struct {
	L Expr
	R Expr
}

// AssignOp is a compound assignment such as L += R
type AssignOp struct {
	Op BinOp
	L  Expr
	R  Expr
}

// Cast is X as Ty
type Cast struct {
	X  Expr
	Ty Ty
}

// Call is Fn(Args...)
type Call struct {
	Fn   Expr
	Args []Expr
}

// MethodCall is Recv.Method::<Generics>(Args...)
type MethodCall struct {
	Recv     Expr
	Method   string
	Generics []Ty
	Args     []Expr
}

// AddrOf is &X or &mut X
type AddrOf struct {
	Mutable bool
	X       Expr
}

// Field is X.Name
type Field struct {
	X    Expr
	Name string
}

// Index is X[Idx]
type Index struct {
	X   Expr
	Idx Expr
}

// Paren is an explicitly parenthesized expression
type Paren struct {
	X Expr
}

// Block is { Stmts; Value }, optionally unsafe. Value is nil for a block
// of unit type.
type Block struct {
	Unsafe bool
	Stmts  []Stmt
	Value  Expr
}

// Macro is a macro invocation such as panic!("msg")
type Macro struct {
	Name string
	Args []Expr
}

// --- Statements ---

// Local is a let binding. Ref binds by reference (let ref mut x = ...).
type Local struct {
	Name    string
	Mutable bool
	Ref     bool
	Ty      Ty
	Init    Expr
}

// Semi is an expression statement terminated by a semicolon
type Semi struct {
	X Expr
}

// --- Items ---

// StructField is a named member of a struct or union
type StructField struct {
	Name string
	Ty   Ty
}

// StructDef is a #[repr(C)] struct or union definition
type StructDef struct {
	Name   string
	Union  bool
	Attrs  []string
	Fields []StructField
}

// TypeAlias is pub type Name = Ty;
type TypeAlias struct {
	Name string
	Ty   Ty
}

// Marker methods
func (TyPath) implRustNode()     {}
func (TyPtr) implRustNode()      {}
func (TyArray) implRustNode()    {}
func (TyTuple) implRustNode()    {}
func (TyNever) implRustNode()    {}
func (TyBareFn) implRustNode()   {}
func (TyCVarArgs) implRustNode() {}

func (TyPath) implRustTy()     {}
func (TyPtr) implRustTy()      {}
func (TyArray) implRustTy()    {}
func (TyTuple) implRustTy()    {}
func (TyNever) implRustTy()    {}
func (TyBareFn) implRustTy()   {}
func (TyCVarArgs) implRustTy() {}

func (Lit) implRustNode()        {}
func (PathExpr) implRustNode()   {}
func (Unary) implRustNode()      {}
func (Binary) implRustNode()     {}
func (Assign) implRustNode()     {}
func (AssignOp) implRustNode()   {}
func (Cast) implRustNode()       {}
func (Call) implRustNode()       {}
func (MethodCall) implRustNode() {}
func (AddrOf) implRustNode()     {}
func (Field) implRustNode()      {}
func (Index) implRustNode()      {}
func (Paren) implRustNode()      {}
func (Block) implRustNode()      {}
func (Macro) implRustNode()      {}

func (Lit) implRustExpr()        {}
func (PathExpr) implRustExpr()   {}
func (Unary) implRustExpr()      {}
func (Binary) implRustExpr()     {}
func (Assign) implRustExpr()     {}
func (AssignOp) implRustExpr()   {}
func (Cast) implRustExpr()       {}
func (Call) implRustExpr()       {}
func (MethodCall) implRustExpr() {}
func (AddrOf) implRustExpr()     {}
func (Field) implRustExpr()      {}
func (Index) implRustExpr()      {}
func (Paren) implRustExpr()      {}
func (Block) implRustExpr()      {}
func (Macro) implRustExpr()      {}

func (Local) implRustNode() {}
func (Semi) implRustNode()  {}
func (Local) implRustStmt() {}
func (Semi) implRustStmt()  {}

func (StructDef) implRustNode() {}
func (TypeAlias) implRustNode() {}
func (StructDef) implRustItem() {}
func (TypeAlias) implRustItem() {}
