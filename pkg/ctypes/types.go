// Package ctypes models the typed C AST handed over by the front-end:
// the type graph, declarations and expressions, each addressed by an id.
package ctypes

import "fmt"

// TypeID identifies a node of the C type graph
type TypeID int

// DeclID identifies a declaration (record, field, typedef, variable, ...)
type DeclID int

// ExprID identifies an expression node
type ExprID int

// Qualifiers are attached at the use site of a type, not to the type node
type Qualifiers struct {
	Const    bool
	Volatile bool
	Restrict bool
}

// QualType is a type id together with its use-site qualifiers
type QualType struct {
	Type  TypeID
	Quals Qualifiers
}

// Unqualified returns a QualType without qualifiers
func Unqualified(id TypeID) QualType {
	return QualType{Type: id}
}

// Const returns a const-qualified QualType
func Const(id TypeID) QualType {
	return QualType{Type: id, Quals: Qualifiers{Const: true}}
}

// Volatile returns a volatile-qualified QualType
func Volatile(id TypeID) QualType {
	return QualType{Type: id, Quals: Qualifiers{Volatile: true}}
}

// TypeKind is the interface for all C type graph nodes
type TypeKind interface {
	implType()
	String() string
}

// IntKind enumerates the C integer types
type IntKind int

const (
	Char IntKind = iota
	SChar
	UChar
	Short
	UShort
	Int
	UInt
	Long
	ULong
	LongLong
	ULongLong
	Int128
	UInt128
)

func (k IntKind) String() string {
	names := []string{
		"char", "signed char", "unsigned char", "short", "unsigned short",
		"int", "unsigned int", "long", "unsigned long", "long long",
		"unsigned long long", "__int128", "unsigned __int128",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "?"
}

// IsUnsigned reports whether the integer kind is unsigned. Plain char is
// signed on the supported targets.
func (k IntKind) IsUnsigned() bool {
	switch k {
	case UChar, UShort, UInt, ULong, ULongLong, UInt128:
		return true
	}
	return false
}

// Size returns the LP64 size in bytes
func (k IntKind) Size() int64 {
	switch k {
	case Char, SChar, UChar:
		return 1
	case Short, UShort:
		return 2
	case Int, UInt:
		return 4
	case Long, ULong, LongLong, ULongLong:
		return 8
	case Int128, UInt128:
		return 16
	}
	return 4
}

// FloatKind enumerates the C floating-point types
type FloatKind int

const (
	Float FloatKind = iota
	Double
	LongDouble
)

func (k FloatKind) String() string {
	names := []string{"float", "double", "long double"}
	if int(k) < len(names) {
		return names[k]
	}
	return "?"
}

// Size returns the LP64 size in bytes
func (k FloatKind) Size() int64 {
	switch k {
	case Float:
		return 4
	case Double:
		return 8
	}
	return 16
}

// Tvoid represents the void type
type Tvoid struct{}

// Tbool represents _Bool
type Tbool struct{}

// Tint represents the integer types
type Tint struct {
	Kind IntKind
}

// Tfloat represents the floating-point types
type Tfloat struct {
	Kind FloatKind
}

// Tpointer represents pointer types. Qualifiers of the pointee live here.
type Tpointer struct {
	Pointee QualType
}

// TconstArray represents arrays with a constant element count
type TconstArray struct {
	Elem  TypeID
	Count uint64
}

// TincompleteArray represents arrays without a size (T x[])
type TincompleteArray struct {
	Elem TypeID
}

// TvariableArray represents variable-length arrays. Count is nil for [*].
type TvariableArray struct {
	Elem  TypeID
	Count *ExprID
}

// Tfunction represents function types. Prototyped is false for K&R
// declarations, whose Params are empty at the type level.
type Tfunction struct {
	Return     QualType
	Params     []QualType
	Variadic   bool
	NoReturn   bool
	Prototyped bool
}

// Tstruct refers to a struct declaration
type Tstruct struct {
	Decl DeclID
}

// Tunion refers to a union declaration
type Tunion struct {
	Decl DeclID
}

// Tenum refers to an enum declaration
type Tenum struct {
	Decl DeclID
}

// Ttypedef refers to a typedef declaration
type Ttypedef struct {
	Decl DeclID
}

// Telaborated is a transparent wrapper (struct S written with its tag)
type Telaborated struct {
	Inner TypeID
}

// Tparen is a transparent wrapper for parenthesized declarators
type Tparen struct {
	Inner TypeID
}

// Tdecayed is a transparent wrapper for array/function parameter decay
type Tdecayed struct {
	Inner TypeID
}

// TtypeOf is a transparent wrapper for typeof(...)
type TtypeOf struct {
	Inner TypeID
}

// Tattributed is a transparent wrapper for __attribute__((...)) types
type Tattributed struct {
	Inner QualType
}

// Tcomplex represents _Complex types, which have no target mapping
type Tcomplex struct {
	Elem TypeID
}

// Marker methods for TypeKind interface
func (Tvoid) implType()            {}
func (Tbool) implType()            {}
func (Tint) implType()             {}
func (Tfloat) implType()           {}
func (Tpointer) implType()         {}
func (TconstArray) implType()      {}
func (TincompleteArray) implType() {}
func (TvariableArray) implType()   {}
func (Tfunction) implType()        {}
func (Tstruct) implType()          {}
func (Tunion) implType()           {}
func (Tenum) implType()            {}
func (Ttypedef) implType()         {}
func (Telaborated) implType()      {}
func (Tparen) implType()           {}
func (Tdecayed) implType()         {}
func (TtypeOf) implType()          {}
func (Tattributed) implType()      {}
func (Tcomplex) implType()         {}

func (Tvoid) String() string    { return "void" }
func (Tbool) String() string    { return "_Bool" }
func (t Tint) String() string   { return t.Kind.String() }
func (t Tfloat) String() string { return t.Kind.String() }

func (t Tpointer) String() string {
	return fmt.Sprintf("pointer(#%d)", t.Pointee.Type)
}

func (t TconstArray) String() string {
	return fmt.Sprintf("array(#%d, %d)", t.Elem, t.Count)
}

func (t TincompleteArray) String() string {
	return fmt.Sprintf("incomplete array(#%d)", t.Elem)
}

func (t TvariableArray) String() string {
	return fmt.Sprintf("variable array(#%d)", t.Elem)
}

func (t Tfunction) String() string {
	if !t.Prototyped {
		return "function (K&R)"
	}
	return "function"
}

func (t Tstruct) String() string     { return fmt.Sprintf("struct(decl %d)", t.Decl) }
func (t Tunion) String() string      { return fmt.Sprintf("union(decl %d)", t.Decl) }
func (t Tenum) String() string       { return fmt.Sprintf("enum(decl %d)", t.Decl) }
func (t Ttypedef) String() string    { return fmt.Sprintf("typedef(decl %d)", t.Decl) }
func (t Telaborated) String() string { return fmt.Sprintf("elaborated(#%d)", t.Inner) }
func (t Tparen) String() string      { return fmt.Sprintf("paren(#%d)", t.Inner) }
func (t Tdecayed) String() string    { return fmt.Sprintf("decayed(#%d)", t.Inner) }
func (t TtypeOf) String() string     { return fmt.Sprintf("typeof(#%d)", t.Inner) }
func (t Tattributed) String() string { return fmt.Sprintf("attributed(#%d)", t.Inner.Type) }
func (t Tcomplex) String() string    { return fmt.Sprintf("_Complex(#%d)", t.Elem) }

// IsWrapper reports whether k only forwards to an inner type
func IsWrapper(k TypeKind) bool {
	switch k.(type) {
	case Telaborated, Tparen, Tdecayed, TtypeOf, Tattributed:
		return true
	}
	return false
}

// IsUnsignedIntegral reports whether k is an unsigned integer type. _Bool
// counts as unsigned.
func IsUnsignedIntegral(k TypeKind) bool {
	switch t := k.(type) {
	case Tbool:
		return true
	case Tint:
		return t.Kind.IsUnsigned()
	}
	return false
}

// IsIntegral reports whether k is an integer, _Bool or enum type
func IsIntegral(k TypeKind) bool {
	switch k.(type) {
	case Tbool, Tint, Tenum:
		return true
	}
	return false
}

// IsFloating reports whether k is a floating-point type
func IsFloating(k TypeKind) bool {
	_, ok := k.(Tfloat)
	return ok
}
