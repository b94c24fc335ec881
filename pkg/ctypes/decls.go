package ctypes

import "github.com/raymyers/ralph-c2rust/pkg/diag"

// DeclKind is the interface for all declaration kinds
type DeclKind interface {
	implDecl()
	DeclName() string
}

// Decl is a declaration together with its source position
type Decl struct {
	Kind DeclKind
	Loc  *diag.Loc
}

// Dstruct is a struct definition. Size is the front-end's layout size in
// bytes, nil when unknown.
type Dstruct struct {
	Name   string
	Fields []DeclID
	Size   *int64
}

// Dunion is a union definition
type Dunion struct {
	Name   string
	Fields []DeclID
	Size   *int64
}

// Denum is an enum definition. Integral is the underlying integer type,
// defaulting to unsigned int.
type Denum struct {
	Name     string
	Integral *TypeID
}

// Dtypedef is a typedef declaration
type Dtypedef struct {
	Name string
	Typ  QualType
}

// Dfield is a record member. BitWidth is set for bitfields; BitOffset is
// the front-end's offset from the start of the record, when known.
type Dfield struct {
	Name      string
	Typ       QualType
	BitWidth  *uint64
	BitOffset *uint64
}

// Dvariable is a variable or parameter declaration
type Dvariable struct {
	Name   string
	Typ    QualType
	Static bool
}

// Dfunction is a function declaration or definition. Params are the
// definition's parameter declarations, which K&R functions need.
type Dfunction struct {
	Name   string
	Typ    TypeID
	Params []DeclID
}

func (Dstruct) implDecl()   {}
func (Dunion) implDecl()    {}
func (Denum) implDecl()     {}
func (Dtypedef) implDecl()  {}
func (Dfield) implDecl()    {}
func (Dvariable) implDecl() {}
func (Dfunction) implDecl() {}

func (d Dstruct) DeclName() string   { return d.Name }
func (d Dunion) DeclName() string    { return d.Name }
func (d Denum) DeclName() string     { return d.Name }
func (d Dtypedef) DeclName() string  { return d.Name }
func (d Dfield) DeclName() string    { return d.Name }
func (d Dvariable) DeclName() string { return d.Name }
func (d Dfunction) DeclName() string { return d.Name }

// IsBitfield reports whether the field has a declared bit width
func (d Dfield) IsBitfield() bool {
	return d.BitWidth != nil
}

// RecordFields returns the field ids of a struct or union declaration
func RecordFields(k DeclKind) ([]DeclID, bool) {
	switch d := k.(type) {
	case Dstruct:
		return d.Fields, true
	case Dunion:
		return d.Fields, true
	}
	return nil, false
}
