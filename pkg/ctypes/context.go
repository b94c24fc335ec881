package ctypes

import (
	"fmt"

	"github.com/raymyers/ralph-c2rust/pkg/diag"
)

// Root is a top-level expression handed to the translator. Discarded is
// set for expression statements whose value is not used.
type Root struct {
	Expr      ExprID
	Discarded bool
	Const     bool
	Static    bool
}

// Context is the typed C AST of one translation unit. It is filled in once
// by the front-end (or LoadYAML) and is read-only afterwards.
type Context struct {
	File string

	types      map[TypeID]TypeKind
	decls      map[DeclID]Decl
	exprs      map[ExprID]Expr
	order      []DeclID
	roots      []Root
	fieldOwner map[DeclID]DeclID
}

// NewContext creates an empty context
func NewContext() *Context {
	return &Context{
		types:      make(map[TypeID]TypeKind),
		decls:      make(map[DeclID]Decl),
		exprs:      make(map[ExprID]Expr),
		fieldOwner: make(map[DeclID]DeclID),
	}
}

// AddType registers a type node
func (c *Context) AddType(id TypeID, k TypeKind) error {
	if _, ok := c.types[id]; ok {
		return fmt.Errorf("duplicate type id %d", id)
	}
	c.types[id] = k
	return nil
}

// AddDecl registers a declaration. Declaration order is preserved.
func (c *Context) AddDecl(id DeclID, d Decl) error {
	if _, ok := c.decls[id]; ok {
		return fmt.Errorf("duplicate decl id %d", id)
	}
	c.decls[id] = d
	c.order = append(c.order, id)
	if fields, ok := RecordFields(d.Kind); ok {
		for _, f := range fields {
			c.fieldOwner[f] = id
		}
	}
	return nil
}

// AddExpr registers an expression node
func (c *Context) AddExpr(id ExprID, e Expr) error {
	if _, ok := c.exprs[id]; ok {
		return fmt.Errorf("duplicate expr id %d", id)
	}
	c.exprs[id] = e
	return nil
}

// AddRoot appends a top-level expression
func (c *Context) AddRoot(r Root) {
	c.roots = append(c.roots, r)
}

// Roots returns the top-level expressions in insertion order
func (c *Context) Roots() []Root {
	return c.roots
}

// Decls returns every declaration id in declaration order
func (c *Context) Decls() []DeclID {
	return c.order
}

// LookupType returns the node for id
func (c *Context) LookupType(id TypeID) (TypeKind, bool) {
	k, ok := c.types[id]
	return k, ok
}

// LookupDecl returns the declaration for id
func (c *Context) LookupDecl(id DeclID) (Decl, bool) {
	d, ok := c.decls[id]
	return d, ok
}

// LookupExpr returns the expression for id
func (c *Context) LookupExpr(id ExprID) (Expr, bool) {
	e, ok := c.exprs[id]
	return e, ok
}

// Index returns the node for id. A dangling id is an invariant violation
// and panics with a *diag.Error.
func (c *Context) Index(id TypeID) TypeKind {
	k, ok := c.types[id]
	if !ok {
		panic(diag.Invariantf("unknown type id %d", id))
	}
	return k
}

// Decl returns the declaration for id, panicking on a dangling id
func (c *Context) Decl(id DeclID) Decl {
	d, ok := c.decls[id]
	if !ok {
		panic(diag.Invariantf("unknown decl id %d", id))
	}
	return d
}

// Expr returns the expression for id, panicking on a dangling id
func (c *Context) Expr(id ExprID) Expr {
	e, ok := c.exprs[id]
	if !ok {
		panic(diag.Invariantf("unknown expr id %d", id))
	}
	return e
}

// ExprQualType returns the qualified type of an expression
func (c *Context) ExprQualType(id ExprID) QualType {
	return c.Expr(id).Typ
}

// FieldRecord returns the struct or union declaring field
func (c *Context) FieldRecord(field DeclID) (DeclID, bool) {
	r, ok := c.fieldOwner[field]
	return r, ok
}

// ResolveTypeID strips wrappers and typedefs until a structural type is
// reached. Resolving a resolved id returns it unchanged.
func (c *Context) ResolveTypeID(id TypeID) TypeID {
	seen := make(map[TypeID]bool)
	for {
		if seen[id] {
			panic(diag.Invariantf("type id %d is part of a cycle", id))
		}
		seen[id] = true

		switch t := c.Index(id).(type) {
		case Telaborated:
			id = t.Inner
		case Tparen:
			id = t.Inner
		case Tdecayed:
			id = t.Inner
		case TtypeOf:
			id = t.Inner
		case Tattributed:
			id = t.Inner.Type
		case Ttypedef:
			td, ok := c.Decl(t.Decl).Kind.(Dtypedef)
			if !ok {
				panic(diag.Invariantf("typedef type %d refers to non-typedef decl %d", id, t.Decl))
			}
			id = td.Typ.Type
		default:
			return id
		}
	}
}

// ResolveType returns the structural node behind id
func (c *Context) ResolveType(id TypeID) TypeKind {
	return c.Index(c.ResolveTypeID(id))
}

// IsUnsignedIntegralType reports whether id resolves to an unsigned integer
// type or _Bool
func (c *Context) IsUnsignedIntegralType(id TypeID) bool {
	return IsUnsignedIntegral(c.ResolveType(id))
}

// IsEnum reports whether id resolves to an enum type
func (c *Context) IsEnum(id TypeID) bool {
	_, ok := c.ResolveType(id).(Tenum)
	return ok
}

// GetPointeeQualType returns the pointee of a pointer type
func (c *Context) GetPointeeQualType(id TypeID) (QualType, bool) {
	if p, ok := c.ResolveType(id).(Tpointer); ok {
		return p.Pointee, true
	}
	return QualType{}, false
}

// IsFunctionPointer reports whether id resolves to a pointer to function
func (c *Context) IsFunctionPointer(id TypeID) bool {
	pointee, ok := c.GetPointeeQualType(id)
	if !ok {
		return false
	}
	_, isFn := c.ResolveType(pointee.Type).(Tfunction)
	return isFn
}

var vaListNames = map[string]bool{
	"va_list":           true,
	"__builtin_va_list": true,
	"__gnuc_va_list":    true,
}

// IsVaList reports whether id is spelled through one of the C variable
// argument list typedefs
func (c *Context) IsVaList(id TypeID) bool {
	for depth := 0; depth < len(c.types)+1; depth++ {
		switch t := c.Index(id).(type) {
		case Ttypedef:
			td, ok := c.Decl(t.Decl).Kind.(Dtypedef)
			if !ok {
				panic(diag.Invariantf("typedef type %d refers to non-typedef decl %d", id, t.Decl))
			}
			if vaListNames[td.Name] {
				return true
			}
			id = td.Typ.Type
		case Telaborated:
			id = t.Inner
		case Tdecayed:
			id = t.Inner
		case Tparen:
			id = t.Inner
		default:
			return false
		}
	}
	return false
}

// IsNullExpr reports whether id is a null pointer constant: a null-to-pointer
// cast, possibly under pointer bitcasts and parentheses.
func (c *Context) IsNullExpr(id ExprID) bool {
	e := c.Expr(id)
	if p, ok := e.Kind.(Eparen); ok {
		return c.IsNullExpr(p.Inner)
	}
	kind, arg, ok := CastOf(e.Kind)
	if !ok {
		return false
	}
	switch kind {
	case NullToPointer:
		return true
	case BitCast:
		_, isPtr := c.ResolveType(e.Typ.Type).(Tpointer)
		return isPtr && c.IsNullExpr(arg)
	}
	return false
}

// DisplayLoc renders loc for diagnostics, filling in the unit's file name
func (c *Context) DisplayLoc(loc *diag.Loc) string {
	if loc == nil {
		return "<unknown>"
	}
	l := *loc
	if l.File == "" {
		l.File = c.File
	}
	return l.String()
}

// Validate checks that every id referenced from the graph is defined and
// that no wrapper chain is cyclic.
func (c *Context) Validate() error {
	checkType := func(id TypeID, from string) error {
		if _, ok := c.types[id]; !ok {
			return diag.Invariantf("%s refers to unknown type id %d", from, id)
		}
		return nil
	}
	checkDecl := func(id DeclID, from string) error {
		if _, ok := c.decls[id]; !ok {
			return diag.Invariantf("%s refers to unknown decl id %d", from, id)
		}
		return nil
	}
	checkExpr := func(id ExprID, from string) error {
		if _, ok := c.exprs[id]; !ok {
			return diag.Invariantf("%s refers to unknown expr id %d", from, id)
		}
		return nil
	}

	for id, k := range c.types {
		from := fmt.Sprintf("type %d", id)
		var refs []TypeID
		switch t := k.(type) {
		case Tpointer:
			refs = append(refs, t.Pointee.Type)
		case TconstArray:
			refs = append(refs, t.Elem)
		case TincompleteArray:
			refs = append(refs, t.Elem)
		case TvariableArray:
			refs = append(refs, t.Elem)
			if t.Count != nil {
				if err := checkExpr(*t.Count, from); err != nil {
					return err
				}
			}
		case Tfunction:
			refs = append(refs, t.Return.Type)
			for _, p := range t.Params {
				refs = append(refs, p.Type)
			}
		case Tstruct:
			if err := checkDecl(t.Decl, from); err != nil {
				return err
			}
		case Tunion:
			if err := checkDecl(t.Decl, from); err != nil {
				return err
			}
		case Tenum:
			if err := checkDecl(t.Decl, from); err != nil {
				return err
			}
		case Ttypedef:
			if err := checkDecl(t.Decl, from); err != nil {
				return err
			}
		case Telaborated:
			refs = append(refs, t.Inner)
		case Tparen:
			refs = append(refs, t.Inner)
		case Tdecayed:
			refs = append(refs, t.Inner)
		case TtypeOf:
			refs = append(refs, t.Inner)
		case Tattributed:
			refs = append(refs, t.Inner.Type)
		case Tcomplex:
			refs = append(refs, t.Elem)
		}
		for _, r := range refs {
			if err := checkType(r, from); err != nil {
				return err
			}
		}
	}

	for id, d := range c.decls {
		from := fmt.Sprintf("decl %d", id)
		switch k := d.Kind.(type) {
		case Dstruct, Dunion:
			fields, _ := RecordFields(k)
			for _, f := range fields {
				if err := checkDecl(f, from); err != nil {
					return err
				}
				if _, ok := c.decls[f].Kind.(Dfield); !ok {
					return diag.Invariantf("%s lists non-field decl %d", from, f)
				}
			}
		case Denum:
			if k.Integral != nil {
				if err := checkType(*k.Integral, from); err != nil {
					return err
				}
			}
		case Dtypedef:
			if err := checkType(k.Typ.Type, from); err != nil {
				return err
			}
		case Dfield:
			if err := checkType(k.Typ.Type, from); err != nil {
				return err
			}
		case Dvariable:
			if err := checkType(k.Typ.Type, from); err != nil {
				return err
			}
		case Dfunction:
			if err := checkType(k.Typ, from); err != nil {
				return err
			}
			for _, p := range k.Params {
				if err := checkDecl(p, from); err != nil {
					return err
				}
			}
		}
	}

	for id, e := range c.exprs {
		from := fmt.Sprintf("expr %d", id)
		if err := checkType(e.Typ.Type, from); err != nil {
			return err
		}
		var refs []ExprID
		switch k := e.Kind.(type) {
		case EdeclRef:
			if err := checkDecl(k.Decl, from); err != nil {
				return err
			}
		case Emember:
			refs = append(refs, k.Base)
			if err := checkDecl(k.Field, from); err != nil {
				return err
			}
		case Eindex:
			refs = append(refs, k.Base, k.Index)
		case Eunary:
			refs = append(refs, k.Arg)
		case Ebinary:
			refs = append(refs, k.LHS, k.RHS)
		case EimplicitCast:
			refs = append(refs, k.Arg)
		case EexplicitCast:
			refs = append(refs, k.Arg)
		case Eparen:
			refs = append(refs, k.Inner)
		}
		for _, r := range refs {
			if err := checkExpr(r, from); err != nil {
				return err
			}
		}
	}

	for _, r := range c.roots {
		if err := checkExpr(r.Expr, "roots"); err != nil {
			return err
		}
	}

	return c.checkCycles()
}

// checkCycles resolves every type id, turning the resolver's panic on a
// cyclic wrapper chain into an error.
func (c *Context) checkCycles() (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			panic(r)
		}
	}()
	for id := range c.types {
		c.ResolveTypeID(id)
	}
	return nil
}
