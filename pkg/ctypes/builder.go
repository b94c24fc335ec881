package ctypes

// Builder assembles a Context with automatically numbered ids. Primitive
// types are shared so that equal C types get equal ids, as a front-end
// would produce.
type Builder struct {
	ctx      *Context
	nextType TypeID
	nextDecl DeclID
	nextExpr ExprID
	ints     map[IntKind]TypeID
	floats   map[FloatKind]TypeID
	void     *TypeID
	boolean  *TypeID
}

// NewBuilder creates a builder over an empty context
func NewBuilder() *Builder {
	return &Builder{
		ctx:      NewContext(),
		nextType: 1,
		nextDecl: 1,
		nextExpr: 1,
		ints:     make(map[IntKind]TypeID),
		floats:   make(map[FloatKind]TypeID),
	}
}

// Context returns the context being built
func (b *Builder) Context() *Context {
	return b.ctx
}

// Type adds a type node
func (b *Builder) Type(k TypeKind) TypeID {
	id := b.nextType
	b.nextType++
	if err := b.ctx.AddType(id, k); err != nil {
		panic(err)
	}
	return id
}

// Void returns the shared void type
func (b *Builder) Void() TypeID {
	if b.void == nil {
		id := b.Type(Tvoid{})
		b.void = &id
	}
	return *b.void
}

// Bool returns the shared _Bool type
func (b *Builder) Bool() TypeID {
	if b.boolean == nil {
		id := b.Type(Tbool{})
		b.boolean = &id
	}
	return *b.boolean
}

// Int returns the shared integer type of kind k
func (b *Builder) Int(k IntKind) TypeID {
	if id, ok := b.ints[k]; ok {
		return id
	}
	id := b.Type(Tint{Kind: k})
	b.ints[k] = id
	return id
}

// Float returns the shared floating type of kind k
func (b *Builder) Float(k FloatKind) TypeID {
	if id, ok := b.floats[k]; ok {
		return id
	}
	id := b.Type(Tfloat{Kind: k})
	b.floats[k] = id
	return id
}

// Pointer adds a pointer to pointee
func (b *Builder) Pointer(pointee QualType) TypeID {
	return b.Type(Tpointer{Pointee: pointee})
}

// Array adds a constant-size array
func (b *Builder) Array(elem TypeID, count uint64) TypeID {
	return b.Type(TconstArray{Elem: elem, Count: count})
}

// Function adds a prototyped function type
func (b *Builder) Function(ret QualType, params []QualType, variadic bool) TypeID {
	return b.Type(Tfunction{Return: ret, Params: params, Variadic: variadic, Prototyped: true})
}

// Decl adds a declaration
func (b *Builder) Decl(k DeclKind) DeclID {
	id := b.nextDecl
	b.nextDecl++
	if err := b.ctx.AddDecl(id, Decl{Kind: k}); err != nil {
		panic(err)
	}
	return id
}

// Field adds a record member
func (b *Builder) Field(name string, q QualType) DeclID {
	return b.Decl(Dfield{Name: name, Typ: q})
}

// Bitfield adds a record member of the given bit width
func (b *Builder) Bitfield(name string, q QualType, width uint64) DeclID {
	return b.Decl(Dfield{Name: name, Typ: q, BitWidth: &width})
}

// Struct adds a struct declaration over previously added fields and
// returns the declaration and its type
func (b *Builder) Struct(name string, fields ...DeclID) (DeclID, TypeID) {
	d := b.Decl(Dstruct{Name: name, Fields: fields})
	return d, b.Type(Tstruct{Decl: d})
}

// Union adds a union declaration and returns the declaration and its type
func (b *Builder) Union(name string, fields ...DeclID) (DeclID, TypeID) {
	d := b.Decl(Dunion{Name: name, Fields: fields})
	return d, b.Type(Tunion{Decl: d})
}

// Typedef adds a typedef declaration and returns it with its type
func (b *Builder) Typedef(name string, q QualType) (DeclID, TypeID) {
	d := b.Decl(Dtypedef{Name: name, Typ: q})
	return d, b.Type(Ttypedef{Decl: d})
}

// Var adds a variable declaration
func (b *Builder) Var(name string, q QualType) DeclID {
	return b.Decl(Dvariable{Name: name, Typ: q})
}

// Expr adds an expression of type q
func (b *Builder) Expr(k ExprKind, q QualType) ExprID {
	id := b.nextExpr
	b.nextExpr++
	if err := b.ctx.AddExpr(id, Expr{Kind: k, Typ: q}); err != nil {
		panic(err)
	}
	return id
}

// IntLit adds an int literal
func (b *Builder) IntLit(v uint64) ExprID {
	return b.Expr(Eliteral{Lit: LitInt, Int: v}, Unqualified(b.Int(Int)))
}

// Ref adds a reference to a variable, typed as the variable
func (b *Builder) Ref(v DeclID) ExprID {
	var q QualType
	switch d := b.ctx.Decl(v).Kind.(type) {
	case Dvariable:
		q = d.Typ
	case Dfunction:
		q = Unqualified(d.Typ)
	}
	return b.Expr(EdeclRef{Decl: v}, q)
}

// Member adds base.field, or base->field when arrow is set
func (b *Builder) Member(base ExprID, field DeclID, arrow bool) ExprID {
	f := b.ctx.Decl(field).Kind.(Dfield)
	return b.Expr(Emember{Base: base, Field: field, Arrow: arrow}, f.Typ)
}

// Load wraps an lvalue in an lvalue-to-rvalue conversion. The result is
// unqualified, as in C.
func (b *Builder) Load(e ExprID) ExprID {
	q := b.ctx.ExprQualType(e)
	return b.Expr(EimplicitCast{Kind: LValueToRValue, Arg: e}, Unqualified(q.Type))
}

// Cast adds an implicit conversion to type t
func (b *Builder) Cast(kind CastKind, e ExprID, t TypeID) ExprID {
	return b.Expr(EimplicitCast{Kind: kind, Arg: e}, Unqualified(t))
}

// Unary adds a unary operator application of type q
func (b *Builder) Unary(op UnOp, arg ExprID, q QualType) ExprID {
	return b.Expr(Eunary{Op: op, Arg: arg}, q)
}

// Binary adds a binary operator application of type q
func (b *Builder) Binary(op BinOp, lhs, rhs ExprID, q QualType) ExprID {
	return b.Expr(Ebinary{Op: op, LHS: lhs, RHS: rhs}, q)
}

// CompoundAssign adds a compound assignment with its computation types
func (b *Builder) CompoundAssign(op BinOp, lhs, rhs ExprID, q, computeLHS, computeResult QualType) ExprID {
	return b.Expr(Ebinary{
		Op:                op,
		LHS:               lhs,
		RHS:               rhs,
		ComputeLHSType:    &computeLHS,
		ComputeResultType: &computeResult,
	}, q)
}
