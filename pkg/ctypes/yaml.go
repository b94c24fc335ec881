package ctypes

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/raymyers/ralph-c2rust/pkg/diag"
)

// Document is the YAML form of a typed translation unit
type Document struct {
	File  string     `yaml:"file"`
	Types []typeNode `yaml:"types"`
	Decls []declNode `yaml:"decls"`
	Exprs []exprNode `yaml:"exprs"`
	Roots []rootNode `yaml:"roots"`
}

// qualNode accepts either a bare type id or a mapping with qualifiers
type qualNode struct {
	Type     TypeID `yaml:"type"`
	Const    bool   `yaml:"const"`
	Volatile bool   `yaml:"volatile"`
	Restrict bool   `yaml:"restrict"`
}

func (q *qualNode) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		return n.Decode(&q.Type)
	}
	type plain qualNode
	return n.Decode((*plain)(q))
}

func (q qualNode) qualType() QualType {
	return QualType{Type: q.Type, Quals: Qualifiers{Const: q.Const, Volatile: q.Volatile, Restrict: q.Restrict}}
}

type locNode struct {
	Line   int `yaml:"line"`
	Column int `yaml:"col"`
}

type typeNode struct {
	ID         TypeID     `yaml:"id"`
	Kind       string     `yaml:"kind"`
	Name       string     `yaml:"name"`
	Pointee    *qualNode  `yaml:"pointee"`
	Elem       TypeID     `yaml:"elem"`
	Count      uint64     `yaml:"count"`
	CountExpr  *ExprID    `yaml:"count_expr"`
	Return     *qualNode  `yaml:"return"`
	Params     []qualNode `yaml:"params"`
	Variadic   bool       `yaml:"variadic"`
	NoReturn   bool       `yaml:"noreturn"`
	Prototyped *bool      `yaml:"prototyped"`
	Decl       DeclID     `yaml:"decl"`
	Inner      *qualNode  `yaml:"inner"`
}

type declNode struct {
	ID        DeclID    `yaml:"id"`
	Kind      string    `yaml:"kind"`
	Name      string    `yaml:"name"`
	Fields    []DeclID  `yaml:"fields"`
	Size      *int64    `yaml:"size"`
	Integral  *TypeID   `yaml:"integral"`
	Type      *qualNode `yaml:"type"`
	BitWidth  *uint64   `yaml:"bit_width"`
	BitOffset *uint64   `yaml:"bit_offset"`
	Static    bool      `yaml:"static"`
	Params    []DeclID  `yaml:"params"`
	Loc       *locNode  `yaml:"loc"`
}

type exprNode struct {
	ID            ExprID    `yaml:"id"`
	Kind          string    `yaml:"kind"`
	Type          *qualNode `yaml:"type"`
	Value         uint64    `yaml:"value"`
	Float         float64   `yaml:"float"`
	Decl          DeclID    `yaml:"decl"`
	Base          ExprID    `yaml:"base"`
	Field         DeclID    `yaml:"field"`
	Arrow         bool      `yaml:"arrow"`
	Index         ExprID    `yaml:"index"`
	Op            string    `yaml:"op"`
	Arg           ExprID    `yaml:"arg"`
	LHS           ExprID    `yaml:"lhs"`
	RHS           ExprID    `yaml:"rhs"`
	ComputeLHS    *qualNode `yaml:"compute_lhs"`
	ComputeResult *qualNode `yaml:"compute_result"`
	Cast          string    `yaml:"cast"`
	Inner         ExprID    `yaml:"inner"`
	Loc           *locNode  `yaml:"loc"`
}

type rootNode struct {
	Expr      ExprID `yaml:"expr"`
	Discarded bool   `yaml:"discarded"`
	Const     bool   `yaml:"const"`
	Static    bool   `yaml:"static"`
}

// LoadYAML reads a typed translation unit and validates its references
func LoadYAML(r io.Reader) (*Context, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "decoding typed AST")
	}
	return doc.Build()
}

// Build converts the document into a validated Context
func (doc *Document) Build() (*Context, error) {
	ctx := NewContext()
	ctx.File = doc.File

	for _, n := range doc.Types {
		k, err := n.kind()
		if err != nil {
			return nil, errors.Wrapf(err, "type %d", n.ID)
		}
		if err := ctx.AddType(n.ID, k); err != nil {
			return nil, err
		}
	}
	for _, n := range doc.Decls {
		k, err := n.kind()
		if err != nil {
			return nil, errors.Wrapf(err, "decl %d", n.ID)
		}
		if err := ctx.AddDecl(n.ID, Decl{Kind: k, Loc: n.Loc.loc(doc.File)}); err != nil {
			return nil, err
		}
	}
	for _, n := range doc.Exprs {
		k, err := n.kind()
		if err != nil {
			return nil, errors.Wrapf(err, "expr %d", n.ID)
		}
		if n.Type == nil {
			return nil, fmt.Errorf("expr %d: missing type", n.ID)
		}
		e := Expr{Kind: k, Typ: n.Type.qualType(), Loc: n.Loc.loc(doc.File)}
		if err := ctx.AddExpr(n.ID, e); err != nil {
			return nil, err
		}
	}
	for _, r := range doc.Roots {
		ctx.AddRoot(Root{Expr: r.Expr, Discarded: r.Discarded, Const: r.Const, Static: r.Static})
	}

	if err := ctx.Validate(); err != nil {
		return nil, err
	}
	return ctx, nil
}

func (l *locNode) loc(file string) *diag.Loc {
	if l == nil {
		return nil
	}
	return &diag.Loc{File: file, Line: l.Line, Column: l.Column}
}

func parseIntKind(s string) (IntKind, bool) {
	for k := Char; k <= UInt128; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

func parseFloatKind(s string) (FloatKind, bool) {
	for k := Float; k <= LongDouble; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

func (n typeNode) kind() (TypeKind, error) {
	need := func(q *qualNode, field string) (QualType, error) {
		if q == nil {
			return QualType{}, fmt.Errorf("%s type needs %q", n.Kind, field)
		}
		return q.qualType(), nil
	}

	switch n.Kind {
	case "void":
		return Tvoid{}, nil
	case "bool":
		return Tbool{}, nil
	case "int":
		k, ok := parseIntKind(n.Name)
		if !ok {
			return nil, fmt.Errorf("unknown integer type %q", n.Name)
		}
		return Tint{Kind: k}, nil
	case "float":
		k, ok := parseFloatKind(n.Name)
		if !ok {
			return nil, fmt.Errorf("unknown floating type %q", n.Name)
		}
		return Tfloat{Kind: k}, nil
	case "pointer":
		q, err := need(n.Pointee, "pointee")
		if err != nil {
			return nil, err
		}
		return Tpointer{Pointee: q}, nil
	case "array":
		return TconstArray{Elem: n.Elem, Count: n.Count}, nil
	case "incomplete_array":
		return TincompleteArray{Elem: n.Elem}, nil
	case "vla":
		return TvariableArray{Elem: n.Elem, Count: n.CountExpr}, nil
	case "function":
		ret, err := need(n.Return, "return")
		if err != nil {
			return nil, err
		}
		params := make([]QualType, len(n.Params))
		for i, p := range n.Params {
			params[i] = p.qualType()
		}
		prototyped := n.Prototyped == nil || *n.Prototyped
		return Tfunction{Return: ret, Params: params, Variadic: n.Variadic, NoReturn: n.NoReturn, Prototyped: prototyped}, nil
	case "struct":
		return Tstruct{Decl: n.Decl}, nil
	case "union":
		return Tunion{Decl: n.Decl}, nil
	case "enum":
		return Tenum{Decl: n.Decl}, nil
	case "typedef":
		return Ttypedef{Decl: n.Decl}, nil
	case "elaborated", "paren", "decayed", "typeof":
		q, err := need(n.Inner, "inner")
		if err != nil {
			return nil, err
		}
		switch n.Kind {
		case "elaborated":
			return Telaborated{Inner: q.Type}, nil
		case "paren":
			return Tparen{Inner: q.Type}, nil
		case "decayed":
			return Tdecayed{Inner: q.Type}, nil
		}
		return TtypeOf{Inner: q.Type}, nil
	case "attributed":
		q, err := need(n.Inner, "inner")
		if err != nil {
			return nil, err
		}
		return Tattributed{Inner: q}, nil
	case "complex":
		return Tcomplex{Elem: n.Elem}, nil
	}
	return nil, fmt.Errorf("unknown type kind %q", n.Kind)
}

func (n declNode) kind() (DeclKind, error) {
	typ := func() (QualType, error) {
		if n.Type == nil {
			return QualType{}, fmt.Errorf("%s decl needs a type", n.Kind)
		}
		return n.Type.qualType(), nil
	}

	switch n.Kind {
	case "struct":
		return Dstruct{Name: n.Name, Fields: n.Fields, Size: n.Size}, nil
	case "union":
		return Dunion{Name: n.Name, Fields: n.Fields, Size: n.Size}, nil
	case "enum":
		return Denum{Name: n.Name, Integral: n.Integral}, nil
	case "typedef":
		q, err := typ()
		if err != nil {
			return nil, err
		}
		return Dtypedef{Name: n.Name, Typ: q}, nil
	case "field":
		q, err := typ()
		if err != nil {
			return nil, err
		}
		return Dfield{Name: n.Name, Typ: q, BitWidth: n.BitWidth, BitOffset: n.BitOffset}, nil
	case "var":
		q, err := typ()
		if err != nil {
			return nil, err
		}
		return Dvariable{Name: n.Name, Typ: q, Static: n.Static}, nil
	case "function":
		q, err := typ()
		if err != nil {
			return nil, err
		}
		return Dfunction{Name: n.Name, Typ: q.Type, Params: n.Params}, nil
	}
	return nil, fmt.Errorf("unknown decl kind %q", n.Kind)
}

func (n exprNode) kind() (ExprKind, error) {
	switch n.Kind {
	case "int":
		return Eliteral{Lit: LitInt, Int: n.Value}, nil
	case "char":
		return Eliteral{Lit: LitChar, Int: n.Value}, nil
	case "float":
		return Eliteral{Lit: LitFloat, Float: n.Float}, nil
	case "ref":
		return EdeclRef{Decl: n.Decl}, nil
	case "member":
		return Emember{Base: n.Base, Field: n.Field, Arrow: n.Arrow}, nil
	case "index":
		return Eindex{Base: n.Base, Index: n.Index}, nil
	case "unary":
		op, err := ParseUnOp(n.Op)
		if err != nil {
			return nil, err
		}
		return Eunary{Op: op, Arg: n.Arg}, nil
	case "binary":
		op, err := ParseBinOp(n.Op)
		if err != nil {
			return nil, err
		}
		e := Ebinary{Op: op, LHS: n.LHS, RHS: n.RHS}
		if n.ComputeLHS != nil {
			q := n.ComputeLHS.qualType()
			e.ComputeLHSType = &q
		}
		if n.ComputeResult != nil {
			q := n.ComputeResult.qualType()
			e.ComputeResultType = &q
		}
		return e, nil
	case "implicit_cast", "cast":
		kind, err := ParseCastKind(n.Cast)
		if err != nil {
			return nil, err
		}
		if n.Kind == "cast" {
			return EexplicitCast{Kind: kind, Arg: n.Arg}, nil
		}
		return EimplicitCast{Kind: kind, Arg: n.Arg}, nil
	case "paren":
		return Eparen{Inner: n.Inner}, nil
	}
	return nil, fmt.Errorf("unknown expr kind %q", n.Kind)
}
