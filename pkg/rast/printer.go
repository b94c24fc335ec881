package rast

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Operator binding strength, loosest first
const (
	precAssign = iota + 1
	precOr
	precAnd
	precCompare
	precBitOr
	precBitXor
	precBitAnd
	precShift
	precAdditive
	precMultiplicative
	precCast
	precUnary
	precPostfix
)

func binPrec(op BinOp) int {
	switch op {
	case Or:
		return precOr
	case And:
		return precAnd
	case Eq, Ne, Lt, Le, Gt, Ge:
		return precCompare
	case BitOr:
		return precBitOr
	case BitXor:
		return precBitXor
	case BitAnd:
		return precBitAnd
	case Shl, Shr:
		return precShift
	case Add, Sub:
		return precAdditive
	}
	return precMultiplicative
}

func precedence(e Expr) int {
	switch x := e.(type) {
	case Assign, AssignOp:
		return precAssign
	case Binary:
		return binPrec(x.Op)
	case Cast:
		return precCast
	case Unary, AddrOf:
		return precUnary
	}
	return precPostfix
}

// Printer writes the Rust AST as source text
type Printer struct {
	w      io.Writer
	indent int
}

// NewPrinter creates a new Rust AST printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, indent: 0}
}

// ExprString renders an expression on its own
func ExprString(e Expr) string {
	var sb strings.Builder
	NewPrinter(&sb).PrintExpr(e)
	return sb.String()
}

// TyString renders a type on its own
func TyString(t Ty) string {
	var sb strings.Builder
	NewPrinter(&sb).PrintTy(t)
	return sb.String()
}

// StmtString renders a statement on its own, without indentation or newline
func StmtString(s Stmt) string {
	var sb strings.Builder
	NewPrinter(&sb).printStmtInline(s)
	return sb.String()
}

// PrintFeatures writes the crate attribute enabling the given features
func (p *Printer) PrintFeatures(features []string) {
	if len(features) == 0 {
		return
	}
	sorted := append([]string(nil), features...)
	sort.Strings(sorted)
	fmt.Fprintf(p.w, "#![feature(%s)]\n", strings.Join(sorted, ", "))
}

// PrintItem writes a module-level item followed by a newline
func (p *Printer) PrintItem(item Item) {
	switch it := item.(type) {
	case StructDef:
		for _, a := range it.Attrs {
			p.writeIndent()
			fmt.Fprintf(p.w, "#[%s]\n", a)
		}
		p.writeIndent()
		kw := "struct"
		if it.Union {
			kw = "union"
		}
		fmt.Fprintf(p.w, "pub %s %s {\n", kw, it.Name)
		p.indent++
		for _, f := range it.Fields {
			p.writeIndent()
			fmt.Fprintf(p.w, "pub %s: ", f.Name)
			p.PrintTy(f.Ty)
			fmt.Fprintln(p.w, ",")
		}
		p.indent--
		p.writeIndent()
		fmt.Fprintln(p.w, "}")

	case TypeAlias:
		p.writeIndent()
		fmt.Fprintf(p.w, "pub type %s = ", it.Name)
		p.PrintTy(it.Ty)
		fmt.Fprintln(p.w, ";")

	default:
		fmt.Fprintf(p.w, "/* unknown item %T */\n", item)
	}
}

func (p *Printer) writeIndent() {
	fmt.Fprint(p.w, strings.Repeat("    ", p.indent))
}

// PrintTy writes a type
func (p *Printer) PrintTy(t Ty) {
	switch ty := t.(type) {
	case TyPath:
		if ty.Global {
			fmt.Fprint(p.w, "::")
		}
		p.printSegments(ty.Segments, false)

	case TyPtr:
		if ty.Mutable {
			fmt.Fprint(p.w, "*mut ")
		} else {
			fmt.Fprint(p.w, "*const ")
		}
		p.PrintTy(ty.Elem)

	case TyArray:
		fmt.Fprint(p.w, "[")
		p.PrintTy(ty.Elem)
		fmt.Fprint(p.w, "; ")
		p.PrintExpr(ty.Len)
		fmt.Fprint(p.w, "]")

	case TyTuple:
		fmt.Fprint(p.w, "(")
		for i, e := range ty.Elems {
			if i > 0 {
				fmt.Fprint(p.w, ", ")
			}
			p.PrintTy(e)
		}
		if len(ty.Elems) == 1 {
			fmt.Fprint(p.w, ",")
		}
		fmt.Fprint(p.w, ")")

	case TyNever:
		fmt.Fprint(p.w, "!")

	case TyBareFn:
		if ty.Unsafe {
			fmt.Fprint(p.w, "unsafe ")
		}
		if ty.ABI != "" {
			fmt.Fprintf(p.w, "extern %q ", ty.ABI)
		}
		fmt.Fprint(p.w, "fn(")
		for i, param := range ty.Params {
			if i > 0 {
				fmt.Fprint(p.w, ", ")
			}
			p.PrintTy(param)
		}
		fmt.Fprint(p.w, ")")
		if ty.Ret != nil {
			fmt.Fprint(p.w, " -> ")
			p.PrintTy(ty.Ret)
		}

	case TyCVarArgs:
		fmt.Fprint(p.w, "...")

	default:
		fmt.Fprintf(p.w, "/* unknown type %T */", t)
	}
}

func (p *Printer) printSegments(segs []PathSegment, turbofish bool) {
	for i, seg := range segs {
		if i > 0 {
			fmt.Fprint(p.w, "::")
		}
		fmt.Fprint(p.w, seg.Name)
		if len(seg.Args) > 0 {
			p.printGenerics(seg.Args, turbofish)
		}
	}
}

func (p *Printer) printGenerics(args []Ty, turbofish bool) {
	if turbofish {
		fmt.Fprint(p.w, "::")
	}
	fmt.Fprint(p.w, "<")
	for i, a := range args {
		if i > 0 {
			fmt.Fprint(p.w, ", ")
		}
		p.PrintTy(a)
	}
	fmt.Fprint(p.w, ">")
}

// PrintStmt writes an indented statement followed by a newline
func (p *Printer) PrintStmt(s Stmt) {
	p.writeIndent()
	p.printStmtInline(s)
	fmt.Fprintln(p.w)
}

func (p *Printer) printStmtInline(s Stmt) {
	switch st := s.(type) {
	case Local:
		fmt.Fprint(p.w, "let ")
		if st.Ref {
			fmt.Fprint(p.w, "ref ")
		}
		if st.Mutable {
			fmt.Fprint(p.w, "mut ")
		}
		fmt.Fprint(p.w, st.Name)
		if st.Ty != nil {
			fmt.Fprint(p.w, ": ")
			p.PrintTy(st.Ty)
		}
		if st.Init != nil {
			fmt.Fprint(p.w, " = ")
			p.PrintExpr(st.Init)
		}
		fmt.Fprint(p.w, ";")

	case Semi:
		p.PrintExpr(st.X)
		fmt.Fprint(p.w, ";")

	default:
		fmt.Fprintf(p.w, "/* unknown stmt %T */", s)
	}
}

// PrintExpr writes an expression, adding parentheses only where operator
// precedence requires them
func (p *Printer) PrintExpr(expr Expr) {
	switch e := expr.(type) {
	case Lit:
		fmt.Fprint(p.w, e.Text)

	case PathExpr:
		if e.Global {
			fmt.Fprint(p.w, "::")
		}
		p.printSegments(e.Segments, true)

	case Unary:
		fmt.Fprint(p.w, e.Op.String())
		p.printOperand(e.X, precUnary)

	case AddrOf:
		if e.Mutable {
			fmt.Fprint(p.w, "&mut ")
		} else {
			fmt.Fprint(p.w, "&")
		}
		p.printOperand(e.X, precUnary)

	case Binary:
		prec := binPrec(e.Op)
		leftMin := prec
		if e.Op.IsComparison() {
			leftMin = prec + 1
		}
		// `x as T < y` would parse T< as the start of generic arguments
		if _, isCast := e.L.(Cast); isCast && (e.Op == Lt || e.Op == Shl) {
			leftMin = precPostfix
		}
		p.printOperand(e.L, leftMin)
		fmt.Fprintf(p.w, " %s ", e.Op.String())
		p.printOperand(e.R, prec+1)

	case Assign:
		p.printOperand(e.L, precAssign+1)
		fmt.Fprint(p.w, " = ")
		p.printOperand(e.R, precAssign)

	case AssignOp:
		p.printOperand(e.L, precAssign+1)
		fmt.Fprintf(p.w, " %s= ", e.Op.String())
		p.printOperand(e.R, precAssign)

	case Cast:
		p.printOperand(e.X, precCast)
		fmt.Fprint(p.w, " as ")
		p.PrintTy(e.Ty)

	case Call:
		p.printOperand(e.Fn, precPostfix)
		p.printArgs(e.Args)

	case MethodCall:
		p.printOperand(e.Recv, precPostfix)
		fmt.Fprintf(p.w, ".%s", e.Method)
		if len(e.Generics) > 0 {
			p.printGenerics(e.Generics, true)
		}
		p.printArgs(e.Args)

	case Field:
		p.printOperand(e.X, precPostfix)
		fmt.Fprintf(p.w, ".%s", e.Name)

	case Index:
		p.printOperand(e.X, precPostfix)
		fmt.Fprint(p.w, "[")
		p.PrintExpr(e.Idx)
		fmt.Fprint(p.w, "]")

	case Paren:
		fmt.Fprint(p.w, "(")
		p.PrintExpr(e.X)
		fmt.Fprint(p.w, ")")

	case Block:
		p.printBlock(e)

	case Macro:
		fmt.Fprintf(p.w, "%s!", e.Name)
		p.printArgs(e.Args)

	default:
		fmt.Fprintf(p.w, "/* unknown expr %T */", expr)
	}
}

func (p *Printer) printArgs(args []Expr) {
	fmt.Fprint(p.w, "(")
	for i, a := range args {
		if i > 0 {
			fmt.Fprint(p.w, ", ")
		}
		p.PrintExpr(a)
	}
	fmt.Fprint(p.w, ")")
}

// printOperand prints expr, wrapping it in parens if it binds looser than min
func (p *Printer) printOperand(expr Expr, min int) {
	if precedence(expr) < min {
		fmt.Fprint(p.w, "(")
		p.PrintExpr(expr)
		fmt.Fprint(p.w, ")")
	} else {
		p.PrintExpr(expr)
	}
}

func (p *Printer) printBlock(b Block) {
	if b.Unsafe {
		fmt.Fprint(p.w, "unsafe ")
	}
	if len(b.Stmts) == 0 && b.Value != nil {
		fmt.Fprint(p.w, "{ ")
		p.PrintExpr(b.Value)
		fmt.Fprint(p.w, " }")
		return
	}
	fmt.Fprintln(p.w, "{")
	p.indent++
	for _, s := range b.Stmts {
		p.PrintStmt(s)
	}
	if b.Value != nil {
		p.writeIndent()
		p.PrintExpr(b.Value)
		fmt.Fprintln(p.w)
	}
	p.indent--
	p.writeIndent()
	fmt.Fprint(p.w, "}")
}
