package translator

import "github.com/raymyers/ralph-c2rust/pkg/rast"

// WithStmts is a translated value together with the statements that must
// run before it. Unsafe is set when the statements or the value need an
// unsafe block.
type WithStmts[T any] struct {
	Stmts  []rast.Stmt
	Val    T
	Unsafe bool
}

// Pure wraps a value that needs no statements
func Pure[T any](v T) WithStmts[T] {
	return WithStmts[T]{Val: v}
}

// UnsafeVal wraps a value that needs an unsafe block
func UnsafeVal[T any](v T) WithStmts[T] {
	return WithStmts[T]{Val: v, Unsafe: true}
}

// Map transforms the value, keeping the statements
func Map[T, U any](w WithStmts[T], f func(T) U) WithStmts[U] {
	return WithStmts[U]{Stmts: w.Stmts, Val: f(w.Val), Unsafe: w.Unsafe}
}

// ToExpr folds the statements into a block expression ending in the value
func ToExpr(w WithStmts[rast.Expr]) rast.Expr {
	if len(w.Stmts) == 0 && !w.Unsafe {
		return w.Val
	}
	return rast.Block{Unsafe: w.Unsafe, Stmts: w.Stmts, Value: w.Val}
}

// ToStmts turns a discarded result into statements. A value with no
// statements of its own is kept as an expression statement unless it is
// the placeholder for a value that must not be read.
func ToStmts(w WithStmts[rast.Expr]) []rast.Stmt {
	if len(w.Stmts) > 0 || isUnreadable(w.Val) {
		return w.Stmts
	}
	return []rast.Stmt{rast.Semi{X: w.Val}}
}

// isUnreadable reports whether e is the panic or compile_error placeholder
// standing in for the value of an expression translated as unused
func isUnreadable(e rast.Expr) bool {
	m, ok := e.(rast.Macro)
	return ok && (m.Name == "panic" || m.Name == "compile_error")
}

// seq accumulates statements while operands are translated in order
type seq struct {
	stmts  []rast.Stmt
	unsafe bool
}

// take records w's statements and returns its value
func (s *seq) take(w WithStmts[rast.Expr]) rast.Expr {
	s.stmts = append(s.stmts, w.Stmts...)
	s.unsafe = s.unsafe || w.Unsafe
	return w.Val
}

func (s *seq) stmt(st ...rast.Stmt) {
	s.stmts = append(s.stmts, st...)
}

func (s *seq) markUnsafe() {
	s.unsafe = true
}

func (s *seq) done(v rast.Expr) WithStmts[rast.Expr] {
	return WithStmts[rast.Expr]{Stmts: s.stmts, Val: v, Unsafe: s.unsafe}
}
