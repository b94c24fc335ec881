package translator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/raymyers/ralph-c2rust/pkg/rast"
)

func TestToExpr(t *testing.T) {
	x := rast.Ident("x")
	assert.Equal(t, "x", rast.ExprString(ToExpr(Pure[rast.Expr](x))))
	assert.Equal(t, "unsafe { x }", rast.ExprString(ToExpr(UnsafeVal[rast.Expr](x))))

	w := WithStmts[rast.Expr]{Stmts: []rast.Stmt{rast.Local{Name: "fresh", Init: rast.Int(1)}}, Val: x}
	assert.Equal(t, rast.Block{Stmts: w.Stmts, Value: x}, ToExpr(w))
}

func TestToStmts(t *testing.T) {
	x := rast.Ident("x")
	assert.Equal(t, []rast.Stmt{rast.Semi{X: x}}, ToStmts(Pure[rast.Expr](x)))

	assign := rast.Semi{X: rast.Assign{L: x, R: rast.Int(2)}}
	w := WithStmts[rast.Expr]{Stmts: []rast.Stmt{assign}, Val: x}
	assert.Equal(t, []rast.Stmt{assign}, ToStmts(w), "the value of a discarded result is dropped")

	unread := rast.Macro{Name: "panic", Args: []rast.Expr{rast.Str("value is not supposed to be read")}}
	assert.Empty(t, ToStmts(Pure[rast.Expr](unread)))
	w = WithStmts[rast.Expr]{Stmts: []rast.Stmt{assign}, Val: unread}
	assert.Equal(t, []rast.Stmt{assign}, ToStmts(w))
	unread.Name = "compile_error"
	assert.Empty(t, ToStmts(Pure[rast.Expr](unread)))
}

func TestSeqKeepsOrderAndUnsafety(t *testing.T) {
	var s seq
	a := s.take(WithStmts[rast.Expr]{Stmts: []rast.Stmt{rast.Semi{X: rast.Ident("a")}}, Val: rast.Ident("va")})
	b := s.take(UnsafeVal[rast.Expr](rast.Ident("vb")))
	s.stmt(rast.Semi{X: rast.Ident("c")})
	w := s.done(rast.Bin(rast.Add, a, b))

	assert.True(t, w.Unsafe)
	assert.Equal(t, "va + vb", rast.ExprString(w.Val))
	assert.Len(t, w.Stmts, 2)

	m := Map(w, func(e rast.Expr) string { return rast.ExprString(e) })
	assert.Equal(t, "va + vb", m.Val)
	assert.True(t, m.Unsafe)
}
