// Package translator translates C operators into Rust expressions that
// keep C's arithmetic, pointer and memory-access semantics: wrapping
// unsigned arithmetic, byte-scaled pointer offsets, optional function
// pointers, volatile accesses and bitfield read-modify-write.
package translator

import (
	"github.com/sirupsen/logrus"

	"github.com/raymyers/ralph-c2rust/pkg/ctypes"
	"github.com/raymyers/ralph-c2rust/pkg/diag"
	"github.com/raymyers/ralph-c2rust/pkg/rast"
	"github.com/raymyers/ralph-c2rust/pkg/renamer"
	"github.com/raymyers/ralph-c2rust/pkg/typeconv"
)

// InvalidCode selects how a value that must never be read is spelled
type InvalidCode int

const (
	// InvalidCodePanic emits panic!(..), failing when reached
	InvalidCodePanic InvalidCode = iota
	// InvalidCodeCompileError emits compile_error!(..), failing the build
	InvalidCodeCompileError
)

// Options configures a Translation
type Options struct {
	TranslateValist bool
	EmitNoStd       bool
	InvalidCode     InvalidCode
}

// Translation translates the expressions of one unit
type Translation struct {
	ctx    *ctypes.Context
	types  *typeconv.TypeConverter
	values *renamer.Renamer[ctypes.DeclID]
	opts   Options
	log    *logrus.Entry
}

// New creates a translation over ctx. A nil log uses the standard logger.
func New(ctx *ctypes.Context, opts Options, log *logrus.Entry) *Translation {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	types := typeconv.New(log)
	types.TranslateValist = opts.TranslateValist
	types.EmitNoStd = opts.EmitNoStd
	return &Translation{
		ctx:    ctx,
		types:  types,
		values: renamer.New[ctypes.DeclID](typeconv.ReservedNames...),
		opts:   opts,
		log:    log.WithField("component", "translator"),
	}
}

// TypeConverter returns the converter owning the unit's type names
func (t *Translation) TypeConverter() *typeconv.TypeConverter {
	return t.types
}

// ConvertType converts a C type in this unit
func (t *Translation) ConvertType(id ctypes.TypeID) (rast.Ty, error) {
	return t.types.Convert(t.ctx, id)
}

// FeaturesUsed returns the language features the translated code needs
func (t *Translation) FeaturesUsed() []string {
	return t.types.FeaturesUsed()
}

// valueName returns the name of a variable or function, naming it on first
// reference
func (t *Translation) valueName(decl ctypes.DeclID) (string, error) {
	if name, ok := t.values.Get(decl); ok {
		return name, nil
	}
	name, err := t.values.Insert(decl, t.ctx.Decl(decl).Kind.DeclName())
	if err != nil {
		return "", diag.Wrap(diag.NameCollision, err, "declare value name")
	}
	t.log.WithFields(logrus.Fields{"decl": decl, "name": name}).Debug("declared value")
	return name, nil
}

func (t *Translation) stdPath(names ...string) rast.PathExpr {
	return rast.GlobalPath(append([]string{t.types.StdRoot()}, names...)...)
}

// panicOrErr is the value standing in for a result that must not be read
func (t *Translation) panicOrErr(msg string) rast.Expr {
	name := "panic"
	if t.opts.InvalidCode == InvalidCodeCompileError {
		name = "compile_error"
	}
	return rast.Macro{Name: name, Args: []rast.Expr{rast.Str(msg)}}
}

// volatileRead reads place of type ty without letting the access be
// elided. A dereference reads through its pointer directly.
func (t *Translation) volatileRead(place rast.Expr, ty rast.Ty) rast.Expr {
	var addr rast.Expr
	if u, ok := place.(rast.Unary); ok && u.Op == rast.Deref {
		addr = u.X
	} else {
		addr = rast.CastTo(rast.AddrOf{X: place}, rast.Ptr(false, ty))
	}
	t.log.Debug("volatile read")
	return rast.CallPath(t.stdPath("ptr", "read_volatile"), addr)
}

// volatileWrite stores val into place of type ty
func (t *Translation) volatileWrite(place rast.Expr, ty rast.Ty, val rast.Expr) rast.Expr {
	var addr rast.Expr
	if u, ok := place.(rast.Unary); ok && u.Op == rast.Deref {
		addr = u.X
	} else {
		addr = rast.CastTo(rast.AddrOf{Mutable: true, X: place}, rast.Ptr(true, ty))
	}
	t.log.Debug("volatile write")
	return rast.CallPath(t.stdPath("ptr", "write_volatile"), addr, val)
}

// volatileReadOf reads place as the C type q
func (t *Translation) volatileReadOf(place rast.Expr, q ctypes.QualType) (rast.Expr, error) {
	ty, err := t.ConvertType(q.Type)
	if err != nil {
		return nil, err
	}
	return t.volatileRead(place, ty), nil
}

// transmute reinterprets the bits of val as to. Inside constant expressions
// this needs the const_transmute feature.
func (t *Translation) transmute(ctx ExprContext, val rast.Expr, from, to rast.Ty) rast.Expr {
	if ctx.IsConst {
		t.types.UseFeature(typeconv.FeatureConstTransmute)
	}
	t.log.Debug("enum result transmuted")
	return rast.CallPath(t.stdPath("mem", "transmute").WithGenerics(from, to), val)
}

// boolToInt converts a Rust bool to C's int truth value
func boolToInt(e rast.Expr) rast.Expr {
	return rast.CastTo(e, cInt())
}

func cInt() rast.Ty {
	return rast.PathTy("libc", "c_int")
}

// skipParens strips parentheses from an expression id
func (t *Translation) skipParens(id ctypes.ExprID) ctypes.ExprID {
	for {
		p, ok := t.ctx.Expr(id).Kind.(ctypes.Eparen)
		if !ok {
			return id
		}
		id = p.Inner
	}
}

func (t *Translation) isPointer(q ctypes.QualType) bool {
	_, ok := t.ctx.ResolveType(q.Type).(ctypes.Tpointer)
	return ok
}

func (t *Translation) sameType(a, b ctypes.TypeID) bool {
	return a == b || t.ctx.ResolveTypeID(a) == t.ctx.ResolveTypeID(b)
}

// loc returns the position of an expression for error reporting
func (t *Translation) loc(id ctypes.ExprID) *diag.Loc {
	e, ok := t.ctx.LookupExpr(id)
	if !ok || e.Loc == nil {
		return nil
	}
	l := *e.Loc
	if l.File == "" {
		l.File = t.ctx.File
	}
	return &l
}
