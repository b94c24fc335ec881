// Package transpile drives the translation of one typed C unit: it names
// and converts the unit's types, translates its root expressions and
// writes the Rust result.
package transpile

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/raymyers/ralph-c2rust/pkg/ctypes"
	"github.com/raymyers/ralph-c2rust/pkg/diag"
	"github.com/raymyers/ralph-c2rust/pkg/rast"
	"github.com/raymyers/ralph-c2rust/pkg/translator"
	"github.com/raymyers/ralph-c2rust/pkg/typeconv"
)

// Sections selects the parts of the output Run writes
type Sections struct {
	Types    bool
	Exprs    bool
	Features bool
}

// AllSections writes everything
func AllSections() Sections {
	return Sections{Types: true, Exprs: true, Features: true}
}

// Problem is a recoverable error that replaced an item by a placeholder
type Problem struct {
	Item string
	Err  error
}

func (p Problem) String() string {
	return p.Item + ": " + p.Err.Error()
}

// Transpiler translates typed units with a fixed configuration
type Transpiler struct {
	Config   Config
	Sections Sections

	log      *logrus.Entry
	problems []Problem
}

// New creates a transpiler writing every section. A nil log uses the
// standard logger.
func New(cfg Config, log *logrus.Entry) *Transpiler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Transpiler{
		Config:   cfg,
		Sections: AllSections(),
		log:      log.WithField("component", "transpile"),
	}
}

// Problems returns the recoverable errors of the last Run
func (t *Transpiler) Problems() []Problem {
	return t.problems
}

// Run translates ctx and writes the selected sections to out, feature
// gates first. Recoverable errors become placeholder comments unless
// FailOnError is set; fatal errors abort the run.
func (t *Transpiler) Run(ctx *ctypes.Context, out io.Writer) (err error) {
	t.problems = nil
	defer func() {
		if r := recover(); r != nil {
			perr, ok := r.(error)
			if !ok {
				panic(r)
			}
			err = errors.WithMessage(perr, "translation aborted")
		}
	}()

	tr := translator.New(ctx, t.Config.TranslatorOptions(), t.log)
	types := tr.TypeConverter()
	if err := types.DeclareNames(ctx); err != nil {
		return errors.WithMessage(err, "declaring names")
	}

	// every section is translated so that the feature set is complete
	var typesOut, exprsOut bytes.Buffer
	if err := t.writeTypes(ctx, types, newItemWriter(&typesOut)); err != nil {
		return err
	}
	if err := t.writeRoots(ctx, tr, newItemWriter(&exprsOut)); err != nil {
		return err
	}

	var parts []string
	if features := tr.FeaturesUsed(); t.Sections.Features && len(features) > 0 {
		var sb strings.Builder
		rast.NewPrinter(&sb).PrintFeatures(features)
		parts = append(parts, sb.String())
	}
	if t.Sections.Types && typesOut.Len() > 0 {
		parts = append(parts, typesOut.String())
	}
	if t.Sections.Exprs && exprsOut.Len() > 0 {
		parts = append(parts, exprsOut.String())
	}
	_, err = io.WriteString(out, strings.Join(parts, "\n"))
	return err
}

// itemWriter separates consecutive items with a blank line
type itemWriter struct {
	out   io.Writer
	p     *rast.Printer
	wrote bool
}

func newItemWriter(out io.Writer) *itemWriter {
	return &itemWriter{out: out, p: rast.NewPrinter(out)}
}

func (w *itemWriter) next() *rast.Printer {
	if w.wrote {
		fmt.Fprintln(w.out)
	}
	w.wrote = true
	return w.p
}

func (t *Transpiler) writeTypes(ctx *ctypes.Context, types *typeconv.TypeConverter, w *itemWriter) error {
	for _, id := range ctx.Decls() {
		item, ok, err := convertDecl(ctx, types, id)
		if err != nil {
			if err := t.skip(w, declLabel(ctx, types, id), err); err != nil {
				return err
			}
			continue
		}
		if ok {
			w.next().PrintItem(item)
		}
	}
	return nil
}

// convertDecl converts a type-defining declaration. Other declarations
// produce no item.
func convertDecl(ctx *ctypes.Context, types *typeconv.TypeConverter, id ctypes.DeclID) (rast.Item, bool, error) {
	switch ctx.Decl(id).Kind.(type) {
	case ctypes.Dstruct, ctypes.Dunion:
		def, err := types.ConvertRecord(ctx, id)
		return def, err == nil, err
	case ctypes.Denum:
		alias, err := types.ConvertEnum(ctx, id)
		return alias, err == nil, err
	case ctypes.Dtypedef:
		alias, ok, err := types.ConvertTypedef(ctx, id)
		return alias, ok, err
	}
	return nil, false, nil
}

func declLabel(ctx *ctypes.Context, types *typeconv.TypeConverter, id ctypes.DeclID) string {
	d := ctx.Decl(id)
	name, ok := types.ResolveDeclName(id)
	if !ok {
		name = d.Kind.DeclName()
	}
	var kind string
	switch d.Kind.(type) {
	case ctypes.Dstruct:
		kind = "struct"
	case ctypes.Dunion:
		kind = "union"
	case ctypes.Denum:
		kind = "enum"
	case ctypes.Dtypedef:
		kind = "typedef"
	default:
		kind = "decl"
	}
	return fmt.Sprintf("%s %s", kind, name)
}

func (t *Transpiler) writeRoots(ctx *ctypes.Context, tr *translator.Translation, w *itemWriter) error {
	for _, r := range ctx.Roots() {
		ectx := translator.ExprContext{IsConst: r.Const, IsStatic: r.Static}
		if r.Discarded {
			ectx = ectx.Unused()
		}
		res, err := tr.ConvertExpr(ectx, r.Expr)
		if err != nil {
			if err := t.skip(w, fmt.Sprintf("expr %d", r.Expr), err); err != nil {
				return err
			}
			continue
		}
		t.log.WithFields(logrus.Fields{"expr": r.Expr, "stmts": len(res.Stmts), "unsafe": res.Unsafe}).Debug("translated root")

		if !r.Discarded {
			w.next().PrintStmt(rast.Local{Name: "_", Init: translator.ToExpr(res)})
			continue
		}
		stmts := translator.ToStmts(res)
		if len(stmts) == 0 {
			continue
		}
		p := w.next()
		if res.Unsafe {
			p.PrintStmt(rast.Semi{X: rast.Block{Unsafe: true, Stmts: stmts}})
			continue
		}
		for _, s := range stmts {
			p.PrintStmt(s)
		}
	}
	return nil
}

// skip handles a failed item. Fatal errors and any error under
// FailOnError are returned; others are logged and leave a placeholder.
func (t *Transpiler) skip(w *itemWriter, item string, err error) error {
	if diag.IsFatal(err) {
		return errors.WithMessage(err, item)
	}
	if t.Config.FailOnError {
		return errors.WithMessage(err, item)
	}
	t.problems = append(t.problems, Problem{Item: item, Err: err})
	kind, _ := diag.KindOf(err)
	t.log.WithFields(logrus.Fields{"item": item, "kind": kind}).Warn(err.Error())
	w.next()
	fmt.Fprintf(w.out, "// untranslated %s: %v\n", item, err)
	return nil
}
