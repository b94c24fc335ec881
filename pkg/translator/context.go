package translator

// DecayRef controls whether taking an address adds a cast from the
// reference to the raw pointer type
type DecayRef int

const (
	DecayDefault DecayRef = iota
	DecayYes
	DecayNo
)

// IsNo reports whether the cast is suppressed
func (d DecayRef) IsNo() bool { return d == DecayNo }

// defaultToNo turns an undecided decay into no decay
func (d DecayRef) defaultToNo() DecayRef {
	if d == DecayDefault {
		return DecayNo
	}
	return d
}

// LRValue says whether a dereference is read as a value or used as a place
type LRValue int

const (
	LValue LRValue = iota
	RValue
)

// ExprContext carries the per-expression translation flags. It is passed
// by value; callers adjust a copy for subexpressions.
type ExprContext struct {
	unused bool

	// IsConst is set inside constant expressions, where wrapping
	// arithmetic and pointer distances are not available.
	IsConst bool
	// IsStatic is set inside static initializers.
	IsStatic bool
	DecayRef DecayRef
	// NeedsAddress is set when the result will have its address taken.
	NeedsAddress       bool
	TernaryNeedsParens bool
}

// Used returns a copy of ctx whose result is read
func (ctx ExprContext) Used() ExprContext {
	ctx.unused = false
	return ctx
}

// Unused returns a copy of ctx whose result is discarded
func (ctx ExprContext) Unused() ExprContext {
	ctx.unused = true
	return ctx
}

func (ctx ExprContext) IsUsed() bool   { return !ctx.unused }
func (ctx ExprContext) IsUnused() bool { return ctx.unused }

// WithDecayRef returns a copy of ctx with the given decay policy
func (ctx ExprContext) WithDecayRef(d DecayRef) ExprContext {
	ctx.DecayRef = d
	return ctx
}
