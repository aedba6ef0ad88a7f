package vm

// ---------------------------------------------------------------------------
// Proc: closures over a shared environment
// ---------------------------------------------------------------------------

// ProcKind distinguishes the three closure flavours.
type ProcKind uint8

const (
	// ProcBlock is a block literal that has not been reified.
	ProcBlock ProcKind = iota
	// ProcProc is a block captured as an object (Proc.new, proc, &blk).
	ProcProc
	// ProcLambda checks arity strictly and treats return as local.
	ProcLambda
)

func (k ProcKind) String() string {
	switch k {
	case ProcBlock:
		return "block"
	case ProcProc:
		return "proc"
	case ProcLambda:
		return "lambda"
	}
	return "unknown"
}

// Proc is a block, proc or lambda. It shares (does not copy) the Env of
// the frame that created it, so assignments through either are visible to
// both, and keeps that Env alive after the frame is popped.
type Proc struct {
	header

	kind   ProcKind
	params Params
	body   Body
	env    *Env
	self   Value
	method *Method
	owner  *Class
	cref   *Class

	// home is the method activation a bare return targets.
	home *Frame
	// outerBlock is the block of the defining method, visible to yield.
	outerBlock Value
	// breakTo is the activation of the call that first received this
	// closure as its block argument; break ends that call.
	breakTo *Frame
}

// Kind returns the closure flavour.
func (p *Proc) Kind() ProcKind { return p.kind }

// IsLambda reports whether p has lambda semantics.
func (p *Proc) IsLambda() bool { return p.kind == ProcLambda }

// Params returns the closure's parameter list.
func (p *Proc) Params() *Params { return &p.params }

// Env returns the captured environment.
func (p *Proc) Env() *Env { return p.env }

// Self returns the captured receiver.
func (p *Proc) Self() Value { return p.self }

// Home returns the defining method activation.
func (p *Proc) Home() *Frame { return p.home }

// BreakTarget returns the activation a break inside p would end.
func (p *Proc) BreakTarget() *Frame { return p.breakTo }

// Arity follows Ruby's Proc#arity: lambdas report like methods; procs
// ignore optional parameters unless a rest parameter is present.
func (p *Proc) Arity() int {
	if p.kind == ProcLambda || p.params.Rest != "" {
		return p.params.Arity()
	}
	n := len(p.params.Required) + len(p.params.Post)
	if len(p.params.RequiredKw) > 0 {
		n++
	}
	return n
}

// reify turns a block literal into a proc object. Lambdas stay lambdas.
func (p *Proc) reify() {
	if p.kind == ProcBlock {
		p.kind = ProcProc
	}
}

// newProc captures the current frame.
func (fr *Frame) newProc(kind ProcKind, params Params, body Body) *Proc {
	p := &Proc{
		header:     newHeader(),
		kind:       kind,
		params:     params,
		body:       body,
		env:        fr.env,
		self:       fr.self,
		method:     fr.method,
		owner:      fr.owner,
		cref:       fr.cref,
		home:       fr.home,
		outerBlock: fr.block,
	}
	return p
}

// Block creates a block literal closing over fr. Pass it as Args.Block.
func (fr *Frame) Block(params Params, body Body) Value {
	return ProcValue(fr.newProc(ProcBlock, params, body))
}

// Lambda creates a lambda literal (->(params) { body }).
func (fr *Frame) Lambda(params Params, body Body) Value {
	return ProcValue(fr.newProc(ProcLambda, params, body))
}

// ProcNew creates a proc object (Proc.new { }), whose break has no
// receiving call and therefore raises LocalJumpError when used.
func (fr *Frame) ProcNew(params Params, body Body) Value {
	return ProcValue(fr.newProc(ProcProc, params, body))
}

// ---------------------------------------------------------------------------
// Invocation
// ---------------------------------------------------------------------------

// Yield invokes the block of the enclosing method activation.
func (fr *Frame) Yield(args ...Value) (Value, error) {
	return fr.YieldWith(Args{Positional: args})
}

// YieldWith invokes the enclosing method's block with full actuals.
func (fr *Frame) YieldWith(args Args) (Value, error) {
	if !fr.block.IsProc() {
		return Nil, fr.Raise(fr.vm.LocalJumpErrorClass, "no block given (yield)")
	}
	return fr.vm.interp.callProc(fr, fr.block.Proc(), args)
}

// CallProc invokes any closure value, as Proc#call does.
func (fr *Frame) CallProc(p *Proc, args ...Value) (Value, error) {
	return fr.vm.interp.callProc(fr, p, Args{Positional: args})
}

// CallProcWith invokes a closure with full actuals.
func (fr *Frame) CallProcWith(p *Proc, args Args) (Value, error) {
	return fr.vm.interp.callProc(fr, p, args)
}
