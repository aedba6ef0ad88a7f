package vm

// ---------------------------------------------------------------------------
// Interpreter: frame stack and activation loop
// ---------------------------------------------------------------------------

// Interpreter owns the engine's call stack. Every method, primitive, block
// and class-body activation pushes a Frame, runs its body as a Go call, and
// pops the frame on every exit path. The Go continuation of that call is
// the frame's program counter.
type Interpreter struct {
	vm     *VM
	frames []*Frame

	maxDepth  int
	stepLimit uint64
	steps     uint64

	cancel *cancellation
}

func newInterpreter(vm *VM, maxDepth int, stepLimit uint64) *Interpreter {
	return &Interpreter{
		vm:        vm,
		frames:    make([]*Frame, 0, 64),
		maxDepth:  maxDepth,
		stepLimit: stepLimit,
	}
}

// current returns the innermost live frame, or nil when idle.
func (in *Interpreter) current() *Frame {
	if len(in.frames) == 0 {
		return nil
	}
	return in.frames[len(in.frames)-1]
}

// Frames returns the live frames, innermost last.
func (in *Interpreter) Frames() []*Frame {
	out := make([]*Frame, len(in.frames))
	copy(out, in.frames)
	return out
}

// Steps returns the number of activations counted against the step limit
// in the current or most recent run.
func (in *Interpreter) Steps() uint64 { return in.steps }

// ---------------------------------------------------------------------------
// Frame management
// ---------------------------------------------------------------------------

// push links fr onto the stack after checking the depth and step limits.
// The limits are reported as raises from the calling frame.
func (in *Interpreter) push(fr *Frame) error {
	if err := in.tick(fr.caller); err != nil {
		return err
	}
	if in.maxDepth > 0 && len(in.frames) >= in.maxDepth {
		log.Warningf("stack depth limit %d reached in %s", in.maxDepth, fr.Label())
		return in.limitError(fr.caller, in.vm.SystemStackErrorClass, "stack level too deep")
	}
	fr.depth = len(in.frames)
	in.frames = append(in.frames, fr)
	return nil
}

// pop unlinks fr. Frames are always popped in LIFO order; marking fr done
// lets escaped closures detect that their return or break target is gone.
func (in *Interpreter) pop(fr *Frame) {
	fr.done = true
	in.frames = in.frames[:len(in.frames)-1]
}

// tick counts one unit of work against the step limit.
func (in *Interpreter) tick(fr *Frame) error {
	in.steps++
	if in.stepLimit > 0 && in.steps > in.stepLimit {
		if in.steps == in.stepLimit+1 {
			log.Warningf("step limit %d exceeded", in.stepLimit)
		}
		return in.limitError(fr, in.vm.StepLimitExceededClass, "instruction limit exceeded")
	}
	if in.cancel != nil {
		if err := in.cancel.check(in.steps); err != nil {
			return in.limitError(fr, in.vm.InterruptClass, err.Error())
		}
	}
	return nil
}

func (in *Interpreter) limitError(fr *Frame, class *Class, msg string) error {
	if fr == nil {
		return in.vm.newError(class, msg)
	}
	return fr.Raise(class, "%s", msg)
}

// Tick counts one loop iteration against the VM's step limit. Bodies that
// loop without calling back into the engine should tick each iteration.
func (fr *Frame) Tick() error {
	return fr.vm.interp.tick(fr)
}

// run executes body in fr and consumes any control signal aimed at fr.
// Everything else keeps unwinding.
func (in *Interpreter) run(fr *Frame, body Body) (Value, error) {
	v, err := body(fr)
	if err == nil {
		return v, nil
	}
	sig := fr.asSignal(err)
	if sig.Target != fr {
		return Nil, sig
	}
	switch sig.Kind {
	case SignalReturn:
		in.vm.profiler.recordReturn(fr.method)
	case SignalBreak:
		in.vm.profiler.recordBreak(fr.method)
	}
	return sig.Value, nil
}

// ---------------------------------------------------------------------------
// Activations
// ---------------------------------------------------------------------------

// invoke runs method m with self bound to recv.
func (in *Interpreter) invoke(caller *Frame, recv Value, m *Method, args Args) (Value, error) {
	fr := &Frame{
		vm:     in.vm,
		kind:   MethodFrame,
		self:   recv,
		method: m,
		owner:  m.Owner,
		cref:   m.cref,
		env:    NewEnv(nil),
		block:  args.Block,
		args:   args,
		caller: caller,
	}
	fr.home = fr

	if err := in.push(fr); err != nil {
		return Nil, err
	}
	defer in.pop(fr)

	if args.Block.IsProc() {
		if p := args.Block.Proc(); p.kind == ProcBlock && p.breakTo == nil {
			p.breakTo = fr
		}
	}
	in.vm.profiler.recordCall(m)
	if err := bind(fr, &m.Params, args, false); err != nil {
		return Nil, err
	}
	return in.run(fr, m.Body)
}

// callProc runs closure p. Block frames see the captured environment
// through a child scope; lambdas are their own return target.
func (in *Interpreter) callProc(caller *Frame, p *Proc, args Args) (Value, error) {
	kind := BlockFrame
	if p.kind == ProcLambda {
		kind = LambdaFrame
	}
	fr := &Frame{
		vm:     in.vm,
		kind:   kind,
		self:   p.self,
		method: p.method,
		owner:  p.owner,
		cref:   p.cref,
		env:    NewEnv(p.env),
		block:  p.outerBlock,
		args:   args,
		caller: caller,
		home:   p.home,
		proc:   p,
	}
	if kind == LambdaFrame {
		fr.home = fr
	}
	return in.runProc(fr, p, args)
}

// callProcAs runs p with self and the definition target rebound, the way
// define_method bodies and class_eval blocks run. A method-body activation
// (m non-nil) binds strictly and is its own return target.
func (in *Interpreter) callProcAs(caller *Frame, p *Proc, self Value, cls *Class, m *Method, args Args) (Value, error) {
	fr := &Frame{
		vm:     in.vm,
		kind:   BlockFrame,
		self:   self,
		method: p.method,
		owner:  p.owner,
		cref:   cls,
		env:    NewEnv(p.env),
		block:  p.outerBlock,
		args:   args,
		caller: caller,
		home:   p.home,
		proc:   p,
	}
	if m != nil {
		fr.kind = LambdaFrame
		fr.method = m
		fr.owner = m.Owner
		fr.block = args.Block
		fr.home = fr
	}
	return in.runProc(fr, p, args)
}

func (in *Interpreter) runProc(fr *Frame, p *Proc, args Args) (Value, error) {
	if err := in.push(fr); err != nil {
		return Nil, err
	}
	defer in.pop(fr)

	in.vm.profiler.recordBlock(p.method)
	if err := bind(fr, &p.params, args, fr.kind == BlockFrame); err != nil {
		return Nil, err
	}
	return in.run(fr, p.body)
}

// classBody runs body with self and the definition target set to cls.
func (in *Interpreter) classBody(caller *Frame, cls *Class, body Body) (Value, error) {
	kind := "class"
	if cls.isModule {
		kind = "module"
	}
	fr := &Frame{
		vm:     in.vm,
		kind:   MethodFrame,
		self:   ClassValue(cls),
		owner:  cls,
		cref:   cls,
		env:    NewEnv(nil),
		caller: caller,
		label:  "<" + kind + ":" + cls.Name() + ">",
	}
	fr.home = fr

	if err := in.push(fr); err != nil {
		return Nil, err
	}
	defer in.pop(fr)
	return in.run(fr, body)
}

// begin starts a new step budget when the engine is idle. Nested host
// calls share the budget of the run they are part of.
func (in *Interpreter) begin() {
	if len(in.frames) == 0 {
		in.steps = 0
	}
}

// top runs body as a top-level script activation with main as self.
func (in *Interpreter) top(label string, body Body) (Value, error) {
	in.begin()
	fr := &Frame{
		vm:     in.vm,
		kind:   MethodFrame,
		self:   in.vm.Main,
		env:    NewEnv(nil),
		caller: in.current(),
		label:  label,
	}
	fr.home = fr

	if err := in.push(fr); err != nil {
		return Nil, err
	}
	defer in.pop(fr)
	return in.run(fr, body)
}

// ---------------------------------------------------------------------------
// Host entry points
// ---------------------------------------------------------------------------

// Run executes body as a top-level program with main as self. An
// exception that escapes is logged and returned as a *Signal error.
func (vm *VM) Run(name string, body Body) (Value, error) {
	log.Debugf("run %s (session %s)", name, vm.ID)
	v, err := vm.interp.top("<main>", body)
	if err != nil {
		log.Errorf("%s: %s", name, FormatError(err))
	}
	return v, err
}

// Invoke calls method m on recv with args from the host. It is the
// engine's single entry point for starting execution of a resolved body.
func (vm *VM) Invoke(m *Method, recv Value, args Args) (Value, error) {
	vm.interp.begin()
	return vm.interp.invoke(vm.interp.current(), recv, m, args)
}

// Funcall sends name to recv from the host, with full dispatch including
// method_missing.
func (vm *VM) Funcall(recv Value, name string, args ...Value) (Value, error) {
	return vm.FuncallWith(recv, name, Args{Positional: args})
}

// FuncallWith is Funcall with a full argument bundle.
func (vm *VM) FuncallWith(recv Value, name string, args Args) (Value, error) {
	if fr := vm.interp.current(); fr != nil {
		return fr.SendWith(recv, name, args)
	}
	return vm.interp.top("<funcall>", func(fr *Frame) (Value, error) {
		return fr.SendWith(recv, name, args)
	})
}
