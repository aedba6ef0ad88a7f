package vm

// ---------------------------------------------------------------------------
// Env: shared local-variable environment
// ---------------------------------------------------------------------------

// Env is a local-variable scope. A method frame owns a root Env; each block
// invocation gets a child of the Env its closure captured, so blocks see and
// mutate the enclosing locals by reference while their own parameters and
// first-assigned locals stay private. An Env lives as long as any frame or
// closure still references it.
type Env struct {
	vars   map[string]Value
	order  []string
	parent *Env
}

// NewEnv creates a scope nested in parent (which may be nil).
func NewEnv(parent *Env) *Env {
	return &Env{vars: make(map[string]Value), parent: parent}
}

// Parent returns the enclosing scope.
func (e *Env) Parent() *Env { return e.parent }

// Lookup finds name in e or its ancestors.
func (e *Env) Lookup(name string) (Value, bool) {
	for env := e; env != nil; env = env.parent {
		if v, ok := env.vars[name]; ok {
			return v, true
		}
	}
	return Nil, false
}

// Get returns the value of name, or nil if unbound.
func (e *Env) Get(name string) Value {
	v, _ := e.Lookup(name)
	return v
}

// Set assigns to the nearest scope that already binds name, or declares
// it in e.
func (e *Env) Set(name string, v Value) {
	for env := e; env != nil; env = env.parent {
		if _, ok := env.vars[name]; ok {
			env.vars[name] = v
			return
		}
	}
	e.Declare(name, v)
}

// Declare binds name in e itself, shadowing any outer binding.
func (e *Env) Declare(name string, v Value) {
	if _, ok := e.vars[name]; !ok {
		e.order = append(e.order, name)
	}
	e.vars[name] = v
}

// Names returns the names bound directly in e, in binding order.
func (e *Env) Names() []string {
	out := make([]string, len(e.order))
	copy(out, e.order)
	return out
}

// ---------------------------------------------------------------------------
// Frame: activation record
// ---------------------------------------------------------------------------

// FrameKind distinguishes method activations from block activations.
type FrameKind uint8

const (
	MethodFrame FrameKind = iota // method, primitive or top-level activation
	BlockFrame                   // block or non-lambda proc
	LambdaFrame                  // lambda
)

func (k FrameKind) String() string {
	switch k {
	case MethodFrame:
		return "method"
	case BlockFrame:
		return "block"
	case LambdaFrame:
		return "lambda"
	}
	return "unknown"
}

// Frame is one activation on the engine's call stack. Bodies receive their
// Frame and call back into the engine through it.
//
// Two links leave a frame: caller is the dynamic caller that receives this
// frame's result; home is the method activation that lexically encloses a
// block, which is where a bare return inside the block delivers its value.
// They diverge whenever a block is passed across method boundaries.
type Frame struct {
	vm     *VM
	kind   FrameKind
	depth  int
	self   Value
	method *Method // executing method; for blocks, the lexically enclosing one
	owner  *Class  // class that defined method, where super searches resume
	cref   *Class  // lexical class for constants and def
	env    *Env
	block  Value  // block passed to the method activation
	args   Args   // actuals as received, for zero-argument super
	flat   []Value // flattened positionals, for primitives
	caller *Frame
	home   *Frame
	proc   *Proc // closure being run by a block or lambda frame

	handlers []*rescueHandler
	label    string
	done     bool
}

// VM returns the owning VM.
func (fr *Frame) VM() *VM { return fr.vm }

// Kind returns the frame kind.
func (fr *Frame) Kind() FrameKind { return fr.kind }

// Depth returns the frame's position on the stack (0 for top level).
func (fr *Frame) Depth() int { return fr.depth }

// Self returns the receiver.
func (fr *Frame) Self() Value { return fr.self }

// Method returns the executing method, or nil at top level.
func (fr *Frame) Method() *Method { return fr.method }

// Owner returns the class whose method is executing.
func (fr *Frame) Owner() *Class { return fr.owner }

// Caller returns the dynamic caller.
func (fr *Frame) Caller() *Frame { return fr.caller }

// Home returns the method frame a return from this frame targets.
func (fr *Frame) Home() *Frame { return fr.home }

// Env returns the frame's innermost scope.
func (fr *Frame) Env() *Env { return fr.env }

// Proc returns the closure a block or lambda frame is running.
func (fr *Frame) Proc() *Proc { return fr.proc }

// Done reports whether the frame has been popped.
func (fr *Frame) Done() bool { return fr.done }

// BlockArg returns the block passed to the enclosing method activation, or
// nil.
func (fr *Frame) BlockArg() Value { return fr.block }

// BlockGiven reports whether a block was passed (block_given?).
func (fr *Frame) BlockGiven() bool { return fr.block.IsProc() }

// Args returns the flattened positional actuals of a primitive activation.
func (fr *Frame) Args() []Value { return fr.flat }

// CallArgs returns the actuals as the caller supplied them.
func (fr *Frame) CallArgs() Args { return fr.args }

// Get reads a local variable.
func (fr *Frame) Get(name string) Value { return fr.env.Get(name) }

// Set assigns a local variable, writing through to an enclosing scope
// that already binds it.
func (fr *Frame) Set(name string, v Value) { fr.env.Set(name, v) }

// Label names the frame for backtraces: Class#meth, Class.meth,
// block in Class#meth, or <main>.
func (fr *Frame) Label() string {
	if fr.label != "" {
		return fr.label
	}
	base := "<main>"
	if fr.method != nil {
		base = fr.method.Label()
	}
	switch fr.kind {
	case BlockFrame, LambdaFrame:
		fr.label = "block in " + base
	default:
		fr.label = base
	}
	return fr.label
}

// Backtrace lists the labels from fr out to the top level.
func (fr *Frame) Backtrace() []string {
	var bt []string
	for f := fr; f != nil; f = f.caller {
		bt = append(bt, f.Label())
	}
	return bt
}

// ---------------------------------------------------------------------------
// Instance variables
// ---------------------------------------------------------------------------

// IVar reads an instance variable of self. Receivers that cannot hold
// instance variables read as nil.
func (fr *Frame) IVar(name string) Value {
	switch fr.self.kind {
	case KindObject:
		return fr.self.Object().IVar(name)
	case KindClass:
		return fr.self.Class().IVar(name)
	}
	return Nil
}

// SetIVar assigns an instance variable of self.
func (fr *Frame) SetIVar(name string, v Value) error {
	switch fr.self.kind {
	case KindObject:
		fr.self.Object().SetIVar(name, v)
	case KindClass:
		fr.self.Class().SetIVar(name, v)
	default:
		return fr.Raise(fr.vm.RuntimeErrorClass, "can't modify frozen %s: %s", fr.vm.ClassOf(fr.self).FullName(), Inspect(fr.self))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Definitions and constants
// ---------------------------------------------------------------------------

// Definee returns the class a bare def in this frame defines into.
func (fr *Frame) Definee() *Class {
	if fr.cref != nil {
		return fr.cref
	}
	return fr.vm.ObjectClass
}

// Def defines an instance method in the current lexical class (def name).
func (fr *Frame) Def(name string, params Params, body Body) Value {
	m := &Method{Name: name, Params: params, Body: body, cref: fr.Definee()}
	fr.Definee().DefineMethod(m)
	return Sym(name)
}

// DefSingleton defines a method on recv's singleton class (def self.name).
func (fr *Frame) DefSingleton(recv Value, name string, params Params, body Body) (Value, error) {
	sc, err := fr.vm.singletonClassFor(fr, recv)
	if err != nil {
		return Nil, err
	}
	m := &Method{Name: name, Params: params, Body: body, cref: fr.Definee()}
	sc.DefineMethod(m)
	return Sym(name), nil
}

// Const resolves a constant lexically from this frame's class outwards,
// then through that class's ancestors, then Object.
func (fr *Frame) Const(name string) (Value, error) {
	for c := fr.cref; c != nil; c = c.parent {
		if v, ok := c.ConstLocal(name); ok {
			return v, nil
		}
	}
	start := fr.cref
	if start == nil {
		start = fr.vm.ObjectClass
	}
	if v, ok := start.ConstGet(name); ok {
		return v, nil
	}
	return Nil, fr.Raise(fr.vm.NameErrorClass, "uninitialized constant %s", name)
}

// ScopedConst resolves ns::name. Unlike a bare reference it does not fall
// back to Object's constants unless ns is Object.
func (fr *Frame) ScopedConst(ns Value, name string) (Value, error) {
	if !ns.IsClass() {
		return Nil, fr.Raise(fr.vm.TypeErrorClass, "%s is not a class/module", Inspect(ns))
	}
	c := ns.Class()
	for _, a := range c.Ancestors() {
		if a == fr.vm.ObjectClass && c != fr.vm.ObjectClass {
			break
		}
		if v, ok := a.consts[name]; ok {
			return v, nil
		}
	}
	return Nil, fr.Raise(fr.vm.NameErrorClass, "uninitialized constant %s::%s", c.FullName(), name)
}

// SetConst binds a constant in the current lexical class.
func (fr *Frame) SetConst(name string, v Value) {
	fr.Definee().SetConst(name, v)
}

// ---------------------------------------------------------------------------
// Class bodies
// ---------------------------------------------------------------------------

// OpenClass runs body as the body of class name (class Name < super),
// creating the class in the current lexical scope if needed. A nil super
// means Object for new classes and "unchanged" for reopened ones.
func (fr *Frame) OpenClass(name string, super *Class, body Body) (Value, error) {
	scope := fr.Definee()
	var cls *Class
	if v, ok := scope.ConstLocal(name); ok {
		if !v.IsClass() || v.Class().isModule {
			return Nil, fr.Raise(fr.vm.TypeErrorClass, "%s is not a class", name)
		}
		cls = v.Class()
		if super != nil && cls.Superclass != super {
			return Nil, fr.Raise(fr.vm.TypeErrorClass, "superclass mismatch for class %s", name)
		}
	} else {
		cls = fr.vm.DefineClassUnder(scope, name, super)
	}
	return fr.vm.interp.classBody(fr, cls, body)
}

// OpenModule runs body as the body of module name.
func (fr *Frame) OpenModule(name string, body Body) (Value, error) {
	scope := fr.Definee()
	var mod *Class
	if v, ok := scope.ConstLocal(name); ok {
		if !v.IsClass() || !v.Class().isModule {
			return Nil, fr.Raise(fr.vm.TypeErrorClass, "%s is not a module", name)
		}
		mod = v.Class()
	} else {
		mod = fr.vm.DefineModuleUnder(scope, name)
	}
	return fr.vm.interp.classBody(fr, mod, body)
}
