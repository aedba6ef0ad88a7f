package vm

// ---------------------------------------------------------------------------
// Receiver classes
// ---------------------------------------------------------------------------

// ClassOf returns the class where method lookup for v starts: its
// singleton class when it has one (always, for classes and modules),
// otherwise its class.
func (vm *VM) ClassOf(v Value) *Class {
	switch v.kind {
	case KindObject:
		return v.Object().dispatchClass()
	case KindClass:
		return v.Class().SingletonClass()
	}
	return vm.RealClassOf(v)
}

// RealClassOf returns v's class, skipping singleton classes (Object#class).
func (vm *VM) RealClassOf(v Value) *Class {
	switch v.kind {
	case KindNil:
		return vm.NilClass
	case KindBool:
		if v.Bool() {
			return vm.TrueClass
		}
		return vm.FalseClass
	case KindInt:
		return vm.IntegerClass
	case KindFloat:
		return vm.FloatClass
	case KindSymbol:
		return vm.SymbolClass
	case KindString:
		return vm.StringClass
	case KindArray:
		return vm.ArrayClass
	case KindHash:
		return vm.HashClass
	case KindProc:
		return vm.ProcClass
	case KindClass:
		if v.Class().isModule {
			return vm.ModuleClass
		}
		return vm.ClassClass
	case KindObject:
		return v.Object().class
	}
	return vm.ObjectClass
}

// singletonClassFor returns the class that def recv.name defines into.
func (vm *VM) singletonClassFor(fr *Frame, recv Value) (*Class, error) {
	switch recv.kind {
	case KindClass:
		return recv.Class().SingletonClass(), nil
	case KindObject:
		return recv.Object().SingletonClass(), nil
	}
	return nil, fr.Raise(vm.TypeErrorClass, "can't define singleton")
}

// IsA reports whether c appears in v's ancestor chain (Object#is_a?).
func (vm *VM) IsA(v Value, c *Class) bool {
	return vm.ClassOf(v).HasAncestor(c)
}

// ---------------------------------------------------------------------------
// Method resolution
// ---------------------------------------------------------------------------

// Resolve walks c's ancestor chain for name. With a non-nil after, the
// walk starts just past that class in the chain, which is how super finds
// the next implementation. An undef met on the way ends the search.
func (vm *VM) Resolve(c *Class, name string, after *Class) (*Method, bool) {
	chain := c.Ancestors()
	if after != nil {
		i := 0
		for i < len(chain) && chain[i] != after {
			i++
		}
		if i == len(chain) {
			return nil, false
		}
		chain = chain[i+1:]
	}
	for _, k := range chain {
		m, stop := k.lookupLocal(name)
		if m != nil {
			return m, true
		}
		if stop {
			return nil, false
		}
	}
	return nil, false
}

// FindMethod resolves name from the start of c's chain through the
// method cache.
func (vm *VM) FindMethod(c *Class, name string) (*Method, bool) {
	if m := vm.cache.Lookup(c, name); m != nil {
		return m, true
	}
	m, ok := vm.Resolve(c, name, nil)
	if ok {
		vm.cache.Update(c, name, m)
	}
	return m, ok
}

// RespondTo reports whether a send of name to v would find a method
// without falling back to method_missing.
func (vm *VM) RespondTo(v Value, name string) bool {
	_, ok := vm.FindMethod(vm.ClassOf(v), name)
	return ok
}

// ---------------------------------------------------------------------------
// Sends
// ---------------------------------------------------------------------------

// Send calls recv.name(args...).
func (fr *Frame) Send(recv Value, name string, args ...Value) (Value, error) {
	return fr.SendWith(recv, name, Args{Positional: args})
}

// SendWith calls recv.name with a full argument bundle.
func (fr *Frame) SendWith(recv Value, name string, args Args) (Value, error) {
	cls := fr.vm.ClassOf(recv)
	m, ok := fr.vm.FindMethod(cls, name)
	if !ok {
		return fr.methodMissing(recv, cls, name, args)
	}
	return fr.vm.interp.invoke(fr, recv, m, args)
}

// Call sends name to self (a receiverless call).
func (fr *Frame) Call(name string, args ...Value) (Value, error) {
	return fr.SendWith(fr.self, name, Args{Positional: args})
}

// CallWith sends name to self with a full argument bundle.
func (fr *Frame) CallWith(name string, args Args) (Value, error) {
	return fr.SendWith(fr.self, name, args)
}

// Invoke runs an already resolved method against recv.
func (fr *Frame) Invoke(m *Method, recv Value, args Args) (Value, error) {
	return fr.vm.interp.invoke(fr, recv, m, args)
}

// methodMissing hands an unresolved send to the receiver's method_missing
// with the name prepended. The default BasicObject#method_missing raises
// NoMethodError directly so the backtrace starts at the failed call.
func (fr *Frame) methodMissing(recv Value, cls *Class, name string, args Args) (Value, error) {
	mm, ok := fr.vm.FindMethod(cls, "method_missing")
	if !ok || mm == fr.vm.defaultMethodMissing {
		return Nil, fr.noMethodError(recv, name)
	}
	log.Debugf("method_missing: %s for %s", name, cls.FullName())
	mmArgs := args
	mmArgs.Positional = append([]Value{Sym(name)}, args.Positional...)
	return fr.vm.interp.invoke(fr, recv, mm, mmArgs)
}

func (fr *Frame) noMethodError(recv Value, name string) error {
	return fr.Raise(fr.vm.NoMethodErrorClass, "undefined method '%s' for %s", name, fr.vm.describeReceiver(recv))
}

// describeReceiver renders a receiver the way NoMethodError messages do.
func (vm *VM) describeReceiver(v Value) string {
	switch v.kind {
	case KindNil, KindBool:
		return Inspect(v)
	case KindClass:
		return v.Class().describe()
	}
	if v == vm.Main {
		return "main:Object"
	}
	return "an instance of " + vm.RealClassOf(v).FullName()
}

// ---------------------------------------------------------------------------
// super
// ---------------------------------------------------------------------------

// Super calls the next implementation of the executing method with
// explicit arguments (super(a, b)). The search resumes after the class
// that defined the executing method, in the receiver's own chain. Without
// an explicit block the current block is passed along.
func (fr *Frame) Super(args Args) (Value, error) {
	m := fr.method
	if m == nil || fr.owner == nil {
		return Nil, fr.Raise(fr.vm.RuntimeErrorClass, "super called outside of method")
	}
	if args.Block == Nil {
		args.Block = fr.block
	}
	sm, ok := fr.vm.Resolve(fr.vm.ClassOf(fr.self), m.Name, fr.owner)
	if !ok {
		return Nil, fr.Raise(fr.vm.NoMethodErrorClass, "super: no superclass method '%s' for %s", m.Name, fr.vm.describeReceiver(fr.self))
	}
	return fr.vm.interp.invoke(fr, fr.self, sm, args)
}

// ZSuper is a bare super: it passes the current values of the executing
// method's parameters.
func (fr *Frame) ZSuper() (Value, error) {
	m := fr.method
	if m == nil {
		return Nil, fr.Raise(fr.vm.RuntimeErrorClass, "super called outside of method")
	}
	mf := fr
	if fr.kind == BlockFrame && fr.home != nil {
		mf = fr.home
	}
	if m.Params.Variadic {
		return fr.Super(mf.args)
	}

	p := &m.Params
	var pos []Value
	for _, name := range p.Required {
		pos = append(pos, fr.Get(name))
	}
	for _, opt := range p.Optional {
		pos = append(pos, fr.Get(opt.Name))
	}
	if p.Rest != "" {
		if rest := fr.Get(p.Rest); rest.IsArray() {
			pos = append(pos, rest.Array().elems...)
		}
	}
	for _, name := range p.Post {
		pos = append(pos, fr.Get(name))
	}
	args := Args{Positional: pos}
	if p.AcceptsKeywords() {
		kw := NewHash()
		for _, name := range p.RequiredKw {
			kw.Set(Sym(name), fr.Get(name))
		}
		for _, opt := range p.OptionalKw {
			kw.Set(Sym(opt.Name), fr.Get(opt.Name))
		}
		if p.KwRest != "" {
			if rest := fr.Get(p.KwRest); rest.IsHash() {
				rest.Hash().Each(func(k, v Value) bool {
					kw.Set(k, v)
					return true
				})
			}
		}
		args.Keywords = kw
	}
	return fr.Super(args)
}
