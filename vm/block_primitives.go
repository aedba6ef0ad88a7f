package vm

// ---------------------------------------------------------------------------
// Block Primitives (Proc)
// ---------------------------------------------------------------------------

func (vm *VM) registerBlockPrimitives() {
	c := vm.ProcClass

	call := func(fr *Frame, self Value, _ []Value) (Value, error) {
		return fr.CallProcWith(self.Proc(), fr.args)
	}
	c.AddPrimitive("call", 0, -1, call)
	c.AddPrimitive("()", 0, -1, call)
	c.AddPrimitive("[]", 0, -1, call)
	c.AddPrimitive("yield", 0, -1, call)
	c.AddPrimitive("===", 0, -1, call)

	c.AddMethod0("arity", func(_ *Frame, self Value) (Value, error) {
		return FromInt(int64(self.Proc().Arity())), nil
	})

	c.AddMethod0("lambda?", func(_ *Frame, self Value) (Value, error) {
		return FromBool(self.Proc().IsLambda()), nil
	})

	c.AddMethod0("to_proc", func(_ *Frame, self Value) (Value, error) {
		return self, nil
	})

	c.AddMethod0("parameters", func(_ *Frame, self Value) (Value, error) {
		p := self.Proc()
		return ArrayValue(parameterList(&p.params, p.IsLambda())), nil
	})

	c.AddClassPrimitive("new", 0, 0, func(fr *Frame, _ Value, _ []Value) (Value, error) {
		if !fr.block.IsProc() {
			return Nil, fr.Raise(fr.vm.ArgumentErrorClass, "tried to create Proc object without a block")
		}
		fr.block.Proc().reify()
		return fr.block, nil
	})
}

// parameterList renders params the way Proc#parameters and
// Method#parameters do. Required parameters of a non-lambda proc are
// reported as optional.
func parameterList(p *Params, strict bool) *Array {
	out := NewArray()
	add := func(kind, name string) {
		if name == "" || name == "*" || name == "**" || name == "&" {
			out.Push(NewArrayValue(Sym(kind)))
			return
		}
		out.Push(NewArrayValue(Sym(kind), Sym(name)))
	}
	req := "req"
	if !strict {
		req = "opt"
	}
	for _, name := range p.Required {
		add(req, name)
	}
	for _, opt := range p.Optional {
		add("opt", opt.Name)
	}
	if p.Rest != "" {
		add("rest", p.Rest)
	}
	for _, name := range p.Post {
		add(req, name)
	}
	for _, name := range p.RequiredKw {
		add("keyreq", name)
	}
	for _, opt := range p.OptionalKw {
		add("key", opt.Name)
	}
	if p.KwRest != "" {
		add("keyrest", p.KwRest)
	}
	if p.Block != "" {
		add("block", p.Block)
	}
	if p.Variadic {
		add("rest", "")
	}
	return out
}
