package vm

import "strings"

// ---------------------------------------------------------------------------
// Object Primitives (BasicObject and Kernel)
// ---------------------------------------------------------------------------

func (vm *VM) registerObjectPrimitives() {
	b := vm.BasicObjectClass

	b.AddPrimitive("initialize", 0, 0, func(_ *Frame, _ Value, _ []Value) (Value, error) {
		return Nil, nil
	})

	// The default method_missing raises; sends that would reach it raise
	// directly from the failed call site instead.
	vm.defaultMethodMissing = b.AddPrimitive("method_missing", 1, -1, func(fr *Frame, self Value, args []Value) (Value, error) {
		name, err := fr.symbolName(args[0])
		if err != nil {
			return Nil, err
		}
		return Nil, fr.site().noMethodError(self, name)
	})

	b.AddMethod1("==", func(_ *Frame, self Value, arg Value) (Value, error) {
		return FromBool(Equal(self, arg)), nil
	})

	b.AddMethod1("equal?", func(_ *Frame, self Value, arg Value) (Value, error) {
		return FromBool(Identical(self, arg)), nil
	})

	b.AddMethod0("!", func(_ *Frame, self Value) (Value, error) {
		return FromBool(self.IsFalsy()), nil
	})

	b.AddMethod1("!=", func(fr *Frame, self Value, arg Value) (Value, error) {
		eq, err := fr.Send(self, "==", arg)
		if err != nil {
			return Nil, err
		}
		return FromBool(eq.IsFalsy()), nil
	})

	b.AddMethod0("__id__", func(_ *Frame, self Value) (Value, error) {
		return FromInt(int64(self.ObjectID())), nil
	})

	b.AddPrimitive("__send__", 1, -1, primSend)
	b.AddPrimitive("instance_eval", 0, 0, primInstanceEval)

	vm.registerKernelPrimitives()

	// main reports itself as "main".
	main := vm.Main.Object().SingletonClass()
	main.AddMethod0("to_s", func(_ *Frame, _ Value) (Value, error) {
		return FromString("main"), nil
	})
	main.AddMethod0("inspect", func(_ *Frame, _ Value) (Value, error) {
		return FromString("main"), nil
	})
}

func (vm *VM) registerKernelPrimitives() {
	k := vm.KernelModule

	k.AddMethod0("class", func(fr *Frame, self Value) (Value, error) {
		return ClassValue(fr.vm.RealClassOf(self)), nil
	})

	k.AddMethod0("singleton_class", func(fr *Frame, self Value) (Value, error) {
		sc, err := fr.vm.singletonClassFor(fr, self)
		if err != nil {
			return Nil, err
		}
		return ClassValue(sc), nil
	})

	k.AddMethod0("object_id", func(_ *Frame, self Value) (Value, error) {
		return FromInt(int64(self.ObjectID())), nil
	})

	k.AddMethod0("inspect", func(_ *Frame, self Value) (Value, error) {
		return FromString(Inspect(self)), nil
	})

	k.AddMethod0("to_s", func(fr *Frame, self Value) (Value, error) {
		if self.IsObject() {
			return FromString("#<" + fr.vm.RealClassOf(self).FullName() + ">"), nil
		}
		return FromString(ToS(self)), nil
	})

	k.AddMethod0("nil?", func(_ *Frame, self Value) (Value, error) {
		return FromBool(self.IsNil()), nil
	})

	k.AddMethod1("===", func(fr *Frame, self Value, arg Value) (Value, error) {
		return fr.Send(self, "==", arg)
	})

	k.AddMethod0("hash", func(_ *Frame, self Value) (Value, error) {
		return FromInt(int64(self.ObjectID())), nil
	})

	k.AddMethod0("itself", func(_ *Frame, self Value) (Value, error) {
		return self, nil
	})

	k.AddMethod0("freeze", func(_ *Frame, self Value) (Value, error) {
		return self, nil
	})

	k.AddMethod0("frozen?", func(_ *Frame, self Value) (Value, error) {
		return FromBool(self.IsImmediate()), nil
	})

	k.AddMethod0("dup", func(_ *Frame, self Value) (Value, error) {
		return dupValue(self), nil
	})

	k.AddMethod0("tap", func(fr *Frame, self Value) (Value, error) {
		if _, err := fr.Yield(self); err != nil {
			return Nil, err
		}
		return self, nil
	})

	k.AddMethod0("then", func(fr *Frame, self Value) (Value, error) {
		return fr.Yield(self)
	})

	// Type tests

	isA := func(fr *Frame, self Value, arg Value) (Value, error) {
		if !arg.IsClass() {
			return Nil, fr.Raise(fr.vm.TypeErrorClass, "class or module required")
		}
		return FromBool(fr.vm.IsA(self, arg.Class())), nil
	}
	k.AddMethod1("is_a?", isA)
	k.AddMethod1("kind_of?", isA)

	k.AddMethod1("instance_of?", func(fr *Frame, self Value, arg Value) (Value, error) {
		if !arg.IsClass() {
			return Nil, fr.Raise(fr.vm.TypeErrorClass, "class or module required")
		}
		return FromBool(fr.vm.RealClassOf(self) == arg.Class()), nil
	})

	k.AddPrimitive("respond_to?", 1, 2, func(fr *Frame, self Value, args []Value) (Value, error) {
		name, err := fr.symbolName(args[0])
		if err != nil {
			return Nil, err
		}
		return FromBool(fr.vm.RespondTo(self, name)), nil
	})

	// Dynamic sends

	k.AddPrimitive("send", 1, -1, primSend)
	k.AddPrimitive("public_send", 1, -1, primSend)

	// Instance variables

	k.AddMethod1("instance_variable_get", func(fr *Frame, self Value, arg Value) (Value, error) {
		name, err := fr.ivarName(arg)
		if err != nil {
			return Nil, err
		}
		if t := ivarsOf(self); t != nil {
			return t.IVar(name), nil
		}
		return Nil, nil
	})

	k.AddMethod2("instance_variable_set", func(fr *Frame, self Value, arg, v Value) (Value, error) {
		name, err := fr.ivarName(arg)
		if err != nil {
			return Nil, err
		}
		t := ivarsOf(self)
		if t == nil {
			return Nil, fr.Raise(fr.vm.RuntimeErrorClass, "can't modify frozen %s: %s", fr.vm.RealClassOf(self).FullName(), Inspect(self))
		}
		t.SetIVar(name, v)
		return v, nil
	})

	k.AddMethod1("instance_variable_defined?", func(fr *Frame, self Value, arg Value) (Value, error) {
		name, err := fr.ivarName(arg)
		if err != nil {
			return Nil, err
		}
		t := ivarsOf(self)
		return FromBool(t != nil && t.HasIVar(name)), nil
	})

	k.AddMethod0("instance_variables", func(_ *Frame, self Value) (Value, error) {
		out := NewArray()
		if t := ivarsOf(self); t != nil {
			for _, name := range t.ivarOrder {
				out.Push(Sym(name))
			}
		}
		return ArrayValue(out), nil
	})

	// Singleton definitions

	k.AddPrimitive("extend", 1, -1, func(fr *Frame, self Value, args []Value) (Value, error) {
		sc, err := fr.vm.singletonClassFor(fr, self)
		if err != nil {
			return Nil, err
		}
		for i := len(args) - 1; i >= 0; i-- {
			if !args[i].IsClass() {
				return Nil, fr.Raise(fr.vm.TypeErrorClass, "wrong argument type %s (expected Module)", fr.vm.RealClassOf(args[i]).FullName())
			}
			if err := sc.Include(args[i].Class()); err != nil {
				return Nil, err
			}
		}
		return self, nil
	})

	k.AddPrimitive("define_singleton_method", 1, 2, func(fr *Frame, self Value, args []Value) (Value, error) {
		sc, err := fr.vm.singletonClassFor(fr, self)
		if err != nil {
			return Nil, err
		}
		return fr.defineMethodFromProc(sc, args)
	})

	// Control

	k.AddPrimitive("raise", 0, 2, primRaise)
	k.AddPrimitive("fail", 0, 2, primRaise)

	k.AddMethod0("block_given?", func(fr *Frame, _ Value) (Value, error) {
		return FromBool(fr.site().BlockGiven()), nil
	})

	k.AddMethod0("lambda", func(fr *Frame, _ Value) (Value, error) {
		if !fr.block.IsProc() {
			return Nil, fr.Raise(fr.vm.ArgumentErrorClass, "tried to create Proc object without a block")
		}
		if p := fr.block.Proc(); p.kind == ProcBlock {
			p.kind = ProcLambda
		}
		return fr.block, nil
	})

	k.AddMethod0("proc", func(fr *Frame, _ Value) (Value, error) {
		if !fr.block.IsProc() {
			return Nil, fr.Raise(fr.vm.ArgumentErrorClass, "tried to create Proc object without a block")
		}
		fr.block.Proc().reify()
		return fr.block, nil
	})

	k.AddMethod0("loop", func(fr *Frame, _ Value) (Value, error) {
		for {
			if err := fr.Tick(); err != nil {
				return Nil, err
			}
			if _, err := fr.Yield(); err != nil {
				return Nil, err
			}
		}
	})

	k.AddMethod0("__debug__vm_info", func(fr *Frame, _ Value) (Value, error) {
		return fr.debugVMInfo(), nil
	})
}

// ---------------------------------------------------------------------------
// Shared primitive bodies
// ---------------------------------------------------------------------------

// primSend implements send and __send__. The actuals after the name are
// passed through with their keywords and block intact.
func primSend(fr *Frame, self Value, args []Value) (Value, error) {
	name, err := fr.symbolName(args[0])
	if err != nil {
		return Nil, err
	}
	return fr.SendWith(self, name, fr.shiftArgs())
}

// primInstanceEval runs the block with self rebound to the receiver.
func primInstanceEval(fr *Frame, self Value, _ []Value) (Value, error) {
	if !fr.block.IsProc() {
		return Nil, fr.Raise(fr.vm.ArgumentErrorClass, "wrong number of arguments (given 0, expected 1..3)")
	}
	cls := fr.vm.ObjectClass
	if self.IsObject() || self.IsClass() {
		sc, err := fr.vm.singletonClassFor(fr, self)
		if err != nil {
			return Nil, err
		}
		cls = sc
	}
	return fr.vm.interp.callProcAs(fr, fr.block.Proc(), self, cls, nil, Positional(self))
}

// primRaise implements Kernel#raise:
//
//	raise                  re-raise the exception being handled
//	raise "msg"            RuntimeError
//	raise Class[, "msg"]   Class.new(msg)
//	raise exc              exc
func primRaise(fr *Frame, _ Value, args []Value) (Value, error) {
	site := fr.site()
	if len(args) == 0 {
		if cur := fr.handling(); cur != Nil {
			return Nil, site.RaiseValue(cur)
		}
		return Nil, site.Raise(fr.vm.RuntimeErrorClass, "unhandled exception")
	}
	switch first := args[0]; {
	case first.IsString() && len(args) == 1:
		return Nil, site.Raise(fr.vm.RuntimeErrorClass, "%s", first.Str().s)
	case first.IsClass():
		exc, err := fr.Send(first, "new", args[1:]...)
		if err != nil {
			return Nil, err
		}
		if exceptionData(exc) == nil {
			return Nil, site.Raise(fr.vm.TypeErrorClass, "exception class/object expected")
		}
		return Nil, site.RaiseValue(exc)
	case exceptionData(first) != nil:
		if len(args) == 2 {
			msg, err := fr.ToS(args[1])
			if err != nil {
				return Nil, err
			}
			first.Object().exc.message = msg
		}
		return Nil, site.RaiseValue(first)
	}
	return Nil, site.Raise(fr.vm.TypeErrorClass, "exception class/object expected")
}

// defineMethodFromProc implements define_method(name, body = block).
func (fr *Frame) defineMethodFromProc(cls *Class, args []Value) (Value, error) {
	name, err := fr.symbolName(args[0])
	if err != nil {
		return Nil, err
	}
	body := fr.block
	if len(args) > 1 {
		body = args[1]
	}
	if !body.IsProc() {
		return Nil, fr.Raise(fr.vm.ArgumentErrorClass, "tried to create Proc object without a block")
	}
	p := body.Proc()
	m := &Method{Name: name, Params: Params{Variadic: true}, cref: cls}
	m.Body = func(mf *Frame) (Value, error) {
		return mf.vm.interp.callProcAs(mf, p, mf.self, cls, m, mf.args)
	}
	cls.DefineMethod(m)
	return Sym(name), nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// site is the frame a primitive reports errors from: its caller, so the
// primitive itself does not appear at the top of the backtrace.
func (fr *Frame) site() *Frame {
	if fr.caller != nil {
		return fr.caller
	}
	return fr
}

// shiftArgs returns the received actuals without the first positional.
func (fr *Frame) shiftArgs() Args {
	a := fr.args
	if len(a.Positional) > 0 {
		a.Positional = a.Positional[1:]
		return a
	}
	if a.Splat.IsArray() && a.Splat.Array().Len() > 0 {
		a.Splat = ArrayValue(NewArray(a.Splat.Array().elems[1:]...))
	}
	return a
}

// symbolName accepts a Symbol or String naming a method or variable.
func (fr *Frame) symbolName(v Value) (string, error) {
	switch v.kind {
	case KindSymbol:
		return v.Symbol().Name(), nil
	case KindString:
		return v.Str().s, nil
	}
	return "", fr.Raise(fr.vm.TypeErrorClass, "%s is not a symbol nor a string", Inspect(v))
}

func (fr *Frame) ivarName(v Value) (string, error) {
	name, err := fr.symbolName(v)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(name, "@") || len(name) < 2 || strings.HasPrefix(name, "@@") {
		return "", fr.Raise(fr.vm.NameErrorClass, "'%s' is not allowed as an instance variable name", name)
	}
	return name, nil
}

func ivarsOf(v Value) *ivarTable {
	switch v.kind {
	case KindObject:
		return &v.Object().ivarTable
	case KindClass:
		return &v.Class().ivarTable
	}
	return nil
}

// dupValue makes a shallow copy of a mutable value.
func dupValue(v Value) Value {
	switch v.kind {
	case KindString:
		return FromString(v.Str().s)
	case KindArray:
		return ArrayValue(v.Array().Clone())
	case KindHash:
		return HashValue(v.Hash().Clone())
	case KindObject:
		o := v.Object()
		c := NewObject(o.class)
		for _, name := range o.ivarOrder {
			c.SetIVar(name, o.ivars[name])
		}
		if o.exc != nil {
			exc := *o.exc
			c.exc = &exc
		}
		return ObjectValue(c)
	}
	return v
}

// ToS converts v to a Go string through its to_s method.
func (fr *Frame) ToS(v Value) (string, error) {
	if v.IsString() {
		return v.Str().s, nil
	}
	s, err := fr.Send(v, "to_s")
	if err != nil {
		return "", err
	}
	if !s.IsString() {
		return "#<" + fr.vm.RealClassOf(v).FullName() + ">", nil
	}
	return s.Str().s, nil
}

// InspectString converts v to a Go string through its inspect method.
func (fr *Frame) InspectString(v Value) (string, error) {
	s, err := fr.Send(v, "inspect")
	if err != nil {
		return "", err
	}
	if !s.IsString() {
		return ToS(s), nil
	}
	return s.Str().s, nil
}
