package vm

import "strings"

// ---------------------------------------------------------------------------
// Class Reflection Primitives (Module and Class)
// ---------------------------------------------------------------------------

func (vm *VM) registerClassReflectionPrimitives() {
	m := vm.ModuleClass

	m.AddMethod0("name", func(_ *Frame, self Value) (Value, error) {
		c := self.Class()
		if c.name == "" || c.singleton {
			return Nil, nil
		}
		return FromString(c.FullName()), nil
	})

	toS := func(_ *Frame, self Value) (Value, error) {
		return FromString(self.Class().FullName()), nil
	}
	m.AddMethod0("to_s", toS)
	m.AddMethod0("inspect", toS)

	m.AddMethod1("===", func(fr *Frame, self Value, arg Value) (Value, error) {
		return FromBool(fr.vm.IsA(arg, self.Class())), nil
	})

	m.AddMethod1("<", func(fr *Frame, self Value, arg Value) (Value, error) {
		return compareModules(fr, self, arg, false)
	})

	m.AddMethod1("<=", func(fr *Frame, self Value, arg Value) (Value, error) {
		return compareModules(fr, self, arg, true)
	})

	// ---------------------------------------------------------------------------
	// Ancestry
	// ---------------------------------------------------------------------------

	m.AddMethod0("ancestors", func(_ *Frame, self Value) (Value, error) {
		chain := self.Class().Ancestors()
		out := NewArray()
		for _, c := range chain {
			out.Push(ClassValue(c))
		}
		return ArrayValue(out), nil
	})

	m.AddPrimitive("include", 1, -1, func(fr *Frame, self Value, args []Value) (Value, error) {
		c := self.Class()
		// include A, B puts A first in the chain.
		for i := len(args) - 1; i >= 0; i-- {
			if !args[i].IsClass() {
				return Nil, fr.Raise(fr.vm.TypeErrorClass, "wrong argument type %s (expected Module)", fr.vm.RealClassOf(args[i]).FullName())
			}
			if err := c.Include(args[i].Class()); err != nil {
				return Nil, err
			}
		}
		return self, nil
	})

	m.AddMethod1("include?", func(fr *Frame, self Value, arg Value) (Value, error) {
		if !arg.IsClass() || !arg.Class().isModule {
			return Nil, fr.Raise(fr.vm.TypeErrorClass, "wrong argument type %s (expected Module)", fr.vm.RealClassOf(arg).FullName())
		}
		c := self.Class()
		return FromBool(arg.Class() != c && c.HasAncestor(arg.Class())), nil
	})

	// ---------------------------------------------------------------------------
	// Method table
	// ---------------------------------------------------------------------------

	m.AddMethod2("alias_method", func(fr *Frame, self Value, newName, oldName Value) (Value, error) {
		to, err := fr.symbolName(newName)
		if err != nil {
			return Nil, err
		}
		from, err := fr.symbolName(oldName)
		if err != nil {
			return Nil, err
		}
		if err := self.Class().Alias(to, from); err != nil {
			return Nil, err
		}
		return Sym(to), nil
	})

	m.AddPrimitive("undef_method", 0, -1, func(fr *Frame, self Value, args []Value) (Value, error) {
		for _, arg := range args {
			name, err := fr.symbolName(arg)
			if err != nil {
				return Nil, err
			}
			if err := self.Class().Undef(name); err != nil {
				return Nil, err
			}
		}
		return self, nil
	})

	m.AddPrimitive("remove_method", 0, -1, func(fr *Frame, self Value, args []Value) (Value, error) {
		for _, arg := range args {
			name, err := fr.symbolName(arg)
			if err != nil {
				return Nil, err
			}
			if err := self.Class().RemoveMethod(name); err != nil {
				return Nil, err
			}
		}
		return self, nil
	})

	m.AddPrimitive("define_method", 1, 2, func(fr *Frame, self Value, args []Value) (Value, error) {
		return fr.defineMethodFromProc(self.Class(), args)
	})

	definedp := func(fr *Frame, self Value, args []Value) (Value, error) {
		name, err := fr.symbolName(args[0])
		if err != nil {
			return Nil, err
		}
		_, ok := fr.vm.Resolve(self.Class(), name, nil)
		return FromBool(ok), nil
	}
	m.AddPrimitive("method_defined?", 1, 2, definedp)
	m.AddPrimitive("public_method_defined?", 1, 2, definedp)

	m.AddPrimitive("instance_methods", 0, 1, func(_ *Frame, self Value, args []Value) (Value, error) {
		inherit := len(args) == 0 || args[0].IsTruthy()
		return ArrayValue(instanceMethods(self.Class(), inherit)), nil
	})

	// Visibility is not modelled; these accept and return their arguments.
	for _, name := range []string{"public", "private", "protected", "module_function"} {
		m.AddPrimitive(name, 0, -1, func(_ *Frame, _ Value, args []Value) (Value, error) {
			switch len(args) {
			case 0:
				return Nil, nil
			case 1:
				return args[0], nil
			}
			return NewArrayValue(args...), nil
		})
	}

	m.AddPrimitive("attr_reader", 0, -1, func(fr *Frame, self Value, args []Value) (Value, error) {
		return defineAttrs(fr, self.Class(), args, true, false)
	})
	m.AddPrimitive("attr_writer", 0, -1, func(fr *Frame, self Value, args []Value) (Value, error) {
		return defineAttrs(fr, self.Class(), args, false, true)
	})
	m.AddPrimitive("attr_accessor", 0, -1, func(fr *Frame, self Value, args []Value) (Value, error) {
		return defineAttrs(fr, self.Class(), args, true, true)
	})

	evalBody := func(fr *Frame, self Value, _ []Value) (Value, error) {
		if !fr.block.IsProc() {
			return Nil, fr.Raise(fr.vm.ArgumentErrorClass, "wrong number of arguments (given 0, expected 1..3)")
		}
		c := self.Class()
		return fr.vm.interp.callProcAs(fr, fr.block.Proc(), self, c, nil, Positional(self))
	}
	m.AddPrimitive("class_eval", 0, 0, evalBody)
	m.AddPrimitive("module_eval", 0, 0, evalBody)

	// ---------------------------------------------------------------------------
	// Constants
	// ---------------------------------------------------------------------------

	m.AddPrimitive("const_get", 1, 2, func(fr *Frame, self Value, args []Value) (Value, error) {
		name, err := fr.symbolName(args[0])
		if err != nil {
			return Nil, err
		}
		v := self
		for _, part := range strings.Split(name, "::") {
			if !v.IsClass() {
				return Nil, fr.Raise(fr.vm.TypeErrorClass, "%s is not a class/module", Inspect(v))
			}
			next, ok := v.Class().ConstGet(part)
			if !ok {
				return Nil, fr.Raise(fr.vm.NameErrorClass, "uninitialized constant %s", qualify(v.Class(), fr.vm, part))
			}
			v = next
		}
		return v, nil
	})

	m.AddMethod2("const_set", func(fr *Frame, self Value, arg, v Value) (Value, error) {
		name, err := fr.symbolName(arg)
		if err != nil {
			return Nil, err
		}
		if name == "" || name[0] < 'A' || name[0] > 'Z' {
			return Nil, fr.Raise(fr.vm.NameErrorClass, "wrong constant name %s", name)
		}
		self.Class().SetConst(name, v)
		return v, nil
	})

	m.AddPrimitive("const_defined?", 1, 2, func(fr *Frame, self Value, args []Value) (Value, error) {
		name, err := fr.symbolName(args[0])
		if err != nil {
			return Nil, err
		}
		_, ok := self.Class().ConstGet(name)
		return FromBool(ok), nil
	})

	m.AddPrimitive("constants", 0, 1, func(_ *Frame, self Value, _ []Value) (Value, error) {
		out := NewArray()
		for _, name := range self.Class().ConstNames() {
			out.Push(Sym(name))
		}
		return ArrayValue(out), nil
	})

	m.AddClassPrimitive("new", 0, 0, func(fr *Frame, _ Value, _ []Value) (Value, error) {
		mod := fr.vm.NewModule()
		if fr.block.IsProc() {
			if _, err := fr.vm.interp.callProcAs(fr, fr.block.Proc(), ClassValue(mod), mod, nil, Positional(ClassValue(mod))); err != nil {
				return Nil, err
			}
		}
		return ClassValue(mod), nil
	})

	vm.registerClassPrimitives()
}

func (vm *VM) registerClassPrimitives() {
	c := vm.ClassClass

	c.AddPrimitive("new", 0, -1, func(fr *Frame, self Value, _ []Value) (Value, error) {
		obj, err := allocate(fr, self.Class())
		if err != nil {
			return Nil, err
		}
		if _, err := fr.SendWith(obj, "initialize", fr.args); err != nil {
			return Nil, err
		}
		return obj, nil
	})

	c.AddMethod0("allocate", func(fr *Frame, self Value) (Value, error) {
		return allocate(fr, self.Class())
	})

	c.AddMethod0("superclass", func(_ *Frame, self Value) (Value, error) {
		if super := self.Class().Superclass; super != nil {
			return ClassValue(super), nil
		}
		return Nil, nil
	})

	c.AddClassPrimitive("new", 0, 1, func(fr *Frame, _ Value, args []Value) (Value, error) {
		super := fr.vm.ObjectClass
		if len(args) == 1 {
			if !args[0].IsClass() || args[0].Class().isModule {
				return Nil, fr.Raise(fr.vm.TypeErrorClass, "superclass must be an instance of Class (given an instance of %s)", fr.vm.RealClassOf(args[0]).FullName())
			}
			super = args[0].Class()
			if super.singleton {
				return Nil, fr.Raise(fr.vm.TypeErrorClass, "can't make subclass of singleton class")
			}
		}
		cls := fr.vm.NewClass(super)
		if fr.block.IsProc() {
			if _, err := fr.vm.interp.callProcAs(fr, fr.block.Proc(), ClassValue(cls), cls, nil, Positional(ClassValue(cls))); err != nil {
				return Nil, err
			}
		}
		return ClassValue(cls), nil
	})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func allocate(fr *Frame, c *Class) (Value, error) {
	if c.singleton {
		return Nil, fr.Raise(fr.vm.TypeErrorClass, "can't create instance of singleton class")
	}
	return ObjectValue(NewObject(c)), nil
}

// compareModules implements Module#< and #<=: true when self descends from
// arg, false when arg descends from self, nil when unrelated.
func compareModules(fr *Frame, self, arg Value, orEqual bool) (Value, error) {
	if !arg.IsClass() {
		return Nil, fr.Raise(fr.vm.TypeErrorClass, "compared with non class/module")
	}
	a, b := self.Class(), arg.Class()
	switch {
	case a == b:
		return FromBool(orEqual), nil
	case a.HasAncestor(b):
		return True, nil
	case b.HasAncestor(a):
		return False, nil
	}
	return Nil, nil
}

// instanceMethods lists the names c's instances respond to, or only those
// defined in c itself.
func instanceMethods(c *Class, inherit bool) *Array {
	out := NewArray()
	chain := []*Class{c}
	if inherit {
		chain = c.Ancestors()
	}
	seen := map[string]bool{}
	for _, k := range chain {
		for name := range k.undefined {
			seen[name] = true
		}
		for _, name := range k.MethodNames() {
			if !seen[name] {
				seen[name] = true
				out.Push(Sym(name))
			}
		}
	}
	return out
}

func defineAttrs(fr *Frame, c *Class, args []Value, reader, writer bool) (Value, error) {
	out := NewArray()
	for _, arg := range args {
		name, err := fr.symbolName(arg)
		if err != nil {
			return Nil, err
		}
		ivar := "@" + name
		if reader {
			c.Define(name, Params{}, func(fr *Frame) (Value, error) {
				return fr.IVar(ivar), nil
			})
			out.Push(Sym(name))
		}
		if writer {
			c.Define(name+"=", Params{Required: []string{"value"}}, func(fr *Frame) (Value, error) {
				v := fr.Get("value")
				if err := fr.SetIVar(ivar, v); err != nil {
					return Nil, err
				}
				return v, nil
			})
			out.Push(Sym(name + "="))
		}
	}
	return ArrayValue(out), nil
}

func qualify(c *Class, vm *VM, name string) string {
	if c == vm.ObjectClass {
		return name
	}
	return c.FullName() + "::" + name
}
