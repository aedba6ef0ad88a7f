package programs

import "github.com/chazu/garnet/vm"

func init() {
	register("alias", "alias keeps the old body after undef of the original", aliasMain)
	register("class", "instance methods on two classes and a top-level def", classMain)
	register("class3", "class methods, super between them, attr_reader", class3Main)
	register("is_a", "ancestors and is_a? through included modules", isAMain)
	register("method_missing", "method_missing receives the name, positionals and keywords", methodMissingMain)
	register("module", "a module method reached through include", moduleMain)
	register("module_nest", "nested module and class resolved with ::", moduleNestMain)
}

// greeter defines initialize(name) and greet on the class being opened.
func greeter(cf *vm.Frame) {
	cf.Def("initialize", params("name"), func(mf *vm.Frame) (vm.Value, error) {
		return vm.Nil, mf.SetIVar("@name", mf.Get("name"))
	})
	cf.Def("greet", vm.Params{}, func(mf *vm.Frame) (vm.Value, error) {
		return vm.Nil, say(mf, "Hello, ", mf.IVar("@name"), "!")
	})
}

func aliasMain(fr *vm.Frame) (vm.Value, error) {
	_, err := fr.OpenClass("Alias1", nil, func(cf *vm.Frame) (vm.Value, error) {
		greeter(cf)
		return vm.Nil, cf.Definee().Alias("say_hello", "greet")
	})
	if err != nil {
		return vm.Nil, err
	}
	f, err := newObject(fr, "Alias1", vm.FromString("World of alias"))
	if err != nil {
		return vm.Nil, err
	}
	if _, err := fr.Send(f, "say_hello"); err != nil {
		return vm.Nil, err
	}

	_, err = fr.OpenClass("Alias2", nil, func(cf *vm.Frame) (vm.Value, error) {
		greeter(cf)
		if err := cf.Definee().Alias("say_hello", "greet"); err != nil {
			return vm.Nil, err
		}
		return vm.Nil, cf.Definee().Undef("greet")
	})
	if err != nil {
		return vm.Nil, err
	}
	f, err = newObject(fr, "Alias2", vm.FromString("World of undef"))
	if err != nil {
		return vm.Nil, err
	}
	return fr.Send(f, "say_hello")
}

func classMain(fr *vm.Frame) (vm.Value, error) {
	for _, c := range []struct {
		name  string
		hello int64
	}{{"Test1", 123}, {"Test2", 456}} {
		hello := vm.FromInt(c.hello)
		_, err := fr.OpenClass(c.name, nil, func(cf *vm.Frame) (vm.Value, error) {
			cf.Def("hello", vm.Params{}, func(*vm.Frame) (vm.Value, error) { return hello, nil })
			return vm.Nil, nil
		})
		if err != nil {
			return vm.Nil, err
		}
	}
	fr.Def("hello", vm.Params{}, func(*vm.Frame) (vm.Value, error) { return vm.FromInt(789), nil })

	for _, name := range []string{"Test1", "Test2"} {
		obj, err := newObject(fr, name)
		if err != nil {
			return vm.Nil, err
		}
		v, err := fr.Send(obj, "hello")
		if err != nil {
			return vm.Nil, err
		}
		if _, err := fr.Call("puts", v); err != nil {
			return vm.Nil, err
		}
	}
	v, err := fr.Call("hello")
	if err != nil {
		return vm.Nil, err
	}
	return fr.Call("puts", v)
}

func class3Main(fr *vm.Frame) (vm.Value, error) {
	test, err := fr.OpenClass("Test", nil, func(cf *vm.Frame) (vm.Value, error) {
		if _, err := cf.DefSingleton(cf.Self(), "hello", vm.Params{}, func(*vm.Frame) (vm.Value, error) {
			return vm.FromInt(123), nil
		}); err != nil {
			return vm.Nil, err
		}
		_, err := cf.DefSingleton(cf.Self(), "hello2", vm.Params{}, func(*vm.Frame) (vm.Value, error) {
			return vm.FromInt(10000), nil
		})
		return cf.Self(), err
	})
	if err != nil {
		return vm.Nil, err
	}

	test2, err := fr.OpenClass("Test2", test.Class(), func(cf *vm.Frame) (vm.Value, error) {
		if _, err := cf.DefSingleton(cf.Self(), "hello", vm.Params{}, func(mf *vm.Frame) (vm.Value, error) {
			v, err := mf.ZSuper()
			if err != nil {
				return vm.Nil, err
			}
			return binop(mf, v, "+", vm.FromInt(1))
		}); err != nil {
			return vm.Nil, err
		}
		if _, err := cf.Call("attr_reader", vm.Sym("value")); err != nil {
			return vm.Nil, err
		}
		return cf.Self(), nil
	})
	if err != nil {
		return vm.Nil, err
	}

	for _, name := range []string{"hello", "hello2"} {
		v, err := fr.Send(test2, name)
		if err != nil {
			return vm.Nil, err
		}
		if _, err := fr.Call("p", v); err != nil {
			return vm.Nil, err
		}
	}
	return vm.Nil, nil
}

func isAMain(fr *vm.Frame) (vm.Value, error) {
	empty := func(*vm.Frame) (vm.Value, error) { return vm.Nil, nil }
	err := seq(
		func() error { _, err := fr.OpenClass("X", nil, empty); return err },
		func() error { _, err := fr.OpenModule("Z", empty); return err },
		func() error {
			_, err := fr.OpenModule("W", func(mf *vm.Frame) (vm.Value, error) {
				z, err := mf.Const("Z")
				if err != nil {
					return vm.Nil, err
				}
				return mf.Call("include", z)
			})
			return err
		},
		func() error {
			x, err := fr.Const("X")
			if err != nil {
				return err
			}
			_, err = fr.OpenClass("Y", x.Class(), func(cf *vm.Frame) (vm.Value, error) {
				w, err := cf.Const("W")
				if err != nil {
					return vm.Nil, err
				}
				return cf.Call("include", w)
			})
			return err
		},
		func() error { _, err := fr.OpenClass("V", nil, empty); return err },
	)
	if err != nil {
		return vm.Nil, err
	}

	for _, name := range []string{"W", "Y"} {
		mod, err := fr.Const(name)
		if err != nil {
			return vm.Nil, err
		}
		anc, err := fr.Send(mod, "ancestors")
		if err != nil {
			return vm.Nil, err
		}
		if _, err := fr.Call("p", anc); err != nil {
			return vm.Nil, err
		}
	}

	o, err := newObject(fr, "Y")
	if err != nil {
		return vm.Nil, err
	}
	fr.Set("o", o)
	for _, name := range []string{"X", "Y", "Z", "W", "V"} {
		mod, err := fr.Const(name)
		if err != nil {
			return vm.Nil, err
		}
		v, err := fr.Send(fr.Get("o"), "is_a?", mod)
		if err != nil {
			return vm.Nil, err
		}
		if _, err := fr.Call("p", v); err != nil {
			return vm.Nil, err
		}
	}
	return vm.Nil, nil
}

func methodMissingMain(fr *vm.Frame) (vm.Value, error) {
	_, err := fr.OpenClass("Foo", nil, func(cf *vm.Frame) (vm.Value, error) {
		mm := vm.Params{Required: []string{"name"}, Rest: "args", KwRest: "kwargs"}
		cf.Def("method_missing", mm, func(mf *vm.Frame) (vm.Value, error) {
			args, err := mf.InspectString(mf.Get("args"))
			if err != nil {
				return vm.Nil, err
			}
			kwargs, err := mf.InspectString(mf.Get("kwargs"))
			if err != nil {
				return vm.Nil, err
			}
			return vm.Nil, say(mf, "Called ", mf.Get("name"), " with ", args, ", ", kwargs)
		})
		return vm.Nil, nil
	})
	if err != nil {
		return vm.Nil, err
	}
	foo, err := newObject(fr, "Foo")
	if err != nil {
		return vm.Nil, err
	}
	fr.Set("foo", foo)
	return fr.SendWith(fr.Get("foo"), "bar",
		vm.Positional(int64s(1, 2, 3)...).Kw("a", vm.FromInt(4)).Kw("b", vm.FromInt(5)))
}

// moduleMethod defines module_method returning 42 in the module being opened.
func moduleMethod(mf *vm.Frame) (vm.Value, error) {
	mf.Def("module_method", vm.Params{}, func(*vm.Frame) (vm.Value, error) {
		return vm.FromInt(42), nil
	})
	return vm.Nil, nil
}

// includer returns a class body that includes the named module.
func includer(module string) vm.Body {
	return func(cf *vm.Frame) (vm.Value, error) {
		m, err := cf.Const(module)
		if err != nil {
			return vm.Nil, err
		}
		return cf.Call("include", m)
	}
}

func moduleMain(fr *vm.Frame) (vm.Value, error) {
	if _, err := fr.OpenModule("TestModule", moduleMethod); err != nil {
		return vm.Nil, err
	}
	if _, err := fr.OpenClass("MyClass", nil, includer("TestModule")); err != nil {
		return vm.Nil, err
	}
	obj, err := newObject(fr, "MyClass")
	if err != nil {
		return vm.Nil, err
	}
	v, err := fr.Send(obj, "module_method")
	if err != nil {
		return vm.Nil, err
	}
	return fr.Call("puts", v)
}

func moduleNestMain(fr *vm.Frame) (vm.Value, error) {
	_, err := fr.OpenModule("TestModule", func(mf *vm.Frame) (vm.Value, error) {
		if _, err := mf.OpenModule("ChildModule", moduleMethod); err != nil {
			return vm.Nil, err
		}
		return mf.OpenClass("MyClass", nil, includer("ChildModule"))
	})
	if err != nil {
		return vm.Nil, err
	}
	ns, err := fr.Const("TestModule")
	if err != nil {
		return vm.Nil, err
	}
	cls, err := fr.ScopedConst(ns, "MyClass")
	if err != nil {
		return vm.Nil, err
	}
	obj, err := fr.Send(cls, "new")
	if err != nil {
		return vm.Nil, err
	}
	v, err := fr.Send(obj, "module_method")
	if err != nil {
		return vm.Nil, err
	}
	return fr.Call("puts", v)
}
