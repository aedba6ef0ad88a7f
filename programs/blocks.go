package programs

import "github.com/chazu/garnet/vm"

func init() {
	register("breaking3", "break out of nested yields to user-defined methods", breaking3Main)
	register("breaking4", "break out of Array#each nested in Integer#times", breaking4Main)
	register("proc", "lambda, ->, Proc.new and a closure updating an outer local", procMain)
	register("proc2", "a &block kept in a class-level instance variable and called later", proc2Main)
	register("return_block", "return from a block two yields deep", returnBlockMain)
	register("return_block0", "return from a block through a user method and through times", returnBlock0Main)
	register("return_block1", "return from blocks nested in user methods and iterators", returnBlock1Main)
}

var noParams = vm.Params{}

// yielder defines name, which yields v five times.
func yielder(fr *vm.Frame, name string, v vm.Value) {
	fr.Def(name, noParams, func(mf *vm.Frame) (vm.Value, error) {
		var last vm.Value
		for i := 0; i < 5; i++ {
			var err error
			if last, err = mf.Yield(v); err != nil {
				return vm.Nil, err
			}
		}
		return last, nil
	})
}

// defineInner defines inner, which yields and then reports that control
// came back to it.
func defineInner(fr *vm.Frame) {
	fr.Def("inner", noParams, func(mf *vm.Frame) (vm.Value, error) {
		if _, err := mf.Yield(); err != nil {
			return vm.Nil, err
		}
		if err := say(mf, "unreachable"); err != nil {
			return vm.Nil, err
		}
		return vm.Nil, mf.Return(vm.Sym("unreachable"))
	})
}

// breakWhen returns the block body `break if cond`.
func breakWhen(cond func(bf *vm.Frame) (bool, error)) func(bf *vm.Frame) (vm.Value, error) {
	return func(bf *vm.Frame) (vm.Value, error) {
		stop, err := cond(bf)
		if err != nil {
			return vm.Nil, err
		}
		if stop {
			return vm.Nil, bf.Break(vm.Nil)
		}
		return vm.Nil, nil
	}
}

// atLeast reports whether local name >= n.
func atLeast(bf *vm.Frame, name string, n int64) (bool, error) {
	v, err := binop(bf, bf.Get(name), ">=", vm.FromInt(n))
	return v.IsTruthy(), err
}

func sayLoop(fr *vm.Frame, prefix string) error {
	return say(fr, prefix, fr.Get("x"), ", ", fr.Get("y"))
}

func pResult(fr *vm.Frame, method string) (vm.Value, error) {
	v, err := fr.Call(method)
	if err != nil {
		return vm.Nil, err
	}
	return fr.Call("p", v)
}

func breaking3Main(fr *vm.Frame) (vm.Value, error) {
	yielder(fr, "myyield", vm.FromInt(1))
	yielder(fr, "myyield2", vm.FromInt(2))

	fr.Def("test_break", noParams, func(mf *vm.Frame) (vm.Value, error) {
		mf.Set("x", vm.FromInt(0))
		mf.Set("y", vm.FromInt(0))
		_, err := callBlock(mf, "myyield", params("i"), func(bf *vm.Frame) (vm.Value, error) {
			if err := sayLoop(bf, "loop "); err != nil {
				return vm.Nil, err
			}
			_, err := callBlock(bf, "myyield2", params("j"), breakWhen(func(ib *vm.Frame) (bool, error) {
				if err := addLocal(ib, "y", ib.Get("j")); err != nil {
					return false, err
				}
				return atLeast(ib, "y", 6)
			}))
			if err != nil {
				return vm.Nil, err
			}
			if err := sayLoop(bf, "loop "); err != nil {
				return vm.Nil, err
			}
			return vm.Nil, addLocal(bf, "x", vm.FromInt(1))
		})
		if err != nil {
			return vm.Nil, err
		}
		return vm.NewArrayValue(mf.Get("x"), mf.Get("y")), nil
	})
	return pResult(fr, "test_break")
}

func breaking4Main(fr *vm.Frame) (vm.Value, error) {
	machine := fr.VM()
	machine.SetGlobal("$a1", vm.NewArrayValue(int64s(0, 1, 2)...))
	machine.SetGlobal("$a2", vm.NewArrayValue(int64s(0, 2, 4, 6, 8)...))

	fr.Def("test_break", noParams, func(mf *vm.Frame) (vm.Value, error) {
		mf.Set("x", vm.FromInt(0))
		mf.Set("y", vm.FromInt(0))
		_, err := sendBlock(mf, vm.FromInt(3), "times", params("i"), func(bf *vm.Frame) (vm.Value, error) {
			if err := sayLoop(bf, "loop "); err != nil {
				return vm.Nil, err
			}
			_, err := sendBlock(bf, bf.VM().Global("$a2"), "each", params("j"), breakWhen(func(ib *vm.Frame) (bool, error) {
				if err := addLocal(ib, "y", ib.Get("j")); err != nil {
					return false, err
				}
				if err := sayLoop(ib, "  inner loop "); err != nil {
					return false, err
				}
				return atLeast(ib, "j", 5)
			}))
			if err != nil {
				return vm.Nil, err
			}
			if err := sayLoop(bf, "loop "); err != nil {
				return vm.Nil, err
			}
			return vm.Nil, addLocal(bf, "x", bf.Get("i"))
		})
		if err != nil {
			return vm.Nil, err
		}
		return vm.NewArrayValue(mf.Get("x"), mf.Get("y")), nil
	})
	return pResult(fr, "test_break")
}

func procMain(fr *vm.Frame) (vm.Value, error) {
	test, err := callBlock(fr, "lambda", noParams, func(bf *vm.Frame) (vm.Value, error) {
		return bf.Call("puts", vm.FromString("Hello, world!"))
	})
	if err != nil {
		return vm.Nil, err
	}
	fr.Set("test", test)
	if _, err := fr.Send(fr.Get("test"), "call"); err != nil {
		return vm.Nil, err
	}

	fr.Set("test2", fr.Lambda(params("a"), func(bf *vm.Frame) (vm.Value, error) {
		return vm.Nil, say(bf, "Hello again! ", bf.Get("a"))
	}))
	if _, err := fr.Send(fr.Get("test2"), "call", vm.FromString("MrubyEdge")); err != nil {
		return vm.Nil, err
	}

	procClass := vm.ClassValue(fr.VM().ProcClass)
	test3, err := sendBlock(fr, procClass, "new", params("a", "b"), func(bf *vm.Frame) (vm.Value, error) {
		return vm.Nil, say(bf, "Hello from Proc! ", bf.Get("a"), ", ", bf.Get("b"))
	})
	if err != nil {
		return vm.Nil, err
	}
	fr.Set("test3", test3)
	if _, err := fr.Send(fr.Get("test3"), "call", vm.FromString("Foo"), vm.FromString("Bar")); err != nil {
		return vm.Nil, err
	}

	fr.Set("value", vm.FromInt(10))
	incrementer, err := sendBlock(fr, procClass, "new", params("x"), func(bf *vm.Frame) (vm.Value, error) {
		v, err := binop(bf, bf.Get("x"), "+", bf.Get("value"))
		if err != nil {
			return vm.Nil, err
		}
		bf.Set("value", v)
		return v, nil
	})
	if err != nil {
		return vm.Nil, err
	}
	fr.Set("incrementer", incrementer)
	for _, n := range []int64{5, 10, 100} {
		v, err := fr.Send(fr.Get("incrementer"), "call", vm.FromInt(n))
		if err != nil {
			return vm.Nil, err
		}
		if _, err := fr.Call("puts", v); err != nil {
			return vm.Nil, err
		}
	}
	return vm.Nil, nil
}

func proc2Main(fr *vm.Frame) (vm.Value, error) {
	_, err := fr.OpenClass("Router", nil, func(cf *vm.Frame) (vm.Value, error) {
		get := vm.Params{Required: []string{"path"}, Block: "block"}
		if _, err := cf.DefSingleton(cf.Self(), "get", get, func(mf *vm.Frame) (vm.Value, error) {
			if err := say(mf, "Registered GET ", mf.Get("path")); err != nil {
				return vm.Nil, err
			}
			if mf.IVar("@routes").IsFalsy() {
				if err := mf.SetIVar("@routes", vm.HashValue(vm.NewHash())); err != nil {
					return vm.Nil, err
				}
			}
			return mf.Send(mf.IVar("@routes"), "[]=", mf.Get("path"), mf.Get("block"))
		}); err != nil {
			return vm.Nil, err
		}
		return cf.DefSingleton(cf.Self(), "request", params("path"), func(mf *vm.Frame) (vm.Value, error) {
			route := vm.Nil
			if routes := mf.IVar("@routes"); routes.IsTruthy() {
				var err error
				if route, err = mf.Send(routes, "[]", mf.Get("path")); err != nil {
					return vm.Nil, err
				}
			}
			if route.IsTruthy() {
				return mf.Send(route, "call", mf.Get("path"))
			}
			return vm.Nil, say(mf, "No route for ", mf.Get("path"))
		})
	})
	if err != nil {
		return vm.Nil, err
	}

	router, err := fr.Const("Router")
	if err != nil {
		return vm.Nil, err
	}
	_, err = sendBlock(fr, router, "get", params("path"), func(bf *vm.Frame) (vm.Value, error) {
		return vm.Nil, say(bf, "Inside /home route: ", bf.Get("path"))
	}, vm.FromString("/home"))
	if err != nil {
		return vm.Nil, err
	}
	for _, path := range []string{"/home", "/about"} {
		if _, err := fr.Send(router, "request", vm.FromString(path)); err != nil {
			return vm.Nil, err
		}
	}
	return vm.Nil, nil
}

// returnFrom returns a block body that answers v from its home method.
func returnFrom(v vm.Value, before ...func(bf *vm.Frame) error) vm.Body {
	return func(bf *vm.Frame) (vm.Value, error) {
		for _, step := range before {
			if err := step(bf); err != nil {
				return vm.Nil, err
			}
		}
		return vm.Nil, bf.Return(v)
	}
}

// nest wraps body in a block passed to recv.name; a nil recv means self.
func nest(recv *vm.Value, name string, body vm.Body) vm.Body {
	return func(bf *vm.Frame) (vm.Value, error) {
		if recv == nil {
			return callBlock(bf, name, noParams, body)
		}
		return sendBlock(bf, *recv, name, noParams, body)
	}
}

// unreachable runs body, then prints msg and answers :unreachable, which
// only happens if the return inside body did not unwind past this method.
func unreachable(body vm.Body, msg string) vm.Body {
	return func(mf *vm.Frame) (vm.Value, error) {
		if _, err := body(mf); err != nil {
			return vm.Nil, err
		}
		if err := say(mf, msg); err != nil {
			return vm.Nil, err
		}
		return vm.Sym("unreachable"), nil
	}
}

func debugInfo(bf *vm.Frame) error {
	_, err := bf.Call("__debug__vm_info")
	return err
}

func printing(msg string) func(bf *vm.Frame) error {
	return func(bf *vm.Frame) error { return say(bf, msg) }
}

// sections prints "=== name ===" and then puts name for each method.
func sections(fr *vm.Frame, names ...string) error {
	for _, name := range names {
		if err := say(fr, "=== ", name, " ==="); err != nil {
			return err
		}
		v, err := fr.Call(name)
		if err != nil {
			return err
		}
		if _, err := fr.Call("puts", v); err != nil {
			return err
		}
	}
	return nil
}

func returnBlockMain(fr *vm.Frame) (vm.Value, error) {
	defineInner(fr)
	fr.Def("outer", noParams, unreachable(
		nest(nil, "inner", nest(nil, "inner", returnFrom(vm.FromInt(5471), debugInfo))),
		"unreachable"))
	fr.Def("main", noParams, func(mf *vm.Frame) (vm.Value, error) {
		return pResult(mf, "outer")
	})
	return fr.Call("main")
}

func returnBlock0Main(fr *vm.Frame) (vm.Value, error) {
	one := vm.FromInt(1)
	defineInner(fr)
	fr.Def("outer", noParams, func(mf *vm.Frame) (vm.Value, error) {
		if err := say(mf, "start outer"); err != nil {
			return vm.Nil, err
		}
		return unreachable(nest(nil, "inner", returnFrom(vm.FromInt(5471))), "unreachable outer")(mf)
	})
	fr.Def("outer2", noParams, func(mf *vm.Frame) (vm.Value, error) {
		if err := say(mf, "start outer2"); err != nil {
			return vm.Nil, err
		}
		body := nest(&one, "times", returnFrom(vm.FromInt(5472), printing("start times")))
		return unreachable(body, "unreachable outer2")(mf)
	})
	fr.Def("main", noParams, func(mf *vm.Frame) (vm.Value, error) {
		return vm.Nil, sections(mf, "outer", "outer2")
	})
	return fr.Call("main")
}

func returnBlock1Main(fr *vm.Frame) (vm.Value, error) {
	one := vm.FromInt(1)
	defineInner(fr)

	fr.Def("outer", noParams, unreachable(
		nest(nil, "inner", nest(nil, "inner", returnFrom(vm.FromInt(5471)))),
		"unreachable"))

	fr.Def("outer2", noParams, func(mf *vm.Frame) (vm.Value, error) {
		if err := say(mf, "start outer2"); err != nil {
			return vm.Nil, err
		}
		times := nest(&one, "times", unreachable(
			nest(nil, "inner", returnFrom(vm.FromInt(5472), printing("start inner"))),
			"unreachable: after inner"))
		return unreachable(times, "unreachable: after times")(mf)
	})

	fr.Def("outer3", noParams, func(mf *vm.Frame) (vm.Value, error) {
		mf.Set("k", vm.FromInt(0))
		list := vm.NewArrayValue(int64s(0, 1, 2)...)
		_, err := sendBlock(mf, list, "each", params("i"), func(bf *vm.Frame) (vm.Value, error) {
			if err := addLocal(bf, "k", bf.Get("i")); err != nil {
				return vm.Nil, err
			}
			return sendBlock(bf, vm.FromInt(4), "times", params("j"), func(ib *vm.Frame) (vm.Value, error) {
				if err := addLocal(ib, "k", ib.Get("j")); err != nil {
					return vm.Nil, err
				}
				over, err := binop(ib, ib.Get("k"), ">", vm.FromInt(10))
				if err != nil {
					return vm.Nil, err
				}
				if over.IsTruthy() {
					return vm.Nil, ib.Return(ib.Get("k"))
				}
				return vm.Nil, nil
			})
		})
		if err != nil {
			return vm.Nil, err
		}
		return vm.FromInt(9999), nil
	})

	fr.Def("outer4", noParams, func(mf *vm.Frame) (vm.Value, error) {
		if err := say(mf, "start outer4"); err != nil {
			return vm.Nil, err
		}
		body := nest(nil, "inner", unreachable(
			nest(&one, "times", returnFrom(vm.FromInt(5474), printing("start times"))),
			"unreachable: after times"))
		return unreachable(body, "unreachable: after inner")(mf)
	})

	fr.Def("outer5", noParams, func(mf *vm.Frame) (vm.Value, error) {
		if err := say(mf, "start outer5"); err != nil {
			return vm.Nil, err
		}
		innermost := returnFrom(vm.FromInt(5475), printing("start inner inner"))
		timesTwice := nest(&one, "times", func(bf *vm.Frame) (vm.Value, error) {
			if err := say(bf, "start times"); err != nil {
				return vm.Nil, err
			}
			return nest(&one, "times", innermost)(bf)
		})
		body := nest(nil, "inner", unreachable(timesTwice, "unreachable: after times"))
		return unreachable(body, "unreachable: after inner")(mf)
	})

	fr.Def("main", noParams, func(mf *vm.Frame) (vm.Value, error) {
		return vm.Nil, sections(mf, "outer", "outer2", "outer3", "outer4", "outer5")
	})
	return fr.Call("main")
}
