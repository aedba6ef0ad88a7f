package programs

import "github.com/chazu/garnet/vm"

func init() {
	register("args", "a *rest parameter collects the extra positionals", argsMain)
	register("args3", "rest, optional keyword and **kwargs together", args3Main)
	register("array3", "multiple assignment from a splatted array", array3Main)
	register("default-arg", "a default expression is evaluated per call", defaultArgMain)
}

// printEach is args.each { |arg| p arg }.
func printEach(fr *vm.Frame, name string) error {
	_, err := sendBlock(fr, fr.Get(name), "each", params("arg"), func(bf *vm.Frame) (vm.Value, error) {
		return bf.Call("p", bf.Get("arg"))
	})
	return err
}

func argsMain(fr *vm.Frame) (vm.Value, error) {
	fr.Def("splat_it", vm.Params{Required: []string{"x", "y"}, Rest: "args"}, func(mf *vm.Frame) (vm.Value, error) {
		return vm.Nil, printEach(mf, "args")
	})
	if _, err := fr.Call("splat_it", int64s(10, 20, 30)...); err != nil {
		return vm.Nil, err
	}
	return fr.Call("splat_it", int64s(10, 20, 30, 40, 50)...)
}

func args3Main(fr *vm.Frame) (vm.Value, error) {
	sig := vm.Params{
		Required:   []string{"x", "y"},
		Rest:       "args",
		OptionalKw: []vm.OptParam{{Name: "buz", Default: func(*vm.Frame) (vm.Value, error) { return vm.FromInt(-1), nil }}},
		KwRest:     "kwargs",
	}
	fr.Def("splat_it", sig, func(mf *vm.Frame) (vm.Value, error) {
		if err := printEach(mf, "args"); err != nil {
			return vm.Nil, err
		}
		if _, err := mf.CallWith("p", vm.Args{}.Kw("buz", mf.Get("buz"))); err != nil {
			return vm.Nil, err
		}
		return mf.Call("p", mf.Get("kwargs"))
	})

	calls := []vm.Args{
		vm.Positional(int64s(10, 20, 30)...),
		vm.Positional(int64s(10, 20, 30, 40, 50)...).Kw("foo", vm.FromInt(60)),
		vm.Positional(int64s(10, 20, 30, 40, 50)...).Kw("foo", vm.FromInt(60)).Kw("buz", vm.FromInt(70)),
	}
	for _, args := range calls {
		if _, err := fr.CallWith("splat_it", args); err != nil {
			return vm.Nil, err
		}
	}
	return vm.Nil, nil
}

func array3Main(fr *vm.Frame) (vm.Value, error) {
	fr.Set("array", vm.NewArrayValue(int64s(1, 2)...))
	got := vm.Destructure(fr.Get("array"), 2, false, 0)
	fr.Set("a1", got[0])
	fr.Set("a2", got[1])

	fr.Set("array2", vm.NewArrayValue(vm.Sym("foo"), vm.Sym("bar"), vm.Sym("buz"), vm.Sym("quz")))
	got = vm.Destructure(fr.Get("array2"), 2, true, 0)
	fr.Set("a11", got[0])
	fr.Set("a12", got[1])
	fr.Set("rest", got[2])

	for _, name := range []string{"a1", "a2", "a11", "a12", "rest"} {
		if _, err := fr.Call("p", fr.Get(name)); err != nil {
			return vm.Nil, err
		}
	}
	return vm.Nil, nil
}

func defaultArgMain(fr *vm.Frame) (vm.Value, error) {
	sig := vm.Params{
		Required: []string{"times"},
		Optional: []vm.OptParam{{Name: "state", Default: func(*vm.Frame) (vm.Value, error) {
			return vm.NewArrayValue(vm.FromInt(0)), nil
		}}},
	}
	fr.Def("incr", sig, func(mf *vm.Frame) (vm.Value, error) {
		done, err := binop(mf, mf.Get("times"), "==", vm.FromInt(0))
		if err != nil {
			return vm.Nil, err
		}
		if done.IsTruthy() {
			return vm.Nil, mf.Return(vm.Nil)
		}
		state := mf.Get("state")
		shown, err := mf.InspectString(state)
		if err != nil {
			return vm.Nil, err
		}
		id, err := mf.Send(state, "object_id")
		if err != nil {
			return vm.Nil, err
		}
		line, err := interp(mf, "state: ", shown, " ", id)
		if err != nil {
			return vm.Nil, err
		}
		if _, err := mf.Call("p", line); err != nil {
			return vm.Nil, err
		}
		if err := addIndex(mf, state, vm.FromInt(0), vm.FromInt(1)); err != nil {
			return vm.Nil, err
		}
		rest, err := binop(mf, mf.Get("times"), "-", vm.FromInt(1))
		if err != nil {
			return vm.Nil, err
		}
		if _, err := mf.Call("incr", rest, state); err != nil {
			return vm.Nil, err
		}
		return state, nil
	})
	v, err := fr.Call("incr", vm.FromInt(3))
	if err != nil {
		return vm.Nil, err
	}
	return fr.Call("p", v)
}
