package programs

import "github.com/chazu/garnet/vm"

func init() {
	register("hanoi", "Tower of Hanoi with 3 disks, counting steps in a shared array", hanoiMain)
}

func hanoiMain(fr *vm.Frame) (vm.Value, error) {
	fr.Def("hanoi", params("n", "source", "destination", "auxiliary", "step"), func(mf *vm.Frame) (vm.Value, error) {
		n, step := mf.Get("n"), mf.Get("step")
		src, dst, aux := mf.Get("source"), mf.Get("destination"), mf.Get("auxiliary")
		move := func() error {
			if err := addIndex(mf, step, vm.FromInt(0), vm.FromInt(1)); err != nil {
				return err
			}
			count, err := mf.Send(step, "[]", vm.FromInt(0))
			if err != nil {
				return err
			}
			return say(mf, "Step ", count, ": Move disk ", n, " from ", src, " to ", dst)
		}

		last, err := binop(mf, n, "==", vm.FromInt(1))
		if err != nil {
			return vm.Nil, err
		}
		if last.IsTruthy() {
			if err := move(); err != nil {
				return vm.Nil, err
			}
			return vm.Nil, mf.Return(vm.Nil)
		}

		smaller, err := binop(mf, n, "-", vm.FromInt(1))
		if err != nil {
			return vm.Nil, err
		}
		err = seq(
			func() error { _, err := mf.Call("hanoi", smaller, src, aux, dst, step); return err },
			move,
			func() error { _, err := mf.Call("hanoi", smaller, aux, dst, src, step); return err },
		)
		return vm.Nil, err
	})

	rule := vm.FromString("----------------------------")
	return vm.Nil, seq(
		func() error { return say(fr, "Tower of Hanoi with 3 disks:") },
		func() error { _, err := fr.Call("puts", rule); return err },
		func() error {
			_, err := fr.Call("hanoi", vm.FromInt(3), vm.FromString("A"), vm.FromString("C"), vm.FromString("B"),
				vm.NewArrayValue(vm.FromInt(0)))
			return err
		},
		func() error { _, err := fr.Call("puts", rule); return err },
		func() error { return say(fr, "Complete!") },
	)
}
