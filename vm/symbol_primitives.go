package vm

import "strings"

// ---------------------------------------------------------------------------
// Symbol Primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerSymbolPrimitives() {
	c := vm.SymbolClass
	vm.undefNew(c)

	toS := func(_ *Frame, self Value) (Value, error) {
		return FromString(self.Symbol().Name()), nil
	}
	c.AddMethod0("to_s", toS)
	c.AddMethod0("id2name", toS)
	c.AddMethod0("name", toS)

	c.AddMethod0("to_sym", func(_ *Frame, self Value) (Value, error) {
		return self, nil
	})

	c.AddMethod0("inspect", func(_ *Frame, self Value) (Value, error) {
		return FromString(inspectSymbol(self.Symbol().Name())), nil
	})

	size := func(_ *Frame, self Value) (Value, error) {
		return FromInt(int64(len([]rune(self.Symbol().Name())))), nil
	}
	c.AddMethod0("size", size)
	c.AddMethod0("length", size)

	c.AddMethod1("<=>", func(_ *Frame, self Value, arg Value) (Value, error) {
		if !arg.IsSymbol() {
			return Nil, nil
		}
		return FromInt(int64(strings.Compare(self.Symbol().Name(), arg.Symbol().Name()))), nil
	})

	// &:name builds a lambda that sends name to its first argument.
	c.AddMethod0("to_proc", func(_ *Frame, self Value) (Value, error) {
		name := self.Symbol().Name()
		p := &Proc{
			header: newHeader(),
			kind:   ProcLambda,
			params: Params{Required: []string{"recv"}, Rest: "args"},
			body: func(fr *Frame) (Value, error) {
				rest := fr.Get("args").Array().elems
				return fr.SendWith(fr.Get("recv"), name, Args{Positional: rest, Block: fr.args.Block})
			},
		}
		return ProcValue(p), nil
	})
}
