package vm

// ---------------------------------------------------------------------------
// Boolean Primitives (TrueClass, FalseClass, NilClass)
// ---------------------------------------------------------------------------

func (vm *VM) registerBooleanPrimitives() {
	for _, c := range []*Class{vm.TrueClass, vm.FalseClass, vm.NilClass} {
		c.AddMethod0("to_s", func(_ *Frame, self Value) (Value, error) {
			return FromString(ToS(self)), nil
		})
		c.AddMethod0("inspect", func(_ *Frame, self Value) (Value, error) {
			return FromString(Inspect(self)), nil
		})
		// & and | take an evaluated argument; they do not short-circuit.
		c.AddMethod1("&", func(_ *Frame, self Value, arg Value) (Value, error) {
			return FromBool(self.IsTruthy() && arg.IsTruthy()), nil
		})
		c.AddMethod1("|", func(_ *Frame, self Value, arg Value) (Value, error) {
			return FromBool(self.IsTruthy() || arg.IsTruthy()), nil
		})
		c.AddMethod1("^", func(_ *Frame, self Value, arg Value) (Value, error) {
			return FromBool(self.IsTruthy() != arg.IsTruthy()), nil
		})
		vm.undefNew(c)
	}

	vm.NilClass.AddMethod0("nil?", func(_ *Frame, _ Value) (Value, error) {
		return True, nil
	})

	vm.NilClass.AddMethod0("to_a", func(_ *Frame, _ Value) (Value, error) {
		return NewArrayValue(), nil
	})
}

// undefNew removes the inherited Class#new from classes whose instances
// only exist as literals.
func (vm *VM) undefNew(c *Class) {
	meta := c.SingletonClass()
	for _, name := range []string{"new", "allocate"} {
		if err := meta.Undef(name); err != nil {
			panic(err)
		}
	}
}
