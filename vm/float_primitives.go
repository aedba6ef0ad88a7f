package vm

import "math"

// ---------------------------------------------------------------------------
// Float Primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerFloatPrimitives() {
	c := vm.FloatClass
	vm.undefNew(c)
	vm.registerNumericOperators(c)

	c.AddMethod0("-@", func(_ *Frame, self Value) (Value, error) {
		return FromFloat64(-self.Float64()), nil
	})

	c.AddMethod0("abs", func(_ *Frame, self Value) (Value, error) {
		return FromFloat64(math.Abs(self.Float64())), nil
	})

	c.AddMethod0("to_f", func(_ *Frame, self Value) (Value, error) {
		return self, nil
	})

	c.AddMethod0("to_i", func(fr *Frame, self Value) (Value, error) {
		f := self.Float64()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Nil, fr.Raise(fr.vm.RuntimeErrorClass, "%s", formatFloat(f))
		}
		return FromInt(int64(f)), nil
	})

	c.AddMethod0("floor", func(_ *Frame, self Value) (Value, error) {
		return FromInt(int64(math.Floor(self.Float64()))), nil
	})

	c.AddMethod0("ceil", func(_ *Frame, self Value) (Value, error) {
		return FromInt(int64(math.Ceil(self.Float64()))), nil
	})

	c.AddMethod0("round", func(_ *Frame, self Value) (Value, error) {
		return FromInt(int64(math.Round(self.Float64()))), nil
	})

	c.AddMethod0("nan?", func(_ *Frame, self Value) (Value, error) {
		return FromBool(math.IsNaN(self.Float64())), nil
	})

	toS := func(_ *Frame, self Value) (Value, error) {
		return FromString(formatFloat(self.Float64())), nil
	}
	c.AddMethod0("to_s", toS)
	c.AddMethod0("inspect", toS)
}
