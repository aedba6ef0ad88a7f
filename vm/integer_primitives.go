package vm

import (
	"math"
	"strconv"
)

// ---------------------------------------------------------------------------
// Integer Primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerIntegerPrimitives() {
	c := vm.IntegerClass
	vm.undefNew(c)
	vm.registerNumericOperators(c)

	c.AddMethod0("-@", func(_ *Frame, self Value) (Value, error) {
		return FromInt(-self.Int()), nil
	})

	c.AddMethod0("abs", func(_ *Frame, self Value) (Value, error) {
		if n := self.Int(); n < 0 {
			return FromInt(-n), nil
		}
		return self, nil
	})

	c.AddMethod0("succ", func(_ *Frame, self Value) (Value, error) {
		return FromInt(self.Int() + 1), nil
	})

	c.AddMethod0("pred", func(_ *Frame, self Value) (Value, error) {
		return FromInt(self.Int() - 1), nil
	})

	c.AddMethod0("zero?", func(_ *Frame, self Value) (Value, error) {
		return FromBool(self.Int() == 0), nil
	})

	c.AddMethod0("even?", func(_ *Frame, self Value) (Value, error) {
		return FromBool(self.Int()%2 == 0), nil
	})

	c.AddMethod0("odd?", func(_ *Frame, self Value) (Value, error) {
		return FromBool(self.Int()%2 != 0), nil
	})

	c.AddMethod0("to_i", func(_ *Frame, self Value) (Value, error) {
		return self, nil
	})

	c.AddMethod0("to_f", func(_ *Frame, self Value) (Value, error) {
		return FromFloat64(float64(self.Int())), nil
	})

	c.AddPrimitive("to_s", 0, 1, func(fr *Frame, self Value, args []Value) (Value, error) {
		base := 10
		if len(args) == 1 {
			if !args[0].IsInt() || args[0].Int() < 2 || args[0].Int() > 36 {
				return Nil, fr.Raise(fr.vm.ArgumentErrorClass, "invalid radix %s", Inspect(args[0]))
			}
			base = int(args[0].Int())
		}
		return FromString(strconv.FormatInt(self.Int(), base)), nil
	})

	c.AddMethod0("inspect", func(_ *Frame, self Value) (Value, error) {
		return FromString(strconv.FormatInt(self.Int(), 10)), nil
	})

	// ---------------------------------------------------------------------------
	// Iteration
	// ---------------------------------------------------------------------------

	c.AddMethod0("times", func(fr *Frame, self Value) (Value, error) {
		n := self.Int()
		for i := int64(0); i < n; i++ {
			if _, err := fr.Yield(FromInt(i)); err != nil {
				return Nil, err
			}
		}
		return self, nil
	})

	c.AddMethod1("upto", func(fr *Frame, self Value, limit Value) (Value, error) {
		if !limit.IsNumeric() {
			return Nil, compareError(fr, self, limit)
		}
		for i := self.Int(); float64(i) <= toFloat(limit); i++ {
			if _, err := fr.Yield(FromInt(i)); err != nil {
				return Nil, err
			}
		}
		return self, nil
	})

	c.AddMethod1("downto", func(fr *Frame, self Value, limit Value) (Value, error) {
		if !limit.IsNumeric() {
			return Nil, compareError(fr, self, limit)
		}
		for i := self.Int(); float64(i) >= toFloat(limit); i-- {
			if _, err := fr.Yield(FromInt(i)); err != nil {
				return Nil, err
			}
		}
		return self, nil
	})
}

// registerNumericOperators installs the arithmetic and comparison
// operators shared by Integer and Float. Mixed operands promote to Float.
func (vm *VM) registerNumericOperators(c *Class) {
	for _, op := range []string{"+", "-", "*", "/", "%", "**"} {
		c.AddMethod1(op, func(fr *Frame, self Value, arg Value) (Value, error) {
			return arith(fr, op, self, arg)
		})
	}
	for _, op := range []string{"<", ">", "<=", ">="} {
		c.AddMethod1(op, func(fr *Frame, self Value, arg Value) (Value, error) {
			if !arg.IsNumeric() {
				return Nil, compareError(fr, self, arg)
			}
			a, b := toFloat(self), toFloat(arg)
			if self.IsInt() && arg.IsInt() {
				return FromBool(compareInts(op, self.Int(), arg.Int())), nil
			}
			switch op {
			case "<":
				return FromBool(a < b), nil
			case ">":
				return FromBool(a > b), nil
			case "<=":
				return FromBool(a <= b), nil
			}
			return FromBool(a >= b), nil
		})
	}
	c.AddMethod1("==", func(_ *Frame, self Value, arg Value) (Value, error) {
		return FromBool(Equal(self, arg)), nil
	})
	c.AddMethod1("<=>", func(_ *Frame, self Value, arg Value) (Value, error) {
		if !arg.IsNumeric() {
			return Nil, nil
		}
		a, b := toFloat(self), toFloat(arg)
		switch {
		case self.IsInt() && arg.IsInt() && self.Int() < arg.Int(), a < b:
			return FromInt(-1), nil
		case self.IsInt() && arg.IsInt() && self.Int() > arg.Int(), a > b:
			return FromInt(1), nil
		}
		return FromInt(0), nil
	})
}

func arith(fr *Frame, op string, a, b Value) (Value, error) {
	if !b.IsNumeric() {
		return Nil, fr.Raise(fr.vm.TypeErrorClass, "%s can't be coerced into %s", coerceName(fr.vm, b), fr.vm.RealClassOf(a).FullName())
	}
	if a.IsInt() && b.IsInt() {
		x, y := a.Int(), b.Int()
		switch op {
		case "+":
			return FromInt(x + y), nil
		case "-":
			return FromInt(x - y), nil
		case "*":
			return FromInt(x * y), nil
		case "/", "%":
			if y == 0 {
				return Nil, fr.Raise(fr.vm.ZeroDivisionErrorClass, "divided by 0")
			}
			q, r := x/y, x%y
			// Ruby rounds the quotient toward negative infinity.
			if r != 0 && (r < 0) != (y < 0) {
				q--
				r += y
			}
			if op == "/" {
				return FromInt(q), nil
			}
			return FromInt(r), nil
		case "**":
			if y < 0 {
				return FromFloat64(math.Pow(float64(x), float64(y))), nil
			}
			n, ok := powInt(x, y)
			if !ok {
				return Nil, fr.Raise(fr.vm.RangeErrorClass, "%d ** %d is out of integer range", x, y)
			}
			return FromInt(n), nil
		}
	}
	x, y := toFloat(a), toFloat(b)
	switch op {
	case "+":
		return FromFloat64(x + y), nil
	case "-":
		return FromFloat64(x - y), nil
	case "*":
		return FromFloat64(x * y), nil
	case "/":
		return FromFloat64(x / y), nil
	case "%":
		m := math.Mod(x, y)
		if m != 0 && (m < 0) != (y < 0) {
			m += y
		}
		return FromFloat64(m), nil
	}
	return FromFloat64(math.Pow(x, y)), nil
}

// powInt computes x**y for y >= 0 by repeated squaring. ok is false when
// the result does not fit in an int64.
func powInt(x, y int64) (n int64, ok bool) {
	n = 1
	for y > 0 {
		if y&1 == 1 {
			if n, ok = mulInt(n, x); !ok {
				return 0, false
			}
		}
		y >>= 1
		if y > 0 {
			if x, ok = mulInt(x, x); !ok {
				return 0, false
			}
		}
	}
	return n, true
}

func mulInt(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	c := a * b
	if c/b != a {
		return 0, false
	}
	return c, true
}

func compareInts(op string, a, b int64) bool {
	switch op {
	case "<":
		return a < b
	case ">":
		return a > b
	case "<=":
		return a <= b
	}
	return a >= b
}

func toFloat(v Value) float64 {
	if v.IsInt() {
		return float64(v.Int())
	}
	return v.Float64()
}

func compareError(fr *Frame, a, b Value) error {
	return fr.Raise(fr.vm.ArgumentErrorClass, "comparison of %s with %s failed", fr.vm.RealClassOf(a).FullName(), coerceName(fr.vm, b))
}

// coerceName names an operand in coercion messages: nil, true and false
// by value, everything else by class.
func coerceName(vm *VM, v Value) string {
	if v.IsNil() || v.IsBool() {
		return Inspect(v)
	}
	return vm.RealClassOf(v).FullName()
}
