package vm

import (
	"sort"
	"strings"
)

// ---------------------------------------------------------------------------
// Array Primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerArrayPrimitives() {
	c := vm.ArrayClass

	c.AddClassPrimitive("new", 0, 2, func(fr *Frame, _ Value, args []Value) (Value, error) {
		if len(args) == 0 {
			return NewArrayValue(), nil
		}
		if !args[0].IsInt() {
			return Nil, fr.Raise(fr.vm.TypeErrorClass, "no implicit conversion of %s into Integer", coerceName(fr.vm, args[0]))
		}
		n := args[0].Int()
		if n < 0 {
			return Nil, fr.Raise(fr.vm.ArgumentErrorClass, "negative array size")
		}
		fill := Nil
		if len(args) == 2 {
			fill = args[1]
		}
		out := NewArray()
		for i := int64(0); i < n; i++ {
			v := fill
			if fr.BlockGiven() {
				var err error
				if v, err = fr.Yield(FromInt(i)); err != nil {
					return Nil, err
				}
			}
			out.Push(v)
		}
		return ArrayValue(out), nil
	})

	// ---------------------------------------------------------------------------
	// Access
	// ---------------------------------------------------------------------------

	size := func(_ *Frame, self Value) (Value, error) {
		return FromInt(int64(self.Array().Len())), nil
	}
	c.AddMethod0("size", size)
	c.AddMethod0("length", size)

	c.AddMethod0("empty?", func(_ *Frame, self Value) (Value, error) {
		return FromBool(self.Array().Len() == 0), nil
	})

	c.AddPrimitive("[]", 1, 2, func(fr *Frame, self Value, args []Value) (Value, error) {
		a := self.Array()
		if !args[0].IsInt() || (len(args) == 2 && !args[1].IsInt()) {
			return Nil, fr.Raise(fr.vm.TypeErrorClass, "no implicit conversion of %s into Integer", coerceName(fr.vm, args[len(args)-1]))
		}
		if len(args) == 1 {
			return a.At(int(args[0].Int())), nil
		}
		start, n := int(args[0].Int()), int(args[1].Int())
		if start < 0 {
			start += a.Len()
		}
		if start < 0 || start > a.Len() || n < 0 {
			return Nil, nil
		}
		return ArrayValue(a.Slice(start, start+n)), nil
	})

	c.AddMethod1("at", func(fr *Frame, self Value, arg Value) (Value, error) {
		if !arg.IsInt() {
			return Nil, fr.Raise(fr.vm.TypeErrorClass, "no implicit conversion of %s into Integer", coerceName(fr.vm, arg))
		}
		return self.Array().At(int(arg.Int())), nil
	})

	c.AddMethod2("[]=", func(fr *Frame, self Value, idx, v Value) (Value, error) {
		if !idx.IsInt() {
			return Nil, fr.Raise(fr.vm.TypeErrorClass, "no implicit conversion of %s into Integer", coerceName(fr.vm, idx))
		}
		a := self.Array()
		if !a.Set(int(idx.Int()), v) {
			return Nil, fr.Raise(fr.vm.IndexErrorClass, "index %d too small for array; minimum: -%d", idx.Int(), a.Len())
		}
		return v, nil
	})

	c.AddPrimitive("first", 0, 1, func(fr *Frame, self Value, args []Value) (Value, error) {
		a := self.Array()
		if len(args) == 0 {
			return a.At(0), nil
		}
		n, err := countArg(fr, args[0])
		if err != nil {
			return Nil, err
		}
		return ArrayValue(a.Slice(0, n)), nil
	})

	c.AddPrimitive("last", 0, 1, func(fr *Frame, self Value, args []Value) (Value, error) {
		a := self.Array()
		if len(args) == 0 {
			return a.At(-1), nil
		}
		n, err := countArg(fr, args[0])
		if err != nil {
			return Nil, err
		}
		return ArrayValue(a.Slice(max(0, a.Len()-n), a.Len())), nil
	})

	c.AddMethod1("index", func(fr *Frame, self Value, arg Value) (Value, error) {
		for i, e := range self.Array().elems {
			eq, err := fr.Send(e, "==", arg)
			if err != nil {
				return Nil, err
			}
			if eq.IsTruthy() {
				return FromInt(int64(i)), nil
			}
		}
		return Nil, nil
	})

	c.AddMethod1("include?", func(fr *Frame, self Value, arg Value) (Value, error) {
		for _, e := range self.Array().elems {
			eq, err := fr.Send(e, "==", arg)
			if err != nil {
				return Nil, err
			}
			if eq.IsTruthy() {
				return True, nil
			}
		}
		return False, nil
	})

	// ---------------------------------------------------------------------------
	// Mutation
	// ---------------------------------------------------------------------------

	push := func(_ *Frame, self Value, args []Value) (Value, error) {
		self.Array().Push(args...)
		return self, nil
	}
	c.AddPrimitive("push", 0, -1, push)
	c.AddPrimitive("append", 0, -1, push)
	c.AddMethod1("<<", func(_ *Frame, self Value, arg Value) (Value, error) {
		self.Array().Push(arg)
		return self, nil
	})

	c.AddMethod0("pop", func(_ *Frame, self Value) (Value, error) {
		return self.Array().Pop(), nil
	})

	c.AddMethod0("shift", func(_ *Frame, self Value) (Value, error) {
		a := self.Array()
		if len(a.elems) == 0 {
			return Nil, nil
		}
		v := a.elems[0]
		a.elems = append(a.elems[:0:0], a.elems[1:]...)
		return v, nil
	})

	c.AddPrimitive("unshift", 0, -1, func(_ *Frame, self Value, args []Value) (Value, error) {
		a := self.Array()
		a.elems = append(append([]Value(nil), args...), a.elems...)
		return self, nil
	})

	c.AddMethod1("concat", func(fr *Frame, self Value, arg Value) (Value, error) {
		other, err := arrayArg(fr, arg)
		if err != nil {
			return Nil, err
		}
		self.Array().Push(other.elems...)
		return self, nil
	})

	c.AddMethod0("clear", func(_ *Frame, self Value) (Value, error) {
		self.Array().elems = nil
		return self, nil
	})

	// ---------------------------------------------------------------------------
	// Building new arrays
	// ---------------------------------------------------------------------------

	c.AddMethod1("+", func(fr *Frame, self Value, arg Value) (Value, error) {
		other, err := arrayArg(fr, arg)
		if err != nil {
			return Nil, err
		}
		out := self.Array().Clone()
		out.Push(other.elems...)
		return ArrayValue(out), nil
	})

	c.AddMethod1("-", func(fr *Frame, self Value, arg Value) (Value, error) {
		other, err := arrayArg(fr, arg)
		if err != nil {
			return Nil, err
		}
		out := NewArray()
		for _, e := range self.Array().elems {
			found := false
			for _, o := range other.elems {
				if Equal(e, o) {
					found = true
					break
				}
			}
			if !found {
				out.Push(e)
			}
		}
		return ArrayValue(out), nil
	})

	c.AddMethod0("reverse", func(_ *Frame, self Value) (Value, error) {
		elems := self.Array().elems
		out := make([]Value, len(elems))
		for i, e := range elems {
			out[len(elems)-1-i] = e
		}
		return ArrayValue(&Array{header: newHeader(), elems: out}), nil
	})

	c.AddMethod0("compact", func(_ *Frame, self Value) (Value, error) {
		out := NewArray()
		for _, e := range self.Array().elems {
			if !e.IsNil() {
				out.Push(e)
			}
		}
		return ArrayValue(out), nil
	})

	c.AddMethod0("uniq", func(_ *Frame, self Value) (Value, error) {
		seen := NewHash()
		out := NewArray()
		for _, e := range self.Array().elems {
			if !seen.Has(e) {
				seen.Set(e, True)
				out.Push(e)
			}
		}
		return ArrayValue(out), nil
	})

	c.AddMethod0("to_a", func(_ *Frame, self Value) (Value, error) {
		return self, nil
	})

	c.AddMethod0("sort", func(fr *Frame, self Value) (Value, error) {
		out := self.Array().Clone()
		var sortErr error
		sort.SliceStable(out.elems, func(i, j int) bool {
			if sortErr != nil {
				return false
			}
			var r Value
			if fr.BlockGiven() {
				r, sortErr = fr.Yield(out.elems[i], out.elems[j])
			} else {
				r, sortErr = fr.Send(out.elems[i], "<=>", out.elems[j])
			}
			if sortErr == nil && !r.IsInt() {
				sortErr = compareError(fr, out.elems[i], out.elems[j])
			}
			return sortErr == nil && r.Int() < 0
		})
		if sortErr != nil {
			return Nil, sortErr
		}
		return ArrayValue(out), nil
	})

	c.AddPrimitive("join", 0, 1, func(fr *Frame, self Value, args []Value) (Value, error) {
		v, ok, err := fr.vm.recursive(refPair{self.ref, "join"}, func() (Value, error) {
			return joinArray(fr, self, args)
		})
		if !ok {
			return Nil, fr.Raise(fr.vm.ArgumentErrorClass, "recursive array join")
		}
		return v, err
	})

	// ---------------------------------------------------------------------------
	// Iteration
	// ---------------------------------------------------------------------------

	// The length is re-read every step so that blocks may grow or shrink
	// the array while it is being walked.
	c.AddMethod0("each", func(fr *Frame, self Value) (Value, error) {
		a := self.Array()
		for i := 0; i < a.Len(); i++ {
			if _, err := fr.Yield(a.elems[i]); err != nil {
				return Nil, err
			}
		}
		return self, nil
	})

	c.AddMethod0("each_with_index", func(fr *Frame, self Value) (Value, error) {
		a := self.Array()
		for i := 0; i < a.Len(); i++ {
			if _, err := fr.Yield(a.elems[i], FromInt(int64(i))); err != nil {
				return Nil, err
			}
		}
		return self, nil
	})

	mapFn := func(fr *Frame, self Value) (Value, error) {
		a := self.Array()
		out := NewArray()
		for i := 0; i < a.Len(); i++ {
			v, err := fr.Yield(a.elems[i])
			if err != nil {
				return Nil, err
			}
			out.Push(v)
		}
		return ArrayValue(out), nil
	}
	c.AddMethod0("map", mapFn)
	c.AddMethod0("collect", mapFn)

	filter := func(keep bool) Method0Func {
		return func(fr *Frame, self Value) (Value, error) {
			a := self.Array()
			out := NewArray()
			for i := 0; i < a.Len(); i++ {
				e := a.elems[i]
				v, err := fr.Yield(e)
				if err != nil {
					return Nil, err
				}
				if v.IsTruthy() == keep {
					out.Push(e)
				}
			}
			return ArrayValue(out), nil
		}
	}
	c.AddMethod0("select", filter(true))
	c.AddMethod0("filter", filter(true))
	c.AddMethod0("reject", filter(false))

	c.AddMethod0("find", func(fr *Frame, self Value) (Value, error) {
		a := self.Array()
		for i := 0; i < a.Len(); i++ {
			v, err := fr.Yield(a.elems[i])
			if err != nil {
				return Nil, err
			}
			if v.IsTruthy() {
				return a.elems[i], nil
			}
		}
		return Nil, nil
	})

	inject := func(fr *Frame, self Value, args []Value) (Value, error) {
		elems := self.Array().elems
		var acc Value
		switch {
		case len(args) == 2:
			acc = args[0]
		case len(args) == 1 && fr.BlockGiven():
			acc = args[0]
		case len(elems) == 0:
			return Nil, nil
		default:
			acc, elems = elems[0], elems[1:]
		}
		for _, e := range elems {
			var err error
			switch {
			case fr.BlockGiven():
				acc, err = fr.Yield(acc, e)
			default:
				op, nerr := fr.symbolName(args[len(args)-1])
				if nerr != nil {
					return Nil, nerr
				}
				acc, err = fr.Send(acc, op, e)
			}
			if err != nil {
				return Nil, err
			}
		}
		return acc, nil
	}
	c.AddPrimitive("inject", 0, 2, inject)
	c.AddPrimitive("reduce", 0, 2, inject)

	c.AddPrimitive("sum", 0, 1, func(fr *Frame, self Value, args []Value) (Value, error) {
		acc := FromInt(0)
		if len(args) == 1 {
			acc = args[0]
		}
		for _, e := range self.Array().elems {
			if fr.BlockGiven() {
				var err error
				if e, err = fr.Yield(e); err != nil {
					return Nil, err
				}
			}
			var err error
			if acc, err = fr.Send(acc, "+", e); err != nil {
				return Nil, err
			}
		}
		return acc, nil
	})

	c.AddPrimitive("count", 0, 1, func(fr *Frame, self Value, args []Value) (Value, error) {
		a := self.Array()
		if len(args) == 0 && !fr.BlockGiven() {
			return FromInt(int64(a.Len())), nil
		}
		n := 0
		for i := 0; i < a.Len(); i++ {
			var hit Value
			var err error
			if len(args) == 1 {
				hit, err = fr.Send(a.elems[i], "==", args[0])
			} else {
				hit, err = fr.Yield(a.elems[i])
			}
			if err != nil {
				return Nil, err
			}
			if hit.IsTruthy() {
				n++
			}
		}
		return FromInt(int64(n)), nil
	})

	// ---------------------------------------------------------------------------
	// Comparison and printing
	// ---------------------------------------------------------------------------

	c.AddMethod1("==", func(fr *Frame, self Value, arg Value) (Value, error) {
		if !arg.IsArray() {
			return False, nil
		}
		a, b := self.Array().elems, arg.Array().elems
		if len(a) != len(b) {
			return False, nil
		}
		v, ok, err := fr.vm.recursive(refPair{self.ref, arg.ref}, func() (Value, error) {
			for i := range a {
				eq, err := fr.Send(a[i], "==", b[i])
				if err != nil {
					return Nil, err
				}
				if eq.IsFalsy() {
					return False, nil
				}
			}
			return True, nil
		})
		if !ok {
			return True, nil
		}
		return v, err
	})

	inspect := func(fr *Frame, self Value) (Value, error) {
		v, ok, err := fr.vm.recursive(refPair{self.ref, "inspect"}, func() (Value, error) {
			return inspectArray(fr, self)
		})
		if !ok {
			return FromString("[...]"), nil
		}
		return v, err
	}
	c.AddMethod0("inspect", inspect)
	c.AddMethod0("to_s", inspect)
}

func inspectArray(fr *Frame, self Value) (Value, error) {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, e := range self.Array().elems {
		if i > 0 {
			sb.WriteString(", ")
		}
		s, err := fr.InspectString(e)
		if err != nil {
			return Nil, err
		}
		sb.WriteString(s)
	}
	sb.WriteByte(']')
	return FromString(sb.String()), nil
}

func arrayArg(fr *Frame, v Value) (*Array, error) {
	if !v.IsArray() {
		return nil, fr.Raise(fr.vm.TypeErrorClass, "no implicit conversion of %s into Array", coerceName(fr.vm, v))
	}
	return v.Array(), nil
}

func countArg(fr *Frame, v Value) (int, error) {
	if !v.IsInt() {
		return 0, fr.Raise(fr.vm.TypeErrorClass, "no implicit conversion of %s into Integer", coerceName(fr.vm, v))
	}
	if v.Int() < 0 {
		return 0, fr.Raise(fr.vm.ArgumentErrorClass, "negative array size")
	}
	return int(v.Int()), nil
}

func joinArray(fr *Frame, self Value, args []Value) (Value, error) {
	sep := ""
	if len(args) == 1 && !args[0].IsNil() {
		s, err := fr.stringArg(args[0])
		if err != nil {
			return Nil, err
		}
		sep = s
	}
	parts := make([]string, 0, self.Array().Len())
	for _, e := range self.Array().elems {
		var s string
		var err error
		if e.IsArray() {
			var joined Value
			joined, err = fr.Send(e, "join", args...)
			s = ToS(joined)
		} else {
			s, err = fr.ToS(e)
		}
		if err != nil {
			return Nil, err
		}
		parts = append(parts, s)
	}
	return FromString(strings.Join(parts, sep)), nil
}
