package vm

import "strings"

// ---------------------------------------------------------------------------
// Hash Primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerHashPrimitives() {
	c := vm.HashClass

	c.AddClassPrimitive("new", 0, 0, func(_ *Frame, _ Value, _ []Value) (Value, error) {
		return HashValue(NewHash()), nil
	})

	c.AddMethod1("[]", func(_ *Frame, self Value, key Value) (Value, error) {
		return self.Hash().Fetch(key), nil
	})

	c.AddMethod2("[]=", func(_ *Frame, self Value, key, v Value) (Value, error) {
		self.Hash().Set(key, v)
		return v, nil
	})
	c.AddMethod2("store", func(_ *Frame, self Value, key, v Value) (Value, error) {
		self.Hash().Set(key, v)
		return v, nil
	})

	c.AddPrimitive("fetch", 1, 2, func(fr *Frame, self Value, args []Value) (Value, error) {
		if v, ok := self.Hash().Get(args[0]); ok {
			return v, nil
		}
		switch {
		case fr.BlockGiven():
			return fr.Yield(args[0])
		case len(args) == 2:
			return args[1], nil
		}
		s, err := fr.InspectString(args[0])
		if err != nil {
			return Nil, err
		}
		return Nil, fr.site().Raise(fr.vm.KeyErrorClass, "key not found: %s", s)
	})

	hasKey := func(_ *Frame, self Value, key Value) (Value, error) {
		return FromBool(self.Hash().Has(key)), nil
	}
	c.AddMethod1("key?", hasKey)
	c.AddMethod1("has_key?", hasKey)
	c.AddMethod1("include?", hasKey)
	c.AddMethod1("member?", hasKey)

	c.AddMethod1("delete", func(fr *Frame, self Value, key Value) (Value, error) {
		if v, ok := self.Hash().Delete(key); ok {
			return v, nil
		}
		if fr.BlockGiven() {
			return fr.Yield(key)
		}
		return Nil, nil
	})

	size := func(_ *Frame, self Value) (Value, error) {
		return FromInt(int64(self.Hash().Len())), nil
	}
	c.AddMethod0("size", size)
	c.AddMethod0("length", size)
	c.AddMethod0("count", size)

	c.AddMethod0("empty?", func(_ *Frame, self Value) (Value, error) {
		return FromBool(self.Hash().Len() == 0), nil
	})

	c.AddMethod0("keys", func(_ *Frame, self Value) (Value, error) {
		return NewArrayValue(self.Hash().Keys()...), nil
	})

	c.AddMethod0("values", func(_ *Frame, self Value) (Value, error) {
		return NewArrayValue(self.Hash().Values()...), nil
	})

	c.AddMethod0("to_a", func(_ *Frame, self Value) (Value, error) {
		out := NewArray()
		self.Hash().Each(func(k, v Value) bool {
			out.Push(NewArrayValue(k, v))
			return true
		})
		return ArrayValue(out), nil
	})

	c.AddMethod0("to_h", func(_ *Frame, self Value) (Value, error) {
		return self, nil
	})

	c.AddMethod1("merge", func(fr *Frame, self Value, arg Value) (Value, error) {
		if !arg.IsHash() {
			return Nil, fr.Raise(fr.vm.TypeErrorClass, "no implicit conversion of %s into Hash", coerceName(fr.vm, arg))
		}
		out := self.Hash().Clone()
		arg.Hash().Each(func(k, v Value) bool {
			out.Set(k, v)
			return true
		})
		return HashValue(out), nil
	})

	// ---------------------------------------------------------------------------
	// Iteration
	// ---------------------------------------------------------------------------

	// Iteration walks a snapshot of the entries, yielding each pair as one
	// [key, value] array that |k, v| blocks spread over their parameters.
	each := func(fr *Frame, self Value) (Value, error) {
		for _, pair := range pairs(self.Hash()) {
			if _, err := fr.Yield(pair); err != nil {
				return Nil, err
			}
		}
		return self, nil
	}
	c.AddMethod0("each", each)
	c.AddMethod0("each_pair", each)

	c.AddMethod0("each_key", func(fr *Frame, self Value) (Value, error) {
		for _, k := range self.Hash().Keys() {
			if _, err := fr.Yield(k); err != nil {
				return Nil, err
			}
		}
		return self, nil
	})

	c.AddMethod0("map", func(fr *Frame, self Value) (Value, error) {
		out := NewArray()
		for _, pair := range pairs(self.Hash()) {
			v, err := fr.Yield(pair)
			if err != nil {
				return Nil, err
			}
			out.Push(v)
		}
		return ArrayValue(out), nil
	})

	c.AddMethod0("select", func(fr *Frame, self Value) (Value, error) {
		out := NewHash()
		for _, pair := range pairs(self.Hash()) {
			v, err := fr.Yield(pair)
			if err != nil {
				return Nil, err
			}
			if v.IsTruthy() {
				kv := pair.Array().elems
				out.Set(kv[0], kv[1])
			}
		}
		return HashValue(out), nil
	})

	// ---------------------------------------------------------------------------
	// Comparison and printing
	// ---------------------------------------------------------------------------

	c.AddMethod1("==", func(_ *Frame, self Value, arg Value) (Value, error) {
		return FromBool(Equal(self, arg)), nil
	})

	inspect := func(fr *Frame, self Value) (Value, error) {
		if self.Hash().Len() == 0 {
			return FromString("{}"), nil
		}
		v, ok, err := fr.vm.recursive(refPair{self.ref, "inspect"}, func() (Value, error) {
			return inspectHash(fr, self.Hash())
		})
		if !ok {
			return FromString("{...}"), nil
		}
		return v, err
	}
	c.AddMethod0("inspect", inspect)
	c.AddMethod0("to_s", inspect)
}

// pairs snapshots h as [key, value] arrays.
func pairs(h *Hash) []Value {
	out := make([]Value, 0, h.Len())
	h.Each(func(k, v Value) bool {
		out = append(out, NewArrayValue(k, v))
		return true
	})
	return out
}

func inspectHash(fr *Frame, h *Hash) (Value, error) {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, pair := range pairs(h) {
		kv := pair.Array().elems
		if i > 0 {
			sb.WriteString(", ")
		}
		if kv[0].IsSymbol() && isPlainSymbol(kv[0].Symbol().Name()) {
			sb.WriteString(kv[0].Symbol().Name())
			sb.WriteString(": ")
		} else {
			ks, err := fr.InspectString(kv[0])
			if err != nil {
				return Nil, err
			}
			sb.WriteString(ks)
			sb.WriteString(" => ")
		}
		vs, err := fr.InspectString(kv[1])
		if err != nil {
			return Nil, err
		}
		sb.WriteString(vs)
	}
	sb.WriteByte('}')
	return FromString(sb.String()), nil
}
