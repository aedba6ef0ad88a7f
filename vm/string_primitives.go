package vm

import (
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// String Primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerStringPrimitives() {
	c := vm.StringClass

	c.AddClassPrimitive("new", 0, 1, func(fr *Frame, _ Value, args []Value) (Value, error) {
		if len(args) == 0 {
			return FromString(""), nil
		}
		s, err := fr.stringArg(args[0])
		if err != nil {
			return Nil, err
		}
		return FromString(s), nil
	})

	c.AddMethod1("+", func(fr *Frame, self Value, arg Value) (Value, error) {
		s, err := fr.stringArg(arg)
		if err != nil {
			return Nil, err
		}
		return FromString(self.Str().s + s), nil
	})

	concat := func(fr *Frame, self Value, arg Value) (Value, error) {
		s, err := fr.stringArg(arg)
		if err != nil {
			return Nil, err
		}
		self.Str().Append(s)
		return self, nil
	}
	c.AddMethod1("<<", concat)
	c.AddMethod1("concat", concat)

	c.AddMethod1("*", func(fr *Frame, self Value, arg Value) (Value, error) {
		if !arg.IsInt() {
			return Nil, fr.Raise(fr.vm.TypeErrorClass, "no implicit conversion of %s into Integer", coerceName(fr.vm, arg))
		}
		if arg.Int() < 0 {
			return Nil, fr.Raise(fr.vm.ArgumentErrorClass, "negative argument")
		}
		return FromString(strings.Repeat(self.Str().s, int(arg.Int()))), nil
	})

	eq := func(_ *Frame, self Value, arg Value) (Value, error) {
		return FromBool(arg.IsString() && self.Str().s == arg.Str().s), nil
	}
	c.AddMethod1("==", eq)
	c.AddMethod1("eql?", eq)

	c.AddMethod1("<=>", func(_ *Frame, self Value, arg Value) (Value, error) {
		if !arg.IsString() {
			return Nil, nil
		}
		return FromInt(int64(strings.Compare(self.Str().s, arg.Str().s))), nil
	})

	size := func(_ *Frame, self Value) (Value, error) {
		return FromInt(int64(len([]rune(self.Str().s)))), nil
	}
	c.AddMethod0("size", size)
	c.AddMethod0("length", size)

	c.AddMethod0("empty?", func(_ *Frame, self Value) (Value, error) {
		return FromBool(self.Str().s == ""), nil
	})

	toS := func(_ *Frame, self Value) (Value, error) {
		return self, nil
	}
	c.AddMethod0("to_s", toS)
	c.AddMethod0("to_str", toS)

	c.AddMethod0("inspect", func(_ *Frame, self Value) (Value, error) {
		return FromString(strconv.Quote(self.Str().s)), nil
	})

	c.AddMethod0("to_sym", func(_ *Frame, self Value) (Value, error) {
		return Sym(self.Str().s), nil
	})

	c.AddMethod0("to_i", func(_ *Frame, self Value) (Value, error) {
		s := strings.TrimSpace(self.Str().s)
		end := 0
		for end < len(s) && (s[end] >= '0' && s[end] <= '9' || end == 0 && (s[end] == '-' || s[end] == '+')) {
			end++
		}
		n, _ := strconv.ParseInt(s[:end], 10, 64)
		return FromInt(n), nil
	})

	c.AddMethod0("upcase", func(_ *Frame, self Value) (Value, error) {
		return FromString(strings.ToUpper(self.Str().s)), nil
	})

	c.AddMethod0("downcase", func(_ *Frame, self Value) (Value, error) {
		return FromString(strings.ToLower(self.Str().s)), nil
	})

	c.AddMethod0("strip", func(_ *Frame, self Value) (Value, error) {
		return FromString(strings.TrimSpace(self.Str().s)), nil
	})

	c.AddMethod0("reverse", func(_ *Frame, self Value) (Value, error) {
		r := []rune(self.Str().s)
		for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
			r[i], r[j] = r[j], r[i]
		}
		return FromString(string(r)), nil
	})

	c.AddMethod0("chars", func(_ *Frame, self Value) (Value, error) {
		out := NewArray()
		for _, r := range self.Str().s {
			out.Push(FromString(string(r)))
		}
		return ArrayValue(out), nil
	})

	c.AddMethod1("include?", func(fr *Frame, self Value, arg Value) (Value, error) {
		s, err := fr.stringArg(arg)
		if err != nil {
			return Nil, err
		}
		return FromBool(strings.Contains(self.Str().s, s)), nil
	})

	c.AddMethod1("start_with?", func(fr *Frame, self Value, arg Value) (Value, error) {
		s, err := fr.stringArg(arg)
		if err != nil {
			return Nil, err
		}
		return FromBool(strings.HasPrefix(self.Str().s, s)), nil
	})

	c.AddMethod1("end_with?", func(fr *Frame, self Value, arg Value) (Value, error) {
		s, err := fr.stringArg(arg)
		if err != nil {
			return Nil, err
		}
		return FromBool(strings.HasSuffix(self.Str().s, s)), nil
	})

	c.AddPrimitive("split", 0, 1, func(fr *Frame, self Value, args []Value) (Value, error) {
		var parts []string
		if len(args) == 0 || args[0].IsNil() {
			parts = strings.Fields(self.Str().s)
		} else {
			sep, err := fr.stringArg(args[0])
			if err != nil {
				return Nil, err
			}
			if sep == " " {
				parts = strings.Fields(self.Str().s)
			} else {
				parts = strings.Split(self.Str().s, sep)
				for len(parts) > 0 && parts[len(parts)-1] == "" {
					parts = parts[:len(parts)-1]
				}
			}
		}
		out := NewArray()
		for _, p := range parts {
			out.Push(FromString(p))
		}
		return ArrayValue(out), nil
	})
}

// stringArg requires a String argument, as implicit conversion does.
func (fr *Frame) stringArg(v Value) (string, error) {
	if !v.IsString() {
		return "", fr.Raise(fr.vm.TypeErrorClass, "no implicit conversion of %s into String", coerceName(fr.vm, v))
	}
	return v.Str().s, nil
}
