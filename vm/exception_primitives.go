package vm

import "strings"

// ---------------------------------------------------------------------------
// Exception Primitives
// ---------------------------------------------------------------------------

func (vm *VM) registerExceptionPrimitives() {
	c := vm.ExceptionClass

	c.AddPrimitive("initialize", 0, 1, func(fr *Frame, self Value, args []Value) (Value, error) {
		exc := exceptionData(self)
		if len(args) == 0 || args[0].IsNil() {
			exc.message = fr.vm.RealClassOf(self).FullName()
			return Nil, nil
		}
		msg, err := fr.ToS(args[0])
		if err != nil {
			return Nil, err
		}
		exc.message = msg
		return Nil, nil
	})

	c.AddMethod0("to_s", func(fr *Frame, self Value) (Value, error) {
		exc := exceptionData(self)
		if exc.message == "" {
			return FromString(fr.vm.RealClassOf(self).FullName()), nil
		}
		return FromString(exc.message), nil
	})

	c.AddMethod0("message", func(fr *Frame, self Value) (Value, error) {
		return fr.Send(self, "to_s")
	})

	c.AddMethod0("inspect", func(fr *Frame, self Value) (Value, error) {
		msg, err := fr.ToS(self)
		if err != nil {
			return Nil, err
		}
		name := fr.vm.RealClassOf(self).FullName()
		if msg == "" {
			return FromString(name), nil
		}
		return FromString("#<" + name + ": " + msg + ">"), nil
	})

	c.AddMethod0("backtrace", func(_ *Frame, self Value) (Value, error) {
		bt := exceptionData(self).backtrace
		if bt == nil {
			return Nil, nil
		}
		out := NewArray()
		for _, line := range bt {
			out.Push(FromString(line))
		}
		return ArrayValue(out), nil
	})

	c.AddPrimitive("full_message", 0, 1, func(fr *Frame, self Value, _ []Value) (Value, error) {
		msg, err := fr.ToS(self)
		if err != nil {
			return Nil, err
		}
		exc := exceptionData(self)
		var sb strings.Builder
		if len(exc.backtrace) > 0 {
			sb.WriteString(exc.backtrace[0])
			sb.WriteString(": ")
		}
		sb.WriteString(msg)
		sb.WriteString(" (")
		sb.WriteString(fr.vm.RealClassOf(self).FullName())
		sb.WriteString(")")
		for _, line := range exc.backtrace[min(1, len(exc.backtrace)):] {
			sb.WriteString("\n\tfrom ")
			sb.WriteString(line)
		}
		return FromString(sb.String()), nil
	})

	c.AddMethod0("cause", func(_ *Frame, self Value) (Value, error) {
		return exceptionData(self).causeExc, nil
	})

	c.AddMethod1("==", func(fr *Frame, self Value, arg Value) (Value, error) {
		if Identical(self, arg) {
			return True, nil
		}
		other := exceptionData(arg)
		if other == nil || fr.vm.RealClassOf(self) != fr.vm.RealClassOf(arg) {
			return False, nil
		}
		return FromBool(exceptionData(self).message == other.message), nil
	})

	c.AddPrimitive("exception", 0, 1, func(fr *Frame, self Value, args []Value) (Value, error) {
		if len(args) == 0 {
			return self, nil
		}
		dup := dupValue(self)
		msg, err := fr.ToS(args[0])
		if err != nil {
			return Nil, err
		}
		exceptionData(dup).message = msg
		return dup, nil
	})

	c.AddClassPrimitive("exception", 0, -1, func(fr *Frame, self Value, _ []Value) (Value, error) {
		return fr.SendWith(self, "new", fr.args)
	})
}
