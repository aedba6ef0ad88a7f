package vm

import "testing"

// ---------------------------------------------------------------------------
// Proc objects
// ---------------------------------------------------------------------------

func TestProcCallBinding(t *testing.T) {
	vm := NewVM()
	pair := func(bf *Frame) (Value, error) {
		return NewArrayValue(bf.Get("a"), bf.Get("b")), nil
	}
	v := mustRun(t, vm, func(fr *Frame) (Value, error) {
		p := fr.ProcNew(Params{Required: []string{"a", "b"}}, pair)
		return fr.Send(p, "call", FromInt(1))
	})
	if Inspect(v) != "[1, nil]" {
		t.Errorf("proc.call(1) = %s, want [1, nil]", Inspect(v))
	}

	v = mustRun(t, vm, func(fr *Frame) (Value, error) {
		p := fr.ProcNew(Params{Required: []string{"a", "b"}}, pair)
		return fr.Send(p, "[]", FromInt(1), FromInt(2), FromInt(3))
	})
	if Inspect(v) != "[1, 2]" {
		t.Errorf("proc[1, 2, 3] = %s, want [1, 2]", Inspect(v))
	}

	expectRaise(t, vm, "ArgumentError", "wrong number of arguments (given 1, expected 2)", func(fr *Frame) (Value, error) {
		l := fr.Lambda(Params{Required: []string{"a", "b"}}, pair)
		return fr.Send(l, "call", FromInt(1))
	})
}

func TestProcArity(t *testing.T) {
	vm := NewVM()
	opt := []OptParam{{Name: "b", Default: intDefault(1)}}
	tests := []struct {
		name   string
		lambda bool
		params Params
		want   int64
	}{
		{"proc |a, b|", false, Params{Required: []string{"a", "b"}}, 2},
		{"proc |a, b = 1|", false, Params{Required: []string{"a"}, Optional: opt}, 1},
		{"proc |*a|", false, Params{Rest: "a"}, -1},
		{"proc |a, *b|", false, Params{Required: []string{"a"}, Rest: "b"}, -2},
		{"lambda |a, b = 1|", true, Params{Required: []string{"a"}, Optional: opt}, -2},
		{"lambda ||", true, Params{}, 0},
	}
	for _, tt := range tests {
		v := mustRun(t, vm, func(fr *Frame) (Value, error) {
			p := fr.ProcNew(tt.params, constBody(Nil))
			if tt.lambda {
				p = fr.Lambda(tt.params, constBody(Nil))
			}
			return fr.Send(p, "arity")
		})
		if v != FromInt(tt.want) {
			t.Errorf("%s.arity = %v, want %d", tt.name, v, tt.want)
		}
	}
}

func TestProcParametersAndLambdaP(t *testing.T) {
	vm := NewVM()
	var procParams, lambdaParams, isLambda, isProcLambda Value
	mustRun(t, vm, func(fr *Frame) (Value, error) {
		p := fr.ProcNew(Params{
			Required: []string{"a"},
			Optional: []OptParam{{Name: "b"}},
			Rest:     "r",
			Block:    "blk",
		}, constBody(Nil))
		l := fr.Lambda(Params{Required: []string{"a"}, RequiredKw: []string{"k"}}, constBody(Nil))
		procParams, _ = fr.Send(p, "parameters")
		lambdaParams, _ = fr.Send(l, "parameters")
		isLambda, _ = fr.Send(l, "lambda?")
		isProcLambda, _ = fr.Send(p, "lambda?")
		return Nil, nil
	})
	if got := Inspect(procParams); got != "[[:opt, :a], [:opt, :b], [:rest, :r], [:block, :blk]]" {
		t.Errorf("proc parameters = %s", got)
	}
	if got := Inspect(lambdaParams); got != "[[:req, :a], [:keyreq, :k]]" {
		t.Errorf("lambda parameters = %s", got)
	}
	if isLambda != True || isProcLambda != False {
		t.Errorf("lambda? = %v / %v", isLambda, isProcLambda)
	}
}

func TestProcNewNeedsBlock(t *testing.T) {
	vm := NewVM()
	v := mustRun(t, vm, func(fr *Frame) (Value, error) {
		return fr.SendWith(ClassValue(vm.ProcClass), "new", Args{Block: fr.Block(Params{}, constBody(FromInt(1)))})
	})
	if !v.IsProc() || v.Proc().Kind() != ProcProc {
		t.Errorf("Proc.new gave %v", v)
	}
	expectRaise(t, vm, "ArgumentError", "tried to create Proc object without a block", func(fr *Frame) (Value, error) {
		return fr.Send(ClassValue(vm.ProcClass), "new")
	})
}

func TestKernelLambdaAndProc(t *testing.T) {
	vm := NewVM()
	var l, p Value
	mustRun(t, vm, func(fr *Frame) (Value, error) {
		l, _ = fr.CallWith("lambda", Args{Block: fr.Block(Params{}, constBody(Nil))})
		p, _ = fr.CallWith("proc", Args{Block: fr.Block(Params{}, constBody(Nil))})
		return Nil, nil
	})
	if l.Proc().Kind() != ProcLambda {
		t.Errorf("lambda {} kind = %v", l.Proc().Kind())
	}
	if p.Proc().Kind() != ProcProc {
		t.Errorf("proc {} kind = %v", p.Proc().Kind())
	}
}

func TestSymbolToProc(t *testing.T) {
	vm := NewVM()
	v := mustRun(t, vm, func(fr *Frame) (Value, error) {
		blk, err := fr.Send(Sym("to_s"), "to_proc")
		if err != nil {
			return Nil, err
		}
		return fr.SendWith(NewArrayValue(ints(1, 2, 3)...), "map", Args{Block: blk})
	})
	if got := Inspect(v); got != `["1", "2", "3"]` {
		t.Errorf("map(&:to_s) = %s", got)
	}
}

// ---------------------------------------------------------------------------
// Blocks as method bodies
// ---------------------------------------------------------------------------

func TestDefineMethodFromBlock(t *testing.T) {
	vm := NewVM()
	c := vm.DefineClass("Counter", nil)
	mustRun(t, vm, func(fr *Frame) (Value, error) {
		fr.Set("step", FromInt(5))
		return fr.SendWith(ClassValue(c), "define_method", Args{
			Positional: []Value{Sym("bump")},
			Block: fr.Block(Params{Required: []string{"n"}}, func(bf *Frame) (Value, error) {
				if vm.RealClassOf(bf.Self()) != c {
					return Nil, bf.Raise(vm.RuntimeErrorClass, "self is %s", Inspect(bf.Self()))
				}
				return Nil, bf.Return(FromInt(bf.Get("n").Int() + bf.Get("step").Int()))
			}),
		})
	})

	obj := ObjectValue(NewObject(c))
	v, err := vm.Funcall(obj, "bump", FromInt(1))
	if err != nil {
		t.Fatal(FormatError(err))
	}
	if v != FromInt(6) {
		t.Errorf("bump(1) = %v, want 6", v)
	}

	_, err = vm.Funcall(obj, "bump")
	exc, _ := AsException(err)
	if ExceptionMessage(exc) != "wrong number of arguments (given 0, expected 1)" {
		t.Errorf("define_method bodies bind strictly: %v", err)
	}
	m, _ := vm.FindMethod(c, "bump")
	if m.Label() != "Counter#bump" {
		t.Errorf("Label = %q", m.Label())
	}
}

func TestInstanceEvalRebindsSelf(t *testing.T) {
	vm := NewVM()
	c := vm.DefineClass("Vault", nil)
	a, b := NewObject(c), NewObject(c)
	a.SetIVar("@secret", FromString("gold"))

	v := mustRun(t, vm, func(fr *Frame) (Value, error) {
		return fr.SendWith(ObjectValue(a), "instance_eval", Args{Block: fr.Block(Params{}, func(bf *Frame) (Value, error) {
			bf.Def("only_me", Params{}, constBody(True))
			return bf.IVar("@secret"), nil
		})})
	})
	if v.Str().String() != "gold" {
		t.Errorf("instance_eval = %v", v)
	}
	if !vm.RespondTo(ObjectValue(a), "only_me") || vm.RespondTo(ObjectValue(b), "only_me") {
		t.Error("def inside instance_eval should define a singleton method")
	}
}

func TestClassEvalDefinesInstanceMethods(t *testing.T) {
	vm := NewVM()
	c := vm.DefineClass("Open", nil)
	mustRun(t, vm, func(fr *Frame) (Value, error) {
		return fr.SendWith(ClassValue(c), "class_eval", Args{Block: fr.Block(Params{}, func(bf *Frame) (Value, error) {
			bf.Def("added", Params{}, constBody(FromInt(7)))
			return Nil, nil
		})})
	})
	v, err := vm.Funcall(ObjectValue(NewObject(c)), "added")
	if err != nil || v != FromInt(7) {
		t.Errorf("added = %v, %v", v, err)
	}
}

func TestClassNewWithBlock(t *testing.T) {
	vm := NewVM()
	base := vm.DefineClass("Base", nil)
	v := mustRun(t, vm, func(fr *Frame) (Value, error) {
		cls, err := fr.SendWith(ClassValue(vm.ClassClass), "new", Args{
			Positional: []Value{ClassValue(base)},
			Block: fr.Block(Params{}, func(bf *Frame) (Value, error) {
				bf.Def("extra", Params{}, constBody(Sym("yes")))
				return Nil, nil
			}),
		})
		if err != nil {
			return Nil, err
		}
		if cls.Class().FullName() != "#<Class>" {
			return Nil, fr.Raise(vm.RuntimeErrorClass, "class should be anonymous, got %s", cls.Class().FullName())
		}
		fr.SetConst("Made", cls)
		return cls, nil
	})
	cls := v.Class()
	if cls.FullName() != "Made" || cls.Superclass != base {
		t.Errorf("class = %s < %s", cls.FullName(), cls.Superclass)
	}
	if r, _ := vm.Funcall(ObjectValue(NewObject(cls)), "extra"); r != Sym("yes") {
		t.Errorf("extra = %v", r)
	}

	expectRaise(t, vm, "TypeError", "", func(fr *Frame) (Value, error) {
		return fr.Send(ClassValue(vm.ClassClass), "new", ClassValue(vm.KernelModule))
	})
}
