package vm

import (
	"context"
	"errors"
	"testing"
)

// eachBlock sends each to recv with a one-parameter block running fn.
func eachBlock(fr *Frame, recv Value, fn func(bf *Frame, x Value) (Value, error)) (Value, error) {
	blk := fr.Block(Params{Required: []string{"x"}}, func(bf *Frame) (Value, error) {
		return fn(bf, bf.Get("x"))
	})
	return fr.SendWith(recv, "each", Args{Block: blk})
}

// ---------------------------------------------------------------------------
// Non-local return
// ---------------------------------------------------------------------------

func TestReturnFromBlockEndsDefiningMethod(t *testing.T) {
	vm := NewVM()
	iterations := 0
	vm.ObjectClass.Define("outer", Params{}, func(fr *Frame) (Value, error) {
		arr := NewArrayValue(ints(1, 2, 3)...)
		if _, err := eachBlock(fr, arr, func(bf *Frame, x Value) (Value, error) {
			iterations++
			if x == FromInt(2) {
				return Nil, bf.Return(FromInt(5471))
			}
			return Nil, nil
		}); err != nil {
			return Nil, err
		}
		return FromInt(0), nil
	})

	v := mustRun(t, vm, func(fr *Frame) (Value, error) {
		return fr.Call("outer")
	})
	if v != FromInt(5471) {
		t.Errorf("got %v, want 5471", v)
	}
	if iterations != 2 {
		t.Errorf("iterations = %d, want 2", iterations)
	}
	if depth := len(vm.Interpreter().Frames()); depth != 0 {
		t.Errorf("%d frames left on the stack", depth)
	}
}

func TestReturnThroughNestedIterators(t *testing.T) {
	vm := NewVM()
	vm.ObjectClass.Define("outer", Params{}, func(fr *Frame) (Value, error) {
		_, err := eachBlock(fr, NewArrayValue(ints(1, 2)...), func(bf *Frame, x Value) (Value, error) {
			return bf.SendWith(FromInt(3), "times", Args{Block: bf.Block(Params{Required: []string{"i"}}, func(inner *Frame) (Value, error) {
				if inner.Get("i") == FromInt(1) {
					return Nil, inner.Return(FromInt(5472))
				}
				return Nil, nil
			})})
		})
		if err != nil {
			return Nil, err
		}
		return Nil, nil
	})
	v := mustRun(t, vm, func(fr *Frame) (Value, error) {
		return fr.Call("outer")
	})
	if v != FromInt(5472) {
		t.Errorf("got %v, want 5472", v)
	}
}

func TestReturnFromOrphanProcRaises(t *testing.T) {
	vm := NewVM()
	vm.ObjectClass.Define("make", Params{}, func(fr *Frame) (Value, error) {
		return fr.ProcNew(Params{}, func(bf *Frame) (Value, error) {
			return Nil, bf.Return(FromInt(1))
		}), nil
	})
	expectRaise(t, vm, "LocalJumpError", "unexpected return", func(fr *Frame) (Value, error) {
		p, err := fr.Call("make")
		if err != nil {
			return Nil, err
		}
		return fr.CallProc(p.Proc())
	})
}

func TestLambdaReturnIsLocal(t *testing.T) {
	vm := NewVM()
	vm.ObjectClass.Define("caller_of_lambda", Params{}, func(fr *Frame) (Value, error) {
		l := fr.Lambda(Params{}, func(lf *Frame) (Value, error) {
			return Nil, lf.Return(FromInt(1))
		})
		v, err := fr.CallProc(l.Proc())
		if err != nil {
			return Nil, err
		}
		return FromInt(v.Int() + 1), nil
	})
	v := mustRun(t, vm, func(fr *Frame) (Value, error) {
		return fr.Call("caller_of_lambda")
	})
	if v != FromInt(2) {
		t.Errorf("got %v, want 2", v)
	}
}

// ---------------------------------------------------------------------------
// break and next
// ---------------------------------------------------------------------------

func TestBreakEndsReceivingCall(t *testing.T) {
	vm := NewVM()
	after := false
	v := mustRun(t, vm, func(fr *Frame) (Value, error) {
		r, err := eachBlock(fr, NewArrayValue(ints(1, 2, 3)...), func(bf *Frame, x Value) (Value, error) {
			if x == FromInt(2) {
				return Nil, bf.Break(FromInt(20))
			}
			return Nil, nil
		})
		if err != nil {
			return Nil, err
		}
		after = true
		return r, nil
	})
	if v != FromInt(20) {
		t.Errorf("got %v, want 20", v)
	}
	if !after {
		t.Error("code after the breaking call did not run")
	}
}

func TestBreakFromProcWithoutCallRaises(t *testing.T) {
	vm := NewVM()
	expectRaise(t, vm, "LocalJumpError", "break from proc-closure", func(fr *Frame) (Value, error) {
		p := fr.ProcNew(Params{}, func(bf *Frame) (Value, error) {
			return Nil, bf.Break(Nil)
		})
		return fr.CallProc(p.Proc())
	})
}

func TestNextEndsIteration(t *testing.T) {
	vm := NewVM()
	v := mustRun(t, vm, func(fr *Frame) (Value, error) {
		blk := fr.Block(Params{Required: []string{"x"}}, func(bf *Frame) (Value, error) {
			if bf.Get("x") == FromInt(2) {
				return Nil, bf.Next(FromInt(0))
			}
			return bf.Get("x"), nil
		})
		return fr.SendWith(NewArrayValue(ints(1, 2, 3)...), "map", Args{Block: blk})
	})
	if got := Inspect(v); got != "[1, 0, 3]" {
		t.Errorf("got %s, want [1, 0, 3]", got)
	}
}

// ---------------------------------------------------------------------------
// Closures
// ---------------------------------------------------------------------------

func TestBlockSharesEnclosingLocals(t *testing.T) {
	vm := NewVM()
	v := mustRun(t, vm, func(fr *Frame) (Value, error) {
		fr.Set("sum", FromInt(0))
		if _, err := eachBlock(fr, NewArrayValue(ints(1, 2, 3, 4)...), func(bf *Frame, x Value) (Value, error) {
			bf.Set("sum", FromInt(bf.Get("sum").Int()+x.Int()))
			bf.Set("scratch", True)
			return Nil, nil
		}); err != nil {
			return Nil, err
		}
		if !fr.Get("x").IsNil() || !fr.Get("scratch").IsNil() {
			t.Error("block-local names leaked into the method scope")
		}
		return fr.Get("sum"), nil
	})
	if v != FromInt(10) {
		t.Errorf("sum = %v, want 10", v)
	}
}

func TestClosureOutlivesFrame(t *testing.T) {
	vm := NewVM()
	vm.ObjectClass.Define("make_counter", Params{}, func(fr *Frame) (Value, error) {
		fr.Set("n", FromInt(0))
		return fr.Lambda(Params{}, func(lf *Frame) (Value, error) {
			lf.Set("n", FromInt(lf.Get("n").Int()+1))
			return lf.Get("n"), nil
		}), nil
	})
	v := mustRun(t, vm, func(fr *Frame) (Value, error) {
		c, err := fr.Call("make_counter")
		if err != nil {
			return Nil, err
		}
		var last Value
		for i := 0; i < 3; i++ {
			if last, err = fr.Send(c, "call"); err != nil {
				return Nil, err
			}
		}
		return last, nil
	})
	if v != FromInt(3) {
		t.Errorf("counter = %v, want 3", v)
	}
}

func TestTwoClosuresShareOneEnv(t *testing.T) {
	vm := NewVM()
	mustRun(t, vm, func(fr *Frame) (Value, error) {
		fr.Set("x", FromInt(1))
		set := fr.Lambda(Params{}, func(lf *Frame) (Value, error) {
			lf.Set("x", FromInt(99))
			return Nil, nil
		})
		get := fr.Lambda(Params{}, constBody(Nil))
		if _, err := fr.CallProc(set.Proc()); err != nil {
			return Nil, err
		}
		if got := get.Proc().Env().Get("x"); got != FromInt(99) {
			t.Errorf("sibling closure sees x = %v, want 99", got)
		}
		if fr.Get("x") != FromInt(99) {
			t.Error("defining frame should see the assignment")
		}
		return Nil, nil
	})
}

// ---------------------------------------------------------------------------
// Exceptions
// ---------------------------------------------------------------------------

func TestEnsureRunsOnNonLocalReturn(t *testing.T) {
	vm := NewVM()
	cleaned := false
	vm.ObjectClass.Define("guarded", Params{}, func(fr *Frame) (Value, error) {
		return fr.Ensure(func() (Value, error) {
			return eachBlock(fr, NewArrayValue(ints(1)...), func(bf *Frame, x Value) (Value, error) {
				return Nil, bf.Return(FromInt(7))
			})
		}, func() error {
			cleaned = true
			return nil
		})
	})
	v := mustRun(t, vm, func(fr *Frame) (Value, error) {
		return fr.Call("guarded")
	})
	if v != FromInt(7) || !cleaned {
		t.Errorf("got %v, cleaned %v", v, cleaned)
	}
}

func TestRescueMatchesByClass(t *testing.T) {
	vm := NewVM()
	v := mustRun(t, vm, func(fr *Frame) (Value, error) {
		return fr.Rescue(func() (Value, error) {
			return fr.Call("raise", ClassValue(fr.VM().ArgumentErrorClass), FromString("bad"))
		}, RescueClause{
			Classes: []*Class{fr.VM().TypeErrorClass},
			Handle:  func(exc Value) (Value, error) { return FromString("type"), nil },
		}, RescueClause{
			Handle: func(exc Value) (Value, error) { return FromString(ExceptionMessage(exc)), nil },
		})
	})
	if v.Str().String() != "bad" {
		t.Errorf("got %v, want \"bad\"", v)
	}

	exc := expectRaise(t, vm, "ZeroDivisionError", "divided by 0", func(fr *Frame) (Value, error) {
		return fr.Rescue(func() (Value, error) {
			return fr.Send(FromInt(1), "/", FromInt(0))
		}, RescueClause{Classes: []*Class{fr.VM().NameErrorClass}})
	})
	if bt := ExceptionBacktrace(exc); len(bt) < 2 || bt[0] != "Integer#/" || bt[1] != "<main>" {
		t.Errorf("backtrace = %v", bt)
	}
}

func TestRescueLetsControlSignalsThrough(t *testing.T) {
	vm := NewVM()
	vm.ObjectClass.Define("m", Params{}, func(fr *Frame) (Value, error) {
		return fr.Rescue(func() (Value, error) {
			return Nil, fr.Return(FromInt(3))
		}, RescueClause{Classes: []*Class{fr.VM().ExceptionClass}})
	})
	v := mustRun(t, vm, func(fr *Frame) (Value, error) {
		return fr.Call("m")
	})
	if v != FromInt(3) {
		t.Errorf("got %v, want 3", v)
	}
}

func TestBacktraceLabels(t *testing.T) {
	vm := NewVM()
	c := vm.DefineClass("Worker", nil)
	c.Define("inner", Params{}, func(fr *Frame) (Value, error) {
		return fr.Call("raise", FromString("deep"))
	})
	c.Define("outer", Params{}, func(fr *Frame) (Value, error) {
		return eachBlock(fr, NewArrayValue(ints(1)...), func(bf *Frame, _ Value) (Value, error) {
			return bf.Call("inner")
		})
	})
	exc := expectRaise(t, vm, "RuntimeError", "deep", func(fr *Frame) (Value, error) {
		return fr.Send(ObjectValue(NewObject(c)), "outer")
	})
	want := []string{"Worker#inner", "block in Worker#outer", "Array#each", "Worker#outer", "<main>"}
	if got := ExceptionBacktrace(exc); !equalStrings(got, want) {
		t.Errorf("backtrace = %v, want %v", got, want)
	}
}

func TestHostErrorBecomesRuntimeError(t *testing.T) {
	vm := NewVM()
	cause := errors.New("disk on fire")
	_, err := vm.Run("test", func(fr *Frame) (Value, error) {
		return fr.Rescue(func() (Value, error) {
			return Nil, cause
		}, RescueClause{Classes: []*Class{fr.VM().TypeErrorClass}})
	})
	if raisedClass(err) != "RuntimeError" {
		t.Errorf("raised %q, want RuntimeError", raisedClass(err))
	}
	if !errors.Is(err, cause) {
		t.Error("the host error should stay reachable through errors.Is")
	}
}

// ---------------------------------------------------------------------------
// Limits
// ---------------------------------------------------------------------------

func TestStackDepthLimit(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxDepth = 50
	vm := NewVMWithOptions(opts)
	vm.ObjectClass.Define("down", Params{}, func(fr *Frame) (Value, error) {
		return fr.Call("down")
	})
	expectRaise(t, vm, "SystemStackError", "stack level too deep", func(fr *Frame) (Value, error) {
		return fr.Call("down")
	})
	if n := len(vm.Interpreter().Frames()); n != 0 {
		t.Errorf("%d frames left after unwinding", n)
	}
}

func TestStepLimit(t *testing.T) {
	opts := DefaultOptions()
	opts.StepLimit = 100
	vm := NewVMWithOptions(opts)
	expectRaise(t, vm, "StepLimitExceeded", "instruction limit exceeded", func(fr *Frame) (Value, error) {
		for {
			if _, err := fr.Send(FromInt(1), "+", FromInt(1)); err != nil {
				return Nil, err
			}
		}
	})
}

func TestStepLimitIsPerRun(t *testing.T) {
	opts := DefaultOptions()
	opts.StepLimit = 50
	vm := NewVMWithOptions(opts)
	spin := func(fr *Frame) (Value, error) {
		for i := 0; i < 30; i++ {
			if err := fr.Tick(); err != nil {
				return Nil, err
			}
		}
		return Nil, nil
	}
	for i := 0; i < 5; i++ {
		if _, err := vm.Run("spin", spin); err != nil {
			t.Fatalf("run %d: %s", i, FormatError(err))
		}
	}
	for i := 0; i < 60; i++ {
		if _, err := vm.Funcall(FromInt(1), "+", FromInt(1)); err != nil {
			t.Fatalf("funcall %d: %s", i, FormatError(err))
		}
	}
	if n := vm.Interpreter().Steps(); n >= 30 {
		t.Errorf("Steps = %d after a single funcall", n)
	}
}

func TestRunContextInterrupts(t *testing.T) {
	vm := NewVM()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rescued := false
	_, err := vm.RunContext(ctx, "spin", func(fr *Frame) (Value, error) {
		return fr.Rescue(func() (Value, error) {
			for i := 0; ; i++ {
				if i == 10 {
					cancel()
				}
				if err := fr.Tick(); err != nil {
					return Nil, err
				}
			}
		}, RescueClause{Handle: func(Value) (Value, error) {
			rescued = true
			return Nil, nil
		}})
	})
	exc, ok := AsException(err)
	if !ok || raisedClass(err) != "Interrupt" {
		t.Fatalf("expected Interrupt, got %v", err)
	}
	if got := ExceptionMessage(exc); got != "context canceled" {
		t.Errorf("message = %q", got)
	}
	if rescued {
		t.Error("a bare rescue should not catch Interrupt")
	}

	_, err = vm.RunContext(ctx, "late", constBody(Nil))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("running under a dead context: %v", err)
	}
}
