package vm

import "testing"

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// captureParams defines Object#probe with params and returns a function
// that calls it with args and renders the bound parameters as an inspected
// array, in declaration order.
func captureParams(t *testing.T, vm *VM, params Params) func(args Args) (string, error) {
	t.Helper()
	names := params.Names()
	vm.ObjectClass.Define("probe", params, func(fr *Frame) (Value, error) {
		out := NewArray()
		for _, n := range names {
			out.Push(fr.Get(n))
		}
		return ArrayValue(out), nil
	})
	return func(args Args) (string, error) {
		v, err := vm.FuncallWith(vm.Main, "probe", args)
		if err != nil {
			return "", err
		}
		return Inspect(v), nil
	}
}

func intDefault(n int64) DefaultFunc {
	return func(fr *Frame) (Value, error) { return FromInt(n), nil }
}

func ints(ns ...int64) []Value {
	out := make([]Value, len(ns))
	for i, n := range ns {
		out[i] = FromInt(n)
	}
	return out
}

// ---------------------------------------------------------------------------
// Positional binding
// ---------------------------------------------------------------------------

func TestBindOptionalAndRest(t *testing.T) {
	vm := NewVM()
	probe := captureParams(t, vm, Params{
		Required: []string{"a"},
		Optional: []OptParam{{Name: "b", Default: intDefault(10)}, {Name: "c", Default: intDefault(20)}},
		Rest:     "rest",
		Post:     []string{"z"},
	})

	tests := []struct {
		args []Value
		want string
	}{
		{ints(1, 2), "[1, 10, 20, [], 2]"},
		{ints(1, 2, 3), "[1, 2, 20, [], 3]"},
		{ints(1, 2, 3, 4), "[1, 2, 3, [], 4]"},
		{ints(1, 2, 3, 4, 5, 6), "[1, 2, 3, [4, 5], 6]"},
	}
	for _, tt := range tests {
		got, err := probe(Positional(tt.args...))
		if err != nil {
			t.Fatalf("probe(%v): %s", tt.args, FormatError(err))
		}
		if got != tt.want {
			t.Errorf("probe(%v) = %s, want %s", tt.args, got, tt.want)
		}
	}

	_, err := probe(Positional(FromInt(1)))
	exc, _ := AsException(err)
	if raisedClass(err) != "ArgumentError" || ExceptionMessage(exc) != "wrong number of arguments (given 1, expected 2+)" {
		t.Errorf("too few args: %v", err)
	}
}

func TestBindStrictCount(t *testing.T) {
	vm := NewVM()
	probe := captureParams(t, vm, Params{Required: []string{"a", "b"}})
	_, err := probe(Positional(ints(1, 2, 3)...))
	exc, _ := AsException(err)
	if got := ExceptionMessage(exc); got != "wrong number of arguments (given 3, expected 2)" {
		t.Errorf("message = %q", got)
	}
}

func TestDefaultSeesEarlierParams(t *testing.T) {
	vm := NewVM()
	probe := captureParams(t, vm, Params{
		Required: []string{"a"},
		Optional: []OptParam{{Name: "b", Default: func(fr *Frame) (Value, error) {
			return FromInt(fr.Get("a").Int() * 2), nil
		}}},
	})
	got, err := probe(Positional(FromInt(21)))
	if err != nil || got != "[21, 42]" {
		t.Errorf("got %s, %v", got, err)
	}
}

func TestBindSplatActuals(t *testing.T) {
	vm := NewVM()
	probe := captureParams(t, vm, Params{Required: []string{"a"}, Rest: "rest"})
	args := Positional(FromInt(1)).WithSplat(NewArrayValue(ints(2, 3)...))
	got, err := probe(args)
	if err != nil || got != "[1, [2, 3]]" {
		t.Errorf("got %s, %v", got, err)
	}

	// A non-array splat is a single actual.
	got, err = probe(Positional().WithSplat(FromInt(7)))
	if err != nil || got != "[7, []]" {
		t.Errorf("got %s, %v", got, err)
	}
}

func TestRestIsFreshCopyOfSplat(t *testing.T) {
	vm := NewVM()
	vm.ObjectClass.Define("gather", Params{Rest: "rest"}, func(fr *Frame) (Value, error) {
		return fr.Get("rest"), nil
	})
	src := NewArray(ints(1, 2)...)
	v := mustRun(t, vm, func(fr *Frame) (Value, error) {
		return fr.CallWith("gather", Positional().WithSplat(ArrayValue(src)))
	})
	if !v.IsArray() || v.Array() == src {
		t.Fatalf("rest should be a new array, got %v", v)
	}
	v.Array().Push(FromInt(3))
	if src.Len() != 2 {
		t.Errorf("caller's array changed to %v", ArrayValue(src))
	}
}

func TestDefaultsAreFreshPerCall(t *testing.T) {
	vm := NewVM()
	vm.ObjectClass.Define("state", Params{
		Optional: []OptParam{{Name: "acc", Default: func(fr *Frame) (Value, error) {
			return NewArrayValue(), nil
		}}},
	}, func(fr *Frame) (Value, error) {
		return fr.Get("acc"), nil
	})
	first := mustRun(t, vm, func(fr *Frame) (Value, error) { return fr.Call("state") })
	second := mustRun(t, vm, func(fr *Frame) (Value, error) { return fr.Call("state") })
	if !first.IsArray() || !second.IsArray() {
		t.Fatalf("got %v and %v", first, second)
	}
	if Identical(first, second) || first.ObjectID() == second.ObjectID() {
		t.Errorf("two calls shared one default array (id %d)", first.ObjectID())
	}
}

// ---------------------------------------------------------------------------
// Keyword binding
// ---------------------------------------------------------------------------

func TestBindKeywords(t *testing.T) {
	vm := NewVM()
	probe := captureParams(t, vm, Params{
		RequiredKw: []string{"name"},
		OptionalKw: []OptParam{{Name: "count", Default: intDefault(1)}},
		KwRest:     "opts",
	})

	got, err := probe(Args{}.Kw("name", FromString("x")))
	if err != nil || got != `["x", 1, {}]` {
		t.Errorf("got %s, %v", got, err)
	}

	got, err = probe(Args{}.Kw("name", FromString("x")).Kw("count", FromInt(3)).Kw("extra", True))
	if err != nil || got != `["x", 3, {extra: true}]` {
		t.Errorf("got %s, %v", got, err)
	}

	_, err = probe(Args{})
	exc, _ := AsException(err)
	if got := ExceptionMessage(exc); got != "missing keyword: :name" {
		t.Errorf("message = %q", got)
	}
}

func TestBindMixedParams(t *testing.T) {
	vm := NewVM()
	probe := captureParams(t, vm, Params{
		Required:   []string{"x", "y"},
		Rest:       "rest",
		OptionalKw: []OptParam{{Name: "k", Default: intDefault(-1)}},
		KwRest:     "kw",
	})

	tests := []struct {
		args Args
		want string
	}{
		{Positional(ints(1, 2, 3, 4)...), "[1, 2, [3, 4], -1, {}]"},
		{Positional(ints(1, 2)...).Kw("k", FromInt(9)).Kw("z", FromInt(5)), "[1, 2, [], 9, {z: 5}]"},
	}
	for _, tt := range tests {
		got, err := probe(tt.args)
		if err != nil {
			t.Fatalf("probe: %s", FormatError(err))
		}
		if got != tt.want {
			t.Errorf("got %s, want %s", got, tt.want)
		}
	}
}

func TestUnknownKeyword(t *testing.T) {
	vm := NewVM()
	probe := captureParams(t, vm, Params{OptionalKw: []OptParam{{Name: "a"}}})
	_, err := probe(Args{}.Kw("b", FromInt(1)).Kw("c", FromInt(2)))
	exc, _ := AsException(err)
	if got := ExceptionMessage(exc); got != "unknown keywords: :b, :c" {
		t.Errorf("message = %q", got)
	}
}

func TestKeywordsWithoutKeywordParamsBecomeHash(t *testing.T) {
	vm := NewVM()
	probe := captureParams(t, vm, Params{Rest: "args"})
	got, err := probe(Positional(FromInt(1)).Kw("a", FromInt(4)))
	if err != nil || got != "[[1, {a: 4}]]" {
		t.Errorf("got %s, %v", got, err)
	}
}

func TestKwSplatActual(t *testing.T) {
	vm := NewVM()
	probe := captureParams(t, vm, Params{KwRest: "kw"})
	got, err := probe(Args{}.WithKwSplat(NewHashValue(Sym("foo"), FromInt(60))))
	if err != nil || got != "[{foo: 60}]" {
		t.Errorf("got %s, %v", got, err)
	}
	_, err = probe(Args{}.WithKwSplat(FromInt(1)))
	if raisedClass(err) != "TypeError" {
		t.Errorf("non-hash **splat raised %q", raisedClass(err))
	}
}

// ---------------------------------------------------------------------------
// Block parameters
// ---------------------------------------------------------------------------

func TestBlockParamReifiesBlock(t *testing.T) {
	vm := NewVM()
	vm.ObjectClass.Define("grab", Params{Block: "blk"}, func(fr *Frame) (Value, error) {
		return fr.Get("blk"), nil
	})
	v := mustRun(t, vm, func(fr *Frame) (Value, error) {
		return fr.CallWith("grab", Args{Block: fr.Block(Params{}, constBody(Nil))})
	})
	if !v.IsProc() || v.Proc().Kind() != ProcProc {
		t.Errorf("&blk should bind a proc object, got %v", v)
	}

	v = mustRun(t, vm, func(fr *Frame) (Value, error) {
		return fr.Call("grab")
	})
	if !v.IsNil() {
		t.Errorf("&blk without a block should be nil, got %v", v)
	}
}

func TestLaxBinding(t *testing.T) {
	vm := NewVM()
	var got []string
	vm.ObjectClass.Define("each_pair_like", Params{}, func(fr *Frame) (Value, error) {
		if _, err := fr.Yield(NewArrayValue(FromInt(1), FromInt(2))); err != nil {
			return Nil, err
		}
		if _, err := fr.Yield(FromInt(5)); err != nil {
			return Nil, err
		}
		return fr.Yield(ints(7, 8, 9)...)
	})
	mustRun(t, vm, func(fr *Frame) (Value, error) {
		blk := fr.Block(Params{Required: []string{"a", "b"}}, func(bf *Frame) (Value, error) {
			got = append(got, Inspect(NewArrayValue(bf.Get("a"), bf.Get("b"))))
			return Nil, nil
		})
		return fr.CallWith("each_pair_like", Args{Block: blk})
	})
	want := []string{"[1, 2]", "[5, nil]", "[7, 8]"}
	if !equalStrings(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestLambdaBindingIsStrict(t *testing.T) {
	vm := NewVM()
	expectRaise(t, vm, "ArgumentError", "wrong number of arguments (given 1, expected 2)", func(fr *Frame) (Value, error) {
		l := fr.Lambda(Params{Required: []string{"a", "b"}}, constBody(Nil))
		return fr.CallProc(l.Proc(), FromInt(1))
	})
}

func TestParamsArity(t *testing.T) {
	tests := []struct {
		p    Params
		want int
	}{
		{Params{}, 0},
		{Params{Required: []string{"a", "b"}}, 2},
		{Params{Required: []string{"a"}, Optional: []OptParam{{Name: "b"}}}, -2},
		{Params{Rest: "r"}, -1},
		{Params{Required: []string{"a"}, RequiredKw: []string{"k"}}, 2},
		{Params{OptionalKw: []OptParam{{Name: "k"}}}, -1},
		{Params{Variadic: true}, -1},
	}
	for _, tt := range tests {
		if got := tt.p.Arity(); got != tt.want {
			t.Errorf("Arity(%+v) = %d, want %d", tt.p, got, tt.want)
		}
	}
}
