package vm

import (
	"errors"
	"testing"
)

// ---------------------------------------------------------------------------
// Helpers shared by the package tests
// ---------------------------------------------------------------------------

// mustRun runs body as a top-level program and fails the test on error.
func mustRun(t *testing.T, vm *VM, body Body) Value {
	t.Helper()
	v, err := vm.Run("test", body)
	if err != nil {
		t.Fatalf("run: %s", FormatError(err))
	}
	return v
}

// mustSend sends name to recv from the host and fails the test on error.
func mustSend(t *testing.T, vm *VM, recv Value, name string, args ...Value) Value {
	t.Helper()
	v, err := vm.Funcall(recv, name, args...)
	if err != nil {
		t.Fatalf("%s: %s", name, FormatError(err))
	}
	return v
}

// raisedClass returns the class name of the exception carried by err, or
// "" when err is not a raise.
func raisedClass(err error) string {
	exc, ok := AsException(err)
	if !ok {
		return ""
	}
	return exc.Object().Class().FullName()
}

// expectRaise runs body and checks that it raises className with message.
// An empty message is not checked.
func expectRaise(t *testing.T, vm *VM, className, message string, body Body) Value {
	t.Helper()
	_, err := vm.Run("test", body)
	if err == nil {
		t.Fatalf("expected %s, got no error", className)
	}
	exc, ok := AsException(err)
	if !ok {
		t.Fatalf("expected %s, got %v", className, err)
	}
	if got := raisedClass(err); got != className {
		t.Errorf("raised %s (%s), want %s", got, ExceptionMessage(exc), className)
	}
	if message != "" && ExceptionMessage(exc) != message {
		t.Errorf("message = %q, want %q", ExceptionMessage(exc), message)
	}
	return exc
}

func classNames(cs []*Class) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.FullName()
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ---------------------------------------------------------------------------
// Bootstrap
// ---------------------------------------------------------------------------

func TestNewVMCoreHierarchy(t *testing.T) {
	vm := NewVM()

	if got := classNames(vm.ObjectClass.Ancestors()); !equalStrings(got, []string{"Object", "Kernel", "BasicObject"}) {
		t.Errorf("Object.ancestors = %v", got)
	}
	if vm.ClassClass.Superclass != vm.ModuleClass {
		t.Error("Class should inherit from Module")
	}
	if vm.ModuleClass.Superclass != vm.ObjectClass {
		t.Error("Module should inherit from Object")
	}
	if vm.BasicObjectClass.Superclass != nil {
		t.Error("BasicObject should be the root")
	}
	if vm.KeyErrorClass.Superclass != vm.IndexErrorClass {
		t.Error("KeyError should inherit from IndexError")
	}
	if !vm.InterruptClass.IsSubclassOf(vm.ExceptionClass) || vm.InterruptClass.IsSubclassOf(vm.StandardErrorClass) {
		t.Error("Interrupt should be an Exception but not a StandardError")
	}
}

func TestMetaclassChain(t *testing.T) {
	vm := NewVM()
	foo := vm.DefineClass("Foo", nil)

	want := []string{"Object", "BasicObject", "Class", "Module", "Object", "Kernel", "BasicObject"}
	var got []string
	for _, a := range foo.SingletonClass().Ancestors()[1:] {
		if a.IsSingleton() {
			got = append(got, a.Attached().Class().FullName())
		} else {
			got = append(got, a.FullName())
		}
	}
	if !equalStrings(got, want) {
		t.Errorf("Foo.singleton_class.ancestors[1:] = %v, want %v", got, want)
	}

	mod := vm.DefineModule("Mod")
	if mod.SingletonClass().Superclass != vm.ModuleClass {
		t.Error("a module's metaclass should inherit from Module")
	}
}

func TestDefineClassReturnsExisting(t *testing.T) {
	vm := NewVM()
	a := vm.DefineClass("Widget", nil)
	b := vm.DefineClass("Widget", nil)
	if a != b {
		t.Error("DefineClass should return the existing class")
	}
	if a.Superclass != vm.ObjectClass {
		t.Errorf("superclass = %s, want Object", a.Superclass)
	}
}

func TestConstPath(t *testing.T) {
	vm := NewVM()
	outer := vm.DefineModule("Outer")
	inner := vm.DefineClassUnder(outer, "Inner", nil)

	if got := inner.FullName(); got != "Outer::Inner" {
		t.Errorf("FullName = %q, want Outer::Inner", got)
	}
	if c := vm.ClassNamed("Outer::Inner"); c != inner {
		t.Errorf("ClassNamed = %v, want Outer::Inner", c)
	}
	if _, ok := vm.ConstPath("Outer::Missing"); ok {
		t.Error("ConstPath should fail for a missing constant")
	}
	if c := vm.ClassNamed("Integer"); c != vm.IntegerClass {
		t.Error("ClassNamed(Integer) should find the core class")
	}
}

func TestFuncallFromHost(t *testing.T) {
	vm := NewVM()
	v, err := vm.Funcall(FromInt(40), "+", FromInt(2))
	if err != nil {
		t.Fatalf("Funcall: %v", err)
	}
	if v != FromInt(42) {
		t.Errorf("got %v, want 42", v)
	}

	_, err = vm.Funcall(FromInt(1), "frobnicate")
	if got := raisedClass(err); got != "NoMethodError" {
		t.Errorf("raised %q, want NoMethodError", got)
	}
	var sig *Signal
	if !errors.As(err, &sig) || sig.Kind != SignalRaise {
		t.Errorf("error should be a raise signal, got %T", err)
	}
}

func TestInvokeResolvedMethod(t *testing.T) {
	vm := NewVM()
	c := vm.DefineClass("Greeter", nil)
	c.Define("greet", Params{Required: []string{"name"}}, func(fr *Frame) (Value, error) {
		return FromString("hi " + fr.Get("name").Str().String()), nil
	})
	obj := ObjectValue(NewObject(c))

	m, ok := vm.FindMethod(vm.ClassOf(obj), "greet")
	if !ok {
		t.Fatal("greet not found")
	}
	v, err := vm.Invoke(m, obj, Positional(FromString("bob")))
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got := v.Str().String(); got != "hi bob" {
		t.Errorf("got %q, want %q", got, "hi bob")
	}
}

func TestGlobals(t *testing.T) {
	vm := NewVM()
	if !vm.Global("$missing").IsNil() {
		t.Error("unset global should be nil")
	}
	vm.SetGlobal("$answer", FromInt(42))
	if vm.Global("$answer") != FromInt(42) {
		t.Error("global not stored")
	}
}

func TestVMsAreIndependent(t *testing.T) {
	a, b := NewVM(), NewVM()
	if a.ID == b.ID {
		t.Error("VMs should get distinct session IDs")
	}
	a.ObjectClass.Define("only_in_a", Params{}, func(fr *Frame) (Value, error) {
		return True, nil
	})
	if a.RespondTo(a.Main, "only_in_a") != true {
		t.Error("method missing in its own VM")
	}
	if b.RespondTo(b.Main, "only_in_a") {
		t.Error("method leaked into another VM")
	}
}

func TestMainToS(t *testing.T) {
	vm := NewVM()
	v := mustRun(t, vm, func(fr *Frame) (Value, error) {
		return fr.Call("to_s")
	})
	if got := v.Str().String(); got != "main" {
		t.Errorf("main.to_s = %q", got)
	}
}
