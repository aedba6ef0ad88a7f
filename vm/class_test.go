package vm

import "testing"

// constBody returns a body that answers v.
func constBody(v Value) Body {
	return func(fr *Frame) (Value, error) { return v, nil }
}

func TestAncestorsWithModules(t *testing.T) {
	vm := NewVM()
	x := vm.DefineModule("X")
	y := vm.DefineModule("Y")
	z := vm.DefineModule("Z")
	w := vm.DefineModule("W")
	if err := w.Include(z); err != nil {
		t.Fatal(err)
	}

	base := vm.DefineClass("Base", nil)
	if err := base.Include(x); err != nil {
		t.Fatal(err)
	}
	derived := vm.DefineClass("Derived", base)
	if err := derived.Include(w); err != nil {
		t.Fatal(err)
	}
	if err := derived.Include(y); err != nil {
		t.Fatal(err)
	}

	want := []string{"Derived", "Y", "W", "Z", "Base", "X", "Object", "Kernel", "BasicObject"}
	if got := classNames(derived.Ancestors()); !equalStrings(got, want) {
		t.Errorf("ancestors = %v, want %v", got, want)
	}
	if got := classNames(w.Ancestors()); !equalStrings(got, []string{"W", "Z"}) {
		t.Errorf("W.ancestors = %v", got)
	}
}

func TestIncludeIsIdempotent(t *testing.T) {
	vm := NewVM()
	m := vm.DefineModule("M")
	base := vm.DefineClass("Base", nil)
	sub := vm.DefineClass("Sub", base)
	_ = base.Include(m)

	before := vm.hierarchySerial
	if err := base.Include(m); err != nil {
		t.Fatalf("re-include: %v", err)
	}
	if err := sub.Include(m); err != nil {
		t.Fatalf("include of inherited module: %v", err)
	}
	if vm.hierarchySerial != before {
		t.Error("a no-op include should not invalidate caches")
	}
	want := []string{"Sub", "Base", "M", "Object", "Kernel", "BasicObject"}
	if got := classNames(sub.Ancestors()); !equalStrings(got, want) {
		t.Errorf("ancestors = %v, want %v", got, want)
	}
}

func TestIncludeErrors(t *testing.T) {
	vm := NewVM()
	a := vm.DefineModule("A")
	b := vm.DefineModule("B")
	_ = b.Include(a)

	if got := raisedClass(a.Include(a)); got != "ArgumentError" {
		t.Errorf("self include raised %q, want ArgumentError", got)
	}
	if got := raisedClass(a.Include(b)); got != "ArgumentError" {
		t.Errorf("cyclic include raised %q, want ArgumentError", got)
	}
	c := vm.DefineClass("C", nil)
	if got := raisedClass(a.Include(c)); got != "TypeError" {
		t.Errorf("including a class raised %q, want TypeError", got)
	}
}

func TestAncestorCacheInvalidation(t *testing.T) {
	vm := NewVM()
	c := vm.DefineClass("C", nil)
	first := c.Ancestors()
	if len(first) != 4 {
		t.Fatalf("ancestors = %v", classNames(first))
	}
	m := vm.DefineModule("M")
	_ = c.Include(m)
	if got := classNames(c.Ancestors()); got[1] != "M" {
		t.Errorf("include not reflected in cached chain: %v", got)
	}
}

func TestResolveFollowsChain(t *testing.T) {
	vm := NewVM()
	m := vm.DefineModule("M")
	m.Define("who", Params{}, constBody(FromString("M")))
	base := vm.DefineClass("Base", nil)
	base.Define("who", Params{}, constBody(FromString("Base")))
	sub := vm.DefineClass("Sub", base)
	_ = sub.Include(m)

	meth, ok := vm.Resolve(sub, "who", nil)
	if !ok || meth.Owner != m {
		t.Errorf("resolved %v, want M#who", meth)
	}
	meth, ok = vm.Resolve(sub, "who", m)
	if !ok || meth.Owner != base {
		t.Errorf("resolve after M gave %v, want Base#who", meth)
	}
	if _, ok := vm.Resolve(sub, "who", base); ok {
		t.Error("nothing past Base defines who")
	}
	if meth.Label() != "Base#who" {
		t.Errorf("Label = %q", meth.Label())
	}
}

func TestAliasIsSnapshot(t *testing.T) {
	vm := NewVM()
	c := vm.DefineClass("C", nil)
	c.Define("hello", Params{}, constBody(FromString("old")))
	if err := c.Alias("greet", "hello"); err != nil {
		t.Fatal(err)
	}
	c.Define("hello", Params{}, constBody(FromString("new")))

	obj := ObjectValue(NewObject(c))
	v, err := vm.Funcall(obj, "greet")
	if err != nil {
		t.Fatal(err)
	}
	if v.Str().String() != "old" {
		t.Errorf("alias followed the redefinition: %v", v)
	}
	if got := raisedClass(c.Alias("x", "nope")); got != "NameError" {
		t.Errorf("alias of missing method raised %q", got)
	}
}

func TestUndefStopsSearch(t *testing.T) {
	vm := NewVM()
	base := vm.DefineClass("Base", nil)
	base.Define("hello", Params{}, constBody(True))
	sub := vm.DefineClass("Sub", base)
	if err := sub.Undef("hello"); err != nil {
		t.Fatal(err)
	}
	if _, ok := vm.Resolve(sub, "hello", nil); ok {
		t.Error("undef should hide the inherited method")
	}
	if _, ok := vm.Resolve(base, "hello", nil); !ok {
		t.Error("undef should not affect the superclass")
	}
	_, err := vm.Funcall(ObjectValue(NewObject(sub)), "hello")
	if got := raisedClass(err); got != "NoMethodError" {
		t.Errorf("raised %q, want NoMethodError", got)
	}
	if got := raisedClass(sub.Undef("never_defined")); got != "NameError" {
		t.Errorf("undef of unknown method raised %q", got)
	}
}

func TestRemoveMethodExposesInherited(t *testing.T) {
	vm := NewVM()
	base := vm.DefineClass("Base", nil)
	base.Define("who", Params{}, constBody(FromString("base")))
	sub := vm.DefineClass("Sub", base)
	sub.Define("who", Params{}, constBody(FromString("sub")))

	if err := sub.RemoveMethod("who"); err != nil {
		t.Fatal(err)
	}
	m, ok := vm.FindMethod(sub, "who")
	if !ok || m.Owner != base {
		t.Errorf("after remove_method found %v, want Base#who", m)
	}
	if got := raisedClass(sub.RemoveMethod("who")); got != "NameError" {
		t.Errorf("second remove raised %q, want NameError", got)
	}
}

func TestRedefineClearsUndef(t *testing.T) {
	vm := NewVM()
	c := vm.DefineClass("C", nil)
	c.Define("x", Params{}, constBody(FromInt(1)))
	_ = c.Undef("x")
	c.Define("x", Params{}, constBody(FromInt(2)))
	v, err := vm.Funcall(ObjectValue(NewObject(c)), "x")
	if err != nil || v != FromInt(2) {
		t.Errorf("got %v, %v; want 2", v, err)
	}
}

func TestSingletonMethods(t *testing.T) {
	vm := NewVM()
	c := vm.DefineClass("C", nil)
	c.DefineSingleton("create", Params{}, constBody(FromString("made")))
	sub := vm.DefineClass("Sub", c)

	v, err := vm.Funcall(ClassValue(sub), "create")
	if err != nil {
		t.Fatalf("class methods should be inherited: %v", err)
	}
	if v.Str().String() != "made" {
		t.Errorf("got %v", v)
	}
	m, _ := vm.FindMethod(vm.ClassOf(ClassValue(c)), "create")
	if m.Label() != "C.create" {
		t.Errorf("Label = %q, want C.create", m.Label())
	}

	a, b := NewObject(c), NewObject(c)
	a.SingletonClass().Define("special", Params{}, constBody(True))
	if !vm.RespondTo(ObjectValue(a), "special") {
		t.Error("singleton method missing")
	}
	if vm.RespondTo(ObjectValue(b), "special") {
		t.Error("singleton method leaked to a sibling")
	}
	if vm.RealClassOf(ObjectValue(a)) != c {
		t.Error("RealClassOf should skip the singleton class")
	}
}

func TestExtend(t *testing.T) {
	vm := NewVM()
	m := vm.DefineModule("Helpers")
	m.Define("help", Params{}, constBody(FromString("helped")))
	c := vm.DefineClass("C", nil)
	if err := c.Extend(m); err != nil {
		t.Fatal(err)
	}
	v, err := vm.Funcall(ClassValue(c), "help")
	if err != nil || v.Str().String() != "helped" {
		t.Errorf("got %v, %v", v, err)
	}
}

func TestAnonymousClassTakesConstantName(t *testing.T) {
	vm := NewVM()
	anon := vm.NewClass(nil)
	if anon.Name() != "" {
		t.Fatal("new class should be anonymous")
	}
	ns := vm.DefineModule("NS")
	ns.SetConst("Named", ClassValue(anon))
	if anon.FullName() != "NS::Named" {
		t.Errorf("FullName = %q, want NS::Named", anon.FullName())
	}
	other := vm.DefineModule("Other")
	other.SetConst("Again", ClassValue(anon))
	if anon.FullName() != "NS::Named" {
		t.Error("a named class should keep its first name")
	}
}

func TestConstants(t *testing.T) {
	vm := NewVM()
	base := vm.DefineClass("Base", nil)
	base.SetConst("LIMIT", FromInt(10))
	sub := vm.DefineClass("Sub", base)

	if v, ok := sub.ConstGet("LIMIT"); !ok || v != FromInt(10) {
		t.Error("constants should be inherited")
	}
	if _, ok := sub.ConstLocal("LIMIT"); ok {
		t.Error("ConstLocal should not search ancestors")
	}
	if v, ok := sub.ConstGet("Integer"); !ok || v.Class() != vm.IntegerClass {
		t.Error("ConstGet should fall back to Object")
	}
	if names := base.ConstNames(); len(names) != 1 || names[0] != "LIMIT" {
		t.Errorf("ConstNames = %v", names)
	}
}
