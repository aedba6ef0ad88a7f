package vm

import (
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// Value inspection
// ---------------------------------------------------------------------------

func TestInspectorImmediates(t *testing.T) {
	vm := NewVM()
	inspector := NewInspector(vm)

	tests := []struct {
		v         Value
		typ, val  string
		className string
	}{
		{Nil, "nil", "nil", "NilClass"},
		{True, "bool", "true", "TrueClass"},
		{False, "bool", "false", "FalseClass"},
		{FromInt(42), "int", "42", "Integer"},
		{FromFloat64(1.5), "float", "1.5", "Float"},
		{Sym("go"), "symbol", ":go", "Symbol"},
		{FromString("hi"), "string", `"hi"`, "String"},
	}
	for _, tt := range tests {
		result := inspector.Inspect(tt.v)
		if result.Type != tt.typ || result.Value != tt.val || result.ClassName != tt.className {
			t.Errorf("Inspect(%s) = {%s %s %s}, want {%s %s %s}",
				tt.val, result.Type, result.Value, result.ClassName, tt.typ, tt.val, tt.className)
		}
	}
}

func TestInspectorArrayPreview(t *testing.T) {
	vm := NewVM()
	inspector := NewInspector(vm)

	arr := NewArray()
	for i := 0; i < 15; i++ {
		arr.Push(FromInt(int64(i)))
	}
	result := inspector.Inspect(ArrayValue(arr))

	if result.Size != 15 {
		t.Errorf("Size = %d, want 15", result.Size)
	}
	if len(result.Elements) != MaxElementPreview {
		t.Errorf("previewed %d elements, want %d", len(result.Elements), MaxElementPreview)
	}
	if result.Elements[3].Value != "3" {
		t.Errorf("element 3 = %q", result.Elements[3].Value)
	}
	if !strings.Contains(result.String(), "elements (showing 10 of 15)") {
		t.Errorf("String() = %q", result.String())
	}
}

func TestInspectorHashPairs(t *testing.T) {
	vm := NewVM()
	inspector := NewInspector(vm)

	result := inspector.Inspect(NewHashValue(Sym("a"), FromInt(1), FromString("b"), FromInt(2)))
	if result.Size != 2 || len(result.Elements) != 2 {
		t.Fatalf("result = %+v", result)
	}
	if result.Elements[0].Value != "[:a, 1]" || result.Elements[1].Value != `["b", 2]` {
		t.Errorf("pairs = %q, %q", result.Elements[0].Value, result.Elements[1].Value)
	}
}

func TestInspectorObjectIvars(t *testing.T) {
	vm := NewVM()
	inspector := NewInspector(vm)

	point := vm.DefineClass("Point", nil)
	obj := NewObject(point)
	obj.SetIVar("@x", FromInt(3))
	obj.SetIVar("@y", NewArrayValue(FromInt(4)))

	result := inspector.Inspect(ObjectValue(obj))
	if result.Type != "object" || result.ClassName != "Point" {
		t.Errorf("result = %s/%s", result.Type, result.ClassName)
	}
	if len(result.InstVars) != 2 || result.InstVars[0].Name != "@x" || result.InstVars[1].Name != "@y" {
		t.Fatalf("ivars = %+v", result.InstVars)
	}
	if result.InstVars[1].Value.Size != 1 {
		t.Error("nested collections should be inspected below the top level")
	}

	shallow := inspector.InspectDepth(ObjectValue(obj), 0)
	if len(shallow.InstVars) != 0 {
		t.Error("depth 0 should not descend into ivars")
	}
	if !strings.Contains(result.String(), "@x: 3") {
		t.Errorf("String() = %q", result.String())
	}
}

// ---------------------------------------------------------------------------
// VM snapshots
// ---------------------------------------------------------------------------

func TestSnapshotFramesInsideBlock(t *testing.T) {
	vm := NewVM()
	var info *VMInfo
	probe := vm.DefineClass("Probe", nil)
	probe.Define("look", Params{}, func(fr *Frame) (Value, error) {
		fr.Set("total", FromInt(5))
		return eachBlock(fr, NewArrayValue(FromInt(7)), func(bf *Frame, x Value) (Value, error) {
			info = bf.VM().Snapshot()
			return Nil, nil
		})
	})
	mustRun(t, vm, func(fr *Frame) (Value, error) {
		return fr.Send(ObjectValue(NewObject(probe)), "look")
	})

	if info == nil {
		t.Fatal("block never ran")
	}
	labels := make([]string, len(info.Frames))
	for i, f := range info.Frames {
		labels[i] = f.Label
	}
	want := []string{"block in Probe#look", "Array#each", "Probe#look", "<main>"}
	if !equalStrings(labels, want) {
		t.Fatalf("frames = %v, want %v", labels, want)
	}
	if info.Depth != 4 {
		t.Errorf("Depth = %d, want 4", info.Depth)
	}

	blk := info.Frames[0]
	if blk.Kind != "block" || blk.Home != "Probe#look" {
		t.Errorf("block frame = %+v", blk)
	}
	if len(blk.Locals) != 2 || blk.Locals[0] != (LocalInfo{"x", "7"}) || blk.Locals[1] != (LocalInfo{"total", "5"}) {
		t.Errorf("block locals = %+v", blk.Locals)
	}
	if !info.Frames[1].Block {
		t.Error("Array#each received a block")
	}
	if info.Frames[3].Self != "main" {
		t.Errorf("top self = %q", info.Frames[3].Self)
	}
	if info.Session != vm.ID.String() {
		t.Error("session should be the VM id")
	}
}

func TestSnapshotHandlersAndGlobals(t *testing.T) {
	vm := NewVM()
	vm.SetGlobal("$b", FromInt(2))
	vm.SetGlobal("$a", FromString("one"))

	var info *VMInfo
	mustRun(t, vm, func(fr *Frame) (Value, error) {
		return fr.Rescue(func() (Value, error) {
			info = vm.Snapshot()
			return Nil, nil
		}, RescueClause{Classes: []*Class{vm.ArgumentErrorClass, vm.TypeErrorClass}},
			RescueClause{})
	})

	top := info.Frames[0]
	if len(top.Handlers) != 1 || top.Handlers[0] != "ArgumentError, TypeError, StandardError" {
		t.Errorf("handlers = %v", top.Handlers)
	}
	want := []LocalInfo{{"$a", `"one"`}, {"$b", "2"}}
	if len(info.Globals) != 2 || info.Globals[0] != want[0] || info.Globals[1] != want[1] {
		t.Errorf("globals = %+v", info.Globals)
	}
	if info.Classes < 20 {
		t.Errorf("Classes = %d, expected the core hierarchy", info.Classes)
	}
}

func TestDebugVMInfoHook(t *testing.T) {
	vm := NewVM()
	var got *VMInfo
	vm.OnDebug = func(info *VMInfo) { got = info }

	v := mustRun(t, vm, func(fr *Frame) (Value, error) {
		return fr.Call("__debug__vm_info")
	})
	if !v.IsNil() {
		t.Errorf("__debug__vm_info returned %v", v)
	}
	if got == nil {
		t.Fatal("OnDebug was not called")
	}
	if got.Frames[0].Label != "Kernel#__debug__vm_info" {
		t.Errorf("innermost frame = %q", got.Frames[0].Label)
	}
}
