package vm

import (
	"strings"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("garnet.vm")

// ---------------------------------------------------------------------------
// VM: the garnet engine
// ---------------------------------------------------------------------------

// Options configures a VM. Zero limits disable the corresponding check.
type Options struct {
	MaxDepth     int    // frames before SystemStackError
	StepLimit    uint64 // activations and ticks per run before StepLimitExceeded
	MethodCache  bool   // cache method lookups per (class, name)
	HotThreshold uint64 // calls before the profiler marks a method hot
}

// DefaultOptions returns the limits used by NewVM.
func DefaultOptions() Options {
	return Options{
		MaxDepth:     10000,
		MethodCache:  true,
		HotThreshold: 1000,
	}
}

// VM is one engine instance: its class table, call stack, method cache
// and profiler. A VM is not safe for concurrent use.
type VM struct {
	// ID identifies this VM in logs, snapshots and stored profiles.
	ID uuid.UUID

	// Globals holds $-variables.
	Globals map[string]Value

	// Main is the top-level self.
	Main Value

	// OnDebug receives the snapshot taken by __debug__vm_info.
	OnDebug func(info *VMInfo)

	// Core classes
	BasicObjectClass *Class
	ObjectClass      *Class
	ModuleClass      *Class
	ClassClass       *Class
	KernelModule     *Class
	NilClass         *Class
	TrueClass        *Class
	FalseClass       *Class
	IntegerClass     *Class
	FloatClass       *Class
	StringClass      *Class
	SymbolClass      *Class
	ArrayClass       *Class
	HashClass        *Class
	ProcClass        *Class

	// Exception hierarchy
	ExceptionClass         *Class
	ScriptErrorClass       *Class
	StandardErrorClass     *Class
	ArgumentErrorClass     *Class
	NameErrorClass         *Class
	NoMethodErrorClass     *Class
	RuntimeErrorClass      *Class
	TypeErrorClass         *Class
	ZeroDivisionErrorClass *Class
	LocalJumpErrorClass    *Class
	IndexErrorClass        *Class
	KeyErrorClass          *Class
	RangeErrorClass        *Class
	SystemStackErrorClass  *Class
	StepLimitExceededClass *Class
	InterruptClass         *Class

	interp   *Interpreter
	cache    *MethodCache
	profiler *Profiler

	// hierarchySerial changes on include/extend; methodSerial changes on
	// any method table or hierarchy change.
	hierarchySerial uint64
	methodSerial    uint64

	defaultMethodMissing *Method

	// walking marks containers inside an inspect, join or == primitive.
	walking map[refPair]bool
}

// NewVM creates and bootstraps a VM with DefaultOptions.
func NewVM() *VM {
	return NewVMWithOptions(DefaultOptions())
}

// NewVMWithOptions creates and bootstraps a VM.
func NewVMWithOptions(opts Options) *VM {
	vm := &VM{
		ID:              uuid.New(),
		Globals:         make(map[string]Value),
		walking:         make(map[refPair]bool),
		hierarchySerial: 1,
		methodSerial:    1,
	}
	vm.interp = newInterpreter(vm, opts.MaxDepth, opts.StepLimit)
	vm.cache = newMethodCache(vm, opts.MethodCache)
	vm.profiler = NewProfiler()
	vm.profiler.HotThreshold = opts.HotThreshold

	vm.bootstrap()
	log.Debugf("vm %s ready (max depth %d, step limit %d)", vm.ID, opts.MaxDepth, opts.StepLimit)
	return vm
}

// ---------------------------------------------------------------------------
// Bootstrap: create core classes
// ---------------------------------------------------------------------------

func (vm *VM) bootstrap() {
	// BasicObject, Object, Module and Class refer to each other; build the
	// superclass chain by hand before anything can be looked up.
	vm.BasicObjectClass = newClass(vm, "BasicObject", nil, false)
	vm.ObjectClass = newClass(vm, "Object", vm.BasicObjectClass, false)
	vm.ModuleClass = newClass(vm, "Module", vm.ObjectClass, false)
	vm.ClassClass = newClass(vm, "Class", vm.ModuleClass, false)
	for _, c := range []*Class{vm.BasicObjectClass, vm.ObjectClass, vm.ModuleClass, vm.ClassClass} {
		vm.ObjectClass.SetConst(c.name, ClassValue(c))
	}

	vm.KernelModule = vm.DefineModule("Kernel")
	if err := vm.ObjectClass.Include(vm.KernelModule); err != nil {
		panic(err)
	}

	vm.NilClass = vm.DefineClass("NilClass", nil)
	vm.TrueClass = vm.DefineClass("TrueClass", nil)
	vm.FalseClass = vm.DefineClass("FalseClass", nil)
	vm.IntegerClass = vm.DefineClass("Integer", nil)
	vm.FloatClass = vm.DefineClass("Float", nil)
	vm.StringClass = vm.DefineClass("String", nil)
	vm.SymbolClass = vm.DefineClass("Symbol", nil)
	vm.ArrayClass = vm.DefineClass("Array", nil)
	vm.HashClass = vm.DefineClass("Hash", nil)
	vm.ProcClass = vm.DefineClass("Proc", nil)

	vm.bootstrapExceptionClasses()

	vm.Main = ObjectValue(NewObject(vm.ObjectClass))

	vm.registerObjectPrimitives()
	vm.registerClassReflectionPrimitives()
	vm.registerBlockPrimitives()
	vm.registerExceptionPrimitives()
	vm.registerBooleanPrimitives()
	vm.registerIntegerPrimitives()
	vm.registerFloatPrimitives()
	vm.registerStringPrimitives()
	vm.registerSymbolPrimitives()
	vm.registerArrayPrimitives()
	vm.registerHashPrimitives()
}

// ---------------------------------------------------------------------------
// Class definition API
// ---------------------------------------------------------------------------

// DefineClass returns the top-level class name, creating it as a subclass
// of super (Object when nil) if it does not exist yet.
func (vm *VM) DefineClass(name string, super *Class) *Class {
	return vm.DefineClassUnder(vm.ObjectClass, name, super)
}

// DefineClassUnder is DefineClass within the namespace scope.
func (vm *VM) DefineClassUnder(scope *Class, name string, super *Class) *Class {
	if v, ok := scope.ConstLocal(name); ok && v.IsClass() && !v.Class().isModule {
		return v.Class()
	}
	if super == nil {
		super = vm.ObjectClass
	}
	c := newClass(vm, name, super, false)
	scope.SetConst(name, ClassValue(c))
	if scope != vm.ObjectClass {
		c.parent = scope
	}
	return c
}

// DefineModule returns the top-level module name, creating it if needed.
func (vm *VM) DefineModule(name string) *Class {
	return vm.DefineModuleUnder(vm.ObjectClass, name)
}

// DefineModuleUnder is DefineModule within the namespace scope.
func (vm *VM) DefineModuleUnder(scope *Class, name string) *Class {
	if v, ok := scope.ConstLocal(name); ok && v.IsClass() && v.Class().isModule {
		return v.Class()
	}
	m := newClass(vm, name, nil, true)
	scope.SetConst(name, ClassValue(m))
	if scope != vm.ObjectClass {
		m.parent = scope
	}
	return m
}

// NewClass creates an anonymous class (Class.new). It is named when first
// assigned to a constant.
func (vm *VM) NewClass(super *Class) *Class {
	if super == nil {
		super = vm.ObjectClass
	}
	return newClass(vm, "", super, false)
}

// NewModule creates an anonymous module (Module.new).
func (vm *VM) NewModule() *Class {
	return newClass(vm, "", nil, true)
}

// ConstPath resolves a constant path such as "TestModule::MyClass" from
// Object.
func (vm *VM) ConstPath(path string) (Value, bool) {
	v := ClassValue(vm.ObjectClass)
	for _, part := range strings.Split(path, "::") {
		if !v.IsClass() {
			return Nil, false
		}
		next, ok := v.Class().ConstGet(part)
		if !ok {
			return Nil, false
		}
		v = next
	}
	return v, true
}

// ClassNamed returns the class or module at path, or nil.
func (vm *VM) ClassNamed(path string) *Class {
	if v, ok := vm.ConstPath(path); ok && v.IsClass() {
		return v.Class()
	}
	return nil
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Interpreter returns the VM's frame stack.
func (vm *VM) Interpreter() *Interpreter { return vm.interp }

// Profiler returns the VM's profiler.
func (vm *VM) Profiler() *Profiler { return vm.profiler }

// MethodCache returns the VM's method cache.
func (vm *VM) MethodCache() *MethodCache { return vm.cache }

// SetGlobal assigns a $-variable.
func (vm *VM) SetGlobal(name string, v Value) { vm.Globals[name] = v }

// Global reads a $-variable; unset globals are nil.
func (vm *VM) Global(name string) Value { return vm.Globals[name] }

// ---------------------------------------------------------------------------
// Invalidation
// ---------------------------------------------------------------------------

// hierarchyChanged invalidates cached ancestor chains and method lookups.
func (vm *VM) hierarchyChanged() {
	vm.hierarchySerial++
	vm.methodSerial++
}

// methodsChanged invalidates cached method lookups.
func (vm *VM) methodsChanged() {
	vm.methodSerial++
}

// recursive runs fn with key marked as being walked. When key is already
// marked the structure contains itself; fn is skipped and ok is false.
func (vm *VM) recursive(key refPair, fn func() (Value, error)) (v Value, ok bool, err error) {
	if vm.walking[key] {
		return Nil, false, nil
	}
	vm.walking[key] = true
	defer delete(vm.walking, key)
	v, err = fn()
	return v, true, err
}
