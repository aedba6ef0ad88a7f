package vm

import (
	"sort"

	"github.com/emirpasic/gods/sets/linkedhashset"
)

// ---------------------------------------------------------------------------
// Class: classes, modules and singleton classes
// ---------------------------------------------------------------------------

// Class is a Ruby class or module. Modules are Classes with IsModule set;
// singleton classes (metaclasses and per-object classes) have IsSingleton
// set and remember the value they are attached to.
type Class struct {
	header
	ivarTable

	vm         *VM
	name       string
	parent     *Class // lexical namespace, for A::B names and constant lookup
	Superclass *Class
	isModule   bool
	singleton  bool
	attached   Value

	includes  []*Class // most recently included first
	methods   map[string]*Method
	aliases   map[string]aliasEntry
	undefined map[string]bool
	consts    map[string]Value
	meta      *Class

	ancestors       []*Class
	ancestorsSerial uint64
}

// aliasEntry is an alias snapshot: the method the original name resolved
// to when the alias was made. It outlives later changes to the original.
type aliasEntry struct {
	Original string
	Method   *Method
}

func newClass(vm *VM, name string, superclass *Class, isModule bool) *Class {
	return &Class{
		header:     newHeader(),
		vm:         vm,
		name:       name,
		Superclass: superclass,
		isModule:   isModule,
		methods:    make(map[string]*Method),
		aliases:    make(map[string]aliasEntry),
		undefined:  make(map[string]bool),
		consts:     make(map[string]Value),
	}
}

// Name returns the unqualified name ("" for anonymous classes).
func (c *Class) Name() string { return c.name }

// IsModule reports whether c is a module.
func (c *Class) IsModule() bool { return c.isModule }

// IsSingleton reports whether c is a singleton class.
func (c *Class) IsSingleton() bool { return c.singleton }

// Attached returns the value a singleton class belongs to, or nil.
func (c *Class) Attached() Value { return c.attached }

// Parent returns the lexically enclosing class or module.
func (c *Class) Parent() *Class { return c.parent }

// Includes returns the directly included modules, most recent first.
func (c *Class) Includes() []*Class {
	out := make([]*Class, len(c.includes))
	copy(out, c.includes)
	return out
}

// FullName returns the constant path, e.g. TestModule::MyClass, or the
// #<Class:...> form for singleton classes.
func (c *Class) FullName() string {
	if c.singleton {
		return "#<Class:" + Inspect(c.attached) + ">"
	}
	if c.name == "" {
		if c.isModule {
			return "#<Module>"
		}
		return "#<Class>"
	}
	if c.parent != nil && c.parent != c.vm.ObjectClass {
		return c.parent.FullName() + "::" + c.name
	}
	return c.name
}

func (c *Class) String() string { return c.FullName() }

// IsSubclassOf returns true if c is other or inherits from it through the
// superclass chain.
func (c *Class) IsSubclassOf(other *Class) bool {
	for current := c; current != nil; current = current.Superclass {
		if current == other {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Ancestor chain
// ---------------------------------------------------------------------------

// Ancestors returns the method resolution order: c, the expansions of its
// included modules (most recent first, depth first), then the superclass's
// chain. Duplicates keep their first position. The result is cached until
// the VM's hierarchy changes and must not be modified.
func (c *Class) Ancestors() []*Class {
	serial := c.vm.hierarchySerial
	if c.ancestors != nil && c.ancestorsSerial == serial {
		return c.ancestors
	}
	set := linkedhashset.New()
	for cls := c; cls != nil; cls = cls.Superclass {
		cls.appendModule(set)
	}
	items := set.Values()
	chain := make([]*Class, len(items))
	for i, item := range items {
		chain[i] = item.(*Class)
	}
	c.ancestors = chain
	c.ancestorsSerial = serial
	return chain
}

func (c *Class) appendModule(set *linkedhashset.Set) {
	set.Add(c)
	for _, m := range c.includes {
		m.appendModule(set)
	}
}

// HasAncestor reports whether m appears in c's ancestor chain.
func (c *Class) HasAncestor(m *Class) bool {
	for _, a := range c.Ancestors() {
		if a == m {
			return true
		}
	}
	return false
}

// Include mixes m into c. Including a module already among c's ancestors
// is a no-op; including c into itself, or a module that already has c
// among its ancestors, is an ArgumentError.
func (c *Class) Include(m *Class) error {
	if !m.isModule {
		return c.vm.newError(c.vm.TypeErrorClass, "wrong argument type "+m.vm.RealClassOf(ClassValue(m)).FullName()+" (expected Module)")
	}
	if m == c || m.HasAncestor(c) {
		return c.vm.newError(c.vm.ArgumentErrorClass, "cyclic include detected")
	}
	if c.HasAncestor(m) {
		return nil
	}
	c.includes = append([]*Class{m}, c.includes...)
	c.vm.hierarchyChanged()
	log.Debugf("include %s into %s", m.FullName(), c.FullName())
	return nil
}

// ---------------------------------------------------------------------------
// Method table
// ---------------------------------------------------------------------------

// Define installs a method built from params and body. Redefining a name
// replaces any previous method, alias or undef for it in this class.
func (c *Class) Define(name string, params Params, body Body) *Method {
	return c.DefineMethod(&Method{Name: name, Params: params, Body: body})
}

// DefineMethod installs m under m.Name and takes ownership of it.
func (c *Class) DefineMethod(m *Method) *Method {
	m.Owner = c
	if m.cref == nil {
		m.cref = c
	}
	c.methods[m.Name] = m
	delete(c.aliases, m.Name)
	delete(c.undefined, m.Name)
	c.vm.methodsChanged()
	return m
}

// AddPrimitive installs a Go primitive.
func (c *Class) AddPrimitive(name string, min, max int, fn PrimitiveFunc) *Method {
	return c.DefineMethod(NewPrimitive(name, min, max, fn))
}

// AddMethod0 installs a zero-argument primitive.
func (c *Class) AddMethod0(name string, fn Method0Func) *Method {
	return c.DefineMethod(NewMethod0(name, fn))
}

// AddMethod1 installs a one-argument primitive.
func (c *Class) AddMethod1(name string, fn Method1Func) *Method {
	return c.DefineMethod(NewMethod1(name, fn))
}

// AddMethod2 installs a two-argument primitive.
func (c *Class) AddMethod2(name string, fn Method2Func) *Method {
	return c.DefineMethod(NewMethod2(name, fn))
}

// AddClassPrimitive installs a primitive on c's singleton class.
func (c *Class) AddClassPrimitive(name string, min, max int, fn PrimitiveFunc) *Method {
	return c.SingletonClass().AddPrimitive(name, min, max, fn)
}

// DefineSingleton installs a method on c's singleton class (def self.name).
func (c *Class) DefineSingleton(name string, params Params, body Body) *Method {
	return c.SingletonClass().Define(name, params, body)
}

// Alias binds newName to whatever oldName resolves to now, as seen from c.
func (c *Class) Alias(newName, oldName string) error {
	m, ok := c.vm.Resolve(c, oldName, nil)
	if !ok {
		return c.vm.newError(c.vm.NameErrorClass, "undefined method '"+oldName+"' for "+c.describe())
	}
	delete(c.methods, newName)
	delete(c.undefined, newName)
	c.aliases[newName] = aliasEntry{Original: oldName, Method: m}
	c.vm.methodsChanged()
	return nil
}

// Undef prevents c and its descendants from responding to name. The
// search stops at c, so inherited definitions are hidden too.
func (c *Class) Undef(name string) error {
	if _, ok := c.vm.Resolve(c, name, nil); !ok {
		return c.vm.newError(c.vm.NameErrorClass, "undefined method '"+name+"' for "+c.describe())
	}
	delete(c.methods, name)
	delete(c.aliases, name)
	c.undefined[name] = true
	c.vm.methodsChanged()
	return nil
}

// RemoveMethod deletes c's own definition of name, exposing any inherited
// one again.
func (c *Class) RemoveMethod(name string) error {
	_, isMethod := c.methods[name]
	_, isAlias := c.aliases[name]
	if !isMethod && !isAlias {
		return c.vm.newError(c.vm.NameErrorClass, "method '"+name+"' not defined in "+c.FullName())
	}
	delete(c.methods, name)
	delete(c.aliases, name)
	c.vm.methodsChanged()
	return nil
}

// lookupLocal consults c's alias table, undefined set and method table.
// stop is true when name is undefined here and the search must end.
func (c *Class) lookupLocal(name string) (m *Method, stop bool) {
	if a, ok := c.aliases[name]; ok {
		return a.Method, false
	}
	if c.undefined[name] {
		return nil, true
	}
	return c.methods[name], false
}

// LocalMethod returns the method or alias defined directly in c.
func (c *Class) LocalMethod(name string) (*Method, bool) {
	m, _ := c.lookupLocal(name)
	return m, m != nil
}

// MethodNames returns the sorted names defined directly in c, aliases
// included.
func (c *Class) MethodNames() []string {
	names := make([]string, 0, len(c.methods)+len(c.aliases))
	for name := range c.methods {
		names = append(names, name)
	}
	for name := range c.aliases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Class) describe() string {
	if c.isModule {
		return "module '" + c.FullName() + "'"
	}
	return "class '" + c.FullName() + "'"
}

// ---------------------------------------------------------------------------
// Singleton classes
// ---------------------------------------------------------------------------

// SingletonClass returns c's metaclass, creating it on first use. The
// metaclass of C inherits from the metaclass of C's superclass, so class
// methods are inherited and super works across them. The root metaclass
// inherits from Class; module metaclasses inherit from Module.
func (c *Class) SingletonClass() *Class {
	if c.meta != nil {
		return c.meta
	}
	var super *Class
	switch {
	case c.singleton:
		super = c.vm.ClassClass
	case c.isModule:
		super = c.vm.ModuleClass
	case c.Superclass != nil:
		super = c.Superclass.SingletonClass()
	default:
		super = c.vm.ClassClass
	}
	meta := newClass(c.vm, "", super, false)
	meta.singleton = true
	meta.attached = ClassValue(c)
	c.meta = meta
	return meta
}

// Extend mixes m into c's singleton class.
func (c *Class) Extend(m *Class) error {
	return c.SingletonClass().Include(m)
}

// ---------------------------------------------------------------------------
// Constants
// ---------------------------------------------------------------------------

// SetConst binds a constant in c. Anonymous classes assigned to a
// constant take its name and namespace.
func (c *Class) SetConst(name string, v Value) {
	if v.IsClass() {
		if k := v.Class(); k.name == "" && !k.singleton {
			k.name = name
			if c != c.vm.ObjectClass {
				k.parent = c
			}
		}
	}
	c.consts[name] = v
}

// ConstLocal returns a constant bound directly in c.
func (c *Class) ConstLocal(name string) (Value, bool) {
	v, ok := c.consts[name]
	return v, ok
}

// ConstGet resolves name through c's ancestors, then Object.
func (c *Class) ConstGet(name string) (Value, bool) {
	for _, a := range c.Ancestors() {
		if v, ok := a.consts[name]; ok {
			return v, true
		}
	}
	if v, ok := c.vm.ObjectClass.consts[name]; ok {
		return v, true
	}
	return Nil, false
}

// ConstNames returns the sorted names bound directly in c.
func (c *Class) ConstNames() []string {
	names := make([]string, 0, len(c.consts))
	for name := range c.consts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
