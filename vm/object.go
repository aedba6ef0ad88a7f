package vm

// Object represents an instance of a user or library class.
//
// Instance variables live in an insertion-ordered table so that #inspect
// lists them in assignment order, as Ruby does. An object gains a
// singleton class the first time a method is defined on it directly.
type Object struct {
	header
	ivarTable

	class     *Class
	singleton *Class
	exc       *excData // non-nil for Exception instances
}

// ivarTable holds instance variables keyed by name, including the leading @.
type ivarTable struct {
	ivars     map[string]Value
	ivarOrder []string
}

// IVar returns the named instance variable, or nil when unset.
func (t *ivarTable) IVar(name string) Value {
	return t.ivars[name]
}

// HasIVar reports whether the variable has been assigned.
func (t *ivarTable) HasIVar(name string) bool {
	_, ok := t.ivars[name]
	return ok
}

// SetIVar assigns the named instance variable.
func (t *ivarTable) SetIVar(name string, v Value) {
	if t.ivars == nil {
		t.ivars = make(map[string]Value)
	}
	if _, ok := t.ivars[name]; !ok {
		t.ivarOrder = append(t.ivarOrder, name)
	}
	t.ivars[name] = v
}

// IVarNames returns the assigned variable names in assignment order.
func (t *ivarTable) IVarNames() []string {
	out := make([]string, len(t.ivarOrder))
	copy(out, t.ivarOrder)
	return out
}

// ---------------------------------------------------------------------------
// Object creation
// ---------------------------------------------------------------------------

// NewObject allocates an uninitialized instance of class. Instances of
// Exception subclasses carry exception state.
func NewObject(class *Class) *Object {
	o := &Object{header: newHeader(), class: class}
	if vm := class.vm; vm.ExceptionClass != nil && class.IsSubclassOf(vm.ExceptionClass) {
		o.exc = &excData{}
	}
	return o
}

// Class returns the object's non-singleton class.
func (o *Object) Class() *Class { return o.class }

// SingletonClass returns the object's singleton class, creating it on
// first use. Its superclass is the object's class.
func (o *Object) SingletonClass() *Class {
	if o.singleton == nil {
		s := newClass(o.class.vm, "", o.class, false)
		s.singleton = true
		s.attached = ObjectValue(o)
		o.singleton = s
	}
	return o.singleton
}

// dispatchClass is where method lookup starts for o.
func (o *Object) dispatchClass() *Class {
	if o.singleton != nil {
		return o.singleton
	}
	return o.class
}
