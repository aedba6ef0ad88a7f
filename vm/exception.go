package vm

import (
	"errors"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Exception state
// ---------------------------------------------------------------------------

// excData is the state carried by instances of Exception and its
// subclasses.
type excData struct {
	message   string
	backtrace []string // nil until raised
	cause     error    // host error this exception wraps, if any
	causeExc  Value    // exception being handled when this one was raised
}

func exceptionData(v Value) *excData {
	if v.kind != KindObject {
		return nil
	}
	return v.Object().exc
}

// ExceptionMessage returns the message of an exception object.
func ExceptionMessage(v Value) string {
	if exc := exceptionData(v); exc != nil {
		return exc.message
	}
	return ""
}

// ExceptionBacktrace returns the backtrace recorded when v was raised.
func ExceptionBacktrace(v Value) []string {
	if exc := exceptionData(v); exc != nil {
		return exc.backtrace
	}
	return nil
}

// AsException extracts the exception object from an error returned by
// the engine.
func AsException(err error) (Value, bool) {
	var sig *Signal
	if errors.As(err, &sig) && sig.Kind == SignalRaise {
		return sig.Value, true
	}
	return Nil, false
}

// ---------------------------------------------------------------------------
// Exception class bootstrap
// ---------------------------------------------------------------------------

// bootstrapExceptionClasses creates the exception hierarchy:
//
//	Exception
//	  ScriptError
//	  StandardError
//	    ArgumentError
//	    NameError
//	      NoMethodError
//	    RuntimeError
//	    TypeError
//	    ZeroDivisionError
//	    LocalJumpError
//	    IndexError
//	      KeyError
//	    RangeError
//	  SystemStackError
//	  StepLimitExceeded
//	  Interrupt
func (vm *VM) bootstrapExceptionClasses() {
	vm.ExceptionClass = vm.DefineClass("Exception", vm.ObjectClass)
	vm.ScriptErrorClass = vm.DefineClass("ScriptError", vm.ExceptionClass)
	vm.StandardErrorClass = vm.DefineClass("StandardError", vm.ExceptionClass)
	vm.ArgumentErrorClass = vm.DefineClass("ArgumentError", vm.StandardErrorClass)
	vm.NameErrorClass = vm.DefineClass("NameError", vm.StandardErrorClass)
	vm.NoMethodErrorClass = vm.DefineClass("NoMethodError", vm.NameErrorClass)
	vm.RuntimeErrorClass = vm.DefineClass("RuntimeError", vm.StandardErrorClass)
	vm.TypeErrorClass = vm.DefineClass("TypeError", vm.StandardErrorClass)
	vm.ZeroDivisionErrorClass = vm.DefineClass("ZeroDivisionError", vm.StandardErrorClass)
	vm.LocalJumpErrorClass = vm.DefineClass("LocalJumpError", vm.StandardErrorClass)
	vm.IndexErrorClass = vm.DefineClass("IndexError", vm.StandardErrorClass)
	vm.KeyErrorClass = vm.DefineClass("KeyError", vm.IndexErrorClass)
	vm.RangeErrorClass = vm.DefineClass("RangeError", vm.StandardErrorClass)
	vm.SystemStackErrorClass = vm.DefineClass("SystemStackError", vm.ExceptionClass)
	vm.StepLimitExceededClass = vm.DefineClass("StepLimitExceeded", vm.ExceptionClass)
	vm.InterruptClass = vm.DefineClass("Interrupt", vm.ExceptionClass)
}

// newException builds an exception object without running initialize.
func (vm *VM) newException(class *Class, message string, backtrace []string) Value {
	o := NewObject(class)
	if o.exc == nil {
		o.exc = &excData{}
	}
	o.exc.message = message
	o.exc.backtrace = backtrace
	return ObjectValue(o)
}

// newError creates a raise signal outside of any body, attributing it to
// whatever frame is currently executing.
func (vm *VM) newError(class *Class, message string) error {
	var bt []string
	if fr := vm.interp.current(); fr != nil {
		bt = fr.Backtrace()
	}
	return &Signal{Kind: SignalRaise, Value: vm.newException(class, message, bt)}
}

// ---------------------------------------------------------------------------
// Raising
// ---------------------------------------------------------------------------

// Raise raises a new instance of class with a formatted message. The
// returned error must be returned from the body.
func (fr *Frame) Raise(class *Class, format string, args ...any) error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	exc := fr.vm.newException(class, msg, fr.Backtrace())
	return fr.raiseSignal(exc)
}

// RaiseValue raises an existing exception object. Its backtrace is
// recorded on first raise.
func (fr *Frame) RaiseValue(exc Value) error {
	data := exceptionData(exc)
	if data == nil {
		return fr.Raise(fr.vm.TypeErrorClass, "exception class/object expected")
	}
	if data.backtrace == nil {
		data.backtrace = fr.Backtrace()
	}
	return fr.raiseSignal(exc)
}

func (fr *Frame) raiseSignal(exc Value) error {
	if cur := fr.handling(); cur != Nil && cur != exc {
		exc.Object().exc.causeExc = cur
	}
	fr.vm.profiler.recordRaise(fr.method)
	return &Signal{Kind: SignalRaise, Value: exc}
}

// handling returns the exception being rescued by an enclosing handler on
// this stack, used as the cause of a newly raised one.
func (fr *Frame) handling() Value {
	for f := fr; f != nil; f = f.caller {
		for i := len(f.handlers) - 1; i >= 0; i-- {
			if h := f.handlers[i]; h.active != Nil {
				return h.active
			}
		}
	}
	return Nil
}

// ---------------------------------------------------------------------------
// Rescue and ensure
// ---------------------------------------------------------------------------

// RescueClause is one rescue arm. An empty Classes list rescues
// StandardError, as a bare rescue does.
type RescueClause struct {
	Classes []*Class
	Handle  func(exc Value) (Value, error)
}

// rescueHandler is installed on a frame while a protected body runs.
type rescueHandler struct {
	clauses []RescueClause
	active  Value // exception being handled by one of the clauses
}

// Classes lists the exception classes the handler catches.
func (h *rescueHandler) Classes(vm *VM) []*Class {
	var out []*Class
	for _, c := range h.clauses {
		if len(c.Classes) == 0 {
			out = append(out, vm.StandardErrorClass)
		}
		out = append(out, c.Classes...)
	}
	return out
}

// Rescue runs body with a handler installed on fr (begin ... rescue).
// A raise escaping body stops unwinding at the first clause whose class
// matches, and that clause's result becomes the value of the expression.
// Return, break and next signals pass through untouched.
func (fr *Frame) Rescue(body func() (Value, error), clauses ...RescueClause) (Value, error) {
	h := &rescueHandler{clauses: clauses}
	fr.handlers = append(fr.handlers, h)
	defer func() { fr.handlers = fr.handlers[:len(fr.handlers)-1] }()

	v, err := body()
	if err == nil {
		return v, nil
	}
	sig := fr.asSignal(err)
	if sig.Kind != SignalRaise {
		return Nil, sig
	}
	cls := fr.vm.ClassOf(sig.Value)
	for _, c := range clauses {
		if !clauseMatches(fr.vm, c, cls) {
			continue
		}
		h.active = sig.Value
		defer func() { h.active = Nil }()
		if c.Handle == nil {
			return Nil, nil
		}
		return c.Handle(sig.Value)
	}
	return Nil, sig
}

func clauseMatches(vm *VM, c RescueClause, cls *Class) bool {
	if len(c.Classes) == 0 {
		return cls.HasAncestor(vm.StandardErrorClass)
	}
	for _, k := range c.Classes {
		if cls.HasAncestor(k) {
			return true
		}
	}
	return false
}

// Ensure runs body, then cleanup on every exit path (begin ... ensure).
// An error from cleanup replaces body's outcome.
func (fr *Frame) Ensure(body func() (Value, error), cleanup func() error) (Value, error) {
	v, err := body()
	if cerr := cleanup(); cerr != nil {
		return Nil, cerr
	}
	return v, err
}

// ---------------------------------------------------------------------------
// Reporting
// ---------------------------------------------------------------------------

// FormatError renders an error returned by Run or Invoke the way Ruby
// reports an uncaught exception:
//
//	in 'Foo#bar': message (RuntimeError)
//		from in 'Object#main'
//		from in '<main>'
func FormatError(err error) string {
	exc, ok := AsException(err)
	if !ok {
		return err.Error()
	}
	data := exc.Object().exc
	var sb strings.Builder
	bt := data.backtrace
	if len(bt) > 0 {
		fmt.Fprintf(&sb, "in '%s': ", bt[0])
	}
	fmt.Fprintf(&sb, "%s (%s)", data.message, exc.Object().class.FullName())
	for _, line := range bt[min(1, len(bt)):] {
		fmt.Fprintf(&sb, "\n\tfrom in '%s'", line)
	}
	return sb.String()
}
