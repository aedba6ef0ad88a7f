package vm

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Signal: structured non-local control transfer
// ---------------------------------------------------------------------------

// SignalKind is the kind of control transfer in flight.
type SignalKind uint8

const (
	// SignalReturn ends Target and makes Value its result.
	SignalReturn SignalKind = iota + 1
	// SignalBreak ends the call that received the breaking block.
	SignalBreak
	// SignalNext ends the current block invocation.
	SignalNext
	// SignalRaise carries an exception object up to a matching rescue.
	SignalRaise
)

func (k SignalKind) String() string {
	switch k {
	case SignalReturn:
		return "return"
	case SignalBreak:
		return "break"
	case SignalNext:
		return "next"
	case SignalRaise:
		return "raise"
	}
	return "unknown"
}

// Signal is the error value that carries return, break, next and raise
// through the frame stack. Bodies hand it back to the engine unchanged;
// each frame's activation consumes the signals that target it and passes
// everything else to its caller after popping itself.
type Signal struct {
	Kind   SignalKind
	Value  Value  // result for return/break/next; exception object for raise
	Target *Frame // frame that consumes the signal; nil for raise
}

// Error renders the signal. For raises this is "message (Class)".
func (s *Signal) Error() string {
	if s.Kind == SignalRaise {
		if exc := exceptionData(s.Value); exc != nil {
			return fmt.Sprintf("%s (%s)", exc.message, s.Value.Object().class.FullName())
		}
		return "unhandled exception: " + Inspect(s.Value)
	}
	return fmt.Sprintf("%s signal with %s", s.Kind, Inspect(s.Value))
}

// Unwrap exposes the host error that caused a raise, if any.
func (s *Signal) Unwrap() error {
	if exc := exceptionData(s.Value); exc != nil {
		return exc.cause
	}
	return nil
}

// Exception returns the exception object of a raise signal, or nil.
func (s *Signal) Exception() Value {
	if s.Kind == SignalRaise {
		return s.Value
	}
	return Nil
}

// ---------------------------------------------------------------------------
// Control transfers
// ---------------------------------------------------------------------------

// Return ends the method activation this code belongs to. In a method or
// lambda that is fr itself; in a block it is the defining method, however
// many block and iterator frames lie between. A block whose defining
// method has already returned raises LocalJumpError.
func (fr *Frame) Return(v Value) error {
	target := fr.home
	if fr.kind != BlockFrame {
		target = fr
	}
	if target == nil || target.done {
		log.Debugf("return from %s: defining frame is gone", fr.Label())
		return fr.Raise(fr.vm.LocalJumpErrorClass, "unexpected return")
	}
	return &Signal{Kind: SignalReturn, Value: v, Target: target}
}

// Break ends the call that received this block, making v that call's
// result. In a lambda it acts like return.
func (fr *Frame) Break(v Value) error {
	var target *Frame
	switch fr.kind {
	case LambdaFrame:
		target = fr
	case BlockFrame:
		target = fr.proc.breakTo
	}
	if target == nil || target.done {
		log.Debugf("break from %s: no live receiving call", fr.Label())
		return fr.Raise(fr.vm.LocalJumpErrorClass, "break from proc-closure")
	}
	return &Signal{Kind: SignalBreak, Value: v, Target: target}
}

// Next ends the current block invocation with v as the block's value.
// In a method body it behaves like return.
func (fr *Frame) Next(v Value) error {
	return &Signal{Kind: SignalNext, Value: v, Target: fr}
}

// asSignal converts any error returned by a body into a signal. Host
// errors become RuntimeError raises that wrap the original error.
func (fr *Frame) asSignal(err error) *Signal {
	var sig *Signal
	if errors.As(err, &sig) {
		return sig
	}
	exc := fr.vm.newException(fr.vm.RuntimeErrorClass, err.Error(), fr.Backtrace())
	exc.Object().exc.cause = err
	return &Signal{Kind: SignalRaise, Value: exc}
}
