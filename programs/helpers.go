package programs

import (
	"fmt"
	"strings"

	"github.com/chazu/garnet/vm"
)

// interp builds a string the way "#{...}" literals do: Go strings are
// copied and Values are converted with to_s.
func interp(fr *vm.Frame, parts ...any) (vm.Value, error) {
	var b strings.Builder
	for _, part := range parts {
		switch p := part.(type) {
		case string:
			b.WriteString(p)
		case vm.Value:
			s, err := fr.ToS(p)
			if err != nil {
				return vm.Nil, err
			}
			b.WriteString(s)
		default:
			panic(fmt.Sprintf("programs: cannot interpolate %T", part))
		}
	}
	return vm.FromString(b.String()), nil
}

// say is puts "...#{...}...".
func say(fr *vm.Frame, parts ...any) error {
	s, err := interp(fr, parts...)
	if err != nil {
		return err
	}
	_, err = fr.Call("puts", s)
	return err
}

// binop sends a binary operator.
func binop(fr *vm.Frame, a vm.Value, op string, b vm.Value) (vm.Value, error) {
	return fr.Send(a, op, b)
}

// addLocal is name += n.
func addLocal(fr *vm.Frame, name string, n vm.Value) error {
	v, err := binop(fr, fr.Get(name), "+", n)
	if err != nil {
		return err
	}
	fr.Set(name, v)
	return nil
}

// addIndex is recv[i] += n.
func addIndex(fr *vm.Frame, recv, i, n vm.Value) error {
	cur, err := fr.Send(recv, "[]", i)
	if err != nil {
		return err
	}
	next, err := binop(fr, cur, "+", n)
	if err != nil {
		return err
	}
	_, err = fr.Send(recv, "[]=", i, next)
	return err
}

// seq runs steps in order and stops at the first error.
func seq(steps ...func() error) error {
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func params(required ...string) vm.Params {
	return vm.Params{Required: required}
}

func int64s(ns ...int64) []vm.Value {
	out := make([]vm.Value, len(ns))
	for i, n := range ns {
		out[i] = vm.FromInt(n)
	}
	return out
}

// sendBlock is recv.name(args) { |params| body }.
func sendBlock(fr *vm.Frame, recv vm.Value, name string, p vm.Params, body vm.Body, args ...vm.Value) (vm.Value, error) {
	return fr.SendWith(recv, name, vm.Args{Positional: args, Block: fr.Block(p, body)})
}

// callBlock is name(args) { |params| body } with self as the receiver.
func callBlock(fr *vm.Frame, name string, p vm.Params, body vm.Body, args ...vm.Value) (vm.Value, error) {
	return fr.CallWith(name, vm.Args{Positional: args, Block: fr.Block(p, body)})
}

// newObject is ClassName.new(args).
func newObject(fr *vm.Frame, className string, args ...vm.Value) (vm.Value, error) {
	cls, err := fr.Const(className)
	if err != nil {
		return vm.Nil, err
	}
	return fr.Send(cls, "new", args...)
}
