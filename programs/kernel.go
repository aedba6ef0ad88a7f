package programs

import (
	"io"
	"strings"

	"github.com/chazu/garnet/vm"
)

// Install defines Kernel#puts, Kernel#print and Kernel#p on machine,
// writing to out. Installing again redirects them.
func Install(machine *vm.VM, out io.Writer) {
	k := machine.KernelModule

	k.AddPrimitive("puts", 0, -1, func(fr *vm.Frame, _ vm.Value, args []vm.Value) (vm.Value, error) {
		var b strings.Builder
		if len(args) == 0 {
			b.WriteByte('\n')
		}
		for _, a := range args {
			if err := putsLine(fr, &b, a, map[*vm.Array]bool{}); err != nil {
				return vm.Nil, err
			}
		}
		return vm.Nil, write(fr, out, b.String())
	})

	k.AddPrimitive("print", 0, -1, func(fr *vm.Frame, _ vm.Value, args []vm.Value) (vm.Value, error) {
		var b strings.Builder
		for _, a := range args {
			s, err := fr.ToS(a)
			if err != nil {
				return vm.Nil, err
			}
			b.WriteString(s)
		}
		return vm.Nil, write(fr, out, b.String())
	})

	k.AddPrimitive("p", 0, -1, func(fr *vm.Frame, _ vm.Value, args []vm.Value) (vm.Value, error) {
		var b strings.Builder
		for _, a := range args {
			s, err := fr.InspectString(a)
			if err != nil {
				return vm.Nil, err
			}
			b.WriteString(s)
			b.WriteByte('\n')
		}
		if err := write(fr, out, b.String()); err != nil {
			return vm.Nil, err
		}
		switch len(args) {
		case 0:
			return vm.Nil, nil
		case 1:
			return args[0], nil
		}
		return vm.NewArrayValue(args...), nil
	})
}

// putsLine writes v the way puts does: arrays one element per line,
// recursively, and a newline unless the text already ends in one. An array
// met again inside itself prints as [...].
func putsLine(fr *vm.Frame, b *strings.Builder, v vm.Value, walking map[*vm.Array]bool) error {
	if v.IsArray() {
		arr := v.Array()
		if walking[arr] {
			b.WriteString("[...]\n")
			return nil
		}
		walking[arr] = true
		defer delete(walking, arr)
		if arr.Len() == 0 {
			b.WriteByte('\n')
		}
		for _, e := range arr.Elems() {
			if err := putsLine(fr, b, e, walking); err != nil {
				return err
			}
		}
		return nil
	}
	s, err := fr.ToS(v)
	if err != nil {
		return err
	}
	b.WriteString(s)
	if !strings.HasSuffix(s, "\n") {
		b.WriteByte('\n')
	}
	return nil
}

func write(fr *vm.Frame, out io.Writer, s string) error {
	if _, err := io.WriteString(out, s); err != nil {
		return fr.Raise(fr.VM().RuntimeErrorClass, "write error: %v", err)
	}
	return nil
}
