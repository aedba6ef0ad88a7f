// Package programs is a library of small Ruby programs built directly on
// the engine's host API, together with the Kernel output methods they
// print through. The CLI runs them by name and the golden tests pin their
// output.
package programs

import (
	"context"
	"fmt"
	"io"

	"github.com/chazu/garnet/vm"
	"github.com/emirpasic/gods/maps/treemap"
)

// Program is one runnable top-level script.
type Program struct {
	Name    string
	Summary string
	Main    vm.Body
}

var library = treemap.NewWithStringComparator()

func register(name, summary string, main vm.Body) {
	if _, found := library.Get(name); found {
		panic("programs: duplicate program " + name)
	}
	library.Put(name, &Program{Name: name, Summary: summary, Main: main})
}

// Lookup finds a program by name.
func Lookup(name string) (*Program, bool) {
	p, found := library.Get(name)
	if !found {
		return nil, false
	}
	return p.(*Program), true
}

// All returns every program, sorted by name.
func All() []*Program {
	out := make([]*Program, 0, library.Size())
	it := library.Iterator()
	for it.Next() {
		out = append(out, it.Value().(*Program))
	}
	return out
}

// Names returns the program names in order.
func Names() []string {
	out := make([]string, 0, library.Size())
	for _, k := range library.Keys() {
		out = append(out, k.(string))
	}
	return out
}

// Run installs the output methods on machine, writing to out, and runs the
// named program as the top-level script.
func Run(machine *vm.VM, name string, out io.Writer) (vm.Value, error) {
	return RunContext(context.Background(), machine, name, out)
}

// RunContext is Run under ctx; cancelling ctx interrupts the program.
func RunContext(ctx context.Context, machine *vm.VM, name string, out io.Writer) (vm.Value, error) {
	p, ok := Lookup(name)
	if !ok {
		return vm.Nil, fmt.Errorf("unknown program %q", name)
	}
	Install(machine, out)
	return machine.RunContext(ctx, p.Name, p.Main)
}
