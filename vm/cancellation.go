package vm

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// ---------------------------------------------------------------------------
// Cancellation: host contexts interrupting a running program
// ---------------------------------------------------------------------------

// interruptStride is how many steps pass between polls of a live context.
// Once the context is seen done, every step reports the interrupt.
const interruptStride = 256

// cancellation wraps the host context a program runs under.
type cancellation struct {
	ctx       context.Context
	cancelled atomic.Bool // cached cancelled state
}

// check reports the context's error once it is done. The context itself is
// only consulted every interruptStride steps.
func (c *cancellation) check(step uint64) error {
	if !c.cancelled.Load() {
		if step%interruptStride != 0 || c.ctx.Err() == nil {
			return nil
		}
		c.cancelled.Store(true)
		log.Warningf("interrupted after %d steps: %v", step, context.Cause(c.ctx))
	}
	if err := context.Cause(c.ctx); err != nil {
		return err
	}
	return c.ctx.Err()
}

// RunContext is Run under ctx. When ctx is cancelled or its deadline
// passes, the program sees an Interrupt exception raised at its next step.
// Interrupt is not a StandardError, so bare rescue clauses let it through.
func (vm *VM) RunContext(ctx context.Context, name string, body Body) (Value, error) {
	if err := ctx.Err(); err != nil {
		return Nil, fmt.Errorf("run %s: %w", name, err)
	}
	prev := vm.interp.cancel
	vm.interp.cancel = &cancellation{ctx: ctx}
	defer func() { vm.interp.cancel = prev }()
	return vm.Run(name, body)
}

// RunTimeout is RunContext with a deadline d from now.
func (vm *VM) RunTimeout(d time.Duration, name string, body Body) (Value, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return vm.RunContext(ctx, name, body)
}
