package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/chazu/garnet/manifest"
	"github.com/chazu/garnet/profstore"
	"github.com/chazu/garnet/programs"
	"github.com/chazu/garnet/vm"
	"github.com/chazu/garnet/vm/snapshot"
)

// session runs programs under one configuration. Each run gets a fresh VM;
// the last one is kept for inspection from the shell.
type session struct {
	cfg   *manifest.Manifest
	out   io.Writer
	store *profstore.Store // nil when profiles are not persisted

	last      *vm.VM
	snapshots []*vm.VMInfo
}

func newSession(cfg *manifest.Manifest, out io.Writer) (*session, error) {
	s := &session{cfg: cfg, out: out}
	if path := cfg.ProfileDBPath(); path != "" {
		store, err := profstore.Open(path)
		if err != nil {
			return nil, err
		}
		s.store = store
	}
	return s, nil
}

func (s *session) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// run executes one program and records its profile and snapshots.
func (s *session) run(name string) error {
	machine := vm.NewVMWithOptions(s.cfg.Options())
	s.last = machine
	s.snapshots = nil
	machine.OnDebug = s.onDebug

	ctx := context.Background()
	if d := s.cfg.Engine.Timeout; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	log.Infof("running %s (session %s)", name, machine.ID)
	started := time.Now()
	_, runErr := programs.RunContext(ctx, machine, name, s.out)

	if s.store != nil {
		if err := s.store.Save(profstore.Capture(machine, name, started, runErr)); err != nil {
			log.Errorf("saving profile: %s", err)
		}
	}
	if runErr != nil {
		return errors.New(vm.FormatError(runErr))
	}
	return nil
}

func (s *session) onDebug(info *vm.VMInfo) {
	s.snapshots = append(s.snapshots, info)
	path, err := snapshot.Save(s.cfg.SnapshotDirPath(), info, s.cfg.SnapshotFormat())
	if err != nil {
		log.Errorf("saving snapshot: %s", err)
		return
	}
	log.Noticef("snapshot written to %s", path)
}

// printTop writes the n busiest methods of the last run.
func (s *session) printTop(w io.Writer, n int) {
	if s.last == nil {
		fmt.Fprintln(w, "nothing has run yet")
		return
	}
	printStats(w, s.last.Profiler().TopMethods(n))
}

func printStats(w io.Writer, stats []vm.MethodStat) {
	fmt.Fprintf(w, "%-32s %8s %8s %8s %8s %8s\n", "method", "calls", "blocks", "returns", "breaks", "raises")
	for _, st := range stats {
		hot := ""
		if st.Hot {
			hot = " *"
		}
		fmt.Fprintf(w, "%-32s %8d %8d %8d %8d %8d%s\n",
			st.Method, st.Calls, st.Blocks, st.Returns, st.Breaks, st.Raises, hot)
	}
}
