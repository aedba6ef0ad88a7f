package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chazu/garnet/programs"
	"github.com/chazu/garnet/vm/snapshot"
	"github.com/peterh/liner"
)

const historyFile = ".garnet_history"

var shellCommands = []string{"help", "list", "run", "top", "snapshots", "show", "info", "runs", "quit"}

func runShell(sess *session) {
	fmt.Println("garnet shell (type 'help' for commands)")

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(completer)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	for {
		line, err := ln.Prompt("garnet> ")
		if err != nil {
			if !errors.Is(err, liner.ErrPromptAborted) && !errors.Is(err, io.EOF) {
				log.Errorf("prompt: %s", err)
			}
			fmt.Println()
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ln.AppendHistory(line)
		if done := shellCommand(sess, os.Stdout, strings.Fields(line)); done {
			return
		}
	}
}

func completer(line string) []string {
	var out []string
	fields := strings.Fields(line)
	if len(fields) >= 1 && (fields[0] == "run" || fields[0] == "runs") {
		prefix := ""
		if len(fields) > 1 {
			prefix = fields[len(fields)-1]
		}
		head := strings.TrimSuffix(line, prefix)
		for _, name := range programs.Names() {
			if strings.HasPrefix(name, prefix) {
				out = append(out, head+name)
			}
		}
		return out
	}
	for _, c := range append(append([]string{}, shellCommands...), programs.Names()...) {
		if strings.HasPrefix(c, line) {
			out = append(out, c)
		}
	}
	return out
}

// shellCommand runs one shell command and reports whether the shell
// should exit.
func shellCommand(sess *session, w io.Writer, args []string) bool {
	switch args[0] {
	case "help", "?":
		fmt.Fprintln(w, "Commands:")
		fmt.Fprintln(w, "  list              Show the bundled programs")
		fmt.Fprintln(w, "  run NAME...       Run programs (a bare NAME works too)")
		fmt.Fprintln(w, "  top [N]           Busiest methods of the last run")
		fmt.Fprintln(w, "  snapshots         Snapshots taken by __debug__vm_info in the last run")
		fmt.Fprintln(w, "  show N            Print snapshot N as YAML")
		fmt.Fprintln(w, "  info              Engine state of the last run's VM")
		fmt.Fprintln(w, "  runs [NAME]       Stored profiler runs")
		fmt.Fprintln(w, "  quit              Leave the shell")
	case "quit", "exit":
		return true
	case "list":
		for _, p := range programs.All() {
			fmt.Fprintf(w, "%-16s %s\n", p.Name, p.Summary)
		}
	case "run":
		for _, name := range args[1:] {
			runInShell(sess, w, name)
		}
	case "top":
		sess.printTop(w, intArg(args, 10))
	case "snapshots":
		for i, info := range sess.snapshots {
			inner := ""
			if len(info.Frames) > 0 {
				inner = info.Frames[0].Label
			}
			fmt.Fprintf(w, "%d: depth %d, %d frames, innermost %s\n", i+1, info.Depth, len(info.Frames), inner)
		}
		if len(sess.snapshots) == 0 {
			fmt.Fprintln(w, "no snapshots")
		}
	case "show":
		n := intArg(args, 1)
		if n < 1 || n > len(sess.snapshots) {
			fmt.Fprintf(w, "no snapshot %d\n", n)
			break
		}
		if err := snapshot.Write(w, sess.snapshots[n-1], snapshot.YAML); err != nil {
			fmt.Fprintf(w, "error: %v\n", err)
		}
	case "info":
		if sess.last == nil {
			fmt.Fprintln(w, "nothing has run yet")
			break
		}
		if err := snapshot.Write(w, sess.last.Snapshot(), snapshot.YAML); err != nil {
			fmt.Fprintf(w, "error: %v\n", err)
		}
	case "runs":
		if sess.store == nil {
			fmt.Fprintln(w, "no profile database configured")
			break
		}
		program := ""
		if len(args) > 1 {
			program = args[1]
		}
		runs, err := sess.store.Runs(program)
		if err != nil {
			fmt.Fprintf(w, "error: %v\n", err)
			break
		}
		for _, r := range runs {
			status := "ok"
			if r.Error != "" {
				status = "failed"
			}
			fmt.Fprintf(w, "%s  %-16s %s  %10s  %s\n", r.ID, r.Program, r.Started.Format("2006-01-02 15:04:05"), r.Elapsed, status)
		}
	default:
		if _, ok := programs.Lookup(args[0]); ok {
			runInShell(sess, w, args[0])
			break
		}
		fmt.Fprintf(w, "unknown command %q (type 'help')\n", args[0])
	}
	return false
}

func runInShell(sess *session, w io.Writer, name string) {
	if err := sess.run(name); err != nil {
		fmt.Fprintf(w, "%s: %v\n", name, err)
	}
}

func intArg(args []string, def int) int {
	if len(args) < 2 {
		return def
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return def
	}
	return n
}
