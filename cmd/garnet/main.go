// Garnet CLI - runs the bundled programs on the engine and inspects the
// results.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/chazu/garnet/manifest"
	"github.com/chazu/garnet/profstore"
	"github.com/chazu/garnet/programs"
	"github.com/chazu/garnet/vm/snapshot"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("garnet.cli")

func main() {
	verbosity := flag.Int("v", -1, "Log verbosity (overrides garnet.toml)")
	logFile := flag.String("log", "", "Log file (default stderr)")
	configDir := flag.String("C", ".", "Directory to search upwards for garnet.toml")
	interactive := flag.Bool("i", false, "Start the interactive shell")
	list := flag.Bool("list", false, "List the bundled programs")
	top := flag.Int("top", 0, "Print the N busiest methods after each run")
	stepLimit := flag.Uint64("step-limit", 0, "Steps before StepLimitExceeded (0 keeps the configured limit)")
	timeout := flag.Duration("timeout", 0, "Interrupt a program after this long (0 keeps the configured timeout)")
	noCache := flag.Bool("no-cache", false, "Disable the method cache")
	snapFormat := flag.String("snapshot-format", "", "Snapshot encoding: cbor or yaml")
	snapDir := flag.String("snapshot-dir", "", "Directory for __debug__vm_info snapshots")
	profileDB := flag.String("profile-db", "", "SQLite database for profiler runs")
	hottest := flag.Int("hottest", 0, "Print the N hottest methods across stored runs and exit")
	dump := flag.String("dump", "", "Print a saved snapshot as YAML and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: garnet [options] [programs...]\n\n")
		fmt.Fprintf(os.Stderr, "Runs bundled programs on the garnet engine.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  garnet -list                        # Show the programs\n")
		fmt.Fprintf(os.Stderr, "  garnet hanoi return_block1          # Run two programs\n")
		fmt.Fprintf(os.Stderr, "  garnet -top 5 breaking4             # Run and show the busiest methods\n")
		fmt.Fprintf(os.Stderr, "  garnet -profile-db p.db -hottest 10 # Busiest methods over stored runs\n")
		fmt.Fprintf(os.Stderr, "  garnet -dump .garnet/snapshots/x-1.cbor\n")
		fmt.Fprintf(os.Stderr, "  garnet -i                           # Interactive shell\n")
	}
	flag.Parse()

	cfg, err := manifest.FindAndLoad(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if cfg == nil {
		cfg = manifest.Default()
	}

	if *verbosity >= 0 {
		cfg.Log.Verbosity = *verbosity
	}
	if *logFile != "" {
		cfg.Log.File = *logFile
	}
	if *stepLimit > 0 {
		cfg.Engine.StepLimit = *stepLimit
	}
	if *timeout > 0 {
		cfg.Engine.Timeout = *timeout
	}
	if *noCache {
		cfg.Engine.MethodCache = false
	}
	if *snapFormat != "" {
		if _, err := snapshot.ParseFormat(*snapFormat); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg.Debug.SnapshotFormat = *snapFormat
	}
	if *snapDir != "" {
		cfg.Debug.SnapshotDir = *snapDir
	}
	if *profileDB != "" {
		cfg.Debug.ProfileDB = *profileDB
	}

	var logPath *string
	if p := cfg.LogFilePath(); p != "" {
		logPath = &p
	}
	commonlog.Configure(cfg.Log.Verbosity, logPath)
	if cfg.Dir != "" {
		log.Debugf("using %s", cfg.Dir)
	}

	if *list {
		for _, p := range programs.All() {
			fmt.Printf("%-16s %s\n", p.Name, p.Summary)
		}
		return
	}

	if *dump != "" {
		if err := dumpSnapshot(*dump); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *hottest > 0 {
		if err := printHottest(cfg, *hottest); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	sess, err := newSession(cfg, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer sess.Close()

	names := flag.Args()
	failed := false
	for _, name := range names {
		start := time.Now()
		if err := sess.run(name); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
			failed = true
			continue
		}
		log.Debugf("%s finished in %s", name, time.Since(start))
		if *top > 0 {
			sess.printTop(os.Stdout, *top)
		}
	}

	if *interactive || len(names) == 0 {
		runShell(sess)
	}
	if failed {
		sess.Close()
		os.Exit(1)
	}
}

func dumpSnapshot(path string) error {
	info, err := snapshot.Load(path)
	if err != nil {
		return err
	}
	return snapshot.Write(os.Stdout, info, snapshot.YAML)
}

func printHottest(cfg *manifest.Manifest, n int) error {
	path := cfg.ProfileDBPath()
	if path == "" {
		return fmt.Errorf("no profile database configured (use -profile-db or [debug] profile-db)")
	}
	store, err := profstore.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()
	stats, err := store.Hottest(n)
	if err != nil {
		return err
	}
	printStats(os.Stdout, stats)
	return nil
}
