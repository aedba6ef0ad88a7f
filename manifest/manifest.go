// Package manifest handles garnet.toml engine configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/chazu/garnet/vm"
	"github.com/chazu/garnet/vm/snapshot"
)

// FileName is the configuration file looked up by Load and FindAndLoad.
const FileName = "garnet.toml"

// Manifest represents a garnet.toml configuration.
type Manifest struct {
	Engine Engine `toml:"engine"`
	Log    Log    `toml:"log"`
	Debug  Debug  `toml:"debug"`

	// Dir is the directory containing the garnet.toml file (set at load time).
	Dir string `toml:"-"`
}

// Engine configures the limits of each VM.
type Engine struct {
	MaxDepth     int           `toml:"max-depth"`
	StepLimit    uint64        `toml:"step-limit"`
	MethodCache  bool          `toml:"method-cache"`
	HotThreshold uint64        `toml:"hot-threshold"`
	Timeout      time.Duration `toml:"timeout"`
}

// Log configures commonlog.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Debug configures where snapshots and profiles go.
type Debug struct {
	SnapshotFormat string `toml:"snapshot-format"`
	SnapshotDir    string `toml:"snapshot-dir"`
	ProfileDB      string `toml:"profile-db"`
}

// Default returns the configuration used when no garnet.toml exists.
func Default() *Manifest {
	opts := vm.DefaultOptions()
	return &Manifest{
		Engine: Engine{
			MaxDepth:     opts.MaxDepth,
			StepLimit:    opts.StepLimit,
			MethodCache:  opts.MethodCache,
			HotThreshold: opts.HotThreshold,
		},
		Debug: Debug{
			SnapshotFormat: string(snapshot.YAML),
			SnapshotDir:    filepath.Join(".garnet", "snapshots"),
		},
	}
}

// Load parses a garnet.toml file from the given directory. Keys the file
// leaves out keep their Default values.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m := Default()
	md, err := toml.Decode(string(data), m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parse error in %s: unknown key %s", path, undecoded[0])
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// FindAndLoad walks up from startDir to find a garnet.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

func (m *Manifest) validate() error {
	if m.Engine.MaxDepth <= 0 {
		return fmt.Errorf("engine.max-depth must be positive, got %d", m.Engine.MaxDepth)
	}
	if m.Engine.Timeout < 0 {
		return fmt.Errorf("engine.timeout must not be negative, got %s", m.Engine.Timeout)
	}
	if _, err := snapshot.ParseFormat(m.Debug.SnapshotFormat); err != nil {
		return fmt.Errorf("debug.snapshot-format: %w", err)
	}
	return nil
}

// Options converts the engine section to VM options.
func (m *Manifest) Options() vm.Options {
	return vm.Options{
		MaxDepth:     m.Engine.MaxDepth,
		StepLimit:    m.Engine.StepLimit,
		MethodCache:  m.Engine.MethodCache,
		HotThreshold: m.Engine.HotThreshold,
	}
}

// SnapshotFormat returns the configured snapshot encoding.
func (m *Manifest) SnapshotFormat() snapshot.Format {
	f, err := snapshot.ParseFormat(m.Debug.SnapshotFormat)
	if err != nil {
		return snapshot.YAML
	}
	return f
}

// SnapshotDirPath returns the absolute snapshot directory.
func (m *Manifest) SnapshotDirPath() string {
	return m.resolve(m.Debug.SnapshotDir)
}

// ProfileDBPath returns the absolute profile database path, or "" when
// profiles are not persisted.
func (m *Manifest) ProfileDBPath() string {
	if m.Debug.ProfileDB == "" {
		return ""
	}
	return m.resolve(m.Debug.ProfileDB)
}

// LogFilePath returns the absolute log file path, or "" for stderr.
func (m *Manifest) LogFilePath() string {
	if m.Log.File == "" {
		return ""
	}
	return m.resolve(m.Log.File)
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) || m.Dir == "" {
		return p
	}
	return filepath.Join(m.Dir, p)
}
