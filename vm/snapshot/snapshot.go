// Package snapshot encodes the engine's debug snapshots for storage and
// transport. CBOR is the compact form written by hosts that archive
// snapshots; YAML is the form people read.
package snapshot

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/garnet/vm"
	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

// Format names an encoding.
type Format string

const (
	CBOR Format = "cbor"
	YAML Format = "yaml"
)

// ParseFormat accepts a format name in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case CBOR, YAML:
		return f, nil
	case "yml":
		return YAML, nil
	}
	return "", fmt.Errorf("snapshot: unknown format %q (want cbor or yaml)", s)
}

// Ext returns the file extension for f, including the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// cborEncMode uses canonical mode so that equal snapshots encode to equal
// bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("snapshot: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal encodes info in format f.
func Marshal(info *vm.VMInfo, f Format) ([]byte, error) {
	switch f {
	case CBOR:
		return cborEncMode.Marshal(info)
	case YAML:
		return yaml.Marshal(info)
	}
	return nil, fmt.Errorf("snapshot: unknown format %q", f)
}

// Unmarshal decodes a snapshot encoded in format f.
func Unmarshal(data []byte, f Format) (*vm.VMInfo, error) {
	var info vm.VMInfo
	var err error
	switch f {
	case CBOR:
		err = cbor.Unmarshal(data, &info)
	case YAML:
		err = yaml.Unmarshal(data, &info)
	default:
		return nil, fmt.Errorf("snapshot: unknown format %q", f)
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: unmarshal %s: %w", f, err)
	}
	return &info, nil
}

// Write encodes info to w.
func Write(w io.Writer, info *vm.VMInfo, f Format) error {
	data, err := Marshal(info, f)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Save writes info into dir as <session>-<n><ext>, where n counts the
// snapshots already saved for the session, and returns the path.
func Save(dir string, info *vm.VMInfo, f Format) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("snapshot: create %s: %w", dir, err)
	}
	existing, err := filepath.Glob(filepath.Join(dir, info.Session+"-*"+f.Ext()))
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%d%s", info.Session, len(existing)+1, f.Ext()))
	data, err := Marshal(info, f)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("snapshot: write %s: %w", path, err)
	}
	return path, nil
}

// Load reads a snapshot file, choosing the format from its extension.
func Load(path string) (*vm.VMInfo, error) {
	f, err := ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read %s: %w", path, err)
	}
	return Unmarshal(data, f)
}
