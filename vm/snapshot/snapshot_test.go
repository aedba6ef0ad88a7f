package snapshot

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/garnet/vm"
)

// takeSnapshot captures a VM inside a block so the snapshot has nested
// frames, locals and a rescue handler.
func takeSnapshot(t *testing.T) *vm.VMInfo {
	t.Helper()
	v := vm.NewVM()
	v.SetGlobal("$count", vm.FromInt(3))
	var info *vm.VMInfo
	v.OnDebug = func(i *vm.VMInfo) { info = i }

	worker := v.DefineClass("Worker", nil)
	worker.Define("run", vm.Params{Required: []string{"limit"}}, func(fr *vm.Frame) (vm.Value, error) {
		return fr.Rescue(func() (vm.Value, error) {
			return fr.SendWith(vm.NewArrayValue(vm.FromInt(1)), "each", vm.Args{
				Block: fr.Block(vm.Params{Required: []string{"x"}}, func(bf *vm.Frame) (vm.Value, error) {
					return bf.Call("__debug__vm_info")
				}),
			})
		}, vm.RescueClause{Classes: []*vm.Class{v.ArgumentErrorClass}})
	})
	_, err := v.Run("snapshot", func(fr *vm.Frame) (vm.Value, error) {
		return fr.Send(vm.ObjectValue(vm.NewObject(worker)), "run", vm.FromInt(7))
	})
	if err != nil {
		t.Fatal(vm.FormatError(err))
	}
	if info == nil {
		t.Fatal("snapshot hook not called")
	}
	return info
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		ok   bool
	}{
		{"cbor", CBOR, true},
		{"YAML", YAML, true},
		{" yml ", YAML, true},
		{"json", "", false},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	info := takeSnapshot(t)
	for _, f := range []Format{CBOR, YAML} {
		t.Run(string(f), func(t *testing.T) {
			data, err := Marshal(info, f)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			got, err := Unmarshal(data, f)
			if err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if got.Session != info.Session || got.Depth != info.Depth || got.Classes != info.Classes {
				t.Errorf("header mismatch: got %+v", got)
			}
			if got.Taken.Unix() != info.Taken.Unix() {
				t.Errorf("Taken = %v, want %v", got.Taken, info.Taken)
			}
			if len(got.Frames) != len(info.Frames) {
				t.Fatalf("frames = %d, want %d", len(got.Frames), len(info.Frames))
			}
			for i := range got.Frames {
				if got.Frames[i].Label != info.Frames[i].Label {
					t.Errorf("frame %d = %q, want %q", i, got.Frames[i].Label, info.Frames[i].Label)
				}
			}
			if got.Cache != info.Cache || got.Profile != info.Profile {
				t.Error("counters lost in round trip")
			}
			if len(got.Globals) != 1 || got.Globals[0].Name != "$count" {
				t.Errorf("globals = %+v", got.Globals)
			}
		})
	}
}

func TestCBORIsDeterministic(t *testing.T) {
	info := takeSnapshot(t)
	a, err := Marshal(info, CBOR)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Marshal(info, CBOR)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("canonical encoding should be stable")
	}
}

func TestYAMLIsReadable(t *testing.T) {
	info := takeSnapshot(t)
	var buf bytes.Buffer
	if err := Write(&buf, info, YAML); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"label: block in Worker#run",
		"label: Worker#run",
		"handlers:",
		"- ArgumentError",
		"name: limit",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("YAML output missing %q:\n%s", want, out)
		}
	}
}

func TestSaveAndLoad(t *testing.T) {
	info := takeSnapshot(t)
	dir := filepath.Join(t.TempDir(), "snaps")

	first, err := Save(dir, info, YAML)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Save(dir, info, YAML)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(first) != info.Session+"-1.yaml" || filepath.Base(second) != info.Session+"-2.yaml" {
		t.Errorf("paths = %s, %s", first, second)
	}

	cborPath, err := Save(dir, info, CBOR)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Load(cborPath)
	if err != nil {
		t.Fatal(err)
	}
	if got.Session != info.Session {
		t.Errorf("Load session = %q", got.Session)
	}

	if _, err := Load(filepath.Join(dir, "x.json")); err == nil {
		t.Error("unknown extension should fail")
	}
	if _, err := Unmarshal([]byte("\xff\xff"), CBOR); err == nil || !strings.Contains(err.Error(), "snapshot: unmarshal cbor") {
		t.Errorf("bad data error = %v", err)
	}
}
