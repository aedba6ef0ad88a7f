package vm

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Inspector provides debugging inspection of garnet Values.
// It can recursively inspect objects and their instance variables,
// providing a structured view of any value in the VM.
type Inspector struct {
	vm *VM
}

// InspectionResult contains structured information about an inspected value.
type InspectionResult struct {
	Type      string              `cbor:"1,keyasint" yaml:"type"`                // value kind: nil, bool, int, float, symbol, string, array, hash, proc, class, object
	Value     string              `cbor:"2,keyasint" yaml:"value"`               // inspect form of the value
	ClassName string              `cbor:"3,keyasint,omitempty" yaml:"class,omitempty"`
	InstVars  []InstVarInfo       `cbor:"4,keyasint,omitempty" yaml:"ivars,omitempty"`
	Size      int                 `cbor:"5,keyasint,omitempty" yaml:"size,omitempty"`     // For collections: number of elements
	Elements  []*InspectionResult `cbor:"6,keyasint,omitempty" yaml:"elements,omitempty"` // For collections: preview of elements (limited)
}

// InstVarInfo contains information about a single instance variable.
type InstVarInfo struct {
	Name  string            `cbor:"1,keyasint" yaml:"name"`
	Value *InspectionResult `cbor:"2,keyasint" yaml:"value"`
}

// MaxElementPreview is the maximum number of collection elements to preview.
const MaxElementPreview = 10

// DefaultMaxDepth is the default recursion depth for inspection.
const DefaultMaxDepth = 3

// NewInspector creates a new Inspector attached to the given VM.
func NewInspector(vm *VM) *Inspector {
	return &Inspector{vm: vm}
}

// Inspect inspects a value with the default maximum depth.
func (i *Inspector) Inspect(v Value) *InspectionResult {
	return i.InspectDepth(v, DefaultMaxDepth)
}

// InspectDepth inspects a value with a specified maximum recursion depth.
// When depth reaches 0, nested values are shown as summaries only.
func (i *Inspector) InspectDepth(v Value, depth int) *InspectionResult {
	result := &InspectionResult{
		Type:      v.kind.String(),
		Value:     Inspect(v),
		ClassName: i.vm.RealClassOf(v).FullName(),
	}
	if depth <= 0 {
		return result
	}

	switch v.kind {
	case KindArray:
		elems := v.Array().elems
		result.Size = len(elems)
		for idx := 0; idx < len(elems) && idx < MaxElementPreview; idx++ {
			result.Elements = append(result.Elements, i.InspectDepth(elems[idx], depth-1))
		}
	case KindHash:
		h := v.Hash()
		result.Size = h.Len()
		h.Each(func(k, val Value) bool {
			if len(result.Elements) >= MaxElementPreview {
				return false
			}
			result.Elements = append(result.Elements, i.InspectDepth(NewArrayValue(k, val), depth-1))
			return true
		})
	case KindObject, KindClass:
		var t *ivarTable
		if v.kind == KindObject {
			t = &v.Object().ivarTable
		} else {
			t = &v.Class().ivarTable
		}
		for _, name := range t.ivarOrder {
			result.InstVars = append(result.InstVars, InstVarInfo{
				Name:  name,
				Value: i.InspectDepth(t.ivars[name], depth-1),
			})
		}
	}
	return result
}

// String returns a pretty-printed representation of the inspection result.
func (r *InspectionResult) String() string {
	return r.stringWithIndent(0)
}

func (r *InspectionResult) stringWithIndent(indent int) string {
	var sb strings.Builder
	prefix := strings.Repeat("  ", indent)

	sb.WriteString(prefix)
	sb.WriteString(r.Type)
	sb.WriteString(": ")
	sb.WriteString(r.Value)
	sb.WriteString("\n")

	if r.ClassName != "" && r.ClassName != r.Type {
		sb.WriteString(prefix)
		sb.WriteString("  class: ")
		sb.WriteString(r.ClassName)
		sb.WriteString("\n")
	}

	if len(r.InstVars) > 0 {
		sb.WriteString(prefix)
		sb.WriteString("  instance variables:\n")
		for _, iv := range r.InstVars {
			sb.WriteString(prefix)
			sb.WriteString("    ")
			sb.WriteString(iv.Name)
			sb.WriteString(": ")
			if iv.Value != nil {
				sb.WriteString(iv.Value.Value)
			} else {
				sb.WriteString("<nil>")
			}
			sb.WriteString("\n")
		}
	}

	if len(r.Elements) > 0 {
		sb.WriteString(prefix)
		sb.WriteString(fmt.Sprintf("  elements (showing %d of %d):\n", len(r.Elements), r.Size))
		for idx, elem := range r.Elements {
			sb.WriteString(prefix)
			sb.WriteString(fmt.Sprintf("    [%d]: ", idx))
			sb.WriteString(elem.Value)
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// ---------------------------------------------------------------------------
// VM snapshots
// ---------------------------------------------------------------------------

// VMInfo is a point-in-time view of the engine, taken by
// __debug__vm_info and by hosts that want to dump state.
type VMInfo struct {
	Session  string        `cbor:"1,keyasint" yaml:"session"`
	Taken    time.Time     `cbor:"2,keyasint" yaml:"taken"`
	Depth    int           `cbor:"3,keyasint" yaml:"depth"`
	Steps    uint64        `cbor:"4,keyasint" yaml:"steps"`
	Frames   []FrameInfo   `cbor:"5,keyasint" yaml:"frames"`
	Cache    CacheStats    `cbor:"6,keyasint" yaml:"cache"`
	Profile  ProfilerStats `cbor:"7,keyasint" yaml:"profile"`
	Globals  []LocalInfo   `cbor:"8,keyasint,omitempty" yaml:"globals,omitempty"`
	Classes  int           `cbor:"9,keyasint" yaml:"classes"`
	Hottest  []MethodStat  `cbor:"10,keyasint,omitempty" yaml:"hottest,omitempty"`
}

// FrameInfo describes one live frame, innermost first in VMInfo.Frames.
type FrameInfo struct {
	Label    string      `cbor:"1,keyasint" yaml:"label"`
	Kind     string      `cbor:"2,keyasint" yaml:"kind"`
	Self     string      `cbor:"3,keyasint" yaml:"self"`
	Locals   []LocalInfo `cbor:"4,keyasint,omitempty" yaml:"locals,omitempty"`
	Block    bool        `cbor:"5,keyasint" yaml:"block"`
	Home     string      `cbor:"6,keyasint,omitempty" yaml:"home,omitempty"`
	Handlers []string    `cbor:"7,keyasint,omitempty" yaml:"handlers,omitempty"`
}

// LocalInfo is a named value rendered with inspect.
type LocalInfo struct {
	Name  string `cbor:"1,keyasint" yaml:"name"`
	Value string `cbor:"2,keyasint" yaml:"value"`
}

// Snapshot captures the VM's current state.
func (vm *VM) Snapshot() *VMInfo {
	frames := vm.interp.frames
	info := &VMInfo{
		Session: vm.ID.String(),
		Taken:   time.Now().UTC(),
		Depth:   len(frames),
		Steps:   vm.interp.steps,
		Cache:   vm.cache.Stats(),
		Profile: vm.profiler.Stats(),
		Hottest: vm.profiler.TopMethods(5),
		Classes: countClasses(vm.ObjectClass, map[*Class]bool{}),
	}
	for i := len(frames) - 1; i >= 0; i-- {
		info.Frames = append(info.Frames, frameInfo(vm, frames[i]))
	}
	for name, v := range vm.Globals {
		info.Globals = append(info.Globals, LocalInfo{Name: name, Value: Inspect(v)})
	}
	sort.Slice(info.Globals, func(i, j int) bool { return info.Globals[i].Name < info.Globals[j].Name })
	return info
}

func frameInfo(vm *VM, fr *Frame) FrameInfo {
	fi := FrameInfo{
		Label: fr.Label(),
		Kind:  fr.kind.String(),
		Self:  Inspect(fr.self),
		Block: fr.BlockGiven(),
	}
	if fr.self == vm.Main {
		fi.Self = "main"
	}
	if fr.home != nil && fr.home != fr {
		fi.Home = fr.home.Label()
	}
	seen := map[string]bool{}
	for e := fr.env; e != nil; e = e.parent {
		for _, name := range e.order {
			if seen[name] {
				continue
			}
			seen[name] = true
			fi.Locals = append(fi.Locals, LocalInfo{Name: name, Value: Inspect(e.vars[name])})
		}
	}
	for _, h := range fr.handlers {
		var names []string
		for _, c := range h.Classes(vm) {
			names = append(names, c.FullName())
		}
		fi.Handlers = append(fi.Handlers, strings.Join(names, ", "))
	}
	return fi
}

// countClasses counts the classes and modules reachable through constants.
func countClasses(c *Class, seen map[*Class]bool) int {
	if seen[c] {
		return 0
	}
	seen[c] = true
	n := 1
	for _, v := range c.consts {
		if v.IsClass() {
			n += countClasses(v.Class(), seen)
		}
	}
	return n
}

// debugVMInfo implements Kernel#__debug__vm_info: it snapshots the VM,
// logs a summary and hands the snapshot to the host hook.
func (fr *Frame) debugVMInfo() Value {
	info := fr.vm.Snapshot()
	log.Infof("vm %s: depth %d, steps %d, cache hit rate %.1f%%",
		info.Session, info.Depth, info.Steps, info.Cache.HitRate())
	if fr.vm.OnDebug != nil {
		fr.vm.OnDebug(info)
	}
	return Nil
}
