package vm

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Profiler tracks method and block activity to identify hot code and to
// show how control leaves each method:
// - invocations of the method itself and of blocks defined in it
// - returns and breaks consumed by its activations
// - exceptions raised from it

// MethodProfile holds profiling data for a single method.
type MethodProfile struct {
	Calls   uint64 // method activations
	Blocks  uint64 // activations of blocks defined in the method
	Returns uint64 // explicit returns consumed by the method's frames
	Breaks  uint64 // breaks that ended one of its activations
	Raises  uint64 // exceptions raised while it was the innermost method
	IsHot   bool   // True if threshold exceeded
}

// Profiler manages profiling for all methods in the VM.
type Profiler struct {
	// Profile storage (thread-safe)
	profiles sync.Map // *Method -> *MethodProfile

	// HotThreshold is the call count that marks a method hot.
	HotThreshold uint64

	// Callback when a method becomes hot
	OnHot func(m *Method, profile *MethodProfile)

	hotCount uint64
}

// NewProfiler creates a new profiler with default thresholds.
func NewProfiler() *Profiler {
	return &Profiler{HotThreshold: 1000}
}

func (p *Profiler) profile(m *Method) *MethodProfile {
	val, _ := p.profiles.LoadOrStore(m, &MethodProfile{})
	return val.(*MethodProfile)
}

// recordCall increments the call count for a method.
// Returns true if this call caused the method to become hot.
func (p *Profiler) recordCall(m *Method) bool {
	if m == nil {
		return false
	}
	profile := p.profile(m)
	count := atomic.AddUint64(&profile.Calls, 1)

	if !profile.IsHot && p.HotThreshold > 0 && count >= p.HotThreshold {
		profile.IsHot = true
		atomic.AddUint64(&p.hotCount, 1)
		log.Noticef("hot method %s after %d calls", m.Label(), count)
		if p.OnHot != nil {
			p.OnHot(m, profile)
		}
		return true
	}
	return false
}

func (p *Profiler) recordBlock(m *Method) {
	if m != nil {
		atomic.AddUint64(&p.profile(m).Blocks, 1)
	}
}

func (p *Profiler) recordReturn(m *Method) {
	if m != nil {
		atomic.AddUint64(&p.profile(m).Returns, 1)
	}
}

func (p *Profiler) recordBreak(m *Method) {
	if m != nil {
		atomic.AddUint64(&p.profile(m).Breaks, 1)
	}
}

func (p *Profiler) recordRaise(m *Method) {
	if m != nil {
		atomic.AddUint64(&p.profile(m).Raises, 1)
	}
}

// GetMethodProfile returns the profile for a method, or nil if not tracked.
func (p *Profiler) GetMethodProfile(m *Method) *MethodProfile {
	if val, ok := p.profiles.Load(m); ok {
		return val.(*MethodProfile)
	}
	return nil
}

// IsMethodHot returns true if the method has exceeded the hot threshold.
func (p *Profiler) IsMethodHot(m *Method) bool {
	profile := p.GetMethodProfile(m)
	return profile != nil && profile.IsHot
}

// ProfilerStats holds aggregate profiling statistics.
type ProfilerStats struct {
	TotalMethods int    `cbor:"1,keyasint" yaml:"total_methods"`
	HotMethods   int    `cbor:"2,keyasint" yaml:"hot_methods"`
	Calls        uint64 `cbor:"3,keyasint" yaml:"calls"`
	Blocks       uint64 `cbor:"4,keyasint" yaml:"blocks"`
	Returns      uint64 `cbor:"5,keyasint" yaml:"returns"`
	Breaks       uint64 `cbor:"6,keyasint" yaml:"breaks"`
	Raises       uint64 `cbor:"7,keyasint" yaml:"raises"`
}

// Stats returns aggregate profiling statistics.
func (p *Profiler) Stats() ProfilerStats {
	var stats ProfilerStats
	p.profiles.Range(func(_, value any) bool {
		profile := value.(*MethodProfile)
		stats.TotalMethods++
		stats.Calls += atomic.LoadUint64(&profile.Calls)
		stats.Blocks += atomic.LoadUint64(&profile.Blocks)
		stats.Returns += atomic.LoadUint64(&profile.Returns)
		stats.Breaks += atomic.LoadUint64(&profile.Breaks)
		stats.Raises += atomic.LoadUint64(&profile.Raises)
		if profile.IsHot {
			stats.HotMethods++
		}
		return true
	})
	return stats
}

// MethodStat is a flattened, storable view of one method's profile.
type MethodStat struct {
	Method  string `cbor:"1,keyasint" yaml:"method"`
	Calls   uint64 `cbor:"2,keyasint" yaml:"calls"`
	Blocks  uint64 `cbor:"3,keyasint" yaml:"blocks"`
	Returns uint64 `cbor:"4,keyasint" yaml:"returns"`
	Breaks  uint64 `cbor:"5,keyasint" yaml:"breaks"`
	Raises  uint64 `cbor:"6,keyasint" yaml:"raises"`
	Hot     bool   `cbor:"7,keyasint" yaml:"hot"`
}

// Snapshot returns every profiled method, busiest first.
func (p *Profiler) Snapshot() []MethodStat {
	var out []MethodStat
	p.profiles.Range(func(key, value any) bool {
		m := key.(*Method)
		profile := value.(*MethodProfile)
		out = append(out, MethodStat{
			Method:  m.Label(),
			Calls:   atomic.LoadUint64(&profile.Calls),
			Blocks:  atomic.LoadUint64(&profile.Blocks),
			Returns: atomic.LoadUint64(&profile.Returns),
			Breaks:  atomic.LoadUint64(&profile.Breaks),
			Raises:  atomic.LoadUint64(&profile.Raises),
			Hot:     profile.IsHot,
		})
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Calls != out[j].Calls {
			return out[i].Calls > out[j].Calls
		}
		return out[i].Method < out[j].Method
	})
	return out
}

// TopMethods returns the N most frequently called methods.
func (p *Profiler) TopMethods(n int) []MethodStat {
	all := p.Snapshot()
	if n < len(all) {
		all = all[:n]
	}
	return all
}

// Reset clears all profiling data.
func (p *Profiler) Reset() {
	p.profiles.Range(func(key, _ any) bool {
		p.profiles.Delete(key)
		return true
	})
	atomic.StoreUint64(&p.hotCount, 0)
}
