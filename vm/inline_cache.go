package vm

// Method caching for dispatch
//
// Each method name gets its own cache that progresses through the usual
// states:
// - monomorphic: one receiver class seen for this name
// - polymorphic: up to MaxPICEntries classes
// - megamorphic: too many classes, always do the full ancestor walk
//
// Any method-table or hierarchy change bumps the VM's method serial and
// the whole table is flushed on the next lookup.

// CacheState represents the current state of a method cache.
type CacheState uint8

const (
	CacheEmpty       CacheState = iota // No cached lookup yet
	CacheMonomorphic                   // Single (class, method) cached
	CachePolymorphic                   // 2-6 entries
	CacheMegamorphic                   // Too many classes, use full lookup
)

// MaxPICEntries is the maximum number of classes a cache tracks per name.
const MaxPICEntries = 6

// InlineCacheEntry holds a single cached lookup result.
type InlineCacheEntry struct {
	Class  *Class
	Method *Method
}

// InlineCache is the cache for one method name.
type InlineCache struct {
	State   CacheState
	Entries [MaxPICEntries]InlineCacheEntry
	Count   int

	Hits   uint64
	Misses uint64
}

// Lookup returns the cached method for class, or nil on a miss.
func (ic *InlineCache) Lookup(class *Class) *Method {
	switch ic.State {
	case CacheMonomorphic, CachePolymorphic:
		for i := 0; i < ic.Count; i++ {
			if ic.Entries[i].Class == class {
				ic.Hits++
				return ic.Entries[i].Method
			}
		}
	}
	ic.Misses++
	return nil
}

// Update records a (class, method) pair, upgrading the state as needed.
// Failed lookups are never cached.
func (ic *InlineCache) Update(class *Class, method *Method) {
	if method == nil {
		return
	}

	switch ic.State {
	case CacheEmpty:
		ic.State = CacheMonomorphic
		ic.Entries[0] = InlineCacheEntry{Class: class, Method: method}
		ic.Count = 1

	case CacheMonomorphic, CachePolymorphic:
		for i := 0; i < ic.Count; i++ {
			if ic.Entries[i].Class == class {
				ic.Entries[i].Method = method
				return
			}
		}
		if ic.Count < MaxPICEntries {
			ic.Entries[ic.Count] = InlineCacheEntry{Class: class, Method: method}
			ic.Count++
			ic.State = CachePolymorphic
			return
		}
		ic.State = CacheMegamorphic
		for i := range ic.Entries {
			ic.Entries[i] = InlineCacheEntry{}
		}
		ic.Count = 0

	case CacheMegamorphic:
	}
}

// HitRate returns the cache hit rate as a percentage (0-100).
func (ic *InlineCache) HitRate() float64 {
	total := ic.Hits + ic.Misses
	if total == 0 {
		return 0
	}
	return float64(ic.Hits) * 100 / float64(total)
}

// Reset clears the cache back to empty state.
func (ic *InlineCache) Reset() {
	*ic = InlineCache{}
}

// flush drops the entries but keeps the hit statistics.
func (ic *InlineCache) flush() {
	ic.State = CacheEmpty
	ic.Count = 0
	ic.Entries = [MaxPICEntries]InlineCacheEntry{}
}

// ---------------------------------------------------------------------------
// MethodCache: per-VM table of name caches
// ---------------------------------------------------------------------------

// MethodCache maps method names to their caches and tracks the VM serial
// the entries were filled under.
type MethodCache struct {
	vm      *VM
	enabled bool
	serial  uint64
	caches  map[string]*InlineCache

	flushes uint64
}

func newMethodCache(vm *VM, enabled bool) *MethodCache {
	return &MethodCache{
		vm:      vm,
		enabled: enabled,
		caches:  make(map[string]*InlineCache),
	}
}

func (t *MethodCache) validate() {
	if t.serial != t.vm.methodSerial {
		for _, ic := range t.caches {
			ic.flush()
		}
		t.serial = t.vm.methodSerial
		t.flushes++
	}
}

// Lookup returns the cached method for (class, name), or nil.
func (t *MethodCache) Lookup(class *Class, name string) *Method {
	if !t.enabled {
		return nil
	}
	t.validate()
	ic := t.caches[name]
	if ic == nil {
		ic = &InlineCache{}
		t.caches[name] = ic
	}
	return ic.Lookup(class)
}

// Update records a successful resolution.
func (t *MethodCache) Update(class *Class, name string, m *Method) {
	if !t.enabled {
		return
	}
	t.validate()
	if ic := t.caches[name]; ic != nil {
		ic.Update(class, m)
	}
}

// Get returns the cache for name, or nil if none exists.
func (t *MethodCache) Get(name string) *InlineCache {
	return t.caches[name]
}

// CacheStats holds aggregate method cache statistics.
type CacheStats struct {
	Monomorphic int    `cbor:"1,keyasint" yaml:"monomorphic"`
	Polymorphic int    `cbor:"2,keyasint" yaml:"polymorphic"`
	Megamorphic int    `cbor:"3,keyasint" yaml:"megamorphic"`
	Hits        uint64 `cbor:"4,keyasint" yaml:"hits"`
	Misses      uint64 `cbor:"5,keyasint" yaml:"misses"`
	Flushes     uint64 `cbor:"6,keyasint" yaml:"flushes"`
}

// Stats returns aggregate statistics for all caches in the table.
func (t *MethodCache) Stats() CacheStats {
	s := CacheStats{Flushes: t.flushes}
	for _, ic := range t.caches {
		switch ic.State {
		case CacheMonomorphic:
			s.Monomorphic++
		case CachePolymorphic:
			s.Polymorphic++
		case CacheMegamorphic:
			s.Megamorphic++
		}
		s.Hits += ic.Hits
		s.Misses += ic.Misses
	}
	return s
}

// HitRate returns the aggregate hit rate for all caches.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) * 100 / float64(total)
}
