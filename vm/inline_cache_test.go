package vm

import "testing"

func TestInlineCacheStates(t *testing.T) {
	vm := NewVM()
	var ic InlineCache
	m := &Method{Name: "m"}

	if ic.Lookup(vm.ObjectClass) != nil {
		t.Error("empty cache should miss")
	}
	ic.Update(vm.ObjectClass, m)
	if ic.State != CacheMonomorphic {
		t.Errorf("state = %d, want monomorphic", ic.State)
	}
	if ic.Lookup(vm.ObjectClass) != m {
		t.Error("expected a hit")
	}

	ic.Update(vm.StringClass, m)
	if ic.State != CachePolymorphic || ic.Count != 2 {
		t.Errorf("state = %d count = %d, want polymorphic with 2", ic.State, ic.Count)
	}

	classes := []*Class{vm.IntegerClass, vm.FloatClass, vm.ArrayClass, vm.HashClass, vm.SymbolClass}
	for _, c := range classes {
		ic.Update(c, m)
	}
	if ic.State != CacheMegamorphic || ic.Count != 0 {
		t.Errorf("state = %d, want megamorphic", ic.State)
	}
	if ic.Lookup(vm.ObjectClass) != nil {
		t.Error("megamorphic caches always miss")
	}

	if ic.Hits != 1 || ic.Misses != 2 {
		t.Errorf("hits = %d misses = %d, want 1 and 2", ic.Hits, ic.Misses)
	}
	if rate := ic.HitRate(); rate < 33 || rate > 34 {
		t.Errorf("hit rate = %f", rate)
	}

	ic.Reset()
	if ic.State != CacheEmpty || ic.Hits != 0 {
		t.Error("Reset should clear everything")
	}
}

func TestInlineCacheIgnoresFailures(t *testing.T) {
	vm := NewVM()
	var ic InlineCache
	ic.Update(vm.ObjectClass, nil)
	if ic.State != CacheEmpty {
		t.Error("failed lookups must not be cached")
	}
}

func TestMethodCacheFlushOnSerialChange(t *testing.T) {
	vm := NewVM()
	c := vm.DefineClass("C", nil)
	m := c.Define("v", Params{}, constBody(Nil))
	cache := vm.MethodCache()

	if cache.Lookup(c, "v") != nil {
		t.Fatal("fresh cache should miss")
	}
	cache.Update(c, "v", m)
	if cache.Lookup(c, "v") != m {
		t.Fatal("expected a hit")
	}
	before := cache.Stats().Flushes

	c.Define("w", Params{}, constBody(Nil))
	if cache.Lookup(c, "v") != nil {
		t.Error("entries should be dropped after a method table change")
	}
	s := cache.Stats()
	if s.Flushes != before+1 {
		t.Errorf("flushes = %d, want %d", s.Flushes, before+1)
	}
	if s.Hits == 0 {
		t.Error("flushing should keep hit statistics")
	}
	if cache.Get("v") == nil || cache.Get("never") != nil {
		t.Error("Get should only return caches that were created")
	}
}

func TestCacheStatsHitRate(t *testing.T) {
	s := CacheStats{Hits: 3, Misses: 1}
	if s.HitRate() != 75 {
		t.Errorf("HitRate = %f, want 75", s.HitRate())
	}
	if (CacheStats{}).HitRate() != 0 {
		t.Error("empty stats should report 0")
	}
}
