package vm

import (
	"github.com/emirpasic/gods/maps/linkedhashmap"
)

// ---------------------------------------------------------------------------
// String: mutable, identity-bearing byte string
// ---------------------------------------------------------------------------

// String is a mutable Ruby string.
type String struct {
	header
	s string
}

// NewString allocates a string object.
func NewString(s string) *String {
	return &String{header: newHeader(), s: s}
}

// String returns the current contents.
func (s *String) String() string { return s.s }

// Set replaces the contents in place.
func (s *String) Set(v string) { s.s = v }

// Append concatenates v in place (String#<<).
func (s *String) Append(v string) { s.s += v }

// Len returns the length in bytes.
func (s *String) Len() int { return len(s.s) }

// ---------------------------------------------------------------------------
// Array: ordered mutable sequence
// ---------------------------------------------------------------------------

// Array is a mutable Ruby array.
type Array struct {
	header
	elems []Value
}

// NewArray allocates an array holding a copy of elems.
func NewArray(elems ...Value) *Array {
	cp := make([]Value, len(elems))
	copy(cp, elems)
	return &Array{header: newHeader(), elems: cp}
}

// Len returns the number of elements.
func (a *Array) Len() int { return len(a.elems) }

// Elems returns the live backing slice. Callers must not retain it across
// mutations of the array.
func (a *Array) Elems() []Value { return a.elems }

// At returns the element at i; negative indexes count from the end.
// Out-of-range reads return nil.
func (a *Array) At(i int) Value {
	if i < 0 {
		i += len(a.elems)
	}
	if i < 0 || i >= len(a.elems) {
		return Nil
	}
	return a.elems[i]
}

// Set stores v at i, growing the array with nils as needed.
// Returns false if a negative index points before the start.
func (a *Array) Set(i int, v Value) bool {
	if i < 0 {
		i += len(a.elems)
		if i < 0 {
			return false
		}
	}
	for len(a.elems) <= i {
		a.elems = append(a.elems, Nil)
	}
	a.elems[i] = v
	return true
}

// Push appends values in place.
func (a *Array) Push(vs ...Value) {
	a.elems = append(a.elems, vs...)
}

// Pop removes and returns the last element, or nil when empty.
func (a *Array) Pop() Value {
	if len(a.elems) == 0 {
		return Nil
	}
	v := a.elems[len(a.elems)-1]
	a.elems = a.elems[:len(a.elems)-1]
	return v
}

// Slice returns a fresh array with elements [from, to).
func (a *Array) Slice(from, to int) *Array {
	if from < 0 {
		from = 0
	}
	if to > len(a.elems) {
		to = len(a.elems)
	}
	if from >= to {
		return NewArray()
	}
	return NewArray(a.elems[from:to]...)
}

// Clone returns a shallow copy with a new identity.
func (a *Array) Clone() *Array {
	return NewArray(a.elems...)
}

// ---------------------------------------------------------------------------
// Hash: insertion-ordered mapping
// ---------------------------------------------------------------------------

// Hash is a mutable, insertion-ordered Ruby hash. String keys are matched
// by content; every other key kind by Value equality, which is identity for
// heap objects.
type Hash struct {
	header
	entries *linkedhashmap.Map // hashKey -> hashEntry
}

type hashEntry struct {
	key Value
	val Value
}

// stringKey distinguishes content-keyed strings from identity-keyed values.
type stringKey string

func hashKey(k Value) any {
	if k.kind == KindString {
		return stringKey(k.Str().s)
	}
	return k
}

// NewHash allocates an empty hash.
func NewHash() *Hash {
	return &Hash{header: newHeader(), entries: linkedhashmap.New()}
}

// NewHashValue allocates a hash from alternating key, value arguments.
func NewHashValue(kvs ...Value) Value {
	h := NewHash()
	for i := 0; i+1 < len(kvs); i += 2 {
		h.Set(kvs[i], kvs[i+1])
	}
	return HashValue(h)
}

// Len returns the number of entries.
func (h *Hash) Len() int { return h.entries.Size() }

// Get looks up k.
func (h *Hash) Get(k Value) (Value, bool) {
	e, ok := h.entries.Get(hashKey(k))
	if !ok {
		return Nil, false
	}
	return e.(hashEntry).val, true
}

// Fetch returns the value for k, or nil.
func (h *Hash) Fetch(k Value) Value {
	v, _ := h.Get(k)
	return v
}

// Set stores v under k. Existing keys keep their position. A string key is
// copied so later mutation of the caller's string cannot move the entry.
func (h *Hash) Set(k, v Value) {
	hk := hashKey(k)
	if old, ok := h.entries.Get(hk); ok {
		h.entries.Put(hk, hashEntry{key: old.(hashEntry).key, val: v})
		return
	}
	if k.kind == KindString {
		k = FromString(k.Str().s)
	}
	h.entries.Put(hk, hashEntry{key: k, val: v})
}

// Delete removes k, returning the removed value.
func (h *Hash) Delete(k Value) (Value, bool) {
	hk := hashKey(k)
	e, ok := h.entries.Get(hk)
	if !ok {
		return Nil, false
	}
	h.entries.Remove(hk)
	return e.(hashEntry).val, true
}

// Has reports whether k is present.
func (h *Hash) Has(k Value) bool {
	_, ok := h.entries.Get(hashKey(k))
	return ok
}

// Each visits entries in insertion order until fn returns false.
func (h *Hash) Each(fn func(k, v Value) bool) {
	it := h.entries.Iterator()
	for it.Next() {
		e := it.Value().(hashEntry)
		if !fn(e.key, e.val) {
			return
		}
	}
}

// Keys returns the keys in insertion order.
func (h *Hash) Keys() []Value {
	keys := make([]Value, 0, h.Len())
	h.Each(func(k, _ Value) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// Values returns the values in insertion order.
func (h *Hash) Values() []Value {
	vals := make([]Value, 0, h.Len())
	h.Each(func(_, v Value) bool {
		vals = append(vals, v)
		return true
	})
	return vals
}

// Clone returns a shallow copy with a new identity.
func (h *Hash) Clone() *Hash {
	c := NewHash()
	h.Each(func(k, v Value) bool {
		c.entries.Put(hashKey(k), hashEntry{key: k, val: v})
		return true
	})
	return c
}

func (h *Hash) equal(o *Hash, walking map[refPair]bool) bool {
	if h.Len() != o.Len() {
		return false
	}
	same := true
	h.Each(func(k, v Value) bool {
		ov, ok := o.Get(k)
		if !ok || !equalIn(v, ov, walking) {
			same = false
		}
		return same
	})
	return same
}
