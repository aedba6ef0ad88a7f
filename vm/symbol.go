package vm

import "sync"

// ---------------------------------------------------------------------------
// SymbolTable: Interned symbols
// ---------------------------------------------------------------------------

// Symbol is the ID of an interned name.
type Symbol uint32

// SymbolTable interns symbol strings to unique IDs.
// Symbols are immutable, unique strings used for identifiers.
type SymbolTable struct {
	mu     sync.RWMutex
	byName map[string]Symbol // name -> ID
	byID   []string          // ID -> name
}

// NewSymbolTable creates a new empty symbol table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		byName: make(map[string]Symbol),
		byID:   make([]string, 0, 256),
	}
}

// Intern returns the ID for a symbol, creating a new one if needed.
func (st *SymbolTable) Intern(name string) Symbol {
	// Fast path: read-only lookup
	st.mu.RLock()
	if id, ok := st.byName[name]; ok {
		st.mu.RUnlock()
		return id
	}
	st.mu.RUnlock()

	st.mu.Lock()
	defer st.mu.Unlock()

	// Double-check after acquiring write lock
	if id, ok := st.byName[name]; ok {
		return id
	}

	id := Symbol(len(st.byID))
	st.byName[name] = id
	st.byID = append(st.byID, name)
	return id
}

// Lookup returns the ID for a symbol, or 0 and false if not found.
func (st *SymbolTable) Lookup(name string) (Symbol, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	id, ok := st.byName[name]
	return id, ok
}

// Name returns the symbol name for an ID, or "" if invalid.
func (st *SymbolTable) Name(id Symbol) string {
	st.mu.RLock()
	defer st.mu.RUnlock()

	if int(id) >= len(st.byID) {
		return ""
	}
	return st.byID[id]
}

// Len returns the number of interned symbols.
func (st *SymbolTable) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.byID)
}

// symbols is shared by every VM in the process so that symbol values
// compare equal across VMs.
var symbols = NewSymbolTable()

// Intern returns the process-wide symbol for name.
func Intern(name string) Symbol {
	return symbols.Intern(name)
}

// Name returns the symbol's string form.
func (s Symbol) Name() string {
	return symbols.Name(s)
}

func (s Symbol) String() string {
	return s.Name()
}

// Sym creates a symbol Value from a name.
func Sym(name string) Value {
	return FromSymbol(Intern(name))
}
