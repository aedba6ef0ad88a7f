package vm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync/atomic"
)

// Value represents a Ruby value.
//
// A Value is a small comparable struct. Primitive kinds (nil, booleans,
// integers, floats, symbols) live entirely in the struct and compare by
// value. Identity-bearing kinds (strings, arrays, hashes, procs, classes,
// objects) hold a pointer in ref, so every copy of the Value aliases the
// same heap object and == on two Values is object identity.
type Value struct {
	kind Kind
	bits uint64
	ref  any
}

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindFloat
	KindSymbol
	KindString
	KindArray
	KindHash
	KindProc
	KindClass
	KindObject
)

var kindNames = [...]string{
	KindNil:    "nil",
	KindBool:   "bool",
	KindInt:    "int",
	KindFloat:  "float",
	KindSymbol: "symbol",
	KindString: "string",
	KindArray:  "array",
	KindHash:   "hash",
	KindProc:   "proc",
	KindClass:  "class",
	KindObject: "object",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Pre-defined special values
var (
	Nil   = Value{}
	True  = Value{kind: KindBool, bits: 1}
	False = Value{kind: KindBool}
)

// ---------------------------------------------------------------------------
// Object identity
// ---------------------------------------------------------------------------

// header is embedded in every identity-bearing heap object.
type header struct {
	id uint64
}

var lastObjectID atomic.Uint64

func newHeader() header {
	// Ruby hands out multiples of 8 for heap objects; keep the same shape
	// so ids never collide with the tagged ids of immediates.
	return header{id: (lastObjectID.Add(1) + 1) << 3}
}

// ObjectID returns the object's identity number.
func (h *header) ObjectID() uint64 { return h.id }

// ---------------------------------------------------------------------------
// Type checking
// ---------------------------------------------------------------------------

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNil() bool    { return v.kind == KindNil }
func (v Value) IsBool() bool   { return v.kind == KindBool }
func (v Value) IsTrue() bool   { return v == True }
func (v Value) IsFalse() bool  { return v == False }
func (v Value) IsInt() bool    { return v.kind == KindInt }
func (v Value) IsFloat() bool  { return v.kind == KindFloat }
func (v Value) IsSymbol() bool { return v.kind == KindSymbol }
func (v Value) IsString() bool { return v.kind == KindString }
func (v Value) IsArray() bool  { return v.kind == KindArray }
func (v Value) IsHash() bool   { return v.kind == KindHash }
func (v Value) IsProc() bool   { return v.kind == KindProc }
func (v Value) IsClass() bool  { return v.kind == KindClass }
func (v Value) IsObject() bool { return v.kind == KindObject }

// IsNumeric returns true for integers and floats.
func (v Value) IsNumeric() bool { return v.kind == KindInt || v.kind == KindFloat }

// IsImmediate returns true for values that carry no heap identity.
func (v Value) IsImmediate() bool { return v.kind <= KindSymbol }

// IsTruthy returns true unless v is nil or false.
func (v Value) IsTruthy() bool {
	return v.kind != KindNil && v != False
}

// IsFalsy returns true if v is nil or false.
func (v Value) IsFalsy() bool {
	return !v.IsTruthy()
}

// ---------------------------------------------------------------------------
// Constructors and accessors
// ---------------------------------------------------------------------------

// FromInt creates an integer value.
func FromInt(n int64) Value {
	return Value{kind: KindInt, bits: uint64(n)}
}

// Int returns the integer payload.
// Panics if v is not an integer.
func (v Value) Int() int64 {
	if v.kind != KindInt {
		panic("Value.Int: not an integer")
	}
	return int64(v.bits)
}

// FromFloat64 creates a float value.
func FromFloat64(f float64) Value {
	return Value{kind: KindFloat, bits: math.Float64bits(f)}
}

// Float64 returns the float payload.
// Panics if v is not a float.
func (v Value) Float64() float64 {
	if v.kind != KindFloat {
		panic("Value.Float64: not a float")
	}
	return math.Float64frombits(v.bits)
}

// FromBool converts a Go bool to True or False.
func FromBool(b bool) Value {
	if b {
		return True
	}
	return False
}

// Bool returns the boolean payload.
// Panics if v is not a boolean.
func (v Value) Bool() bool {
	if v.kind != KindBool {
		panic("Value.Bool: not a boolean")
	}
	return v.bits != 0
}

// FromSymbol creates a symbol value.
func FromSymbol(s Symbol) Value {
	return Value{kind: KindSymbol, bits: uint64(s)}
}

// Symbol returns the symbol payload.
// Panics if v is not a symbol.
func (v Value) Symbol() Symbol {
	if v.kind != KindSymbol {
		panic("Value.Symbol: not a symbol")
	}
	return Symbol(v.bits)
}

// FromString allocates a new mutable string.
func FromString(s string) Value {
	return Value{kind: KindString, ref: NewString(s)}
}

// StringValue wraps an existing string object.
func StringValue(s *String) Value {
	return Value{kind: KindString, ref: s}
}

// Str returns the string object.
// Panics if v is not a string.
func (v Value) Str() *String {
	if v.kind != KindString {
		panic("Value.Str: not a string")
	}
	return v.ref.(*String)
}

// NewArrayValue allocates a new array holding a copy of elems.
func NewArrayValue(elems ...Value) Value {
	return ArrayValue(NewArray(elems...))
}

// ArrayValue wraps an existing array object.
func ArrayValue(a *Array) Value {
	return Value{kind: KindArray, ref: a}
}

// Array returns the array object.
// Panics if v is not an array.
func (v Value) Array() *Array {
	if v.kind != KindArray {
		panic("Value.Array: not an array")
	}
	return v.ref.(*Array)
}

// HashValue wraps an existing hash object.
func HashValue(h *Hash) Value {
	return Value{kind: KindHash, ref: h}
}

// Hash returns the hash object.
// Panics if v is not a hash.
func (v Value) Hash() *Hash {
	if v.kind != KindHash {
		panic("Value.Hash: not a hash")
	}
	return v.ref.(*Hash)
}

// ProcValue wraps a closure.
func ProcValue(p *Proc) Value {
	return Value{kind: KindProc, ref: p}
}

// Proc returns the closure.
// Panics if v is not a proc.
func (v Value) Proc() *Proc {
	if v.kind != KindProc {
		panic("Value.Proc: not a proc")
	}
	return v.ref.(*Proc)
}

// ClassValue wraps a class or module.
func ClassValue(c *Class) Value {
	if c == nil {
		return Nil
	}
	return Value{kind: KindClass, ref: c}
}

// Class returns the class or module.
// Panics if v is not a class reference.
func (v Value) Class() *Class {
	if v.kind != KindClass {
		panic("Value.Class: not a class")
	}
	return v.ref.(*Class)
}

// ObjectValue wraps an instance.
func ObjectValue(o *Object) Value {
	return Value{kind: KindObject, ref: o}
}

// Object returns the instance.
// Panics if v is not an object.
func (v Value) Object() *Object {
	if v.kind != KindObject {
		panic("Value.Object: not an object")
	}
	return v.ref.(*Object)
}

// ObjectID returns Ruby's object_id for v. Immediates get stable tagged ids.
func (v Value) ObjectID() uint64 {
	switch v.kind {
	case KindNil:
		return 8
	case KindBool:
		if v.bits != 0 {
			return 20
		}
		return 0
	case KindInt:
		return v.bits<<1 | 1
	case KindFloat:
		return v.bits | 2
	case KindSymbol:
		return v.bits<<8 | 0x0c
	}
	if h, ok := v.ref.(interface{ ObjectID() uint64 }); ok {
		return h.ObjectID()
	}
	return 0
}

// ---------------------------------------------------------------------------
// Equality
// ---------------------------------------------------------------------------

// Identical reports whether a and b are the same object (Ruby's equal?).
func Identical(a, b Value) bool {
	return a == b
}

// Equal implements Ruby's default == for built-in kinds: numbers compare
// numerically, strings by content, arrays and hashes element-wise, and
// everything else by identity. A pair of containers met again while it is
// still being compared counts as equal, so self-containing arrays and
// hashes compare without looping.
func Equal(a, b Value) bool {
	return equalIn(a, b, nil)
}

// refPair keys two heap objects being walked together.
type refPair struct{ a, b any }

func equalIn(a, b Value, walking map[refPair]bool) bool {
	if a == b {
		return a.kind != KindFloat || !math.IsNaN(a.Float64())
	}
	switch a.kind {
	case KindInt:
		if b.kind == KindFloat {
			return float64(a.Int()) == b.Float64()
		}
	case KindFloat:
		switch b.kind {
		case KindFloat:
			return a.Float64() == b.Float64()
		case KindInt:
			return a.Float64() == float64(b.Int())
		}
	case KindString:
		if b.kind == KindString {
			return a.Str().s == b.Str().s
		}
	case KindArray, KindHash:
		if b.kind != a.kind {
			return false
		}
		key := refPair{a.ref, b.ref}
		if walking[key] {
			return true
		}
		if walking == nil {
			walking = make(map[refPair]bool)
		}
		walking[key] = true
		defer delete(walking, key)

		if a.kind == KindHash {
			return a.Hash().equal(b.Hash(), walking)
		}
		x, y := a.Array().elems, b.Array().elems
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if !equalIn(x[i], y[i], walking) {
				return false
			}
		}
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// Printing
// ---------------------------------------------------------------------------

// String returns the inspect form, for debugging and %v.
func (v Value) String() string {
	return Inspect(v)
}

// ToS converts v the way Kernel#puts and string interpolation do for
// built-in kinds.
func ToS(v Value) string {
	switch v.kind {
	case KindNil:
		return ""
	case KindString:
		return v.Str().s
	case KindSymbol:
		return v.Symbol().Name()
	case KindClass:
		return v.Class().FullName()
	}
	return Inspect(v)
}

// Inspect renders v the way Ruby's #inspect does for built-in kinds. A
// container reached again inside itself prints as [...], {...} or
// #<Class ...>.
func Inspect(v Value) string {
	in := inspector{walking: make(map[any]bool)}
	in.value(v, 0)
	return in.sb.String()
}

const maxInspectDepth = 64

type inspector struct {
	sb      strings.Builder
	walking map[any]bool
}

// enter marks v as being printed, or reports false if it already is.
func (in *inspector) enter(v Value) bool {
	if in.walking[v.ref] {
		return false
	}
	in.walking[v.ref] = true
	return true
}

func (in *inspector) value(v Value, depth int) {
	sb := &in.sb
	if depth > maxInspectDepth {
		sb.WriteString("...")
		return
	}
	switch v.kind {
	case KindNil:
		sb.WriteString("nil")
	case KindBool:
		sb.WriteString(strconv.FormatBool(v.Bool()))
	case KindInt:
		sb.WriteString(strconv.FormatInt(v.Int(), 10))
	case KindFloat:
		sb.WriteString(formatFloat(v.Float64()))
	case KindSymbol:
		sb.WriteString(inspectSymbol(v.Symbol().Name()))
	case KindString:
		sb.WriteString(strconv.Quote(v.Str().s))
	case KindArray:
		if !in.enter(v) {
			sb.WriteString("[...]")
			return
		}
		defer delete(in.walking, v.ref)
		sb.WriteByte('[')
		for i, e := range v.Array().elems {
			if i > 0 {
				sb.WriteString(", ")
			}
			in.value(e, depth+1)
		}
		sb.WriteByte(']')
	case KindHash:
		h := v.Hash()
		if h.Len() == 0 {
			sb.WriteString("{}")
			return
		}
		if !in.enter(v) {
			sb.WriteString("{...}")
			return
		}
		defer delete(in.walking, v.ref)
		sb.WriteByte('{')
		i := 0
		h.Each(func(k, val Value) bool {
			if i > 0 {
				sb.WriteString(", ")
			}
			i++
			if k.kind == KindSymbol && isPlainSymbol(k.Symbol().Name()) {
				sb.WriteString(k.Symbol().Name())
				sb.WriteString(": ")
			} else {
				in.value(k, depth+1)
				sb.WriteString(" => ")
			}
			in.value(val, depth+1)
			return true
		})
		sb.WriteByte('}')
	case KindProc:
		p := v.Proc()
		if p.IsLambda() {
			fmt.Fprintf(sb, "#<Proc:0x%016x (lambda)>", p.ObjectID())
		} else {
			fmt.Fprintf(sb, "#<Proc:0x%016x>", p.ObjectID())
		}
	case KindClass:
		sb.WriteString(v.Class().FullName())
	case KindObject:
		o := v.Object()
		if o.exc != nil {
			fmt.Fprintf(sb, "#<%s: %s>", o.class.FullName(), o.exc.message)
			return
		}
		if !in.enter(v) {
			fmt.Fprintf(sb, "#<%s ...>", o.class.FullName())
			return
		}
		defer delete(in.walking, v.ref)
		fmt.Fprintf(sb, "#<%s", o.class.FullName())
		for i, name := range o.ivarOrder {
			if i == 0 {
				sb.WriteByte(' ')
			} else {
				sb.WriteString(", ")
			}
			sb.WriteString(name)
			sb.WriteByte('=')
			in.value(o.ivars[name], depth+1)
		}
		sb.WriteByte('>')
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case math.IsNaN(f):
		return "NaN"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}

func inspectSymbol(name string) string {
	if isPlainSymbol(name) || isOperatorSymbol(name) || isVariableSymbol(name) {
		return ":" + name
	}
	return ":" + strconv.Quote(name)
}

// isPlainSymbol reports whether name can be written bare, as in :foo or foo:.
func isPlainSymbol(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		case (r == '?' || r == '!' || r == '=') && i == len(name)-1 && i > 0:
		default:
			return false
		}
	}
	return true
}

// isVariableSymbol reports whether name is an @ivar, @@cvar or $global
// name, which inspect without quotes (:@n) but are not hash labels.
func isVariableSymbol(name string) bool {
	rest := strings.TrimPrefix(name, "$")
	if rest == name {
		rest = strings.TrimPrefix(strings.TrimPrefix(name, "@"), "@")
	}
	if rest == name || rest == "" {
		return false
	}
	return isIdentifier(rest)
}

// isIdentifier reports whether name is a plain identifier, with no trailing
// ? ! or =.
func isIdentifier(name string) bool {
	for i, r := range name {
		switch {
		case r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return name != ""
}

func isOperatorSymbol(name string) bool {
	switch name {
	case "+", "-", "*", "/", "%", "**", "==", "!=", "<", "<=", ">", ">=",
		"<=>", "===", "[]", "[]=", "<<", ">>", "!", "=~", "+@", "-@", "&", "|", "^", "~":
		return true
	}
	return false
}
