package vm

import (
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Args: actual arguments of a call site
// ---------------------------------------------------------------------------

// Args is the actual-argument bundle of one call:
//
//	recv.m(a, b, *splat, k: 1, **kwsplat, &block)
//
// Splat and KwSplat are nil when absent. Keywords maps symbols to values.
type Args struct {
	Positional []Value
	Splat      Value
	Keywords   *Hash
	KwSplat    Value
	Block      Value
}

// Positional builds an Args of plain positional actuals.
func Positional(vs ...Value) Args {
	return Args{Positional: vs}
}

// WithBlock returns a copy of a carrying block.
func (a Args) WithBlock(block Value) Args {
	a.Block = block
	return a
}

// WithSplat returns a copy of a with a trailing *splat actual.
func (a Args) WithSplat(v Value) Args {
	a.Splat = v
	return a
}

// WithKwSplat returns a copy of a with a trailing **splat actual.
func (a Args) WithKwSplat(v Value) Args {
	a.KwSplat = v
	return a
}

// Kw returns a copy of a with keyword name: v added.
func (a Args) Kw(name string, v Value) Args {
	h := NewHash()
	if a.Keywords != nil {
		h = a.Keywords.Clone()
	}
	h.Set(Sym(name), v)
	a.Keywords = h
	return a
}

// flatten expands splats into one positional list and one keyword hash
// (nil when there are no keywords). Nothing the caller passed is aliased.
func (a Args) flatten(fr *Frame) ([]Value, *Hash, error) {
	pos := make([]Value, 0, len(a.Positional)+4)
	pos = append(pos, a.Positional...)
	switch a.Splat.kind {
	case KindNil:
	case KindArray:
		pos = append(pos, a.Splat.Array().elems...)
	default:
		pos = append(pos, a.Splat)
	}

	var kw *Hash
	if a.Keywords != nil && a.Keywords.Len() > 0 {
		kw = a.Keywords.Clone()
	}
	switch a.KwSplat.kind {
	case KindNil:
	case KindHash:
		if kw == nil {
			kw = NewHash()
		}
		a.KwSplat.Hash().Each(func(k, v Value) bool {
			kw.Set(k, v)
			return true
		})
	default:
		return nil, nil, fr.Raise(fr.vm.TypeErrorClass, "no implicit conversion of %s into Hash", fr.vm.ClassOf(a.KwSplat).FullName())
	}
	if kw != nil && kw.Len() == 0 {
		kw = nil
	}
	return pos, kw, nil
}

// ---------------------------------------------------------------------------
// Binding
// ---------------------------------------------------------------------------

// bind populates fr's environment from args according to p. Strict binding
// (methods, lambdas) raises ArgumentError on count mismatch; lax binding
// (blocks, procs) pads with nil, drops extras, and spreads a lone Array
// over several parameters.
func bind(fr *Frame, p *Params, args Args, lax bool) error {
	pos, kw, err := args.flatten(fr)
	if err != nil {
		return err
	}
	if kw != nil && !p.AcceptsKeywords() {
		pos = append(pos, HashValue(kw))
		kw = nil
	}

	if p.Variadic {
		fr.flat = pos
		return nil
	}

	env := fr.env
	nreq := len(p.Required) + len(p.Post)
	nopt := len(p.Optional)

	if lax {
		if len(pos) == 1 && pos[0].IsArray() && (nreq+nopt > 1 || (p.Rest != "" && nreq+nopt > 0)) {
			pos = append([]Value(nil), pos[0].Array().elems...)
		}
		if p.Rest == "" && len(pos) > nreq+nopt {
			pos = pos[:nreq+nopt]
		}
		for len(pos) < nreq {
			pos = append(pos, Nil)
		}
	} else if len(pos) < nreq || (p.Rest == "" && len(pos) > nreq+nopt) {
		max := nreq + nopt
		if p.Rest != "" {
			max = -1
		}
		return fr.argumentCountError(len(pos), nreq, max)
	}

	// Required and post-required take their slots first; optionals get what
	// remains, left to right.
	for i, name := range p.Required {
		env.Declare(name, pos[i])
	}
	tail := len(pos) - len(p.Post)
	for i, name := range p.Post {
		env.Declare(name, pos[tail+i])
	}
	supplied := len(pos) - nreq
	if supplied > nopt {
		supplied = nopt
	}
	next := len(p.Required)
	for i, opt := range p.Optional {
		if i < supplied {
			env.Declare(opt.Name, pos[next])
			next++
			continue
		}
		v, err := evalDefault(fr, opt)
		if err != nil {
			return err
		}
		env.Declare(opt.Name, v)
	}
	if p.Rest != "" {
		rest := NewArray()
		if tail > next {
			rest = NewArray(pos[next:tail]...)
		}
		env.Declare(p.Rest, ArrayValue(rest))
	}

	if err := bindKeywords(fr, p, kw); err != nil {
		return err
	}

	if p.Block != "" {
		if args.Block.IsProc() {
			args.Block.Proc().reify()
		}
		env.Declare(p.Block, args.Block)
	}
	return nil
}

func bindKeywords(fr *Frame, p *Params, kw *Hash) error {
	if !p.AcceptsKeywords() {
		return nil
	}
	env := fr.env
	left := NewHash()
	if kw != nil {
		left = kw.Clone()
	}

	var missing []string
	for _, name := range p.RequiredKw {
		v, ok := left.Delete(Sym(name))
		if !ok {
			missing = append(missing, name)
			continue
		}
		env.Declare(name, v)
	}
	if len(missing) > 0 {
		return fr.Raise(fr.vm.ArgumentErrorClass, "%s", keywordError("missing", symbolList(missing)))
	}

	for _, opt := range p.OptionalKw {
		if v, ok := left.Delete(Sym(opt.Name)); ok {
			env.Declare(opt.Name, v)
			continue
		}
		v, err := evalDefault(fr, opt)
		if err != nil {
			return err
		}
		env.Declare(opt.Name, v)
	}

	if p.KwRest != "" {
		env.Declare(p.KwRest, HashValue(left))
		return nil
	}
	if left.Len() > 0 {
		names := make([]string, 0, left.Len())
		for _, k := range left.Keys() {
			names = append(names, Inspect(k))
		}
		return fr.Raise(fr.vm.ArgumentErrorClass, "%s", keywordError("unknown", names))
	}
	return nil
}

func evalDefault(fr *Frame, opt OptParam) (Value, error) {
	if opt.Default == nil {
		return Nil, nil
	}
	return opt.Default(fr)
}

func keywordError(what string, names []string) string {
	if len(names) == 1 {
		return what + " keyword: " + names[0]
	}
	return what + " keywords: " + strings.Join(names, ", ")
}

func symbolList(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = inspectSymbol(n)
	}
	return out
}

func (fr *Frame) argumentCountError(given, min, max int) error {
	return fr.Raise(fr.vm.ArgumentErrorClass, "wrong number of arguments (given %s, expected %s)",
		strconv.Itoa(given), arityRange(min, max))
}

// ---------------------------------------------------------------------------
// Multiple assignment
// ---------------------------------------------------------------------------

// Destructure implements a, b, *rest, c = v. It returns pre values, then
// (if splat) a fresh Array of the middle, then post values. Non-array
// values act as a one-element array; missing elements are nil.
func Destructure(v Value, pre int, splat bool, post int) []Value {
	var elems []Value
	switch v.kind {
	case KindArray:
		elems = v.Array().elems
	case KindNil:
		elems = []Value{Nil}
	default:
		elems = []Value{v}
	}
	at := func(i int) Value {
		if i >= 0 && i < len(elems) {
			return elems[i]
		}
		return Nil
	}

	out := make([]Value, 0, pre+post+1)
	for i := 0; i < pre; i++ {
		out = append(out, at(i))
	}
	if !splat {
		for i := 0; i < post; i++ {
			out = append(out, at(pre+i))
		}
		return out
	}
	tail := len(elems) - post
	if tail < pre {
		tail = pre
	}
	mid := NewArray()
	if tail > pre && pre < len(elems) {
		mid = NewArray(elems[pre:tail]...)
	}
	out = append(out, ArrayValue(mid))
	for i := 0; i < post; i++ {
		out = append(out, at(tail+i))
	}
	return out
}
