package vm

import "strconv"

// Method represents a callable method body together with its formal
// parameter list. Bodies are opaque Go functions: a front-end compiles Ruby
// source to Body values and the engine only ever runs them inside a Frame.

// Body is an executable method or block body. It runs inside fr and must
// return any non-nil error it receives from the engine immediately: control
// transfers (return, break, next, raise) travel as *Signal errors.
type Body func(fr *Frame) (Value, error)

// DefaultFunc computes the default value of an optional parameter. It runs
// in the callee frame, so it can read parameters bound before it.
type DefaultFunc func(fr *Frame) (Value, error)

// OptParam is an optional positional or keyword parameter.
type OptParam struct {
	Name    string
	Default DefaultFunc
}

// Params is a formal parameter specification, in Ruby's declaration order:
//
//	def m(req, opt = 1, *rest, post, kreq:, kopt: 2, **kwrest, &blk)
//
// Empty Rest, KwRest and Block strings mean the parameter is absent; "*",
// "**" and "&" declare anonymous ones.
type Params struct {
	Required   []string
	Optional   []OptParam
	Rest       string
	Post       []string
	RequiredKw []string
	OptionalKw []OptParam
	KwRest     string
	Block      string

	// Variadic skips binding; the body reads the flattened actuals through
	// Frame.Args. Used by primitives.
	Variadic bool
}

// AcceptsKeywords reports whether keyword actuals bind to keyword
// parameters rather than being collected into a trailing positional Hash.
func (p *Params) AcceptsKeywords() bool {
	return len(p.RequiredKw) > 0 || len(p.OptionalKw) > 0 || p.KwRest != ""
}

// Arity follows Ruby's Method#arity: the count of mandatory arguments, or
// -(mandatory+1) when optional arguments are accepted.
func (p *Params) Arity() int {
	if p.Variadic {
		return -1
	}
	req := len(p.Required) + len(p.Post)
	if len(p.RequiredKw) > 0 {
		req++
	}
	if len(p.Optional) > 0 || p.Rest != "" ||
		(len(p.RequiredKw) == 0 && (len(p.OptionalKw) > 0 || p.KwRest != "")) {
		return -req - 1
	}
	return req
}

// Names returns every named parameter in declaration order.
func (p *Params) Names() []string {
	var names []string
	names = append(names, p.Required...)
	for _, o := range p.Optional {
		names = append(names, o.Name)
	}
	if p.Rest != "" {
		names = append(names, p.Rest)
	}
	names = append(names, p.Post...)
	names = append(names, p.RequiredKw...)
	for _, o := range p.OptionalKw {
		names = append(names, o.Name)
	}
	if p.KwRest != "" {
		names = append(names, p.KwRest)
	}
	if p.Block != "" {
		names = append(names, p.Block)
	}
	return names
}

// Method is a named body installed in a class or module method table.
type Method struct {
	Name   string
	Params Params
	Body   Body
	Owner  *Class

	// cref is the lexical class in effect where the method was defined;
	// constant references inside the body resolve from here.
	cref   *Class
	native bool
	arity  int
}

// Arity returns the Ruby arity of the method.
func (m *Method) Arity() int {
	if m.native {
		return m.arity
	}
	return m.Params.Arity()
}

// IsNative reports whether the method is a Go primitive.
func (m *Method) IsNative() bool { return m.native }

// Label returns the backtrace form: Class#name, or Class.name for methods
// of a singleton class.
func (m *Method) Label() string {
	if m.Owner == nil {
		return m.Name
	}
	if m.Owner.IsSingleton() {
		if att := m.Owner.Attached(); att.IsClass() {
			return att.Class().FullName() + "." + m.Name
		}
	}
	return m.Owner.FullName() + "#" + m.Name
}

// ---------------------------------------------------------------------------
// Primitives
// ---------------------------------------------------------------------------

// PrimitiveFunc is a Go function that implements a primitive method.
// args are the flattened positional actuals; the block is fr.BlockArg().
type PrimitiveFunc func(fr *Frame, self Value, args []Value) (Value, error)

// Method0Func is a primitive taking no arguments.
type Method0Func func(fr *Frame, self Value) (Value, error)

// Method1Func is a primitive taking one argument.
type Method1Func func(fr *Frame, self Value, arg Value) (Value, error)

// Method2Func is a primitive taking two arguments.
type Method2Func func(fr *Frame, self Value, arg1, arg2 Value) (Value, error)

// NewPrimitive wraps fn as a method accepting between min and max
// positional arguments; max < 0 means unbounded.
func NewPrimitive(name string, min, max int, fn PrimitiveFunc) *Method {
	arity := min
	if max != min {
		arity = -min - 1
	}
	return &Method{
		Name:   name,
		Params: Params{Variadic: true},
		native: true,
		arity:  arity,
		Body: func(fr *Frame) (Value, error) {
			args := fr.Args()
			if len(args) < min || (max >= 0 && len(args) > max) {
				return Nil, fr.argumentCountError(len(args), min, max)
			}
			return fn(fr, fr.Self(), args)
		},
	}
}

// NewMethod0 wraps a zero-argument primitive.
func NewMethod0(name string, fn Method0Func) *Method {
	return NewPrimitive(name, 0, 0, func(fr *Frame, self Value, _ []Value) (Value, error) {
		return fn(fr, self)
	})
}

// NewMethod1 wraps a one-argument primitive.
func NewMethod1(name string, fn Method1Func) *Method {
	return NewPrimitive(name, 1, 1, func(fr *Frame, self Value, args []Value) (Value, error) {
		return fn(fr, self, args[0])
	})
}

// NewMethod2 wraps a two-argument primitive.
func NewMethod2(name string, fn Method2Func) *Method {
	return NewPrimitive(name, 2, 2, func(fr *Frame, self Value, args []Value) (Value, error) {
		return fn(fr, self, args[0], args[1])
	})
}

// arityRange renders the expected-count part of a wrong-arguments message.
func arityRange(min, max int) string {
	switch {
	case max < 0:
		return strconv.Itoa(min) + "+"
	case min == max:
		return strconv.Itoa(min)
	default:
		return strconv.Itoa(min) + ".." + strconv.Itoa(max)
	}
}
