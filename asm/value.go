package asm

import "fmt"

// valueKind discriminates the Value sum type.
type valueKind int

const (
	valueInteger valueKind = iota
	valueString
	valueArray
	valueObject
	valueCallable
)

// A Value is the result of evaluating an expression: an integer, a
// byte string, an array of Values, a name-to-Value object (built by an
// object literal), or a callable (a macro or built-in
// function reference used as a call target).
type Value struct {
	kind   valueKind
	i      int64
	s      []byte
	arr    []Value
	obj    map[string]Value
	callFn func(args []Value, loc SourceLocation) (Value, Diagnostic, bool)
}

func integerValue(i int64) Value { return Value{kind: valueInteger, i: i} }
func stringValue(s []byte) Value { return Value{kind: valueString, s: s} }
func arrayValue(a []Value) Value { return Value{kind: valueArray, arr: a} }
func objectValue(o map[string]Value) Value { return Value{kind: valueObject, obj: o} }

func (v Value) isInteger() bool  { return v.kind == valueInteger }
func (v Value) isString() bool   { return v.kind == valueString }
func (v Value) isArray() bool    { return v.kind == valueArray }
func (v Value) isCallable() bool { return v.kind == valueCallable }

// asInteger coerces a Value to an integer where that is well-defined:
// integers pass through and single-byte strings yield their byte
// value; arrays, objects, callables and longer strings are not
// coercible.
func (v Value) asInteger() (int64, bool) {
	switch v.kind {
	case valueInteger:
		return v.i, true
	case valueString:
		if len(v.s) == 1 {
			return int64(v.s[0]), true
		}
	}
	return 0, false
}

func (v Value) String() string {
	switch v.kind {
	case valueInteger:
		return fmt.Sprintf("%d", v.i)
	case valueString:
		return string(v.s)
	case valueArray:
		return fmt.Sprintf("<array of %d>", len(v.arr))
	case valueObject:
		return "<object>"
	default:
		return "<callable>"
	}
}

func (v Value) typeName() string {
	switch v.kind {
	case valueInteger:
		return "integer"
	case valueString:
		return "string"
	case valueArray:
		return "array"
	case valueObject:
		return "object"
	default:
		return "callable"
	}
}

// builtins holds the built-in function table available to
// expressions, keyed by name. Each entry receives already-evaluated
// arguments and the call-site location (for diagnostics).
var builtins = map[string]func(args []Value, loc SourceLocation) (Value, Diagnostic, bool){
	"lo":      builtinLo,
	"hi":      builtinHi,
	"len":     builtinLen,
	"min":     builtinMin,
	"max":     builtinMax,
	"abs":     builtinAbs,
	"petscii": builtinPetscii,
	"range":   builtinRange,
}

func builtinArity(fn string, got, want int, loc SourceLocation) (Value, Diagnostic, bool) {
	return Value{}, errorf(loc, "%s() expects %d argument(s), got %d", fn, want, got), false
}

func builtinLo(args []Value, loc SourceLocation) (Value, Diagnostic, bool) {
	if len(args) != 1 {
		return builtinArity("lo", len(args), 1, loc)
	}
	n, ok := args[0].asInteger()
	if !ok {
		return Value{}, errorf(loc, "lo() expects an integer argument"), false
	}
	return integerValue(n & 0xFF), Diagnostic{}, true
}

func builtinHi(args []Value, loc SourceLocation) (Value, Diagnostic, bool) {
	if len(args) != 1 {
		return builtinArity("hi", len(args), 1, loc)
	}
	n, ok := args[0].asInteger()
	if !ok {
		return Value{}, errorf(loc, "hi() expects an integer argument"), false
	}
	return integerValue((n >> 8) & 0xFF), Diagnostic{}, true
}

func builtinLen(args []Value, loc SourceLocation) (Value, Diagnostic, bool) {
	if len(args) != 1 {
		return builtinArity("len", len(args), 1, loc)
	}
	switch args[0].kind {
	case valueString:
		return integerValue(int64(len(args[0].s))), Diagnostic{}, true
	case valueArray:
		return integerValue(int64(len(args[0].arr))), Diagnostic{}, true
	default:
		return Value{}, errorf(loc, "len() expects a string or array argument"), false
	}
}

func builtinMin(args []Value, loc SourceLocation) (Value, Diagnostic, bool) {
	if len(args) == 0 {
		return builtinArity("min", 0, 1, loc)
	}
	best, ok := args[0].asInteger()
	if !ok {
		return Value{}, errorf(loc, "min() expects integer arguments"), false
	}
	for _, a := range args[1:] {
		n, ok := a.asInteger()
		if !ok {
			return Value{}, errorf(loc, "min() expects integer arguments"), false
		}
		if n < best {
			best = n
		}
	}
	return integerValue(best), Diagnostic{}, true
}

func builtinMax(args []Value, loc SourceLocation) (Value, Diagnostic, bool) {
	if len(args) == 0 {
		return builtinArity("max", 0, 1, loc)
	}
	best, ok := args[0].asInteger()
	if !ok {
		return Value{}, errorf(loc, "max() expects integer arguments"), false
	}
	for _, a := range args[1:] {
		n, ok := a.asInteger()
		if !ok {
			return Value{}, errorf(loc, "max() expects integer arguments"), false
		}
		if n > best {
			best = n
		}
	}
	return integerValue(best), Diagnostic{}, true
}

func builtinAbs(args []Value, loc SourceLocation) (Value, Diagnostic, bool) {
	if len(args) != 1 {
		return builtinArity("abs", len(args), 1, loc)
	}
	n, ok := args[0].asInteger()
	if !ok {
		return Value{}, errorf(loc, "abs() expects an integer argument"), false
	}
	if n < 0 {
		n = -n
	}
	return integerValue(n), Diagnostic{}, true
}

// builtinRange builds an array of consecutive integers: range(n) for
// [0, n), or range(lo, hi) for [lo, hi), underlying !for loops over a
// computed count rather than a literal list.
func builtinRange(args []Value, loc SourceLocation) (Value, Diagnostic, bool) {
	var lo, hi int64
	switch len(args) {
	case 1:
		n, ok := args[0].asInteger()
		if !ok {
			return Value{}, errorf(loc, "range() expects integer arguments"), false
		}
		lo, hi = 0, n
	case 2:
		a, ok1 := args[0].asInteger()
		b, ok2 := args[1].asInteger()
		if !ok1 || !ok2 {
			return Value{}, errorf(loc, "range() expects integer arguments"), false
		}
		lo, hi = a, b
	default:
		return builtinArity("range", len(args), 1, loc)
	}
	if hi < lo {
		return Value{}, errorf(loc, "range(%d, %d) has no elements", lo, hi), false
	}
	elems := make([]Value, 0, hi-lo)
	for i := lo; i < hi; i++ {
		elems = append(elems, integerValue(i))
	}
	return arrayValue(elems), Diagnostic{}, true
}

// builtinPetscii converts an ASCII string or character code to its
// PETSCII equivalent, using the same conversion as the !text
// directive and bare character literals.
func builtinPetscii(args []Value, loc SourceLocation) (Value, Diagnostic, bool) {
	if len(args) != 1 {
		return builtinArity("petscii", len(args), 1, loc)
	}
	switch args[0].kind {
	case valueString:
		return stringValue(toPETSCII(args[0].s)), Diagnostic{}, true
	case valueInteger:
		out := toPETSCII([]byte{byte(args[0].i)})
		return integerValue(int64(out[0])), Diagnostic{}, true
	default:
		return Value{}, errorf(loc, "petscii() expects a string or integer argument"), false
	}
}
