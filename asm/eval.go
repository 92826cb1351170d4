package asm

import "strings"

// evalStatus reports how an expression evaluation went: cleanly
// resolved to a Value, blocked on a symbol with no value yet (which
// the pass driver treats as "keep iterating", not a hard failure), or
// failed outright (a diagnostic has already been recorded).
type evalStatus int

const (
	evalResolved evalStatus = iota
	evalUnresolved
	evalError
)

// An evalCtx carries everything expression evaluation needs: the
// scope to resolve identifiers against, the current program counter
// (for "*"), the span tracker sizeof() consults, the diagnostic sink,
// and whether this is the final pass.
type evalCtx struct {
	scope     *scope
	pc        int64
	spans     map[*scope]*scopeSpan
	diags     *[]Diagnostic
	finalPass bool // true only on the converged/capped final pass
}

func (ctx *evalCtx) errorf(loc SourceLocation, format string, args ...any) evalStatus {
	*ctx.diags = append(*ctx.diags, errorf(loc, format, args...))
	return evalError
}

// eval evaluates e against ctx, returning the resulting Value and a
// status. Callers that only need an integer should call requireInt
// instead.
func (ctx *evalCtx) eval(e expr) (Value, evalStatus) {
	switch n := e.(type) {
	case *intLitExpr:
		return integerValue(n.value), evalResolved

	case *charLitExpr:
		return integerValue(int64(asciiToPETSCII(n.ascii))), evalResolved

	case *stringLitExpr:
		return stringValue([]byte(n.value)), evalResolved

	case *currentPCExpr:
		return integerValue(ctx.pc), evalResolved

	case *parenExpr:
		return ctx.eval(n.inner)

	case *identExpr:
		return ctx.evalIdent(n)

	case *qualifiedIdentExpr:
		return ctx.evalQualifiedIdent(n)

	case *unaryExpr:
		return ctx.evalUnary(n)

	case *binaryExpr:
		return ctx.evalBinary(n)

	case *callExpr:
		return ctx.evalCall(n)

	case *memberExpr:
		return ctx.evalMember(n)

	case *subscriptExpr:
		return ctx.evalSubscript(n)

	case *arrayLitExpr:
		return ctx.evalArrayLit(n)

	case *objectLitExpr:
		return ctx.evalObjectLit(n)

	default:
		return Value{}, ctx.errorf(e.exprLoc(), "internal: unhandled expression node")
	}
}

func (ctx *evalCtx) evalIdent(n *identExpr) (Value, evalStatus) {
	sym := ctx.scope.lookup(n.name)
	if sym == nil {
		if ctx.finalPass {
			return Value{}, ctx.errorf(n.loc, "unknown identifier '%s'", n.name)
		}
		return Value{}, evalUnresolved
	}
	if sym.kind == symMacro {
		return Value{kind: valueCallable}, evalResolved
	}
	if !sym.hasValue {
		if ctx.finalPass {
			return Value{}, ctx.errorf(n.loc, "'%s' never resolved to a value", n.name)
		}
		return Value{}, evalUnresolved
	}
	return sym.value, evalResolved
}

func (ctx *evalCtx) evalQualifiedIdent(n *qualifiedIdentExpr) (Value, evalStatus) {
	sym := ctx.scope.lookupQualified(n.parts)
	if sym == nil {
		if ctx.finalPass {
			return Value{}, ctx.errorf(n.loc, "unknown identifier '%s'", strings.Join(n.parts, "::"))
		}
		return Value{}, evalUnresolved
	}
	if !sym.hasValue {
		if ctx.finalPass {
			return Value{}, ctx.errorf(n.loc, "'%s' never resolved to a value", strings.Join(n.parts, "::"))
		}
		return Value{}, evalUnresolved
	}
	return sym.value, evalResolved
}

func (ctx *evalCtx) evalUnary(n *unaryExpr) (Value, evalStatus) {
	v, st := ctx.eval(n.x)
	if st != evalResolved {
		return v, st
	}
	i, ok := v.asInteger()
	if !ok {
		return Value{}, ctx.errorf(n.loc, "operator requires an integer operand, got %s", v.typeName())
	}
	switch n.op {
	case tkMinus:
		return integerValue(-i), evalResolved
	case tkTilde:
		return integerValue(^i), evalResolved
	case tkBang:
		if i == 0 {
			return integerValue(1), evalResolved
		}
		return integerValue(0), evalResolved
	case tkLt:
		return integerValue(i & 0xFF), evalResolved
	case tkGt:
		return integerValue((i >> 8) & 0xFF), evalResolved
	default:
		return Value{}, ctx.errorf(n.loc, "internal: unhandled unary operator")
	}
}

func (ctx *evalCtx) evalBinary(n *binaryExpr) (Value, evalStatus) {
	// Short-circuit the boolean operators so side-effect-free but
	// unresolved right-hand operands don't block a result the left
	// operand already determines.
	if n.op == tkAndAnd || n.op == tkOrOr {
		l, st := ctx.eval(n.x)
		if st != evalResolved {
			return l, st
		}
		li, ok := l.asInteger()
		if !ok {
			return Value{}, ctx.errorf(n.loc, "operator requires integer operands")
		}
		if n.op == tkAndAnd && li == 0 {
			return integerValue(0), evalResolved
		}
		if n.op == tkOrOr && li != 0 {
			return integerValue(1), evalResolved
		}
		r, st := ctx.eval(n.y)
		if st != evalResolved {
			return r, st
		}
		ri, ok := r.asInteger()
		if !ok {
			return Value{}, ctx.errorf(n.loc, "operator requires integer operands")
		}
		if ri != 0 {
			return integerValue(1), evalResolved
		}
		return integerValue(0), evalResolved
	}

	l, st := ctx.eval(n.x)
	if st != evalResolved {
		return l, st
	}
	r, st := ctx.eval(n.y)
	if st != evalResolved {
		return r, st
	}

	li, lok := l.asInteger()
	ri, rok := r.asInteger()
	if !lok || !rok {
		return Value{}, ctx.errorf(n.loc, "operator requires integer operands")
	}

	switch n.op {
	case tkPlus:
		return integerValue(li + ri), evalResolved
	case tkMinus:
		return integerValue(li - ri), evalResolved
	case tkStar:
		return integerValue(li * ri), evalResolved
	case tkSlash:
		if ri == 0 {
			return Value{}, ctx.errorf(n.loc, "division by zero")
		}
		return integerValue(li / ri), evalResolved
	case tkPercent:
		if ri == 0 {
			return Value{}, ctx.errorf(n.loc, "division by zero")
		}
		return integerValue(li % ri), evalResolved
	case tkAmp:
		return integerValue(li & ri), evalResolved
	case tkPipe:
		return integerValue(li | ri), evalResolved
	case tkCaret:
		return integerValue(li ^ ri), evalResolved
	case tkShl:
		if ri < 0 || ri > 63 {
			return Value{}, ctx.errorf(n.loc, "shift amount %d out of range", ri)
		}
		return integerValue(li << uint(ri)), evalResolved
	case tkShr:
		if ri < 0 || ri > 63 {
			return Value{}, ctx.errorf(n.loc, "shift amount %d out of range", ri)
		}
		return integerValue(li >> uint(ri)), evalResolved
	case tkEqEq:
		return boolValue(li == ri), evalResolved
	case tkNotEq:
		return boolValue(li != ri), evalResolved
	case tkLt:
		return boolValue(li < ri), evalResolved
	case tkLtEq:
		return boolValue(li <= ri), evalResolved
	case tkGt:
		return boolValue(li > ri), evalResolved
	case tkGtEq:
		return boolValue(li >= ri), evalResolved
	default:
		return Value{}, ctx.errorf(n.loc, "internal: unhandled binary operator")
	}
}

func boolValue(b bool) Value {
	if b {
		return integerValue(1)
	}
	return integerValue(0)
}

func (ctx *evalCtx) evalCall(n *callExpr) (Value, evalStatus) {
	name, ok := calleeName(n.callee)
	if !ok {
		return Value{}, ctx.errorf(n.loc, "expression is not callable")
	}

	if name == "sizeof" {
		return ctx.evalSizeof(n)
	}

	args := make([]Value, 0, len(n.args))
	for _, a := range n.args {
		v, st := ctx.eval(a)
		if st != evalResolved {
			return v, st
		}
		args = append(args, v)
	}

	fn, ok := builtins[name]
	if !ok {
		return Value{}, ctx.errorf(n.loc, "unknown function '%s'", name)
	}
	v, diag, ok := fn(args, n.loc)
	if !ok {
		*ctx.diags = append(*ctx.diags, diag)
		return Value{}, evalError
	}
	return v, evalResolved
}

func calleeName(e expr) (string, bool) {
	if id, ok := e.(*identExpr); ok {
		return id.name, true
	}
	return "", false
}

// evalSizeof resolves sizeof(name) against the scope span table built
// up during code generation: the byte distance between the first and
// last address the named scope emitted at. Only scope names are
// accepted; a label or any other name is reported as an error.
func (ctx *evalCtx) evalSizeof(n *callExpr) (Value, evalStatus) {
	if len(n.args) != 1 {
		return Value{}, ctx.errorf(n.loc, "sizeof() expects exactly 1 argument")
	}
	name, ok := calleeName(n.args[0])
	if !ok {
		return Value{}, ctx.errorf(n.loc, "sizeof() expects a scope name")
	}
	target := ctx.scope.findScope(name)
	if target == nil {
		return Value{}, ctx.errorf(n.loc, "sizeof() requires a scope name, '%s' is not a scope", name)
	}
	span := ctx.spans[target]
	if span == nil || !span.touched {
		if ctx.finalPass {
			return Value{}, ctx.errorf(n.loc, "sizeof('%s') never resolved: scope emitted no bytes", name)
		}
		return Value{}, evalUnresolved
	}
	return integerValue(span.size()), evalResolved
}

func (ctx *evalCtx) evalMember(n *memberExpr) (Value, evalStatus) {
	v, st := ctx.eval(n.x)
	if st != evalResolved {
		return v, st
	}
	if v.kind != valueObject {
		return Value{}, ctx.errorf(n.loc, "'.%s' requires an object, got %s", n.name, v.typeName())
	}
	field, ok := v.obj[n.name]
	if !ok {
		return Value{}, ctx.errorf(n.loc, "object has no field '%s'", n.name)
	}
	return field, evalResolved
}

func (ctx *evalCtx) evalSubscript(n *subscriptExpr) (Value, evalStatus) {
	v, st := ctx.eval(n.x)
	if st != evalResolved {
		return v, st
	}
	idx, st := ctx.eval(n.index)
	if st != evalResolved {
		return idx, st
	}
	i, ok := idx.asInteger()
	if !ok {
		return Value{}, ctx.errorf(n.loc, "subscript index must be an integer")
	}
	switch v.kind {
	case valueArray:
		if i < 0 || i >= int64(len(v.arr)) {
			return Value{}, ctx.errorf(n.loc, "array index %d out of range (length %d)", i, len(v.arr))
		}
		return v.arr[i], evalResolved
	case valueString:
		if i < 0 || i >= int64(len(v.s)) {
			return Value{}, ctx.errorf(n.loc, "string index %d out of range (length %d)", i, len(v.s))
		}
		return integerValue(int64(v.s[i])), evalResolved
	default:
		return Value{}, ctx.errorf(n.loc, "'[]' requires an array or string, got %s", v.typeName())
	}
}

func (ctx *evalCtx) evalArrayLit(n *arrayLitExpr) (Value, evalStatus) {
	elems := make([]Value, 0, len(n.elems))
	for _, e := range n.elems {
		v, st := ctx.eval(e)
		if st != evalResolved {
			return v, st
		}
		elems = append(elems, v)
	}
	return arrayValue(elems), evalResolved
}

func (ctx *evalCtx) evalObjectLit(n *objectLitExpr) (Value, evalStatus) {
	obj := make(map[string]Value, len(n.elems))
	for i, e := range n.elems {
		v, st := ctx.eval(e)
		if st != evalResolved {
			return v, st
		}
		obj[n.names[i]] = v
	}
	return objectValue(obj), evalResolved
}

// requireInt evaluates e and additionally demands an integer result,
// reporting a type-mismatch diagnostic if e resolves to something
// else.
func (ctx *evalCtx) requireInt(e expr) (int64, evalStatus) {
	v, st := ctx.eval(e)
	if st != evalResolved {
		return 0, st
	}
	i, ok := v.asInteger()
	if !ok {
		return 0, ctx.errorf(e.exprLoc(), "expected an integer, got %s", v.typeName())
	}
	return i, evalResolved
}
