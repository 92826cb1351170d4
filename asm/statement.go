package asm

import (
	"fmt"
	"io"
	"strings"

	"github.com/corvid64/c64asm/opcodes"
)

// A segmentBuf accumulates the bytes emitted into one named segment.
// The implicit default segment ("") is always first in concatenation
// order; any other segment is concatenated in first-!segment-
// declaration order, per the deterministic-concatenation supplement.
type segmentBuf struct {
	name    string
	base    int64
	pc      int64
	bytes   []byte
	started bool
}

// passCtx holds everything a single pass over the AST needs: the
// state that must persist across passes (scope tree, macro registry,
// per-statement encoded width, per-scope span tracker) plus the state
// that is rebuilt fresh every pass (segment buffers, diagnostics).
type passCtx struct {
	files   *fileTable
	instSet *opcodes.InstructionSet

	root    *scope
	macros  *macroRegistry
	spans   map[*scope]*scopeSpan
	widths  map[stmt]int // persists across passes; drives the dirty flag

	// definers records which statement first bound each (scope, name)
	// pair, so a name re-bound by the very same statement on a later
	// pass (e.g. inside a !if branch that was untaken, then taken once
	// its condition resolves) is recognized as a re-visit rather than
	// a duplicate-label error.
	definers map[*scope]map[string]stmt

	firstPass bool
	finalPass bool // true only on the converged/capped final pass; promotes an unresolved use to a hard error
	dirty     bool

	diags []Diagnostic

	segments     map[string]*segmentBuf
	segmentOrder []string
	curSegment   string
	orgSet       bool

	anonCounters map[*scope]int

	debug *debugInfoBuilder // non-nil only on the accepted final pass

	verbose io.Writer
}

func (ctx *passCtx) errorf(loc SourceLocation, format string, args ...any) {
	ctx.diags = append(ctx.diags, errorf(loc, format, args...))
}

func (ctx *passCtx) logf(format string, args ...any) {
	if ctx.verbose != nil {
		fmt.Fprintf(ctx.verbose, format+"\n", args...)
	}
}

func (ctx *passCtx) segment(name string) *segmentBuf {
	if s, ok := ctx.segments[name]; ok {
		return s
	}
	s := &segmentBuf{name: name}
	ctx.segments[name] = s
	ctx.segmentOrder = append(ctx.segmentOrder, name)
	return s
}

func (ctx *passCtx) cur() *segmentBuf { return ctx.segment(ctx.curSegment) }

func (ctx *passCtx) pc() int64 { return ctx.cur().pc }

// emit appends bytes to the current segment at its current PC,
// starting the segment's base address on first use, and advances PC.
func (ctx *passCtx) emit(b []byte) int64 {
	s := ctx.cur()
	addr := s.pc
	if !s.started {
		s.base = addr
		s.started = true
	}
	s.bytes = append(s.bytes, b...)
	s.pc += int64(len(b))
	return addr
}

func (ctx *passCtx) setPC(addr int64) {
	s := ctx.cur()
	s.pc = addr
	if !s.started {
		s.base = addr
	}
}

func (ctx *passCtx) touchSpan(sc *scope, addr int64, width int64) {
	sp, ok := ctx.spans[sc]
	if !ok {
		sp = &scopeSpan{}
		ctx.spans[sc] = sp
	}
	sp.touch(addr, width)
}

func (ctx *passCtx) evalCtxFor(sc *scope) *evalCtx {
	return &evalCtx{scope: sc, pc: ctx.pc(), spans: ctx.spans, diags: &ctx.diags, finalPass: ctx.finalPass}
}

// resolveDefiner returns the existing symbol for (sc, name) if the
// same definingStmt bound it on an earlier pass, creating a fresh one
// otherwise; a name already bound by a *different* statement is a
// genuine duplicate definition and is reported as such.
func (ctx *passCtx) resolveDefiner(sc *scope, name string, kind symbolKind, loc SourceLocation, definingStmt stmt) (*symbol, bool) {
	byName, ok := ctx.definers[sc]
	if !ok {
		byName = map[string]stmt{}
		ctx.definers[sc] = byName
	}
	if prev, ok := byName[name]; ok {
		if prev != definingStmt {
			return sc.symbols[name], false
		}
		return sc.symbols[name], true
	}
	sym, ok := sc.define(name, kind, loc)
	if !ok {
		// Defined by something outside this pass's bookkeeping (should
		// not happen once definers is consistently threaded through,
		// but fall back to reporting the conflict rather than panicking).
		return sym, false
	}
	byName[name] = definingStmt
	return sym, true
}

// defineOrUpdateLabel binds name to the current PC.
func (ctx *passCtx) defineOrUpdateLabel(sc *scope, name string, loc SourceLocation, definingStmt stmt) {
	sym, ok := ctx.resolveDefiner(sc, name, symLabel, loc, definingStmt)
	if !ok {
		if sym != nil {
			ctx.errorf(loc, "label '%s' already defined at %s", name, formatLocation(ctx.files, sym.definedAt))
		} else {
			ctx.errorf(loc, "label '%s' already defined", name)
		}
		return
	}
	sym.value = integerValue(ctx.pc())
	sym.hasValue = true
	if ctx.debug != nil {
		ctx.debug.recordLabel(name, sc.qualifiedName(), ctx.pc(), loc)
	}
}

func (ctx *passCtx) defineOrUpdateConstant(sc *scope, name string, v Value, loc SourceLocation, definingStmt stmt) {
	sym, ok := ctx.resolveDefiner(sc, name, symConstant, loc, definingStmt)
	if !ok {
		if sym != nil {
			ctx.errorf(loc, "'%s' already defined at %s", name, formatLocation(ctx.files, sym.definedAt))
		} else {
			ctx.errorf(loc, "'%s' already defined", name)
		}
		return
	}
	sym.value = v
	sym.hasValue = true
	if ctx.debug != nil {
		if n, ok := v.asInteger(); ok {
			ctx.debug.recordConstant(name, sc.qualifiedName(), n, loc)
		}
	}
}

// processBlock walks a statement list against scope sc, in source
// order. The readFile callback resolves !include and !binary paths;
// it is threaded through rather than stored on ctx because it is the
// one piece of driver state that needs the originating file's
// directory to resolve relative paths against.
func (ctx *passCtx) processBlock(sc *scope, stmts []stmt, readFile readFileFunc, dir string) {
	for _, s := range stmts {
		ctx.processStmt(sc, s, readFile, dir)
	}
}

func (ctx *passCtx) processStmt(sc *scope, s stmt, readFile readFileFunc, dir string) {
	switch n := s.(type) {
	case *labelStmt:
		target := sc
		if n.local {
			target = sc.nearestNamed()
		}
		ctx.defineOrUpdateLabel(target, n.name, n.loc, n)

	case *equateStmt:
		ec := ctx.evalCtxFor(sc)
		v, st := ec.eval(n.expr)
		if st == evalResolved {
			ctx.defineOrUpdateConstant(sc, n.name, v, n.loc, n)
		} else if st == evalUnresolved {
			ctx.dirty = true
		}

	case *orgStmt:
		ctx.processOrg(sc, n)

	case *segmentStmt:
		ctx.curSegment = n.name
		ctx.segment(n.name)

	case *alignStmt:
		ctx.processAlign(sc, n)

	case *instrStmt:
		ctx.processInstr(sc, n)

	case *dataStmt:
		ctx.processData(sc, n, readFile, dir)

	case *textStmt:
		ctx.processText(sc, n)

	case *includeStmt:
		ctx.processInclude(sc, n, readFile, dir)

	case *warnStmt:
		ctx.processWarn(sc, n)

	case *ifStmt:
		ctx.processIf(sc, n, readFile, dir)

	case *forStmt:
		ctx.processFor(sc, n, readFile, dir)

	case *macroStmt:
		if ctx.firstPass {
			ctx.macros.define(n, sc)
		}

	case *scopeStmt:
		ctx.processScope(sc, n, readFile, dir)

	case *macroCallStmt:
		ctx.processMacroCall(sc, n, readFile, dir)

	default:
		ctx.errorf(s.stmtLoc(), "internal: unhandled statement kind")
	}
}

func (ctx *passCtx) processOrg(sc *scope, n *orgStmt) {
	ec := ctx.evalCtxFor(sc)
	v, st := ec.requireInt(n.addr)
	if st != evalResolved {
		ctx.dirty = ctx.dirty || st == evalUnresolved
		return
	}
	ctx.orgSet = true
	ctx.setPC(v)
}

func (ctx *passCtx) processAlign(sc *scope, n *alignStmt) {
	ec := ctx.evalCtxFor(sc)
	boundary, st := ec.requireInt(n.boundary)
	if st != evalResolved {
		ctx.dirty = ctx.dirty || st == evalUnresolved
		return
	}
	if boundary <= 0 {
		ctx.errorf(n.loc, "!align boundary must be positive")
		return
	}
	fillByte := byte(0)
	if n.fill != nil {
		fv, st := ec.requireInt(n.fill)
		if st == evalResolved {
			fillByte = byte(fv)
		}
	}
	pc := ctx.pc()
	pad := (boundary - (pc % boundary)) % boundary
	if pad > 0 {
		buf := make([]byte, pad)
		for i := range buf {
			buf[i] = fillByte
		}
		addr := ctx.emit(buf)
		if ctx.debug != nil {
			ctx.debug.recordData(int(addr), len(buf), n.loc)
		}
	}
}

func (ctx *passCtx) processInstr(sc *scope, n *instrStmt) {
	mnemonic := strings.ToUpper(n.mnemonic)
	if !ctx.instSet.IsMnemonic(mnemonic) {
		ctx.errorf(n.loc, "unknown mnemonic '%s'", n.mnemonic)
		return
	}

	var value int64
	resolved := true
	var evalStat evalStatus = evalResolved
	if n.operand.expr != nil {
		ec := ctx.evalCtxFor(sc)
		v, st := ec.requireInt(n.operand.expr)
		evalStat = st
		if st != evalResolved {
			resolved = false
			if st == evalUnresolved {
				ctx.dirty = true
			}
		} else {
			value = v
		}
	}

	mode, ok := selectMode(ctx.instSet, mnemonic, n.operand.kind, resolved, value)
	if !ok {
		ctx.errorf(n.loc, "'%s' does not support this addressing mode", n.mnemonic)
		return
	}
	ins, ok := ctx.instSet.Lookup(mnemonic, mode)
	if !ok {
		ctx.errorf(n.loc, "internal: no encoding for '%s' in mode %v", n.mnemonic, mode)
		return
	}

	width := ins.Length
	if ctx.widths[n] != width {
		ctx.widths[n] = width
		ctx.dirty = true
	}

	addr := ctx.pc()

	if mode == opcodes.Relative {
		if !resolved {
			// Reserve the two bytes; the branch target isn't known yet.
			ctx.emit(make([]byte, 2))
			return
		}
		offset, inRange := relativeOffset(addr, value)
		if !inRange {
			ctx.errorf(n.loc, "branch target out of range (%d bytes)", offset)
			ctx.emit(make([]byte, 2))
			return
		}
		ctx.emitInstruction(ins, offset, n.loc)
		return
	}

	if !resolved {
		ctx.emit(make([]byte, width))
		return
	}

	if evalStat == evalResolved && modeOperandWidth(mode) == 1 && (value < -128 || value > 255) {
		ctx.errorf(n.loc, "operand %d does not fit in one byte", value)
	}

	ctx.emitInstruction(ins, value, n.loc)
}

func (ctx *passCtx) emitInstruction(ins opcodes.Instruction, value int64, loc SourceLocation) {
	bytes := encodeInstruction(ins, value)
	addr := ctx.emit(bytes)
	if ctx.debug != nil {
		ctx.debug.recordInstruction(int(addr), len(bytes), loc)
	}
}

func (ctx *passCtx) processData(sc *scope, n *dataStmt, readFile readFileFunc, dir string) {
	ec := ctx.evalCtxFor(sc)
	switch n.kind {
	case dataByte, dataWord:
		width := 1
		if n.kind == dataWord {
			width = 2
		}
		var out []byte
		for _, e := range n.values {
			v, st := ec.requireInt(e)
			if st != evalResolved {
				if st == evalUnresolved {
					ctx.dirty = true
				}
				out = append(out, make([]byte, width)...)
				continue
			}
			lo, hi := int64(-128), int64(255)
			if width == 2 {
				lo, hi = -32768, 65535
			}
			if v < lo || v > hi {
				ctx.errorf(e.exprLoc(), "value %d does not fit in %d byte(s)", v, width)
			}
			out = append(out, littleEndianBytes(width, v)...)
		}
		addr := ctx.emit(out)
		if ctx.debug != nil {
			ctx.debug.recordData(int(addr), len(out), n.loc)
		}

	case dataFill:
		count, st := ec.requireInt(n.count)
		if st != evalResolved {
			ctx.dirty = ctx.dirty || st == evalUnresolved
			return
		}
		fillByte := byte(0)
		if n.fill != nil {
			fv, st := ec.requireInt(n.fill)
			if st == evalResolved {
				fillByte = byte(fv)
			} else {
				ctx.dirty = ctx.dirty || st == evalUnresolved
			}
		}
		if count < 0 {
			ctx.errorf(n.loc, "!fill count must not be negative")
			return
		}
		buf := make([]byte, count)
		for i := range buf {
			buf[i] = fillByte
		}
		addr := ctx.emit(buf)
		if ctx.debug != nil {
			ctx.debug.recordData(int(addr), len(buf), n.loc)
		}

	case dataBinary:
		ctx.processBinary(sc, n, readFile, dir)
	}
}

func (ctx *passCtx) processBinary(sc *scope, n *dataStmt, readFile readFileFunc, dir string) {
	ec := ctx.evalCtxFor(sc)
	pathVal, st := ec.eval(n.path)
	if st != evalResolved || !pathVal.isString() {
		ctx.errorf(n.loc, "!binary requires a string path")
		return
	}
	data, err := readFile(joinPath(dir, string(pathVal.s)))
	if err != nil {
		ctx.errorf(n.loc, "cannot read binary file '%s': %v", string(pathVal.s), err)
		return
	}
	offset := int64(0)
	if n.offset != nil {
		v, st := ec.requireInt(n.offset)
		if st == evalResolved {
			offset = v
		}
	}
	length := int64(len(data)) - offset
	if n.length != nil {
		v, st := ec.requireInt(n.length)
		if st == evalResolved {
			length = v
		}
	}
	if offset < 0 || offset > int64(len(data)) || length < 0 || offset+length > int64(len(data)) {
		ctx.errorf(n.loc, "!binary range out of bounds for file '%s'", string(pathVal.s))
		return
	}
	addr := ctx.emit(data[offset : offset+length])
	if ctx.debug != nil {
		ctx.debug.recordData(int(addr), int(length), n.loc)
	}
}

func (ctx *passCtx) processText(sc *scope, n *textStmt) {
	out := toPETSCII([]byte(n.text))
	addr := ctx.emit(out)
	if ctx.debug != nil {
		ctx.debug.recordData(int(addr), len(out), n.loc)
	}
}

func (ctx *passCtx) processInclude(sc *scope, n *includeStmt, readFile readFileFunc, dir string) {
	path := joinPath(dir, n.path)
	data, err := readFile(path)
	if err != nil {
		ctx.errorf(n.loc, "cannot read included file '%s': %v", n.path, err)
		return
	}
	fileIdx := ctx.files.add(path)
	toks, lexDiags := lexFile(fileIdx, string(data))
	body, parseDiags := parseProgram(toks)
	ctx.diags = append(ctx.diags, lexDiags...)
	ctx.diags = append(ctx.diags, parseDiags...)
	ctx.processBlock(sc, body, readFile, parentDir(path))
}

func (ctx *passCtx) processWarn(sc *scope, n *warnStmt) {
	ec := ctx.evalCtxFor(sc)
	v, st := ec.eval(n.message)
	if st != evalResolved {
		ctx.dirty = ctx.dirty || st == evalUnresolved
		return
	}
	msg := v.String()
	if n.isError {
		ctx.diags = append(ctx.diags, errorf(n.loc, "%s", msg))
	} else {
		ctx.diags = append(ctx.diags, warnf(n.loc, "%s", msg))
	}
}

func (ctx *passCtx) processIf(sc *scope, n *ifStmt, readFile readFileFunc, dir string) {
	ec := ctx.evalCtxFor(sc)
	v, st := ec.eval(n.cond)
	if st == evalError {
		return
	}
	if st == evalUnresolved {
		// An unresolved condition is treated as not-taken for this
		// pass (the resolved Open Question on tentative !if) and
		// marks the pass dirty, so a later pass evaluates it again.
		ctx.dirty = true
		return
	}
	i, ok := v.asInteger()
	if !ok {
		ctx.errorf(n.cond.exprLoc(), "!if condition must be an integer")
		return
	}
	if i != 0 {
		ctx.processBlock(sc, n.thenBody, readFile, dir)
	} else if n.elseBody != nil {
		ctx.processBlock(sc, n.elseBody, readFile, dir)
	}
}

func (ctx *passCtx) processFor(sc *scope, n *forStmt, readFile readFileFunc, dir string) {
	ec := ctx.evalCtxFor(sc)
	v, st := ec.eval(n.iter)
	if st != evalResolved {
		ctx.dirty = ctx.dirty || st == evalUnresolved
		return
	}
	if !v.isArray() {
		ctx.errorf(n.iter.exprLoc(), "!for requires an array expression")
		return
	}
	idx := ctx.nextAnonIndex(sc)
	loopScope := sc.anonymousChild(idx)
	for i, item := range v.arr {
		iterScope := loopScope.child(fmt.Sprintf("%d", i))
		ctx.defineOrUpdateConstant(iterScope, n.varName, item, n.loc, n)
		ctx.processBlock(iterScope, n.body, readFile, dir)
	}
}

func (ctx *passCtx) processScope(sc *scope, n *scopeStmt, readFile readFileFunc, dir string) {
	var child *scope
	if n.anonymous {
		idx := ctx.nextAnonIndex(sc)
		child = sc.anonymousChild(idx)
	} else {
		child = sc.child(n.name)
	}
	start := ctx.pc()
	ctx.processBlock(child, n.body, readFile, dir)
	ctx.touchSpan(child, start, 0)
	ctx.touchSpan(child, ctx.pc(), 0)
}

func (ctx *passCtx) nextAnonIndex(sc *scope) int {
	idx := ctx.anonCounters[sc]
	ctx.anonCounters[sc] = idx + 1
	return idx
}

func (ctx *passCtx) processMacroCall(sc *scope, n *macroCallStmt, readFile readFileFunc, dir string) {
	m, definedIn, ok := ctx.macros.lookup(n.name)
	if !ok {
		ctx.errorf(n.loc, "unknown macro '%s'", n.name)
		return
	}
	ec := ctx.evalCtxFor(sc)
	args := make([]Value, 0, len(n.args))
	allResolved := true
	for _, a := range n.args {
		v, st := ec.eval(a)
		if st != evalResolved {
			allResolved = false
			ctx.dirty = ctx.dirty || st == evalUnresolved
			continue
		}
		args = append(args, v)
	}
	if !allResolved {
		return
	}
	invocation, diags := ctx.macros.expand(m, definedIn, args, n.loc)
	ctx.diags = append(ctx.diags, diags...)
	if ctx.debug != nil {
		ctx.debug.enterMacroCall(n.loc)
	}
	ctx.processBlock(invocation, m.body, readFile, dir)
	if ctx.debug != nil {
		ctx.debug.exitMacroCall()
	}
}

type readFileFunc func(path string) ([]byte, error)

func joinPath(dir, name string) string {
	if dir == "" || strings.HasPrefix(name, "/") {
		return name
	}
	return strings.TrimSuffix(dir, "/") + "/" + name
}

func parentDir(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return ""
}
