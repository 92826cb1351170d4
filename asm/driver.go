package asm

import (
	"io"

	"github.com/corvid64/c64asm/opcodes"
)

// maxPasses bounds the fixpoint iteration: macro expansion, !if
// tentativeness, and !for unrolling can all change from pass to pass
// as label estimates settle, so the driver keeps re-running the whole
// program until nothing changes or this cap is hit, whichever comes
// first.
const maxPasses = 16

// AssembleOptions configures one assembly run. ReadFile is the only
// point at which the driver touches the filesystem, making it
// trivially testable with an in-memory file map.
type AssembleOptions struct {
	ReadFile readFileFunc
	Verbose  io.Writer
}

// AssembleResult is the outcome of assembling one program: its
// program bytes, the address they load at, every diagnostic produced
// (sorted by file/line/column), and, when assembly succeeded, the
// accompanying debug-info record.
type AssembleResult struct {
	Program     []byte
	LoadAddress uint16
	Diagnostics []Diagnostic
	DebugInfo   *DebugInfo
	Converged   bool

	files *fileTable
}

// FormatDiagnostic renders d using the fixed
// "<file>:<line>:<col> - <severity>: <message>" contract.
func (r *AssembleResult) FormatDiagnostic(d Diagnostic) string {
	return d.Format(r.files)
}

// HasErrors reports whether any diagnostic in the result is an error
// (as opposed to a warning).
func (r *AssembleResult) HasErrors() bool {
	return hasErrors(r.Diagnostics)
}

// Assemble assembles the source file at path (read via opts.ReadFile)
// into a Commodore 64 ".prg" byte image plus its debug-info record.
func Assemble(path string, opts AssembleOptions) *AssembleResult {
	files := &fileTable{}
	idx := files.add(path)

	result := &AssembleResult{files: files}

	data, err := opts.ReadFile(path)
	if err != nil {
		result.Diagnostics = []Diagnostic{errorf(SourceLocation{FileIndex: idx}, "cannot read '%s': %v", path, err)}
		return result
	}

	toks, lexDiags := lexFile(idx, string(data))
	body, parseDiags := parseProgram(toks)

	root := newScope("", nil)
	macros := newMacroRegistry()
	widths := map[stmt]int{}
	spans := map[*scope]*scopeSpan{}
	definers := map[*scope]map[string]stmt{}
	instSet := opcodes.Get()
	dir := parentDir(path)

	stub, entryAddress := basicStub()

	runPass := func(firstPass bool, finalPass bool) *passCtx {
		var debug *debugInfoBuilder
		if finalPass {
			debug = newDebugInfoBuilder(files)
		}
		ctx := &passCtx{
			files:        files,
			instSet:      instSet,
			root:         root,
			macros:       macros,
			spans:        spans,
			widths:       widths,
			definers:     definers,
			firstPass:    firstPass,
			finalPass:    finalPass,
			segments:     map[string]*segmentBuf{},
			anonCounters: map[*scope]int{},
			debug:        debug,
			verbose:      opts.Verbose,
		}
		ctx.curSegment = ""
		ctx.segment("").pc = int64(entryAddress)
		ctx.processBlock(root, body, opts.ReadFile, dir)
		return ctx
	}

	var final *passCtx
	converged := false
	for pass := 0; pass < maxPasses; pass++ {
		ctx := runPass(pass == 0, false)
		final = ctx
		ctx.logf("pass %d: dirty=%v diagnostics=%d", pass, ctx.dirty, len(ctx.diags))
		if !ctx.dirty {
			converged = true
			break
		}
	}

	final = runPass(false, true)
	result.Converged = converged

	diags := append([]Diagnostic{}, lexDiags...)
	diags = append(diags, parseDiags...)
	diags = append(diags, final.diags...)
	if !converged {
		diags = append(diags, errorf(SourceLocation{FileIndex: idx}, "assembly did not converge within %d passes", maxPasses))
	}
	sortDiagnostics(diags)
	result.Diagnostics = diags

	result.Program, result.LoadAddress = buildProgram(final, stub, entryAddress)
	result.DebugInfo = final.debug.build()

	return result
}

// buildProgram concatenates the default segment (prefixed with the
// automatic BASIC stub when the source never issued "* ="), followed
// by every other named segment in first-declaration order.
func buildProgram(ctx *passCtx, stub []byte, entryAddress int) ([]byte, uint16) {
	def := ctx.segment("")
	var program []byte
	var loadAddress int64

	if !ctx.orgSet {
		program = append(program, stub...)
		loadAddress = basicLoadAddress
	} else {
		loadAddress = def.base
	}
	program = append(program, def.bytes...)

	for _, name := range ctx.segmentOrder {
		if name == "" {
			continue
		}
		program = append(program, ctx.segments[name].bytes...)
	}

	return program, uint16(loadAddress)
}
