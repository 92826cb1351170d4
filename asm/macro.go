package asm

import "fmt"

// macroRegistry tracks macro definitions (global to an assembly,
// mirroring the teacher's single flat namespace for reusable
// building blocks) along with the scope each macro was lexically
// defined in, used to hygienically resolve any free identifier inside
// the macro body.
type macroRegistry struct {
	defs  map[string]*macroStmt
	scope map[string]*scope
	calls int
}

func newMacroRegistry() *macroRegistry {
	return &macroRegistry{defs: map[string]*macroStmt{}, scope: map[string]*scope{}}
}

func (r *macroRegistry) define(m *macroStmt, definedIn *scope) {
	r.defs[m.name] = m
	r.scope[m.name] = definedIn
}

func (r *macroRegistry) lookup(name string) (*macroStmt, *scope, bool) {
	m, ok := r.defs[name]
	if !ok {
		return nil, nil, false
	}
	return m, r.scope[name], true
}

// expand builds the hygienic invocation scope for a macro call: a
// child of the macro's defining scope (so the body resolves free
// names against where it was written, not where it is called from),
// named uniquely per call so that inner label definitions never
// collide between invocations.
func (r *macroRegistry) expand(m *macroStmt, definedIn *scope, args []Value, callLoc SourceLocation) (*scope, []Diagnostic) {
	var diags []Diagnostic
	if len(args) != len(m.params) {
		diags = append(diags, errorf(callLoc, "macro '%s' expects %d argument(s), got %d", m.name, len(m.params), len(args)))
	}
	r.calls++
	invocation := newScope(fmt.Sprintf("%s#%d", m.name, r.calls), definedIn)
	for i, p := range m.params {
		sym, _ := invocation.define(p, symConstant, callLoc)
		if i < len(args) {
			sym.value = args[i]
			sym.hasValue = true
		}
	}
	return invocation, diags
}
