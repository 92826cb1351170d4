package asm

import (
	"fmt"
	"sort"
)

// Severity classifies a Diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	default:
		return "error"
	}
}

// A Diagnostic is a single assembler-produced message tied to a source
// location. Diagnostics are collected as plain values during a pass
// and rendered to text only at the boundary that wants to print them
// (the CLI, or a test's checkASMError-style helper), following the
// teacher's separation of error collection from error formatting.
type Diagnostic struct {
	Severity Severity
	Message  string
	Location SourceLocation

	// Syntax marks a diagnostic produced by the lexer or parser, whose
	// rendered message must begin with "Syntax error: ".
	Syntax bool
}

// Format renders the diagnostic using the fixed contract
// "<file>:<line>:<col> - <severity>: <message>", with forward slashes
// in the file path regardless of host OS.
func (d Diagnostic) Format(files *fileTable) string {
	msg := d.Message
	if d.Syntax && d.Severity == SeverityError {
		msg = "Syntax error: " + msg
	}
	return fmt.Sprintf("%s - %s: %s", formatLocation(files, d.Location), d.Severity, msg)
}

// sortDiagnostics orders diagnostics by (file, line, column), the
// order spec.md's external-interface contract requires for rendering.
func sortDiagnostics(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i].Location, diags[j].Location
		if a.FileIndex != b.FileIndex {
			return a.FileIndex < b.FileIndex
		}
		if a.StartLine != b.StartLine {
			return a.StartLine < b.StartLine
		}
		return a.StartCol < b.StartCol
	})
}

func hasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

func syntaxErrorf(loc SourceLocation, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: SeverityError, Syntax: true, Message: fmt.Sprintf(format, args...), Location: loc}
}

func errorf(loc SourceLocation, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: SeverityError, Message: fmt.Sprintf(format, args...), Location: loc}
}

func warnf(loc SourceLocation, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: SeverityWarning, Message: fmt.Sprintf(format, args...), Location: loc}
}
