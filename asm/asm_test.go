package asm

import (
	"bytes"
	"fmt"
	"testing"
)

// memFile returns a readFileFunc backed by an in-memory map, letting
// tests exercise !include and !binary without touching the disk.
func memFile(files map[string][]byte) readFileFunc {
	return func(path string) ([]byte, error) {
		if data, ok := files[path]; ok {
			return data, nil
		}
		return nil, fmt.Errorf("file not found: %s", path)
	}
}

// assembleSource assembles a single in-memory source string under
// the path "main.asm" and returns the result without checking its
// diagnostics; callers decide whether errors are expected.
func assembleSource(t *testing.T, src string) *AssembleResult {
	t.Helper()
	files := map[string][]byte{"main.asm": []byte(src)}
	result := Assemble("main.asm", AssembleOptions{ReadFile: memFile(files)})
	return result
}

// checkASM assembles src, fails the test on any error diagnostic, and
// asserts the resulting program bytes equal want.
func checkASM(t *testing.T, src string, want []byte) *AssembleResult {
	t.Helper()
	result := assembleSource(t, src)
	for _, d := range result.Diagnostics {
		t.Errorf("unexpected diagnostic: %s", result.FormatDiagnostic(d))
	}
	if !bytes.Equal(result.Program, want) {
		t.Errorf("program = % 02X, want % 02X", result.Program, want)
	}
	return result
}

// checkASMError assembles src and asserts at least one error
// diagnostic was produced.
func checkASMError(t *testing.T, src string) *AssembleResult {
	t.Helper()
	result := assembleSource(t, src)
	if !result.HasErrors() {
		t.Errorf("expected an error diagnostic, got none")
	}
	return result
}

func TestOrgThenSimpleInstructions(t *testing.T) {
	checkASM(t, "* = $C000\nLDA #$01\nSTA $D020\nRTS\n",
		[]byte{0xA9, 0x01, 0x8D, 0x20, 0xD0, 0x60})
}

func TestDefaultOrgGetsBasicStub(t *testing.T) {
	result := assembleSource(t, "LDA #$00\nRTS\n")
	if result.HasErrors() {
		t.Fatalf("unexpected errors: %v", result.Diagnostics)
	}
	if result.LoadAddress != basicLoadAddress {
		t.Errorf("LoadAddress = $%04X, want $%04X", result.LoadAddress, basicLoadAddress)
	}
	// The last three bytes of the program must be the two instructions.
	tail := result.Program[len(result.Program)-3:]
	if !bytes.Equal(tail, []byte{0xA9, 0x00, 0x60}) {
		t.Errorf("program tail = % 02X, want A9 00 60", tail)
	}
}

func TestForwardBranchResolves(t *testing.T) {
	checkASM(t, "* = $C000\nloop:\nBNE loop\n", []byte{0xD0, 0xFE})
	checkASM(t, "* = $C000\nBNE target\nNOP\ntarget:\n", []byte{0xD0, 0x01, 0xEA})
}

func TestZeroPageNarrowing(t *testing.T) {
	checkASM(t, "* = $C000\nvalue = $42\nLDA value\n", []byte{0xA5, 0x42})
	checkASM(t, "* = $C000\nvalue = $1234\nLDA value\n", []byte{0xAD, 0x34, 0x12})
}

func TestBranchOutOfRangeIsAnError(t *testing.T) {
	src := "* = $C000\nBNE target\n!fill 200\ntarget:\n"
	checkASMError(t, src)
}

func TestDuplicateLabelIsAnError(t *testing.T) {
	checkASMError(t, "* = $C000\nfoo:\nNOP\nfoo:\nRTS\n")
}

func TestDataDirectives(t *testing.T) {
	checkASM(t, "* = $C000\n!byte 1, 2, 3\n!word $ABCD\n", []byte{1, 2, 3, 0xCD, 0xAB})
	checkASM(t, "* = $C000\n!fill 3, $EA\n", []byte{0xEA, 0xEA, 0xEA})
}

func TestTextDirectiveIsPETSCII(t *testing.T) {
	result := checkASM(t, "* = $C000\n!text \"AB\"\n", []byte{0xC1, 0xC2})
	_ = result
}

func TestBinaryIncludesRawFile(t *testing.T) {
	files := map[string][]byte{
		"main.asm": []byte("* = $C000\n!binary \"data.bin\"\n"),
		"data.bin": {0xDE, 0xAD, 0xBE, 0xEF},
	}
	result := Assemble("main.asm", AssembleOptions{ReadFile: memFile(files)})
	for _, d := range result.Diagnostics {
		t.Errorf("unexpected diagnostic: %s", result.FormatDiagnostic(d))
	}
	want := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	if !bytes.Equal(result.Program, want) {
		t.Errorf("program = % 02X, want % 02X", result.Program, want)
	}
}

func TestMacroExpansionAndHygiene(t *testing.T) {
	src := `* = $C000
!macro incTwice(addr) {
	INC addr
	INC addr
}
+incTwice($D020)
+incTwice($D021)
`
	checkASM(t, src, []byte{
		0xEE, 0x20, 0xD0, 0xEE, 0x20, 0xD0,
		0xEE, 0x21, 0xD0, 0xEE, 0x21, 0xD0,
	})
}

func TestMacroLocalLabelsDoNotCollideBetweenInvocations(t *testing.T) {
	src := `* = $C000
!macro waitZero(addr) {
@loop:
	LDA addr
	BNE @loop
}
+waitZero($D020)
+waitZero($D021)
`
	result := assembleSource(t, src)
	for _, d := range result.Diagnostics {
		t.Errorf("unexpected diagnostic: %s", result.FormatDiagnostic(d))
	}
	want := []byte{
		0xAD, 0x20, 0xD0, 0xD0, 0xFB,
		0xAD, 0x21, 0xD0, 0xD0, 0xFB,
	}
	if !bytes.Equal(result.Program, want) {
		t.Errorf("program = % 02X, want % 02X", result.Program, want)
	}
}

func TestScopedLabelsAreQualified(t *testing.T) {
	src := `* = $C000
!scope Point {
x: !byte 0
y: !byte 0
}
LDA Point::x
`
	checkASM(t, src, []byte{0, 0, 0xAD, 0x00, 0xC0})
}

func TestIncludeMergesSource(t *testing.T) {
	files := map[string][]byte{
		"main.asm": []byte("* = $C000\n!include \"inc.asm\"\nRTS\n"),
		"inc.asm":  []byte("NOP\n"),
	}
	result := Assemble("main.asm", AssembleOptions{ReadFile: memFile(files)})
	for _, d := range result.Diagnostics {
		t.Errorf("unexpected diagnostic: %s", result.FormatDiagnostic(d))
	}
	want := []byte{0xEA, 0x60}
	if !bytes.Equal(result.Program, want) {
		t.Errorf("program = % 02X, want % 02X", result.Program, want)
	}
}

func TestForLoopOverArrayLiteralUnrolls(t *testing.T) {
	checkASM(t, "* = $C000\n!for v in [1, 2, 3] {\nLDA #v\n}\n",
		[]byte{0xA9, 0x01, 0xA9, 0x02, 0xA9, 0x03})
}

func TestForLoopOverRangeUnrolls(t *testing.T) {
	checkASM(t, "* = $C000\n!for v in range(3) {\nLDA #v\n}\n",
		[]byte{0xA9, 0x00, 0xA9, 0x01, 0xA9, 0x02})
}

func TestForLoopOverTwoArgRange(t *testing.T) {
	checkASM(t, "* = $C000\n!for v in range(5, 8) {\nLDA #v\n}\n",
		[]byte{0xA9, 0x05, 0xA9, 0x06, 0xA9, 0x07})
}

func TestForLoopOverNonArrayIsAnError(t *testing.T) {
	checkASMError(t, "* = $C000\n!for v in 42 {\nLDA #v\n}\n")
}

func TestObjectLiteralMemberAccess(t *testing.T) {
	checkASM(t, "* = $C000\npoint = {x = 1, y = 2}\nLDA #point.x\nLDA #point.y\n",
		[]byte{0xA9, 0x01, 0xA9, 0x02})
}

func TestUnknownIdentifierIsAHardErrorOnFinalPass(t *testing.T) {
	result := checkASMError(t, "* = $C000\nLDA #nonexistent\n")
	found := false
	for _, d := range result.Diagnostics {
		if d.Message == "unknown identifier 'nonexistent'" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an 'unknown identifier' diagnostic, got: %v", result.Diagnostics)
	}
}

func TestDebugInfoRecordsLabelsAndConstants(t *testing.T) {
	result := assembleSource(t, "* = $C000\nanswer = 42\nstart:\nLDA #answer\nRTS\n")
	if result.HasErrors() {
		t.Fatalf("unexpected errors: %v", result.Diagnostics)
	}
	if result.DebugInfo == nil {
		t.Fatalf("expected non-nil DebugInfo")
	}
	var gotLabel, gotConstant bool
	for _, l := range result.DebugInfo.Labels {
		if l.Name == "start" && l.Value == 0xC000 {
			gotLabel = true
		}
	}
	for _, c := range result.DebugInfo.Constants {
		if c.Name == "answer" && c.Value == 42 {
			gotConstant = true
		}
	}
	if !gotLabel {
		t.Errorf("expected a label record for 'start', got: %v", result.DebugInfo.Labels)
	}
	if !gotConstant {
		t.Errorf("expected a constant record for 'answer', got: %v", result.DebugInfo.Constants)
	}
}

func TestDiagnosticFormatHasSyntaxErrorPrefix(t *testing.T) {
	result := assembleSource(t, "* = $C000\n&&&\n")
	if !result.HasErrors() {
		t.Fatalf("expected a syntax error")
	}
	found := false
	for _, d := range result.Diagnostics {
		s := result.FormatDiagnostic(d)
		if d.Syntax {
			found = true
			want := "Syntax error: " + d.Message
			if len(s) < len(want) || s[len(s)-len(want):] != want {
				t.Errorf("formatted diagnostic missing 'Syntax error: ' prefix: %s", s)
			}
		}
	}
	if !found {
		t.Errorf("expected at least one syntax diagnostic")
	}
}
