package disasm

import "testing"

func allInstructions(addr int) bool { return true }

func TestDisassembleSimpleSequence(t *testing.T) {
	// LDA #$01 ; STA $D020 ; RTS
	code := []byte{0xA9, 0x01, 0x8D, 0x20, 0xD0, 0x60}
	lines := Disassemble(code, 0xC000, allInstructions)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0].Mnemonic != "LDA" || lines[0].Operand != "#$01" {
		t.Errorf("line 0 = %+v", lines[0])
	}
	if lines[1].Mnemonic != "STA" || lines[1].Operand != "$D020" {
		t.Errorf("line 1 = %+v", lines[1])
	}
	if lines[2].Mnemonic != "RTS" || lines[2].Operand != "" {
		t.Errorf("line 2 = %+v", lines[2])
	}
}

func TestDisassembleBranchShowsAbsoluteTarget(t *testing.T) {
	// BNE -2 (branch to self)
	code := []byte{0xD0, 0xFE}
	lines := Disassemble(code, 0xC000, allInstructions)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0].Operand != "$C000" {
		t.Errorf("expected branch target $C000, got %s", lines[0].Operand)
	}
}

func TestDisassembleDataRegionNotDecoded(t *testing.T) {
	code := []byte{0xA9, 0x01, 0xFF, 0xFF, 0x60}
	isInstr := func(addr int) bool {
		return addr == 0xC000 || addr == 0xC004
	}
	lines := Disassemble(code, 0xC000, isInstr)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %+v", len(lines), lines)
	}
	if !lines[1].IsData || len(lines[1].Bytes) != 2 {
		t.Errorf("expected a 2-byte data line, got %+v", lines[1])
	}
	if lines[2].Mnemonic != "RTS" {
		t.Errorf("expected RTS, got %+v", lines[2])
	}
}

func TestDisassembleIncompleteInstructionAtEnd(t *testing.T) {
	code := []byte{0xAD, 0x01} // LDA absolute, missing high byte
	lines := Disassemble(code, 0xC000, allInstructions)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if !lines[0].Incomplete || lines[0].Mnemonic != "LDA" {
		t.Errorf("expected incomplete LDA, got %+v", lines[0])
	}
}
