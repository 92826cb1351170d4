package opcodes

import "testing"

func TestLookupKnownEncodings(t *testing.T) {
	is := Get()
	cases := []struct {
		mnemonic string
		mode     Mode
		opcode   byte
		length   int
	}{
		{"LDA", Immediate, 0xA9, 2},
		{"LDA", AbsoluteX, 0xBD, 3},
		{"STA", IndirectY, 0x91, 2},
		{"JMP", Indirect, 0x6C, 3},
		{"BRK", Implied, 0x00, 1},
		{"INC", Accumulator, 0x1A, 1},
		{"DEC", Accumulator, 0x3A, 1},
		{"ASL", Accumulator, 0x0A, 1},
	}
	for _, c := range cases {
		ins, ok := is.Lookup(c.mnemonic, c.mode)
		if !ok {
			t.Errorf("Lookup(%s, %v): not found", c.mnemonic, c.mode)
			continue
		}
		if ins.Opcode != c.opcode || ins.Length != c.length {
			t.Errorf("Lookup(%s, %v) = %#02x len %d, want %#02x len %d", c.mnemonic, c.mode, ins.Opcode, ins.Length, c.opcode, c.length)
		}
	}
}

func TestLookupMissingModeFails(t *testing.T) {
	is := Get()
	if _, ok := is.Lookup("LDA", Indirect); ok {
		t.Errorf("LDA has no Indirect mode, Lookup should fail")
	}
}

func TestByOpcodeRoundTrip(t *testing.T) {
	is := Get()
	ins, ok := is.Lookup("LDA", ZeroPage)
	if !ok {
		t.Fatal("expected LDA zeropage")
	}
	back, ok := is.ByOpcode(ins.Opcode)
	if !ok || back.Mnemonic != "LDA" || back.Mode != ZeroPage {
		t.Errorf("ByOpcode(%#02x) = %+v, want LDA zeropage", ins.Opcode, back)
	}
}

func TestInstructionSetSize(t *testing.T) {
	is := Get()
	mnemonics := map[string]bool{}
	for m := range is.byMnemonic {
		mnemonics[m] = true
	}
	if len(mnemonics) != 56 {
		t.Errorf("expected 56 official mnemonics, got %d", len(mnemonics))
	}
}

func TestIsMnemonic(t *testing.T) {
	is := Get()
	if !is.IsMnemonic("LDA") {
		t.Errorf("LDA should be a known mnemonic")
	}
	if is.IsMnemonic("XYZ") {
		t.Errorf("XYZ should not be a known mnemonic")
	}
}
