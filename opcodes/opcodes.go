// Package opcodes describes the 56 official NMOS 6502 mnemonics, their
// addressing-mode encodings, and the byte layout each encoding uses.
// It is pure data plus lookup: it knows nothing about assembling or
// disassembling a program, only how a (mnemonic, mode) pair maps to
// an opcode byte and how many operand bytes follow it.
package opcodes

import "sync"

// Mode identifies one of the 6502's 13 addressing modes.
type Mode int

const (
	Implied Mode = iota
	Accumulator
	Immediate
	ZeroPage
	ZeroPageX
	ZeroPageY
	Absolute
	AbsoluteX
	AbsoluteY
	Indirect
	IndirectX
	IndirectY
	Relative
)

func (m Mode) String() string {
	switch m {
	case Implied:
		return "implied"
	case Accumulator:
		return "accumulator"
	case Immediate:
		return "immediate"
	case ZeroPage:
		return "zeropage"
	case ZeroPageX:
		return "zeropage,x"
	case ZeroPageY:
		return "zeropage,y"
	case Absolute:
		return "absolute"
	case AbsoluteX:
		return "absolute,x"
	case AbsoluteY:
		return "absolute,y"
	case Indirect:
		return "indirect"
	case IndirectX:
		return "(indirect,x)"
	case IndirectY:
		return "(indirect),y"
	case Relative:
		return "relative"
	default:
		return "unknown"
	}
}

// OperandLength returns the number of operand bytes that follow the
// opcode byte for a given mode, not counting the opcode itself.
func (m Mode) OperandLength() int {
	switch m {
	case Implied, Accumulator:
		return 0
	case Immediate, ZeroPage, ZeroPageX, ZeroPageY, IndirectX, IndirectY, Relative:
		return 1
	case Absolute, AbsoluteX, AbsoluteY, Indirect:
		return 2
	default:
		return 0
	}
}

// Instruction is one (mnemonic, mode) encoding: its opcode byte, total
// instruction length (opcode + operand), and base cycle count (the
// cycle count before any page-boundary-crossing or branch-taken
// penalty), used by the disassembler's annotation output.
type Instruction struct {
	Mnemonic string
	Mode     Mode
	Opcode   byte
	Length   int
	Cycles   int
}

// InstructionSet indexes the fixed instruction table two ways: by
// opcode byte (for disassembly) and by mnemonic+mode (for assembly).
type InstructionSet struct {
	byOpcode    [256]*Instruction
	byMnemonic  map[string][]Instruction
}

func newInstructionSet(table []Instruction) *InstructionSet {
	is := &InstructionSet{byMnemonic: make(map[string][]Instruction)}
	for i := range table {
		ins := table[i]
		is.byOpcode[ins.Opcode] = &table[i]
		is.byMnemonic[ins.Mnemonic] = append(is.byMnemonic[ins.Mnemonic], ins)
	}
	return is
}

// Lookup finds the encoding for mnemonic in the given mode, case
// sensitive (callers normalize case before calling).
func (is *InstructionSet) Lookup(mnemonic string, mode Mode) (Instruction, bool) {
	for _, ins := range is.byMnemonic[mnemonic] {
		if ins.Mode == mode {
			return ins, true
		}
	}
	return Instruction{}, false
}

// Modes returns every addressing mode mnemonic supports, in table
// order, used by the emitter's "pick the narrowest applicable mode"
// search.
func (is *InstructionSet) Modes(mnemonic string) []Instruction {
	return is.byMnemonic[mnemonic]
}

// ByOpcode finds the instruction encoded by a given opcode byte, used
// by the disassembler.
func (is *InstructionSet) ByOpcode(opcode byte) (Instruction, bool) {
	ins := is.byOpcode[opcode]
	if ins == nil {
		return Instruction{}, false
	}
	return *ins, true
}

// IsMnemonic reports whether name is one of the 56 official NMOS
// mnemonics this table describes.
func (is *InstructionSet) IsMnemonic(name string) bool {
	_, ok := is.byMnemonic[name]
	return ok
}

var instructionSet = sync.OnceValue(func() *InstructionSet {
	return newInstructionSet(baseTable)
})

// Get returns the shared, lazily-built NMOS 6502 instruction set.
func Get() *InstructionSet {
	return instructionSet()
}

// baseTable enumerates every official NMOS 6502 (mnemonic, mode)
// encoding. Accumulator-mode INC/DEC ($1A/$3A) are included even
// though they are a 65C02 extension on real hardware, a deliberate
// deviation documented in DESIGN.md (Open Question OQ-1).
var baseTable = []Instruction{
	{"ADC", Immediate, 0x69, 2, 2}, {"ADC", ZeroPage, 0x65, 2, 3}, {"ADC", ZeroPageX, 0x75, 2, 4},
	{"ADC", Absolute, 0x6D, 3, 4}, {"ADC", AbsoluteX, 0x7D, 3, 4}, {"ADC", AbsoluteY, 0x79, 3, 4},
	{"ADC", IndirectX, 0x61, 2, 6}, {"ADC", IndirectY, 0x71, 2, 5},

	{"AND", Immediate, 0x29, 2, 2}, {"AND", ZeroPage, 0x25, 2, 3}, {"AND", ZeroPageX, 0x35, 2, 4},
	{"AND", Absolute, 0x2D, 3, 4}, {"AND", AbsoluteX, 0x3D, 3, 4}, {"AND", AbsoluteY, 0x39, 3, 4},
	{"AND", IndirectX, 0x21, 2, 6}, {"AND", IndirectY, 0x31, 2, 5},

	{"ASL", Accumulator, 0x0A, 1, 2}, {"ASL", ZeroPage, 0x06, 2, 5}, {"ASL", ZeroPageX, 0x16, 2, 6},
	{"ASL", Absolute, 0x0E, 3, 6}, {"ASL", AbsoluteX, 0x1E, 3, 7},

	{"BCC", Relative, 0x90, 2, 2},
	{"BCS", Relative, 0xB0, 2, 2},
	{"BEQ", Relative, 0xF0, 2, 2},

	{"BIT", ZeroPage, 0x24, 2, 3}, {"BIT", Absolute, 0x2C, 3, 4},

	{"BMI", Relative, 0x30, 2, 2},
	{"BNE", Relative, 0xD0, 2, 2},
	{"BPL", Relative, 0x10, 2, 2},

	{"BRK", Implied, 0x00, 1, 7},

	{"BVC", Relative, 0x50, 2, 2},
	{"BVS", Relative, 0x70, 2, 2},

	{"CLC", Implied, 0x18, 1, 2},
	{"CLD", Implied, 0xD8, 1, 2},
	{"CLI", Implied, 0x58, 1, 2},
	{"CLV", Implied, 0xB8, 1, 2},

	{"CMP", Immediate, 0xC9, 2, 2}, {"CMP", ZeroPage, 0xC5, 2, 3}, {"CMP", ZeroPageX, 0xD5, 2, 4},
	{"CMP", Absolute, 0xCD, 3, 4}, {"CMP", AbsoluteX, 0xDD, 3, 4}, {"CMP", AbsoluteY, 0xD9, 3, 4},
	{"CMP", IndirectX, 0xC1, 2, 6}, {"CMP", IndirectY, 0xD1, 2, 5},

	{"CPX", Immediate, 0xE0, 2, 2}, {"CPX", ZeroPage, 0xE4, 2, 3}, {"CPX", Absolute, 0xEC, 3, 4},
	{"CPY", Immediate, 0xC0, 2, 2}, {"CPY", ZeroPage, 0xC4, 2, 3}, {"CPY", Absolute, 0xCC, 3, 4},

	{"DEC", Accumulator, 0x3A, 1, 2}, {"DEC", ZeroPage, 0xC6, 2, 5}, {"DEC", ZeroPageX, 0xD6, 2, 6},
	{"DEC", Absolute, 0xCE, 3, 6}, {"DEC", AbsoluteX, 0xDE, 3, 7},

	{"DEX", Implied, 0xCA, 1, 2},
	{"DEY", Implied, 0x88, 1, 2},

	{"EOR", Immediate, 0x49, 2, 2}, {"EOR", ZeroPage, 0x45, 2, 3}, {"EOR", ZeroPageX, 0x55, 2, 4},
	{"EOR", Absolute, 0x4D, 3, 4}, {"EOR", AbsoluteX, 0x5D, 3, 4}, {"EOR", AbsoluteY, 0x59, 3, 4},
	{"EOR", IndirectX, 0x41, 2, 6}, {"EOR", IndirectY, 0x51, 2, 5},

	{"INC", Accumulator, 0x1A, 1, 2}, {"INC", ZeroPage, 0xE6, 2, 5}, {"INC", ZeroPageX, 0xF6, 2, 6},
	{"INC", Absolute, 0xEE, 3, 6}, {"INC", AbsoluteX, 0xFE, 3, 7},

	{"INX", Implied, 0xE8, 1, 2},
	{"INY", Implied, 0xC8, 1, 2},

	{"JMP", Absolute, 0x4C, 3, 3}, {"JMP", Indirect, 0x6C, 3, 5},
	{"JSR", Absolute, 0x20, 3, 6},

	{"LDA", Immediate, 0xA9, 2, 2}, {"LDA", ZeroPage, 0xA5, 2, 3}, {"LDA", ZeroPageX, 0xB5, 2, 4},
	{"LDA", Absolute, 0xAD, 3, 4}, {"LDA", AbsoluteX, 0xBD, 3, 4}, {"LDA", AbsoluteY, 0xB9, 3, 4},
	{"LDA", IndirectX, 0xA1, 2, 6}, {"LDA", IndirectY, 0xB1, 2, 5},

	{"LDX", Immediate, 0xA2, 2, 2}, {"LDX", ZeroPage, 0xA6, 2, 3}, {"LDX", ZeroPageY, 0xB6, 2, 4},
	{"LDX", Absolute, 0xAE, 3, 4}, {"LDX", AbsoluteY, 0xBE, 3, 4},

	{"LDY", Immediate, 0xA0, 2, 2}, {"LDY", ZeroPage, 0xA4, 2, 3}, {"LDY", ZeroPageX, 0xB4, 2, 4},
	{"LDY", Absolute, 0xAC, 3, 4}, {"LDY", AbsoluteX, 0xBC, 3, 4},

	{"LSR", Accumulator, 0x4A, 1, 2}, {"LSR", ZeroPage, 0x46, 2, 5}, {"LSR", ZeroPageX, 0x56, 2, 6},
	{"LSR", Absolute, 0x4E, 3, 6}, {"LSR", AbsoluteX, 0x5E, 3, 7},

	{"NOP", Implied, 0xEA, 1, 2},

	{"ORA", Immediate, 0x09, 2, 2}, {"ORA", ZeroPage, 0x05, 2, 3}, {"ORA", ZeroPageX, 0x15, 2, 4},
	{"ORA", Absolute, 0x0D, 3, 4}, {"ORA", AbsoluteX, 0x1D, 3, 4}, {"ORA", AbsoluteY, 0x19, 3, 4},
	{"ORA", IndirectX, 0x01, 2, 6}, {"ORA", IndirectY, 0x11, 2, 5},

	{"PHA", Implied, 0x48, 1, 3},
	{"PHP", Implied, 0x08, 1, 3},
	{"PLA", Implied, 0x68, 1, 4},
	{"PLP", Implied, 0x28, 1, 4},

	{"ROL", Accumulator, 0x2A, 1, 2}, {"ROL", ZeroPage, 0x26, 2, 5}, {"ROL", ZeroPageX, 0x36, 2, 6},
	{"ROL", Absolute, 0x2E, 3, 6}, {"ROL", AbsoluteX, 0x3E, 3, 7},

	{"ROR", Accumulator, 0x6A, 1, 2}, {"ROR", ZeroPage, 0x66, 2, 5}, {"ROR", ZeroPageX, 0x76, 2, 6},
	{"ROR", Absolute, 0x6E, 3, 6}, {"ROR", AbsoluteX, 0x7E, 3, 7},

	{"RTI", Implied, 0x40, 1, 6},
	{"RTS", Implied, 0x60, 1, 6},

	{"SBC", Immediate, 0xE9, 2, 2}, {"SBC", ZeroPage, 0xE5, 2, 3}, {"SBC", ZeroPageX, 0xF5, 2, 4},
	{"SBC", Absolute, 0xED, 3, 4}, {"SBC", AbsoluteX, 0xFD, 3, 4}, {"SBC", AbsoluteY, 0xF9, 3, 4},
	{"SBC", IndirectX, 0xE1, 2, 6}, {"SBC", IndirectY, 0xF1, 2, 5},

	{"SEC", Implied, 0x38, 1, 2},
	{"SED", Implied, 0xF8, 1, 2},
	{"SEI", Implied, 0x78, 1, 2},

	{"STA", ZeroPage, 0x85, 2, 3}, {"STA", ZeroPageX, 0x95, 2, 4}, {"STA", Absolute, 0x8D, 3, 4},
	{"STA", AbsoluteX, 0x9D, 3, 5}, {"STA", AbsoluteY, 0x99, 3, 5}, {"STA", IndirectX, 0x81, 2, 6},
	{"STA", IndirectY, 0x91, 2, 6},

	{"STX", ZeroPage, 0x86, 2, 3}, {"STX", ZeroPageY, 0x96, 2, 4}, {"STX", Absolute, 0x8E, 3, 4},
	{"STY", ZeroPage, 0x84, 2, 3}, {"STY", ZeroPageX, 0x94, 2, 4}, {"STY", Absolute, 0x8C, 3, 4},

	{"TAX", Implied, 0xAA, 1, 2},
	{"TAY", Implied, 0xA8, 1, 2},
	{"TSX", Implied, 0xBA, 1, 2},
	{"TXA", Implied, 0x8A, 1, 2},
	{"TXS", Implied, 0x9A, 1, 2},
	{"TYA", Implied, 0x98, 1, 2},
}
