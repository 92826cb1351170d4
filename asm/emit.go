package asm

import "github.com/corvid64/c64asm/opcodes"

// selectMode picks the addressing mode to encode an instruction with,
// given the syntactic operand shape and (if known yet) the operand's
// resolved value. It implements the narrowing rule: prefer ZeroPage
// (or ZeroPageX/ZeroPageY) over the Absolute-indexed equivalent once
// the operand is known to fit in a single byte; branch mnemonics
// always use Relative regardless of shape, since a bare branch target
// is syntactically identical to a bare absolute operand.
func selectMode(is *opcodes.InstructionSet, mnemonic string, kind operandKind, resolved bool, value int64) (opcodes.Mode, bool) {
	modes := is.Modes(mnemonic)
	has := func(m opcodes.Mode) bool {
		for _, ins := range modes {
			if ins.Mode == m {
				return true
			}
		}
		return false
	}

	switch kind {
	case operandNone:
		if has(opcodes.Accumulator) {
			return opcodes.Accumulator, true
		}
		if has(opcodes.Implied) {
			return opcodes.Implied, true
		}
		return 0, false

	case operandAccum:
		if has(opcodes.Accumulator) {
			return opcodes.Accumulator, true
		}
		return 0, false

	case operandImmediate:
		if has(opcodes.Immediate) {
			return opcodes.Immediate, true
		}
		return 0, false

	case operandAbsolute:
		if has(opcodes.Relative) {
			return opcodes.Relative, true
		}
		if resolved && value >= 0 && value <= 0xFF && has(opcodes.ZeroPage) {
			return opcodes.ZeroPage, true
		}
		if has(opcodes.Absolute) {
			return opcodes.Absolute, true
		}
		if has(opcodes.ZeroPage) {
			return opcodes.ZeroPage, true
		}
		return 0, false

	case operandAbsoluteX:
		if resolved && value >= 0 && value <= 0xFF && has(opcodes.ZeroPageX) {
			return opcodes.ZeroPageX, true
		}
		if has(opcodes.AbsoluteX) {
			return opcodes.AbsoluteX, true
		}
		if has(opcodes.ZeroPageX) {
			return opcodes.ZeroPageX, true
		}
		return 0, false

	case operandAbsoluteY:
		if resolved && value >= 0 && value <= 0xFF && has(opcodes.ZeroPageY) {
			return opcodes.ZeroPageY, true
		}
		if has(opcodes.AbsoluteY) {
			return opcodes.AbsoluteY, true
		}
		if has(opcodes.ZeroPageY) {
			return opcodes.ZeroPageY, true
		}
		return 0, false

	case operandIndirect:
		if has(opcodes.Indirect) {
			return opcodes.Indirect, true
		}
		return 0, false

	case operandIndirectX:
		if has(opcodes.IndirectX) {
			return opcodes.IndirectX, true
		}
		return 0, false

	case operandIndirectY:
		if has(opcodes.IndirectY) {
			return opcodes.IndirectY, true
		}
		return 0, false
	}
	return 0, false
}

// relativeOffset computes the signed 8-bit PC-relative branch offset
// from the address right after the 2-byte branch instruction to
// target, in signed 64-bit arithmetic before truncation, so an
// out-of-range target is detected rather than silently wrapped.
func relativeOffset(pc, target int64) (int64, bool) {
	offset := target - (pc + 2)
	if offset < -128 || offset > 127 {
		return offset, false
	}
	return offset, true
}

// encodeInstruction assembles the byte sequence for one instruction
// given its chosen addressing mode and the operand's resolved value
// (ignored for Implied/Accumulator).
func encodeInstruction(ins opcodes.Instruction, value int64) []byte {
	switch ins.Mode {
	case opcodes.Implied, opcodes.Accumulator:
		return []byte{ins.Opcode}
	case opcodes.Relative:
		return []byte{ins.Opcode, byte(value)}
	case opcodes.Immediate, opcodes.ZeroPage, opcodes.ZeroPageX, opcodes.ZeroPageY, opcodes.IndirectX, opcodes.IndirectY:
		return []byte{ins.Opcode, byte(value)}
	case opcodes.Absolute, opcodes.AbsoluteX, opcodes.AbsoluteY, opcodes.Indirect:
		return []byte{ins.Opcode, byte(value), byte(value >> 8)}
	default:
		return []byte{ins.Opcode}
	}
}

func modeOperandWidth(m opcodes.Mode) int {
	switch m {
	case opcodes.Implied, opcodes.Accumulator:
		return 0
	case opcodes.Absolute, opcodes.AbsoluteX, opcodes.AbsoluteY, opcodes.Indirect:
		return 2
	default:
		return 1
	}
}
