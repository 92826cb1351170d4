// Package disasm turns a byte image back into 6502 assembly text. It
// walks the bytes under caller control: a predicate tells it which
// addresses begin an instruction, so a caller holding debug-info
// (built by the assembler) can disassemble only the code regions of
// a program and print everything else as raw data, rather than
// guessing at the machine-code/data boundary the way a naive linear
// sweep would.
package disasm

import (
	"fmt"
	"strings"

	"github.com/corvid64/c64asm/opcodes"
)

// A Line is one disassembled unit: either a decoded instruction, or a
// run of bytes the caller's predicate marked as data.
type Line struct {
	Address  int
	Bytes    []byte
	IsData   bool
	Mnemonic string
	Operand  string
	Mode     opcodes.Mode
	Cycles   int
	// Incomplete is set when an instruction's encoded length runs past
	// the end of the supplied code, so only the opcode (and whatever
	// partial operand bytes exist) could be recovered.
	Incomplete bool
	// Target and HasTarget carry the address a zero-page, absolute or
	// indirect operand (indexed or not) names, or a Relative operand
	// resolves to, letting
	// Text substitute a label name for it under Options.ShowLabels.
	Target    int
	HasTarget bool
}

// Options controls how a Line renders as text: spec.md's disassembler
// formatting options are show-labels and show-cycles.
type Options struct {
	// ShowLabels substitutes a label name for an operand's target
	// address wherever LabelAt resolves one.
	ShowLabels bool
	// LabelAt maps an absolute address to a label name; required when
	// ShowLabels is set, consulted only then.
	LabelAt func(addr int) (string, bool)
	// ShowCycles appends "; <cycles>" to decoded instruction lines.
	ShowCycles bool
}

// IsInstructionFunc reports whether addr is the first byte of an
// instruction. A disassembler with no such information available can
// pass a predicate that always returns true, recovering the
// teacher's original linear-sweep behavior.
type IsInstructionFunc func(addr int) bool

// Disassemble walks code (which starts at loadAddress in the target's
// address space) and produces one Line per instruction or per
// maximal run of non-instruction bytes.
func Disassemble(code []byte, loadAddress int, isInstruction IsInstructionFunc) []Line {
	is := opcodes.Get()
	var lines []Line
	i := 0
	for i < len(code) {
		addr := loadAddress + i
		if !isInstruction(addr) {
			j := i
			for j < len(code) && !isInstruction(loadAddress+j) {
				j++
			}
			lines = append(lines, Line{Address: addr, Bytes: code[i:j], IsData: true})
			i = j
			continue
		}

		ins, ok := is.ByOpcode(code[i])
		if !ok {
			lines = append(lines, Line{Address: addr, Bytes: code[i : i+1], IsData: true})
			i++
			continue
		}

		if i+ins.Length > len(code) {
			lines = append(lines, Line{
				Address: addr, Bytes: code[i:], Mnemonic: ins.Mnemonic, Mode: ins.Mode,
				Cycles: ins.Cycles, Incomplete: true,
			})
			i = len(code)
			continue
		}

		operandBytes := code[i+1 : i+ins.Length]
		operand, target, hasTarget := formatOperand(ins.Mode, operandBytes, addr)
		lines = append(lines, Line{
			Address: addr, Bytes: code[i : i+ins.Length], Mnemonic: ins.Mnemonic, Mode: ins.Mode,
			Cycles: ins.Cycles, Operand: operand, Target: target, HasTarget: hasTarget,
		})
		i += ins.Length
	}
	return lines
}

// formatOperand renders an instruction's operand bytes in the
// conventional assembler syntax for its addressing mode, and reports
// the absolute target address for modes that name one (so Text can
// substitute a label for it under Options.ShowLabels). Relative
// operands are rendered as the absolute branch target, not the raw
// signed offset, since that is what a human (or a re-assembler) wants
// to see.
func formatOperand(mode opcodes.Mode, operand []byte, instrAddr int) (text string, target int, hasTarget bool) {
	switch mode {
	case opcodes.Implied, opcodes.Accumulator:
		return "", 0, false
	case opcodes.Immediate:
		return fmt.Sprintf("#$%02X", operand[0]), 0, false
	case opcodes.ZeroPage:
		return fmt.Sprintf("$%02X", operand[0]), int(operand[0]), true
	case opcodes.ZeroPageX:
		return fmt.Sprintf("$%02X,X", operand[0]), int(operand[0]), true
	case opcodes.ZeroPageY:
		return fmt.Sprintf("$%02X,Y", operand[0]), int(operand[0]), true
	case opcodes.Absolute:
		return fmt.Sprintf("$%04X", le16(operand)), int(le16(operand)), true
	case opcodes.AbsoluteX:
		return fmt.Sprintf("$%04X,X", le16(operand)), int(le16(operand)), true
	case opcodes.AbsoluteY:
		return fmt.Sprintf("$%04X,Y", le16(operand)), int(le16(operand)), true
	case opcodes.Indirect:
		return fmt.Sprintf("($%04X)", le16(operand)), int(le16(operand)), true
	case opcodes.IndirectX:
		return fmt.Sprintf("($%02X,X)", operand[0]), int(operand[0]), true
	case opcodes.IndirectY:
		return fmt.Sprintf("($%02X),Y", operand[0]), int(operand[0]), true
	case opcodes.Relative:
		offset := int8(operand[0])
		t := instrAddr + 2 + int(offset)
		return fmt.Sprintf("$%04X", uint16(t)), t, true
	default:
		return "", 0, false
	}
}

func le16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

// Text renders a Line as "<4-hex-address>: <up-to-3-hex-bytes>
// <mnemonic> <operand>", with an optional trailing "; <cycles>"
// annotation, matching the disassembler's listing format. Data runs
// render as "!byte <hex bytes>" in place of a mnemonic/operand.
func (l Line) Text(opts Options) string {
	hex := hexBytes(l.Bytes)
	if l.IsData {
		return fmt.Sprintf("%04X: %-9s  !byte %s", l.Address, hex, hex)
	}

	operand := l.Operand
	if opts.ShowLabels && opts.LabelAt != nil && l.HasTarget {
		if name, ok := opts.LabelAt(l.Target); ok {
			operand = substituteLabel(l.Operand, name)
		}
	}

	var body string
	switch {
	case l.Incomplete:
		body = fmt.Sprintf("%s ???", l.Mnemonic)
	case operand == "":
		body = l.Mnemonic
	default:
		body = fmt.Sprintf("%s %s", l.Mnemonic, operand)
	}

	line := fmt.Sprintf("%04X: %-9s  %s", l.Address, hex, body)
	if opts.ShowCycles && !l.Incomplete {
		line += fmt.Sprintf("  ; %d", l.Cycles)
	}
	return line
}

// substituteLabel replaces the "$XXXX"-shaped hex address inside a
// formatted operand with a label name, preserving any surrounding
// addressing-mode syntax (",X", "()", etc).
func substituteLabel(operand, name string) string {
	start := strings.IndexByte(operand, '$')
	if start < 0 {
		return operand
	}
	end := start + 1
	for end < len(operand) && isHexDigit(operand[end]) {
		end++
	}
	return operand[:start] + name + operand[end:]
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F') || (c >= 'a' && c <= 'f')
}

func hexBytes(b []byte) string {
	parts := make([]string, len(b))
	for i, c := range b {
		parts[i] = fmt.Sprintf("%02X", c)
	}
	return strings.Join(parts, " ")
}
