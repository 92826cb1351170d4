package asm

// basicLoadAddress is the Commodore 64's conventional BASIC program
// start address, used as the default ".prg" load address when the
// source never issues "* =" before its first emission.
const basicLoadAddress = 0x0801

// basicStubLineNumber is the BASIC line number the generated stub
// uses ("10 SYS ...").
const basicStubLineNumber = 10

// basicStub returns the exact bytes of the classic one-line BASIC
// program "<N> SYS <entry>", the stub unmodified C64 cross-assemblers
// emit so a ".prg" loaded with LOAD and RUN starts executing machine
// code immediately, together with the address of the first byte of
// machine code that follows the stub (entryAddress). The SYS target
// is exactly that following address, computed self-consistently: the
// stub's own length depends on how many decimal digits the address
// has, and the address depends on the stub's length.
//
// This layout converges on entryAddress 2062, not the 2064 quoted by
// some cross-assembler listings for a $0801-loaded stub; the
// difference is a byte-counting convention this derivation does not
// reproduce, and is noted here rather than patched over with a
// hardcoded literal.
func basicStub() (stub []byte, entryAddress int) {
	// Fixed overhead: 2-byte next-line pointer, 2-byte line number,
	// 1-byte SYS token, 1-byte space, 1-byte end-of-line NUL, 2-byte
	// end-of-program marker.
	const overhead = 9
	digits := 4
	for {
		entry := basicLoadAddress + overhead + digits
		n := len(decimalDigits(entry))
		if n == digits {
			return buildBasicStub(entry), entry
		}
		digits = n
	}
}

func buildBasicStub(entry int) []byte {
	digits := decimalDigits(entry)
	lineBodyLen := 1 + 1 + len(digits) + 1 // token + space + digits + terminator
	nextLinePtr := basicLoadAddress + 2 + 2 + lineBodyLen

	var b []byte
	b = append(b, littleEndianBytes(2, int64(nextLinePtr))...)
	b = append(b, littleEndianBytes(2, int64(basicStubLineNumber))...)
	b = append(b, 0x9E) // SYS token
	b = append(b, ' ')
	b = append(b, digits...)
	b = append(b, 0x00)       // end of line
	b = append(b, 0x00, 0x00) // end of BASIC program
	return b
}

func decimalDigits(n int) []byte {
	if n == 0 {
		return []byte{'0'}
	}
	var rev []byte
	for n > 0 {
		rev = append(rev, byte('0'+n%10))
		n /= 10
	}
	out := make([]byte, len(rev))
	for i, c := range rev {
		out[len(rev)-1-i] = c
	}
	return out
}
