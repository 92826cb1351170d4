// Package asm implements a 6502 macro assembler targeting the
// Commodore 64 program (.prg) format.
package asm

// character helper functions used by the lexer.

func whitespace(c byte) bool {
	return c == ' ' || c == '\t'
}

func newline(c byte) bool {
	return c == '\n' || c == '\r'
}

func alpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func decimal(c byte) bool {
	return c >= '0' && c <= '9'
}

func hexadecimal(c byte) bool {
	return decimal(c) || (c >= 'A' && c <= 'F') || (c >= 'a' && c <= 'f')
}

func binarydigit(c byte) bool {
	return c == '0' || c == '1'
}

func identifierStartChar(c byte) bool {
	return alpha(c) || c == '_'
}

func identifierChar(c byte) bool {
	return alpha(c) || decimal(c) || c == '_'
}

func stringQuote(c byte) bool {
	return c == '"'
}
