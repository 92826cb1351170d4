package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "c64asm",
	Short: "A macro assembler and disassembler for the MOS 6502 and the Commodore 64",
	Long: "c64asm assembles 6502 macro-assembly source into a Commodore 64 \".prg\"\n" +
		"program image, optionally alongside a debug-info sidecar file, and can\n" +
		"disassemble a program image back into assembly text.",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
