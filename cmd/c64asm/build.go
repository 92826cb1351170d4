package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/corvid64/c64asm/asm"
	"github.com/corvid64/c64asm/disasm"
)

var (
	buildOutput     string
	buildDebugInfo  string
	buildDisasm     bool
	buildVerbose    bool
	buildShowLabels bool
	buildShowCycles bool
)

var buildCmd = &cobra.Command{
	Use:   "build sourceFile",
	Short: "Assemble a source file into a Commodore 64 .prg image",
	Args:  cobra.ExactArgs(1),
	RunE:  runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "output .prg path (defaults to the source file with .prg extension)")
	buildCmd.Flags().StringVar(&buildDebugInfo, "debug-info", "", "write a JSON debug-info sidecar to this path")
	buildCmd.Flags().BoolVar(&buildDisasm, "disasm", false, "print a disassembly of the assembled program to stdout")
	buildCmd.Flags().BoolVar(&buildVerbose, "verbose", false, "trace each assembly pass to stderr")
	buildCmd.Flags().BoolVar(&buildShowLabels, "show-labels", false, "substitute label names for operand addresses in --disasm output")
	buildCmd.Flags().BoolVar(&buildShowCycles, "show-cycles", false, "annotate --disasm output with each instruction's cycle count")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	source := args[0]
	output := buildOutput
	if output == "" {
		output = replaceExt(source, ".prg")
	}

	opts := asm.AssembleOptions{ReadFile: os.ReadFile}
	if buildVerbose {
		opts.Verbose = os.Stderr
	}

	result := asm.Assemble(source, opts)

	for _, d := range result.Diagnostics {
		fmt.Fprintln(os.Stderr, result.FormatDiagnostic(d))
	}
	if result.HasErrors() {
		return fmt.Errorf("assembly failed")
	}

	if err := os.WriteFile(output, result.Program, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}

	if buildDebugInfo != "" {
		data, err := json.MarshalIndent(result.DebugInfo, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding debug info: %w", err)
		}
		if err := os.WriteFile(buildDebugInfo, data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", buildDebugInfo, err)
		}
	}

	if buildDisasm {
		printDisassembly(result)
	}

	return nil
}

// printDisassembly re-disassembles the freshly assembled program,
// classifying each address as instruction-start or not via the
// debug-info byte roles the assembler recorded for it.
func printDisassembly(result *asm.AssembleResult) {
	instrStarts := map[int]bool{}
	labelAt := map[int]string{}
	if result.DebugInfo != nil {
		for _, b := range result.DebugInfo.Bytes {
			if b.Role == 0 { // roleInstructionStart
				instrStarts[b.Address] = true
			}
		}
		for _, l := range result.DebugInfo.Labels {
			labelAt[int(l.Value)] = l.Name
		}
	}
	isInstr := func(addr int) bool {
		if len(instrStarts) == 0 {
			return true
		}
		return instrStarts[addr]
	}

	opts := disasm.Options{
		ShowLabels: buildShowLabels,
		ShowCycles: buildShowCycles,
		LabelAt: func(addr int) (string, bool) {
			name, ok := labelAt[addr]
			return name, ok
		},
	}

	lines := disasm.Disassemble(result.Program, int(result.LoadAddress), isInstr)
	for _, l := range lines {
		fmt.Println(l.Text(opts))
	}
}

func replaceExt(path, ext string) string {
	for i := len(path) - 1; i >= 0 && path[i] != '/'; i-- {
		if path[i] == '.' {
			return path[:i] + ext
		}
	}
	return path + ext
}
