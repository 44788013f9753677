// Command fruti is the driver for the Fruti compiler front-end: it wires
// the lexer, parser, semantic analyzer and IR emitter together behind a
// small set of subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fruti-lang/fruti/pkg/fruti"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fruti",
		Short:         "Fruti compiler front-end",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newCheckCmd())
	root.AddCommand(newBuildCmd())
	root.AddCommand(newRunCmd())

	return root
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Lex, parse and type-check a source file without emitting IR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := checkFile(args[0])
			if err != nil {
				printDiagnostic(err)
				return err
			}
			fmt.Println(color.GreenString("ok"))
			return nil
		},
	}
}

func newBuildCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "build <file>",
		Short: "Compile a source file to a native binary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, filename, readErr := readSource(args[0])
			if readErr != nil {
				return readErr
			}

			if out == "" {
				out = "a.out"
			}

			compiler := fruti.NewCompiler(fruti.DefaultTarget())
			if err := compiler.Compile(source, filename, out); err != nil {
				printDiagnostic(err)
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output binary path (default a.out)")
	return cmd
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <file>",
		Short: "Lex, parse, check and dump the emitted IR for a source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, filename, readErr := readSource(args[0])
			if readErr != nil {
				return readErr
			}

			compiler := fruti.NewCompiler(fruti.DefaultTarget())
			ir, err := compiler.EmitIR(source, filename)
			if err != nil {
				printDiagnostic(err)
				return err
			}

			if os.Getenv("FRUTI_DEBUG") != "" {
				fmt.Fprintln(os.Stderr, color.CyanString("--- ir ---"))
			}
			fmt.Println(ir)
			return nil
		},
	}
}

func checkFile(path string) (*fruti.Module, *fruti.Error) {
	source, filename, readErr := readSource(path)
	if readErr != nil {
		return nil, fruti.NewError(fruti.SemanticError, fruti.EmptySpan(0), "%s", readErr)
	}

	compiler := fruti.NewCompiler(fruti.DefaultTarget())
	return compiler.Check(source, filename)
}

func readSource(path string) (source, filename string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	return string(data), path, nil
}

// printDiagnostic renders a compiler error the way every stage already
// formats one ("Error at <span>: <message>"), in red. No phase tag is
// added, so the line does not say which stage produced the error.
func printDiagnostic(err *fruti.Error) {
	fmt.Fprintln(os.Stderr, color.RedString(err.Error()))
}
