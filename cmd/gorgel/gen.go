package main

import (
	"fmt"
	"os"

	"github.com/npillmayer/gorgel/codegen"
	"github.com/npillmayer/gorgel/runtime"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// genFlags are the flags of the 'gen' command.
type genFlags struct {
	driver     string
	pkg        string
	prefix     string
	typ        string
	output     string
	stackDepth int
	nfaDepth   int
}

var genOpts genFlags

var genCmd = &cobra.Command{
	Use:   "gen <graph.yaml>",
	Short: "Generate Go source for a state machine",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := generate(args[0], encFlags, genOpts)
		if err != nil {
			pterm.Error.Println(err.Error())
			return err
		}
		if genOpts.output == "" || genOpts.output == "-" {
			_, err = os.Stdout.Write(src)
			return err
		}
		if err = os.WriteFile(genOpts.output, src, 0644); err != nil {
			return err
		}
		pterm.Info.Printfln("wrote %s (%d bytes)", genOpts.output, len(src))
		return nil
	},
}

func init() {
	genCmd.Flags().StringVarP(&genOpts.driver, "driver", "d", "goto", "Control flow of the generated machine [goto|break|var]")
	genCmd.Flags().StringVarP(&genOpts.pkg, "package", "p", "", "Package clause of the output")
	genCmd.Flags().StringVar(&genOpts.prefix, "prefix", "", "Prefix of generated tables and constants")
	genCmd.Flags().StringVar(&genOpts.typ, "type", "", "Name of the generated machine type")
	genCmd.Flags().StringVarP(&genOpts.output, "output", "o", "", "Output file (default stdout)")
	genCmd.Flags().IntVar(&genOpts.stackDepth, "stack", runtime.DefaultStackDepth, "Call stack depth")
	genCmd.Flags().IntVar(&genOpts.nfaDepth, "nfa", runtime.DefaultNFADepth, "Maximum pending NFA alternates")
}

// generate loads a graph file, encodes it and emits Go source.
func generate(path string, ef encodeFlags, gf genFlags) ([]byte, error) {
	driver, err := runtime.ParseDriverKind(gf.driver)
	if err != nil {
		return nil, err
	}
	_, enc, err := loadGraph(path, ef)
	if err != nil {
		return nil, err
	}
	src, err := codegen.Generate(enc, codegen.Options{
		Package:    gf.pkg,
		Prefix:     gf.prefix,
		Type:       gf.typ,
		Driver:     driver,
		StackDepth: gf.stackDepth,
		NFADepth:   gf.nfaDepth,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return src, nil
}
