package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/npillmayer/gorgel/encode"
	"github.com/npillmayer/gorgel/graphfile"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var showLiterals bool

var tablesCmd = &cobra.Command{
	Use:   "tables <graph.yaml>",
	Short: "Print the tables of an encoded state machine",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, enc, err := loadGraph(args[0], encFlags)
		if err != nil {
			pterm.Error.Println(err.Error())
			return err
		}
		if err = pterm.DefaultTable.WithHasHeader().WithData(tableRows(enc)).Render(); err != nil {
			return err
		}
		st := enc.Stats()
		pterm.Info.Printfln("%s: %s encoding, %d states, %d tables, %d values, %d bytes",
			enc.Name, enc.Kind, enc.NumStates, st.Arrays, st.Values, st.Bytes)
		if showLiterals {
			for _, arr := range enc.Arrays() {
				fmt.Printf("%s = %s\n", arr.Name, arr.Literal())
			}
		}
		return nil
	},
}

func init() {
	tablesCmd.Flags().BoolVarP(&showLiterals, "literals", "l", false, "Print tables as Go array literals")
}

// tableRows lists the columns of an encoding, header first.
func tableRows(enc *encode.Encoding) [][]string {
	rows := [][]string{{"Table", "Type", "Length", "Bytes"}}
	for _, arr := range enc.Arrays() {
		rows = append(rows, []string{
			arr.Name,
			arr.Type.String(),
			strconv.Itoa(arr.Len()),
			strconv.Itoa(arr.Bytes()),
		})
	}
	return rows
}

var dotCmd = &cobra.Command{
	Use:   "dot <graph.yaml>",
	Short: "Write a state machine graph in Graphviz format",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := graphfile.Load(args[0])
		if err != nil {
			pterm.Error.Println(err.Error())
			return err
		}
		return g.Dot(os.Stdout)
	},
}
