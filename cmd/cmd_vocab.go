// cmd_vocab.go - Vocab Command
// Hauptfunktionen: VocabHandler
package cmd

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/qnn-genai/ggufkit/convert"
	"github.com/qnn-genai/ggufkit/huggingface"
)

// VocabHandler - Zeigt Merges und Special-Token IDs eines Modellverzeichnisses
func VocabHandler(cmd *cobra.Command, args []string) error {
	merges, err := cmd.Flags().GetBool("merges")
	if err != nil {
		return err
	}

	types, err := cmd.Flags().GetStringSlice("types")
	if err != nil {
		return err
	}

	dir, err := huggingface.ResolveModelDir(args[0])
	if err != nil {
		return err
	}

	sv, err := convert.NewSpecialVocab(dir, merges, types...)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, sv)
	fmt.Fprintln(w)

	table := tablewriter.NewWriter(w)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")

	for _, typ := range sv.SpecialTokenTypes() {
		id, ok := sv.SpecialTokenIDs[typ]
		if !ok {
			table.Append([]string{typ, "-"})
			continue
		}
		table.Append([]string{typ, strconv.Itoa(id)})
	}

	table.Render()
	return nil
}
