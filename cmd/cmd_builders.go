// cmd_builders.go - Command-Builder Funktionen
// Hauptfunktionen: newConvertCmd, newInspectCmd, newVocabCmd
package cmd

import (
	"slices"

	"github.com/spf13/cobra"

	"github.com/qnn-genai/ggufkit/convert"
)

// newConvertCmd - Erstellt den convert Command
func newConvertCmd() *cobra.Command {
	convertCmd := &cobra.Command{
		Use:   "convert DIR|MODEL_ID[@REVISION]",
		Short: "Convert a model directory to GGUF",
		Args:  cobra.ExactArgs(1),
		RunE:  ConvertHandler,
	}

	convertCmd.Flags().StringP("output", "o", "", "Output file (default: DIR name with .gguf)")
	convertCmd.Flags().String("outtype", "f16", "Output type for weights with two or more dimensions (f32 or f16)")
	convertCmd.Flags().String("card", "", "YAML model card with general metadata and tensor names")
	convertCmd.Flags().Uint64("alignment", 0, "Tensor data alignment in bytes (default: GGUF_ALIGNMENT or 32)")
	convertCmd.Flags().Bool("temp-file", true, "Stage tensor data in a temporary file")

	return convertCmd
}

// newInspectCmd - Erstellt den inspect Command
func newInspectCmd() *cobra.Command {
	inspectCmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Show metadata and tensors of a GGUF file",
		Args:  cobra.ExactArgs(1),
		RunE:  InspectHandler,
	}

	inspectCmd.Flags().BoolP("verbose", "v", false, "Show arrays in full")

	return inspectCmd
}

// newVocabCmd - Erstellt den vocab Command
func newVocabCmd() *cobra.Command {
	vocabCmd := &cobra.Command{
		Use:   "vocab DIR|MODEL_ID[@REVISION]",
		Short: "Show the special vocabulary of a model directory",
		Args:  cobra.ExactArgs(1),
		RunE:  VocabHandler,
	}

	vocabCmd.Flags().Bool("merges", false, "Load BPE merges")
	vocabCmd.Flags().StringSlice("types", slices.Clone(convert.DefaultSpecialTokenTypes), "Special token types to look up")

	return vocabCmd
}
