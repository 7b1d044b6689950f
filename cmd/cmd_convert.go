// cmd_convert.go - Convert Command
// Hauptfunktionen: ConvertHandler
package cmd

import (
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/qnn-genai/ggufkit/convert"
	"github.com/qnn-genai/ggufkit/envconfig"
	"github.com/qnn-genai/ggufkit/huggingface"
)

// ConvertHandler - Konvertiert ein Modellverzeichnis oder ein Modell aus dem
// HuggingFace Cache. Flags haben Vorrang vor den Environment-Variablen.
func ConvertHandler(cmd *cobra.Command, args []string) error {
	dir, err := huggingface.ResolveModelDir(args[0])
	if err != nil {
		return err
	}

	out, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	if out == "" {
		// Snapshot-Verzeichnisse sind nach dem Commit benannt
		name, _, _ := strings.Cut(args[0], "@")
		if dir == args[0] {
			name = dir
		}
		out = filepath.Base(filepath.Clean(name)) + ".gguf"
	}

	outType, err := cmd.Flags().GetString("outtype")
	if err != nil {
		return err
	}

	card, err := cmd.Flags().GetString("card")
	if err != nil {
		return err
	}

	alignment, err := cmd.Flags().GetUint64("alignment")
	if err != nil {
		return err
	}
	if alignment == 0 {
		alignment = envconfig.Alignment()
	} else if alignment&(alignment-1) != 0 {
		return fmt.Errorf("alignment must be a power of two: %d", alignment)
	}

	useTempFile := envconfig.UseTempFile(true)
	if cmd.Flags().Changed("temp-file") {
		if useTempFile, err = cmd.Flags().GetBool("temp-file"); err != nil {
			return err
		}
	}

	opts := convert.ConvertOptions{
		OutType:        outType,
		CardPath:       card,
		Alignment:      alignment,
		UseTempFile:    useTempFile,
		SpoolMaxMemory: int64(min(envconfig.SpoolMaxMemory(), math.MaxInt64)),
		TempDir:        envconfig.TempDir(),
	}

	slog.Debug("converting", "dir", dir, "output", out, "outtype", outType, "alignment", alignment, "temp_file", useTempFile)
	if err := convert.ConvertModel(dir, out, opts); err != nil {
		slog.Warn("conversion failed, output file is incomplete", "path", out)
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
	return nil
}
