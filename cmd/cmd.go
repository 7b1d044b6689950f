// cmd.go - Haupt-CLI Setup und Root Command
// Hauptfunktionen: NewCLI, appendEnvDocs
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/qnn-genai/ggufkit/envconfig"
	"github.com/qnn-genai/ggufkit/logutil"
)

// appendEnvDocs - Haengt die Beschreibung der Umgebungsvariablen an die Usage an
func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString("\nEnvironment Variables:\n")
	for _, e := range envs {
		fmt.Fprintf(&sb, "      %-24s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + sb.String())
}

// NewCLI - Erstellt das Haupt-CLI mit convert, inspect und vocab
func NewCLI() *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:           "ggufkit",
		Short:         "Write and inspect GGUF model containers",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(logutil.NewLogger(os.Stderr, envconfig.LogLevel()))
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Print(cmd.UsageString())
		},
	}

	envVars := envconfig.AsMap()
	for _, c := range []struct {
		cmd  *cobra.Command
		envs []string
	}{
		{newConvertCmd(), []string{"GGUF_DEBUG", "GGUF_ALIGNMENT", "GGUF_USE_TEMP_FILE", "GGUF_SPOOL_MAX_MEMORY", "GGUF_TMPDIR", "HF_HUB_CACHE", "HF_HOME"}},
		{newInspectCmd(), []string{"GGUF_DEBUG"}},
		{newVocabCmd(), []string{"GGUF_DEBUG", "HF_HUB_CACHE", "HF_HOME"}},
	} {
		envs := make([]envconfig.EnvVar, len(c.envs))
		for i, name := range c.envs {
			envs[i] = envVars[name]
		}

		appendEnvDocs(c.cmd, envs)
		rootCmd.AddCommand(c.cmd)
	}

	return rootCmd
}
