// cmd_inspect.go - Inspect Command und Container-Anzeige
// Hauptfunktionen: InspectHandler, showFile
package cmd

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/qnn-genai/ggufkit/fs/gguf"
)

// maxArrayItems - Anzahl angezeigter Array-Elemente im Terminal
const maxArrayItems = 8

// InspectHandler - Zeigt Metadaten und Tensoren einer GGUF-Datei an
func InspectHandler(cmd *cobra.Command, args []string) error {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return err
	}

	f, err := gguf.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	// Lange Arrays nur im Terminal kuerzen
	truncate := false
	if o, ok := cmd.OutOrStdout().(*os.File); ok && !verbose {
		truncate = term.IsTerminal(int(o.Fd()))
	}

	return showFile(f, cmd.OutOrStdout(), truncate)
}

// showFile - Gibt Header, Metadaten und Tensor-Tabelle aus
func showFile(f *gguf.File, w io.Writer, truncate bool) error {
	tableRender := func(header string, rows func() [][]string) {
		fmt.Fprintln(w, " ", header)
		table := tablewriter.NewWriter(w)
		table.SetAlignment(tablewriter.ALIGN_LEFT)
		table.SetBorder(false)
		table.SetNoWhiteSpace(true)
		table.SetTablePadding("    ")
		table.SetAutoWrapText(false)

		table.AppendBulk(rows())
		table.Render()
		fmt.Fprintln(w)
	}

	tableRender("File", func() (rows [][]string) {
		rows = append(rows, []string{"", "version", strconv.FormatUint(uint64(f.Version), 10)})
		if arch := f.KeyValue(gguf.KeyGeneralArchitecture).String(); arch != "" {
			rows = append(rows, []string{"", "architecture", arch})
		}
		rows = append(rows, []string{"", "alignment", strconv.FormatUint(f.Alignment(), 10)})
		rows = append(rows, []string{"", "metadata", strconv.FormatUint(f.KVCount, 10)})
		rows = append(rows, []string{"", "tensors", strconv.Itoa(len(f.Tensors))})
		rows = append(rows, []string{"", "data offset", strconv.FormatInt(f.DataOffset, 10)})
		return
	})

	tableRender("Metadata", func() (rows [][]string) {
		for _, kv := range f.KeyValues() {
			rows = append(rows, []string{"", kv.Key, typeName(kv), formatValue(kv, truncate)})
		}
		return
	})

	if len(f.Tensors) > 0 {
		tableRender("Tensors", func() (rows [][]string) {
			for _, ti := range f.Tensors {
				rows = append(rows, []string{
					"",
					ti.Name,
					ti.Type.String(),
					formatShape(ti.Dims()),
					strconv.FormatUint(ti.Offset, 10),
				})
			}
			return
		})
	}

	return nil
}

// typeName - Typ-Bezeichnung, bei Arrays mit Elementtyp
func typeName(kv gguf.KeyValue) string {
	if kv.Type == gguf.ValueTypeArray {
		return fmt.Sprintf("%s[%s]", kv.Type, kv.ArrayType)
	}
	return kv.Type.String()
}

// formatValue - Formatiert einen Wert, Arrays optional gekuerzt
func formatValue(kv gguf.KeyValue, truncate bool) string {
	if kv.Type != gguf.ValueTypeArray {
		if s, ok := kv.Value.(string); ok {
			return strconv.Quote(s)
		}
		return fmt.Sprint(kv.Value)
	}

	v := reflect.ValueOf(kv.Value)
	n := v.Len()
	shown := n
	if truncate && n > maxArrayItems {
		shown = maxArrayItems
	}

	items := make([]string, shown, shown+1)
	for i := range shown {
		if s, ok := v.Index(i).Interface().(string); ok {
			items[i] = strconv.Quote(s)
		} else {
			items[i] = fmt.Sprint(v.Index(i).Interface())
		}
	}

	if shown < n {
		items = append(items, fmt.Sprintf("... (%d items)", n))
	}

	return "[" + strings.Join(items, ", ") + "]"
}

// formatShape - Formatiert eine Shape als [a b c]
func formatShape(shape []uint64) string {
	dims := make([]string, len(shape))
	for i, d := range shape {
		dims[i] = strconv.FormatUint(d, 10)
	}
	return "[" + strings.Join(dims, " ") + "]"
}
