// special_vocab_test.go - Unit Tests fuer das spezielle Vokabular
//
// Testet Quell-Reihenfolge, Merge-Formate, ID-Aufloesung und AddToWriter.
package convert

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/qnn-genai/ggufkit/fs/gguf"
)

// writeFiles legt Dateien mit Inhalt in dir an
func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()

	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestSpecialVocabLoad(t *testing.T) {
	tests := []struct {
		name       string
		files      map[string]string
		loadMerges bool
		types      []string
		wantMerges []string
		wantIDs    map[string]int
	}{
		{
			name:    "Keine Dateien",
			files:   map[string]string{},
			wantIDs: map[string]int{},
		},
		{
			name: "Nur config.json",
			files: map[string]string{
				"config.json": `{"bos_token_id": 5, "eos_token_id": 2.5, "pad_token_id": null, "unk_token_id": true, "sep_token_id": -1}`,
			},
			loadMerges: true,
			wantIDs:    map[string]int{"bos": 5},
		},
		{
			name: "tokenizer.json mit tokenizer_config.json",
			files: map[string]string{
				"tokenizer.json": `{
					"added_tokens": [
						{"id": 0, "content": "<s>"},
						{"id": 1, "content": "</s>"},
						{"id": 2, "content": "<s>"}
					],
					"model": {"merges": ["a b", "c d"]}
				}`,
				"tokenizer_config.json": `{"bos_token": "<s>", "eos_token": {"content": "</s>"}, "unk_token": "<missing>", "pad_token": null}`,
				"config.json":           `{"pad_token_id": 7}`,
			},
			loadMerges: true,
			wantMerges: []string{"a b", "c d"},
			wantIDs:    map[string]int{"bos": 0, "eos": 1},
		},
		{
			name: "Merges nicht geladen",
			files: map[string]string{
				"tokenizer.json": `{"added_tokens": [], "model": {"merges": ["a b"]}}`,
			},
			wantIDs: map[string]int{},
		},
		{
			name: "Merges als Paare",
			files: map[string]string{
				"tokenizer.json": `{"model": {"merges": [["a", "b"], ["Ġ", "c"]]}}`,
			},
			loadMerges: true,
			wantMerges: []string{"a b", "Ġ c"},
			wantIDs:    map[string]int{},
		},
		{
			name: "Ungueltige Merges werden ignoriert",
			files: map[string]string{
				"tokenizer.json":        `{"added_tokens": [{"id": 2, "content": "</s>"}], "model": {"merges": {"a": 1}}}`,
				"tokenizer_config.json": `{"eos_token": "</s>"}`,
			},
			loadMerges: true,
			wantIDs:    map[string]int{"eos": 2},
		},
		{
			name: "Token null passt nicht auf leeren Inhalt",
			files: map[string]string{
				"tokenizer.json":        `{"added_tokens": [{"id": 7, "content": ""}, {"id": 8, "content": "<s>"}]}`,
				"tokenizer_config.json": `{"bos_token": null, "eos_token": "<s>"}`,
			},
			wantIDs: map[string]int{"eos": 8},
		},
		{
			name: "Ohne added_tokens",
			files: map[string]string{
				"tokenizer.json":        `{"model": {"vocab": {"a": 0}}}`,
				"tokenizer_config.json": `{"bos_token": "a"}`,
			},
			loadMerges: true,
			wantIDs:    map[string]int{},
		},
		{
			name: "Eigene Typen",
			files: map[string]string{
				"config.json": `{"bos_token_id": 1, "cls_token_id": 4}`,
			},
			types:   []string{"cls"},
			wantIDs: map[string]int{"cls": 4},
		},
		{
			name: "ID als Gleitkommazahl in added_tokens",
			files: map[string]string{
				"tokenizer.json":        `{"added_tokens": [{"id": 1.5, "content": "<s>"}, {"id": 3, "content": "<s>"}]}`,
				"tokenizer_config.json": `{"bos_token": "<s>"}`,
			},
			wantIDs: map[string]int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFiles(t, dir, tt.files)

			sv, err := NewSpecialVocab(dir, tt.loadMerges, tt.types...)
			require.NoError(t, err)

			if diff := cmp.Diff(tt.wantMerges, sv.Merges); diff != "" {
				t.Errorf("Merges stimmen nicht (-erwartet +erhalten):\n%s", diff)
			}

			if diff := cmp.Diff(tt.wantIDs, sv.SpecialTokenIDs); diff != "" {
				t.Errorf("SpecialTokenIDs stimmen nicht (-erwartet +erhalten):\n%s", diff)
			}
		})
	}
}

func TestSpecialVocabDefaultTypes(t *testing.T) {
	sv, err := NewSpecialVocab(t.TempDir(), false)
	require.NoError(t, err)
	require.Equal(t, []string{"bos", "eos", "unk", "sep", "pad"}, sv.SpecialTokenTypes())

	sv.specialTokenTypes[0] = "xxx"
	require.Equal(t, "bos", DefaultSpecialTokenTypes[0], "Standard-Typen duerfen nicht geteilt werden")
}

func TestSpecialVocabErrors(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
	}{
		{"Ungueltiges tokenizer.json", map[string]string{"tokenizer.json": `{`}},
		{"Ungueltiges config.json", map[string]string{"config.json": `[1, 2]`}},
		{
			"Ungueltiges tokenizer_config.json",
			map[string]string{
				"tokenizer.json":        `{"added_tokens": []}`,
				"tokenizer_config.json": `{`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFiles(t, dir, tt.files)

			if _, err := NewSpecialVocab(dir, true); err == nil {
				t.Error("Fehler erwartet")
			}
		})
	}
}

func TestSpecialVocabAddToWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.gguf")
	w, err := gguf.Create(path, gguf.Options{Architecture: "llama"})
	require.NoError(t, err)
	defer w.Close()

	sv := &SpecialVocab{
		Merges:            []string{"a b", "ab c"},
		SpecialTokenIDs:   map[string]int{"bos": 1, "eos": 2, "eso": 3, "pad": -1, "sep": 4},
		specialTokenTypes: []string{"bos", "eso", "eos", "pad", "bos"},
	}

	require.NoError(t, sv.AddToWriter(w))
	// merges, bos, eos
	require.Equal(t, uint64(3), w.KVCount())

	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.WriteKVData())
	require.NoError(t, w.WriteTensors())
	require.NoError(t, w.Close())

	f, err := gguf.Open(path)
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{"a b", "ab c"}, f.KeyValue(gguf.KeyTokenizerMerges).Strings())
	require.Equal(t, uint64(1), f.KeyValue(gguf.KeyTokenizerBOSID).Uint())
	require.Equal(t, uint64(2), f.KeyValue(gguf.KeyTokenizerEOSID).Uint())
	require.False(t, f.KeyValue(gguf.KeyTokenizerPADID).Valid())
	require.False(t, f.KeyValue(gguf.KeyTokenizerSEPID).Valid())
}

func TestSuggestTokenType(t *testing.T) {
	cases := map[string]string{
		"eso":            "eos",
		"pda":            "pad",
		"boss":           "bos",
		"classification": "",
	}

	for typ, want := range cases {
		if got := suggestTokenType(typ); got != want {
			t.Errorf("suggestTokenType(%q) = %q, erwartet %q", typ, got, want)
		}
	}
}

func TestSpecialVocabString(t *testing.T) {
	sv := &SpecialVocab{SpecialTokenIDs: map[string]int{}}
	require.Equal(t, "<SpecialVocab with 0 merges and special tokens unset>", sv.String())

	sv.Merges = []string{"a b"}
	sv.SpecialTokenIDs["bos"] = 1
	require.Equal(t, "<SpecialVocab with 1 merges and special tokens map[bos:1]>", sv.String())
}
