// qwen_tiktoken_test.go - Unit Tests fuer den qwen.tiktoken Fallback
package convert

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/qnn-genai/ggufkit/fs/gguf"
)

// testTiktoken: a, b, c, " ", ab, abc, " a"
const testTiktoken = "YQ== 0\nYg== 1\nYw== 2\nIA== 3\nYWI= 4\nYWJj 5\nIGE= 6\n"

func qwenDir(t *testing.T, files map[string]string) string {
	t.Helper()
	t.Setenv("TIKTOKEN_CACHE_DIR", t.TempDir())

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"qwen.tiktoken": testTiktoken})
	writeFiles(t, dir, files)
	return dir
}

func TestQwenTiktokenSpecialVocab(t *testing.T) {
	dir := qwenDir(t, map[string]string{
		"tokenizer_config.json": `{"eos_token": "<|endoftext|>", "pad_token": "<|im_end|>"}`,
		"config.json":           `{"bos_token_id": 1}`,
	})

	sv, err := NewSpecialVocab(dir, true)
	require.NoError(t, err)

	if diff := cmp.Diff([]string{"a b", "ab c", "Ġ a"}, sv.Merges); diff != "" {
		t.Errorf("Merges stimmen nicht (-erwartet +erhalten):\n%s", diff)
	}

	if diff := cmp.Diff(map[string]int{"eos": 7, "pad": 9}, sv.SpecialTokenIDs); diff != "" {
		t.Errorf("SpecialTokenIDs stimmen nicht (-erwartet +erhalten):\n%s", diff)
	}
}

func TestQwenTiktokenVocabulary(t *testing.T) {
	dir := qwenDir(t, nil)

	v, err := LoadVocabulary(dir)
	require.NoError(t, err)

	require.Len(t, v.Tokens, 7+3+qwenExtraTokens)
	require.Equal(t, []string{"a", "b", "c", "Ġ", "ab", "abc", "Ġa"}, v.Tokens[:7])
	require.Equal(t, "<|endoftext|>", v.Tokens[7])
	require.Equal(t, "<|im_start|>", v.Tokens[8])
	require.Equal(t, "<|extra_204|>", v.Tokens[len(v.Tokens)-1])
	require.Equal(t, gguf.TokenTypeNormal, v.Types[6])
	require.Equal(t, gguf.TokenTypeControl, v.Types[7])
}

func TestQwenTiktokenMissing(t *testing.T) {
	tok, err := readQwenTiktoken(t.TempDir() + "/qwen.tiktoken")
	require.NoError(t, err)
	require.Nil(t, tok)
}

func TestQwenTiktokenInvalid(t *testing.T) {
	t.Setenv("TIKTOKEN_CACHE_DIR", t.TempDir())

	tests := []struct {
		name    string
		content string
	}{
		{"Kein Base64", "!!! 0\n"},
		{"Kein Rang", "YQ== x\n"},
		{"Doppelter Rang", "YQ== 0\nYg== 0\n"},
		// "abc" ist nicht aus zwei Teilen mit kleinerem Rang zusammengesetzt
		{"Kein Merge", "YQ== 0\nYg== 1\nYw== 2\nYWJj 3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFiles(t, dir, map[string]string{"qwen.tiktoken": tt.content})

			if _, err := readQwenTiktoken(dir + "/qwen.tiktoken"); err == nil {
				t.Error("Fehler erwartet")
			}
		})
	}
}

func TestBPE(t *testing.T) {
	ranks := map[string]int{"a": 0, "b": 1, "c": 2, "ab": 3, "bc": 4, "abc": 5}

	cases := []struct {
		tok     string
		maxRank int
		want    []string
	}{
		{"ab", 3, []string{"a", "b"}},
		{"abc", 5, []string{"ab", "c"}},
		{"abc", 4, []string{"ab", "c"}},
		{"abc", 3, []string{"a", "b", "c"}},
		{"abc", 6, []string{"abc"}},
	}

	for _, tt := range cases {
		if diff := cmp.Diff(tt.want, bpe(ranks, tt.tok, tt.maxRank)); diff != "" {
			t.Errorf("bpe(%q, %d) (-erwartet +erhalten):\n%s", tt.tok, tt.maxRank, diff)
		}
	}
}

func TestBytesToUnicode(t *testing.T) {
	table := bytesToUnicode()

	cases := map[byte]rune{
		'a':  'a',
		'!':  '!',
		' ':  'Ġ',
		'\n': 'Ċ',
		0x00: 0x100,
		0x7F: 0x121,
		0xAD: 0x143,
		0xFF: 0xFF,
	}

	for b, want := range cases {
		if got := table[b]; got != want {
			t.Errorf("bytesToUnicode()[%#x] = %U, erwartet %U", b, got, want)
		}
	}

	seen := make(map[rune]bool)
	for _, r := range table {
		if seen[r] {
			t.Fatalf("Rune %U doppelt vergeben", r)
		}
		seen[r] = true
	}
}
