// qwen_tiktoken.go - qwen.tiktoken als Ersatz für tokenizer.json
// Enthält: readQwenTiktoken, Rekonstruktion der BPE-Merges aus Rängen, GPT-2 Byte-Mapping

package convert

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkoukk/tiktoken-go"
)

// qwenPattern ist der Pre-Tokenizer Regex des Qwen Encoders
const qwenPattern = `(?i:'s|'t|'re|'ve|'m|'ll|'d)|[^\r\n\p{L}\p{N}]?\p{L}+|\p{N}| ?[^\s\p{L}\p{N}]+[\r\n]*|\s*[\r\n]+|\s+(?!\S)|\s+`

// qwenExtraTokens ist die Anzahl der <|extra_N|> Token
const qwenExtraTokens = 205

// qwenSpecialTokens gibt die speziellen Token in ID-Reihenfolge zurück
func qwenSpecialTokens() []string {
	specials := []string{"<|endoftext|>", "<|im_start|>", "<|im_end|>"}
	for i := range qwenExtraTokens {
		specials = append(specials, fmt.Sprintf("<|extra_%d|>", i))
	}
	return specials
}

// readQwenTiktoken liest Ränge aus path und baut daraus die Struktur von
// tokenizer.json: Vokabular, Merges und spezielle Token ab ID len(ränge).
// Fehlt die Datei, ist das Ergebnis nil ohne Fehler.
func readQwenTiktoken(path string) (*tokenizer, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	ranks, err := tiktoken.NewDefaultBpeLoader().LoadTiktokenBpe(path)
	if err != nil {
		return nil, fmt.Errorf("qwen.tiktoken: %w", err)
	}

	specials := qwenSpecialTokens()
	specialIDs := make(map[string]int, len(specials))
	for i, s := range specials {
		specialIDs[s] = len(ranks) + i
	}

	// Prüft unter anderem dass kein Rang doppelt vergeben ist
	if _, err := tiktoken.NewCoreBPE(ranks, specialIDs, qwenPattern); err != nil {
		return nil, fmt.Errorf("qwen.tiktoken: %w", err)
	}

	byteEncoder := bytesToUnicode()
	encode := func(s string) string {
		var sb strings.Builder
		for _, b := range []byte(s) {
			sb.WriteRune(byteEncoder[b])
		}
		return sb.String()
	}

	tokens := slices.SortedFunc(maps.Keys(ranks), func(a, b string) int {
		return ranks[a] - ranks[b]
	})

	t := tokenizer{merges: []string{}}
	t.Model.Type = "BPE"
	t.Model.Vocab = make(map[string]int, len(ranks))
	for _, tok := range tokens {
		rank := ranks[tok]
		t.Model.Vocab[encode(tok)] = rank
		if len(tok) == 1 {
			continue
		}

		merged := bpe(ranks, tok, rank)
		if len(merged) != 2 {
			return nil, fmt.Errorf("qwen.tiktoken: token %q with rank %d splits into %d parts", tok, rank, len(merged))
		}

		t.merges = append(t.merges, encode(merged[0])+" "+encode(merged[1]))
	}

	for _, s := range specials {
		t.AddedTokens = append(t.AddedTokens, token{
			ID:      json.RawMessage(strconv.Itoa(specialIDs[s])),
			Content: s,
			Special: true,
		})
	}

	return &t, nil
}

// bpe wendet Merges mit Rang kleiner maxRank an, beginnend bei einzelnen Bytes
func bpe(ranks map[string]int, tok string, maxRank int) []string {
	parts := make([]string, len(tok))
	for i := range len(tok) {
		parts[i] = tok[i : i+1]
	}

	for {
		minIdx, minRank := -1, 0
		for i := range len(parts) - 1 {
			if r, ok := ranks[parts[i]+parts[i+1]]; ok && (minIdx < 0 || r < minRank) {
				minIdx, minRank = i, r
			}
		}

		if minIdx < 0 || minRank >= maxRank {
			return parts
		}

		parts = slices.Replace(parts, minIdx, minIdx+2, parts[minIdx]+parts[minIdx+1])
	}
}

// bytesToUnicode bildet Bytes auf druckbare Runen ab (GPT-2 Schema)
func bytesToUnicode() [256]rune {
	var table [256]rune
	n := 0
	for b := range 256 {
		switch {
		case b >= '!' && b <= '~', b >= 0xA1 && b <= 0xAC, b >= 0xAE && b <= 0xFF:
			table[b] = rune(b)
		default:
			table[b] = rune(256 + n)
			n++
		}
	}
	return table
}
