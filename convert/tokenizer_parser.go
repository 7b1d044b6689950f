// tokenizer_parser.go - Lesen von tokenizer.json mit qwen.tiktoken als Fallback
// Enthält: tokenizer-Struct, readTokenizer, parseMerges, tokenContent, jsonInt

package convert

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
)

// tokenizer repräsentiert die benötigten Teile von tokenizer.json
type tokenizer struct {
	AddedTokens []token `json:"added_tokens"`
	Model       struct {
		Type   string          `json:"type"`
		Vocab  map[string]int  `json:"vocab"`
		Merges json.RawMessage `json:"merges"`
	} `json:"model"`

	// merges ist beim qwen.tiktoken Fallback bereits rekonstruiert
	merges []string
}

// token ist ein Eintrag aus added_tokens
type token struct {
	ID      json.RawMessage `json:"id"`
	Content string          `json:"content"`
	Special bool            `json:"special"`
}

// id gibt die ID zurück wenn sie eine Ganzzahl ist
func (t token) id() (int, bool) {
	return jsonInt(t.ID)
}

// readTokenizer liest tokenizer.json aus dir. Fehlt die Datei, wird
// qwen.tiktoken gelesen. Fehlen beide, ist das Ergebnis nil ohne Fehler.
func readTokenizer(dir string) (*tokenizer, error) {
	bts, err := os.ReadFile(filepath.Join(dir, "tokenizer.json"))
	if errors.Is(err, os.ErrNotExist) {
		return readQwenTiktoken(filepath.Join(dir, "qwen.tiktoken"))
	} else if err != nil {
		return nil, err
	}

	var t tokenizer
	if err := json.Unmarshal(bts, &t); err != nil {
		return nil, fmt.Errorf("tokenizer.json: %w", err)
	}

	return &t, nil
}

// mergeList gibt die Merges als "a b" Strings zurück
func (t *tokenizer) mergeList() ([]string, error) {
	if t.merges != nil {
		return t.merges, nil
	}

	return parseMerges(t.Model.Merges)
}

// parseMerges parst die Merges (kann []string oder [][]string sein)
func parseMerges(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	// Versuche als []string
	var merges []string
	if err := json.Unmarshal(raw, &merges); err == nil {
		return merges, nil
	}

	// Versuche als [][]string
	var pairs [][]string
	if err := json.Unmarshal(raw, &pairs); err != nil {
		return nil, errors.New("could not parse tokenizer merges. expected []string or [][]string")
	}

	merges = make([]string, len(pairs))
	for i := range pairs {
		merges[i] = strings.Join(pairs[i], " ")
	}

	return merges, nil
}

// tokenContent parst den Token-Inhalt (kann String oder Objekt mit content sein)
func tokenContent(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", false
	}

	var content string
	if err := json.Unmarshal(raw, &content); err == nil {
		return content, true
	}

	var entry struct {
		Content *string `json:"content"`
	}
	if err := json.Unmarshal(raw, &entry); err != nil || entry.Content == nil {
		return "", false
	}

	return *entry.Content, true
}

// jsonInt parst eine JSON-Ganzzahl. Gleitkommazahlen, Bools und null werden abgelehnt.
func jsonInt(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}

	var i int
	if err := json.Unmarshal(raw, &i); err != nil {
		return 0, false
	}

	return i, true
}

// readJSONObject liest eine JSON-Datei als Objekt. Fehlt die Datei, ist ok false.
func readJSONObject(path string) (map[string]json.RawMessage, bool, error) {
	bts, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}

	var p map[string]json.RawMessage
	if err := json.Unmarshal(bts, &p); err != nil {
		return nil, false, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	return p, true, nil
}
