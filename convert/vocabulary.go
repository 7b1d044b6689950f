// vocabulary.go - Vokabular-Parsing für Tokenizer
// Enthält: Vocabulary, LoadVocabulary, Padding auf die Vokabulargröße, AddToWriter

package convert

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/qnn-genai/ggufkit/fs/gguf"
)

// ErrNoTokenizer wird zurückgegeben wenn weder tokenizer.json noch qwen.tiktoken existiert
var ErrNoTokenizer = errors.New("unknown tokenizer format")

// Vocabulary enthält das Vokabular eines Modells in ID-Reihenfolge
type Vocabulary struct {
	Model  string
	Tokens []string
	Scores []float32
	Types  []gguf.TokenType
}

// LoadVocabulary liest das Vokabular aus tokenizer.json oder qwen.tiktoken
func LoadVocabulary(dir string) (*Vocabulary, error) {
	t, err := readTokenizer(dir)
	if err != nil {
		return nil, err
	} else if t == nil {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoTokenizer)
	}

	type entry struct {
		content     string
		special     bool
		userDefined bool
	}

	tokens := make(map[int]entry, len(t.Model.Vocab)+len(t.AddedTokens))
	for k, v := range t.Model.Vocab {
		tokens[v] = entry{content: k}
	}

	for _, tok := range t.AddedTokens {
		id, ok := tok.id()
		if !ok {
			slog.Warn("added token without integer id, skipping", "content", tok.Content)
			continue
		}

		tokens[id] = entry{content: tok.Content, special: tok.Special, userDefined: true}
	}

	v := Vocabulary{Model: "gpt2"}
	for _, id := range slices.Sorted(maps.Keys(tokens)) {
		tok := tokens[id]
		v.Tokens = append(v.Tokens, tok.content)
		v.Scores = append(v.Scores, float32(id))

		switch {
		case tok.special:
			v.Types = append(v.Types, gguf.TokenTypeControl)
		case tok.userDefined:
			v.Types = append(v.Types, gguf.TokenTypeUserDefined)
		default:
			v.Types = append(v.Types, gguf.TokenTypeNormal)
		}
	}

	return &v, nil
}

// Pad füllt das Vokabular mit Platzhaltern auf size auf. Ein größeres
// Vokabular bleibt unverändert.
func (v *Vocabulary) Pad(size int) {
	switch {
	case size == 0:
		slog.Debug("vocabulary size was not explicitly set by the model", "default size", len(v.Tokens))
	case size > len(v.Tokens):
		slog.Debug("vocabulary is smaller than expected, padding with dummy tokens", "expect", size, "actual", len(v.Tokens))
		for i := range size - len(v.Tokens) {
			v.Tokens = append(v.Tokens, fmt.Sprintf("[PAD%d]", i))
			v.Scores = append(v.Scores, -1)
			v.Types = append(v.Types, gguf.TokenTypeUserDefined)
		}
	case size < len(v.Tokens):
		slog.Debug("vocabulary is larger than expected", "want", size, "got", len(v.Tokens))
	default:
		slog.Debug("vocabulary", "size", len(v.Tokens))
	}
}

// AddToWriter schreibt Tokenizer-Modell, Token, Scores und Token-Typen
func (v *Vocabulary) AddToWriter(w *gguf.Writer) error {
	w.AddTokenizerModel(v.Model)
	if len(v.Tokens) == 0 {
		return nil
	}

	w.AddVocabSize(int32(len(v.Tokens)))
	if err := w.AddTokenList(v.Tokens); err != nil {
		return err
	}

	if err := w.AddTokenScores(v.Scores); err != nil {
		return err
	}

	return w.AddTokenTypes(v.Types)
}
