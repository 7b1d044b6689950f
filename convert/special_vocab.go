// special_vocab.go - Spezielles Vokabular (Merges und Special-Token IDs)
// Enthält: SpecialVocab, NewSpecialVocab, Load, AddToWriter

package convert

import (
	"fmt"
	"log/slog"
	"maps"
	"math"
	"path/filepath"
	"slices"

	"github.com/agnivade/levenshtein"

	"github.com/qnn-genai/ggufkit/fs/gguf"
)

// DefaultSpecialTokenTypes sind die Token-Typen ohne explizite Angabe
var DefaultSpecialTokenTypes = []string{"bos", "eos", "unk", "sep", "pad"}

// specialTokenSetters ordnet Token-Typen den Writer-Settern zu
var specialTokenSetters = map[string]func(*gguf.Writer, uint32){
	"bos": (*gguf.Writer).AddBOSTokenID,
	"eos": (*gguf.Writer).AddEOSTokenID,
	"unk": (*gguf.Writer).AddUNKTokenID,
	"sep": (*gguf.Writer).AddSEPTokenID,
	"pad": (*gguf.Writer).AddPADTokenID,
}

// SpecialVocab enthält Merges und die IDs spezieller Token eines Modellverzeichnisses
type SpecialVocab struct {
	Merges          []string
	SpecialTokenIDs map[string]int

	loadMerges        bool
	specialTokenTypes []string
}

// NewSpecialVocab lädt das spezielle Vokabular aus dir. Ohne specialTokenTypes
// werden DefaultSpecialTokenTypes verwendet.
func NewSpecialVocab(dir string, loadMerges bool, specialTokenTypes ...string) (*SpecialVocab, error) {
	sv := &SpecialVocab{
		SpecialTokenIDs:   make(map[string]int),
		loadMerges:        loadMerges,
		specialTokenTypes: slices.Clone(DefaultSpecialTokenTypes),
	}

	if len(specialTokenTypes) > 0 {
		sv.specialTokenTypes = specialTokenTypes
	}

	if err := sv.Load(dir); err != nil {
		return nil, err
	}

	return sv, nil
}

// SpecialTokenTypes gibt die konfigurierten Token-Typen in Reihenfolge zurück
func (sv *SpecialVocab) SpecialTokenTypes() []string {
	return sv.specialTokenTypes
}

// Load liest tokenizer.json (oder qwen.tiktoken) und fällt auf config.json
// zurück wenn keines von beiden existiert. Fehlende Dateien sind kein Fehler.
func (sv *SpecialVocab) Load(dir string) error {
	found, err := sv.tryLoadFromTokenizerJSON(dir)
	if err != nil || found {
		return err
	}

	_, err = sv.tryLoadFromConfigJSON(dir)
	return err
}

func (sv *SpecialVocab) tryLoadFromTokenizerJSON(dir string) (bool, error) {
	t, err := readTokenizer(dir)
	if err != nil {
		return false, err
	} else if t == nil {
		return false, nil
	}

	if sv.loadMerges {
		merges, err := t.mergeList()
		if err != nil {
			slog.Warn("ignoring tokenizer merges", "dir", dir, "error", err)
		} else if len(merges) > 0 {
			sv.Merges = merges
		}
	}

	if t.AddedTokens == nil {
		return true, nil
	}

	config, ok, err := readJSONObject(filepath.Join(dir, "tokenizer_config.json"))
	if err != nil || !ok {
		return true, err
	}

	for _, typ := range sv.specialTokenTypes {
		raw, ok := config[typ+"_token"]
		if !ok {
			continue
		}

		content, ok := tokenContent(raw)
		if !ok {
			continue
		}

		// Nur der erste Treffer zählt
		if i := slices.IndexFunc(t.AddedTokens, func(tok token) bool {
			return tok.Content == content
		}); i >= 0 {
			if id, ok := t.AddedTokens[i].id(); ok {
				sv.SpecialTokenIDs[typ] = id
			}
		}
	}

	return true, nil
}

func (sv *SpecialVocab) tryLoadFromConfigJSON(dir string) (bool, error) {
	config, ok, err := readJSONObject(filepath.Join(dir, "config.json"))
	if err != nil || !ok {
		return false, err
	}

	for _, typ := range sv.specialTokenTypes {
		if id, ok := jsonInt(config[typ+"_token_id"]); ok && id >= 0 {
			sv.SpecialTokenIDs[typ] = id
		}
	}

	return true, nil
}

// AddToWriter schreibt Merges und Special-Token IDs in den Writer.
// Typen ohne Setter werden mit einer Warnung übersprungen.
func (sv *SpecialVocab) AddToWriter(w *gguf.Writer) error {
	if len(sv.Merges) > 0 {
		slog.Info("adding merges", "count", len(sv.Merges))
		if err := w.AddTokenMerges(sv.Merges); err != nil {
			return err
		}
	}

	seen := make(map[string]bool)
	for _, typ := range sv.specialTokenTypes {
		id, ok := sv.SpecialTokenIDs[typ]
		if !ok || seen[typ] {
			continue
		}
		seen[typ] = true

		set, ok := specialTokenSetters[typ]
		if !ok {
			args := []any{"type", typ, "id", id}
			if s := suggestTokenType(typ); s != "" {
				args = append(args, "suggestion", s)
			}
			slog.Warn("no handler for special token type, skipping", args...)
			continue
		}

		if id < 0 || int64(id) > math.MaxUint32 {
			slog.Warn("special token id out of range, skipping", "type", typ, "id", id)
			continue
		}

		slog.Info("setting special token", "type", typ, "id", id)
		set(w, uint32(id))
	}

	return w.Err()
}

// suggestTokenType sucht einen bekannten Typ mit kleiner Edit-Distanz
func suggestTokenType(typ string) string {
	best, bestDist := "", 3
	for _, known := range slices.Sorted(maps.Keys(specialTokenSetters)) {
		if d := levenshtein.ComputeDistance(typ, known); d < bestDist {
			best, bestDist = known, d
		}
	}
	return best
}

// String gibt eine Zusammenfassung zurück
func (sv *SpecialVocab) String() string {
	var tokens any = "unset"
	if len(sv.SpecialTokenIDs) > 0 {
		tokens = sv.SpecialTokenIDs
	}

	return fmt.Sprintf("<SpecialVocab with %d merges and special tokens %v>", len(sv.Merges), tokens)
}
