// convert_model.go - Model-Konvertierung: Konvertiert ein Modellverzeichnis zu GGUF
// Hauptfunktionen: ConvertModel, collectTensors, convertTensor
package convert

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/qnn-genai/ggufkit/fs/gguf"
)

// llamaReplacer - Namen der HuggingFace Llama-Familie auf GGUF-Namen
var llamaReplacer = strings.NewReplacer(
	"lm_head", "output",
	"model.embed_tokens", "token_embd",
	"model.norm", "output_norm",
	"model.layers", "blk",
	"input_layernorm", "attn_norm",
	"self_attn.q_proj", "attn_q",
	"self_attn.k_proj", "attn_k",
	"self_attn.v_proj", "attn_v",
	"self_attn.o_proj", "attn_output",
	"mlp.gate_proj", "ffn_gate",
	"mlp.down_proj", "ffn_down",
	"mlp.up_proj", "ffn_up",
	"post_attention_layernorm", "ffn_norm",
)

// sourceTensor - Tensor einer safetensors-Datei mit Ziel-Namen
type sourceTensor struct {
	file      *Safetensors
	tensor    SafetensorsTensor
	name      string
	transpose bool
}

// ConvertModel - Konvertiert das Modellverzeichnis dir nach out.
// Erwartet config.json, *.safetensors und tokenizer.json oder qwen.tiktoken.
// Bei einem Fehler bleibt eine unvollstaendige Datei out zurueck.
func ConvertModel(dir, out string, opts ConvertOptions) (err error) {
	p, err := LoadModelParameters(dir)
	if err != nil {
		return err
	}

	card := &ModelCard{}
	if opts.CardPath != "" {
		if card, err = LoadModelCard(opts.CardPath); err != nil {
			return err
		}
	}

	outType, err := parseOutType(opts.OutType)
	if err != nil {
		return err
	}

	vocab, err := LoadVocabulary(dir)
	if err != nil {
		return err
	}
	vocab.Pad(p.vocabSize())

	sv, err := NewSpecialVocab(dir, true)
	if err != nil {
		return err
	}
	slog.Debug("special vocabulary", "vocab", sv)

	tensors, err := collectTensors(dir, p, card)
	if err != nil {
		return err
	}

	w, err := gguf.Create(out, gguf.Options{
		Alignment:      opts.Alignment,
		Architecture:   cmp.Or(card.Architecture, p.Architecture()),
		UseTempFile:    opts.UseTempFile,
		SpoolMaxMemory: opts.SpoolMaxMemory,
		TempDir:        opts.TempDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, w.Close())
	}()

	w.AddArchitecture()
	if opts.Alignment != 0 && opts.Alignment != gguf.DefaultAlignment {
		w.AddCustomAlignment(uint32(opts.Alignment))
	}

	general := *card
	general.Name = cmp.Or(general.Name, filepath.Base(dir))
	general.AddToWriter(w, p)

	if outType == gguf.DTypeFloat16 {
		w.AddFileType(1)
	} else {
		w.AddFileType(0)
	}

	p.AddToWriter(w)
	if err := vocab.AddToWriter(w); err != nil {
		return err
	}

	if err := sv.AddToWriter(w); err != nil {
		return err
	}

	files := make(map[string]*os.File)
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()

	for _, t := range tensors {
		f, ok := files[t.file.Path]
		if !ok {
			if f, err = os.Open(t.file.Path); err != nil {
				return err
			}
			files[t.file.Path] = f
		}

		bts, err := t.file.ReadTensor(f, t.tensor)
		if err != nil {
			return err
		}

		a, rawShape, err := convertTensor(t.tensor, bts, outType, t.transpose)
		if err != nil {
			return err
		}

		if err := w.AddTensor(t.name, a, rawShape); err != nil {
			return err
		}
	}

	if err := w.WriteHeader(); err != nil {
		return err
	}

	if err := w.WriteKVData(); err != nil {
		return err
	}

	return w.WriteTensors()
}

// parseOutType - "f32" oder "f16", leer bedeutet f16
func parseOutType(s string) (gguf.DType, error) {
	switch strings.ToLower(s) {
	case "", "f16":
		return gguf.DTypeFloat16, nil
	case "f32":
		return gguf.DTypeFloat32, nil
	default:
		return 0, fmt.Errorf("unsupported output type %q", s)
	}
}

// collectTensors - Liest die Header aller safetensors-Dateien parallel und
// ordnet die Tensoren ihren GGUF-Namen zu
func collectTensors(dir string, p *ModelParameters, card *ModelCard) ([]sourceTensor, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.safetensors"))
	if err != nil {
		return nil, err
	} else if len(paths) == 0 {
		return nil, fmt.Errorf("%s: no safetensors files", dir)
	}

	files := make([]*Safetensors, len(paths))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			st, err := ReadSafetensors(path)
			files[i] = st
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var mapped map[string]mappedTensor
	if len(card.TensorNames) > 0 {
		mapped = card.tensorMap(int(p.NumHiddenLayers))
	}

	seen := make(map[string]string)
	var tensors []sourceTensor
	for _, st := range files {
		for _, t := range st.Tensors {
			if strings.HasSuffix(t.Name, "rotary_emb.inv_freq") {
				continue
			}

			src := sourceTensor{file: st, tensor: t}
			if mapped != nil {
				m, ok := mapped[t.Name]
				if !ok {
					slog.Warn("tensor not mapped by model card, skipping", "name", t.Name)
					continue
				}

				src.name = m.name
				src.transpose = card.TransposeWeights && gguf.NeedsTranspose(m.configKey)
			} else {
				src.name = llamaReplacer.Replace(t.Name)
			}

			if prev, ok := seen[src.name]; ok {
				return nil, fmt.Errorf("tensors %s and %s both map to %s", prev, t.Name, src.name)
			}
			seen[src.name] = t.Name

			tensors = append(tensors, src)
		}
	}

	slices.SortStableFunc(tensors, func(a, b sourceTensor) int {
		return cmp.Or(cmp.Compare(block(a.name), block(b.name)), cmp.Compare(a.name, b.name))
	})

	return tensors, nil
}

// block - Block-Nummer eines Tensor-Namens, Tensoren ausserhalb von Bloecken zuletzt
func block(name string) (n int) {
	if _, err := fmt.Sscanf(name, "blk.%d.", &n); err != nil {
		return math.MaxInt
	}
	return
}

// convertTensor - Wandelt die Quell-Bytes in den Ziel-Typ. Gewichte mit
// weniger als zwei Dimensionen bleiben F32. Bei transpose wird die
// transponierte Shape als zweiter Wert zurueckgegeben.
func convertTensor(t SafetensorsTensor, bts []byte, outType gguf.DType, transpose bool) (*gguf.Array, []uint64, error) {
	dtype, err := t.dtype()
	if err != nil {
		return nil, nil, err
	}

	var elements uint64 = 1
	for _, d := range t.Shape {
		elements *= d
	}

	if uint64(len(bts)) != elements*dtype.ElementSize() {
		return nil, nil, fmt.Errorf("tensor %s: %d bytes for %d elements of %s", t.Name, len(bts), elements, dtype)
	}

	target := gguf.DTypeFloat32
	if outType == gguf.DTypeFloat16 && len(t.Shape) >= 2 {
		target = gguf.DTypeFloat16
	}

	var a *gguf.Array
	if dtype == target {
		a = gguf.RawArray(t.Shape, dtype, bts)
	} else {
		values, err := decodeFloat32(dtype, bts)
		if err != nil {
			return nil, nil, fmt.Errorf("tensor %s: %w", t.Name, err)
		}

		if target == gguf.DTypeFloat16 {
			a = gguf.Float16Array(t.Shape, values)
		} else {
			a = gguf.Float32Array(t.Shape, values)
		}
	}

	if transpose && len(t.Shape) == 2 {
		rows, cols := t.Shape[0], t.Shape[1]
		a.Data = transpose2D(a.Data, rows, cols, target.ElementSize())
		return a, []uint64{cols, rows}, nil
	}

	return a, nil, nil
}

// transpose2D - Transponiert eine rows x cols Matrix mit Elementen der Groesse size
func transpose2D(data []byte, rows, cols, size uint64) []byte {
	out := make([]byte, len(data))
	for r := range rows {
		for c := range cols {
			src := (r*cols + c) * size
			dst := (c*rows + r) * size
			copy(out[dst:dst+size], data[src:src+size])
		}
	}
	return out
}
