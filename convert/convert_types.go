// convert_types.go - Basis-Typen fuer Model-Konvertierung
// Haupttypen: ModelParameters, ConvertOptions
package convert

import (
	"cmp"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"github.com/qnn-genai/ggufkit/fs/gguf"
)

// ModelParameters - Hyperparameter aus config.json
type ModelParameters struct {
	Architectures []string `json:"architectures"`
	ModelType     string   `json:"model_type"`
	VocabSize     uint32   `json:"vocab_size"`

	HiddenSize            uint32  `json:"hidden_size"`
	NumHiddenLayers       uint32  `json:"num_hidden_layers"`
	IntermediateSize      uint32  `json:"intermediate_size"`
	NumAttentionHeads     uint32  `json:"num_attention_heads"`
	NumKeyValueHeads      uint32  `json:"num_key_value_heads"`
	HeadDim               uint32  `json:"head_dim"`
	MaxPositionEmbeddings uint32  `json:"max_position_embeddings"`
	RMSNormEPS            float32 `json:"rms_norm_eps"`
	LayerNormEPS          float32 `json:"layer_norm_eps"`
	RopeTheta             float32 `json:"rope_theta"`
	HiddenAct             string  `json:"hidden_act"`
	TorchDType            string  `json:"torch_dtype"`

	RopeScaling *struct {
		Type   string  `json:"type"`
		Factor float32 `json:"factor"`
	} `json:"rope_scaling"`

	TextModel struct {
		VocabSize  uint32 `json:"vocab_size"`
		HiddenSize uint32 `json:"hidden_size"`
		ModelType  string `json:"model_type"`
	} `json:"text_config"`
}

// LoadModelParameters - Laedt config.json aus dir
func LoadModelParameters(dir string) (*ModelParameters, error) {
	bts, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		return nil, err
	}

	var p ModelParameters
	if err := json.Unmarshal(bts, &p); err != nil {
		return nil, err
	}

	if len(p.Architectures) < 1 && p.ModelType == "" {
		return nil, errors.New("unknown architecture")
	}

	return &p, nil
}

// Architecture - Architektur-Name fuer {arch}-Schluessel
func (p *ModelParameters) Architecture() string {
	if p.ModelType != "" {
		return p.ModelType
	}

	arch := p.Architectures[0]
	for _, suffix := range []string{"ForCausalLM", "ForConditionalGeneration", "Model"} {
		arch = strings.TrimSuffix(arch, suffix)
	}
	return strings.ToLower(arch)
}

// vocabSize - Vokabulargroesse, auch aus text_config
func (p *ModelParameters) vocabSize() int {
	return int(cmp.Or(p.VocabSize, p.TextModel.VocabSize))
}

// activation - Normalisierter Name der Aktivierungsfunktion
func (p *ModelParameters) activation() string {
	switch strings.ToLower(p.HiddenAct) {
	case "silu", "swish":
		return "SiLU"
	case "gelu", "gelu_new", "gelu_pytorch_tanh":
		return "GeLU"
	case "relu":
		return "ReLU"
	default:
		return p.HiddenAct
	}
}

// AddToWriter - Schreibt die Hyperparameter als {arch}- und model.*-Schluessel
func (p *ModelParameters) AddToWriter(w *gguf.Writer) {
	if p.MaxPositionEmbeddings > 0 {
		w.AddContextLength(p.MaxPositionEmbeddings)
	}

	w.AddEmbeddingLength(cmp.Or(p.HiddenSize, p.TextModel.HiddenSize))
	w.AddBlockCount(p.NumHiddenLayers)
	if p.IntermediateSize > 0 {
		w.AddFeedForwardLength(p.IntermediateSize)
	}

	if p.NumAttentionHeads > 0 {
		w.AddHeadCount(p.NumAttentionHeads)
		w.AddHeadCountKV(cmp.Or(p.NumKeyValueHeads, p.NumAttentionHeads))
		w.AddRopeDimensionCount(cmp.Or(p.HeadDim, p.HiddenSize/p.NumAttentionHeads))
	}

	if p.RopeTheta > 0 {
		w.AddRopeFreqBase(p.RopeTheta)
	}

	if p.RopeScaling != nil && p.RopeScaling.Type == "linear" && p.RopeScaling.Factor > 0 {
		w.AddRopeScaleLinear(p.RopeScaling.Factor)
	}

	switch {
	case p.RMSNormEPS > 0:
		w.AddLayerNormRMSEps(p.RMSNormEPS)
	case p.LayerNormEPS > 0:
		w.AddLayerNormEps(p.LayerNormEPS)
	}
}

// ConvertOptions - Optionen fuer ConvertModel
type ConvertOptions struct {
	// OutType ist "f32" oder "f16" (Standard) fuer Gewichte mit mindestens zwei Dimensionen
	OutType string
	// CardPath ist eine optionale YAML Model-Card
	CardPath string

	Alignment      uint64
	UseTempFile    bool
	SpoolMaxMemory int64
	TempDir        string
}
