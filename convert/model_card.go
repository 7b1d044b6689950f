// model_card.go - YAML Model-Card mit allgemeinen Metadaten und Tensor-Namen
// Enthält: ModelCard, LoadModelCard, Tensor-Zuordnung aus tensor_names

package convert

import (
	"cmp"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/qnn-genai/ggufkit/fs/gguf"
)

// ModelCard beschreibt ein Modell ueber die Angaben in config.json hinaus
type ModelCard struct {
	Name        string `yaml:"name"`
	Author      string `yaml:"author"`
	URL         string `yaml:"url"`
	Description string `yaml:"description"`
	License     string `yaml:"license"`
	SourceURL   string `yaml:"source_url"`
	HFRepo      string `yaml:"hf_repo"`

	Architecture     string `yaml:"architecture"`
	TensorDataLayout string `yaml:"tensor_data_layout"`
	TransposeWeights bool   `yaml:"transpose_weights"`

	Connector               string `yaml:"connector"`
	Gating                  string `yaml:"gating"`
	Normalization           string `yaml:"normalization"`
	Activation              string `yaml:"activation"`
	PositionalEmbedding     string `yaml:"positional_embedding"`
	RopeComplexOrganization string `yaml:"rope_complex_organization"`

	// TensorNames ordnet Konfigurationsschluessel (tensor.*) dem Quell-Namen
	// zu, {bid} wird durch die Block-Nummer ersetzt
	TensorNames map[string]string `yaml:"tensor_names"`
}

// LoadModelCard liest eine Model-Card aus path
func LoadModelCard(path string) (*ModelCard, error) {
	bts, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var card ModelCard
	if err := yaml.Unmarshal(bts, &card); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	for key := range card.TensorNames {
		if _, ok := gguf.ConfigTensorNames[key]; !ok {
			return nil, fmt.Errorf("%s: unknown tensor key %q", path, key)
		}
	}

	return &card, nil
}

// AddToWriter schreibt die allgemeinen Metadaten und die Modell-Beschreibung
func (c *ModelCard) AddToWriter(w *gguf.Writer, p *ModelParameters) {
	w.AddName(c.Name)
	w.AddAuthor(c.Author)
	w.AddURL(c.URL)
	w.AddDescription(c.Description)
	w.AddLicense(c.License)
	w.AddSourceURL(c.SourceURL)
	w.AddSourceHFRepo(c.HFRepo)

	w.AddConnector(cmp.Or(c.Connector, "sequential"))
	w.AddGating(cmp.Or(c.Gating, "gated"))
	w.AddNormalization(cmp.Or(c.Normalization, "RMS-norm"))
	w.AddActivation(cmp.Or(c.Activation, p.activation()))
	w.AddPositionalEmbedding(cmp.Or(c.PositionalEmbedding, "RoPE"))
	w.AddRopeComplexOrganization(c.RopeComplexOrganization)
	w.AddTensorDataLayout(c.TensorDataLayout)
}

// mappedTensor ist das Ziel eines Quell-Tensors
type mappedTensor struct {
	name      string
	configKey string
}

// tensorMap baut aus tensor_names die Zuordnung Quell-Name -> Ziel fuer blocks Bloecke
func (c *ModelCard) tensorMap(blocks int) map[string]mappedTensor {
	m := make(map[string]mappedTensor)
	for key, source := range c.TensorNames {
		t := gguf.ConfigTensorNames[key]
		if !gguf.IsLayerTensor(key) {
			m[source] = mappedTensor{name: gguf.TensorName(t, 0), configKey: key}
			continue
		}

		for bid := range blocks {
			m[strings.ReplaceAll(source, "{bid}", strconv.Itoa(bid))] = mappedTensor{
				name:      gguf.TensorName(t, bid),
				configKey: key,
			}
		}
	}
	return m
}
