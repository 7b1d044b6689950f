// convert_model_test.go - Tests fuer die Modell-Konvertierung
//
// Baut ein kleines Llama-Verzeichnis mit safetensors, konvertiert es und liest
// das Ergebnis mit gguf.Open zurueck.
package convert

import (
	"encoding/binary"
	"io"
	"math"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"

	"github.com/qnn-genai/ggufkit/fs/gguf"
)

const testConfigJSON = `{
	"architectures": ["LlamaForCausalLM"],
	"model_type": "llama",
	"vocab_size": 6,
	"hidden_size": 4,
	"num_hidden_layers": 1,
	"intermediate_size": 8,
	"num_attention_heads": 2,
	"num_key_value_heads": 1,
	"max_position_embeddings": 128,
	"rms_norm_eps": 1e-05,
	"rope_theta": 10000,
	"hidden_act": "silu",
	"bos_token_id": 0
}`

func seq(n int) []float32 {
	values := make([]float32, n)
	for i := range values {
		values[i] = float32(i)
	}
	return values
}

// testModelDir legt ein Llama-Verzeichnis mit einem Block an
func testModelDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"config.json":           testConfigJSON,
		"tokenizer.json":        testTokenizerJSON,
		"tokenizer_config.json": `{"bos_token": "<s>"}`,
	})

	writeSafetensors(t, filepath.Join(dir, "model.safetensors"), []testTensor{
		{"model.embed_tokens.weight", "F32", []uint64{6, 4}, f32Bytes(seq(24)...)},
		{"model.layers.0.input_layernorm.weight", "F32", []uint64{4}, f32Bytes(1, 1, 1, 1)},
		{"model.layers.0.self_attn.q_proj.weight", "BF16", []uint64{2, 4}, gguf.BFloat16Array([]uint64{2, 4}, seq(8)).Data},
		{"model.layers.0.self_attn.rotary_emb.inv_freq", "F32", []uint64{2}, f32Bytes(1, 2)},
		{"model.norm.weight", "F16", []uint64{4}, gguf.Float16Array([]uint64{4}, []float32{1, 2, 3, 4}).Data},
	}, nil)

	writeSafetensors(t, filepath.Join(dir, "model-2.safetensors"), []testTensor{
		{"lm_head.weight", "F32", []uint64{6, 4}, f32Bytes(seq(24)...)},
	}, nil)

	return dir
}

func readTensor(t *testing.T, f *gguf.File, name string) []byte {
	t.Helper()

	_, r, err := f.TensorReader(name)
	require.NoError(t, err)

	bts, err := io.ReadAll(r)
	require.NoError(t, err)
	return bts
}

func decodeF16(bts []byte) []float32 {
	values := make([]float32, len(bts)/2)
	for i := range values {
		values[i] = float16.Frombits(binary.LittleEndian.Uint16(bts[2*i:])).Float32()
	}
	return values
}

func TestConvertModel(t *testing.T) {
	dir := testModelDir(t)

	for _, spool := range []bool{false, true} {
		out := filepath.Join(t.TempDir(), "model.gguf")
		require.NoError(t, ConvertModel(dir, out, ConvertOptions{UseTempFile: spool, TempDir: t.TempDir()}))

		f, err := gguf.Open(out)
		require.NoError(t, err)
		defer f.Close()

		require.Equal(t, "llama", f.KeyValue(gguf.KeyGeneralArchitecture).String())
		require.Equal(t, filepath.Base(dir), f.KeyValue(gguf.KeyGeneralName).String())
		require.Equal(t, uint64(1), f.KeyValue(gguf.KeyGeneralFileType).Uint())
		require.Equal(t, "SiLU", f.KeyValue(gguf.KeyOperationActivation).String())
		require.Equal(t, "RMS-norm", f.KeyValue(gguf.KeyOperationNormalization).String())
		require.Equal(t, uint64(128), f.KeyValue("llama.context_length").Uint())
		require.Equal(t, uint64(1), f.KeyValue("llama.block_count").Uint())
		require.Equal(t, uint64(1), f.KeyValue("llama.attention.head_count_kv").Uint())
		require.Equal(t, uint64(2), f.KeyValue("llama.rope.dimension_count").Uint())
		require.InDelta(t, 1e-5, f.KeyValue(gguf.KeyOperationNormEpsilon).Float(), 1e-9)

		require.Equal(t, int64(6), f.KeyValue(gguf.KeyVocabSize).Int())
		require.Equal(t, []string{"a", "b", "ab", "<s>", "<extra>", "[PAD0]"}, f.KeyValue(gguf.KeyTokenizerList).Strings())
		require.Equal(t, []string{"a b"}, f.KeyValue(gguf.KeyTokenizerMerges).Strings())
		require.Equal(t, uint64(3), f.KeyValue(gguf.KeyTokenizerBOSID).Uint())

		var names []string
		for _, ti := range f.Tensors {
			names = append(names, ti.Name)
		}

		want := []string{
			"blk.0.attn_norm.weight",
			"blk.0.attn_q.weight",
			"output.weight",
			"output_norm.weight",
			"token_embd.weight",
		}
		if diff := cmp.Diff(want, names); diff != "" {
			t.Errorf("Tensor-Reihenfolge (-erwartet +erhalten):\n%s", diff)
		}

		types := map[string]gguf.TensorType{
			"blk.0.attn_norm.weight": gguf.TensorTypeF32,
			"blk.0.attn_q.weight":    gguf.TensorTypeF16,
			"output.weight":          gguf.TensorTypeF16,
			"output_norm.weight":     gguf.TensorTypeF32,
			"token_embd.weight":      gguf.TensorTypeF16,
		}
		for name, typ := range types {
			ti, ok := f.TensorInfo(name)
			require.True(t, ok, name)
			require.Equal(t, typ, ti.Type, name)
		}

		ti, _ := f.TensorInfo("token_embd.weight")
		require.Equal(t, []uint64{6, 4}, ti.Dims())

		require.Equal(t, seq(8), decodeF16(readTensor(t, f, "blk.0.attn_q.weight")))
		require.Equal(t, f32Bytes(1, 2, 3, 4), readTensor(t, f, "output_norm.weight"))

		for _, ti := range f.Tensors {
			require.Zero(t, ti.Offset%gguf.DefaultAlignment, ti.Name)
		}
	}
}

func TestConvertModelF32(t *testing.T) {
	dir := testModelDir(t)
	out := filepath.Join(t.TempDir(), "model.gguf")

	require.NoError(t, ConvertModel(dir, out, ConvertOptions{OutType: "f32", Alignment: 64}))

	f, err := gguf.Open(out)
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, uint64(0), f.KeyValue(gguf.KeyGeneralFileType).Uint())
	require.Equal(t, uint64(64), f.Alignment())
	require.Zero(t, f.DataOffset%64)

	for _, ti := range f.Tensors {
		require.Equal(t, gguf.TensorTypeF32, ti.Type, ti.Name)
		require.Zero(t, ti.Offset%64, ti.Name)
	}

	require.Equal(t, f32Bytes(seq(24)...), readTensor(t, f, "token_embd.weight"))
	require.Equal(t, f32Bytes(seq(8)...), readTensor(t, f, "blk.0.attn_q.weight"))
}

func TestConvertModelCard(t *testing.T) {
	dir := testModelDir(t)
	card := filepath.Join(t.TempDir(), "card.yaml")
	writeFiles(t, filepath.Dir(card), map[string]string{"card.yaml": `
name: Tiny
author: someone
architecture: custom
transpose_weights: true
gating: none
tensor_names:
  tensor.embedding_token_weight: model.embed_tokens.weight
  tensor.attention_q_weight: model.layers.{bid}.self_attn.q_proj.weight
`})

	out := filepath.Join(t.TempDir(), "model.gguf")
	require.NoError(t, ConvertModel(dir, out, ConvertOptions{OutType: "f32", CardPath: card}))

	f, err := gguf.Open(out)
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, "custom", f.KeyValue(gguf.KeyGeneralArchitecture).String())
	require.Equal(t, "Tiny", f.KeyValue(gguf.KeyGeneralName).String())
	require.Equal(t, "someone", f.KeyValue(gguf.KeyGeneralAuthor).String())
	require.Equal(t, "none", f.KeyValue(gguf.KeyGating).String())
	require.Equal(t, uint64(1), f.KeyValue("custom.block_count").Uint())
	require.False(t, f.KeyValue("llama.block_count").Valid())

	require.Len(t, f.Tensors, 2)

	ti, ok := f.TensorInfo("blk.0.attn_q.weight")
	require.True(t, ok)
	require.Equal(t, []uint64{4, 2}, ti.Dims())
	require.Equal(t, f32Bytes(0, 4, 1, 5, 2, 6, 3, 7), readTensor(t, f, "blk.0.attn_q.weight"))

	// Embeddings werden nicht transponiert
	ti, ok = f.TensorInfo("token_embd.weight")
	require.True(t, ok)
	require.Equal(t, []uint64{6, 4}, ti.Dims())
}

func TestConvertModelErrors(t *testing.T) {
	t.Run("Ohne config.json", func(t *testing.T) {
		require.Error(t, ConvertModel(t.TempDir(), filepath.Join(t.TempDir(), "out.gguf"), ConvertOptions{}))
	})

	t.Run("Ohne safetensors", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir, map[string]string{"config.json": testConfigJSON, "tokenizer.json": testTokenizerJSON})
		require.Error(t, ConvertModel(dir, filepath.Join(t.TempDir(), "out.gguf"), ConvertOptions{}))
	})

	t.Run("Unbekannter Ausgabetyp", func(t *testing.T) {
		require.Error(t, ConvertModel(testModelDir(t), filepath.Join(t.TempDir(), "out.gguf"), ConvertOptions{OutType: "q4_0"}))
	})

	t.Run("Unbekannter Tensor-Schluessel", func(t *testing.T) {
		dir := testModelDir(t)
		writeFiles(t, dir, map[string]string{"card.yaml": "tensor_names:\n  tensor.unknown: x\n"})
		require.Error(t, ConvertModel(dir, filepath.Join(t.TempDir(), "out.gguf"), ConvertOptions{CardPath: filepath.Join(dir, "card.yaml")}))
	})
}

func TestConvertTensor(t *testing.T) {
	tests := []struct {
		name      string
		tensor    SafetensorsTensor
		data      []byte
		outType   gguf.DType
		transpose bool
		wantDType gguf.DType
		wantData  []byte
		wantRaw   []uint64
	}{
		{
			name:      "F32 nach F16",
			tensor:    SafetensorsTensor{Name: "w", DType: "F32", Shape: []uint64{1, 2}},
			data:      f32Bytes(1, -2),
			outType:   gguf.DTypeFloat16,
			wantDType: gguf.DTypeFloat16,
			wantData:  []byte{0x00, 0x3c, 0x00, 0xc0},
		},
		{
			name:      "1D bleibt F32",
			tensor:    SafetensorsTensor{Name: "b", DType: "F16", Shape: []uint64{2}},
			data:      []byte{0x00, 0x3c, 0x00, 0xc0},
			outType:   gguf.DTypeFloat16,
			wantDType: gguf.DTypeFloat32,
			wantData:  f32Bytes(1, -2),
		},
		{
			name:      "Gleicher Typ",
			tensor:    SafetensorsTensor{Name: "w", DType: "F32", Shape: []uint64{2}},
			data:      f32Bytes(3, 4),
			outType:   gguf.DTypeFloat32,
			wantDType: gguf.DTypeFloat32,
			wantData:  f32Bytes(3, 4),
		},
		{
			name:      "Transponiert",
			tensor:    SafetensorsTensor{Name: "w", DType: "F32", Shape: []uint64{2, 3}},
			data:      f32Bytes(seq(6)...),
			outType:   gguf.DTypeFloat32,
			transpose: true,
			wantDType: gguf.DTypeFloat32,
			wantData:  f32Bytes(0, 3, 1, 4, 2, 5),
			wantRaw:   []uint64{3, 2},
		},
		{
			name:      "1D wird nicht transponiert",
			tensor:    SafetensorsTensor{Name: "b", DType: "F32", Shape: []uint64{3}},
			data:      f32Bytes(1, 2, 3),
			outType:   gguf.DTypeFloat32,
			transpose: true,
			wantDType: gguf.DTypeFloat32,
			wantData:  f32Bytes(1, 2, 3),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, raw, err := convertTensor(tt.tensor, tt.data, tt.outType, tt.transpose)
			require.NoError(t, err)
			require.Equal(t, tt.wantDType, a.DType)
			require.Equal(t, tt.wantData, a.Data)
			require.Equal(t, tt.wantRaw, raw)
			require.Equal(t, tt.tensor.Shape, a.Shape)
		})
	}

	_, _, err := convertTensor(SafetensorsTensor{Name: "w", DType: "F32", Shape: []uint64{3}}, f32Bytes(1), gguf.DTypeFloat32, false)
	require.Error(t, err)
}

func TestBlock(t *testing.T) {
	cases := map[string]int{
		"blk.0.attn_q.weight":  0,
		"blk.10.ffn_up.weight": 10,
		"token_embd.weight":    math.MaxInt,
		"output.weight":        math.MaxInt,
		"blk.x.weight":         math.MaxInt,
	}

	for name, want := range cases {
		if got := block(name); got != want {
			t.Errorf("block(%q) = %d, erwartet %d", name, got, want)
		}
	}
}

func TestLlamaReplacer(t *testing.T) {
	cases := map[string]string{
		"model.embed_tokens.weight":                      "token_embd.weight",
		"model.norm.weight":                              "output_norm.weight",
		"lm_head.weight":                                 "output.weight",
		"model.layers.3.self_attn.o_proj.weight":         "blk.3.attn_output.weight",
		"model.layers.3.post_attention_layernorm.weight": "blk.3.ffn_norm.weight",
		"model.layers.3.mlp.down_proj.weight":            "blk.3.ffn_down.weight",
	}

	for in, want := range cases {
		if got := llamaReplacer.Replace(in); got != want {
			t.Errorf("Replace(%q) = %q, erwartet %q", in, got, want)
		}
	}
}
