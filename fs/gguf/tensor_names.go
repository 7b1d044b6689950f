// tensor_names.go - Empfohlene Tensor-Namen
// Enthält: ModelTensor, TensorName, Zuordnung von Konfigurationsschluesseln zu Tensoren

package gguf

import (
	"slices"
	"strconv"
	"strings"
)

// ModelTensor identifiziert einen Tensor eines Transformer-Modells
type ModelTensor int

const (
	TensorTokenEmbd ModelTensor = iota + 1
	TensorPosEmbd
	TensorOutput
	TensorOutputBias
	TensorOutputNorm
	TensorOutputNormBias
	TensorAttnQ
	TensorAttnQBias
	TensorAttnK
	TensorAttnKBias
	TensorAttnV
	TensorAttnVBias
	TensorAttnQKV
	TensorAttnQKVBias
	TensorAttnOut
	TensorAttnOutBias
	TensorAttnNorm
	TensorAttnNormBias
	TensorFFNGate
	TensorFFNGateBias
	TensorFFNDown
	TensorFFNDownBias
	TensorFFNUp
	TensorFFNUpBias
	TensorFFNNorm
	TensorFFNNormBias
)

var modelTensorNames = map[ModelTensor]string{
	TensorTokenEmbd:      "token_embd.weight",
	TensorPosEmbd:        "token_embd_pos.weight",
	TensorOutputNorm:     "output_norm.weight",
	TensorOutputNormBias: "output_norm.bias",
	TensorOutput:         "output.weight",
	TensorOutputBias:     "output.bias",
	TensorAttnNorm:       "blk.{bid}.attn_norm.weight",
	TensorAttnNormBias:   "blk.{bid}.attn_norm.bias",
	TensorAttnQ:          "blk.{bid}.attn_q.weight",
	TensorAttnQBias:      "blk.{bid}.attn_q.bias",
	TensorAttnK:          "blk.{bid}.attn_k.weight",
	TensorAttnKBias:      "blk.{bid}.attn_k.bias",
	TensorAttnV:          "blk.{bid}.attn_v.weight",
	TensorAttnVBias:      "blk.{bid}.attn_v.bias",
	TensorAttnQKV:        "blk.{bid}.attn_qkv.weight",
	TensorAttnQKVBias:    "blk.{bid}.attn_qkv.bias",
	TensorAttnOut:        "blk.{bid}.attn_output.weight",
	TensorAttnOutBias:    "blk.{bid}.attn_output.bias",
	TensorFFNNorm:        "blk.{bid}.ffn_norm.weight",
	TensorFFNNormBias:    "blk.{bid}.ffn_norm.bias",
	TensorFFNGate:        "blk.{bid}.ffn_gate.weight",
	TensorFFNGateBias:    "blk.{bid}.ffn_gate.bias",
	TensorFFNDown:        "blk.{bid}.ffn_down.weight",
	TensorFFNDownBias:    "blk.{bid}.ffn_down.bias",
	TensorFFNUp:          "blk.{bid}.ffn_up.weight",
	TensorFFNUpBias:      "blk.{bid}.ffn_up.bias",
}

// ConfigTensorNames ordnet Konfigurationsschluessel den Modell-Tensoren zu
var ConfigTensorNames = map[string]ModelTensor{
	"tensor.embedding_token_weight":           TensorTokenEmbd,
	"tensor.embedding_position_weight":        TensorPosEmbd,
	"tensor.output_weight":                    TensorOutput,
	"tensor.output_bias":                      TensorOutputBias,
	"tensor.output_normalization_weight":      TensorOutputNorm,
	"tensor.output_normalization_bias":        TensorOutputNormBias,
	"tensor.attention_normalization_weight":   TensorAttnNorm,
	"tensor.attention_normalization_bias":     TensorAttnNormBias,
	"tensor.attention_qkv_weight":             TensorAttnQKV,
	"tensor.attention_qkv_bias":               TensorAttnQKVBias,
	"tensor.attention_q_weight":               TensorAttnQ,
	"tensor.attention_q_bias":                 TensorAttnQBias,
	"tensor.attention_k_weight":               TensorAttnK,
	"tensor.attention_k_bias":                 TensorAttnKBias,
	"tensor.attention_v_weight":               TensorAttnV,
	"tensor.attention_v_bias":                 TensorAttnVBias,
	"tensor.attention_output_weight":          TensorAttnOut,
	"tensor.attention_output_bias":            TensorAttnOutBias,
	"tensor.feedforward_normalization_weight": TensorFFNNorm,
	"tensor.feedforward_normalization_bias":   TensorFFNNormBias,
	"tensor.feedforward_gate_weight":          TensorFFNGate,
	"tensor.feedforward_gate_bias":            TensorFFNGateBias,
	"tensor.feedforward_up_weight":            TensorFFNUp,
	"tensor.feedforward_up_bias":              TensorFFNUpBias,
	"tensor.feedforward_output_weight":        TensorFFNDown,
	"tensor.feedforward_output_bias":          TensorFFNDownBias,
}

var nonLayerNames = []string{
	"tensor.output_normalization_weight",
	"tensor.output_normalization_bias",
	"tensor.output_weight",
	"tensor.output_bias",
	"tensor.embedding_position_weight",
	"tensor.embedding_token_weight",
}

var needsTranspose = []string{
	"tensor.attention_qkv_weight",
	"tensor.attention_q_weight",
	"tensor.attention_k_weight",
	"tensor.attention_v_weight",
	"tensor.attention_output_weight",
	"tensor.feedforward_up_weight",
	"tensor.feedforward_gate_weight",
	"tensor.feedforward_output_weight",
	"tensor.feedforward_down_weight",
	"tensor.output_weight",
}

// TensorName gibt den Dateinamen eines Tensors zurueck, block wird bei
// Layer-Tensoren fuer {bid} eingesetzt
func TensorName(t ModelTensor, block int) string {
	return strings.ReplaceAll(modelTensorNames[t], "{bid}", strconv.Itoa(block))
}

// IsLayerTensor prueft ob ein Konfigurationsschluessel pro Block existiert
func IsLayerTensor(configKey string) bool {
	return !slices.Contains(nonLayerNames, configKey)
}

// NeedsTranspose prueft ob ein Gewicht vor dem Schreiben transponiert wird
func NeedsTranspose(configKey string) bool {
	return slices.Contains(needsTranspose, configKey)
}
