// Package gguf - Metadaten-Schluessel
//
// Dieses Modul enthaelt die Schluessel der KV-Sektion:
// - general.*: Allgemeine Modell-Informationen
// - model.*: Architektur- und Operations-Beschreibung
// - {arch}.*: Architektur-spezifische Hyperparameter (Template)
// - tokenizer.*: Tokenizer-Vokabular und spezielle Token
// - TokenType: Token-Typen des Vokabulars
package gguf

import "strings"

// Datei-Konstanten
const (
	Magic            uint32 = 0x46554747
	Version          uint32 = 2
	DefaultAlignment uint64 = 32
)

// Allgemeine Schluessel
const (
	KeyGeneralArchitecture        = "general.architecture"
	KeyGeneralQuantizationVersion = "general.quantization_version"
	KeyGeneralAlignment           = "general.alignment"
	KeyGeneralName                = "general.name"
	KeyGeneralTokenizer           = "general.tokenizer"
	KeyGeneralAuthor              = "general.author"
	KeyGeneralURL                 = "general.url"
	KeyGeneralDescription         = "general.description"
	KeyGeneralLicense             = "general.license"
	KeyGeneralSourceURL           = "general.source.url"
	//nolint:misspell // so von den Konsumenten des Formats erwartet
	KeyGeneralSourceHFRepo = "general.source.hugginface.repository"
	KeyGeneralFileType     = "general.file_type"
)

// Modell-Schluessel
const (
	KeyVocabSize              = "model.size.vocabulary"
	KeyConnector              = "model.architecture.connector"
	KeyGating                 = "model.architecture.gating"
	KeyOperationNormalization = "model.operation.normalization"
	KeyOperationActivation    = "model.operation.activation"
	KeyOperationPosEmbedding  = "model.operation.positional_embedding"
	KeyOperationRopeComplex   = "model.operation.rope_complex_organization"
	KeyOperationNormEpsilon   = "model.operation.normalization_epsilon"
)

// Architektur-Templates, {arch} wird durch die Architektur ersetzt
const (
	KeyContextLength       = "{arch}.context_length"
	KeyEmbeddingLength     = "{arch}.embedding_length"
	KeyBlockCount          = "{arch}.block_count"
	KeyFeedForwardLength   = "{arch}.feed_forward_length"
	KeyUseParallelResidual = "{arch}.use_parallel_residual"
	KeyTensorDataLayout    = "{arch}.tensor_data_layout"

	KeyAttentionHeadCount   = "{arch}.attention.head_count"
	KeyAttentionHeadCountKV = "{arch}.attention.head_count_kv"
	KeyAttentionMaxAlibi    = "{arch}.attention.max_alibi_bias"
	KeyAttentionClampKQV    = "{arch}.attention.clamp_kqv"
	KeyAttentionLayerNorm   = "{arch}.attention.layer_norm_epsilon"

	KeyRopeDimensionCount = "{arch}.rope.dimension_count"
	KeyRopeFreqBase       = "{arch}.rope.freq_base"
	KeyRopeScaleLinear    = "{arch}.rope.scale_linear"
)

// Tokenizer-Schluessel
const (
	KeyTokenizerModel     = "tokenizer.ggml.model"
	KeyTokenizerList      = "tokenizer.ggml.tokens"
	KeyTokenizerTokenType = "tokenizer.ggml.token_type"
	KeyTokenizerScores    = "tokenizer.ggml.scores"
	KeyTokenizerMerges    = "tokenizer.ggml.merges"
	KeyTokenizerBOSID     = "tokenizer.ggml.bos_token_id"
	KeyTokenizerEOSID     = "tokenizer.ggml.eos_token_id"
	KeyTokenizerUNKID     = "tokenizer.ggml.unknown_token_id"
	//nolint:misspell // Upstream-Tippfehler
	KeyTokenizerSEPID  = "tokenizer.ggml.seperator_token_id"
	KeyTokenizerPADID  = "tokenizer.ggml.padding_token_id"
	KeyTokenizerHFJSON = "tokenizer.huggingface.json"
	KeyTokenizerRWKV   = "tokenizer.rwkv.world"
)

// TokenType ist der Typ eines Vokabular-Eintrags
type TokenType int32

const (
	TokenTypeNormal      TokenType = 1
	TokenTypeUnknown     TokenType = 2
	TokenTypeControl     TokenType = 3
	TokenTypeUserDefined TokenType = 4
	TokenTypeUnused      TokenType = 5
	TokenTypeByte        TokenType = 6
)

// ArchKey setzt die Architektur in ein Schluessel-Template ein
func ArchKey(template, arch string) string {
	return strings.ReplaceAll(template, "{arch}", arch)
}
