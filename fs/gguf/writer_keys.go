// writer_keys.go - Setter fuer bekannte Metadaten-Schluessel
// Enthält: general.*, model.*, {arch}.*, tokenizer.*

package gguf

import "fmt"

// archKey setzt die Architektur ein oder merkt sich ErrArchitectureNotSet
func (w *Writer) archKey(template string) (string, bool) {
	if w.arch == "" {
		w.setErr(fmt.Errorf("%w: %s", ErrArchitectureNotSet, template))
		return "", false
	}

	return ArchKey(template, w.arch), true
}

// AddArchitecture schreibt die Architektur des Writers nach general.architecture
func (w *Writer) AddArchitecture() {
	w.AddString(KeyGeneralArchitecture, w.arch)
}

// AddArch schreibt eine explizite Architektur nach general.architecture
func (w *Writer) AddArch(arch string) {
	w.AddString(KeyGeneralArchitecture, arch)
}

func (w *Writer) AddName(name string) {
	w.AddString(KeyGeneralName, name)
}

func (w *Writer) AddAuthor(author string) {
	w.AddString(KeyGeneralAuthor, author)
}

func (w *Writer) AddURL(url string) {
	w.AddString(KeyGeneralURL, url)
}

func (w *Writer) AddDescription(description string) {
	w.AddString(KeyGeneralDescription, description)
}

func (w *Writer) AddLicense(license string) {
	w.AddString(KeyGeneralLicense, license)
}

func (w *Writer) AddSourceURL(url string) {
	w.AddString(KeyGeneralSourceURL, url)
}

func (w *Writer) AddSourceHFRepo(repo string) {
	w.AddString(KeyGeneralSourceHFRepo, repo)
}

func (w *Writer) AddTokenizer(tokenizer string) {
	w.AddString(KeyGeneralTokenizer, tokenizer)
}

func (w *Writer) AddFileType(ftype uint32) {
	w.AddUint32(KeyGeneralFileType, ftype)
}

func (w *Writer) AddQuantizationVersion(version uint32) {
	w.AddUint32(KeyGeneralQuantizationVersion, version)
}

// AddCustomAlignment setzt das Daten-Alignment und schreibt general.alignment.
// Muss vor dem ersten Tensor aufgerufen werden. Das Alignment muss eine
// Zweierpotenz sein, sonst bleibt das bisherige Alignment und der Fehler
// wird vom naechsten Schritt der Schreibsequenz zurueckgegeben.
func (w *Writer) AddCustomAlignment(alignment uint32) {
	if alignment == 0 || alignment&(alignment-1) != 0 {
		w.setErr(fmt.Errorf("%w: alignment %d is not a power of two", ErrInvalidValue, alignment))
		return
	}

	if w.accumulating() != nil {
		return
	}

	w.alignment = uint64(alignment)
	w.AddUint32(KeyGeneralAlignment, alignment)
}

func (w *Writer) AddVocabSize(size int32) {
	w.AddInt32(KeyVocabSize, size)
}

func (w *Writer) AddConnector(connector string) {
	w.AddString(KeyConnector, connector)
}

func (w *Writer) AddGating(gating string) {
	w.AddString(KeyGating, gating)
}

func (w *Writer) AddNormalization(norm string) {
	w.AddString(KeyOperationNormalization, norm)
}

func (w *Writer) AddActivation(activation string) {
	w.AddString(KeyOperationActivation, activation)
}

func (w *Writer) AddPositionalEmbedding(emb string) {
	w.AddString(KeyOperationPosEmbedding, emb)
}

func (w *Writer) AddRopeComplexOrganization(o string) {
	w.AddString(KeyOperationRopeComplex, o)
}

func (w *Writer) AddLayerNormRMSEps(eps float32) {
	w.AddFloat32(KeyOperationNormEpsilon, eps)
}

func (w *Writer) addArchUint32(template string, val uint32) {
	if key, ok := w.archKey(template); ok {
		w.AddUint32(key, val)
	}
}

func (w *Writer) addArchFloat32(template string, val float32) {
	if key, ok := w.archKey(template); ok {
		w.AddFloat32(key, val)
	}
}

func (w *Writer) AddContextLength(n uint32) {
	w.addArchUint32(KeyContextLength, n)
}

func (w *Writer) AddEmbeddingLength(n uint32) {
	w.addArchUint32(KeyEmbeddingLength, n)
}

func (w *Writer) AddBlockCount(n uint32) {
	w.addArchUint32(KeyBlockCount, n)
}

func (w *Writer) AddFeedForwardLength(n uint32) {
	w.addArchUint32(KeyFeedForwardLength, n)
}

func (w *Writer) AddHeadCount(n uint32) {
	w.addArchUint32(KeyAttentionHeadCount, n)
}

func (w *Writer) AddHeadCountKV(n uint32) {
	w.addArchUint32(KeyAttentionHeadCountKV, n)
}

func (w *Writer) AddRopeDimensionCount(n uint32) {
	w.addArchUint32(KeyRopeDimensionCount, n)
}

func (w *Writer) AddMaxAlibiBias(bias float32) {
	w.addArchFloat32(KeyAttentionMaxAlibi, bias)
}

func (w *Writer) AddClampKQV(clamp float32) {
	w.addArchFloat32(KeyAttentionClampKQV, clamp)
}

func (w *Writer) AddLayerNormEps(eps float32) {
	w.addArchFloat32(KeyAttentionLayerNorm, eps)
}

func (w *Writer) AddRopeFreqBase(base float32) {
	w.addArchFloat32(KeyRopeFreqBase, base)
}

func (w *Writer) AddRopeScaleLinear(s float32) {
	w.addArchFloat32(KeyRopeScaleLinear, s)
}

func (w *Writer) AddParallelResidual(use bool) {
	if key, ok := w.archKey(KeyUseParallelResidual); ok {
		w.AddBool(key, use)
	}
}

func (w *Writer) AddTensorDataLayout(layout string) {
	if key, ok := w.archKey(KeyTensorDataLayout); ok {
		w.AddString(key, layout)
	}
}

func (w *Writer) AddTokenizerModel(model string) {
	w.AddString(KeyTokenizerModel, model)
}

func (w *Writer) AddTokenList(tokens []string) error {
	return w.AddArray(KeyTokenizerList, tokens)
}

func (w *Writer) AddTokenMerges(merges []string) error {
	return w.AddArray(KeyTokenizerMerges, merges)
}

func (w *Writer) AddTokenTypes(types []TokenType) error {
	return w.AddArray(KeyTokenizerTokenType, types)
}

func (w *Writer) AddTokenScores(scores []float32) error {
	return w.AddArray(KeyTokenizerScores, scores)
}

func (w *Writer) AddBOSTokenID(id uint32) {
	w.AddUint32(KeyTokenizerBOSID, id)
}

func (w *Writer) AddEOSTokenID(id uint32) {
	w.AddUint32(KeyTokenizerEOSID, id)
}

func (w *Writer) AddUNKTokenID(id uint32) {
	w.AddUint32(KeyTokenizerUNKID, id)
}

func (w *Writer) AddSEPTokenID(id uint32) {
	w.AddUint32(KeyTokenizerSEPID, id)
}

func (w *Writer) AddPADTokenID(id uint32) {
	w.AddUint32(KeyTokenizerPADID, id)
}

