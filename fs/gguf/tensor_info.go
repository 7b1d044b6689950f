// tensor_info.go - Tensor-Info Encoder
// Enthält: Pad, AddTensorInfo, AddTensorInfoAt

package gguf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"slices"
)

var (
	// ErrUnsupportedTensorDType wird zurueckgegeben wenn ohne expliziten Typ weder F32 noch F16 vorliegt
	ErrUnsupportedTensorDType = errors.New("only F32 and F16 tensors are supported without a raw type")

	// ErrMissingRawType wird zurueckgegeben wenn AddTensorInfoAt ohne Tensor-Typ aufgerufen wird
	ErrMissingRawType = errors.New("raw tensor type is required")
)

// Pad rundet x auf das naechste Vielfache von n auf
func Pad(x, n uint64) uint64 {
	return ((x + n - 1) / n) * n
}

// AddTensorInfo kodiert einen Tensor-Info Eintrag am laufenden Offset.
// Der Offset waechst danach um nbytes, aufgerundet auf das Alignment.
func (w *Writer) AddTensorInfo(name string, shape []uint64, dtype DType, nbytes uint64, rawType ...TensorType) error {
	if err := w.accumulating(); err != nil {
		return err
	}

	kind, ok := dtype.tensorType()
	if len(rawType) > 0 {
		kind, ok = rawType[0], true
	}

	if !ok {
		return fmt.Errorf("%s: %w (%s)", name, ErrUnsupportedTensorDType, dtype)
	}

	w.writeTensorInfo(name, shape, kind, w.offset)
	w.offset += Pad(nbytes, w.alignment)
	return nil
}

// AddTensorInfoAt kodiert einen Tensor-Info Eintrag mit vorgegebenem Offset.
// Der laufende Offset wird auf offset gesetzt, nicht weitergezaehlt.
func (w *Writer) AddTensorInfoAt(name string, shape []uint64, offset uint64, rawType ...TensorType) error {
	if err := w.accumulating(); err != nil {
		return err
	}

	if len(rawType) == 0 {
		return fmt.Errorf("%s: %w", name, ErrMissingRawType)
	}

	w.writeTensorInfo(name, shape, rawType[0], offset)
	w.offset = offset
	return nil
}

// TensorInfoCount gibt die Anzahl der kodierten Tensor-Infos zurueck
func (w *Writer) TensorInfoCount() uint64 {
	return w.tiCount
}

// TensorOffset gibt den laufenden Daten-Offset zurueck
func (w *Writer) TensorOffset() uint64 {
	return w.offset
}

func (w *Writer) writeTensorInfo(name string, shape []uint64, kind TensorType, offset uint64) {
	slog.Debug(name, "kind", kind, "shape", shape, "offset", offset)

	var b bytes.Buffer
	writeString(&b, name)
	binary.Write(&b, binary.LittleEndian, uint32(len(shape))) //nolint:errcheck
	for _, d := range slices.Backward(shape) {
		binary.Write(&b, binary.LittleEndian, d) //nolint:errcheck
	}
	binary.Write(&b, binary.LittleEndian, uint32(kind)) //nolint:errcheck
	binary.Write(&b, binary.LittleEndian, offset)       //nolint:errcheck

	w.ti.Write(b.Bytes())
	w.tiCount++
}
