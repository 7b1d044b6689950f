// Package gguf - Tensor-Puffer
//
// Dieses Modul enthaelt den Puffer-Typ fuer Tensor-Daten:
// - Array: Shape, Elementtyp und rohe Bytes eines Tensors
// - Float32Array/Float16Array/BFloat16Array: Konstruktoren aus float32-Werten
// - RawArray: Bereits kodierte Bytes (z.B. quantisierte Bloecke)
package gguf

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/d4l3k/go-bfloat16"
	"github.com/x448/float16"
)

// Array ist ein Tensor-Puffer in Speicher-Reihenfolge
type Array struct {
	Shape []uint64
	DType DType
	Data  []byte
}

// NumBytes gibt die Groesse der Daten in Bytes zurueck
func (a *Array) NumBytes() uint64 {
	return uint64(len(a.Data))
}

// Elements gibt die Anzahl der Elemente laut Shape zurueck
func (a *Array) Elements() uint64 {
	var n uint64 = 1
	for _, d := range a.Shape {
		n *= d
	}
	return n
}

// WriteTo schreibt die rohen Bytes
func (a *Array) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(a.Data)
	return int64(n), err
}

// Float32Array kodiert float32-Werte little-endian
func Float32Array(shape []uint64, values []float32) *Array {
	bts := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(bts[4*i:], math.Float32bits(v))
	}

	return &Array{Shape: shape, DType: DTypeFloat32, Data: bts}
}

// Float16Array wandelt float32-Werte in IEEE-754 half precision
func Float16Array(shape []uint64, values []float32) *Array {
	bts := make([]byte, 2*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint16(bts[2*i:], float16.Fromfloat32(v).Bits())
	}

	return &Array{Shape: shape, DType: DTypeFloat16, Data: bts}
}

// BFloat16Array wandelt float32-Werte in bfloat16.
// Ohne expliziten Tensor-Typ wird dieser Puffer von AddTensor abgelehnt.
func BFloat16Array(shape []uint64, values []float32) *Array {
	return &Array{Shape: shape, DType: DTypeBFloat16, Data: bfloat16.EncodeFloat32(values)}
}

// RawArray umschliesst bereits kodierte Bytes
func RawArray(shape []uint64, dtype DType, data []byte) *Array {
	return &Array{Shape: shape, DType: dtype, Data: data}
}
