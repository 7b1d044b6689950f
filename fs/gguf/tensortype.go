// tensortype.go - Tensor-Typen der Tensor-Info Sektion
// Enthält: TensorType (Quantisierungstyp auf der Platte), DType (Elementtyp eines Puffers)

package gguf

import (
	"fmt"
	"strings"
)

// TensorType ist der Quantisierungstyp eines Tensors wie er in der Datei steht
type TensorType uint32

const (
	TensorTypeF32  TensorType = 0
	TensorTypeF16  TensorType = 1
	TensorTypeQ4_0 TensorType = 2
	TensorTypeQ4_1 TensorType = 3
	TensorTypeQ5_0 TensorType = 6
	TensorTypeQ5_1 TensorType = 7
	TensorTypeQ8_0 TensorType = 8
	TensorTypeQ8_1 TensorType = 9
	TensorTypeQ2_K TensorType = 10
	TensorTypeQ3_K TensorType = 11
	TensorTypeQ4_K TensorType = 12
	TensorTypeQ5_K TensorType = 13
	TensorTypeQ6_K TensorType = 14
	TensorTypeQ8_K TensorType = 15

	// Herstellerspezifische Typen
	TensorTypeZ4     TensorType = 20
	TensorTypeZ4FP16 TensorType = 21
	TensorTypeZ4BF16 TensorType = 22
	TensorTypeBF16   TensorType = 201
)

var tensorTypeNames = map[TensorType]string{
	TensorTypeF32:    "F32",
	TensorTypeF16:    "F16",
	TensorTypeQ4_0:   "Q4_0",
	TensorTypeQ4_1:   "Q4_1",
	TensorTypeQ5_0:   "Q5_0",
	TensorTypeQ5_1:   "Q5_1",
	TensorTypeQ8_0:   "Q8_0",
	TensorTypeQ8_1:   "Q8_1",
	TensorTypeQ2_K:   "Q2_K",
	TensorTypeQ3_K:   "Q3_K",
	TensorTypeQ4_K:   "Q4_K",
	TensorTypeQ5_K:   "Q5_K",
	TensorTypeQ6_K:   "Q6_K",
	TensorTypeQ8_K:   "Q8_K",
	TensorTypeZ4:     "Z4",
	TensorTypeZ4FP16: "Z4_FP16",
	TensorTypeZ4BF16: "Z4_BF16",
	TensorTypeBF16:   "BF16",
}

// ParseTensorType parst einen Tensor-Typ aus seinem Namen (case-insensitive)
func ParseTensorType(s string) (TensorType, error) {
	for t, name := range tensorTypeNames {
		if strings.EqualFold(name, s) {
			return t, nil
		}
	}

	return 0, fmt.Errorf("unsupported tensor type %s", s)
}

// String gibt den Namen des Tensor-Typs zurueck
func (t TensorType) String() string {
	if name, ok := tensorTypeNames[t]; ok {
		return name
	}

	return "unknown"
}

// BlockSize gibt die Anzahl Elemente pro Block zurueck
func (t TensorType) BlockSize() uint64 {
	switch t {
	case TensorTypeF32, TensorTypeF16, TensorTypeBF16:
		return 1
	case TensorTypeQ4_0, TensorTypeQ4_1, TensorTypeQ5_0, TensorTypeQ5_1, TensorTypeQ8_0, TensorTypeQ8_1:
		return 32
	default:
		return 256
	}
}

// TypeSize gibt die Byte-Groesse pro Block zurueck. 0 wenn unbekannt.
func (t TensorType) TypeSize() uint64 {
	blockSize := t.BlockSize()

	switch t {
	case TensorTypeF32:
		return 4
	case TensorTypeF16, TensorTypeBF16:
		return 2
	case TensorTypeQ4_0:
		return 2 + blockSize/2
	case TensorTypeQ4_1:
		return 2 + 2 + blockSize/2
	case TensorTypeQ5_0:
		return 2 + 4 + blockSize/2
	case TensorTypeQ5_1:
		return 2 + 2 + 4 + blockSize/2
	case TensorTypeQ8_0:
		return 2 + blockSize
	case TensorTypeQ8_1:
		return 2 + 2 + blockSize
	case TensorTypeQ2_K:
		return blockSize/16 + blockSize/4 + 2 + 2
	case TensorTypeQ3_K:
		return blockSize/8 + blockSize/4 + 12 + 2
	case TensorTypeQ4_K:
		return 2 + 2 + 12 + blockSize/2
	case TensorTypeQ5_K:
		return 2 + 2 + 12 + blockSize/8 + blockSize/2
	case TensorTypeQ6_K:
		return blockSize/2 + blockSize/4 + blockSize/16 + 2
	case TensorTypeQ8_K:
		return 4 + blockSize + 2*blockSize/16
	default:
		// Z4-Layouts sind nur dem Hersteller-Runtime bekannt
		return 0
	}
}

// DType ist der Elementtyp eines Quell-Puffers
type DType int

const (
	DTypeFloat32 DType = iota
	DTypeFloat16
	DTypeBFloat16
	DTypeFloat64
	DTypeInt8
	DTypeUint8
	DTypeInt16
	DTypeInt32
	DTypeInt64
)

// String gibt den Namen des Elementtyps zurueck
func (d DType) String() string {
	switch d {
	case DTypeFloat32:
		return "float32"
	case DTypeFloat16:
		return "float16"
	case DTypeBFloat16:
		return "bfloat16"
	case DTypeFloat64:
		return "float64"
	case DTypeInt8:
		return "int8"
	case DTypeUint8:
		return "uint8"
	case DTypeInt16:
		return "int16"
	case DTypeInt32:
		return "int32"
	case DTypeInt64:
		return "int64"
	default:
		return fmt.Sprintf("DType(%d)", int(d))
	}
}

// ElementSize gibt die Byte-Groesse eines Elements zurueck
func (d DType) ElementSize() uint64 {
	switch d {
	case DTypeInt8, DTypeUint8:
		return 1
	case DTypeFloat16, DTypeBFloat16, DTypeInt16:
		return 2
	case DTypeFloat32, DTypeInt32:
		return 4
	case DTypeFloat64, DTypeInt64:
		return 8
	default:
		return 0
	}
}

// tensorType leitet den Tensor-Typ fuer F32- und F16-Puffer ab
func (d DType) tensorType() (TensorType, bool) {
	switch d {
	case DTypeFloat32:
		return TensorTypeF32, true
	case DTypeFloat16:
		return TensorTypeF16, true
	default:
		return 0, false
	}
}
