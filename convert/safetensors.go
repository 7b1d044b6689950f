// safetensors.go - Lesen von safetensors-Dateien
// Enthält: Safetensors (Header und Tensor-Deskriptoren), ReadSafetensors, ReadTensor, Float32-Dekodierung

package convert

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"slices"

	"github.com/d4l3k/go-bfloat16"
	"github.com/goccy/go-json"
	"github.com/x448/float16"

	"github.com/qnn-genai/ggufkit/fs/gguf"
)

// maxSafetensorsHeader begrenzt die Header-Größe
const maxSafetensorsHeader = 100 << 20

// SafetensorsTensor beschreibt einen Tensor einer safetensors-Datei
type SafetensorsTensor struct {
	Name  string
	DType string
	Shape []uint64
	// Begin und End sind relativ zum Datenbeginn
	Begin int64
	End   int64
}

// Safetensors ist eine geparste safetensors-Datei
type Safetensors struct {
	Path      string
	DataStart int64
	// Tensors in Reihenfolge der Daten-Offsets
	Tensors  []SafetensorsTensor
	Metadata map[string]string
}

type safetensorsHeader struct {
	DType       string   `json:"dtype"`
	Shape       []uint64 `json:"shape"`
	DataOffsets []int64  `json:"data_offsets"`
}

// ReadSafetensors liest den Header einer safetensors-Datei
func ReadSafetensors(path string) (*Safetensors, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var n uint64
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if n > maxSafetensorsHeader {
		return nil, fmt.Errorf("%s: header too large: %d", path, n)
	}

	bts := make([]byte, n)
	if _, err := io.ReadFull(f, bts); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(bts, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	st := Safetensors{Path: path, DataStart: int64(8 + n)}
	if meta, ok := raw["__metadata__"]; ok {
		if err := json.Unmarshal(meta, &st.Metadata); err != nil {
			return nil, fmt.Errorf("%s: __metadata__: %w", path, err)
		}
		delete(raw, "__metadata__")
	}

	for name, msg := range raw {
		var h safetensorsHeader
		if err := json.Unmarshal(msg, &h); err != nil {
			return nil, fmt.Errorf("%s: tensor %s: %w", path, name, err)
		}

		if len(h.DataOffsets) != 2 || h.DataOffsets[1] < h.DataOffsets[0] {
			return nil, fmt.Errorf("%s: tensor %s: invalid data_offsets", path, name)
		}

		st.Tensors = append(st.Tensors, SafetensorsTensor{
			Name:  name,
			DType: h.DType,
			Shape: h.Shape,
			Begin: h.DataOffsets[0],
			End:   h.DataOffsets[1],
		})
	}

	slices.SortFunc(st.Tensors, func(a, b SafetensorsTensor) int {
		return cmp.Compare(a.Begin, b.Begin)
	})

	return &st, nil
}

// ReadTensor liest die rohen Bytes eines Tensors
func (st *Safetensors) ReadTensor(ra io.ReaderAt, t SafetensorsTensor) ([]byte, error) {
	bts := make([]byte, t.End-t.Begin)
	if _, err := ra.ReadAt(bts, st.DataStart+t.Begin); err != nil {
		return nil, fmt.Errorf("read tensor %s: %w", t.Name, err)
	}

	return bts, nil
}

// dtype ordnet den safetensors-Typ einem Puffer-Typ zu
func (t SafetensorsTensor) dtype() (gguf.DType, error) {
	switch t.DType {
	case "F32":
		return gguf.DTypeFloat32, nil
	case "F16":
		return gguf.DTypeFloat16, nil
	case "BF16":
		return gguf.DTypeBFloat16, nil
	case "F64":
		return gguf.DTypeFloat64, nil
	case "I8":
		return gguf.DTypeInt8, nil
	case "U8":
		return gguf.DTypeUint8, nil
	case "I16":
		return gguf.DTypeInt16, nil
	case "I32":
		return gguf.DTypeInt32, nil
	case "I64":
		return gguf.DTypeInt64, nil
	default:
		return 0, fmt.Errorf("tensor %s: unsupported dtype %s", t.Name, t.DType)
	}
}

// decodeFloat32 wandelt F32-, F16- und BF16-Bytes in float32
func decodeFloat32(dtype gguf.DType, bts []byte) ([]float32, error) {
	switch dtype {
	case gguf.DTypeFloat32:
		out := make([]float32, len(bts)/4)
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(bts[4*i:]))
		}
		return out, nil
	case gguf.DTypeFloat16:
		out := make([]float32, len(bts)/2)
		for i := range out {
			out[i] = float16.Frombits(binary.LittleEndian.Uint16(bts[2*i:])).Float32()
		}
		return out, nil
	case gguf.DTypeBFloat16:
		return bfloat16.DecodeFloat32(bts), nil
	default:
		return nil, fmt.Errorf("cannot convert %s to float32", dtype)
	}
}
