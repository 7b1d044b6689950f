// Package gguf - Container Reader
//
// Dieses Modul enthaelt das Lesen von GGUF-Containern:
// - Decode: Liest Header, KV-Sektion und Tensor-Infos
// - Open: Oeffnet eine Datei und dekodiert sie
// - File: KV-Eintraege in Datei-Reihenfolge, Tensor-Infos, Daten-Offset
// - TensorInfo: Name, Shape (Datei-Reihenfolge), Typ, Offset
package gguf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var (
	// ErrInvalidMagic wird zurueckgegeben wenn die Datei nicht mit GGUF beginnt
	ErrInvalidMagic = errors.New("invalid gguf magic")

	// ErrUnsupportedVersion wird fuer unbekannte Format-Versionen zurueckgegeben
	ErrUnsupportedVersion = errors.New("unsupported gguf version")
)

// File ist ein dekodierter GGUF-Container
type File struct {
	Magic   uint32
	Version uint32

	// KV enthaelt die Eintraege in Datei-Reihenfolge. Doppelte Schluessel
	// behalten ihre erste Position und den letzten Wert.
	KV *orderedmap.OrderedMap[string, KeyValue]

	// KVCount ist die Anzahl laut Header, inklusive doppelter Schluessel
	KVCount uint64

	Tensors []TensorInfo

	// DataOffset ist der Beginn der Tensor-Daten in der Datei
	DataOffset int64

	file    *os.File
	reader  *countingReader
	scratch []byte
}

// TensorInfo beschreibt einen Tensor der Tensor-Info Sektion
type TensorInfo struct {
	Name string
	// Shape in Datei-Reihenfolge (umgekehrt zur logischen Reihenfolge)
	Shape  []uint64
	Type   TensorType
	Offset uint64
}

// Dims gibt die Shape in logischer Reihenfolge zurueck
func (ti TensorInfo) Dims() []uint64 {
	dims := slices.Clone(ti.Shape)
	slices.Reverse(dims)
	return dims
}

// Elements gibt die Anzahl der Elemente zurueck
func (ti TensorInfo) Elements() uint64 {
	var n uint64 = 1
	for _, d := range ti.Shape {
		n *= d
	}
	return n
}

// NumBytes gibt die Datengroesse zurueck, 0 fuer Typen ohne bekanntes Layout
func (ti TensorInfo) NumBytes() uint64 {
	return ti.Elements() * ti.Type.TypeSize() / ti.Type.BlockSize()
}

// Open oeffnet und dekodiert die Datei path
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	file, err := Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	file.file = f
	return file, nil
}

// Decode liest Header, KV-Sektion und Tensor-Infos ab der aktuellen Position
func Decode(rs io.ReadSeeker) (*File, error) {
	f := &File{
		KV:     orderedmap.New[string, KeyValue](),
		reader: &countingReader{r: bufio.NewReader(rs)},
	}

	var err error
	if f.Magic, err = read[uint32](f); err != nil {
		return nil, err
	}

	if f.Magic != Magic {
		return nil, fmt.Errorf("%w: %#x", ErrInvalidMagic, f.Magic)
	}

	if f.Version, err = read[uint32](f); err != nil {
		return nil, err
	}

	if f.Version < 2 || f.Version > 3 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, f.Version)
	}

	tensorCount, err := read[uint64](f)
	if err != nil {
		return nil, err
	}

	if f.KVCount, err = read[uint64](f); err != nil {
		return nil, err
	}

	for range f.KVCount {
		kv, err := f.readKeyValue()
		if err != nil {
			return nil, err
		}

		f.KV.Set(kv.Key, kv)
	}

	f.Tensors = make([]TensorInfo, 0, min(tensorCount, 1<<16))
	for range tensorCount {
		ti, err := f.readTensor()
		if err != nil {
			return nil, err
		}

		f.Tensors = append(f.Tensors, ti)
	}

	alignment := DefaultAlignment
	if kv, ok := f.KV.Get(KeyGeneralAlignment); ok {
		if a := kv.Uint(); a > 0 {
			alignment = a
		}
	}

	f.DataOffset = int64(Pad(uint64(f.reader.n), alignment))
	f.scratch = nil
	return f, nil
}

// Alignment gibt general.alignment oder DefaultAlignment zurueck
func (f *File) Alignment() uint64 {
	if kv, ok := f.KV.Get(KeyGeneralAlignment); ok && kv.Uint() > 0 {
		return kv.Uint()
	}

	return DefaultAlignment
}

// KeyValues gibt die KV-Eintraege in Datei-Reihenfolge zurueck
func (f *File) KeyValues() []KeyValue {
	kvs := make([]KeyValue, 0, f.KV.Len())
	for pair := f.KV.Oldest(); pair != nil; pair = pair.Next() {
		kvs = append(kvs, pair.Value)
	}
	return kvs
}

// KeyValue gibt einen Eintrag zurueck, bei fehlendem Schluessel den Nullwert
func (f *File) KeyValue(key string) KeyValue {
	kv, _ := f.KV.Get(key)
	return kv
}

// TensorInfo sucht einen Tensor nach Namen
func (f *File) TensorInfo(name string) (TensorInfo, bool) {
	for _, ti := range f.Tensors {
		if ti.Name == name {
			return ti, true
		}
	}

	return TensorInfo{}, false
}

// TensorData gibt einen Reader auf nbytes Daten eines Tensors zurueck
func (f *File) TensorData(ra io.ReaderAt, ti TensorInfo, nbytes int64) *io.SectionReader {
	return io.NewSectionReader(ra, f.DataOffset+int64(ti.Offset), nbytes)
}

// TensorReader gibt einen Reader auf die Daten eines Tensors der mit Open
// geoeffneten Datei zurueck
func (f *File) TensorReader(name string) (TensorInfo, io.Reader, error) {
	if f.file == nil {
		return TensorInfo{}, nil, errors.New("gguf: file was not opened with Open")
	}

	ti, ok := f.TensorInfo(name)
	if !ok {
		return TensorInfo{}, nil, fmt.Errorf("tensor %q not found", name)
	}

	return ti, f.TensorData(f.file, ti, int64(ti.NumBytes())), nil
}

// Close schliesst die mit Open geoeffnete Datei
func (f *File) Close() error {
	if f.file == nil {
		return nil
	}

	err := f.file.Close()
	f.file = nil
	return err
}

// countingReader zaehlt gelesene Bytes fuer den Daten-Offset
type countingReader struct {
	r *bufio.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
