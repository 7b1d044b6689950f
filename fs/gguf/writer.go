// Package gguf - Container Writer
//
// Dieses Modul enthaelt den Writer fuer GGUF-Container:
// - Create: Legt die Ausgabedatei an und waehlt die Staging-Strategie
// - WriteHeader: Magic, Version, Tensor- und KV-Anzahl
// - WriteKVData: KV-Sektion
// - WriteTensorInfo: Tensor-Info Sektion
// - WriteTensors: Tensor-Info Sektion, Alignment und gestagte Tensor-Daten
// - WriteTensorData: Schreibt einen Tensor direkt mit Alignment
// - Close: Gibt Spool-Datei und Ausgabedatei frei
//
// Die Schreib-Reihenfolge ist Header, KV, Tensoren. Metadaten und
// Tensoren muessen vor WriteHeader hinzugefuegt sein.
package gguf

import (
	"bufio"
	"bytes"
	"cmp"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

var (
	// ErrWriteOrder wird zurueckgegeben wenn die Schreib-Reihenfolge verletzt wird
	ErrWriteOrder = errors.New("gguf write out of order")

	// ErrArchitectureNotSet wird zurueckgegeben wenn ein {arch}-Schluessel ohne Architektur gesetzt wird
	ErrArchitectureNotSet = errors.New("architecture not set")
)

// Options konfiguriert einen Writer
type Options struct {
	// Alignment der Tensor-Daten, 0 bedeutet DefaultAlignment
	Alignment uint64
	// Architecture wird in {arch}-Schluessel eingesetzt
	Architecture string
	// UseTempFile staged Tensor-Daten in einer Spool-Datei statt im Speicher
	UseTempFile bool
	// SpoolMaxMemory ist die Speichergrenze der Spool-Datei, 0 bedeutet DefaultSpoolMaxMemory
	SpoolMaxMemory int64
	// TempDir ist das Verzeichnis der Spool-Datei, leer bedeutet os.TempDir
	TempDir string
}

type writeState int

const (
	stateAccumulating writeState = iota
	stateHeader
	stateKV
	stateTensorInfo
	stateTensors
	stateClosed
)

func (s writeState) String() string {
	switch s {
	case stateAccumulating:
		return "accumulating"
	case stateHeader:
		return "header"
	case stateKV:
		return "kv data"
	case stateTensorInfo:
		return "tensor info"
	case stateTensors:
		return "tensors"
	default:
		return "closed"
	}
}

// Writer schreibt einen GGUF-Container in eine Datei
type Writer struct {
	path string
	f    *os.File
	out  *positionWriter

	arch      string
	alignment uint64

	kv      bytes.Buffer
	kvCount uint64

	ti      bytes.Buffer
	tiCount uint64
	offset  uint64

	staging tensorStaging
	state   writeState
	err     error
}

// Create legt die Datei path an (oder kuerzt sie) und gibt einen Writer zurueck
func Create(path string, opts Options) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := &Writer{
		path:      path,
		f:         f,
		out:       &positionWriter{w: bufio.NewWriter(f)},
		arch:      opts.Architecture,
		alignment: cmp.Or(opts.Alignment, DefaultAlignment),
	}

	if opts.UseTempFile {
		w.staging = &spoolStaging{
			maxMemory: cmp.Or(opts.SpoolMaxMemory, DefaultSpoolMaxMemory),
			dir:       opts.TempDir,
		}
	} else {
		w.staging = &memoryStaging{}
	}

	return w, nil
}

// Path gibt den Pfad der Ausgabedatei zurueck
func (w *Writer) Path() string {
	return w.path
}

// Alignment gibt das aktuelle Daten-Alignment zurueck
func (w *Writer) Alignment() uint64 {
	return w.alignment
}

// SetArchitecture setzt die Architektur fuer {arch}-Schluessel
func (w *Writer) SetArchitecture(arch string) {
	w.arch = arch
}

// Architecture gibt die gesetzte Architektur zurueck
func (w *Writer) Architecture() string {
	return w.arch
}

// WriteHeader schreibt Magic, Version, Tensor-Anzahl und KV-Anzahl
func (w *Writer) WriteHeader() error {
	if err := w.advance(stateAccumulating, stateHeader); err != nil {
		return err
	}

	for _, v := range []any{Magic, Version, w.tiCount, w.kvCount} {
		if err := binary.Write(w.out, binary.LittleEndian, v); err != nil {
			return err
		}
	}

	return w.Flush()
}

// WriteKVData schreibt die KV-Sektion
func (w *Writer) WriteKVData() error {
	if err := w.advance(stateHeader, stateKV); err != nil {
		return err
	}

	if _, err := w.out.Write(w.kv.Bytes()); err != nil {
		return err
	}

	return w.Flush()
}

// WriteTensorInfo schreibt nur die Tensor-Info Sektion. Danach koennen
// Tensoren mit WriteTensorData direkt geschrieben werden.
func (w *Writer) WriteTensorInfo() error {
	if err := w.advance(stateKV, stateTensorInfo); err != nil {
		return err
	}

	if _, err := w.out.Write(w.ti.Bytes()); err != nil {
		return err
	}

	return w.Flush()
}

// WriteTensors schreibt die Tensor-Info Sektion, fuellt bis zum Alignment
// auf und schreibt alle mit AddTensor gestagten Tensor-Daten.
func (w *Writer) WriteTensors() error {
	if err := w.WriteTensorInfo(); err != nil {
		return err
	}

	w.state = stateTensors
	if err := w.writePadding(); err != nil {
		return err
	}

	if err := w.staging.flush(w.out); err != nil {
		return err
	}

	return w.Flush()
}

// WriteTensorData schreibt einen Tensor sofort: Alignment an der aktuellen
// Position, die Bytes und das Auffuellen der Tensor-Laenge.
func (w *Writer) WriteTensorData(a *Array) error {
	if w.err != nil {
		return w.err
	}

	if w.state != stateTensorInfo && w.state != stateTensors {
		return fmt.Errorf("%w: tensor data in state %s", ErrWriteOrder, w.state)
	}

	if err := w.writePadding(); err != nil {
		return err
	}

	if _, err := a.WriteTo(w.out); err != nil {
		return err
	}

	return writeZeros(w.out, Pad(a.NumBytes(), w.alignment)-a.NumBytes())
}

// AddTensor fuegt einen Tensor-Info Eintrag hinzu und staged die Daten.
// rawShape ersetzt die Shape des Puffers wenn nicht nil.
func (w *Writer) AddTensor(name string, a *Array, rawShape []uint64, rawType ...TensorType) error {
	shape := a.Shape
	if rawShape != nil {
		shape = rawShape
	}

	if err := w.AddTensorInfo(name, shape, a.DType, a.NumBytes(), rawType...); err != nil {
		return err
	}

	return w.staging.stage(a, Pad(a.NumBytes(), w.alignment)-a.NumBytes())
}

// Flush schreibt gepufferte Ausgabe in die Datei
func (w *Writer) Flush() error {
	return w.out.w.Flush()
}

// Close gibt die Spool-Datei frei und schliesst die Ausgabedatei
func (w *Writer) Close() error {
	if w.state == stateClosed {
		return nil
	}
	w.state = stateClosed

	return errors.Join(w.staging.release(), w.Flush(), w.f.Close())
}

// Err gibt einen gemerkten Fehler aus einem Skalar-Setter zurueck
func (w *Writer) Err() error {
	return w.err
}

// advance prueft den Zustand und wechselt in den naechsten
func (w *Writer) advance(from, to writeState) error {
	if w.err != nil {
		return w.err
	}

	if w.state != from {
		return fmt.Errorf("%w: %s after %s", ErrWriteOrder, to, w.state)
	}

	w.state = to
	return nil
}

// accumulating prueft ob noch Metadaten und Tensoren hinzugefuegt werden duerfen
func (w *Writer) accumulating() error {
	if w.state != stateAccumulating {
		err := fmt.Errorf("%w: add after %s", ErrWriteOrder, w.state)
		w.setErr(err)
		return err
	}

	return nil
}

func (w *Writer) setErr(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *Writer) writePadding() error {
	pos := uint64(w.out.n)
	return writeZeros(w.out, Pad(pos, w.alignment)-pos)
}

// positionWriter zaehlt die geschriebenen Bytes fuer das Alignment
type positionWriter struct {
	w *bufio.Writer
	n int64
}

func (p *positionWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.n += int64(n)
	return n, err
}
