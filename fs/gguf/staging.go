// staging.go - Zwischenspeicher fuer Tensor-Daten bis WriteTensors
// Enthält: tensorStaging, memoryStaging (Warteschlange), spoolStaging (Spool-Datei)

package gguf

import (
	"bytes"
	"io"
	"log/slog"
	"os"
)

// DefaultSpoolMaxMemory ist die Speichergrenze der Spool-Datei bevor sie auf die Platte wechselt
const DefaultSpoolMaxMemory int64 = 256 << 20

// tensorStaging haelt Tensor-Bytes bis die Tensor-Info Sektion geschrieben ist
type tensorStaging interface {
	// stage nimmt einen Tensor und die Anzahl nachfolgender Null-Bytes auf
	stage(a *Array, pad uint64) error
	// flush schreibt alle aufgenommenen Tensoren in Reihenfolge
	flush(w io.Writer) error
	// release gibt Ressourcen frei, auch ohne vorheriges flush
	release() error
}

type stagedArray struct {
	array *Array
	pad   uint64
}

// memoryStaging haelt Referenzen auf die Puffer im Speicher
type memoryStaging struct {
	queued []stagedArray
}

func (s *memoryStaging) stage(a *Array, pad uint64) error {
	s.queued = append(s.queued, stagedArray{array: a, pad: pad})
	return nil
}

func (s *memoryStaging) flush(w io.Writer) error {
	for _, q := range s.queued {
		if _, err := q.array.WriteTo(w); err != nil {
			return err
		}

		if err := writeZeros(w, q.pad); err != nil {
			return err
		}
	}

	s.queued = nil
	return nil
}

func (s *memoryStaging) release() error {
	s.queued = nil
	return nil
}

// spoolStaging schreibt Tensor-Bytes sofort in eine Spool-Datei.
// Die Datei wird beim ersten Tensor angelegt.
type spoolStaging struct {
	maxMemory int64
	dir       string
	spool     *spooledFile
}

func (s *spoolStaging) stage(a *Array, pad uint64) error {
	if s.spool == nil {
		s.spool = &spooledFile{maxMemory: s.maxMemory, dir: s.dir}
	}

	if _, err := a.WriteTo(s.spool); err != nil {
		return err
	}

	return writeZeros(s.spool, pad)
}

func (s *spoolStaging) flush(w io.Writer) error {
	if s.spool == nil {
		return nil
	}

	if _, err := s.spool.WriteTo(w); err != nil {
		s.release() //nolint:errcheck
		return err
	}

	return s.release()
}

func (s *spoolStaging) release() error {
	if s.spool == nil {
		return nil
	}

	err := s.spool.Close()
	s.spool = nil
	return err
}

// spooledFile haelt Daten bis maxMemory im Speicher und wechselt danach in eine temporaere Datei
type spooledFile struct {
	buf       bytes.Buffer
	file      *os.File
	maxMemory int64
	dir       string
}

func (f *spooledFile) Write(p []byte) (int, error) {
	if f.file == nil && int64(f.buf.Len()+len(p)) > f.maxMemory {
		if err := f.rollover(); err != nil {
			return 0, err
		}
	}

	if f.file != nil {
		return f.file.Write(p)
	}

	return f.buf.Write(p)
}

func (f *spooledFile) rollover() error {
	file, err := os.CreateTemp(f.dir, "gguf-spool-*")
	if err != nil {
		return err
	}

	slog.Debug("spilling tensor data to disk", "path", file.Name(), "size", f.buf.Len())

	if _, err := f.buf.WriteTo(file); err != nil {
		file.Close()
		os.Remove(file.Name())
		return err
	}

	f.file = file
	return nil
}

// WriteTo kopiert den gesamten Inhalt ab Position 0
func (f *spooledFile) WriteTo(w io.Writer) (int64, error) {
	if f.file == nil {
		return bytes.NewReader(f.buf.Bytes()).WriteTo(w)
	}

	if _, err := f.file.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}

	return io.Copy(w, f.file)
}

// Close schliesst und entfernt eine eventuell angelegte Datei
func (f *spooledFile) Close() error {
	f.buf.Reset()
	if f.file == nil {
		return nil
	}

	name := f.file.Name()
	err := f.file.Close()
	f.file = nil
	if rerr := os.Remove(name); err == nil {
		err = rerr
	}

	return err
}

var zeros [4096]byte

// writeZeros schreibt n Null-Bytes
func writeZeros(w io.Writer, n uint64) error {
	for n > 0 {
		chunk := min(n, uint64(len(zeros)))
		if _, err := w.Write(zeros[:chunk]); err != nil {
			return err
		}
		n -= chunk
	}

	return nil
}
