// Package logutil - slog Logger mit TRACE-Level
//
// Dieses Modul enthaelt:
// - LevelTrace: Level unterhalb von DEBUG
// - NewLogger: Text-Handler mit kurzer Quell-Angabe
// - Trace: Loggt auf TRACE-Level ueber den Default-Logger
package logutil

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"time"
)

// LevelTrace liegt unterhalb von slog.LevelDebug (GGUF_DEBUG=2)
const LevelTrace slog.Level = -8

// NewLogger erzeugt einen Text-Logger fuer w. Quell-Angaben enthalten nur den Dateinamen.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.LevelKey:
				if l, ok := attr.Value.Any().(slog.Level); ok && l <= LevelTrace {
					attr.Value = slog.StringValue("TRACE")
				}
			case slog.SourceKey:
				if source, ok := attr.Value.Any().(*slog.Source); ok {
					source.File = filepath.Base(source.File)
				}
			}
			return attr
		},
	}))
}

// Trace loggt msg auf TRACE-Level
func Trace(msg string, args ...any) {
	logger := slog.Default()
	if !logger.Enabled(context.TODO(), LevelTrace) {
		return
	}

	// Quelle ist der Aufrufer von Trace
	var pcs [1]uintptr
	runtime.Callers(2, pcs[:])
	r := slog.NewRecord(time.Now(), LevelTrace, msg, pcs[0])
	r.Add(args...)
	_ = logger.Handler().Handle(context.TODO(), r)
}
