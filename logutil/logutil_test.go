// logutil_test.go - Unit Tests fuer Logger und TRACE-Level
package logutil

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("shown", "key", "value")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("DEBUG-Meldung bei INFO-Level ausgegeben: %s", out)
	}

	for _, want := range []string{"level=INFO", "msg=shown", "key=value", "source=logutil_test.go:"} {
		if !strings.Contains(out, want) {
			t.Errorf("Ausgabe %q enthaelt nicht %q", out, want)
		}
	}
}

func TestTrace(t *testing.T) {
	var buf bytes.Buffer
	defer slog.SetDefault(slog.Default())

	slog.SetDefault(NewLogger(&buf, slog.LevelDebug))
	Trace("skipped")
	if buf.Len() != 0 {
		t.Fatalf("TRACE bei DEBUG-Level ausgegeben: %s", buf.String())
	}

	slog.SetDefault(NewLogger(&buf, LevelTrace))
	Trace("traced", "n", 1)

	out := buf.String()
	for _, want := range []string{"level=TRACE", "msg=traced", "n=1", "source=logutil_test.go:"} {
		if !strings.Contains(out, want) {
			t.Errorf("Ausgabe %q enthaelt nicht %q", out, want)
		}
	}
}
