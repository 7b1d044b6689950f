// config.go - Environment-Konfiguration fuer ggufkit
//
// Dieses Modul enthaelt:
// - LogLevel: Log-Level (GGUF_DEBUG)
// - Alignment: Daten-Alignment (GGUF_ALIGNMENT)
// - UseTempFile, SpoolMaxMemory, TempDir: Spool der Tensor-Daten
// - HFHubCache, HFHome: HuggingFace Hub Cache
// - Var: Liest eine Environment-Variable ohne Quotes
//
// Die Getter-Konstruktoren und der Export liegen in config_utils.go
package envconfig

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// LogLevel gibt das Log-Level zurueck
// Konfigurierbar via GGUF_DEBUG
// Werte: 0/false = INFO (Default), 1/true = DEBUG, 2 = TRACE
func LogLevel() slog.Level {
	return lookup("GGUF_DEBUG", parseLevel, slog.LevelInfo)
}

func parseLevel(s string) (slog.Level, error) {
	if b, err := strconv.ParseBool(s); err == nil {
		if b {
			return slog.LevelDebug, nil
		}
		return slog.LevelInfo, nil
	}

	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return slog.LevelInfo, err
	}

	return slog.Level(i * -4), nil
}

// Alignment gibt das Daten-Alignment zurueck
// Konfigurierbar via GGUF_ALIGNMENT, muss eine Zweierpotenz sein
// Default: 32
func Alignment() uint64 {
	return lookup("GGUF_ALIGNMENT", func(s string) (uint64, error) {
		n, err := strconv.ParseUint(s, 10, 64)
		if err == nil && (n == 0 || n&(n-1) != 0) {
			err = errors.New("not a power of two")
		}
		return n, err
	}, 32)
}

var (
	// UseTempFile legt Tensor-Daten vor dem Schreiben in einer Spool-Datei ab
	// Konfigurierbar via GGUF_USE_TEMP_FILE
	UseTempFile = BoolWithDefault("GGUF_USE_TEMP_FILE")

	// SpoolMaxMemory ist die Anzahl Bytes im Speicher bevor die Spool-Datei auf Platte geht
	// Konfigurierbar via GGUF_SPOOL_MAX_MEMORY
	SpoolMaxMemory = Uint64("GGUF_SPOOL_MAX_MEMORY", 256<<20)

	// TempDir ist das Verzeichnis fuer Spool-Dateien, leer bedeutet os.TempDir
	TempDir = String("GGUF_TMPDIR")

	// HFHubCache und HFHome bestimmen den HuggingFace Hub Cache
	HFHubCache = String("HF_HUB_CACHE")
	HFHome     = String("HF_HOME")
)

// Var gibt eine Environment-Variable zurueck
// Entfernt fuehrende/trailing Quotes und Leerzeichen
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}
