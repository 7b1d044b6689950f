// config_utils.go - Getter-Konstruktoren und Export der Konfiguration
//
// Dieses Modul enthaelt:
// - lookup: Liest und parst eine Variable mit Default
// - BoolWithDefault, String, Uint64: Getter als Closures
// - EnvVar, AsMap, Values: Dokumentierte Variablen mit aktuellen Werten
package envconfig

import (
	"fmt"
	"log/slog"
	"strconv"
)

// lookup liest key und parst den Wert. Leere Werte ergeben defaultValue,
// ungueltige zusaetzlich eine Warnung.
func lookup[T any](key string, parse func(string) (T, error), defaultValue T) T {
	s := Var(key)
	if s == "" {
		return defaultValue
	}

	v, err := parse(s)
	if err != nil {
		slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue, "error", err)
		return defaultValue
	}

	return v
}

// BoolWithDefault gibt eine Funktion zurueck, die einen Bool mit Default-Wert liest.
// Gesetzte Werte die kein Bool sind gelten als true.
func BoolWithDefault(key string) func(defaultValue bool) bool {
	return func(defaultValue bool) bool {
		return lookup(key, func(s string) (bool, error) {
			b, err := strconv.ParseBool(s)
			return b || err != nil, nil
		}, defaultValue)
	}
}

// String gibt eine Funktion zurueck, die einen String liest
func String(key string) func() string {
	return func() string {
		return Var(key)
	}
}

// Uint64 gibt eine Funktion zurueck, die einen uint64 mit Default-Wert liest
func Uint64(key string, defaultValue uint64) func() uint64 {
	return func() uint64 {
		return lookup(key, func(s string) (uint64, error) {
			return strconv.ParseUint(s, 10, 64)
		}, defaultValue)
	}
}

// EnvVar repraesentiert eine Environment-Variable mit Metadaten
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// documented - Dokumentierte Variablen mit Getter
var documented = []struct {
	name        string
	description string
	value       func() any
}{
	{"GGUF_DEBUG", "Show additional debug information (e.g. GGUF_DEBUG=1)", func() any { return LogLevel() }},
	{"GGUF_ALIGNMENT", "Tensor data alignment in bytes (default: 32)", func() any { return Alignment() }},
	{"GGUF_USE_TEMP_FILE", "Stage tensor data in a temporary file (default: true)", func() any { return UseTempFile(true) }},
	{"GGUF_SPOOL_MAX_MEMORY", "Bytes kept in memory before staged tensor data spills to disk (default: 268435456)", func() any { return SpoolMaxMemory() }},
	{"GGUF_TMPDIR", "Directory for spilled tensor data", func() any { return TempDir() }},
	{"HF_HUB_CACHE", "HuggingFace hub cache used to resolve model ids", func() any { return HFHubCache() }},
	{"HF_HOME", "HuggingFace home, the hub cache is HF_HOME/hub", func() any { return HFHome() }},
}

// AsMap gibt alle Konfigurationen als Map zurueck
// Enthaelt Namen, aktuelle Werte und Beschreibungen
func AsMap() map[string]EnvVar {
	m := make(map[string]EnvVar, len(documented))
	for _, d := range documented {
		m[d.name] = EnvVar{Name: d.name, Value: d.value(), Description: d.description}
	}
	return m
}

// Values gibt alle Konfigurationswerte als String-Map zurueck
func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}
