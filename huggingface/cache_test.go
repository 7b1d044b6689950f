// cache_test.go - Unit Tests fuer den HuggingFace Cache
package huggingface

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// TestCacheDir testet die Prioritaet der Umgebungsvariablen
func TestCacheDir(t *testing.T) {
	tests := []struct {
		name       string
		hfHubCache string
		hfHome     string
		xdgCache   string
		want       string
	}{
		{"HF_HUB_CACHE hat Prioritaet", "/custom/cache", "/hf/home", "", "/custom/cache"},
		{"HF_HOME wird verwendet", "", "/hf/home", "", filepath.Join("/hf/home", "hub")},
		{"XDG_CACHE_HOME als Fallback", "", "", "/xdg", filepath.Join("/xdg", DefaultCacheSubdir)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HF_HUB_CACHE", tt.hfHubCache)
			t.Setenv("HF_HOME", tt.hfHome)
			t.Setenv("XDG_CACHE_HOME", tt.xdgCache)

			if tt.xdgCache != "" && os.PathSeparator != '/' {
				t.Skip("XDG_CACHE_HOME gilt nicht unter Windows")
			}

			if got := CacheDir(); got != tt.want {
				t.Errorf("CacheDir() = %q, erwartet %q", got, tt.want)
			}
		})
	}
}

// TestModelIDToCacheDir testet die Konvertierung von Model-ID zu Cache-Dir
func TestModelIDToCacheDir(t *testing.T) {
	cases := map[string]string{
		"Qwen/Qwen-7B-Chat":           "models--Qwen--Qwen-7B-Chat",
		"meta-llama/Llama-2-7b-hf":    "models--meta-llama--Llama-2-7b-hf",
		"TinyLlama/TinyLlama-1.1B-v1": "models--TinyLlama--TinyLlama-1.1B-v1",
	}

	for id, want := range cases {
		if got := modelIDToCacheDir(id); got != want {
			t.Errorf("modelIDToCacheDir(%q) = %q, erwartet %q", id, got, want)
		}
	}
}

// fakeCache legt einen Cache mit einem Snapshot fuer refs/main an
func fakeCache(t *testing.T) (cache, snapshot string) {
	t.Helper()

	cache = t.TempDir()
	t.Setenv("HF_HUB_CACHE", cache)

	repo := filepath.Join(cache, "models--org--tiny")
	snapshot = filepath.Join(repo, CacheSnapshotDir, "abc123")
	if err := os.MkdirAll(snapshot, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(snapshot, "config.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := os.MkdirAll(filepath.Join(repo, CacheRefDir), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(repo, CacheRefDir, "main"), []byte("abc123\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	return cache, snapshot
}

// TestResolveModelDir testet Verzeichnisse, Referenzen und Commit-Hashes
func TestResolveModelDir(t *testing.T) {
	_, snapshot := fakeCache(t)
	local := t.TempDir()

	file := filepath.Join(local, "model.safetensors")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		arg     string
		want    string
		wantErr error
	}{
		{"Lokales Verzeichnis", local, local, nil},
		{"Modell-ID", "org/tiny", snapshot, nil},
		{"Modell-ID mit Branch", "org/tiny@main", snapshot, nil},
		{"Modell-ID mit Commit", "org/tiny@abc123", snapshot, nil},
		{"Unbekannte Revision", "org/tiny@dev", "", ErrModelNotInCache},
		{"Unbekanntes Modell", "org/other", "", ErrModelNotInCache},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveModelDir(tt.arg)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ResolveModelDir(%q) Fehler = %v, erwartet %v", tt.arg, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ResolveModelDir(%q) = %q, erwartet %q", tt.arg, got, tt.want)
			}
		})
	}

	for _, arg := range []string{file, "no-such-dir", "a/b/c"} {
		if _, err := ResolveModelDir(arg); err == nil {
			t.Errorf("ResolveModelDir(%q): Fehler erwartet", arg)
		}
	}
}
