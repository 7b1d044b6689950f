// cache.go - Lokaler HuggingFace Hub Cache
// Loest Modell-IDs (org/name[@revision]) zu Snapshot-Verzeichnissen auf.
package huggingface

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/qnn-genai/ggufkit/envconfig"
)

// Cache-Konstanten
const (
	DefaultCacheSubdir = "huggingface/hub"
	CacheRefDir        = "refs"
	CacheSnapshotDir   = "snapshots"
	CacheModelPrefix   = "models--"

	DefaultRevision = "main"
)

// ErrModelNotInCache wird zurueckgegeben wenn kein Snapshot existiert
var ErrModelNotInCache = errors.New("model not in huggingface cache")

// CacheDir gibt das Hub-Cache-Verzeichnis zurueck
// Reihenfolge: HF_HUB_CACHE, HF_HOME/hub, XDG_CACHE_HOME bzw. ~/.cache
func CacheDir() string {
	if dir := envconfig.HFHubCache(); dir != "" {
		return dir
	}
	if home := envconfig.HFHome(); home != "" {
		return filepath.Join(home, "hub")
	}
	return defaultCacheDir()
}

func defaultCacheDir() string {
	var base string
	switch {
	case runtime.GOOS == "windows" && os.Getenv("USERPROFILE") != "":
		base = filepath.Join(os.Getenv("USERPROFILE"), ".cache")
	case runtime.GOOS != "windows" && os.Getenv("XDG_CACHE_HOME") != "":
		base = os.Getenv("XDG_CACHE_HOME")
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "huggingface_cache", "hub")
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, DefaultCacheSubdir)
}

// Snapshot gibt das Snapshot-Verzeichnis von modelID in revision zurueck.
// revision ist ein Branch oder Tag unter refs/ oder direkt ein Commit-Hash.
func Snapshot(modelID, revision string) (string, error) {
	repo := filepath.Join(CacheDir(), modelIDToCacheDir(modelID))

	commit := revision
	if bts, err := os.ReadFile(filepath.Join(repo, CacheRefDir, revision)); err == nil {
		commit = strings.TrimSpace(string(bts))
	}

	dir := filepath.Join(repo, CacheSnapshotDir, commit)
	if entries, err := os.ReadDir(dir); err != nil || len(entries) == 0 {
		return "", fmt.Errorf("%s@%s: %w", modelID, revision, ErrModelNotInCache)
	}

	return dir, nil
}

// ResolveModelDir gibt arg zurueck wenn es ein Verzeichnis ist. Sonst wird
// arg als Modell-ID mit optionaler @revision im Cache gesucht.
func ResolveModelDir(arg string) (string, error) {
	if fi, err := os.Stat(arg); err == nil {
		if !fi.IsDir() {
			return "", fmt.Errorf("%s: not a directory", arg)
		}
		return arg, nil
	}

	modelID, revision, _ := strings.Cut(arg, "@")
	if revision == "" {
		revision = DefaultRevision
	}

	if org, name, ok := strings.Cut(modelID, "/"); !ok || org == "" || name == "" || strings.Contains(name, "/") {
		return "", fmt.Errorf("%s: no such directory", arg)
	}

	return Snapshot(modelID, revision)
}

func modelIDToCacheDir(modelID string) string {
	return CacheModelPrefix + strings.ReplaceAll(modelID, "/", "--")
}
