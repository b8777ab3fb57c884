package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/CollinHeist/TitleCardMaker-sub003/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.SourceDir = filepath.Join(base, "source")
	cfg.Paths.CardDir = filepath.Join(base, "cards")
	cfg.Paths.FontDir = filepath.Join(base, "fonts")
	cfg.Paths.LogoDir = filepath.Join(base, "logos")
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.LibraryFile = filepath.Join(base, "library.toml")
	cfg.Renderer.TimeoutSeconds = 5
	cfg.Renderer.MaxRetries = 0
	cfg.Renderer.RetryBackoffMS = 1
	cfg.Workflow.Concurrency = 2

	for _, dir := range []string{
		cfg.Paths.SourceDir, cfg.Paths.CardDir, cfg.Paths.FontDir,
		cfg.Paths.LogoDir, cfg.Paths.DataDir, cfg.Paths.LogDir,
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithMaxRetries sets the renderer retry bound on the test config.
func WithMaxRetries(retries int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Renderer.MaxRetries = retries
	}
}

// WriteSourceImage creates a stub source image for an episode and returns
// its path.
func WriteSourceImage(t testing.TB, cfg *config.Config, seriesID, key string) string {
	t.Helper()
	dir := filepath.Join(cfg.Paths.SourceDir, seriesID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir source dir: %v", err)
	}
	path := filepath.Join(dir, key+".jpg")
	if err := os.WriteFile(path, []byte("stub image"), 0o644); err != nil {
		t.Fatalf("write source image: %v", err)
	}
	return path
}
