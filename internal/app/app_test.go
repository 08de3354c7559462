package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/five82/cityguide/internal/config"
)

func TestRun_FailsFastOnMissingCredentials(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CITYGUIDE_API_URL", "")
	t.Setenv("CITYGUIDE_AUTH_TOKEN", "")

	err := Run(context.Background(), Options{ConfigPath: filepath.Join(t.TempDir(), "missing.toml")})
	if !errors.Is(err, config.ErrMissingAPIURL) {
		t.Fatalf("Run error = %v, want %v", err, config.ErrMissingAPIURL)
	}
}

func TestRun_FailsOnUnparseableConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("api_url = ["), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := Run(context.Background(), Options{ConfigPath: path}); err == nil {
		t.Fatalf("Run returned nil error for bad config")
	}
}
