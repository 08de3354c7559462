// Package prefs stores the UI choices a user makes while browsing (theme,
// name display, log pane) so the next session starts the same way.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Prefs is the persisted UI state.
type Prefs struct {
	Theme           string `toml:"theme"`
	ShowNativeNames bool   `toml:"show_native_names"`
	ShowLogs        bool   `toml:"show_logs"`
}

const (
	defaultPath  = "~/.config/cityguide/prefs.toml"
	defaultTheme = "Nightfox"
)

// DefaultPath is used when no path is given.
func DefaultPath() string {
	return defaultPath
}

// Defaults returns the preferences of a first run.
func Defaults() Prefs {
	return Prefs{Theme: defaultTheme}
}

// Load reads the preferences at path. A missing file is not an error. A file
// that cannot be read or parsed yields Defaults together with the error, so
// callers can log it and carry on.
func Load(path string) (Prefs, error) {
	resolved, err := resolve(path)
	if err != nil {
		return Defaults(), err
	}

	data, err := os.ReadFile(resolved)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return Defaults(), nil
	case err != nil:
		return Defaults(), fmt.Errorf("read prefs: %w", err)
	}

	p := Defaults()
	if err := toml.Unmarshal(data, &p); err != nil {
		return Defaults(), fmt.Errorf("parse prefs %s: %w", resolved, err)
	}
	p.Theme = strings.TrimSpace(p.Theme)
	if p.Theme == "" {
		p.Theme = defaultTheme
	}
	return p, nil
}

// Save replaces the preferences at path. The file is written next to its
// destination and renamed, so a crash never leaves half a file behind.
func Save(path string, p Prefs) error {
	resolved, err := resolve(path)
	if err != nil {
		return err
	}
	data, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".prefs-*.toml")
	if err != nil {
		return fmt.Errorf("create temp prefs: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close prefs: %w", err)
	}
	if err := os.Rename(tmp.Name(), resolved); err != nil {
		return fmt.Errorf("replace prefs: %w", err)
	}
	return nil
}

// resolve expands a leading ~ and makes path absolute.
func resolve(path string) (string, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		p = defaultPath
	}
	if rest, ok := strings.CutPrefix(p, "~"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		p = filepath.Join(home, rest)
	}
	return filepath.Abs(p)
}
