package prefs

import (
	"os"
	"path/filepath"
	"testing"
)

func writePrefs(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		content string // empty means no file
		want    Prefs
		wantErr bool
	}{
		{name: "missing file", want: Defaults()},
		{
			name:    "all fields",
			content: "theme = \"Slate\"\nshow_native_names = true\nshow_logs = true\n",
			want:    Prefs{Theme: "Slate", ShowNativeNames: true, ShowLogs: true},
		},
		{
			name:    "blank theme keeps other fields",
			content: "theme = \"  \"\nshow_logs = true\n",
			want:    Prefs{Theme: defaultTheme, ShowLogs: true},
		},
		{
			name:    "malformed",
			content: "not valid toml {{{\n",
			want:    Defaults(),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "prefs.toml")
			if tt.content != "" {
				writePrefs(t, path, tt.content)
			}

			got, err := Load(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("Load = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLoad_DefaultPathUnderHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writePrefs(t, filepath.Join(home, ".config", "cityguide", "prefs.toml"), "theme = \"Kanagawa\"\n")

	got, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got.Theme != "Kanagawa" {
		t.Fatalf("Theme = %q, want Kanagawa", got.Theme)
	}
}

func TestSave_ReplacesFileWithoutLeftovers(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	path := filepath.Join(dir, "prefs.toml")

	first := Prefs{Theme: "Slate", ShowNativeNames: true}
	if err := Save(path, first); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	second := Prefs{Theme: "Kanagawa", ShowLogs: true}
	if err := Save(path, second); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got != second {
		t.Fatalf("Load = %+v, want %+v", got, second)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("dir has %d entries, want only prefs.toml", len(entries))
	}
}
