package config

import (
	"os"
	"testing"
)

func TestParseBoolString(t *testing.T) {
	truthy := []string{"1", "t", "true", "TRUE", "yes", "on"}
	for _, s := range truthy {
		if b, ok := parseBoolString(s); !ok || !b {
			t.Errorf("parseBoolString(%q) = (%v,%v), want (true,true)", s, b, ok)
		}
	}
	falsy := []string{"0", "f", "false", "no", "off"}
	for _, s := range falsy {
		if b, ok := parseBoolString(s); !ok || b {
			t.Errorf("parseBoolString(%q) = (%v,%v), want (false,true)", s, b, ok)
		}
	}
	if _, ok := parseBoolString("maybe"); ok {
		t.Errorf("parseBoolString(maybe) should not parse")
	}
}

func TestSplitNonEmpty(t *testing.T) {
	got := splitNonEmpty("/a: :/b:", ":")
	want := []string{"/a", "/b"}
	if len(got) != len(want) {
		t.Fatalf("splitNonEmpty = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("splitNonEmpty = %v, want %v", got, want)
		}
	}
}

func TestLoadFileConfigMissingFileYieldsZeroValue(t *testing.T) {
	fc := loadFileConfig("/nonexistent/path/config.json")
	if fc.ShowHiddenFiles != nil || len(fc.WatchedDirectories) != 0 {
		t.Fatalf("expected zero-value fileConfig for missing file, got %+v", fc)
	}
}

func TestLoadFileConfigMalformedYieldsZeroValue(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.json"
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	fc := loadFileConfig(path)
	if fc.ShowHiddenFiles != nil || len(fc.WatchedDirectories) != 0 {
		t.Fatalf("expected zero-value fileConfig for malformed file, got %+v", fc)
	}
}

func TestLoadFileConfigParsesRecognisedKeys(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.json"
	body := `{
		"watched_directories": ["/tmp/a", "/tmp/b"],
		"auto_save_interval": 60,
		"max_index_size": 500,
		"custom_exclusions": ["vendor"],
		"show_hidden_files": true,
		"theme": "dark"
	}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	fc := loadFileConfig(path)
	if len(fc.WatchedDirectories) != 2 {
		t.Fatalf("WatchedDirectories = %v", fc.WatchedDirectories)
	}
	if fc.AutoSaveInterval == nil || *fc.AutoSaveInterval != 60 {
		t.Fatalf("AutoSaveInterval = %v, want 60", fc.AutoSaveInterval)
	}
	if fc.MaxIndexSize == nil || *fc.MaxIndexSize != 500 {
		t.Fatalf("MaxIndexSize = %v, want 500", fc.MaxIndexSize)
	}
	if fc.ShowHiddenFiles == nil || !*fc.ShowHiddenFiles {
		t.Fatalf("ShowHiddenFiles = %v, want true", fc.ShowHiddenFiles)
	}
	if fc.Theme == nil || *fc.Theme != "dark" {
		t.Fatalf("Theme = %v, want dark", fc.Theme)
	}
}
