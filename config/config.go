// Package config resolves FlashFind's configuration from, in precedence
// order, CLI flags, environment variables, config.json, then compiled-in
// defaults — the same chain the teacher's config package uses, extended
// with the config.json tier the spec's external interface mandates.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"flashfind/index"
)

// Config holds the complete resolved configuration for one FlashFind run.
type Config struct {
	// WatchedDirectories is the ordered list of absolute root directories
	// seeded into the Crawler and Watcher.
	WatchedDirectories []string
	// AutoSaveInterval is how often the Facade auto-persists. 0 disables it.
	AutoSaveInterval time.Duration
	// MaxIndexSize overrides index.MaxIndexSize. 0 means use the default.
	MaxIndexSize int
	// CustomExclusions is appended to watcher.DefaultExclusions.
	CustomExclusions []string
	// ShowHiddenFiles, when false, makes the Watcher/Crawler exclusion set
	// reject leading-dot paths (spec §6 config.json key "show_hidden_files").
	ShowHiddenFiles bool
	// Theme is opaque to the engine; forwarded to the UI layer untouched.
	Theme string
	// AutoCompactThreshold is the tombstone-to-pool-size ratio that triggers
	// an automatic Compact (see SPEC_FULL.md "Supplemented features").
	AutoCompactThreshold float64
	// DataDir is where index.bin and the mutation journal are stored.
	DataDir string
}

// fileConfig mirrors the recognised config.json keys (spec §6).
type fileConfig struct {
	WatchedDirectories []string `json:"watched_directories"`
	AutoSaveInterval   *int     `json:"auto_save_interval"`
	MaxIndexSize       *int     `json:"max_index_size"`
	CustomExclusions   []string `json:"custom_exclusions"`
	ShowHiddenFiles    *bool    `json:"show_hidden_files"`
	Theme              *string  `json:"theme"`
}

// dirList is a repeatable flag.Value, same idiom as the teacher's.
type dirList []string

func (d *dirList) String() string { return strings.Join(*d, ", ") }
func (d *dirList) Set(value string) error {
	*d = append(*d, value)
	return nil
}

// Load parses flags, environment variables and config.json, returning a
// validated Config. A missing or malformed config.json never fails Load —
// it falls back to defaults for whatever it could not resolve (spec §6:
// "Missing/malformed config → defaults; no fatal error").
func Load() (*Config, error) {
	var dirs dirList
	var excludeFlag dirList
	configPathFlag := flag.String("config", "", "path to config.json (env: FLASHFIND_CONFIG, default: ./config.json)")
	autoSaveFlag := flag.String("auto-save-interval", "", "seconds between persists, 0 disables (env: FLASHFIND_AUTO_SAVE_INTERVAL, default: 30)")
	maxSizeFlag := flag.String("max-index-size", "", "override the index entry cap (env: FLASHFIND_MAX_INDEX_SIZE)")
	showHiddenFlag := flag.String("show-hidden-files", "", "true or false (env: FLASHFIND_SHOW_HIDDEN_FILES, default: false)")
	themeFlag := flag.String("theme", "", "opaque UI theme name (env: FLASHFIND_THEME)")
	dataDirFlag := flag.String("data-dir", "", "directory for index.bin and the mutation journal (env: FLASHFIND_DATA_DIR, default: current working directory)")
	autoCompactFlag := flag.String("auto-compact-threshold", "", "tombstone ratio that triggers auto-compaction, 0 disables (env: FLASHFIND_AUTO_COMPACT_THRESHOLD, default: 0.3)")
	flag.Var(&dirs, "dir", "root directory to watch/crawl (repeatable; env: FLASHFIND_DIRS, colon-separated)")
	flag.Var(&excludeFlag, "exclude", "additional exclusion pattern (repeatable; env: FLASHFIND_EXCLUSIONS, colon-separated)")
	flag.Parse()

	fc := loadFileConfig(resolveConfigPath(*configPathFlag))
	cfg := &Config{}

	// --- watched directories: flags > env > config.json ---
	cfg.WatchedDirectories = []string(dirs)
	cfg.WatchedDirectories = append(cfg.WatchedDirectories, flag.Args()...)
	if len(cfg.WatchedDirectories) == 0 {
		if v := os.Getenv("FLASHFIND_DIRS"); v != "" {
			cfg.WatchedDirectories = splitNonEmpty(v, ":")
		}
	}
	if len(cfg.WatchedDirectories) == 0 {
		cfg.WatchedDirectories = fc.WatchedDirectories
	}
	for _, d := range cfg.WatchedDirectories {
		info, err := os.Stat(d)
		if err != nil {
			return nil, fmt.Errorf("watched directory %q: %w", d, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%q is not a directory", d)
		}
	}

	// --- auto save interval ---
	seconds, err := resolveIntOption(*autoSaveFlag, "FLASHFIND_AUTO_SAVE_INTERVAL", fc.AutoSaveInterval, 30)
	if err != nil {
		return nil, fmt.Errorf("invalid auto-save-interval: %w", err)
	}
	if seconds < 0 {
		return nil, fmt.Errorf("auto-save-interval must be >= 0, got %d", seconds)
	}
	cfg.AutoSaveInterval = time.Duration(seconds) * time.Second

	// --- max index size ---
	maxSize, err := resolveIntOption(*maxSizeFlag, "FLASHFIND_MAX_INDEX_SIZE", fc.MaxIndexSize, index.MaxIndexSize)
	if err != nil {
		return nil, fmt.Errorf("invalid max-index-size: %w", err)
	}
	cfg.MaxIndexSize = maxSize

	// --- exclusions: CLI/env additions plus config.json additions, all kept ---
	cfg.CustomExclusions = append(cfg.CustomExclusions, []string(excludeFlag)...)
	if v := os.Getenv("FLASHFIND_EXCLUSIONS"); v != "" {
		cfg.CustomExclusions = append(cfg.CustomExclusions, splitNonEmpty(v, ":")...)
	}
	cfg.CustomExclusions = append(cfg.CustomExclusions, fc.CustomExclusions...)

	// --- show hidden files ---
	showHidden := false
	if fc.ShowHiddenFiles != nil {
		showHidden = *fc.ShowHiddenFiles
	}
	// ShowHiddenFiles is consulted directly by the Watcher/Crawler exclusion
	// gates (leading-dot basename check); it is not expressed as a pattern
	// here since ExclusionSet's directory-name matching is exact, not glob.
	cfg.ShowHiddenFiles = parseBoolFlag(*showHiddenFlag, "FLASHFIND_SHOW_HIDDEN_FILES", showHidden)

	// --- theme ---
	fileTheme := ""
	if fc.Theme != nil {
		fileTheme = *fc.Theme
	}
	cfg.Theme = *themeFlag
	if cfg.Theme == "" {
		if v := os.Getenv("FLASHFIND_THEME"); v != "" {
			cfg.Theme = v
		} else {
			cfg.Theme = fileTheme
		}
	}

	// --- data dir ---
	cfg.DataDir = *dataDirFlag
	if cfg.DataDir == "" {
		if v := os.Getenv("FLASHFIND_DATA_DIR"); v != "" {
			cfg.DataDir = v
		} else {
			cwd, err := os.Getwd()
			if err != nil {
				return nil, fmt.Errorf("could not determine current working directory: %w", err)
			}
			cfg.DataDir = cwd
		}
	}

	// --- auto compact threshold ---
	threshold, err := resolveFloatOption(*autoCompactFlag, "FLASHFIND_AUTO_COMPACT_THRESHOLD", 0.3)
	if err != nil {
		return nil, fmt.Errorf("invalid auto-compact-threshold: %w", err)
	}
	cfg.AutoCompactThreshold = threshold

	return cfg, nil
}

// resolveConfigPath applies the --config/env/default chain for the
// config.json location itself.
func resolveConfigPath(flagVal string) string {
	if flagVal != "" {
		return flagVal
	}
	if v := os.Getenv("FLASHFIND_CONFIG"); v != "" {
		return v
	}
	return "config.json"
}

// loadFileConfig reads and parses path, returning a zero-value fileConfig
// (every field falls through to its default) on any error — a missing file
// is the common case, not a failure.
func loadFileConfig(path string) fileConfig {
	var fc fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return fc
	}
	if err := json.Unmarshal(data, &fc); err != nil {
		fmt.Fprintf(os.Stderr, "config: %s is malformed, ignoring: %v\n", path, err)
		return fileConfig{}
	}
	return fc
}

func resolveIntOption(flagVal, envKey string, fileVal *int, defaultVal int) (int, error) {
	if flagVal != "" {
		return strconv.Atoi(flagVal)
	}
	if v := os.Getenv(envKey); v != "" {
		return strconv.Atoi(v)
	}
	if fileVal != nil {
		return *fileVal, nil
	}
	return defaultVal, nil
}

func resolveFloatOption(flagVal, envKey string, defaultVal float64) (float64, error) {
	if flagVal != "" {
		return strconv.ParseFloat(flagVal, 64)
	}
	if v := os.Getenv(envKey); v != "" {
		return strconv.ParseFloat(v, 64)
	}
	return defaultVal, nil
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseBoolFlag resolves a boolean option from a CLI string flag value, with
// fallback to an environment variable and then a compile-time default.
// Accepted truthy strings: "1", "t", "true", "yes", "on".
// Accepted falsy strings:  "0", "f", "false", "no", "off".
// An empty string means "not set"; the next source in the chain is tried.
func parseBoolFlag(flagVal, envKey string, defaultVal bool) bool {
	if flagVal != "" {
		if b, ok := parseBoolString(flagVal); ok {
			return b
		}
	}
	if v := os.Getenv(envKey); v != "" {
		if b, ok := parseBoolString(v); ok {
			return b
		}
	}
	return defaultVal
}

// parseBoolString converts a human-readable boolean string to a bool.
func parseBoolString(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "t", "true", "yes", "on":
		return true, true
	case "0", "f", "false", "no", "off":
		return false, true
	}
	return false, false
}
