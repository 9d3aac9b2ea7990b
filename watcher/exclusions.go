package watcher

import (
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultExclusions is the baked-in exclusion set applied to every watched
// root (spec §4.4 step 1: "system directories, recycle bins, build artefact
// folders"), concrete names supplied because spec.md leaves the list
// unspecified (see SPEC_FULL.md "Supplemented features" §2). Extended at
// runtime by config's custom_exclusions.
func DefaultExclusions() []string {
	return []string{
		".git", ".svn", ".hg",
		"node_modules", "__pycache__", ".cache",
		"target", "dist", "build",
		"$RECYCLE.BIN", "System Volume Information",
		".Trash", ".Trashes", ".Trash-1000",
	}
}

// ExclusionSet matches a path against a set of directory-name components and
// path prefixes (spec §4.4 step 1: "matched against path prefixes and
// directory-name components"), plus an optional leading-dot (hidden file)
// rule for spec §6's show_hidden_files=false case.
type ExclusionSet struct {
	names      map[string]struct{}
	prefix     []string
	hideDotted bool
}

// NewExclusionSet builds a set from a list of bare directory names and/or
// absolute path prefixes. An entry is treated as a prefix if it contains a
// path separator, otherwise as a directory-name component. hideDotted, when
// true, additionally rejects any path with a leading-dot component
// (".bashrc", ".ssh", ...) — config.Config.ShowHiddenFiles wires this.
func NewExclusionSet(patterns []string, hideDotted bool) *ExclusionSet {
	es := &ExclusionSet{names: make(map[string]struct{}), hideDotted: hideDotted}
	for _, p := range patterns {
		if strings.ContainsRune(p, filepath.Separator) || strings.ContainsRune(p, '/') {
			es.prefix = append(es.prefix, filepath.Clean(p))
		} else {
			es.names[p] = struct{}{}
		}
	}
	return es
}

// Excluded reports whether path should be rejected before reaching the
// temp-file/permission/stability gates.
func (es *ExclusionSet) Excluded(path string) bool {
	for _, p := range es.prefix {
		if path == p || strings.HasPrefix(path, p+string(filepath.Separator)) {
			return true
		}
	}
	clean := filepath.Clean(path)
	for {
		base := filepath.Base(clean)
		if _, ok := es.names[base]; ok {
			return true
		}
		if es.hideDotted && isDotted(base) {
			return true
		}
		parent := filepath.Dir(clean)
		if parent == clean {
			break
		}
		clean = parent
	}
	return false
}

// isDotted reports whether base is a hidden-file/directory name (a leading
// dot, excluding the "." and ".." path components themselves).
func isDotted(base string) bool {
	return len(base) > 1 && base[0] == '.' && base != ".."
}

// tempPatterns are the basename globs rejected for Create/Modify only (spec
// §4.4 step 2); Delete for one of these is still honoured.
var tempPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^~\$.*`),     // Office lock files
	regexp.MustCompile(`.*\.tmp$`),
	regexp.MustCompile(`.*\.temp$`),
	regexp.MustCompile(`.*\.crdownload$`),
	regexp.MustCompile(`.*\.part$`),
}

// IsTempFile reports whether basename matches any of the temp-file patterns
// rejected by the Create/Modify gate.
func IsTempFile(basename string) bool {
	for _, re := range tempPatterns {
		if re.MatchString(basename) {
			return true
		}
	}
	return false
}
