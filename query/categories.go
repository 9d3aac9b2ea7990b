package query

import "strings"

// Category is a named, fixed set of extensions used to narrow search
// results. Spec §4.5 calls the table "a fixed part of the specification"
// without enumerating it (see SPEC_FULL.md "Supplemented features" §3);
// this is the concrete table.
var categories = map[string]map[string]struct{}{
	"documents": set("pdf", "doc", "docx", "txt", "md", "rtf", "odt", "pages", "tex", "epub"),
	"images":    set("jpg", "jpeg", "png", "gif", "bmp", "svg", "webp", "tiff", "heic", "raw"),
	"videos":    set("mp4", "mkv", "avi", "mov", "wmv", "flv", "webm", "m4v", "mpg", "mpeg"),
	"code": set(
		"go", "py", "js", "ts", "jsx", "tsx", "java", "c", "cpp", "h", "hpp",
		"rs", "rb", "php", "cs", "swift", "kt", "sh", "html", "css", "json", "yaml", "yml",
	),
	"archives": set("zip", "tar", "gz", "tar.gz", "rar", "7z", "bz2", "xz", "tgz"),
}

func set(exts ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		m[e] = struct{}{}
	}
	return m
}

// CategoryExtensions returns the extension set for a named category and
// whether the name is recognised. Matching is case-insensitive.
func CategoryExtensions(name string) (map[string]struct{}, bool) {
	exts, ok := categories[strings.ToLower(name)]
	return exts, ok
}

// extensionOf returns the dot-suffix extension token of a path's basename —
// everything after the first dot, lowercased — matching the same rule
// index.Pool uses to populate ExtensionMap (spec §4.1).
func extensionOf(basenameLower string) string {
	i := strings.IndexByte(basenameLower, '.')
	if i < 0 || i+1 >= len(basenameLower) {
		return ""
	}
	return basenameLower[i+1:]
}

// matchesCategory reports whether path's extension belongs to category.
func matchesCategory(pathLowerBase string, exts map[string]struct{}) bool {
	ext := extensionOf(pathLowerBase)
	if ext == "" {
		return false
	}
	if _, ok := exts[ext]; ok {
		return true
	}
	// A compound extension's shortest suffix (e.g. "gz" from "tar.gz") is
	// also checked, since ExtensionMap registers both.
	if i := strings.LastIndexByte(ext, '.'); i >= 0 {
		if _, ok := exts[ext[i+1:]]; ok {
			return true
		}
	}
	return false
}
