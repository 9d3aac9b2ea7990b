package engine

import (
	"path/filepath"
	"strings"

	"flashfind/index"
)

// SanitizeShellPath validates a path before it is handed to a host shell
// action (open folder, copy path) — spec §6 "Filesystem-facing contract":
// "invoked only after path sanitisation: absolute path only; reject any
// path containing &, |, ;, or a UNC prefix \\." Returns index.ErrPathRejected
// and performs no side effect when the path fails validation (spec §8
// property 8).
func SanitizeShellPath(path string) error {
	if !filepath.IsAbs(path) {
		return index.ErrPathRejected
	}
	if strings.HasPrefix(path, `\\`) {
		return index.ErrPathRejected
	}
	if strings.ContainsAny(path, "&|;") {
		return index.ErrPathRejected
	}
	return nil
}
