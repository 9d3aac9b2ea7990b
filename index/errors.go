package index

import "errors"

// Sentinel errors returned by Pool operations. None of these ever cause a
// panic; callers compare with errors.Is and decide locally whether the
// condition is worth logging.
var (
	// ErrDuplicate is returned by Insert when the path is already live.
	ErrDuplicate = errors.New("index: path already present")

	// ErrNotPresent is returned by Remove when the path is not live.
	ErrNotPresent = errors.New("index: path not present")

	// ErrIndexFull is returned by Insert when the pool has reached
	// MaxIndexSize.
	ErrIndexFull = errors.New("index: index full")

	// ErrVersionMismatch is returned by persistence.Load when the on-disk
	// format version does not match the version this build understands.
	ErrVersionMismatch = errors.New("index: version mismatch")

	// ErrCorruption is returned by persistence.Load when the on-disk file
	// cannot be parsed as a valid index.
	ErrCorruption = errors.New("index: corrupt index file")

	// ErrPathRejected is returned by shell-action sanitisation (see
	// engine.SanitizeShellPath) when a path contains a disallowed
	// character or prefix.
	ErrPathRejected = errors.New("index: path rejected")
)
