package watcher

import (
	"os"
	"time"
)

// StabilitySampleDelay is the gap between the two size samples taken for
// the stability gate (spec §4.4 step 4).
const StabilitySampleDelay = 100 * time.Millisecond

// MaxStabilityRetries bounds how many additional sample pairs are taken
// before an unstable file is dropped (spec §4.4 step 4: "up to a small
// bounded number of retries").
const MaxStabilityRetries = 5

// IsReadable verifies the permission gate (spec §4.4 step 3) by attempting
// to open the file for reading.
func IsReadable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

// IsStable runs the two-sample size check, retrying up to
// MaxStabilityRetries times with a StabilitySampleDelay gap between each
// pair of samples, and reports whether the file's size was observed
// unchanged across one such pair (spec §4.4 step 4, §8 property 6). A file
// that disappears mid-check (os.Stat failure) is reported unstable — the
// subsequent Delete event, if any, will clean up the live set.
func IsStable(path string) bool {
	for attempt := 0; attempt <= MaxStabilityRetries; attempt++ {
		first, ok := sizeOf(path)
		if !ok {
			return false
		}
		time.Sleep(StabilitySampleDelay)
		second, ok := sizeOf(path)
		if !ok {
			return false
		}
		if first == second {
			return true
		}
	}
	return false
}

func sizeOf(path string) (int64, bool) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, false
	}
	return fi.Size(), true
}
