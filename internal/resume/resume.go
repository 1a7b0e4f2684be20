// Package resume inspects on-disk checkpoint artifacts left by the scanner
// binaries to decide whether a dispatched job should resume a prior run or
// start fresh. Both checks are read-only and side-effect free, so they are
// safe to call from a worker goroutine with no locking: the stem uniquely
// identifies the job and concurrent jobs never share a stem.
package resume

import (
	"bufio"
	"os"
	"strings"
)

// PausedConfFile is the single, process-wide checkpoint slot masscan
// writes on pause. There is only ever one: a real limitation of the
// underlying scanner, not something this package virtualizes.
const PausedConfFile = "paused.conf"

// Masscan reports whether jsonOutputFile (the -oJ path this job would
// produce) matches the output-filename recorded in paused.conf. If
// paused.conf is absent, unreadable, or names a different path, the caller
// should build a fresh command instead.
func Masscan(jsonOutputFile string) bool {
	f, err := os.Open(PausedConfFile)
	if err != nil {
		return false
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "output-filename") {
			continue
		}
		_, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		return strings.TrimSpace(value) == jsonOutputFile
	}
	return false
}

// Nmap reports whether gnmapFile exists and is non-empty, meaning the
// service-scanner left a usable resume checkpoint from a prior pause.
func Nmap(gnmapFile string) bool {
	info, err := os.Stat(gnmapFile)
	if err != nil {
		return false
	}
	return info.Size() > 0
}
