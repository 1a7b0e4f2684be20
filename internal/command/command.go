// Package command builds the argv vectors for the two supported scanner
// binaries. It is a pure function of its inputs: it reads no process state
// and touches no filesystem beyond the paths it is handed.
package command

import (
	"path/filepath"
	"unicode"

	"github.com/ctrlscan/scan-agent/internal/config"
	"github.com/ctrlscan/scan-agent/internal/controlplane"
)

const (
	PortScanner    = "masscan"
	ServiceScanner = "nmap"
)

// Paths is the set of filesystem paths a command needs, all derived from a
// job's stem and the agent's configured directories.
type Paths struct {
	TargetsFile  string
	ExcludedFile string // empty if the job has no excluded targets
	PendingDir   string
}

// PathsFor derives the standard input/output paths for job from cfg.
func PathsFor(cfg *config.Config, job controlplane.ScanJob) Paths {
	p := Paths{
		TargetsFile: filepath.Join(cfg.TargetFilesDir, job.ResultFileBaseName+".targets"),
		PendingDir:  cfg.PendingDir(),
	}
	if job.ExcludedTargets != "" {
		p.ExcludedFile = filepath.Join(cfg.TargetFilesDir, job.ResultFileBaseName+".excluded_targets")
	}
	return p
}

// JSONOutputFile is the masscan -oJ target for a given stem.
func JSONOutputFile(pendingDir, stem string) string {
	return filepath.Join(pendingDir, stem+".json")
}

// NmapOutputStem is the nmap -oA target for a given stem (nmap appends
// .nmap/.gnmap/.xml itself).
func NmapOutputStem(pendingDir, stem string) string {
	return filepath.Join(pendingDir, stem)
}

// GnmapFile is the resume-checkpoint path nmap writes alongside -oA output.
func GnmapFile(pendingDir, stem string) string {
	return filepath.Join(pendingDir, stem+".gnmap")
}

// BuildMasscan produces the argv for a fresh (non-resumed) port-scan.
func BuildMasscan(job controlplane.ScanJob, p Paths, userAgent string) []string {
	argv := []string{PortScanner}
	argv = append(argv, splitFlags(job.ScanCommand)...)
	argv = append(argv,
		"-iL", p.TargetsFile,
		"-oJ", JSONOutputFile(p.PendingDir, job.ResultFileBaseName),
		"--http-user-agent", userAgent,
	)
	if p.ExcludedFile != "" {
		argv = append(argv, "--excludefile", p.ExcludedFile)
	}
	return argv
}

// ResumeMasscan is the fixed argv used when the resume detector selects the
// single paused.conf checkpoint. scan_command flags are discarded; masscan
// restores them from the checkpoint itself.
func ResumeMasscan() []string {
	return []string{PortScanner, "--resume", "paused.conf"}
}

// BuildNmap produces the argv for a fresh (non-resumed) service-scan.
func BuildNmap(job controlplane.ScanJob, p Paths, userAgent string) []string {
	argv := []string{ServiceScanner}
	argv = append(argv, splitFlags(job.ScanCommand)...)
	argv = append(argv,
		"-iL", p.TargetsFile,
		"-oA", NmapOutputStem(p.PendingDir, job.ResultFileBaseName),
		"--script-args", "http.useragent="+quoteSingle(userAgent),
	)
	if p.ExcludedFile != "" {
		argv = append(argv, "--excludefile", p.ExcludedFile)
	}
	return argv
}

// ResumeNmap is the argv used when the resume detector finds a non-empty
// .gnmap checkpoint for this stem.
func ResumeNmap(gnmapFile string) []string {
	return []string{ServiceScanner, "--resume", gnmapFile}
}

// splitFlags tokenizes the free-form, trusted scan_command field on
// whitespace. It is not a shell parser: scan_command is documented as
// trusted, operator-supplied flags, never untrusted input.
func splitFlags(s string) []string {
	var out []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			out = append(out, string(cur))
			cur = cur[:0]
		}
	}
	for _, r := range s {
		if unicode.IsSpace(r) {
			flush()
			continue
		}
		cur = append(cur, r)
	}
	flush()
	return out
}

func quoteSingle(s string) string {
	return "'" + s + "'"
}
