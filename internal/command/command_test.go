package command

import (
	"reflect"
	"testing"

	"github.com/ctrlscan/scan-agent/internal/config"
	"github.com/ctrlscan/scan-agent/internal/controlplane"
)

func testConfig() *config.Config {
	return &config.Config{
		TargetFilesDir: "/data/targets",
		ScanResultsDir: "/data/results",
	}
}

func TestBuildMasscanFreshScan(t *testing.T) {
	job := controlplane.ScanJob{
		ScanCommand:        "-p80 --rate 1000",
		Targets:            "10.0.0.0/24",
		ResultFileBaseName: "job7",
	}
	cfg := testConfig()
	p := PathsFor(cfg, job)

	got := BuildMasscan(job, p, "scanagent/1.0")
	want := []string{
		"masscan", "-p80", "--rate", "1000",
		"-iL", "/data/targets/job7.targets",
		"-oJ", "/data/results/pending/job7.json",
		"--http-user-agent", "scanagent/1.0",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestBuildMasscanWithExcludedTargets(t *testing.T) {
	job := controlplane.ScanJob{
		ScanCommand:         "-p80",
		ResultFileBaseName:  "job7",
		ExcludedTargets:     "10.0.0.1",
	}
	cfg := testConfig()
	p := PathsFor(cfg, job)

	got := BuildMasscan(job, p, "ua")
	last := got[len(got)-2:]
	if last[0] != "--excludefile" || last[1] != "/data/targets/job7.excluded_targets" {
		t.Fatalf("expected trailing --excludefile pair, got %v", got)
	}
}

func TestBuildMasscanDeterministic(t *testing.T) {
	job := controlplane.ScanJob{
		ScanCommand:        "-p80",
		ResultFileBaseName: "job7",
	}
	cfg := testConfig()
	p := PathsFor(cfg, job)

	a := BuildMasscan(job, p, "ua")
	b := BuildMasscan(job, p, "ua")
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("expected deterministic argv, got %v vs %v", a, b)
	}
}

func TestResumeMasscan(t *testing.T) {
	got := ResumeMasscan()
	want := []string{"masscan", "--resume", "paused.conf"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestBuildNmapFreshScan(t *testing.T) {
	job := controlplane.ScanJob{
		ScanCommand:        "-sV -T4",
		ResultFileBaseName: "job9",
	}
	cfg := testConfig()
	p := PathsFor(cfg, job)

	got := BuildNmap(job, p, "scanagent/1.0")
	want := []string{
		"nmap", "-sV", "-T4",
		"-iL", "/data/targets/job9.targets",
		"-oA", "/data/results/pending/job9",
		"--script-args", "http.useragent='scanagent/1.0'",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestResumeNmap(t *testing.T) {
	got := ResumeNmap("/data/results/pending/job9.gnmap")
	want := []string{"nmap", "--resume", "/data/results/pending/job9.gnmap"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestJSONOutputFile(t *testing.T) {
	if got := JSONOutputFile("/data/results/pending", "job7"); got != "/data/results/pending/job7.json" {
		t.Fatalf("unexpected: %s", got)
	}
}
