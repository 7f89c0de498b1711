package logger

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

var linePrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2} `)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestStreamsWriteTimestampedLines(t *testing.T) {
	dir := t.TempDir()
	streams, err := OpenStreams(dir)
	if err != nil {
		t.Fatalf("opening streams: %v", err)
	}
	defer streams.Close()

	streams.Success("stored %s for %s", "totals", "2025-08-28")
	streams.Failure("fetch %s failed: %s", "standard", "HTTP 500")

	success := readLines(t, filepath.Join(dir, "success.log"))
	if len(success) != 1 {
		t.Fatalf("expected 1 success line, got %v", success)
	}
	if !linePrefix.MatchString(success[0]) {
		t.Fatalf("success line missing timestamp prefix: %q", success[0])
	}
	if !strings.HasSuffix(success[0], "stored totals for 2025-08-28") {
		t.Fatalf("unexpected success line %q", success[0])
	}

	failure := readLines(t, filepath.Join(dir, "error.log"))
	if len(failure) != 1 || !strings.Contains(failure[0], "HTTP 500") {
		t.Fatalf("unexpected failure lines %v", failure)
	}
}

func TestStreamsAppendAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	first, err := OpenStreams(dir)
	if err != nil {
		t.Fatalf("opening streams: %v", err)
	}
	first.Success("run one")
	first.Close()

	second, err := OpenStreams(dir)
	if err != nil {
		t.Fatalf("reopening streams: %v", err)
	}
	second.Success("run two")
	second.Close()

	lines := readLines(t, filepath.Join(dir, "success.log"))
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines after reopen, got %v", lines)
	}
	if !strings.HasSuffix(lines[0], "run one") || !strings.HasSuffix(lines[1], "run two") {
		t.Fatalf("unexpected lines %v", lines)
	}
}

func TestStreamsNilReceiverFieldsAreSafe(t *testing.T) {
	var streams Streams
	streams.Success("no destination")
	streams.Failure("no destination")
	streams.Close()
}
