package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"quill/internal/queue"
)

func writeRetryFile(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("content"), 0o644); err != nil {
		t.Fatal(err)
	}
	stamp := time.Now().Add(-age)
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestScanner(t *testing.T, dir string) (*Scanner, *queue.JobQueue, *queue.InFlightSet) {
	t.Helper()
	jobs := queue.NewJobQueue()
	inFlight := queue.NewInFlightSet(0)
	return New(dir, time.Minute, time.Second, jobs, inFlight, nil), jobs, inFlight
}

func TestScanEnqueuesStableTextFiles(t *testing.T) {
	dir := t.TempDir()
	s, jobs, _ := newTestScanner(t, dir)

	want := writeRetryFile(t, dir, "stale.txt", 10*time.Second)
	writeRetryFile(t, dir, "note.md", 10*time.Second)
	writeRetryFile(t, dir, "recording.m4a", 10*time.Second)

	if got := s.Scan(); got != 2 {
		t.Fatalf("expected 2 jobs, got %d", got)
	}
	job, err := jobs.Get(context.Background())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if job.Kind != queue.KindText {
		t.Fatalf("expected text job, got %v", job.Kind)
	}
	if job.Path != want && filepath.Base(job.Path) != "note.md" {
		t.Fatalf("unexpected job path %q", job.Path)
	}
}

func TestScanSkipsFreshFiles(t *testing.T) {
	dir := t.TempDir()
	s, _, _ := newTestScanner(t, dir)

	writeRetryFile(t, dir, "being-written.txt", 0)
	if got := s.Scan(); got != 0 {
		t.Fatalf("fresh file enqueued %d jobs", got)
	}

	// Once the file ages past the stability threshold it becomes eligible.
	s.now = func() time.Time { return time.Now().Add(5 * time.Second) }
	if got := s.Scan(); got != 1 {
		t.Fatalf("aged file should enqueue, got %d", got)
	}
}

func TestScanSkipsInFlightFiles(t *testing.T) {
	dir := t.TempDir()
	s, _, inFlight := newTestScanner(t, dir)

	path := writeRetryFile(t, dir, "busy.txt", 10*time.Second)
	inFlight.TryAcquire(path)

	if got := s.Scan(); got != 0 {
		t.Fatalf("in-flight file enqueued %d jobs", got)
	}
}

func TestRescanOfEmptyDirectoryIsNoOp(t *testing.T) {
	dir := t.TempDir()
	s, _, _ := newTestScanner(t, dir)

	path := writeRetryFile(t, dir, "resolved.txt", 10*time.Second)
	if got := s.Scan(); got != 1 {
		t.Fatalf("expected 1 job, got %d", got)
	}
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if got := s.Scan(); got != 0 {
		t.Fatalf("rescan after resolution enqueued %d jobs", got)
	}
}

func TestScanMissingDirectory(t *testing.T) {
	s, _, _ := newTestScanner(t, filepath.Join(t.TempDir(), "gone"))
	if got := s.Scan(); got != 0 {
		t.Fatalf("missing directory enqueued %d jobs", got)
	}
}
