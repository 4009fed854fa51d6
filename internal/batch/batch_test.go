package batch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"docs_organiser/internal/classify"
	"docs_organiser/internal/journal"
	"docs_organiser/internal/llm"
	"docs_organiser/internal/pipeline"
	"docs_organiser/internal/stats"
)

type fakeProvider struct{}

func (fakeProvider) ProposeFilename(ctx context.Context, req llm.Request) (string, bool, error) {
	return "a_proposed_name", false, nil
}
func (fakeProvider) ValidateCredentials(ctx context.Context) bool { return true }
func (fakeProvider) Name() string                                 { return "fake" }
func (fakeProvider) SupportsVision() bool                         { return false }

type collectingObserver struct {
	mu     sync.Mutex
	events []Event
}

func (o *collectingObserver) Notify(e Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
}

func (o *collectingObserver) kindCount(k EventKind) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, e := range o.events {
		if e.Kind == k {
			n++
		}
	}
	return n
}

func newTestDriver(t *testing.T, inputDir string) (*Driver, *collectingObserver, string, string) {
	t.Helper()
	destDir := t.TempDir()
	quarantineDir := t.TempDir()
	journalPath := filepath.Join(destDir, ".progress")

	w, err := journal.NewWriter(journalPath)
	if err != nil {
		t.Fatalf("failed to create journal writer: %v", err)
	}

	retrier := classify.NewRetrier(3, nil)
	retrier.Sleep = func(ctx context.Context, d time.Duration) error { return nil }

	coord := &pipeline.Coordinator{
		InputDir:      inputDir,
		DestDir:       destDir,
		QuarantineDir: quarantineDir,
		OCRLanguage:   "eng",
		Provider:      fakeProvider{},
		Retrier:       retrier,
		Journal:       w,
	}

	observer := &collectingObserver{}
	session := stats.NewSession()

	driver := &Driver{
		Config: Config{
			InputDir:      inputDir,
			DestDir:       destDir,
			QuarantineDir: quarantineDir,
			JournalPath:   journalPath,
			WorkerCount:   2,
		},
		Coordinator: coord,
		Stats:       session,
		Observer:    observer,
	}

	return driver, observer, destDir, quarantineDir
}

func TestEnumerateWorkSetSkipsHiddenAndUnsupported(t *testing.T) {
	inputDir := t.TempDir()
	for _, name := range []string{"report.pdf", ".hidden.pdf", "._AppleDouble.pdf", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(inputDir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(inputDir, "subdir.pdf"), 0o755); err != nil {
		t.Fatal(err)
	}

	d := &Driver{Config: Config{InputDir: inputDir, JournalPath: filepath.Join(t.TempDir(), ".progress")}}
	workSet, err := d.enumerateWorkSet()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(workSet) != 1 || workSet[0] != "report.pdf" {
		t.Errorf("expected only report.pdf in the work set, got %v", workSet)
	}
}

func TestEnumerateWorkSetSubtractsJournaledEntries(t *testing.T) {
	inputDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(inputDir, "new.pdf"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	journalPath := filepath.Join(t.TempDir(), ".progress")
	w, err := journal.NewWriter(journalPath)
	if err != nil {
		t.Fatal(err)
	}
	// "done.pdf" is recorded as already completed, and (as in the normal
	// case) no longer exists in inputDir, so Load's reconciliation keeps
	// it and enumeration naturally excludes it.
	if err := w.Record("done.pdf"); err != nil {
		t.Fatal(err)
	}

	d := &Driver{Config: Config{InputDir: inputDir, JournalPath: journalPath}}
	workSet, err := d.enumerateWorkSet()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(workSet) != 1 || workSet[0] != "new.pdf" {
		t.Errorf("expected only new.pdf in the work set, got %v", workSet)
	}
}

func TestRunQuarantinesUnsupportedFileAndRecordsStats(t *testing.T) {
	inputDir := t.TempDir()
	// A .png extension passes enumeration, but the bytes are not an image,
	// so extraction fails permanently and the file is quarantined.
	if err := os.WriteFile(filepath.Join(inputDir, "notes.png"), []byte("some content"), 0o644); err != nil {
		t.Fatal(err)
	}

	driver, observer, _, quarantineDir := newTestDriver(t, inputDir)

	result, err := driver.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Interrupted || result.AuthAborted {
		t.Errorf("unexpected result: %+v", result)
	}
	if result.Stats.Total != 1 || result.Stats.Failed != 1 || result.Stats.Succeeded != 0 {
		t.Errorf("unexpected stats snapshot: %+v", result.Stats)
	}

	if _, err := os.Stat(filepath.Join(quarantineDir, "notes.png")); err != nil {
		t.Errorf("expected notes.png in quarantine: %v", err)
	}

	if observer.kindCount(EventStarted) != 1 {
		t.Errorf("expected 1 Started event, got %d", observer.kindCount(EventStarted))
	}
	if observer.kindCount(EventSucceeded) != 1 {
		t.Errorf("expected 1 Succeeded event (quarantine counts as a terminal outcome), got %d", observer.kindCount(EventSucceeded))
	}
	if observer.kindCount(EventStatusChanged) == 0 {
		t.Errorf("expected at least one StatusChanged event")
	}
}

func TestRunProcessesMultipleFilesConcurrently(t *testing.T) {
	inputDir := t.TempDir()
	names := []string{"a.png", "b.png", "c.png"}
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(inputDir, name), []byte("content"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	driver, _, _, quarantineDir := newTestDriver(t, inputDir)

	result, err := driver.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Stats.Total != 3 || result.Stats.Failed != 3 {
		t.Errorf("unexpected stats snapshot: %+v", result.Stats)
	}

	for _, name := range names {
		if _, err := os.Stat(filepath.Join(quarantineDir, name)); err != nil {
			t.Errorf("expected %s in quarantine: %v", name, err)
		}
	}
}

func TestRunIsIdempotentOnReRun(t *testing.T) {
	inputDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(inputDir, "notes.png"), []byte("content"), 0o644); err != nil {
		t.Fatal(err)
	}

	driver, _, _, _ := newTestDriver(t, inputDir)
	if _, err := driver.Run(context.Background()); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	// The file has physically moved out of inputDir, so a second run over
	// the same (now-empty) directory must find nothing left to do. Session
	// counters accumulate, so the second run gets a fresh Session.
	driver.Stats = stats.NewSession()
	result, err := driver.Run(context.Background())
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if result.Stats.Total != 0 {
		t.Errorf("expected no work on the second run, got total=%d", result.Stats.Total)
	}
}
