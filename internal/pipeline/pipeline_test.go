package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"docs_organiser/internal/classify"
	"docs_organiser/internal/extractor"
	"docs_organiser/internal/journal"
	"docs_organiser/internal/llm"
)

type fakeProvider struct {
	name      string
	vision    bool
	propose   func(ctx context.Context, req llm.Request) (string, error)
	proposals int
}

func (f *fakeProvider) ProposeFilename(ctx context.Context, req llm.Request) (string, bool, error) {
	f.proposals++
	name, err := f.propose(ctx, req)
	return name, false, err
}
func (f *fakeProvider) ValidateCredentials(ctx context.Context) bool { return true }
func (f *fakeProvider) Name() string                                { return f.name }
func (f *fakeProvider) SupportsVision() bool                         { return f.vision }

func newTestCoordinator(t *testing.T, provider llm.Provider) (*Coordinator, string, string, string) {
	t.Helper()
	inputDir := t.TempDir()
	destDir := t.TempDir()
	quarantineDir := t.TempDir()

	w, err := journal.NewWriter(filepath.Join(destDir, ".progress"))
	if err != nil {
		t.Fatalf("failed to create journal writer: %v", err)
	}

	retrier := classify.NewRetrier(3, nil)
	retrier.Sleep = func(ctx context.Context, d time.Duration) error { return nil }

	return &Coordinator{
		InputDir:      inputDir,
		DestDir:       destDir,
		QuarantineDir: quarantineDir,
		OCRLanguage:   "eng",
		Model:         "test-model",
		Provider:      provider,
		Retrier:       retrier,
		Journal:       w,
	}, inputDir, destDir, quarantineDir
}

func TestProcessQuarantinesUnsupportedExtension(t *testing.T) {
	c, inputDir, destDir, quarantineDir := newTestCoordinator(t, &fakeProvider{name: "fake"})

	src := filepath.Join(inputDir, "notes.docx")
	if err := os.WriteFile(src, []byte("some content"), 0o644); err != nil {
		t.Fatal(err)
	}

	outcome := c.Process(context.Background(), src)
	if !outcome.Quarantined {
		t.Fatalf("expected quarantine outcome, got %+v", outcome)
	}
	if outcome.Err != nil {
		t.Fatalf("unexpected error: %v", outcome.Err)
	}

	if _, err := os.Stat(filepath.Join(quarantineDir, "notes.docx")); err != nil {
		t.Errorf("expected quarantined file, got error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(quarantineDir, "notes.docx.reason.txt")); err != nil {
		t.Errorf("expected quarantine reason file, got error: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Errorf("expected source to be moved out of input dir")
	}

	entries, err := journal.Load(filepath.Join(destDir, ".progress"), inputDir)
	if err != nil {
		t.Fatalf("failed to load journal: %v", err)
	}
	if _, ok := entries["notes.docx"]; !ok {
		t.Errorf("expected journal to record notes.docx")
	}
}

func TestProposeReturnsProviderResultAndCaches(t *testing.T) {
	provider := &fakeProvider{
		name: "fake",
		propose: func(ctx context.Context, req llm.Request) (string, error) {
			return "quarterly_tax_filing", nil
		},
	}
	c, _, _, _ := newTestCoordinator(t, provider)

	cacheDir := filepath.Join(t.TempDir(), "cache")
	cache, err := llm.OpenCache(cacheDir)
	if err != nil {
		t.Fatalf("failed to open cache: %v", err)
	}
	defer cache.Close()
	c.Cache = cache

	content := extractor.Content{Text: "an invoice from acme corp dated march 2024"}

	name, err := c.propose(context.Background(), "invoice.pdf", content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "quarterly_tax_filing" {
		t.Errorf("unexpected name: %q", name)
	}
	if provider.proposals != 1 {
		t.Fatalf("expected 1 provider call, got %d", provider.proposals)
	}

	// Second call with identical content should hit the cache, not the
	// provider.
	name2, err := c.propose(context.Background(), "invoice.pdf", content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name2 != name {
		t.Errorf("expected cached name to match, got %q", name2)
	}
	if provider.proposals != 1 {
		t.Errorf("expected cache hit to skip a second provider call, got %d calls", provider.proposals)
	}
}

func TestProposePropagatesPermanentProviderError(t *testing.T) {
	wantErr := errors.New("not a valid request")
	provider := &fakeProvider{
		name: "fake",
		propose: func(ctx context.Context, req llm.Request) (string, error) {
			return "", wantErr
		},
	}
	c, _, _, _ := newTestCoordinator(t, provider)

	_, err := c.propose(context.Background(), "doc.pdf", extractor.Content{Text: "some text"})
	if err == nil {
		t.Fatal("expected an error")
	}
	if provider.proposals != 1 {
		t.Errorf("expected exactly 1 attempt for a non-recoverable error, got %d", provider.proposals)
	}
}

func TestFallbackNameForProposalErrorNetwork(t *testing.T) {
	name, authAbort := fallbackNameForProposalError(errors.New("dial tcp: connection timed out"))
	if !strings.HasPrefix(name, "network_error_") {
		t.Errorf("expected network_error_ prefix, got %q", name)
	}
	if authAbort {
		t.Error("did not expect authAbort for a network error")
	}
}

func TestFallbackNameForProposalErrorPermanent(t *testing.T) {
	name, authAbort := fallbackNameForProposalError(errors.New("something entirely unexpected"))
	if !strings.HasPrefix(name, "untitled_document_") {
		t.Errorf("expected untitled_document_ prefix, got %q", name)
	}
	if authAbort {
		t.Error("did not expect authAbort for a generic permanent error")
	}
}

func TestFallbackNameForProposalErrorAuthAbort(t *testing.T) {
	authErr := &llm.Error{Kind: llm.KindAuth, Provider: "openai", Err: errors.New("invalid api key")}
	_, authAbort := fallbackNameForProposalError(authErr)
	if !authAbort {
		t.Error("expected authAbort to be true for an Auth-kind provider error")
	}
}

func TestPlaceResolvesConflictsAndJournals(t *testing.T) {
	c, inputDir, destDir, _ := newTestCoordinator(t, &fakeProvider{name: "fake"})

	srcA := filepath.Join(inputDir, "a.pdf")
	srcB := filepath.Join(inputDir, "b.pdf")
	os.WriteFile(srcA, []byte("content a"), 0o644)
	os.WriteFile(srcB, []byte("content b"), 0o644)

	outA := c.place(context.Background(), srcA, "a.pdf", "Report", ".pdf")
	if outA.FinalName != "Report.pdf" {
		t.Errorf("expected Report.pdf, got %q", outA.FinalName)
	}

	outB := c.place(context.Background(), srcB, "b.pdf", "Report", ".pdf")
	if outB.FinalName != "Report_1.pdf" {
		t.Errorf("expected Report_1.pdf for the colliding name, got %q", outB.FinalName)
	}

	if _, err := os.Stat(filepath.Join(destDir, "Report.pdf")); err != nil {
		t.Errorf("expected Report.pdf in destination: %v", err)
	}
	if _, err := os.Stat(filepath.Join(destDir, "Report_1.pdf")); err != nil {
		t.Errorf("expected Report_1.pdf in destination: %v", err)
	}

	entries, err := journal.Load(filepath.Join(destDir, ".progress"), inputDir)
	if err != nil {
		t.Fatalf("failed to load journal: %v", err)
	}
	for _, name := range []string{"a.pdf", "b.pdf"} {
		if _, ok := entries[name]; !ok {
			t.Errorf("expected journal to record %s", name)
		}
	}
}

func TestQuarantineWritesReasonFileWithClassifiedKind(t *testing.T) {
	c, inputDir, _, quarantineDir := newTestCoordinator(t, &fakeProvider{name: "fake"})

	src := filepath.Join(inputDir, "secret.pdf")
	os.WriteFile(src, []byte("encrypted content"), 0o644)

	outcome := c.quarantine(context.Background(), src, "secret.pdf", errors.New("not a valid PDF file"))
	if !outcome.Quarantined {
		t.Fatalf("expected quarantine outcome, got %+v", outcome)
	}

	reason, err := os.ReadFile(filepath.Join(quarantineDir, "secret.pdf.reason.txt"))
	if err != nil {
		t.Fatalf("failed to read reason file: %v", err)
	}
	if !strings.Contains(string(reason), "unsupported_format") {
		t.Errorf("expected reason file to record the classified kind, got %q", string(reason))
	}
}
