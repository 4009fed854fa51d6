package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"docs_organiser/internal/batch"
	"docs_organiser/internal/classify"
	"docs_organiser/internal/config"
	"docs_organiser/internal/errlog"
	"docs_organiser/internal/journal"
	"docs_organiser/internal/llm"
	"docs_organiser/internal/pipeline"
	"docs_organiser/internal/stats"
)

func main() {
	os.Exit(run())
}

// run wires config → provider construction → batch run → summary print,
// returning the exit code spec.md §6 defines: 0 success, 1 failure, 130
// interrupted.
func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[!] configuration error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("=== Document Organiser ===")
	fmt.Printf("Input:       %s\n", cfg.InputDir)
	fmt.Printf("Destination: %s\n", cfg.DestDir)
	fmt.Printf("Quarantine:  %s\n", cfg.QuarantineDir)
	fmt.Printf("Provider:    %s\n", cfg.Provider)
	fmt.Printf("Model:       %s\n", cfg.Model)
	fmt.Printf("Workers:     %d\n", cfg.WorkerCount)
	fmt.Println("---------------------------")

	provider, err := llm.New(cfg.Provider, cfg.APIKey, cfg.Model, cfg.BaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[!] failed to construct provider: %v\n", err)
		return 1
	}
	if !provider.ValidateCredentials(ctx) {
		fmt.Fprintf(os.Stderr, "[!] provider %s rejected its credentials\n", cfg.Provider)
		return 1
	}

	tokenizer, err := llm.NewTokenizer(cfg.Model)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[!] failed to build tokenizer: %v\n", err)
		return 1
	}
	budget := llm.NewBudget(tokenizer, llm.DefaultContentBudgetTokens)

	cacheDir := filepath.Join(cfg.DestDir, ".cache")
	cache, err := llm.OpenCache(cacheDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[!] failed to open response cache: %v\n", err)
		return 1
	}
	defer cache.Close()

	journalPath := filepath.Join(cfg.DestDir, ".progress")
	journalWriter, err := journal.NewWriter(journalPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[!] failed to open progress journal: %v\n", err)
		return 1
	}

	errorLog, err := errlog.New(filepath.Join(cfg.DestDir, ".errors.log"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "[!] failed to open error log: %v\n", err)
		return 1
	}

	session := stats.NewSession()
	retrier := classify.NewRetrier(cfg.MaxAttempts, session)

	coordinator := &pipeline.Coordinator{
		InputDir:      cfg.InputDir,
		DestDir:       cfg.DestDir,
		QuarantineDir: cfg.QuarantineDir,
		OCRLanguage:   cfg.OCRLanguage,
		Model:         cfg.Model,
		Provider:      provider,
		Budget:        budget,
		Cache:         cache,
		Retrier:       retrier,
		Journal:       journalWriter,
		ErrorLog:      errorLog,
	}

	driver := &batch.Driver{
		Config: batch.Config{
			InputDir:      cfg.InputDir,
			DestDir:       cfg.DestDir,
			QuarantineDir: cfg.QuarantineDir,
			JournalPath:   journalPath,
			ResetProgress: cfg.ResetProgress,
			WorkerCount:   cfg.WorkerCount,
		},
		Coordinator: coordinator,
		Stats:       session,
		Observer:    batch.ObserverFunc(printEvent),
	}

	fmt.Println("[*] Starting processing run...")
	start := time.Now()

	result, err := driver.Run(ctx)
	duration := time.Since(start)

	fmt.Println("---------------------------")
	printSummary(result.Stats, duration)

	if err != nil {
		fmt.Fprintf(os.Stderr, "[!] run failed: %v\n", err)
		return 1
	}
	if result.AuthAborted {
		fmt.Fprintln(os.Stderr, "[!] session aborted: invalid provider credentials")
		return 1
	}
	if result.Interrupted || errors.Is(ctx.Err(), context.Canceled) {
		fmt.Println("[!] run interrupted")
		return 130
	}
	return 0
}

// printEvent renders one batch.Event, grounded on the teacher's direct
// fmt.Printf progress reporting.
func printEvent(e batch.Event) {
	switch e.Kind {
	case batch.EventStarted:
		fmt.Printf("[*] %s: started\n", e.Name)
	case batch.EventFailed:
		fmt.Printf("[!] %s: failed: %v\n", e.Name, e.Err)
	case batch.EventSucceeded:
		if e.Reason == "quarantined" {
			fmt.Printf("[~] %s: quarantined as %s\n", e.Name, e.FinalName)
		} else {
			fmt.Printf("[+] %s: placed as %s\n", e.Name, e.FinalName)
		}
	case batch.EventSkipped:
		fmt.Printf("[-] %s: skipped (%s)\n", e.Name, e.Reason)
	}
}

func printSummary(snap stats.Snapshot, duration time.Duration) {
	fmt.Printf("Total:     %d\n", snap.Total)
	fmt.Printf("Succeeded: %d\n", snap.Succeeded)
	fmt.Printf("Failed:    %d\n", snap.Failed)
	fmt.Printf("Retries:   %d recoverable events, %d successful, %d files affected\n",
		snap.RecoverableRetryEvents, snap.SuccessfulRetries, snap.UniqueFilesWithRecoverableIssues)
	fmt.Printf("Elapsed:   %v\n", duration)
}
