// Package batch implements the Batch Driver (spec.md §4.8): it enumerates
// the input directory, reconciles against the progress journal, and feeds
// the remaining work set to a bounded pool of File Pipeline Coordinators,
// replacing the teacher's hand-rolled channel+WaitGroup scan loop with
// sourcegraph/conc's structured-concurrency pool.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sourcegraph/conc/pool"

	"docs_organiser/internal/fileops"
	"docs_organiser/internal/journal"
	"docs_organiser/internal/pipeline"
	"docs_organiser/internal/stats"
)

// supportedExtensions is spec.md §6's input file set.
var supportedExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tiff": true,
	".tif":  true,
	".bmp":  true,
	".gif":  true,
}

// EventKind names one of the progress events spec.md §4.8 requires the
// coordinator to emit to an external observer.
type EventKind string

const (
	EventStarted       EventKind = "started"
	EventStatusChanged EventKind = "status_changed"
	EventSucceeded     EventKind = "succeeded"
	EventSkipped       EventKind = "skipped"
	EventFailed        EventKind = "failed"
)

// Event is one progress notification for a single source file.
type Event struct {
	Kind      EventKind
	Name      string
	Status    pipeline.Status
	FinalName string
	Reason    string
	Err       error
}

// Observer receives progress events. Notify is called synchronously from
// worker goroutines and must not block (spec.md §4.8 "drop-safe").
type Observer interface {
	Notify(Event)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Notify(e Event) { f(e) }

// Config configures one Driver run; it mirrors the subset of spec.md §6's
// configuration fields the batch driver itself consumes.
type Config struct {
	InputDir      string
	DestDir       string
	QuarantineDir string
	JournalPath   string
	ResetProgress bool
	WorkerCount   int
}

// Driver is the Batch Driver (C8).
type Driver struct {
	Config      Config
	Coordinator *pipeline.Coordinator
	Stats       *stats.Session
	Observer    Observer
}

// Result summarizes one run's outcome for the CLI to map to an exit code
// (spec.md §6: 0 success, 1 failure, 130 interrupted).
type Result struct {
	Interrupted bool
	AuthAborted bool
	Stats       stats.Snapshot
}

// errAuthAbort signals that a worker's coordinator hit an Auth-class
// provider error, which per spec.md §7 stops the whole session rather
// than just the one file.
var errAuthAbort = errors.New("session aborted: invalid provider credentials")

// Run enumerates the input directory, reconciles it against the journal,
// and processes the resulting work set with Config.WorkerCount concurrent
// coordinators. It returns once every file has reached a terminal outcome,
// the context is cancelled (SIGINT), or an Auth-class error aborts the run.
func (d *Driver) Run(ctx context.Context) (Result, error) {
	if d.Config.ResetProgress {
		if err := journal.Reset(d.Config.JournalPath); err != nil {
			return Result{}, fmt.Errorf("failed to reset journal: %w", err)
		}
	}

	if err := fileops.CreateDir(d.Config.DestDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("failed to prepare destination directory: %w", err)
	}
	if err := fileops.CreateDir(d.Config.QuarantineDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("failed to prepare quarantine directory: %w", err)
	}

	workSet, err := d.enumerateWorkSet()
	if err != nil {
		return Result{}, err
	}

	if d.Stats != nil {
		for range workSet {
			d.Stats.IncTotal()
		}
	}

	d.Coordinator.OnStatusChange = func(name string, status pipeline.Status) {
		d.notify(Event{Kind: EventStatusChanged, Name: name, Status: status})
	}

	workers := d.Config.WorkerCount
	if workers <= 0 {
		workers = 1
	}

	p := pool.New().WithMaxGoroutines(workers).WithErrors().WithContext(ctx).WithCancelOnError()

	for _, name := range workSet {
		name := name
		p.Go(func(ctx context.Context) error {
			return d.processOne(ctx, name)
		})
	}

	runErr := p.Wait()

	result := Result{
		Interrupted: ctx.Err() != nil,
		AuthAborted: errors.Is(runErr, errAuthAbort),
	}
	if d.Stats != nil {
		result.Stats = d.Stats.Snapshot()
	}
	return result, nil
}

// processOne runs one file through the coordinator and translates its
// outcome into a progress event and a statistics update.
func (d *Driver) processOne(ctx context.Context, name string) error {
	if ctx.Err() != nil {
		d.notify(Event{Kind: EventSkipped, Name: name, Reason: "session cancelled"})
		return nil
	}

	d.notify(Event{Kind: EventStarted, Name: name})

	src := filepath.Join(d.Config.InputDir, name)
	outcome := d.Coordinator.Process(ctx, src)

	switch {
	case outcome.Err != nil:
		if d.Stats != nil {
			d.Stats.IncFailed()
		}
		d.notify(Event{Kind: EventFailed, Name: name, Err: outcome.Err})
	case outcome.Quarantined:
		if d.Stats != nil {
			d.Stats.IncFailed()
		}
		d.notify(Event{Kind: EventSucceeded, Name: name, FinalName: outcome.FinalName, Reason: "quarantined"})
	default:
		if d.Stats != nil {
			d.Stats.IncSucceeded()
		}
		d.notify(Event{Kind: EventSucceeded, Name: name, FinalName: outcome.FinalName})
	}

	if outcome.AuthAbort {
		return errAuthAbort
	}
	return nil
}

// enumerateWorkSet implements spec.md §4.8's entry sequence: enumerate,
// skip dotfiles/AppleDouble/non-regular/unsupported entries, load and
// reconcile the journal, then subtract.
func (d *Driver) enumerateWorkSet() ([]string, error) {
	done, err := journal.Load(d.Config.JournalPath, d.Config.InputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load journal: %w", err)
	}

	entries, err := os.ReadDir(d.Config.InputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate input directory: %w", err)
	}

	var workSet []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "._") {
			continue
		}

		info, err := e.Info()
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		if !supportedExtensions[strings.ToLower(filepath.Ext(name))] {
			continue
		}

		if _, seen := done[name]; seen {
			continue
		}

		workSet = append(workSet, name)
	}

	return workSet, nil
}

func (d *Driver) notify(e Event) {
	if d.Observer != nil {
		d.Observer.Notify(e)
	}
}
