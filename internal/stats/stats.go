// Package stats tracks the Session Statistics spec.md §4.8/§5 describes:
// per-run counters mutated concurrently by workers, exposed as Prometheus
// counters (the teacher's go.mod already carries client_golang as a
// dependency) and summarized at the end of a run.
package stats

import (
	"sync"

	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
)

// Session tracks the counters spec.md's batch driver and retry classifier
// mutate during a run. All increments are safe for concurrent use by
// multiple workers.
type Session struct {
	registry *prometheus.Registry

	total                       prometheus.Counter
	succeeded                   prometheus.Counter
	failed                      prometheus.Counter
	warnings                    prometheus.Counter
	recoverableRetryEvents      prometheus.Counter
	successfulRetries           prometheus.Counter
	uniqueFilesWithIssuesMetric prometheus.Counter

	mu                    sync.Mutex
	filesWithIssuesSeen   map[string]bool
}

// NewSession creates a Session with a private registry, so multiple runs
// in the same process (e.g. tests) never collide on metric registration.
func NewSession() *Session {
	registry := prometheus.NewRegistry()

	s := &Session{
		registry: registry,
		total: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docsorg_files_total",
			Help: "Total files discovered for processing in this run.",
		}),
		succeeded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docsorg_files_succeeded_total",
			Help: "Files successfully placed in the destination directory.",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docsorg_files_failed_total",
			Help: "Files that ended up quarantined or otherwise failed.",
		}),
		warnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docsorg_warnings_total",
			Help: "Non-fatal warnings raised during the run.",
		}),
		recoverableRetryEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docsorg_recoverable_retry_events_total",
			Help: "Recoverable errors observed across all retry attempts.",
		}),
		successfulRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docsorg_successful_retries_total",
			Help: "Operations that succeeded only after at least one retry.",
		}),
		uniqueFilesWithIssuesMetric: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docsorg_unique_files_with_recoverable_issues_total",
			Help: "Distinct files that triggered at least one recoverable error.",
		}),
		filesWithIssuesSeen: make(map[string]bool),
	}

	registry.MustRegister(
		s.total, s.succeeded, s.failed, s.warnings,
		s.recoverableRetryEvents, s.successfulRetries, s.uniqueFilesWithIssuesMetric,
	)

	return s
}

// Registry exposes the private Prometheus registry, e.g. for an optional
// /metrics HTTP handler.
func (s *Session) Registry() *prometheus.Registry { return s.registry }

func (s *Session) IncTotal()     { s.total.Inc() }
func (s *Session) IncSucceeded() { s.succeeded.Inc() }
func (s *Session) IncFailed()    { s.failed.Inc() }
func (s *Session) IncWarning()   { s.warnings.Inc() }

// RecordRecoverableError increments the recoverable-retry-events counter,
// and the unique-files-with-issues counter the first time filename is
// seen in this run (spec.md §4.6).
func (s *Session) RecordRecoverableError(filename string) {
	s.recoverableRetryEvents.Inc()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.filesWithIssuesSeen[filename] {
		s.filesWithIssuesSeen[filename] = true
		s.uniqueFilesWithIssuesMetric.Inc()
	}
}

// RecordSuccessfulRetry increments the successful-retry counter, used
// when an operation succeeds on attempt > 1 (spec.md §4.6).
func (s *Session) RecordSuccessfulRetry() {
	s.successfulRetries.Inc()
}

// Snapshot is a point-in-time read of every counter, for the end-of-run
// summary.
type Snapshot struct {
	Total                        int
	Succeeded                    int
	Failed                       int
	Warnings                     int
	RecoverableRetryEvents       int
	SuccessfulRetries            int
	UniqueFilesWithRecoverableIssues int
}

// Snapshot reads the current value of every counter.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	uniqueFiles := len(s.filesWithIssuesSeen)
	s.mu.Unlock()

	return Snapshot{
		Total:                  int(readCounter(s.total)),
		Succeeded:              int(readCounter(s.succeeded)),
		Failed:                 int(readCounter(s.failed)),
		Warnings:               int(readCounter(s.warnings)),
		RecoverableRetryEvents: int(readCounter(s.recoverableRetryEvents)),
		SuccessfulRetries:      int(readCounter(s.successfulRetries)),
		UniqueFilesWithRecoverableIssues: uniqueFiles,
	}
}

func readCounter(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}
