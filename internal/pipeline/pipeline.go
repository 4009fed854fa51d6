// Package pipeline implements the File Pipeline Coordinator (spec.md §4.7):
// the per-file state machine that turns one source path into a terminal
// placement, composing the sanitizer, atomic mover, journal, content
// extractor, LLM provider adapter, and retry classifier. It replaces the
// teacher's monolithic processFile/discoverCategories pair with an explicit,
// dependency-injected Coordinator so C8 can drive many of them concurrently.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"docs_organiser/internal/classify"
	"docs_organiser/internal/errlog"
	"docs_organiser/internal/extractor"
	"docs_organiser/internal/fileops"
	"docs_organiser/internal/journal"
	"docs_organiser/internal/llm"
	"docs_organiser/internal/sanitize"
)

// Status names the per-file state machine steps from spec.md §4.7, used
// only to report progress to an external observer; the coordinator itself
// branches on outcomes, not on a stored state value.
type Status string

const (
	StatusDiscovered   Status = "discovered"
	StatusExtracting   Status = "extracting"
	StatusProposing    Status = "proposing"
	StatusPlacing      Status = "placing"
	StatusQuarantining Status = "quarantining"
	StatusDone         Status = "done"
)

// Coordinator carries every dependency needed to run one file through the
// state machine. Zero-value Budget/Cache/ErrorLog are all valid (nil means
// "skip that optional behavior").
type Coordinator struct {
	InputDir      string
	DestDir       string
	QuarantineDir string
	OCRLanguage   string
	Model         string

	Provider llm.Provider
	Budget   *llm.Budget
	Cache    *llm.Cache
	Retrier  *classify.Retrier
	Journal  *journal.Writer
	ErrorLog *errlog.Logger

	// OnStatusChange, if set, is invoked synchronously at each major state
	// transition for src's basename. It must not block.
	OnStatusChange func(basename string, status Status)
}

// Outcome is the terminal result of processing one file, per spec.md §4.7's
// "Done is reached only after C3 has recorded the basename" rule: Err is
// non-nil only in the one case that rule can't be satisfied — quarantine
// placement itself failed, so the source was left untouched and
// unjournaled for the next run to pick up.
type Outcome struct {
	OriginalName string
	FinalName    string // basename actually written (with extension)
	Quarantined  bool
	AuthAbort    bool // the LLM call failed with an Auth-class error
	Err          error
}

// Process carries src through Discovered → ... → Done.
func (c *Coordinator) Process(ctx context.Context, src string) Outcome {
	originalName := filepath.Base(src)
	ext := filepath.Ext(src)

	c.setStatus(originalName, StatusExtracting)
	var content extractor.Content
	extractErr := c.Retrier.Execute(ctx, originalName, func(ctx context.Context) error {
		var err error
		content, err = extractor.Extract(ctx, src, c.InputDir, c.OCRLanguage)
		return err
	})
	if extractErr != nil {
		c.logError("extraction failed for %s: %v", originalName, extractErr)
		return c.quarantine(ctx, src, originalName, extractErr)
	}

	if content.Text == "" && content.PageImage == nil {
		return c.place(ctx, src, originalName, sanitize.EmptyFileName(), ext)
	}

	c.setStatus(originalName, StatusProposing)
	proposedName, proposeErr := c.propose(ctx, originalName, content)

	authAbort := false
	if proposeErr != nil {
		proposedName, authAbort = fallbackNameForProposalError(proposeErr)
		c.logError("proposal for %s exhausted retries, using fallback name %q: %v", originalName, proposedName, proposeErr)
	}

	outcome := c.place(ctx, src, originalName, proposedName, ext)
	outcome.AuthAbort = authAbort
	return outcome
}

// fallbackNameForProposalError implements spec.md §4.7 step 4's fallback
// rule: a Network-classified exhaustion gets network_error_, anything else
// permanent gets untitled_document_. It also reports whether the
// underlying failure was an Auth-class error, which the caller uses to
// decide whether to abort the whole session (spec.md §7).
func fallbackNameForProposalError(err error) (name string, authAbort bool) {
	var llmErr *llm.Error
	if errors.As(err, &llmErr) && llmErr.Kind == llm.KindAuth {
		authAbort = true
	}

	verdict := classify.Classify(err)
	if verdict.Kind == classify.KindNetwork {
		return sanitize.NetworkErrorName(), authAbort
	}
	return sanitize.UntitledDocumentName(), authAbort
}

// propose truncates content to the provider budget, consults the cache,
// and otherwise calls the provider wrapped in C6's retry discipline.
func (c *Coordinator) propose(ctx context.Context, originalName string, content extractor.Content) (string, error) {
	text := content.Text
	if c.Budget != nil {
		text = c.Budget.Truncate(text, llm.StrategySlidingWindow)
	}

	cacheKey := ""
	if c.Cache != nil {
		cacheKey = llm.Key(c.Provider.Name(), c.Model, text)
		if cached, ok := c.Cache.Get(cacheKey); ok {
			return cached, nil
		}
	}

	var proposed string
	err := c.Retrier.Execute(ctx, originalName, func(ctx context.Context) error {
		req := llm.Request{Text: text}
		if c.Provider.SupportsVision() {
			req.Image = content.PageImage
		}
		name, injectionDetected, callErr := c.Provider.ProposeFilename(ctx, req)
		if injectionDetected {
			c.logError("prompt injection detected for %s, substituted safe fallback prompt", originalName)
		}
		if callErr != nil {
			return callErr
		}
		proposed = name
		return nil
	})
	if err != nil {
		return "", err
	}

	if c.Cache != nil {
		c.Cache.Set(cacheKey, proposed)
	}
	return proposed, nil
}

// place runs a proposal through C1's sanitize/resolve-conflict, then C2's
// atomic move, retrying recoverable move failures per §4.6 and falling
// back to quarantine on a permanent one.
func (c *Coordinator) place(ctx context.Context, src, originalName, proposedName, ext string) Outcome {
	c.setStatus(originalName, StatusPlacing)
	sanitized := sanitize.Sanitize(proposedName)

	var finalBase string
	moveErr := c.Retrier.Execute(ctx, originalName, func(ctx context.Context) error {
		finalBase = sanitize.ResolveConflict(sanitized, c.DestDir, ext)
		dst := filepath.Join(c.DestDir, finalBase+ext)
		return fileops.Move(src, dst)
	})
	if moveErr != nil {
		c.logError("placement failed for %s: %v", originalName, moveErr)
		return c.quarantine(ctx, src, originalName, moveErr)
	}

	c.recordJournal(originalName, "placement")
	c.setStatus(originalName, StatusDone)
	return Outcome{OriginalName: originalName, FinalName: finalBase + ext}
}

// quarantine implements spec.md §4.7 step 6: move the source to the
// quarantine directory under its original basename (conflict-resolved),
// write a sibling reason file, and journal it — unless the quarantine move
// itself fails, in which case the source is left in place so the next run
// retries it from scratch.
func (c *Coordinator) quarantine(ctx context.Context, src, originalName string, cause error) Outcome {
	c.setStatus(originalName, StatusQuarantining)

	ext := filepath.Ext(originalName)
	base := strings.TrimSuffix(originalName, ext)

	var dst string
	err := c.Retrier.Execute(ctx, originalName, func(ctx context.Context) error {
		resolvedBase := sanitize.ResolveConflict(base, c.QuarantineDir, ext)
		dst = filepath.Join(c.QuarantineDir, resolvedBase+ext)
		return fileops.Move(src, dst)
	})
	if err != nil {
		c.logError("quarantine failed for %s (original cause: %v): %v", originalName, cause, err)
		return Outcome{OriginalName: originalName, Err: fmt.Errorf("quarantine failed: %w", err)}
	}

	c.writeQuarantineReason(dst, cause)
	c.logError("quarantined %s: %v", originalName, cause)
	c.recordJournal(originalName, "quarantine")
	c.setStatus(originalName, StatusDone)

	return Outcome{OriginalName: originalName, FinalName: filepath.Base(dst), Quarantined: true}
}

// writeQuarantineReason records a one-line human-readable cause alongside
// a quarantined file, per SPEC_FULL.md's quarantine-reason supplement.
func (c *Coordinator) writeQuarantineReason(dstPath string, cause error) {
	verdict := classify.Classify(cause)
	body := fmt.Sprintf("%s: %s\n", verdict.Kind, errlog.Redact(cause.Error()))
	if err := fileops.AtomicWrite(dstPath+".reason.txt", []byte(body)); err != nil {
		c.logError("failed to write quarantine reason for %s: %v", dstPath, err)
	}
}

func (c *Coordinator) recordJournal(originalName, step string) {
	if c.Journal == nil {
		return
	}
	if err := c.Journal.Record(originalName); err != nil {
		c.logError("failed to journal %s after %s: %v", originalName, step, err)
	}
}

func (c *Coordinator) logError(format string, args ...any) {
	if c.ErrorLog != nil {
		c.ErrorLog.Log(format, args...)
	}
}

func (c *Coordinator) setStatus(basename string, status Status) {
	if c.OnStatusChange != nil {
		c.OnStatusChange(basename, status)
	}
}
