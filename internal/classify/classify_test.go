package classify

import (
	"errors"
	"testing"
)

func TestClassifyPermissionDenied(t *testing.T) {
	v := Classify(errors.New("open file.pdf: permission denied"))
	if v.Kind != KindRecoverablePermission || !v.Recoverable {
		t.Errorf("unexpected verdict: %+v", v)
	}
}

func TestClassifyFileLocked(t *testing.T) {
	v := Classify(errors.New("the process cannot access the file because it is locked"))
	if v.Kind != KindFileLocked || !v.Recoverable {
		t.Errorf("unexpected verdict: %+v", v)
	}
}

func TestClassifySyncConflict(t *testing.T) {
	v := Classify(errors.New("OneDrive conflicted copy detected"))
	if v.Kind != KindSyncConflict || !v.Recoverable {
		t.Errorf("unexpected verdict: %+v", v)
	}
}

func TestClassifyNetwork(t *testing.T) {
	v := Classify(errors.New("dial tcp: connection timed out"))
	if v.Kind != KindNetwork || !v.Recoverable {
		t.Errorf("unexpected verdict: %+v", v)
	}
}

func TestClassifyUnsupportedFormatIsNotRecoverable(t *testing.T) {
	v := Classify(errors.New("not a valid PDF file"))
	if v.Kind != KindUnsupportedFormat || v.Recoverable {
		t.Errorf("unexpected verdict: %+v", v)
	}
}

func TestClassifyRateLimit(t *testing.T) {
	v := Classify(errors.New("received 429 too many requests"))
	if v.Kind != KindRateLimit || !v.Recoverable {
		t.Errorf("unexpected verdict: %+v", v)
	}
}

func TestClassifyServerError(t *testing.T) {
	v := Classify(errors.New("upstream returned 503 service unavailable"))
	if v.Kind != KindServerError || !v.Recoverable {
		t.Errorf("unexpected verdict: %+v", v)
	}
}

func TestClassifyPermanentFallback(t *testing.T) {
	v := Classify(errors.New("something entirely unexpected"))
	if v.Kind != KindPermanent || v.Recoverable {
		t.Errorf("unexpected verdict: %+v", v)
	}
}

func TestClassifyRuleOrderingPrefersEarlierMatch(t *testing.T) {
	// "permission denied" should win over a later-matching "timeout" even
	// if both substrings happen to appear in the same message.
	v := Classify(errors.New("permission denied while waiting for timeout"))
	if v.Kind != KindRecoverablePermission {
		t.Errorf("expected first-match rule to win, got %+v", v)
	}
}
