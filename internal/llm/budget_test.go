package llm

import (
	"strings"
	"testing"
)

func TestBudgetFitsWithinLimit(t *testing.T) {
	b := NewBudget(nil, 1000)
	if !b.Fits("short text") {
		t.Error("expected short text to fit")
	}
}

func TestBudgetTruncatesByteHeuristicWhenOverLimit(t *testing.T) {
	b := NewBudget(nil, 10)
	long := strings.Repeat("word ", 200)
	out := b.Truncate(long, StrategySlidingWindow)
	if len(out) >= len(long) {
		t.Error("expected truncated text to be shorter than the original")
	}
	if !strings.Contains(out, "truncated") {
		t.Error("expected truncation marker in output")
	}
}

func TestBudgetDefaultsToDefaultContentBudget(t *testing.T) {
	b := NewBudget(nil, 0)
	if b.limit != DefaultContentBudgetTokens {
		t.Errorf("expected default limit %d, got %d", DefaultContentBudgetTokens, b.limit)
	}
}
