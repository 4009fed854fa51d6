package llm

// TruncationStrategy selects how Budget shortens text that exceeds its
// token limit (spec.md §4.4).
type TruncationStrategy string

const (
	StrategySlidingWindow    TruncationStrategy = "sliding_window"
	StrategyMiddleExtraction TruncationStrategy = "middle_extraction"
)

// DefaultContentBudgetTokens is spec.md §4.4's "default ≈ 15,000 model
// tokens" content budget, used when a provider doesn't declare a tighter
// limit.
const DefaultContentBudgetTokens = 15000

// byteHeuristicFactor is the "0.9x target" fallback ratio from spec.md
// §4.4, used when no tokenizer is available for a back-end.
const byteHeuristicFactor = 0.9

// Budget handles token-budget truncation for one provider call, using
// either exact tokenizer counting or a byte-length heuristic. Grounded on
// the teacher's ContextManager, generalized from MLX-specific budgeting to
// a per-call budget usable by every back-end.
type Budget struct {
	tokenizer *Tokenizer
	limit     int
}

// NewBudget creates a Budget for the given content token limit. A nil
// tokenizer falls back to the byte-length heuristic.
func NewBudget(tokenizer *Tokenizer, limit int) *Budget {
	if limit <= 0 {
		limit = DefaultContentBudgetTokens
	}
	return &Budget{tokenizer: tokenizer, limit: limit}
}

// Fits reports whether text is within the budget.
func (b *Budget) Fits(text string) bool {
	return b.countOrEstimate(text) <= b.limit
}

// Truncate shortens text to fit the budget using strategy, returning text
// unchanged if it already fits.
func (b *Budget) Truncate(text string, strategy TruncationStrategy) string {
	if b.Fits(text) {
		return text
	}

	if b.tokenizer == nil {
		return b.truncateByBytes(text)
	}

	tokens := b.tokenizer.encoding.Encode(text, nil, nil)
	if len(tokens) <= b.limit {
		return text
	}

	switch strategy {
	case StrategyMiddleExtraction:
		return b.middleExtraction(tokens)
	default:
		return b.slidingWindow(tokens)
	}
}

func (b *Budget) countOrEstimate(text string) int {
	if b.tokenizer != nil {
		return b.tokenizer.CountTokens(text)
	}
	// Rough English-text heuristic: ~4 bytes per token.
	return len(text) / 4
}

func (b *Budget) slidingWindow(tokens []int) string {
	headSize := b.limit / 2
	tailSize := b.limit - headSize

	headText := b.tokenizer.encoding.Decode(tokens[:headSize])
	tailText := b.tokenizer.encoding.Decode(tokens[len(tokens)-tailSize:])

	return headText + "\n[... truncated ...]\n" + tailText
}

func (b *Budget) middleExtraction(tokens []int) string {
	headSize := int(float64(b.limit) * 0.4)
	tailSize := b.limit - headSize

	headText := b.tokenizer.encoding.Decode(tokens[:headSize])
	tailText := b.tokenizer.encoding.Decode(tokens[len(tokens)-tailSize:])

	return headText + "\n[... content extracted ...]\n" + tailText
}

func (b *Budget) truncateByBytes(text string) string {
	targetBytes := int(float64(b.limit) * byteHeuristicFactor * 4)
	if targetBytes >= len(text) {
		return text
	}
	head := targetBytes * 4 / 10
	tail := targetBytes - head
	return text[:head] + "\n[... truncated ...]\n" + text[len(text)-tail:]
}
