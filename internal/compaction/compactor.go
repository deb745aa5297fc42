package compaction

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/crystalyse/agentcore/pkg/models"
)

// Default tuning values for a Compactor.
const (
	DefaultMaxTokens        = 100_000
	DefaultThreshold        = 0.8
	DefaultKeepRecent       = 10
	DefaultSummaryMaxTokens = 2000

	// perMessageOverheadChars approximates the token cost of a message's
	// role/structure envelope, on top of its content.
	perMessageOverheadChars = 16

	// truncateMessageChars bounds how much of a single old message's
	// content is quoted into the transcript handed to the summariser.
	truncateMessageChars = 2000

	// maxFallbackPoints bounds the deterministic fallback summary.
	maxFallbackPoints = 20

	// stagedSummaryFactor is how many multiples of MaxChunkTokens an old
	// segment must exceed before it's pruned and staged rather than
	// chunked-and-merged in one pass, for very long histories.
	stagedSummaryFactor = 4

	// pruneParts is the chunk count PruneHistoryForContextShare uses to
	// report whole-chunk drops.
	pruneParts = 4
)

// summaryPromptTemplate is the fixed summariser prompt.
const summaryPromptTemplate = "Summarise the following conversation history concisely.\n\n" +
	"Preserve:\n" +
	"- Key findings with their sources/provenance\n" +
	"- User constraints and preferences\n" +
	"- Important decisions made\n" +
	"- Errors encountered and how they were resolved\n" +
	"- Material compositions and properties discussed\n\n" +
	"Be concise but complete. Use bullet points for clarity.\n\n" +
	"Conversation to summarise:\n%s"

// Config configures a Compactor.
type Config struct {
	MaxTokens        int
	Threshold        float64
	KeepRecent       int
	SummaryMaxTokens int
}

// DefaultConfig returns the suggested configuration.
func DefaultConfig() Config {
	return Config{
		MaxTokens:        DefaultMaxTokens,
		Threshold:        DefaultThreshold,
		KeepRecent:       DefaultKeepRecent,
		SummaryMaxTokens: DefaultSummaryMaxTokens,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Threshold <= 0 || c.Threshold > 1 {
		c.Threshold = DefaultThreshold
	}
	if c.KeepRecent < 0 {
		c.KeepRecent = DefaultKeepRecent
	}
	if c.SummaryMaxTokens <= 0 {
		c.SummaryMaxTokens = DefaultSummaryMaxTokens
	}
	return c
}

// Summariser is the external capability contract: given the fixed
// preservation prompt with the transcript interpolated, return a summary.
// A nil Summariser makes Compactor fall back to the deterministic keyword
// extractor on every compaction.
type Summariser func(ctx context.Context, prompt string) (string, error)

// Compactor monitors conversation token pressure and summarises old turns
// once a configured threshold is crossed, keeping the most recent messages
// verbatim. It owns no state beyond its configuration and a running
// compaction counter, so it is safe to call from any goroutine.
type Compactor struct {
	cfg        Config
	summariser Summariser

	mu     sync.Mutex
	counter int
}

// New builds a Compactor. summariser may be nil, in which case the
// deterministic fallback extractor is always used.
func New(cfg Config, summariser Summariser) *Compactor {
	return &Compactor{cfg: cfg.withDefaults(), summariser: summariser}
}

// EstimateMessageTokens approximates a message's token cost: ~4 characters
// per token plus a small fixed overhead for its role/structure envelope.
func EstimateMessageTokens(m models.Message) int {
	chars := len(m.Content) + len(m.Name) + perMessageOverheadChars
	return (chars + CharsPerToken - 1) / CharsPerToken
}

// EstimateConversationTokens sums EstimateMessageTokens across messages.
func EstimateConversationTokens(messages []models.Message) int {
	total := 0
	for _, m := range messages {
		total += EstimateMessageTokens(m)
	}
	return total
}

// NeedsCompaction reports whether estimated total tokens have crossed
// MaxTokens * Threshold.
func (c *Compactor) NeedsCompaction(messages []models.Message) bool {
	budget := float64(c.cfg.MaxTokens) * c.cfg.Threshold
	return float64(EstimateConversationTokens(messages)) >= budget
}

// CompactIfNeeded runs Compact only when NeedsCompaction reports true;
// otherwise it returns messages unchanged (idempotent below threshold, per
// the invariant in §4.6).
func (c *Compactor) CompactIfNeeded(ctx context.Context, messages []models.Message) ([]models.Message, error) {
	if !c.NeedsCompaction(messages) {
		return messages, nil
	}
	return c.Compact(ctx, messages)
}

// Compact implements the §4.6 algorithm unconditionally: split at
// len(messages)-KeepRecent, summarise the old prefix, and return
// [summaryMessage] ++ recent. If len(messages) <= KeepRecent this is a
// documented no-op returning messages unchanged.
func (c *Compactor) Compact(ctx context.Context, messages []models.Message) ([]models.Message, error) {
	keep := c.cfg.KeepRecent
	if len(messages) <= keep {
		return messages, nil
	}

	splitAt := len(messages) - keep
	old := messages[:splitAt]
	recent := messages[splitAt:]

	summary := c.summarize(ctx, old)

	summaryMsg := models.Message{
		Role:    models.RoleSystem,
		Content: "## Previous Context Summary\n\n" + summary,
		Metadata: map[string]any{
			"compacted":      true,
			"original_count": len(old),
		},
	}

	c.mu.Lock()
	c.counter++
	c.mu.Unlock()

	out := make([]models.Message, 0, 1+len(recent))
	out = append(out, summaryMsg)
	out = append(out, recent...)
	return out, nil
}

// Compactions returns the number of non-no-op Compact calls so far.
func (c *Compactor) Compactions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counter
}

func (c *Compactor) summarize(ctx context.Context, old []models.Message) string {
	if c.summariser == nil {
		return fallbackSummary(old)
	}

	converted := toLegacyMessages(old)
	estimated := EstimateConversationTokens(old)
	contextWindow := ResolveContextWindowTokens(c.cfg.MaxTokens, DefaultContextWindow)
	cfg := &SummarizationConfig{
		ReserveTokens:  0,
		MaxChunkTokens: maxInt(c.cfg.SummaryMaxTokens*4, contextWindow/4),
		ContextWindow:  contextWindow,
	}

	var (
		summary string
		err     error
	)
	switch {
	case estimated > cfg.MaxChunkTokens*stagedSummaryFactor:
		// Very large old segment: prune to the portion that fits the
		// staged-summary budget first, so neither the per-part nor the
		// merge call to the external summariser ever sees an unbounded
		// transcript.
		share := ComputeAdaptiveChunkRatio(converted, contextWindow)
		pruned := PruneHistoryForContextShare(converted, cfg.MaxChunkTokens*stagedSummaryFactor, share, pruneParts)
		summary, err = SummarizeInStages(ctx, pruned.Messages, summariserAdapter{c.summariser}, cfg)
	case estimated > cfg.MaxChunkTokens:
		// Large old segment: reuse the chunked-summarisation toolkit so no
		// single call to the external summariser exceeds its own budget.
		summary, err = SummarizeChunks(ctx, converted, summariserAdapter{c.summariser}, cfg)
	default:
		transcript := formatTranscript(old)
		prompt := fmt.Sprintf(summaryPromptTemplate, transcript)
		summary, err = c.summariser(ctx, prompt)
	}
	if err != nil {
		return fallbackSummary(old)
	}
	return summary
}

// summariserAdapter bridges the single-prompt Summariser contract to the
// chunk-oriented Summarizer interface used by SummarizeChunks/mergeSummaries.
type summariserAdapter struct{ fn Summariser }

func (s summariserAdapter) GenerateSummary(ctx context.Context, messages []*message, _ *SummarizationConfig) (string, error) {
	transcript := FormatMessagesForSummary(messages)
	prompt := fmt.Sprintf(summaryPromptTemplate, transcript)
	return s.fn(ctx, prompt)
}

func toLegacyMessages(messages []models.Message) []*message {
	out := make([]*message, len(messages))
	for i, m := range messages {
		out[i] = &message{Role: string(m.Role), Content: truncateString(m.Text(), truncateMessageChars)}
	}
	return out
}

func formatTranscript(old []models.Message) string {
	var sb strings.Builder
	for _, m := range old {
		sb.WriteString(fmt.Sprintf("[%s]", m.Role))
		if m.Name != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", m.Name))
		}
		sb.WriteString(": ")
		sb.WriteString(truncateString(m.Text(), truncateMessageChars))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// fallbackKeywords drives the deterministic extractor used when no
// summariser is configured or the configured one fails (§4.6, §7).
var fallbackKeywords = []string{
	"finding", "result", "error", "failed", "resolved",
	"user requested", "please", "decided", "decision",
	"composition", "formation energy", "band gap",
}

// fallbackSummary extracts lines containing keywords of interest, capped at
// maxFallbackPoints bullet points.
func fallbackSummary(old []models.Message) string {
	var points []string
	for _, m := range old {
		for _, line := range strings.Split(m.Text(), "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}
			lower := strings.ToLower(trimmed)
			for _, kw := range fallbackKeywords {
				if strings.Contains(lower, kw) {
					points = append(points, fmt.Sprintf("- [%s] %s", m.Role, truncateString(trimmed, 200)))
					break
				}
			}
			if len(points) >= maxFallbackPoints {
				break
			}
		}
		if len(points) >= maxFallbackPoints {
			break
		}
	}
	if len(points) == 0 {
		return fmt.Sprintf("No notable findings, errors, or decisions extracted from %d prior messages.", len(old))
	}
	return strings.Join(points, "\n")
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
