package compaction

import (
	"context"
	"fmt"
	"strings"
)

// Token-budget chunking constants for the multi-stage summarization path
// (see summarize's switch in compactor.go): how aggressively a batch of
// old messages gets split before any one piece is handed to the external
// Summariser.
const (
	// CharsPerToken is the character-to-token ratio EstimateMessageTokens
	// and the legacy estimateTokens helper both use.
	CharsPerToken = 4

	// DefaultContextWindow is the context window assumed when a Compactor's
	// MaxTokens doesn't imply one of its own.
	DefaultContextWindow = 100_000

	baseChunkRatio         = 0.4
	minChunkRatio          = 0.15
	chunkRatioSafetyMargin = 1.2
	oversizedShare         = 0.5
	defaultParts           = 2
	minMessagesForSplit    = 4

	defaultSummaryFallback = "No prior history."
)

// message is the chunking toolkit's own message view: just enough to
// estimate size and render a transcript line, independent of
// pkg/models.Message so this file doesn't need to know about roles beyond
// a display label.
type message struct {
	Role    string
	Content string
}

// estimateTokens applies the same CharsPerToken heuristic EstimateMessageTokens
// uses, without the role/structure overhead term (the chunking toolkit only
// ever sees message content that's already been through toLegacyMessages).
func estimateTokens(m *message) int {
	if m == nil {
		return 0
	}
	return (len(m.Content) + CharsPerToken - 1) / CharsPerToken
}

func estimateMessagesTokens(messages []*message) int {
	total := 0
	for _, m := range messages {
		total += estimateTokens(m)
	}
	return total
}

// splitMessagesByTokenShare divides messages into parts with roughly equal
// token counts, for SummarizeInStages to summarize independently before
// merging.
func splitMessagesByTokenShare(messages []*message, parts int) [][]*message {
	if len(messages) == 0 {
		return nil
	}
	if parts <= 0 {
		parts = defaultParts
	}
	if parts == 1 || len(messages) < parts {
		return [][]*message{messages}
	}

	targetPerPart := estimateMessagesTokens(messages) / parts

	var result [][]*message
	current := make([]*message, 0)
	currentTokens := 0

	for i, m := range messages {
		current = append(current, m)
		currentTokens += estimateTokens(m)

		remainingParts := parts - len(result) - 1
		isLast := i == len(messages)-1
		if !isLast && remainingParts > 0 && currentTokens >= targetPerPart {
			result = append(result, current)
			current = make([]*message, 0)
			currentTokens = 0
		}
	}
	if len(current) > 0 {
		result = append(result, current)
	}
	return result
}

// chunkMessagesByMaxTokens packs messages into chunks that never exceed
// maxTokens, except a single message that alone exceeds it, which gets its
// own chunk rather than being dropped or truncated here.
func chunkMessagesByMaxTokens(messages []*message, maxTokens int) [][]*message {
	if len(messages) == 0 {
		return nil
	}
	if maxTokens <= 0 {
		return [][]*message{messages}
	}

	var result [][]*message
	current := make([]*message, 0)
	currentTokens := 0

	for _, m := range messages {
		tokens := estimateTokens(m)

		if tokens > maxTokens {
			if len(current) > 0 {
				result = append(result, current)
				current = make([]*message, 0)
				currentTokens = 0
			}
			result = append(result, []*message{m})
			continue
		}

		if currentTokens+tokens > maxTokens && len(current) > 0 {
			result = append(result, current)
			current = make([]*message, 0)
			currentTokens = 0
		}
		current = append(current, m)
		currentTokens += tokens
	}
	if len(current) > 0 {
		result = append(result, current)
	}
	return result
}

// ComputeAdaptiveChunkRatio scales baseChunkRatio down as the average
// message size approaches the context window, so oversized conversations
// get smaller chunks instead of overflowing a single summarization call.
func ComputeAdaptiveChunkRatio(messages []*message, contextWindow int) float64 {
	if len(messages) == 0 || contextWindow <= 0 {
		return baseChunkRatio
	}

	avgTokens := float64(estimateMessagesTokens(messages)) / float64(len(messages))
	windowRatio := avgTokens / float64(contextWindow)

	ratio := baseChunkRatio * (1 - windowRatio*chunkRatioSafetyMargin)
	if ratio < minChunkRatio {
		ratio = minChunkRatio
	}
	if ratio > baseChunkRatio {
		ratio = baseChunkRatio
	}
	return ratio
}

func isOversizedForSummary(m *message, contextWindow int) bool {
	if m == nil || contextWindow <= 0 {
		return false
	}
	return float64(estimateTokens(m)) > float64(contextWindow)*oversizedShare
}

// SummarizationConfig bounds one multi-stage summarization run.
type SummarizationConfig struct {
	// ReserveTokens is held back from MaxChunkTokens for the model's own
	// response; the Compactor always passes 0 since its Summariser is a
	// fixed-prompt function, not a token-budgeted model call.
	ReserveTokens int

	// MaxChunkTokens bounds how much a single GenerateSummary call sees.
	MaxChunkTokens int

	// ContextWindow is the total token budget the chunk ratio scales against.
	ContextWindow int

	// CustomInstructions, appended to the default merge instructions.
	CustomInstructions string

	// PreviousSummary, if set, is carried into the merge pass ahead of this
	// round's part summaries.
	PreviousSummary string

	// Parts is how many pieces SummarizeInStages splits messages into.
	Parts int
}

func (c *SummarizationConfig) withDefaults() *SummarizationConfig {
	if c == nil {
		c = &SummarizationConfig{}
	}
	cfg := *c
	if cfg.MaxChunkTokens <= 0 {
		cfg.MaxChunkTokens = int(float64(cfg.ContextWindow) * baseChunkRatio)
	}
	if cfg.Parts <= 0 {
		cfg.Parts = defaultParts
	}
	return &cfg
}

// Summarizer generates a summary for a batch of messages under a token
// budget. summariserAdapter in compactor.go is the only implementation.
type Summarizer interface {
	GenerateSummary(ctx context.Context, messages []*message, config *SummarizationConfig) (string, error)
}

// SummarizeChunks splits messages into MaxChunkTokens-sized pieces,
// summarizes each independently, and merges the results. A single chunk is
// summarized directly with no merge pass.
func SummarizeChunks(ctx context.Context, messages []*message, summarizer Summarizer, config *SummarizationConfig) (string, error) {
	if len(messages) == 0 {
		return defaultSummaryFallback, nil
	}
	config = config.withDefaults()

	chunks := chunkMessagesByMaxTokens(messages, config.MaxChunkTokens)
	if len(chunks) == 0 {
		return defaultSummaryFallback, nil
	}
	if len(chunks) == 1 {
		return summarizer.GenerateSummary(ctx, chunks[0], config)
	}

	summaries := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		summary, err := summarizer.GenerateSummary(ctx, chunk, config)
		if err != nil {
			return "", fmt.Errorf("summarizing chunk %d: %w", i, err)
		}
		summaries = append(summaries, summary)
	}
	return mergeSummaries(ctx, summaries, summarizer, config)
}

func mergeSummaries(ctx context.Context, summaries []string, summarizer Summarizer, config *SummarizationConfig) (string, error) {
	if len(summaries) == 0 {
		return defaultSummaryFallback, nil
	}
	if len(summaries) == 1 {
		return summaries[0], nil
	}

	merged := make([]*message, len(summaries))
	for i, s := range summaries {
		merged[i] = &message{Role: "system", Content: fmt.Sprintf("Chunk %d summary:\n%s", i+1, s)}
	}

	mergeConfig := *config
	mergeConfig.CustomInstructions = "Merge these chunk summaries into a single coherent summary. Preserve key details and maintain chronological flow."
	if config.CustomInstructions != "" {
		mergeConfig.CustomInstructions = config.CustomInstructions + "\n\n" + mergeConfig.CustomInstructions
	}
	return summarizer.GenerateSummary(ctx, merged, &mergeConfig)
}

// summarizeWithFallback summarizes messages that fit the context window and
// notes (rather than drops or fails on) any that don't.
func summarizeWithFallback(ctx context.Context, messages []*message, summarizer Summarizer, config *SummarizationConfig) (string, error) {
	if len(messages) == 0 {
		return defaultSummaryFallback, nil
	}
	config = config.withDefaults()

	var normal []*message
	var oversizedNotes []string
	for _, m := range messages {
		if isOversizedForSummary(m, config.ContextWindow) {
			oversizedNotes = append(oversizedNotes, fmt.Sprintf("[Oversized %s message with %d tokens - content omitted]", m.Role, estimateTokens(m)))
		} else {
			normal = append(normal, m)
		}
	}

	summary := defaultSummaryFallback
	if len(normal) > 0 {
		var err error
		summary, err = SummarizeChunks(ctx, normal, summarizer, config)
		if err != nil {
			return "", fmt.Errorf("summarizing normal messages: %w", err)
		}
	}
	if len(oversizedNotes) > 0 {
		summary = summary + "\n\n" + strings.Join(oversizedNotes, "\n")
	}
	return summary, nil
}

// SummarizeInStages splits messages into config.Parts roughly-equal-token
// pieces, summarizes each (falling back to summarizeWithFallback per part),
// and merges the part summaries — useful for histories too large to chunk
// through in one SummarizeChunks pass. Below minMessagesForSplit, or if
// splitting produces only one part, it defers straight to
// summarizeWithFallback.
func SummarizeInStages(ctx context.Context, messages []*message, summarizer Summarizer, config *SummarizationConfig) (string, error) {
	if len(messages) == 0 {
		return defaultSummaryFallback, nil
	}
	config = config.withDefaults()

	if len(messages) < minMessagesForSplit {
		return summarizeWithFallback(ctx, messages, summarizer, config)
	}

	partitions := splitMessagesByTokenShare(messages, config.Parts)
	if len(partitions) <= 1 {
		return summarizeWithFallback(ctx, messages, summarizer, config)
	}

	partSummaries := make([]string, 0, len(partitions))
	for i, partition := range partitions {
		summary, err := summarizeWithFallback(ctx, partition, summarizer, config)
		if err != nil {
			return "", fmt.Errorf("summarizing part %d: %w", i, err)
		}
		partSummaries = append(partSummaries, summary)
	}

	if config.PreviousSummary != "" && config.PreviousSummary != defaultSummaryFallback {
		partSummaries = append([]string{config.PreviousSummary}, partSummaries...)
	}
	return mergeSummaries(ctx, partSummaries, summarizer, config)
}

// pruneResult reports what PruneHistoryForContextShare kept and dropped.
type pruneResult struct {
	Messages        []*message
	DroppedChunks   int
	DroppedMessages int
}

// PruneHistoryForContextShare keeps the most recent messages that fit
// within maxHistoryShare of maxContextTokens, dropping older ones from the
// front. parts is only used to report how many whole chunks (per
// splitMessagesByTokenShare) were dropped entirely.
func PruneHistoryForContextShare(messages []*message, maxContextTokens int, maxHistoryShare float64, parts int) *pruneResult {
	result := &pruneResult{Messages: messages}
	if len(messages) == 0 || maxContextTokens <= 0 {
		return result
	}
	if maxHistoryShare <= 0 || maxHistoryShare > 1 {
		maxHistoryShare = 1.0
	}
	budget := int(float64(maxContextTokens) * maxHistoryShare)

	if estimateMessagesTokens(messages) <= budget {
		return result
	}

	var kept []*message
	keptTokens := 0
	for i := len(messages) - 1; i >= 0; i-- {
		tokens := estimateTokens(messages[i])
		if keptTokens+tokens > budget {
			break
		}
		kept = append([]*message{messages[i]}, kept...)
		keptTokens += tokens
	}

	result.Messages = kept
	result.DroppedMessages = len(messages) - len(kept)
	if parts > 0 && result.DroppedMessages > 0 {
		result.DroppedChunks = countFullyDroppedChunks(messages, kept, parts)
	}
	return result
}

func countFullyDroppedChunks(messages, kept []*message, parts int) int {
	keptSet := make(map[*message]bool, len(kept))
	for _, m := range kept {
		keptSet[m] = true
	}
	dropped := 0
	for _, chunk := range splitMessagesByTokenShare(messages, parts) {
		allDropped := true
		for _, m := range chunk {
			if keptSet[m] {
				allDropped = false
				break
			}
		}
		if allDropped {
			dropped++
		}
	}
	return dropped
}

// ResolveContextWindowTokens prefers modelContextWindow when set, then
// defaultContextWindow, then DefaultContextWindow.
func ResolveContextWindowTokens(modelContextWindow, defaultContextWindow int) int {
	if modelContextWindow > 0 {
		return modelContextWindow
	}
	if defaultContextWindow > 0 {
		return defaultContextWindow
	}
	return DefaultContextWindow
}

// FormatMessagesForSummary renders messages as "[role]: content" lines for
// a prompt, the legacy-message equivalent of compactor.go's formatTranscript.
func FormatMessagesForSummary(messages []*message) string {
	var sb strings.Builder
	for _, m := range messages {
		if m == nil {
			continue
		}
		sb.WriteString(fmt.Sprintf("[%s]: %s\n\n", m.Role, m.Content))
	}
	return sb.String()
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
