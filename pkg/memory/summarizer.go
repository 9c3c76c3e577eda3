package memory

import (
	"fmt"
	"sort"
	"strings"
)

// Summarizer reduces a batch of messages to a single summary string.
// Consolidation calls this once per batch being folded into Tier 2; the
// caller may substitute an LLM-backed implementation for HeuristicSummarizer.
type Summarizer interface {
	Summarize(messages []Message) (string, error)
}

// HeuristicSummarizer produces a deterministic, LLM-free summary: role
// counts, the leading topics of up to five user messages, and a count of
// any error-mentioning messages, truncated to MaxLength. Used when no
// LLM-backed summarizer is configured.
//
// Grounded on the reference implementation's MemoryConsolidation._simple_summary,
// which restricts topic extraction to user-authored messages rather than
// every role.
type HeuristicSummarizer struct {
	// MaxLength bounds the returned summary string. Zero falls back to 500,
	// matching Config.SetDefaults' MaxSummaryLength default.
	MaxLength int
}

const defaultMaxSummaryLength = 500

// userTopicMessages caps how many user messages contribute a topic phrase.
const userTopicMessages = 5

// userTopicWords caps how many leading words of each contributing message
// are kept as its topic phrase.
const userTopicWords = 5

// Summarize implements Summarizer.
func (h HeuristicSummarizer) Summarize(messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", nil
	}

	counts := map[Role]int{}
	errorCount := 0
	var topics []string

	for _, msg := range messages {
		counts[msg.Role]++
		if strings.Contains(strings.ToLower(msg.Content), "error") {
			errorCount++
		}
		if msg.Role == RoleUser && len(topics) < userTopicMessages {
			words := strings.Fields(msg.Content)
			if len(words) > userTopicWords {
				words = words[:userTopicWords]
			}
			if topic := strings.Join(words, " "); topic != "" {
				topics = append(topics, topic)
			}
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d messages consolidated (", len(messages))
	roles := make([]string, 0, len(counts))
	for r := range counts {
		roles = append(roles, string(r))
	}
	sort.Strings(roles)
	parts := make([]string, 0, len(roles))
	for _, r := range roles {
		parts = append(parts, fmt.Sprintf("%s=%d", r, counts[Role(r)]))
	}
	b.WriteString(strings.Join(parts, ", "))
	b.WriteString(")")

	if len(topics) > 0 {
		fmt.Fprintf(&b, "; leading user topics: %s", strings.Join(topics, "; "))
	}
	if errorCount > 0 {
		fmt.Fprintf(&b, "; errors encountered: %d", errorCount)
	}

	maxLen := h.MaxLength
	if maxLen <= 0 {
		maxLen = defaultMaxSummaryLength
	}
	out := b.String()
	if len(out) > maxLen {
		out = out[:maxLen]
	}
	return out, nil
}
