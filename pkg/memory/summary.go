package memory

import (
	"sort"
	"sync"
	"time"
)

// SummaryTier is Tier 2: a fixed-capacity ring of ConsolidatedSummary,
// populated by consolidation output (default capacity 10).
type SummaryTier struct {
	mu        sync.Mutex
	capacity  int
	summaries []ConsolidatedSummary
}

// NewSummaryTier creates a ring with the given capacity (default 10).
func NewSummaryTier(capacity int) *SummaryTier {
	if capacity <= 0 {
		capacity = 10
	}
	return &SummaryTier{capacity: capacity, summaries: make([]ConsolidatedSummary, 0, capacity)}
}

// Add appends a summary, evicting the oldest if at capacity.
func (s *SummaryTier) Add(summary ConsolidatedSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.summaries) >= s.capacity {
		s.summaries = append(s.summaries[1:], summary)
		return
	}
	s.summaries = append(s.summaries, summary)
}

// Recent returns the n most recent summaries, most recent first.
func (s *SummaryTier) Recent(n int) []ConsolidatedSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 || n > len(s.summaries) {
		n = len(s.summaries)
	}
	out := make([]ConsolidatedSummary, n)
	for i := 0; i < n; i++ {
		out[i] = s.summaries[len(s.summaries)-1-i]
	}
	return out
}

// FilterByTimestamp returns summaries whose window overlaps [since, until].
func (s *SummaryTier) FilterByTimestamp(since, until time.Time) []ConsolidatedSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []ConsolidatedSummary
	for _, sm := range s.summaries {
		if sm.NewestTimestamp.Before(since) || sm.OldestTimestamp.After(until) {
			continue
		}
		out = append(out, sm)
	}
	return out
}

// keywordResult pairs a summary with its keyword-search score.
type keywordResult struct {
	summary ConsolidatedSummary
	score   float64
}

// Search performs the tier's simple keyword search: 1.0 per keyword hit in
// Summary, 0.5 per hit in flattened metadata. Results are sorted by score
// descending.
func (s *SummaryTier) Search(keywords []string) []ConsolidatedSummary {
	s.mu.Lock()
	snapshot := make([]ConsolidatedSummary, len(s.summaries))
	copy(snapshot, s.summaries)
	s.mu.Unlock()

	results := make([]keywordResult, 0, len(snapshot))
	for _, sm := range snapshot {
		score := sm.keywordHits(keywords)
		if score > 0 {
			results = append(results, keywordResult{summary: sm, score: score})
		}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })

	out := make([]ConsolidatedSummary, len(results))
	for i, r := range results {
		out[i] = r.summary
	}
	return out
}

// Len returns the current summary count.
func (s *SummaryTier) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.summaries)
}
