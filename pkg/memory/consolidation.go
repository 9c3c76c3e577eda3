package memory

import (
	"fmt"
	"sort"
)

// Consolidate runs the consolidation procedure: the oldest messages beyond
// RecentKeep are partitioned by importance. Those scoring at or above
// MinImportance are preserved verbatim in the rebuilt working tier; the rest
// are summarized into a single ConsolidatedSummary appended to Tier 2. A
// synthetic system message recording the summary is then added back to
// the working tier alongside the preserved messages and the untouched
// recent tail.
//
// Consolidate is idempotent: calling it again immediately after a
// successful run sees sinceConsolidation reset to zero and returns early.
func (s *Store) Consolidate() error {
	s.mu.Lock()
	if s.sinceConsolidation == 0 {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	all := s.working.Snapshot()
	if len(all) <= s.cfg.RecentKeep {
		s.mu.Lock()
		s.sinceConsolidation = 0
		s.lastConsolidation = s.clock()
		s.mu.Unlock()
		return nil
	}

	splitAt := len(all) - s.cfg.RecentKeep
	old := all[:splitAt]
	recentTail := all[splitAt:]

	var preserved, toSummarize []Message
	for _, msg := range old {
		if s.scorer.Score(msg) >= s.cfg.MinImportance {
			preserved = append(preserved, msg)
		} else {
			toSummarize = append(toSummarize, msg)
		}
	}

	if len(toSummarize) == 0 {
		s.mu.Lock()
		s.sinceConsolidation = 0
		s.lastConsolidation = s.clock()
		s.mu.Unlock()
		return nil
	}

	summaryText, err := s.summarizer.Summarize(toSummarize)
	if err != nil {
		return err
	}

	sort.Slice(toSummarize, func(i, j int) bool {
		return toSummarize[i].Timestamp.Before(toSummarize[j].Timestamp)
	})
	summary := ConsolidatedSummary{
		Summary:           summaryText,
		ConsolidatedCount: len(toSummarize),
		OldestTimestamp:   toSummarize[0].Timestamp,
		NewestTimestamp:   toSummarize[len(toSummarize)-1].Timestamp,
		ConsolidatedAt:    s.clock(),
		Metadata:          flattenIDs(toSummarize),
	}
	s.summaries.Add(summary)

	synthetic := Message{
		Role:      RoleSystem,
		Content:   fmt.Sprintf("[consolidated] %s", summaryText),
		Timestamp: summary.ConsolidatedAt,
	}

	rebuilt := make([]Message, 0, len(preserved)+1+len(recentTail))
	rebuilt = append(rebuilt, preserved...)
	rebuilt = append(rebuilt, synthetic)
	rebuilt = append(rebuilt, recentTail...)
	s.working.Replace(rebuilt)

	s.mu.Lock()
	s.sinceConsolidation = 0
	s.lastConsolidation = s.clock()
	s.mu.Unlock()
	return nil
}

// flattenIDs collects the distinct agent/task IDs touched by a batch into a
// ConsolidatedSummary's metadata, comma-joined per key.
func flattenIDs(messages []Message) map[string]string {
	agents := map[string]struct{}{}
	tasks := map[string]struct{}{}
	for _, m := range messages {
		if m.AgentID != "" {
			agents[m.AgentID] = struct{}{}
		}
		if m.TaskID != "" {
			tasks[m.TaskID] = struct{}{}
		}
	}
	meta := map[string]string{}
	if s := joinKeys(agents); s != "" {
		meta["agent_ids"] = s
	}
	if s := joinKeys(tasks); s != "" {
		meta["task_ids"] = s
	}
	return meta
}

func joinKeys(set map[string]struct{}) string {
	if len(set) == 0 {
		return ""
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := keys[0]
	for _, k := range keys[1:] {
		out += "," + k
	}
	return out
}
