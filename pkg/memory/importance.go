package memory

import "strings"

// ImportanceScorer assigns a retention priority in [0, 1] to a Message.
// Higher-scoring messages are preferentially kept in the working tier
// during consolidation and ranked higher by the "importance" retrieval
// strategy.
type ImportanceScorer interface {
	Score(msg Message) float64
}

// HeuristicScorer is the default scorer: baseline 0.5, +0.1 for user-role
// messages, +0.3 if the content mentions an error, clamped to [0, 1].
type HeuristicScorer struct{}

// Score implements ImportanceScorer.
func (HeuristicScorer) Score(msg Message) float64 {
	score := 0.5
	if msg.Role == RoleUser {
		score += 0.1
	}
	if strings.Contains(strings.ToLower(msg.Content), "error") {
		score += 0.3
	}
	if score > 1.0 {
		score = 1.0
	}
	if score < 0.0 {
		score = 0.0
	}
	return score
}
