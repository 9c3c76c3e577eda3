// Package memory implements the three-tier conversational memory: a bounded
// working buffer (Tier 1), a bounded summary ring (Tier 2), and an unbounded
// append-only persistent log (Tier 3), plus the consolidation and hybrid
// retrieval that bind them together.
//
// Grounded on the teacher's pkg/memory tiered-strategy layout (working.go,
// summary_buffer.go, buffer_window.go) generalized from an LLM context-window
// manager to the spec's role-tagged Message/ConsolidatedSummary model, and on
// the reference implementation's ProductionMemorySystem / MemoryConsolidation.
package memory

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Role identifies who produced a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Message is a role-tagged, immutable unit of conversation.
type Message struct {
	Role      Role
	Content   string
	Timestamp time.Time
	AgentID   string
	TaskID    string
	Metadata  map[string]string
}

// Hash is the dedup key across tiers: SHA-256 of "role:content:timestamp"
// truncated to 16 hex characters.
func (m Message) Hash() string {
	sum := sha256.Sum256([]byte(string(m.Role) + ":" + m.Content + ":" + m.Timestamp.Format(time.RFC3339Nano)))
	return hex.EncodeToString(sum[:])[:16]
}

// ConsolidatedSummary is a compressed stand-in for a range of messages,
// produced by consolidation and stored in Tier 2.
type ConsolidatedSummary struct {
	Summary           string
	ConsolidatedCount int
	OldestTimestamp   time.Time
	NewestTimestamp   time.Time
	ConsolidatedAt    time.Time
	Metadata          map[string]string // includes flattened task_ids / agent_ids
}

// keywordHits scores a string's keyword matches, used by Tier 2's simple
// keyword search (1.0 per hit in Summary, 0.5 per hit in flattened metadata).
func (c ConsolidatedSummary) keywordHits(keywords []string) float64 {
	score := 0.0
	lowerSummary := strings.ToLower(c.Summary)
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		if kw == "" {
			continue
		}
		if strings.Contains(lowerSummary, kw) {
			score += 1.0
		}
	}
	if len(c.Metadata) > 0 {
		var flat strings.Builder
		for k, v := range c.Metadata {
			flat.WriteString(k)
			flat.WriteString(" ")
			flat.WriteString(v)
			flat.WriteString(" ")
		}
		lowerMeta := strings.ToLower(flat.String())
		for _, kw := range keywords {
			kw = strings.ToLower(kw)
			if kw == "" {
				continue
			}
			if strings.Contains(lowerMeta, kw) {
				score += 0.5
			}
		}
	}
	return score
}

// Strategy selects a hybrid-retrieval ranking approach.
type Strategy string

const (
	StrategyRecent     Strategy = "recent"
	StrategySemantic   Strategy = "semantic"
	StrategyHybrid     Strategy = "hybrid"
	StrategyImportance Strategy = "importance"
)

// ContextQuery parameterizes get_context.
type ContextQuery struct {
	Query             string
	Strategy          Strategy
	Limit             int
	MinImportance     float64
	IncludePersistent bool
}

// Config holds the memory store's configuration surface, following the
// teacher's SetDefaults()-on-struct pattern (pkg/checkpoint/config.go).
type Config struct {
	MaxWorkingMessages             int
	MaxSummaries                   int
	MinImportance                  float64
	RecentKeep                     int
	MaxMessagesBeforeConsolidation int
	ConsolidateInterval            time.Duration
	AutoConsolidate                bool
	MaxSummaryLength               int // caps a Tier 2 ConsolidatedSummary.Summary's length
}

// SetDefaults fills zero-valued fields with the spec's documented defaults.
func (c *Config) SetDefaults() {
	if c.MaxWorkingMessages <= 0 {
		c.MaxWorkingMessages = 100
	}
	if c.MaxSummaries <= 0 {
		c.MaxSummaries = 10
	}
	if c.MinImportance <= 0 {
		c.MinImportance = 0.7
	}
	if c.RecentKeep <= 0 {
		c.RecentKeep = 10
	}
	if c.MaxMessagesBeforeConsolidation <= 0 {
		c.MaxMessagesBeforeConsolidation = c.MaxWorkingMessages
	}
	if c.ConsolidateInterval <= 0 {
		c.ConsolidateInterval = 24 * time.Hour
	}
	if c.MaxSummaryLength <= 0 {
		c.MaxSummaryLength = 500
	}
}
