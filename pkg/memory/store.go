package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Store binds the three memory tiers together and implements the hybrid
// retrieval and consolidation-trigger logic that sits above them. It is the
// package's single external entry point for writes and retrieval;
// Working, Summaries and Persistent expose the tiers for inspection.
type Store struct {
	mu    sync.Mutex
	cfg   Config
	clock func() time.Time

	working    *WorkingMemory
	summaries  *SummaryTier
	persistent *PersistentStore // optional: nil disables Tier 3 durability
	semantic   SemanticIndex    // optional: nil falls back to keywordOverlapScore

	summarizer Summarizer
	scorer     ImportanceScorer

	lastConsolidation  time.Time
	sinceConsolidation int
}

// Option configures optional Store dependencies.
type Option func(*Store)

// WithPersistentStore wires Tier 3 durability.
func WithPersistentStore(p *PersistentStore) Option {
	return func(s *Store) { s.persistent = p }
}

// WithSemanticIndex wires an embedded-vector semantic index.
func WithSemanticIndex(idx SemanticIndex) Option {
	return func(s *Store) { s.semantic = idx }
}

// WithSummarizer overrides the default HeuristicSummarizer.
func WithSummarizer(sum Summarizer) Option {
	return func(s *Store) { s.summarizer = sum }
}

// WithImportanceScorer overrides the default HeuristicScorer.
func WithImportanceScorer(sc ImportanceScorer) Option {
	return func(s *Store) { s.scorer = sc }
}

// NewStore builds a three-tier Store from cfg, applying SetDefaults first.
func NewStore(cfg Config, opts ...Option) *Store {
	cfg.SetDefaults()
	s := &Store{
		cfg:        cfg,
		clock:      time.Now,
		working:    NewWorkingMemory(cfg.MaxWorkingMessages),
		summaries:  NewSummaryTier(cfg.MaxSummaries),
		summarizer: HeuristicSummarizer{MaxLength: cfg.MaxSummaryLength},
		scorer:     HeuristicScorer{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastConsolidation = s.clock()
	return s
}

// Add records msg in the working tier (and, if configured, the persistent
// and semantic tiers), then checks whether consolidation should fire.
func (s *Store) Add(msg Message) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.clock()
	}

	s.working.Add(msg)

	if s.persistent != nil {
		if err := s.persistent.Insert(msg); err != nil {
			return err
		}
	}
	if s.semantic != nil {
		if err := s.semantic.Index(msg); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.sinceConsolidation++
	due := s.sinceConsolidation >= s.cfg.MaxMessagesBeforeConsolidation ||
		s.clock().Sub(s.lastConsolidation) >= s.cfg.ConsolidateInterval
	s.mu.Unlock()

	if due && s.cfg.AutoConsolidate {
		return s.Consolidate()
	}
	return nil
}

// Working exposes Tier 1 for direct inspection (checkpointing, tests).
func (s *Store) Working() *WorkingMemory { return s.working }

// Summaries exposes Tier 2 for direct inspection.
func (s *Store) Summaries() *SummaryTier { return s.summaries }

// Persistent exposes Tier 3, or nil if not configured.
func (s *Store) Persistent() *PersistentStore { return s.persistent }

// scoredMessage pairs a message with its retrieval-ranking score.
type scoredMessage struct {
	msg   Message
	score float64
}

// GetContext retrieves up to query.Limit messages ranked per query.Strategy.
// Candidates are drawn from the working tier plus, if IncludePersistent is
// set and Tier 3 is configured, the persistent log.
func (s *Store) GetContext(ctx context.Context, query ContextQuery) ([]Message, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = 20
	}

	candidates := s.working.Snapshot()
	if query.IncludePersistent && s.persistent != nil {
		recent, err := s.persistent.Recent(limit * 4)
		if err != nil {
			return nil, err
		}
		candidates = mergeByHash(candidates, recent)
	}

	filtered := candidates
	if query.MinImportance > 0 {
		filtered = filtered[:0]
		for _, msg := range candidates {
			if s.scorer.Score(msg) >= query.MinImportance {
				filtered = append(filtered, msg)
			}
		}
	}

	// "recent" takes the last N in insertion order directly — no scoring,
	// no query needed, per the retrieval strategy's documented contract.
	if query.Strategy == StrategyRecent || query.Strategy == "" {
		if len(filtered) > limit {
			filtered = filtered[len(filtered)-limit:]
		}
		out := make([]Message, len(filtered))
		for i := range filtered {
			out[i] = filtered[len(filtered)-1-i]
		}
		return out, nil
	}

	semanticRanks := s.semanticRanks(ctx, query)

	now := s.clock()
	scored := make([]scoredMessage, 0, len(filtered))
	for _, msg := range filtered {
		score := s.rank(query, msg, now, semanticRanks)
		if query.Strategy == StrategySemantic && score < 0.1 {
			continue
		}
		scored = append(scored, scoredMessage{msg: msg, score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if len(scored) > limit {
		scored = scored[:limit]
	}

	out := make([]Message, len(scored))
	for i, sm := range scored {
		out[i] = sm.msg
	}
	return out, nil
}

// GetThreeTierContext assembles the three-tier context-assembly operation:
// a single formatted string opening with the working tier's content under
// "=== IMMEDIATE CONTEXT ===", followed by Tier 2's summaries (most recent
// first) under "=== MID-TERM CONTEXT ===". When includePersistent is true
// and Tier 3 is configured, persistent messages are folded into the
// immediate section too, deduplicated against working memory by hash.
//
// Unlike GetContext, this is a display-assembly operation, not a ranked
// retrieval: it returns everything each tier currently holds rather than
// scoring and truncating to a limit.
func (s *Store) GetThreeTierContext(ctx context.Context, includePersistent bool) (string, error) {
	immediate := s.working.Snapshot()
	if includePersistent && s.persistent != nil {
		recent, err := s.persistent.Recent(s.cfg.MaxWorkingMessages)
		if err != nil {
			return "", err
		}
		immediate = mergeByHash(immediate, recent)
	}

	var b strings.Builder
	b.WriteString("=== IMMEDIATE CONTEXT ===\n")
	for _, msg := range immediate {
		fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
	}

	b.WriteString("=== MID-TERM CONTEXT ===\n")
	for _, summary := range s.summaries.Recent(0) {
		fmt.Fprintf(&b, "%s\n", summary.Summary)
	}

	return b.String(), nil
}

func (s *Store) rank(query ContextQuery, msg Message, now time.Time, semanticRanks map[string]float64) float64 {
	switch query.Strategy {
	case StrategyImportance:
		return s.scorer.Score(msg)
	case StrategySemantic:
		return s.semanticScore(semanticRanks, query.Query, msg)
	case StrategyHybrid:
		return 0.5*recencyScore(msg, now) + 0.3*s.semanticScore(semanticRanks, query.Query, msg) + 0.2*s.scorer.Score(msg)
	default:
		return recencyScore(msg, now)
	}
}

// semanticRanks consults the configured SemanticIndex once per GetContext
// call (rather than once per candidate message) and returns a message-hash
// to relevance-score map built from the index's own ranked order: the
// top-ranked result scores 1.0, decaying as 1/(rank+1). Returns nil when no
// SemanticIndex is configured or the query is empty, in which case
// semanticScore falls back to keywordOverlapScore per message.
func (s *Store) semanticRanks(ctx context.Context, query ContextQuery) map[string]float64 {
	if s.semantic == nil || query.Query == "" {
		return nil
	}
	if query.Strategy != StrategySemantic && query.Strategy != StrategyHybrid {
		return nil
	}
	results, err := s.semantic.Query(ctx, query.Query, 50)
	if err != nil || len(results) == 0 {
		return nil
	}
	ranks := make(map[string]float64, len(results))
	for i, msg := range results {
		ranks[msg.Hash()] = 1.0 / float64(i+1)
	}
	return ranks
}

// semanticScore blends into the hybrid ranking formula. When ranks is
// non-nil (a SemanticIndex is configured and answered this query), a
// candidate's score comes from that index's own ranking; a candidate the
// index didn't return scores 0 rather than falling back to keyword overlap,
// since the index was consulted and simply ranked it low. Only when no
// index is configured at all does keywordOverlapScore apply.
func (s *Store) semanticScore(ranks map[string]float64, query string, msg Message) float64 {
	if ranks != nil {
		return ranks[msg.Hash()]
	}
	if query == "" {
		return 0
	}
	return keywordOverlapScore(query, msg)
}

// recencyScore maps message age to (0, 1] as 1/(1+hours): 1.0 for a fresh
// message, 0.5 at one hour old, 1/3 at two hours.
func recencyScore(msg Message, now time.Time) float64 {
	age := now.Sub(msg.Timestamp)
	if age < 0 {
		age = 0
	}
	halfLife := time.Hour
	hl := float64(age) / float64(halfLife)
	return 1.0 / (1.0 + hl)
}

func mergeByHash(primary, secondary []Message) []Message {
	seen := make(map[string]struct{}, len(primary))
	for _, m := range primary {
		seen[m.Hash()] = struct{}{}
	}
	out := make([]Message, len(primary), len(primary)+len(secondary))
	copy(out, primary)
	for _, m := range secondary {
		if _, ok := seen[m.Hash()]; ok {
			continue
		}
		seen[m.Hash()] = struct{}{}
		out = append(out, m)
	}
	return out
}
