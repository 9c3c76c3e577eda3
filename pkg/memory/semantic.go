package memory

import (
	"context"
	"strings"

	"github.com/philippgille/chromem-go"

	"github.com/orchestr8/taskflow/internal/errs"
)

// SemanticIndex ranks messages by relevance to a free-text query. The
// embedded-vector implementation below is optional: callers that don't wire
// one get keywordOverlapScore, a dependency-free fallback used by the
// hybrid/semantic retrieval strategies.
type SemanticIndex interface {
	Index(msg Message) error
	Query(ctx context.Context, query string, limit int) ([]Message, error)
}

// ChromemIndex is a SemanticIndex backed by an in-process chromem-go vector
// collection, grounded on the teacher's go.mod pull of chromem-go for
// lightweight embedded retrieval (no external vector DB dependency).
type ChromemIndex struct {
	collection *chromem.Collection
	byID       map[string]Message
}

// NewChromemIndex creates an in-memory chromem-go collection using the
// library's default embedding function (a nil embedding func), which calls
// an external embedding service when documents are added or queried.
func NewChromemIndex(collectionName string) (*ChromemIndex, error) {
	db := chromem.NewDB()
	col, err := db.CreateCollection(collectionName, "", nil)
	if err != nil {
		return nil, errs.New("memory.ChromemIndex", "NewChromemIndex", errs.KindMemoryIO, "failed to create collection", err)
	}
	return &ChromemIndex{collection: col, byID: make(map[string]Message)}, nil
}

// Index adds msg to the vector collection, keyed by its dedup hash.
func (c *ChromemIndex) Index(msg Message) error {
	id := msg.Hash()
	if _, exists := c.byID[id]; exists {
		return nil
	}
	doc := chromem.Document{
		ID:      id,
		Content: msg.Content,
		Metadata: map[string]string{
			"role":     string(msg.Role),
			"agent_id": msg.AgentID,
			"task_id":  msg.TaskID,
		},
	}
	if err := c.collection.AddDocument(context.Background(), doc); err != nil {
		return errs.New("memory.ChromemIndex", "Index", errs.KindMemoryIO, "failed to add document", err)
	}
	c.byID[id] = msg
	return nil
}

// Query returns the limit messages whose embeddings best match query.
func (c *ChromemIndex) Query(ctx context.Context, query string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 10
	}
	if c.collection.Count() == 0 {
		return nil, nil
	}
	if limit > c.collection.Count() {
		limit = c.collection.Count()
	}
	results, err := c.collection.Query(ctx, query, limit, nil, nil)
	if err != nil {
		return nil, errs.New("memory.ChromemIndex", "Query", errs.KindMemoryIO, "query failed", err)
	}
	out := make([]Message, 0, len(results))
	for _, r := range results {
		if msg, ok := c.byID[r.ID]; ok {
			out = append(out, msg)
		}
	}
	return out, nil
}

// keywordOverlapScore is the dependency-free semantic fallback: the fraction
// of query terms that appear (case-insensitively) in the message content.
// Used by the hybrid retrieval strategy when no SemanticIndex is configured.
func keywordOverlapScore(query string, msg Message) float64 {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return 0
	}
	content := strings.ToLower(msg.Content)
	hits := 0
	for _, t := range terms {
		if strings.Contains(content, t) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}
