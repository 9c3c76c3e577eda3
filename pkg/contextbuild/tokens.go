package contextbuild

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// charsPerToken gives the per-language character-to-token ratio used when an
// exact tiktoken encoding is unavailable or undesired (fast path for large
// scans). Each value is the inverse of a tokens-per-character ratio (code
// 0.3, JSON 0.35, prose 0.5), so a larger value yields fewer estimated
// tokens for the same text: code estimates below prose.
var charsPerToken = map[string]float64{
	"go": 1.0 / 0.3, "python": 1.0 / 0.3, "javascript": 1.0 / 0.3, "typescript": 1.0 / 0.3,
	"java": 1.0 / 0.3, "rust": 1.0 / 0.3, "c": 1.0 / 0.3, "cpp": 1.0 / 0.3, "ruby": 1.0 / 0.3,
	"json": 1.0 / 0.35, "markdown": 1.0 / 0.5, "text": 1.0 / 0.5, "": 1.0 / 0.4,
}

// TokenEstimator counts tokens for items in a TaskContext, grounded on the
// teacher's pkg/utils.TokenCounter: an exact tiktoken-go encoding cache with
// a cheap character-ratio fallback for inputs where exactness doesn't matter.
type TokenEstimator struct {
	mu        sync.Mutex
	encodings map[string]*tiktoken.Tiktoken
	encoding  string
}

// NewTokenEstimator creates an estimator using the named tiktoken encoding
// (e.g. "cl100k_base"); exact counting falls back to the ratio table if the
// encoding cannot be loaded.
func NewTokenEstimator(encoding string) *TokenEstimator {
	if encoding == "" {
		encoding = "cl100k_base"
	}
	return &TokenEstimator{encodings: make(map[string]*tiktoken.Tiktoken), encoding: encoding}
}

func (e *TokenEstimator) getEncoding() *tiktoken.Tiktoken {
	e.mu.Lock()
	defer e.mu.Unlock()

	if enc, ok := e.encodings[e.encoding]; ok {
		return enc
	}
	enc, err := tiktoken.GetEncoding(e.encoding)
	if err != nil {
		e.encodings[e.encoding] = nil
		return nil
	}
	e.encodings[e.encoding] = enc
	return enc
}

// Count returns the exact tiktoken count for text, or a char-ratio estimate
// for language if the encoding failed to load.
func (e *TokenEstimator) Count(text, language string) int {
	if enc := e.getEncoding(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return estimateByRatio(text, language)
}

// estimateByRatio is the dependency-free fallback: len(text) / charsPerToken.
func estimateByRatio(text, language string) int {
	ratio, ok := charsPerToken[language]
	if !ok {
		ratio = charsPerToken[""]
	}
	if ratio <= 0 {
		ratio = 4.0
	}
	return int(float64(len(text)) / ratio)
}

// EstimateTaskContext sums token counts across every included item.
func (e *TokenEstimator) EstimateTaskContext(tc TaskContext) int {
	total := 0
	for _, f := range tc.RelevantFiles {
		total += e.Count(f.Summary, f.Language)
		for _, l := range f.RelevantLines {
			total += e.Count(l, f.Language)
		}
	}
	for _, d := range tc.RelevantDocs {
		total += e.Count(d.Content, "markdown")
	}
	if tc.ConversationContext != "" {
		total += e.Count(tc.ConversationContext, "text")
	}
	return total
}
