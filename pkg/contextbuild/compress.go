package contextbuild

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

// Compressor runs the ordered compression pipeline against a TaskContext
// until it fits a token budget, reporting what it removed and how close it
// got.
type Compressor struct {
	estimator *TokenEstimator
}

// NewCompressor builds a Compressor using estimator for token counts.
func NewCompressor(estimator *TokenEstimator) *Compressor {
	return &Compressor{estimator: estimator}
}

// Compress applies cfg.Strategies in order — stopping as soon as the
// estimated size is at or under the target budget — and returns the
// compressed context alongside metrics describing the pass.
func (c *Compressor) Compress(tc TaskContext, cfg CompressionConfig, keywords []string, clock func() time.Time) (TaskContext, CompressionMetrics) {
	start := clock()
	originalTokens := c.estimator.EstimateTaskContext(tc)
	target := cfg.TargetTokens()

	originalItems := len(tc.RelevantFiles) + len(tc.RelevantDocs)
	result := tc

	for _, strategy := range cfg.Strategies {
		if c.estimator.EstimateTaskContext(result) <= target {
			break
		}
		switch strategy {
		case "relevance":
			result = c.applyRelevance(result, keywords, target)
		case "extractive":
			result = c.applyExtractive(result, keywords)
		case "code_summary":
			result = c.applyCodeSummary(result)
		case "deduplicate":
			result = c.applyDeduplicate(result)
		}
	}

	compressedTokens := c.estimator.EstimateTaskContext(result)
	compressedItems := len(result.RelevantFiles) + len(result.RelevantDocs)

	ratio := 1.0
	if originalTokens > 0 {
		ratio = float64(compressedTokens) / float64(originalTokens)
	}

	metrics := CompressionMetrics{
		OriginalTokens:   originalTokens,
		CompressedTokens: compressedTokens,
		Ratio:            ratio,
		ItemsRemoved:     originalItems - compressedItems,
		ItemsKept:        compressedItems,
		Elapsed:          clock().Sub(start),
		QualityScore:     meanRelevance(result, keywords),
		Overflowed:       compressedTokens > cfg.MaxTokens,
	}
	result.TotalTokens = compressedTokens
	return result, metrics
}

// applyRelevance scores files/docs by keyword-match-count × recency ×
// inverse-size, then drops the lowest scorers until the context fits the
// target budget (always keeping at least one of each present category).
func (c *Compressor) applyRelevance(tc TaskContext, keywords []string, target int) TaskContext {
	now := time.Now()

	fileScores := make([]itemScore, len(tc.RelevantFiles))
	for i, f := range tc.RelevantFiles {
		fileScores[i] = itemScore{idx: i, score: relevanceScore(keywordHitCount(f.Summary, keywords), f.LastModified, f.SizeBytes, now)}
	}
	sort.SliceStable(fileScores, func(i, j int) bool { return fileScores[i].score > fileScores[j].score })

	docScores := make([]itemScore, len(tc.RelevantDocs))
	for i, d := range tc.RelevantDocs {
		docScores[i] = itemScore{idx: i, score: d.RelevanceScore}
	}
	sort.SliceStable(docScores, func(i, j int) bool { return docScores[i].score > docScores[j].score })

	files := reorderFiles(tc.RelevantFiles, fileScores)
	docs := reorderDocs(tc.RelevantDocs, docScores)

	for c.estimator.EstimateTaskContext(TaskContext{RelevantFiles: files, RelevantDocs: docs}) > target {
		if len(files) > 1 {
			files = files[:len(files)-1]
			continue
		}
		if len(docs) > 1 {
			docs = docs[:len(docs)-1]
			continue
		}
		break
	}

	tc.RelevantFiles = files
	tc.RelevantDocs = docs
	return tc
}

func relevanceScore(matches int, modTime time.Time, sizeBytes int64, now time.Time) float64 {
	ageHours := now.Sub(modTime).Hours()
	if ageHours < 0 {
		ageHours = 0
	}
	recency := 1.0 / (1.0 + ageHours/24.0)
	inverseSize := 1.0 / (1.0 + float64(sizeBytes)/1000.0)
	return float64(matches) * recency * inverseSize
}

// itemScore pairs a source index with its computed relevance score, used to
// reorder files/docs without duplicating sort state per collection.
type itemScore struct {
	idx   int
	score float64
}

func reorderFiles(files []FileContext, scores []itemScore) []FileContext {
	out := make([]FileContext, len(scores))
	for i, s := range scores {
		out[i] = files[s.idx]
	}
	return out
}

func reorderDocs(docs []DocSection, scores []itemScore) []DocSection {
	out := make([]DocSection, len(scores))
	for i, s := range scores {
		out[i] = docs[s.idx]
	}
	return out
}

var sentenceSplit = regexp.MustCompile(`(?:\r?\n)+|(?:\.\s+)`)

// applyExtractive scores sentences within each item's content by keyword
// count and word-length preference (10-30 words), keeping the top 5 in
// their original order.
func (c *Compressor) applyExtractive(tc TaskContext, keywords []string) TaskContext {
	for i, f := range tc.RelevantFiles {
		tc.RelevantFiles[i].RelevantLines = topSentences(strings.Join(f.RelevantLines, "\n"), keywords, 5)
	}
	for i, d := range tc.RelevantDocs {
		tc.RelevantDocs[i].Content = strings.Join(topSentences(d.Content, keywords, 5), "\n")
	}
	return tc
}

func topSentences(text string, keywords []string, n int) []string {
	sentences := sentenceSplit.Split(text, -1)
	type scored struct {
		idx   int
		text  string
		score float64
	}
	var ranked []scored
	for i, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		wordCount := len(strings.Fields(s))
		lengthBonus := 0.0
		if wordCount >= 10 && wordCount <= 30 {
			lengthBonus = 1.0
		}
		score := float64(keywordHitCount(s, keywords))*2.0 + lengthBonus
		ranked = append(ranked, scored{idx: i, text: s, score: score})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].idx < ranked[j].idx })

	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.text
	}
	return out
}

var signaturePatterns = []string{
	"def ", "class ", "func ", "function ", "const ", "let ", "var ", "type ",
	"@", "import ", "from ", "export ",
}

// applyCodeSummary replaces each file's retained content with signature
// lines only (definitions, decorators, imports, arrow functions), capped at
// 20 lines.
func (c *Compressor) applyCodeSummary(tc TaskContext) TaskContext {
	for i, f := range tc.RelevantFiles {
		var sigs []string
		for _, line := range f.RelevantLines {
			trimmed := strings.TrimSpace(line)
			if isSignatureLine(trimmed) {
				sigs = append(sigs, trimmed)
			}
			if len(sigs) >= 20 {
				break
			}
		}
		if len(sigs) > 0 {
			tc.RelevantFiles[i].RelevantLines = sigs
		}
	}
	return tc
}

func isSignatureLine(line string) bool {
	for _, p := range signaturePatterns {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return strings.Contains(line, "=>") // arrow functions
}

// applyDeduplicate merges items with identical file paths, then items whose
// first three content lines match exactly.
func (c *Compressor) applyDeduplicate(tc TaskContext) TaskContext {
	seenPaths := make(map[string]struct{})
	var files []FileContext
	for _, f := range tc.RelevantFiles {
		if _, dup := seenPaths[f.FilePath]; dup {
			continue
		}
		seenPaths[f.FilePath] = struct{}{}
		files = append(files, f)
	}

	seenSignatures := make(map[string]struct{})
	var deduped []FileContext
	for _, f := range files {
		sig := contentSignature(strings.Join(f.RelevantLines, "\n"))
		if _, dup := seenSignatures[sig]; dup {
			continue
		}
		seenSignatures[sig] = struct{}{}
		deduped = append(deduped, f)
	}
	tc.RelevantFiles = deduped

	seenDocSig := make(map[string]struct{})
	var docs []DocSection
	for _, d := range tc.RelevantDocs {
		sig := contentSignature(d.Content)
		if _, dup := seenDocSig[sig]; dup {
			continue
		}
		seenDocSig[sig] = struct{}{}
		docs = append(docs, d)
	}
	tc.RelevantDocs = docs
	return tc
}

func contentSignature(content string) string {
	lines := strings.Split(content, "\n")
	if len(lines) > 3 {
		lines = lines[:3]
	}
	return strings.Join(lines, "\n")
}

func meanRelevance(tc TaskContext, keywords []string) float64 {
	count := len(tc.RelevantFiles) + len(tc.RelevantDocs)
	if count == 0 {
		return 0
	}
	total := 0.0
	for _, f := range tc.RelevantFiles {
		total += float64(keywordHitCount(f.Summary, keywords))
	}
	for _, d := range tc.RelevantDocs {
		total += d.RelevanceScore
	}
	return total / float64(count)
}
