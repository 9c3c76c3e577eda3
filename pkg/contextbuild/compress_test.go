package contextbuild

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCompressor_StopsEarlyWhenAlreadyUnderBudget(t *testing.T) {
	est := NewTokenEstimator("")
	c := NewCompressor(est)
	tc := TaskContext{RelevantFiles: []FileContext{{FilePath: "a.go", Summary: "tiny", Language: "go"}}}
	cfg := CompressionConfig{MaxTokens: 100000, TargetRatio: 0.8}
	cfg.SetDefaults()

	out, metrics := c.Compress(tc, cfg, []string{"tiny"}, fixedClock(time.Now()))
	require.Len(t, out.RelevantFiles, 1)
	assert.False(t, metrics.Overflowed)
	assert.Equal(t, 0, metrics.ItemsRemoved)
}

func TestCompressor_RelevanceDropsLowestScoringFiles(t *testing.T) {
	est := NewTokenEstimator("")
	c := NewCompressor(est)

	now := time.Now()
	var files []FileContext
	for i := 0; i < 10; i++ {
		files = append(files, FileContext{
			FilePath:     "file.go",
			Summary:      repeatWord("widget_keyword relevant text body filler content ", 40),
			Language:     "go",
			LastModified: now,
			SizeBytes:    100,
		})
	}
	tc := TaskContext{RelevantFiles: files}
	cfg := CompressionConfig{MaxTokens: 50, TargetRatio: 0.5, Strategies: []string{"relevance"}}

	out, metrics := c.Compress(tc, cfg, []string{"widget_keyword"}, fixedClock(now))
	assert.Less(t, len(out.RelevantFiles), len(files))
	assert.Greater(t, metrics.ItemsRemoved, 0)
}

func TestCompressor_DeduplicateMergesIdenticalPaths(t *testing.T) {
	est := NewTokenEstimator("")
	c := NewCompressor(est)
	tc := TaskContext{RelevantFiles: []FileContext{
		{FilePath: "dup.go", RelevantLines: []string{"a", "b", "c"}},
		{FilePath: "dup.go", RelevantLines: []string{"a", "b", "c"}},
	}}
	out := c.applyDeduplicate(tc)
	assert.Len(t, out.RelevantFiles, 1)
}

func repeatWord(word string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += word
	}
	return out
}
