package contextbuild

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenEstimator_CountIsPositiveForNonEmptyText(t *testing.T) {
	est := NewTokenEstimator("")
	count := est.Count("package main\n\nfunc main() {}\n", "go")
	assert.Greater(t, count, 0)
}

func TestEstimateByRatio_UsesLanguageTable(t *testing.T) {
	code := estimateByRatio("0123456789", "go")
	prose := estimateByRatio("0123456789", "markdown")
	assert.Less(t, code, prose) // code ratio 0.3 tokens per char, prose 0.5
}

func TestTokenEstimator_EstimateTaskContextSumsItems(t *testing.T) {
	est := NewTokenEstimator("")
	tc := TaskContext{
		RelevantFiles: []FileContext{{Summary: "some summary text", Language: "go", RelevantLines: []string{"line one", "line two"}}},
		RelevantDocs:  []DocSection{{Content: "doc content here"}},
	}
	total := est.EstimateTaskContext(tc)
	assert.Greater(t, total, 0)
}
