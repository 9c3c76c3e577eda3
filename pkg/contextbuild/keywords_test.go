package contextbuild

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractKeywords_MixedIdentifierForms(t *testing.T) {
	desc := `Fix the bug in pkg/router/router.go where RecordTaskCompletion and
	compute_score use a stale "success-rate" cache and the port 8080 config.`

	keywords := ExtractKeywords(desc)

	assert.Contains(t, keywords, "pkg/router/router.go")
	assert.Contains(t, keywords, "RecordTaskCompletion")
	assert.Contains(t, keywords, "compute_score")
	assert.Contains(t, keywords, "success-rate")
}

func TestExtractKeywords_DropsStopWordsAndShortTokens(t *testing.T) {
	keywords := ExtractKeywords("the and for with that this from are")
	assert.Empty(t, keywords)
}

func TestExtractKeywords_CapsAtTwenty(t *testing.T) {
	desc := ""
	for i := 0; i < 30; i++ {
		desc += "identifier_number_" + string(rune('a'+i%26)) + " "
	}
	keywords := ExtractKeywords(desc)
	assert.LessOrEqual(t, len(keywords), 20)
}
