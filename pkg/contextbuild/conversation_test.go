package contextbuild

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractConversationContext_FiltersAndCaps(t *testing.T) {
	var messages []ConversationMessage
	for i := 0; i < 8; i++ {
		messages = append(messages, ConversationMessage{Role: "user", Content: "authentication flow needs review"})
	}
	for i := 0; i < 8; i++ {
		messages = append(messages, ConversationMessage{Role: "assistant", Content: "unrelated content here"})
	}

	out := ExtractConversationContext(messages, []string{"authentication"})
	assert.True(t, strings.Contains(out, "authentication"))
	assert.LessOrEqual(t, strings.Count(out, "\n")+1, 5)
}

func TestExtractConversationContext_EmptyWithoutMatches(t *testing.T) {
	messages := []ConversationMessage{{Role: "user", Content: "nothing relevant"}}
	out := ExtractConversationContext(messages, []string{"authentication"})
	assert.Empty(t, out)
}
