package contextbuild

import "strings"

// ExtractConversationContext selects up to 10 keyword-matching messages from
// the most recent 20 in messages, and joins up to 5 of them into a single
// summary string formatted as "role: content[:200]".
func ExtractConversationContext(messages []ConversationMessage, keywords []string) string {
	if len(messages) == 0 || len(keywords) == 0 {
		return ""
	}

	window := messages
	if len(window) > 20 {
		window = window[len(window)-20:]
	}

	var matched []ConversationMessage
	for _, msg := range window {
		if keywordHitCount(msg.Content, keywords) > 0 {
			matched = append(matched, msg)
			if len(matched) >= 10 {
				break
			}
		}
	}
	if len(matched) == 0 {
		return ""
	}
	if len(matched) > 5 {
		matched = matched[:5]
	}

	parts := make([]string, len(matched))
	for i, msg := range matched {
		content := msg.Content
		if len(content) > 200 {
			content = content[:200]
		}
		parts[i] = msg.Role + ": " + content
	}
	return strings.Join(parts, "\n")
}
