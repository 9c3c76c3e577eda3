package contextbuild

import (
	"regexp"
	"sort"
	"strings"
)

var (
	filePathPattern   = regexp.MustCompile(`[\w./\\-]+\.(go|py|js|ts|tsx|jsx|java|rb|rs|c|cc|cpp|h|hpp|md|yaml|yml|json)\b`)
	pascalCasePattern = regexp.MustCompile(`\b[A-Z][a-z0-9]+(?:[A-Z][a-z0-9]+)+\b`)
	camelCasePattern  = regexp.MustCompile(`\b[a-z]+(?:[A-Z][a-z0-9]+)+\b`)
	snakeCasePattern  = regexp.MustCompile(`\b[a-z][a-z0-9]*(?:_[a-z0-9]+)+\b`)
	hyphenPattern     = regexp.MustCompile(`\b[a-z][a-z0-9]*(?:-[a-z0-9]+)+\b`)
	quotedPattern     = regexp.MustCompile(`"([^"]{3,})"|'([^']{3,})'`)
	numericPattern    = regexp.MustCompile(`\b\d{2,6}\b`)
)

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "that": {}, "this": {},
	"from": {}, "are": {}, "was": {}, "were": {}, "have": {}, "has": {},
	"but": {}, "not": {}, "you": {}, "all": {}, "can": {}, "will": {},
	"into": {}, "about": {}, "when": {}, "than": {}, "then": {}, "them": {},
}

// ExtractKeywords pulls candidate identifiers, paths, and literals out of a
// task description: file paths, PascalCase/camelCase/snake_case/hyphenated
// identifiers, quoted substrings, and small numeric literals. Stop-words and
// tokens shorter than three characters are dropped; the top 20 survivors by
// length are returned (longer tokens are assumed more specific).
func ExtractKeywords(description string) []string {
	seen := make(map[string]struct{})
	var candidates []string

	add := func(matches []string) {
		for _, m := range matches {
			m = strings.TrimSpace(m)
			if len(m) < 3 {
				continue
			}
			lower := strings.ToLower(m)
			if _, stop := stopWords[lower]; stop {
				continue
			}
			if _, dup := seen[lower]; dup {
				continue
			}
			seen[lower] = struct{}{}
			candidates = append(candidates, m)
		}
	}

	add(filePathPattern.FindAllString(description, -1))
	add(pascalCasePattern.FindAllString(description, -1))
	add(camelCasePattern.FindAllString(description, -1))
	add(snakeCasePattern.FindAllString(description, -1))
	add(hyphenPattern.FindAllString(description, -1))

	for _, m := range quotedPattern.FindAllStringSubmatch(description, -1) {
		for _, g := range m[1:] {
			if g != "" {
				add([]string{g})
			}
		}
	}
	add(numericPattern.FindAllString(description, -1))

	sort.SliceStable(candidates, func(i, j int) bool { return len(candidates[i]) > len(candidates[j]) })
	if len(candidates) > 20 {
		candidates = candidates[:20]
	}
	return candidates
}

// keywordHitCount counts how many keywords appear (case-insensitively) in s.
func keywordHitCount(s string, keywords []string) int {
	lower := strings.ToLower(s)
	count := 0
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			count++
		}
	}
	return count
}
