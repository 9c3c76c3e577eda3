package contextbuild

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var languageByExt = map[string]string{
	".go": "go", ".py": "python", ".js": "javascript", ".ts": "typescript",
	".tsx": "typescript", ".jsx": "javascript", ".java": "java", ".rb": "ruby",
	".rs": "rust", ".c": "c", ".cc": "cpp", ".cpp": "cpp", ".h": "c", ".hpp": "cpp",
}

// ScanCodebase globs cfg.CodebaseRoot for cfg.SourcePatterns, skipping
// cfg.ExcludeDirs, and returns the top cfg.MaxFiles FileContexts ranked by
// the count of keyword-matching lines.
func ScanCodebase(cfg ScanConfig, keywords []string) ([]FileContext, error) {
	var matched []FileContext

	for _, root := range cfg.CodebaseRoot {
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil // best-effort: skip unreadable entries
			}
			if info.IsDir() {
				if isExcludedDir(info.Name(), cfg.ExcludeDirs) {
					return filepath.SkipDir
				}
				return nil
			}
			if !matchesAnyPattern(info.Name(), cfg.SourcePatterns) {
				return nil
			}

			fc, ok := scanFile(path, info, keywords)
			if ok {
				matched = append(matched, fc)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.SliceStable(matched, func(i, j int) bool { return matched[i].matchCount > matched[j].matchCount })
	if len(matched) > cfg.MaxFiles {
		matched = matched[:cfg.MaxFiles]
	}
	return matched, nil
}

func isExcludedDir(name string, excludes []string) bool {
	for _, ex := range excludes {
		if name == ex {
			return true
		}
	}
	return false
}

func matchesAnyPattern(name string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
	}
	return false
}

// scanFile reads path best-effort as UTF-8, collecting up to 20 keyword-hit
// lines and a heuristic 5-line summary (docstrings, top-level definitions,
// import lines, keyword-hit lines, in that preference order).
func scanFile(path string, info os.FileInfo, keywords []string) (FileContext, bool) {
	f, err := os.Open(path)
	if err != nil {
		return FileContext{}, false
	}
	defer f.Close()

	var hitLines []string
	var docLines, defLines, importLines []string
	matchCount := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if isImportLine(trimmed) && len(importLines) < 5 {
			importLines = append(importLines, trimmed)
		}
		if isDefinitionLine(trimmed) && len(defLines) < 5 {
			defLines = append(defLines, trimmed)
		}
		if isDocstringLine(trimmed) && len(docLines) < 5 {
			docLines = append(docLines, trimmed)
		}

		if keywordHitCount(line, keywords) > 0 {
			matchCount++
			if len(hitLines) < 20 {
				hitLines = append(hitLines, trimmed)
			}
		}
	}
	if matchCount == 0 {
		return FileContext{}, false
	}

	summary := buildFileSummary(docLines, defLines, importLines, hitLines)
	ext := filepath.Ext(path)

	return FileContext{
		FilePath:      path,
		Language:      languageByExt[ext],
		RelevantLines: hitLines,
		Summary:       summary,
		SizeBytes:     info.Size(),
		LastModified:  info.ModTime(),
		matchCount:    matchCount,
	}, true
}

// buildFileSummary picks the first 5 lines across docstrings, top-level
// definitions, imports, and keyword hits, in that priority order.
func buildFileSummary(docLines, defLines, importLines, hitLines []string) string {
	var out []string
	for _, group := range [][]string{docLines, defLines, importLines, hitLines} {
		for _, l := range group {
			if len(out) >= 5 {
				break
			}
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

func isImportLine(line string) bool {
	return strings.HasPrefix(line, "import ") || strings.HasPrefix(line, "from ") ||
		strings.HasPrefix(line, "require(") || strings.HasPrefix(line, "#include")
}

func isDefinitionLine(line string) bool {
	for _, prefix := range []string{"def ", "class ", "func ", "function ", "const ", "let ", "var ", "type "} {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

func isDocstringLine(line string) bool {
	return strings.HasPrefix(line, `"""`) || strings.HasPrefix(line, "'''") ||
		strings.HasPrefix(line, "//") || strings.HasPrefix(line, "/*") || strings.HasPrefix(line, "*")
}
