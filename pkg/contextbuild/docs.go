package contextbuild

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var headingPattern = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)

const docWindowLines = 5 // ±N lines of context around a keyword hit

// ScanDocs walks docsRoot for .md/.txt files and returns the top cfg.MaxDocs
// DocSections ranked by keyword_matches / |keywords|.
func ScanDocs(cfg ScanConfig, keywords []string) ([]DocSection, error) {
	if cfg.DocsRoot == "" || len(keywords) == 0 {
		return nil, nil
	}

	var sections []DocSection
	err := filepath.Walk(cfg.DocsRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if isExcludedDir(info.Name(), cfg.ExcludeDirs) {
				return filepath.SkipDir
			}
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".md" && ext != ".txt" {
			return nil
		}
		found, serr := scanDocFile(path, keywords)
		if serr != nil {
			return nil // best-effort
		}
		sections = append(sections, found...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(sections, func(i, j int) bool { return sections[i].RelevanceScore > sections[j].RelevanceScore })
	if len(sections) > cfg.MaxDocs {
		sections = sections[:cfg.MaxDocs]
	}
	return sections, nil
}

// scanDocFile extracts up to 3 keyword-hit windows from a single file,
// titled by the nearest preceding Markdown heading.
func scanDocFile(path string, keywords []string) ([]DocSection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	var headingForLine []string // heading text in effect at each line index
	var levelForLine []int

	currentHeading := ""
	currentLevel := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if m := headingPattern.FindStringSubmatch(line); m != nil {
			currentLevel = len(m[1])
			currentHeading = strings.TrimSpace(m[2])
		}
		lines = append(lines, line)
		headingForLine = append(headingForLine, currentHeading)
		levelForLine = append(levelForLine, currentLevel)
	}

	type hit struct{ idx, count int }
	var hits []hit
	for i, line := range lines {
		if c := keywordHitCount(line, keywords); c > 0 {
			hits = append(hits, hit{idx: i, count: c})
		}
	}
	if len(hits) == 0 {
		return nil, nil
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].count > hits[j].count })
	if len(hits) > 3 {
		hits = hits[:3]
	}

	var out []DocSection
	for _, h := range hits {
		start := h.idx - docWindowLines
		if start < 0 {
			start = 0
		}
		end := h.idx + docWindowLines + 1
		if end > len(lines) {
			end = len(lines)
		}
		content := strings.Join(lines[start:end], "\n")

		out = append(out, DocSection{
			SectionPath:    path + "#" + strconv.Itoa(h.idx),
			Title:          headingForLine[h.idx],
			Content:        content,
			RelevanceScore: float64(h.count) / float64(len(keywords)),
			HeadingLevel:   levelForLine[h.idx],
		})
	}
	return out, nil
}
