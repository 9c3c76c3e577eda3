// Package contextbuild implements keyword extraction, codebase/doc scanning,
// conversation-context extraction, token estimation, and multi-strategy
// compression — the pieces that assemble a TaskContext for a Goal before the
// workflow engine decomposes it into a Workflow.
//
// Grounded on the teacher's pkg/utils/tokens.go for token estimation and its
// pkg/context (RAG/document-store) package for scan/chunk/rank structure,
// generalized from vector-store indexing to the keyword-scored scan and
// compression pipeline described for this system.
package contextbuild

import "time"

// FileContext is a ranked, keyword-matched source file.
type FileContext struct {
	FilePath      string
	Language      string
	RelevantLines []string
	Summary       string
	SizeBytes     int64
	LastModified  time.Time

	matchCount int // internal ranking key, not part of the external shape
}

// DocSection is a ranked, keyword-matched documentation excerpt.
type DocSection struct {
	SectionPath    string
	Title          string
	Content        string
	RelevanceScore float64
	HeadingLevel   int
}

// ConversationMessage is the minimal shape contextbuild needs from a prior
// turn; callers adapt from whatever message type they hold (e.g.
// memory.Message) rather than this package importing pkg/memory.
type ConversationMessage struct {
	Role    string
	Content string
}

// TaskContext is the context builder's output, consulted by the workflow
// engine when decomposing a Goal.
type TaskContext struct {
	TaskID              string
	TaskDescription     string
	RelevantFiles       []FileContext
	RelevantDocs        []DocSection
	ConversationContext string
	TotalTokens         int
	Keywords            []string
}

// ScanConfig configures the codebase/doc scan.
type ScanConfig struct {
	CodebaseRoot     []string
	DocsRoot         string
	SourcePatterns   []string
	ExcludeDirs      []string
	MaxFiles         int
	MaxDocs          int
	MaxContextTokens int
}

// SetDefaults fills zero-valued fields with documented defaults.
func (c *ScanConfig) SetDefaults() {
	if len(c.SourcePatterns) == 0 {
		c.SourcePatterns = []string{"*.go", "*.py", "*.js", "*.ts", "*.java", "*.rb", "*.rs", "*.c", "*.cpp", "*.h"}
	}
	if len(c.ExcludeDirs) == 0 {
		c.ExcludeDirs = []string{"node_modules", ".git", "__pycache__", "venv", "dist", "build", "target", ".venv", "vendor"}
	}
	if c.MaxFiles <= 0 {
		c.MaxFiles = 10
	}
	if c.MaxDocs <= 0 {
		c.MaxDocs = 10
	}
	if c.MaxContextTokens <= 0 {
		c.MaxContextTokens = 8000
	}
}

// CompressionConfig configures the compression pipeline.
type CompressionConfig struct {
	MaxTokens   int
	TargetRatio float64
	Strategies  []string
}

// SetDefaults fills zero-valued fields with documented defaults.
func (c *CompressionConfig) SetDefaults() {
	if c.MaxTokens <= 0 {
		c.MaxTokens = 8000
	}
	if c.TargetRatio <= 0 {
		c.TargetRatio = 0.8
	}
	if len(c.Strategies) == 0 {
		c.Strategies = []string{"relevance", "extractive", "code_summary", "deduplicate"}
	}
}

// TargetTokens is the compression budget derived from MaxTokens and TargetRatio.
func (c CompressionConfig) TargetTokens() int {
	return int(float64(c.MaxTokens) * c.TargetRatio)
}

// CompressionMetrics reports the outcome of a compression pass.
type CompressionMetrics struct {
	OriginalTokens  int
	CompressedTokens int
	Ratio           float64
	ItemsRemoved    int
	ItemsKept       int
	Elapsed         time.Duration
	QualityScore    float64 // mean relevance of retained items
	Overflowed      bool    // true if CompressedTokens still exceeds MaxTokens
}
