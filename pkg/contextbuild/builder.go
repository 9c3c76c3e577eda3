package contextbuild

import "time"

// Builder assembles a TaskContext from a task description, the configured
// codebase/docs roots, and recent conversation turns, then compresses it to
// fit the configured token budget.
type Builder struct {
	scanCfg     ScanConfig
	compressCfg CompressionConfig
	estimator   *TokenEstimator
	compressor  *Compressor
	clock       func() time.Time
}

// NewBuilder wires a Builder from its two configuration surfaces.
func NewBuilder(scanCfg ScanConfig, compressCfg CompressionConfig) *Builder {
	scanCfg.SetDefaults()
	compressCfg.SetDefaults()
	estimator := NewTokenEstimator("")
	return &Builder{
		scanCfg:     scanCfg,
		compressCfg: compressCfg,
		estimator:   estimator,
		compressor:  NewCompressor(estimator),
		clock:       time.Now,
	}
}

// Build extracts keywords from description, scans the codebase and docs
// roots, folds in conversation context, estimates tokens, and compresses
// the result to the configured budget.
func (b *Builder) Build(taskID, description string, conversation []ConversationMessage) (TaskContext, CompressionMetrics, error) {
	keywords := ExtractKeywords(description)

	files, err := ScanCodebase(b.scanCfg, keywords)
	if err != nil {
		return TaskContext{}, CompressionMetrics{}, err
	}
	docs, err := ScanDocs(b.scanCfg, keywords)
	if err != nil {
		return TaskContext{}, CompressionMetrics{}, err
	}

	tc := TaskContext{
		TaskID:              taskID,
		TaskDescription:     description,
		RelevantFiles:       files,
		RelevantDocs:        docs,
		ConversationContext: ExtractConversationContext(conversation, keywords),
		Keywords:            keywords,
	}
	tc.TotalTokens = b.estimator.EstimateTaskContext(tc)

	compressed, metrics := b.compressor.Compress(tc, b.compressCfg, keywords, b.clock)
	return compressed, metrics, nil
}
