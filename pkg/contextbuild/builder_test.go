package contextbuild

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/assert"
)

func TestBuilder_Build_WiresScanAndCompression(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "router.go"),
		[]byte("package router\n\nfunc RecordTaskCompletion() {}\n"), 0o644))

	scanCfg := ScanConfig{CodebaseRoot: []string{root}}
	compressCfg := CompressionConfig{}
	builder := NewBuilder(scanCfg, compressCfg)

	tc, metrics, err := builder.Build("task-1", "Fix RecordTaskCompletion in the router", nil)
	require.NoError(t, err)
	assert.Equal(t, "task-1", tc.TaskID)
	assert.NotEmpty(t, tc.Keywords)
	assert.GreaterOrEqual(t, metrics.CompressedTokens, 0)
}
