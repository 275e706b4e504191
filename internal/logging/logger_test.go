package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesJSONFile(t *testing.T) {
	dir := t.TempDir()

	logger, err := New("test", dir)
	require.NoError(t, err)

	logger.Debug("positions generated")
	_ = logger.Sync()

	files, err := filepath.Glob(filepath.Join(dir, "test_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	body, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(body), `"msg":"positions generated"`)
}

func TestNew_ConsoleOnly(t *testing.T) {
	logger, err := New("test", "")
	require.NoError(t, err)
	assert.NotNil(t, logger)
}
