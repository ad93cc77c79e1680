package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetBeforeInitializeIsNop(t *testing.T) {
	log := Get(CategoryProvider)
	require.NotNil(t, log)
	// Must not panic or create files.
	log.Info("dropped")
}

func TestInitializeWritesToFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Initialize(Options{Dir: dir, Debug: true}))
	t.Cleanup(func() { _ = Close() })

	Get(CategoryWorkflow).Info("hello")
	Sync()

	data, err := os.ReadFile(filepath.Join(dir, "weaklog.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
	assert.Contains(t, string(data), "workflow")
}

func TestInitializeRequiresDir(t *testing.T) {
	assert.Error(t, Initialize(Options{}))
}
