package pipeline_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/you/ytb2mp3/internal/pipeline"
)

func TestWorkItem_CleanupIdempotent(t *testing.T) {
	tempDir := t.TempDir()
	wi, err := pipeline.NewWorkItem(tempDir, "01REQ", 128)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(wi.Dir, "a.mp3"), []byte("x"), 0o644))

	require.NoError(t, wi.Cleanup())
	require.NoDirExists(t, wi.Dir)

	// second call on already-clean state is a no-op
	require.NoError(t, wi.Cleanup())
}

func TestWorkItem_RemoveSource(t *testing.T) {
	wi, err := pipeline.NewWorkItem(t.TempDir(), "01REQ", 128)
	require.NoError(t, err)

	// nothing downloaded yet
	require.NoError(t, wi.RemoveSource())

	src := filepath.Join(wi.Dir, "source.webm")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))
	wi.SourcePath = src

	require.NoError(t, wi.RemoveSource())
	require.NoFileExists(t, src)
	require.Empty(t, wi.SourcePath)

	// already gone
	require.NoError(t, wi.RemoveSource())
}
