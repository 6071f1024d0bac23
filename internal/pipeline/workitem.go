package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
)

// WorkItem is the per-request scratch state. Every file a request creates
// lives under Dir, which is private to this request, so cleanup is a single
// idempotent RemoveAll.
type WorkItem struct {
	ID         string
	Dir        string
	SourcePath string
	AudioPath  string
	Bitrate    int
	Size       int64
}

// NewWorkItem allocates the request-scoped temp directory.
func NewWorkItem(tempDir, id string, bitrate int) (*WorkItem, error) {
	dir := filepath.Join(tempDir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	return &WorkItem{ID: id, Dir: dir, Bitrate: bitrate}, nil
}

// RemoveSource deletes the downloaded source file; it is never needed once
// the transcode succeeds.
func (w *WorkItem) RemoveSource() error {
	if w.SourcePath == "" {
		return nil
	}
	err := os.Remove(w.SourcePath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	w.SourcePath = ""
	return nil
}

// Cleanup removes everything this WorkItem created. Safe to call any number
// of times, including on an already-clean state.
func (w *WorkItem) Cleanup() error {
	return os.RemoveAll(w.Dir)
}
