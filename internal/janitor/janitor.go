// Package janitor reclaims temp-directory space: a periodic sweep removes
// files orphaned by crashed runs, and a registry lets the process run every
// in-flight request's cleanup on shutdown.
package janitor

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

type Janitor struct {
	Dir      string
	MaxAge   time.Duration
	Interval time.Duration
	Log      zerolog.Logger
}

// Run sweeps on a fixed interval until the context is canceled.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			j.Sweep()
		case <-ctx.Done():
			return
		}
	}
}

// Sweep deletes every file under Dir whose modification time is older than
// MaxAge, then prunes stale empty directories. Modification time is the sole
// criterion, so files created by concurrent runs during the scan are safe.
// Per-entry errors are logged and skipped; the sweep always finishes.
func (j *Janitor) Sweep() (removed int) {
	cutoff := time.Now().Add(-j.MaxAge)

	err := filepath.WalkDir(j.Dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			j.Log.Warn().Err(err).Str("path", path).Msg("sweep: cannot access entry")
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			j.Log.Warn().Err(err).Str("path", path).Msg("sweep: cannot stat")
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				j.Log.Warn().Err(err).Str("path", path).Msg("sweep: cannot remove")
				return nil
			}
			removed++
			j.Log.Info().Str("path", path).Msg("sweep: removed stale file")
		}
		return nil
	})
	if err != nil {
		j.Log.Warn().Err(err).Msg("sweep: walk failed")
	}

	j.pruneEmptyDirs(cutoff)
	return removed
}

// pruneEmptyDirs removes WorkItem directories that are empty and stale.
func (j *Janitor) pruneEmptyDirs(cutoff time.Time) {
	entries, err := os.ReadDir(j.Dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		dir := filepath.Join(j.Dir, e.Name())
		sub, err := os.ReadDir(dir)
		if err != nil || len(sub) > 0 {
			continue
		}
		if err := os.Remove(dir); err != nil {
			j.Log.Warn().Err(err).Str("path", dir).Msg("sweep: cannot prune dir")
		}
	}
}
