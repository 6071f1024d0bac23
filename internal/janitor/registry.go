package janitor

import (
	"sync"

	"github.com/rs/zerolog"
)

// Registry tracks the cleanup function of every in-flight WorkItem so a
// terminating process can reclaim their files in one pass.
type Registry struct {
	mu       sync.Mutex
	cleanups map[string]func() error
}

func NewRegistry() *Registry {
	return &Registry{cleanups: make(map[string]func() error)}
}

func (r *Registry) Add(id string, cleanup func() error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleanups[id] = cleanup
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cleanups, id)
}

// CleanupAll runs every registered cleanup, best effort, and empties the
// registry. Used on shutdown.
func (r *Registry) CleanupAll(log zerolog.Logger) {
	r.mu.Lock()
	cleanups := r.cleanups
	r.cleanups = make(map[string]func() error)
	r.mu.Unlock()

	for id, fn := range cleanups {
		if err := fn(); err != nil {
			log.Warn().Err(err).Str("req", id).Msg("shutdown cleanup failed")
		}
	}
}
