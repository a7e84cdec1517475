package cache

import (
	"os"
	"sync"

	"github.com/rs/zerolog/log"

	"squeezerun/internal/config"
)

// Registry owns the engine's cold-store mirrors. It is created with the
// engine, handed to the provider façades, and flushed at teardown. There
// are no process-global caches.
type Registry struct {
	mu      sync.Mutex
	dataDir string
	skip    bool
	redis   string
	mirrors map[string]Mirror
}

// NewRegistry creates the registry rooted at dataDir. Disk writes are
// disabled by SKIP_CACHE_WRITES; SQUEEZE_REDIS_ADDR switches mirrors to a
// shared redis cold store.
func NewRegistry(dataDir string) *Registry {
	return &Registry{
		dataDir: dataDir,
		skip:    config.SkipCacheWrites(),
		redis:   os.Getenv(config.EnvRedisAddr),
		mirrors: make(map[string]Mirror),
	}
}

// Mirror returns the cold store for one provider, creating it on first
// use. Returns nil when cold storage is disabled entirely.
func (r *Registry) Mirror(name string) Mirror {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.mirrors[name]; ok {
		return m
	}

	var m Mirror
	if r.redis != "" {
		m = NewRedisMirror(r.redis, "squeezerun:"+name)
	} else {
		m = NewDiskMirror(r.dataDir, name, r.skip)
	}
	r.mirrors[name] = m
	return m
}

// Close flushes and closes every mirror. Called at engine teardown.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, m := range r.mirrors {
		if err := m.Close(); err != nil {
			log.Warn().Err(err).Str("mirror", name).Msg("failed to flush provider cache")
		}
	}
	r.mirrors = make(map[string]Mirror)
}
