// Package flags provides the feature-flag collaborator surface.
package flags

import "sync"

// Source answers feature-flag lookups. Absent flags are treated as enabled
// (fail-open): new flags default to on until explicitly disabled. Revisit with
// care; inverting this silently changes rollout behavior for every consumer.
type Source interface {
	// Lookup returns the flag value and whether the flag is known.
	Lookup(name string) (enabled, known bool)
}

// IsFeatureEnabled resolves a flag against the fail-open convention.
func IsFeatureEnabled(src Source, name string) bool {
	if src == nil {
		return true
	}
	enabled, known := src.Lookup(name)
	if !known {
		return true
	}
	return enabled
}

// StaticSource is an in-memory flag source safe for concurrent use.
type StaticSource struct {
	mu    sync.RWMutex
	flags map[string]bool
}

// NewStaticSource creates a source seeded with the given flags.
func NewStaticSource(seed map[string]bool) *StaticSource {
	flags := make(map[string]bool, len(seed))
	for k, v := range seed {
		flags[k] = v
	}
	return &StaticSource{flags: flags}
}

// Set creates or overrides a flag.
func (s *StaticSource) Set(name string, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[name] = enabled
}

// Lookup implements Source.
func (s *StaticSource) Lookup(name string) (bool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	enabled, known := s.flags[name]
	return enabled, known
}
