package room

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

// NoiseFilter is an optional noise-cancellation capability requested when
// joining a room.
type NoiseFilter struct {
	Name string
	// Available reports whether the filter can be used in this deployment.
	Available func() bool
}

// NoiseFilters is a registry of optional noise filters.
type NoiseFilters struct {
	mu      sync.RWMutex
	filters map[string]NoiseFilter
}

// NewNoiseFilters returns a registry holding filters.
func NewNoiseFilters(filters ...NoiseFilter) *NoiseFilters {
	r := &NoiseFilters{filters: make(map[string]NoiseFilter)}
	for _, f := range filters {
		r.Register(f)
	}
	return r
}

// Register adds or replaces a filter.
func (r *NoiseFilters) Register(f NoiseFilter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters[f.Name] = f
}

// Names returns the registered filter names, sorted.
func (r *NoiseFilters) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.filters))
	for n := range r.filters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the filter named name, or nil when no filter was asked for
// or the requested one is unknown or unavailable. A missing filter is never
// an error: the room is joined without noise cancellation.
func (r *NoiseFilters) Resolve(name string) *NoiseFilter {
	if name == "" || name == "none" {
		return nil
	}

	r.mu.RLock()
	f, ok := r.filters[name]
	r.mu.RUnlock()

	if !ok {
		log.Warn().Str("filter", name).Msg("Noise filter not registered, continuing without noise cancellation")
		return nil
	}
	if f.Available != nil && !f.Available() {
		log.Warn().Str("filter", name).Msg("Noise filter unavailable, continuing without noise cancellation")
		return nil
	}
	return &f
}

// FilterName returns f's name, or "" for a nil filter.
func FilterName(f *NoiseFilter) string {
	if f == nil {
		return ""
	}
	return f.Name
}
