package pipeline

import (
	"sort"
	"sync"
)

// Registry maps network symbols to their running Pipeline instances. The
// health endpoint reads snapshots through it.
type Registry struct {
	mu        sync.RWMutex
	pipelines map[string]*Pipeline
}

func NewRegistry() *Registry {
	return &Registry{pipelines: make(map[string]*Pipeline)}
}

func (r *Registry) Register(p *Pipeline) {
	r.mu.Lock()
	r.pipelines[p.Network()] = p
	r.mu.Unlock()
}

// Get returns the pipeline for the network, or nil if not found.
func (r *Registry) Get(network string) *Pipeline {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pipelines[network]
}

func (r *Registry) All() []*Pipeline {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Pipeline, 0, len(r.pipelines))
	for _, p := range r.pipelines {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Network() < out[j].Network() })
	return out
}

// Snapshots returns every network's health ordered by symbol.
func (r *Registry) Snapshots() []HealthSnapshot {
	all := r.All()
	out := make([]HealthSnapshot, 0, len(all))
	for _, p := range all {
		out = append(out, p.Snapshot())
	}
	return out
}

// Healthy reports false if any network is unhealthy.
func (r *Registry) Healthy() bool {
	for _, s := range r.Snapshots() {
		if s.Status == string(HealthStatusUnhealthy) {
			return false
		}
	}
	return true
}
