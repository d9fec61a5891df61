package network

import (
	"strings"

	"wallet_tracker/internal/app/port"
	"wallet_tracker/internal/domain/entity"
)

// Registry selects an adapter by network identifier.
type Registry struct {
	sources map[string]port.ChainDataSource
	order   []string
}

// NewRegistry indexes sources by identifier, keeping their order.
func NewRegistry(sources ...port.ChainDataSource) *Registry {
	r := &Registry{sources: make(map[string]port.ChainDataSource, len(sources))}
	for _, s := range sources {
		id := strings.ToLower(s.Definition().Identifier)
		if _, dup := r.sources[id]; !dup {
			r.order = append(r.order, id)
		}
		r.sources[id] = s
	}
	return r
}

// Get returns the adapter for identifier, or a NotFound error.
func (r *Registry) Get(identifier string) (port.ChainDataSource, error) {
	s, ok := r.sources[strings.ToLower(strings.TrimSpace(identifier))]
	if !ok {
		return nil, entity.NotFound("network", "unsupported network %q", identifier)
	}
	return s, nil
}

// Identifiers lists the registered networks in registration order.
func (r *Registry) Identifiers() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// All returns every adapter in registration order.
func (r *Registry) All() []port.ChainDataSource {
	out := make([]port.ChainDataSource, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.sources[id])
	}
	return out
}
