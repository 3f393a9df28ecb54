// Package yards is the static yard configuration registry: yard IDs, display
// names, and capacity ceilings, plus the application's canonical time zone.
// It is read-only at runtime; yards are configured at startup.
package yards

import (
	"fmt"
	"sort"
	"time"
)

// Yard is one configured yard.
type Yard struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

// Registry is an immutable yard lookup shared across requests.
type Registry struct {
	loc   *time.Location
	yards map[string]Yard
}

// NewRegistry builds a registry from the configured yards. Every yard needs a
// non-empty ID and positive capacity.
func NewRegistry(loc *time.Location, list []Yard) (*Registry, error) {
	if loc == nil {
		loc = time.UTC
	}
	m := make(map[string]Yard, len(list))
	for _, y := range list {
		if y.ID == "" {
			return nil, fmt.Errorf("yards: yard with empty id")
		}
		if y.Capacity <= 0 {
			return nil, fmt.Errorf("yards: yard %s has non-positive capacity %d", y.ID, y.Capacity)
		}
		if _, dup := m[y.ID]; dup {
			return nil, fmt.Errorf("yards: duplicate yard id %s", y.ID)
		}
		m[y.ID] = y
	}
	return &Registry{loc: loc, yards: m}, nil
}

// Get returns the yard for id, or ok=false when unknown.
func (r *Registry) Get(id string) (Yard, bool) {
	y, ok := r.yards[id]
	return y, ok
}

// List returns every configured yard sorted by ID.
func (r *Registry) List() []Yard {
	out := make([]Yard, 0, len(r.yards))
	for _, y := range r.yards {
		out = append(out, y)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Location is the application's fixed time zone, used for stat day keys.
func (r *Registry) Location() *time.Location {
	return r.loc
}
