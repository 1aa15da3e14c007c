// Package schema holds the registry of entity kinds the data API can query.
package schema

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrUnknownKind  = errors.New("unknown entity kind")
	ErrUnknownField = errors.New("unknown field")
)

// Registry maps entity kinds to their descriptors. It is built once at start
// up and only read afterwards.
type Registry struct {
	entities map[Kind]*Entity
}

// NewRegistry registers the given entities and checks that every relation
// points at a registered kind.
func NewRegistry(entities ...*Entity) (*Registry, error) {
	r := &Registry{entities: make(map[Kind]*Entity, len(entities))}
	for _, e := range entities {
		if err := r.register(e); err != nil {
			return nil, err
		}
	}
	for _, e := range r.entities {
		for _, rel := range e.Relations {
			if _, ok := r.entities[rel.Target]; !ok {
				return nil, fmt.Errorf("relation %q of %s: %w %q", rel.Name, e.Kind, ErrUnknownKind, rel.Target)
			}
		}
	}
	return r, nil
}

func (r *Registry) register(e *Entity) error {
	if e.Kind == "" {
		return errors.New("entity kind is empty")
	}
	if _, ok := r.entities[e.Kind]; ok {
		return fmt.Errorf("entity kind %q registered twice", e.Kind)
	}
	if e.Table == "" {
		return fmt.Errorf("entity kind %q has no table", e.Kind)
	}
	if _, ok := e.Field(e.IdentityField); !ok {
		return fmt.Errorf("identity field %q of %s is not a field", e.IdentityField, e.Kind)
	}
	seen := make(map[string]bool, len(e.Fields))
	for _, f := range e.Fields {
		if seen[f.Name] {
			return fmt.Errorf("field %q of %s declared twice", f.Name, e.Kind)
		}
		seen[f.Name] = true
	}
	r.entities[e.Kind] = e
	return nil
}

func (r *Registry) Lookup(kind Kind) (*Entity, error) {
	e, ok := r.entities[kind]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, kind)
	}
	return e, nil
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []Kind {
	kinds := make([]Kind, 0, len(r.entities))
	for k := range r.entities {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
