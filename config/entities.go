package config

import (
	"fmt"
	"strings"

	"github.com/aiidateam/aiida-data-apis/schema"
)

// Entities is a set of entity kinds exposed by the endpoints.
type Entities int

const (
	Users Entities = 1 << iota
	Nodes
	Computers
	Groups
	Comments
	Logs

	AllEntities = Users | Nodes | Computers | Groups | Comments | Logs
)

var entityKinds = []struct {
	entity Entities
	kind   schema.Kind
}{
	{Users, schema.Users},
	{Nodes, schema.Nodes},
	{Computers, schema.Computers},
	{Groups, schema.Groups},
	{Comments, schema.Comments},
	{Logs, schema.Logs},
}

// ParseEntities returns the set named by kinds. No names means all entities.
func ParseEntities(kinds ...string) (Entities, error) {
	if len(kinds) == 0 {
		return AllEntities, nil
	}
	var e Entities
	err := e.Add(kinds...)
	return e, err
}

func (e *Entities) Set(entities Entities)           { *e |= entities }
func (e *Entities) Clear(entities Entities)         { *e &= ^entities }
func (e Entities) IsExposed(entities Entities) bool { return e&entities != 0 }

func (e *Entities) Add(kinds ...string) error {
	for _, name := range kinds {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		found := false
		for _, ek := range entityKinds {
			if string(ek.kind) == name {
				e.Set(ek.entity)
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("invalid entity kind: %s", name)
		}
	}
	return nil
}

// Exposes reports whether kind is in the set.
func (e Entities) Exposes(kind schema.Kind) bool {
	for _, ek := range entityKinds {
		if ek.kind == kind {
			return e.IsExposed(ek.entity)
		}
	}
	return false
}

// Kinds returns the kinds in the set in registry order.
func (e Entities) Kinds() []schema.Kind {
	var kinds []schema.Kind
	for _, ek := range entityKinds {
		if e.IsExposed(ek.entity) {
			kinds = append(kinds, ek.kind)
		}
	}
	return kinds
}
