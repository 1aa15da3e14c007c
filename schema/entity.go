package schema

import (
	"fmt"
	"strings"
)

// Kind names a queryable entity collection, e.g. "nodes".
type Kind string

type FieldType int

const (
	Int FieldType = iota
	Float
	String
	Bool
	Timestamp
	UUID
	JSON
)

func (t FieldType) String() string {
	switch t {
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	case Bool:
		return "bool"
	case Timestamp:
		return "timestamp"
	case UUID:
		return "uuid"
	case JSON:
		return "json"
	}
	return fmt.Sprintf("FieldType(%d)", int(t))
}

// Field describes one queryable property of an entity.
type Field struct {
	Name   string
	Column string
	Type   FieldType
	// MayBeLarge fields are left out of default projections.
	MayBeLarge  bool
	Description string
}

type JoinKind int

const (
	// JoinTargetKey relations are stored as a column of the target table
	// referencing the source.
	JoinTargetKey JoinKind = iota
	// JoinSourceKey relations are stored as a column of the source table
	// referencing the target.
	JoinSourceKey
	// JoinLinkTable relations are stored as rows of a separate table.
	JoinLinkTable
)

// Relation links an entity to entities of another kind.
type Relation struct {
	Name   string
	Target Kind
	Join   JoinKind
	// Column is the foreign key column for JoinTargetKey and JoinSourceKey.
	Column string
	// LinkTable, LinkSource and LinkTarget describe a JoinLinkTable relation.
	LinkTable  string
	LinkSource string
	LinkTarget string
}

// Entity describes how an entity kind is stored and which fields it exposes.
type Entity struct {
	Kind          Kind
	Singular      string
	Table         string
	IdentityField string
	Fields        []Field
	Relations     []Relation
}

func (e *Entity) Field(name string) (Field, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (e *Entity) Relation(name string) (Relation, bool) {
	for _, r := range e.Relations {
		if r.Name == name {
			return r, true
		}
	}
	return Relation{}, false
}

// Identity returns the field entities of this kind are looked up by.
func (e *Entity) Identity() Field {
	f, _ := e.Field(e.IdentityField)
	return f
}

// Projections returns the names of the fields returned by default, leaving out
// the ones that may be large.
func (e *Entity) Projections() []string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if !f.MayBeLarge {
			names = append(names, f.Name)
		}
	}
	return names
}

// FieldNames returns the names of all fields.
func (e *Entity) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Name)
	}
	return names
}

// ResolvePath splits a dotted property path into the field it starts with and
// the remaining path inside that field. Only JSON fields can be traversed.
func (e *Entity) ResolvePath(path string) (Field, []string, error) {
	parts := strings.Split(path, ".")
	f, ok := e.Field(parts[0])
	if !ok {
		return Field{}, nil, fmt.Errorf("%w: %s has no field %q", ErrUnknownField, e.Kind, parts[0])
	}
	if len(parts) > 1 && f.Type != JSON {
		return Field{}, nil, fmt.Errorf("%w: field %q of %s is not a JSON field", ErrUnknownField, parts[0], e.Kind)
	}
	return f, parts[1:], nil
}
