package config

import (
	"github.com/iancoleman/strcase"

	"github.com/aiidateam/aiida-data-apis/schema"
)

// NamingConvention converts entity field names to GraphQL names and back.
type NamingConvention interface {
	ToGraphQLField(name string) string
	ToGraphQLType(name string) string

	// ToField returns the name of the field of kind exposed as graphqlName.
	ToField(kind schema.Kind, graphqlName string) string
}

type NamingConventionFn func(registry *schema.Registry) NamingConvention

type defaultNaming struct {
	fields map[schema.Kind]map[string]string
}

// NewDefaultNaming uses lowerCamelCase fields and CamelCase types.
func NewDefaultNaming(registry *schema.Registry) NamingConvention {
	n := &defaultNaming{fields: make(map[schema.Kind]map[string]string)}
	for _, kind := range registry.Kinds() {
		entity, err := registry.Lookup(kind)
		if err != nil {
			continue
		}
		fields := make(map[string]string, len(entity.Fields))
		for _, f := range entity.Fields {
			fields[n.ToGraphQLField(f.Name)] = f.Name
		}
		n.fields[kind] = fields
	}
	return n
}

func (n *defaultNaming) ToGraphQLField(name string) string {
	return strcase.ToLowerCamel(name)
}

func (n *defaultNaming) ToGraphQLType(name string) string {
	return strcase.ToCamel(name)
}

func (n *defaultNaming) ToField(kind schema.Kind, graphqlName string) string {
	if name, ok := n.fields[kind][graphqlName]; ok {
		return name
	}
	// Unknown fields are still converted to snake_case
	return strcase.ToSnake(graphqlName)
}
