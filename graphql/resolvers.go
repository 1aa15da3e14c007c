package graphql

import (
	"github.com/graphql-go/graphql"

	"github.com/aiidateam/aiida-data-apis/schema"
)

func (sg *SchemaGenerator) listResolver(entity *schema.Entity) graphql.FieldResolveFn {
	return func(params graphql.ResolveParams) (interface{}, error) {
		queryParams, err := sg.queryParams(entity, params.Args)
		if err != nil {
			return nil, err
		}

		result, err := sg.service.GetMany(params.Context, entity.Kind, queryParams)
		if err != nil {
			return nil, err
		}
		return pageValue(result), nil
	}
}

func (sg *SchemaGenerator) singleResolver(entity *schema.Entity) graphql.FieldResolveFn {
	return func(params graphql.ResolveParams) (interface{}, error) {
		model, err := sg.service.GetOne(params.Context, entity.Kind, params.Args["id"])
		return nullIfNotFound(model, err)
	}
}

// fieldResolver reads a field from a row. Fields left out of the row because
// they may be large are fetched on their own when selected.
func (sg *SchemaGenerator) fieldResolver(entity *schema.Entity, field schema.Field) graphql.FieldResolveFn {
	return func(params graphql.ResolveParams) (interface{}, error) {
		row, ok := params.Source.(map[string]interface{})
		if !ok {
			return nil, nil
		}
		if value, ok := row[field.Name]; ok || !field.MayBeLarge {
			return value, nil
		}

		id, err := sourceIdentity(entity, row)
		if err != nil {
			return nil, err
		}
		sg.logger.Debug("fetching large field",
			"kind", entity.Kind,
			"field", field.Name,
			"id", id)
		return sg.service.GetField(params.Context, entity.Kind, id, field.Name)
	}
}
