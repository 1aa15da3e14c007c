package graphql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/graphql-go/graphql"
	"github.com/mitchellh/mapstructure"

	"github.com/aiidateam/aiida-data-apis/config"
	"github.com/aiidateam/aiida-data-apis/filter"
	"github.com/aiidateam/aiida-data-apis/log"
	"github.com/aiidateam/aiida-data-apis/query"
	"github.com/aiidateam/aiida-data-apis/schema"
	"github.com/aiidateam/aiida-data-apis/types"
)

// EntityLimit is the largest page size a GraphQL query can request.
const EntityLimit = 100

const (
	orderAscSuffix  = "_ASC"
	orderDescSuffix = "_DESC"
)

type SchemaGenerator struct {
	service *query.Service
	naming  config.NamingConvention
	exposed config.Entities
	logger  log.Logger

	// A map containing the row type by kind, with each field as a scalar value
	rowTypes map[schema.Kind]*graphql.Object
	// A map containing the paginated result type by kind
	pageTypes map[schema.Kind]*graphql.Object
}

type listArgs struct {
	Filters  string   `mapstructure:"filters"`
	OrderBy  []string `mapstructure:"orderBy"`
	PageSize int      `mapstructure:"pageSize"`
	Page     int      `mapstructure:"page"`
}

func NewSchemaGenerator(service *query.Service, cfg config.Config) *SchemaGenerator {
	return &SchemaGenerator{
		service: service,
		naming:  cfg.Naming()(service.Registry()),
		exposed: cfg.ExposedEntities(),
		logger:  cfg.Logger(),
	}
}

// BuildSchema builds a schema with a list and a single entity query for every
// exposed kind.
func (sg *SchemaGenerator) BuildSchema() (graphql.Schema, error) {
	entities := sg.exposedEntities()
	sg.rowTypes = make(map[schema.Kind]*graphql.Object, len(entities))
	sg.pageTypes = make(map[schema.Kind]*graphql.Object, len(entities))

	for _, entity := range entities {
		sg.rowTypes[entity.Kind] = sg.buildRowType(entity)
	}
	for _, entity := range entities {
		sg.pageTypes[entity.Kind] = sg.buildPageType(entity)
	}

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{
			Name:   "Query",
			Fields: sg.buildQueryFields(entities),
		}),
	})
}

func (sg *SchemaGenerator) exposedEntities() []*schema.Entity {
	entities := make([]*schema.Entity, 0)
	for _, kind := range sg.service.Kinds() {
		if !sg.exposed.Exposes(kind) {
			continue
		}
		entity, err := sg.service.Registry().Lookup(kind)
		if err != nil {
			continue
		}
		entities = append(entities, entity)
	}
	return entities
}

func (sg *SchemaGenerator) buildQueryFields(entities []*schema.Entity) graphql.Fields {
	fields := graphql.Fields{
		"rowLimitMax": &graphql.Field{
			Type:        graphql.Int,
			Description: "Maximum amount of entity rows you are allowed to return from a query",
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return EntityLimit, nil
			},
		},
	}

	for _, entity := range entities {
		fields[sg.naming.ToGraphQLField(string(entity.Kind))] = &graphql.Field{
			Type:        sg.pageTypes[entity.Kind],
			Description: fmt.Sprintf("Query %s", entity.Kind),
			Args:        listQueryArgs(),
			Resolve:     sg.listResolver(entity),
		}
		fields[sg.naming.ToGraphQLField(entity.Singular)] = &graphql.Field{
			Type:        sg.rowTypes[entity.Kind],
			Description: fmt.Sprintf("Query a single %s by %s", entity.Singular, entity.IdentityField),
			Args: graphql.FieldConfigArgument{
				"id": {Type: graphql.NewNonNull(graphql.String)},
			},
			Resolve: sg.singleResolver(entity),
		}
	}
	return fields
}

func listQueryArgs() graphql.FieldConfigArgument {
	return graphql.FieldConfigArgument{
		"filters": {
			Type:        filterString,
			Description: "Filter the rows to return",
		},
		"orderBy": {
			Type:        graphql.NewList(graphql.String),
			Description: "Fields to order by, with an optional _ASC or _DESC suffix",
		},
		"pageSize": {
			Type:         graphql.Int,
			DefaultValue: EntityLimit,
			Description:  fmt.Sprintf("Maximum number of rows to return (no more than %d)", EntityLimit),
		},
		"page": {
			Type:         graphql.Int,
			DefaultValue: 1,
		},
	}
}

func (sg *SchemaGenerator) buildRowType(entity *schema.Entity) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: sg.naming.ToGraphQLType(entity.Singular + "_row"),
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			fields := graphql.Fields{}
			for _, f := range entity.Fields {
				fields[sg.naming.ToGraphQLField(f.Name)] = &graphql.Field{
					Type:        outputType(f.Type),
					Description: f.Description,
					Resolve:     sg.fieldResolver(entity, f),
				}
			}
			for _, rel := range entity.Relations {
				if _, ok := sg.rowTypes[rel.Target]; !ok {
					continue
				}
				fields[sg.naming.ToGraphQLField(rel.Name)] = sg.relationField(entity, rel)
			}
			return fields
		}),
	})
}

func (sg *SchemaGenerator) buildPageType(entity *schema.Entity) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: sg.naming.ToGraphQLType(entity.Singular + "_page"),
		Fields: graphql.Fields{
			"total":    {Type: graphql.NewNonNull(graphql.Int), Description: fmt.Sprintf("Total number of matching %s", entity.Kind)},
			"page":     {Type: graphql.NewNonNull(graphql.Int)},
			"pageSize": {Type: graphql.NewNonNull(graphql.Int)},
			"rows":     {Type: graphql.NewList(graphql.NewNonNull(sg.rowTypes[entity.Kind]))},
		},
	})
}

// relationField returns a single row for relations stored on the source and a
// page of rows otherwise.
func (sg *SchemaGenerator) relationField(entity *schema.Entity, rel schema.Relation) *graphql.Field {
	if rel.Join == schema.JoinSourceKey {
		return &graphql.Field{
			Type: sg.rowTypes[rel.Target],
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				id, err := sourceIdentity(entity, p.Source)
				if err != nil {
					return nil, err
				}
				model, err := sg.service.GetRelatedOne(p.Context, entity.Kind, id, rel.Name)
				return nullIfNotFound(model, err)
			},
		}
	}

	return &graphql.Field{
		Type: sg.pageTypes[rel.Target],
		Args: listQueryArgs(),
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			target, err := sg.service.Registry().Lookup(rel.Target)
			if err != nil {
				return nil, err
			}
			params, err := sg.queryParams(target, p.Args)
			if err != nil {
				return nil, err
			}
			id, err := sourceIdentity(entity, p.Source)
			if err != nil {
				return nil, err
			}
			result, err := sg.service.GetRelatedMany(p.Context, entity.Kind, id, rel.Name, params)
			if err != nil {
				return nil, err
			}
			return pageValue(result), nil
		},
	}
}

// queryParams decodes the list arguments, converting order fields to entity
// field names.
func (sg *SchemaGenerator) queryParams(entity *schema.Entity, args map[string]interface{}) (types.QueryParams, error) {
	var decoded listArgs
	if err := mapstructure.Decode(args, &decoded); err != nil {
		return types.QueryParams{}, err
	}
	if decoded.PageSize > EntityLimit {
		return types.QueryParams{}, fmt.Errorf("%s 'pageSize' must be no more than %d", entity.Kind, EntityLimit)
	}

	params := types.QueryParams{
		PageSize: decoded.PageSize,
		Page:     decoded.Page,
	}
	if decoded.Filters != "" {
		filters, err := filter.Parse(decoded.Filters)
		if err != nil {
			return types.QueryParams{}, err
		}
		params.Filters = filters
	}
	for _, o := range decoded.OrderBy {
		params.OrderBy = append(params.OrderBy, sg.order(entity, o))
	}
	return params, nil
}

func (sg *SchemaGenerator) order(entity *schema.Entity, value string) types.Order {
	order := types.Order{Field: value}
	switch {
	case strings.HasSuffix(value, orderDescSuffix):
		order.Field = strings.TrimSuffix(value, orderDescSuffix)
		order.Descending = true
	case strings.HasSuffix(value, orderAscSuffix):
		order.Field = strings.TrimSuffix(value, orderAscSuffix)
	}

	// Only the first segment of a path names a field
	head, rest, hasPath := strings.Cut(order.Field, ".")
	order.Field = sg.naming.ToField(entity.Kind, head)
	if hasPath {
		order.Field += "." + rest
	}
	return order
}

func sourceIdentity(entity *schema.Entity, source interface{}) (interface{}, error) {
	row, ok := source.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected %s row of type %T", entity.Singular, source)
	}
	id, ok := row[entity.IdentityField]
	if !ok || id == nil {
		return nil, fmt.Errorf("%s row has no %s", entity.Singular, entity.IdentityField)
	}
	return id, nil
}

func nullIfNotFound(model interface{}, err error) (interface{}, error) {
	var notFound *query.NotFoundError
	if errors.As(err, &notFound) {
		return nil, nil
	}
	return model, err
}

func pageValue(result *types.PaginatedResult[interface{}]) map[string]interface{} {
	return map[string]interface{}{
		"total":    result.Total,
		"page":     result.Page,
		"pageSize": result.PageSize,
		"rows":     result.Results,
	}
}
