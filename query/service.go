// Package query runs filtered, ordered and paginated queries for any
// registered entity kind against a Storage.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/aiidateam/aiida-data-apis/filter"
	"github.com/aiidateam/aiida-data-apis/log"
	"github.com/aiidateam/aiida-data-apis/schema"
	"github.com/aiidateam/aiida-data-apis/types"
)

const (
	opGetMany        = "get_many"
	opGetOne         = "get_one"
	opGetField       = "get_field"
	opGetRelatedOne  = "get_related_one"
	opGetRelatedMany = "get_related_many"
)

// ModelFunc converts a stored row into the value returned to callers.
type ModelFunc func(entity *schema.Entity, row Row) (interface{}, error)

// DefaultModel returns the row with its values converted to their JSON
// representation.
func DefaultModel(entity *schema.Entity, row Row) (interface{}, error) {
	return types.ToJsonValue(row, entity), nil
}

type Service struct {
	registry    *schema.Registry
	storage     Storage
	logger      log.Logger
	metrics     *Metrics
	models      map[schema.Kind]ModelFunc
	maxPageSize int
}

type ServiceOption func(*Service)

func WithLogger(logger log.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(metrics *Metrics) ServiceOption {
	return func(s *Service) { s.metrics = metrics }
}

// WithModelFunc sets the conversion applied to the rows of one kind.
func WithModelFunc(kind schema.Kind, fn ModelFunc) ServiceOption {
	return func(s *Service) { s.models[kind] = fn }
}

// WithMaxPageSize rejects requests for pages larger than size. Zero means
// unlimited.
func WithMaxPageSize(size int) ServiceOption {
	return func(s *Service) { s.maxPageSize = size }
}

func NewService(registry *schema.Registry, storage Storage, opts ...ServiceOption) *Service {
	s := &Service{
		registry: registry,
		storage:  storage,
		logger:   log.NewNopLogger(),
		models:   make(map[schema.Kind]ModelFunc),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Registry() *schema.Registry {
	return s.registry
}

// Kinds returns the entity kinds the service can query.
func (s *Service) Kinds() []schema.Kind {
	return s.registry.Kinds()
}

// Projections returns the fields returned for entities of kind.
func (s *Service) Projections(kind schema.Kind) ([]string, error) {
	entity, err := s.lookup(kind)
	if err != nil {
		return nil, err
	}
	return entity.Projections(), nil
}

// GetMany returns one page of the entities of kind matching params.Filters.
func (s *Service) GetMany(ctx context.Context, kind schema.Kind, params types.QueryParams) (result *types.PaginatedResult[interface{}], err error) {
	defer s.track(kind, opGetMany, time.Now(), &err)

	entity, err := s.lookup(kind)
	if err != nil {
		return nil, err
	}
	return s.page(ctx, entity, params, nil)
}

// GetOne returns the entity of kind whose identity field equals identifier.
func (s *Service) GetOne(ctx context.Context, kind schema.Kind, identifier interface{}) (model interface{}, err error) {
	defer s.track(kind, opGetOne, time.Now(), &err)

	entity, err := s.lookup(kind)
	if err != nil {
		return nil, err
	}
	id, err := s.identifier(entity, identifier)
	if err != nil {
		return nil, err
	}

	// Two rows are enough to tell a unique match from a duplicated identity.
	rows, err := s.find(ctx, entity, FindOptions{
		Filters: identityFilter(entity, id),
		Limit:   2,
		Project: entity.Projections(),
	})
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, NewNotFoundError(fmt.Sprintf("%s<%v> does not exist", entity.Singular, identifier))
	case 1:
		return s.model(entity, rows[0])
	}
	return nil, NewMultipleResultsError(fmt.Sprintf("multiple %s match %s %v", entity.Kind, entity.IdentityField, identifier))
}

// GetField returns a single field of the entity of kind whose identity field
// equals identifier.
func (s *Service) GetField(ctx context.Context, kind schema.Kind, identifier interface{}, field string) (value interface{}, err error) {
	defer s.track(kind, opGetField, time.Now(), &err)

	entity, err := s.lookup(kind)
	if err != nil {
		return nil, err
	}
	if _, ok := entity.Field(field); !ok {
		return nil, NewInvalidInputError(fmt.Sprintf("%s has no field %q", entity.Kind, field))
	}
	id, err := s.identifier(entity, identifier)
	if err != nil {
		return nil, err
	}

	rows, err := s.find(ctx, entity, FindOptions{
		Filters: identityFilter(entity, id),
		Limit:   1,
		Project: []string{field},
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, NewNotFoundError(fmt.Sprintf("%s<%v> does not exist", entity.Singular, identifier))
	}
	return types.ToJsonValue(rows[0], entity)[field], nil
}

// GetRelatedOne returns the first entity reached from the entity of kind
// through relation.
func (s *Service) GetRelatedOne(ctx context.Context, kind schema.Kind, identifier interface{}, relation string) (model interface{}, err error) {
	defer s.track(kind, opGetRelatedOne, time.Now(), &err)

	scope, target, err := s.related(kind, identifier, relation)
	if err != nil {
		return nil, err
	}
	rows, err := s.find(ctx, target, FindOptions{
		Limit:   1,
		Project: target.Projections(),
		Related: scope,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, NewNotFoundError(fmt.Sprintf("%s related to %s<%v> not found", target.Singular, scope.Source.Singular, identifier))
	}
	return s.model(target, rows[0])
}

// GetRelatedMany returns one page of the entities reached from the entity of
// kind through relation.
func (s *Service) GetRelatedMany(ctx context.Context, kind schema.Kind, identifier interface{}, relation string, params types.QueryParams) (result *types.PaginatedResult[interface{}], err error) {
	defer s.track(kind, opGetRelatedMany, time.Now(), &err)

	scope, target, err := s.related(kind, identifier, relation)
	if err != nil {
		return nil, err
	}
	return s.page(ctx, target, params, scope)
}

func (s *Service) page(ctx context.Context, entity *schema.Entity, params types.QueryParams, scope *RelatedScope) (*types.PaginatedResult[interface{}], error) {
	if err := types.ValidateParams(params); err != nil {
		return nil, NewInvalidInputError(err.Error())
	}
	if s.maxPageSize > 0 && params.PageSize > s.maxPageSize {
		return nil, NewInvalidInputError(fmt.Sprintf("page_size must be at most %d", s.maxPageSize))
	}

	total, err := s.storage.Count(ctx, entity, CountOptions{
		Filters: params.Filters.Clone(),
		Related: scope,
	})
	if err != nil {
		return nil, wrapStorageError(err)
	}

	rows, err := s.find(ctx, entity, FindOptions{
		Filters: params.Filters.Clone(),
		OrderBy: append([]types.Order(nil), params.OrderBy...),
		Limit:   params.PageSize,
		Offset:  params.Offset(),
		Project: entity.Projections(),
		Related: scope,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("query page",
		"kind", entity.Kind,
		"total", total,
		"offset", params.Offset(),
		"rows", len(rows))

	results := make([]interface{}, 0, len(rows))
	for _, row := range rows {
		model, err := s.model(entity, row)
		if err != nil {
			return nil, err
		}
		results = append(results, model)
	}
	return &types.PaginatedResult[interface{}]{
		Total:    total,
		Page:     params.Page,
		PageSize: params.PageSize,
		Results:  results,
	}, nil
}

func (s *Service) find(ctx context.Context, entity *schema.Entity, opts FindOptions) ([]Row, error) {
	rows, err := s.storage.Find(ctx, entity, opts)
	if err != nil {
		return nil, wrapStorageError(err)
	}
	return rows, nil
}

func (s *Service) related(kind schema.Kind, identifier interface{}, relation string) (*RelatedScope, *schema.Entity, error) {
	entity, err := s.lookup(kind)
	if err != nil {
		return nil, nil, err
	}
	rel, ok := entity.Relation(relation)
	if !ok {
		return nil, nil, NewInvalidInputError(fmt.Sprintf("%s has no relation %q", entity.Kind, relation))
	}
	target, err := s.lookup(rel.Target)
	if err != nil {
		return nil, nil, err
	}
	id, err := s.identifier(entity, identifier)
	if err != nil {
		return nil, nil, err
	}
	return &RelatedScope{Source: entity, Relation: rel, Identifier: id}, target, nil
}

func (s *Service) lookup(kind schema.Kind) (*schema.Entity, error) {
	entity, err := s.registry.Lookup(kind)
	if err != nil {
		return nil, NewInvalidInputError(err.Error())
	}
	return entity, nil
}

func (s *Service) identifier(entity *schema.Entity, identifier interface{}) (interface{}, error) {
	id, err := types.FromJsonValue(identifier, entity.Identity().Type)
	if err != nil {
		return nil, NewInvalidInputError(fmt.Sprintf("invalid %s %v: %s", entity.IdentityField, identifier, err))
	}
	return id, nil
}

func (s *Service) model(entity *schema.Entity, row Row) (interface{}, error) {
	fn, ok := s.models[entity.Kind]
	if !ok {
		fn = DefaultModel
	}
	return fn(entity, row)
}

func (s *Service) track(kind schema.Kind, operation string, start time.Time, errp *error) {
	err := *errp
	s.metrics.observe(kind, operation, start, err)

	var qbErr *QueryBuilderError
	if errors.As(err, &qbErr) {
		s.logger.Error("query failed",
			"kind", kind,
			"operation", operation,
			"error", err)
	}
}

func identityFilter(entity *schema.Entity, id interface{}) filter.Expression {
	return filter.Expression{entity.IdentityField: map[string]interface{}{filter.Eq.Key(): id}}
}

// wrapStorageError hides the storage error type behind a QueryBuilderError.
// Filter errors raised while compiling a structured expression keep their
// type.
func wrapStorageError(err error) error {
	if isFilterError(err) {
		return err
	}
	return NewQueryBuilderError(err)
}

func isFilterError(err error) bool {
	var (
		syntax  *filter.SyntaxError
		invalid *filter.InvalidValueError
	)
	return errors.As(err, &syntax) || errors.As(err, &invalid)
}

// GetMany runs Service.GetMany and decodes every result into M.
func GetMany[M any](ctx context.Context, s *Service, kind schema.Kind, params types.QueryParams) (*types.PaginatedResult[M], error) {
	page, err := s.GetMany(ctx, kind, params)
	if err != nil {
		return nil, err
	}
	results := make([]M, 0, len(page.Results))
	for _, r := range page.Results {
		m, err := decode[M](r)
		if err != nil {
			return nil, err
		}
		results = append(results, m)
	}
	return &types.PaginatedResult[M]{
		Total:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
		Results:  results,
	}, nil
}

// GetOne runs Service.GetOne and decodes the result into M.
func GetOne[M any](ctx context.Context, s *Service, kind schema.Kind, identifier interface{}) (M, error) {
	model, err := s.GetOne(ctx, kind, identifier)
	if err != nil {
		var zero M
		return zero, err
	}
	return decode[M](model)
}

func decode[M any](model interface{}) (M, error) {
	if m, ok := model.(M); ok {
		return m, nil
	}
	var m M
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           &m,
	})
	if err != nil {
		return m, err
	}
	if err := decoder.Decode(model); err != nil {
		return m, fmt.Errorf("decode %T: %w", m, err)
	}
	return m, nil
}
