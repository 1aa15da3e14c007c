package query

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aiidateam/aiida-data-apis/filter"
	"github.com/aiidateam/aiida-data-apis/schema"
	"github.com/aiidateam/aiida-data-apis/types"
)

var nodeProjections = []string{
	"pk", "uuid", "node_type", "process_type", "label", "description",
	"ctime", "mtime", "user", "computer", "extras",
}

func newTestService(storage Storage, opts ...ServiceOption) *Service {
	return NewService(schema.MustAiiDARegistry(), storage, opts...)
}

func pkFilter(id int64) filter.Expression {
	return filter.Expression{"pk": map[string]interface{}{"==": id}}
}

func TestGetManyPaginates(t *testing.T) {
	storage := NewStorageMock()
	service := newTestService(storage)

	filters, err := filter.Parse(`node_type LIKE "data%" & pk > 2`)
	require.NoError(t, err)
	params := types.QueryParams{
		Filters:  filters,
		OrderBy:  []types.Order{{Field: "pk", Descending: true}},
		PageSize: 2,
		Page:     3,
	}
	original := types.QueryParams{
		Filters:  filters.Clone(),
		OrderBy:  []types.Order{{Field: "pk", Descending: true}},
		PageSize: 2,
		Page:     3,
	}

	storage.On("Count", schema.Nodes, CountOptions{Filters: filters}).Return(int64(7), nil)
	storage.On("Find", schema.Nodes, FindOptions{
		Filters: filters,
		OrderBy: params.OrderBy,
		Limit:   2,
		Offset:  4,
		Project: nodeProjections,
	}).Run(func(args mock.Arguments) {
		// Storage implementations may consume the expression they are given.
		args.Get(1).(FindOptions).Filters["label"] = "x"
	}).Return([]Row{{"pk": int32(5)}, {"pk": int32(6)}}, nil)

	result, err := service.GetMany(context.Background(), schema.Nodes, params)
	require.NoError(t, err)
	assert.Equal(t, int64(7), result.Total)
	assert.Equal(t, 3, result.Page)
	assert.Equal(t, 2, result.PageSize)
	assert.Equal(t, []interface{}{
		map[string]interface{}{"pk": int64(5)},
		map[string]interface{}{"pk": int64(6)},
	}, result.Results)
	assert.Equal(t, original, params)
	storage.AssertExpectations(t)
}

func TestGetManyTotalIndependentOfPage(t *testing.T) {
	storage := NewStorageMock()
	service := newTestService(storage)

	storage.On("Count", schema.Users, mock.Anything).Return(int64(25), nil)
	storage.On("Find", schema.Users, mock.Anything).Return([]Row{}, nil)

	for page := 1; page <= 4; page++ {
		params := types.NewQueryParams()
		params.Page = page
		result, err := service.GetMany(context.Background(), schema.Users, params)
		require.NoError(t, err)
		assert.Equal(t, int64(25), result.Total)
		assert.LessOrEqual(t, len(result.Results), params.PageSize)
		storage.AssertCalled(t, "Find", schema.Users, mock.MatchedBy(func(opts FindOptions) bool {
			return opts.Offset == params.PageSize*(page-1) && opts.Limit == params.PageSize
		}))
	}
}

func TestGetManyRejectsInvalidInput(t *testing.T) {
	storage := NewStorageMock()
	service := newTestService(storage, WithMaxPageSize(100))

	for _, tc := range []struct {
		name   string
		kind   schema.Kind
		params types.QueryParams
	}{
		{"zero page size", schema.Nodes, types.QueryParams{PageSize: 0, Page: 1}},
		{"zero page", schema.Nodes, types.QueryParams{PageSize: 10, Page: 0}},
		{"page size over limit", schema.Nodes, types.QueryParams{PageSize: 101, Page: 1}},
		{"offset overflow", schema.Nodes, types.QueryParams{PageSize: 10, Page: math.MaxInt/5 + 2}},
		{"offset overflow on the last page", schema.Nodes, types.QueryParams{PageSize: 100, Page: math.MaxInt}},
		{"unknown kind", "authinfos", types.NewQueryParams()},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.GetMany(context.Background(), tc.kind, tc.params)
			var invalid *InvalidInputError
			assert.True(t, errors.As(err, &invalid), "got %v", err)
		})
	}
	storage.AssertNotCalled(t, "Count", mock.Anything, mock.Anything)
	storage.AssertNotCalled(t, "Find", mock.Anything, mock.Anything)
}

func TestGetManyWrapsStorageErrors(t *testing.T) {
	backendErr := errors.New("relation \"db_dbnode\" does not exist")

	storage := NewStorageMock()
	storage.On("Count", schema.Nodes, mock.Anything).Return(int64(0), backendErr)

	_, err := newTestService(storage).GetMany(context.Background(), schema.Nodes, types.NewQueryParams())
	var qbErr *QueryBuilderError
	require.True(t, errors.As(err, &qbErr))
	assert.Equal(t, backendErr.Error(), err.Error())
	assert.True(t, errors.Is(err, backendErr))

	storage = NewStorageMock()
	storage.On("Count", schema.Nodes, mock.Anything).Return(int64(1), nil)
	storage.On("Find", schema.Nodes, mock.Anything).Return(nil, &filter.InvalidValueError{Property: "a", Operator: "like", Msg: "expected a string"})

	_, err = newTestService(storage).GetMany(context.Background(), schema.Nodes, types.NewQueryParams())
	var verr *filter.InvalidValueError
	assert.True(t, errors.As(err, &verr))
	assert.False(t, errors.As(err, &qbErr))
}

func TestGetOne(t *testing.T) {
	t.Run("single match", func(t *testing.T) {
		storage := NewStorageMock()
		storage.On("Find", schema.Nodes, FindOptions{Filters: pkFilter(3), Limit: 2, Project: nodeProjections}).
			Return([]Row{{"pk": int64(3), "label": "x"}}, nil)

		model, err := newTestService(storage).GetOne(context.Background(), schema.Nodes, "3")
		require.NoError(t, err)
		assert.Equal(t, map[string]interface{}{"pk": int64(3), "label": "x"}, model)
	})

	t.Run("not found", func(t *testing.T) {
		storage := NewStorageMock()
		storage.On("Find", schema.Nodes, mock.Anything).Return([]Row{}, nil)

		_, err := newTestService(storage).GetOne(context.Background(), schema.Nodes, 3)
		var notFound *NotFoundError
		require.True(t, errors.As(err, &notFound))
		assert.Equal(t, "node<3> does not exist", err.Error())
	})

	t.Run("multiple results", func(t *testing.T) {
		storage := NewStorageMock()
		storage.On("Find", schema.Nodes, mock.Anything).Return([]Row{{"pk": int64(3)}, {"pk": int64(3)}}, nil)

		_, err := newTestService(storage).GetOne(context.Background(), schema.Nodes, 3)
		var multiple *MultipleResultsError
		assert.True(t, errors.As(err, &multiple))
		var notFound *NotFoundError
		assert.False(t, errors.As(err, &notFound))
	})

	t.Run("invalid identifier", func(t *testing.T) {
		storage := NewStorageMock()
		_, err := newTestService(storage).GetOne(context.Background(), schema.Nodes, "abc")
		var invalid *InvalidInputError
		assert.True(t, errors.As(err, &invalid))
		storage.AssertNotCalled(t, "Find", mock.Anything, mock.Anything)
	})
}

func TestGetField(t *testing.T) {
	storage := NewStorageMock()
	storage.On("Find", schema.Nodes, FindOptions{Filters: pkFilter(3), Limit: 1, Project: []string{"attributes"}}).
		Return([]Row{{"attributes": []byte(`{"value": 42}`)}}, nil)
	storage.On("Find", schema.Nodes, FindOptions{Filters: pkFilter(4), Limit: 1, Project: []string{"attributes"}}).
		Return([]Row{}, nil)
	service := newTestService(storage)

	value, err := service.GetField(context.Background(), schema.Nodes, 3, "attributes")
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"value": float64(42)}, value)

	_, err = service.GetField(context.Background(), schema.Nodes, 4, "attributes")
	var notFound *NotFoundError
	assert.True(t, errors.As(err, &notFound))

	_, err = service.GetField(context.Background(), schema.Nodes, 3, "nope")
	var invalid *InvalidInputError
	assert.True(t, errors.As(err, &invalid))
}

func TestGetRelated(t *testing.T) {
	registry := schema.MustAiiDARegistry()
	users, _ := registry.Lookup(schema.Users)
	nodes, _ := registry.Lookup(schema.Nodes)
	userRelation, _ := nodes.Relation("user")
	scope := &RelatedScope{Source: nodes, Relation: userRelation, Identifier: int64(3)}

	storage := NewStorageMock()
	storage.On("Find", schema.Users, FindOptions{Limit: 1, Project: users.Projections(), Related: scope}).
		Return([]Row{{"pk": int64(1), "email": "a@b.c"}}, nil).Once()
	service := NewService(registry, storage)

	model, err := service.GetRelatedOne(context.Background(), schema.Nodes, 3, "user")
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"pk": int64(1), "email": "a@b.c"}, model)

	storage.On("Find", schema.Users, mock.Anything).Return([]Row{}, nil)
	_, err = service.GetRelatedOne(context.Background(), schema.Nodes, 3, "user")
	var notFound *NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "user related to node<3> not found", err.Error())

	_, err = service.GetRelatedOne(context.Background(), schema.Nodes, 3, "owner")
	var invalid *InvalidInputError
	assert.True(t, errors.As(err, &invalid))

	commentsRelation, _ := users.Relation("comments")
	commentsScope := &RelatedScope{Source: users, Relation: commentsRelation, Identifier: int64(1)}
	storage.On("Count", schema.Comments, CountOptions{Related: commentsScope}).Return(int64(11), nil)
	storage.On("Find", schema.Comments, mock.MatchedBy(func(opts FindOptions) bool {
		return opts.Related != nil && opts.Related.Relation.Name == "comments" && opts.Offset == 10 && opts.Limit == 10
	})).Return([]Row{{"pk": int64(11)}}, nil)

	params := types.NewQueryParams()
	params.Page = 2
	page, err := service.GetRelatedMany(context.Background(), schema.Users, "1", "comments", params)
	require.NoError(t, err)
	assert.Equal(t, int64(11), page.Total)
	assert.Len(t, page.Results, 1)
}

func TestModelFunc(t *testing.T) {
	storage := NewStorageMock()
	storage.On("Find", schema.Users, mock.Anything).Return([]Row{{"pk": int64(1), "email": "a@b.c"}}, nil)

	service := newTestService(storage, WithModelFunc(schema.Users, func(entity *schema.Entity, row Row) (interface{}, error) {
		return row["email"], nil
	}))
	model, err := service.GetOne(context.Background(), schema.Users, 1)
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", model)
}

func TestTypedHelpers(t *testing.T) {
	type user struct {
		PK        int64  `json:"pk"`
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
	}

	storage := NewStorageMock()
	storage.On("Count", schema.Users, mock.Anything).Return(int64(1), nil)
	storage.On("Find", schema.Users, mock.Anything).
		Return([]Row{{"pk": int64(1), "email": "a@b.c", "first_name": "Ada"}}, nil)
	service := newTestService(storage)

	page, err := GetMany[user](context.Background(), service, schema.Users, types.NewQueryParams())
	require.NoError(t, err)
	assert.Equal(t, []user{{PK: 1, Email: "a@b.c", FirstName: "Ada"}}, page.Results)

	one, err := GetOne[user](context.Background(), service, schema.Users, 1)
	require.NoError(t, err)
	assert.Equal(t, "Ada", one.FirstName)
}

func TestMetrics(t *testing.T) {
	metrics := NewMetrics()
	registry := prometheus.NewRegistry()
	metrics.MustRegister(registry)

	storage := NewStorageMock()
	storage.On("Find", schema.Nodes, mock.Anything).Return([]Row{}, nil)
	service := newTestService(storage, WithMetrics(metrics))

	_, _ = service.GetOne(context.Background(), schema.Nodes, 1)
	_, _ = service.GetOne(context.Background(), schema.Nodes, 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.queries.With(prometheus.Labels{
		"kind": "nodes", "operation": "get_one", "outcome": "not_found",
	})))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.duration))
}
