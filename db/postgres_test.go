package db

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aiidateam/aiida-data-apis/query"
	"github.com/aiidateam/aiida-data-apis/schema"
)

func TestPostgresStorageCount(t *testing.T) {
	querier := &QuerierMock{}
	querier.
		On("QueryRow", `SELECT count(*) FROM "db_dbnode" WHERE ("label" = $1)`, []any{"x"}).
		Return(&RowMock{Values: []any{int64(4)}})

	storage := NewPostgresStorage(querier, nil)
	total, err := storage.Count(context.Background(), entity(t, schema.Nodes), query.CountOptions{
		Filters: parse(t, `label == "x"`),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	querier.AssertExpectations(t)
}

func TestPostgresStorageCountError(t *testing.T) {
	querier := &QuerierMock{}
	querier.On("QueryRow", mock.Anything, mock.Anything).Return(&RowMock{Err: errors.New("connection reset")})

	_, err := NewPostgresStorage(querier, nil).Count(context.Background(), entity(t, schema.Nodes), query.CountOptions{})
	assert.EqualError(t, err, "connection reset")
}

func TestPostgresStorageFind(t *testing.T) {
	querier := &QuerierMock{}
	rows := NewRowsMock([]string{"pk", "label"},
		[]any{int32(1), "first"},
		[]any{int32(2), "second"},
	)
	querier.
		On("Query", `SELECT "id" AS "pk", "label" FROM "db_dbnode" LIMIT $1 OFFSET $2`, []any{2, 4}).
		Return(rows, nil)

	storage := NewPostgresStorage(querier, nil)
	found, err := storage.Find(context.Background(), entity(t, schema.Nodes), query.FindOptions{
		Limit:   2,
		Offset:  4,
		Project: []string{"pk", "label"},
	})
	require.NoError(t, err)
	assert.Equal(t, []query.Row{
		{"pk": int32(1), "label": "first"},
		{"pk": int32(2), "label": "second"},
	}, found)
	assert.True(t, rows.closed)
	querier.AssertExpectations(t)
}

func TestPostgresStorageFindErrors(t *testing.T) {
	nodes := entity(t, schema.Nodes)

	t.Run("invalid filter never reaches the database", func(t *testing.T) {
		querier := &QuerierMock{}
		_, err := NewPostgresStorage(querier, nil).Find(context.Background(), nodes, query.FindOptions{
			Filters: parse(t, "label OF LENGTH 1"),
		})
		assert.ErrorIs(t, err, ErrUnsupportedFilter)
		querier.AssertNotCalled(t, "Query", mock.Anything, mock.Anything)
	})

	t.Run("query error", func(t *testing.T) {
		querier := &QuerierMock{}
		querier.On("Query", mock.Anything, mock.Anything).Return(nil, errors.New("relation does not exist"))
		_, err := NewPostgresStorage(querier, nil).Find(context.Background(), nodes, query.FindOptions{})
		assert.EqualError(t, err, "relation does not exist")
	})

	t.Run("rows error", func(t *testing.T) {
		querier := &QuerierMock{}
		rows := NewRowsMock([]string{"pk"})
		rows.Failure = errors.New("canceled")
		querier.On("Query", mock.Anything, mock.Anything).Return(rows, nil)
		_, err := NewPostgresStorage(querier, nil).Find(context.Background(), nodes, query.FindOptions{})
		assert.EqualError(t, err, "canceled")
	})
}
