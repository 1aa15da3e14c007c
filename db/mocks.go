package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"
)

type SessionMock struct {
	mock.Mock
}

func (o *SessionMock) ExecuteIter(query string, options *QueryOptions, values ...interface{}) (ResultSet, error) {
	args := o.Called(query, options, values)
	rs, _ := args.Get(0).(ResultSet)
	return rs, args.Error(1)
}

type ResultMock struct {
	mock.Mock
}

func (o *ResultMock) PageState() string {
	return o.Called().String(0)
}

func (o *ResultMock) Values() []map[string]interface{} {
	args := o.Called()
	return args.Get(0).([]map[string]interface{})
}

// NewResultMock returns a result set holding rows.
func NewResultMock(rows ...map[string]interface{}) *ResultMock {
	rs := &ResultMock{}
	if rows == nil {
		rows = []map[string]interface{}{}
	}
	rs.On("Values").Return(rows)
	rs.On("PageState").Return("").Maybe()
	return rs
}

type QuerierMock struct {
	mock.Mock
}

func (o *QuerierMock) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	called := o.Called(sql, args)
	rows, _ := called.Get(0).(pgx.Rows)
	return rows, called.Error(1)
}

func (o *QuerierMock) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return o.Called(sql, args).Get(0).(pgx.Row)
}

// RowMock is a pgx.Row scanning a fixed list of values.
type RowMock struct {
	Values []any
	Err    error
}

func (r *RowMock) Scan(dest ...any) error {
	if r.Err != nil {
		return r.Err
	}
	return scanInto(r.Values, dest)
}

// RowsMock is a pgx.Rows over in-memory rows sharing the same columns.
type RowsMock struct {
	Columns []string
	Rows    [][]any
	Failure error

	current int
	closed  bool
}

func NewRowsMock(columns []string, rows ...[]any) *RowsMock {
	return &RowsMock{Columns: columns, Rows: rows, current: -1}
}

func (r *RowsMock) Close() { r.closed = true }

func (r *RowsMock) Err() error { return r.Failure }

func (r *RowsMock) CommandTag() pgconn.CommandTag { return pgconn.NewCommandTag("SELECT") }

func (r *RowsMock) FieldDescriptions() []pgconn.FieldDescription {
	fields := make([]pgconn.FieldDescription, len(r.Columns))
	for i, c := range r.Columns {
		fields[i] = pgconn.FieldDescription{Name: c}
	}
	return fields
}

func (r *RowsMock) Next() bool {
	if r.closed || r.current+1 >= len(r.Rows) {
		r.closed = true
		return false
	}
	r.current++
	return true
}

func (r *RowsMock) Scan(dest ...any) error {
	if len(dest) == 1 {
		if scanner, ok := dest[0].(pgx.RowScanner); ok {
			return scanner.ScanRow(r)
		}
	}
	return scanInto(r.Rows[r.current], dest)
}

func (r *RowsMock) Values() ([]any, error) { return r.Rows[r.current], nil }

func (r *RowsMock) RawValues() [][]byte { return nil }

func (r *RowsMock) Conn() *pgx.Conn { return nil }

func scanInto(values []any, dest []any) error {
	for i, d := range dest {
		switch d := d.(type) {
		case *int64:
			*d = values[i].(int64)
		case *string:
			*d = values[i].(string)
		case *any:
			*d = values[i]
		}
	}
	return nil
}
