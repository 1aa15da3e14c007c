package db

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/aiidateam/aiida-data-apis/filter"
	"github.com/aiidateam/aiida-data-apis/log"
	"github.com/aiidateam/aiida-data-apis/query"
	"github.com/aiidateam/aiida-data-apis/schema"
	"github.com/aiidateam/aiida-data-apis/types"
)

// CassandraStorage runs entity queries against a keyspace whose tables mirror
// the registry. Filtering is limited to what CQL can express.
type CassandraStorage struct {
	session  Session
	keyspace string
	options  *QueryOptions
	logger   log.Logger
}

func NewCassandraStorage(session Session, keyspace string, logger log.Logger) *CassandraStorage {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &CassandraStorage{
		session:  session,
		keyspace: keyspace,
		options:  NewQueryOptions(),
		logger:   logger,
	}
}

func (s *CassandraStorage) Count(ctx context.Context, entity *schema.Entity, opts query.CountOptions) (int64, error) {
	where, values, err := cqlWhere(entity, opts.Filters, opts.Related)
	if err != nil {
		return 0, err
	}
	stmt := fmt.Sprintf("SELECT COUNT(*) FROM %s.%s%s", s.keyspace, entity.Table, where)
	if where != "" {
		stmt += allowFiltering
	}
	rs, err := s.execute(ctx, stmt, values)
	if err != nil {
		return 0, err
	}

	rows := rs.Values()
	if len(rows) == 0 {
		return 0, nil
	}
	switch count := rows[0]["count"].(type) {
	case int64:
		return count, nil
	case int:
		return int64(count), nil
	}
	return 0, fmt.Errorf("unexpected count value %v", rows[0]["count"])
}

func (s *CassandraStorage) Find(ctx context.Context, entity *schema.Entity, opts query.FindOptions) ([]query.Row, error) {
	if opts.Offset < 0 || opts.Limit < 0 || opts.Offset > math.MaxInt-opts.Limit {
		return nil, fmt.Errorf("invalid offset %d and limit %d", opts.Offset, opts.Limit)
	}
	columns, err := cqlProjection(entity, opts.Project)
	if err != nil {
		return nil, err
	}
	where, values, err := cqlWhere(entity, opts.Filters, opts.Related)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s.%s", columns, s.keyspace, entity.Table)
	b.WriteString(where)
	if len(opts.OrderBy) > 0 {
		order, err := cqlOrder(entity, opts.OrderBy)
		if err != nil {
			return nil, err
		}
		b.WriteString(" ORDER BY " + order)
	}
	if opts.Limit > 0 {
		// Cassandra has no OFFSET, rows before it are skipped below.
		b.WriteString(" LIMIT ?")
		values = append(values, opts.Offset+opts.Limit)
	}
	if where != "" {
		b.WriteString(allowFiltering)
	}

	rs, err := s.execute(ctx, b.String(), values)
	if err != nil {
		return nil, err
	}
	rows := rs.Values()
	if opts.Offset >= len(rows) {
		return []query.Row{}, nil
	}
	return rows[opts.Offset:], nil
}

func (s *CassandraStorage) execute(ctx context.Context, stmt string, values []interface{}) (ResultSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.logger.Debug("executing query", "query", stmt, "values", len(values))
	return s.session.ExecuteIter(stmt, s.options, values...)
}

const allowFiltering = " ALLOW FILTERING"

var cqlComparison = map[filter.Operator]string{
	filter.Eq:  "=",
	filter.Lt:  "<",
	filter.Lte: "<=",
	filter.Gt:  ">",
	filter.Gte: ">=",
}

// cqlWhere builds the WHERE clause. Statements with filters must end with
// ALLOW FILTERING.
func cqlWhere(entity *schema.Entity, filters filter.Expression, related *query.RelatedScope) (string, []interface{}, error) {
	var (
		conds  []string
		values []interface{}
	)
	if len(filters) > 0 {
		clauses, err := filters.Clauses()
		if err != nil {
			return "", nil, err
		}
		for _, clause := range clauses {
			cond, clauseValues, err := cqlCondition(entity, clause)
			if err != nil {
				return "", nil, err
			}
			conds = append(conds, cond)
			values = append(values, clauseValues...)
		}
	}
	if related != nil {
		if related.Relation.Join != schema.JoinTargetKey {
			return "", nil, fmt.Errorf("%w: relation %q of %s needs a join", ErrUnsupportedFilter, related.Relation.Name, related.Source.Kind)
		}
		conds = append(conds, related.Relation.Column+" = ?")
		values = append(values, related.Identifier)
	}
	if len(conds) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), values, nil
}

func cqlCondition(entity *schema.Entity, clause filter.Clause) (string, []interface{}, error) {
	field, path, err := entity.ResolvePath(clause.Property)
	if err != nil {
		return "", nil, err
	}
	if len(path) > 0 {
		return "", nil, fmt.Errorf("%w: nested path %q", ErrUnsupportedFilter, clause.Property)
	}
	column := field.Column

	switch op := clause.Operator; op {
	case filter.Eq, filter.Lt, filter.Lte, filter.Gt, filter.Gte:
		return fmt.Sprintf("%s %s ?", column, cqlComparison[op]), []interface{}{clause.Value}, nil
	case filter.In:
		values, _ := clause.Value.([]interface{})
		if len(values) == 0 {
			return "", nil, fmt.Errorf("%w: %s with no values", ErrUnsupportedFilter, op.Key())
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
		return fmt.Sprintf("%s IN (%s)", column, placeholders), values, nil
	case filter.Contains:
		values, _ := clause.Value.([]interface{})
		if len(values) == 0 {
			return "", nil, fmt.Errorf("%w: %s with no values", ErrUnsupportedFilter, op.Key())
		}
		conds := make([]string, len(values))
		for i := range values {
			conds[i] = column + " CONTAINS ?"
		}
		return strings.Join(conds, " AND "), values, nil
	case filter.HasKey:
		return column + " CONTAINS KEY ?", []interface{}{clause.Value}, nil
	default:
		return "", nil, fmt.Errorf("%w: operator %s is not supported by cassandra", ErrUnsupportedFilter, op.Key())
	}
}

func cqlProjection(entity *schema.Entity, project []string) (string, error) {
	if len(project) == 0 {
		project = entity.Projections()
	}
	columns := make([]string, 0, len(project))
	for _, name := range project {
		f, ok := entity.Field(name)
		if !ok {
			return "", fmt.Errorf("%w: %s has no field %q", schema.ErrUnknownField, entity.Kind, name)
		}
		if f.Column == f.Name {
			columns = append(columns, f.Column)
			continue
		}
		columns = append(columns, f.Column+" AS "+f.Name)
	}
	return strings.Join(columns, ", "), nil
}

func cqlOrder(entity *schema.Entity, orderBy []types.Order) (string, error) {
	parts := make([]string, 0, len(orderBy))
	for _, o := range orderBy {
		field, path, err := entity.ResolvePath(o.Field)
		if err != nil {
			return "", err
		}
		if len(path) > 0 {
			return "", fmt.Errorf("%w: cannot order by nested path %q", ErrUnsupportedFilter, o.Field)
		}
		direction := "ASC"
		if o.Descending {
			direction = "DESC"
		}
		parts = append(parts, field.Column+" "+direction)
	}
	return strings.Join(parts, ", "), nil
}
