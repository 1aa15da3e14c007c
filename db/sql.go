package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/aiidateam/aiida-data-apis/filter"
	"github.com/aiidateam/aiida-data-apis/query"
	"github.com/aiidateam/aiida-data-apis/schema"
	"github.com/aiidateam/aiida-data-apis/types"
)

// ErrUnsupportedFilter is returned when a filter cannot be expressed in the
// query language of a backend.
var ErrUnsupportedFilter = errors.New("unsupported filter")

var sqlComparison = map[filter.Operator]string{
	filter.Eq:  "=",
	filter.Ne:  "<>",
	filter.Lt:  "<",
	filter.Lte: "<=",
	filter.Gt:  ">",
	filter.Gte: ">=",
}

// CompileFilterSQL compiles a filter expression on entity into a SQL
// condition and its args. Placeholders are numbered from startArg. The
// returned SQL does not include the WHERE keyword.
func CompileFilterSQL(entity *schema.Entity, expr filter.Expression, startArg int) (sql string, args []interface{}, nextArg int, err error) {
	if startArg < 1 {
		startArg = 1
	}
	if len(expr) == 0 {
		return "", nil, startArg, nil
	}
	clauses, err := expr.Clauses()
	if err != nil {
		return "", nil, startArg, err
	}

	c := sqlCompiler{entity: entity, nextArg: startArg}
	parts := make([]string, 0, len(clauses))
	for _, clause := range clauses {
		part, err := c.compile(clause)
		if err != nil {
			return "", nil, startArg, err
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, " AND "), c.args, c.nextArg, nil
}

type sqlCompiler struct {
	entity  *schema.Entity
	args    []interface{}
	nextArg int
}

func (c *sqlCompiler) compile(clause filter.Clause) (string, error) {
	field, path, err := c.entity.ResolvePath(clause.Property)
	if err != nil {
		return "", err
	}
	column := quoteIdent(field.Column)

	switch op := clause.Operator; op {
	case filter.Eq, filter.Ne, filter.Lt, filter.Lte, filter.Gt, filter.Gte:
		return c.compare(field, column, path, op, clause.Value)
	case filter.Like, filter.ILike:
		keyword := "LIKE"
		if op == filter.ILike {
			keyword = "ILIKE"
		}
		return fmt.Sprintf("(%s %s %s)", textExpr(field, column, path), keyword, c.bind(clause.Value)), nil
	case filter.OfLength:
		if err := requireJSON(field, op); err != nil {
			return "", err
		}
		return fmt.Sprintf("(jsonb_array_length(%s) = %s)", jsonExpr(column, path), c.bind(clause.Value)), nil
	case filter.Contains:
		if err := requireJSON(field, op); err != nil {
			return "", err
		}
		ph, err := c.bindJSONB(clause.Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s @> %s::jsonb)", jsonExpr(column, path), ph), nil
	case filter.In:
		return c.compileIn(field, column, path, clause.Value)
	case filter.HasKey:
		if err := requireJSON(field, op); err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s ? %s)", jsonExpr(column, path), c.bind(clause.Value)), nil
	default:
		return "", fmt.Errorf("%w: operator %s", ErrUnsupportedFilter, op)
	}
}

func (c *sqlCompiler) compare(field schema.Field, column string, path []string, op filter.Operator, value interface{}) (string, error) {
	symbol := sqlComparison[op]
	if field.Type != schema.JSON {
		return fmt.Sprintf("(%s %s %s)", column, symbol, c.bind(value)), nil
	}

	if len(path) > 0 {
		text := textExpr(field, column, path)
		if num, ok := toFloat64(value); ok {
			return fmt.Sprintf("((%s)::double precision %s %s)", text, symbol, c.bind(num)), nil
		}
		switch v := value.(type) {
		case bool:
			return fmt.Sprintf("((%s)::boolean %s %s)", text, symbol, c.bind(v)), nil
		case time.Time:
			return fmt.Sprintf("((%s)::timestamptz %s %s)", text, symbol, c.bind(v)), nil
		case string:
			return fmt.Sprintf("(%s %s %s)", text, symbol, c.bind(v)), nil
		}
	}

	if op != filter.Eq && op != filter.Ne {
		return "", fmt.Errorf("%w: %s cannot compare whole JSON field %q", ErrUnsupportedFilter, op.Key(), field.Name)
	}
	ph, err := c.bindJSONB(value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s %s %s::jsonb)", jsonExpr(column, path), symbol, ph), nil
}

func (c *sqlCompiler) compileIn(field schema.Field, column string, path []string, value interface{}) (string, error) {
	values, _ := value.([]interface{})
	if len(values) == 0 {
		return "FALSE", nil
	}

	parts := make([]string, 0, len(values))
	for _, v := range values {
		if field.Type != schema.JSON {
			parts = append(parts, c.bind(v))
			continue
		}
		ph, err := c.bindJSONB(v)
		if err != nil {
			return "", err
		}
		parts = append(parts, ph+"::jsonb")
	}
	target := column
	if field.Type == schema.JSON {
		target = jsonExpr(column, path)
	}
	return fmt.Sprintf("(%s IN (%s))", target, strings.Join(parts, ", ")), nil
}

func (c *sqlCompiler) bind(v interface{}) string {
	ph := fmt.Sprintf("$%d", c.nextArg)
	c.nextArg++
	c.args = append(c.args, v)
	return ph
}

func (c *sqlCompiler) bindJSONB(v interface{}) (string, error) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: JSON encode value: %v", ErrUnsupportedFilter, err)
	}
	return c.bind(string(encoded)), nil
}

func requireJSON(field schema.Field, op filter.Operator) error {
	if field.Type != schema.JSON {
		return fmt.Errorf("%w: %s requires a JSON field, %q is %s", ErrUnsupportedFilter, op.Key(), field.Name, field.Type)
	}
	return nil
}

// jsonExpr returns the jsonb value at path inside column.
func jsonExpr(column string, path []string) string {
	if len(path) == 0 {
		return column
	}
	return fmt.Sprintf("(%s #> ARRAY[%s])", column, pathArraySQL(path))
}

// textExpr returns the text value of a field, or of path inside a JSON field.
func textExpr(field schema.Field, column string, path []string) string {
	switch {
	case field.Type == schema.JSON && len(path) > 0:
		return fmt.Sprintf("(%s #>> ARRAY[%s])", column, pathArraySQL(path))
	case field.Type == schema.String:
		return column
	}
	return fmt.Sprintf("(%s)::text", column)
}

func pathArraySQL(path []string) string {
	parts := make([]string, 0, len(path))
	for _, p := range path {
		parts = append(parts, singleQuoted(p))
	}
	return strings.Join(parts, ", ")
}

func singleQuoted(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

func quoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// sqlWhere combines the filters and the related scope into a WHERE clause.
func sqlWhere(entity *schema.Entity, filters filter.Expression, related *query.RelatedScope, startArg int) (string, []interface{}, int, error) {
	cond, args, next, err := CompileFilterSQL(entity, filters, startArg)
	if err != nil {
		return "", nil, startArg, err
	}
	var conds []string
	if cond != "" {
		conds = append(conds, cond)
	}
	if related != nil {
		scope, err := relatedSQL(entity, related, fmt.Sprintf("$%d", next))
		if err != nil {
			return "", nil, startArg, err
		}
		conds = append(conds, scope)
		args = append(args, related.Identifier)
		next++
	}
	if len(conds) == 0 {
		return "", args, next, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, next, nil
}

// relatedSQL restricts target rows to the ones reached from the scope source.
func relatedSQL(target *schema.Entity, scope *query.RelatedScope, ph string) (string, error) {
	rel := scope.Relation
	source := scope.Source
	switch rel.Join {
	case schema.JoinTargetKey:
		return fmt.Sprintf("(%s = %s)", quoteIdent(rel.Column), ph), nil
	case schema.JoinSourceKey:
		return fmt.Sprintf("(%s = (SELECT %s FROM %s WHERE %s = %s))",
			quoteIdent(target.Identity().Column),
			quoteIdent(rel.Column),
			quoteIdent(source.Table),
			quoteIdent(source.Identity().Column),
			ph), nil
	case schema.JoinLinkTable:
		return fmt.Sprintf("(%s IN (SELECT %s FROM %s WHERE %s = %s))",
			quoteIdent(target.Identity().Column),
			quoteIdent(rel.LinkTarget),
			quoteIdent(rel.LinkTable),
			quoteIdent(rel.LinkSource),
			ph), nil
	}
	return "", fmt.Errorf("%w: relation %q of %s", ErrUnsupportedFilter, rel.Name, source.Kind)
}

func buildCountSQL(entity *schema.Entity, opts query.CountOptions) (string, []interface{}, error) {
	where, args, _, err := sqlWhere(entity, opts.Filters, opts.Related, 1)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("SELECT count(*) FROM %s%s", quoteIdent(entity.Table), where), args, nil
}

func buildFindSQL(entity *schema.Entity, opts query.FindOptions) (string, []interface{}, error) {
	columns, err := projectionSQL(entity, opts.Project)
	if err != nil {
		return "", nil, err
	}
	where, args, next, err := sqlWhere(entity, opts.Filters, opts.Related, 1)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s%s", columns, quoteIdent(entity.Table), where)

	if len(opts.OrderBy) > 0 {
		order, err := orderSQL(entity, opts.OrderBy)
		if err != nil {
			return "", nil, err
		}
		b.WriteString(" ORDER BY " + order)
	}
	if opts.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT $%d", next)
		args = append(args, opts.Limit)
		next++
	}
	if opts.Offset > 0 {
		fmt.Fprintf(&b, " OFFSET $%d", next)
		args = append(args, opts.Offset)
	}
	return b.String(), args, nil
}

func projectionSQL(entity *schema.Entity, project []string) (string, error) {
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
			columns = append(columns, quoteIdent(f.Column))
			continue
		}
		columns = append(columns, quoteIdent(f.Column)+" AS "+quoteIdent(f.Name))
	}
	return strings.Join(columns, ", "), nil
}

func orderSQL(entity *schema.Entity, orderBy []types.Order) (string, error) {
	parts := make([]string, 0, len(orderBy))
	for _, o := range orderBy {
		field, path, err := entity.ResolvePath(o.Field)
		if err != nil {
			return "", err
		}
		direction := "ASC"
		if o.Descending {
			direction = "DESC"
		}
		parts = append(parts, jsonExpr(quoteIdent(field.Column), path)+" "+direction)
	}
	return strings.Join(parts, ", "), nil
}
