// Package filter implements the filter string language used to query
// entities, e.g. `a==1 AND b.c LIKE "x%"`, and the filter expression tree it
// translates to.
package filter

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/participle/v2"
)

const (
	dateLayout       = "2006-01-02"
	dateMinuteLayout = "2006-01-02 15:04"
	dateSecondLayout = "2006-01-02 15:04:05"
	timeMinuteLayout = "15:04"
	timeSecondLayout = "15:04:05"
)

// Clause is a single property comparison.
type Clause struct {
	Property string
	Operator Operator
	// Value holds an int64, float64, string, bool or time.Time. List operators
	// hold a []interface{} of those.
	Value interface{}
}

// Parse converts a filter string into a filter expression. Empty input yields
// an empty expression.
func Parse(input string) (Expression, error) {
	clauses, err := ParseClauses(input)
	if err != nil {
		return nil, err
	}
	return Build(clauses), nil
}

// ParseClauses converts a filter string into its clauses, in source order.
func ParseClauses(input string) ([]Clause, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}

	ast, err := filterParser.ParseString("", input)
	if err != nil {
		return nil, toSyntaxError(input, err)
	}

	clauses := make([]Clause, 0, len(ast.Comparisons))
	for _, comparison := range ast.Comparisons {
		clause, err := comparison.clause(input)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, clause)
	}
	return clauses, nil
}

func toSyntaxError(input string, err error) error {
	var perr participle.Error
	if errors.As(err, &perr) {
		return newSyntaxError(input, perr.Position().Offset, perr.Message())
	}
	return newSyntaxError(input, 0, err.Error())
}

func (c *comparisonAST) clause(input string) (Clause, error) {
	if err := checkProperty(input, c.Property, c.Pos.Offset); err != nil {
		return Clause{}, err
	}

	clause := Clause{Property: c.Property}
	var err error
	switch {
	case c.Compare != nil:
		op, ok := operatorFromSymbol(c.Compare.Operator)
		if !ok {
			return Clause{}, newSyntaxError(input, c.Pos.Offset, fmt.Sprintf("unknown operator %q", c.Compare.Operator))
		}
		clause.Operator = op
		clause.Value, err = c.scalar(input, op, c.Compare.Value)
	case c.Fuzzy != nil:
		clause.Operator = Like
		if strings.EqualFold(c.Fuzzy.Keyword, "ilike") {
			clause.Operator = ILike
		}
		if c.Fuzzy.Value.String == nil {
			return Clause{}, newSyntaxError(input, c.Fuzzy.Value.Pos.Offset, fmt.Sprintf("%s expects a quoted string", clause.Operator.Key()))
		}
		clause.Value, err = c.scalar(input, clause.Operator, c.Fuzzy.Value)
	case c.Length != nil:
		clause.Operator = OfLength
		clause.Value, err = c.length(c.Length.Value)
	case c.Contains != nil:
		clause.Operator = Contains
		clause.Value, err = c.list(input, Contains, c.Contains)
	case c.In != nil:
		clause.Operator = In
		clause.Value, err = c.list(input, In, c.In)
	case c.Has != nil:
		clause.Operator = HasKey
		if c.Has.Value.String == nil && c.Has.Value.Property == nil {
			return Clause{}, newSyntaxError(input, c.Has.Value.Pos.Offset, fmt.Sprintf("%s expects a quoted string or a property name", HasKey.Key()))
		}
		clause.Value, err = c.scalar(input, HasKey, c.Has.Value)
	default:
		return Clause{}, newSyntaxError(input, c.Pos.Offset, "missing comparison")
	}
	if err != nil {
		return Clause{}, err
	}
	return clause, nil
}

func (c *comparisonAST) scalar(input string, op Operator, v *valueAST) (interface{}, error) {
	if v.Property != nil {
		if err := checkProperty(input, *v.Property, v.Pos.Offset); err != nil {
			return nil, err
		}
	}
	value, err := v.literal()
	if err != nil {
		return nil, c.invalid(op, v, err.Error())
	}
	return value, nil
}

func (c *comparisonAST) list(input string, op Operator, l *listAST) (interface{}, error) {
	values := make([]interface{}, 0, len(l.Values))
	for _, v := range l.Values {
		value, err := c.scalar(input, op, v)
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, nil
}

func (c *comparisonAST) length(v *valueAST) (interface{}, error) {
	if v.Int == nil {
		return nil, c.invalid(OfLength, v, "expected a non-negative integer")
	}
	n, err := strconv.ParseInt(*v.Int, 10, 64)
	if err != nil {
		return nil, c.invalid(OfLength, v, "integer out of range")
	}
	if n < 0 {
		return nil, c.invalid(OfLength, v, "expected a non-negative integer")
	}
	return n, nil
}

func (c *comparisonAST) invalid(op Operator, v *valueAST, msg string) error {
	return newInvalidValueError(c.Property, op.Key(), v.raw(), v.Pos.Offset, "%s", msg)
}

// literal converts the matched token into its typed value.
func (v *valueAST) literal() (interface{}, error) {
	switch {
	case v.DateTime != nil:
		return parseDateTime(*v.DateTime)
	case v.Time != nil:
		return parseTime(*v.Time)
	case v.Float != nil:
		f, err := strconv.ParseFloat(*v.Float, 64)
		if err != nil || math.IsInf(f, 0) {
			return nil, fmt.Errorf("float out of range")
		}
		return f, nil
	case v.Int != nil:
		n, err := strconv.ParseInt(*v.Int, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("integer out of range")
		}
		return n, nil
	case v.String != nil:
		s := *v.String
		return s[1 : len(s)-1], nil
	case v.Property != nil:
		return *v.Property, nil
	}
	return nil, fmt.Errorf("missing value")
}

func parseDateTime(s string) (time.Time, error) {
	layout := dateLayout
	switch len(s) {
	case len(dateMinuteLayout):
		layout = dateMinuteLayout
	case len(dateSecondLayout):
		layout = dateSecondLayout
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}

// parseTime parses a bare time of day. The result carries no date, which
// time.Parse represents as January 1 of year 0.
func parseTime(s string) (time.Time, error) {
	layout := timeMinuteLayout
	if len(s) == len(timeSecondLayout) {
		layout = timeSecondLayout
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q", s)
	}
	return t, nil
}

func checkProperty(input, property string, offset int) error {
	if strings.ToLower(property) != property {
		return newSyntaxError(input, offset, fmt.Sprintf("property %q must be lowercase", property))
	}
	return nil
}
