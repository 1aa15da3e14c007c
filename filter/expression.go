package filter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"
)

// Expression maps a property path to its comparisons. A property filtered once
// maps to {operatorKey: value}; a property filtered several times maps to
// {"and": [{operatorKey: value}, ...]}. A structured expression may also map a
// property straight to a scalar, which means equality.
type Expression map[string]interface{}

// Build turns clauses into an expression. Clauses on the same property are
// combined under "and" in the order they were given.
func Build(clauses []Clause) Expression {
	expr := Expression{}
	for _, c := range clauses {
		term := map[string]interface{}{c.Operator.Key(): c.Value}
		current, ok := expr[c.Property]
		if !ok {
			expr[c.Property] = term
			continue
		}
		m := current.(map[string]interface{})
		if terms, ok := m[andKey].([]interface{}); ok && len(m) == 1 {
			m[andKey] = append(terms, term)
			continue
		}
		expr[c.Property] = map[string]interface{}{andKey: []interface{}{current, term}}
	}
	return expr
}

// ParseJSON decodes a structured filter object. JSON numbers become int64
// when integral and float64 otherwise.
func ParseJSON(data []byte) (Expression, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("could not parse filters as JSON: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("could not parse filters as JSON: unexpected data after the filter object")
	}
	expr := Expression(normalizeJSON(raw).(map[string]interface{}))
	if _, err := expr.Clauses(); err != nil {
		return nil, err
	}
	return expr, nil
}

func normalizeJSON(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, e := range t {
			t[k] = normalizeJSON(e)
		}
		return t
	case []interface{}:
		for i, e := range t {
			t[i] = normalizeJSON(e)
		}
		return t
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	}
	return v
}

// Clauses validates the expression and flattens it into clauses. Properties
// are visited in sorted order, "and" terms in list order and the operators of
// a single term in sorted key order.
func (e Expression) Clauses() ([]Clause, error) {
	properties := make([]string, 0, len(e))
	for p := range e {
		properties = append(properties, p)
	}
	sort.Strings(properties)

	var clauses []Clause
	for _, p := range properties {
		var err error
		clauses, err = appendTerm(clauses, p, e[p], true)
		if err != nil {
			return nil, err
		}
	}
	return clauses, nil
}

func appendTerm(clauses []Clause, property string, term interface{}, allowAnd bool) ([]Clause, error) {
	m, ok := term.(map[string]interface{})
	if !ok {
		value, err := normalizeValue(property, Eq, term)
		if err != nil {
			return nil, err
		}
		return append(clauses, Clause{Property: property, Operator: Eq, Value: value}), nil
	}
	if len(m) == 0 {
		return nil, newInvalidValueError(property, "", term, -1, "empty comparison")
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if k == andKey {
			if !allowAnd {
				return nil, newInvalidValueError(property, andKey, m[k], -1, "nested %q is not supported", andKey)
			}
			terms, ok := m[k].([]interface{})
			if !ok {
				return nil, newInvalidValueError(property, andKey, m[k], -1, "expected a list of comparisons")
			}
			for _, t := range terms {
				var err error
				if clauses, err = appendTerm(clauses, property, t, false); err != nil {
					return nil, err
				}
			}
			continue
		}

		op, err := ParseOperator(k)
		if err != nil {
			return nil, newInvalidValueError(property, k, m[k], -1, "%s", err.Error())
		}
		value, err := normalizeValue(property, op, m[k])
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, Clause{Property: property, Operator: op, Value: value})
	}
	return clauses, nil
}

func normalizeValue(property string, op Operator, v interface{}) (interface{}, error) {
	if op.IsList() {
		list, ok := toList(v)
		if !ok {
			return nil, newInvalidValueError(property, op.Key(), v, -1, "expected a list")
		}
		values := make([]interface{}, 0, len(list))
		for _, e := range list {
			s, err := normalizeScalar(property, op, e)
			if err != nil {
				return nil, err
			}
			values = append(values, s)
		}
		return values, nil
	}

	value, err := normalizeScalar(property, op, v)
	if err != nil {
		return nil, err
	}
	switch op {
	case Like, ILike, HasKey:
		if _, ok := value.(string); !ok {
			return nil, newInvalidValueError(property, op.Key(), v, -1, "expected a string")
		}
	case OfLength:
		n, ok := value.(int64)
		if !ok || n < 0 {
			return nil, newInvalidValueError(property, op.Key(), v, -1, "expected a non-negative integer")
		}
	}
	return value, nil
}

func normalizeScalar(property string, op Operator, v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case int64, float64, string, bool, time.Time:
		return t, nil
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case float32:
		return float64(t), nil
	case json.Number:
		return normalizeJSON(t), nil
	}
	return nil, newInvalidValueError(property, op.Key(), v, -1, "unsupported value type %T", v)
}

func toList(v interface{}) ([]interface{}, bool) {
	switch t := v.(type) {
	case []interface{}:
		return t, true
	case []string:
		list := make([]interface{}, len(t))
		for i, s := range t {
			list[i] = s
		}
		return list, true
	case []int64:
		list := make([]interface{}, len(t))
		for i, n := range t {
			list[i] = n
		}
		return list, true
	}
	return nil, false
}

// Clone returns a deep copy of the expression.
func (e Expression) Clone() Expression {
	if e == nil {
		return nil
	}
	return cloneValue(map[string]interface{}(e)).(map[string]interface{})
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, e := range t {
			m[k] = cloneValue(e)
		}
		return m
	case []interface{}:
		s := make([]interface{}, len(t))
		for i, e := range t {
			s[i] = cloneValue(e)
		}
		return s
	}
	return v
}
