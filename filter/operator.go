package filter

import "fmt"

// Operator is the comparison applied by a single clause.
type Operator int

const (
	Eq Operator = iota
	Ne
	Lt
	Lte
	Gt
	Gte
	Like
	ILike
	OfLength
	Contains
	In
	HasKey
)

// andKey collects the clauses of a property that is filtered more than once.
const andKey = "and"

var operatorKeys = [...]string{
	Eq:       "==",
	Ne:       "!=",
	Lt:       "<",
	Lte:      "<=",
	Gt:       ">",
	Gte:      ">=",
	Like:     "like",
	ILike:    "ilike",
	OfLength: "of_length",
	Contains: "contains",
	In:       "in",
	HasKey:   "has_key",
}

var operatorNames = [...]string{
	Eq:       "eq",
	Ne:       "ne",
	Lt:       "lt",
	Lte:      "lte",
	Gt:       "gt",
	Gte:      "gte",
	Like:     "like",
	ILike:    "ilike",
	OfLength: "of_length",
	Contains: "contains",
	In:       "in",
	HasKey:   "has_key",
}

// Operators lists every operator in declaration order.
func Operators() []Operator {
	ops := make([]Operator, 0, len(operatorKeys))
	for op := range operatorKeys {
		ops = append(ops, Operator(op))
	}
	return ops
}

// Key returns the key the operator uses inside a filter expression.
func (o Operator) Key() string {
	if !o.valid() {
		return ""
	}
	return operatorKeys[o]
}

func (o Operator) String() string {
	if !o.valid() {
		return fmt.Sprintf("Operator(%d)", int(o))
	}
	return operatorNames[o]
}

// IsList reports whether the operator takes a list of values.
func (o Operator) IsList() bool {
	return o == Contains || o == In
}

func (o Operator) valid() bool {
	return o >= Eq && o <= HasKey
}

// ParseOperator returns the operator whose expression key is key.
func ParseOperator(key string) (Operator, error) {
	for op, k := range operatorKeys {
		if k == key {
			return Operator(op), nil
		}
	}
	return 0, fmt.Errorf("unknown operator %q", key)
}

func operatorFromSymbol(symbol string) (Operator, bool) {
	switch symbol {
	case "==":
		return Eq, true
	case "!=":
		return Ne, true
	case "<":
		return Lt, true
	case "<=":
		return Lte, true
	case ">":
		return Gt, true
	case ">=":
		return Gte, true
	}
	return 0, false
}
