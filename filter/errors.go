package filter

import "fmt"

const nearWidth = 16

// SyntaxError reports a filter string that does not match the grammar.
type SyntaxError struct {
	Input  string
	Offset int
	Near   string
	Msg    string
}

func (e *SyntaxError) Error() string {
	if e.Near == "" {
		return fmt.Sprintf("malformed filter string: %s at offset %d", e.Msg, e.Offset)
	}
	return fmt.Sprintf("malformed filter string: %s at offset %d near %q", e.Msg, e.Offset, e.Near)
}

func newSyntaxError(input string, offset int, msg string) *SyntaxError {
	if offset < 0 {
		offset = 0
	}
	if offset > len(input) {
		offset = len(input)
	}
	end := offset + nearWidth
	if end > len(input) {
		end = len(input)
	}
	return &SyntaxError{Input: input, Offset: offset, Near: input[offset:end], Msg: msg}
}

// InvalidValueError reports a value that cannot be used with its operator.
type InvalidValueError struct {
	Property string
	Operator string
	Value    interface{}
	Offset   int
	Msg      string
}

func (e *InvalidValueError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("invalid value %v for %s %s at offset %d: %s", e.Value, e.Property, e.Operator, e.Offset, e.Msg)
	}
	return fmt.Sprintf("invalid value %v for %s %s: %s", e.Value, e.Property, e.Operator, e.Msg)
}

func newInvalidValueError(property, operator string, value interface{}, offset int, format string, args ...interface{}) *InvalidValueError {
	return &InvalidValueError{
		Property: property,
		Operator: operator,
		Value:    value,
		Offset:   offset,
		Msg:      fmt.Sprintf(format, args...),
	}
}
