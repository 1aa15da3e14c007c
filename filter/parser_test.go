package filter_test

import (
	"errors"
	"testing"
	"time"

	"github.com/aiidateam/aiida-data-apis/filter"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type expr = filter.Expression
type term = map[string]interface{}
type list = []interface{}

func TestParse(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		text string
		want filter.Expression
	}{
		{"", expr{}},
		{"   ", expr{}},
		{"a==1", expr{"a": term{"==": int64(1)}}},
		{"a==-5", expr{"a": term{"==": int64(-5)}}},
		{"a_bc>='d'", expr{"a_bc": term{">=": "d"}}},
		{"a.b<=c", expr{"a.b": term{"<=": "c"}}},
		{"a != 1.0", expr{"a": term{"!=": 1.0}}},
		{"a > 1.5e3", expr{"a": term{">": 1500.0}}},
		{"a < 2", expr{"a": term{"<": int64(2)}}},
		{"a==2020-01-01", expr{"a": term{"==": time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}}},
		{"a==2020-01-01 10:11", expr{"a": term{"==": time.Date(2020, 1, 1, 10, 11, 0, 0, time.UTC)}}},
		{"a==2020-01-01 10:11:12", expr{"a": term{"==": time.Date(2020, 1, 1, 10, 11, 12, 0, time.UTC)}}},
		{"a==10:11", expr{"a": term{"==": time.Date(0, 1, 1, 10, 11, 0, 0, time.UTC)}}},
		{"a == 1 AND b == 2", expr{"a": term{"==": int64(1)}, "b": term{"==": int64(2)}}},
		{"a == 1 and b == 2", expr{"a": term{"==": int64(1)}, "b": term{"==": int64(2)}}},
		{`a LIKE "x%"`, expr{"a": term{"like": "x%"}}},
		{`a iLIKE "x%"`, expr{"a": term{"ilike": "x%"}}},
		{`a ilike 'x%'`, expr{"a": term{"ilike": "x%"}}},
		{"a LENGTH 33", expr{"a": term{"of_length": int64(33)}}},
		{"a OF LENGTH 33", expr{"a": term{"of_length": int64(33)}}},
		{"a IN 1", expr{"a": term{"in": list{int64(1)}}}},
		{"a IS IN 1", expr{"a": term{"in": list{int64(1)}}}},
		{"a IN 1,2,3", expr{"a": term{"in": list{int64(1), int64(2), int64(3)}}}},
		{"a IN 1, 2 ,3", expr{"a": term{"in": list{int64(1), int64(2), int64(3)}}}},
		{"a IN x,y,z", expr{"a": term{"in": list{"x", "y", "z"}}}},
		{`a IN "x","y","z"`, expr{"a": term{"in": list{"x", "y", "z"}}}},
		{"a CONTAINS 1,2", expr{"a": term{"contains": list{int64(1), int64(2)}}}},
		{`a CONTAINS "x"`, expr{"a": term{"contains": list{"x"}}}},
		{`a HAS "x"`, expr{"a": term{"has_key": "x"}}},
		{`a HAS KEY "y"`, expr{"a": term{"has_key": "y"}}},
		{"a HAS y", expr{"a": term{"has_key": "y"}}},
		{
			"a < 2 & a >=1 & a == 3",
			expr{"a": term{"and": list{term{"<": int64(2)}, term{">=": int64(1)}, term{"==": int64(3)}}}},
		},
		{
			`attributes.value > 42 AND node_type LIKE "data.core.int%" & attributes.value <= 100`,
			expr{
				"attributes.value": term{"and": list{term{">": int64(42)}, term{"<=": int64(100)}}},
				"node_type":        term{"like": "data.core.int%"},
			},
		},
	} {
		t.Run(tc.text, func(t *testing.T) {
			got, err := filter.Parse(tc.text)
			require.NoError(t, err)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("Parse(%q) mismatch (-want +got):\n%s", tc.text, diff)
			}
		})
	}
}

func TestParseSyntaxError(t *testing.T) {
	t.Parallel()

	for _, text := range []string{
		`a LIKE "x%`,
		"a ~= 1",
		"a FOO 1",
		"a==",
		"a==1 AND",
		"a==1 b==2",
		"== 1",
		"A==1",
		"a==B",
		"a IN",
		"a IN 1,",
		"a OF 3",
		"a.1 == 2",
		"a LIKE x",
		"a ILIKE 3",
		"a HAS 1",
		"a HAS KEY 2021-01-01",
	} {
		t.Run(text, func(t *testing.T) {
			got, err := filter.Parse(text)
			assert.Nil(t, got)
			var serr *filter.SyntaxError
			require.True(t, errors.As(err, &serr), "expected a syntax error, got %v", err)
			assert.Contains(t, serr.Error(), "malformed filter string")
			assert.Equal(t, text, serr.Input)
		})
	}
}

func TestParseSyntaxErrorPosition(t *testing.T) {
	_, err := filter.Parse("a==1 & B==2")
	var serr *filter.SyntaxError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, 7, serr.Offset)
	assert.Equal(t, "B==2", serr.Near)
}

func TestParseSyntaxErrorWrongValueShape(t *testing.T) {
	_, err := filter.Parse(`a == 1 & b LIKE x`)
	var serr *filter.SyntaxError
	require.True(t, errors.As(err, &serr), "expected a syntax error, got %v", err)
	assert.Equal(t, 16, serr.Offset)
	assert.Contains(t, serr.Error(), "like expects a quoted string")
}

func TestParseInvalidValue(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		text     string
		operator string
	}{
		{"a LENGTH 1.5", "of_length"},
		{"a LENGTH -1", "of_length"},
		{`a LENGTH "x"`, "of_length"},
		{"a == 99999999999999999999", "=="},
		{"a IN 1, 99999999999999999999", "in"},
		{"a == 2020-13-01", "=="},
		{"a == 25:00", "=="},
	} {
		t.Run(tc.text, func(t *testing.T) {
			got, err := filter.Parse(tc.text)
			assert.Nil(t, got)
			var verr *filter.InvalidValueError
			require.True(t, errors.As(err, &verr), "expected an invalid value error, got %v", err)
			assert.Equal(t, "a", verr.Property)
			assert.Equal(t, tc.operator, verr.Operator)
		})
	}
}

func TestParseClausesKeepsSourceOrder(t *testing.T) {
	clauses, err := filter.ParseClauses(`b == 1 & a IN x,y & b != 2`)
	require.NoError(t, err)

	want := []filter.Clause{
		{Property: "b", Operator: filter.Eq, Value: int64(1)},
		{Property: "a", Operator: filter.In, Value: list{"x", "y"}},
		{Property: "b", Operator: filter.Ne, Value: int64(2)},
	}
	if diff := cmp.Diff(want, clauses); diff != "" {
		t.Fatalf("ParseClauses mismatch (-want +got):\n%s", diff)
	}
}

func TestParseIsIdempotent(t *testing.T) {
	text := `a < 2 & a >= 1 & b.c HAS KEY "k" & d IN 1,"two",3.0 & e == 2021-06-30 12:00`
	first, err := filter.Parse(text)
	require.NoError(t, err)
	second, err := filter.Parse(text)
	require.NoError(t, err)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("parsing twice differs (-first +second):\n%s", diff)
	}
}
