package graphql

import (
	"encoding"
	"fmt"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"

	"github.com/aiidateam/aiida-data-apis/schema"
)

var filterString = graphql.NewScalar(graphql.ScalarConfig{
	Name: "FilterString",
	Description: "The `FilterString` scalar type represents a filter over entity fields, e.g." +
		" `node_type LIKE \"data%\" & ctime > 2021-01-01`",
	Serialize:    identityFn,
	ParseValue:   deserializeFilter,
	ParseLiteral: parseLiteralFromStringHandler(deserializeFilter),
})

var uuidScalar = newStringScalar(
	"UUID", "The `UUID` scalar type represents a uuid as a string.",
	serializeStringer, identityFn)

var timestamp = newStringScalar(
	"Timestamp", "The `Timestamp` scalar type represents a DateTime."+
		" The Timestamp is serialized as an RFC 3339 quoted string",
	serializeTimestamp, deserializeTimestamp)

var jsonScalar = graphql.NewScalar(graphql.ScalarConfig{
	Name: "JSON",
	Description: "The `JSON` scalar type represents a generic value that could be a" +
		" String, Boolean, Int, Float, List or Object.",
	Serialize:    identityFn,
	ParseValue:   identityFn,
	ParseLiteral: parseJSONLiteral,
})

func outputType(t schema.FieldType) graphql.Output {
	switch t {
	case schema.Int:
		return graphql.Int
	case schema.Float:
		return graphql.Float
	case schema.Bool:
		return graphql.Boolean
	case schema.Timestamp:
		return timestamp
	case schema.UUID:
		return uuidScalar
	case schema.JSON:
		return jsonScalar
	}
	return graphql.String
}

// newStringScalar creates a string-based scalar with custom serialization functions
func newStringScalar(
	name string, description string, serializeFn graphql.SerializeFn, deserializeFn graphql.ParseValueFn,
) *graphql.Scalar {
	return graphql.NewScalar(graphql.ScalarConfig{
		Name:         name,
		Description:  description,
		Serialize:    serializeFn,
		ParseValue:   deserializeFn,
		ParseLiteral: parseLiteralFromStringHandler(deserializeFn),
	})
}

func identityFn(value interface{}) interface{} {
	return value
}

func parseLiteralFromStringHandler(parser graphql.ParseValueFn) graphql.ParseLiteralFn {
	return func(valueAST ast.Value) interface{} {
		switch valueAST := valueAST.(type) {
		case *ast.StringValue:
			return parser(valueAST.Value)
		}
		return nil
	}
}

// deserializeFilter keeps the filter text. It is parsed by the resolver so
// syntax errors reach the client with their position.
func deserializeFilter(value interface{}) interface{} {
	switch value := value.(type) {
	case string:
		return value
	case *string:
		if value == nil {
			return nil
		}
		return *value
	}
	return nil
}

var deserializeTimestamp = deserializeFromUnmarshaler(func() encoding.TextUnmarshaler {
	return &time.Time{}
})

func deserializeFromUnmarshaler(factory func() encoding.TextUnmarshaler) graphql.ParseValueFn {
	var fn func(value interface{}) interface{}

	fn = func(value interface{}) interface{} {
		switch value := value.(type) {
		case []byte:
			t := factory()
			err := t.UnmarshalText(value)
			if err != nil {
				return nil
			}

			return t
		case string:
			return fn([]byte(value))
		case *string:
			if value == nil {
				return nil
			}
			return fn([]byte(*value))
		default:
			return value
		}
	}

	return fn
}

func serializeTimestamp(value interface{}) interface{} {
	switch value := value.(type) {
	case time.Time:
		return marshalText(&value)
	case *time.Time:
		if value == nil {
			return nil
		}
		return marshalText(value)
	default:
		return value
	}
}

func serializeStringer(value interface{}) interface{} {
	switch value := value.(type) {
	case fmt.Stringer:
		return value.String()
	default:
		return value
	}
}

func marshalText(value encoding.TextMarshaler) *string {
	buff, err := value.MarshalText()
	if err != nil {
		return nil
	}

	var s = string(buff)
	return &s
}

func parseJSONLiteral(valueAST ast.Value) interface{} {
	switch valueAST := valueAST.(type) {
	case *ast.StringValue:
		return valueAST.Value
	case *ast.BooleanValue:
		return valueAST.Value
	case *ast.IntValue:
		return graphql.Int.ParseLiteral(valueAST)
	case *ast.FloatValue:
		return graphql.Float.ParseLiteral(valueAST)
	case *ast.ListValue:
		values := make([]interface{}, 0, len(valueAST.Values))
		for _, v := range valueAST.Values {
			values = append(values, parseJSONLiteral(v))
		}
		return values
	case *ast.ObjectValue:
		obj := make(map[string]interface{}, len(valueAST.Fields))
		for _, f := range valueAST.Fields {
			obj[f.Name.Value] = parseJSONLiteral(f.Value)
		}
		return obj
	}
	return nil
}
