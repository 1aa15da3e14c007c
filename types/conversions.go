package types

import (
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gopkg.in/inf.v0"

	"github.com/aiidateam/aiida-data-apis/schema"
)

type toJsonFn func(value interface{}) interface{}
type fromJsonFn func(value interface{}) (interface{}, error)

// ToJsonValues converts storage values into values that encode to JSON the
// same way whichever backend produced them.
func ToJsonValues(rows []map[string]interface{}, entity *schema.Entity) []map[string]interface{} {
	result := make([]map[string]interface{}, len(rows))
	for i, row := range rows {
		result[i] = ToJsonValue(row, entity)
	}
	return result
}

func ToJsonValue(row map[string]interface{}, entity *schema.Entity) map[string]interface{} {
	item := make(map[string]interface{}, len(row))
	for name, value := range row {
		if value == nil {
			item[name] = nil
			continue
		}
		converter := identityFn
		if f, ok := entity.Field(name); ok {
			converter = jsonConverterPerType(f.Type)
		}
		item[name] = converter(value)
	}
	return item
}

func jsonConverterPerType(t schema.FieldType) toJsonFn {
	switch t {
	case schema.UUID:
		return StringerToString
	case schema.Timestamp:
		return TimeAsString
	case schema.Float:
		return NumberToFloat
	case schema.Int:
		return NumberToInt
	case schema.JSON:
		return RawToJson
	}
	return identityFn
}

// FromJsonValue converts a request value, usually a string from a path or a
// JSON number, into the Go type of a field.
func FromJsonValue(value interface{}, t schema.FieldType) (interface{}, error) {
	switch t {
	case schema.Int:
		return StringToInt(value)
	case schema.Float:
		return StringToFloat(value)
	case schema.UUID:
		return StringToUUID(value)
	case schema.Timestamp:
		return StringToTime(value)
	case schema.Bool:
		return StringToBool(value)
	}
	return value, nil
}

func identityFn(value interface{}) interface{} {
	return value
}

func StringerToString(value interface{}) interface{} {
	switch value := value.(type) {
	case [16]byte:
		return uuid.UUID(value).String()
	case fmt.Stringer:
		if value == nil {
			return value
		}
		return value.String()
	default:
		return value
	}
}

func TimeAsString(value interface{}) interface{} {
	switch value := value.(type) {
	case time.Time:
		return marshalText(value)
	case *time.Time:
		if value == nil {
			return value
		}
		return marshalText(*value)
	default:
		return value
	}
}

func marshalText(value encoding.TextMarshaler) interface{} {
	buff, err := value.MarshalText()
	if err != nil {
		return nil
	}
	return string(buff)
}

func NumberToInt(value interface{}) interface{} {
	switch value := value.(type) {
	case int:
		return int64(value)
	case int32:
		return int64(value)
	case int16:
		return int64(value)
	case *big.Int:
		if value.IsInt64() {
			return value.Int64()
		}
		return value.String()
	default:
		return value
	}
}

func NumberToFloat(value interface{}) interface{} {
	switch value := value.(type) {
	case float32:
		return float64(value)
	case *inf.Dec:
		f, err := strconv.ParseFloat(value.String(), 64)
		if err != nil {
			return value.String()
		}
		return f
	default:
		return value
	}
}

// RawToJson decodes JSON columns that the driver returned as text.
func RawToJson(value interface{}) interface{} {
	var raw []byte
	switch value := value.(type) {
	case []byte:
		raw = value
	case string:
		raw = []byte(value)
	default:
		return value
	}
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return string(raw)
	}
	return decoded
}

func StringToInt(value interface{}) (interface{}, error) {
	switch value := value.(type) {
	case string:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", value)
		}
		return n, nil
	case int:
		return int64(value), nil
	case int64:
		return value, nil
	case float64:
		return FloatToInt(value)
	case json.Number:
		return value.Int64()
	}
	return nil, errors.New("wrong value provided for int type")
}

func FloatToInt(value interface{}) (interface{}, error) {
	if f, ok := value.(float64); ok && f == float64(int64(f)) {
		return int64(f), nil
	}

	return nil, errors.New("wrong value provided for int type")
}

func StringToFloat(value interface{}) (interface{}, error) {
	switch value := value.(type) {
	case string:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", value)
		}
		return f, nil
	case float64:
		return value, nil
	case int64:
		return float64(value), nil
	}
	return nil, errors.New("wrong value provided for float type")
}

func StringToBool(value interface{}) (interface{}, error) {
	switch value := value.(type) {
	case string:
		return strconv.ParseBool(value)
	case bool:
		return value, nil
	}
	return nil, errors.New("wrong value provided for bool type")
}

func unmarshallerToText(factory func() encoding.TextUnmarshaler, deref func(encoding.TextUnmarshaler) interface{}) fromJsonFn {
	return func(value interface{}) (interface{}, error) {
		switch value := value.(type) {
		case string:
			t := factory()
			err := t.UnmarshalText([]byte(value))
			if err != nil {
				return nil, err
			}

			return deref(t), nil
		default:
			return value, nil
		}
	}
}

var StringToTime = unmarshallerToText(func() encoding.TextUnmarshaler {
	return &time.Time{}
}, func(t encoding.TextUnmarshaler) interface{} {
	return *t.(*time.Time)
})

var StringToUUID = unmarshallerToText(func() encoding.TextUnmarshaler {
	return &uuid.UUID{}
}, func(t encoding.TextUnmarshaler) interface{} {
	return *t.(*uuid.UUID)
})
