package db

import (
	"fmt"
	"math/big"
	"reflect"
	"time"

	"github.com/gocql/gocql"
	"gopkg.in/inf.v0"
)

var typeForCqlType = map[gocql.Type]reflect.Type{
	gocql.TypeFloat:     reflect.TypeOf(float32(0)),
	gocql.TypeDouble:    reflect.TypeOf(float64(0)),
	gocql.TypeInt:       reflect.TypeOf(0),
	gocql.TypeSmallInt:  reflect.TypeOf(int16(0)),
	gocql.TypeTinyInt:   reflect.TypeOf(int8(0)),
	gocql.TypeBigInt:    reflect.TypeOf(int64(0)),
	gocql.TypeCounter:   reflect.TypeOf(int64(0)),
	gocql.TypeDecimal:   reflect.TypeOf(new(inf.Dec)),
	gocql.TypeVarint:    reflect.TypeOf(new(big.Int)),
	gocql.TypeText:      reflect.TypeOf(""),
	gocql.TypeVarchar:   reflect.TypeOf(""),
	gocql.TypeAscii:     reflect.TypeOf(""),
	gocql.TypeBoolean:   reflect.TypeOf(false),
	gocql.TypeInet:      reflect.TypeOf(""),
	gocql.TypeUUID:      reflect.TypeOf(gocql.UUID{}),
	gocql.TypeTimeUUID:  reflect.TypeOf(gocql.UUID{}),
	gocql.TypeTimestamp: reflect.TypeOf(time.Time{}),
}

// mapScan scans the current row into a map keyed by column name. Null
// columns are mapped to nil.
func mapScan(scanner gocql.Scanner, columns []gocql.ColumnInfo) (map[string]interface{}, error) {
	values := make([]interface{}, len(columns))

	for i := range values {
		typeInfo := columns[i].TypeInfo
		allocated := allocateForType(typeInfo)
		if allocated == nil {
			return nil, fmt.Errorf("support for CQL type not found: %s", typeInfo.Type().String())
		}
		values[i] = allocated
	}

	if err := scanner.Scan(values...); err != nil {
		return nil, err
	}

	mapped := make(map[string]interface{}, len(values))
	for i, column := range columns {
		mapped[column.Name] = scannedValue(column.TypeInfo, values[i])
	}
	return mapped, nil
}

// scannedValue dereferences the value allocated for a column. Decimals and
// varints are kept as pointers.
func scannedValue(info gocql.TypeInfo, allocated interface{}) interface{} {
	switch info.Type() {
	case gocql.TypeList, gocql.TypeSet, gocql.TypeMap:
		return reflect.Indirect(reflect.ValueOf(allocated)).Interface()
	}

	ptr := reflect.Indirect(reflect.ValueOf(allocated))
	if ptr.IsNil() {
		return nil
	}
	switch info.Type() {
	case gocql.TypeDecimal, gocql.TypeVarint:
		return ptr.Interface()
	}
	return ptr.Elem().Interface()
}

func allocateForType(info gocql.TypeInfo) interface{} {
	switch info.Type() {
	case gocql.TypeVarchar, gocql.TypeAscii, gocql.TypeInet, gocql.TypeText:
		return new(*string)
	case gocql.TypeBigInt, gocql.TypeCounter:
		return new(*int64)
	case gocql.TypeBoolean:
		return new(*bool)
	case gocql.TypeFloat:
		return new(*float32)
	case gocql.TypeDouble:
		return new(*float64)
	case gocql.TypeInt:
		return new(*int)
	case gocql.TypeSmallInt:
		return new(*int16)
	case gocql.TypeTinyInt:
		return new(*int8)
	case gocql.TypeDecimal:
		return new(*inf.Dec)
	case gocql.TypeVarint:
		return new(*big.Int)
	case gocql.TypeTimeUUID, gocql.TypeUUID:
		return new(*gocql.UUID)
	case gocql.TypeTimestamp:
		return new(*time.Time)
	case gocql.TypeList, gocql.TypeSet:
		subTypeInfo, ok := info.(gocql.CollectionType)
		if !ok {
			return nil
		}

		var subType reflect.Type
		if subType = getSubType(subTypeInfo.Elem); subType == nil {
			return nil
		}

		return reflect.New(reflect.SliceOf(subType)).Interface()
	case gocql.TypeMap:
		subTypeInfo, ok := info.(gocql.CollectionType)
		if !ok {
			return nil
		}

		var keyType reflect.Type
		var valueType reflect.Type
		if keyType = getSubType(subTypeInfo.Key); keyType == nil {
			return nil
		}
		if valueType = getSubType(subTypeInfo.Elem); valueType == nil {
			return nil
		}

		return reflect.New(reflect.MapOf(keyType, valueType)).Interface()
	default:
		return nil
	}
}

func getSubType(info gocql.TypeInfo) reflect.Type {
	t, typeFound := typeForCqlType[info.Type()]

	if !typeFound {
		allocated := allocateForType(info)
		if allocated == nil {
			return nil
		}
		t = reflect.ValueOf(allocated).Elem().Type()
	}

	return t
}
