package db

import (
	"reflect"
	"testing"
	"time"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/inf.v0"
)

// rowScanner fills the values allocated by mapScan from a single row.
type rowScanner struct {
	row []interface{}
}

func (s *rowScanner) Next() bool { return true }

func (s *rowScanner) Err() error { return nil }

func (s *rowScanner) Scan(dest ...interface{}) error {
	for i, d := range dest {
		v := s.row[i]
		if v == nil {
			continue
		}
		target := reflect.ValueOf(d).Elem()
		value := reflect.ValueOf(v)
		if value.Type().AssignableTo(target.Type()) {
			target.Set(value)
			continue
		}
		ptr := reflect.New(target.Type().Elem())
		ptr.Elem().Set(value)
		target.Set(ptr)
	}
	return nil
}

func nativeType(t gocql.Type) gocql.TypeInfo {
	return gocql.NewNativeType(4, t, "")
}

func TestMapScan(t *testing.T) {
	ctime := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)
	id := gocql.TimeUUID()
	price := inf.NewDec(125, 2)

	columns := []gocql.ColumnInfo{
		{Name: "id", TypeInfo: nativeType(gocql.TypeInt)},
		{Name: "uuid", TypeInfo: nativeType(gocql.TypeUUID)},
		{Name: "label", TypeInfo: nativeType(gocql.TypeText)},
		{Name: "ctime", TypeInfo: nativeType(gocql.TypeTimestamp)},
		{Name: "count", TypeInfo: nativeType(gocql.TypeBigInt)},
		{Name: "price", TypeInfo: nativeType(gocql.TypeDecimal)},
		{Name: "missing", TypeInfo: nativeType(gocql.TypeText)},
		{Name: "tags", TypeInfo: gocql.CollectionType{
			NativeType: gocql.NewNativeType(4, gocql.TypeList, ""),
			Elem:       nativeType(gocql.TypeText),
		}},
	}
	scanner := &rowScanner{row: []interface{}{
		1, id, "label", ctime, int64(4), price, nil, []string{"a"},
	}}

	row, err := mapScan(scanner, columns)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"id":      1,
		"uuid":    id,
		"label":   "label",
		"ctime":   ctime,
		"count":   int64(4),
		"price":   price,
		"missing": nil,
		"tags":    []string{"a"},
	}, row)
}

func TestMapScanUnsupportedType(t *testing.T) {
	columns := []gocql.ColumnInfo{{Name: "blob", TypeInfo: nativeType(gocql.TypeBlob)}}
	_, err := mapScan(&rowScanner{row: []interface{}{nil}}, columns)
	assert.EqualError(t, err, "support for CQL type not found: blob")
}

func TestAllocateForCollections(t *testing.T) {
	list := gocql.CollectionType{
		NativeType: gocql.NewNativeType(4, gocql.TypeSet, ""),
		Elem:       nativeType(gocql.TypeBigInt),
	}
	assert.IsType(t, new([]int64), allocateForType(list))

	m := gocql.CollectionType{
		NativeType: gocql.NewNativeType(4, gocql.TypeMap, ""),
		Key:        nativeType(gocql.TypeText),
		Elem:       nativeType(gocql.TypeDouble),
	}
	assert.IsType(t, new(map[string]float64), allocateForType(m))
}
