package query

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/aiidateam/aiida-data-apis/schema"
)

type StorageMock struct {
	mock.Mock
}

func NewStorageMock() *StorageMock {
	return &StorageMock{}
}

func (o *StorageMock) Count(ctx context.Context, entity *schema.Entity, opts CountOptions) (int64, error) {
	args := o.Called(entity.Kind, opts)
	return args.Get(0).(int64), args.Error(1)
}

func (o *StorageMock) Find(ctx context.Context, entity *schema.Entity, opts FindOptions) ([]Row, error) {
	args := o.Called(entity.Kind, opts)
	rows, _ := args.Get(0).([]Row)
	return rows, args.Error(1)
}
