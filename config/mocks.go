package config

import (
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/aiidateam/aiida-data-apis/log"
)

type ConfigMock struct {
	mock.Mock
}

func NewConfigMock() *ConfigMock {
	return &ConfigMock{}
}

func (o *ConfigMock) Default() *ConfigMock {
	o.On("Naming").Return(NamingConventionFn(NewDefaultNaming))
	o.On("Logger").Return(log.NewZapLogger(zap.NewExample()))
	o.On("ExposedEntities").Return(AllEntities)
	o.On("MaxPageSize").Return(0)
	return o
}

func (o *ConfigMock) Naming() NamingConventionFn {
	args := o.Called()
	return args.Get(0).(NamingConventionFn)
}

func (o *ConfigMock) Logger() log.Logger {
	args := o.Called()
	return args.Get(0).(log.Logger)
}

func (o *ConfigMock) ExposedEntities() Entities {
	args := o.Called()
	return args.Get(0).(Entities)
}

func (o *ConfigMock) MaxPageSize() int {
	args := o.Called()
	return args.Int(0)
}
