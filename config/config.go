package config

import (
	"github.com/aiidateam/aiida-data-apis/log"
)

// Config is the configuration read by the REST and GraphQL route generators.
type Config interface {
	Naming() NamingConventionFn
	Logger() log.Logger
	ExposedEntities() Entities
	// MaxPageSize is the largest page a REST request can ask for. Zero means
	// unlimited.
	MaxPageSize() int
}
