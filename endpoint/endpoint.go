// Package endpoint wires a storage backend, the query service and the REST and
// GraphQL route generators together.
package endpoint

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/aiidateam/aiida-data-apis/config"
	"github.com/aiidateam/aiida-data-apis/db"
	"github.com/aiidateam/aiida-data-apis/graphql"
	"github.com/aiidateam/aiida-data-apis/log"
	"github.com/aiidateam/aiida-data-apis/query"
	"github.com/aiidateam/aiida-data-apis/rest"
	"github.com/aiidateam/aiida-data-apis/schema"
	"github.com/aiidateam/aiida-data-apis/types"
)

const (
	DriverPostgres  = "postgres"
	DriverCassandra = "cassandra"
)

type DataEndpointConfig struct {
	driver      string
	pgDSN       string
	dbHosts     []string
	keyspace    string
	dbUsername  string
	dbPassword  string
	naming      config.NamingConventionFn
	exposed     config.Entities
	maxPageSize int
	metrics     *query.Metrics
	logger      log.Logger
}

func (cfg DataEndpointConfig) Naming() config.NamingConventionFn {
	return cfg.naming
}

func (cfg DataEndpointConfig) Logger() log.Logger {
	return cfg.logger
}

func (cfg DataEndpointConfig) ExposedEntities() config.Entities {
	return cfg.exposed
}

func (cfg DataEndpointConfig) MaxPageSize() int {
	return cfg.maxPageSize
}

func (cfg *DataEndpointConfig) WithDBDriver(driver string) *DataEndpointConfig {
	cfg.driver = driver
	return cfg
}

// WithPostgres selects the PostgreSQL driver connecting to dsn.
func (cfg *DataEndpointConfig) WithPostgres(dsn string) *DataEndpointConfig {
	cfg.driver = DriverPostgres
	cfg.pgDSN = dsn
	return cfg
}

// WithCassandra selects the Cassandra driver reading keyspace from hosts.
func (cfg *DataEndpointConfig) WithCassandra(keyspace string, hosts ...string) *DataEndpointConfig {
	cfg.driver = DriverCassandra
	cfg.keyspace = keyspace
	cfg.dbHosts = hosts
	return cfg
}

func (cfg *DataEndpointConfig) WithDbUsername(dbUsername string) *DataEndpointConfig {
	cfg.dbUsername = dbUsername
	return cfg
}

func (cfg *DataEndpointConfig) WithDbPassword(dbPassword string) *DataEndpointConfig {
	cfg.dbPassword = dbPassword
	return cfg
}

func (cfg *DataEndpointConfig) WithLogger(logger log.Logger) *DataEndpointConfig {
	cfg.logger = logger
	return cfg
}

func (cfg *DataEndpointConfig) WithNaming(naming config.NamingConventionFn) *DataEndpointConfig {
	cfg.naming = naming
	return cfg
}

func (cfg *DataEndpointConfig) WithExposedEntities(exposed config.Entities) *DataEndpointConfig {
	cfg.exposed = exposed
	return cfg
}

func (cfg *DataEndpointConfig) WithMaxPageSize(maxPageSize int) *DataEndpointConfig {
	cfg.maxPageSize = maxPageSize
	return cfg
}

func (cfg *DataEndpointConfig) WithMetrics(metrics *query.Metrics) *DataEndpointConfig {
	cfg.metrics = metrics
	return cfg
}

// NewEndpoint connects to the configured database.
func (cfg DataEndpointConfig) NewEndpoint(ctx context.Context) (*DataEndpoint, error) {
	registry, err := schema.NewAiiDARegistry()
	if err != nil {
		return nil, err
	}

	switch cfg.driver {
	case DriverPostgres:
		if cfg.pgDSN == "" {
			return nil, fmt.Errorf("a dsn is required for the %s driver", DriverPostgres)
		}
		pool, err := db.NewPostgresPool(ctx, cfg.pgDSN)
		if err != nil {
			return nil, err
		}
		endpoint := cfg.newEndpointWithStorage(registry, db.NewPostgresStorage(pool, cfg.logger))
		endpoint.closeFn = pool.Close
		return endpoint, nil
	case DriverCassandra:
		if cfg.keyspace == "" {
			return nil, fmt.Errorf("a keyspace is required for the %s driver", DriverCassandra)
		}
		session, err := db.NewCassandraSession(cfg.dbHosts, cfg.keyspace, cfg.dbUsername, cfg.dbPassword)
		if err != nil {
			return nil, err
		}
		endpoint := cfg.newEndpointWithStorage(registry, db.NewCassandraStorage(session, cfg.keyspace, cfg.logger))
		endpoint.closeFn = session.Close
		return endpoint, nil
	}
	return nil, fmt.Errorf("unsupported db driver: %q", cfg.driver)
}

func (cfg DataEndpointConfig) newEndpointWithStorage(registry *schema.Registry, storage query.Storage) *DataEndpoint {
	service := query.NewService(registry, storage,
		query.WithLogger(cfg.logger),
		query.WithMetrics(cfg.metrics),
		query.WithMaxPageSize(cfg.maxPageSize))
	return &DataEndpoint{
		service:         service,
		restRouteGen:    rest.NewRouteGenerator(service, cfg),
		graphQLRouteGen: graphql.NewRouteGenerator(service, cfg),
		closeFn:         func() {},
	}
}

type DataEndpoint struct {
	service         *query.Service
	restRouteGen    *rest.RouteGenerator
	graphQLRouteGen *graphql.RouteGenerator
	closeFn         func()
}

func NewEndpointConfig() (*DataEndpointConfig, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return NewEndpointConfigWithLogger(log.NewZapLogger(logger)), nil
}

func NewEndpointConfigWithLogger(logger log.Logger) *DataEndpointConfig {
	return &DataEndpointConfig{
		driver:  DriverPostgres,
		naming:  config.NewDefaultNaming,
		exposed: config.AllEntities,
		logger:  logger,
	}
}

func (e *DataEndpoint) RoutesREST(prefix string) []types.Route {
	return e.restRouteGen.Routes(prefix)
}

func (e *DataEndpoint) RoutesGraphQL(pattern string) ([]types.Route, error) {
	return e.graphQLRouteGen.Routes(pattern)
}

func (e *DataEndpoint) Service() *query.Service {
	return e.service
}

func (e *DataEndpoint) Registry() *schema.Registry {
	return e.service.Registry()
}

// Close releases the database connections.
func (e *DataEndpoint) Close() {
	e.closeFn()
}
