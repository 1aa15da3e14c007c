package cmd

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	log2 "log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/aiidateam/aiida-data-apis/config"
	"github.com/aiidateam/aiida-data-apis/endpoint"
	"github.com/aiidateam/aiida-data-apis/log"
	"github.com/aiidateam/aiida-data-apis/query"
	"github.com/aiidateam/aiida-data-apis/types"
)

const defaultRESTPrefix = "/api/v1"
const defaultGraphQLPrefix = "/graphql"
const shutdownTimeout = 10 * time.Second

// Environment variables prefixed with "AIIDA_API_" can override settings e.g. "AIIDA_API_PG_DSN"
const envVarPrefix = "aiida_api"

var cfgFile string
var logger log.Logger = log.NewNopLogger()

var serverCmd = &cobra.Command{
	Use:   "aiida-data-apis [--pg-dsn DSN|--db-driver cassandra --hosts HOSTS --keyspace KEYSPACE] [OPTIONS]",
	Short: "REST and GraphQL endpoints for AiiDA provenance databases",
	Args: func(cmd *cobra.Command, args []string) error {
		switch viper.GetString("db-driver") {
		case endpoint.DriverPostgres:
			if viper.GetString("pg-dsn") == "" {
				return errors.New("pg-dsn is required for the postgres driver")
			}
		case endpoint.DriverCassandra:
			if len(getStringSlice("hosts")) == 0 {
				return errors.New("hosts are required for the cassandra driver")
			}
		default:
			return fmt.Errorf("unsupported db driver: %q", viper.GetString("db-driver"))
		}

		if !viper.GetBool("start-graphql") && !viper.GetBool("start-rest") {
			return errors.New("at least one endpoint type should be started")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

// Execute starts the REST/GraphQL endpoints
func Execute() {
	flags := serverCmd.PersistentFlags()

	// Database flags
	flags.StringVarP(&cfgFile, "config", "c", "", "config file")
	flags.String("db-driver", endpoint.DriverPostgres, "database driver. options: postgres,cassandra")
	flags.String("pg-dsn", "", "connection string of the AiiDA PostgreSQL database")
	flags.StringSliceP("hosts", "t", nil, "hosts for connecting to a cassandra database")
	flags.String("keyspace", "", "cassandra keyspace holding the AiiDA tables")
	flags.StringP("username", "u", "", "connect with database username")
	flags.StringP("password", "p", "", "database user's password")

	// General endpoint flags
	flags.StringSlice("expose", nil, "entity kinds to expose, all when empty. options: users,nodes,computers,groups,comments,logs")
	flags.Int("max-page-size", 0, "upper bound on page_size, unbounded when zero")
	flags.Bool("request-logging", false, "enable request logging")
	flags.String("access-control-allow-origin", "", "Access-Control-Allow-Origin header value")
	flags.Int("metrics-port", 0, "serve prometheus metrics on this port, disabled when zero")
	flags.Bool("debug", false, "enable debug logging")

	// REST specific flags
	flags.Bool("start-rest", true, "start the REST endpoint")
	flags.String("rest-prefix", defaultRESTPrefix, "REST endpoint path prefix")
	flags.Int("rest-port", 8080, "REST endpoint port")

	// GraphQL specific flags
	flags.Bool("start-graphql", true, "start the GraphQL endpoint")
	flags.String("graphql-prefix", defaultGraphQLPrefix, "GraphQL endpoint path")
	flags.Int("graphql-port", 8080, "GraphQL endpoint port")

	flags.VisitAll(func(flag *pflag.Flag) {
		if flag.Name != "config" {
			viper.BindPFlag(flag.Name, flags.Lookup(flag.Name))
		}
	})

	cobra.OnInitialize(initialize)

	viper.SetEnvPrefix(envVarPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := serverCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func initialize() {
	zapLogger, err := log.NewProductionLogger(viper.GetBool("debug"))
	if err != nil {
		log2.Fatalf("unable to initialize logger: %v", err)
	}
	logger = zapLogger

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err == nil {
			logger.Info("using config file",
				"file", viper.ConfigFileUsed())
		}
	}
}

func serve(ctx context.Context) error {
	var metrics *query.Metrics
	metricsPort := viper.GetInt("metrics-port")
	if metricsPort > 0 {
		metrics = query.NewMetrics()
		metrics.MustRegister(prometheus.DefaultRegisterer)
	}

	endpoint, err := createEndpoint(ctx, metrics)
	if err != nil {
		return err
	}
	defer endpoint.Close()

	servers, err := createServers(endpoint)
	if err != nil {
		return err
	}
	if metricsPort > 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		servers = append(servers, namedServer{name: "metrics", server: newServer(mux, metricsPort)})
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for _, s := range servers {
		s := s
		group.Go(func() error {
			logger.Info("server listening",
				"addr", s.server.Addr,
				"type", s.name)
			if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("%s server: %w", s.name, err)
			}
			return nil
		})
	}

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down servers")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		var errs []error
		for _, s := range servers {
			if err := s.server.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("%s server shutdown: %w", s.name, err))
			}
		}
		return errors.Join(errs...)
	})

	return group.Wait()
}

func createEndpoint(ctx context.Context, metrics *query.Metrics) (*endpoint.DataEndpoint, error) {
	exposed, err := config.ParseEntities(getStringSlice("expose")...)
	if err != nil {
		return nil, err
	}

	cfg := endpoint.NewEndpointConfigWithLogger(logger).
		WithExposedEntities(exposed).
		WithMaxPageSize(viper.GetInt("max-page-size")).
		WithMetrics(metrics)

	if viper.GetString("db-driver") == endpoint.DriverCassandra {
		cfg.WithCassandra(viper.GetString("keyspace"), getStringSlice("hosts")...).
			WithDbUsername(viper.GetString("username")).
			WithDbPassword(viper.GetString("password"))
	} else {
		cfg.WithPostgres(viper.GetString("pg-dsn"))
	}

	endpoint, err := cfg.NewEndpoint(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to create new endpoint: %w", err)
	}
	return endpoint, nil
}

type namedServer struct {
	name   string
	server *http.Server
}

func createServers(endpoint *endpoint.DataEndpoint) ([]namedServer, error) {
	startREST := viper.GetBool("start-rest")
	startGraphQL := viper.GetBool("start-graphql")
	restPort := viper.GetInt("rest-port")
	graphqlPort := viper.GetInt("graphql-port")

	var restRoutes, graphQLRoutes []types.Route
	if startREST {
		restRoutes = endpoint.RoutesREST(viper.GetString("rest-prefix"))
	}
	if startGraphQL {
		routes, err := endpoint.RoutesGraphQL(viper.GetString("graphql-prefix"))
		if err != nil {
			return nil, fmt.Errorf("unable to generate graphql routes: %w", err)
		}
		graphQLRoutes = routes
		logger.Info("get started by visiting the GraphQL playground",
			"url", fmt.Sprintf("http://localhost:%d%s-playground", graphqlPort, viper.GetString("graphql-prefix")))
	}

	if startREST && startGraphQL && restPort == graphqlPort {
		if viper.GetString("rest-prefix") == viper.GetString("graphql-prefix") {
			return nil, errors.New("graphql and rest prefixes can not be the same when using the same port")
		}
		router := createRouter(append(restRoutes, graphQLRoutes...))
		return []namedServer{{name: "REST/GraphQL", server: newServer(router, restPort)}}, nil
	}

	var servers []namedServer
	if startREST {
		servers = append(servers, namedServer{name: "REST", server: newServer(createRouter(restRoutes), restPort)})
	}
	if startGraphQL {
		servers = append(servers, namedServer{name: "GraphQL", server: newServer(createRouter(graphQLRoutes), graphqlPort)})
	}
	return servers, nil
}

func newServer(handler http.Handler, port int) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           maybeAddCORS(maybeAddRequestLogging(handler)),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func maybeAddRequestLogging(handler http.Handler) http.Handler {
	if viper.GetBool("request-logging") {
		handler = log.NewLoggingHandler(handler, logger)
	}
	return handler
}

func maybeAddCORS(handler http.Handler) http.Handler {
	if value := viper.GetString("access-control-allow-origin"); value != "" {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", value)
			handler.ServeHTTP(w, r)
		})
	}
	return handler
}

func createRouter(routes []types.Route) *httprouter.Router {
	router := httprouter.New()
	for _, route := range routes {
		router.Handler(route.Method, route.Pattern, route.Handler)
	}
	if value := viper.GetString("access-control-allow-origin"); value != "" {
		router.GlobalOPTIONS = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Access-Control-Request-Method") != "" {
				header := w.Header()
				header.Set("Access-Control-Allow-Methods", r.Header.Get("Access-Control-Request-Method"))
				header.Set("Access-Control-Allow-Headers", r.Header.Get("Access-Control-Request-Headers"))
				header.Set("Access-Control-Allow-Origin", value)
			}

			w.WriteHeader(http.StatusNoContent)
		})
	}
	return router
}

func getStringSlice(key string) []string {
	value := viper.GetStringSlice(key)
	slice, err := toStringSlice(value)
	if err != nil {
		logger.Fatal("invalid string slice value for setting",
			"error", err,
			"key", key,
			"value", value)
	}
	return slice
}

// toStringSlice splits csv entries, dropping empty values.
func toStringSlice(slice []string) ([]string, error) {
	result := make([]string, 0)
	for _, entry := range slice {
		csvReader := csv.NewReader(strings.NewReader(entry))
		split, err := csvReader.Read()
		if err != nil {
			return nil, err
		}
		for _, part := range split {
			if part = strings.TrimSpace(part); part != "" {
				result = append(result, part)
			}
		}
	}
	return result, nil
}
