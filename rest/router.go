// Package rest serves the entity queries over a JSON REST API.
package rest

import (
	"net/http"
	"path"

	"github.com/julienschmidt/httprouter"

	"github.com/aiidateam/aiida-data-apis/config"
	"github.com/aiidateam/aiida-data-apis/log"
	"github.com/aiidateam/aiida-data-apis/query"
	"github.com/aiidateam/aiida-data-apis/types"
)

type RouteGenerator struct {
	service *query.Service
	config  config.Config
}

func NewRouteGenerator(service *query.Service, cfg config.Config) *RouteGenerator {
	return &RouteGenerator{
		service: service,
		config:  cfg,
	}
}

// Routes returns the routes of every exposed kind under prefix. Patterns use
// the httprouter syntax.
func (g *RouteGenerator) Routes(prefix string) []types.Route {
	rl := routeList{
		service: g.service,
		logger:  g.config.Logger(),
		params:  httpRouterParam,
		exposed: g.config.ExposedEntities(),
	}

	routes := []types.Route{
		{
			Method:  http.MethodGet,
			Pattern: path.Join(prefix, "schema"),
			Handler: http.HandlerFunc(rl.GetSchema),
		},
	}
	for _, kind := range g.service.Kinds() {
		if !rl.exposed.Exposes(kind) {
			continue
		}
		base := path.Join(prefix, string(kind))
		routes = append(routes,
			types.Route{
				Method:  http.MethodGet,
				Pattern: base,
				Handler: rl.GetMany(kind),
			},
			types.Route{
				Method:  http.MethodGet,
				Pattern: path.Join(prefix, "schema", string(kind)),
				Handler: rl.GetEntitySchema(kind),
			},
			types.Route{
				Method:  http.MethodGet,
				Pattern: path.Join(base, ":id"),
				Handler: rl.GetOne(kind),
			},
			types.Route{
				Method:  http.MethodGet,
				Pattern: path.Join(base, ":id", "fields", ":field"),
				Handler: rl.GetField(kind),
			},
			types.Route{
				Method:  http.MethodGet,
				Pattern: path.Join(base, ":id", "related", ":relation"),
				Handler: rl.GetRelated(kind),
			},
		)
	}
	return routes
}

// NewRouter registers routes on a new httprouter.
func NewRouter(routes []types.Route) *httprouter.Router {
	router := httprouter.New()
	for _, route := range routes {
		router.Handler(route.Method, route.Pattern, route.Handler)
	}
	return router
}

func httpRouterParam(r *http.Request, name string) string {
	return httprouter.ParamsFromContext(r.Context()).ByName(name)
}

type routeList struct {
	service *query.Service
	logger  log.Logger
	params  func(*http.Request, string) string
	exposed config.Entities
}
