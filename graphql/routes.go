// Package graphql serves the entity queries through a GraphQL schema generated
// from the entity registry.
package graphql

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/graphql-go/graphql"

	"github.com/aiidateam/aiida-data-apis/config"
	"github.com/aiidateam/aiida-data-apis/log"
	"github.com/aiidateam/aiida-data-apis/query"
	"github.com/aiidateam/aiida-data-apis/types"
)

type executeQueryFunc func(ctx context.Context, body RequestBody) *graphql.Result

type RouteGenerator struct {
	logger    log.Logger
	schemaGen *SchemaGenerator
}

type RequestBody struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

func NewRouteGenerator(service *query.Service, cfg config.Config) *RouteGenerator {
	return &RouteGenerator{
		logger:    cfg.Logger(),
		schemaGen: NewSchemaGenerator(service, cfg),
	}
}

// Routes returns the GET and POST routes serving the schema at pattern, and a
// playground at pattern followed by "-playground".
func (rg *RouteGenerator) Routes(pattern string) ([]types.Route, error) {
	schema, err := rg.schemaGen.BuildSchema()
	if err != nil {
		return nil, fmt.Errorf("unable to build graphql schema: %s", err)
	}

	routes := routesForSchema(pattern, func(ctx context.Context, body RequestBody) *graphql.Result {
		return rg.executeQuery(ctx, body, schema)
	})
	return append(routes, types.Route{
		Method:  http.MethodGet,
		Pattern: pattern + "-playground",
		Handler: PlaygroundHandler(pattern),
	}), nil
}

func routesForSchema(pattern string, execute executeQueryFunc) []types.Route {
	return []types.Route{
		{
			Method:  http.MethodGet,
			Pattern: pattern,
			Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				body := RequestBody{
					Query:         r.URL.Query().Get("query"),
					OperationName: r.URL.Query().Get("operationName"),
				}
				if raw := r.URL.Query().Get("variables"); raw != "" {
					if err := json.Unmarshal([]byte(raw), &body.Variables); err != nil {
						http.Error(w, "Variables are invalid", http.StatusBadRequest)
						return
					}
				}
				writeResult(w, execute(r.Context(), body))
			}),
		},
		{
			Method:  http.MethodPost,
			Pattern: pattern,
			Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Body == nil {
					http.Error(w, "No request body", http.StatusBadRequest)
					return
				}

				var body RequestBody
				err := json.NewDecoder(r.Body).Decode(&body)
				if err != nil {
					http.Error(w, "Request body is invalid", http.StatusBadRequest)
					return
				}

				writeResult(w, execute(r.Context(), body))
			}),
		},
	}
}

func writeResult(w http.ResponseWriter, result *graphql.Result) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	err := json.NewEncoder(w).Encode(result)
	if err != nil {
		http.Error(w, "response could not be encoded: "+err.Error(), http.StatusInternalServerError)
	}
}

func (rg *RouteGenerator) executeQuery(ctx context.Context, body RequestBody, schema graphql.Schema) *graphql.Result {
	result := graphql.Do(graphql.Params{
		Schema:         schema,
		RequestString:  body.Query,
		VariableValues: body.Variables,
		OperationName:  body.OperationName,
		Context:        ctx,
	})
	if len(result.Errors) > 0 {
		rg.logger.Debug("errors processing graphql query", "errors", result.Errors)
	}
	return result
}
