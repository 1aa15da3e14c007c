package graphql

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aiidateam/aiida-data-apis/config"
	"github.com/aiidateam/aiida-data-apis/filter"
	"github.com/aiidateam/aiida-data-apis/log"
	"github.com/aiidateam/aiida-data-apis/query"
	"github.com/aiidateam/aiida-data-apis/schema"
)

const pattern = "/graphql"

type responseBody struct {
	Data   map[string]interface{} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func createConfig(exposed config.Entities) *config.ConfigMock {
	cfg := config.NewConfigMock()
	cfg.On("Naming").Return(config.NamingConventionFn(config.NewDefaultNaming))
	cfg.On("Logger").Return(log.NewNopLogger())
	cfg.On("ExposedEntities").Return(exposed)
	return cfg
}

func createRouter(t *testing.T, storage query.Storage, exposed config.Entities) http.Handler {
	t.Helper()
	service := query.NewService(schema.MustAiiDARegistry(), storage)
	routes, err := NewRouteGenerator(service, createConfig(exposed)).Routes(pattern)
	require.NoError(t, err)

	router := httprouter.New()
	for _, route := range routes {
		router.Handler(route.Method, route.Pattern, route.Handler)
	}
	return router
}

func executePost(t *testing.T, handler http.Handler, body RequestBody) responseBody {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, pattern, bytes.NewReader(payload)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp responseBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestListQuery(t *testing.T) {
	storage := query.NewStorageMock()
	filters := filter.Expression{"label": map[string]interface{}{"==": "x"}}
	storage.On("Count", schema.Nodes, query.CountOptions{Filters: filters}).Return(int64(3), nil)
	storage.On("Find", schema.Nodes, mock.MatchedBy(func(opts query.FindOptions) bool {
		return opts.Limit == 2 && opts.Offset == 2 &&
			len(opts.OrderBy) == 1 && opts.OrderBy[0].Field == "node_type" && opts.OrderBy[0].Descending
	})).Return([]query.Row{{"pk": int64(3), "label": "x", "node_type": "data.core.int.Int."}}, nil)

	resp := executePost(t, createRouter(t, storage, config.AllEntities), RequestBody{
		Query: `{
  nodes(filters: "label == \"x\"", orderBy: ["nodeType_DESC"], pageSize: 2, page: 2) {
    total
    page
    pageSize
    rows { pk label nodeType }
  }
}`,
	})

	assert.Empty(t, resp.Errors)
	assert.Equal(t, map[string]interface{}{
		"nodes": map[string]interface{}{
			"total":    float64(3),
			"page":     float64(2),
			"pageSize": float64(2),
			"rows": []interface{}{
				map[string]interface{}{"pk": float64(3), "label": "x", "nodeType": "data.core.int.Int."},
			},
		},
	}, resp.Data)
	storage.AssertExpectations(t)
}

func TestListQueryWithVariables(t *testing.T) {
	storage := query.NewStorageMock()
	filters := filter.Expression{"email": map[string]interface{}{"like": "%@epfl.ch"}}
	storage.On("Count", schema.Users, query.CountOptions{Filters: filters}).Return(int64(0), nil)
	storage.On("Find", schema.Users, mock.MatchedBy(func(opts query.FindOptions) bool {
		return opts.Limit == EntityLimit && opts.Offset == 0
	})).Return([]query.Row{}, nil)

	resp := executePost(t, createRouter(t, storage, config.AllEntities), RequestBody{
		Query: `query Users($filters: FilterString) {
  users(filters: $filters) { total rows { email } }
}`,
		OperationName: "Users",
		Variables:     map[string]interface{}{"filters": `email LIKE "%@epfl.ch"`},
	})

	assert.Empty(t, resp.Errors)
	assert.Equal(t, map[string]interface{}{
		"users": map[string]interface{}{"total": float64(0), "rows": []interface{}{}},
	}, resp.Data)
	storage.AssertExpectations(t)
}

func TestListQueryErrors(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		message string
	}{
		{"malformed filter", `{ nodes(filters: "label ==") { total } }`, "malformed filter string"},
		{"malformed filter position", `{ nodes(filters: "label == \"x\" & b LIKE x") { total } }`, "like expects a quoted string at offset 22"},
		{"page size over limit", `{ nodes(pageSize: 101) { total } }`, "nodes 'pageSize' must be no more than 100"},
		{"zero page", `{ nodes(page: 0) { total } }`, "page must be 1 or greater"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := query.NewStorageMock()
			resp := executePost(t, createRouter(t, storage, config.AllEntities), RequestBody{Query: tt.query})
			require.NotEmpty(t, resp.Errors)
			assert.Contains(t, resp.Errors[0].Message, tt.message)
			storage.AssertNotCalled(t, "Count", mock.Anything, mock.Anything)
		})
	}
}

func TestSingleQuery(t *testing.T) {
	storage := query.NewStorageMock()
	storage.On("Find", schema.Nodes, mock.MatchedBy(func(opts query.FindOptions) bool {
		return opts.Limit == 2
	})).Return([]query.Row{{"pk": int64(3), "label": "x"}}, nil)
	storage.On("Find", schema.Nodes, mock.MatchedBy(func(opts query.FindOptions) bool {
		return len(opts.Project) == 1 && opts.Project[0] == "attributes"
	})).Return([]query.Row{{"attributes": map[string]interface{}{"value": float64(42)}}}, nil)
	storage.On("Find", schema.Users, mock.Anything).Return([]query.Row{{"pk": int64(1), "email": "a@b.c"}}, nil)

	resp := executePost(t, createRouter(t, storage, config.AllEntities), RequestBody{
		Query: `{ node(id: "3") { pk label attributes user { email } } }`,
	})

	assert.Empty(t, resp.Errors)
	assert.Equal(t, map[string]interface{}{
		"node": map[string]interface{}{
			"pk":         float64(3),
			"label":      "x",
			"attributes": map[string]interface{}{"value": float64(42)},
			"user":       map[string]interface{}{"email": "a@b.c"},
		},
	}, resp.Data)
}

func TestSingleQueryNotFound(t *testing.T) {
	storage := query.NewStorageMock()
	storage.On("Find", schema.Computers, mock.Anything).Return([]query.Row{}, nil)

	resp := executePost(t, createRouter(t, storage, config.AllEntities), RequestBody{
		Query: `{ computer(id: "7") { label } }`,
	})

	assert.Empty(t, resp.Errors)
	assert.Equal(t, map[string]interface{}{"computer": nil}, resp.Data)
}

func TestRelatedPage(t *testing.T) {
	storage := query.NewStorageMock()
	storage.On("Find", schema.Users, mock.Anything).Return([]query.Row{{"pk": int64(1)}}, nil)
	storage.On("Count", schema.Comments, mock.MatchedBy(func(opts query.CountOptions) bool {
		return opts.Related != nil && opts.Related.Relation.Name == "comments"
	})).Return(int64(1), nil)
	storage.On("Find", schema.Comments, mock.Anything).Return([]query.Row{{"pk": int64(5), "content": "hi"}}, nil)

	resp := executePost(t, createRouter(t, storage, config.AllEntities), RequestBody{
		Query: `{ user(id: "1") { comments(pageSize: 5) { total rows { content } } } }`,
	})

	assert.Empty(t, resp.Errors)
	assert.Equal(t, map[string]interface{}{
		"user": map[string]interface{}{
			"comments": map[string]interface{}{
				"total": float64(1),
				"rows":  []interface{}{map[string]interface{}{"content": "hi"}},
			},
		},
	}, resp.Data)
}

func TestExposedEntities(t *testing.T) {
	handler := createRouter(t, query.NewStorageMock(), config.Nodes)

	resp := executePost(t, handler, RequestBody{Query: `{ users { total } }`})
	require.NotEmpty(t, resp.Errors)
	assert.Contains(t, resp.Errors[0].Message, `Cannot query field "users"`)

	resp = executePost(t, handler, RequestBody{Query: `{ node(id: "1") { user { email } } }`})
	require.NotEmpty(t, resp.Errors)

	resp = executePost(t, handler, RequestBody{Query: `{ rowLimitMax }`})
	assert.Empty(t, resp.Errors)
	assert.Equal(t, map[string]interface{}{"rowLimitMax": float64(EntityLimit)}, resp.Data)
}

func TestGetRoute(t *testing.T) {
	storage := query.NewStorageMock()
	storage.On("Find", schema.Logs, mock.Anything).Return([]query.Row{{"pk": int64(2), "levelname": "REPORT"}}, nil)
	handler := createRouter(t, storage, config.AllEntities)

	values := url.Values{
		"query":     {`query Log($id: String!) { log(id: $id) { levelname } }`},
		"variables": {`{"id": "2"}`},
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, pattern+"?"+values.Encode(), nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp responseBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, map[string]interface{}{"log": map[string]interface{}{"levelname": "REPORT"}}, resp.Data)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, pattern+"?variables=nope", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlayground(t *testing.T) {
	handler := createRouter(t, query.NewStorageMock(), config.AllEntities)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, pattern+"-playground", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "endpoint: '/graphql'")
}
