package rest

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/aiidateam/aiida-data-apis/query"
	m "github.com/aiidateam/aiida-data-apis/rest/models"
	"github.com/aiidateam/aiida-data-apis/schema"
	"github.com/aiidateam/aiida-data-apis/types"
)

func (s *routeList) GetSchema(w http.ResponseWriter, r *http.Request) {
	kinds := make([]string, 0)
	for _, kind := range s.service.Kinds() {
		if s.exposed.Exposes(kind) {
			kinds = append(kinds, string(kind))
		}
	}
	sort.Strings(kinds)
	RespondJSONObjectWithCode(w, http.StatusOK, m.SchemaResponse{Kinds: kinds})
}

func (s *routeList) GetEntitySchema(kind schema.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entity, err := s.service.Registry().Lookup(kind)
		if err != nil {
			s.respondWithError(w, r, kind, err)
			return
		}

		fields := make([]m.FieldSchema, 0, len(entity.Fields))
		for _, f := range entity.Fields {
			fields = append(fields, m.FieldSchema{
				Name:        f.Name,
				Type:        f.Type.String(),
				Description: f.Description,
				MayBeLarge:  f.MayBeLarge,
			})
		}
		relations := make([]m.RelationSchema, 0, len(entity.Relations))
		for _, rel := range entity.Relations {
			if !s.exposed.Exposes(rel.Target) {
				continue
			}
			relations = append(relations, m.RelationSchema{Name: rel.Name, Target: string(rel.Target)})
		}

		RespondJSONObjectWithCode(w, http.StatusOK, m.EntitySchema{
			Kind:          string(entity.Kind),
			IdentityField: entity.IdentityField,
			Projections:   entity.Projections(),
			Fields:        fields,
			Relations:     relations,
		})
	}
}

func (s *routeList) GetMany(kind schema.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := queryParams(r.URL.Query())
		if err != nil {
			s.respondWithError(w, r, kind, err)
			return
		}

		result, err := s.service.GetMany(r.Context(), kind, params)
		if err != nil {
			s.respondWithError(w, r, kind, err)
			return
		}
		RespondJSONObjectWithCode(w, http.StatusOK, result)
	}
}

func (s *routeList) GetOne(kind schema.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		model, err := s.service.GetOne(r.Context(), kind, s.params(r, "id"))
		if err != nil {
			s.respondWithError(w, r, kind, err)
			return
		}
		RespondJSONObjectWithCode(w, http.StatusOK, model)
	}
}

func (s *routeList) GetField(kind schema.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		field := s.params(r, "field")
		value, err := s.service.GetField(r.Context(), kind, s.params(r, "id"), field)
		if err != nil {
			s.respondWithError(w, r, kind, err)
			return
		}
		RespondJSONObjectWithCode(w, http.StatusOK, map[string]interface{}{field: value})
	}
}

func (s *routeList) GetRelated(kind schema.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := s.params(r, "id")
		relation := s.params(r, "relation")

		if err := s.checkRelation(kind, relation); err != nil {
			s.respondWithError(w, r, kind, err)
			return
		}

		values := r.URL.Query()
		one := false
		if raw := values.Get("one"); raw != "" {
			var err error
			if one, err = strconv.ParseBool(raw); err != nil {
				s.respondWithError(w, r, kind, query.NewInvalidInputError(fmt.Sprintf("invalid value for one: %q", raw)))
				return
			}
		}

		if one {
			model, err := s.service.GetRelatedOne(ctx, kind, id, relation)
			if err != nil {
				s.respondWithError(w, r, kind, err)
				return
			}
			RespondJSONObjectWithCode(w, http.StatusOK, model)
			return
		}

		params, err := queryParams(values)
		if err != nil {
			s.respondWithError(w, r, kind, err)
			return
		}
		result, err := s.service.GetRelatedMany(ctx, kind, id, relation, params)
		if err != nil {
			s.respondWithError(w, r, kind, err)
			return
		}
		RespondJSONObjectWithCode(w, http.StatusOK, result)
	}
}

// checkRelation hides relations leading to kinds that are not exposed.
func (s *routeList) checkRelation(kind schema.Kind, relation string) error {
	entity, err := s.service.Registry().Lookup(kind)
	if err != nil {
		return query.NewInvalidInputError(err.Error())
	}
	rel, ok := entity.Relation(relation)
	if ok && !s.exposed.Exposes(rel.Target) {
		return query.NewNotFoundError(fmt.Sprintf("%s has no relation %q", kind, relation))
	}
	return nil
}

func (s *routeList) respondWithError(w http.ResponseWriter, r *http.Request, kind schema.Kind, err error) {
	code := StatusCode(err)
	if code == http.StatusInternalServerError {
		s.logger.Error("unable to serve request",
			"kind", kind,
			"path", r.URL.Path,
			"error", err)
		RespondWithError(w, errors.New("internal server error"), code)
		return
	}
	RespondWithError(w, err, code)
}

// queryParams reads filters, order_by, page_size and page from the query
// string.
func queryParams(values url.Values) (types.QueryParams, error) {
	params := types.NewQueryParams()

	if raw := values.Get("filters"); raw != "" {
		filters, err := types.ParseFilters(raw)
		if err != nil {
			return params, asInputError(err)
		}
		params.Filters = filters
	}

	orderBy, err := types.ParseOrderBy(values.Get("order_by"))
	if err != nil {
		return params, query.NewInvalidInputError(err.Error())
	}
	params.OrderBy = orderBy

	if params.PageSize, err = intParam(values, "page_size", params.PageSize); err != nil {
		return params, err
	}
	if params.Page, err = intParam(values, "page", params.Page); err != nil {
		return params, err
	}
	return params, nil
}

func intParam(values url.Values, name string, def int) (int, error) {
	raw := values.Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, query.NewInvalidInputError(fmt.Sprintf("%s must be an integer, got %q", name, raw))
	}
	return n, nil
}

// asInputError keeps filter errors and reports anything else, such as
// malformed JSON, as invalid input.
func asInputError(err error) error {
	if StatusCode(err) == http.StatusBadRequest {
		return err
	}
	return query.NewInvalidInputError(err.Error())
}
