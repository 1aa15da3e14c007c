package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aiidateam/aiida-data-apis/filter"
	"github.com/aiidateam/aiida-data-apis/query"
	m "github.com/aiidateam/aiida-data-apis/rest/models"
)

// RespondJSONObjectWithCode writes the object and status header to the response. Important to note that if this is being
// used for an error case then an empty return will need to immediately follow the call to this function
func RespondJSONObjectWithCode(w http.ResponseWriter, code int, obj interface{}) {
	setCommonHeaders(w)
	var (
		jsonBytes []byte
		err       error
	)
	if obj != nil {
		jsonBytes, err = json.Marshal(obj)
	}
	if err != nil {
		RespondWithError(w, errors.New("unable to marshal response"), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(code)
	if jsonBytes != nil {
		_, _ = w.Write(jsonBytes)
	}
}

func RespondWithError(w http.ResponseWriter, err error, code int) {
	RespondJSONObjectWithCode(w, code, m.ModelError{
		Description: err.Error(),
		Code:        code,
		Error:       errorClass(err),
	})
}

func setCommonHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
}

// StatusCode returns the HTTP status used to report err.
func StatusCode(err error) int {
	var (
		syntax       *filter.SyntaxError
		invalidValue *filter.InvalidValueError
		invalidInput *query.InvalidInputError
		notFound     *query.NotFoundError
		multiple     *query.MultipleResultsError
		queryBuilder *query.QueryBuilderError
	)
	switch {
	case errors.As(err, &syntax), errors.As(err, &invalidValue), errors.As(err, &invalidInput):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &multiple):
		return http.StatusConflict
	case errors.As(err, &queryBuilder):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func errorClass(err error) string {
	var (
		syntax       *filter.SyntaxError
		invalidValue *filter.InvalidValueError
		invalidInput *query.InvalidInputError
		notFound     *query.NotFoundError
		multiple     *query.MultipleResultsError
		queryBuilder *query.QueryBuilderError
	)
	switch {
	case errors.As(err, &syntax):
		return "FilterSyntaxError"
	case errors.As(err, &invalidValue):
		return "InvalidFilterValue"
	case errors.As(err, &invalidInput):
		return "InvalidInput"
	case errors.As(err, &notFound):
		return "NotFound"
	case errors.As(err, &multiple):
		return "MultipleResults"
	case errors.As(err, &queryBuilder):
		return "QueryBuilderException"
	}
	return ""
}
