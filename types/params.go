package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"

	"github.com/aiidateam/aiida-data-apis/filter"
)

var (
	validate *validator.Validate
	trans    ut.Translator
)

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	uni := ut.New(en.New(), en.New())
	trans, _ = uni.GetTranslator("en")

	_ = enTranslations.RegisterDefaultTranslations(validate, trans)

	_ = validate.RegisterTranslation("gt", trans, func(ut ut.Translator) error {
		return ut.Add("gt", "{0} must be a positive integer", true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		t, _ := ut.T("gt", fe.Field())
		return t
	})

	_ = validate.RegisterTranslation("gte", trans, func(ut ut.Translator) error {
		return ut.Add("gte", "{0} must be {1} or greater", true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		t, _ := ut.T("gte", fe.Field(), fe.Param())
		return t
	})
}

// ValidateParams checks the paging parameters.
func ValidateParams(params QueryParams) error {
	if err := validate.Struct(params); err != nil {
		return translateValidatorError(err)
	}
	if params.Page-1 > math.MaxInt/params.PageSize {
		return fmt.Errorf("page %d is out of range for page_size %d", params.Page, params.PageSize)
	}
	return nil
}

// translateValidatorError turns the validator's error map into a single
// readable error.
func translateValidatorError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	errs := verrs.Translate(trans)
	vals := make([]string, 0, len(errs))
	for _, value := range errs {
		vals = append(vals, value)
	}
	sort.Strings(vals)
	return errors.New(strings.Join(vals, " "))
}

// ParseFilters accepts a filter string or, when the text is a JSON object, a
// structured filter.
func ParseFilters(raw string) (filter.Expression, error) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") {
		return filter.ParseJSON([]byte(trimmed))
	}
	return filter.Parse(trimmed)
}

// ParseOrderBy accepts a comma separated list of fields, a JSON list of fields
// or a JSON object of field to direction.
func ParseOrderBy(raw string) ([]Order, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if strings.HasPrefix(raw, "{") || strings.HasPrefix(raw, "[") {
		var value interface{}
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			return nil, fmt.Errorf("could not parse order_by as JSON: %w", err)
		}
		return OrderByFromValue(value)
	}
	return OrderByFromValue(raw)
}

// OrderByFromValue converts a decoded order_by value into sort keys.
func OrderByFromValue(value interface{}) ([]Order, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return splitFields(strings.Split(v, ","))
	case []string:
		return splitFields(v)
	case []interface{}:
		fields := make([]string, 0, len(v))
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("order_by field must be a string, got %T", e)
			}
			fields = append(fields, s)
		}
		return splitFields(fields)
	case map[string]interface{}:
		fields := make([]string, 0, len(v))
		for f := range v {
			fields = append(fields, f)
		}
		sort.Strings(fields)

		orders := make([]Order, 0, len(fields))
		for _, f := range fields {
			desc, err := parseDirection(v[f])
			if err != nil {
				return nil, fmt.Errorf("order_by %q: %w", f, err)
			}
			orders = append(orders, Order{Field: f, Descending: desc})
		}
		return orders, nil
	}
	return nil, fmt.Errorf("unsupported order_by value of type %T", value)
}

func splitFields(fields []string) ([]Order, error) {
	orders := make([]Order, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			return nil, errors.New("order_by contains an empty field")
		}
		orders = append(orders, Order{Field: f})
	}
	return orders, nil
}

func parseDirection(value interface{}) (bool, error) {
	if m, ok := value.(map[string]interface{}); ok {
		value = m["order"]
	}
	s, ok := value.(string)
	if !ok {
		return false, fmt.Errorf("direction must be a string, got %T", value)
	}
	switch strings.ToLower(s) {
	case "asc":
		return false, nil
	case "desc":
		return true, nil
	}
	return false, fmt.Errorf("direction must be asc or desc, got %q", s)
}
