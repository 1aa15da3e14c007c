package models

// ModelError is the body of every failed REST response.
type ModelError struct {
	// A human readable description of the error
	Description string `json:"description"`

	// The HTTP status code of the response
	Code int `json:"code"`

	// The error class, e.g. NotFound or QueryBuilderException. Empty for
	// internal errors.
	Error string `json:"error,omitempty"`
}
