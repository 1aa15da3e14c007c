package query

// NotFoundError is returned when no entity matches an identifier.
type NotFoundError struct {
	msg string
}

func (e *NotFoundError) Error() string {
	return e.msg
}

func NewNotFoundError(text string) error {
	return &NotFoundError{text}
}

// MultipleResultsError is returned when an identifier matches more than one
// entity, which means the identity field is not unique in storage.
type MultipleResultsError struct {
	msg string
}

func (e *MultipleResultsError) Error() string {
	return e.msg
}

func NewMultipleResultsError(text string) error {
	return &MultipleResultsError{text}
}

// InvalidInputError is returned for requests naming unknown kinds, fields or
// relations, or carrying malformed identifiers or paging parameters.
type InvalidInputError struct {
	msg string
}

func (e *InvalidInputError) Error() string {
	return e.msg
}

func NewInvalidInputError(text string) error {
	return &InvalidInputError{text}
}

// QueryBuilderError wraps any failure of the storage while running a query.
type QueryBuilderError struct {
	err error
}

func (e *QueryBuilderError) Error() string {
	return e.err.Error()
}

func (e *QueryBuilderError) Unwrap() error {
	return e.err
}

func NewQueryBuilderError(err error) error {
	return &QueryBuilderError{err}
}
