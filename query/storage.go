package query

import (
	"context"

	"github.com/aiidateam/aiida-data-apis/filter"
	"github.com/aiidateam/aiida-data-apis/schema"
	"github.com/aiidateam/aiida-data-apis/types"
)

// Row is one stored entity keyed by field name.
type Row = map[string]interface{}

// RelatedScope restricts a query to the entities related to a single source
// entity.
type RelatedScope struct {
	Source     *schema.Entity
	Relation   schema.Relation
	Identifier interface{}
}

type CountOptions struct {
	Filters filter.Expression
	Related *RelatedScope
}

type FindOptions struct {
	Filters filter.Expression
	OrderBy []types.Order
	// Limit of zero means no limit.
	Limit   int
	Offset  int
	Project []string
	Related *RelatedScope
}

// Storage runs filter expressions against stored entities. Implementations
// must be safe for concurrent use.
type Storage interface {
	Count(ctx context.Context, entity *schema.Entity, opts CountOptions) (int64, error)
	Find(ctx context.Context, entity *schema.Entity, opts FindOptions) ([]Row, error)
}
