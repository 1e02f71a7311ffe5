package query

import (
	"github.com/R3E-Network/mirror_query/internal/filter"
)

// Query is a compiled statement or fragment with its resolved page size and
// sort direction.
type Query struct {
	SQL    string
	Params []any
	Order  filter.Order
	Limit  int64
}

// Positional returns SQL with placeholders numbered from 1.
func (q Query) Positional() string {
	return ToPositional(q.SQL, 1)
}

// LimitAndOrder resolves the page size and sort direction from formatted
// filters. The last limit wins; it has already been clamped during
// formatting. Without a limit filter defaultLimit applies.
func LimitAndOrder(filters []*filter.Filter, defaultOrder filter.Order, defaultLimit int64) Query {
	limit := defaultLimit
	order := defaultOrder
	for _, f := range filters {
		switch f.Key {
		case filter.KeyLimit:
			if v, ok := f.Int64(); ok {
				limit = v
			}
		case filter.KeyOrder:
			if v, ok := f.Value.(string); ok && (v == string(filter.OrderAsc) || v == string(filter.OrderDesc)) {
				order = filter.Order(v)
			}
		}
	}
	return Query{
		SQL:    "limit ?",
		Params: []any{limit},
		Order:  order,
		Limit:  limit,
	}
}
