package query

import (
	"strings"

	"github.com/R3E-Network/mirror_query/internal/filter"
)

// ColumnOptions controls how repeated operators on one column are merged.
type ColumnOptions struct {
	// MergeEq folds eq values into a single "in" list.
	MergeEq bool
	// MergeNe folds ne values into a single "not in" list.
	MergeNe bool
}

type filterValue struct {
	op    filter.Operator
	value any
}

// CompileColumn compiles the filters for key against column. Duplicate
// operator/value pairs are dropped. Unmerged comparisons come first in
// request order, followed by the merged "not in" and "in" lists.
func CompileColumn(column string, filters []*filter.Filter, key filter.Key, opts ColumnOptions) (string, []any) {
	var (
		b        = NewBuilder()
		seen     = make(map[filterValue]struct{})
		eqValues []any
		neValues []any
	)
	for _, f := range filters {
		if f.Key != key {
			continue
		}
		fv := filterValue{op: f.Operator, value: f.Value}
		if _, ok := seen[fv]; ok {
			continue
		}
		seen[fv] = struct{}{}

		switch {
		case f.Operator == filter.OpEq && opts.MergeEq:
			eqValues = append(eqValues, f.Value)
		case f.Operator == filter.OpNe && opts.MergeNe:
			neValues = append(neValues, f.Value)
		default:
			b.Add(column+f.Operator.SQL()+"?", f.Value)
		}
	}

	if len(neValues) > 0 {
		b.Add(column+" not in ("+placeholders(len(neValues))+")", neValues...)
	}
	if len(eqValues) > 0 {
		b.Add(column+" in ("+placeholders(len(eqValues))+")", eqValues...)
	}
	return b.Where()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
