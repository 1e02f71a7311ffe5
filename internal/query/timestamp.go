package query

import (
	"strconv"

	"github.com/R3E-Network/mirror_query/internal/filter"
	"github.com/R3E-Network/mirror_query/internal/timerange"
)

// ConditionFalse matches no rows. It stands in for an empty timestamp range.
const ConditionFalse = "false"

// TimestampConditions compiles tr against a scalar timestamp column. With
// asIn the eq and ne sets become "in" and "not in" lists, otherwise one
// comparison per value.
func TimestampConditions(column string, tr timerange.TimestampRange, asIn bool) (string, []any) {
	b := NewBuilder()
	if r := tr.Range; r != nil {
		if r.IsEmpty() {
			return ConditionFalse, nil
		}
		if r.Lower != nil {
			op := filter.OpGt
			if r.LowerInclusive {
				op = filter.OpGte
			}
			b.Add(column+op.SQL()+"?", *r.Lower)
		}
		if r.Upper != nil {
			op := filter.OpLt
			if r.UpperInclusive {
				op = filter.OpLte
			}
			b.Add(column+op.SQL()+"?", *r.Upper)
		}
	}

	addSet := func(values []int64, op filter.Operator, list string) {
		if len(values) == 0 {
			return
		}
		params := int64Params(values)
		if asIn {
			b.Add(column+" "+list+" ("+placeholders(len(values))+")", params...)
			return
		}
		for _, p := range params {
			b.Add(column+op.SQL()+"?", p)
		}
	}
	addSet(tr.NeValues, filter.OpNe, "not in")
	addSet(tr.EqValues, filter.OpEq, "in")
	return b.Where()
}

// TimestampRangeConditions compiles tr against an int8range column using the
// overlaps (&&) and contains (@>) operators. An eq value matches every range
// that overlaps (, value].
func TimestampRangeConditions(column string, tr timerange.TimestampRange) (string, []any) {
	b := NewBuilder()
	if tr.Range != nil {
		b.Add(column+" && ?", tr.Range)
	}
	for _, v := range tr.NeValues {
		b.Add("not "+column+" @> ?::bigint", v)
	}
	for _, v := range tr.EqValues {
		b.Add(column+" && ?", timerange.AtMost(v))
	}
	return b.Where()
}

// TimestampRangeFilterConditions compiles each timestamp filter on its own
// into an int8range condition with positional parameters numbered after
// offset.
func TimestampRangeFilterConditions(filters []*filter.Filter, offset int, column string) ([]string, []any) {
	var (
		conditions []string
		params     []any
	)
	for _, f := range filters {
		if f.Key != filter.KeyTimestamp {
			continue
		}
		v, ok := f.Int64()
		if !ok {
			continue
		}

		position := "$" + strconv.Itoa(len(params)+offset+1)
		var r *timerange.Range
		condition := column + " && " + position
		switch f.Operator {
		case filter.OpNe:
			condition = "not " + column + " @> " + position
			r = timerange.Closed(v, v)
		case filter.OpLt:
			r = timerange.LessThan(v)
		case filter.OpEq, filter.OpLte:
			r = timerange.AtMost(v)
		case filter.OpGt:
			r = timerange.GreaterThan(v)
		case filter.OpGte:
			r = timerange.AtLeast(v)
		default:
			continue
		}
		conditions = append(conditions, condition)
		params = append(params, r)
	}
	return conditions, params
}

func int64Params(values []int64) []any {
	params := make([]any, len(values))
	for i, v := range values {
		params[i] = v
	}
	return params
}
