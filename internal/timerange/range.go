// Package timerange resolves timestamp filters into a canonical interval
// plus equality and inequality sets.
package timerange

import (
	"database/sql/driver"
	"strconv"
	"strings"
)

// Range is an int64 interval in the notation of a Postgres int8range. A nil
// bound is unbounded.
type Range struct {
	Lower          *int64
	Upper          *int64
	LowerInclusive bool
	UpperInclusive bool
	empty          bool
}

// NewRange builds a range from bounds written as "[]", "[)", "(]" or "()".
func NewRange(lower, upper *int64, bounds string) *Range {
	r := &Range{Lower: lower, Upper: upper}
	if len(bounds) == 2 {
		r.LowerInclusive = bounds[0] == '['
		r.UpperInclusive = bounds[1] == ']'
	}
	return r
}

// Closed returns [lower, upper].
func Closed(lower, upper int64) *Range {
	return NewRange(&lower, &upper, "[]")
}

// AtMost returns (, v].
func AtMost(v int64) *Range { return NewRange(nil, &v, "(]") }

// LessThan returns (, v).
func LessThan(v int64) *Range { return NewRange(nil, &v, "()") }

// AtLeast returns [v, ).
func AtLeast(v int64) *Range { return NewRange(&v, nil, "[)") }

// GreaterThan returns (v, ).
func GreaterThan(v int64) *Range { return NewRange(&v, nil, "()") }

// Empty returns the range containing nothing.
func Empty() *Range { return &Range{empty: true} }

// IsEmpty reports whether the range was explicitly collapsed.
func (r *Range) IsEmpty() bool { return r != nil && r.empty }

// Bounds returns the bracket pair, e.g. "[)".
func (r *Range) Bounds() string {
	b := []byte("()")
	if r.LowerInclusive {
		b[0] = '['
	}
	if r.UpperInclusive {
		b[1] = ']'
	}
	return string(b)
}

// Contains reports whether v falls inside the range.
func (r *Range) Contains(v int64) bool {
	if r.empty {
		return false
	}
	if r.Lower != nil {
		if v < *r.Lower || (v == *r.Lower && !r.LowerInclusive) {
			return false
		}
	}
	if r.Upper != nil {
		if v > *r.Upper || (v == *r.Upper && !r.UpperInclusive) {
			return false
		}
	}
	return true
}

// String renders the range literal, e.g. "[1,5]" or "(,10]".
func (r *Range) String() string {
	if r.empty {
		return "empty"
	}
	var sb strings.Builder
	bounds := r.Bounds()
	sb.WriteByte(bounds[0])
	if r.Lower != nil {
		sb.WriteString(strconv.FormatInt(*r.Lower, 10))
	}
	sb.WriteByte(',')
	if r.Upper != nil {
		sb.WriteString(strconv.FormatInt(*r.Upper, 10))
	}
	sb.WriteByte(bounds[1])
	return sb.String()
}

// Value implements driver.Valuer so a range binds as a range literal.
func (r *Range) Value() (driver.Value, error) {
	return r.String(), nil
}
