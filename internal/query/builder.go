// Package query compiles validated filters into parameterized SQL
// fragments and builds pagination links.
//
// Fragments are written with ? placeholders, optionally named (?name), and
// converted to Postgres positional parameters once the full statement is
// assembled.
package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var placeholderRegex = regexp.MustCompile(`\?([a-zA-Z][a-zA-Z0-9]*)?`)

// InvalidClauseError reports a fragment whose placeholders do not match its
// parameters. It signals a programming error.
type InvalidClauseError struct {
	Clause       string
	Placeholders int
	Params       int
}

func (e *InvalidClauseError) Error() string {
	return fmt.Sprintf("invalid clause produced after parsing query parameters: %d placeholders but %d values: clause: %q",
		e.Placeholders, e.Params, e.Clause)
}

// ToPositional rewrites ? and ?name placeholders to $n starting at start.
// Every occurrence of the same name resolves to the same index.
func ToPositional(sql string, start int) string {
	next := start
	named := make(map[string]int)
	return placeholderRegex.ReplaceAllStringFunc(sql, func(s string) string {
		index, ok := named[s]
		if !ok {
			index = next
			next++
			if len(s) > 1 {
				named[s] = index
			}
		}
		return "$" + strconv.Itoa(index)
	})
}

// CountPlaceholders returns the number of parameters a fragment binds:
// one per bare ? and one per distinct name.
func CountPlaceholders(sql string) int {
	count := 0
	named := make(map[string]struct{})
	for _, s := range placeholderRegex.FindAllString(sql, -1) {
		if len(s) == 1 {
			count++
			continue
		}
		if _, ok := named[s]; !ok {
			named[s] = struct{}{}
			count++
		}
	}
	return count
}

// ValidateClause returns an *InvalidClauseError when clause and params
// disagree.
func ValidateClause(clause string, params []any) error {
	if n := CountPlaceholders(clause); n != len(params) {
		return &InvalidClauseError{Clause: clause, Placeholders: n, Params: len(params)}
	}
	return nil
}

// Builder accumulates conditions and their parameters in order.
type Builder struct {
	conditions []string
	params     []any
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add appends a condition. Empty conditions are ignored.
func (b *Builder) Add(condition string, params ...any) *Builder {
	if condition == "" {
		return b
	}
	b.conditions = append(b.conditions, condition)
	b.params = append(b.params, params...)
	return b
}

// Len returns the number of conditions.
func (b *Builder) Len() int { return len(b.conditions) }

// Params returns the parameters collected so far.
func (b *Builder) Params() []any { return b.params }

// Where joins the conditions with "and". It panics with an
// *InvalidClauseError on a placeholder mismatch.
func (b *Builder) Where() (string, []any) {
	clause := strings.Join(b.conditions, " and ")
	if err := ValidateClause(clause, b.params); err != nil {
		panic(err)
	}
	return clause, b.params
}
