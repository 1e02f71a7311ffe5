package query

import (
	"fmt"
	"math/big"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/R3E-Network/mirror_query/internal/app/metrics"
	"github.com/R3E-Network/mirror_query/internal/config"
	"github.com/R3E-Network/mirror_query/internal/entityid"
	"github.com/R3E-Network/mirror_query/internal/filter"
	"github.com/R3E-Network/mirror_query/pkg/logger"
)

var rangeOperatorRegex = regexp.MustCompile(`^[gl]t[e]?:`)

var directionRegex = map[filter.Order]*regexp.Regexp{
	filter.OrderAsc:  regexp.MustCompile(`gt[e]?:`),
	filter.OrderDesc: regexp.MustCompile(`lt[e]?:`),
}

// Cursor is the last value of one sort column on the current page.
type Cursor struct {
	Field     filter.Key
	Value     any
	Inclusive bool
	// Primary marks the column whose range decides whether another page can
	// exist. Without one the first cursor is used.
	Primary bool
}

// Links is the links object of a list response.
type Links struct {
	Next *string `json:"next"`
}

// NewLinks wraps next, treating "" as no next page.
func NewLinks(next string) Links {
	if next == "" {
		return Links{}
	}
	return Links{Next: &next}
}

// Paginator builds next links.
type Paginator struct {
	parser      *filter.Parser
	includeHost bool
	baseURL     string
	log         *logger.Logger
}

// NewPaginator creates a paginator using parser to interpret rewritten
// bounds.
func NewPaginator(parser *filter.Parser, cfg config.ResponseConfig, log *logger.Logger) *Paginator {
	if log == nil {
		log = logger.NewDefault("pagination")
	}
	return &Paginator{
		parser:      parser,
		includeHost: cfg.IncludeHostInLink,
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		log:         log,
	}
}

// NextLink returns the link to the page after the one ending at cursors, or
// "" when isEnd is set or the rewritten primary bounds cannot match a row.
func (p *Paginator) NextLink(u *url.URL, isEnd bool, cursors []Cursor, order filter.Order) string {
	if isEnd || len(cursors) == 0 {
		return ""
	}

	pattern, ok := directionRegex[order]
	if !ok {
		pattern = directionRegex[filter.OrderAsc]
		order = filter.OrderAsc
	}
	prefix := "gt"
	if order == filter.OrderDesc {
		prefix = "lt"
	}

	query := cloneValues(u.Query())
	var first, primary filter.Key
	for _, c := range cursors {
		insert := prefix + ":"
		if c.Inclusive {
			insert = prefix + "e:"
		}
		insert += fmt.Sprint(c.Value)
		rewrite(query, string(c.Field), pattern, insert)

		if first == "" {
			first = c.Field
		}
		if c.Primary && primary == "" {
			primary = c.Field
		}
	}
	if primary == "" {
		primary = first
	}

	if p.isEmptyRange(primary, query[string(primary)]) {
		p.log.WithField("field", primary).Debug("next page would be an empty range")
		return ""
	}

	var sb strings.Builder
	if p.includeHost && u.Host != "" {
		scheme := u.Scheme
		if scheme == "" {
			scheme = "http"
		}
		sb.WriteString(scheme + "://" + u.Host)
	}
	sb.WriteString(p.baseURL)
	sb.WriteString(strings.TrimSuffix(u.Path, "/"))
	sb.WriteString(encode(query))
	return sb.String()
}

// Links builds the links object for endpoint and records the outcome.
func (p *Paginator) Links(endpoint string, u *url.URL, isEnd bool, cursors []Cursor, order filter.Order) Links {
	if isEnd || len(cursors) == 0 {
		metrics.RecordPagination(endpoint, metrics.PaginationEnd)
		return Links{}
	}
	next := p.NextLink(u, false, cursors, order)
	if next == "" {
		metrics.RecordPagination(endpoint, metrics.PaginationEmptyRange)
	} else {
		metrics.RecordPagination(endpoint, metrics.PaginationNext)
	}
	return NewLinks(next)
}

// rewrite drops the values of field that bound the current direction and
// anchors the field at insert. When other values remain, insert is added
// only if they are range bounds; a fixed eq value is left alone.
func rewrite(query url.Values, field string, pattern *regexp.Regexp, insert string) {
	original := query[field]
	var kept []string
	for _, v := range original {
		if !pattern.MatchString(v) {
			kept = append(kept, v)
		}
	}

	if len(kept) == 0 {
		query[field] = []string{insert}
		return
	}
	query[field] = kept
	for _, v := range kept {
		if rangeOperatorRegex.MatchString(v) {
			query[field] = append(kept, insert)
			return
		}
	}
}

// isEmptyRange reports whether the gt/gte/lt/lte values of key leave no
// room between the bounds.
func (p *Paginator) isEmptyRange(key filter.Key, values []string) bool {
	var lower, upper *big.Int
	for _, v := range values {
		if !rangeOperatorRegex.MatchString(v) {
			continue
		}
		f := filter.New(key, v)
		n, ok := p.boundValue(f)
		if !ok {
			continue
		}

		switch f.Operator {
		case filter.OpGt, filter.OpGte:
			if f.Operator == filter.OpGt {
				n.Add(n, big.NewInt(1))
			}
			if lower == nil || n.Cmp(lower) > 0 {
				lower = n
			}
		case filter.OpLt, filter.OpLte:
			if f.Operator == filter.OpLt {
				n.Sub(n, big.NewInt(1))
			}
			if upper == nil || n.Cmp(upper) < 0 {
				upper = n
			}
		}
	}
	return lower != nil && upper != nil && upper.Cmp(lower) < 0
}

func (p *Paginator) boundValue(f *filter.Filter) (*big.Int, bool) {
	switch f.Key {
	case filter.KeyContractID:
		id, err := p.parser.Codec().Parse(entityid.Text(f.Raw))
		if err != nil {
			return nil, false
		}
		encoded, ok := id.EncodedID()
		return big.NewInt(encoded), ok
	case filter.KeySlot:
		return new(big.Int).SetString(strings.TrimPrefix(f.Raw, "0x"), 16)
	}

	if err := p.parser.Format(f); err != nil {
		return nil, false
	}
	switch v := f.Value.(type) {
	case int64:
		return big.NewInt(v), true
	case string:
		return new(big.Int).SetString(v, 10)
	}
	return nil, false
}

func cloneValues(values url.Values) url.Values {
	out := make(url.Values, len(values))
	for k, v := range values {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// encode renders the query with sorted keys and unescaped values.
func encode(query url.Values) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		for _, v := range query[k] {
			if sb.Len() == 0 {
				sb.WriteByte('?')
			} else {
				sb.WriteByte('&')
			}
			sb.WriteString(k + "=" + v)
		}
	}
	return sb.String()
}
