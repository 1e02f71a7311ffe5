package timerange

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/R3E-Network/mirror_query/internal/config"
	svcerrors "github.com/R3E-Network/mirror_query/internal/errors"
	"github.com/R3E-Network/mirror_query/internal/filter"
	"github.com/R3E-Network/mirror_query/pkg/logger"
)

const (
	msgNoFilters      = "No timestamp range or eq operator provided"
	msgNe             = "Not equals operator not supported for timestamp param"
	msgMultipleLower  = "Multiple gt or gte operators not permitted for timestamp param"
	msgMultipleUpper  = "Multiple lt or lte operators not permitted for timestamp param"
	msgEqCombined     = "Cannot combine eq with ne, gt, gte, lt, or lte for timestamp param"
	msgMissingBound   = "Timestamp range must have gt (or gte) and lt (or lte), or eq operator"
	msgRangeOutOfSpan = "Timestamp range by the lower and upper bounds must be positive and within %s"
)

// TimestampRange is the resolved form of all timestamp filters of a request.
// Range is nil when no lower or upper bound was given.
type TimestampRange struct {
	Range    *Range
	EqValues []int64
	NeValues []int64
}

// IsEmpty reports whether the bounds exclude every timestamp.
func (t TimestampRange) IsEmpty() bool {
	return t.Range.IsEmpty()
}

// Options tunes a single resolution.
type Options struct {
	// Required rejects a request without any timestamp filter.
	Required bool
	// AllowNe permits ne in strict mode.
	AllowNe bool
	// AllowOpenRange permits a lower or upper bound on its own.
	AllowOpenRange bool
	// Strict forces the strict checks even when the resolver default is off.
	Strict bool
	// ValidateRange rejects empty spans and spans wider than the maximum.
	ValidateRange bool
}

// DefaultOptions returns the options most endpoints use.
func DefaultOptions() Options {
	return Options{Required: true, Strict: true, ValidateRange: true}
}

// Resolver folds timestamp filters into a TimestampRange.
type Resolver struct {
	strict   bool
	maxRange time.Duration
	log      *logger.Logger
}

// NewResolver creates a resolver from the query configuration.
func NewResolver(cfg config.QueryConfig, log *logger.Logger) *Resolver {
	if log == nil {
		log = logger.NewDefault("timerange")
	}
	return &Resolver{
		strict:   cfg.StrictTimestampParam,
		maxRange: cfg.MaxTimestampRange,
		log:      log,
	}
}

// Resolve considers the timestamp filters in filters. gt and lt are
// normalized to gte and lte, the tightest bound wins and duplicate eq or ne
// values are dropped keeping their first position.
func (r *Resolver) Resolve(filters []*filter.Filter, opts Options) (TimestampRange, error) {
	var timestamps []*filter.Filter
	for _, f := range filters {
		if f.Key == filter.KeyTimestamp {
			timestamps = append(timestamps, f)
		}
	}

	if len(timestamps) == 0 {
		if opts.Required {
			return TimestampRange{}, r.reject(msgNoFilters)
		}
		return TimestampRange{}, nil
	}

	var (
		earliest, latest   *int64
		eqValues, neValues []int64
		lowerCount         int
		upperCount         int
	)
	for _, f := range timestamps {
		v, err := timestampValue(f)
		if err != nil {
			return TimestampRange{}, svcerrors.InvalidParam(string(filter.KeyTimestamp))
		}

		switch f.Operator {
		case filter.OpEq:
			eqValues = appendUnique(eqValues, v)
		case filter.OpNe:
			neValues = appendUnique(neValues, v)
		case filter.OpGt, filter.OpGte:
			if f.Operator == filter.OpGt && v < math.MaxInt64 {
				v++
			}
			if earliest == nil {
				earliest = new(int64)
			}
			*earliest = max(*earliest, v)
			lowerCount++
		case filter.OpLt, filter.OpLte:
			if f.Operator == filter.OpLt {
				v--
			}
			if latest == nil {
				latest = new(int64)
				*latest = math.MaxInt64
			}
			*latest = min(*latest, v)
			upperCount++
		}
	}

	if opts.Strict || r.strict {
		switch {
		case !opts.AllowNe && len(neValues) > 0:
			return TimestampRange{}, r.reject(msgNe)
		case lowerCount > 1:
			return TimestampRange{}, r.reject(msgMultipleLower)
		case upperCount > 1:
			return TimestampRange{}, r.reject(msgMultipleUpper)
		case len(eqValues) > 0 && (lowerCount > 0 || upperCount > 0 || len(neValues) > 0):
			return TimestampRange{}, r.reject(msgEqCombined)
		}
	}

	if !opts.AllowOpenRange && len(eqValues) == 0 && (lowerCount == 0 || upperCount == 0) {
		return TimestampRange{}, r.reject(msgMissingBound)
	}

	bounded := earliest != nil && latest != nil
	empty := bounded && *latest < *earliest
	if opts.ValidateRange && bounded {
		if empty || uint64(*latest-*earliest)+1 > uint64(r.maxRange.Nanoseconds()) {
			return TimestampRange{}, r.reject(fmt.Sprintf(msgRangeOutOfSpan, FormatDuration(r.maxRange)))
		}
	}

	result := TimestampRange{EqValues: eqValues, NeValues: neValues}
	switch {
	case empty:
		result.Range = Empty()
	case earliest != nil || latest != nil:
		result.Range = NewRange(earliest, latest, "[]")
	}
	return result, nil
}

func (r *Resolver) reject(message string) error {
	r.log.WithField("reason", message).Debug("rejected timestamp filters")
	return svcerrors.InvalidArgument("%s", message)
}

func timestampValue(f *filter.Filter) (int64, error) {
	switch v := f.Value.(type) {
	case int64:
		return v, nil
	case string:
		return filter.ParseTimestampParam(v)
	}
	return 0, fmt.Errorf("unexpected timestamp value %T", f.Value)
}

func appendUnique(values []int64, v int64) []int64 {
	for _, existing := range values {
		if existing == v {
			return values
		}
	}
	return append(values, v)
}

// FormatDuration renders d in the largest whole unit of days, hours,
// minutes or seconds, e.g. "7d".
func FormatDuration(d time.Duration) string {
	day := 24 * time.Hour
	switch {
	case d > 0 && d%day == 0:
		return strconv.FormatInt(int64(d/day), 10) + "d"
	case d > 0 && d%time.Hour == 0:
		return strconv.FormatInt(int64(d/time.Hour), 10) + "h"
	case d > 0 && d%time.Minute == 0:
		return strconv.FormatInt(int64(d/time.Minute), 10) + "m"
	case d > 0 && d%time.Second == 0:
		return strconv.FormatInt(int64(d/time.Second), 10) + "s"
	}
	return d.String()
}

// NsToSecNs renders nanoseconds since epoch as seconds.nnnnnnnnn.
func NsToSecNs(ns int64) string {
	return nsToSecNs(ns, ".")
}

// NsToSecNsWithHyphen renders nanoseconds since epoch as seconds-nnnnnnnnn.
func NsToSecNsWithHyphen(ns int64) string {
	return nsToSecNs(ns, "-")
}

func nsToSecNs(ns int64, sep string) string {
	s := strconv.FormatInt(ns, 10)
	if len(s) <= 9 {
		return "0" + sep + strings.Repeat("0", 9-len(s)) + s
	}
	return s[:len(s)-9] + sep + s[len(s)-9:]
}
