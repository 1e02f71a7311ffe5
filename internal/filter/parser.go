package filter

import (
	"net/url"
	"sort"

	"github.com/hashicorp/go-multierror"

	"github.com/R3E-Network/mirror_query/internal/app/metrics"
	"github.com/R3E-Network/mirror_query/internal/entityid"
	svcerrors "github.com/R3E-Network/mirror_query/internal/errors"
	"github.com/R3E-Network/mirror_query/pkg/logger"
)

// Options bounds what a Parser accepts.
type Options struct {
	MaxRepeatedQueryParameters int
	MaxLimit                   int64
}

// DependencyCheck inspects the whole query for combinations of parameters
// that are individually valid but not together.
type DependencyCheck func(query url.Values) error

// Parser builds, validates and formats filters.
type Parser struct {
	codec  *entityid.Codec
	system *entityid.SystemEntities
	opts   Options
	log    *logger.Logger
}

// NewParser creates a parser around codec.
func NewParser(codec *entityid.Codec, opts Options, log *logger.Logger) *Parser {
	if opts.MaxRepeatedQueryParameters <= 0 {
		opts.MaxRepeatedQueryParameters = 100
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = 100
	}
	if log == nil {
		log = logger.NewDefault("filter")
	}
	return &Parser{
		codec:  codec,
		system: codec.SystemEntities(),
		opts:   opts,
		log:    log,
	}
}

// Codec returns the entity id codec the parser validates against.
func (p *Parser) Codec() *entityid.Codec { return p.codec }

// MaxLimit returns the configured upper bound for limit.
func (p *Parser) MaxLimit() int64 { return p.opts.MaxLimit }

// Build turns every query value into a filter. Keys are visited in sorted
// order and values in request order. Keys repeated more often than allowed
// are reported and skipped.
func (p *Parser) Build(query url.Values) ([]*Filter, []svcerrors.BadParam) {
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var (
		filters   []*Filter
		badParams []svcerrors.BadParam
	)
	for _, k := range keys {
		values := query[k]
		if len(values) > p.opts.MaxRepeatedQueryParameters {
			badParams = append(badParams, svcerrors.BadParam{
				Key:   k,
				Code:  svcerrors.ParamCountExceedsMax,
				Count: len(values),
				Max:   p.opts.MaxRepeatedQueryParameters,
			})
			continue
		}
		for _, v := range values {
			filters = append(filters, New(Key(k), v))
		}
	}
	return filters, badParams
}

// Validate checks every filter against accepted and validator and collects
// all problems before failing. On success the filters are formatted in place.
func (p *Parser) Validate(filters []*Filter, validator Validator, accepted KeySet) error {
	if err := p.check(filters, validator, accepted); err != nil {
		return toServiceError(err)
	}
	for _, f := range filters {
		if err := p.Format(f); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parser) check(filters []*Filter, validator Validator, accepted KeySet) *multierror.Error {
	if validator == nil {
		validator = p.CheckFilter
	}

	var result *multierror.Error
	for _, f := range filters {
		if !accepted.Has(f.Key) {
			result = multierror.Append(result, svcerrors.BadParam{Key: string(f.Key), Code: svcerrors.ParamUnknown})
			continue
		}
		if !validator(f.Key, f.Operator, f.Raw) {
			result = multierror.Append(result, svcerrors.BadParam{Key: string(f.Key), Code: svcerrors.ParamInvalid})
		}
	}
	return result
}

// BuildAndValidate builds filters from query, validates and formats them and
// finally runs the dependency check. A nil validator means CheckFilter and a
// nil dependency check means CheckDependencies.
func (p *Parser) BuildAndValidate(query url.Values, accepted KeySet, validator Validator, dependencyCheck DependencyCheck) ([]*Filter, error) {
	filters, badParams := p.Build(query)

	var result *multierror.Error
	for _, bp := range badParams {
		result = multierror.Append(result, bp)
	}
	if err := p.check(filters, validator, accepted); err != nil {
		result = multierror.Append(result, err.Errors...)
	}
	if result.ErrorOrNil() != nil {
		p.log.WithField("params", len(result.Errors)).Debug("rejected query parameters")
		return nil, toServiceError(result)
	}

	for _, f := range filters {
		if err := p.Format(f); err != nil {
			return nil, err
		}
	}

	if dependencyCheck == nil {
		dependencyCheck = CheckDependencies
	}
	if err := dependencyCheck(query); err != nil {
		return nil, err
	}
	return filters, nil
}

// CheckDependencies requires block.number or block.hash alongside
// transaction.index and forbids combining the two block filters.
func CheckDependencies(query url.Values) error {
	_, hasIndex := query[string(KeyTransactionIndex)]
	_, hasNumber := query[string(KeyBlockNumber)]
	_, hasHash := query[string(KeyBlockHash)]

	var badParams []svcerrors.BadParam
	if hasIndex && !hasNumber && !hasHash {
		badParams = append(badParams, svcerrors.BadParam{
			Key:     string(KeyTransactionIndex),
			Code:    svcerrors.ParamInvalidUsage,
			Message: "transaction.index requires block.number or block.hash filter to be specified",
		})
	}
	if hasNumber && hasHash {
		badParams = append(badParams, svcerrors.BadParam{
			Key:     string(KeyBlockHash),
			Code:    svcerrors.ParamInvalidUsage,
			Message: "cannot combine block.number and block.hash",
		})
	}
	if len(badParams) > 0 {
		for _, bp := range badParams {
			metrics.RecordFilterRejection(string(bp.Code))
		}
		return svcerrors.InvalidParameters(badParams)
	}
	return nil
}

func toServiceError(result *multierror.Error) error {
	params := make([]svcerrors.BadParam, 0, len(result.Errors))
	for _, err := range result.Errors {
		bp, ok := err.(svcerrors.BadParam)
		if !ok {
			bp = svcerrors.BadParam{Code: svcerrors.ParamInvalid, Message: err.Error()}
		}
		metrics.RecordFilterRejection(string(bp.Code))
		params = append(params, bp)
	}
	return svcerrors.InvalidParameters(params)
}

func (p *Parser) formatError(f *Filter, err error) error {
	p.log.WithField("key", f.Key).WithError(err).Debug("failed to format filter")
	return svcerrors.InvalidParam(string(f.Key))
}
