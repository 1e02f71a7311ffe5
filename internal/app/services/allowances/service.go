package allowances

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/R3E-Network/mirror_query/internal/app/core/service"
	"github.com/R3E-Network/mirror_query/internal/app/domain/entity"
	"github.com/R3E-Network/mirror_query/internal/app/metrics"
	"github.com/R3E-Network/mirror_query/internal/app/storage"
	"github.com/R3E-Network/mirror_query/internal/entityid"
	svcerrors "github.com/R3E-Network/mirror_query/internal/errors"
	"github.com/R3E-Network/mirror_query/internal/filter"
	"github.com/R3E-Network/mirror_query/internal/query"
	"github.com/R3E-Network/mirror_query/internal/timerange"
	"github.com/R3E-Network/mirror_query/pkg/logger"
)

const (
	endpoint   = "allowances"
	ownerParam = "idOrAliasOrEvmAddress"
)

var acceptedKeys = filter.NewKeySet(filter.KeyLimit, filter.KeyOrder, filter.KeySpenderID)

// Service lists the crypto allowances granted by an account.
type Service struct {
	allowances   storage.AllowanceStore
	accounts     storage.AccountStore
	parser       *filter.Parser
	paginator    *query.Paginator
	defaultLimit int64
	log          *logger.Logger
}

// New constructs an allowances service. accounts resolves owners given as
// opaque EVM addresses.
func New(allowances storage.AllowanceStore, accounts storage.AccountStore, parser *filter.Parser, paginator *query.Paginator, defaultLimit int64, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("allowances")
	}
	return &Service{
		allowances:   allowances,
		accounts:     accounts,
		parser:       parser,
		paginator:    paginator,
		defaultLimit: defaultLimit,
		log:          log,
	}
}

// Descriptor advertises the endpoint.
func (s *Service) Descriptor() service.Descriptor {
	return service.NewDescriptor(endpoint, "/api/v1/accounts/{idOrAliasOrEvmAddress}/allowances/crypto", acceptedKeys).
		WithCapabilities("path:" + ownerParam)
}

// Page is one page of allowances.
type Page struct {
	Allowances []View      `json:"allowances"`
	Links      query.Links `json:"links"`
}

// View is the response form of a crypto allowance.
type View struct {
	Amount        int64     `json:"amount"`
	AmountGranted int64     `json:"amount_granted"`
	Owner         string    `json:"owner"`
	Spender       string    `json:"spender"`
	Timestamp     Timestamp `json:"timestamp"`
}

// Timestamp is the validity period of an allowance.
type Timestamp struct {
	From *string `json:"from"`
	To   *string `json:"to"`
}

// validate rejects ne on spender.id and otherwise defers to the parser.
func (s *Service) validate(key filter.Key, op filter.Operator, value string) bool {
	if key == filter.KeySpenderID && op == filter.OpNe {
		return false
	}
	return s.parser.CheckFilter(key, op, value)
}

// List returns the page of allowances granted by owner selected by the query
// of u.
func (s *Service) List(ctx context.Context, owner string, u *url.URL) (page Page, err error) {
	start := time.Now()
	defer func() { metrics.RecordRequest(endpoint, time.Since(start), err) }()

	ownerID, err := s.resolveOwner(ctx, owner)
	if err != nil {
		return Page{}, err
	}

	filters, err := s.parser.BuildAndValidate(u.Query(), acceptedKeys, s.validate, nil)
	if err != nil {
		return Page{}, err
	}
	for _, f := range filter.ByKey(filters, filter.KeySpenderID) {
		if _, ok := f.Value.(*entityid.EntityID); ok {
			return Page{}, svcerrors.InvalidParam(string(filter.KeySpenderID))
		}
	}

	q := query.LimitAndOrder(filters, filter.OrderAsc, s.defaultLimit)
	b := query.NewBuilder().Add("owner = ?", ownerID)
	spenderSQL, spenderParams := query.CompileColumn("spender", filters, filter.KeySpenderID, query.ColumnOptions{MergeEq: true})
	b.Add(spenderSQL, spenderParams...)
	where, params := b.Where()
	q.SQL = query.ToPositional(where, 1)
	q.Params = params
	metrics.RecordCompiledQuery(endpoint)

	entry := s.log.WithFields(logrus.Fields{
		"request_id": uuid.NewString(),
		"owner":      ownerID,
		"where":      q.SQL,
		"limit":      q.Limit,
	})
	entry.Debug("compiled allowances query")

	rows, err := s.allowances.ListCryptoAllowances(ctx, q)
	if err != nil {
		entry.WithError(err).Warn("list crypto allowances failed")
		return Page{}, err
	}

	page.Allowances = make([]View, 0, len(rows))
	for _, row := range rows {
		page.Allowances = append(page.Allowances, toView(row))
	}

	var cursors []query.Cursor
	if len(rows) > 0 {
		last := rows[len(rows)-1]
		cursors = []query.Cursor{{Field: filter.KeySpenderID, Value: entityid.FormatEncoded(last.Spender)}}
	}
	page.Links = s.paginator.Links(endpoint, u, int64(len(rows)) < q.Limit, cursors, q.Order)
	return page, nil
}

// resolveOwner returns the encoded id of owner, looking opaque EVM addresses
// up in the entity table.
func (s *Service) resolveOwner(ctx context.Context, owner string) (int64, error) {
	id, err := s.parser.Codec().Parse(entityid.Text(owner), entityid.WithParamName(ownerParam))
	if err != nil {
		return 0, err
	}
	if encoded, ok := id.EncodedID(); ok {
		return encoded, nil
	}

	addr, ok := id.EvmAddress()
	if !ok || s.accounts == nil {
		return 0, svcerrors.InvalidParam(ownerParam)
	}
	encoded, err := s.accounts.GetEntityIDByEvmAddress(ctx, addr.Bytes())
	if err != nil {
		s.log.WithField("owner", owner).WithError(err).Debug("owner evm address lookup failed")
		return 0, err
	}
	return encoded, nil
}

func toView(row entity.CryptoAllowance) View {
	from, to := parseTimestampRange(row.TimestampRange)
	return View{
		Amount:        row.Amount,
		AmountGranted: row.AmountGranted,
		Owner:         entityid.Decode(row.Owner).String(),
		Spender:       entityid.Decode(row.Spender).String(),
		Timestamp:     Timestamp{From: from, To: to},
	}
}

// parseTimestampRange splits a range literal such as "[1,)" into its
// rendered bounds.
func parseTimestampRange(literal string) (from, to *string) {
	literal = strings.Trim(literal, "[]()")
	lower, upper, ok := strings.Cut(literal, ",")
	if !ok {
		return nil, nil
	}
	return boundString(lower), boundString(upper)
}

func boundString(raw string) *string {
	ns, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return nil
	}
	s := timerange.NsToSecNs(ns)
	return &s
}
