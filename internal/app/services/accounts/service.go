package accounts

import (
	"context"
	"encoding/hex"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/R3E-Network/mirror_query/internal/app/core/service"
	"github.com/R3E-Network/mirror_query/internal/app/domain/entity"
	"github.com/R3E-Network/mirror_query/internal/app/metrics"
	"github.com/R3E-Network/mirror_query/internal/app/storage"
	"github.com/R3E-Network/mirror_query/internal/entityid"
	"github.com/R3E-Network/mirror_query/internal/filter"
	"github.com/R3E-Network/mirror_query/internal/query"
	"github.com/R3E-Network/mirror_query/internal/timerange"
	"github.com/R3E-Network/mirror_query/pkg/logger"
)

const endpoint = "accounts"

var acceptedKeys = filter.NewKeySet(
	filter.KeyAccountBalance,
	filter.KeyAccountID,
	filter.KeyAccountPublicKey,
	filter.KeyBalance,
	filter.KeyLimit,
	filter.KeyOrder,
	filter.KeyTimestamp,
)

// Service lists accounts and contracts.
type Service struct {
	store        storage.AccountStore
	parser       *filter.Parser
	paginator    *query.Paginator
	defaultLimit int64
	log          *logger.Logger
}

// New constructs an accounts service.
func New(store storage.AccountStore, parser *filter.Parser, paginator *query.Paginator, defaultLimit int64, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("accounts")
	}
	return &Service{
		store:        store,
		parser:       parser,
		paginator:    paginator,
		defaultLimit: defaultLimit,
		log:          log,
	}
}

// Descriptor advertises the endpoint.
func (s *Service) Descriptor() service.Descriptor {
	return service.NewDescriptor(endpoint, "/api/v1/accounts", acceptedKeys)
}

// Page is one page of accounts.
type Page struct {
	Accounts []View      `json:"accounts"`
	Links    query.Links `json:"links"`
}

// View is the response form of an account.
type View struct {
	Account          string   `json:"account"`
	Balance          *Balance `json:"balance,omitempty"`
	CreatedTimestamp *string  `json:"created_timestamp"`
	Deleted          *bool    `json:"deleted"`
	EvmAddress       string   `json:"evm_address"`
	Key              *string  `json:"key"`
	Memo             string   `json:"memo"`
	Type             string   `json:"type"`
}

// Balance is the latest known balance of an account.
type Balance struct {
	Balance   *int64  `json:"balance"`
	Timestamp *string `json:"timestamp"`
}

// List returns the page of accounts selected by the query of u.
func (s *Service) List(ctx context.Context, u *url.URL) (page Page, err error) {
	start := time.Now()
	defer func() { metrics.RecordRequest(endpoint, time.Since(start), err) }()

	filters, err := s.parser.BuildAndValidate(u.Query(), acceptedKeys, nil, nil)
	if err != nil {
		return Page{}, err
	}

	q, includeBalance := s.compile(filters)
	metrics.RecordCompiledQuery(endpoint)
	entry := s.log.WithFields(logrus.Fields{
		"request_id": uuid.NewString(),
		"where":      q.SQL,
		"params":     len(q.Params),
		"limit":      q.Limit,
	})
	entry.Debug("compiled accounts query")

	rows, err := s.store.ListAccounts(ctx, q)
	if err != nil {
		entry.WithError(err).Warn("list accounts failed")
		return Page{}, err
	}

	page.Accounts = make([]View, 0, len(rows))
	for _, row := range rows {
		page.Accounts = append(page.Accounts, toView(row, includeBalance))
	}

	var cursors []query.Cursor
	if len(rows) > 0 {
		last := rows[len(rows)-1]
		cursors = []query.Cursor{{Field: filter.KeyAccountID, Value: entityid.FormatEncoded(last.ID)}}
	}
	page.Links = s.paginator.Links(endpoint, u, int64(len(rows)) < q.Limit, cursors, q.Order)
	return page, nil
}

// compile turns formatted filters into the where clause of the accounts
// query. The timestamp conditions take the first positions.
func (s *Service) compile(filters []*filter.Filter) (query.Query, bool) {
	q := query.LimitAndOrder(filters, filter.OrderAsc, s.defaultLimit)
	includeBalance := true

	var (
		ids []*filter.Filter
		evm []*filter.Filter
	)
	for _, f := range filters {
		switch f.Key {
		case filter.KeyAccountID:
			if _, ok := f.Value.(*entityid.EntityID); ok {
				evm = append(evm, f)
			} else {
				ids = append(ids, f)
			}
		case filter.KeyBalance:
			if v, ok := f.Value.(bool); ok {
				includeBalance = v
			}
		}
	}

	b := query.NewBuilder()
	idSQL, idParams := query.CompileColumn("e.id", ids, filter.KeyAccountID, query.ColumnOptions{MergeEq: true})
	b.Add(idSQL, idParams...)
	for _, f := range evm {
		addr, _ := f.Value.(*entityid.EntityID).EvmAddress()
		b.Add("e.evm_address"+f.Operator.SQL()+"?", addr.Bytes())
	}
	balanceSQL, balanceParams := query.CompileColumn("e.balance", filters, filter.KeyAccountBalance, query.ColumnOptions{})
	b.Add(balanceSQL, balanceParams...)
	keySQL, keyParams := query.CompileColumn("e.public_key", filters, filter.KeyAccountPublicKey, query.ColumnOptions{MergeEq: true})
	b.Add(keySQL, keyParams...)
	where, params := b.Where()

	conditions, tsParams := query.TimestampRangeFilterConditions(filters, 0, "e.timestamp_range")
	if where != "" {
		conditions = append(conditions, query.ToPositional(where, len(tsParams)+1))
	}
	q.SQL = strings.Join(conditions, " and ")
	q.Params = append(tsParams, params...)
	return q, includeBalance
}

func toView(row entity.Account, includeBalance bool) View {
	id := entityid.Decode(row.ID)
	view := View{
		Account:          id.String(),
		CreatedTimestamp: secNs(row.CreatedTimestamp),
		Deleted:          row.Deleted,
		EvmAddress:       id.ToEvmAddress(),
		Key:              row.PublicKey,
		Memo:             row.Memo,
		Type:             row.Type,
	}
	if len(row.EvmAddress) > 0 {
		view.EvmAddress = "0x" + hex.EncodeToString(row.EvmAddress)
	}
	if includeBalance {
		view.Balance = &Balance{Balance: row.Balance, Timestamp: secNs(row.BalanceTimestamp)}
	}
	return view
}

func secNs(ns *int64) *string {
	if ns == nil {
		return nil
	}
	s := timerange.NsToSecNs(*ns)
	return &s
}
