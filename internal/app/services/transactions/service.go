package transactions

import (
	"context"
	"encoding/base64"
	"net/url"
	"strconv"
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

const endpoint = "transactions"

var acceptedKeys = filter.NewKeySet(
	filter.KeyAccountID,
	filter.KeyLimit,
	filter.KeyOrder,
	filter.KeyResult,
	filter.KeyTimestamp,
	filter.KeyTransactionType,
)

var timestampOptions = timerange.Options{AllowNe: true, AllowOpenRange: true}

// Service lists transactions.
type Service struct {
	transactions storage.TransactionStore
	accounts     storage.AccountStore
	parser       *filter.Parser
	resolver     *timerange.Resolver
	paginator    *query.Paginator
	defaultLimit int64
	log          *logger.Logger
}

// New constructs a transactions service. accounts resolves account.id
// filters given as opaque EVM addresses.
func New(transactions storage.TransactionStore, accounts storage.AccountStore, parser *filter.Parser, resolver *timerange.Resolver,
	paginator *query.Paginator, defaultLimit int64, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("transactions")
	}
	return &Service{
		transactions: transactions,
		accounts:     accounts,
		parser:       parser,
		resolver:     resolver,
		paginator:    paginator,
		defaultLimit: defaultLimit,
		log:          log,
	}
}

// Descriptor advertises the endpoint.
func (s *Service) Descriptor() service.Descriptor {
	return service.NewDescriptor(endpoint, "/api/v1/transactions", acceptedKeys)
}

// Page is one page of transactions.
type Page struct {
	Transactions []View      `json:"transactions"`
	Links        query.Links `json:"links"`
}

// View is the response form of a transaction.
type View struct {
	ChargedTxFee        int64   `json:"charged_tx_fee"`
	ConsensusTimestamp  string  `json:"consensus_timestamp"`
	EntityID            *string `json:"entity_id"`
	MemoBase64          string  `json:"memo_base64"`
	Name                string  `json:"name"`
	Node                *string `json:"node"`
	Nonce               int32   `json:"nonce"`
	Result              string  `json:"result"`
	Scheduled           bool    `json:"scheduled"`
	TransactionID       string  `json:"transaction_id"`
	ValidStartTimestamp string  `json:"valid_start_timestamp"`
}

// List returns the page of transactions selected by the query of u.
func (s *Service) List(ctx context.Context, u *url.URL) (page Page, err error) {
	start := time.Now()
	defer func() { metrics.RecordRequest(endpoint, time.Since(start), err) }()

	filters, err := s.parser.BuildAndValidate(u.Query(), acceptedKeys, nil, nil)
	if err != nil {
		return Page{}, err
	}
	tr, err := s.resolver.Resolve(filters, timestampOptions)
	if err != nil {
		return Page{}, err
	}

	requestID := uuid.NewString()
	page.Transactions = []View{}
	if tr.IsEmpty() {
		s.log.WithField("request_id", requestID).Debug("timestamp range is empty, skipping query")
		metrics.RecordPagination(endpoint, metrics.PaginationEmptyRange)
		return page, nil
	}
	if err := s.resolveEvmAccounts(ctx, filters); err != nil {
		return Page{}, err
	}

	q := s.compile(filters, tr)
	metrics.RecordCompiledQuery(endpoint)
	entry := s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"where":      q.SQL,
		"params":     len(q.Params),
		"limit":      q.Limit,
	})
	entry.Debug("compiled transactions query")

	rows, err := s.transactions.ListTransactions(ctx, q)
	if err != nil {
		entry.WithError(err).Warn("list transactions failed")
		return Page{}, err
	}

	for _, row := range rows {
		page.Transactions = append(page.Transactions, toView(row))
	}

	var cursors []query.Cursor
	if len(rows) > 0 {
		last := rows[len(rows)-1]
		cursors = []query.Cursor{{
			Field:   filter.KeyTimestamp,
			Value:   timerange.NsToSecNs(last.ConsensusTimestamp),
			Primary: true,
		}}
	}
	page.Links = s.paginator.Links(endpoint, u, int64(len(rows)) < q.Limit, cursors, q.Order)
	return page, nil
}

// resolveEvmAccounts replaces opaque EVM account.id values with the encoded
// id of their entity.
func (s *Service) resolveEvmAccounts(ctx context.Context, filters []*filter.Filter) error {
	for _, f := range filter.ByKey(filters, filter.KeyAccountID) {
		id, ok := f.Value.(*entityid.EntityID)
		if !ok {
			continue
		}
		addr, _ := id.EvmAddress()
		encoded, err := s.accounts.GetEntityIDByEvmAddress(ctx, addr.Bytes())
		if err != nil {
			return err
		}
		f.Value = encoded
	}
	return nil
}

func (s *Service) compile(filters []*filter.Filter, tr timerange.TimestampRange) query.Query {
	q := query.LimitAndOrder(filters, filter.OrderDesc, s.defaultLimit)

	b := query.NewBuilder()
	tsSQL, tsParams := query.TimestampConditions("t.consensus_timestamp", tr, true)
	b.Add(tsSQL, tsParams...)
	payerSQL, payerParams := query.CompileColumn("t.payer_account_id", filters, filter.KeyAccountID, query.ColumnOptions{MergeEq: true})
	b.Add(payerSQL, payerParams...)

	var result string
	for _, f := range filter.ByKey(filters, filter.KeyResult) {
		result, _ = f.Value.(string)
	}
	switch result {
	case "success":
		b.Add("t.result = ?", entity.TransactionResultSuccess)
	case "fail":
		b.Add("t.result != ?", entity.TransactionResultSuccess)
	}

	typeSQL, typeParams := query.CompileColumn("t.type", filters, filter.KeyTransactionType, query.ColumnOptions{MergeEq: true})
	b.Add(typeSQL, typeParams...)

	where, params := b.Where()
	q.SQL = query.ToPositional(where, 1)
	q.Params = params
	return q
}

func toView(row entity.Transaction) View {
	payer := entityid.Decode(row.PayerAccountID)
	view := View{
		ChargedTxFee:        row.ChargedTxFee,
		ConsensusTimestamp:  timerange.NsToSecNs(row.ConsensusTimestamp),
		EntityID:            optionalID(row.EntityID),
		MemoBase64:          base64.StdEncoding.EncodeToString(row.Memo),
		Name:                filter.TransactionTypeName(row.Type),
		Node:                optionalID(row.NodeAccountID),
		Nonce:               row.Nonce,
		Result:              strconv.Itoa(int(row.Result)),
		Scheduled:           row.Scheduled,
		TransactionID:       payer.String() + "-" + timerange.NsToSecNsWithHyphen(row.ValidStartNs),
		ValidStartTimestamp: timerange.NsToSecNs(row.ValidStartNs),
	}
	if row.Result == entity.TransactionResultSuccess {
		view.Result = "SUCCESS"
	}
	return view
}

func optionalID(id *int64) *string {
	if id == nil {
		return nil
	}
	return entityid.Decode(*id).StringPtr()
}
