package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/R3E-Network/mirror_query/internal/app/domain/entity"
	"github.com/R3E-Network/mirror_query/internal/app/storage"
	"github.com/R3E-Network/mirror_query/internal/entityid"
	svcerrors "github.com/R3E-Network/mirror_query/internal/errors"
	"github.com/R3E-Network/mirror_query/internal/query"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ storage.AccountStore = (*Store)(nil)
var _ storage.AllowanceStore = (*Store)(nil)
var _ storage.TransactionStore = (*Store)(nil)
var _ storage.NetworkStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Open connects to the mirror node database at dsn.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return New(db), nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// --- AccountStore -----------------------------------------------------------

const accountColumns = `e.id, e.balance, e.balance_timestamp, e.created_timestamp, e.deleted, ` +
	`e.evm_address, e.memo, e.public_key, e.type`

func (s *Store) ListAccounts(ctx context.Context, q query.Query) ([]entity.Account, error) {
	stmt, args := statement(
		`select `+accountColumns+` from entity e where e.type in ('ACCOUNT', 'CONTRACT')`,
		q, "e.id")

	var accounts []entity.Account
	if err := s.db.SelectContext(ctx, &accounts, stmt, args...); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

func (s *Store) GetEntityIDByEvmAddress(ctx context.Context, address []byte) (int64, error) {
	var id int64
	err := s.db.GetContext(ctx, &id,
		`select id from entity where evm_address = $1 and deleted is not true`, address)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, svcerrors.NotFound("entity")
	}
	if err != nil {
		return 0, fmt.Errorf("get entity by evm address: %w", err)
	}
	return id, nil
}

// --- AllowanceStore ---------------------------------------------------------

func (s *Store) ListCryptoAllowances(ctx context.Context, q query.Query) ([]entity.CryptoAllowance, error) {
	stmt, args := statement(
		`select owner, spender, amount, amount_granted, payer_account_id, timestamp_range::text as timestamp_range `+
			`from crypto_allowance where amount > 0`,
		q, "spender")

	var allowances []entity.CryptoAllowance
	if err := s.db.SelectContext(ctx, &allowances, stmt, args...); err != nil {
		return nil, fmt.Errorf("list crypto allowances: %w", err)
	}
	return allowances, nil
}

// --- TransactionStore -------------------------------------------------------

func (s *Store) ListTransactions(ctx context.Context, q query.Query) ([]entity.Transaction, error) {
	stmt, args := statement(
		`select t.consensus_timestamp, t.payer_account_id, t.node_account_id, t.entity_id, t.type, t.result, `+
			`t.charged_tx_fee, t.valid_start_ns, t.memo, t.nonce, t.scheduled from transaction t`,
		q, "t.consensus_timestamp")

	var transactions []entity.Transaction
	if err := s.db.SelectContext(ctx, &transactions, stmt, args...); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return transactions, nil
}

// --- NetworkStore -----------------------------------------------------------

func (s *Store) GetUnreleasedSupply(ctx context.Context, accounts []entityid.Range) (entity.NetworkSupply, error) {
	stmt := `select coalesce(sum(balance), 0) as unreleased_supply, coalesce(max(balance_timestamp), 0) as consensus_timestamp ` +
		`from entity where ` + query.UnreleasedSupplyCondition("id", accounts)

	var supply entity.NetworkSupply
	if err := s.db.GetContext(ctx, &supply, stmt); err != nil {
		return entity.NetworkSupply{}, fmt.Errorf("get unreleased supply: %w", err)
	}
	return supply, nil
}

// statement appends the where clause of q to base, orders by orderColumn and
// binds the limit as the last parameter. base may already carry a where
// clause.
func statement(base string, q query.Query, orderColumn string) (string, []any) {
	stmt := base
	if q.SQL != "" {
		if strings.Contains(base, " where ") {
			stmt += " and " + q.SQL
		} else {
			stmt += " where " + q.SQL
		}
	}
	stmt += " order by " + orderColumn + " " + q.Order.SQL() +
		" limit $" + strconv.Itoa(len(q.Params)+1)

	args := make([]any, 0, len(q.Params)+1)
	args = append(args, q.Params...)
	args = append(args, q.Limit)
	return stmt, args
}
