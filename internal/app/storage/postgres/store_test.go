package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/mirror_query/internal/entityid"
	svcerrors "github.com/R3E-Network/mirror_query/internal/errors"
	"github.com/R3E-Network/mirror_query/internal/filter"
	"github.com/R3E-Network/mirror_query/internal/query"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "sqlmock")), mock
}

func TestListAccounts(t *testing.T) {
	store, mock := newMockStore(t)

	stmt := `select e.id, e.balance, e.balance_timestamp, e.created_timestamp, e.deleted, e.evm_address, e.memo, e.public_key, e.type ` +
		`from entity e where e.type in ('ACCOUNT', 'CONTRACT') and e.id >= $1 order by e.id ASC limit $2`
	mock.ExpectQuery(stmt).
		WithArgs(int64(1001), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "balance", "memo", "type"}).
			AddRow(int64(1001), int64(50), "first", "ACCOUNT").
			AddRow(int64(1002), nil, "", "CONTRACT"))

	accounts, err := store.ListAccounts(context.Background(), query.Query{
		SQL:    "e.id >= $1",
		Params: []any{int64(1001)},
		Order:  filter.OrderAsc,
		Limit:  2,
	})
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, int64(1001), accounts[0].ID)
	assert.Equal(t, int64(50), *accounts[0].Balance)
	assert.Nil(t, accounts[1].Balance)
	assert.Equal(t, "CONTRACT", accounts[1].Type)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListAccountsWithoutConditions(t *testing.T) {
	store, mock := newMockStore(t)

	stmt := `select e.id, e.balance, e.balance_timestamp, e.created_timestamp, e.deleted, e.evm_address, e.memo, e.public_key, e.type ` +
		`from entity e where e.type in ('ACCOUNT', 'CONTRACT') order by e.id DESC limit $1`
	mock.ExpectQuery(stmt).
		WithArgs(int64(25)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	accounts, err := store.ListAccounts(context.Background(), query.Query{Order: filter.OrderDesc, Limit: 25})
	require.NoError(t, err)
	assert.Empty(t, accounts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetEntityIDByEvmAddress(t *testing.T) {
	store, mock := newMockStore(t)
	address := []byte{0x71, 0xea}

	mock.ExpectQuery(`select id from entity where evm_address = $1 and deleted is not true`).
		WithArgs(address).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1234)))
	mock.ExpectQuery(`select id from entity where evm_address = $1 and deleted is not true`).
		WithArgs(address).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	id, err := store.GetEntityIDByEvmAddress(context.Background(), address)
	require.NoError(t, err)
	assert.Equal(t, int64(1234), id)

	_, err = store.GetEntityIDByEvmAddress(context.Background(), address)
	require.Error(t, err)
	assert.True(t, svcerrors.IsNotFound(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListCryptoAllowances(t *testing.T) {
	store, mock := newMockStore(t)

	stmt := `select owner, spender, amount, amount_granted, payer_account_id, timestamp_range::text as timestamp_range ` +
		`from crypto_allowance where amount > 0 and owner = $1 and spender in ($2, $3, $4) order by spender ASC limit $5`
	mock.ExpectQuery(stmt).
		WithArgs(int64(2000), int64(1001), int64(1002), int64(1003), int64(25)).
		WillReturnRows(sqlmock.NewRows([]string{"owner", "spender", "amount", "amount_granted", "payer_account_id", "timestamp_range"}).
			AddRow(int64(2000), int64(1001), int64(10), int64(20), int64(2000), "[1,)"))

	allowances, err := store.ListCryptoAllowances(context.Background(), query.Query{
		SQL:    "owner = $1 and spender in ($2, $3, $4)",
		Params: []any{int64(2000), int64(1001), int64(1002), int64(1003)},
		Order:  filter.OrderAsc,
		Limit:  25,
	})
	require.NoError(t, err)
	require.Len(t, allowances, 1)
	assert.Equal(t, int64(1001), allowances[0].Spender)
	assert.Equal(t, "[1,)", allowances[0].TimestampRange)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListTransactions(t *testing.T) {
	store, mock := newMockStore(t)

	stmt := `select t.consensus_timestamp, t.payer_account_id, t.node_account_id, t.entity_id, t.type, t.result, ` +
		`t.charged_tx_fee, t.valid_start_ns, t.memo, t.nonce, t.scheduled from transaction t ` +
		`where t.consensus_timestamp >= $1 order by t.consensus_timestamp DESC limit $2`
	mock.ExpectQuery(stmt).
		WithArgs(int64(5), int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"consensus_timestamp", "payer_account_id", "type", "result"}).
			AddRow(int64(9), int64(1001), int16(14), int16(22)))

	transactions, err := store.ListTransactions(context.Background(), query.Query{
		SQL:    "t.consensus_timestamp >= $1",
		Params: []any{int64(5)},
		Order:  filter.OrderDesc,
		Limit:  10,
	})
	require.NoError(t, err)
	require.Len(t, transactions, 1)
	assert.Equal(t, int16(14), transactions[0].Type)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUnreleasedSupply(t *testing.T) {
	store, mock := newMockStore(t)
	system := entityid.NewSystemEntities(0, 0)

	stmt := `select coalesce(sum(balance), 0) as unreleased_supply, coalesce(max(balance_timestamp), 0) as consensus_timestamp ` +
		`from entity where id = 2 or id = 42 or (id >= 44 and id <= 71) or (id >= 73 and id <= 87) or ` +
		`(id >= 99 and id <= 100) or (id >= 200 and id <= 349) or (id >= 400 and id <= 750)`
	mock.ExpectQuery(stmt).
		WillReturnRows(sqlmock.NewRows([]string{"unreleased_supply", "consensus_timestamp"}).
			AddRow(int64(1000), int64(1234567890000000001)))

	supply, err := store.GetUnreleasedSupply(context.Background(), system.UnreleasedSupplyAccounts)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), supply.UnreleasedSupply)
	assert.Equal(t, int64(1234567890000000001), supply.ConsensusTimestamp)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	store, err := Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer store.Close()

	if _, err := store.ListAccounts(context.Background(), query.Query{Order: filter.OrderAsc, Limit: 1}); err != nil {
		t.Fatalf("list accounts: %v", err)
	}
}
