package accounts

import (
	"context"
	"encoding/hex"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/mirror_query/internal/app/domain/entity"
	"github.com/R3E-Network/mirror_query/internal/app/storage"
	"github.com/R3E-Network/mirror_query/internal/config"
	"github.com/R3E-Network/mirror_query/internal/entityid"
	svcerrors "github.com/R3E-Network/mirror_query/internal/errors"
	"github.com/R3E-Network/mirror_query/internal/filter"
	"github.com/R3E-Network/mirror_query/internal/query"
	"github.com/R3E-Network/mirror_query/internal/timerange"
	"github.com/R3E-Network/mirror_query/pkg/logger"
)

func newTestService(t *testing.T) (*Service, *storage.Memory) {
	t.Helper()
	log := logger.New(logger.LoggingConfig{Output: "discard"})
	codec, err := entityid.NewCodec(entityid.Options{}, log)
	require.NoError(t, err)
	parser := filter.NewParser(codec, filter.Options{MaxRepeatedQueryParameters: 100, MaxLimit: 100}, log)
	store := storage.NewMemory()
	return New(store, parser, query.NewPaginator(parser, config.ResponseConfig{}, log), 25, log), store
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func int64Ptr(v int64) *int64 { return &v }

func TestListCompilesConditions(t *testing.T) {
	svc, store := newTestService(t)

	_, err := svc.List(context.Background(), mustURL(t,
		"/api/v1/accounts?account.id=gte:0.0.1000&account.id=0.0.1001&account.balance=gt:100&timestamp=lt:1234567890&limit=2"))
	require.NoError(t, err)

	q, ok := store.LastQuery()
	require.True(t, ok)
	assert.Equal(t, "e.timestamp_range && $1 and e.id >= $2 and e.id in ($3) and e.balance > $4", q.SQL)
	require.Len(t, q.Params, 4)
	assert.Equal(t, "(,1234567890000000000)", q.Params[0].(*timerange.Range).String())
	assert.Equal(t, []any{int64(1000), int64(1001), int64(100)}, q.Params[1:])
	assert.Equal(t, filter.OrderAsc, q.Order)
	assert.Equal(t, int64(2), q.Limit)
}

func TestListOpaqueEvmAddress(t *testing.T) {
	svc, store := newTestService(t)
	const address = "71eaa748d5252be68c1185588beca495459fdba4"

	_, err := svc.List(context.Background(), mustURL(t, "/api/v1/accounts?account.id=0x"+address))
	require.NoError(t, err)

	q, ok := store.LastQuery()
	require.True(t, ok)
	assert.Equal(t, "e.evm_address = $1", q.SQL)
	raw, err := hex.DecodeString(address)
	require.NoError(t, err)
	assert.Equal(t, []any{raw}, q.Params)
	assert.Equal(t, int64(25), q.Limit)
}

func TestListViewsAndLinks(t *testing.T) {
	svc, store := newTestService(t)
	store.SeedAccounts(
		entity.Account{
			ID:               1001,
			Balance:          int64Ptr(50),
			BalanceTimestamp: int64Ptr(1234567890000000001),
			Memo:             "first",
			Type:             "ACCOUNT",
		},
		entity.Account{ID: 1002, EvmAddress: []byte{0xab, 0xcd}, Type: "CONTRACT"},
	)

	page, err := svc.List(context.Background(), mustURL(t, "/api/v1/accounts?limit=2"))
	require.NoError(t, err)
	require.Len(t, page.Accounts, 2)

	first := page.Accounts[0]
	assert.Equal(t, "0.0.1001", first.Account)
	assert.Equal(t, "0x00000000000000000000000000000000000003e9", first.EvmAddress)
	require.NotNil(t, first.Balance)
	assert.Equal(t, int64(50), *first.Balance.Balance)
	assert.Equal(t, "1234567890.000000001", *first.Balance.Timestamp)
	assert.Equal(t, "0xabcd", page.Accounts[1].EvmAddress)

	require.NotNil(t, page.Links.Next)
	assert.Equal(t, "/api/v1/accounts?account.id=gt:0.0.1002&limit=2", *page.Links.Next)
}

func TestListNextLinkFromZeroID(t *testing.T) {
	svc, store := newTestService(t)
	store.SeedAccounts(entity.Account{ID: 0, Type: "ACCOUNT"})

	page, err := svc.List(context.Background(), mustURL(t, "/api/v1/accounts?limit=1"))
	require.NoError(t, err)
	require.NotNil(t, page.Links.Next)
	assert.Equal(t, "/api/v1/accounts?account.id=gt:0.0.0&limit=1", *page.Links.Next)

	_, err = svc.List(context.Background(), mustURL(t, *page.Links.Next))
	require.NoError(t, err)
}

func TestListLastPageHasNoNext(t *testing.T) {
	svc, store := newTestService(t)
	store.SeedAccounts(entity.Account{ID: 1001, Balance: int64Ptr(1)})

	page, err := svc.List(context.Background(), mustURL(t, "/api/v1/accounts?balance=false"))
	require.NoError(t, err)
	require.Len(t, page.Accounts, 1)
	assert.Nil(t, page.Accounts[0].Balance)
	assert.Nil(t, page.Links.Next)
}

func TestListRejectsInvalidParameters(t *testing.T) {
	svc, store := newTestService(t)

	_, err := svc.List(context.Background(), mustURL(t, "/api/v1/accounts?account.id=abc&transactiontype=CRYPTOTRANSFER"))
	require.Error(t, err)
	assert.True(t, svcerrors.IsInvalidArgument(err))

	var serviceErr *svcerrors.ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, []string{"Invalid parameter: account.id", "Unknown query parameter: transactiontype"}, serviceErr.Messages())

	_, ok := store.LastQuery()
	assert.False(t, ok)
}

func TestDescriptor(t *testing.T) {
	svc, _ := newTestService(t)
	d := svc.Descriptor()
	assert.Equal(t, "accounts", d.Name)
	assert.Contains(t, d.Capabilities, "account.publickey")
}
