package allowances

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
	"github.com/R3E-Network/mirror_query/pkg/logger"
)

const opaqueAddress = "71eaa748d5252be68c1185588beca495459fdba4"

func newTestService(t *testing.T) (*Service, *storage.Memory) {
	t.Helper()
	log := logger.New(logger.LoggingConfig{Output: "discard"})
	codec, err := entityid.NewCodec(entityid.Options{}, log)
	require.NoError(t, err)
	parser := filter.NewParser(codec, filter.Options{}, log)
	store := storage.NewMemory()
	return New(store, store, parser, query.NewPaginator(parser, config.ResponseConfig{}, log), 25, log), store
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestListCompilesOwnerAndSpenders(t *testing.T) {
	svc, store := newTestService(t)

	_, err := svc.List(context.Background(), "0.0.2000", mustURL(t,
		"/api/v1/accounts/0.0.2000/allowances/crypto?spender.id=0.0.1001&spender.id=0.0.1002&spender.id=0.0.1003"))
	require.NoError(t, err)

	q, ok := store.LastQuery()
	require.True(t, ok)
	assert.Equal(t, "owner = $1 and spender in ($2, $3, $4)", q.SQL)
	assert.Equal(t, []any{int64(2000), int64(1001), int64(1002), int64(1003)}, q.Params)
	assert.Equal(t, filter.OrderAsc, q.Order)
	assert.Equal(t, int64(25), q.Limit)
}

func TestListRangeAndDuplicateSpenders(t *testing.T) {
	svc, store := newTestService(t)

	_, err := svc.List(context.Background(), "2000", mustURL(t,
		"/api/v1/accounts/2000/allowances/crypto?spender.id=gt:0.0.1000&spender.id=gt:0.0.1000&spender.id=lte:0.0.3000&order=desc"))
	require.NoError(t, err)

	q, ok := store.LastQuery()
	require.True(t, ok)
	assert.Equal(t, "owner = $1 and spender > $2 and spender <= $3", q.SQL)
	assert.Equal(t, []any{int64(2000), int64(1000), int64(3000)}, q.Params)
	assert.Equal(t, filter.OrderDesc, q.Order)
}

func TestListResolvesEvmOwner(t *testing.T) {
	svc, store := newTestService(t)
	raw, err := hex.DecodeString(opaqueAddress)
	require.NoError(t, err)
	store.SeedAccounts(entity.Account{ID: 1234, EvmAddress: raw})

	_, err = svc.List(context.Background(), "0x"+opaqueAddress, mustURL(t, "/api/v1/accounts/0x"+opaqueAddress+"/allowances/crypto"))
	require.NoError(t, err)

	q, ok := store.LastQuery()
	require.True(t, ok)
	assert.Equal(t, "owner = $1", q.SQL)
	assert.Equal(t, []any{int64(1234)}, q.Params)
}

func TestListUnknownEvmOwner(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.List(context.Background(), opaqueAddress, mustURL(t, "/api/v1/accounts/x/allowances/crypto"))
	require.Error(t, err)
	assert.True(t, svcerrors.IsNotFound(err))
}

func TestListRejects(t *testing.T) {
	svc, store := newTestService(t)

	tests := []struct {
		name  string
		owner string
		query string
	}{
		{name: "invalid owner", owner: "0.0.x", query: ""},
		{name: "ne spender", owner: "0.0.2000", query: "spender.id=ne:0.0.5"},
		{name: "opaque spender", owner: "0.0.2000", query: "spender.id=" + opaqueAddress},
		{name: "unknown key", owner: "0.0.2000", query: "account.id=0.0.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.List(context.Background(), tt.owner, mustURL(t, "/api/v1/accounts/o/allowances/crypto?"+tt.query))
			require.Error(t, err)
			assert.True(t, svcerrors.IsInvalidArgument(err))
		})
	}
	_, ok := store.LastQuery()
	assert.False(t, ok)
}

func TestListViewsAndLinks(t *testing.T) {
	svc, store := newTestService(t)
	store.SeedAllowances(
		entity.CryptoAllowance{Owner: 2000, Spender: 1001, Amount: 10, AmountGranted: 20, TimestampRange: "[1234567890000000001,)"},
		entity.CryptoAllowance{Owner: 2000, Spender: 1002, Amount: 5, AmountGranted: 5, TimestampRange: "[1,1234567890000000002)"},
	)

	page, err := svc.List(context.Background(), "0.0.2000", mustURL(t, "/api/v1/accounts/0.0.2000/allowances/crypto?limit=2"))
	require.NoError(t, err)
	require.Len(t, page.Allowances, 2)

	first := page.Allowances[0]
	assert.Equal(t, "0.0.2000", first.Owner)
	assert.Equal(t, "0.0.1001", first.Spender)
	require.NotNil(t, first.Timestamp.From)
	assert.Equal(t, "1234567890.000000001", *first.Timestamp.From)
	assert.Nil(t, first.Timestamp.To)
	assert.Equal(t, "1234567890.000000002", *page.Allowances[1].Timestamp.To)

	require.NotNil(t, page.Links.Next)
	assert.Equal(t, "/api/v1/accounts/0.0.2000/allowances/crypto?limit=2&spender.id=gt:0.0.1002", *page.Links.Next)
}
