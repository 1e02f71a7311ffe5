package network

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/mirror_query/internal/app/domain/entity"
	"github.com/R3E-Network/mirror_query/internal/app/storage"
	"github.com/R3E-Network/mirror_query/internal/entityid"
	svcerrors "github.com/R3E-Network/mirror_query/internal/errors"
	"github.com/R3E-Network/mirror_query/internal/filter"
	"github.com/R3E-Network/mirror_query/pkg/logger"
)

func newTestService(t *testing.T) (*Service, *storage.Memory) {
	t.Helper()
	log := logger.New(logger.LoggingConfig{Output: "discard"})
	codec, err := entityid.NewCodec(entityid.Options{}, log)
	require.NoError(t, err)
	store := storage.NewMemory()
	store.SetSupply(entity.NetworkSupply{
		UnreleasedSupply:   1_000_000_000_000_000_000,
		ConsensusTimestamp: 1234567890000000001,
	})
	return New(store, filter.NewParser(codec, filter.Options{}, log), log), store
}

func TestSupply(t *testing.T) {
	svc, _ := newTestService(t)

	supply, err := svc.Supply(context.Background(), &url.URL{Path: "/api/v1/network/supply"})
	require.NoError(t, err)
	assert.Equal(t, "4000000000000000000", supply.ReleasedSupply)
	assert.Equal(t, "5000000000000000000", supply.TotalSupply)
	assert.Equal(t, "1234567890.000000001", supply.Timestamp)
	assert.Equal(t, "", supply.Text())
}

func TestSupplyText(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		q        string
		expected string
	}{
		{q: "totalcoins", expected: "50000000000.00000000"},
		{q: "CIRCULATING", expected: "40000000000.00000000"},
	}
	for _, tt := range tests {
		t.Run(tt.q, func(t *testing.T) {
			supply, err := svc.Supply(context.Background(), &url.URL{RawQuery: "q=" + tt.q})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, supply.Text())
		})
	}
}

func TestSupplyRejectsUnknownQ(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Supply(context.Background(), &url.URL{RawQuery: "q=burned"})
	require.Error(t, err)
	assert.True(t, svcerrors.IsInvalidArgument(err))
}

func TestFormatHbars(t *testing.T) {
	assert.Equal(t, "0.00000001", formatHbars(1))
	assert.Equal(t, "12.34567890", formatHbars(1_234_567_890))
}
