package network

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/R3E-Network/mirror_query/internal/app/core/service"
	"github.com/R3E-Network/mirror_query/internal/app/domain/entity"
	"github.com/R3E-Network/mirror_query/internal/app/metrics"
	"github.com/R3E-Network/mirror_query/internal/app/storage"
	"github.com/R3E-Network/mirror_query/internal/entityid"
	"github.com/R3E-Network/mirror_query/internal/filter"
	"github.com/R3E-Network/mirror_query/internal/timerange"
	"github.com/R3E-Network/mirror_query/pkg/logger"
)

const (
	endpoint         = "network_supply"
	tinybarsPerHbar  = 100_000_000
	qTotalCoins      = "totalcoins"
	qCirculatingCoin = "circulating"
)

var acceptedKeys = filter.NewKeySet(filter.KeyQ)

// Service reports the hbar supply.
type Service struct {
	store  storage.NetworkStore
	parser *filter.Parser
	system *entityid.SystemEntities
	log    *logger.Logger
}

// New constructs a network service.
func New(store storage.NetworkStore, parser *filter.Parser, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("network")
	}
	return &Service{
		store:  store,
		parser: parser,
		system: parser.Codec().SystemEntities(),
		log:    log,
	}
}

// Descriptor advertises the endpoint.
func (s *Service) Descriptor() service.Descriptor {
	return service.NewDescriptor(endpoint, "/api/v1/network/supply", acceptedKeys)
}

// Supply is the response form of the network supply. Amounts are tinybars.
type Supply struct {
	ReleasedSupply string `json:"released_supply"`
	Timestamp      string `json:"timestamp"`
	TotalSupply    string `json:"total_supply"`
	// Q selects a plain text rendering, see Text.
	Q string `json:"-"`

	released int64
}

// Text renders the amount selected by q in hbars, or "" when q is unset.
func (s Supply) Text() string {
	switch s.Q {
	case qTotalCoins:
		return formatHbars(entity.TotalSupply)
	case qCirculatingCoin:
		return formatHbars(s.released)
	}
	return ""
}

// Supply returns the released and total supply.
func (s *Service) Supply(ctx context.Context, u *url.URL) (supply Supply, err error) {
	start := time.Now()
	defer func() { metrics.RecordRequest(endpoint, time.Since(start), err) }()

	filters, err := s.parser.BuildAndValidate(u.Query(), acceptedKeys, nil, nil)
	if err != nil {
		return Supply{}, err
	}
	for _, f := range filters {
		if v, ok := f.Value.(string); ok {
			supply.Q = v
		}
	}

	metrics.RecordCompiledQuery(endpoint)
	row, err := s.store.GetUnreleasedSupply(ctx, s.system.UnreleasedSupplyAccounts)
	if err != nil {
		s.log.WithField("request_id", uuid.NewString()).WithError(err).Warn("get unreleased supply failed")
		return Supply{}, err
	}

	supply.released = entity.TotalSupply - row.UnreleasedSupply
	supply.ReleasedSupply = strconv.FormatInt(supply.released, 10)
	supply.Timestamp = timerange.NsToSecNs(row.ConsensusTimestamp)
	supply.TotalSupply = strconv.FormatInt(entity.TotalSupply, 10)
	return supply, nil
}

func formatHbars(tinybars int64) string {
	return fmt.Sprintf("%d.%08d", tinybars/tinybarsPerHbar, tinybars%tinybarsPerHbar)
}
