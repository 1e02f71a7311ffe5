package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/R3E-Network/mirror_query/internal/app/core/service"
	"github.com/R3E-Network/mirror_query/internal/app/metrics"
	"github.com/R3E-Network/mirror_query/internal/app/services/accounts"
	"github.com/R3E-Network/mirror_query/internal/app/services/allowances"
	"github.com/R3E-Network/mirror_query/internal/app/services/network"
	"github.com/R3E-Network/mirror_query/internal/app/services/transactions"
	"github.com/R3E-Network/mirror_query/internal/app/storage"
	"github.com/R3E-Network/mirror_query/internal/app/system"
	"github.com/R3E-Network/mirror_query/internal/config"
	"github.com/R3E-Network/mirror_query/internal/entityid"
	"github.com/R3E-Network/mirror_query/internal/filter"
	"github.com/R3E-Network/mirror_query/internal/query"
	"github.com/R3E-Network/mirror_query/internal/timerange"
	"github.com/R3E-Network/mirror_query/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Accounts     storage.AccountStore
	Allowances   storage.AllowanceStore
	Transactions storage.TransactionStore
	Network      storage.NetworkStore
}

// withDefaults fills nil stores with one shared in-memory store, allocated
// only when a store is missing.
func (s *Stores) withDefaults() {
	if s.Accounts != nil && s.Allowances != nil && s.Transactions != nil && s.Network != nil {
		return
	}
	mem := storage.NewMemory()
	if s.Accounts == nil {
		s.Accounts = mem
	}
	if s.Allowances == nil {
		s.Allowances = mem
	}
	if s.Transactions == nil {
		s.Transactions = mem
	}
	if s.Network == nil {
		s.Network = mem
	}
}

// Application ties the query core and the endpoint services together and
// manages the lifecycle of attached components.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Codec     *entityid.Codec
	Parser    *filter.Parser
	Resolver  *timerange.Resolver
	Paginator *query.Paginator

	Accounts     *accounts.Service
	Allowances   *allowances.Service
	Transactions *transactions.Service
	Network      *network.Service
}

// New builds a fully initialised application from cfg with the provided
// stores.
func New(cfg *config.Config, stores Stores, log *logger.Logger) (*Application, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = logger.NewDefault("app")
	}

	stores.withDefaults()

	cache, err := entityid.NewCache(cfg.Cache.EntityID.MaxSize)
	if err != nil {
		return nil, fmt.Errorf("create entity id cache: %w", err)
	}
	codec, err := entityid.NewCodec(entityid.Options{
		Shard: cfg.Common.Shard,
		Realm: cfg.Common.Realm,
		Cache: cache,
	}, log.Named("entityid"))
	if err != nil {
		return nil, fmt.Errorf("create entity id codec: %w", err)
	}

	parser := filter.NewParser(codec, filter.Options{
		MaxRepeatedQueryParameters: cfg.Query.MaxRepeatedQueryParameters,
		MaxLimit:                   cfg.Response.Limit.Max,
	}, log.Named("filter"))
	resolver := timerange.NewResolver(cfg.Query, log.Named("timerange"))
	paginator := query.NewPaginator(parser, cfg.Response, log.Named("pagination"))
	defaultLimit := cfg.Response.Limit.Default

	application := &Application{
		manager:   system.NewManager(),
		log:       log,
		Codec:     codec,
		Parser:    parser,
		Resolver:  resolver,
		Paginator: paginator,

		Accounts:     accounts.New(stores.Accounts, parser, paginator, defaultLimit, log.Named("accounts")),
		Allowances:   allowances.New(stores.Allowances, stores.Accounts, parser, paginator, defaultLimit, log.Named("allowances")),
		Transactions: transactions.New(stores.Transactions, stores.Accounts, parser, resolver, paginator, defaultLimit, log.Named("transactions")),
		Network:      network.New(stores.Network, parser, log.Named("network")),
	}

	for _, d := range application.Descriptors() {
		log.WithField("endpoint", d.Endpoint).
			WithField("params", d.Capabilities).
			Debug("registered service")
	}
	return application, nil
}

// Descriptors lists the endpoint services.
func (a *Application) Descriptors() []service.Descriptor {
	return []service.Descriptor{
		a.Accounts.Descriptor(),
		a.Allowances.Descriptor(),
		a.Transactions.Descriptor(),
		a.Network.Descriptor(),
	}
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(svc system.Service) error {
	return a.manager.Register(svc)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}

// MetricsServer serves the Prometheus registry.
type MetricsServer struct {
	addr   string
	server *http.Server
	log    *logger.Logger
}

// NewMetricsServer creates a metrics listener on addr.
func NewMetricsServer(addr string, log *logger.Logger) *MetricsServer {
	if log == nil {
		log = logger.NewDefault("metrics")
	}
	return &MetricsServer{addr: addr, log: log}
}

func (m *MetricsServer) Name() string { return "metrics" }

func (m *MetricsServer) Start(context.Context) error {
	listener, err := net.Listen("tcp", m.addr)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	m.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := m.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.log.WithError(err).Error("metrics server stopped")
		}
	}()
	m.log.WithField("addr", listener.Addr().String()).Info("serving metrics")
	return nil
}

func (m *MetricsServer) Stop(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}

// Closer adapts a close function into a lifecycle service.
type Closer struct {
	name  string
	close func() error
}

// NewCloser wraps close under name.
func NewCloser(name string, close func() error) Closer {
	return Closer{name: name, close: close}
}

func (c Closer) Name() string                { return c.name }
func (c Closer) Start(context.Context) error { return nil }
func (c Closer) Stop(context.Context) error  { return c.close() }
