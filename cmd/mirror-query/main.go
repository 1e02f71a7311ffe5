// Package main runs a single mirror node list query from the command line.
//
// Without a database DSN the query runs against the in-memory store and the
// compiled statement is printed instead of rows, which makes the command a
// convenient way to inspect how request parameters are compiled.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/R3E-Network/mirror_query/internal/app"
	"github.com/R3E-Network/mirror_query/internal/app/storage"
	"github.com/R3E-Network/mirror_query/internal/app/storage/postgres"
	"github.com/R3E-Network/mirror_query/internal/config"
	"github.com/R3E-Network/mirror_query/internal/entityid"
	svcerrors "github.com/R3E-Network/mirror_query/internal/errors"
	"github.com/R3E-Network/mirror_query/pkg/logger"
)

var endpoints = []string{"accounts", "allowances", "transactions", "supply", "entity"}

func main() {
	endpoint := flag.String("endpoint", "accounts", "Endpoint to query: "+strings.Join(endpoints, ", "))
	entity := flag.String("entity", "", "Entity id to decode, or the owner account for the allowances endpoint")
	rawQuery := flag.String("query", "", "Query string, e.g. account.id=gt:0.0.1000&limit=5")
	dsn := flag.String("dsn", "", "PostgreSQL DSN; overrides db.dsn from configuration")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address while the query runs")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *dsn != "" {
		cfg.DB.DSN = *dsn
	}
	appLog := logger.New(cfg.Logging.Logger())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		stores app.Stores
		memory *storage.Memory
		closer func() error
	)
	if cfg.DB.DSN != "" {
		store, err := postgres.Open(ctx, cfg.DB.DSN)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		stores = app.Stores{Accounts: store, Allowances: store, Transactions: store, Network: store}
		closer = store.Close
	} else {
		memory = storage.NewMemory()
		stores = app.Stores{Accounts: memory, Allowances: memory, Transactions: memory, Network: memory}
		appLog.Info("no database configured; printing compiled queries")
	}

	application, err := app.New(cfg, stores, appLog)
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}
	if closer != nil {
		if err := application.Attach(app.NewCloser("postgres", closer)); err != nil {
			log.Fatalf("Failed to attach database: %v", err)
		}
	}
	if *metricsAddr != "" {
		if err := application.Attach(app.NewMetricsServer(*metricsAddr, appLog.Named("metrics"))); err != nil {
			log.Fatalf("Failed to attach metrics server: %v", err)
		}
	}
	if err := application.Start(ctx); err != nil {
		log.Fatalf("Failed to start: %v", err)
	}

	result, runErr := run(ctx, application, *endpoint, *entity, *rawQuery)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := application.Stop(shutdownCtx); err != nil {
		appLog.WithError(err).Warn("shutdown failed")
	}

	if runErr != nil {
		reportError(runErr)
		os.Exit(1)
	}
	if memory != nil {
		if q, ok := memory.LastQuery(); ok {
			printJSON(map[string]any{
				"where":  q.SQL,
				"params": displayParams(q.Params),
				"order":  q.Order,
				"limit":  q.Limit,
			})
		}
	}
	if text, ok := result.(string); ok {
		fmt.Println(text)
		return
	}
	printJSON(result)
}

func run(ctx context.Context, application *app.Application, endpoint, entity, rawQuery string) (any, error) {
	u := &url.URL{Path: "/api/v1/" + endpoint, RawQuery: rawQuery}
	switch endpoint {
	case "accounts":
		return application.Accounts.List(ctx, u)
	case "allowances":
		if entity == "" {
			return nil, fmt.Errorf("-entity is required for allowances")
		}
		u.Path = "/api/v1/accounts/" + entity + "/allowances/crypto"
		return application.Allowances.List(ctx, entity, u)
	case "transactions":
		return application.Transactions.List(ctx, u)
	case "supply":
		u.Path = "/api/v1/network/supply"
		supply, err := application.Network.Supply(ctx, u)
		if err != nil {
			return nil, err
		}
		if text := supply.Text(); text != "" {
			return text, nil
		}
		return supply, nil
	case "entity":
		id, err := application.Codec.Parse(entityid.Text(entity))
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"id":          id.String(),
			"encoded_id":  id.EncodedValue(),
			"evm_address": id.ToEvmAddress(),
		}, nil
	}
	return nil, fmt.Errorf("unknown endpoint %q, expected one of %v", endpoint, endpoints)
}

func reportError(err error) {
	messages := []string{err.Error()}
	var serviceErr *svcerrors.ServiceError
	if errors.As(err, &serviceErr) {
		messages = serviceErr.Messages()
	}
	printJSON(map[string]any{"_status": map[string]any{"messages": messages}})
}

// displayParams renders range parameters as their literal.
func displayParams(params []any) []any {
	out := make([]any, len(params))
	for i, p := range params {
		if s, ok := p.(fmt.Stringer); ok {
			out[i] = s.String()
		} else {
			out[i] = p
		}
	}
	return out
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Printf("encode output: %v", err)
	}
}
