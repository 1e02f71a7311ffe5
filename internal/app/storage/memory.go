package storage

import (
	"context"
	"encoding/hex"
	"sync"

	"github.com/R3E-Network/mirror_query/internal/app/domain/entity"
	"github.com/R3E-Network/mirror_query/internal/entityid"
	svcerrors "github.com/R3E-Network/mirror_query/internal/errors"
	"github.com/R3E-Network/mirror_query/internal/query"
)

// Memory is a thread-safe in-memory store implementing the storage interfaces
// defined in this package. It does not evaluate compiled conditions: list
// calls return the seeded rows capped at the query limit and record the
// query for inspection. It is intended for tests and dry runs.
type Memory struct {
	mu           sync.RWMutex
	accounts     []entity.Account
	allowances   []entity.CryptoAllowance
	transactions []entity.Transaction
	evmAddresses map[string]int64
	supply       entity.NetworkSupply
	queries      []query.Query
}

var (
	_ AccountStore     = (*Memory)(nil)
	_ AllowanceStore   = (*Memory)(nil)
	_ TransactionStore = (*Memory)(nil)
	_ NetworkStore     = (*Memory)(nil)
)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{evmAddresses: make(map[string]int64)}
}

// SeedAccounts appends account rows.
func (m *Memory) SeedAccounts(accounts ...entity.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts = append(m.accounts, accounts...)
	for _, a := range accounts {
		if len(a.EvmAddress) > 0 {
			m.evmAddresses[hex.EncodeToString(a.EvmAddress)] = a.ID
		}
	}
}

// SeedAllowances appends crypto allowance rows.
func (m *Memory) SeedAllowances(allowances ...entity.CryptoAllowance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allowances = append(m.allowances, allowances...)
}

// SeedTransactions appends transaction rows.
func (m *Memory) SeedTransactions(transactions ...entity.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions = append(m.transactions, transactions...)
}

// SetSupply sets the unreleased supply aggregate.
func (m *Memory) SetSupply(supply entity.NetworkSupply) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.supply = supply
}

// Queries returns the queries received so far, oldest first.
func (m *Memory) Queries() []query.Query {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]query.Query(nil), m.queries...)
}

// LastQuery returns the most recent query.
func (m *Memory) LastQuery() (query.Query, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.queries) == 0 {
		return query.Query{}, false
	}
	return m.queries[len(m.queries)-1], true
}

func (m *Memory) record(q query.Query) {
	q.Params = append([]any(nil), q.Params...)
	m.queries = append(m.queries, q)
}

// AccountStore implementation -------------------------------------------------

func (m *Memory) ListAccounts(_ context.Context, q query.Query) ([]entity.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(q)
	return page(m.accounts, q.Limit), nil
}

func (m *Memory) GetEntityIDByEvmAddress(_ context.Context, address []byte) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.evmAddresses[hex.EncodeToString(address)]
	if !ok {
		return 0, svcerrors.NotFound("entity")
	}
	return id, nil
}

// AllowanceStore implementation -----------------------------------------------

func (m *Memory) ListCryptoAllowances(_ context.Context, q query.Query) ([]entity.CryptoAllowance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(q)
	return page(m.allowances, q.Limit), nil
}

// TransactionStore implementation ---------------------------------------------

func (m *Memory) ListTransactions(_ context.Context, q query.Query) ([]entity.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(q)
	return page(m.transactions, q.Limit), nil
}

// NetworkStore implementation -------------------------------------------------

func (m *Memory) GetUnreleasedSupply(_ context.Context, _ []entityid.Range) (entity.NetworkSupply, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.supply, nil
}

func page[T any](rows []T, limit int64) []T {
	n := int64(len(rows))
	if limit >= 0 && limit < n {
		n = limit
	}
	return append([]T(nil), rows[:n]...)
}
