package storage

import (
	"context"

	"github.com/R3E-Network/mirror_query/internal/app/domain/entity"
	"github.com/R3E-Network/mirror_query/internal/entityid"
	"github.com/R3E-Network/mirror_query/internal/query"
)

// The list methods take a compiled condition. q.SQL holds a where clause with
// positional parameters $1..$len(q.Params), or is empty; the store appends
// its own ordering and binds q.Limit last.

// AccountStore reads account and contract entities.
type AccountStore interface {
	ListAccounts(ctx context.Context, q query.Query) ([]entity.Account, error)
	// GetEntityIDByEvmAddress resolves an opaque EVM address to the encoded
	// id of the entity that owns it.
	GetEntityIDByEvmAddress(ctx context.Context, address []byte) (int64, error)
}

// AllowanceStore reads crypto allowances.
type AllowanceStore interface {
	ListCryptoAllowances(ctx context.Context, q query.Query) ([]entity.CryptoAllowance, error)
}

// TransactionStore reads transactions.
type TransactionStore interface {
	ListTransactions(ctx context.Context, q query.Query) ([]entity.Transaction, error)
}

// NetworkStore reads network wide aggregates.
type NetworkStore interface {
	GetUnreleasedSupply(ctx context.Context, accounts []entityid.Range) (entity.NetworkSupply, error)
}
