package entityid

import "strings"

// ContractIDParts is a contract id split into the columns it is matched on.
// Exactly one of Num and Create2EvmAddress is set.
type ContractIDParts struct {
	Shard             *string
	Realm             *string
	Num               *string
	Create2EvmAddress *string
}

// ComputeContractIDParts splits shard.realm.num or [shard.realm.](0x)evm
// contract id values. Input is assumed to have been validated.
func ComputeContractIDParts(value string) ContractIDParts {
	var parts ContractIDParts
	segments := strings.Split(value, ".")
	if len(segments) == 3 {
		parts.Shard = &segments[0]
		parts.Realm = &segments[1]
	}

	last := segments[len(segments)-1]
	if strings.HasPrefix(last, "0x") || len(last) == evmAddressHexLength {
		addr := strings.TrimPrefix(last, "0x")
		parts.Create2EvmAddress = &addr
		return parts
	}
	parts.Num = &last
	return parts
}
