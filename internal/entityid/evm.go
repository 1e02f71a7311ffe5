package entityid

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// EvmAddressType restricts which EVM address spellings a parse accepts.
type EvmAddressType int

const (
	// EvmAddressAny accepts a 0x prefix or a shard.realm prefix.
	EvmAddressAny EvmAddressType = iota
	// EvmAddressNoShardRealm accepts a bare or 0x prefixed address only.
	EvmAddressNoShardRealm
	// EvmAddressNumAlias accepts what Any accepts but only long-zero addresses.
	EvmAddressNumAlias
	// EvmAddressOptionalShardRealm accepts a shard.realm prefix but no 0x.
	EvmAddressOptionalShardRealm
)

func (t EvmAddressType) String() string {
	switch t {
	case EvmAddressNoShardRealm:
		return "no_shard_realm"
	case EvmAddressNumAlias:
		return "num_alias"
	case EvmAddressOptionalShardRealm:
		return "optional_shard_realm"
	default:
		return "any"
	}
}

const (
	evmAddressHexLength = 2 * common.AddressLength

	// long-zero layout: 4 byte shard, 8 byte realm, 8 byte num
	longZeroRealmOffset = 4
	longZeroNumOffset   = longZeroRealmOffset + 8
)

var (
	evmBareRegex       = regexp.MustCompile(`^(0x)?[0-9A-Fa-f]{40}$`)
	evmShardRealmRegex = regexp.MustCompile(`^(\d{1,10}\.){1,2}[0-9A-Fa-f]{40}$`)
	evmOptionalSRRegex = regexp.MustCompile(`^(\d{1,10}\.){0,2}[0-9A-Fa-f]{40}$`)
	hexStringRegex     = regexp.MustCompile(`^[0-9A-Fa-f]*$`)
)

// IsValidEvmAddress reports whether s is an EVM address spelling allowed by typ.
// NumAlias additionally requires the address to be long-zero.
func IsValidEvmAddress(s string, typ EvmAddressType) bool {
	switch typ {
	case EvmAddressNoShardRealm:
		return evmBareRegex.MatchString(s)
	case EvmAddressOptionalShardRealm:
		return evmOptionalSRRegex.MatchString(s)
	case EvmAddressNumAlias:
		if !evmBareRegex.MatchString(s) && !evmShardRealmRegex.MatchString(s) {
			return false
		}
		addr, err := DecodeEvmAddress(s[len(s)-evmAddressHexLength:])
		return err == nil && IsLongZero(addr)
	default:
		return evmBareRegex.MatchString(s) || evmShardRealmRegex.MatchString(s)
	}
}

// DecodeEvmAddress decodes exactly 40 hex characters with an optional 0x prefix.
func DecodeEvmAddress(s string) (common.Address, error) {
	raw := strings.TrimPrefix(s, "0x")
	if len(raw) != evmAddressHexLength || !hexStringRegex.MatchString(raw) {
		return common.Address{}, fmt.Errorf("invalid evm address %q", s)
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid evm address %q: %w", s, err)
	}
	return common.BytesToAddress(b), nil
}

// AddressParts splits an address into its 4 byte shard, 8 byte realm and
// 8 byte num fields.
func AddressParts(addr common.Address) (shard, realm, num uint64) {
	shard = uint64(binary.BigEndian.Uint32(addr[:longZeroRealmOffset]))
	realm = binary.BigEndian.Uint64(addr[longZeroRealmOffset:longZeroNumOffset])
	num = binary.BigEndian.Uint64(addr[longZeroNumOffset:])
	return shard, realm, num
}

// IsLongZero reports whether addr is a num alias, i.e. its fields fit the
// shard, realm and num bounds.
func IsLongZero(addr common.Address) bool {
	shard, realm, num := AddressParts(addr)
	return shard <= MaxShard && realm <= MaxRealm && num <= MaxNum
}

// FromEvmAddress maps a long-zero address to its numeric identifier and
// keeps any other address opaque.
func FromEvmAddress(addr common.Address) *EntityID {
	if !IsLongZero(addr) {
		return OfEvmAddress(addr)
	}
	shard, realm, num := AddressParts(addr)
	return Of(int64(shard), int64(realm), int64(num))
}

// LongZeroAddress lays out shard, realm and num as a 20 byte address.
func LongZeroAddress(shard, realm, num int64) common.Address {
	var addr common.Address
	binary.BigEndian.PutUint32(addr[:longZeroRealmOffset], uint32(shard))
	binary.BigEndian.PutUint64(addr[longZeroRealmOffset:longZeroNumOffset], uint64(realm))
	binary.BigEndian.PutUint64(addr[longZeroNumOffset:], uint64(num))
	return addr
}

// ToEvmAddress renders the 0x prefixed address. The null identifier and
// 0.0.0 render as the empty string.
func (e *EntityID) ToEvmAddress() string {
	if e.evmAddress != nil {
		return "0x" + hex.EncodeToString(e.evmAddress[:])
	}
	if e.IsNull() || e.isZero() {
		return ""
	}
	addr := LongZeroAddress(e.shard, e.realm, e.num)
	return "0x" + hex.EncodeToString(addr[:])
}

// Create2Address derives the opaque identifier of a contract deployed with
// CREATE2 by deployer.
func Create2Address(deployer *EntityID, salt [32]byte, initCode []byte) (*EntityID, error) {
	from, err := deployerAddress(deployer)
	if err != nil {
		return nil, err
	}
	addr := crypto.CreateAddress2(from, salt, crypto.Keccak256(initCode))
	if deployer.HasShardRealm() {
		return OfShardRealmEvmAddress(deployer.Shard(), deployer.Realm(), addr), nil
	}
	return OfEvmAddress(addr), nil
}

func deployerAddress(deployer *EntityID) (common.Address, error) {
	if deployer == nil || deployer.IsNull() {
		return common.Address{}, fmt.Errorf("create2 deployer is required")
	}
	if addr, ok := deployer.EvmAddress(); ok {
		return addr, nil
	}
	if !deployer.inBounds() {
		return common.Address{}, fmt.Errorf("create2 deployer %s out of range", deployer)
	}
	return LongZeroAddress(deployer.shard, deployer.realm, deployer.num), nil
}
