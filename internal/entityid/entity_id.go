// Package entityid parses, encodes and displays ledger entity identifiers.
//
// An identifier is the triple shard.realm.num. It travels in three shapes:
// dotted text, a packed signed 64-bit integer and a 20-byte EVM address.
// The packed layout is
//
//	| shard 10 bits | realm 16 bits | num 38 bits |
//
// stored in an int64 with two's complement wraparound, so shards above 511
// encode to negative values.
package entityid

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const (
	shardBits = 10
	realmBits = 16
	numBits   = 38

	MaxShard = 1<<shardBits - 1
	MaxRealm = 1<<realmBits - 1
	MaxNum   = 1<<numBits - 1

	// maxSafeInteger bounds values representable exactly as JSON numbers.
	maxSafeInteger = 1<<53 - 1
)

// EntityID is an immutable identifier. Use it through *EntityID.
type EntityID struct {
	shard      int64
	realm      int64
	num        int64
	hasPrefix  bool
	hasNum     bool
	evmAddress *common.Address
}

var null = &EntityID{}

// Of builds a numeric identifier. Arguments are not range checked.
func Of(shard, realm, num int64) *EntityID {
	return &EntityID{shard: shard, realm: realm, num: num, hasPrefix: true, hasNum: true}
}

// OfEvmAddress builds an identifier known only by its opaque EVM address.
func OfEvmAddress(addr common.Address) *EntityID {
	return &EntityID{evmAddress: &addr}
}

// OfShardRealmEvmAddress builds an opaque EVM address scoped to a shard and realm.
func OfShardRealmEvmAddress(shard, realm int64, addr common.Address) *EntityID {
	return &EntityID{shard: shard, realm: realm, hasPrefix: true, evmAddress: &addr}
}

// Null returns the null identifier.
func Null() *EntityID {
	return null
}

// Decode unpacks an encoded identifier.
func Decode(encoded int64) *EntityID {
	u := uint64(encoded)
	return Of(int64(u>>(realmBits+numBits)), int64(u>>numBits&MaxRealm), int64(u&MaxNum))
}

// FormatEncoded renders an encoded identifier as shard.realm.num, including
// 0.0.0 which String elides.
func FormatEncoded(encoded int64) string {
	id := Decode(encoded)
	return fmt.Sprintf("%d.%d.%d", id.shard, id.realm, id.num)
}

// Encode packs shard, realm and num. Callers must respect the bounds.
func Encode(shard, realm, num int64) int64 {
	return int64(uint64(shard)<<(realmBits+numBits) | uint64(realm)<<numBits | uint64(num))
}

func (e *EntityID) Shard() int64 { return e.shard }

func (e *EntityID) Realm() int64 { return e.realm }

// Num returns the entity number, false when the identifier is null or an
// opaque EVM address.
func (e *EntityID) Num() (int64, bool) {
	return e.num, e.hasNum
}

// EvmAddress returns the opaque EVM address, if any.
func (e *EntityID) EvmAddress() (common.Address, bool) {
	if e.evmAddress == nil {
		return common.Address{}, false
	}
	return *e.evmAddress, true
}

// HasShardRealm reports whether shard and realm are known.
func (e *EntityID) HasShardRealm() bool {
	return e.hasPrefix
}

// IsNull reports whether this is the null identifier.
func (e *EntityID) IsNull() bool {
	return !e.hasPrefix && !e.hasNum && e.evmAddress == nil
}

func (e *EntityID) isZero() bool {
	return e.hasNum && e.shard == 0 && e.realm == 0 && e.num == 0
}

func (e *EntityID) inBounds() bool {
	return e.shard >= 0 && e.shard <= MaxShard &&
		e.realm >= 0 && e.realm <= MaxRealm &&
		e.num >= 0 && e.num <= MaxNum
}

// EncodedID returns the packed form. It is only defined for numeric
// identifiers within bounds.
func (e *EntityID) EncodedID() (int64, bool) {
	if !e.hasNum || !e.inBounds() {
		return 0, false
	}
	return Encode(e.shard, e.realm, e.num), true
}

// EncodedValue returns the packed form as an int64 when it is a safe JSON
// integer, a *big.Int otherwise and nil when undefined.
func (e *EntityID) EncodedValue() any {
	encoded, ok := e.EncodedID()
	if !ok {
		return nil
	}
	if encoded >= -maxSafeInteger && encoded <= maxSafeInteger {
		return encoded
	}
	return big.NewInt(encoded)
}

// Equal compares identity, not display form.
func (e *EntityID) Equal(other *EntityID) bool {
	if e == nil || other == nil {
		return e == other
	}
	if e.hasPrefix != other.hasPrefix || e.hasNum != other.hasNum {
		return false
	}
	if e.hasPrefix && (e.shard != other.shard || e.realm != other.realm) {
		return false
	}
	if e.hasNum && e.num != other.num {
		return false
	}
	if (e.evmAddress == nil) != (other.evmAddress == nil) {
		return false
	}
	return e.evmAddress == nil || *e.evmAddress == *other.evmAddress
}

// String renders the display form. The null identifier and 0.0.0 render as
// the empty string.
func (e *EntityID) String() string {
	if e.IsNull() || e.isZero() {
		return ""
	}
	if e.evmAddress != nil {
		hexAddr := hex.EncodeToString(e.evmAddress[:])
		if !e.hasPrefix {
			return hexAddr
		}
		return fmt.Sprintf("%d.%d.%s", e.shard, e.realm, hexAddr)
	}
	return fmt.Sprintf("%d.%d.%d", e.shard, e.realm, e.num)
}

// StringPtr is String with nil in place of the empty form.
func (e *EntityID) StringPtr() *string {
	s := e.String()
	if s == "" {
		return nil
	}
	return &s
}

// MarshalJSON emits the display form, or null.
func (e *EntityID) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.StringPtr())
}
