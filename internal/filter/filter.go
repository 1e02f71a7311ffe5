// Package filter turns request query parameters into validated, typed filters.
package filter

import (
	"sort"
	"strings"
)

// Key is a query parameter name.
type Key string

const (
	KeyAccountBalance   Key = "account.balance"
	KeyAccountID        Key = "account.id"
	KeyAccountPublicKey Key = "account.publickey"
	KeyBalance          Key = "balance"
	KeyBlockHash        Key = "block.hash"
	KeyBlockNumber      Key = "block.number"
	KeyContractID       Key = "contract.id"
	KeyCreditType       Key = "type"
	KeyEncoding         Key = "encoding"
	KeyEntityPublicKey  Key = "publickey"
	KeyFileID           Key = "file.id"
	KeyFrom             Key = "from"
	KeyIndex            Key = "index"
	KeyInternal         Key = "internal"
	KeyLimit            Key = "limit"
	KeyNodeID           Key = "node.id"
	KeyNonce            Key = "nonce"
	KeyOrder            Key = "order"
	KeyQ                Key = "q"
	KeyResult           Key = "result"
	KeyScheduled        Key = "scheduled"
	KeyScheduleID       Key = "schedule.id"
	KeySequenceNumber   Key = "sequencenumber"
	KeySerialNumber     Key = "serialnumber"
	KeySlot             Key = "slot"
	KeySpenderID        Key = "spender.id"
	KeyTimestamp        Key = "timestamp"
	KeyTokenID          Key = "token.id"
	KeyTokenType        Key = "token.type"
	KeyTopic0           Key = "topic0"
	KeyTopic1           Key = "topic1"
	KeyTopic2           Key = "topic2"
	KeyTopic3           Key = "topic3"
	KeyTransactionHash  Key = "transaction.hash"
	KeyTransactionIndex Key = "transaction.index"
	KeyTransactionType  Key = "transactiontype"
	KeyTransactions     Key = "transactions"
)

// Operator is a comparison operator as spelled in a query parameter.
type Operator string

const (
	OpEq  Operator = "eq"
	OpNe  Operator = "ne"
	OpLt  Operator = "lt"
	OpLte Operator = "lte"
	OpGt  Operator = "gt"
	OpGte Operator = "gte"
)

var operatorSQL = map[Operator]string{
	OpLt:  " < ",
	OpLte: " <= ",
	OpGt:  " > ",
	OpGte: " >= ",
	OpEq:  " = ",
	OpNe:  " != ",
}

// Valid reports whether o is one of the six known operators.
func (o Operator) Valid() bool {
	_, ok := operatorSQL[o]
	return ok
}

// SQL returns the space padded SQL comparison for o.
func (o Operator) SQL() string {
	return operatorSQL[o]
}

// IsLower reports whether o bounds a range from below.
func (o Operator) IsLower() bool { return o == OpGt || o == OpGte }

// IsUpper reports whether o bounds a range from above.
func (o Operator) IsUpper() bool { return o == OpLt || o == OpLte }

// Order is a result sort direction.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// SQL returns the upper-case keyword.
func (o Order) SQL() string {
	return strings.ToUpper(string(o))
}

// Filter is one key/operator/value condition. Value holds the raw string until
// the filter is formatted, and the typed value afterwards.
type Filter struct {
	Key      Key
	Operator Operator
	Value    any
	// Raw is the value as it appeared in the request.
	Raw string
}

// New splits op:value, defaulting to eq when there is no operator. With more
// than one colon the last two segments win.
func New(key Key, param string) *Filter {
	parts := strings.Split(param, ":")
	value := parts[len(parts)-1]
	op := OpEq
	if len(parts) > 1 {
		op = Operator(parts[len(parts)-2])
	}
	return &Filter{Key: key, Operator: op, Value: value, Raw: value}
}

// Int64 returns the typed value as an int64.
func (f *Filter) Int64() (int64, bool) {
	v, ok := f.Value.(int64)
	return v, ok
}

// KeySet is the set of parameters an endpoint accepts.
type KeySet map[Key]struct{}

// NewKeySet builds a KeySet.
func NewKeySet(keys ...Key) KeySet {
	set := make(KeySet, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

func (s KeySet) Has(key Key) bool {
	_, ok := s[key]
	return ok
}

// Keys returns the members in sorted order.
func (s KeySet) Keys() []Key {
	keys := make([]Key, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// ByKey returns the filters for key, preserving order.
func ByKey(filters []*Filter, key Key) []*Filter {
	var out []*Filter
	for _, f := range filters {
		if f.Key == key {
			out = append(out, f)
		}
	}
	return out
}
