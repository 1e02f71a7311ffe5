package filter

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/R3E-Network/mirror_query/internal/entityid"
)

var (
	positiveLongRegex     = regexp.MustCompile(`^\d{1,19}$`)
	nonNegativeInt32Regex = regexp.MustCompile(`^\d{1,10}$`)
	booleanRegex          = regexp.MustCompile(`(?i)^(true|false)$`)
	timestampSecondsRegex = regexp.MustCompile(`^\d{1,10}$`)
	timestampNanosRegex   = regexp.MustCompile(`^\d{1,10}\.\d{1,9}$`)
	publicKeyRegex        = regexp.MustCompile(`^(0x)?([0-9a-fA-F]{64}|[0-9a-fA-F]{66}|[0-9a-fA-F]{88})$`)
	topicRegex            = regexp.MustCompile(`^(0x)?[0-9A-Fa-f]{1,64}$`)
	slotRegex             = regexp.MustCompile(`^(0x)?[0-9A-Fa-f]{1,64}$`)
	ethOrLedgerHashRegex  = regexp.MustCompile(`^(0x)?([0-9A-Fa-f]{64}|[0-9A-Fa-f]{96})$`)
	utf8EncodingRegex     = regexp.MustCompile(`^(utf-?8)$`)
)

var (
	creditTypes       = []string{"credit", "debit"}
	orderValues       = []string{string(OrderAsc), string(OrderDesc)}
	networkSupplyQ    = []string{"totalcoins", "circulating"}
	transactionResult = []string{"success", "fail"}
	tokenTypes        = []string{"all", "fungible_common", "non_fungible_unique"}
)

// Validator decides whether a single key/operator/value triple is acceptable.
type Validator func(key Key, op Operator, value string) bool

// CheckFilter is the default Validator. Every accepted key must appear here;
// anything else is rejected.
func (p *Parser) CheckFilter(key Key, op Operator, value string) bool {
	if !op.Valid() {
		return false
	}

	switch key {
	case KeyAccountBalance, KeyNodeID:
		return isPositiveLong(value, true)
	case KeyAccountID, KeyScheduleID, KeySpenderID:
		return p.codec.IsValid(entityid.Text(value), true, entityid.EvmAddressAny)
	case KeyAccountPublicKey, KeyEntityPublicKey:
		return publicKeyRegex.MatchString(value)
	case KeyBalance, KeyInternal, KeyScheduled, KeyTransactions:
		return op == OpEq && booleanRegex.MatchString(value)
	case KeyBlockHash, KeyTransactionHash:
		return op == OpEq && ethOrLedgerHashRegex.MatchString(value)
	case KeyBlockNumber:
		return op != OpNe && (isPositiveLong(value, true) || isHexPositiveInt(value))
	case KeyContractID:
		if entityid.IsValidEvmAddress(value, entityid.EvmAddressOptionalShardRealm) {
			return op == OpEq
		}
		return p.codec.IsValid(entityid.Text(value), false, entityid.EvmAddressAny)
	case KeyCreditType:
		return containsFold(creditTypes, value)
	case KeyEncoding:
		lower := strings.ToLower(value)
		return lower == "base64" || utf8EncodingRegex.MatchString(lower)
	case KeyFileID:
		return op == OpEq && p.system.IsValidAddressBookFileID(p.codec, value)
	case KeyFrom:
		return p.codec.IsValid(entityid.Text(value), true, entityid.EvmAddressNoShardRealm)
	case KeyIndex:
		f, err := strconv.ParseFloat(value, 64)
		return err == nil && !math.IsInf(f, 0) && f >= 0
	case KeyLimit, KeySequenceNumber, KeySerialNumber:
		return isPositiveLong(value, false)
	case KeyNonce:
		return op == OpEq && isNonNegativeInt32(value)
	case KeyOrder:
		return containsFold(orderValues, value)
	case KeyQ:
		return containsFold(networkSupplyQ, value)
	case KeyResult:
		return containsFold(transactionResult, value)
	case KeySlot:
		return op != OpNe && slotRegex.MatchString(value)
	case KeyTimestamp:
		return IsValidTimestampParam(value)
	case KeyTokenID:
		return p.codec.IsValid(entityid.Text(value), true, entityid.EvmAddressNumAlias)
	case KeyTokenType:
		return containsFold(tokenTypes, value)
	case KeyTopic0, KeyTopic1, KeyTopic2, KeyTopic3:
		return op == OpEq && topicRegex.MatchString(value)
	case KeyTransactionIndex:
		return op == OpEq && isPositiveLong(value, true)
	case KeyTransactionType:
		_, ok := TransactionTypeID(value)
		return ok
	}
	return false
}

// IsValidTimestampParam accepts seconds or seconds.nanos with up to nine
// fractional digits whose nanosecond value fits in an int64.
func IsValidTimestampParam(value string) bool {
	if !timestampSecondsRegex.MatchString(value) && !timestampNanosRegex.MatchString(value) {
		return false
	}
	_, err := ParseTimestampParam(value)
	return err == nil
}

func isPositiveLong(value string, allowZero bool) bool {
	if !positiveLongRegex.MatchString(value) {
		return false
	}
	v, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return false
	}
	if allowZero {
		return v >= 0
	}
	return v >= 1
}

func isHexPositiveInt(value string) bool {
	if !strings.HasPrefix(value, "0x") {
		return false
	}
	v, err := strconv.ParseInt(value[2:], 16, 64)
	return err == nil && v >= 0
}

func isNonNegativeInt32(value string) bool {
	if !nonNegativeInt32Regex.MatchString(value) {
		return false
	}
	v, err := strconv.ParseInt(value, 10, 64)
	return err == nil && v <= math.MaxInt32
}

func containsFold(values []string, value string) bool {
	lower := strings.ToLower(value)
	for _, v := range values {
		if v == lower {
			return true
		}
	}
	return false
}
