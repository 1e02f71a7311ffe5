package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/R3E-Network/mirror_query/internal/entityid"
)

// ed25519DERPrefix precedes a raw ed25519 key in its DER encoding.
const ed25519DERPrefix = "302a300506032b6570032100"

// Format replaces the raw value of f with its canonical typed form:
//   - entity ids become encoded int64s (opaque EVM aliases stay *entityid.EntityID)
//   - booleans become bool and limits are clamped to the configured maximum
//   - timestamps become nanoseconds since epoch
//   - public keys are lower-cased with any DER prefix removed
func (p *Parser) Format(f *Filter) error {
	raw := f.Raw
	switch f.Key {
	case KeyAccountID, KeyScheduleID, KeySpenderID:
		return p.formatEntityID(f, entityid.WithParamName(string(f.Key)))
	case KeyFileID:
		return p.formatEntityID(f, entityid.WithParamName(string(f.Key)), entityid.WithoutEvmAddress())
	case KeyTokenID:
		return p.formatEntityID(f, entityid.WithParamName(string(f.Key)), entityid.WithEvmAddressType(entityid.EvmAddressNumAlias))
	case KeyFrom:
		if entityid.IsValidEvmAddress(raw, entityid.EvmAddressAny) {
			// resolved by the caller
			return nil
		}
		return p.formatEntityID(f, entityid.WithParamName(string(f.Key)), entityid.WithEvmAddressType(entityid.EvmAddressNoShardRealm))
	case KeyAccountPublicKey, KeyEntityPublicKey:
		f.Value = ParsePublicKey(raw)
	case KeyBlockHash:
		f.Value = strings.TrimPrefix(raw, "0x")
	case KeyBlockNumber:
		v, err := parseBlockNumber(raw)
		if err != nil {
			return p.formatError(f, err)
		}
		f.Value = v
	case KeyAccountBalance, KeyNodeID, KeyNonce, KeySequenceNumber, KeySerialNumber, KeyTransactionIndex:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return p.formatError(f, err)
		}
		f.Value = v
	case KeyIndex:
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			f.Value = v
		} else if fv, err := strconv.ParseFloat(raw, 64); err == nil {
			f.Value = fv
		} else {
			return p.formatError(f, err)
		}
	case KeyBalance, KeyInternal, KeyScheduled, KeyTransactions:
		f.Value = strings.EqualFold(raw, "true")
	case KeyLimit:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return p.formatError(f, err)
		}
		if v > p.opts.MaxLimit {
			v = p.opts.MaxLimit
		}
		f.Value = v
	case KeyTimestamp:
		v, err := ParseTimestampParam(raw)
		if err != nil {
			return p.formatError(f, err)
		}
		f.Value = v
	case KeyTokenType:
		f.Value = strings.ToUpper(raw)
	case KeyOrder, KeyCreditType, KeyResult, KeyQ, KeyEncoding:
		f.Value = strings.ToLower(raw)
	case KeyTransactionType:
		id, ok := TransactionTypeID(raw)
		if !ok {
			return p.formatError(f, fmt.Errorf("unknown transaction type %q", raw))
		}
		f.Value = id
	}
	return nil
}

func (p *Parser) formatEntityID(f *Filter, opts ...entityid.ParseOption) error {
	id, err := p.codec.Parse(entityid.Text(f.Raw), opts...)
	if err != nil {
		return err
	}
	if encoded, ok := id.EncodedID(); ok {
		f.Value = encoded
	} else {
		f.Value = id
	}
	return nil
}

// ParsePublicKey strips a 0x prefix, lower-cases and unwraps a DER encoded
// ed25519 key.
func ParsePublicKey(key string) string {
	key = strings.ToLower(strings.Replace(key, "0x", "", 1))
	if len(key) == len(ed25519DERPrefix)+64 && strings.HasPrefix(key, ed25519DERPrefix) {
		return key[len(ed25519DERPrefix):]
	}
	return key
}

// ParseTimestampParam converts seconds or seconds.nanos to nanoseconds since
// epoch. Fractional digits are right padded to nine.
func ParseTimestampParam(value string) (int64, error) {
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	parts := strings.Split(value, ".")
	if len(parts) > 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	nanos := "000000000"
	if len(parts) == 2 {
		if len(parts[1]) > 9 {
			return 0, fmt.Errorf("invalid timestamp %q", value)
		}
		nanos = (parts[1] + nanos)[:9]
	}
	ns, err := strconv.ParseInt(parts[0]+nanos, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", value, err)
	}
	if ns < 0 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return ns, nil
}

func parseBlockNumber(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") {
		return strconv.ParseInt(value[2:], 16, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}
