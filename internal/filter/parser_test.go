package filter

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/mirror_query/internal/entityid"
	svcerrors "github.com/R3E-Network/mirror_query/internal/errors"
	"github.com/R3E-Network/mirror_query/pkg/logger"
)

func newTestParser(t *testing.T, opts Options) *Parser {
	t.Helper()
	log := logger.New(logger.LoggingConfig{Output: "discard"})
	codec, err := entityid.NewCodec(entityid.Options{}, log)
	require.NoError(t, err)
	return NewParser(codec, opts, log)
}

func TestNew(t *testing.T) {
	tests := []struct {
		param string
		op    Operator
		value string
	}{
		{"gt:5", OpGt, "5"},
		{"5", OpEq, "5"},
		{"lte:0.0.2", OpLte, "0.0.2"},
		{"a:b:c", Operator("b"), "c"},
		{"", OpEq, ""},
	}
	for _, tt := range tests {
		f := New(KeyAccountID, tt.param)
		if f.Operator != tt.op || f.Value != tt.value || f.Raw != tt.value {
			t.Fatalf("New(%q) = %+v, want op %s value %s", tt.param, f, tt.op, tt.value)
		}
	}
}

func TestBuild(t *testing.T) {
	parser := newTestParser(t, Options{MaxRepeatedQueryParameters: 2})

	query := url.Values{
		"limit":      {"5"},
		"account.id": {"gt:1", "lt:5"},
		"timestamp":  {"1", "2", "3"},
	}
	filters, badParams := parser.Build(query)

	require.Len(t, filters, 3)
	assert.Equal(t, KeyAccountID, filters[0].Key)
	assert.Equal(t, OpGt, filters[0].Operator)
	assert.Equal(t, KeyAccountID, filters[1].Key)
	assert.Equal(t, OpLt, filters[1].Operator)
	assert.Equal(t, KeyLimit, filters[2].Key)

	require.Len(t, badParams, 1)
	assert.Equal(t, "timestamp", badParams[0].Key)
	assert.Equal(t, svcerrors.ParamCountExceedsMax, badParams[0].Code)
	assert.Equal(t, 3, badParams[0].Count)
	assert.Equal(t, 2, badParams[0].Max)
}

func TestCheckFilter(t *testing.T) {
	parser := newTestParser(t, Options{})
	pk := strings.Repeat("ab", 32)

	tests := []struct {
		key      Key
		op       Operator
		value    string
		expected bool
	}{
		{KeyAccountBalance, OpGte, "0", true},
		{KeyAccountBalance, OpGte, "-1", false},
		{KeyAccountID, OpEq, "0.0.2", true},
		{KeyAccountID, OpLt, "0.0.x", false},
		{KeyAccountID, "foo", "0.0.2", false},
		{KeyAccountPublicKey, OpEq, pk, true},
		{KeyAccountPublicKey, OpEq, "0x" + pk, true},
		{KeyAccountPublicKey, OpEq, pk[:62], false},
		{KeyBalance, OpEq, "TRUE", true},
		{KeyBalance, OpNe, "true", false},
		{KeyBalance, OpEq, "yes", false},
		{KeyBlockHash, OpEq, strings.Repeat("a", 96), true},
		{KeyBlockHash, OpGt, strings.Repeat("a", 64), false},
		{KeyBlockNumber, OpGte, "0x1f", true},
		{KeyBlockNumber, OpLt, "10", true},
		{KeyBlockNumber, OpNe, "10", false},
		{KeyContractID, OpEq, "0.0." + strings.Repeat("1", 40), true},
		{KeyContractID, OpGt, strings.Repeat("1", 40), false},
		{KeyContractID, OpGt, "0.0.1001", true},
		{KeyCreditType, OpEq, "Credit", true},
		{KeyCreditType, OpEq, "both", false},
		{KeyEncoding, OpEq, "UTF-8", true},
		{KeyEncoding, OpEq, "base64", true},
		{KeyEncoding, OpEq, "hex", false},
		{KeyFileID, OpEq, "0.0.102", true},
		{KeyFileID, OpEq, "0.0.112", false},
		{KeyFileID, OpGt, "0.0.101", false},
		{KeyFrom, OpEq, "0x0000000000000000000000000000000000000001", true},
		{KeyFrom, OpEq, "0.0.0000000000000000000000000000000000000001", false},
		{KeyIndex, OpGte, "1.5", true},
		{KeyIndex, OpGte, "-1", false},
		{KeyLimit, OpEq, "0", false},
		{KeyLimit, OpEq, "1", true},
		{KeyNonce, OpEq, "2147483647", true},
		{KeyNonce, OpEq, "2147483648", false},
		{KeyNonce, OpGt, "1", false},
		{KeyOrder, OpEq, "ASC", true},
		{KeyOrder, OpEq, "up", false},
		{KeyQ, OpEq, "totalcoins", true},
		{KeyResult, OpEq, "fail", true},
		{KeySlot, OpEq, "0x01", true},
		{KeySlot, OpNe, "0x01", false},
		{KeyTimestamp, OpGt, "1234567890", true},
		{KeyTimestamp, OpGt, "1234567890.000000001", true},
		{KeyTimestamp, OpGt, "1234567890.0000000001", false},
		{KeyTimestamp, OpGt, "12345678901", false},
		{KeyTokenID, OpEq, "0.0.1001", true},
		{KeyTokenID, OpEq, "71eaa748d5252be68c1185588beca495459fdba4", false},
		{KeyTokenType, OpEq, "NON_FUNGIBLE_UNIQUE", true},
		{KeyTopic0, OpEq, "0x0a", true},
		{KeyTopic0, OpGt, "0x0a", false},
		{KeyTransactionIndex, OpEq, "0", true},
		{KeyTransactionIndex, OpGt, "0", false},
		{KeyTransactionType, OpEq, "cryptotransfer", true},
		{KeyTransactionType, OpEq, "cryptotransfers", false},
		{Key("unknown"), OpEq, "1", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.key)+"="+string(tt.op)+":"+tt.value, func(t *testing.T) {
			assert.Equal(t, tt.expected, parser.CheckFilter(tt.key, tt.op, tt.value))
		})
	}
}

func TestBuildAndValidateAggregatesErrors(t *testing.T) {
	parser := newTestParser(t, Options{MaxRepeatedQueryParameters: 2})
	accepted := NewKeySet(KeyAccountID, KeyLimit, KeyTimestamp)

	query := url.Values{
		"account.id": {"0.0.x"},
		"limit":      {"-1"},
		"foo":        {"bar"},
		"timestamp":  {"1", "2", "3"},
	}
	_, err := parser.BuildAndValidate(query, accepted, nil, nil)
	require.Error(t, err)
	assert.True(t, svcerrors.IsInvalidArgument(err))

	var serviceErr *svcerrors.ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, []string{
		"timestamp: parameter values count 3 exceeds maximum number 2 allowed",
		"Invalid parameter: account.id",
		"Unknown query parameter: foo",
		"Invalid parameter: limit",
	}, serviceErr.Messages())
}

func TestBuildAndValidateFormats(t *testing.T) {
	parser := newTestParser(t, Options{MaxLimit: 100})
	accepted := NewKeySet(KeyAccountID, KeyAccountPublicKey, KeyBalance, KeyLimit, KeyOrder, KeyTimestamp, KeyTokenType, KeyTransactionType)

	query := url.Values{
		"account.id":        {"gte:0.0.1001", "0.1.2"},
		"account.publickey": {"0x302A300506032B6570032100" + strings.Repeat("AB", 32)},
		"balance":           {"False"},
		"limit":             {"1000"},
		"order":             {"ASC"},
		"timestamp":         {"lt:1234567890.1"},
		"token.type":        {"fungible_common"},
		"transactiontype":   {"CryptoTransfer"},
	}
	filters, err := parser.BuildAndValidate(query, accepted, nil, nil)
	require.NoError(t, err)

	values := map[Key][]any{}
	for _, f := range filters {
		values[f.Key] = append(values[f.Key], f.Value)
	}
	assert.Equal(t, []any{int64(1001), int64(274877906946)}, values[KeyAccountID])
	assert.Equal(t, []any{strings.Repeat("ab", 32)}, values[KeyAccountPublicKey])
	assert.Equal(t, []any{false}, values[KeyBalance])
	assert.Equal(t, []any{int64(100)}, values[KeyLimit])
	assert.Equal(t, []any{"asc"}, values[KeyOrder])
	assert.Equal(t, []any{int64(1234567890100000000)}, values[KeyTimestamp])
	assert.Equal(t, []any{"FUNGIBLE_COMMON"}, values[KeyTokenType])
	assert.Equal(t, []any{int16(14)}, values[KeyTransactionType])
}

func TestBuildAndValidateCustomValidator(t *testing.T) {
	parser := newTestParser(t, Options{})
	accepted := NewKeySet(KeyAccountID)
	noNe := func(key Key, op Operator, value string) bool {
		return op != OpNe && parser.CheckFilter(key, op, value)
	}

	_, err := parser.BuildAndValidate(url.Values{"account.id": {"ne:0.0.2"}}, accepted, noNe, nil)
	require.Error(t, err)

	filters, err := parser.BuildAndValidate(url.Values{"account.id": {"0.0.2"}}, accepted, noNe, nil)
	require.NoError(t, err)
	require.Len(t, filters, 1)
}

func TestBuildAndValidateRejectsTimestampOverflow(t *testing.T) {
	parser := newTestParser(t, Options{})
	accepted := NewKeySet(KeyTimestamp)

	assert.True(t, parser.CheckFilter(KeyTimestamp, OpGte, "9223372036.854775807"))
	assert.False(t, parser.CheckFilter(KeyTimestamp, OpGte, "9223372036.854775808"))
	assert.False(t, parser.CheckFilter(KeyTimestamp, OpGte, "9999999999"))

	_, err := parser.BuildAndValidate(url.Values{"timestamp": {"gte:9999999999"}}, accepted, nil, nil)
	require.Error(t, err)
	assert.True(t, svcerrors.IsInvalidArgument(err))

	var serviceErr *svcerrors.ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, []string{"Invalid parameter: timestamp"}, serviceErr.Messages())
}

func TestBuildAndValidateFormatFailureIsInvalidParam(t *testing.T) {
	parser := newTestParser(t, Options{})
	acceptAll := func(Key, Operator, string) bool { return true }

	_, err := parser.BuildAndValidate(url.Values{"timestamp": {"9999999999"}}, NewKeySet(KeyTimestamp), acceptAll, nil)
	require.Error(t, err)
	assert.True(t, svcerrors.IsInvalidArgument(err))

	var serviceErr *svcerrors.ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, []string{"Invalid parameter: timestamp"}, serviceErr.Messages())
}

func TestOpaqueEvmAccountKeepsEntityID(t *testing.T) {
	parser := newTestParser(t, Options{})
	filters, err := parser.BuildAndValidate(url.Values{"account.id": {"0x71eaa748d5252be68c1185588beca495459fdba4"}}, NewKeySet(KeyAccountID), nil, nil)
	require.NoError(t, err)

	id, ok := filters[0].Value.(*entityid.EntityID)
	require.True(t, ok)
	assert.Equal(t, "0x71eaa748d5252be68c1185588beca495459fdba4", id.ToEvmAddress())
}

func TestCheckDependencies(t *testing.T) {
	tests := []struct {
		name     string
		query    url.Values
		messages []string
	}{
		{"index alone", url.Values{"transaction.index": {"1"}}, []string{"transaction.index requires block.number or block.hash filter to be specified"}},
		{"index with number", url.Values{"transaction.index": {"1"}, "block.number": {"2"}}, nil},
		{"index with hash", url.Values{"transaction.index": {"1"}, "block.hash": {"ab"}}, nil},
		{"both blocks", url.Values{"block.number": {"2"}, "block.hash": {"ab"}}, []string{"cannot combine block.number and block.hash"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckDependencies(tt.query)
			if tt.messages == nil {
				assert.NoError(t, err)
				return
			}
			var serviceErr *svcerrors.ServiceError
			require.ErrorAs(t, err, &serviceErr)
			assert.Equal(t, tt.messages, serviceErr.Messages())
		})
	}
}

func TestParsePublicKey(t *testing.T) {
	raw := strings.Repeat("ab", 32)
	assert.Equal(t, raw, ParsePublicKey("0x"+strings.ToUpper(raw)))
	assert.Equal(t, raw, ParsePublicKey("302a300506032b6570032100"+raw))
	ecdsa := "02" + raw
	assert.Equal(t, ecdsa, ParsePublicKey(ecdsa))
}

func TestParseTimestampParam(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
		wantErr  bool
	}{
		{"1234567890", 1234567890000000000, false},
		{"1234567890.1", 1234567890100000000, false},
		{"1234567890.000000001", 1234567890000000001, false},
		{"0.5", 500000000, false},
		{"", 0, true},
		{"1.2.3", 0, true},
		{"abc", 0, true},
		{"9223372036.854775807", 9223372036854775807, false},
		{"9999999999", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseTimestampParam(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("expected error for %q", tt.input)
			}
			continue
		}
		if err != nil || got != tt.expected {
			t.Fatalf("ParseTimestampParam(%q) = %d, %v; want %d", tt.input, got, err, tt.expected)
		}
	}
}

func TestKeySet(t *testing.T) {
	set := NewKeySet(KeyOrder, KeyAccountID, KeyLimit)
	assert.True(t, set.Has(KeyLimit))
	assert.False(t, set.Has(KeyTimestamp))
	assert.Equal(t, []Key{KeyAccountID, KeyLimit, KeyOrder}, set.Keys())
}

func TestTransactionTypeName(t *testing.T) {
	assert.Equal(t, "CRYPTOTRANSFER", TransactionTypeName(14))
	assert.Equal(t, "UNKNOWN", TransactionTypeName(-1))

	id, ok := TransactionTypeID("cryptoTransfer")
	require.True(t, ok)
	assert.Equal(t, "CRYPTOTRANSFER", TransactionTypeName(id))
}
