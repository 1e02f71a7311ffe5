package entityid

import (
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/R3E-Network/mirror_query/internal/app/metrics"
	svcerrors "github.com/R3E-Network/mirror_query/internal/errors"
	"github.com/R3E-Network/mirror_query/pkg/logger"
)

// Input is the value handed to Parse: Text, Integer, BigInteger or Null.
type Input interface {
	input()
}

// Text is a textual identifier in any accepted spelling.
type Text string

// Integer is an encoded identifier.
type Integer int64

// BigInteger is an encoded identifier held in arbitrary precision.
type BigInteger struct{ *big.Int }

// NullInput stands for an absent value.
type NullInput struct{}

func (Text) input()       {}
func (Integer) input()    {}
func (BigInteger) input() {}
func (NullInput) input()  {}

// Big wraps v as a BigInteger input.
func Big(v *big.Int) BigInteger {
	return BigInteger{Int: v}
}

type parseOptions struct {
	nullable  bool
	paramName string
	allowEvm  bool
	evmType   EvmAddressType
}

// ParseOption tunes a single Parse call.
type ParseOption func(*parseOptions)

// WithNullable accepts absent input and returns the null identifier for it.
func WithNullable() ParseOption {
	return func(o *parseOptions) { o.nullable = true }
}

// WithParamName names the parameter in error messages.
func WithParamName(name string) ParseOption {
	return func(o *parseOptions) { o.paramName = name }
}

// WithoutEvmAddress rejects EVM address spellings.
func WithoutEvmAddress() ParseOption {
	return func(o *parseOptions) { o.allowEvm = false }
}

// WithEvmAddressType restricts the accepted EVM address spellings.
func WithEvmAddressType(t EvmAddressType) ParseOption {
	return func(o *parseOptions) { o.evmType = t }
}

var (
	dottedRegex  = regexp.MustCompile(`^(\d{1,4}\.)?(\d{1,5}\.)?\d{1,12}$`)
	encodedRegex = regexp.MustCompile(`^-?\d{1,19}$`)
)

// Options configures a Codec.
type Options struct {
	// Shard and Realm fill in the parts a dotted or EVM prefix omits.
	Shard int64
	Realm int64
	Cache Cache
}

// Codec parses identifiers against the configured system shard and realm and
// memoizes the results.
type Codec struct {
	shard int64
	realm int64
	cache Cache
	log   *logger.Logger
}

// NewCodec builds a codec. A nil cache means an unbounded one.
func NewCodec(opts Options, log *logger.Logger) (*Codec, error) {
	if opts.Shard < 0 || opts.Shard > MaxShard {
		return nil, fmt.Errorf("system shard %d out of range", opts.Shard)
	}
	if opts.Realm < 0 || opts.Realm > MaxRealm {
		return nil, fmt.Errorf("system realm %d out of range", opts.Realm)
	}
	if log == nil {
		log = logger.NewDefault("entityid")
	}
	cache := opts.Cache
	if cache == nil {
		cache, _ = NewCache(0)
	}
	return &Codec{shard: opts.Shard, realm: opts.Realm, cache: cache, log: log}, nil
}

// SystemShard returns the configured shard.
func (c *Codec) SystemShard() int64 { return c.shard }

// SystemRealm returns the configured realm.
func (c *Codec) SystemRealm() int64 { return c.realm }

// CacheLen reports how many identifiers are memoized.
func (c *Codec) CacheLen() int { return c.cache.Len() }

// Parse decodes in into an identifier. Equal inputs parsed with equal EVM
// options return the same pointer. Errors are InvalidArgument service errors.
func (c *Codec) Parse(in Input, opts ...ParseOption) (*EntityID, error) {
	o := parseOptions{allowEvm: true, evmType: EvmAddressAny}
	for _, opt := range opts {
		opt(&o)
	}

	text, kind, ok := normalize(in)
	if !ok {
		metrics.RecordEntityIDRejection(kind)
		return nil, c.invalid(o, in)
	}
	if text == "" {
		if o.nullable {
			return Null(), nil
		}
		metrics.RecordEntityIDRejection(kind)
		return nil, c.invalid(o, in)
	}

	key := cacheKey(text, o)
	if id, hit := c.cache.Get(key); hit {
		metrics.RecordCacheLookup(true)
		return id, nil
	}
	metrics.RecordCacheLookup(false)

	id, err := c.parseText(text, o)
	if err != nil {
		metrics.RecordEntityIDRejection(kind)
		c.log.WithField("input", text).WithField("param", o.paramName).Debugf("rejected entity id: %v", err)
		return nil, c.invalid(o, in)
	}
	return c.cache.Add(key, id), nil
}

// MustParse is Parse for trusted input; it panics on error.
func (c *Codec) MustParse(in Input, opts ...ParseOption) *EntityID {
	id, err := c.Parse(in, opts...)
	if err != nil {
		panic(err)
	}
	return id
}

// IsValid reports whether in parses as a non-null identifier.
func (c *Codec) IsValid(in Input, allowEvm bool, typ EvmAddressType) bool {
	text, _, ok := normalize(in)
	if !ok || text == "" {
		return false
	}
	o := parseOptions{allowEvm: allowEvm, evmType: typ}
	if _, hit := c.cache.Get(cacheKey(text, o)); hit {
		return true
	}
	_, err := c.parseText(text, o)
	return err == nil
}

// normalize turns every input variant into text. Numeric variants share the
// decimal spelling so that 2005, big 2005 and "2005" hit one cache entry.
func normalize(in Input) (text, kind string, ok bool) {
	switch v := in.(type) {
	case nil:
		return "", "null", true
	case NullInput:
		return "", "null", true
	case Text:
		return string(v), "text", true
	case Integer:
		return strconv.FormatInt(int64(v), 10), "integer", true
	case BigInteger:
		if v.Int == nil {
			return "", "null", true
		}
		if !v.IsInt64() {
			return "", "big_integer", false
		}
		return v.String(), "big_integer", true
	default:
		return "", "unknown", false
	}
}

func cacheKey(text string, o parseOptions) string {
	if !o.allowEvm {
		return text + "|noevm"
	}
	return text + "|" + o.evmType.String()
}

func (c *Codec) invalid(o parseOptions, in Input) error {
	if o.paramName != "" {
		return svcerrors.InvalidParam(o.paramName)
	}
	return svcerrors.InvalidArgument("Invalid entity ID \"%v\"", describe(in))
}

func describe(in Input) string {
	switch v := in.(type) {
	case Text:
		return string(v)
	case Integer:
		return strconv.FormatInt(int64(v), 10)
	case BigInteger:
		if v.Int != nil {
			return v.String()
		}
	}
	return "null"
}

func (c *Codec) parseText(text string, o parseOptions) (*EntityID, error) {
	switch {
	case strings.Contains(text, ".") && dottedRegex.MatchString(text):
		return c.parseDotted(text)
	case encodedRegex.MatchString(text):
		encoded, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("encoded id out of range: %w", err)
		}
		return Decode(encoded), nil
	case o.allowEvm && IsValidEvmAddress(text, o.evmType):
		return c.parseEvm(text, o.evmType)
	}
	return nil, fmt.Errorf("unrecognized entity id %q", text)
}

func (c *Codec) parseDotted(text string) (*EntityID, error) {
	parts := strings.Split(text, ".")
	values := make([]int64, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}

	shard, realm := c.shard, c.realm
	var num int64
	switch len(values) {
	case 3:
		shard, realm, num = values[0], values[1], values[2]
	case 2:
		realm, num = values[0], values[1]
	}
	if shard > MaxShard || realm > MaxRealm || num > MaxNum {
		return nil, fmt.Errorf("entity id %q out of range", text)
	}
	return Of(shard, realm, num), nil
}

func (c *Codec) parseEvm(text string, typ EvmAddressType) (*EntityID, error) {
	parts := strings.Split(text, ".")
	addr, err := DecodeEvmAddress(parts[len(parts)-1])
	if err != nil {
		return nil, err
	}

	prefixed := len(parts) > 1
	shard, realm := c.shard, c.realm
	if prefixed {
		prefix := make([]int64, 0, 2)
		for _, part := range parts[:len(parts)-1] {
			v, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, err
			}
			prefix = append(prefix, v)
		}
		if len(prefix) == 2 {
			shard, realm = prefix[0], prefix[1]
		} else {
			realm = prefix[0]
		}
		if shard > MaxShard || realm > MaxRealm {
			return nil, fmt.Errorf("evm address prefix %d.%d out of range", shard, realm)
		}
	}

	if IsLongZero(addr) {
		id := FromEvmAddress(addr)
		if prefixed && (id.Shard() != shard || id.Realm() != realm) {
			return nil, fmt.Errorf("evm address %s does not belong to %d.%d", addr.Hex(), shard, realm)
		}
		return id, nil
	}
	if typ == EvmAddressNumAlias {
		return nil, fmt.Errorf("evm address %s is not a num alias", addr.Hex())
	}
	if prefixed {
		return OfShardRealmEvmAddress(shard, realm, addr), nil
	}
	return OfEvmAddress(addr), nil
}
