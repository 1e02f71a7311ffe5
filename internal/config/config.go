package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/R3E-Network/mirror_query/pkg/logger"
)

// EnvConfigPath names the variable pointing at an override file.
const EnvConfigPath = "MIRROR_QUERY_CONFIG"

//go:embed application.yml
var defaultYAML []byte

// Config is the full configuration of the query layer.
type Config struct {
	Common   CommonConfig   `yaml:"common"`
	Response ResponseConfig `yaml:"response"`
	Query    QueryConfig    `yaml:"query"`
	Cache    CacheConfig    `yaml:"cache"`
	Logging  LoggingConfig  `yaml:"logging"`
	DB       DBConfig       `yaml:"db"`
}

// CommonConfig holds the system shard and realm of the network.
type CommonConfig struct {
	Shard int64 `yaml:"shard" env:"MIRROR_QUERY_COMMON_SHARD"`
	Realm int64 `yaml:"realm" env:"MIRROR_QUERY_COMMON_REALM"`
}

type ResponseConfig struct {
	Limit             LimitConfig `yaml:"limit"`
	IncludeHostInLink bool        `yaml:"includeHostInLink" env:"MIRROR_QUERY_RESPONSE_INCLUDEHOSTINLINK"`
	BaseURL           string      `yaml:"baseUrl" env:"MIRROR_QUERY_RESPONSE_BASEURL"`
}

type LimitConfig struct {
	Default int64 `yaml:"default" env:"MIRROR_QUERY_RESPONSE_LIMIT_DEFAULT"`
	Max     int64 `yaml:"max" env:"MIRROR_QUERY_RESPONSE_LIMIT_MAX"`
}

type QueryConfig struct {
	MaxRepeatedQueryParameters int           `yaml:"maxRepeatedQueryParameters" env:"MIRROR_QUERY_QUERY_MAXREPEATEDQUERYPARAMETERS"`
	MaxTimestampRange          time.Duration `yaml:"maxTimestampRange" env:"MIRROR_QUERY_QUERY_MAXTIMESTAMPRANGE"`
	StrictTimestampParam       bool          `yaml:"strictTimestampParam" env:"MIRROR_QUERY_QUERY_STRICTTIMESTAMPPARAM"`
}

// MaxTimestampRangeNs returns the maximum timestamp span in nanoseconds.
func (q QueryConfig) MaxTimestampRangeNs() int64 {
	return q.MaxTimestampRange.Nanoseconds()
}

type CacheConfig struct {
	EntityID EntityIDCacheConfig `yaml:"entityId"`
}

// EntityIDCacheConfig bounds the parsed entity id cache. Zero means unbounded.
type EntityIDCacheConfig struct {
	MaxSize int `yaml:"maxSize" env:"MIRROR_QUERY_CACHE_ENTITYID_MAXSIZE"`
}

type LoggingConfig struct {
	Level      string `yaml:"level" env:"MIRROR_QUERY_LOGGING_LEVEL"`
	Format     string `yaml:"format" env:"MIRROR_QUERY_LOGGING_FORMAT"`
	Output     string `yaml:"output" env:"MIRROR_QUERY_LOGGING_OUTPUT"`
	FilePrefix string `yaml:"filePrefix" env:"MIRROR_QUERY_LOGGING_FILEPREFIX"`
}

// Logger converts the logging section into logger options.
func (l LoggingConfig) Logger() logger.LoggingConfig {
	return logger.LoggingConfig{
		Level:      l.Level,
		Format:     l.Format,
		Output:     l.Output,
		FilePrefix: l.FilePrefix,
	}
}

type DBConfig struct {
	DSN string `yaml:"dsn" env:"MIRROR_QUERY_DB_DSN"`
}

// Default returns the embedded defaults.
func Default() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultYAML, &cfg); err != nil {
		panic(fmt.Sprintf("embedded application.yml: %v", err))
	}
	return &cfg
}

// Load reads the defaults, the file named by MIRROR_QUERY_CONFIG when set,
// a local .env file when present and finally environment overrides.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFromPath(strings.TrimSpace(os.Getenv(EnvConfigPath)))
}

// LoadFromPath layers the file at path (if non-empty) and the environment
// over the embedded defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("failed to apply environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the query layer cannot work with.
func (c *Config) Validate() error {
	switch {
	case c.Common.Shard < 0 || c.Common.Shard > 1023:
		return fmt.Errorf("common.shard %d out of range", c.Common.Shard)
	case c.Common.Realm < 0 || c.Common.Realm > 65535:
		return fmt.Errorf("common.realm %d out of range", c.Common.Realm)
	case c.Response.Limit.Default <= 0 || c.Response.Limit.Max <= 0:
		return fmt.Errorf("response.limit values must be positive")
	case c.Response.Limit.Default > c.Response.Limit.Max:
		return fmt.Errorf("response.limit.default %d exceeds response.limit.max %d", c.Response.Limit.Default, c.Response.Limit.Max)
	case c.Query.MaxRepeatedQueryParameters <= 0:
		return fmt.Errorf("query.maxRepeatedQueryParameters must be positive")
	case c.Query.MaxTimestampRange <= 0:
		return fmt.Errorf("query.maxTimestampRange must be positive")
	case c.Cache.EntityID.MaxSize < 0:
		return fmt.Errorf("cache.entityId.maxSize must not be negative")
	}
	return nil
}
