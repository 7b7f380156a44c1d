// Package config loads prodeval settings from YAML, .env files and
// PRODEVAL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/XiaoConstantine/prodeval/pkg/benchgen"
	"github.com/XiaoConstantine/prodeval/pkg/catalog"
	"github.com/XiaoConstantine/prodeval/pkg/eval"
	"github.com/XiaoConstantine/prodeval/pkg/retrieve"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. PRODEVAL_EVAL_FEATURE.
const EnvPrefix = "PRODEVAL"

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the complete prodeval configuration, one field per YAML section.
type Config struct {
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Eval      EvalConfig      `mapstructure:"eval"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// CatalogConfig locates the product catalog and names its columns.
type CatalogConfig struct {
	Path    string          `mapstructure:"path"`
	Format  string          `mapstructure:"format"`
	Table   string          `mapstructure:"table"`
	Columns catalog.Columns `mapstructure:"columns"`
}

// GeneratorConfig controls benchmark generation.
type GeneratorConfig struct {
	Sizes          []int                 `mapstructure:"sizes"`
	MinSupport     int                   `mapstructure:"min_support"`
	OutputDir      string                `mapstructure:"output_dir"`
	NearMissMargin int                   `mapstructure:"near_miss_margin"`
	Domains        benchgen.DomainConfig `mapstructure:"domains"`
}

// EvalConfig controls how result files are scored.
type EvalConfig struct {
	Feature     string `mapstructure:"feature"`
	Suffix      string `mapstructure:"suffix"`
	Concurrency int    `mapstructure:"concurrency"`
}

// RetrievalConfig wires the retrieval methods used by annotate.
type RetrievalConfig struct {
	SPARQLEndpoint string                    `mapstructure:"sparql_endpoint"`
	TextBackend    string                    `mapstructure:"text_backend"`
	FTSPath        string                    `mapstructure:"fts_path"`
	Elastic        retrieve.ElasticConfig    `mapstructure:"elastic"`
	LLM            retrieve.TranslatorConfig `mapstructure:"llm"`
	Cache          CacheConfig               `mapstructure:"cache"`
}

// CacheConfig selects the result cache; Redis wins when an address is set.
type CacheConfig struct {
	LRU   LRUConfig   `mapstructure:"lru"`
	Redis RedisConfig `mapstructure:"redis"`
}

// LRUConfig sizes the in-process cache. A zero size disables it.
type LRUConfig struct {
	Size int           `mapstructure:"size"`
	TTL  time.Duration `mapstructure:"ttl"`
}

// RedisConfig points the shared cache at a Redis server.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// LoggingConfig selects the zap level and encoder.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig sets where watch serves /metrics. Empty disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Text backends selectable through retrieval.text_backend.
const (
	TextBackendFTS     = "fts"
	TextBackendElastic = "elastic"
)

// Default returns the configuration used when no file or environment
// override is present.
func Default() Config {
	return Config{
		Catalog: CatalogConfig{
			Table:   "products",
			Columns: catalog.DefaultColumns(),
		},
		Generator: GeneratorConfig{
			Sizes:      []int{2, 3, 4},
			MinSupport: benchgen.DefaultMinSupport,
			OutputDir:  "query_combinazioni",
			Domains:    benchgen.DefaultDomainConfig(),
		},
		Eval: EvalConfig{
			Feature:     eval.DefaultFeature,
			Suffix:      eval.DefaultSuffix,
			Concurrency: 1,
		},
		Retrieval: RetrievalConfig{
			TextBackend: TextBackendFTS,
			Elastic: retrieve.ElasticConfig{
				Index: "products",
				Size:  1000,
			},
			LLM: retrieve.TranslatorConfig{
				Model:       "llama-3.3-70b-versatile",
				MaxAttempts: 3,
			},
			Cache: CacheConfig{
				LRU:   LRUConfig{Size: 1024, TTL: time.Hour},
				Redis: RedisConfig{Prefix: "prodeval:", TTL: 24 * time.Hour},
			},
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Load reads configuration. An explicit path must exist; otherwise
// prodeval.yaml is looked up in ".", "./configs" and "$HOME/.prodeval", and a
// missing file is not an error. Environment variables override file values,
// and overrides (command-line flags) override both. Validation runs last.
func Load(path string, overrides ...func(*Config)) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("prodeval")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".prodeval"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	for _, o := range overrides {
		o(&cfg)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadEnvFile loads .env from the working directory when present. Variables
// already set in the environment win.
func loadEnvFile() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}
}

// setDefaults registers every leaf key so AutomaticEnv can override values
// that never appear in a config file.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("catalog.path", d.Catalog.Path)
	v.SetDefault("catalog.format", d.Catalog.Format)
	v.SetDefault("catalog.table", d.Catalog.Table)
	v.SetDefault("catalog.columns.id", d.Catalog.Columns.ID)
	v.SetDefault("catalog.columns.brand", d.Catalog.Columns.Brand)
	v.SetDefault("catalog.columns.category", d.Catalog.Columns.Category)
	v.SetDefault("catalog.columns.capacity", d.Catalog.Columns.Capacity)
	v.SetDefault("catalog.columns.price", d.Catalog.Columns.Price)
	v.SetDefault("catalog.columns.permalink", d.Catalog.Columns.Permalink)
	v.SetDefault("catalog.columns.name", d.Catalog.Columns.Name)
	v.SetDefault("catalog.columns.description", d.Catalog.Columns.Description)
	v.SetDefault("catalog.columns.groups", d.Catalog.Columns.Groups)

	v.SetDefault("generator.sizes", d.Generator.Sizes)
	v.SetDefault("generator.min_support", d.Generator.MinSupport)
	v.SetDefault("generator.output_dir", d.Generator.OutputDir)
	v.SetDefault("generator.near_miss_margin", d.Generator.NearMissMargin)
	v.SetDefault("generator.domains.categories", d.Generator.Domains.Categories)
	v.SetDefault("generator.domains.olfactory_groups", d.Generator.Domains.OlfactoryGroups)
	v.SetDefault("generator.domains.price_limits", d.Generator.Domains.PriceLimits)
	v.SetDefault("generator.domains.top_capacities", d.Generator.Domains.TopCapacities)
	v.SetDefault("generator.domains.brand_min_support", d.Generator.Domains.BrandMinSupport)

	v.SetDefault("eval.feature", d.Eval.Feature)
	v.SetDefault("eval.suffix", d.Eval.Suffix)
	v.SetDefault("eval.concurrency", d.Eval.Concurrency)

	v.SetDefault("retrieval.sparql_endpoint", d.Retrieval.SPARQLEndpoint)
	v.SetDefault("retrieval.text_backend", d.Retrieval.TextBackend)
	v.SetDefault("retrieval.fts_path", d.Retrieval.FTSPath)
	v.SetDefault("retrieval.elastic.addresses", d.Retrieval.Elastic.Addresses)
	v.SetDefault("retrieval.elastic.username", d.Retrieval.Elastic.Username)
	v.SetDefault("retrieval.elastic.password", d.Retrieval.Elastic.Password)
	v.SetDefault("retrieval.elastic.index", d.Retrieval.Elastic.Index)
	v.SetDefault("retrieval.elastic.fields", d.Retrieval.Elastic.Fields)
	v.SetDefault("retrieval.elastic.size", d.Retrieval.Elastic.Size)
	v.SetDefault("retrieval.llm.api_key", d.Retrieval.LLM.APIKey)
	v.SetDefault("retrieval.llm.base_url", d.Retrieval.LLM.BaseURL)
	v.SetDefault("retrieval.llm.model", d.Retrieval.LLM.Model)
	v.SetDefault("retrieval.llm.temperature", d.Retrieval.LLM.Temperature)
	v.SetDefault("retrieval.llm.max_attempts", d.Retrieval.LLM.MaxAttempts)
	v.SetDefault("retrieval.cache.lru.size", d.Retrieval.Cache.LRU.Size)
	v.SetDefault("retrieval.cache.lru.ttl", d.Retrieval.Cache.LRU.TTL)
	v.SetDefault("retrieval.cache.redis.addr", d.Retrieval.Cache.Redis.Addr)
	v.SetDefault("retrieval.cache.redis.password", d.Retrieval.Cache.Redis.Password)
	v.SetDefault("retrieval.cache.redis.db", d.Retrieval.Cache.Redis.DB)
	v.SetDefault("retrieval.cache.redis.prefix", d.Retrieval.Cache.Redis.Prefix)
	v.SetDefault("retrieval.cache.redis.ttl", d.Retrieval.Cache.Redis.TTL)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
}

// applyDefaults fills values a config file explicitly zeroed out.
func applyDefaults(cfg *Config) {
	d := Default()

	if cfg.Catalog.Table == "" {
		cfg.Catalog.Table = d.Catalog.Table
	}
	if len(cfg.Generator.Sizes) == 0 {
		cfg.Generator.Sizes = d.Generator.Sizes
	}
	if cfg.Generator.MinSupport <= 0 {
		cfg.Generator.MinSupport = d.Generator.MinSupport
	}
	if cfg.Generator.OutputDir == "" {
		cfg.Generator.OutputDir = d.Generator.OutputDir
	}
	if cfg.Generator.Domains.TopCapacities <= 0 {
		cfg.Generator.Domains.TopCapacities = d.Generator.Domains.TopCapacities
	}
	if cfg.Generator.Domains.BrandMinSupport <= 0 {
		cfg.Generator.Domains.BrandMinSupport = d.Generator.Domains.BrandMinSupport
	}
	if cfg.Eval.Suffix == "" {
		cfg.Eval.Suffix = d.Eval.Suffix
	}
	if cfg.Eval.Concurrency <= 0 {
		cfg.Eval.Concurrency = d.Eval.Concurrency
	}
	if cfg.Retrieval.TextBackend == "" {
		cfg.Retrieval.TextBackend = d.Retrieval.TextBackend
	}
	if cfg.Retrieval.LLM.MaxAttempts <= 0 {
		cfg.Retrieval.LLM.MaxAttempts = d.Retrieval.LLM.MaxAttempts
	}
	if len(cfg.Retrieval.LLM.OlfactoryGroups) == 0 {
		cfg.Retrieval.LLM.OlfactoryGroups = cfg.Generator.Domains.OlfactoryGroups
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = d.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = d.Logging.Format
	}
}

func validate(cfg *Config) error {
	for _, n := range cfg.Generator.Sizes {
		if n < 1 {
			return fmt.Errorf("%w: generator.sizes contains %d", ErrInvalidConfig, n)
		}
	}
	for _, p := range cfg.Generator.Domains.PriceLimits {
		if _, err := benchgen.ParsePriceThreshold(p); err != nil {
			return fmt.Errorf("%w: generator.domains.price_limits: %v", ErrInvalidConfig, err)
		}
	}
	if cfg.Generator.NearMissMargin < 0 {
		return fmt.Errorf("%w: generator.near_miss_margin must not be negative", ErrInvalidConfig)
	}

	switch cfg.Catalog.Format {
	case "", "csv", "json", "sqlite":
	default:
		return fmt.Errorf("%w: catalog.format %q", ErrInvalidConfig, cfg.Catalog.Format)
	}
	switch cfg.Retrieval.TextBackend {
	case TextBackendFTS, TextBackendElastic:
	default:
		return fmt.Errorf("%w: retrieval.text_backend %q", ErrInvalidConfig, cfg.Retrieval.TextBackend)
	}
	if cfg.Retrieval.TextBackend == TextBackendElastic && len(cfg.Retrieval.Elastic.Addresses) == 0 {
		return fmt.Errorf("%w: retrieval.elastic.addresses required for the elastic backend", ErrInvalidConfig)
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: logging.level %q", ErrInvalidConfig, cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: logging.format %q", ErrInvalidConfig, cfg.Logging.Format)
	}
	return nil
}
