package config

import (
	"fmt"
	"log/slog"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	AppName    string `envconfig:"APP_NAME" yaml:"app_name"`
	AppVersion string `envconfig:"APP_VERSION" yaml:"app_version"`
	APIPort    string `envconfig:"API_PORT" yaml:"api_port"`
	LogLevel   string `envconfig:"LOG_LEVEL" yaml:"log_level"`
	LogFormat  string `envconfig:"LOG_FORMAT" yaml:"log_format"`

	// Ledger database
	DBDriver string `envconfig:"DB_DRIVER" yaml:"db_driver"`
	DBDSN    string `envconfig:"DB_DSN" yaml:"db_dsn"`

	// Vector store
	QdrantURL            string        `envconfig:"QDRANT_URL" yaml:"qdrant_url"`
	QdrantAPIKey         string        `envconfig:"QDRANT_API_KEY" yaml:"qdrant_api_key"`
	QdrantCollection     string        `envconfig:"QDRANT_COLLECTION" yaml:"qdrant_collection"`
	QdrantInferenceModel string        `envconfig:"QDRANT_INFERENCE_MODEL" yaml:"qdrant_inference_model"`
	QdrantVectorName     string        `envconfig:"QDRANT_VECTOR_NAME" yaml:"qdrant_vector_name"`
	DocLimit             int           `envconfig:"DOC_LIMIT" yaml:"doc_limit"`
	MaxDocLimit          int           `envconfig:"MAX_DOC_LIMIT" yaml:"max_doc_limit"`
	VDBRetryAttempts     int           `envconfig:"VDB_RETRY_ATTEMPTS" yaml:"vdb_retry_attempts"`
	VDBRetryInitial      time.Duration `envconfig:"VDB_RETRY_INITIAL" yaml:"vdb_retry_initial"`
	VDBRetryMax          time.Duration `envconfig:"VDB_RETRY_MAX" yaml:"vdb_retry_max"`
	VDBTimeout           time.Duration `envconfig:"VDB_TIMEOUT" yaml:"vdb_timeout"`

	// LLM
	LLMBaseURL         string        `envconfig:"LLM_BASE_URL" yaml:"llm_base_url"`
	LLMAPIKey          string        `envconfig:"LLM_API_KEY" yaml:"llm_api_key"`
	LLMModel           string        `envconfig:"LLM_MODEL" yaml:"llm_model"`
	LLMTimeout         time.Duration `envconfig:"LLM_TIMEOUT" yaml:"llm_timeout"`
	LLMMaxTokens       int           `envconfig:"LLM_MAX_TOKENS" yaml:"llm_max_tokens"`
	LLMTemperature     float32       `envconfig:"LLM_TEMPERATURE" yaml:"llm_temperature"`
	LLMPromptTemplate  string        `envconfig:"LLM_PROMPT_TEMPLATE" yaml:"llm_prompt_template"`
	LLMMaxContextChars int           `envconfig:"LLM_MAX_CONTEXT_CHARS" yaml:"llm_max_context_chars"`
	LLMContextMetadata bool          `envconfig:"LLM_CONTEXT_METADATA" yaml:"llm_context_metadata"`
	LLMValidateModel   bool          `envconfig:"LLM_VALIDATE_MODEL" yaml:"llm_validate_model"`
	Reranker           string        `envconfig:"RERANKER" yaml:"reranker"`

	// Background ledger writes
	LedgerWorkers      int           `envconfig:"LEDGER_WORKERS" yaml:"ledger_workers"`
	LedgerQueueSize    int           `envconfig:"LEDGER_QUEUE_SIZE" yaml:"ledger_queue_size"`
	LedgerMaxAttempts  int           `envconfig:"LEDGER_MAX_ATTEMPTS" yaml:"ledger_max_attempts"`
	LedgerRetryDelay   time.Duration `envconfig:"LEDGER_RETRY_DELAY" yaml:"ledger_retry_delay"`
	LedgerWriteTimeout time.Duration `envconfig:"LEDGER_WRITE_TIMEOUT" yaml:"ledger_write_timeout"`

	// Response cache
	CacheType string        `envconfig:"CACHE_TYPE" yaml:"cache_type"`
	CacheSize int           `envconfig:"CACHE_SIZE" yaml:"cache_size"`
	CacheTTL  time.Duration `envconfig:"CACHE_TTL" yaml:"cache_ttl"`
	RedisURL  string        `envconfig:"REDIS_URL" yaml:"redis_url"`

	// Load shedding
	MaxInflight    int64         `envconfig:"MAX_INFLIGHT" yaml:"max_inflight"`
	AdmissionWait  time.Duration `envconfig:"ADMISSION_WAIT" yaml:"admission_wait"`
	RateLimitRPS   float64       `envconfig:"RATE_LIMIT_RPS" yaml:"rate_limit_rps"`
	RateLimitBurst int           `envconfig:"RATE_LIMIT_BURST" yaml:"rate_limit_burst"`
	// TrustedProxies lists proxy addresses or CIDRs whose forwarding headers
	// identify the client for rate limiting.
	TrustedProxies []string `envconfig:"TRUSTED_PROXIES" yaml:"trusted_proxies"`

	HealthTimeout   time.Duration `envconfig:"HEALTH_TIMEOUT" yaml:"health_timeout"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" yaml:"shutdown_timeout"`
}

// Cache types.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Load reads configuration and returns a Config struct.
// Defaults are applied first, then the YAML file at configPath (if any), then
// environment variables. If a .env file exists in the current directory or a
// parent, it is loaded first; variables already set take precedence over it.
func Load(configPath string) (*Config, error) {
	loadDotEnv()

	cfg := &Config{}
	setDefaults(cfg)

	if configPath == "" {
		configPath = os.Getenv("CONFIG_FILE")
	}
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	if cfg.DBDriver == "sqlite3" {
		dataDir := filepath.Dir(cfg.DBDSN)
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	return cfg, nil
}

// loadDotEnv loads the nearest .env file, searching up to five directories.
func loadDotEnv() {
	wd, err := os.Getwd()
	if err != nil {
		return
	}
	dir := wd
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func setDefaults(cfg *Config) {
	cfg.AppName = "cat-backend"
	cfg.AppVersion = "0.0.0"
	cfg.APIPort = "9000"
	cfg.LogLevel = "info"
	cfg.LogFormat = "text"

	cfg.DBDriver = "sqlite3"
	cfg.DBDSN = "./data/cat-backend.db"

	cfg.QdrantURL = "http://localhost:6333"
	cfg.QdrantCollection = "docs"
	cfg.QdrantInferenceModel = "sentence-transformers/all-minilm-l6-v2"
	cfg.DocLimit = 5
	cfg.MaxDocLimit = 20
	cfg.VDBRetryAttempts = 3
	cfg.VDBRetryInitial = 2 * time.Second
	cfg.VDBRetryMax = 10 * time.Second
	cfg.VDBTimeout = 10 * time.Second

	cfg.LLMBaseURL = "http://localhost:8080"
	cfg.LLMModel = "Llama-3.1-8B-Instruct"
	cfg.LLMTimeout = 30 * time.Second
	cfg.LLMMaxContextChars = 12000
	cfg.LLMContextMetadata = true
	cfg.Reranker = "none"

	cfg.LedgerWorkers = 1
	cfg.LedgerQueueSize = 1024
	cfg.LedgerMaxAttempts = 3
	cfg.LedgerRetryDelay = 500 * time.Millisecond
	cfg.LedgerWriteTimeout = 5 * time.Second

	cfg.CacheType = CacheNone
	cfg.CacheSize = 1000
	cfg.CacheTTL = 10 * time.Minute
	cfg.RedisURL = "redis://localhost:6379/0"

	cfg.MaxInflight = 64
	cfg.HealthTimeout = 5 * time.Second
	cfg.ShutdownTimeout = 15 * time.Second
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	var errs []string

	if c.APIPort == "" {
		errs = append(errs, "API_PORT is required")
	}
	switch c.DBDriver {
	case "sqlite3", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("DB_DRIVER must be sqlite3 or postgres, got %q", c.DBDriver))
	}
	if c.DBDSN == "" {
		errs = append(errs, "DB_DSN is required")
	}
	if c.QdrantURL == "" {
		errs = append(errs, "QDRANT_URL is required")
	}
	if c.QdrantCollection == "" {
		errs = append(errs, "QDRANT_COLLECTION is required")
	}
	if c.QdrantInferenceModel == "" {
		errs = append(errs, "QDRANT_INFERENCE_MODEL is required")
	}
	if c.DocLimit <= 0 {
		errs = append(errs, "DOC_LIMIT must be greater than 0")
	}
	if c.MaxDocLimit < c.DocLimit {
		errs = append(errs, "MAX_DOC_LIMIT must not be lower than DOC_LIMIT")
	}
	if c.VDBRetryAttempts < 1 {
		errs = append(errs, "VDB_RETRY_ATTEMPTS must be at least 1")
	}
	if c.VDBRetryInitial < 0 || c.VDBRetryMax < 0 {
		errs = append(errs, "VDB_RETRY_INITIAL and VDB_RETRY_MAX must not be negative")
	}
	if c.LLMBaseURL == "" {
		errs = append(errs, "LLM_BASE_URL is required")
	}
	if strings.TrimSpace(c.LLMModel) == "" {
		errs = append(errs, "LLM_MODEL is required")
	}
	if c.LLMTimeout <= 0 {
		errs = append(errs, "LLM_TIMEOUT must be greater than 0")
	}
	if c.LLMMaxTokens < 0 {
		errs = append(errs, "LLM_MAX_TOKENS must not be negative")
	}
	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		errs = append(errs, "LLM_TEMPERATURE must be between 0 and 2")
	}
	switch c.Reranker {
	case "none", "lexical":
	default:
		errs = append(errs, fmt.Sprintf("RERANKER must be none or lexical, got %q", c.Reranker))
	}
	if c.LedgerWorkers < 1 || c.LedgerQueueSize < 1 || c.LedgerMaxAttempts < 1 {
		errs = append(errs, "LEDGER_WORKERS, LEDGER_QUEUE_SIZE and LEDGER_MAX_ATTEMPTS must be at least 1")
	}
	switch c.CacheType {
	case CacheNone:
	case CacheMemory:
		if c.CacheSize <= 0 {
			errs = append(errs, "CACHE_SIZE must be greater than 0")
		}
	case CacheRedis:
		if c.RedisURL == "" {
			errs = append(errs, "REDIS_URL is required when CACHE_TYPE=redis")
		}
		if c.CacheSize <= 0 {
			errs = append(errs, "CACHE_SIZE must be greater than 0")
		}
	default:
		errs = append(errs, fmt.Sprintf("CACHE_TYPE must be none, memory or redis, got %q", c.CacheType))
	}
	if c.MaxInflight < 0 {
		errs = append(errs, "MAX_INFLIGHT must not be negative")
	}
	if c.RateLimitRPS < 0 {
		errs = append(errs, "RATE_LIMIT_RPS must not be negative")
	}
	if _, err := c.TrustedProxyPrefixes(); err != nil {
		errs = append(errs, err.Error())
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", s)
	}
	return level, nil
}

// TrustedProxyPrefixes parses TRUSTED_PROXIES. A bare address is treated as
// a single-host prefix.
func (c *Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(c.TrustedProxies))
	for _, raw := range c.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			prefix, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("TRUSTED_PROXIES entry %q is not a valid CIDR", raw)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES entry %q is not a valid address", raw)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// Address returns the listen address.
func (c *Config) Address() string {
	return ":" + c.APIPort
}
