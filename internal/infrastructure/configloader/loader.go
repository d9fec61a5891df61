package configloader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when CONFIG_PATH is not set.
const DefaultPath = "config/config.yml"

// ServerConfig holds server-specific configurations.
type ServerConfig struct {
	Port                string `yaml:"port"`
	ReadTimeoutSeconds  int    `yaml:"readTimeoutSeconds"`
	WriteTimeoutSeconds int    `yaml:"writeTimeoutSeconds"`
	IdleTimeoutSeconds  int    `yaml:"idleTimeoutSeconds"`
}

// LoggingConfig holds logging-specific configurations.
type LoggingConfig struct {
	Level string `yaml:"level"`
	// Development switches zap to the console encoder.
	Development bool `yaml:"development"`
}

// NetworkNodeConfig holds configuration for a specific blockchain network.
type NetworkNodeConfig struct {
	Identifier      string   `yaml:"identifier"`
	RPCURL          string   `yaml:"rpcURL"`
	FallbackRPCURLs []string `yaml:"fallbackRPCURLs"`
	ExplorerAPIURL  string   `yaml:"explorerAPIURL"`
	ExplorerAPIKey  string   `yaml:"explorerAPIKey"`
	ScanBlocks      int      `yaml:"scanBlocks"`
	RPCTimeoutMs    int64    `yaml:"rpcTimeoutMs"`
}

// ExplorerConfig holds the shared explorer client limits.
type ExplorerConfig struct {
	TimeoutMs int64   `yaml:"timeoutMs"`
	RateLimit float64 `yaml:"rateLimit"`
	Burst     int     `yaml:"burst"`
}

// CacheConfig selects and tunes the transaction page cache.
type CacheConfig struct {
	Backend                string `yaml:"backend"` // memory or redis
	RedisURL               string `yaml:"redisURL"`
	TTLMinutes             int    `yaml:"ttlMinutes"`
	CleanupIntervalMinutes int    `yaml:"cleanupIntervalMinutes"`
}

// TransactionsConfig holds TransactionService behaviour.
type TransactionsConfig struct {
	MockFallback *bool `yaml:"mockFallback"`
	HistoryLimit int   `yaml:"historyLimit"`
}

// PerformanceConfig holds performance-related configurations.
type PerformanceConfig struct {
	MaxConcurrentRoutines int `yaml:"maxConcurrentRoutines"`
	RPCCallTimeoutSeconds int `yaml:"rpcCallTimeoutSeconds"`
	ScanConcurrency       int `yaml:"scanConcurrency"`
}

// DEXScreenerConfig holds DEXScreener API specific configurations.
type DEXScreenerConfig struct {
	BaseURL                  string `yaml:"baseURL"`
	RequestTimeoutMillis     int64  `yaml:"requestTimeoutMillis"`
	CacheTTLMinutes          int    `yaml:"cacheTTLMinutes"`
	MaxTokensPerBatchRequest int    `yaml:"maxTokensPerBatchRequest"`
}

// PricesConfig selects the price provider.
type PricesConfig struct {
	Provider    string            `yaml:"provider"` // zero or dexscreener
	DEXScreener DEXScreenerConfig `yaml:"dexScreener"`
}

// FilesConfig points at the wallet watchlist and token override directory.
type FilesConfig struct {
	WalletsFile string `yaml:"walletsFile"`
	TokensDir   string `yaml:"tokensDir"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server       ServerConfig        `yaml:"server"`
	Logging      LoggingConfig       `yaml:"logging"`
	Networks     []NetworkNodeConfig `yaml:"networks"`
	Explorer     ExplorerConfig      `yaml:"explorer"`
	Cache        CacheConfig         `yaml:"cache"`
	Transactions TransactionsConfig  `yaml:"transactions"`
	Performance  PerformanceConfig   `yaml:"performance"`
	Prices       PricesConfig        `yaml:"prices"`
	Files        FilesConfig         `yaml:"files"`
}

// MockFallbackEnabled reports whether TransactionService may serve sample data. Defaults to true.
func (c *Config) MockFallbackEnabled() bool {
	return c.Transactions.MockFallback == nil || *c.Transactions.MockFallback
}

// Network returns the node configuration for identifier.
func (c *Config) Network(identifier string) (NetworkNodeConfig, bool) {
	for _, n := range c.Networks {
		if strings.EqualFold(n.Identifier, identifier) {
			return n, true
		}
	}
	return NetworkNodeConfig{}, false
}

// explorerKeyEnv maps network identifiers to their API key variables.
var explorerKeyEnv = map[string]string{
	"ethereum": "ETHERSCAN_API_KEY",
	"polygon":  "POLYGONSCAN_API_KEY",
	"arbitrum": "ARBISCAN_API_KEY",
}

// Path returns CONFIG_PATH or DefaultPath.
func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return DefaultPath
}

// LoadEnv loads .env files when present. A missing file is not an error.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", f, err)
		}
		logrus.Infof("Loaded environment from %s", f)
	}
	return nil
}

// Load reads the YAML configuration file from the given path and unmarshals it.
// A missing file yields the defaults so the service can run from environment alone.
func Load(path string) (*Config, error) {
	logrus.Infof("Loading configuration from path: %s", path)

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logrus.Warnf("Config file %s not found, using defaults", path)
	case err != nil:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config data from %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logrus.Info("Configuration loaded successfully.")
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.RedisURL = v
		if cfg.Cache.Backend == "" {
			cfg.Cache.Backend = "redis"
		}
	}

	// API keys from the environment also enable networks absent from the file.
	for _, id := range []string{"ethereum", "polygon", "arbitrum"} {
		key := os.Getenv(explorerKeyEnv[id])
		if key == "" {
			continue
		}
		found := false
		for i := range cfg.Networks {
			if strings.EqualFold(cfg.Networks[i].Identifier, id) {
				cfg.Networks[i].ExplorerAPIKey = key
				found = true
			}
		}
		if !found && len(cfg.Networks) > 0 {
			logrus.Warnf("%s is set but network %s is not configured", explorerKeyEnv[id], id)
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
		logrus.Infof("Server.Port not set, defaulting to %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeoutSeconds <= 0 {
		cfg.Server.ReadTimeoutSeconds = 15
	}
	if cfg.Server.WriteTimeoutSeconds <= 0 {
		cfg.Server.WriteTimeoutSeconds = 30
	}
	if cfg.Server.IdleTimeoutSeconds <= 0 {
		cfg.Server.IdleTimeoutSeconds = 60
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	// Every known network is served when none are listed.
	if len(cfg.Networks) == 0 {
		for _, id := range []string{"ethereum", "polygon", "arbitrum"} {
			cfg.Networks = append(cfg.Networks, NetworkNodeConfig{Identifier: id, ExplorerAPIKey: os.Getenv(explorerKeyEnv[id])})
		}
		logrus.Infof("No networks configured, defaulting to %d known networks", len(cfg.Networks))
	}
	for i := range cfg.Networks {
		n := &cfg.Networks[i]
		n.Identifier = strings.ToLower(strings.TrimSpace(n.Identifier))
		if n.ScanBlocks <= 0 {
			n.ScanBlocks = 100
		}
	}

	if cfg.Explorer.TimeoutMs <= 0 {
		cfg.Explorer.TimeoutMs = 10000
	}
	if cfg.Explorer.RateLimit <= 0 {
		cfg.Explorer.RateLimit = 5 // free tier allowance
	}
	if cfg.Explorer.Burst <= 0 {
		cfg.Explorer.Burst = 1
	}

	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.Cache.TTLMinutes <= 0 {
		cfg.Cache.TTLMinutes = 5
	}
	if cfg.Cache.CleanupIntervalMinutes <= 0 {
		cfg.Cache.CleanupIntervalMinutes = 10
	}

	if cfg.Transactions.HistoryLimit <= 0 {
		cfg.Transactions.HistoryLimit = 50
	}

	if cfg.Performance.MaxConcurrentRoutines <= 0 {
		cfg.Performance.MaxConcurrentRoutines = 10
	}
	if cfg.Performance.RPCCallTimeoutSeconds <= 0 {
		cfg.Performance.RPCCallTimeoutSeconds = 10
	}
	if cfg.Performance.ScanConcurrency <= 0 {
		cfg.Performance.ScanConcurrency = 8
	}

	if cfg.Prices.Provider == "" {
		cfg.Prices.Provider = "zero"
	}
	ds := &cfg.Prices.DEXScreener
	if ds.BaseURL == "" {
		ds.BaseURL = "https://api.dexscreener.com"
	}
	if ds.RequestTimeoutMillis <= 0 {
		ds.RequestTimeoutMillis = 10000
	}
	if ds.CacheTTLMinutes <= 0 {
		ds.CacheTTLMinutes = 60
	}
	if ds.MaxTokensPerBatchRequest <= 0 {
		ds.MaxTokensPerBatchRequest = 30 // DEXScreener limit
	}
}

// Validate rejects unsupported settings.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("cache backend redis requires cache.redisURL or REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	switch c.Prices.Provider {
	case "zero", "dexscreener":
	default:
		return fmt.Errorf("unknown price provider %q", c.Prices.Provider)
	}
	seen := make(map[string]struct{}, len(c.Networks))
	for _, n := range c.Networks {
		if n.Identifier == "" {
			return fmt.Errorf("network entry without identifier")
		}
		if _, dup := seen[n.Identifier]; dup {
			return fmt.Errorf("network %q configured twice", n.Identifier)
		}
		seen[n.Identifier] = struct{}{}
	}
	return nil
}
