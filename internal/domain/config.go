package domain

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete Harrier configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server" yaml:"server"`

	// Tier determines feature availability
	Tier Tier `json:"tier" yaml:"tier"`

	// Chain holds the Etherscan-compatible provider settings
	Chain ChainConfig `json:"chain" yaml:"chain"`

	// Model holds the classifier artifact locations
	Model ModelConfig `json:"model" yaml:"model"`

	// Component configurations
	Repository RepositoryConfig `json:"repository" yaml:"repository"`
	Cache      CacheConfig      `json:"cache" yaml:"cache"`
	EventBus   EventBusConfig   `json:"eventBus" yaml:"eventBus"`

	// Governance forwards fraud alerts to an external review system
	Governance GovernanceConfig `json:"governance" yaml:"governance"`

	// Policy rules applied on top of model output
	Policy []PolicyRuleConfig `json:"policy" yaml:"policy"`

	// Observability
	Logging LoggingConfig `json:"logging" yaml:"logging"`
	Tracing TracingConfig `json:"tracing" yaml:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host" yaml:"host"`
	Port         int    `json:"port" yaml:"port"`
	ReadTimeout  int    `json:"readTimeout" yaml:"readTimeout"`   // seconds
	WriteTimeout int    `json:"writeTimeout" yaml:"writeTimeout"` // seconds
}

// ChainConfig holds settings for the upstream wallet data provider.
type ChainConfig struct {
	// BaseURL of the Etherscan-compatible API
	BaseURL string `json:"baseUrl" yaml:"baseUrl"`

	// APIKey for the provider; may reference an env var in YAML via ${...}
	APIKey string `json:"apiKey" yaml:"apiKey"`

	// PageSize is the number of records requested per page
	PageSize int `json:"pageSize" yaml:"pageSize"`

	// MaxPages caps pagination per transaction list
	MaxPages int `json:"maxPages" yaml:"maxPages"`

	// RequestIntervalMs is the minimum spacing between provider calls
	RequestIntervalMs int `json:"requestIntervalMs" yaml:"requestIntervalMs"`

	// TimeoutSeconds bounds a single provider call
	TimeoutSeconds int `json:"timeoutSeconds" yaml:"timeoutSeconds"`

	// MaxAttempts bounds retries on transient provider errors
	MaxAttempts int `json:"maxAttempts" yaml:"maxAttempts"`

	// SnapshotTTLSeconds controls how long cached wallet snapshots stay fresh
	SnapshotTTLSeconds int `json:"snapshotTtlSeconds" yaml:"snapshotTtlSeconds"`
}

// RequestInterval returns the configured provider call spacing.
func (c ChainConfig) RequestInterval() time.Duration {
	return time.Duration(c.RequestIntervalMs) * time.Millisecond
}

// SnapshotTTL returns the configured snapshot freshness window.
func (c ChainConfig) SnapshotTTL() time.Duration {
	return time.Duration(c.SnapshotTTLSeconds) * time.Second
}

// ModelConfig holds the classifier and preprocessor artifact paths.
type ModelConfig struct {
	// Path to the tree-ensemble JSON artifact
	ModelPath string `json:"modelPath" yaml:"modelPath"`

	// Path to the scaler and label-encoder JSON artifact
	PreprocessorPath string `json:"preprocessorPath" yaml:"preprocessorPath"`
}

// GovernanceConfig controls alert forwarding to an external review endpoint.
type GovernanceConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	Endpoint    string `json:"endpoint" yaml:"endpoint"`
	MaxAttempts int    `json:"maxAttempts" yaml:"maxAttempts"`
	BaseDelayMs int    `json:"baseDelayMs" yaml:"baseDelayMs"`
}

// BaseDelay returns the initial backoff delay for alert delivery.
func (c GovernanceConfig) BaseDelay() time.Duration {
	return time.Duration(c.BaseDelayMs) * time.Millisecond
}

// PolicyRuleConfig is one CEL policy rule evaluated against a finished report.
type PolicyRuleConfig struct {
	ID         string `json:"id" yaml:"id"`
	Expression string `json:"expression" yaml:"expression"`
	Action     string `json:"action" yaml:"action"` // review, reject
	Reason     string `json:"reason" yaml:"reason"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool   `json:"enabled" yaml:"enabled"`
	ServiceName  string `json:"serviceName" yaml:"serviceName"`
	ExporterType string `json:"exporterType" yaml:"exporterType"` // stdout, otlp, jaeger
	Endpoint     string `json:"endpoint" yaml:"endpoint"`
}

// Tier represents the product tier.
type Tier string

const (
	// TierCommunity is the free tier with SQLite + channels
	TierCommunity Tier = "community"

	// TierPro is the paid tier with PostgreSQL + NATS + Redis
	TierPro Tier = "pro"

	// TierEnterprise includes multi-node, SSO, etc.
	TierEnterprise Tier = "enterprise"
)

// DefaultConfig returns a default configuration for Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Tier: TierCommunity,
		Chain: ChainConfig{
			BaseURL:            "https://api.etherscan.io/api",
			PageSize:           100,
			MaxPages:           10,
			RequestIntervalMs:  250,
			TimeoutSeconds:     15,
			MaxAttempts:        3,
			SnapshotTTLSeconds: 300,
		},
		Model: ModelConfig{
			ModelPath:        "./models/fraud_model.json",
			PreprocessorPath: "./models/preprocessors.json",
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./harrier.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Governance: GovernanceConfig{
			Enabled:     false,
			MaxAttempts: 3,
			BaseDelayMs: 500,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "harrier",
		},
	}
}

// ProConfig returns a configuration for Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "harrier",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
		LocalTTL:       time.Minute,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}

// LoadConfig reads a YAML configuration file, expands ${ENV_VAR} references,
// and overlays it on the tier defaults.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(raw))

	// Peek at the tier first so the overlay starts from the right defaults.
	var probe struct {
		Tier Tier `yaml:"tier"`
	}
	if err := yaml.Unmarshal([]byte(expanded), &probe); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := DefaultConfig()
	if probe.Tier == TierPro || probe.Tier == TierEnterprise {
		cfg = ProConfig()
		cfg.Tier = probe.Tier
	}

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
