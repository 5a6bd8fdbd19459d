// Package config holds the explicit configuration of the submission service.
// Values come from an optional YAML file, then from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Content backends.
const (
	BackendMemory = "memory"
	BackendIPFS   = "ipfs"
	BackendPinata = "pinata"
)

// Config is loaded once at startup and passed to constructors.
type Config struct {
	Ledger  LedgerConfig  `yaml:"ledger"`
	Content ContentConfig `yaml:"content"`
	Storage StorageConfig `yaml:"storage"`
	HTTP    HTTPConfig    `yaml:"http"`
	Verbose bool          `yaml:"verbose"`
}

// LedgerConfig configures the ledger RPC client and topics.
type LedgerConfig struct {
	RPCEndpoint        string        `yaml:"rpc_endpoint"`
	TreasuryAccountID  string        `yaml:"treasury_account_id"`
	TreasuryPrivateKey string        `yaml:"treasury_private_key"`
	RegistryTopicID    string        `yaml:"registry_topic_id"`
	AnchorTopicID      string        `yaml:"anchor_topic_id"`
	Timeout            time.Duration `yaml:"timeout"`
	MaxRetries         int           `yaml:"max_retries"`
}

// ContentConfig selects and configures the content-addressed store.
type ContentConfig struct {
	Backend      string        `yaml:"backend"`
	IPFSAPIURL   string        `yaml:"ipfs_api_url"`
	PinataAPIURL string        `yaml:"pinata_api_url"`
	PinataJWT    string        `yaml:"pinata_jwt"`
	Timeout      time.Duration `yaml:"timeout"`
}

// StorageConfig configures the DB index and event log.
type StorageConfig struct {
	PostgresDSN      string `yaml:"postgres_dsn"`
	PostgresMaxConns int32  `yaml:"postgres_max_conns"`
	ClickhouseDSN    string `yaml:"clickhouse_dsn"`
	UseMemory        bool   `yaml:"use_memory"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
	// TrackerTTL is how long a finished submission stays queryable in memory.
	TrackerTTL time.Duration `yaml:"tracker_ttl"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Ledger: LedgerConfig{
			Timeout:    30 * time.Second,
			MaxRetries: 3,
		},
		Content: ContentConfig{
			Backend:      BackendMemory,
			PinataAPIURL: "https://api.pinata.cloud",
			Timeout:      60 * time.Second,
		},
		HTTP: HTTPConfig{Addr: ":8080", TrackerTTL: time.Hour},
	}
}

// Load reads path (skipped when empty or missing) over the defaults, then
// applies environment overrides. The result is not validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("invalid config yaml %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from set environment variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("LEDGER_RPC_ENDPOINT", &c.Ledger.RPCEndpoint)
	str("TREASURY_ACCOUNT_ID", &c.Ledger.TreasuryAccountID)
	str("TREASURY_PRIVATE_KEY", &c.Ledger.TreasuryPrivateKey)
	str("REGISTRY_TOPIC_ID", &c.Ledger.RegistryTopicID)
	str("ANCHOR_TOPIC_ID", &c.Ledger.AnchorTopicID)
	str("CONTENT_BACKEND", &c.Content.Backend)
	str("IPFS_API_URL", &c.Content.IPFSAPIURL)
	str("PINATA_API_URL", &c.Content.PinataAPIURL)
	str("PINATA_JWT", &c.Content.PinataJWT)
	str("POSTGRES_DSN", &c.Storage.PostgresDSN)
	str("CLICKHOUSE_DSN", &c.Storage.ClickhouseDSN)
	str("HTTP_ADDR", &c.HTTP.Addr)

	if v, ok := lookup("USE_MEMORY"); ok && v != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("USE_MEMORY: %w", err)
		}
		c.Storage.UseMemory = b
	}
	c.Content.Backend = strings.ToLower(c.Content.Backend)
	return nil
}

// Validate checks the values required by the selected backends.
func (c *Config) Validate() error {
	if c.Ledger.RPCEndpoint == "" {
		return fmt.Errorf("ledger.rpc_endpoint is required")
	}
	if c.Ledger.TreasuryAccountID == "" {
		return fmt.Errorf("ledger.treasury_account_id is required")
	}
	if c.Ledger.TreasuryPrivateKey == "" {
		return fmt.Errorf("ledger.treasury_private_key is required")
	}
	if c.Ledger.RegistryTopicID == "" {
		return fmt.Errorf("ledger.registry_topic_id is required")
	}
	if c.Ledger.AnchorTopicID == "" {
		return fmt.Errorf("ledger.anchor_topic_id is required")
	}

	switch c.Content.Backend {
	case BackendMemory:
	case BackendIPFS:
		if c.Content.IPFSAPIURL == "" {
			return fmt.Errorf("content.ipfs_api_url is required for backend %s", BackendIPFS)
		}
	case BackendPinata:
		if c.Content.PinataJWT == "" {
			return fmt.Errorf("content.pinata_jwt is required for backend %s", BackendPinata)
		}
	default:
		return fmt.Errorf("content.backend must be one of %s, %s, %s; got %q",
			BackendMemory, BackendIPFS, BackendPinata, c.Content.Backend)
	}

	if !c.Storage.UseMemory && (c.Storage.PostgresDSN == "" || c.Storage.ClickhouseDSN == "") {
		return fmt.Errorf("storage.postgres_dsn and storage.clickhouse_dsn are required (set use_memory for in-memory storage)")
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required")
	}
	return nil
}

// LoadEnvFile loads KEY=VALUE lines from path into the environment.
// A missing file is ignored and variables already set are kept.
func LoadEnvFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
