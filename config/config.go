/*
Package config provides configuration of the jobmarket client.

Configuration is a single YAML file, every omitted field gets its default
value (see Default). Loaded configuration is validated, so the consumers
may rely on it without further checks.
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/nspcc-dev/jobmarket/event"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config is the client configuration.
type Config struct {
	Logger       LoggerConfig       `yaml:"logger"`
	RPC          RPCConfig          `yaml:"rpc"`
	Contract     ContractConfig     `yaml:"contract"`
	ContentStore ContentStoreConfig `yaml:"content_store"`
	Cache        CacheConfig        `yaml:"cache"`
	Events       EventsConfig       `yaml:"events"`
	Resolve      ResolveConfig      `yaml:"resolve"`
	Wallet       WalletConfig       `yaml:"wallet"`
}

// LoggerConfig configures logging.
type LoggerConfig struct {
	// Level is one of debug, info, warn, error. Default: info.
	Level string `yaml:"level"`
}

// RPCConfig configures connection to the Neo RPC node.
type RPCConfig struct {
	Endpoint       string        `yaml:"endpoint"`
	DialTimeout    time.Duration `yaml:"dial_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// ContractConfig identifies the marketplace contract. Address takes
// precedence, otherwise the contract is looked up by ID.
type ContractConfig struct {
	// Address is either Neo address or LE hex of the script hash.
	Address string `yaml:"address"`
	ID      int32  `yaml:"id"`
}

// ContentStoreConfig configures the off-chain content store.
type ContentStoreConfig struct {
	UploadEndpoint  string        `yaml:"upload_endpoint"`
	GatewayEndpoint string        `yaml:"gateway_endpoint"`
	Secret          string        `yaml:"secret"`
	SecretHeader    string        `yaml:"secret_header"`
	Timeout         time.Duration `yaml:"timeout"`
}

// CacheConfig configures local caches.
type CacheConfig struct {
	// Path of the persistent cache database. Empty means in-memory cache
	// only.
	Path string `yaml:"path"`
	// MemorySize is the capacity of the in-memory cache.
	MemorySize int `yaml:"memory_size"`
}

// EventsConfig configures event decoding.
type EventsConfig struct {
	// CreatedLayout is the payload layout of the Created event.
	CreatedLayout string `yaml:"created_layout"`
}

// ResolveConfig configures content resolution.
type ResolveConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// WalletConfig configures the local account. Without it only public
// contents are resolved.
type WalletConfig struct {
	WIF string `yaml:"wif"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Logger: LoggerConfig{Level: "info"},
		RPC: RPCConfig{
			DialTimeout:    5 * time.Second,
			RequestTimeout: 15 * time.Second,
		},
		ContentStore: ContentStoreConfig{
			SecretHeader: "X-Secret",
			Timeout:      30 * time.Second,
		},
		Cache:   CacheConfig{MemorySize: 1024},
		Events:  EventsConfig{CreatedLayout: event.LayoutAllowedWorkers.String()},
		Resolve: ResolveConfig{Concurrency: 8},
	}
}

// Load reads configuration from the given YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration over the defaults and validates it.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	if c.RPC.DialTimeout < 0 || c.RPC.RequestTimeout < 0 {
		return errors.New("negative RPC timeout")
	}
	if c.Contract.Address != "" {
		if _, err := c.ContractHash(); err != nil {
			return err
		}
	}
	if c.ContentStore.Timeout < 0 {
		return errors.New("negative content store timeout")
	}
	if c.Cache.MemorySize <= 0 {
		return fmt.Errorf("cache.memory_size must be positive, got %d", c.Cache.MemorySize)
	}
	if _, err := c.CreatedLayout(); err != nil {
		return err
	}
	if c.Resolve.Concurrency <= 0 {
		return fmt.Errorf("resolve.concurrency must be positive, got %d", c.Resolve.Concurrency)
	}
	return nil
}

// LogLevel returns parsed logger level.
func (c *Config) LogLevel() (zapcore.Level, error) {
	lvl, err := zapcore.ParseLevel(c.Logger.Level)
	if err != nil {
		return lvl, fmt.Errorf("logger.level: %w", err)
	}
	return lvl, nil
}

// ContractHash returns script hash of the configured contract address.
func (c *Config) ContractHash() (util.Uint160, error) {
	h, err := address.StringToUint160(c.Contract.Address)
	if err == nil {
		return h, nil
	}
	h, err = util.Uint160DecodeStringLE(c.Contract.Address)
	if err != nil {
		return h, fmt.Errorf("contract.address: %q is neither address nor script hash", c.Contract.Address)
	}
	return h, nil
}

// CreatedLayout returns parsed layout of the Created event.
func (c *Config) CreatedLayout() (event.CreatedLayout, error) {
	l, err := event.ParseCreatedLayout(c.Events.CreatedLayout)
	if err != nil {
		return l, fmt.Errorf("events.created_layout: %w", err)
	}
	return l, nil
}
