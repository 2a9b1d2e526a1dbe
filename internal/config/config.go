package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/screa/evm-discovery/internal/logger"
	"github.com/screa/evm-discovery/pkg/types"
)

// EnvPrefix is the prefix of environment variables overriding flags
const EnvPrefix = "EVM_DISCOVERY"

// Errors
var (
	ErrNoProject        = errors.New("must specify --project")
	ErrNoChain          = errors.New("must specify --chain")
	ErrNoRPCURL         = errors.New("must specify --rpc-url")
	ErrNoDiscoveryRoot  = errors.New("must specify --discovery-root")
	ErrNegativeRetries  = errors.New("--max-retries must not be negative")
	ErrNegativeDelay    = errors.New("--retry-delay-ms must not be negative")
	ErrInvalidLogFormat = errors.New("--log-format must be text or json")
)

// Config holds the application configuration
type Config struct {
	Project                string
	Chain                  string
	RPCURL                 string
	DiscoveryRoot          string
	BlockNumber            uint64 // 0 means latest
	Workers                int
	RPCRateLimit           float64 // requests per second, 0 disables
	SanityCheck            bool
	InjectInitialAddresses bool
	MaxRetries             int
	RetryDelayMs           int
	LogLevel               string
	LogFormat              string
	MetricsAddr            string
	Trace                  bool
	DryRun                 bool
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		DiscoveryRoot: "discovery",
		Workers:       runtime.NumCPU(),
		LogLevel:      "info",
		LogFormat:     logger.FormatText,
	}
}

// Load reads the configuration from v, falling back to defaults for unset keys
func Load(v *viper.Viper) *Config {
	cfg := NewConfig()
	cfg.Project = v.GetString("project")
	cfg.Chain = v.GetString("chain")
	cfg.RPCURL = v.GetString("rpc-url")
	if v.IsSet("discovery-root") {
		cfg.DiscoveryRoot = v.GetString("discovery-root")
	}
	cfg.BlockNumber = v.GetUint64("block-number")
	if v.IsSet("workers") {
		cfg.Workers = v.GetInt("workers")
	}
	cfg.RPCRateLimit = v.GetFloat64("rpc-rate-limit")
	cfg.SanityCheck = v.GetBool("sanity-check")
	cfg.InjectInitialAddresses = v.GetBool("inject-initial-addresses")
	cfg.MaxRetries = v.GetInt("max-retries")
	cfg.RetryDelayMs = v.GetInt("retry-delay-ms")
	if v.IsSet("log-level") {
		cfg.LogLevel = v.GetString("log-level")
	}
	if v.IsSet("log-format") {
		cfg.LogFormat = v.GetString("log-format")
	}
	cfg.MetricsAddr = v.GetString("metrics-addr")
	cfg.Trace = v.GetBool("trace")
	cfg.DryRun = v.GetBool("dry-run")
	return cfg
}

// BindEnv makes every key of v overridable through EVM_DISCOVERY_* variables
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Project == "" {
		return ErrNoProject
	}
	if c.Chain == "" {
		return ErrNoChain
	}
	if c.RPCURL == "" {
		return ErrNoRPCURL
	}
	if c.DiscoveryRoot == "" {
		return ErrNoDiscoveryRoot
	}
	if c.MaxRetries < 0 {
		return ErrNegativeRetries
	}
	if c.RetryDelayMs < 0 {
		return ErrNegativeDelay
	}
	if c.LogFormat != logger.FormatText && c.LogFormat != logger.FormatJSON {
		return ErrInvalidLogFormat
	}
	return nil
}

// RunOptions returns the orchestration options of this configuration
func (c *Config) RunOptions() types.Options {
	return types.Options{
		RunSanityCheck:         c.SanityCheck,
		InjectInitialAddresses: c.InjectInitialAddresses,
		MaxRetries:             c.MaxRetries,
		RetryDelay:             time.Duration(c.RetryDelayMs) * time.Millisecond,
	}
}

// GetRunDescription returns a human-readable description of the requested run
func (c *Config) GetRunDescription() string {
	desc := "single pass"
	if c.SanityCheck {
		desc = "two passes (sanity check)"
	}
	if c.InjectInitialAddresses {
		desc += ", injected initial addresses"
	}
	if c.MaxRetries > 0 {
		desc += fmt.Sprintf(", up to %d retries every %dms", c.MaxRetries, c.RetryDelayMs)
	}
	return desc
}
