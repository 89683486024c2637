// Package config loads Emerald's configuration from a YAML file with
// environment-variable overrides.
//
// Grounded on the teacher's node.Config/DefaultConfig/Validate/
// configError pattern (node/config.go), and on the environment-override
// layering named in original_source/cli/src/config.rs
// (config::Environment::with_prefix("MALACHITE").separator("__")) —
// this port uses prefix EMERALD with the same "__" separator.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is Emerald's full runtime configuration.
type Config struct {
	ChainID string

	// EngineAuthRPCAddr is the JWT-authenticated Engine API endpoint
	// (forkchoiceUpdated/newPayload/getPayload). ExecutionAuthRPCAddr is
	// the standard eth_* RPC endpoint (e.g. the registry's eth_call) —
	// distinct per spec §6, since most EL configurations serve them on
	// different ports with different auth.
	EngineAuthRPCAddr    string
	ExecutionAuthRPCAddr string
	JWTSecretPath        string
	FeeRecipient         string

	// ELNodeType declares the execution layer's pruning posture
	// (archive or full), which affects what GetPayloadBodiesByRange can
	// be expected to return for old heights.
	ELNodeType string

	// ELInMemoryBlocks is the EL's configured in-memory block
	// persistence threshold, as declared by the operator (the Engine
	// API exposes no way to query it directly). 0 means unknown, and
	// skips the BodyPruneWindow cross-check at startup.
	ELInMemoryBlocks uint64

	DataDir string

	RetryInitialDelay time.Duration
	RetryMultiplier   float64
	RetryMaxDelay     time.Duration
	RetryMaxElapsed   time.Duration

	SyncTimeout      time.Duration
	SyncInitialDelay time.Duration

	CertificatePruneWindow uint64
	BodyPruneWindow        uint64

	MetricsEnabled bool
	MetricsAddr    string

	AdminAddr string

	LogLevel string
}

const (
	ELNodeTypeArchive = "archive"
	ELNodeTypeFull    = "full"
)

// Default returns Emerald's default configuration.
func Default() *Config {
	return &Config{
		ChainID:                "emerald",
		EngineAuthRPCAddr:      "http://127.0.0.1:8551",
		ExecutionAuthRPCAddr:   "http://127.0.0.1:8545",
		JWTSecretPath:          "./jwt.hex",
		FeeRecipient:           "0x0000000000000000000000000000000000000000",
		ELNodeType:             ELNodeTypeFull,
		ELInMemoryBlocks:       0,
		DataDir:                "./data",
		RetryInitialDelay:      100 * time.Millisecond,
		RetryMultiplier:        2,
		RetryMaxDelay:          5 * time.Second,
		RetryMaxElapsed:        30 * time.Second,
		SyncTimeout:            30 * time.Second,
		SyncInitialDelay:       100 * time.Millisecond,
		CertificatePruneWindow: 10_000,
		BodyPruneWindow:        1_000,
		MetricsEnabled:         true,
		MetricsAddr:            "0.0.0.0:26660",
		AdminAddr:              "0.0.0.0:26661",
		LogLevel:               "info",
	}
}

// configError is a sentinel-style string error, matching the teacher's
// own configError pattern.
type configError string

func (e configError) Error() string { return string(e) }

const (
	ErrEmptyChainID       = configError("chain ID is required")
	ErrEmptyEngineAddr    = configError("engine authrpc address is required")
	ErrEmptyExecutionAddr = configError("execution authrpc address is required")
	ErrEmptyDataDir       = configError("data directory is required")
	ErrInvalidELNodeType  = configError("el_node_type must be archive or full")
)

// Validate checks required fields are populated.
func (c *Config) Validate() error {
	if c.ChainID == "" {
		return ErrEmptyChainID
	}
	if c.EngineAuthRPCAddr == "" {
		return ErrEmptyEngineAddr
	}
	if c.ExecutionAuthRPCAddr == "" {
		return ErrEmptyExecutionAddr
	}
	if c.ELNodeType != ELNodeTypeArchive && c.ELNodeType != ELNodeTypeFull {
		return ErrInvalidELNodeType
	}
	if c.DataDir == "" {
		return ErrEmptyDataDir
	}
	return nil
}

// ValidateRetention checks BodyPruneWindow (num_temp_blocks_retained)
// against the EL's declared in-memory persistence threshold, per
// spec §4.3's startup invariant: restart-after-crash cannot reimport
// recent blocks if Emerald prunes bodies the EL itself no longer has
// in memory. Skipped when ELInMemoryBlocks is 0 (threshold unknown).
func (c *Config) ValidateRetention() error {
	if c.ELInMemoryBlocks == 0 {
		return nil
	}
	if c.BodyPruneWindow < c.ELInMemoryBlocks {
		return fmt.Errorf("prune.body_window (%d) must be >= el_in_memory_blocks (%d): restart-after-crash could not reimport recent blocks", c.BodyPruneWindow, c.ELInMemoryBlocks)
	}
	return nil
}

// Load reads configuration from the YAML file at path, layering
// environment variable overrides with prefix EMERALD (e.g.
// EMERALD_ENGINE__AUTHRPC_ADDR overrides engine.authrpc_addr).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("EMERALD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	v.AutomaticEnv()

	setDefaults(v, Default())

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := &Config{
		ChainID:                v.GetString("chain_id"),
		EngineAuthRPCAddr:      v.GetString("engine.authrpc_addr"),
		ExecutionAuthRPCAddr:   v.GetString("engine.execution_authrpc_addr"),
		JWTSecretPath:          v.GetString("engine.jwt_secret_path"),
		FeeRecipient:           v.GetString("engine.fee_recipient"),
		ELNodeType:             v.GetString("engine.el_node_type"),
		ELInMemoryBlocks:       v.GetUint64("engine.el_in_memory_blocks"),
		DataDir:                v.GetString("data_dir"),
		RetryInitialDelay:      v.GetDuration("retry.initial_delay"),
		RetryMultiplier:        v.GetFloat64("retry.multiplier"),
		RetryMaxDelay:          v.GetDuration("retry.max_delay"),
		RetryMaxElapsed:        v.GetDuration("retry.max_elapsed_time"),
		SyncTimeout:            v.GetDuration("sync.timeout"),
		SyncInitialDelay:       v.GetDuration("sync.initial_delay"),
		CertificatePruneWindow: v.GetUint64("prune.certificate_window"),
		BodyPruneWindow:        v.GetUint64("prune.body_window"),
		MetricsEnabled:         v.GetBool("metrics.enabled"),
		MetricsAddr:            v.GetString("metrics.addr"),
		AdminAddr:              v.GetString("admin.addr"),
		LogLevel:               v.GetString("log_level"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("chain_id", d.ChainID)
	v.SetDefault("engine.authrpc_addr", d.EngineAuthRPCAddr)
	v.SetDefault("engine.execution_authrpc_addr", d.ExecutionAuthRPCAddr)
	v.SetDefault("engine.jwt_secret_path", d.JWTSecretPath)
	v.SetDefault("engine.fee_recipient", d.FeeRecipient)
	v.SetDefault("engine.el_node_type", d.ELNodeType)
	v.SetDefault("engine.el_in_memory_blocks", d.ELInMemoryBlocks)
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("retry.initial_delay", d.RetryInitialDelay)
	v.SetDefault("retry.multiplier", d.RetryMultiplier)
	v.SetDefault("retry.max_delay", d.RetryMaxDelay)
	v.SetDefault("retry.max_elapsed_time", d.RetryMaxElapsed)
	v.SetDefault("sync.timeout", d.SyncTimeout)
	v.SetDefault("sync.initial_delay", d.SyncInitialDelay)
	v.SetDefault("prune.certificate_window", d.CertificatePruneWindow)
	v.SetDefault("prune.body_window", d.BodyPruneWindow)
	v.SetDefault("metrics.enabled", d.MetricsEnabled)
	v.SetDefault("metrics.addr", d.MetricsAddr)
	v.SetDefault("admin.addr", d.AdminAddr)
	v.SetDefault("log_level", d.LogLevel)
}

