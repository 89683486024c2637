package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/emerald-consensus/emerald/config"
)

// yamlConfig mirrors the nested key layout config.Load reads via
// viper (chain_id, engine.authrpc_addr, retry.*, ...), since config.Config
// itself is flat and carries no yaml tags.
type yamlConfig struct {
	ChainID string `yaml:"chain_id"`
	DataDir string `yaml:"data_dir"`
	Engine  struct {
		AuthRPCAddr          string `yaml:"authrpc_addr"`
		ExecutionAuthRPCAddr string `yaml:"execution_authrpc_addr"`
		JWTSecretPath        string `yaml:"jwt_secret_path"`
		FeeRecipient         string `yaml:"fee_recipient"`
		ELNodeType           string `yaml:"el_node_type"`
		ELInMemoryBlocks     uint64 `yaml:"el_in_memory_blocks"`
	} `yaml:"engine"`
	Retry struct {
		InitialDelay   string  `yaml:"initial_delay"`
		Multiplier     float64 `yaml:"multiplier"`
		MaxDelay       string  `yaml:"max_delay"`
		MaxElapsedTime string  `yaml:"max_elapsed_time"`
	} `yaml:"retry"`
	Sync struct {
		Timeout      string `yaml:"timeout"`
		InitialDelay string `yaml:"initial_delay"`
	} `yaml:"sync"`
	Prune struct {
		CertificateWindow uint64 `yaml:"certificate_window"`
		BodyWindow        uint64 `yaml:"body_window"`
	} `yaml:"prune"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"metrics"`
	Admin struct {
		Addr string `yaml:"addr"`
	} `yaml:"admin"`
	LogLevel string `yaml:"log_level"`
}

func toYAMLConfig(c *config.Config) *yamlConfig {
	y := &yamlConfig{ChainID: c.ChainID, DataDir: c.DataDir, LogLevel: c.LogLevel}
	y.Engine.AuthRPCAddr = c.EngineAuthRPCAddr
	y.Engine.ExecutionAuthRPCAddr = c.ExecutionAuthRPCAddr
	y.Engine.JWTSecretPath = c.JWTSecretPath
	y.Engine.FeeRecipient = c.FeeRecipient
	y.Engine.ELNodeType = c.ELNodeType
	y.Engine.ELInMemoryBlocks = c.ELInMemoryBlocks
	y.Retry.InitialDelay = c.RetryInitialDelay.String()
	y.Retry.Multiplier = c.RetryMultiplier
	y.Retry.MaxDelay = c.RetryMaxDelay.String()
	y.Retry.MaxElapsedTime = c.RetryMaxElapsed.String()
	y.Sync.Timeout = c.SyncTimeout.String()
	y.Sync.InitialDelay = c.SyncInitialDelay.String()
	y.Prune.CertificateWindow = c.CertificatePruneWindow
	y.Prune.BodyWindow = c.BodyPruneWindow
	y.Metrics.Enabled = c.MetricsEnabled
	y.Metrics.Addr = c.MetricsAddr
	y.Admin.Addr = c.AdminAddr
	return y
}

func newInitConfigCmd() *cobra.Command {
	var outPath string
	var force bool

	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				if _, err := os.Stat(outPath); err == nil {
					return fmt.Errorf("%s already exists, pass --force to overwrite", outPath)
				}
			}

			out, err := yaml.Marshal(toYAMLConfig(config.Default()))
			if err != nil {
				return fmt.Errorf("marshal default config: %w", err)
			}
			if err := os.WriteFile(outPath, out, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote default configuration to %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&outPath, "out", "emerald.yaml", "path to write the config file")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
