package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "emerald.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "chain_id: testnet\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "testnet", cfg.ChainID)
	require.Equal(t, Default().EngineAuthRPCAddr, cfg.EngineAuthRPCAddr)
	require.Equal(t, Default().ExecutionAuthRPCAddr, cfg.ExecutionAuthRPCAddr)
	require.Equal(t, Default().ELNodeType, cfg.ELNodeType)
	require.Equal(t, Default().RetryMaxElapsed, cfg.RetryMaxElapsed)
}

func TestLoadOverridesFromFile(t *testing.T) {
	path := writeConfig(t, "chain_id: testnet\nengine:\n  authrpc_addr: http://example:8551\n  execution_authrpc_addr: http://example:8545\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "http://example:8551", cfg.EngineAuthRPCAddr)
	require.Equal(t, "http://example:8545", cfg.ExecutionAuthRPCAddr)
}

func TestLoadRejectsMissingChainID(t *testing.T) {
	path := writeConfig(t, "chain_id: \"\"\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidateRequiresFields(t *testing.T) {
	cfg := Default()
	cfg.ChainID = ""
	require.ErrorIs(t, cfg.Validate(), ErrEmptyChainID)
}

func TestValidateRejectsBadELNodeType(t *testing.T) {
	cfg := Default()
	cfg.ELNodeType = "pruned"
	require.ErrorIs(t, cfg.Validate(), ErrInvalidELNodeType)
}

func TestValidateRetentionRejectsUndersizedWindow(t *testing.T) {
	cfg := Default()
	cfg.BodyPruneWindow = 64
	cfg.ELInMemoryBlocks = 128
	require.Error(t, cfg.ValidateRetention())
}

func TestValidateRetentionSkippedWhenThresholdUnknown(t *testing.T) {
	cfg := Default()
	cfg.BodyPruneWindow = 1
	cfg.ELInMemoryBlocks = 0
	require.NoError(t, cfg.ValidateRetention())
}
