package engine_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	engine "github.com/xiaoyu21git/astockquant"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := engine.DefaultConfig()
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	contents := `
mode: backtest
backtest:
  start_time: 2024-01-01T00:00:00Z
  end_time: 2024-01-02T00:00:00Z
  step: 1s
bus:
  mode: async
  policy: batch
  batch_n: 5
  executor_kind: inline
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := engine.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "backtest", cfg.Mode)
	assert.Equal(t, "async", cfg.Bus.Mode)
	assert.Equal(t, 5, cfg.Bus.BatchN)
}

func TestLoadConfigTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.toml")
	contents := `
mode = "accelerated"

[accelerated]
factor = 60.0

[bus]
mode = "sync"
policy = "immediate"
executor_kind = "inline"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := engine.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "accelerated", cfg.Mode)
	assert.Equal(t, 60.0, cfg.Accelerated.Factor)
}

func TestLoadConfigRejectsUnknownExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.ini")
	require.NoError(t, os.WriteFile(path, []byte("mode=backtest"), 0o600))

	_, err := engine.LoadConfig(path)
	assert.ErrorIs(t, err, engine.ErrInvalidArgument)
}

func TestValidateRejectsBatchWithoutN(t *testing.T) {
	cfg := engine.DefaultConfig()
	cfg.Bus.Policy = "batch"
	cfg.Bus.BatchN = 0
	assert.ErrorIs(t, cfg.Validate(), engine.ErrInvalidArgument)
}

func TestValidateRejectsBacktestWithoutWindow(t *testing.T) {
	cfg := engine.DefaultConfig()
	cfg.Mode = "backtest"
	assert.ErrorIs(t, cfg.Validate(), engine.ErrInvalidArgument)
}
