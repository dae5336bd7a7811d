package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsForOmittedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte("threads: 8\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Threads)
	assert.True(t, cfg.TrustOnFirstUse, "unset fields must keep Default's value")
	assert.Equal(t, 60, cfg.Transaction.IfElapsedSeconds)
}

func TestLoadOverridesNestedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.yaml")
	yamlDoc := "transaction:\n  if_elapsed_seconds: 5\n  expire_after_seconds: 120\n"
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Transaction.IfElapsedSeconds)
	assert.Equal(t, 120, cfg.Transaction.ExpireAfterSeconds)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load("/nonexistent/path/agent.yaml")
	assert.Error(t, err)
}

func TestValidateRejectsNonPositiveThreads(t *testing.T) {
	cfg := Default()
	cfg.Threads = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsEmptyWorkDir(t *testing.T) {
	cfg := Default()
	cfg.WorkDir = ""
	assert.Error(t, cfg.Validate())
}

func TestDurationHelpers(t *testing.T) {
	cfg := Default()
	cfg.Transaction = TransactionDefaults{IfElapsedSeconds: 30, ExpireAfterSeconds: 90}
	assert.Equal(t, 30e9, float64(cfg.IfElapsed()))
	assert.Equal(t, 90e9, float64(cfg.ExpireAfter()))
}
