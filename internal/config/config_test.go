package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, []string{"localhost:6379"}, cfg.RedisNodes)
	assert.False(t, cfg.UseQuorum)
	assert.Equal(t, 10*time.Second, cfg.LockTTL)
	assert.Equal(t, 3, cfg.LockMaxRetries)
	assert.Equal(t, 0.01, cfg.DriftFactor)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
http_addr: ":9999"
use_quorum: true
redis_nodes:
  - "redis-a:6379"
  - "redis-b:6379"
  - "redis-c:6379"
lock_ttl: 5s
node_timeout: 40ms
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.True(t, cfg.UseQuorum)
	assert.Len(t, cfg.RedisNodes, 3)
	assert.Equal(t, 5*time.Second, cfg.LockTTL)
}

func TestLoad_QuorumNeedsOddNodes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
use_quorum: true
redis_nodes: ["a:6379", "b:6379"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_NodeTimeoutBound(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
lock_ttl: 1s
node_timeout: 500ms
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("FLASHSTOCK_HTTP_ADDR", ":7777")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7777", cfg.HTTPAddr)
}
