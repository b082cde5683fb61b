package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0644))
	return dir
}

func TestLoadConfigDefaults(t *testing.T) {
	certs := filepath.Join(t.TempDir(), "certificates")
	dir := writeConfig(t, `
jwt:
  secret: test-secret
  expire_hours: 2
storage:
  local_path: `+certs+`
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, time.Second, cfg.Exam.TickInterval)
	assert.Equal(t, "redis", cfg.Exam.SessionBackend)
	assert.Equal(t, 24*time.Hour, cfg.Exam.SessionTTL())
	assert.Equal(t, 2*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, 50, cfg.Redis.PoolSize)
	assert.Equal(t, 5, cfg.Redis.MinIdleConns)
	assert.DirExists(t, certs)
}

func TestLoadConfigExamSection(t *testing.T) {
	dir := writeConfig(t, `
storage:
  local_path: `+filepath.Join(t.TempDir(), "u")+`
exam:
  tick_interval: 250ms
  session_backend: memory
  session_ttl_hours: 6
server:
  log_level: warn
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.Exam.TickInterval)
	assert.Equal(t, "memory", cfg.Exam.SessionBackend)
	assert.Equal(t, 6*time.Hour, cfg.Exam.SessionTTL())
	assert.Equal(t, "warn", cfg.Server.LogLevel)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	local := filepath.Join(t.TempDir(), "u")
	cases := map[string]string{
		"short secret in release": "server:\n  mode: release\njwt:\n  secret: short\n",
		"unknown backend":         "exam:\n  session_backend: etcd\n",
		"non-positive tick":       "exam:\n  tick_interval: 0s\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			dir := writeConfig(t, body+"storage:\n  local_path: "+local+"\n")
			_, err := LoadConfig(dir)
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(t.TempDir())
	assert.Error(t, err)
}
