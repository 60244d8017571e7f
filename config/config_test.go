package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_ErrorsOnExplicitMissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "reading")
}

func TestLoad_AppliesDefaultsWithExplicitEmptyConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "http://localhost:5984", cfg.CouchDB.URL)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "text", cfg.Log.Format)
	require.Equal(t, ":8080", cfg.HTTP.Addr)
	require.Equal(t, 30*time.Second, cfg.GC.PollingInterval)
	require.Equal(t, 5*time.Minute, cfg.Controllers["users"].PollingInterval)
}

func TestLoad_ReadsValuesFromConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "forge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
couchdb:
  url: http://couch.internal:5984
log:
  level: debug
  format: json
http:
  addr: :9090
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "http://couch.internal:5984", cfg.CouchDB.URL)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Format)
	require.Equal(t, ":9090", cfg.HTTP.Addr)
}

func TestLoad_RejectsInvalidLogLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "forge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: not-a-level
`), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "log.level")
}

func TestValidator_AccumulatesMultipleErrors(t *testing.T) {
	v := NewValidator()
	v.RequireURL("couchdb.url", "not-a-url")
	v.RequireOneOf("log.level", "bogus", []string{"info", "debug"})

	require.False(t, v.IsValid())
	require.Len(t, v.Errors(), 2)

	err := v.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "couchdb.url")
	require.Contains(t, err.Error(), "log.level")
}

func TestValidator_RequireURLAcceptsHTTPAndHTTPS(t *testing.T) {
	v := NewValidator()
	v.RequireURL("a", "http://example.com")
	v.RequireURL("b", "https://example.com")
	require.True(t, v.IsValid())
}

func TestValidator_RequireOneOfRejectsEmpty(t *testing.T) {
	v := NewValidator()
	v.RequireOneOf("log.level", "", []string{"info", "debug"})
	require.False(t, v.IsValid())
	require.Contains(t, v.Errors()[0], "required")
}
