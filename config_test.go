package membership_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	membership "github.com/civicmesh/membership"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := membership.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8087", cfg.Addr())
	assert.Equal(t, 30*24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 24*time.Hour, cfg.Registration.PendingTTL)
	assert.Equal(t, "memberd", cfg.Auth.Issuer)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memberd.yaml")
	data := `
server:
  host: 127.0.0.1
  port: 9000
auth:
  signing_key: file-key
  token_ttl: 2h
registration:
  pending_ttl: 12h
  client_url: https://example.org
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := membership.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Addr())
	assert.Equal(t, "file-key", cfg.Auth.SigningKey)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 12*time.Hour, cfg.Registration.PendingTTL)
	assert.Equal(t, "https://example.org", cfg.Registration.ClientURL)
	assert.NoError(t, cfg.ValidateForServe())
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("MEMBERD_PORT", "9100")
	t.Setenv("MEMBERD_SIGNING_KEY", "env-key")

	cfg, err := membership.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "env-key", cfg.Auth.SigningKey)
}

func TestValidateForServeRequiresSigningKey(t *testing.T) {
	cfg := membership.DefaultConfig()
	assert.Error(t, cfg.ValidateForServe())

	cfg.Auth.SigningKey = "some-key"
	assert.NoError(t, cfg.ValidateForServe())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := membership.LoadConfig("/does/not/exist.yaml")
	assert.Error(t, err)
}
