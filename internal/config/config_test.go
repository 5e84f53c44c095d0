package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.APIPort)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "chronoplan.db", cfg.Database.Path)
	assert.Equal(t, "https://app.chronoplan.io", cfg.FrontendURL)
	assert.Equal(t, "log", cfg.Mail.Mode)
	assert.False(t, cfg.Domains.Secure)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := `apiPort: 9000
database:
  type: postgres
  host: db.internal
  port: "5432"
  name: chronoplan
  user: app
frontendUrl: https://app.example.com
auth:
  jwtSecret: file-secret
domains:
  secure: true
mail:
  mode: ses
  from: no-reply@example.com
  region: eu-west-1
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.APIPort)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "https://app.example.com", cfg.FrontendURL)
	assert.Equal(t, "file-secret", cfg.Auth.JWTSecret)
	assert.True(t, cfg.Domains.Secure)
	assert.Equal(t, "ses", cfg.Mail.Mode)
}

func TestLoadConfigJWTSecretFromEnv(t *testing.T) {
	t.Setenv("CHRONOPLAN_JWT_SECRET", "env-secret")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
}

func TestLoadConfigSecureDefaultFromEnv(t *testing.T) {
	t.Setenv("CHRONOPLAN_ENV", "prod")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.True(t, cfg.Domains.Secure)
}

func TestLoadConfigRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml:::"), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
