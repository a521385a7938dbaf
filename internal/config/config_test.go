package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSecret(t *testing.T, name, value string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(value), 0o600))
	return path
}

func setRequiredSecrets(t *testing.T) {
	t.Helper()
	t.Setenv("ADMIN_PASSWORD_HASH_FILE", writeSecret(t, "admin", "$2a$10$abcdefghijklmnopqrstuv\n"))
	t.Setenv("GITHUB_TOKEN_FILE", writeSecret(t, "token", "ghp_testtoken"))
}

func TestLoadDefaults(t *testing.T) {
	setRequiredSecrets(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8123", cfg.Port)
	assert.Equal(t, "/var/deploy", cfg.DeployRoot)
	assert.Equal(t, 15*time.Minute, cfg.RepoCacheTTL)
	assert.Equal(t, 5*time.Second, cfg.StatsInterval)
	assert.Equal(t, 5000, cfg.StatsMaxSamples)
	assert.Equal(t, 100, cfg.LogTail)
	assert.Equal(t, "$2a$10$abcdefghijklmnopqrstuv", cfg.AdminPasswordHash, "secret must be trimmed")
	assert.Equal(t, "ghp_testtoken", cfg.GitHubToken)
	assert.Nil(t, cfg.AllowedOrigins)
}

func TestLoadOverrides(t *testing.T) {
	setRequiredSecrets(t)
	t.Setenv("PORT", "9000")
	t.Setenv("DEPLOY_ROOT", "/srv/apps")
	t.Setenv("REPO_CACHE_TTL", "1h")
	t.Setenv("LOG_TAIL", "500")
	t.Setenv("ALLOWED_ORIGINS", "https://console.example.com, https://ops.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "/srv/apps", cfg.DeployRoot)
	assert.Equal(t, time.Hour, cfg.RepoCacheTTL)
	assert.Equal(t, 500, cfg.LogTail)
	assert.Equal(t, []string{"https://console.example.com", "https://ops.example.com"}, cfg.AllowedOrigins)
}

func TestLoadRejectsMissingSecrets(t *testing.T) {
	t.Setenv("ADMIN_PASSWORD_HASH_FILE", "")
	t.Setenv("GITHUB_TOKEN_FILE", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ADMIN_PASSWORD_HASH_FILE")
}

func TestLoadRejectsEmptySecretFile(t *testing.T) {
	t.Setenv("ADMIN_PASSWORD_HASH_FILE", writeSecret(t, "admin", "  \n"))
	t.Setenv("GITHUB_TOKEN_FILE", writeSecret(t, "token", "ghp_testtoken"))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty file")
}

func TestLoadRejectsBadDuration(t *testing.T) {
	setRequiredSecrets(t)
	t.Setenv("REPO_CACHE_TTL", "15 minutes")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REPO_CACHE_TTL")
}

func TestReloaderSwapsConfigOnSecretRotation(t *testing.T) {
	setRequiredSecrets(t)
	tokenPath := writeSecret(t, "token", "ghp_old")
	t.Setenv("GITHUB_TOKEN_FILE", tokenPath)

	initial, err := Load()
	require.NoError(t, err)

	r, err := NewReloader(initial)
	require.NoError(t, err)

	changed := make(chan string, 1)
	r.OnChange(func(old, new *Config) {
		if old.GitHubToken != new.GitHubToken {
			changed <- new.GitHubToken
		}
	})

	require.NoError(t, r.Start(t.Context()))
	defer func() { _ = r.Stop() }()

	require.NoError(t, os.WriteFile(tokenPath, []byte("ghp_new"), 0o600))

	select {
	case token := <-changed:
		assert.Equal(t, "ghp_new", token)
	case <-time.After(5 * time.Second):
		t.Fatal("reloader never picked up the rotated token")
	}
	assert.Equal(t, "ghp_new", r.GetConfig().GitHubToken)
}
