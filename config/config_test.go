package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-blog-auth"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("BLOGAUTH_AUTH_SIGNING_KEY", testKey)
	t.Setenv("BLOGAUTH_AUTH_AUDIENCE", "blog,admin")
	t.Setenv("BLOGAUTH_SERVER_BASE_URL", "https://blog.example.com")

	cfg, err := load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, testKey, cfg.GetSigningKey())
	assert.Equal(t, auth.DefaultTokenExpiration, cfg.GetTokenExpiration())
	assert.Equal(t, []string{"blog", "admin"}, cfg.GetAudience())
	assert.Equal(t, "https://blog.example.com", cfg.GetBaseURL())
	assert.Equal(t, 24*time.Hour, cfg.GetConfirmationTokenTTL())
	assert.Equal(t, 24*time.Hour, cfg.Auth.CoolDown)
	assert.Equal(t, auth.MaxLoginAttempts, cfg.Auth.MaxLoginAttempts)
	assert.Equal(t, "log", cfg.Mailer.Provider)
	assert.Equal(t, auth.DefaultPrincipalKey, cfg.GetContextKey())
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  address: ":9000"
auth:
  signing_key: "`+testKey+`"
  token_expiration: 1h
  require_confirmed_email: true
  max_login_attempts: 3
mailer:
  provider: sendgrid
  sendgrid_key: sg
`), 0o600))

	cfg, err := load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Address)
	assert.Equal(t, time.Hour, cfg.GetTokenExpiration())
	assert.True(t, cfg.GetRequireConfirmedEmail())
	assert.Equal(t, 3, cfg.Auth.MaxLoginAttempts)
	assert.Equal(t, "sendgrid", cfg.Mailer.Provider)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("auth:\n  signing_key: \"short\"\n"), 0o600))
	t.Setenv("BLOGAUTH_AUTH_SIGNING_KEY", testKey)

	cfg, err := load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, testKey, cfg.GetSigningKey())
}

func TestValidate(t *testing.T) {
	_, err := load(viper.New(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signing_key")

	cfg := &Config{
		Auth: Auth{
			SigningKey:            testKey,
			TokenExpiration:       time.Hour,
			ConfirmationTokenTTL:  0,
			PasswordResetTokenTTL: time.Hour,
			MaxLoginAttempts:      5,
		},
		Mailer: Mailer{Provider: "mailgun"},
	}
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "confirmation_token_ttl")
	assert.Contains(t, err.Error(), "mailgun_key")

	cfg.Auth.ConfirmationTokenTTL = time.Hour
	cfg.Mailer.Provider = "pigeon"
	assert.ErrorContains(t, cfg.Validate(), "unknown mailer.provider")
}

func TestString_MasksSecrets(t *testing.T) {
	cfg := &Config{
		Auth:   Auth{SigningKey: testKey},
		Mailer: Mailer{SendGridKey: "sg-secret"},
	}
	out := cfg.String()
	assert.False(t, strings.Contains(out, testKey))
	assert.False(t, strings.Contains(out, "sg-secret"))
}
