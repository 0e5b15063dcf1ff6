// Package config loads the blog auth configuration from a file, the
// environment (BLOGAUTH_*) and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goliatone/go-print"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	auth "github.com/goliatone/go-blog-auth"
)

// EnvPrefix prefixes every environment override, e.g. BLOGAUTH_AUTH_SIGNING_KEY
const EnvPrefix = "BLOGAUTH"

type Server struct {
	Address string `mapstructure:"address"`
	BaseURL string `mapstructure:"base_url"`
	Debug   bool   `mapstructure:"debug"`
}

type Auth struct {
	SigningKey            string        `mapstructure:"signing_key"`
	TokenExpiration       time.Duration `mapstructure:"token_expiration"`
	Issuer                string        `mapstructure:"issuer"`
	Audience              []string      `mapstructure:"audience"`
	ContextKey            string        `mapstructure:"context_key"`
	TokenLookup           string        `mapstructure:"token_lookup"`
	AuthScheme            string        `mapstructure:"auth_scheme"`
	ConfirmationTokenTTL  time.Duration `mapstructure:"confirmation_token_ttl"`
	PasswordResetTokenTTL time.Duration `mapstructure:"password_reset_token_ttl"`
	RequireConfirmedEmail bool          `mapstructure:"require_confirmed_email"`
	UseHashid             bool          `mapstructure:"use_hashid"`
	MaxLoginAttempts      int           `mapstructure:"max_login_attempts"`
	CoolDown              time.Duration `mapstructure:"cool_down"`
	SetCookie             bool          `mapstructure:"set_cookie"`
}

type Database struct {
	DSN string `mapstructure:"dsn"`
}

type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Mailer selects and configures the email provider: log, mailgun or sendgrid
type Mailer struct {
	Provider       string        `mapstructure:"provider"`
	From           string        `mapstructure:"from"`
	FromName       string        `mapstructure:"from_name"`
	Timeout        time.Duration `mapstructure:"timeout"`
	BreakerTimeout time.Duration `mapstructure:"breaker_timeout"`
	MailgunKey     string        `mapstructure:"mailgun_key"`
	MailgunDomain  string        `mapstructure:"mailgun_domain"`
	MailgunAPIBase string        `mapstructure:"mailgun_api_base"`
	SendGridKey    string        `mapstructure:"sendgrid_key"`
}

// Config is the application configuration. It satisfies auth.Config.
type Config struct {
	Server   Server   `mapstructure:"server"`
	Auth     Auth     `mapstructure:"auth"`
	Database Database `mapstructure:"database"`
	Logger   Logger   `mapstructure:"logger"`
	Mailer   Mailer   `mapstructure:"mailer"`
}

var _ auth.Config = (*Config)(nil)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.debug", false)

	// AutomaticEnv only reaches keys viper knows about
	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_expiration", auth.DefaultTokenExpiration)
	v.SetDefault("auth.issuer", "go-blog")
	v.SetDefault("auth.audience", []string{"go-blog"})
	v.SetDefault("auth.context_key", auth.DefaultPrincipalKey)
	v.SetDefault("auth.token_lookup", "header:Authorization")
	v.SetDefault("auth.auth_scheme", "Bearer")
	v.SetDefault("auth.confirmation_token_ttl", auth.DefaultConfirmationTokenTTL)
	v.SetDefault("auth.password_reset_token_ttl", auth.DefaultPasswordResetTokenTTL)
	v.SetDefault("auth.require_confirmed_email", false)
	v.SetDefault("auth.use_hashid", false)
	v.SetDefault("auth.max_login_attempts", auth.MaxLoginAttempts)
	v.SetDefault("auth.cool_down", auth.CoolDownPeriod)
	v.SetDefault("auth.set_cookie", false)

	v.SetDefault("database.dsn", "file:blog.db?cache=shared")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "text")

	v.SetDefault("mailer.provider", "log")
	v.SetDefault("mailer.from", "no-reply@localhost")
	v.SetDefault("mailer.from_name", "Blog")
	v.SetDefault("mailer.timeout", auth.DefaultEmailTimeout)
	v.SetDefault("mailer.breaker_timeout", 30*time.Second)
	v.SetDefault("mailer.mailgun_key", "")
	v.SetDefault("mailer.mailgun_domain", "")
	v.SetDefault("mailer.mailgun_api_base", "")
	v.SetDefault("mailer.sendgrid_key", "")
}

// Load reads path (yaml, json or toml; optional), then .env, then the
// environment. Later sources win.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return load(viper.New(), path)
}

func load(v *viper.Viper, path string) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values the auth core cannot run without
func (c *Config) Validate() error {
	var errs []error

	if len(c.Auth.SigningKey) < auth.MinSigningKeyLength {
		errs = append(errs, fmt.Errorf("auth.signing_key must be at least %d bytes", auth.MinSigningKeyLength))
	}
	if c.Auth.TokenExpiration <= 0 {
		errs = append(errs, errors.New("auth.token_expiration must be positive"))
	}
	if c.Auth.ConfirmationTokenTTL <= 0 {
		errs = append(errs, errors.New("auth.confirmation_token_ttl must be positive"))
	}
	if c.Auth.PasswordResetTokenTTL <= 0 {
		errs = append(errs, errors.New("auth.password_reset_token_ttl must be positive"))
	}
	if c.Auth.MaxLoginAttempts <= 0 {
		errs = append(errs, errors.New("auth.max_login_attempts must be positive"))
	}

	switch c.Mailer.Provider {
	case "log":
	case "mailgun":
		if c.Mailer.MailgunKey == "" || c.Mailer.MailgunDomain == "" {
			errs = append(errs, errors.New("mailer.mailgun_key and mailer.mailgun_domain are required"))
		}
	case "sendgrid":
		if c.Mailer.SendGridKey == "" {
			errs = append(errs, errors.New("mailer.sendgrid_key is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown mailer.provider %q", c.Mailer.Provider))
	}

	return errors.Join(errs...)
}

// String dumps the configuration with secrets masked
func (c *Config) String() string {
	masked := *c
	masked.Auth.SigningKey = mask(c.Auth.SigningKey)
	masked.Mailer.MailgunKey = mask(c.Mailer.MailgunKey)
	masked.Mailer.SendGridKey = mask(c.Mailer.SendGridKey)
	return print.MaybePrettyJSON(masked)
}

func (c *Config) GetSigningKey() string                   { return c.Auth.SigningKey }
func (c *Config) GetTokenExpiration() time.Duration       { return c.Auth.TokenExpiration }
func (c *Config) GetIssuer() string                       { return c.Auth.Issuer }
func (c *Config) GetAudience() []string                   { return c.Auth.Audience }
func (c *Config) GetContextKey() string                   { return c.Auth.ContextKey }
func (c *Config) GetTokenLookup() string                  { return c.Auth.TokenLookup }
func (c *Config) GetAuthScheme() string                   { return c.Auth.AuthScheme }
func (c *Config) GetBaseURL() string                      { return c.Server.BaseURL }
func (c *Config) GetConfirmationTokenTTL() time.Duration  { return c.Auth.ConfirmationTokenTTL }
func (c *Config) GetPasswordResetTokenTTL() time.Duration { return c.Auth.PasswordResetTokenTTL }
func (c *Config) GetRequireConfirmedEmail() bool          { return c.Auth.RequireConfirmedEmail }
func (c *Config) GetUseHashid() bool                      { return c.Auth.UseHashid }

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}
