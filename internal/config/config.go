package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "admin", "password",
}

var validVisibilities = []string{"private", "unlisted", "public"}

type Config struct {
	Port          int    `env:"PORT" envDefault:"8080"`
	DatabaseURL   string `env:"DATABASE_URL,required"`
	RedisURL      string `env:"REDIS_URL,required"`
	JWTSecret     string `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	StateSecret   string `env:"STATE_SECRET" envDefault:"dev-secret-change-me"`
	EncryptionKey string `env:"ENCRYPTION_KEY"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL" envDefault:"http://localhost:8080/oauth/google/callback"`
	GoogleAuthURL      string `env:"GOOGLE_AUTH_URL"`
	GoogleTokenURL     string `env:"GOOGLE_TOKEN_URL"`
	YouTubeEndpoint    string `env:"YOUTUBE_ENDPOINT"`

	StagingDir           string `env:"STAGING_DIR"`
	FetchTimeoutSeconds  int    `env:"FETCH_TIMEOUT_SECONDS" envDefault:"120"`
	UploadTimeoutSeconds int    `env:"UPLOAD_TIMEOUT_SECONDS" envDefault:"600"`
	GrantStateTTLSeconds int    `env:"GRANT_STATE_TTL_SECONDS" envDefault:"600"`
	SessionTTLHours      int    `env:"SESSION_TTL_HOURS" envDefault:"24"`
	DefaultVisibility    string `env:"DEFAULT_VISIBILITY" envDefault:"private"`

	S3Region          string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint        string `env:"S3_ENDPOINT"`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`

	// Asset locations must point at one of these; everything else is refused.
	AssetAllowedHosts []string `env:"ASSET_ALLOWED_HOSTS" envSeparator:","`
	S3AllowedBuckets  []string `env:"S3_ALLOWED_BUCKETS" envSeparator:","`
}

func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

func (c *Config) UploadTimeout() time.Duration {
	return time.Duration(c.UploadTimeoutSeconds) * time.Second
}

func (c *Config) GrantStateTTL() time.Duration {
	return time.Duration(c.GrantStateTTLSeconds) * time.Second
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// S3Enabled reports whether s3:// asset locations can be resolved.
func (c *Config) S3Enabled() bool {
	return c.S3AccessKeyID != "" && c.S3SecretAccessKey != ""
}

func (c *Config) Validate(isProduction bool) error {
	if !isValidVisibility(c.DefaultVisibility) {
		return fmt.Errorf("DEFAULT_VISIBILITY must be one of %s", strings.Join(validVisibilities, ", "))
	}
	for name, v := range map[string]int{
		"FETCH_TIMEOUT_SECONDS":   c.FetchTimeoutSeconds,
		"UPLOAD_TIMEOUT_SECONDS":  c.UploadTimeoutSeconds,
		"GRANT_STATE_TTL_SECONDS": c.GrantStateTTLSeconds,
		"SESSION_TTL_HOURS":       c.SessionTTLHours,
	} {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, v)
		}
	}
	if c.EncryptionKey != "" && len(c.EncryptionKey) != 64 {
		return fmt.Errorf("ENCRYPTION_KEY must be 64 hex characters (generate with: openssl rand -hex 32)")
	}

	if isProduction {
		if err := validateSecret("JWT_SECRET", c.JWTSecret); err != nil {
			return err
		}
		if err := validateSecret("STATE_SECRET", c.StateSecret); err != nil {
			return err
		}

		if c.GoogleClientID == "" || c.GoogleClientSecret == "" {
			log.Warn().Msg("GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET empty in production: publishing disabled")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
		if len(c.AssetAllowedHosts) == 0 && len(c.S3AllowedBuckets) == 0 {
			log.Warn().Msg("ASSET_ALLOWED_HOSTS and S3_ALLOWED_BUCKETS are empty: every asset location will be refused")
		}
		if c.EncryptionKey == "" {
			log.Warn().Msg("ENCRYPTION_KEY is empty in production: delegated credentials will not be encrypted at rest")
		}
	}

	return nil
}

func isValidVisibility(v string) bool {
	for _, valid := range validVisibilities {
		if v == valid {
			return true
		}
	}
	return false
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
