package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/auth-actions/internal/pkg/validate"
)

// Identity provider and email transport backends.
const (
	IdentityProviderSupabase = "supabase"
	IdentityProviderDynamo   = "dynamo"

	EmailProviderSMTP   = "smtp"
	EmailProviderResend = "resend"
)

// Config holds all runtime configuration loaded from environment variables.
// It is built once in main and passed by pointer to every component.
type Config struct {
	AppPort   string
	AppEnv    string
	AppName   string
	LogFormat string `validate:"oneof=text json"`

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	IdentityProvider       string `validate:"oneof=supabase dynamo"`
	SupabaseURL            string `validate:"required_if=IdentityProvider supabase"`
	SupabaseServiceRoleKey string `validate:"required_if=IdentityProvider supabase"`
	IDPTimeout             time.Duration

	// Missing mail credentials are not a startup error: every code-issuing
	// action fails at send time instead.
	EmailProvider    string `validate:"oneof=smtp resend"`
	SMTPHost         string
	SMTPPort         string
	SMTPFrom         string
	GmailUser        string
	GmailAppPassword string
	ResendAPIKey     string

	CodeTTL        time.Duration `validate:"gt=0"`
	CodeClaimLease time.Duration `validate:"gt=0"`

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	VerificationCodes string `validate:"required"`
	Users             string `validate:"required"`
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:   getEnv("APP_PORT", "3000"),
		AppEnv:    getEnv("APP_ENV", "development"),
		AppName:   getEnv("APP_NAME", "Mayor Exchange"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			VerificationCodes: getEnv("DYNAMO_TABLE_VERIFICATION_CODES", "verification_codes"),
			Users:             getEnv("DYNAMO_TABLE_USERS", "users"),
		},

		IdentityProvider:       getEnv("IDENTITY_PROVIDER", IdentityProviderSupabase),
		SupabaseURL:            strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
		SupabaseServiceRoleKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
		IDPTimeout:             getEnvDuration("IDP_TIMEOUT", 10*time.Second),

		EmailProvider:    getEnv("EMAIL_PROVIDER", EmailProviderSMTP),
		SMTPHost:         getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:         getEnv("SMTP_PORT", "587"),
		SMTPFrom:         getEnv("SMTP_FROM", ""),
		GmailUser:        getEnv("GMAIL_USER", ""),
		GmailAppPassword: getEnv("GMAIL_APP_PASSWORD", ""),
		ResendAPIKey:     getEnv("RESEND_API_KEY", ""),

		CodeTTL:        getEnvDuration("CODE_TTL", 15*time.Minute),
		CodeClaimLease: getEnvDuration("CODE_CLAIM_LEASE", 30*time.Second),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

// Validate checks cross-field constraints that would otherwise surface as
// confusing runtime failures.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// IsProduction reports whether the app runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("15m") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n := getEnvInt(key, -1); n >= 0 {
		return time.Duration(n) * time.Second
	}
	return fallback
}
