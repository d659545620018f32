package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	devAccessSecret  = "dev-access-secret-change-in-production"
	devRefreshSecret = "dev-refresh-secret-change-in-production"
)

// Server captures process-wide configuration.
type Server struct {
	Addr        string
	Environment string
	TrustProxy  bool

	Database   DatabaseConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Invitation InvitationConfig
	Mail       MailConfig
	RateLimit  RateLimitConfig
	Bootstrap  BootstrapConfig
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type AuthConfig struct {
	AccessSecret       string
	RefreshSecret      string
	Issuer             string
	Audience           string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	GoogleVerifyTokens bool
}

type InvitationConfig struct {
	TTL             time.Duration
	CleanupInterval time.Duration
	DeepLinkBase    string
	WebBaseURL      string
}

type MailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	From         string
	SendTimeout  time.Duration
}

type RateLimitConfig struct {
	Enabled bool
}

// BootstrapConfig seeds the first SuperAdmin when both fields are set.
// SeedDemoData is honoured in development only.
type BootstrapConfig struct {
	SuperAdminEmail    string
	SuperAdminPassword string
	SeedDemoData       bool
}

// IsDevelopment reports whether verbose error output is allowed.
func (s Server) IsDevelopment() bool {
	return s.Environment == EnvDevelopment
}

// LoadDotEnv preloads variables from the given files (default ".env") without overriding
// variables already set in the environment. Missing files are ignored.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	cfg := Server{
		Addr:        getString("SCHOOLBRIDGE_ADDR", ":8080"),
		Environment: strings.ToLower(getString("APP_ENV", EnvProduction)),
		TrustProxy:  getBool("TRUST_PROXY", false),
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Auth: AuthConfig{
			AccessSecret:       getString("JWT_ACCESS_SECRET", devAccessSecret),
			RefreshSecret:      getString("JWT_REFRESH_SECRET", devRefreshSecret),
			Issuer:             getString("JWT_ISSUER", "schoolbridge-api"),
			Audience:           getString("JWT_AUDIENCE", "schoolbridge-app"),
			AccessTokenTTL:     getDuration("ACCESS_TOKEN_TTL", 24*time.Hour),
			RefreshTokenTTL:    getDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
			GoogleVerifyTokens: getBool("GOOGLE_VERIFY_TOKENS", false),
		},
		Invitation: InvitationConfig{
			TTL:             getDuration("INVITATION_TTL", 72*time.Hour),
			CleanupInterval: getDuration("INVITATION_CLEANUP_INTERVAL", 24*time.Hour),
			DeepLinkBase:    getString("APP_DEEP_LINK_BASE", "schoolbridge://activate"),
			WebBaseURL:      strings.TrimRight(getString("WEB_BASE_URL", "http://localhost:3000"), "/"),
		},
		Mail: MailConfig{
			SMTPHost:     os.Getenv("SMTP_HOST"),
			SMTPPort:     getInt("SMTP_PORT", 587),
			SMTPUser:     os.Getenv("SMTP_USER"),
			SMTPPassword: os.Getenv("SMTP_PASSWORD"),
			From:         getString("SMTP_FROM", "no-reply@schoolbridge.local"),
			SendTimeout:  getDuration("MAIL_SEND_TIMEOUT", 10*time.Second),
		},
		RateLimit: RateLimitConfig{
			Enabled: getBool("RATE_LIMIT_ENABLED", true),
		},
		Bootstrap: BootstrapConfig{
			SuperAdminEmail:    os.Getenv("BOOTSTRAP_SUPERADMIN_EMAIL"),
			SuperAdminPassword: os.Getenv("BOOTSTRAP_SUPERADMIN_PASSWORD"),
			SeedDemoData:       getBool("SEED_DEMO_DATA", false),
		},
	}

	if err := cfg.validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func (s Server) validate() error {
	var errs []error
	if s.Environment != EnvProduction && s.Environment != EnvDevelopment {
		errs = append(errs, fmt.Errorf("APP_ENV must be %q or %q", EnvProduction, EnvDevelopment))
	}
	if s.Auth.AccessSecret == s.Auth.RefreshSecret {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ"))
	}
	if !s.IsDevelopment() && (s.Auth.AccessSecret == devAccessSecret || s.Auth.RefreshSecret == devRefreshSecret) {
		errs = append(errs, errors.New("default JWT secrets are not allowed in production"))
	}
	if s.Auth.AccessTokenTTL <= 0 || s.Auth.RefreshTokenTTL <= 0 || s.Invitation.TTL <= 0 {
		errs = append(errs, errors.New("token and invitation TTLs must be positive"))
	}
	return errors.Join(errs...)
}

func getString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
