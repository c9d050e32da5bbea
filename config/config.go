package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultAdminRoleName is the realm role that grants access to admin routes
const DefaultAdminRoleName = "relife_admin"

// Config represents the complete application configuration.
// It is built once at startup and passed to constructors; nothing mutates it afterwards.
type Config struct {
	Server          ServerConfig
	IdentityBackend IdentityBackendConfig
	AuthServer      AuthServerConfig
	Storage         StorageConfig
	Observability   ObservabilityConfig
	AdminRoleName   string
	Environment     string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
	AllowedOrigins  []string
}

// IdentityBackendConfig holds the Supabase project settings.
// ServiceKey is the service role key: it bypasses Row Level Security and must
// only ever be used server-side.
type IdentityBackendConfig struct {
	URL        string
	ServiceKey string
	Timeout    time.Duration
}

// AuthServerConfig holds the Keycloak confidential client used for the
// client-credentials exchange against the caller's realm
type AuthServerConfig struct {
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// StorageConfig holds Supabase Storage settings
type StorageConfig struct {
	BucketName string
}

// ObservabilityConfig holds monitoring and logging configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string // json or text
	MetricsEnabled bool
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	upstreamTimeout := getEnvAsDuration("UPSTREAM_TIMEOUT", 10*time.Second)

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("API_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("API_PORT", 9090),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			RequestTimeout:  getEnvAsDuration("REQUEST_TIMEOUT", 60*time.Second),
			AllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		IdentityBackend: IdentityBackendConfig{
			URL:        strings.TrimSuffix(getEnv("SUPABASE_URL", ""), "/"),
			ServiceKey: getEnv("SUPABASE_KEY", ""),
			Timeout:    upstreamTimeout,
		},
		AuthServer: AuthServerConfig{
			ClientID:     getEnv("KEYCLOAK_CLIENT_ID", ""),
			ClientSecret: getEnv("KEYCLOAK_CLIENT_SECRET", ""),
			Timeout:      upstreamTimeout,
		},
		Storage: StorageConfig{
			BucketName: getEnv("BUCKET_NAME", "example_bucket"),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
		AdminRoleName: getEnv("ADMIN_ROLE_NAME", DefaultAdminRoleName),
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.IdentityBackend.URL == "" {
		return fmt.Errorf("identity backend URL is required: set SUPABASE_URL")
	}
	u, err := url.Parse(c.IdentityBackend.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("identity backend URL must be an absolute URL: %q", c.IdentityBackend.URL)
	}
	if c.IdentityBackend.ServiceKey == "" {
		return fmt.Errorf("identity backend service key is required: set SUPABASE_KEY")
	}

	if c.AuthServer.ClientID == "" {
		return fmt.Errorf("authorization server client ID is required: set KEYCLOAK_CLIENT_ID")
	}
	if c.AuthServer.ClientSecret == "" {
		return fmt.Errorf("authorization server client secret is required: set KEYCLOAK_CLIENT_SECRET")
	}

	if strings.TrimSpace(c.AdminRoleName) == "" {
		return fmt.Errorf("admin role name must not be blank")
	}

	// Observability validation
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma-separated variable, dropping empty entries
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var values []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}
