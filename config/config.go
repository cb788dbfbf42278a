package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Firebase   FirebaseConfig
	Redis      RedisConfig
	Capability CapabilityConfig
	Export     ExportConfig
	Security   SecurityConfig
	App        AppConfig
}

type ServerConfig struct {
	Port            string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	// DSN takes precedence over the individual connection fields.
	DSN          string
	Driver       string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	TxTimeout    time.Duration
}

type FirebaseConfig struct {
	CredentialsPath string
	ProjectID       string
	// CheckRevoked makes token verification consult the identity service for
	// revoked sessions and deleted users.
	CheckRevoked   bool
	CleanupTimeout time.Duration
}

type RedisConfig struct {
	URL string
}

type CapabilityConfig struct {
	// Mode is "introspect" (query schema metadata) or "static".
	Mode               string
	OwnerColumnEnabled bool
	CacheTTL           time.Duration
	RefreshSpec        string
}

type ExportConfig struct {
	Dir       string
	MaxAge    time.Duration
	SweepSpec string
}

type SecurityConfig struct {
	AdminAPIKey            string
	CORSAllowedOrigins     []string
	RateLimitRPS           int
	RateLimitBurst         int
	IPRateLimitRPS         int
	IPRateLimitBurst       int
	RevocationTTL          time.Duration
	EnforceTaskOwnership   bool
	EnforceExportOwnership bool
}

type AppConfig struct {
	Name        string
	Environment string
	LogLevel    string
	Version     string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			RequestTimeout:  getEnvAsDuration("REQUEST_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			DSN:          getEnv("DB_DSN", ""),
			Driver:       getEnv("DB_DRIVER", "postgres"),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Name:         getEnv("DB_NAME", "projectdash"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			TxTimeout:    getEnvAsDuration("DB_TX_TIMEOUT", 30*time.Second),
		},
		Firebase: FirebaseConfig{
			CredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			CheckRevoked:    getEnvAsBool("AUTH_CHECK_REVOKED", true),
			CleanupTimeout:  getEnvAsDuration("IDENTITY_CLEANUP_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		Capability: CapabilityConfig{
			Mode:               getEnv("CAPABILITY_MODE", "introspect"),
			OwnerColumnEnabled: getEnvAsBool("OWNER_COLUMN_ENABLED", false),
			CacheTTL:           getEnvAsDuration("CAPABILITY_CACHE_TTL", 30*time.Second),
			RefreshSpec:        getEnv("CAPABILITY_REFRESH_SPEC", "@every 1m"),
		},
		Export: ExportConfig{
			Dir:       getEnv("EXPORT_DIR", filepath.Join(os.TempDir(), "projectdash-exports")),
			MaxAge:    getEnvAsDuration("EXPORT_MAX_AGE", 15*time.Minute),
			SweepSpec: getEnv("EXPORT_SWEEP_SPEC", "@every 10m"),
		},
		Security: SecurityConfig{
			AdminAPIKey:            getEnv("ADMIN_API_KEY", ""),
			CORSAllowedOrigins:     getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
			RateLimitRPS:           getEnvAsInt("RATE_LIMIT_RPS", 20),
			RateLimitBurst:         getEnvAsInt("RATE_LIMIT_BURST", 40),
			IPRateLimitRPS:         getEnvAsInt("IP_RATE_LIMIT_RPS", 50),
			IPRateLimitBurst:       getEnvAsInt("IP_RATE_LIMIT_BURST", 100),
			RevocationTTL:          getEnvAsDuration("REVOCATION_TTL", 30*24*time.Hour),
			EnforceTaskOwnership:   getEnvAsBool("ENFORCE_TASK_OWNERSHIP", false),
			EnforceExportOwnership: getEnvAsBool("ENFORCE_EXPORT_OWNERSHIP", false),
		},
		App: AppConfig{
			Name:        getEnv("APP_NAME", "projectdash-api"),
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Database.DSN == "" && c.Database.Host == "" {
		return fmt.Errorf("DB_DSN or DB_HOST is required")
	}

	switch c.Database.Driver {
	case "postgres", "pgx":
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or pgx, got %q", c.Database.Driver)
	}

	switch c.Capability.Mode {
	case "introspect", "static":
	default:
		return fmt.Errorf("CAPABILITY_MODE must be introspect or static, got %q", c.Capability.Mode)
	}

	if c.Security.RateLimitRPS <= 0 || c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}

	if c.Security.IPRateLimitRPS <= 0 || c.Security.IPRateLimitBurst <= 0 {
		return fmt.Errorf("IP_RATE_LIMIT_RPS and IP_RATE_LIMIT_BURST must be positive")
	}

	return nil
}

// IsProduction reports whether internal error detail must be withheld from responses.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

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
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
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
		log.Printf("Warning: Invalid boolean for %s, using default: %t", key, defaultValue)
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
		log.Printf("Warning: Invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
