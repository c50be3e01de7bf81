package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config captures all runtime configuration derived from environment variables.
type Config struct {
	Port               string   `yaml:"port"`
	AppEnv             string   `yaml:"appEnv"`
	LogLevel           string   `yaml:"logLevel"`
	JWTSecret          string   `yaml:"jwtSecret"`
	StoreDriver        string   `yaml:"storeDriver"`
	DBURL              string   `yaml:"dbUrl"`
	DBAutoMigrate      bool     `yaml:"dbAutoMigrate"`
	ReadTimeoutSecs    int      `yaml:"readTimeoutSecs"`
	WriteTimeoutSecs   int      `yaml:"writeTimeoutSecs"`
	IdleTimeoutSecs    int      `yaml:"idleTimeoutSecs"`
	DBMaxConns         int      `yaml:"dbMaxConns"`
	DBMinConns         int      `yaml:"dbMinConns"`
	DBMaxIdleSecs      int      `yaml:"dbMaxIdleSecs"`
	DBMaxLifeSecs      int      `yaml:"dbMaxLifeSecs"`
	DBConnTimeoutSecs  int      `yaml:"dbConnTimeoutSecs"`
	DBStatementCache   int      `yaml:"dbStatementCache"`
	RateLimitRPS       float64  `yaml:"rateLimitRps"`
	RateLimitBurst     int      `yaml:"rateLimitBurst"`
	CORSAllowedOrigins []string `yaml:"corsAllowedOrigins"`
	ExposeErrorDetails bool     `yaml:"exposeErrorDetails"`
	DirectoryURL       string   `yaml:"directoryUrl"`
	DirectoryAPIKey    string   `yaml:"directoryApiKey"`
	DirectoryTimeout   int      `yaml:"directoryTimeoutSecs"`
	FixturesFile       string   `yaml:"fixturesFile"`
}

func defaults() Config {
	return Config{
		Port:              "8080",
		AppEnv:            "production",
		LogLevel:          "info",
		StoreDriver:       DriverPostgres,
		DBAutoMigrate:     true,
		ReadTimeoutSecs:   15,
		WriteTimeoutSecs:  15,
		IdleTimeoutSecs:   60,
		DBMaxConns:        20,
		DBMinConns:        2,
		DBMaxIdleSecs:     300,
		DBMaxLifeSecs:     3600,
		DBConnTimeoutSecs: 10,
		DBStatementCache:  256,
		RateLimitRPS:      50,
		RateLimitBurst:    100,
		DirectoryTimeout:  3,
	}
}

// Load reads configuration from environment variables, applying defaults and validation.
// A .env file in the working directory is loaded first when present, and CONFIG_FILE may
// point to a YAML file whose values replace the built-in defaults. Environment variables
// always take precedence.
func Load() (Config, error) {
	_ = godotenv.Load()

	base := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &base); err != nil {
			return Config{}, err
		}
	}

	cfg := Config{
		Port:               getEnv("PORT", base.Port),
		AppEnv:             getEnv("APP_ENV", base.AppEnv),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", base.LogLevel)),
		JWTSecret:          getEnv("JWT_SECRET", base.JWTSecret),
		StoreDriver:        strings.ToLower(getEnv("STORE_DRIVER", base.StoreDriver)),
		DBURL:              getEnv("DB_URL", base.DBURL),
		DBAutoMigrate:      getEnvBool("DB_AUTO_MIGRATE", base.DBAutoMigrate),
		ReadTimeoutSecs:    getEnvInt("SERVER_READ_TIMEOUT", base.ReadTimeoutSecs),
		WriteTimeoutSecs:   getEnvInt("SERVER_WRITE_TIMEOUT", base.WriteTimeoutSecs),
		IdleTimeoutSecs:    getEnvInt("SERVER_IDLE_TIMEOUT", base.IdleTimeoutSecs),
		DBMaxConns:         getEnvInt("DB_MAX_CONNS", base.DBMaxConns),
		DBMinConns:         getEnvInt("DB_MIN_CONNS", base.DBMinConns),
		DBMaxIdleSecs:      getEnvInt("DB_MAX_CONN_IDLE_SECS", base.DBMaxIdleSecs),
		DBMaxLifeSecs:      getEnvInt("DB_MAX_CONN_LIFETIME_SECS", base.DBMaxLifeSecs),
		DBConnTimeoutSecs:  getEnvInt("DB_CONN_TIMEOUT_SECS", base.DBConnTimeoutSecs),
		DBStatementCache:   getEnvInt("DB_STATEMENT_CACHE_CAPACITY", base.DBStatementCache),
		RateLimitRPS:       getEnvFloat("RATE_LIMIT_RPS", base.RateLimitRPS),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", base.RateLimitBurst),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", base.CORSAllowedOrigins),
		ExposeErrorDetails: getEnvBool("EXPOSE_ERROR_DETAILS", base.ExposeErrorDetails),
		DirectoryURL:       getEnv("DIRECTORY_URL", base.DirectoryURL),
		DirectoryAPIKey:    getEnv("DIRECTORY_API_KEY", base.DirectoryAPIKey),
		DirectoryTimeout:   getEnvInt("DIRECTORY_TIMEOUT_SECS", base.DirectoryTimeout),
		FixturesFile:       getEnv("FIXTURES_FILE", base.FixturesFile),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	switch cfg.StoreDriver {
	case DriverPostgres:
		if cfg.DBURL == "" {
			return Config{}, fmt.Errorf("DB_URL is required when STORE_DRIVER=%s", DriverPostgres)
		}
	case DriverMemory:
	default:
		return Config{}, fmt.Errorf("STORE_DRIVER must be %q or %q", DriverPostgres, DriverMemory)
	}
	if cfg.DBMaxConns <= 0 {
		return Config{}, fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if cfg.DBMinConns < 0 {
		return Config{}, fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if cfg.DBMaxConns > 0 && cfg.DBMinConns > cfg.DBMaxConns {
		return Config{}, fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if cfg.DBStatementCache < 0 {
		return Config{}, fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}
	if cfg.RateLimitRPS < 0 {
		return Config{}, fmt.Errorf("RATE_LIMIT_RPS must be non-negative")
	}
	if cfg.RateLimitRPS > 0 && cfg.RateLimitBurst <= 0 {
		return Config{}, fmt.Errorf("RATE_LIMIT_BURST must be positive when rate limiting is enabled")
	}
	if cfg.DirectoryURL != "" && cfg.DirectoryTimeout <= 0 {
		return Config{}, fmt.Errorf("DIRECTORY_TIMEOUT_SECS must be positive")
	}

	return cfg, nil
}

// Development reports whether the service runs in a local development posture.
func (c Config) Development() bool {
	return c.AppEnv == "development" || c.LogLevel == "debug"
}

func loadFile(path string, dst *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("CONFIG_FILE: open %s: %w", path, err)
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(dst); err != nil {
		return fmt.Errorf("CONFIG_FILE: parse %s: %w", path, err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
