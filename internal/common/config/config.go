package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	API      APIConfig
	Session  SessionConfig
	Refresh  RefreshConfig
	Store    StoreConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NATS     NATSConfig
	Server   ServerConfig
	Metrics  MetricsConfig
	Logging  LoggingConfig
	Display  DisplayConfig
}

// APIConfig points at the remote trip-planning API
type APIConfig struct {
	BaseURL        string
	ServicePrefix  string
	PlanningPrefix string
	ControlID      string // path segment used by the control/observation endpoints
	Zone           string
	Timeout        time.Duration
	MaxRetries     uint64
}

// SessionConfig seeds the session bootstrap. Token and zone may also arrive
// through the CLI or be recovered from the key-value store.
type SessionConfig struct {
	Token string
	Zone  string
}

type RefreshConfig struct {
	Interval           time.Duration
	FallbackDemo       bool
	AlertAfterFailures int
}

// StoreConfig selects the durable key-value backend: memory, postgres or redis
type StoreConfig struct {
	Backend string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Address      string
	Password     string
	Database     int
	CatalogTTL   time.Duration
	CacheCatalog bool
}

type NATSConfig struct {
	URL           string
	SubjectPrefix string
}

type ServerConfig struct {
	Listen string
}

type MetricsConfig struct {
	Addr string
}

type LoggingConfig struct {
	Level      string
	FilePath   string
	Console    bool
	DiscordURL string
}

type DisplayConfig struct {
	DefaultConsortium string
	Language          string
}

func Load() (*Config, error) {
	redisDB, err := getIntEnv("REDIS_DATABASE", 0)
	if err != nil {
		return nil, err
	}
	alertAfter, err := getIntEnv("ALERT_AFTER_FAILURES", 3)
	if err != nil {
		return nil, err
	}
	retries, err := getIntEnv("API_MAX_RETRIES", 3)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		API: APIConfig{
			BaseURL:        getEnv("API_BASE_URL", "https://planejamento-viagem-api.sinopticoplus.com/planejamento-viagem-api/v1"),
			ServicePrefix:  getEnv("API_SERVICE_PREFIX", "/service-api"),
			PlanningPrefix: getEnv("API_PLANNING_PREFIX", "/planejamento-viagem-api"),
			ControlID:      getEnv("API_CONTROL_ID", "209"),
			Zone:           getEnv("API_ZONE", "4"),
			Timeout:        getDurationEnv("API_TIMEOUT", 30*time.Second),
			MaxRetries:     uint64(retries),
		},
		Session: SessionConfig{
			Token: getEnv("SESSION_TOKEN", ""),
			Zone:  getEnv("SESSION_ZONE", ""),
		},
		Refresh: RefreshConfig{
			Interval:           getDurationEnv("REFRESH_INTERVAL", 60*time.Second),
			FallbackDemo:       getBoolEnv("FALLBACK_DEMO", true),
			AlertAfterFailures: alertAfter,
		},
		Store: StoreConfig{
			Backend: strings.ToLower(getEnv("STORE_BACKEND", "memory")),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "tripdesk"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Address:      getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			Database:     redisDB,
			CatalogTTL:   getDurationEnv("CATALOG_CACHE_TTL", 90*time.Minute),
			CacheCatalog: getBoolEnv("CATALOG_CACHE", false),
		},
		NATS: NATSConfig{
			URL:           getEnv("NATS_URL", ""),
			SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "tripdesk.refresh"),
		},
		Server: ServerConfig{
			Listen: getEnv("LISTEN", ":8080"),
		},
		Metrics: MetricsConfig{
			Addr: getEnv("METRICS_ADDR", ""),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			FilePath:   getEnv("LOG_FILE", "tripdesk.log"),
			Console:    getBoolEnv("LOG_CONSOLE", true),
			DiscordURL: getEnv("DISCORD_WEBHOOK_URL", ""),
		},
		Display: DisplayConfig{
			DefaultConsortium: getEnv("DEFAULT_CONSORTIUM", "ETUFOR"),
			Language:          getEnv("DEFAULT_LANGUAGE", "pt-BR"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks every section
func (c *Config) Validate() error {
	if err := c.API.Validate(); err != nil {
		return fmt.Errorf("api config: %w", err)
	}
	if err := c.Refresh.Validate(); err != nil {
		return fmt.Errorf("refresh config: %w", err)
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store config: %w", err)
	}
	if c.Store.Backend == "postgres" {
		if err := c.Database.Validate(); err != nil {
			return fmt.Errorf("database config: %w", err)
		}
	}
	return nil
}

func (c *APIConfig) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid API_BASE_URL %q", c.BaseURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("API_TIMEOUT must be positive")
	}
	return nil
}

func (c *RefreshConfig) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("REFRESH_INTERVAL must be positive")
	}
	if c.AlertAfterFailures < 0 {
		return fmt.Errorf("ALERT_AFTER_FAILURES cannot be negative")
	}
	return nil
}

func (c *StoreConfig) Validate() error {
	switch c.Backend {
	case "memory", "postgres", "redis":
		return nil
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Backend)
	}
}

func (c *DatabaseConfig) Validate() error {
	if c.Host == "" || c.DBName == "" {
		return fmt.Errorf("DB_HOST and DB_NAME are required")
	}
	return nil
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, value)
	}
	return n, nil
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}
