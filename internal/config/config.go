// internal/config/config.go

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Environment string
	Debug       bool
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	NATS        NATSConfig
	Upstream    UpstreamConfig
	Aggregation AggregationConfig
	Content     ContentConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CorsOrigins     []string
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	SSLMode      string
}

// RedisConfig holds cache configuration.
type RedisConfig struct {
	URL     string
	FeedTTL time.Duration
}

// NATSConfig holds NATS configuration.
type NATSConfig struct {
	URL            string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
}

// UpstreamConfig holds trend API client configuration.
type UpstreamConfig struct {
	BaseURL          string
	ConsumerKey      string
	ConsumerSecret   string
	RequestTimeout   time.Duration
	ExcludeTypeCodes []int
	ScrapeSourceURL  string
	EnableScrape     bool
}

// AggregationConfig holds fan-out scheduler configuration.
type AggregationConfig struct {
	BatchSize       int
	WindowSeconds   int
	AggregateQueue  string
	ContentQueue    string
	HistoryPolicy   string // "fresh" or "blend"
	StopWordsEnable bool
}

// ContentConfig holds content aggregation configuration.
type ContentConfig struct {
	FeedConfigPath string
	ScoreThreshold int
	ScorePolicy    string // "word" or "substring"
	FetchTimeout   time.Duration
	CopyImages     bool
	MaxRetries     int
}

// Load loads configuration from environment variables.
func Load() (Config, error) {
	config := Config{
		Environment: getEnv("APP_ENV", "development"),
		Debug:       getEnvAsBool("DEBUG", false),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			CorsOrigins:     getEnvAsSlice("SERVER_CORS_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Database:     getEnv("DB_NAME", "trendpress"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 5*time.Minute),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			URL:     getEnv("REDIS_URL", "redis://localhost:6379"),
			FeedTTL: getEnvAsDuration("REDIS_FEED_TTL", time.Hour),
		},
		NATS: NATSConfig{
			URL:            getEnv("NATS_URL", "nats://localhost:4222"),
			MaxReconnects:  getEnvAsInt("NATS_MAX_RECONNECTS", 10),
			ReconnectWait:  getEnvAsDuration("NATS_RECONNECT_WAIT", 1*time.Second),
			ConnectTimeout: getEnvAsDuration("NATS_CONNECT_TIMEOUT", 2*time.Second),
		},
		Upstream: UpstreamConfig{
			BaseURL:          getEnv("UPSTREAM_BASE_URL", "https://api.twitter.com"),
			ConsumerKey:      getEnv("UPSTREAM_CONSUMER_KEY", ""),
			ConsumerSecret:   getEnv("UPSTREAM_CONSUMER_SECRET", ""),
			RequestTimeout:   getEnvAsDuration("UPSTREAM_REQUEST_TIMEOUT", 10*time.Second),
			ExcludeTypeCodes: getEnvAsIntSlice("UPSTREAM_EXCLUDE_TYPE_CODES", []int{7, 8, 9, 10, 11, 22, 31}),
			ScrapeSourceURL:  getEnv("UPSTREAM_SCRAPE_SOURCE_URL", ""),
			EnableScrape:     getEnvAsBool("UPSTREAM_ENABLE_SCRAPE", false),
		},
		Aggregation: AggregationConfig{
			BatchSize:       getEnvAsInt("AGG_BATCH_SIZE", 15),
			WindowSeconds:   getEnvAsInt("AGG_WINDOW_SECONDS", 16*60),
			AggregateQueue:  getEnv("AGG_QUEUE", "trend-aggregator"),
			ContentQueue:    getEnv("AGG_CONTENT_QUEUE", "content-aggregator"),
			HistoryPolicy:   getEnv("AGG_HISTORY_POLICY", "blend"),
			StopWordsEnable: getEnvAsBool("AGG_FILTER_STOP_WORDS", true),
		},
		Content: ContentConfig{
			FeedConfigPath: getEnv("CONTENT_FEED_CONFIG", "configs/feeds.yaml"),
			ScoreThreshold: getEnvAsInt("CONTENT_SCORE_THRESHOLD", 1),
			ScorePolicy:    getEnv("CONTENT_SCORE_POLICY", "word"),
			FetchTimeout:   getEnvAsDuration("CONTENT_FETCH_TIMEOUT", 15*time.Second),
			CopyImages:     getEnvAsBool("CONTENT_COPY_IMAGES", false),
			MaxRetries:     getEnvAsInt("CONTENT_MAX_RETRIES", 3),
		},
	}

	return config, validate(config)
}

// validate checks if config is valid.
func validate(config Config) error {
	if config.Upstream.ConsumerKey == "" && config.Environment != "development" {
		return fmt.Errorf("upstream consumer key must be set in non-development environments")
	}

	if config.Aggregation.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}

	if config.Aggregation.WindowSeconds <= 0 {
		return fmt.Errorf("rate window must be positive")
	}

	switch config.Aggregation.HistoryPolicy {
	case "fresh", "blend":
	default:
		return fmt.Errorf("unknown history policy: %s", config.Aggregation.HistoryPolicy)
	}

	switch config.Content.ScorePolicy {
	case "word", "substring":
	default:
		return fmt.Errorf("unknown score policy: %s", config.Content.ScorePolicy)
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return strings.Split(valueStr, ",")
}

func getEnvAsIntSlice(key string, defaultValue []int) []int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	parts := strings.Split(valueStr, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		value, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return defaultValue
		}
		out = append(out, value)
	}
	return out
}
