package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config holds application configuration from environment.
type Config struct {
	HTTPPort    string
	LogLevel    string
	CORSOrigins []string

	AuthAPIURL      string
	TaskAPIURL      string
	MessagingAPIURL string
	UpstreamTimeout time.Duration

	GeocoderURL     string
	GeocoderToken   string
	GeocoderCountry string
	GeocoderCity    string

	Timezone          string
	EnrichConcurrency int

	DatabaseURL     string
	DBPoolSize      int
	RedisURL        string
	RedisPoolSize   int
	CacheTTL        int // seconds
	AppointmentsTTL int // seconds, 0 disables
	HandoffTTL      int // seconds
	KafkaBrokers    []string
	KafkaTopic      string
	KafkaPartitions int
	KafkaGroupID    string

	RateLimitRPS   float64
	RateLimitBurst int

	JWTSecret string
}

var (
	cfg     *Config
	cfgOnce sync.Once
)

// Get returns the application config (loads once from env).
func Get() *Config {
	cfgOnce.Do(func() {
		cfg = Load()
	})
	return cfg
}

// Load reads a fresh Config from the environment. Most callers want Get.
func Load() *Config {
	return &Config{
		HTTPPort:    getEnv("HTTP_PORT", "8090"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: getSliceEnv("CORS_ORIGINS", "http://localhost:3000"),

		AuthAPIURL:      getEnv("AUTH_API_URL", "http://localhost:8080"),
		TaskAPIURL:      getEnv("TASK_API_URL", "http://localhost:8084"),
		MessagingAPIURL: getEnv("MESSAGING_API_URL", "http://localhost:8085"),
		UpstreamTimeout: time.Duration(getIntEnv("UPSTREAM_TIMEOUT_SEC", 10)) * time.Second,

		GeocoderURL:     getEnv("GEOCODER_URL", "https://api.mapbox.com"),
		GeocoderToken:   os.Getenv("GEOCODER_TOKEN"),
		GeocoderCountry: getEnv("GEOCODER_COUNTRY", "CA"),
		GeocoderCity:    getEnv("GEOCODER_CITY", "Toronto"),

		Timezone:          getEnv("APP_TIMEZONE", "America/Toronto"),
		EnrichConcurrency: getIntEnv("ENRICH_CONCURRENCY", 8),

		DatabaseURL:     os.Getenv("DATABASE_URL"),
		DBPoolSize:      getIntEnv("DB_POOL_SIZE", 10),
		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisPoolSize:   getIntEnv("REDIS_POOL_SIZE", 50),
		CacheTTL:        getIntEnv("CACHE_TTL_SEC", 300),
		AppointmentsTTL: getIntEnv("APPOINTMENTS_CACHE_TTL_SEC", 0),
		HandoffTTL:      getIntEnv("HANDOFF_TTL_SEC", 120),
		KafkaBrokers:    getSliceEnv("KAFKA_BROKERS", "localhost:9092"),
		KafkaTopic:      getEnv("KAFKA_TOPIC", "gateway-events"),
		KafkaPartitions: getIntEnv("KAFKA_PARTITIONS", 4),
		KafkaGroupID:    getEnv("KAFKA_GROUP_ID", "gateway-activity"),

		RateLimitRPS:   getFloatEnv("RATE_LIMIT_RPS", 10),
		RateLimitBurst: getIntEnv("RATE_LIMIT_BURST", 20),

		JWTSecret: os.Getenv("JWT_SECRET"),
	}
}

// Location returns the zone appointment times are interpreted in.
// Falls back to the process local zone when the name is unknown.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getFloatEnv(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getSliceEnv(key, defaultVal string) []string {
	if v := os.Getenv(key); v != "" {
		var out []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return []string{defaultVal}
}
