package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	SlotBackendSQLite = "sqlite"
	SlotBackendRedis  = "redis"
	SlotBackendMemory = "memory"

	CatalogSourceFixture = "fixture"
	CatalogSourceMySQL   = "mysql"
)

type Config struct {
	LogMode string

	HTTPPort int
	GRPCPort int

	SlotBackend string
	SlotKey     string
	SlotTTL     time.Duration
	SessionID   string
	SQLitePath  string

	RedisAddr     string
	RedisPassword string

	CatalogSource string
	MySQLDSN      string

	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration

	OtelEnabled     bool
	OtelEndpoint    string
	OtelInsecure    bool
	OtelSampleRatio float64
}

func Load() Config {
	return Config{
		LogMode:         getEnv("LOG_MODE", "dev"),
		HTTPPort:        getEnvInt("HTTP_PORT", 8080),
		GRPCPort:        getEnvInt("GRPC_PORT", 50051),
		SlotBackend:     strings.ToLower(getEnv("SLOT_BACKEND", SlotBackendSQLite)),
		SlotKey:         getEnv("SLOT_KEY", "djurshop-cart"),
		SlotTTL:         getEnvDuration("SLOT_TTL", 0),
		SessionID:       getEnv("SESSION_ID", ""),
		SQLitePath:      getEnv("SQLITE_PATH", "djurshop.db"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		CatalogSource:   strings.ToLower(getEnv("CATALOG_SOURCE", CatalogSourceFixture)),
		MySQLDSN:        getEnv("MYSQL_DSN", "root:root@tcp(localhost:3306)/djurshop?parseTime=true"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		RequestTimeout:  getEnvDuration("REQUEST_TIMEOUT", 15*time.Second),
		OtelEnabled:     getEnvBool("OTEL_ENABLED", false),
		OtelEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OtelInsecure:    getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		OtelSampleRatio: getEnvFloat("OTEL_SAMPLER_RATIO", 0.1),
	}
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getEnvBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "":
		return def
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
