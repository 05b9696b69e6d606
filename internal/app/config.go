package app

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

type Config struct {
	Env       string
	LogLevel  string
	HTTPAddr  string
	CORSAllow []string

	ReadLimitBytes int64         // max size of a single inbound WS frame
	ReapInterval   time.Duration // empty-room sweep cadence
	ShutdownGrace  time.Duration // how long to wait for orderly close
	RateLimitRPM   int           // HTTP requests per minute per IP

	RedisAddr string // host:port, empty disables the fan-out bridge
	RedisDB   int
}

func LoadConfig() Config {
	cfg := Config{
		Env:       getEnv("APP_ENV", "dev"),
		LogLevel:  getEnv("LOG_LEVEL", ""),
		HTTPAddr:  getEnv("HTTP_ADDR", ":8080"),
		RedisAddr: getEnv("REDIS_ADDR", ""),
	}
	cfg.ReadLimitBytes = int64(getEnvInt("READ_LIMIT_BYTES", 64*1024))
	cfg.ReapInterval = getEnvDuration("REAP_INTERVAL", 30*time.Second)
	cfg.ShutdownGrace = getEnvDuration("SHUTDOWN_GRACE", 10*time.Second)
	cfg.RateLimitRPM = getEnvInt("RATE_LIMIT_RPM", 60)
	cfg.RedisDB = getEnvInt("REDIS_DB", 0)
	// CORS allowlist
	allow := getEnv("CORS_ALLOW", "http://localhost:3000")
	cfg.CORSAllow = splitCSV(allow)
	log.Printf("config: %+v\n", cfg)
	return cfg
}

// getEnv returns the env var or a default
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// getEnvInt parses an int env var with a fallback
func getEnvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		var i int
		_, _ = fmt.Sscanf(v, "%d", &i)
		if i > 0 {
			return i
		}
	}
	return def
}

// getEnvDuration parses a duration env var ("30s", "2m") with a fallback
func getEnvDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

// splitCSV trims and filters a comma-separated list
func splitCSV(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
