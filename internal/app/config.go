package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr           string
	MongoURI           string
	MongoDatabase      string
	MongoCollection    string
	LogLevel           string
	LogFormat          string
	DataDir            string
	MetadataTimeout    time.Duration // max wait for transfer metadata on add
	ProgressInterval   time.Duration // websocket push / metrics refresh period
	RestoreConcurrency int
	TraceSampleRate    float64 // parent-based trace ratio in [0,1]
	CORSOrigins        []string
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		MongoURI:           getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:      getEnv("MONGO_DB", "peerflow"),
		MongoCollection:    getEnv("MONGO_COLLECTION", "sessions"),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "text")),
		DataDir:            getEnv("DATA_DIR", "data"),
		MetadataTimeout:    time.Duration(getEnvInt64("METADATA_TIMEOUT_SECONDS", 60)) * time.Second,
		ProgressInterval:   time.Duration(getEnvInt64("PROGRESS_INTERVAL_MS", 2000)) * time.Millisecond,
		RestoreConcurrency: int(getEnvInt64("RESTORE_CONCURRENCY", 4)),
		TraceSampleRate:    getEnvRatio("OTEL_TRACE_SAMPLE_RATE", 0.1),
		CORSOrigins:        splitList(getEnv("CORS_ALLOWED_ORIGINS", "")),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	if parsed < 0 {
		return fallback
	}
	return parsed
}

func getEnvRatio(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed < 0 || parsed > 1 {
		return fallback
	}
	return parsed
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if item := strings.TrimSpace(part); item != "" {
			out = append(out, item)
		}
	}
	return out
}
