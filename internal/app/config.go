package app

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	HTTPAddr          string
	LogLevel          string
	LogFormat         string
	OutputDir         string
	SettingsPath      string
	ExtractorPath     string
	StaticDir         string
	AllowedOrigins    []string // empty = allow any origin
	MongoURI          string   // empty = keep history in memory
	MongoDatabase     string
	MongoCollection   string
	MinDiskSpaceBytes int64 // minimum free disk space; 0 = disabled
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:          ":" + getEnv("PORT", "3001"),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:         strings.ToLower(getEnv("LOG_FORMAT", "text")),
		OutputDir:         getEnv("DOWNLOAD_DIR", "downloads"),
		SettingsPath:      getEnv("SETTINGS_PATH", "settings.json"),
		ExtractorPath:     getEnv("YTDLP_PATH", "yt-dlp"),
		StaticDir:         getEnv("STATIC_DIR", "public"),
		AllowedOrigins:    splitList(os.Getenv("ALLOWED_ORIGINS")),
		MongoURI:          getEnv("MONGO_URI", ""),
		MongoDatabase:     getEnv("MONGO_DB", "mediafetch"),
		MongoCollection:   getEnv("MONGO_COLLECTION", "history"),
		MinDiskSpaceBytes: getEnvInt64("MIN_DISK_SPACE_BYTES", 0),
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
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
