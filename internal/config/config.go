package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
)

const defaultSecret = "your-secret-key-change-in-production"

// Config 应用配置
type Config struct {
	Env         string
	AppSecret   string
	DatabaseURL string
	Port        string
	SiteName    string
	LogLevel    string
	CORSOrigins []string

	TMDBToken         string
	TMDBAPIKey        string
	TMDBBaseURL       string
	ImageBaseURL      string
	VideoEmbedBaseURL string
	HTTPTimeout       time.Duration
	TMDBRateLimit     int

	SessionCacheSize int
	SessionIdle      time.Duration
}

// Load 加载配置
func Load() *Config {
	timeoutSec := getEnvInt("HTTP_TIMEOUT_SECONDS", 30)
	idleMinutes := getEnvInt("SESSION_IDLE_MINUTES", 120)

	appSecret := getEnv("APP_SECRET", defaultSecret)
	env := getEnv("APP_ENV", "development")
	if env == "production" && appSecret == defaultSecret {
		log.Warn("[Config] 生产环境正在使用默认密钥！请立即设置 APP_SECRET 环境变量。")
	}

	return &Config{
		Env:         env,
		AppSecret:   appSecret,
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Port:        getEnv("PORT", "5005"),
		SiteName:    getEnv("SITE_NAME", "Moviedex"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "")),

		TMDBToken:         getEnv("TMDB_TOKEN", ""),
		TMDBAPIKey:        getEnv("TMDB_API_KEY", ""),
		TMDBBaseURL:       getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		ImageBaseURL:      getEnv("TMDB_IMAGE_BASE_URL", "https://image.tmdb.org/t/p"),
		VideoEmbedBaseURL: getEnv("VIDEO_EMBED_BASE_URL", "https://www.youtube.com/embed"),
		HTTPTimeout:       time.Duration(timeoutSec) * time.Second,
		TMDBRateLimit:     getEnvInt("TMDB_RATE_LIMIT", 40),

		SessionCacheSize: getEnvInt("SESSION_CACHE_SIZE", 1024),
		SessionIdle:      time.Duration(idleMinutes) * time.Minute,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	if err != nil || v < 0 {
		log.WithField("key", key).Warn("[Config] 配置项不是合法的非负整数，使用默认值")
		return defaultValue
	}
	return v
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
