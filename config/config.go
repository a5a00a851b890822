package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	MongoURI       string
	MongoDatabase  string
	JWTSecret      string
	JWTTTL         time.Duration
	FallbackDBPath string
	MaxUploadBytes int64
}

// Offline reports whether no backend is configured; remote operations are
// then disabled and the app serves sample data.
func (c Config) Offline() bool {
	return c.MongoURI == ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// Load reads .env (if present) and the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := Config{
		Port:           getEnv("PORT", "8081"),
		MongoURI:       getEnv("MONGO_URI", ""),
		MongoDatabase:  getEnv("MONGO_DATABASE", "clientdesk"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		FallbackDBPath: getEnv("FALLBACK_DB_PATH", "clientdesk-offline.db"),
	}

	// Atlas credentials in parts, as older deployments configure them.
	if cfg.MongoURI == "" {
		username := os.Getenv("MONGO_USERNAME")
		password := os.Getenv("MONGO_PASSWORD")
		cluster := os.Getenv("MONGO_CLUSTER")
		appName := os.Getenv("MONGO_APP_NAME")
		if username != "" && password != "" && cluster != "" {
			cfg.MongoURI = fmt.Sprintf("mongodb+srv://%s:%s@%s/?retryWrites=true&w=majority&appName=%s",
				username, password, cluster, appName)
		}
	}

	ttl, err := time.ParseDuration(getEnv("JWT_TTL", "12h"))
	if err != nil {
		return cfg, fmt.Errorf("invalid JWT_TTL: %w", err)
	}
	cfg.JWTTTL = ttl

	maxMB, err := strconv.Atoi(getEnv("MAX_UPLOAD_MB", "25"))
	if err != nil || maxMB <= 0 {
		return cfg, fmt.Errorf("invalid MAX_UPLOAD_MB %q", os.Getenv("MAX_UPLOAD_MB"))
	}
	cfg.MaxUploadBytes = int64(maxMB) << 20

	if cfg.JWTSecret == "" {
		if !cfg.Offline() {
			return cfg, fmt.Errorf("JWT_SECRET is required when a backend is configured")
		}
		cfg.JWTSecret = "offline-development-secret"
	}
	return cfg, nil
}
