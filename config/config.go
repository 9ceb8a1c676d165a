package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/MarcGrol/storefront/lib/mykv"
)

const DefaultBackendURL = "https://shop-backend-jg9e.onrender.com"

type Config struct {
	Port            string
	BackendURL      string
	ProjectID       string
	Cart            mykv.Config
	NotificationTTL time.Duration
	HTTPTimeout     time.Duration
	LogLevel        string
}

// Load reads the given .env files (".env" when none are given) when present and then the environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// a missing file is fine, the environment may carry everything
		if _, err := os.Stat(f); err != nil {
			continue
		}
		err := godotenv.Load(f)
		if err != nil {
			return nil, fmt.Errorf("error loading %s: %w", f, err)
		}
	}

	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	defaultBackend := mykv.KindFile
	if projectID != "" {
		defaultBackend = mykv.KindDatastore
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("REDIS_DB must be an integer: %w", err)
	}
	notificationTTL, err := time.ParseDuration(getEnv("NOTIFICATION_TTL", "3s"))
	if err != nil {
		return nil, fmt.Errorf("NOTIFICATION_TTL must be a duration: %w", err)
	}
	httpTimeout, err := time.ParseDuration(getEnv("HTTP_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("HTTP_TIMEOUT must be a duration: %w", err)
	}

	return &Config{
		Port:       getEnv("PORT", "8080"),
		BackendURL: getEnv("BACKEND_URL", DefaultBackendURL),
		ProjectID:  projectID,
		Cart: mykv.Config{
			Kind:          getEnv("CART_BACKEND", defaultBackend),
			FileDir:       getEnv("CART_FILE_DIR", ".storefront"),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       redisDB,
			ProjectID:     projectID,
		},
		NotificationTTL: notificationTTL,
		HTTPTimeout:     httpTimeout,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
