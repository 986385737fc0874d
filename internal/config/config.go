package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment    string
	HTTPAddr       string
	DBDSN          string
	MigrationsPath string

	MongoURI      string
	MongoDatabase string

	AuthJWTSecret string
	AuthIssuer    string

	TelegramToken string
	Location      *time.Location

	FollowupDelay         time.Duration // через сколько простоя напоминать ученику
	FollowupSweepInterval time.Duration
	BookingSweepInterval  time.Duration
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	cfg := &Config{
		Environment:    getEnv("ENV", "development"),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		DBDSN:          os.Getenv("DB_DSN"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		MongoURI:       os.Getenv("MONGO_URI"),
		MongoDatabase:  getEnv("MONGO_DATABASE", "tutor_market"),
		AuthJWTSecret:  os.Getenv("AUTH_JWT_SECRET"),
		AuthIssuer:     os.Getenv("AUTH_ISSUER"),
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
	}

	// Проверяем обязательные поля
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}
	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("MONGO_URI is required but not set")
	}
	if cfg.AuthJWTSecret == "" {
		return nil, fmt.Errorf("AUTH_JWT_SECRET is required but not set")
	}

	loc, err := time.LoadLocation(getEnv("TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("load TIMEZONE: %w", err)
	}
	cfg.Location = loc

	if cfg.FollowupDelay, err = getDuration("FOLLOWUP_DELAY", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.FollowupSweepInterval, err = getDuration("FOLLOWUP_SWEEP_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.BookingSweepInterval, err = getDuration("BOOKING_SWEEP_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}

	log.Printf("Config loaded\n")

	return cfg, nil
}

// IsProduction проверяет окружение
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}
