package config

import (
	"fmt"
	"os"

	"github.com/zhangshuo1991/ai-food/logger"
	"github.com/zhangshuo1991/ai-food/models"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Load reads .env if present. A missing file is fine in production where
// the process environment carries the configuration.
func Load() {
	if err := godotenv.Load(); err != nil {
		logger.Warn("no .env file found, using system env vars")
	}
}

// GetEnv returns the value of key, or fallback when unset.
func GetEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// InitDB opens the Postgres connection and migrates the meal_records table.
// Failure is returned rather than fatal: the ledger degrades to an empty
// in-memory collection when the store is unreachable.
func InitDB() (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		GetEnv("DB_HOST", "localhost"),
		GetEnv("DB_USER", "postgres"),
		GetEnv("DB_PASSWORD", ""),
		GetEnv("DB_NAME", "smarteat"),
		GetEnv("DB_PORT", "5432"),
		GetEnv("DB_SSLMODE", "disable"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := db.AutoMigrate(&models.MealRecord{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return db, nil
}
