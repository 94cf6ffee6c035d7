package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads the environment, after an optional .env file (ENV_FILE, default ".env").
func Load() (App, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return App{}, fmt.Errorf("config.godotenv(%s): %w", envFile, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return App{}, fmt.Errorf("config.stat(%s): %w", envFile, err)
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("DATABASE_DRIVER", "postgres")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("AUTO_MIGRATE", true)
	v.SetDefault("JWT_SECRET", "local_dev_secret")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("RABBITMQ_EXCHANGE", "library.events")
	v.SetDefault("LOAN_PERIOD", 7*24*time.Hour)
	v.SetDefault("FINE_PER_DAY", int64(1000))
	v.SetDefault("ACTIVE_ACADEMIC_YEAR", "")
	v.AutomaticEnv()

	cfg := App{
		Port:               v.GetString("APP_PORT"),
		Env:                v.GetString("APP_ENV"),
		DatabaseDriver:     v.GetString("DATABASE_DRIVER"),
		DatabaseURL:        v.GetString("DATABASE_URL"),
		AutoMigrate:        v.GetBool("AUTO_MIGRATE"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		RabbitMQURL:        v.GetString("RABBITMQ_URL"),
		RabbitMQExchange:   v.GetString("RABBITMQ_EXCHANGE"),
		LoanPeriod:         v.GetDuration("LOAN_PERIOD"),
		FinePerDay:         v.GetInt64("FINE_PER_DAY"),
		ActiveAcademicYear: v.GetString("ACTIVE_ACADEMIC_YEAR"),
	}
	// PORT wins for platforms that inject it
	if p := os.Getenv("PORT"); p != "" {
		cfg.Port = p
	}
	return cfg, cfg.validate()
}

func (a App) validate() error {
	switch a.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("DATABASE_DRIVER must be postgres or sqlite, got %q", a.DatabaseDriver)
	}
	if a.DatabaseURL == "" && a.DatabaseDriver == "postgres" {
		slog.Error("required env missing", "key", "DATABASE_URL")
		return errors.New("missing env DATABASE_URL")
	}
	if a.LoanPeriod <= 0 {
		return errors.New("LOAN_PERIOD must be positive")
	}
	if a.FinePerDay < 0 {
		return errors.New("FINE_PER_DAY must not be negative")
	}
	return nil
}
