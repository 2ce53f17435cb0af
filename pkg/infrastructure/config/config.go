package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the serve-mode settings, read from environment variables.
// A .env file in the working directory is loaded first when present.
type Config struct {
	HTTPAddr     string `env:"FABRICA_HTTP_ADDR" envDefault:":8080"`
	DatabasePath string `env:"FABRICA_DB_PATH" envDefault:"fabrica.db"`
	ScenarioPath string `env:"FABRICA_SCENARIO" envDefault:""`
	LogLevel     string `env:"FABRICA_LOG_LEVEL" envDefault:"info"`
	LogAsJSON    bool   `env:"FABRICA_LOG_JSON" envDefault:"false"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	// missing .env is fine; explicit environment always wins
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return &cfg, nil
}
