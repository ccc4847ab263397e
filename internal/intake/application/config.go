package application

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config defines shipment intake settings.
type Config struct {
	Sheet         string `yaml:"sheet"`
	SkipHeader    bool   `yaml:"skip_header"`
	MaxRows       int    `yaml:"max_rows"`
	DefaultBranch string `yaml:"default_branch"`
}

// LoadConfig loads intake config from yaml or env.
func LoadConfig() (Config, error) {
	cfg := Config{
		Sheet:         getenvDefault("INTAKE_SHEET", ""),
		SkipHeader:    getenvBoolDefault("INTAKE_SKIP_HEADER", true),
		MaxRows:       getenvIntDefault("INTAKE_MAX_ROWS", 5000),
		DefaultBranch: os.Getenv("INTAKE_DEFAULT_BRANCH"),
	}

	if path := os.Getenv("INTAKE_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 5000
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvIntDefault(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvBoolDefault(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
