package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for melawatch
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Simulation SimulationConfig `yaml:"simulation"`
	Insights   InsightsConfig   `yaml:"insights"`
	Reports    ReportsConfig    `yaml:"reports"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        int    `yaml:"port"`
	Environment string `yaml:"environment"`
}

// SimulationConfig holds fleet simulation configuration.
// Fleet composition and status weights are compiled in; only the
// cadence and the RNG seed are tunable.
type SimulationConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
	Seed         int64         `yaml:"seed"` // 0 means time-based
}

// InsightsConfig holds insight generation configuration
type InsightsConfig struct {
	RecommendationDelay time.Duration `yaml:"recommendation_delay"`
}

// ReportsConfig holds citizen report configuration
type ReportsConfig struct {
	MaxOpenReports int `yaml:"max_open_reports"`
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        getEnvInt("PORT", 3010),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Simulation: SimulationConfig{
			TickInterval: getEnvDuration("SIM_TICK_INTERVAL", 20*time.Second),
			Seed:         getEnvInt64("SIM_SEED", 0),
		},
		Insights: InsightsConfig{
			RecommendationDelay: getEnvDuration("RECOMMENDATION_DELAY", time.Second),
		},
		Reports: ReportsConfig{
			MaxOpenReports: getEnvInt("MAX_OPEN_REPORTS", 1000),
		},
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 3010
	}
	if c.Server.Environment == "" {
		c.Server.Environment = "development"
	}
	if c.Simulation.TickInterval == 0 {
		c.Simulation.TickInterval = 20 * time.Second
	}
	if c.Insights.RecommendationDelay == 0 {
		c.Insights.RecommendationDelay = time.Second
	}
	if c.Reports.MaxOpenReports == 0 {
		c.Reports.MaxOpenReports = 1000
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
