package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is the service configuration, loaded from environment
// variables.
type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	Port        string `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"INFO"`

	// SessionTTLHours bounds how long a projection session stays
	// fetchable after calculation.
	SessionTTLHours int `env:"SESSION_TTL_HOURS" envDefault:"24"`

	// AnalyzeSchedule and ReportSchedule are cron expressions (or
	// descriptors like "@daily"); empty disables the job.
	AnalyzeSchedule string `env:"ANALYZE_SCHEDULE" envDefault:"@daily"`
	ReportSchedule  string `env:"REPORT_SCHEDULE" envDefault:"@monthly"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

// Load parses the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}
