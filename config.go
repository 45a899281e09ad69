package gmkit

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config carries environment configuration for binaries embedding the engine.
// DatabaseURL selects the Postgres store backend when set; otherwise records
// live as JSON files under DataDir.
type Config struct {
	DataDir     string        `env:"GMKIT_DATA_DIR" envDefault:"./data"`
	DatabaseURL string        `env:"GMKIT_DATABASE_URL"`
	TablePrefix string        `env:"GMKIT_TABLE_PREFIX" envDefault:"gmkit"`
	ReadyTTL    time.Duration `env:"GMKIT_READY_TTL" envDefault:"12h"`
}

// ParseConfig loads configuration from environment variables.
func ParseConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment config: %w", err)
	}

	return cfg, nil
}
