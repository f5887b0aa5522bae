package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Redis captures connection settings for the optional Redis backends.
type Redis struct {
	URL          string        `env:"URL"`
	PoolSize     int           `env:"POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"3s"`
}

// Server is the full process configuration. Backends are selected by presence:
// an empty DSN/URL/path means the in-memory implementation.
type Server struct {
	Addr     string `env:"ADDR" envDefault:":8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// AdminAddress is the single administrator allowed to register identities.
	AdminAddress string `env:"ADMIN_ADDRESS,notEmpty"`
	// DirectoryAddress is the directory's own address; vaults trust it on the
	// proxied path.
	DirectoryAddress string `env:"DIRECTORY_ADDRESS" envDefault:"directory"`

	TemplateKindID uint64 `env:"TEMPLATE_KIND_ID" envDefault:"1"`
	TemplateHash   string `env:"TEMPLATE_HASH" envDefault:"vault-v1"`

	PermitSigningKey string `env:"PERMIT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	PermitIssuer     string `env:"PERMIT_ISSUER" envDefault:"vaultd"`

	PostgresDSN string `env:"POSTGRES_DSN"`
	SQLiteDir   string `env:"SQLITE_DIR"`

	KafkaSeeds []string `env:"KAFKA_SEEDS" envSeparator:","`
	AuditTopic string   `env:"AUDIT_TOPIC" envDefault:"vaultd.audit"`

	PageSize        int           `env:"PAGE_SIZE" envDefault:"5"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	Redis Redis `envPrefix:"REDIS_"`
}

// Load parses configuration from VAULTD_-prefixed environment variables.
func Load() (Server, error) {
	var cfg Server
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "VAULTD_"}); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
