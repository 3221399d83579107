package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type HTTP struct {
	Port string `env:"PORT" envDefault:"8080"`
}

type DB struct {
	URL             string        `env:"DATABASE_URL,required"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"16"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"8"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"1h"`
	ConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" envDefault:"15m"`
}

// Kafka mirroring is optional: with no bootstrap servers configured the
// service runs with database-only auditing.
type Kafka struct {
	BootstrapServers string `env:"KAFKA_BOOTSTRAP_SERVERS"`
	AuditTopic       string `env:"KAFKA_AUDIT_TOPIC" envDefault:"fiscal-audit-events"`
}

// Redis is optional as well: without an address every e-CAC consult
// goes straight to the portal.
type Redis struct {
	Addr string        `env:"REDIS_ADDR"`
	TTL  time.Duration `env:"ECAC_CACHE_TTL" envDefault:"10m"`
}

type Agency struct {
	BaseURL string        `env:"ECAC_BASE_URL" envDefault:"http://localhost:9090"`
	Timeout time.Duration `env:"ECAC_TIMEOUT" envDefault:"10s"`
}

type Config struct {
	HTTP     HTTP
	DB       DB
	Kafka    Kafka
	Redis    Redis
	Agency   Agency
	LogLevel string `env:"LOG_LEVEL" envDefault:"debug"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
