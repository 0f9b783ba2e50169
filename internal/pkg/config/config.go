package config

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/V4T54L/cellguard/internal/detection"
)

// Config holds all application configuration.
type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Timescale DatabaseConfig `envPrefix:"TIMESCALE_"`
	Postgres  DatabaseConfig `envPrefix:"POSTGRES_"`
	Redis     RedisConfig    `envPrefix:"REDIS_"`

	Thresholds      detection.Thresholds
	DetectionWindow time.Duration `env:"DETECTION_WINDOW" envDefault:"1h"`

	AlertSnapshotTTL   time.Duration `env:"ALERT_SNAPSHOT_TTL" envDefault:"300s"`
	MetricsSnapshotTTL time.Duration `env:"METRICS_SNAPSHOT_TTL" envDefault:"60s"`
	ActiveAlertsMax    int64         `env:"ACTIVE_ALERTS_MAX" envDefault:"100"`
	CacheNamespace     string        `env:"CACHE_NAMESPACE" envDefault:"cybercell"`
	AlertNumberPrefix  string        `env:"ALERT_NUMBER_PREFIX" envDefault:"FR"`

	MigrateOnStart bool `env:"MIGRATE_ON_START" envDefault:"true"`

	PIIRedactionFields []string `env:"PII_REDACTION_FIELDS" envDefault:"phone_number,sender,receiver,destination,ip_address"`

	SpoolDir         string `env:"SPOOL_DIR" envDefault:"./data/spool"`
	SpoolSegmentSize int64  `env:"SPOOL_SEGMENT_SIZE_BYTES" envDefault:"104857600"`   // 100MB
	SpoolMaxDiskSize int64  `env:"SPOOL_MAX_DISK_SIZE_BYTES" envDefault:"1073741824"` // 1GB

	ProcessingInterval time.Duration `env:"PROCESSING_INTERVAL" envDefault:"5s"`
	MetricsAddr        string        `env:"METRICS_ADDR" envDefault:":9091"`
}

// DatabaseConfig describes one PostgreSQL-protocol database.
type DatabaseConfig struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     int    `env:"PORT" envDefault:"5432"`
	Name     string `env:"DB" envDefault:"cellguard"`
	User     string `env:"USER" envDefault:"postgres"`
	Password string `env:"PASSWORD"`
	SSLMode  string `env:"SSLMODE" envDefault:"disable"`
}

// DSN renders the connection as a postgres:// URL accepted by lib/pq and
// golang-migrate alike.
func (c DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		Host:     c.Host + ":" + strconv.Itoa(c.Port),
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	} else {
		u.User = url.User(c.User)
	}
	return u.String()
}

// RedisConfig describes the cache connection.
type RedisConfig struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     int    `env:"PORT" envDefault:"6379"`
	DB       int    `env:"DB" envDefault:"0"`
	Password string `env:"PASSWORD"`
}

// Addr returns host:port.
func (c RedisConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.ActiveAlertsMax <= 0 {
		return fmt.Errorf("ACTIVE_ALERTS_MAX must be positive, got %d", c.ActiveAlertsMax)
	}
	if c.DetectionWindow <= 0 {
		return fmt.Errorf("DETECTION_WINDOW must be positive, got %s", c.DetectionWindow)
	}
	if c.SpoolSegmentSize <= 0 || c.SpoolMaxDiskSize < c.SpoolSegmentSize {
		return fmt.Errorf("spool sizes are inconsistent: segment %d, max disk %d", c.SpoolSegmentSize, c.SpoolMaxDiskSize)
	}
	return nil
}
