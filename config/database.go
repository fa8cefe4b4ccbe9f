package config

import (
	"strings"
	"time"
)

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"docqueue"`
	Password string `env:"PASSWORD" envDefault:"docqueue"`
	Name     string `env:"NAME"     envDefault:"docqueue"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // Use 'disable' for local dev, 'require' for production

	// MaxOpenConns is the pool available to request handling. Connections
	// pinned by background modes (the LISTEN connection, the merge worker)
	// are added on top.
	MaxOpenConns int `env:"MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns int `env:"MAX_IDLE_CONNS" envDefault:"5"`

	// ConnMaxLifetime recycles pooled connections. It never applies to the
	// LISTEN connection, which is checked out for the life of the process.
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME"  envDefault:"30m"`
	ConnMaxIdleTime time.Duration `env:"CONN_MAX_IDLE_TIME" envDefault:"5m"`

	// ConnectTimeout bounds dialing and the startup ping.
	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT" envDefault:"5s"`

	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// Sanitize applies guardrails to pool settings.
func (d *DBConfig) Sanitize() {
	if d.MaxOpenConns < 1 {
		d.MaxOpenConns = 1
	}
	if d.MaxIdleConns < 0 {
		d.MaxIdleConns = 0
	}
	if d.MaxIdleConns > d.MaxOpenConns {
		d.MaxIdleConns = d.MaxOpenConns
	}
	if d.ConnMaxLifetime < 0 {
		d.ConnMaxLifetime = 0
	}
	if d.ConnMaxIdleTime < 0 {
		d.ConnMaxIdleTime = 0
	}
	if d.ConnectTimeout <= 0 {
		d.ConnectTimeout = 5 * time.Second
	}
}

// RedisConfig contains Redis configuration. Redis is optional: without it
// merge job state is kept in memory and no cross-process relay runs.
//
// Two topologies are supported: a single server addressed by URI, or a
// sentinel-managed primary. Both serve the job store and the relay's pub/sub.
type RedisConfig struct {
	Enabled  bool   `env:"ENABLED"  envDefault:"false"`
	URI      string `env:"URI"      envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`

	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
}

// Sanitize trims addresses.
func (r *RedisConfig) Sanitize() {
	r.URI = strings.TrimSpace(r.URI)
	nodes := r.SentinelNodes[:0]
	for _, n := range r.SentinelNodes {
		if n = strings.TrimSpace(n); n != "" {
			nodes = append(nodes, n)
		}
	}
	r.SentinelNodes = nodes
	if r.DB < 0 {
		r.DB = 0
	}
}
