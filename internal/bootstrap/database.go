package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ageagekun/docqueue/config"
	"github.com/ageagekun/docqueue/internal/data"
)

const applicationName = "docqueue"

// DatabaseConfig contains configuration for database connections.
type DatabaseConfig struct {
	DBConfig    config.DBConfig
	RedisConfig config.RedisConfig
	// Modes are the service modes this process will run. Nil means no
	// background work, as in the admin CLI.
	Modes  map[config.ServiceMode]bool
	Logger *slog.Logger
}

// poolPlan is the database/sql pool configuration for one process.
type poolPlan struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
	Reserved    int
}

// planPool adds the connections held by background modes to the configured
// request pool: any running mode shares the LISTEN connection, checked out for
// the life of the process, and the merge worker and file mover each keep one
// connection busy while they work through their backlog.
func planPool(cfg config.DBConfig, modes map[config.ServiceMode]bool) poolPlan {
	reserved := 0
	if len(modes) > 0 {
		reserved++
	}
	if modes[config.ServiceModeMergeWorker] {
		reserved++
	}
	if modes[config.ServiceModeFileMover] {
		reserved++
	}

	plan := poolPlan{
		MaxOpen:     max(cfg.MaxOpenConns, 1) + reserved,
		MaxIdle:     max(cfg.MaxIdleConns, 0) + reserved,
		MaxLifetime: cfg.ConnMaxLifetime,
		MaxIdleTime: cfg.ConnMaxIdleTime,
		Reserved:    reserved,
	}
	plan.MaxIdle = min(plan.MaxIdle, plan.MaxOpen)
	return plan
}

// postgresDSN builds the connection URL. url.URL escapes credentials.
func postgresDSN(cfg config.DBConfig) string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Name,
	}
	q := u.Query()
	q.Set("sslmode", cfg.SSLMode)
	q.Set("application_name", applicationName)
	if secs := int(cfg.ConnectTimeout / time.Second); secs > 0 {
		q.Set("connect_timeout", strconv.Itoa(secs))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// ConnectDB opens the PostgreSQL pool sized for the process's service modes
// and verifies it with a ping.
func ConnectDB(cfg DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", postgresDSN(cfg.DBConfig))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	plan := planPool(cfg.DBConfig, cfg.Modes)
	db.SetMaxOpenConns(plan.MaxOpen)
	db.SetMaxIdleConns(plan.MaxIdle)
	db.SetConnMaxLifetime(plan.MaxLifetime)
	db.SetConnMaxIdleTime(plan.MaxIdleTime)

	timeout := cfg.DBConfig.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if pingErr := db.PingContext(ctx); pingErr != nil {
		if closeErr := db.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close database connection: %w", closeErr))
		}
		return nil, fmt.Errorf("ping database: %w", pingErr)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("database connected",
			"host", cfg.DBConfig.Host,
			"port", cfg.DBConfig.Port,
			"database", cfg.DBConfig.Name,
			"max_open_conns", plan.MaxOpen,
			"reserved_conns", plan.Reserved,
		)
	}
	return db, nil
}

// ConnectRedis connects the client shared by the merge job store and the
// realtime relay. It returns a nil client when Redis is disabled.
//
//nolint:ireturn // a sentinel failover client and a direct client share redis.UniversalClient.
func ConnectRedis(cfg DatabaseConfig) (redis.UniversalClient, error) {
	if !cfg.RedisConfig.Enabled {
		return nil, nil
	}

	client, target, err := newRedisClient(cfg.RedisConfig)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if pingErr := client.Ping(ctx).Err(); pingErr != nil {
		if closeErr := client.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close redis client: %w", closeErr))
		}
		return nil, fmt.Errorf("ping redis %s: %w", target, pingErr)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("redis connected", "target", target)
	}
	return client, nil
}

// newRedisClient builds the client without dialing. target describes it for
// logs and never carries credentials.
//
//nolint:ireturn // see ConnectRedis.
func newRedisClient(cfg config.RedisConfig) (redis.UniversalClient, string, error) {
	if cfg.UseSentinel {
		if len(cfg.SentinelNodes) == 0 {
			return nil, "", errors.New("redis sentinel configuration requires at least one sentinel node")
		}
		if cfg.SentinelMasterName == "" {
			return nil, "", errors.New("redis sentinel configuration requires a master name")
		}
		client := redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:       cfg.SentinelMasterName,
			SentinelAddrs:    cfg.SentinelNodes,
			Password:         cfg.Password,
			SentinelPassword: cfg.SentinelPassword,
			DB:               cfg.DB,
		})
		return client, "sentinel:" + cfg.SentinelMasterName, nil
	}

	uri := strings.TrimSpace(cfg.URI)
	if uri == "" {
		return nil, "", errors.New("redis configuration requires a URI")
	}
	if !strings.HasPrefix(uri, "redis://") && !strings.HasPrefix(uri, "rediss://") {
		return redis.NewClient(&redis.Options{Addr: uri, Password: cfg.Password, DB: cfg.DB}), uri, nil
	}

	opt, err := redis.ParseURL(uri)
	if err != nil {
		// ParseURL errors can echo the URI; keep credentials out of the message.
		return nil, "", errors.New("parse redis url: invalid URI")
	}
	if opt.Password == "" {
		opt.Password = cfg.Password
	}
	target := opt.Addr + "/" + strconv.Itoa(opt.DB)
	if opt.TLSConfig != nil {
		target = "tls:" + target
	}
	return redis.NewClient(opt), target, nil
}

// RunMigrations runs database migrations.
func RunMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if err := data.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	if logger != nil {
		logger.InfoContext(ctx, "database migrations completed")
	}

	return nil
}
