package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/museum-staffing/shift-manager/backend/internal/cache"
	"github.com/museum-staffing/shift-manager/backend/internal/config"
	"github.com/museum-staffing/shift-manager/backend/internal/logging"
	"github.com/museum-staffing/shift-manager/backend/internal/notify"
	"github.com/museum-staffing/shift-manager/backend/internal/repository"
	"github.com/museum-staffing/shift-manager/backend/internal/tasks"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/joho/godotenv/autoload"
)

// app holds the connections opened for a single command.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	repo   *repository.Repository
	cache  cache.Store
	runner *tasks.Runner

	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.logger.Sync()
}

var logDir string

func setup(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Environment, logDir)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}

	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	a.closers = append(a.closers, func() { _ = dbpool.Close() })
	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	pingCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()
	if err := dbpool.PingContext(pingCtx); err != nil {
		a.close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.repo = repository.NewRepository(cfg, dbpool)

	var store cache.Store
	switch cfg.Cache.Backend {
	case "memory":
		store = cache.NewMemory()
	default:
		rdb := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		store = cache.NewRedis(rdb, cfg.Cache.KeyPrefix)
		if err := store.Ping(pingCtx); err != nil {
			logger.Warn("cache unavailable, cached entries will not be invalidated", zap.Error(err))
			store = nil
		}
	}

	var mail notify.Publisher
	if conn, err := amqp.Dial(cfg.RabbitMQ.DSN); err != nil {
		logger.Warn("rabbitmq unavailable, mails will not be queued", zap.Error(err))
	} else {
		a.closers = append(a.closers, func() { _ = conn.Close() })
		ch, err := conn.Channel()
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to open channel: %w", err)
		}
		a.closers = append(a.closers, func() { _ = ch.Close() })
		if err := notify.Declare(ch, cfg.RabbitMQ.Queue); err != nil {
			a.close()
			return nil, fmt.Errorf("failed to declare queue: %w", err)
		}
		mail = notify.NewQueue(ch, cfg.RabbitMQ.Queue, time.Duration(cfg.RabbitMQ.PublishTimeout)*time.Second)
	}

	a.cache = store
	a.runner = tasks.NewRunner(a.repo, store, mail, logger, cfg.Location())
	return a, nil
}

// withApp wraps a command body with setup and teardown.
func withApp(fn func(ctx context.Context, a *app, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if err := fn(ctx, a, args); err != nil {
			a.logger.Error("command failed", zap.String("command", cmd.Name()), zap.Error(err))
			return err
		}
		return nil
	}
}

var rootCmd = &cobra.Command{
	Use:           "manage",
	Short:         "Maintenance and scheduling tasks for the museum staffing backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "logs", "directory for JSON log files, empty disables them")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
