package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/braydenmsue/cacheroyale-pomodoro/internal/config"
	"github.com/braydenmsue/cacheroyale-pomodoro/internal/db"
	"github.com/braydenmsue/cacheroyale-pomodoro/internal/logger"
	"github.com/braydenmsue/cacheroyale-pomodoro/internal/server"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var mainDepsProvider = defaultDeps
var mainRunner = realMain

func main() {
	mainRunner(mainDepsProvider())
}

type mainDeps struct {
	loadConfig      func() config.Config
	newLogger       func(config.Config) *logrus.Logger
	runMigrations   func(string) error
	connectPostgres func(config.Config) (*pgxpool.Pool, error)
	connectRedis    func(config.Config) (*redis.Client, error)
	notify          func(chan<- os.Signal, ...os.Signal)
	run             func(context.Context, config.Config, *pgxpool.Pool, *redis.Client, *logrus.Logger, <-chan os.Signal, ListenFunc) error
}

func defaultDeps() mainDeps {
	return mainDeps{
		loadConfig: config.Load,
		newLogger: func(cfg config.Config) *logrus.Logger {
			return logger.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
		},
		runMigrations:   db.RunMigrations,
		connectPostgres: db.ConnectPostgres,
		connectRedis:    db.ConnectRedis,
		notify:          signal.Notify,
		run:             Run,
	}
}

func realMain(deps mainDeps) {
	cfg := deps.loadConfig()
	log := deps.newLogger(cfg)

	pg, err := deps.connectPostgres(cfg)
	if err != nil {
		log.WithError(err).Error("postgres connection failed")
	} else if cfg.RunMigrations {
		if err := deps.runMigrations(cfg.PostgresURL); err != nil {
			log.WithError(err).Error("migrations failed")
		}
	}

	rdb, err := deps.connectRedis(cfg)
	if err != nil {
		log.WithError(err).Warn("redis unavailable, streaming stays local")
	}

	signals := make(chan os.Signal, 1)
	deps.notify(signals, syscall.SIGINT, syscall.SIGTERM)

	if err := deps.run(context.Background(), cfg, pg, rdb, log, signals, nil); err != nil {
		log.WithError(err).Error("server exited with error")
	}
}

type ListenFunc func(app *fiber.App, addr string) error

var defaultListen ListenFunc = func(app *fiber.App, addr string) error {
	return app.Listen(addr)
}

var shutdownFn = func(app *fiber.App, ctx context.Context) error {
	return app.ShutdownWithContext(ctx)
}

const shutdownTimeout = 5 * time.Second

// Run starts the HTTP server and waits for termination signals.
func Run(ctx context.Context, cfg config.Config, pg *pgxpool.Pool, rdb *redis.Client, log *logrus.Logger, signals <-chan os.Signal, listen ListenFunc) error {
	if log == nil {
		log = logger.Discard()
	}

	var database db.Querier
	if pg != nil {
		database = pg
	}
	srv := server.NewServer(cfg, database, rdb, log)

	if listen == nil {
		listen = defaultListen
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- listen(srv.App, cfg.ServerPort)
	}()
	log.WithField("addr", cfg.ServerPort).Info("server listening")

	select {
	case <-signals:
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Close(shutdownCtx); err != nil {
		log.WithError(err).Warn("tracking shutdown")
	}
	if err := shutdownFn(srv.App, shutdownCtx); err != nil {
		return err
	}
	if pg != nil {
		pg.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	log.Info("server stopped")
	return nil
}
