// Package server initializes and runs the auth server: it opens the
// database, applies migrations, wires the service layer and starts the HTTP
// endpoint, shutting everything down on SIGINT/SIGTERM.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/quizzyapp/quizzy-backend/internal/logging"
	"github.com/quizzyapp/quizzy-backend/internal/server/config"
	"github.com/quizzyapp/quizzy-backend/internal/server/httpserver"
	"github.com/quizzyapp/quizzy-backend/internal/server/mail"
	"github.com/quizzyapp/quizzy-backend/internal/server/repositories/repomanager"
	"github.com/quizzyapp/quizzy-backend/internal/server/services"
)

type App struct {
	config *config.Config
	logger logging.Logger
}

func NewApp(cfg *config.Config) *App {
	l := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	return &App{config: cfg, logger: logging.NewSlogLogger(l)}
}

// OpenDB opens the pgx connection pool and waits for the database to accept
// connections, retrying the ping with exponential backoff. Postgres is
// often still starting when the server comes up in a fresh environment.
func OpenDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	backoff := retry.WithMaxRetries(5, retry.NewExponential(500*time.Millisecond))
	if err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	return db, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app")

	app.initSignalHandler(cancelFunc)

	db, err := OpenDB(ctx, app.config.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	mailer := mail.NewLogMailer(app.logger)
	authService := services.NewAuthService(db, rm, mailer, app.logger, app.config)

	srv := httpserver.New(authService, app.logger, app.config)
	return srv.Run(ctx)
}
