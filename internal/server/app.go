// Package server initializes and runs the zkvault auth server: PostgreSQL
// storage with embedded migrations, the user service and the REST API.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/zkvault/internal/dbx"
	"github.com/dmitrijs2005/zkvault/internal/logging"
	"github.com/dmitrijs2005/zkvault/internal/server/config"
	"github.com/dmitrijs2005/zkvault/internal/server/httpapi"
	"github.com/dmitrijs2005/zkvault/internal/server/migrations"
	"github.com/dmitrijs2005/zkvault/internal/server/repositories/users"
	"github.com/dmitrijs2005/zkvault/internal/server/services"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	userService *services.UserService
}

// OpenDB connects to PostgreSQL through pgx and applies migrations.
func OpenDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	if err := dbx.RunMigrations(ctx, db, migrations.Dialect, migrations.FS); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stdout, c.LogLevel)

	db, err := OpenDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	us := services.NewUserService(users.NewPostgresRepository(db), c, logger)
	return &App{config: c, logger: logger, db: db, userService: us}, nil
}

// Run serves the REST API until SIGINT/SIGTERM/SIGQUIT or ctx is done.
func (app *App) Run(ctx context.Context) error {
	defer app.db.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app.logger.Info(ctx, "Starting app...")

	s := httpapi.NewHTTPServer(app.config.HTTPAddr, app.logger, app.userService)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "server stopped", "error", err)
		return err
	}
	return nil
}

// HealSalt gives userName a salt if it has none and prints the result.
func (app *App) HealSalt(ctx context.Context, userName string) error {
	defer app.db.Close()

	salt, healed, err := app.userService.HealSalt(ctx, userName)
	if err != nil {
		return err
	}
	if healed {
		fmt.Printf("Generated salt for %s: %s\n", userName, salt)
	} else {
		fmt.Printf("User %s already has a salt: %s\n", userName, salt)
	}
	return nil
}
