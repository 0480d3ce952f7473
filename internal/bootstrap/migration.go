package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Potenup-community/backend-sub002/internal/config"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const migrationsDir = "migrations"

var ErrUnknownMigrateCommand = errors.New("unknown migrate command")

func Migrate(ctx context.Context, cfg config.Config, cmd string, version int64) error {
	if cfg.Database.WriteDSN == "" {
		return errors.New("db: WriteDSN is required")
	}

	action, ok := migrateActions(version)[cmd]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMigrateCommand, cmd)
	}

	pgxCfg, err := pgx.ParseConfig(cfg.Database.WriteDSN)
	if err != nil {
		return err
	}
	pgxCfg.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	db := stdlib.OpenDB(*pgxCfg)
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return err
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return action(ctx, db)
}

func migrateActions(version int64) map[string]func(context.Context, *sql.DB) error {
	return map[string]func(context.Context, *sql.DB) error{
		"up":      func(ctx context.Context, db *sql.DB) error { return goose.UpContext(ctx, db, migrationsDir) },
		"down":    func(ctx context.Context, db *sql.DB) error { return goose.DownContext(ctx, db, migrationsDir) },
		"status":  func(ctx context.Context, db *sql.DB) error { return goose.StatusContext(ctx, db, migrationsDir) },
		"version": func(ctx context.Context, db *sql.DB) error { return goose.VersionContext(ctx, db, migrationsDir) },
		"redo":    func(ctx context.Context, db *sql.DB) error { return goose.RedoContext(ctx, db, migrationsDir) },
		"reset":   func(ctx context.Context, db *sql.DB) error { return goose.ResetContext(ctx, db, migrationsDir) },
		"up-to": func(ctx context.Context, db *sql.DB) error {
			return goose.UpToContext(ctx, db, migrationsDir, version)
		},
		"down-to": func(ctx context.Context, db *sql.DB) error {
			return goose.DownToContext(ctx, db, migrationsDir, version)
		},
	}
}
