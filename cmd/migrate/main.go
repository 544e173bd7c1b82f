package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/condo-backend/pkg/config"
	"github.com/angelmondragon/condo-backend/pkg/db"
	"github.com/angelmondragon/condo-backend/pkg/logger"
	"github.com/angelmondragon/condo-backend/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

func (o options) source() migrate.Source {
	if o.dir == "" {
		return migrate.Embedded()
	}
	return migrate.Directory(o.dir)
}

type gooseCommand func(ctx context.Context, sqlDB *sql.DB, o options) error

func gooseRun(command string) gooseCommand {
	return func(ctx context.Context, sqlDB *sql.DB, o options) error {
		return migrate.Run(ctx, sqlDB, o.source(), command)
	}
}

func migrateToVersion(ctx context.Context, sqlDB *sql.DB, o options) error {
	if o.version == "" {
		return errors.New("missing -version for version command")
	}
	return migrate.MigrateToVersion(ctx, sqlDB, o.source(), o.version)
}

// gooseCommands run against a live Postgres connection.
var gooseCommands = map[string]gooseCommand{
	"up":      gooseRun("up"),
	"down":    gooseRun("down"),
	"status":  gooseRun("status"),
	"version": migrateToVersion,
}

func main() {
	var o options
	flag.StringVar(&o.cmd, "cmd", "up", "migration command: up|down|status|version|create|validate")
	flag.StringVar(&o.dir, "dir", "", "migrations directory on disk (default: embedded migrations; "+migrate.DefaultDir+" for create)")
	flag.StringVar(&o.name, "name", "", "migration name (for create)")
	flag.StringVar(&o.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	_ = godotenv.Load()
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": o.cmd,
		"dir": o.dir,
	})

	if err := run(ctx, cfg, logg, o); err != nil {
		logg.Error(ctx, "migrate failed", err)
		fmt.Fprintf(os.Stderr, "migrate -cmd=%s: %v\n", o.cmd, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, o options) error {
	switch o.cmd {
	case "create":
		if o.name == "" {
			return errors.New("missing -name for create")
		}
		dir := o.dir
		if dir == "" {
			dir = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(dir, o.name)
		if err != nil {
			return err
		}
		fmt.Println("created migration:", path)
		return nil
	case "validate":
		if err := migrate.Validate(o.source()); err != nil {
			return err
		}
		fmt.Println("migration validation passed")
		return nil
	}

	command, ok := gooseCommands[o.cmd]
	if !ok {
		return fmt.Errorf("unknown -cmd value %q", o.cmd)
	}

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer dbClient.Close()

	if dbClient.Dialect() == config.DriverSQLite {
		if o.cmd != "up" {
			return fmt.Errorf("-cmd=%s is not supported on sqlite", o.cmd)
		}
		if err := dbClient.EnsureSQLiteSchema(ctx); err != nil {
			return err
		}
		logg.Info(ctx, "sqlite schema applied")
		return nil
	}

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("sql database: %w", err)
	}
	logg.Info(ctx, "migrate ready")
	return command(ctx, sqlDB, o)
}
