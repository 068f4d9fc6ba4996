package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/pflag"
)

const (
	dsnFlag        = "dsn"
	migrationsFlag = "migrations-path"

	defaultMigrationsPath = "migrations"
)

func main() {
	dsn, migrationsPath := parseFlags()
	if dsn == "" {
		slog.Error(fmt.Sprintf("--%s flag: required", dsnFlag))
		fallDown()
	}
	applyMigrations(dsn, migrationsPath)
}

type migrateLogger struct {
	logger *slog.Logger
}

func (ml migrateLogger) Printf(format string, v ...any) {
	ml.logger.Info(fmt.Sprintf(format, v...))
}

func (ml migrateLogger) Verbose() bool {
	return true
}

func parseFlags() (dsn, migrationsPath string) {
	d := pflag.StringP(
		dsnFlag, "d", "",
		"postgres connection string, e.g. pos:secret@localhost:5432/pos",
	)
	m := pflag.StringP(
		migrationsFlag, "m", defaultMigrationsPath,
		"directory with the products/sales migration files",
	)
	pflag.Parse()
	return *d, *m
}

func applyMigrations(dsn, migrationsPath string) {
	m, err := migrate.New(
		fmt.Sprintf("file://%s", migrationsPath),
		fmt.Sprintf("pgx5://%s", dsn),
	)
	if err != nil {
		slog.Error("failed to init migrations", "err", err)
		fallDown()
	}

	m.Log = migrateLogger{slog.Default()}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.Log.Printf("schema is up to date")
			return
		}
		slog.Error("failed to apply migrations", "err", err)
		fallDown()
	}
	m.Log.Printf("schema migrated")
}

func fallDown() {
	os.Exit(2)
}
