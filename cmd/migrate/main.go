package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"pricecompare/internal/common/config"
	"pricecompare/internal/common/logging"
)

func usage() {
	fmt.Println("Usage: migrate [-path dir] <command>")
	fmt.Println("Commands:")
	fmt.Println("  up           Apply all pending catalog migrations")
	fmt.Println("  down         Roll back the last migration")
	fmt.Println("  force <v>    Mark version v as applied and clear the dirty flag")
	fmt.Println("  drop         Drop the catalog schema objects (DANGEROUS)")
	fmt.Println("  version      Show current migration version")
}

func main() {
	path := flag.String("path", "migrations", "directory holding the SQL migrations")
	flag.Parse()
	args := flag.Args()

	if len(args) < 1 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	m, err := migrate.New("file://"+*path, cfg.DatabaseURL)
	if err != nil {
		logging.Error("Failed to create migrator", "error", err, "path", *path)
		os.Exit(1)
	}
	defer m.Close()

	if err := run(m, args); err != nil {
		logging.Error("Migration command failed", "command", args[0], "error", err)
		os.Exit(1)
	}
}

func run(m *migrate.Migrate, args []string) error {
	switch args[0] {
	case "up":
		logging.Info("Applying migrations")
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		logging.Info("Migrations applied")

	case "down":
		logging.Info("Rolling back last migration")
		if err := m.Steps(-1); err != nil {
			return err
		}
		logging.Info("Rollback completed")

	case "force":
		if len(args) < 2 {
			return errors.New("force requires a version")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[1], err)
		}
		if err := m.Force(v); err != nil {
			return err
		}
		logging.Info("Version forced", "version", v)

	case "drop":
		logging.Warn("Dropping catalog schema objects")
		if err := m.Drop(); err != nil {
			return err
		}
		logging.Info("Drop completed")

	case "version":
		version, dirty, err := m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			return err
		}
		fmt.Printf("Version: %d, Dirty: %v\n", version, dirty)

	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
	return nil
}
