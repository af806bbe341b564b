package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"roombooking/internal/config"
	"roombooking/internal/database"
	"roombooking/internal/logging"

	"github.com/golang-migrate/migrate/v4"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", envOr("CONFIG_PATH", "configs/config.yaml"), "path to config file")
	dbPath := flag.String("db", "", "database path, overrides database.path from the config")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	path := *dbPath
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("component", "migrate").Logger()
	if path == "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			logger.Fatal().Err(err).Str("config", *configPath).Msg("load config")
		}
		l, closer, err := logging.New(cfg.Logging, cfg.App)
		if err != nil {
			logger.Fatal().Err(err).Msg("init logger")
		}
		if closer != nil {
			defer closer.Close()
		}
		logger = l.With().Str("component", "migrate").Logger()
		path = cfg.Database.Path
	}

	if err := runCommand(path, args, &logger); err != nil {
		logger.Fatal().Err(err).Str("db_path", path).Str("command", args[0]).Msg("migration failed")
	}
}

func runCommand(path string, args []string, logger *zerolog.Logger) error {
	m, err := database.NewMigrator(path, logger)
	if err != nil {
		return err
	}
	defer m.Close()

	switch args[0] {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("up: %w", err)
		}
		logger.Info().Msg("migrations applied")

	case "down":
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 {
				return fmt.Errorf("down: invalid steps argument %q", args[1])
			}
			steps = n
		}
		if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("down: %w", err)
		}
		logger.Info().Int("steps", steps).Msg("migrations rolled back")

	case "version":
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("version: none")
			return nil
		}
		if err != nil {
			return fmt.Errorf("version: %w", err)
		}
		fmt.Printf("version: %d dirty: %v\n", v, dirty)

	case "force":
		if len(args) < 2 {
			return errors.New("force: version argument required")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("force: invalid version %q", args[1])
		}
		if err := m.Force(v); err != nil {
			return fmt.Errorf("force: %w", err)
		}
		logger.Info().Int("version", v).Msg("migration version forced")

	default:
		usage()
		os.Exit(2)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: migrate [-config path] [-db path] <command> [args]

Commands:
  up           Apply all pending migrations
  down [N]     Roll back N migrations (default 1)
  version      Print the current migration version
  force V      Set the version without running migrations`)
}
