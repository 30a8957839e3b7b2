package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/billforge/backend/internal/infrastructure/config"
	"github.com/billforge/backend/internal/infrastructure/logger"
	"github.com/billforge/backend/internal/infrastructure/migration"
	"github.com/billforge/backend/migrations"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "migrations"

var errUsage = errors.New("invalid usage")

// env is what a command may touch. migrator is nil for offline commands.
type env struct {
	log      *zap.Logger
	source   fs.FS
	dir      string
	migrator *migration.Migrator
}

type command struct {
	needsDB bool
	run     func(e *env, args []string) error
}

var commands = map[string]command{
	"create":  {run: runCreate},
	"list":    {run: runList},
	"up":      {needsDB: true, run: func(e *env, _ []string) error { return e.migrator.Up() }},
	"down":    {needsDB: true, run: func(e *env, _ []string) error { return e.migrator.Down() }},
	"step":    {needsDB: true, run: runStep},
	"goto":    {needsDB: true, run: runGoto},
	"version": {needsDB: true, run: runVersion},
	"force":   {needsDB: true, run: runForce},
	"drop":    {needsDB: true, run: runDrop},
}

func main() {
	var (
		migrationsPath string
		logLevel       string
	)
	flag.StringVar(&migrationsPath, "path", "", "Read migrations from this directory instead of the embedded set")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", args[0])
		printUsage()
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	e := &env{log: log, source: migrations.FS, dir: defaultMigrationsPath}
	sourceName := "embedded"
	if migrationsPath != "" {
		absPath, err := filepath.Abs(migrationsPath)
		if err != nil {
			log.Fatal("Failed to resolve migrations path", zap.Error(err))
		}
		e.source = os.DirFS(absPath)
		e.dir = absPath
		sourceName = absPath
	}
	log.Info("Migration CLI started",
		zap.String("command", args[0]),
		zap.String("source", sourceName),
	)

	if cmd.needsDB {
		cfg, err := config.Load()
		if err != nil {
			log.Fatal("Failed to load configuration", zap.Error(err))
		}
		db, err := sql.Open("postgres", cfg.Database.DSN())
		if err != nil {
			log.Fatal("Failed to open database", zap.Error(err))
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			log.Fatal("Failed to ping database", zap.Error(err))
		}

		e.migrator, err = migration.New(db, e.source, log)
		if err != nil {
			log.Fatal("Failed to create migrator", zap.Error(err))
		}
		defer e.migrator.Close()
	}

	if err := cmd.run(e, args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		log.Fatal("Migration command failed", zap.String("command", args[0]), zap.Error(err))
	}
}

func runCreate(e *env, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: migrate create <name> [description]", errUsage)
	}
	description := ""
	if len(args) > 1 {
		description = args[1]
	}
	mf, err := migration.CreateMigration(e.dir, args[0], description)
	if err != nil {
		return err
	}
	e.log.Info("Migration created",
		zap.String("version", mf.Version),
		zap.String("up_file", mf.UpPath),
		zap.String("down_file", mf.DownPath),
	)
	return nil
}

func runList(e *env, _ []string) error {
	names, err := migration.ListMigrations(e.source)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		e.log.Info("No migrations found")
		return nil
	}
	e.log.Info("Available migrations", zap.Int("count", len(names)))
	for _, name := range names {
		fmt.Println("  -", name)
	}
	return nil
}

func runStep(e *env, args []string) error {
	n, err := intArg(args, "migrate step <n>")
	if err != nil {
		return err
	}
	return e.migrator.Steps(n)
}

func runGoto(e *env, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: migrate goto <version>", errUsage)
	}
	version, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("%w: version %q is not a number", errUsage, args[0])
	}
	return e.migrator.GoTo(uint(version))
}

func runVersion(e *env, _ []string) error {
	version, dirty, err := e.migrator.Version()
	if err != nil {
		return err
	}
	if version == 0 {
		e.log.Info("No migrations applied")
		return nil
	}
	e.log.Info("Current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

func runForce(e *env, args []string) error {
	version, err := intArg(args, "migrate force <version>")
	if err != nil {
		return err
	}
	e.log.Warn("Forcing migration version", zap.Int("version", version))
	return e.migrator.Force(version)
}

func runDrop(e *env, args []string) error {
	if !confirmed(args) {
		return fmt.Errorf("%w: drop removes every table, rerun as 'migrate drop -confirm'", errUsage)
	}
	e.log.Warn("Dropping all database objects")
	return e.migrator.Drop()
}

func intArg(args []string, usage string) (int, error) {
	if len(args) < 1 {
		return 0, fmt.Errorf("%w: %s", errUsage, usage)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", errUsage, args[0])
	}
	return n, nil
}

func confirmed(args []string) bool {
	return slices.Contains(args, "-confirm") || slices.Contains(args, "--confirm")
}

func printUsage() {
	fmt.Println(`Billing Database Migration Tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations (includes plan seeds)
  down                  Roll back all migrations
  step <n>              Apply n migrations (positive=up, negative=down)
  goto <version>        Migrate to a specific version
  version               Show current migration version
  force <version>       Force set migration version (use with caution)
  drop -confirm         Drop all database objects
  create <name> [desc]  Create the next numbered migration pair
  list                  List available migrations

Flags:
  -path string          Read migrations from a directory instead of the embedded set
  -log-level string     Log level: debug, info, warn, error (default: info)

Environment Variables:
  BILLING_DATABASE_HOST, BILLING_DATABASE_PORT, BILLING_DATABASE_USER,
  BILLING_DATABASE_PASSWORD, BILLING_DATABASE_DBNAME, BILLING_DATABASE_SSLMODE`)
}
