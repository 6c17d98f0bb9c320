package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	greetingdomain "github.com/aradsms/greeting_services/internal/greeting_service/domain"
	"github.com/aradsms/greeting_services/internal/platform/config"
	"github.com/aradsms/greeting_services/internal/platform/database"
	"github.com/aradsms/greeting_services/internal/platform/logger"
)

const (
	exitOK      = 0
	exitUsage   = 2
	exitConfig  = 3
	exitMigrate = 4
	exitRun     = 5
	exitPartial = 6 // batch ran but some candidates failed
)

var (
	migrateRunner = database.Migrate
	batchRunner   = realBatchRunner
	osExit        = os.Exit
)

func handleCLICommand(args []string) bool {
	if len(args) == 0 {
		return false
	}
	switch args[0] {
	case "migrate":
		osExit(runMigrate(args[1:]))
		return true
	case "run":
		osExit(runBatch(args[1:]))
		return true
	case "help", "-h", "--help":
		printHelp()
		osExit(exitOK)
		return true
	default:
		return false
	}
}

func runMigrate(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "missing migrate subcommand (up|down|status)")
		return exitUsage
	}
	subcmd := args[0]
	switch subcmd {
	case "up", "down", "status":
	default:
		fmt.Fprintf(os.Stderr, "unknown migrate subcommand: %s\n", subcmd)
		return exitUsage
	}

	cfg, err := config.Load(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return exitConfig
	}

	if err := migrateRunner(subcmd, cfg.MigrationsDSN); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s failed: %v\n", subcmd, err)
		return exitMigrate
	}
	return exitOK
}

func runBatch(args []string) int {
	if len(args) == 0 || args[0] != "birthdays" {
		fmt.Fprintln(os.Stderr, "usage: greeting_service run birthdays")
		return exitUsage
	}

	cfg, err := config.Load(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return exitConfig
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := batchRunner(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "run birthdays failed: %v\n", err)
		return exitRun
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(summary)

	if summary.Failed > 0 {
		return exitPartial
	}
	return exitOK
}

// realBatchRunner runs one recurring-date batch without HTTP, NATS or the scheduler.
func realBatchRunner(ctx context.Context, cfg *config.Config) (*greetingdomain.BatchSummary, error) {
	log := logger.NewWithWriter(os.Stderr, cfg.LogLevel).With("service", serviceName, "command", "run")

	dbPool, err := database.NewDBPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("connect to PostgreSQL: %w", err)
	}
	defer dbPool.Close()

	svcs, err := buildServices(cfg, dbPool, nil, log)
	if err != nil {
		return nil, err
	}
	return svcs.orchestrator.RunByDate(ctx)
}

func printHelp() {
	fmt.Println("Greeting service")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  greeting_service                 Start the HTTP API, scheduler and NATS consumer")
	fmt.Println("  greeting_service migrate up      Apply all pending migrations")
	fmt.Println("  greeting_service migrate down    Roll back one migration")
	fmt.Println("  greeting_service migrate status  Show migration status")
	fmt.Println("  greeting_service run birthdays   Greet everyone whose birthday is today, then exit")
}
