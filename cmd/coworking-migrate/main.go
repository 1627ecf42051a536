package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/VVKrauss/Hub-3-sub002/internal/config"
	"github.com/VVKrauss/Hub-3-sub002/internal/coworking"
	"github.com/VVKrauss/Hub-3-sub002/internal/observability"
)

const usage = `usage: coworking-migrate <command> [-force]

commands:
  backup    snapshot the legacy coworking tables into site settings
  migrate   build the unified coworking document from the legacy tables
  validate  check the stored document structure
  full      backup, migrate and validate in one run
  restore   rebuild the legacy tables from the last backup
  cleanup   clear the legacy tables after a verified migration
  apply     run the full migration once, recorded in the migration ledger
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]

	flags := flag.NewFlagSet(command, flag.ExitOnError)
	force := flags.Bool("force", false, "re-run even if already applied")
	flags.Parse(os.Args[2:])

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	store := coworking.NewStore(pool)
	migrator := coworking.NewMigrator(store, logger)
	ctx := context.Background()

	var results []coworking.StepResult
	switch command {
	case "backup":
		results, err = single(migrator.Backup(ctx))
	case "migrate":
		results, err = single(migrator.Migrate(ctx))
	case "validate":
		results, err = single(migrator.Validate(ctx))
	case "full":
		results, err = migrator.Full(ctx)
	case "restore":
		results, err = single(migrator.Restore(ctx))
	case "cleanup":
		results, err = single(migrator.Cleanup(ctx))
	case "apply":
		runner := coworking.NewRunner(store, migrator, logger)
		results, err = runner.Apply(ctx, *force)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	for _, res := range results {
		status := "ok"
		if !res.OK {
			status = "failed"
		}
		fmt.Printf("%-10s %s\n", res.Step, status)
		for _, issue := range res.Issues {
			fmt.Printf("  - %s\n", issue)
		}
	}
	if err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	for _, res := range results {
		if !res.OK {
			os.Exit(1)
		}
	}
}

func single(res coworking.StepResult, err error) ([]coworking.StepResult, error) {
	return []coworking.StepResult{res}, err
}
