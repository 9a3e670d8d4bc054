package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-journal-go/internal/schema"
	"github.com/ovaphlow/pitchfork/service-journal-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-journal-go/pkg/utilities"
)

const usage = `usage: migrate [flags] up|down|status

  up      apply pending migrations (up to -to when set)
  down    roll back the last -steps migrations
  status  list migrations and whether they are applied
`

func main() {
	to := flag.Int("to", 0, "target version for up; 0 means latest")
	steps := flag.Int("steps", 1, "number of migrations to roll back for down")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()

	logCfg, err := utilities.ConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger config: %v\n", err)
		os.Exit(1)
	}
	lg, err := utilities.Init(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()
	sugar := lg.Sugar()

	dbCfg, err := database.ConfigFromEnv()
	if err != nil {
		sugar.Fatalf("db config: %v", err)
	}
	dialect, err := database.DialectFor(dbCfg.Driver)
	if err != nil {
		sugar.Fatalf("dialect: %v", err)
	}
	db, err := database.Connect(dbCfg)
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ms := schema.Migrations()
	switch cmd := flag.Arg(0); cmd {
	case "up":
		target := *to
		if target == 0 {
			target = schema.Latest()
		}
		applied, err := database.MigrateTo(ctx, db, dialect, ms, target)
		if err != nil {
			sugar.Fatalf("migrate up: %v", err)
		}
		sugar.Infow("migrated", "applied", applied, "target", target)
	case "down":
		reverted, err := database.Rollback(ctx, db, dialect, ms, *steps)
		if err != nil {
			sugar.Fatalf("migrate down: %v", err)
		}
		sugar.Infow("rolled back", "reverted", reverted)
	case "status":
		applied, err := database.AppliedVersions(ctx, db)
		if err != nil {
			sugar.Fatalf("migrate status: %v", err)
		}
		sort.Slice(ms, func(i, j int) bool { return ms[i].Version < ms[j].Version })
		for _, m := range ms {
			state := "pending"
			if applied[m.Version] {
				state = "applied"
			}
			fmt.Printf("%4d  %-8s %s\n", m.Version, state, m.Name)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
}
