package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-journal-go/internal/app"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-journal-go/internal/schema"
	"github.com/ovaphlow/pitchfork/service-journal-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-journal-go/pkg/utilities"
)

func main() {
	// load .env if present; real env wins
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
	sugar.Info("starting service-journal-go")

	appCfg, err := app.ConfigFromEnv()
	if err != nil {
		sugar.Fatalf("app config: %v", err)
	}
	if appCfg.JWTSecret == "" {
		sugar.Warn("JWT_SECRET is empty; every authenticated endpoint will answer 401")
	}

	dbCfg, err := database.ConfigFromEnv()
	if err != nil {
		sugar.Fatalf("db config: %v", err)
	}
	db, err := database.Connect(dbCfg)
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if appCfg.MigrateOnStart {
		dialect, err := database.DialectFor(dbCfg.Driver)
		if err != nil {
			sugar.Fatalf("dialect: %v", err)
		}
		applied, err := database.Migrate(ctx, db, dialect, schema.Migrations())
		if err != nil {
			sugar.Fatalf("migrate: %v", err)
		}
		if len(applied) > 0 {
			sugar.Infow("migrations applied", "versions", applied)
		}
	}

	c := app.NewContainer(db, sugar, appCfg)
	srv := &http.Server{
		Addr:              appCfg.HTTPAddr,
		Handler:           router.RegisterRoutes(sugar, c),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()
	sugar.Infow("listening", "addr", appCfg.HTTPAddr)

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
