package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/contadata/balancesync/pkg/backfill"
	"github.com/contadata/balancesync/pkg/common/config"
	"github.com/contadata/balancesync/pkg/common/database"
	"github.com/contadata/balancesync/pkg/common/logger"
	"github.com/contadata/balancesync/pkg/laudus"
	"github.com/contadata/balancesync/pkg/run"
	"github.com/contadata/balancesync/pkg/store"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	logger.Init()
	cfg := config.Load()

	if missing := cfg.Validate(); len(missing) > 0 {
		logger.Log.WithField("missing", missing).Fatal("Missing required environment variables")
	}
	if cfg.BackfillStartDate == "" || cfg.BackfillEndDate == "" {
		logger.Log.Fatal("BACKFILL_START_DATE and BACKFILL_END_DATE are required")
	}

	targets, err := run.LoadTargetsFile(cfg.TargetsFile)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load target configuration")
	}

	client := laudus.NewClient(
		cfg.LaudusBaseURL,
		laudus.Credentials{
			UserName:     cfg.LaudusUsername,
			Password:     cfg.LaudusPassword,
			CompanyVATID: cfg.LaudusCompanyVAT,
		},
		cfg.LoginTimeout,
		cfg.FetchTimeout,
		cfg.LaudusRateRPS,
		laudus.Options{
			ShowAccountsWithZeroBalance:  cfg.ShowAccountsWithZeroBalance,
			ShowOnlyAccountsWithActivity: cfg.ShowOnlyAccountsWithActivity,
			ShowLevels:                   cfg.ShowLevels,
			CostCenterID:                 cfg.CostCenterID,
			BookID:                       cfg.BookID,
		},
	)

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to open document store handle")
	}
	defer database.ClosePostgres()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := database.PingPostgres(pingCtx); err != nil {
		logger.Log.WithError(err).Fatal("Document store unreachable, backfill cannot scan for missing dates")
	}
	pingCancel()

	loadSource := cfg.LoadSource
	if os.Getenv("LOAD_SOURCE") == "" {
		loadSource = "backfill"
	}
	repo := store.NewRepository(db, loadSource)
	scanner := backfill.NewScanner(repo, targets)

	runner := backfill.NewRunner(client, client, repo, scanner, targets, backfill.Config{
		MaxDatesPerRun:      cfg.MaxDatesPerRun,
		MaxRetries:          cfg.BackfillMaxRetries,
		RetryDelay:          cfg.BackfillRetryDelay,
		DelayBetweenTargets: cfg.DelayBetweenTargets,
		DelayBetweenDates:   cfg.DelayBetweenDates,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Log.Warn("Shutdown signal received, winding down backfill")
		cancel()
	}()

	result, err := runner.Process(ctx, cfg.BackfillStartDate, cfg.BackfillEndDate)
	if err != nil {
		logger.Log.WithError(err).Error("Backfill aborted")
		os.Exit(1)
	}

	// Partial batches exit zero: the next scheduled invocation picks up
	// the remaining dates.
	if result.Remaining == 0 && result.Failed == 0 {
		logger.Log.Info("Backfill range fully covered")
	}
}
