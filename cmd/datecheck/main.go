package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/contadata/balancesync/pkg/backfill"
	"github.com/contadata/balancesync/pkg/common/config"
	"github.com/contadata/balancesync/pkg/common/database"
	"github.com/contadata/balancesync/pkg/common/logger"
	"github.com/contadata/balancesync/pkg/run"
	"github.com/contadata/balancesync/pkg/store"
	"github.com/joho/godotenv"
)

// datecheck audits a date range against the document store and prints
// which dates are complete and which report documents are missing.
func main() {
	_ = godotenv.Load()
	logger.Init()
	cfg := config.Load()

	start := cfg.BackfillStartDate
	end := cfg.BackfillEndDate
	if end == "" {
		end = time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	}
	if start == "" {
		start = time.Now().AddDate(0, 0, -30).Format("2006-01-02")
	}

	targets, err := run.LoadTargetsFile(cfg.TargetsFile)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load target configuration")
	}

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to open document store handle")
	}
	defer database.ClosePostgres()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := database.PingPostgres(pingCtx); err != nil {
		logger.Log.WithError(err).Fatal("Document store unreachable")
	}
	pingCancel()

	repo := store.NewRepository(db, cfg.LoadSource)
	scanner := backfill.NewScanner(repo, targets)

	dates, err := backfill.DateRange(start, end)
	if err != nil {
		logger.Log.WithError(err).Fatal("Invalid date range")
	}

	ctx := context.Background()
	incomplete := 0
	for _, date := range dates {
		missing := scanner.MissingTargets(ctx, date)
		if len(missing) == 0 {
			fmt.Printf("%s  complete\n", date)
			continue
		}
		incomplete++
		names := make([]string, 0, len(missing))
		for _, t := range missing {
			names = append(names, t.Name)
		}
		fmt.Printf("%s  missing: %s\n", date, strings.Join(names, ", "))
	}

	fmt.Printf("\n%d/%d dates complete between %s and %s\n", len(dates)-incomplete, len(dates), start, end)
	if incomplete > 0 {
		os.Exit(1)
	}
}
