package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/contadata/balancesync/pkg/common/config"
	"github.com/contadata/balancesync/pkg/common/database"
	"github.com/contadata/balancesync/pkg/common/kafka"
	"github.com/contadata/balancesync/pkg/common/logger"
	"github.com/contadata/balancesync/pkg/laudus"
	"github.com/contadata/balancesync/pkg/run"
	"github.com/contadata/balancesync/pkg/store"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	logger.Init()
	cfg := config.Load()

	if missing := cfg.Validate(); len(missing) > 0 {
		logger.Log.WithField("missing", missing).Fatal("Missing required environment variables")
	}

	streams, err := logger.OpenStreams(cfg.LogDir)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to open event log streams")
	}
	defer streams.Close()

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
		// The run proceeds anyway; each write attempt is the real test.
		logger.Log.WithError(err).Warn("Document store unreachable at startup")
	}
	pingCancel()

	repo := store.NewRepository(db, cfg.LoadSource)
	for _, t := range targets {
		if err := repo.EnsureSchema(t.Destination); err != nil {
			logger.Log.WithError(err).WithField("destination", t.Destination).Warn("Schema preparation deferred")
			break
		}
	}

	orc := run.NewOrchestrator(targets, client, client, repo, cfg.RetryInterval, cfg.RefreshCadence, cfg.LoadSource)
	orc.SetStreams(streams)

	if cfg.FallbackDir != "" {
		orc.SetSecondarySink(store.NewFileSink(cfg.FallbackDir))
	}

	if len(cfg.KafkaBrokers) > 0 {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		orc.SetEventPublisher(producer)
	}

	var statusServer *http.Server
	if cfg.StatusAddr != "" {
		router := mux.NewRouter()
		router.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"healthy"}`))
		}).Methods(http.MethodGet)
		run.NewHandler(orc).Register(router)

		statusServer = &http.Server{Addr: cfg.StatusAddr, Handler: router}
		go func() {
			logger.WithField("addr", cfg.StatusAddr).Info("Status server started")
			if err := statusServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Log.WithError(err).Error("Status server failed")
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Log.Warn("Shutdown signal received, winding down run")
		cancel()
	}()

	targetDate := cfg.TargetDate
	if targetDate == "" {
		targetDate = time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	}
	startedAt := time.Now()
	deadline := startedAt.Add(cfg.RunWindow)

	result, runErr := orc.Run(ctx, targetDate, deadline)

	if statusServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		statusServer.Shutdown(shutdownCtx)
		shutdownCancel()
	}

	if runErr != nil {
		streams.Failure("run aborted: %v", runErr)
		logger.Log.WithError(runErr).Error("Run aborted before any attempt")
		os.Exit(1)
	}

	summary := run.BuildSummary(orc.RunID(), targetDate, startedAt, targets, result)
	reporter := run.NewReporter(streams, database.GetRedis(), cfg.RedisRunKey, cfg.RedisRunTTL)
	reporter.Emit(context.Background(), summary)
	database.CloseRedis()

	if !result.AllDone {
		os.Exit(1)
	}
}
