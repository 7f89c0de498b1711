package backfill

import (
	"context"
	"fmt"
	"time"

	"github.com/contadata/balancesync/pkg/common/logger"
	"github.com/contadata/balancesync/pkg/run"
	"github.com/contadata/balancesync/pkg/store"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// DocumentUpserter is the store surface the backfill needs.
type DocumentUpserter interface {
	Upsert(ctx context.Context, destination, date, reportName string, rows []map[string]interface{}) (*store.Document, error)
}

// Config tunes one backfill batch.
type Config struct {
	MaxDatesPerRun      int
	MaxRetries          int
	RetryDelay          time.Duration
	DelayBetweenTargets time.Duration
	DelayBetweenDates   time.Duration
}

// BatchResult summarizes one backfill invocation. Remaining counts the
// incomplete dates left for the next scheduled run.
type BatchResult struct {
	Processed int
	Succeeded int
	Failed    int
	Remaining int
}

// Runner works through a range of historical dates, fetching and storing
// only the report documents that are missing. Unlike the daily run it is
// bounded by per-target retry counts rather than a wall-clock deadline;
// partial batches are normal and the next scheduled invocation continues
// where this one stopped.
type Runner struct {
	auth    run.TokenProvider
	fetcher run.ReportFetcher
	writer  DocumentUpserter
	scanner *Scanner
	targets []run.Target
	cfg     Config

	sleep func(ctx context.Context, d time.Duration) bool
}

func NewRunner(auth run.TokenProvider, fetcher run.ReportFetcher, writer DocumentUpserter, scanner *Scanner, targets []run.Target, cfg Config) *Runner {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	return &Runner{
		auth:    auth,
		fetcher: fetcher,
		writer:  writer,
		scanner: scanner,
		targets: targets,
		cfg:     cfg,
		sleep:   sleepCtx,
	}
}

// Process scans the date range, takes up to MaxDatesPerRun incomplete
// dates, and fills them in. Only the initial login is fatal.
func (r *Runner) Process(ctx context.Context, startDate, endDate string) (*BatchResult, error) {
	dates, err := DateRange(startDate, endDate)
	if err != nil {
		return nil, err
	}

	token, err := r.auth.Login(ctx)
	if err != nil {
		return nil, fmt.Errorf("initial login: %w", err)
	}

	pending := r.scanner.MissingDates(ctx, dates)
	if len(pending) == 0 {
		logger.WithFields(logrus.Fields{
			"start": startDate,
			"end":   endDate,
		}).Info("Backfill range is complete, nothing to do")
		return &BatchResult{}, nil
	}

	batch := pending
	if r.cfg.MaxDatesPerRun > 0 && len(batch) > r.cfg.MaxDatesPerRun {
		batch = batch[:r.cfg.MaxDatesPerRun]
	}

	logger.WithFields(logrus.Fields{
		"pending": len(pending),
		"batch":   len(batch),
		"first":   batch[0],
		"last":    batch[len(batch)-1],
	}).Info("Starting backfill batch")

	result := &BatchResult{Remaining: len(pending) - len(batch)}
	for i, date := range batch {
		// Renew the token every five dates; long batches outlive it.
		if i > 0 && i%5 == 0 {
			fresh, err := r.auth.Login(ctx)
			if err != nil {
				logger.Log.WithError(err).Warn("Token renewal failed, skipping date")
				result.Processed++
				result.Failed++
				continue
			}
			token = fresh
		}

		if r.processDate(ctx, token, date) {
			result.Succeeded++
		} else {
			result.Failed++
		}
		result.Processed++

		if i < len(batch)-1 && r.cfg.DelayBetweenDates > 0 {
			if !r.sleep(ctx, r.cfg.DelayBetweenDates) {
				result.Remaining += len(batch) - i - 1
				break
			}
		}
	}

	logger.WithFields(logrus.Fields{
		"processed": result.Processed,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
		"remaining": result.Remaining,
	}).Info("Backfill batch finished")

	return result, nil
}

func (r *Runner) processDate(ctx context.Context, token *oauth2.Token, date string) bool {
	missing := r.scanner.MissingTargets(ctx, date)
	if len(missing) == 0 {
		logger.WithField("date", date).Info("Date already complete, skipping")
		return true
	}

	filled := 0
	for j, target := range missing {
		if r.fillTarget(ctx, token, date, target) {
			filled++
		}
		if j < len(missing)-1 && r.cfg.DelayBetweenTargets > 0 {
			if !r.sleep(ctx, r.cfg.DelayBetweenTargets) {
				break
			}
		}
	}

	complete := filled == len(missing)
	logger.WithFields(logrus.Fields{
		"date":     date,
		"filled":   filled,
		"missing":  len(missing),
		"complete": complete,
	}).Info("Date processed")
	return complete
}

func (r *Runner) fillTarget(ctx context.Context, token *oauth2.Token, date string, target run.Target) bool {
	for attempt := 1; attempt <= r.cfg.MaxRetries; attempt++ {
		rows, err := r.fetcher.Fetch(ctx, token, target.Path, date)
		if err == nil {
			if _, err = r.writer.Upsert(ctx, target.Destination, date, target.Name, rows); err == nil {
				logger.WithFields(logrus.Fields{
					"date":    date,
					"target":  target.Name,
					"records": len(rows),
					"attempt": attempt,
				}).Info("Backfilled target")
				return true
			}
		}

		logger.Log.WithError(err).WithFields(logrus.Fields{
			"date":    date,
			"target":  target.Name,
			"attempt": attempt,
		}).Error("Backfill attempt failed")

		if attempt < r.cfg.MaxRetries && r.cfg.RetryDelay > 0 {
			if !r.sleep(ctx, r.cfg.RetryDelay) {
				return false
			}
		}
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
