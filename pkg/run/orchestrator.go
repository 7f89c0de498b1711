package run

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/contadata/balancesync/pkg/common/logger"
	"github.com/contadata/balancesync/pkg/common/models"
	"github.com/contadata/balancesync/pkg/observability/metrics"
	"github.com/contadata/balancesync/pkg/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// TokenProvider exchanges static credentials for a bearer token.
type TokenProvider interface {
	Login(ctx context.Context) (*oauth2.Token, error)
}

// ReportFetcher performs one read of a report for a business date.
type ReportFetcher interface {
	Fetch(ctx context.Context, token *oauth2.Token, reportPath, dateTo string) ([]map[string]interface{}, error)
}

// DocumentWriter is the primary sink. Its outcome alone decides whether a
// target counts as completed.
type DocumentWriter interface {
	UpsertDocument(ctx context.Context, destination string, doc *store.Document) error
}

// SecondarySink receives a best-effort copy of every fetched document.
// Failures are logged and otherwise ignored.
type SecondarySink interface {
	Write(destination string, doc *store.Document) error
}

// EventPublisher notifies downstream consumers of stored documents.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType, source string, data map[string]interface{}) error
}

// Orchestrator drives a deadline-bound campaign over the configured
// targets: fixed processing order, fixed retry interval, token refresh
// every few rounds, one round guaranteed even when launched past the
// deadline. All component errors are captured here as per-target state.
type Orchestrator struct {
	targets    []Target
	statuses   map[string]*Status
	auth       TokenProvider
	fetcher    ReportFetcher
	writer     DocumentWriter
	sink       SecondarySink
	events     EventPublisher
	streams    *logger.Streams
	interval   time.Duration
	cadence    int
	loadSource string
	runID      string
	snapshot   atomic.Value

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) bool
}

// Result is the final outcome of a run.
type Result struct {
	Statuses map[string]*Status
	Rounds   int
	AllDone  bool
}

func NewOrchestrator(targets []Target, auth TokenProvider, fetcher ReportFetcher, writer DocumentWriter, interval time.Duration, cadence int, loadSource string) *Orchestrator {
	statuses := make(map[string]*Status, len(targets))
	for _, t := range targets {
		statuses[t.Name] = &Status{}
	}
	o := &Orchestrator{
		targets:    targets,
		statuses:   statuses,
		auth:       auth,
		fetcher:    fetcher,
		writer:     writer,
		interval:   interval,
		cadence:    cadence,
		loadSource: loadSource,
		runID:      uuid.New().String(),
		now:        time.Now,
		sleep:      sleepCtx,
	}
	o.publishSnapshot()
	return o
}

func (o *Orchestrator) SetSecondarySink(s SecondarySink)   { o.sink = s }
func (o *Orchestrator) SetEventPublisher(p EventPublisher) { o.events = p }
func (o *Orchestrator) SetStreams(s *logger.Streams)       { o.streams = s }

func (o *Orchestrator) RunID() string { return o.runID }

// Run executes rounds until every target completes, the deadline passes,
// or the context is cancelled. The only fatal failure is the initial
// login; everything else is recorded on the target and retried.
func (o *Orchestrator) Run(ctx context.Context, date string, deadline time.Time) (*Result, error) {
	logger.WithFields(logrus.Fields{
		"run_id":      o.runID,
		"target_date": date,
		"deadline":    deadline.Format(time.RFC3339),
		"targets":     len(o.targets),
	}).Info("Starting extraction run")

	token, err := o.auth.Login(ctx)
	if err != nil {
		return nil, fmt.Errorf("initial login: %w", err)
	}

	rounds := 0
	for {
		rounds++
		refreshed := false

		for i := range o.targets {
			target := o.targets[i]
			status := o.statuses[target.Name]
			if status.Completed {
				continue
			}
			status.Attempts++

			if o.cadence > 0 && rounds%o.cadence == 0 && !refreshed {
				fresh, err := o.auth.Login(ctx)
				if err != nil {
					status.LastError = fmt.Sprintf("token refresh: %v", err)
					o.logFailure(target, status, status.LastError)
					o.publishSnapshot()
					continue
				}
				token = fresh
				refreshed = true
				logger.WithField("round", rounds).Info("Authentication token renewed")
			}

			rows, err := o.fetcher.Fetch(ctx, token, target.Path, date)
			if err != nil {
				metrics.IncFetchFailure()
				status.LastError = err.Error()
				o.logFailure(target, status, status.LastError)
				o.publishSnapshot()
				continue
			}

			doc, err := store.NewDocument(date, target.Name, o.loadSource, rows)
			if err != nil {
				status.LastError = err.Error()
				o.logFailure(target, status, status.LastError)
				o.publishSnapshot()
				continue
			}

			storeErr := o.writer.UpsertDocument(ctx, target.Destination, doc)

			if o.sink != nil {
				if sinkErr := o.sink.Write(target.Destination, doc); sinkErr != nil {
					logger.Log.WithError(sinkErr).WithField("target", target.Name).Warn("Fallback sink write failed")
				}
			}

			if storeErr != nil {
				metrics.IncStoreFailure()
				status.LastError = storeErr.Error()
				o.logFailure(target, status, status.LastError)
				o.publishSnapshot()
				continue
			}

			status.Completed = true
			status.LastError = ""
			o.logSuccess(target, status, doc.RecordCount)
			o.publishEvent(ctx, date, target, doc.RecordCount)
			o.publishSnapshot()
		}

		o.observe(rounds)

		if o.allCompleted() {
			logger.WithField("rounds", rounds).Info("All targets completed")
			break
		}
		if !o.now().Before(deadline) {
			logger.WithFields(logrus.Fields{
				"rounds":  rounds,
				"pending": o.pendingNames(),
			}).Warn("Deadline reached with pending targets")
			break
		}

		logger.WithFields(logrus.Fields{
			"round":   rounds,
			"pending": o.pendingNames(),
			"wait":    o.interval.String(),
		}).Info("Waiting before next round")

		if !o.sleep(ctx, o.interval) {
			logger.Log.Warn("Run cancelled while waiting between rounds")
			break
		}
	}

	return &Result{
		Statuses: o.statuses,
		Rounds:   rounds,
		AllDone:  o.allCompleted(),
	}, nil
}

// Snapshot returns a read-only copy of the per-target state for the
// status endpoint. The live map stays single-owner; only copies cross
// the goroutine boundary.
func (o *Orchestrator) Snapshot() []models.TargetReport {
	if v := o.snapshot.Load(); v != nil {
		return v.([]models.TargetReport)
	}
	return nil
}

func (o *Orchestrator) publishSnapshot() {
	reports := make([]models.TargetReport, 0, len(o.targets))
	for _, t := range o.targets {
		st := o.statuses[t.Name]
		reports = append(reports, models.TargetReport{
			Name:      t.Name,
			Completed: st.Completed,
			Attempts:  st.Attempts,
			LastError: st.LastError,
		})
	}
	o.snapshot.Store(reports)
}

func (o *Orchestrator) publishEvent(ctx context.Context, date string, target Target, recordCount int) {
	if o.events == nil {
		return
	}
	data := map[string]interface{}{
		"run_id":       o.runID,
		"date":         date,
		"report_name":  target.Name,
		"destination":  target.Destination,
		"record_count": recordCount,
	}
	if err := o.events.PublishEvent(ctx, "balance_sheet.stored", "balancesync", data); err != nil {
		logger.Log.WithError(err).WithField("target", target.Name).Warn("Failed to publish stored-document event")
	}
}

func (o *Orchestrator) allCompleted() bool {
	for _, st := range o.statuses {
		if !st.Completed {
			return false
		}
	}
	return true
}

func (o *Orchestrator) pendingNames() []string {
	var pending []string
	for _, t := range o.targets {
		if !o.statuses[t.Name].Completed {
			pending = append(pending, t.Name)
		}
	}
	return pending
}

func (o *Orchestrator) observe(rounds int) {
	completed := 0
	attempts := 0
	for _, st := range o.statuses {
		if st.Completed {
			completed++
		}
		attempts += st.Attempts
	}
	metrics.ObserveRunCounts(completed, len(o.statuses)-completed, attempts, rounds)
}

func (o *Orchestrator) logSuccess(target Target, status *Status, recordCount int) {
	logger.WithFields(logrus.Fields{
		"run_id":       o.runID,
		"target":       target.Name,
		"attempts":     status.Attempts,
		"record_count": recordCount,
	}).Info("Target completed")
	if o.streams != nil {
		o.streams.Success("%s completed: %d records (attempt %d)", target.Name, recordCount, status.Attempts)
	}
}

func (o *Orchestrator) logFailure(target Target, status *Status, msg string) {
	logger.WithFields(logrus.Fields{
		"run_id":   o.runID,
		"target":   target.Name,
		"attempts": status.Attempts,
		"error":    msg,
	}).Error("Target attempt failed")
	if o.streams != nil {
		o.streams.Failure("%s attempt %d failed: %s", target.Name, status.Attempts, msg)
	}
}

// sleepCtx waits for d, returning false if the context ends first.
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
