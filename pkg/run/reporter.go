package run

import (
	"context"
	"encoding/json"
	"time"

	"github.com/contadata/balancesync/pkg/common/logger"
	"github.com/contadata/balancesync/pkg/common/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Reporter emits the final run summary: structured log lines, one line
// per stream, and a best-effort JSON copy in Redis for dashboards. The
// exit code derived from the summary is the single machine-readable
// verdict; everything here is informational.
type Reporter struct {
	streams *logger.Streams
	rdb     *redis.Client
	key     string
	ttl     time.Duration
}

func NewReporter(streams *logger.Streams, rdb *redis.Client, key string, ttl time.Duration) *Reporter {
	return &Reporter{streams: streams, rdb: rdb, key: key, ttl: ttl}
}

// BuildSummary flattens the run result preserving the configured target
// order.
func BuildSummary(runID, targetDate string, startedAt time.Time, targets []Target, result *Result) models.RunSummary {
	summary := models.RunSummary{
		RunID:      runID,
		TargetDate: targetDate,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
		Rounds:     result.Rounds,
		Total:      len(targets),
		AllDone:    result.AllDone,
	}
	for _, t := range targets {
		st := result.Statuses[t.Name]
		if st.Completed {
			summary.Completed++
		}
		summary.Targets = append(summary.Targets, models.TargetReport{
			Name:      t.Name,
			Completed: st.Completed,
			Attempts:  st.Attempts,
			LastError: st.LastError,
		})
	}
	return summary
}

func (r *Reporter) Emit(ctx context.Context, summary models.RunSummary) {
	for _, t := range summary.Targets {
		fields := logrus.Fields{
			"run_id":    summary.RunID,
			"target":    t.Name,
			"completed": t.Completed,
			"attempts":  t.Attempts,
		}
		if t.Completed {
			logger.WithFields(fields).Info("Final target status")
		} else {
			fields["last_error"] = t.LastError
			logger.WithFields(fields).Error("Final target status")
		}
	}

	logger.WithFields(logrus.Fields{
		"run_id":      summary.RunID,
		"target_date": summary.TargetDate,
		"completed":   summary.Completed,
		"total":       summary.Total,
		"rounds":      summary.Rounds,
		"all_done":    summary.AllDone,
	}).Info("Run finished")

	if r.streams != nil {
		if summary.AllDone {
			r.streams.Success("run %s: date %s completed %d/%d targets in %d rounds",
				summary.RunID, summary.TargetDate, summary.Completed, summary.Total, summary.Rounds)
		} else {
			r.streams.Failure("run %s: date %s completed only %d/%d targets in %d rounds",
				summary.RunID, summary.TargetDate, summary.Completed, summary.Total, summary.Rounds)
		}
	}

	r.cache(ctx, summary)
}

func (r *Reporter) cache(ctx context.Context, summary models.RunSummary) {
	if r.rdb == nil || r.key == "" {
		return
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.rdb.Set(ctx, r.key, data, r.ttl).Err(); err != nil {
		logger.Log.WithError(err).Warn("Failed to cache run summary in Redis")
	}
}
