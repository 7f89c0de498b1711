package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	targetsCompleted atomic.Int64
	targetsPending   atomic.Int64
	attemptsTotal    atomic.Int64
	roundsTotal      atomic.Int64
	storeFailures    atomic.Int64
	fetchFailures    atomic.Int64
)

// ObserveRunCounts updates the run-progress gauges after each round.
func ObserveRunCounts(completed, pending, attempts, rounds int) {
	targetsCompleted.Store(int64(completed))
	targetsPending.Store(int64(pending))
	attemptsTotal.Store(int64(attempts))
	roundsTotal.Store(int64(rounds))
}

func IncFetchFailure() { fetchFailures.Add(1) }
func IncStoreFailure() { storeFailures.Add(1) }

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP balancesync_targets_completed Number of report targets completed in the current run.\n")
	fmt.Fprintf(w, "# TYPE balancesync_targets_completed gauge\n")
	fmt.Fprintf(w, "balancesync_targets_completed %d\n", targetsCompleted.Load())

	fmt.Fprintf(w, "# HELP balancesync_targets_pending Number of report targets still pending in the current run.\n")
	fmt.Fprintf(w, "# TYPE balancesync_targets_pending gauge\n")
	fmt.Fprintf(w, "balancesync_targets_pending %d\n", targetsPending.Load())

	fmt.Fprintf(w, "# HELP balancesync_attempts_total Total fetch attempts made across all targets in the current run.\n")
	fmt.Fprintf(w, "# TYPE balancesync_attempts_total gauge\n")
	fmt.Fprintf(w, "balancesync_attempts_total %d\n", attemptsTotal.Load())

	fmt.Fprintf(w, "# HELP balancesync_rounds_total Retry rounds executed in the current run.\n")
	fmt.Fprintf(w, "# TYPE balancesync_rounds_total gauge\n")
	fmt.Fprintf(w, "balancesync_rounds_total %d\n", roundsTotal.Load())

	fmt.Fprintf(w, "# HELP balancesync_fetch_failures_total Fetch attempts that failed in the current run.\n")
	fmt.Fprintf(w, "# TYPE balancesync_fetch_failures_total counter\n")
	fmt.Fprintf(w, "balancesync_fetch_failures_total %d\n", fetchFailures.Load())

	fmt.Fprintf(w, "# HELP balancesync_store_failures_total Store writes that failed in the current run.\n")
	fmt.Fprintf(w, "# TYPE balancesync_store_failures_total counter\n")
	fmt.Fprintf(w, "balancesync_store_failures_total %d\n", storeFailures.Load())
}
