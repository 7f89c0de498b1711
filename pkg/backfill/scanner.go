package backfill

import (
	"context"
	"fmt"
	"time"

	"github.com/contadata/balancesync/pkg/common/logger"
	"github.com/contadata/balancesync/pkg/run"
	"github.com/contadata/balancesync/pkg/store"
)

const dateLayout = "2006-01-02"

// ExistenceChecker answers whether a document id is already present in a
// destination.
type ExistenceChecker interface {
	Exists(ctx context.Context, destination, id string) (bool, error)
}

// Scanner finds the dates in a range that still lack at least one report
// document.
type Scanner struct {
	checker ExistenceChecker
	targets []run.Target
}

func NewScanner(checker ExistenceChecker, targets []run.Target) *Scanner {
	return &Scanner{checker: checker, targets: targets}
}

// DateRange returns every ISO date from start to end inclusive.
func DateRange(start, end string) ([]string, error) {
	from, err := time.Parse(dateLayout, start)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	to, err := time.Parse(dateLayout, end)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", end, err)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("end date %s precedes start date %s", end, start)
	}

	var dates []string
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(dateLayout))
	}
	return dates, nil
}

// MissingTargets returns the targets without a stored document for the
// date. A store error counts the target as missing: re-fetching an
// existing document is harmless because writes replace.
func (s *Scanner) MissingTargets(ctx context.Context, date string) []run.Target {
	var missing []run.Target
	for _, t := range s.targets {
		exists, err := s.checker.Exists(ctx, t.Destination, store.DocumentID(date, t.Name))
		if err != nil {
			logger.Log.WithError(err).WithField("target", t.Name).Warn("Existence check failed, treating as missing")
			missing = append(missing, t)
			continue
		}
		if !exists {
			missing = append(missing, t)
		}
	}
	return missing
}

// MissingDates filters dates down to those with at least one missing
// target document.
func (s *Scanner) MissingDates(ctx context.Context, dates []string) []string {
	var missing []string
	for _, date := range dates {
		if len(s.MissingTargets(ctx, date)) > 0 {
			missing = append(missing, date)
		}
	}
	return missing
}
