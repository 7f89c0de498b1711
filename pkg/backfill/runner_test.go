package backfill

import (
	"context"
	"errors"
	"testing"

	"github.com/contadata/balancesync/pkg/store"
	"golang.org/x/oauth2"
)

type stubAuth struct {
	calls int
	fail  bool
}

func (s *stubAuth) Login(ctx context.Context) (*oauth2.Token, error) {
	s.calls++
	if s.fail {
		return nil, errors.New("login failed: HTTP 401")
	}
	return &oauth2.Token{AccessToken: "tok"}, nil
}

type stubFetcher struct {
	calls   int
	failFor map[string]bool
}

func (s *stubFetcher) Fetch(ctx context.Context, token *oauth2.Token, path, dateTo string) ([]map[string]interface{}, error) {
	s.calls++
	if s.failFor[dateTo] {
		return nil, errors.New("HTTP 500")
	}
	return []map[string]interface{}{{"account": "1-01"}}, nil
}

type stubStore struct {
	checker *fakeChecker
	written []string
}

func (s *stubStore) Upsert(ctx context.Context, destination, date, reportName string, rows []map[string]interface{}) (*store.Document, error) {
	doc, err := store.NewDocument(date, reportName, "backfill", rows)
	if err != nil {
		return nil, err
	}
	s.checker.present[destination+"/"+doc.ID] = true
	s.written = append(s.written, doc.ID)
	return doc, nil
}

func newTestRunner(auth *stubAuth, fetcher *stubFetcher, checker *fakeChecker, cfg Config) (*Runner, *stubStore) {
	targets := scanTargets()
	writer := &stubStore{checker: checker}
	scanner := NewScanner(checker, targets)
	return NewRunner(auth, fetcher, writer, scanner, targets, cfg), writer
}

func TestProcessFillsMissingDocumentsOnly(t *testing.T) {
	checker := &fakeChecker{present: map[string]bool{
		"balance_totals/2025-08-28-totals":     true,
		"balance_standard/2025-08-28-standard": true,
		"balance_totals/2025-08-29-totals":     true,
	}}
	auth := &stubAuth{}
	fetcher := &stubFetcher{}
	runner, writer := newTestRunner(auth, fetcher, checker, Config{MaxRetries: 1})

	result, err := runner.Process(context.Background(), "2025-08-28", "2025-08-30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Processed != 2 || result.Succeeded != 2 || result.Failed != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	// 2025-08-28 was complete; only the three missing documents are written.
	if len(writer.written) != 3 {
		t.Fatalf("expected 3 documents written, got %v", writer.written)
	}
}

func TestProcessRespectsMaxDatesPerRun(t *testing.T) {
	checker := &fakeChecker{present: map[string]bool{}}
	auth := &stubAuth{}
	fetcher := &stubFetcher{}
	runner, _ := newTestRunner(auth, fetcher, checker, Config{MaxRetries: 1, MaxDatesPerRun: 2})

	result, err := runner.Process(context.Background(), "2025-08-25", "2025-08-29")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Processed != 2 {
		t.Fatalf("expected 2 dates processed, got %d", result.Processed)
	}
	if result.Remaining != 3 {
		t.Fatalf("expected 3 dates remaining, got %d", result.Remaining)
	}
}

func TestProcessCompleteRangeDoesNothing(t *testing.T) {
	checker := &fakeChecker{present: map[string]bool{
		"balance_totals/2025-08-28-totals":     true,
		"balance_standard/2025-08-28-standard": true,
	}}
	auth := &stubAuth{}
	fetcher := &stubFetcher{}
	runner, writer := newTestRunner(auth, fetcher, checker, Config{MaxRetries: 1})

	result, err := runner.Process(context.Background(), "2025-08-28", "2025-08-28")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Processed != 0 || len(writer.written) != 0 {
		t.Fatalf("expected no work, got %+v writes=%v", result, writer.written)
	}
}

func TestProcessCountsFailedDates(t *testing.T) {
	checker := &fakeChecker{present: map[string]bool{}}
	auth := &stubAuth{}
	fetcher := &stubFetcher{failFor: map[string]bool{"2025-08-28": true}}
	runner, _ := newTestRunner(auth, fetcher, checker, Config{MaxRetries: 2})

	result, err := runner.Process(context.Background(), "2025-08-28", "2025-08-29")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Failed != 1 || result.Succeeded != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	// Two targets, two retries each on the failing date, plus two
	// single-attempt fetches on the good date.
	if fetcher.calls != 6 {
		t.Fatalf("expected 6 fetch calls, got %d", fetcher.calls)
	}
}

func TestProcessAbortsOnInitialLoginFailure(t *testing.T) {
	checker := &fakeChecker{present: map[string]bool{}}
	auth := &stubAuth{fail: true}
	fetcher := &stubFetcher{}
	runner, _ := newTestRunner(auth, fetcher, checker, Config{MaxRetries: 1})

	if _, err := runner.Process(context.Background(), "2025-08-28", "2025-08-29"); err == nil {
		t.Fatal("expected a fatal error")
	}
	if fetcher.calls != 0 {
		t.Fatal("no fetch may happen without a token")
	}
}

func TestTokenRenewalEveryFiveDates(t *testing.T) {
	checker := &fakeChecker{present: map[string]bool{}}
	auth := &stubAuth{}
	fetcher := &stubFetcher{}
	runner, _ := newTestRunner(auth, fetcher, checker, Config{MaxRetries: 1})

	if _, err := runner.Process(context.Background(), "2025-08-01", "2025-08-07"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Initial login plus one renewal before the sixth date.
	if auth.calls != 2 {
		t.Fatalf("expected 2 login calls, got %d", auth.calls)
	}
}
