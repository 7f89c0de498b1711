package laudus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/oauth2"
)

// Options are the report query parameters, passed through verbatim to the
// API. Their semantics are owned upstream; no client-side validation.
type Options struct {
	ShowAccountsWithZeroBalance  bool
	ShowOnlyAccountsWithActivity bool
	ShowLevels                   string
	CostCenterID                 string
	BookID                       string
}

// Fetch performs one GET against a balance-sheet report path
// (e.g. /accounting/balanceSheet/totals) for the given business date and
// returns the raw row array. Every transport, status, and body error is
// returned as a classified error; the per-call timeout is independent of
// the caller's overall deadline.
func (c *Client) Fetch(ctx context.Context, token *oauth2.Token, reportPath, dateTo string) ([]map[string]interface{}, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("dateTo", dateTo)
	q.Set("showAccountsWithZeroBalance", strconv.FormatBool(c.options.ShowAccountsWithZeroBalance))
	q.Set("showOnlyAccountsWithActivity", strconv.FormatBool(c.options.ShowOnlyAccountsWithActivity))
	if c.options.ShowLevels != "" {
		q.Set("showLevels", c.options.ShowLevels)
	}
	if c.options.CostCenterID != "" {
		q.Set("costCenterId", c.options.CostCenterID)
	}
	if c.options.BookID != "" {
		q.Set("bookId", c.options.BookID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+reportPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	token.SetAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("timeout after %s fetching %s", c.fetchTimeout, reportPath)
		}
		return nil, fmt.Errorf("fetching %s: %w", reportPath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("unauthorized (HTTP 401) fetching %s", reportPath)
		}
		return nil, fmt.Errorf("HTTP %d fetching %s: %s", resp.StatusCode, reportPath, snippet(raw))
	}

	var rows []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("malformed response body from %s: %w", reportPath, err)
	}

	return rows, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
