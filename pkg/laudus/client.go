package laudus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/contadata/balancesync/pkg/common/httpclient"
	"github.com/contadata/balancesync/pkg/common/logger"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// Credentials are the static login credentials for the Laudus API.
type Credentials struct {
	UserName     string `json:"userName"`
	Password     string `json:"password"`
	CompanyVATID string `json:"companyVATId"`
}

// Client talks to the Laudus ERP REST API. One instance per run; the
// bearer token is handed back to the caller rather than held here, so the
// orchestrator controls when it is refreshed.
type Client struct {
	baseURL      string
	creds        Credentials
	httpClient   *http.Client
	loginTimeout time.Duration
	fetchTimeout time.Duration
	limiter      *rate.Limiter
	options      Options
}

func NewClient(baseURL string, creds Credentials, loginTimeout, fetchTimeout time.Duration, rps int, options Options) *Client {
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		creds:        creds,
		httpClient:   httpclient.New(0),
		loginTimeout: loginTimeout,
		fetchTimeout: fetchTimeout,
		limiter:      rate.NewLimiter(rate.Every(time.Second/time.Duration(rps)), 1),
		options:      options,
	}
}

// Login exchanges the static credentials for a bearer token. The API
// answers either a bare JSON string or {"token": "..."}; both are
// accepted. The token value itself is never logged.
func (c *Client) Login(ctx context.Context) (*oauth2.Token, error) {
	body, err := json.Marshal(c.creds)
	if err != nil {
		return nil, fmt.Errorf("encoding login payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.loginTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/security/login", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading login response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("login failed: HTTP %d: %s", resp.StatusCode, snippet(raw))
	}

	token := extractToken(raw)
	if token == "" {
		return nil, fmt.Errorf("login response contained no token")
	}

	logger.WithField("token_length", len(token)).Debug("Authenticated with Laudus API")

	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, nil
}

// extractToken handles both token shapes the API is known to return.
func extractToken(raw []byte) string {
	var envelope struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Token != "" {
		return envelope.Token
	}

	var bare string
	if err := json.Unmarshal(raw, &bare); err == nil && bare != "" {
		return bare
	}

	return strings.Trim(strings.TrimSpace(string(raw)), `"'`)
}

func snippet(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
