// Package upstream fetches account records from the aggregator sidecar.
package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pquerna/otp/totp"

	"github.com/mtlprog/mintbridge/internal/domain"
	"github.com/mtlprog/mintbridge/internal/logger"
)

// MFAHeader carries the current one-time passcode.
const MFAHeader = "X-MFA-Code"

// Credentials authenticate against the aggregator.
type Credentials struct {
	Email    string
	Password string
	MFASeed  string
}

// Client is an HTTP client for the aggregator sidecar with retry on 429.
type Client struct {
	baseURL    string
	creds      Credentials
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
	now        func() time.Time
}

// NewClient creates a new aggregator client. The timeout bounds a whole
// request, which includes the sidecar's own scrape. A negative maxRetries
// is treated as zero: the request is always attempted once.
func NewClient(baseURL string, creds Credentials, timeout time.Duration, maxRetries int, baseDelay time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		creds:      creds,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: max(maxRetries, 0),
		baseDelay:  baseDelay,
		now:        time.Now,
	}
}

// FetchAccounts retrieves the full account list as a validated snapshot.
func (c *Client) FetchAccounts(ctx context.Context) (domain.Snapshot, error) {
	log := logger.FromContext(ctx)
	log.Info().Str("url", c.baseURL).Msg("querying aggregator accounts")

	body, err := c.get(ctx, "/accounts")
	if err != nil {
		return domain.Snapshot{}, err
	}

	snap, err := domain.ParseSnapshot(body)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("parsing accounts response: %w", err)
	}

	log.Info().Int("accounts", snap.Len()).Msg("aggregator returned accounts")
	return snap, nil
}

// get performs a GET request with retry on 429.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	url := c.baseURL + path

	var lastErr error
	for attempt := range c.maxRetries + 1 {
		req, err := c.newRequest(ctx, url)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("executing request: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading response: %w", err)
		}

		if resp.StatusCode == http.StatusOK {
			return body, nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("HTTP 429 at %s (attempt %d/%d)", url, attempt+1, c.maxRetries+1)
			if attempt < c.maxRetries {
				delay := c.baseDelay * time.Duration(1<<uint(attempt))
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(delay):
				}
				continue
			}
			return nil, lastErr
		}

		return nil, fmt.Errorf("HTTP %d from %s: %s", resp.StatusCode, url, string(body))
	}

	return nil, lastErr
}

// newRequest builds an authenticated request. The passcode is regenerated
// per attempt since retries may cross a TOTP period boundary.
func (c *Client) newRequest(ctx context.Context, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	code, err := totp.GenerateCode(c.creds.MFASeed, c.now())
	if err != nil {
		return nil, fmt.Errorf("generating MFA code: %w", err)
	}

	req.SetBasicAuth(c.creds.Email, c.creds.Password)
	req.Header.Set(MFAHeader, code)
	req.Header.Set("Accept", "application/json")
	return req, nil
}
