// Package tomojdom implements a client for the tomojdom.pl resident portal
// API. The portal has no published API contract: responses are positional
// JSON arrays observed from the mobile application, so every access is
// validated and fails with a decoding error instead of silently misreading
// a shifted field.
package tomojdom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jkowalik/billwatch/internal/common"
	"github.com/jkowalik/billwatch/internal/model"
)

const (
	// DefaultLoginURL is the production login endpoint.
	DefaultLoginURL = "https://main.tomojdom.pl/login/OsLoginPass"
	// DefaultAPIURL is the production API base URL.
	DefaultAPIURL = "https://aries.tomojdom.pl/app/api"

	userAgent = "billwatch/1.0 (+https://github.com/jkowalik/billwatch)"

	// historyYears caps the backward year walk; the early-stop heuristic
	// normally ends it much sooner.
	historyYears = 30
)

// Config holds the endpoints the client talks to. Zero values select the
// production portal; tests point both at an httptest server.
type Config struct {
	LoginURL string
	APIURL   string
}

// Client is an authenticated portal session. It is scoped to a single sync
// cycle: created, logged in, used for every portal call, and closed on
// every exit path. It is not safe for concurrent use.
type Client struct {
	loginURL   string
	apiURL     string
	token      string
	httpClient *http.Client
	now        func() time.Time
}

// NewClient creates a portal client. The session is anonymous until Login
// succeeds.
func NewClient(cfg Config) *Client {
	if cfg.LoginURL == "" {
		cfg.LoginURL = DefaultLoginURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	return &Client{
		loginURL: cfg.LoginURL,
		apiURL:   cfg.APIURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		now: time.Now,
	}
}

// Close releases the session's network resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// post issues a JSON POST and returns the raw response body. A nil payload
// sends an empty body. Any network failure or non-success status wraps
// common.ErrTransport.
func (c *Client) post(ctx context.Context, url string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", common.ErrTransport, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: %s returned %d - %s", common.ErrTransport, url, resp.StatusCode, truncate(data, 200))
	}

	return data, nil
}

// Login exchanges the credential for a bearer token and attaches it to the
// session. No retry: a single failed attempt aborts the whole cycle.
func (c *Client) Login(ctx context.Context, cred model.Credential) error {
	data, err := c.post(ctx, c.loginURL, map[string]any{
		"User": cred.Username,
		"Pass": cred.Password,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrAuth, err)
	}

	// The login response is a JSON array; the bearer token is its third
	// element.
	raw, err := valueAt(data, 2)
	if err != nil {
		return fmt.Errorf("%w: login response: %w", common.ErrAuth, err)
	}
	var token string
	if err := json.Unmarshal(raw, &token); err != nil {
		return fmt.Errorf("%w: %w: token at index 2 is not a string", common.ErrAuth, common.ErrDecoding)
	}
	if token == "" {
		return fmt.Errorf("%w: empty token", common.ErrAuth)
	}

	c.token = token
	return nil
}

// AccountID resolves the opaque internal account identifier required by
// the history and document endpoints.
func (c *Client) AccountID(ctx context.Context) (int64, error) {
	data, err := c.post(ctx, c.apiURL+"/WmsOsoby", nil)
	if err != nil {
		return 0, fmt.Errorf("resolve account: %w", err)
	}

	raw, err := valueAt(data, 0, 6, 0, 1)
	if err != nil {
		return 0, fmt.Errorf("account response: %w", err)
	}
	var id int64
	if err := json.Unmarshal(raw, &id); err != nil {
		return 0, fmt.Errorf("%w: account id at [0][6][0][1] is not a number", common.ErrDecoding)
	}
	return id, nil
}

// Document is a printable document behind a charge, typically a PDF.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

// DownloadDocument retrieves the document attached to a charge.
func (c *Client) DownloadDocument(ctx context.Context, accountID int64, charge model.Charge) (*Document, error) {
	data, err := c.post(ctx, c.apiURL+"/WydrukDokument", map[string]any{
		"WId":  accountID,
		"Rok":  charge.Year,
		"NTId": charge.Period,
		"rId":  charge.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("download document %q: %w", charge.Title, err)
	}

	return &Document{
		Filename:    charge.Title + ".pdf",
		ContentType: "application/pdf",
		Data:        data,
	}, nil
}

func truncate(data []byte, n int) string {
	if len(data) > n {
		data = data[:n]
	}
	return string(data)
}
