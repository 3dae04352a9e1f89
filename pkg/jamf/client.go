package jamf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"
	"github.com/cenkalti/backoff/v4"
	"github.com/patchnotifier/patch-notifier/pkg/types"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	classicAPIPath = "/JSSResource/"
	tokenPath      = "/api/v1/auth/token"

	computersEndpoint    = "computers/id/"
	patchTitlesEndpoint  = "patchsoftwaretitles"
	patchReportsEndpoint = "patch_reports/patchsoftwaretitleid/"

	// DefaultRateLimitWait bounds how long a request keeps retrying after
	// HTTP 429 responses.
	DefaultRateLimitWait = 15 * time.Second
)

// Client talks to the Jamf Pro Classic API. It acquires one bearer token
// with Authenticate and reuses it for every later call; there is no refresh.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	userAgent     string
	rateLimitWait time.Duration
	token         string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithRateLimitWait sets how long to keep retrying rate-limited requests.
// Zero disables retries.
func WithRateLimitWait(d time.Duration) Option {
	return func(c *Client) { c.rateLimitWait = d }
}

// NewClient returns a client for the Jamf Pro server at baseURL. A trailing
// /JSSResource is accepted and stripped.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("jamf base URL must not be empty")
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, errors.Errorf("jamf base URL %q must start with http:// or https://", baseURL)
	}
	// Tolerate a base URL that already points at the Classic API.
	baseURL = strings.TrimSuffix(baseURL, strings.TrimSuffix(classicAPIPath, "/"))

	c := &Client{
		baseURL:       baseURL,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		userAgent:     "patch-notifier",
		rateLimitWait: DefaultRateLimitWait,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Authenticate exchanges basic credentials for a bearer token.
func (c *Client) Authenticate(ctx context.Context, username, password string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tokenPath, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create token request")
	}
	req.SetBasicAuth(username, password)
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return errors.Wrap(err, "failed to request jamf token")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read jamf token response")
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("jamf token request returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return errors.Wrap(err, "failed to decode jamf token response")
	}
	if tr.Token == "" {
		return errors.New("jamf token response did not contain a token")
	}
	c.token = tr.Token
	log.Infof("Token acquired (expires %s)", valueOr(tr.Expires, "unknown"))
	return nil
}

// PatchTitles lists every patch software title.
func (c *Client) PatchTitles(ctx context.Context) ([]PatchTitle, error) {
	doc, err := c.get(ctx, patchTitlesEndpoint)
	if err != nil {
		return nil, err
	}
	titles, size, err := parsePatchTitles(doc)
	if err != nil {
		return nil, err
	}
	if size != len(titles) {
		log.Debugf("Jamf reported %d patch titles but listed %d", size, len(titles))
	}
	return titles, nil
}

// PatchReport fetches the version report for one patch title.
func (c *Client) PatchReport(ctx context.Context, titleID int) (*PatchReport, error) {
	doc, err := c.get(ctx, patchReportsEndpoint+strconv.Itoa(titleID))
	if err != nil {
		return nil, err
	}
	return parsePatchReport(doc)
}

// Computer resolves a device ID to its hostname and assigned user's email.
func (c *Client) Computer(ctx context.Context, id int) (*types.Device, error) {
	doc, err := c.get(ctx, computersEndpoint+strconv.Itoa(id))
	if err != nil {
		return nil, err
	}
	return parseComputer(doc, id)
}

func (c *Client) get(ctx context.Context, endpoint string) (*xmlquery.Node, error) {
	url := c.baseURL + classicAPIPath + endpoint
	log.Debugf("Jamf: GET %s", url)

	var body []byte
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(errors.Wrapf(err, "failed to create request for %s", endpoint))
		}
		req.Header.Set("Accept", "application/xml")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.do(req)
		if err != nil {
			return backoff.Permanent(errors.Wrapf(err, "GET %s failed", endpoint))
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(errors.Wrapf(err, "failed to read response for %s", endpoint))
		}
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return errors.Errorf("GET %s was rate limited (429)", endpoint)
		case resp.StatusCode != http.StatusOK:
			return backoff.Permanent(&StatusError{Endpoint: endpoint, Code: resp.StatusCode, Body: strings.TrimSpace(string(data))})
		}
		body = data
		return nil
	}

	notify := func(err error, wait time.Duration) {
		log.Debugf("Jamf: %v, retrying in %v", err, wait)
	}
	if err := backoff.RetryNotify(op, c.retryPolicy(ctx), notify); err != nil {
		return nil, err
	}

	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", endpoint)
	}
	return doc, nil
}

func (c *Client) retryPolicy(ctx context.Context) backoff.BackOff {
	if c.rateLimitWait <= 0 {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 8 * time.Second
	b.MaxElapsedTime = c.rateLimitWait
	return backoff.WithContext(b, ctx)
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	return c.httpClient.Do(req)
}

// StatusError is returned for any non-OK, non-429 Classic API response.
type StatusError struct {
	Endpoint string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("GET %s returned %d", e.Endpoint, e.Code)
	}
	return fmt.Sprintf("GET %s returned %d: %s", e.Endpoint, e.Code, e.Body)
}

func valueOr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
