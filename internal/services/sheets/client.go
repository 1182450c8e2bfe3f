package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/amaumene/gowatch/internal/config"
	"github.com/amaumene/gowatch/internal/models"
	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

const actionGetAllData = "getAllData"

// Client talks to the spreadsheet web app and implements store.Backend
type Client struct {
	mu      sync.RWMutex
	remote  config.RemoteConfig
	timeout time.Duration

	httpClient    *http.Client
	maxRetries    uint64
	retryInterval time.Duration
	now           func() time.Time
	logger        *logrus.Logger
}

// NewClient creates a new sheet API client
func NewClient(cfg *config.Config, logger *logrus.Logger) *Client {
	timeout := cfg.RemoteTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	retries := cfg.RemoteMaxRetries
	if retries < 0 {
		retries = 0
	}

	return &Client{
		remote:        cfg.Remote(),
		timeout:       timeout,
		httpClient:    &http.Client{Timeout: timeout},
		maxRetries:    uint64(retries),
		retryInterval: 500 * time.Millisecond,
		now:           time.Now,
		logger:        logger,
	}
}

// Configure switches the client to a new remote endpoint
func (c *Client) Configure(remote config.RemoteConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remote = remote
	c.logger.WithField("sheet_id", remote.SheetID).Info("Remote endpoint configured")
}

// Remote returns the current remote settings
func (c *Client) Remote() config.RemoteConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.remote
}

// Configured reports whether an API URL is set
func (c *Client) Configured() bool {
	return c.Remote().APIURL != ""
}

// Load fetches every sheet and decodes the rows into records
func (c *Client) Load(ctx context.Context) ([]models.Record, error) {
	records, warnings, err := c.Pull(ctx)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		c.logger.WithField("warning", w).Warn("Skipped remote row")
	}
	return records, nil
}

// Pull fetches every sheet and returns the decoded records plus one warning
// per row that could not be used
func (c *Client) Pull(ctx context.Context) ([]models.Record, []string, error) {
	const op = "pull"

	var env Envelope
	query := url.Values{"action": {actionGetAllData}}
	if err := c.doRequest(ctx, op, http.MethodGet, query, nil, &env); err != nil {
		return nil, nil, err
	}

	records, warnings := DecodeEnvelope(&env, models.NewDate(c.now()))
	c.logger.WithFields(logrus.Fields{
		"movies":   len(env.Movies),
		"shows":    len(env.Shows),
		"seasons":  len(env.Seasons),
		"episodes": len(env.Episodes),
		"records":  len(records),
	}).Debug("Fetched remote data")
	return records, warnings, nil
}

// Save encodes records and pushes the full set in one request
func (c *Client) Save(ctx context.Context, records []models.Record) error {
	const op = "push"

	env, warnings := EncodeEnvelope(records)
	for _, w := range warnings {
		c.logger.WithField("warning", w).Warn("Record not pushed")
	}

	var result Envelope
	if err := c.doRequest(ctx, op, http.MethodPost, nil, env, &result); err != nil {
		return err
	}

	c.logger.WithFields(logrus.Fields{
		"movies":   len(env.Movies),
		"shows":    len(env.Shows),
		"seasons":  len(env.Seasons),
		"episodes": len(env.Episodes),
	}).Debug("Pushed remote data")
	return nil
}

// doRequest performs a request with retries. Transport failures and 5xx
// responses are retried; an error field in the body is not.
func (c *Client) doRequest(ctx context.Context, op, method string, query url.Values, body, result *Envelope) error {
	remote := c.Remote()
	if remote.APIURL == "" {
		return &models.TransportError{Op: op, Err: errors.New("remote API URL is not configured")}
	}

	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = data
	}

	fullURL := remote.APIURL
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(fullURL, "?") {
			sep = "&"
		}
		fullURL += sep + query.Encode()
	}

	attempt := 0
	operation := func() error {
		attempt++
		err := c.doOnce(ctx, op, method, fullURL, payload, result)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryInterval
	policy.MaxElapsedTime = 0

	err := backoff.RetryNotify(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, c.maxRetries), ctx),
		func(err error, wait time.Duration) {
			c.logger.WithFields(logrus.Fields{
				"op":      op,
				"attempt": attempt,
				"wait":    wait,
			}).WithError(err).Warn("Remote request failed, retrying")
		})
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"op":       op,
			"attempts": attempt,
		}).WithError(err).Error("Remote request failed")
		return err
	}
	return nil
}

func (c *Client) doOnce(ctx context.Context, op, method, fullURL string, payload []byte, result *Envelope) error {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	c.logger.WithFields(logrus.Fields{
		"method": method,
		"url":    fullURL,
	}).Debug("Making sheet API request")

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return &models.TransportError{Op: op, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &models.TransportError{Op: op, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return &models.TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	var env Envelope
	decodeErr := json.Unmarshal(bodyBytes, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(bodyBytes))
		if decodeErr == nil && env.ErrorMessage() != "" {
			msg = env.ErrorMessage()
		}
		return &models.TransportError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(msg)}
	}

	if decodeErr != nil {
		return &models.TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", decodeErr)}
	}
	if msg := env.ErrorMessage(); msg != "" {
		return &models.ApplicationError{Op: op, Message: msg}
	}

	if result != nil {
		*result = env
	}
	return nil
}

// retryable reports whether a failed attempt is worth repeating
func retryable(err error) bool {
	var appErr *models.ApplicationError
	if errors.As(err, &appErr) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var tErr *models.TransportError
	if errors.As(err, &tErr) {
		return tErr.StatusCode == 0 || tErr.StatusCode >= 500 || tErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}
