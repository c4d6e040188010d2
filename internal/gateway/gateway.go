// Package gateway is the HTTP client for the trading simulator API.
//
// Every response is classified into success, Unauthorized (HTTP 401) or
// Failure. The gateway never mutates the session and never retries.
package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.uber.org/ratelimit"
	"resty.dev/v3"

	apperrors "tradesim/internal/errors"
	"tradesim/internal/logging"
	"tradesim/internal/security"
)

// networkFailureMessage is reported for requests that produced no response.
const networkFailureMessage = "unable to reach the trading server"

// TokenSource supplies the bearer token for authenticated requests.
type TokenSource interface {
	Token() (string, bool)
}

// Config configures a Client.
type Config struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond int // 0 disables throttling
}

// Client issues requests against the trading API.
type Client struct {
	http    *resty.Client
	tokens  TokenSource
	limiter ratelimit.Limiter
	logger  zerolog.Logger
}

// New creates a gateway client. tokens may be nil for a client that only
// issues unauthenticated requests.
func New(cfg Config, tokens TokenSource, logger zerolog.Logger) *Client {
	logger = logger.With().Str("component", "gateway").Logger()

	client := resty.New().
		SetLogger(restyLogger{logger}).
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	c := &Client{
		http:   client,
		tokens: tokens,
		logger: logger,
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = ratelimit.New(cfg.RequestsPerSecond)
	}
	return c
}

// Close releases idle connections.
func (c *Client) Close() error {
	return c.http.Close()
}

// Request issues method on path. body, when non-nil, is sent as JSON.
//
// With authenticated set, the bearer token is attached; if there is no
// token the call fails with a NoSession error before any network I/O.
// The returned error is always an *errors.APIError.
func (c *Client) Request(ctx context.Context, method, path string, body interface{}, authenticated bool) (json.RawMessage, error) {
	req := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true)

	var token string
	if authenticated {
		var ok bool
		if c.tokens != nil {
			token, ok = c.tokens.Token()
		}
		if !ok || token == "" {
			return nil, apperrors.NewNoSessionError(method, path)
		}
		req.SetAuthToken(token)
	}

	requestID := uuid.NewString()
	req.SetHeader("X-Request-ID", requestID)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	if c.limiter != nil {
		c.limiter.Take()
	}

	start := time.Now()
	resp, transportErr := req.Execute(method, path)

	var (
		status int
		data   []byte
	)
	if resp != nil {
		status = resp.StatusCode()
		if resp.Body != nil {
			defer resp.Body.Close()
			var readErr error
			data, readErr = io.ReadAll(resp.Body)
			if readErr != nil && transportErr == nil && status > 0 {
				transportErr = readErr
				status = 0
			}
		}
	}

	err := Classify(status, data, transportErr)
	if transportErr != nil && token != "" {
		// transport errors embed the request; keep the token out of the log
		transportErr = maskedError{transportErr}
	}
	logging.LogAPICall(c.logger, method, path, requestID, status, time.Since(start), loggable(err, transportErr))

	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		data = []byte("null")
	}
	return json.RawMessage(data), nil
}

// Classify maps an HTTP outcome onto the error taxonomy. It returns nil
// for a 2xx status with no transport error.
func Classify(status int, body []byte, transportErr error) error {
	if status == 0 {
		return apperrors.NewFailureError(0, networkFailureMessage, transportErr)
	}

	switch {
	case status == http.StatusUnauthorized:
		return apperrors.NewUnauthorizedError(errorMessage(body))
	case status >= 200 && status < 300 && transportErr == nil:
		return nil
	case status >= 200 && status < 300:
		return apperrors.NewFailureError(status, networkFailureMessage, transportErr)
	}

	msg := errorMessage(body)
	if msg == "" {
		msg = http.StatusText(status)
	}
	if msg == "" {
		msg = "request failed"
	}
	return apperrors.NewFailureError(status, msg, transportErr)
}

// errorMessage extracts {message} or {error} from an error payload.
func errorMessage(body []byte) string {
	var payload struct {
		Message json.RawMessage `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	for _, raw := range []json.RawMessage{payload.Message, payload.Error} {
		var s string
		if json.Unmarshal(raw, &s) == nil && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func loggable(classified, transportErr error) error {
	if transportErr != nil {
		return transportErr
	}
	return classified
}

type maskedError struct{ err error }

func (m maskedError) Error() string { return security.MaskSensitive(m.err.Error()) }
