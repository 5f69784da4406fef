package backend

import (
	"bytes"
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/propnest/propnest-client/pkg/config"
	pkgerrors "github.com/propnest/propnest-client/pkg/errors"
	"github.com/propnest/propnest-client/pkg/logger"
	"github.com/propnest/propnest-client/pkg/metrics"
	"github.com/propnest/propnest-client/pkg/types"
)

const (
	defaultTimeout         = 15 * time.Second
	defaultUserAgent       = "propnest-client"
	errorBodyReadLimit     = 64 << 10
	headerIdempotencyKey   = "Idempotency-Key"
	headerRequestedWith    = "X-Requested-With"
	requestedWithXMLHTTP   = "XMLHttpRequest"
	defaultInitialInterval = 500 * time.Millisecond
	defaultMaxInterval     = 10 * time.Second
)

var errBaseURLRequired = stdErrors.New("api base url is required")

// TokenSource supplies the bearer token for the current session.
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed TokenSource.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

// Client talks to the PropNest REST backend.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
	retry      config.RetryConfig
	logg       *logger.Logger
	metrics    *metrics.ClientMetrics
	userAgent  string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(tokens TokenSource) Option {
	return func(c *Client) {
		c.tokens = tokens
	}
}

// WithRetry sets the retry budget for retryable requests.
func WithRetry(cfg config.RetryConfig) Option {
	return func(c *Client) {
		c.retry = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		if logg != nil {
			c.logg = logg
		}
	}
}

// WithMetrics records request durations and retries.
func WithMetrics(m *metrics.ClientMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient builds a backend client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	if u, err := url.Parse(trimmed); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid api base url %q", baseURL)
	}

	client := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    trimmed,
		retry:      config.RetryConfig{MaxAttempts: 1},
		logg:       logger.Nop(),
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// NewFromConfig builds a client from the API and retry config sections.
func NewFromConfig(api config.APIConfig, retry config.RetryConfig, opts ...Option) (*Client, error) {
	base := []Option{
		WithHTTPClient(&http.Client{Timeout: api.Timeout}),
		WithRetry(retry),
		WithUserAgent(api.UserAgent),
	}
	return NewClient(api.BaseURL, append(base, opts...)...)
}

type request struct {
	method   string
	path     string
	endpoint string
	query    url.Values
	body     any
	// auth requires a bearer token; without one the call fails before any I/O.
	auth           bool
	idempotencyKey string
}

func (r request) retryable() bool {
	return r.method == http.MethodGet || r.idempotencyKey != ""
}

// do executes req, retrying transport failures, 5xx and 429 when req is safe
// to repeat, and decodes a 2xx body into out.
func (c *Client) do(ctx context.Context, req request, out any) error {
	var payload []byte
	if req.body != nil {
		encoded, err := json.Marshal(req.body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal "+req.endpoint+" request")
		}
		payload = encoded
	}

	token := ""
	if c.tokens != nil {
		token = strings.TrimSpace(c.tokens.Token())
	}
	if req.auth && token == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}

	attempt := 0
	operation := func() error {
		attempt++
		err := c.attempt(ctx, req, token, payload, out)
		if err == nil {
			return nil
		}
		if pkgerrors.IsCanceled(err) || !req.retryable() || !retryableCode(pkgerrors.CodeOf(err)) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		c.metrics.IncRetry(req.endpoint)
		logCtx := c.logg.WithFields(ctx, map[string]any{
			"endpoint": req.endpoint,
			"attempt":  attempt,
			"wait_ms":  wait.Milliseconds(),
			"error":    err.Error(),
		})
		c.logg.Warn(logCtx, "backend.request_retry")
	}

	err := backoff.RetryNotify(operation, c.backoff(ctx), notify)
	if err == nil {
		return nil
	}
	if stdErrors.Is(err, context.Canceled) && pkgerrors.As(err) == nil {
		return pkgerrors.Wrap(pkgerrors.CodeCanceled, err, req.endpoint+" canceled")
	}
	if stdErrors.Is(err, context.DeadlineExceeded) && pkgerrors.As(err) == nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, req.endpoint+" timed out")
	}
	return err
}

func (c *Client) backoff(ctx context.Context) backoff.BackOff {
	attempts := c.retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = defaultInitialInterval
	if c.retry.InitialInterval > 0 {
		exp.InitialInterval = c.retry.InitialInterval
	}
	exp.MaxInterval = defaultMaxInterval
	if c.retry.MaxInterval > 0 {
		exp.MaxInterval = c.retry.MaxInterval
	}
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(attempts-1)), ctx)
}

func (c *Client) attempt(ctx context.Context, req request, token string, payload []byte, out any) error {
	target := c.baseURL + "/" + strings.TrimLeft(req.path, "/")
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build "+req.endpoint+" request")
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(headerRequestedWith, requestedWithXMLHTTP)
	httpReq.Header.Set("User-Agent", c.userAgent)
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	if req.idempotencyKey != "" {
		httpReq.Header.Set(headerIdempotencyKey, req.idempotencyKey)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.ObserveRequest(req.endpoint, 0, time.Since(started))
		if ctxErr := ctx.Err(); ctxErr != nil {
			if stdErrors.Is(ctxErr, context.Canceled) {
				return pkgerrors.Wrap(pkgerrors.CodeCanceled, ctxErr, req.endpoint+" canceled")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, ctxErr, req.endpoint+" timed out")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute "+req.endpoint+" request")
	}
	defer func() { _ = resp.Body.Close() }()
	c.metrics.ObserveRequest(req.endpoint, resp.StatusCode, time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && stdErrors.Is(ctxErr, context.Canceled) {
			return pkgerrors.Wrap(pkgerrors.CodeCanceled, ctxErr, req.endpoint+" canceled")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+req.endpoint+" response")
	}
	return nil
}

// decodeError turns a Laravel-style error response into a coded error.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
	var parsed types.RemoteError
	_ = json.Unmarshal(raw, &parsed)

	message := strings.TrimSpace(parsed.Message)
	if len(parsed.Errors) > 0 {
		if flat := pkgerrors.FlattenFieldErrors(parsed.Errors); flat != "" {
			message = flat
		}
	}
	err := pkgerrors.FromStatus(resp.StatusCode, message)
	if len(parsed.Errors) > 0 {
		err = err.WithDetails(parsed.Errors)
	}
	return err
}

func retryableCode(code pkgerrors.Code) bool {
	return code == pkgerrors.CodeDependency || code == pkgerrors.CodeRateLimit
}
