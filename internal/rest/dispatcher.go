package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/courierbot/courier/internal/core/ratelimit"
	"github.com/courierbot/courier/internal/metrics"
)

const (
	// DefaultBaseURL is the versioned REST root.
	DefaultBaseURL = "https://discord.com/api/v10"

	// ProjectURL identifies the library in the User-Agent header.
	ProjectURL = "https://github.com/courierbot/courier"
)

// Version is reported in the User-Agent header. Set by main.
var Version = "dev"

// UserAgent renders the fixed identifying User-Agent.
func UserAgent(projectURL, version string) string {
	return fmt.Sprintf("DiscordBot (%s, %s)", projectURL, version)
}

// Dispatcher executes catalog requests one at a time per caller. It is safe
// for concurrent use; the only state shared between calls is Table.
type Dispatcher struct {
	Token     string
	BaseURL   string
	UserAgent string
	Client    *http.Client

	// Table defaults to ratelimit.Shared().
	Table ratelimit.Table

	// Global throttles every call when set.
	Global *rate.Limiter

	Logger *zap.Logger
	Clock  func() time.Time
	Sleep  func(ctx context.Context, d time.Duration) error
}

// Fetch runs one request end to end: wait out an exhausted bucket, perform the
// call, decode the body, and record the bucket if the platform reports it
// exhausted. Nothing is retried and failed calls never touch the table.
func (d *Dispatcher) Fetch(ctx context.Context, f Fetchable) (Fetched, error) {
	if d == nil {
		return Fetched{}, errors.New("dispatcher is not configured")
	}
	if f == nil {
		return Fetched{}, errors.New("request is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	started := time.Now()
	fetched, err := d.fetch(ctx, f)
	metrics.RecordCall(string(f.Bucket().Category), outcome(err), time.Since(started))
	return fetched, err
}

func (d *Dispatcher) fetch(ctx context.Context, f Fetchable) (Fetched, error) {
	key := f.Bucket()
	table := d.table()
	logger := d.logger().With(
		zap.String("call_id", uuid.New().String()),
		zap.String("bucket", key.String()),
	)

	wait, limited, err := table.CheckLimit(ctx, key, d.now())
	if err != nil {
		return Fetched{}, fmt.Errorf("check rate limit: %w", err)
	}
	if limited {
		logger.Debug("Waiting for bucket reset", zap.Duration("wait", wait))
		metrics.RecordRateLimitWait(string(key.Category), wait)
		if err := d.sleep(ctx, wait); err != nil {
			return Fetched{}, err
		}
	}

	if d.Global != nil {
		if err := d.Global.Wait(ctx); err != nil {
			return Fetched{}, fmt.Errorf("global rate limit: %w", err)
		}
	}

	rt := f.route()
	req, err := d.newRequest(ctx, rt)
	if err != nil {
		return Fetched{}, err
	}

	sent := time.Now()
	resp, err := d.client().Do(req)
	if err != nil {
		logger.Debug("Request failed", zap.String("method", rt.method), zap.String("path", rt.path), zap.Error(err))
		return Fetched{}, &TransportError{Method: rt.method, URL: req.URL.String(), Err: err}
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Fetched{}, &TransportError{Method: rt.method, URL: req.URL.String(), Err: err}
	}

	logger.Debug("Request completed",
		zap.String("method", rt.method),
		zap.String("path", rt.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(sent)),
		zap.String("remaining", resp.Header.Get(headerRemaining)),
		zap.String("reset", resp.Header.Get(headerReset)),
	)

	if resp.StatusCode >= http.StatusBadRequest {
		return Fetched{}, apiError(resp.StatusCode, data)
	}

	fetched, err := f.decode(data)
	if err != nil {
		return Fetched{}, &DecodeError{
			Bucket:     key.String(),
			Type:       f.resultType(),
			StatusCode: resp.StatusCode,
			Err:        err,
		}
	}

	if rt.unlimited {
		return fetched, nil
	}

	exhausted, resetAt, err := rateLimitHeaders(resp.Header, key.String())
	if err != nil {
		return Fetched{}, err
	}
	if exhausted {
		if err := table.RecordExhausted(ctx, key, resetAt); err != nil {
			logger.Warn("Failed to record exhausted bucket", zap.Int64("reset", resetAt), zap.Error(err))
		} else {
			logger.Debug("Bucket exhausted", zap.Int64("reset", resetAt))
			metrics.RecordBucketExhausted(string(key.Category))
		}
	}

	return fetched, nil
}

func (d *Dispatcher) newRequest(ctx context.Context, rt route) (*http.Request, error) {
	target := strings.TrimRight(d.baseURL(), "/") + rt.path
	if len(rt.query) > 0 {
		target += "?" + rt.query.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	if rt.body != nil {
		var err error
		body, contentType, err = rt.body.encode()
		if err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, rt.method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", d.userAgent())
	if token := strings.TrimSpace(d.Token); token != "" {
		req.Header.Set("Authorization", "Bot "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

// outcome classifies a call result for metrics.
func outcome(err error) string {
	var (
		transportErr *TransportError
		decodeErr    *DecodeError
		headerErr    *MissingHeaderError
		apiErr       *APIError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &transportErr):
		return "transport_error"
	case errors.As(err, &decodeErr):
		return "decode_error"
	case errors.As(err, &headerErr):
		return "missing_header"
	case errors.As(err, &apiErr):
		return "api_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

func apiError(status int, data []byte) error {
	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(data, apiErr); err != nil {
		apiErr.Code = 0
		apiErr.Message = strings.TrimSpace(string(data))
		if len(apiErr.Message) > 200 {
			apiErr.Message = apiErr.Message[:200]
		}
	}
	return apiErr
}

func (d *Dispatcher) table() ratelimit.Table {
	if d.Table != nil {
		return d.Table
	}
	return ratelimit.Shared()
}

func (d *Dispatcher) client() *http.Client {
	if d.Client != nil {
		return d.Client
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func (d *Dispatcher) baseURL() string {
	if d.BaseURL != "" {
		return d.BaseURL
	}
	return DefaultBaseURL
}

func (d *Dispatcher) userAgent() string {
	if d.UserAgent != "" {
		return d.UserAgent
	}
	return UserAgent(ProjectURL, Version)
}

func (d *Dispatcher) logger() *zap.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return zap.NewNop()
}

func (d *Dispatcher) now() time.Time {
	if d.Clock != nil {
		return d.Clock()
	}
	return time.Now().UTC()
}

func (d *Dispatcher) sleep(ctx context.Context, wait time.Duration) error {
	if d.Sleep != nil {
		return d.Sleep(ctx, wait)
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
