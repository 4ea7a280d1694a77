package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/courierbot/courier/internal/core/ratelimit"
	apperrors "github.com/courierbot/courier/internal/errors"
	"github.com/courierbot/courier/internal/server/handlers"
)

// remoteAdmin drives the rate limit endpoints of a running server.
type remoteAdmin struct {
	base   string
	client *http.Client
}

func newRemoteAdmin(base string) *remoteAdmin {
	return &remoteAdmin{
		base:   strings.TrimRight(strings.TrimSpace(base), "/"),
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Snapshot implements ratelimit.Admin. The server applies its own clock.
func (a *remoteAdmin) Snapshot(ctx context.Context, _ time.Time) ([]ratelimit.Entry, error) {
	var resp handlers.RateLimitsResponse
	if err := a.do(ctx, http.MethodGet, url.Values{}, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

// Reset implements ratelimit.Admin.
func (a *remoteAdmin) Reset(ctx context.Context, q ratelimit.Query) (int64, error) {
	if err := q.Validate(); err != nil {
		return 0, err
	}
	params := url.Values{}
	switch {
	case q.All:
		params.Set("all", strconv.FormatBool(true))
	case q.Key != "":
		params.Set("key", q.Key)
	default:
		params.Set("prefix", q.Prefix)
	}

	var resp handlers.ResetResponse
	if err := a.do(ctx, http.MethodDelete, params, &resp); err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *remoteAdmin) do(ctx context.Context, method string, params url.Values, out any) error {
	target := a.base + "/ratelimits"
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("contact server: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var problem apperrors.HTTPErrorResponse
		if json.Unmarshal(body, &problem) == nil && problem.Error.Message != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, problem.Error.Message)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	return json.Unmarshal(body, out)
}

// openAdmin returns the remote admin when server is set, otherwise the
// configured local table.
func openAdmin(ctx context.Context, server string) (ratelimit.Admin, func() error, error) {
	if strings.TrimSpace(server) != "" {
		return newRemoteAdmin(server), func() error { return nil }, nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	handle, err := openTable(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return handle.table, handle.close, nil
}
