package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/courierbot/courier/internal/core/ratelimit"
	apperrors "github.com/courierbot/courier/internal/errors"
	"github.com/courierbot/courier/internal/observability"
)

// RateLimitsResponse lists live table entries.
type RateLimitsResponse struct {
	Count   int               `json:"count"`
	Entries []ratelimit.Entry `json:"entries"`
}

// ResetResponse reports how many entries a reset removed.
type ResetResponse struct {
	Removed int64 `json:"removed"`
}

// RateLimitHandler exposes the rate limit table over HTTP.
type RateLimitHandler struct {
	Table ratelimit.Admin
	Clock func() time.Time
}

func (h *RateLimitHandler) now() time.Time {
	if h.Clock != nil {
		return h.Clock()
	}
	return time.Now().UTC()
}

// List returns the live entries. An optional prefix query narrows the list.
func (h *RateLimitHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Table.Snapshot(r.Context(), h.now())
	if err != nil {
		respondWithError(w, r, apperrors.WrapExternalService(r.Context(), err, "rate limit table unavailable"))
		return
	}

	if prefix := strings.TrimSpace(r.URL.Query().Get("prefix")); prefix != "" {
		filtered := entries[:0]
		for _, e := range entries {
			if strings.HasPrefix(e.Bucket, prefix) {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}
	if entries == nil {
		entries = []ratelimit.Entry{}
	}

	writeJSON(w, http.StatusOK, RateLimitsResponse{Count: len(entries), Entries: entries})
}

// Reset removes entries selected by the all, key or prefix query parameters.
func (h *RateLimitHandler) Reset(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := ratelimit.Query{
		Key:    q.Get("key"),
		Prefix: q.Get("prefix"),
	}
	if raw := q.Get("all"); raw != "" {
		all, err := strconv.ParseBool(raw)
		if err != nil {
			respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "invalid value for all"))
			return
		}
		query.All = all
	}
	if err := query.Validate(); err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "must specify all, key, or prefix"))
		return
	}

	removed, err := h.Table.Reset(r.Context(), query)
	if err != nil {
		respondWithError(w, r, apperrors.WrapExternalService(r.Context(), err, "rate limit table unavailable"))
		return
	}

	observability.ServerLogger.Info("Rate limit entries reset",
		zap.Bool("all", query.All),
		zap.String("key", query.Key),
		zap.String("prefix", query.Prefix),
		zap.Int64("removed", removed),
	)

	writeJSON(w, http.StatusOK, ResetResponse{Removed: removed})
}
