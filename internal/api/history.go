package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/osterwood/lutron-caseta/internal/device"
	"github.com/osterwood/lutron-caseta/internal/infrastructure/influxdb"
)

const maxQueryParamLen = 100

// HistoryReader reads recorded device states.
type HistoryReader interface {
	History(ctx context.Context, name string, since time.Time, limit int) ([]influxdb.StatePoint, error)
}

// handleDeviceHistory returns recorded states for a device, newest first.
//
// Query parameters:
//   - limit: maximum entries (default 50, max 500)
//   - since: RFC3339 timestamp of the oldest entry
func (s *Server) handleDeviceHistory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" || len(name) > maxQueryParamLen {
		writeBadRequest(w, "invalid device name")
		return
	}

	limit, err := parseHistoryLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	since, err := parseSinceParam(r.URL.Query().Get("since"))
	if err != nil {
		writeBadRequest(w, "invalid since timestamp")
		return
	}

	if s.history == nil {
		writeUnavailable(w, "state history unavailable")
		return
	}

	name = device.NormalizeName(name)
	points, err := s.history.History(r.Context(), name, since, limit)
	if err != nil {
		if errors.Is(err, influxdb.ErrNotConnected) {
			writeUnavailable(w, "state history unavailable")
			return
		}
		s.logger.Warn("reading history", "name", name, "error", err)
		writeInternalError(w, "failed to load device history")
		return
	}
	if points == nil {
		points = []influxdb.StatePoint{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"name":    name,
		"history": points,
		"count":   len(points),
	})
}

// parseHistoryLimit parses the limit parameter, applying the default when empty.
func parseHistoryLimit(raw string) (int, error) {
	if raw == "" {
		return influxdb.DefaultHistoryLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid limit")
	}
	if limit > influxdb.MaxHistoryLimit {
		return 0, fmt.Errorf("limit exceeds maximum")
	}
	return limit, nil
}

// parseSinceParam parses the since parameter as RFC3339/RFC3339Nano.
func parseSinceParam(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, raw)
}
