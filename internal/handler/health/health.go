package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Checker verifies that an infrastructure dependency is reachable.
type Checker interface {
	Check(ctx context.Context) error
}

// Gauge reports a live count, such as connected players.
type Gauge interface {
	Value() int
}

// GaugeFunc adapts a plain function to Gauge.
type GaugeFunc func() int

func (f GaugeFunc) Value() int { return f() }

type Handler struct {
	checks map[string]Checker
	gauges map[string]Gauge
	logger *slog.Logger
}

func NewHandler(logger *slog.Logger, checks map[string]Checker, gauges map[string]Gauge) *Handler {
	return &Handler{checks: checks, gauges: gauges, logger: logger}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.check)
	return r
}

type result struct {
	Status string `json:"status"`
	Value  *int   `json:"value,omitempty"`
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	results := make(map[string]result, len(h.checks)+len(h.gauges))
	status := http.StatusOK

	for name, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			h.logger.Error("health check failed", "name", name, "error", err)
			results[name] = result{Status: "error"}
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = result{Status: "ok"}
	}

	// Gauges are informational and never fail the check.
	for name, g := range h.gauges {
		v := g.Value()
		results[name] = result{Status: "ok", Value: &v}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(results)
}
