package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"feedback-service/common/httputil"
	"feedback-service/common/metrics"

	"github.com/go-chi/chi/v5"
)

const checkTimeout = 2 * time.Second

// Check probes one dependency. A nil error means it is usable.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

type Handler struct {
	checks  []Check
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewHandler(m *metrics.Metrics, logger *slog.Logger, checks ...Check) *Handler {
	return &Handler{
		checks:  checks,
		metrics: m,
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.RespondWithJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Ready reports 503 while any dependency probe fails.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ready", Checks: map[string]string{}}
	code := http.StatusOK

	for _, c := range h.checks {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		start := time.Now()
		err := c.Probe(ctx)
		cancel()

		h.metrics.Health.RecordDependencyCheck(r.Context(), c.Name, time.Since(start), err)
		if err != nil {
			h.logger.WarnContext(r.Context(), "dependency not ready", "dependency", c.Name, "error", err)
			resp.Checks[c.Name] = "unavailable"
			resp.Status = "not ready"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[c.Name] = "ok"
	}

	httputil.RespondWithJSON(w, code, resp)
}

// Names lists the dependencies probed by Ready.
func (h *Handler) Names() []string {
	names := make([]string, 0, len(h.checks))
	for _, c := range h.checks {
		names = append(names, c.Name)
	}
	return names
}
