package export

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"feedback-service/internal/apperr"
	"feedback-service/internal/feedback"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	exporter *Exporter
	logger   *slog.Logger
}

func NewHandler(exporter *Exporter, logger *slog.Logger) *Handler {
	return &Handler{
		exporter: exporter,
		logger:   logger,
	}
}

// RegisterAdminRoutes mounts the export. The caller restricts the router to admins.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/feedback/export", h.ExportFeedback)
}

// ExportFeedback streams the feedback matching the listing filter as CSV.
// Pagination parameters are accepted but ignored.
func (h *Handler) ExportFeedback(w http.ResponseWriter, r *http.Request) {
	filter, err := feedback.ParseFilter(r.URL.Query())
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	path, rows, err := h.exporter.WriteFile(r.Context(), filter)
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			h.logger.WarnContext(r.Context(), "failed to remove export file", "path", path, "error", err)
		}
	}()

	file, err := os.Open(path)
	if err != nil {
		apperr.Respond(w, r, h.logger, fmt.Errorf("failed to open export file: %w", err))
		return
	}
	defer file.Close()

	name := fmt.Sprintf("feedback-export-%s.csv", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("X-Export-Rows", strconv.Itoa(rows))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, file); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to stream export", "error", err)
	}
}
