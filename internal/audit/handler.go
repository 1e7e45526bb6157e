package audit

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/agriflight/backoffice/internal/platform/httpx"
	"github.com/agriflight/backoffice/internal/shared"
)

const (
	exportRateLimit  = 10
	exportRateWindow = time.Minute
	maxDateRange     = 90 * 24 * time.Hour
)

// Handler serves the audit timeline and its CSV export.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	exporter CSVExporter
	now      func() time.Time
}

// NewHandler builds an audit handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, now: time.Now}
}

// MountRoutes registers the timeline and the rate-limited export endpoint.
func (h *Handler) MountRoutes(r chi.Router) {
	limiter := httprate.Limit(exportRateLimit, exportRateWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)
	r.Get("/", h.handleTimeline)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/export.csv", h.handleExport)
	})
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("load audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", result)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.logger.Error("export audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	payload, err := h.exporter.WriteCSV(rows)
	if err != nil {
		h.logger.Error("write audit csv", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	filename := fmt.Sprintf("audit-timeline-%s.csv", h.now().Format("20060102-150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (h *Handler) parseFilters(r *http.Request) (TimelineFilters, error) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))
	filters := TimelineFilters{
		Actor:      q.Get("actor"),
		TargetType: q.Get("target_type"),
		Action:     q.Get("action"),
		Severity:   q.Get("severity"),
		Page:       page,
		PageSize:   pageSize,
	}
	var err error
	if filters.From, err = parseDate(q.Get("from")); err != nil {
		return TimelineFilters{}, shared.NewValidationError("from", "expected format YYYY-MM-DD")
	}
	if filters.To, err = parseDate(q.Get("to")); err != nil {
		return TimelineFilters{}, shared.NewValidationError("to", "expected format YYYY-MM-DD")
	}
	if !filters.From.IsZero() && !filters.To.IsZero() {
		if filters.To.Before(filters.From) {
			return TimelineFilters{}, shared.NewValidationError("to", "must not precede from")
		}
		if filters.To.Sub(filters.From) > maxDateRange {
			return TimelineFilters{}, shared.NewValidationError("to", "date range must not exceed 90 days")
		}
	}
	return filters, nil
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", value)
}
