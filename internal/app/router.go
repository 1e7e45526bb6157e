package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/agriflight/backoffice/internal/approvals"
	"github.com/agriflight/backoffice/internal/audit"
	"github.com/agriflight/backoffice/internal/customers"
	"github.com/agriflight/backoffice/internal/dashboard"
	"github.com/agriflight/backoffice/internal/employees"
	"github.com/agriflight/backoffice/internal/purchasing"
	"github.com/agriflight/backoffice/internal/vendors"
	"github.com/agriflight/backoffice/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	VendorHandler     *vendors.Handler
	CustomerHandler   *customers.Handler
	EmployeeHandler   *employees.Handler
	PurchasingHandler *purchasing.Handler
	ApprovalHandler   *approvals.Handler
	AuditHandler      *audit.Handler
	DashboardHandler  *dashboard.Handler
	JobHandler        *jobs.Handler
}

// NewRouter constructs the chi.Router with the back-office defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(api chi.Router) {
		if params.VendorHandler != nil {
			api.Route("/vendors", params.VendorHandler.MountRoutes)
		}
		if params.CustomerHandler != nil {
			api.Route("/customers", params.CustomerHandler.MountRoutes)
		}
		if params.EmployeeHandler != nil {
			api.Route("/employees", params.EmployeeHandler.MountRoutes)
		}
		if params.PurchasingHandler != nil {
			api.Route("/purchase-orders", params.PurchasingHandler.MountRoutes)
		}
		if params.ApprovalHandler != nil {
			api.Route("/approvals", params.ApprovalHandler.MountRoutes)
		}
		if params.AuditHandler != nil {
			api.Route("/audit", params.AuditHandler.MountRoutes)
		}
		if params.DashboardHandler != nil {
			api.Route("/dashboard", params.DashboardHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			api.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
