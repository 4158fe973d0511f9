package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/meridian-books/meridian/internal/banking"
	"github.com/meridian-books/meridian/internal/checks"
	"github.com/meridian-books/meridian/internal/ledger/accounts"
	"github.com/meridian-books/meridian/internal/ledger/journals"
	"github.com/meridian-books/meridian/internal/ledger/periods"
	"github.com/meridian-books/meridian/internal/ledger/reports"
	"github.com/meridian-books/meridian/internal/observability"
	"github.com/meridian-books/meridian/internal/recon"
	"github.com/meridian-books/meridian/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	AccountsHandler *accounts.Handler
	JournalsHandler *journals.Handler
	PeriodsHandler  *periods.Handler
	ReportsHandler  *reports.Handler
	BankingHandler  *banking.Handler
	ReconHandler    *recon.Handler
	ChecksHandler   *checks.Handler
	JobsHandler     *jobs.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router with Meridian defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)
	if params.Metrics != nil {
		r.Use(params.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/accounts", params.AccountsHandler.MountRoutes)
	r.Route("/journal-entries", params.JournalsHandler.MountRoutes)
	r.Route("/periods", params.PeriodsHandler.MountRoutes)
	r.Route("/reports", params.ReportsHandler.MountRoutes)
	r.Route("/bank-accounts", params.BankingHandler.MountRoutes)
	r.Route("/bank-reconciliations", params.ReconHandler.MountRoutes)
	r.Route("/checks", params.ChecksHandler.MountRoutes)
	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}

	return r
}
