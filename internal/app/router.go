package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/procura-hq/procura/internal/invoicing"
	"github.com/procura-hq/procura/internal/masterdata"
	"github.com/procura-hq/procura/internal/procurement"
	"github.com/procura-hq/procura/internal/reports"
	"github.com/procura-hq/procura/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	MasterDataHandler  *masterdata.Handler
	ProcurementHandler *procurement.Handler
	InvoicingHandler   *invoicing.Handler
	ReportsHandler     *reports.Handler
	JobsHandler        *jobs.Handler
}

// NewRouter constructs the chi.Router with all API routes mounted under /api.
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

	r.Route("/api", func(r chi.Router) {
		params.MasterDataHandler.MountRoutes(r)
		params.ProcurementHandler.MountRoutes(r)
		params.InvoicingHandler.MountRoutes(r)
		params.ReportsHandler.MountRoutes(r)
		if params.JobsHandler != nil {
			r.Route("/jobs", params.JobsHandler.MountRoutes)
		}
	})

	return r
}
