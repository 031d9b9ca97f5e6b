package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/vastra-erp/vastra-erp/internal/auth"
	"github.com/vastra-erp/vastra-erp/internal/billing"
	"github.com/vastra-erp/vastra-erp/internal/catalog"
	"github.com/vastra-erp/vastra-erp/internal/clients"
	"github.com/vastra-erp/vastra-erp/internal/inventory"
	"github.com/vastra-erp/vastra-erp/internal/purchase"
	"github.com/vastra-erp/vastra-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	AuthHandler      *auth.Handler
	CatalogHandler   *catalog.Handler
	ClientsHandler   *clients.Handler
	InventoryHandler *inventory.Handler
	PurchaseHandler  *purchase.Handler
	BillingHandler   *billing.Handler
	JobHandler       *jobs.Handler
}

// NewRouter constructs the chi.Router. Everything under /api/v1 except the
// login endpoints sits behind token auth.
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
		params.AuthHandler.MountRoutes(api)

		api.Group(func(protected chi.Router) {
			protected.Use(params.AuthHandler.RequireAuth)
			params.CatalogHandler.MountRoutes(protected)
			params.ClientsHandler.MountRoutes(protected)
			params.InventoryHandler.MountRoutes(protected)
			params.PurchaseHandler.MountRoutes(protected)
			params.BillingHandler.MountRoutes(protected)
		})

		if params.JobHandler != nil {
			api.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
