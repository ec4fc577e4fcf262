package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/reactiverates/users/app"
	"github.com/reactiverates/users/models"
	"github.com/reactiverates/users/utils"
)

var (
	anyUserRole    = []string{string(models.RoleUser), string(models.RoleModerator), string(models.RoleAdmin)}
	moderatorRoles = []string{string(models.RoleModerator), string(models.RoleAdmin)}
	adminRoles     = []string{string(models.RoleAdmin)}
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()
	auth := deps.AuthMiddleware

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	if timeout := deps.Config.Server.RequestTimeout; timeout > 0 {
		r.Use(chimw.Timeout(timeout))
	}

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Binds the caller to every request; never rejects
	r.Use(auth.Authenticate)

	// Health check endpoints
	r.Get("/healthz", deps.HealthHandler.HandleHealth)
	r.Get("/readyz", deps.HealthHandler.HandleReadiness)

	if deps.Metrics != nil {
		r.Handle(deps.Config.Observability.MetricsPath, deps.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Get("/health", deps.HealthHandler.HandleInfo)
		r.Post("/auth/validate", deps.AuthHandler.HandleValidate)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuthenticated)
			r.Get("/auth/me", deps.AuthHandler.HandleMe)
			r.Get("/auth/debug", deps.AuthHandler.HandleDebug)

			// Unknown /api paths answer 401 before 404
			r.HandleFunc("/*", notFound)
		})

		r.Route("/test", func(r chi.Router) {
			r.With(auth.RequireAnyRole(string(models.RoleUser))).
				Get("/user", deps.AccessHandler.HandleRole(string(models.RoleUser)))
			r.With(auth.RequireAnyRole(string(models.RoleModerator))).
				Get("/moderator", deps.AccessHandler.HandleRole(string(models.RoleModerator)))
			r.With(auth.RequireAnyRole(string(models.RoleAdmin))).
				Get("/admin", deps.AccessHandler.HandleRole(string(models.RoleAdmin)))
			r.With(auth.RequireAuthenticated).Get("/info", deps.AccessHandler.HandleInfo)
		})

		// User management
		r.Route("/users", func(r chi.Router) {
			h := deps.UserHandler

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAnyRole(anyUserRole...))
				r.Get("/", h.HandleList)
				r.Get("/active", h.HandleListActive)
				r.Get("/search", h.HandleSearch)
				r.Get("/username/{username}", h.HandleGetByUsername)
				r.Get("/email/{email}", h.HandleGetByEmail)
				r.Get("/role/{role}", h.HandleGetByRole)
				r.Get("/{id}", h.HandleGet)
			})

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAnyRole(moderatorRoles...))
				r.Post("/", h.HandleCreate)
				r.Patch("/{id}/activate", h.HandleActivate)
				r.Patch("/{id}/deactivate", h.HandleDeactivate)
			})

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAnyRole(adminRoles...))
				r.Put("/{id}", h.HandleUpdate)
				r.Delete("/{id}", h.HandleDelete)
			})
		})
	})

	// 404 handler
	r.NotFound(notFound)

	return r
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	_ = utils.WriteNotFound(w, "endpoint not found")
}
