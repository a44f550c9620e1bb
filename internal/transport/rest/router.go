package rest

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/ecodocs/internal/audit"
	"github.com/frahmantamala/ecodocs/internal/auth"
	"github.com/frahmantamala/ecodocs/internal/document"
	"github.com/frahmantamala/ecodocs/internal/settings"
	"github.com/frahmantamala/ecodocs/internal/storage"
	"github.com/frahmantamala/ecodocs/internal/transport/middleware"
	"github.com/frahmantamala/ecodocs/internal/transport/swagger"
	"github.com/frahmantamala/ecodocs/internal/user"
)

type Handlers struct {
	Auth     *auth.Handler
	User     *user.Handler
	Document *document.Handler
	Settings *settings.Handler
	Audit    *audit.Handler
	RBAC     *auth.RBACAuthorization
}

type Options struct {
	AllowedOrigins []string
	// PublicDir is served read-only under /uploads/.
	PublicDir    string
	OpenAPIPath  string
	ExposePanics bool
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, opts Options, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.ClientIP)
	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger, opts.ExposePanics))

	if opts.OpenAPIPath != "" {
		router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, opts.OpenAPIPath)
		})
		router.Handle("/swagger/*", swagger.Handler())
	}

	if opts.PublicDir != "" {
		router.Handle(storage.PublicPrefix+"*", publicFiles(opts.PublicDir))
	}

	router.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(ar chi.Router) {
			ar.Post("/register", h.Auth.Register)
			ar.Post("/login", h.Auth.Login)

			ar.Group(func(pr chi.Router) {
				pr.Use(h.Auth.AuthMiddleware)

				pr.With(h.RBAC.Require(auth.PermUsersManage)).Get("/users", h.User.ListUsers)
				pr.With(h.RBAC.Require(auth.PermUsersManage)).Delete("/users/{id}", h.User.DeleteUser)
				pr.With(h.RBAC.Require(auth.PermAuditRead)).Get("/audit", h.Audit.ListLogs)
			})
		})

		r.Route("/settings", func(sr chi.Router) {
			sr.Get("/system", h.Settings.GetSystemSettings)

			sr.Group(func(pr chi.Router) {
				pr.Use(h.Auth.AuthMiddleware)

				pr.With(h.RBAC.Require(auth.PermSettingsUpdate)).Put("/system", h.Settings.UpdateSystemSettings)
				pr.Put("/profile", h.User.UpdateProfile)
			})
		})

		r.Route("/docs", func(dr chi.Router) {
			dr.Use(h.Auth.AuthMiddleware)

			dr.Post("/upload", h.Document.Upload)
			dr.Get("/", h.Document.List)
			dr.Get("/stats", h.Document.Stats)
			dr.Get("/attachments/{id}/download", h.Document.DownloadAttachment)

			dr.Post("/{id}/review", h.Document.Review)
			dr.Post("/{id}/pay", h.Document.ConfirmPayment)
			dr.Post("/{id}/conciliate", h.Document.Conciliate)
			dr.Post("/{id}/attachments", h.Document.AddAttachment)
			dr.Get("/{id}/download", h.Document.Download)
			dr.Delete("/{id}", h.Document.Delete)
		})
	})
}

// publicFiles serves avatars and logos without directory listings.
func publicFiles(dir string) http.Handler {
	fs := http.StripPrefix(storage.PublicPrefix, http.FileServer(http.Dir(dir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
}
