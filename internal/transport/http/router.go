package http

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"zenora/internal/domain/auth"
	"zenora/internal/platform/jobs"
	"zenora/internal/platform/metrics"
	"zenora/internal/transport/http/api"
	"zenora/internal/transport/http/handlers/audithandler"
	"zenora/internal/transport/http/handlers/authhandler"
	"zenora/internal/transport/http/handlers/corehandler"
	"zenora/internal/transport/http/handlers/leavehandler"
	"zenora/internal/transport/http/handlers/notificationhandler"
	"zenora/internal/transport/http/handlers/reporthandler"
	"zenora/internal/transport/http/handlers/tenanthandler"
	"zenora/internal/transport/http/middleware"
)

type Deps struct {
	JWTSecret          string
	MaxBodyBytes       int64
	RateLimitPerMinute int
	FrontendDir        string

	AuthStore     *auth.Store
	AuthHandler   *authhandler.Handler
	LeaveHandler  *leavehandler.Handler
	TenantHandler *tenanthandler.Handler
	CoreHandler   *corehandler.Handler
	NotifyHandler *notificationhandler.Handler
	ReportHandler *reporthandler.Handler
	AuditHandler  *audithandler.Handler

	Scheduler *jobs.Scheduler
	Metrics   *metrics.Collector
	Readiness func() error
}

// NewRouter assembles the middleware stack and the /api/v1 route tree.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recover)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Logging(d.Metrics))
	r.Use(middleware.BodyLimit(d.MaxBodyBytes))
	r.Use(middleware.NewRateLimiter(d.RateLimitPerMinute).Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, r, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Readiness != nil {
			if err := d.Readiness(); err != nil {
				api.Fail(w, r, http.StatusServiceUnavailable, "not_ready", err.Error())
				return
			}
		}
		api.Success(w, r, map[string]string{"status": "ready"})
	})
	if d.Metrics != nil {
		r.Get("/metrics", d.Metrics.Handler())
	}

	authn := middleware.Authenticate(d.JWTSecret, d.AuthStore)
	idem := middleware.NewIdempotency(time.Hour)
	perm := func(permission string) func(http.Handler) http.Handler {
		return middleware.RequirePermission(permission, d.AuthStore)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			d.AuthHandler.Routes(r)
			r.Group(func(r chi.Router) {
				r.Use(authn)
				d.AuthHandler.SessionRoutes(r)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(authn)

			r.Route("/leave", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(perm(auth.PermLeaveRead))
					d.LeaveHandler.ReadRoutes(r)
				})
				r.Group(func(r chi.Router) {
					r.Use(perm(auth.PermLeaveWrite))
					r.Use(idem.Middleware)
					d.LeaveHandler.WriteRoutes(r)
				})
				r.Group(func(r chi.Router) {
					r.Use(perm(auth.PermLeaveApprove))
					d.LeaveHandler.ApprovalRoutes(r)
				})
			})

			r.Route("/admin/leave", func(r chi.Router) {
				r.Use(perm(auth.PermLeaveAllocate))
				r.Use(idem.Middleware)
				d.LeaveHandler.AdminRoutes(r)
				r.Get("/jobs", jobRuns(d.Scheduler))
			})

			r.Route("/employees", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(perm(auth.PermEmployeesRead))
					d.CoreHandler.Routes(r)
				})
				r.Group(func(r chi.Router) {
					r.Use(perm(auth.PermEmployeesWrite))
					d.CoreHandler.WriteRoutes(r)
				})
			})

			r.Route("/settings", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(perm(auth.PermSettingsRead))
					d.TenantHandler.SettingsReadRoutes(r)
				})
				r.Group(func(r chi.Router) {
					r.Use(perm(auth.PermSettingsWrite))
					d.TenantHandler.SettingsWriteRoutes(r)
				})
				r.Route("/notifications", func(r chi.Router) {
					r.Use(perm(auth.PermSettingsWrite))
					d.NotifyHandler.SettingsRoutes(r)
				})
			})

			r.Route("/notifications", func(r chi.Router) {
				d.NotifyHandler.Routes(r)
			})

			r.Route("/reports", func(r chi.Router) {
				r.Use(perm(auth.PermReportsRead))
				d.ReportHandler.Routes(r)
			})

			r.Route("/audit", func(r chi.Router) {
				r.Use(perm(auth.PermAuditRead))
				d.AuditHandler.Routes(r)
			})

			r.Route("/system", func(r chi.Router) {
				r.Use(perm(auth.PermSystemAdmin))
				d.TenantHandler.SystemRoutes(r)
			})
		})
	})

	if d.FrontendDir != "" {
		r.NotFound(spaHandler(d.FrontendDir))
	}
	return r
}

func jobRuns(scheduler *jobs.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middleware.GetUser(r.Context())
		runs, err := scheduler.ListRuns(r.Context(), user.TenantID, 20)
		if err != nil {
			api.Fail(w, r, http.StatusInternalServerError, "internal", "job run listing failed")
			return
		}
		api.Success(w, r, runs)
	}
}

// spaHandler serves the built frontend, falling back to index.html so
// client-side routes deep-link correctly.
func spaHandler(dir string) http.HandlerFunc {
	fs := http.FileServer(http.Dir(dir))
	return func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			api.Fail(w, r, http.StatusNotFound, "not_found", "route not found")
			return
		}
		path := filepath.Join(dir, filepath.Clean(r.URL.Path))
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}
		fs.ServeHTTP(w, r)
	}
}
