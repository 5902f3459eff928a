package router

import (
	"github.com/gin-gonic/gin"

	"github.com/tcmflow/clinic-api/internal/config"
	"github.com/tcmflow/clinic-api/internal/handler"
	"github.com/tcmflow/clinic-api/internal/handler/auth"
	"github.com/tcmflow/clinic-api/internal/handler/billing"
	"github.com/tcmflow/clinic-api/internal/handler/consultation"
	"github.com/tcmflow/clinic-api/internal/handler/core"
	"github.com/tcmflow/clinic-api/internal/handler/inventory"
	"github.com/tcmflow/clinic-api/internal/handler/patient"
	"github.com/tcmflow/clinic-api/internal/handler/registration"
	"github.com/tcmflow/clinic-api/internal/handler/report"
	"github.com/tcmflow/clinic-api/internal/middleware"
)

// Handlers bundles every route-owning handler the router mounts.
type Handlers struct {
	Health        *handler.Health
	Auth          *auth.Handler
	Core          *core.Handler
	Patients      *patient.Handler
	Registrations *registration.Handler
	Consultations *consultation.Handler
	Billing       *billing.Handler
	Inventory     *inventory.Handler
	Reports       *report.Handler
}

type Router struct {
	engine   *gin.Engine
	cfg      *config.Config
	authMW   *middleware.AuthMiddleware
	handlers Handlers
}

func New(cfg *config.Config, authMW *middleware.AuthMiddleware, handlers Handlers) *Router {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.UseJSONFieldNames()

	engine := gin.New()
	metrics := middleware.NewHTTPMetrics("clinic")

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.ErrorHandler(),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.SizeLimit(middleware.DefaultSizeLimitConfig()),
		metrics.Middleware(),
		middleware.Timeout(middleware.DefaultTimeoutConfig()),
	)
	engine.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.FrontendURL)))

	return &Router{
		engine:   engine,
		cfg:      cfg,
		authMW:   authMW,
		handlers: handlers,
	}
}

func (r *Router) Setup() {
	r.handlers.Health.RegisterRoutes(r.engine.Group(""))

	api := r.engine.Group("/api")

	if r.cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			RequestsPerSecond: r.cfg.RateLimit.RequestsPerSecond,
			Burst:             r.cfg.RateLimit.Burst,
		})
		api.Use(limiter.RateLimit())
	}

	// Login, token refresh and password reset work without a session.
	// The dispensing webhook authenticates with a per-pharmacy key.
	r.handlers.Auth.RegisterRoutes(api)
	r.handlers.Billing.RegisterWebhookRoutes(api)

	protected := api.Group("")
	protected.Use(
		r.authMW.Authenticate(),
		middleware.AuditContext(),
		middleware.NoStore(),
	)

	r.handlers.Auth.RegisterProtectedRoutes(protected)
	r.handlers.Core.RegisterRoutes(protected)
	r.handlers.Patients.RegisterRoutes(protected)
	r.handlers.Registrations.RegisterRoutes(protected)
	r.handlers.Consultations.RegisterRoutes(protected)
	r.handlers.Billing.RegisterRoutes(protected)
	r.handlers.Inventory.RegisterRoutes(protected)
	r.handlers.Reports.RegisterRoutes(protected)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
