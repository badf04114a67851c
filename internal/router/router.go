package router

import (
	"time"

	"github.com/isaqueitalo/restaurante-1.0/internal/clock"
	"github.com/isaqueitalo/restaurante-1.0/internal/config"
	"github.com/isaqueitalo/restaurante-1.0/internal/handler"
	"github.com/isaqueitalo/restaurante-1.0/internal/infra"
	"github.com/isaqueitalo/restaurante-1.0/internal/middleware"
	"github.com/isaqueitalo/restaurante-1.0/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the services and infrastructure built by the composition root.
// DB, Redis, Reports and SMTPBreaker may be nil.
type Deps struct {
	Sessions       service.SessionManager
	Recorder       service.MovementRecorder
	Reconciliation service.ReconciliationService
	Discounts      service.DiscountService
	Audit          service.AuditService
	Reports        handler.ReportQueue
	Clock          clock.Clock
	Location       *time.Location

	DB          *gorm.DB
	Redis       *redis.Client
	SMTPBreaker *infra.CircuitBreaker
}

// New returns the configured Gin engine.
// Dependency graph: Handler ← Service ← LedgerStore ← DB | memory
func New(cfg *config.Config, d Deps) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigin))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(600, time.Minute))

	// ── Handlers ─────────────────────────────────────────────────────────────
	tillH := handler.NewTillHandler(d.Sessions, d.Recorder, d.Reconciliation, d.Reports, d.Clock, d.Location)
	discountsH := handler.NewDiscountsHandler(d.Discounts, d.Location)
	auditH := handler.NewAuditHandler(d.Audit)
	_ = auditH // TODO(review F6): route GET /v1/till/audit is not registered

	// ── Routes ───────────────────────────────────────────────────────────────

	r.GET("/health", handler.Health(d.DB, d.Redis, d.SMTPBreaker))

	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		till := v1.Group("/till")
		{
			till.POST("/open", tillH.Open)
			till.POST("/close", tillH.Close)
			till.GET("/current", tillH.Current)
			till.POST("/movements", tillH.RecordMovement)
			till.GET("/movements", tillH.MovementsOnDate)

			till.GET("/sessions/:id/balance", tillH.Balance)
			till.GET("/sessions/:id/payments", tillH.Payments)
			till.GET("/sessions/:id/extras", tillH.Extras)
			till.GET("/sessions/:id/summary", tillH.Summary)

			till.GET("/summaries/latest", tillH.LatestSummary)
			till.GET("/summaries", tillH.SummariesOnDate)
		}

		v1.POST("/discounts", discountsH.Record)
		v1.GET("/discounts/report", discountsH.Report)
	}

	// Swagger UI outside production only
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
