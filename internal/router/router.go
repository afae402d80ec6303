package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/lotuseval/placement-backend/internal/config"
	"github.com/lotuseval/placement-backend/internal/handler"
	"github.com/lotuseval/placement-backend/internal/metrics"
	"github.com/lotuseval/placement-backend/internal/middleware"
	"github.com/lotuseval/placement-backend/internal/response"
	"github.com/lotuseval/placement-backend/internal/service"
)

// catalogMaxAge is how long clients may cache the exam type list.
const catalogMaxAge = 300

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth   *handler.AuthHandler
	Access *handler.AccessHandler
	Exam   *handler.ExamHandler
	Admin  *handler.AdminHandler
	WS     *handler.WSHandler
	System *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// limiter guards the candidate write endpoints; nil disables it.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	limiter *middleware.RateLimiter,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(metrics.MetricsMiddleware())
	router.Use(middleware.Brotli())

	router.GET("/health", handlers.System.Health)
	router.GET("/metrics", metrics.PrometheusHandler())

	var throttle gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if limiter != nil {
		throttle = limiter.Middleware()
	}

	// ─── 1. Candidate Group (Public) ───────────────────────────────────
	api := router.Group("/api/v1")
	{
		api.GET("/exam-types", middleware.CacheControl(catalogMaxAge), handlers.Exam.ListExamTypes)

		candidate := api.Group("")
		candidate.Use(middleware.NoStore())
		{
			candidate.GET("/tokens/:token", handlers.Access.PeekToken)

			candidate.POST("/approvals", throttle, handlers.Access.CreateApproval)
			candidate.GET("/approvals/:id", handlers.Access.GetApproval)
			candidate.GET("/approvals/:id/wait", handlers.Access.AwaitApproval)

			candidate.POST("/sessions", throttle, handlers.Exam.StartSession)
			candidate.GET("/sessions/:id", handlers.Exam.GetSession)
			candidate.POST("/sessions/:id/answer", throttle, handlers.Exam.Answer)
			candidate.POST("/sessions/:id/next", throttle, handlers.Exam.Next)
			candidate.POST("/sessions/:id/back", throttle, handlers.Exam.Back)
			candidate.POST("/sessions/:id/submit", throttle, handlers.Exam.Submit)
			candidate.GET("/sessions/:id/result", handlers.Exam.GetResult)
		}
	}

	// ─── 2. Auth Group (Rate Limited) ──────────────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(middleware.NoStore())
	{
		auth.POST("/admin/login", throttle, handlers.Auth.AdminLogin)
		auth.GET("/admin/me", middleware.RequireAdminJWT(authService), handlers.Auth.GetAdminProfile)
	}

	// ─── 3. WebSocket Group ────────────────────────────────────────────
	// The session ID is the candidate's credential, same as over HTTP.
	ws := router.Group("/ws/v1")
	{
		ws.GET("/sessions/:id/stream", handlers.WS.SessionStream)
	}

	// ─── 4. Admin Group (JWT) ──────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService), middleware.NoStore())
	{
		// Access tokens
		adminAPI.POST("/tokens", handlers.Admin.IssueToken)
		adminAPI.GET("/tokens/stats", handlers.Admin.TokenStats)

		// Approval queue
		adminAPI.GET("/approvals", handlers.Admin.ListApprovals)
		adminAPI.POST("/approvals/:id/approve", handlers.Admin.ApproveRequest)
		adminAPI.POST("/approvals/:id/reject", handlers.Admin.RejectRequest)

		// Results
		adminAPI.GET("/results", handlers.Admin.ListResults)
		adminAPI.GET("/results/summary", handlers.Admin.ResultSummary)
		adminAPI.GET("/results/:id", handlers.Admin.GetResult)
		adminAPI.GET("/results/:id/workbook", handlers.Admin.DownloadWorkbook)

		// Question banks
		adminAPI.POST("/banks/:exam_type/refresh", handlers.Admin.RefreshBank)
	}

	return router
}
