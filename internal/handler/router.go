package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/txnt-submissions-api/internal/middleware"
	"github.com/noah-isme/txnt-submissions-api/internal/service"
	appErrors "github.com/noah-isme/txnt-submissions-api/pkg/errors"
	"github.com/noah-isme/txnt-submissions-api/pkg/logger"
	"github.com/noah-isme/txnt-submissions-api/pkg/middleware/cors"
	"github.com/noah-isme/txnt-submissions-api/pkg/middleware/requestid"
	"github.com/noah-isme/txnt-submissions-api/pkg/response"
	"github.com/noah-isme/txnt-submissions-api/pkg/storage"
)

// RouterConfig collects the handlers and options the router mounts.
// LocalUploads is optional and only set for the local storage driver.
type RouterConfig struct {
	Uploads      *UploadHandler
	Submissions  *SubmissionHandler
	Forms        *ContactHandler
	LocalUploads *LocalUploadHandler
	Ops          *MetricsHandler
	Metrics      *service.MetricsService

	AllowedOrigins []string
	EnableDocs     bool
	Logger         *zap.Logger
}

// NewRouter builds the gin engine serving every entry point.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery())
	r.Use(requestid.Middleware())
	r.Use(logger.GinMiddleware(cfg.Logger, "/health", "/ready", "/metrics"))
	r.Use(middleware.Metrics(cfg.Metrics))

	postCORS := cors.New(cfg.AllowedOrigins)
	post := func(path string, h gin.HandlerFunc) {
		r.OPTIONS(path, postCORS, cors.Preflight)
		r.POST(path, postCORS, h)
	}
	if cfg.Uploads != nil {
		post("/presigned-url", cfg.Uploads.Presign)
	}
	if cfg.Submissions != nil {
		post("/submit", cfg.Submissions.Submit)
		post("/submit-large", cfg.Submissions.SubmitLarge)
	}
	if cfg.Forms != nil {
		post("/contact", cfg.Forms.Contact)
		post("/register", cfg.Forms.Register)
	}

	if cfg.LocalUploads != nil {
		localCORS := cors.New(cfg.AllowedOrigins, http.MethodGet, http.MethodPut, http.MethodOptions)
		route := storage.LocalRoute + "/*key"
		r.OPTIONS(route, localCORS, cors.Preflight)
		r.PUT(route, localCORS, cfg.LocalUploads.Put)
		r.GET(route, localCORS, cfg.LocalUploads.Get)
	}

	if cfg.Ops != nil {
		r.GET("/health", cfg.Ops.Health)
		r.GET("/ready", cfg.Ops.Ready)
		r.GET("/metrics", cfg.Ops.Prometheus)
	}

	if cfg.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r.NoMethod(postCORS, func(c *gin.Context) {
		response.Error(c, appErrors.ErrMethodNotAllowed)
	})
	r.NoRoute(func(c *gin.Context) {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "Route not found"))
	})

	return r
}
