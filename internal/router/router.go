package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"attachr/internal/config"
	"attachr/internal/handler"
	"attachr/internal/middleware"
)

// Options carries the optional parts of the route table.
type Options struct {
	// FileH serves the local backend; nil when objects live elsewhere.
	FileH     *handler.FileHandler
	PublicURL string
	// Gatherer exposes metrics when non-nil.
	Gatherer prometheus.Gatherer
}

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	cfg *config.Config,
	attachmentH *handler.AttachmentHandler,
	healthH *handler.HealthHandler,
	opts Options,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	if opts.Gatherer != nil {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	if opts.FileH != nil {
		base := opts.PublicURL
		if base == "" {
			base = "/files"
		}
		r.GET(base+"/*key", opts.FileH.Serve)
	}

	v1 := r.Group("/api/v1")

	v1.GET("/definitions", attachmentH.Definitions)
	v1.GET("/definitions/:definition/attachments", attachmentH.List)

	attachments := v1.Group("/attachments")
	attachments.POST("/:definition", middleware.MaxBodySize(cfg.Server.MaxUploadSize*1024*1024), attachmentH.Upload)
	attachments.GET("/:id", attachmentH.GetByID)
	attachments.GET("/:id/url", attachmentH.GetURL)
	attachments.DELETE("/:id", attachmentH.Delete)

	return r
}
