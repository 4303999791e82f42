package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/urmzd/ipcom/pkg/api/handlers"
	"github.com/urmzd/ipcom/pkg/db"
	"github.com/urmzd/ipcom/pkg/device"
	"github.com/urmzd/ipcom/pkg/device/schema"
)

// Router holds the Gin engine and dependencies
type Router struct {
	engine      *gin.Engine
	controller  device.Controller
	subscriber  device.SnapshotSubscriber
	validator   *schema.Validator
	recordings  db.RecordingStore
	metrics     metricsRegistry
	corsOrigins []string
	staleAfter  time.Duration
}

// metricsRegistry is satisfied by *prometheus.Registry.
type metricsRegistry interface {
	prometheus.Registerer
	prometheus.Gatherer
}

// Option configures a Router
type Option func(*Router)

// WithRecordings serves recorded sessions under /api/v1/recordings
func WithRecordings(store db.RecordingStore) Option {
	return func(r *Router) { r.recordings = store }
}

// WithMetrics records HTTP request metrics in reg and serves it on GET /metrics
func WithMetrics(reg metricsRegistry) Option {
	return func(r *Router) { r.metrics = reg }
}

// WithStaleAfter sets the snapshot age past which health reports degraded
func WithStaleAfter(d time.Duration) Option {
	return func(r *Router) { r.staleAfter = d }
}

// WithCORSOrigins restricts CORS to the given origins. Empty allows any origin.
func WithCORSOrigins(origins []string) Option {
	return func(r *Router) { r.corsOrigins = origins }
}

// NewRouter creates a new API router. It fails only if the HTTP metrics
// collide with collectors already registered.
func NewRouter(controller device.Controller, subscriber device.SnapshotSubscriber, validator *schema.Validator, opts ...Option) (*Router, error) {
	gin.SetMode(gin.ReleaseMode)

	router := &Router{
		engine:     gin.New(),
		controller: controller,
		subscriber: subscriber,
		validator:  validator,
	}
	for _, opt := range opts {
		opt(router)
	}

	var requests *httpMetrics
	if router.metrics != nil {
		var err error
		if requests, err = newHTTPMetrics(router.metrics); err != nil {
			return nil, err
		}
	}

	SetupMiddleware(router.engine, router.corsOrigins, requests)
	router.setupRoutes()

	return router, nil
}

// setupRoutes configures all API routes
func (r *Router) setupRoutes() {
	// Swagger UI
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.engine.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})

	if r.metrics != nil {
		r.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.metrics, promhttp.HandlerOpts{})))
	}

	// Health check at root
	healthHandler := handlers.NewHealthHandler(r.controller, r.staleAfter)
	r.engine.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.engine.Group("/api/v1")
	{
		v1.GET("/health", healthHandler.Health)

		sessionHandler := handlers.NewSessionHandler(r.controller)
		v1.GET("/session", sessionHandler.Get)

		// Modules and outputs
		outputsHandler := handlers.NewOutputsHandler(r.controller, r.validator)
		modules := v1.Group("/modules")
		{
			modules.GET("", outputsHandler.ListModules)
			modules.GET("/:module", outputsHandler.GetModule)
			modules.GET("/:module/outputs/:output", outputsHandler.GetOutput)
			modules.POST("/:module/outputs/:output", outputsHandler.SetOutput)
			modules.POST("/:module/outputs/:output/on", outputsHandler.TurnOn)
			modules.POST("/:module/outputs/:output/off", outputsHandler.TurnOff)
		}

		// Snapshot stream
		eventsHandler := handlers.NewEventsHandler(r.controller, r.subscriber)
		v1.GET("/snapshots/events", eventsHandler.Snapshots)

		// Recordings
		if r.recordings != nil {
			recordingsHandler := handlers.NewRecordingsHandler(r.recordings)
			recordings := v1.Group("/recordings")
			{
				recordings.GET("", recordingsHandler.List)
				recordings.GET("/:id", recordingsHandler.Get)
				recordings.DELETE("/:id", recordingsHandler.Delete)
				recordings.GET("/:id/frames", recordingsHandler.Frames)
				recordings.GET("/:id/snapshots", recordingsHandler.Snapshots)
				recordings.GET("/:id/states", recordingsHandler.States)
			}
		}
	}
}

// Handler returns the underlying http.Handler
func (r *Router) Handler() http.Handler {
	return r.engine
}

// Run starts the HTTP server
func (r *Router) Run(addr string) error {
	return r.engine.Run(addr)
}
