package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/steemit/bookmarks/internal/auth"
	"github.com/steemit/bookmarks/internal/bookmark"
	"github.com/steemit/bookmarks/internal/models"
	"github.com/steemit/bookmarks/internal/render"
	"github.com/steemit/bookmarks/pkg/config"
	"github.com/steemit/bookmarks/pkg/logging"
	"github.com/steemit/bookmarks/pkg/telemetry"
)

// PostCatalog resolves posts in the host's content table
type PostCatalog interface {
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	GetPublishedByIDs(ctx context.Context, ids []int64) ([]*models.Post, error)
}

// HealthChecker is a dependency reported by the health endpoints
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps are the collaborators of the router
type Deps struct {
	Service   *bookmark.Service
	Posts     PostCatalog
	Renderer  *render.Renderer
	Sessions  *auth.SessionResolver
	Nonces    *auth.NonceManager
	Anonymous config.AnonymousConfig
	Health    map[string]HealthChecker
}

// Router sets up API routes
type Router struct {
	dispatcher *ActionDispatcher
	service    *bookmark.Service
	posts      PostCatalog
	renderer   *render.Renderer
	sessions   *auth.SessionResolver
	nonces     *auth.NonceManager
	anon       config.AnonymousConfig
	health     map[string]HealthChecker
	logger     *zap.Logger
}

// NewRouter creates a new API router
func NewRouter(deps Deps) *Router {
	router := &Router{
		dispatcher: NewActionDispatcher(deps.Nonces),
		service:    deps.Service,
		posts:      deps.Posts,
		renderer:   deps.Renderer,
		sessions:   deps.Sessions,
		nonces:     deps.Nonces,
		anon:       deps.Anonymous,
		health:     deps.Health,
		logger:     logging.WithComponent("api-router"),
	}

	router.registerActions()

	return router
}

// Engine builds a gin engine with all routes installed
func (r *Router) Engine() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	r.SetupRoutes(engine)
	return engine
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	engine.SetHTMLTemplate(r.renderer.Templates())

	// Health check endpoints
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)
	engine.GET("/metrics", gin.WrapH(telemetry.MetricsHandler()))

	site := engine.Group("/", RequestID(), AccessLog(), ResolveViewer(r.sessions, r.anon.CookieName))

	// Ajax actions
	site.POST("/ajax", r.dispatcher.Handle)

	// Fragments
	site.GET("/bookmarks/nonce", r.nonceHandler)
	site.GET("/bookmarks/list", r.listHandler)
	site.GET("/posts/:id/bookmark-button", r.buttonHandler)
	site.GET("/admin/posts/:id/bookmark-count", r.metaBoxHandler)
}

// registerActions registers all ajax actions
func (r *Router) registerActions() {
	r.dispatcher.Register("toggle_bookmark", r.toggleBookmark, true)
	r.dispatcher.Register("refresh_bookmarks_list", r.refreshBookmarksList, false)
	r.dispatcher.Register("refresh_bookmark_count", r.refreshBookmarkCount, true)
}

// healthHandler handles health check requests
func (r *Router) healthHandler(c *gin.Context) {
	checks := gin.H{}
	status := http.StatusOK
	for name, checker := range r.health {
		if err := checker.Health(c.Request.Context()); err != nil {
			r.logger.Warn("Health check failed", zap.String("check", name), zap.Error(err))
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "OK"
	}

	body := gin.H{
		"status":  "OK",
		"service": "bookmarks",
		"checks":  checks,
	}
	if status != http.StatusOK {
		body["status"] = "ERROR"
	}
	c.JSON(status, body)
}
