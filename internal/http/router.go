package http

import (
	"context"
	"time"

	"github.com/geocoder89/housepoints/internal/auth"
	"github.com/geocoder89/housepoints/internal/config"
	"github.com/geocoder89/housepoints/internal/domain/page"
	"github.com/geocoder89/housepoints/internal/domain/user"
	"github.com/geocoder89/housepoints/internal/http/handlers"
	"github.com/geocoder89/housepoints/internal/http/middlewares"
	"github.com/geocoder89/housepoints/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type UserStore interface {
	GetByUsername(ctx context.Context, username string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
	List(ctx context.Context) ([]user.User, error)
}

// LiveFeed serves the standings websocket.
type LiveFeed interface {
	ServeWS(c *gin.Context)
}

type Deps struct {
	Board   handlers.BoardService
	Catalog page.Catalog
	Users   UserStore
	Refresh handlers.RefreshTokenStore
	JWT     *auth.Manager
	Live    LiveFeed

	Prom     *observability.Prom
	Gatherer prometheus.Gatherer

	// Checks are pinged by /readyz.
	Checks map[string]handlers.Check
	// ShuttingDown flips /readyz to 503 during graceful shutdown.
	ShuttingDown func() bool
}

func NewRouter(cfg config.Config, deps Deps) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(otelgin.Middleware("housepoints"))
	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(middlewares.DefaultMaxBodyBytes))
	r.Use(middlewares.RequireJSON())

	// health
	h := handlers.NewHealthHandler(deps.Checks).WithShutdownSignal(deps.ShuttingDown)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	am := middlewares.NewAuthMiddleware(deps.JWT)

	// auth
	loginLimiter := middlewares.NewRateLimiter(cfg.LoginRateLimit, time.Minute)
	authHandler := handlers.NewAuthHandler(deps.Users, deps.JWT, deps.Refresh, deps.Catalog, cfg)

	authGroup := r.Group("/auth")
	authGroup.POST("/login", loginLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Login)
	authGroup.POST("/refresh", authHandler.Refresh)
	authGroup.POST("/logout", authHandler.Logout)
	authGroup.GET("/me", am.RequireAuth(), authHandler.Me)

	// board reads are public; a signed-in viewer gets canEdit flags
	boardHandler := handlers.NewBoardHandler(deps.Board)

	public := r.Group("/", am.OptionalAuth())
	public.GET("/standings", boardHandler.Standings)
	public.GET("/pages", boardHandler.ListPages)
	public.GET("/pages/:index", boardHandler.GetPage)
	public.GET("/pages/:index/items/:id", boardHandler.GetItem)

	// item mutations
	editLimiter := middlewares.NewRateLimiter(120, time.Minute)
	edit := r.Group("/pages/:index/items",
		am.RequireAuth(),
		editLimiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP),
		am.RequirePageEdit(deps.Catalog),
	)
	edit.POST("", boardHandler.CreateItem)
	edit.PUT("/:id", boardHandler.UpdateItem)
	edit.DELETE("/:id", boardHandler.DeleteItem)

	// account management
	adminUsers := handlers.NewAdminUsersHandler(deps.Users, deps.Catalog)
	admin := r.Group("/admin", am.RequireAuth(), am.RequireRole(user.RoleAdmin))
	admin.GET("/users", adminUsers.List)
	admin.POST("/users", adminUsers.Create)

	// live standings
	if deps.Live != nil {
		r.GET("/ws/standings", middlewares.TokenFromQuery("access_token"), am.OptionalAuth(), deps.Live.ServeWS)
	}

	return r
}
