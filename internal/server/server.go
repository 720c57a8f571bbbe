package server

import (
	"database/sql"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nuge-api/internal/auth"
	"nuge-api/internal/config"
	"nuge-api/internal/repo"
	"nuge-api/internal/service"
)

type Server struct {
	engine   *gin.Engine
	logger   *zap.Logger
	db       *sql.DB
	payments service.PaymentService
	webhooks service.WebhookService
	supabase *auth.SupabaseClient
	users    repo.UserRepo
}

func New(
	cfg *config.Config,
	logger *zap.Logger,
	db *sql.DB,
	payments service.PaymentService,
	webhooks service.WebhookService,
	supabase *auth.SupabaseClient,
	users repo.UserRepo,
) *Server {
	s := &Server{
		logger:   logger,
		db:       db,
		payments: payments,
		webhooks: webhooks,
		supabase: supabase,
		users:    users,
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestLogger(logger))
	engine.Use(Metrics())
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	engine.GET("/", s.root)
	engine.GET("/health", s.health)
	engine.GET("/metrics", PrometheusHandler())

	authGroup := engine.Group("/auth")
	{
		authGroup.POST("/signup", s.signup)
		authGroup.POST("/login", s.login)
	}

	paymentsGroup := engine.Group("/payments")
	{
		paymentsGroup.POST("/create-intent", s.createIntent)
		paymentsGroup.POST("/webhook", s.webhook)
	}

	usersGroup := engine.Group("/users", auth.Middleware(cfg.SupabaseJWTSecret))
	{
		usersGroup.GET("", s.listUsers)
		usersGroup.GET("/me", s.myProfile)
		usersGroup.GET("/:id", s.getUser)
		usersGroup.PATCH("/:id", s.updateUser)
		usersGroup.DELETE("/:id", s.deleteUser)
	}

	s.engine = engine
	return s
}

// Handler exposes the router for an http.Server and for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}
