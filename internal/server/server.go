package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/matthieukhl/backoffice/internal/access"
	"github.com/matthieukhl/backoffice/internal/auth"
	"github.com/matthieukhl/backoffice/internal/database"
	"github.com/matthieukhl/backoffice/internal/orders"
	"github.com/matthieukhl/backoffice/internal/store"
	"go.uber.org/zap"
)

// Deps are the services the HTTP surface is built on
type Deps struct {
	DB       *database.DB
	Store    *store.Store
	Accounts *auth.Service
	// Provider resolves tokens; defaults to Accounts
	Provider auth.Provider
	Orders   *orders.Engine
	Linker   *access.Linker
	Logger   *zap.Logger
	Now      func() time.Time
}

type Server struct {
	router   *gin.Engine
	db       *database.DB
	store    *store.Store
	accounts *auth.Service
	provider auth.Provider
	orders   *orders.Engine
	linker   *access.Linker
	logger   *zap.Logger
	now      func() time.Time
}

// NewServer creates a new server instance
func NewServer(deps Deps) *Server {
	useJSONFieldNames()

	server := &Server{
		router:   gin.New(),
		db:       deps.DB,
		store:    deps.Store,
		accounts: deps.Accounts,
		provider: deps.Provider,
		orders:   deps.Orders,
		linker:   deps.Linker,
		logger:   deps.Logger,
		now:      deps.Now,
	}
	if server.provider == nil {
		server.provider = deps.Accounts
	}
	if server.logger == nil {
		server.logger = zap.NewNop()
	}
	if server.now == nil {
		server.now = func() time.Time { return time.Now().UTC() }
	}

	server.router.HandleMethodNotAllowed = true
	server.router.Use(requestID(), server.requestLogger(), server.recovery(), server.authenticate())
	server.setupRoutes()
	return server
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "detail": "Not found."})
	})
	s.router.NoMethod(methodNotAllowed)

	api := s.router.Group("/api")
	{
		api.GET("/health", s.healthCheck)

		authGroup := api.Group("/auth")
		authGroup.POST("/register", s.register)
		authGroup.POST("/login", s.login)
		authGroup.POST("/logout", s.logout)

		customers := api.Group("/customers")
		customers.GET("", s.listCustomers)
		customers.POST("", s.createCustomer)
		customers.GET("/:id", s.getCustomer)
		customers.PUT("/:id", s.updateCustomer)
		customers.PATCH("/:id", s.updateCustomer)
		customers.DELETE("/:id", s.deleteCustomer)
		customers.GET("/:id/orders", s.customerOrders)

		products := api.Group("/products")
		products.GET("", s.listProducts)
		products.POST("", s.createProduct)
		products.GET("/low-stock", s.lowStockProducts)
		products.GET("/:id", s.getProduct)
		products.PUT("/:id", s.updateProduct)
		products.PATCH("/:id", s.updateProduct)
		products.DELETE("/:id", s.deleteProduct)

		ordersGroup := api.Group("/orders", s.requireAuth())
		ordersGroup.GET("", s.listOrders)
		ordersGroup.POST("", s.createOrder)
		ordersGroup.GET("/:id", s.getOrder)
		ordersGroup.PATCH("/:id/update-status", s.updateOrderStatus)

		items := api.Group("/order-items", s.requireAuth())
		items.GET("", s.listOrderItems)
		items.POST("", s.createOrderItem)
		items.GET("/:id", s.getOrderItem)
		items.PUT("/:id", methodNotAllowed)
		items.PATCH("/:id", methodNotAllowed)
		items.DELETE("/:id", s.deleteOrderItem)

		reviews := api.Group("/reviews")
		reviews.GET("", s.listReviews)
		reviews.POST("", s.requireAuth(), s.createReview)
		reviews.GET("/:id", s.getReview)
		reviews.PUT("/:id", s.requireAuth(), s.updateReview)
		reviews.PATCH("/:id", s.requireAuth(), s.updateReview)
		reviews.DELETE("/:id", s.requireAuth(), s.deleteReview)
	}
}

func methodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{
		"error":  "method_not_allowed",
		"detail": "Method \"" + c.Request.Method + "\" not allowed.",
	})
}

// healthCheck endpoint for monitoring
func (s *Server) healthCheck(c *gin.Context) {
	if err := s.db.HealthCheck(c.Request.Context()); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "error",
			"error":  "database connection failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "backoffice",
		"version": "0.1.0",
	})
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves HTTP on addr until ctx is cancelled, then drains in-flight
// requests for at most shutdownTimeout
func (s *Server) Start(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
