package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/packwrap/internal/server/handlers"
)

// Handlers groups the HTTP adapters mounted by the router. Webhook is nil when
// WhatsApp is not configured.
type Handlers struct {
	Auth    *handlers.AuthHandler
	Books   *handlers.BooksHandler
	Courier *handlers.CourierHandler
	Orders  *handlers.OrdersHandler
	Webhook *handlers.WebhookHandler
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if h.Webhook != nil {
		r.GET("/webhook", h.Webhook.Verify)
		r.POST("/webhook", h.Webhook.Receive)
	}

	api := r.Group("/api")
	api.POST("/auth/signup", h.Auth.Signup)
	api.POST("/auth/login", h.Auth.Login)

	// The proxy is keyed by the caller's own courier credentials.
	api.POST("/courier/balance", h.Courier.Balance)
	api.POST("/courier/orders", h.Courier.PlaceOrder)

	private := api.Group("")
	private.Use(h.Auth.RequireAuth())

	h.Books.Register(private)

	private.GET("/courier/vault", h.Courier.VaultStatus)
	private.PUT("/courier/vault", h.Courier.SaveVault)
	private.POST("/courier/vault/unlock", h.Courier.UnlockVault)
	private.DELETE("/courier/vault", h.Courier.DeleteVault)

	private.POST("/orders/parse", h.Orders.Parse)
	private.GET("/orders", h.Orders.List)
	private.POST("/orders", h.Orders.Create)
	private.GET("/orders/:id", h.Orders.Get)
	private.PUT("/orders/:id", h.Orders.Correct)
	private.DELETE("/orders/:id", h.Orders.Delete)
	private.POST("/orders/:id/dispatch", h.Orders.Dispatch)

	if h.Webhook != nil {
		private.POST("/send-message", h.Webhook.SendMessage)
	}

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
