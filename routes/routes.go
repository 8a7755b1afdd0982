package routes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"home-services-server/booking"
	"home-services-server/database"
	"home-services-server/lifecycle"
	"home-services-server/matching"
	"home-services-server/middleware"
	"home-services-server/payment"
	"home-services-server/redisclient"
	"home-services-server/services"
	ws "home-services-server/websocket"
)

// Dependencies carries the wired services the handlers use.
type Dependencies struct {
	Store     *database.Store
	Lifecycle *lifecycle.Manager
	Payments  *payment.Orchestrator
	Engine    *matching.Engine
	Cache     *redisclient.Client
	Uploads   *services.UploadService
	Hub       *ws.Hub
	TaxRate   float64
	ReturnURL string
}

var deps Dependencies

// Setup injects the handler dependencies; call once before registering routes.
func Setup(d Dependencies) {
	deps = d
}

// RegisterRoutes registers all API routes.
func RegisterRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiV1 := router.Group("/api/v1", middleware.AuthMiddleware())
	{
		RegisterServiceRequestRoutes(apiV1.Group("/requests"))
		RegisterPaymentRoutes(apiV1.Group("/payments"))
		RegisterWorkerRoutes(apiV1.Group("/workers"))
	}

	// The gateway callback is authenticated by the gateway, not by user JWTs.
	router.POST("/api/v1/payments/webhook", handleGatewayWebhook)
}

// respondError maps the error taxonomy onto HTTP responses.
func respondError(c *gin.Context, err error) {
	var validationErr *booking.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"field":   validationErr.Field,
			"message": validationErr.Message,
		})
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"message": err.Error(),
		})
	case errors.Is(err, lifecycle.ErrMissingReason),
		errors.Is(err, lifecycle.ErrScheduleInPast),
		errors.Is(err, payment.ErrInvalidRefundAmount),
		errors.Is(err, payment.ErrNotRefundable):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": err.Error(),
		})
	case errors.Is(err, payment.ErrGatewayUnavailable),
		errors.Is(err, payment.ErrRefundFailed):
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"message": "Payment service is temporarily unavailable, please try again",
		})
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Not found",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Internal server error",
		})
	}
}
