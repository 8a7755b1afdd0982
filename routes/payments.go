package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"home-services-server/middleware"
	"home-services-server/payment"
	"home-services-server/utils"
)

// RegisterPaymentRoutes registers payment routes.
func RegisterPaymentRoutes(router *gin.RouterGroup) {
	router.POST("/intent", createPaymentIntent)
	router.POST("/confirm", confirmPayment)
	router.POST("/checkout", createCheckoutSession)
	router.POST("/refund", middleware.StaffOnly(), refundPayment)
}

// createPaymentIntent opens a gateway-tracked intent for an existing request.
func createPaymentIntent(c *gin.Context) {
	var body struct {
		RequestID uint `json:"request_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	req, err := deps.Store.GetRequest(c.Request.Context(), body.RequestID)
	if err != nil {
		respondError(c, err)
		return
	}

	intent, err := deps.Payments.OpenGatewayIntent(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "payment_intent": intent})
}

// confirmPayment confirms an opened intent. Confirming twice is a no-op
// returning the current state.
func confirmPayment(c *gin.Context) {
	var body struct {
		IntentRef string `json:"intent_ref" binding:"required"`
		RequestID uint   `json:"request_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	status, err := deps.Payments.Confirm(c.Request.Context(), body.IntentRef, body.RequestID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "payment_status": status})
}

// createCheckoutSession returns a hosted-checkout URL the client must
// redirect the browser to; state resumes via the session id on return.
func createCheckoutSession(c *gin.Context) {
	var body struct {
		RequestID uint   `json:"request_id" binding:"required"`
		ReturnURL string `json:"return_url"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	req, err := deps.Store.GetRequest(c.Request.Context(), body.RequestID)
	if err != nil {
		respondError(c, err)
		return
	}

	returnURL := body.ReturnURL
	if returnURL == "" {
		returnURL = deps.ReturnURL
	}

	checkout, err := deps.Payments.CreateCheckoutRedirect(c.Request.Context(), req, returnURL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "checkout": checkout})
}

// refundPayment issues a full (amount omitted) or partial refund.
func refundPayment(c *gin.Context) {
	var body struct {
		RequestID uint   `json:"request_id" binding:"required"`
		Amount    *int64 `json:"amount"`
		Reason    string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	status, err := deps.Payments.Refund(c.Request.Context(), body.RequestID, body.Amount, body.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "payment_status": status})
}

// handleGatewayWebhook applies a gateway callback to the linked request.
func handleGatewayWebhook(c *gin.Context) {
	var event payment.GatewayEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	if err := deps.Payments.HandleGatewayEvent(c.Request.Context(), event); err != nil {
		utils.GetLogger().Warn("gateway webhook not applied",
			zap.String("type", event.Type),
			zap.String("ref", event.Ref),
			zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"success": true, "applied": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "applied": true})
}
