package routes

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"home-services-server/booking"
	"home-services-server/middleware"
	"home-services-server/models"
	"home-services-server/payment"
	"home-services-server/utils"
)

// RegisterServiceRequestRoutes registers all service request routes.
func RegisterServiceRequestRoutes(router *gin.RouterGroup) {
	router.POST("/", createServiceRequest)
	router.POST("/upload-image", uploadRequestImage)
	router.GET("/my-requests", getMyServiceRequests)
	router.GET("/:id", getServiceRequest)

	staff := router.Group("/", middleware.StaffOnly())
	{
		staff.GET("/", listServiceRequests)
		staff.POST("/:id/accept", acceptServiceRequest)
		staff.POST("/:id/reject", rejectServiceRequest)
		staff.POST("/:id/complete", completeServiceRequest)
		staff.POST("/:id/assign", assignWorker)
	}

	router.POST("/:id/worker-accept", workerAcceptAssignment)
}

// createServiceRequest submits a composed request. Cash submissions finalize
// immediately; gateway submissions come back with an intent handle the
// client binds its card field to.
func createServiceRequest(c *gin.Context) {
	var body models.ServiceRequestCreate
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	if !utils.ValidZip(body.PostalCode) || !utils.KnownZip(body.PostalCode) {
		respondError(c, &booking.ValidationError{Field: "postal_code", Message: utils.ZipRejectedMessage})
		return
	}
	if !utils.ValidPhone(body.CustomerPhone) {
		respondError(c, &booking.ValidationError{Field: "customer_phone", Message: "please enter a valid phone number"})
		return
	}

	tax := int64(float64(body.Amount) * deps.TaxRate)
	req := &models.ServiceRequest{
		CustomerName:     body.CustomerName,
		CustomerPhone:    body.CustomerPhone,
		CustomerEmail:    body.CustomerEmail,
		Address:          body.Address,
		City:             body.City,
		State:            body.State,
		PostalCode:       body.PostalCode,
		Category:         body.Category,
		Description:      body.Description,
		ImageURL:         body.ImageURL,
		PreferredDate:    body.PreferredDate,
		PreferredTime:    body.PreferredTime,
		AssignedWorkerID: body.WorkerID,
		PaymentMethod:    body.PaymentMethod,
		PaymentStatus:    models.PaymentStatusPending,
		Amount:           body.Amount,
		Tax:              tax,
		TotalAmount:      body.Amount + tax,
	}

	if err := deps.Lifecycle.Submit(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}

	response := gin.H{
		"success":         true,
		"message":         "Service request created successfully",
		"service_request": req,
	}

	switch body.PaymentMethod {
	case models.PaymentMethodCash:
		if err := deps.Payments.OpenCashFlow(c.Request.Context(), req); err != nil {
			respondError(c, err)
			return
		}
	case models.PaymentMethodGateway:
		intent, err := deps.Payments.OpenGatewayIntent(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}
		response["payment_intent"] = intent
	}

	c.JSON(http.StatusCreated, response)
}

// uploadRequestImage stores an optional request image and returns its URL.
func uploadRequestImage(c *gin.Context) {
	if deps.Uploads == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "Image upload is not configured"})
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "image file is required"})
		return
	}

	url, err := deps.Uploads.UploadRequestImage(c.Request.Context(), file)
	if err != nil {
		utils.GetLogger().Error("image upload failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "message": "Failed to store image, please try again"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "image_url": url})
}

// listServiceRequests returns requests for the staff dashboard, optionally
// filtered by status. Filtering by rejected includes legacy cancelled rows.
func listServiceRequests(c *gin.Context) {
	status := models.RequestStatus(c.Query("status"))
	requests, err := deps.Store.ListRequests(c.Request.Context(), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"service_requests": requests,
		"total_count":      len(requests),
	})
}

// getMyServiceRequests returns requests submitted by the calling customer.
func getMyServiceRequests(c *gin.Context) {
	requests, err := deps.Store.ListRequests(c.Request.Context(), "")
	if err != nil {
		respondError(c, err)
		return
	}

	email := c.Query("email")
	mine := make([]models.ServiceRequest, 0, len(requests))
	for _, r := range requests {
		if email == "" || r.CustomerEmail == email {
			mine = append(mine, r)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"service_requests": mine,
		"total_count":      len(mine),
	})
}

func getServiceRequest(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		return
	}
	req, err := deps.Store.GetRequest(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "service_request": req})
}

// acceptServiceRequest schedules the request and moves it to in-process.
// Acceptance proceeds even if a gateway payment has not settled yet.
func acceptServiceRequest(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		return
	}

	var body struct {
		ScheduledAt time.Time `json:"scheduled_at" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	req, err := deps.Lifecycle.Accept(c.Request.Context(), id, body.ScheduledAt)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "service_request": req})
}

// rejectServiceRequest rejects (or cancels after acceptance) a request.
// Refunding is an explicit staff decision carried in the same call; a failed
// refund is reported but never blocks the rejection — the request is flagged
// refund-pending instead.
func rejectServiceRequest(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		return
	}

	var body struct {
		Reason       string `json:"reason" binding:"required"`
		IssueRefund  bool   `json:"issue_refund"`
		RefundAmount *int64 `json:"refund_amount"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	refundStatus := ""
	if body.IssueRefund {
		status, refundErr := deps.Payments.Refund(c.Request.Context(), id, body.RefundAmount, body.Reason)
		switch {
		case refundErr == nil:
			refundStatus = string(status)
		case isRefundBlocking(refundErr):
			respondError(c, refundErr)
			return
		default:
			// Gateway refund failure: rejection still proceeds, the request
			// is already flagged refund-pending by the orchestrator.
			refundStatus = "refund_pending"
			utils.GetLogger().Warn("refund failed during rejection",
				zap.Uint("request_id", id),
				zap.Error(refundErr))
		}
	}

	req, err := deps.Lifecycle.Reject(c.Request.Context(), id, body.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	response := gin.H{"success": true, "service_request": req}
	if refundStatus != "" {
		response["refund_status"] = refundStatus
	}
	c.JSON(http.StatusOK, response)
}

// isRefundBlocking separates caller mistakes (bad amount, nothing to refund)
// from gateway failures that the decoupled rejection tolerates.
func isRefundBlocking(err error) bool {
	return errors.Is(err, payment.ErrInvalidRefundAmount) || errors.Is(err, payment.ErrNotRefundable)
}

func completeServiceRequest(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		return
	}

	var body struct {
		CompletionNotes string `json:"completion_notes"`
	}
	_ = c.ShouldBindJSON(&body)

	req, err := deps.Lifecycle.Complete(c.Request.Context(), id, body.CompletionNotes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "service_request": req})
}

// assignWorker sets or clears the assigned worker without touching status.
func assignWorker(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		return
	}

	var body struct {
		WorkerID *uint `json:"worker_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	if body.WorkerID != nil {
		if _, err := deps.Store.GetWorker(c.Request.Context(), *body.WorkerID); err != nil {
			respondError(c, err)
			return
		}
	}

	req, err := deps.Lifecycle.ReassignWorker(c.Request.Context(), id, body.WorkerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "service_request": req})
}

// workerAcceptAssignment records the assigned worker's acceptance flag.
func workerAcceptAssignment(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		return
	}

	var body struct {
		Accepted bool `json:"accepted"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	req, err := deps.Store.GetRequest(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if req.AssignedWorkerID == nil || *req.AssignedWorkerID != c.GetUint("user_id") {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Access denied"})
		return
	}

	if err := deps.Store.RecordAssignmentAcceptance(c.Request.Context(), *req.AssignedWorkerID, req.ID, body.Accepted); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func parseID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid id"})
		return 0, err
	}
	return uint(id), nil
}
