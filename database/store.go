package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"home-services-server/models"
)

var nowFunc = time.Now

// Store is the gorm-backed request/worker store. It satisfies the
// RequestStore interfaces consumed by the lifecycle manager and the
// payment orchestrator.
type Store struct {
	db *gorm.DB
}

// NewStore wraps a gorm handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// GetRequest loads a service request by id.
func (s *Store) GetRequest(ctx context.Context, id uint) (*models.ServiceRequest, error) {
	var req models.ServiceRequest
	if err := s.db.WithContext(ctx).First(&req, id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// GetRequestByPaymentRef loads the request linked to a gateway reference.
func (s *Store) GetRequestByPaymentRef(ctx context.Context, ref string) (*models.ServiceRequest, error) {
	var req models.ServiceRequest
	if err := s.db.WithContext(ctx).Where("external_payment_ref = ?", ref).First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// SaveRequest persists the full record, creating it when new.
func (s *Store) SaveRequest(ctx context.Context, req *models.ServiceRequest) error {
	return s.db.WithContext(ctx).Save(req).Error
}

// ListRequests returns requests newest first, optionally filtered by status.
// The legacy "cancelled" value is folded into "rejected" on this read path.
func (s *Store) ListRequests(ctx context.Context, status models.RequestStatus) ([]models.ServiceRequest, error) {
	q := s.db.WithContext(ctx).Preload("AssignedWorker").Order("created_at DESC")
	switch status {
	case "":
		// no filter
	case models.RequestStatusRejected, models.RequestStatusCancelled:
		q = q.Where("status IN ?", []models.RequestStatus{
			models.RequestStatusRejected,
			models.RequestStatusCancelled,
		})
	default:
		q = q.Where("status = ?", status)
	}

	var requests []models.ServiceRequest
	if err := q.Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// ListPendingGatewayPayments returns requests whose gateway payment is still
// open, used by the reconciliation job.
func (s *Store) ListPendingGatewayPayments(ctx context.Context) ([]models.ServiceRequest, error) {
	var requests []models.ServiceRequest
	err := s.db.WithContext(ctx).
		Where("payment_method = ? AND payment_status = ? AND external_payment_ref IS NOT NULL",
			models.PaymentMethodGateway, models.PaymentStatusPending).
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}

// ListActiveWorkers returns the active worker pool snapshot for matching.
func (s *Store) ListActiveWorkers(ctx context.Context) ([]models.Worker, error) {
	var workers []models.Worker
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("id").Find(&workers).Error; err != nil {
		return nil, err
	}
	return workers, nil
}

// GetWorker loads a worker by id.
func (s *Store) GetWorker(ctx context.Context, id uint) (*models.Worker, error) {
	var worker models.Worker
	if err := s.db.WithContext(ctx).First(&worker, id).Error; err != nil {
		return nil, err
	}
	return &worker, nil
}

// RecordAssignmentAcceptance flips the worker's acceptance flag for a request.
func (s *Store) RecordAssignmentAcceptance(ctx context.Context, workerID, requestID uint, accepted bool) error {
	assignment := models.WorkerAssignment{
		WorkerID:         workerID,
		ServiceRequestID: requestID,
	}
	err := s.db.WithContext(ctx).
		Where("worker_id = ? AND service_request_id = ?", workerID, requestID).
		FirstOrCreate(&assignment).Error
	if err != nil {
		return fmt.Errorf("load assignment: %w", err)
	}

	assignment.Accepted = accepted
	if accepted {
		now := nowFunc()
		assignment.AcceptedAt = &now
	}
	return s.db.WithContext(ctx).Save(&assignment).Error
}
