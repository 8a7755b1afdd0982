package lifecycle

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"home-services-server/broker"
	"home-services-server/models"
	"home-services-server/utils"
)

// RequestStore is the persistence surface the lifecycle manager needs.
type RequestStore interface {
	GetRequest(ctx context.Context, id uint) (*models.ServiceRequest, error)
	SaveRequest(ctx context.Context, req *models.ServiceRequest) error
}

// Notifier pushes assignment and status notices to connected workers. The
// websocket hub implements it; a nil Notifier drops notices.
type Notifier interface {
	NotifyWorker(workerID uint, eventType string, requestID uint)
}

// Manager owns the service request's primary status state machine. Every
// mutation is validated against the transition table first; an illegal
// transition leaves the record unchanged — no partial writes.
type Manager struct {
	store    RequestStore
	events   broker.Publisher
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewManager creates a lifecycle manager. events and notifier may be nil.
func NewManager(store RequestStore, events broker.Publisher, notifier Notifier, logger *zap.Logger) *Manager {
	return &Manager{
		store:    store,
		events:   events,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Submit persists a newly composed request in the pending state and fires
// the created event. The payment sub-state is set by the orchestrator.
func (m *Manager) Submit(ctx context.Context, req *models.ServiceRequest) error {
	req.Status = models.RequestStatusPending
	if err := m.store.SaveRequest(ctx, req); err != nil {
		return fmt.Errorf("save request: %w", err)
	}

	utils.RequestsCreatedTotal.WithLabelValues(string(req.PaymentMethod)).Inc()
	m.publish(broker.Event{
		EventType: broker.EventTypeRequestCreated,
		RequestID: req.ID,
		Status:    string(req.Status),
	})

	m.logger.Info("service request submitted",
		zap.Uint("request_id", req.ID),
		zap.String("category", req.Category),
		zap.String("payment_method", string(req.PaymentMethod)))
	return nil
}

// Accept schedules the request and moves it pending → in-process.
func (m *Manager) Accept(ctx context.Context, requestID uint, scheduledAt time.Time) (*models.ServiceRequest, error) {
	req, err := m.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("load request %d: %w", requestID, err)
	}

	if err := applyAccept(req, scheduledAt, m.now()); err != nil {
		utils.TransitionsTotal.WithLabelValues(string(ActionAccept), "invalid").Inc()
		return nil, err
	}
	if err := m.store.SaveRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("save request: %w", err)
	}

	utils.TransitionsTotal.WithLabelValues(string(ActionAccept), "ok").Inc()
	m.publish(broker.Event{
		EventType: broker.EventTypeRequestAccepted,
		RequestID: req.ID,
		Status:    string(req.Status),
		WorkerID:  req.AssignedWorkerID,
	})
	m.notifyAssigned(req, broker.EventTypeRequestAccepted)

	m.logger.Info("service request accepted",
		zap.Uint("request_id", req.ID),
		zap.Time("scheduled_at", scheduledAt))
	return req, nil
}

// Reject moves the request to the rejected terminal state. A refundable
// payment is not refunded here; staff issue that separately through the
// payment orchestrator, before or alongside the rejection write.
func (m *Manager) Reject(ctx context.Context, requestID uint, reason string) (*models.ServiceRequest, error) {
	req, err := m.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("load request %d: %w", requestID, err)
	}

	if err := applyReject(req, reason, m.now()); err != nil {
		utils.TransitionsTotal.WithLabelValues(string(ActionReject), "invalid").Inc()
		return nil, err
	}
	if err := m.store.SaveRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("save request: %w", err)
	}

	utils.TransitionsTotal.WithLabelValues(string(ActionReject), "ok").Inc()
	m.publish(broker.Event{
		EventType: broker.EventTypeRequestRejected,
		RequestID: req.ID,
		Status:    string(req.Status),
		Reason:    reason,
	})
	m.notifyAssigned(req, broker.EventTypeRequestRejected)

	m.logger.Info("service request rejected",
		zap.Uint("request_id", req.ID),
		zap.String("reason", reason),
		zap.Bool("refund_pending", req.RefundPending))
	return req, nil
}

// Complete moves the request in-process → completed.
func (m *Manager) Complete(ctx context.Context, requestID uint, notes string) (*models.ServiceRequest, error) {
	req, err := m.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("load request %d: %w", requestID, err)
	}

	if err := applyComplete(req, notes, m.now()); err != nil {
		utils.TransitionsTotal.WithLabelValues(string(ActionComplete), "invalid").Inc()
		return nil, err
	}
	if err := m.store.SaveRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("save request: %w", err)
	}

	utils.TransitionsTotal.WithLabelValues(string(ActionComplete), "ok").Inc()
	m.publish(broker.Event{
		EventType: broker.EventTypeRequestCompleted,
		RequestID: req.ID,
		Status:    string(req.Status),
	})

	m.logger.Info("service request completed", zap.Uint("request_id", req.ID))
	return req, nil
}

// ReassignWorker sets or clears the assigned worker without touching the
// lifecycle status. Legal in any non-terminal state.
func (m *Manager) ReassignWorker(ctx context.Context, requestID uint, workerID *uint) (*models.ServiceRequest, error) {
	req, err := m.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("load request %d: %w", requestID, err)
	}

	previous := req.AssignedWorkerID
	if err := applyReassign(req, workerID, m.now()); err != nil {
		return nil, err
	}
	if err := m.store.SaveRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("save request: %w", err)
	}

	m.publish(broker.Event{
		EventType: broker.EventTypeWorkerAssigned,
		RequestID: req.ID,
		Status:    string(req.Status),
		WorkerID:  workerID,
	})
	if workerID != nil {
		m.notifyWorker(*workerID, broker.EventTypeWorkerAssigned, req.ID)
	} else if previous != nil {
		m.notifyWorker(*previous, broker.EventTypeWorkerAssigned, req.ID)
	}

	return req, nil
}

func (m *Manager) notifyAssigned(req *models.ServiceRequest, eventType string) {
	if req.AssignedWorkerID != nil {
		m.notifyWorker(*req.AssignedWorkerID, eventType, req.ID)
	}
}

func (m *Manager) notifyWorker(workerID uint, eventType string, requestID uint) {
	if m.notifier == nil {
		return
	}
	m.notifier.NotifyWorker(workerID, eventType, requestID)
}

func (m *Manager) publish(event broker.Event) {
	if m.events == nil {
		return
	}
	m.events.Publish(event)
}
