package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"home-services-server/broker"
	"home-services-server/models"
	"home-services-server/utils"
)

var (
	// ErrGatewayUnavailable is returned when the external gateway call still
	// fails after the retry budget is exhausted.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrRefundFailed is returned when the gateway rejects or fails a refund.
	// The request's lifecycle status is never altered by a refund failure.
	ErrRefundFailed = errors.New("refund failed")

	// ErrInvalidRefundAmount is returned when a partial refund exceeds the
	// amount actually paid. No state is mutated.
	ErrInvalidRefundAmount = errors.New("refund amount exceeds amount paid")

	// ErrNotRefundable is returned when the request carries no gateway
	// payment that could be refunded.
	ErrNotRefundable = errors.New("request has no refundable payment")
)

// RequestStore is the persistence surface the orchestrator needs.
type RequestStore interface {
	GetRequest(ctx context.Context, id uint) (*models.ServiceRequest, error)
	GetRequestByPaymentRef(ctx context.Context, ref string) (*models.ServiceRequest, error)
	SaveRequest(ctx context.Context, req *models.ServiceRequest) error
}

// Orchestrator coordinates payment operations against the external gateway
// and reconciles the request's payment sub-state.
type Orchestrator struct {
	store    RequestStore
	gateway  *Gateway
	events   broker.Publisher
	logger   *zap.Logger
	paidHook func(req *models.ServiceRequest)
}

// NewOrchestrator creates a payment orchestrator. events may be nil.
func NewOrchestrator(store RequestStore, gateway *Gateway, events broker.Publisher, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		store:   store,
		gateway: gateway,
		events:  events,
		logger:  logger,
	}
}

// OnPaid registers the hook invoked after a payment settles to paid. The
// lifecycle manager uses it to observe settlement.
func (o *Orchestrator) OnPaid(hook func(req *models.ServiceRequest)) {
	o.paidHook = hook
}

// OpenCashFlow marks the request for on-site cash collection. Submission
// completes immediately without any gateway interaction; settlement is
// manual field collection.
func (o *Orchestrator) OpenCashFlow(ctx context.Context, req *models.ServiceRequest) error {
	req.PaymentMethod = models.PaymentMethodCash
	req.PaymentStatus = models.PaymentStatusPending
	req.UpdatedAt = time.Now()
	if err := o.store.SaveRequest(ctx, req); err != nil {
		return fmt.Errorf("save cash flow: %w", err)
	}
	return nil
}

// IntentHandle is returned from OpenGatewayIntent; the client secret binds an
// in-page card field to the gateway-tracked intent.
type IntentHandle struct {
	ExternalRef  string `json:"external_ref"`
	ClientSecret string `json:"client_secret"`
}

// OpenGatewayIntent creates a gateway-tracked intent for the request's total.
func (o *Orchestrator) OpenGatewayIntent(ctx context.Context, req *models.ServiceRequest) (*IntentHandle, error) {
	utils.PaymentAttemptsTotal.WithLabelValues("intent").Inc()

	intent, err := o.gateway.CreateIntent(ctx, req.TotalAmount, req.ID)
	if err != nil {
		utils.PaymentFailuresTotal.WithLabelValues("intent").Inc()
		o.logger.Error("failed to open gateway intent",
			zap.Uint("request_id", req.ID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	req.PaymentMethod = models.PaymentMethodGateway
	req.PaymentStatus = models.PaymentStatusPending
	req.ExternalPaymentRef = &intent.ID
	req.UpdatedAt = time.Now()
	if err := o.store.SaveRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("save gateway intent: %w", err)
	}

	return &IntentHandle{ExternalRef: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

// Confirm confirms a previously opened intent. Confirming twice is a no-op
// that returns the current state; the paid amount is never double-counted.
func (o *Orchestrator) Confirm(ctx context.Context, intentRef string, requestID uint) (models.PaymentStatus, error) {
	req, err := o.store.GetRequest(ctx, requestID)
	if err != nil {
		return "", fmt.Errorf("load request %d: %w", requestID, err)
	}

	if req.PaymentStatus == models.PaymentStatusPaid {
		return req.PaymentStatus, nil
	}

	utils.PaymentAttemptsTotal.WithLabelValues("confirm").Inc()

	intent, err := o.gateway.ConfirmIntent(ctx, intentRef)
	if err != nil {
		utils.PaymentFailuresTotal.WithLabelValues("confirm").Inc()
		return req.PaymentStatus, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	switch intent.Status {
	case "succeeded":
		o.markPaid(ctx, req, intentRef)
	case "failed":
		req.PaymentStatus = models.PaymentStatusFailed
		req.UpdatedAt = time.Now()
		if err := o.store.SaveRequest(ctx, req); err != nil {
			return req.PaymentStatus, fmt.Errorf("save failed payment: %w", err)
		}
		o.publish(broker.Event{
			EventType: broker.EventTypePaymentFailed,
			RequestID: req.ID,
		})
	}
	return req.PaymentStatus, nil
}

// CheckoutHandle is returned from CreateCheckoutRedirect. The caller must
// redirect the browser context to URL and resume state via SessionID on return.
type CheckoutHandle struct {
	URL       string `json:"url"`
	SessionID string `json:"session_id"`
}

// CreateCheckoutRedirect defers card entry to the gateway's hosted page.
func (o *Orchestrator) CreateCheckoutRedirect(ctx context.Context, req *models.ServiceRequest, returnURL string) (*CheckoutHandle, error) {
	utils.PaymentAttemptsTotal.WithLabelValues("checkout_session").Inc()

	session, err := o.gateway.CreateCheckoutSession(ctx, req.TotalAmount, req.ID, returnURL)
	if err != nil {
		utils.PaymentFailuresTotal.WithLabelValues("checkout_session").Inc()
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	req.PaymentMethod = models.PaymentMethodGateway
	req.PaymentStatus = models.PaymentStatusPending
	req.ExternalPaymentRef = &session.ID
	req.UpdatedAt = time.Now()
	if err := o.store.SaveRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("save checkout session: %w", err)
	}

	return &CheckoutHandle{URL: session.URL, SessionID: session.ID}, nil
}

// Refund issues a full or partial refund against the amount actually paid.
//
// A nil amount refunds the full outstanding captured amount. A partial refund
// that would exceed it is rejected with ErrInvalidRefundAmount and performs
// no mutation. Full refunds (including a partial equal to the remaining
// captured amount) set paymentStatus=refunded; other partials leave it at
// partially_paid. A gateway refund failure surfaces ErrRefundFailed, flags
// the request refund-pending, and never touches the lifecycle status.
func (o *Orchestrator) Refund(ctx context.Context, requestID uint, amount *int64, reason string) (models.PaymentStatus, error) {
	req, err := o.store.GetRequest(ctx, requestID)
	if err != nil {
		return "", fmt.Errorf("load request %d: %w", requestID, err)
	}

	if !req.Refundable() || req.ExternalPaymentRef == nil {
		return req.PaymentStatus, ErrNotRefundable
	}

	outstanding := req.AmountOutstanding()
	refundAmount := outstanding
	if amount != nil {
		refundAmount = *amount
	}
	if refundAmount <= 0 || refundAmount > outstanding {
		return req.PaymentStatus, ErrInvalidRefundAmount
	}

	utils.PaymentAttemptsTotal.WithLabelValues("refund").Inc()

	result, err := o.gateway.CreateRefund(ctx, *req.ExternalPaymentRef, refundAmount, reason)
	if err != nil || result.Status != "succeeded" {
		utils.PaymentFailuresTotal.WithLabelValues("refund").Inc()
		req.RefundPending = true
		req.UpdatedAt = time.Now()
		if saveErr := o.store.SaveRequest(ctx, req); saveErr != nil {
			o.logger.Error("failed to flag refund pending",
				zap.Uint("request_id", req.ID),
				zap.Error(saveErr))
		}
		if err != nil {
			return req.PaymentStatus, fmt.Errorf("%w: %v", ErrRefundFailed, err)
		}
		return req.PaymentStatus, ErrRefundFailed
	}

	req.AmountRefunded += refundAmount
	req.RefundPending = false
	scope := "partial"
	if req.AmountRefunded == req.AmountPaid {
		// A partial refund covering the remaining captured amount is a full
		// refund for status purposes.
		req.PaymentStatus = models.PaymentStatusRefunded
		scope = "full"
	} else {
		req.PaymentStatus = models.PaymentStatusPartiallyPaid
	}
	req.UpdatedAt = time.Now()
	if err := o.store.SaveRequest(ctx, req); err != nil {
		return req.PaymentStatus, fmt.Errorf("save refund: %w", err)
	}

	utils.RefundsTotal.WithLabelValues(scope).Inc()
	o.publish(broker.Event{
		EventType:   broker.EventTypePaymentRefunded,
		RequestID:   req.ID,
		Amount:      refundAmount,
		ExternalRef: result.ID,
		Reason:      reason,
	})

	o.logger.Info("refund issued",
		zap.Uint("request_id", req.ID),
		zap.Int64("amount", refundAmount),
		zap.String("scope", scope))

	return req.PaymentStatus, nil
}

// GatewayEvent is the webhook-equivalent callback payload from the gateway.
type GatewayEvent struct {
	Type string `json:"type"` // payment_intent.succeeded, payment_intent.payment_failed, checkout.session.completed
	Ref  string `json:"ref"`  // intent or checkout session id
}

// HandleGatewayEvent resolves an open payment operation from a gateway
// callback, settling the linked request's payment sub-state.
func (o *Orchestrator) HandleGatewayEvent(ctx context.Context, event GatewayEvent) error {
	req, err := o.store.GetRequestByPaymentRef(ctx, event.Ref)
	if err != nil {
		return fmt.Errorf("no request for payment ref %q: %w", event.Ref, err)
	}

	switch event.Type {
	case "payment_intent.succeeded", "checkout.session.completed":
		if req.PaymentStatus == models.PaymentStatusPaid {
			return nil
		}
		o.markPaid(ctx, req, event.Ref)
	case "payment_intent.payment_failed":
		req.PaymentStatus = models.PaymentStatusFailed
		req.UpdatedAt = time.Now()
		if err := o.store.SaveRequest(ctx, req); err != nil {
			return fmt.Errorf("save failed payment: %w", err)
		}
		o.publish(broker.Event{
			EventType: broker.EventTypePaymentFailed,
			RequestID: req.ID,
		})
	default:
		o.logger.Warn("ignoring unknown gateway event", zap.String("type", event.Type))
	}
	return nil
}

// ReconcileRequest re-polls the gateway for a request whose payment is still
// open and applies the settled outcome, if any. Used by the background
// reconciliation job for webhooks that never arrived.
func (o *Orchestrator) ReconcileRequest(ctx context.Context, req *models.ServiceRequest) error {
	if req.PaymentMethod != models.PaymentMethodGateway ||
		req.PaymentStatus != models.PaymentStatusPending ||
		req.ExternalPaymentRef == nil {
		return nil
	}

	intent, err := o.gateway.RetrieveIntent(ctx, *req.ExternalPaymentRef)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	switch intent.Status {
	case "succeeded":
		o.markPaid(ctx, req, *req.ExternalPaymentRef)
	case "failed":
		req.PaymentStatus = models.PaymentStatusFailed
		req.UpdatedAt = time.Now()
		if err := o.store.SaveRequest(ctx, req); err != nil {
			return fmt.Errorf("save failed payment: %w", err)
		}
		o.publish(broker.Event{
			EventType: broker.EventTypePaymentFailed,
			RequestID: req.ID,
		})
	}
	return nil
}

func (o *Orchestrator) markPaid(ctx context.Context, req *models.ServiceRequest, ref string) {
	req.PaymentStatus = models.PaymentStatusPaid
	req.AmountPaid = req.TotalAmount
	req.ExternalPaymentRef = &ref
	req.UpdatedAt = time.Now()
	if err := o.store.SaveRequest(ctx, req); err != nil {
		o.logger.Error("failed to save paid state",
			zap.Uint("request_id", req.ID),
			zap.Error(err))
		return
	}

	o.publish(broker.Event{
		EventType:   broker.EventTypePaymentSucceeded,
		RequestID:   req.ID,
		Amount:      req.AmountPaid,
		ExternalRef: ref,
	})

	if o.paidHook != nil {
		o.paidHook(req)
	}

	o.logger.Info("payment settled",
		zap.Uint("request_id", req.ID),
		zap.Int64("amount", req.AmountPaid))
}

func (o *Orchestrator) publish(event broker.Event) {
	if o.events == nil {
		return
	}
	o.events.Publish(event)
}
