package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"home-services-server/models"
	"home-services-server/payment"
)

// PendingPaymentLister lists requests whose gateway payment is still open.
type PendingPaymentLister interface {
	ListPendingGatewayPayments(ctx context.Context) ([]models.ServiceRequest, error)
}

// ReconcileJob periodically re-polls the gateway for requests stuck in
// paymentStatus=pending with an open external reference, covering webhook
// callbacks that were lost.
type ReconcileJob struct {
	store    PendingPaymentLister
	payments *payment.Orchestrator
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
}

// NewReconcileJob creates the job with a polling interval.
func NewReconcileJob(store PendingPaymentLister, payments *payment.Orchestrator, interval time.Duration, logger *zap.Logger) *ReconcileJob {
	return &ReconcileJob{
		store:    store,
		payments: payments,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start begins the reconciliation loop.
func (j *ReconcileJob) Start() {
	go j.run()
	j.logger.Info("payment reconciliation job started",
		zap.Duration("interval", j.interval))
}

// Stop stops the loop.
func (j *ReconcileJob) Stop() {
	close(j.stopChan)
	j.logger.Info("payment reconciliation job stopped")
}

func (j *ReconcileJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.reconcileOnce()
		case <-j.stopChan:
			return
		}
	}
}

func (j *ReconcileJob) reconcileOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	requests, err := j.store.ListPendingGatewayPayments(ctx)
	if err != nil {
		j.logger.Error("failed to list pending gateway payments", zap.Error(err))
		return
	}
	if len(requests) == 0 {
		return
	}

	j.logger.Debug("reconciling pending gateway payments",
		zap.Int("count", len(requests)))

	for i := range requests {
		if err := j.payments.ReconcileRequest(ctx, &requests[i]); err != nil {
			j.logger.Warn("failed to reconcile payment",
				zap.Uint("request_id", requests[i].ID),
				zap.Error(err))
		}
	}
}
