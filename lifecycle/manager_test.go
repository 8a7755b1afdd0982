package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"home-services-server/broker"
	"home-services-server/models"
	"home-services-server/payment"
)

// memStore loads copies, like a real row scan, so a rejected mutation on the
// loaded record never leaks back into storage.
type memStore struct {
	requests map[uint]*models.ServiceRequest
	nextID   uint
}

func newMemStore() *memStore {
	return &memStore{requests: make(map[uint]*models.ServiceRequest)}
}

func (s *memStore) GetRequest(_ context.Context, id uint) (*models.ServiceRequest, error) {
	req, ok := s.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *req
	return &clone, nil
}

func (s *memStore) GetRequestByPaymentRef(_ context.Context, ref string) (*models.ServiceRequest, error) {
	for _, req := range s.requests {
		if req.ExternalPaymentRef != nil && *req.ExternalPaymentRef == ref {
			clone := *req
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memStore) SaveRequest(_ context.Context, req *models.ServiceRequest) error {
	if req.ID == 0 {
		s.nextID++
		req.ID = s.nextID
	}
	clone := *req
	s.requests[req.ID] = &clone
	return nil
}

func (s *memStore) seed(req models.ServiceRequest) uint {
	s.SaveRequest(context.Background(), &req)
	return req.ID
}

func (s *memStore) mustGet(t *testing.T, id uint) *models.ServiceRequest {
	t.Helper()
	req, err := s.GetRequest(context.Background(), id)
	require.NoError(t, err)
	return req
}

type capturePublisher struct {
	events []broker.Event
}

func (p *capturePublisher) Publish(event broker.Event) { p.events = append(p.events, event) }
func (p *capturePublisher) Close() error               { return nil }

func (p *capturePublisher) types() []string {
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType)
	}
	return out
}

type notice struct {
	workerID  uint
	eventType string
	requestID uint
}

type captureNotifier struct {
	notices []notice
}

func (n *captureNotifier) NotifyWorker(workerID uint, eventType string, requestID uint) {
	n.notices = append(n.notices, notice{workerID, eventType, requestID})
}

func newTestManager(store *memStore) (*Manager, *capturePublisher, *captureNotifier) {
	events := &capturePublisher{}
	notifier := &captureNotifier{}
	m := NewManager(store, events, notifier, zap.NewNop())
	m.now = func() time.Time {
		return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	}
	return m, events, notifier
}

func TestManagerSubmit(t *testing.T) {
	store := newMemStore()
	m, events, _ := newTestManager(store)

	req := &models.ServiceRequest{
		Category:      "plumbing",
		PaymentMethod: models.PaymentMethodCash,
	}
	require.NoError(t, m.Submit(context.Background(), req))
	assert.NotZero(t, req.ID)
	assert.Equal(t, models.RequestStatusPending, store.mustGet(t, req.ID).Status)
	assert.Equal(t, []string{broker.EventTypeRequestCreated}, events.types())
}

func TestManagerAccept(t *testing.T) {
	store := newMemStore()
	m, events, notifier := newTestManager(store)

	workerID := uint(3)
	id := store.seed(models.ServiceRequest{
		Status:           models.RequestStatusPending,
		AssignedWorkerID: &workerID,
	})

	when := time.Date(2026, 3, 12, 14, 0, 0, 0, time.UTC)
	req, err := m.Accept(context.Background(), id, when)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusInProcess, req.Status)

	saved := store.mustGet(t, id)
	require.NotNil(t, saved.ScheduledAt)
	assert.Equal(t, when, *saved.ScheduledAt)

	assert.Equal(t, []string{broker.EventTypeRequestAccepted}, events.types())
	require.Len(t, notifier.notices, 1)
	assert.Equal(t, notice{workerID, broker.EventTypeRequestAccepted, id}, notifier.notices[0])
}

func TestManagerAcceptPastScheduleRejected(t *testing.T) {
	store := newMemStore()
	m, events, _ := newTestManager(store)

	id := store.seed(models.ServiceRequest{Status: models.RequestStatusPending})

	past := time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC)
	_, err := m.Accept(context.Background(), id, past)
	assert.ErrorIs(t, err, ErrScheduleInPast)
	assert.Equal(t, models.RequestStatusPending, store.mustGet(t, id).Status)
	assert.Empty(t, events.types())
}

func TestManagerRejectFromPendingAndInProcess(t *testing.T) {
	store := newMemStore()
	m, _, _ := newTestManager(store)

	pending := store.seed(models.ServiceRequest{Status: models.RequestStatusPending})
	req, err := m.Reject(context.Background(), pending, "no coverage")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusRejected, req.Status)

	inProcess := store.seed(models.ServiceRequest{Status: models.RequestStatusInProcess})
	req, err = m.Reject(context.Background(), inProcess, "customer cancelled")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusRejected, req.Status)
	require.NotNil(t, req.RejectionReason)
	assert.Equal(t, "customer cancelled", *req.RejectionReason)
}

func TestManagerRejectWithoutReason(t *testing.T) {
	store := newMemStore()
	m, events, _ := newTestManager(store)

	id := store.seed(models.ServiceRequest{Status: models.RequestStatusPending})
	_, err := m.Reject(context.Background(), id, "  ")
	assert.ErrorIs(t, err, ErrMissingReason)
	assert.Equal(t, models.RequestStatusPending, store.mustGet(t, id).Status)
	assert.Empty(t, events.types())
}

func TestManagerIllegalTransitionLeavesStoreUntouched(t *testing.T) {
	store := newMemStore()
	m, events, _ := newTestManager(store)

	id := store.seed(models.ServiceRequest{Status: models.RequestStatusCompleted})
	before := store.mustGet(t, id)

	_, err := m.Accept(context.Background(), id, time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = m.Reject(context.Background(), id, "too late")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = m.Complete(context.Background(), id, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	assert.Equal(t, before, store.mustGet(t, id))
	assert.Empty(t, events.types())
}

func TestManagerComplete(t *testing.T) {
	store := newMemStore()
	m, events, _ := newTestManager(store)

	id := store.seed(models.ServiceRequest{Status: models.RequestStatusInProcess})
	req, err := m.Complete(context.Background(), id, "swapped the water heater")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCompleted, req.Status)
	require.NotNil(t, req.CompletionNotes)
	assert.Equal(t, "swapped the water heater", *req.CompletionNotes)
	assert.Equal(t, []string{broker.EventTypeRequestCompleted}, events.types())
}

func TestManagerReassignWorker(t *testing.T) {
	store := newMemStore()
	m, _, notifier := newTestManager(store)

	id := store.seed(models.ServiceRequest{Status: models.RequestStatusPending})

	workerID := uint(9)
	req, err := m.ReassignWorker(context.Background(), id, &workerID)
	require.NoError(t, err)
	require.NotNil(t, req.AssignedWorkerID)
	assert.Equal(t, workerID, *req.AssignedWorkerID)
	assert.Equal(t, models.RequestStatusPending, req.Status)

	// clearing the assignment pings the worker who had it
	req, err = m.ReassignWorker(context.Background(), id, nil)
	require.NoError(t, err)
	assert.Nil(t, req.AssignedWorkerID)

	require.Len(t, notifier.notices, 2)
	assert.Equal(t, workerID, notifier.notices[0].workerID)
	assert.Equal(t, workerID, notifier.notices[1].workerID)

	terminal := store.seed(models.ServiceRequest{Status: models.RequestStatusRejected})
	_, err = m.ReassignWorker(context.Background(), terminal, &workerID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

// A cash booking runs the full happy path with no gateway involvement: the
// payment sub-state stays pending for on-site collection while the lifecycle
// reaches completed.
func TestCashRequestEndToEnd(t *testing.T) {
	store := newMemStore()
	m, events, _ := newTestManager(store)
	payments := payment.NewOrchestrator(store, nil, nil, zap.NewNop())

	req := &models.ServiceRequest{
		Category:      "plumbing",
		PaymentMethod: models.PaymentMethodCash,
		Amount:        10000,
		Tax:           600,
		TotalAmount:   10600,
	}
	require.NoError(t, m.Submit(context.Background(), req))
	require.NoError(t, payments.OpenCashFlow(context.Background(), req))

	when := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
	_, err := m.Accept(context.Background(), req.ID, when)
	require.NoError(t, err)

	final, err := m.Complete(context.Background(), req.ID, "")
	require.NoError(t, err)

	assert.Equal(t, models.RequestStatusCompleted, final.Status)
	assert.Equal(t, models.PaymentMethodCash, final.PaymentMethod)
	assert.Equal(t, models.PaymentStatusPending, final.PaymentStatus, "cash settles in the field, not here")
	assert.Equal(t, int64(0), final.AmountPaid)

	assert.Equal(t, []string{
		broker.EventTypeRequestCreated,
		broker.EventTypeRequestAccepted,
		broker.EventTypeRequestCompleted,
	}, events.types())
}
