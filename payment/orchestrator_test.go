package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"home-services-server/broker"
	"home-services-server/httpclient"
	"home-services-server/models"
)

// fakeStore keeps requests in memory and returns copies on load, like a real
// row scan would.
type fakeStore struct {
	requests map[uint]*models.ServiceRequest
	nextID   uint
}

func newFakeStore() *fakeStore {
	return &fakeStore{requests: make(map[uint]*models.ServiceRequest)}
}

func (s *fakeStore) GetRequest(_ context.Context, id uint) (*models.ServiceRequest, error) {
	req, ok := s.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *req
	return &clone, nil
}

func (s *fakeStore) GetRequestByPaymentRef(_ context.Context, ref string) (*models.ServiceRequest, error) {
	for _, req := range s.requests {
		if req.ExternalPaymentRef != nil && *req.ExternalPaymentRef == ref {
			clone := *req
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *fakeStore) SaveRequest(_ context.Context, req *models.ServiceRequest) error {
	if req.ID == 0 {
		s.nextID++
		req.ID = s.nextID
	}
	clone := *req
	s.requests[req.ID] = &clone
	return nil
}

func (s *fakeStore) mustGet(t *testing.T, id uint) *models.ServiceRequest {
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

func testGateway(t *testing.T, handler http.Handler) *Gateway {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := httpclient.New(server.URL, zap.NewNop(),
		httpclient.WithMaxRetries(0),
		httpclient.WithBaseInterval(time.Millisecond))
	return NewGateway(client)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func seedPaidRequest(store *fakeStore, paid int64) uint {
	ref := "pi_42"
	req := &models.ServiceRequest{
		PaymentMethod:      models.PaymentMethodGateway,
		PaymentStatus:      models.PaymentStatusPaid,
		TotalAmount:        paid,
		AmountPaid:         paid,
		ExternalPaymentRef: &ref,
	}
	store.SaveRequest(context.Background(), req)
	return req.ID
}

func TestOpenCashFlow(t *testing.T) {
	store := newFakeStore()
	o := NewOrchestrator(store, nil, nil, zap.NewNop())

	req := &models.ServiceRequest{TotalAmount: 5000}
	require.NoError(t, o.OpenCashFlow(context.Background(), req))

	saved := store.mustGet(t, req.ID)
	assert.Equal(t, models.PaymentMethodCash, saved.PaymentMethod)
	assert.Equal(t, models.PaymentStatusPending, saved.PaymentStatus)
	assert.Nil(t, saved.ExternalPaymentRef)
}

func TestOpenGatewayIntent(t *testing.T) {
	gateway := testGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payment_intents", r.URL.Path)
		writeJSON(w, Intent{ID: "pi_100", ClientSecret: "pi_100_secret", Status: "requires_confirmation"})
	}))

	store := newFakeStore()
	o := NewOrchestrator(store, gateway, nil, zap.NewNop())

	req := &models.ServiceRequest{TotalAmount: 10600}
	store.SaveRequest(context.Background(), req)

	handle, err := o.OpenGatewayIntent(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "pi_100", handle.ExternalRef)
	assert.Equal(t, "pi_100_secret", handle.ClientSecret)

	saved := store.mustGet(t, req.ID)
	assert.Equal(t, models.PaymentMethodGateway, saved.PaymentMethod)
	assert.Equal(t, models.PaymentStatusPending, saved.PaymentStatus)
	require.NotNil(t, saved.ExternalPaymentRef)
	assert.Equal(t, "pi_100", *saved.ExternalPaymentRef)
}

func TestOpenGatewayIntentUnavailable(t *testing.T) {
	gateway := testGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	store := newFakeStore()
	o := NewOrchestrator(store, gateway, nil, zap.NewNop())

	req := &models.ServiceRequest{TotalAmount: 10600}
	store.SaveRequest(context.Background(), req)

	_, err := o.OpenGatewayIntent(context.Background(), req)
	assert.ErrorIs(t, err, ErrGatewayUnavailable)

	saved := store.mustGet(t, req.ID)
	assert.Nil(t, saved.ExternalPaymentRef)
}

func TestConfirmSettlesAndIsIdempotent(t *testing.T) {
	var confirms int32
	gateway := testGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payment_intents/pi_7/confirm", r.URL.Path)
		atomic.AddInt32(&confirms, 1)
		writeJSON(w, Intent{ID: "pi_7", Status: "succeeded"})
	}))

	store := newFakeStore()
	events := &capturePublisher{}
	o := NewOrchestrator(store, gateway, events, zap.NewNop())

	var hookCalls int
	o.OnPaid(func(req *models.ServiceRequest) { hookCalls++ })

	ref := "pi_7"
	req := &models.ServiceRequest{
		PaymentMethod:      models.PaymentMethodGateway,
		PaymentStatus:      models.PaymentStatusPending,
		TotalAmount:        10600,
		ExternalPaymentRef: &ref,
	}
	store.SaveRequest(context.Background(), req)

	status, err := o.Confirm(context.Background(), "pi_7", req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, status)

	saved := store.mustGet(t, req.ID)
	assert.Equal(t, int64(10600), saved.AmountPaid)
	assert.Equal(t, 1, hookCalls)
	assert.Equal(t, []string{broker.EventTypePaymentSucceeded}, events.types())

	// confirming again touches neither the gateway nor the paid amount
	status, err = o.Confirm(context.Background(), "pi_7", req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&confirms))
	assert.Equal(t, int64(10600), store.mustGet(t, req.ID).AmountPaid)
	assert.Equal(t, 1, hookCalls)
}

func TestConfirmFailedIntent(t *testing.T) {
	gateway := testGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, Intent{ID: "pi_8", Status: "failed"})
	}))

	store := newFakeStore()
	events := &capturePublisher{}
	o := NewOrchestrator(store, gateway, events, zap.NewNop())

	ref := "pi_8"
	req := &models.ServiceRequest{
		PaymentMethod:      models.PaymentMethodGateway,
		PaymentStatus:      models.PaymentStatusPending,
		TotalAmount:        10600,
		ExternalPaymentRef: &ref,
	}
	store.SaveRequest(context.Background(), req)

	status, err := o.Confirm(context.Background(), "pi_8", req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, status)
	assert.Equal(t, int64(0), store.mustGet(t, req.ID).AmountPaid)
	assert.Equal(t, []string{broker.EventTypePaymentFailed}, events.types())
}

func TestCreateCheckoutRedirect(t *testing.T) {
	gateway := testGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://app.example.com/return", body["return_url"])
		writeJSON(w, CheckoutSession{ID: "cs_1", URL: "https://gateway.example.com/c/cs_1", Status: "open"})
	}))

	store := newFakeStore()
	o := NewOrchestrator(store, gateway, nil, zap.NewNop())

	req := &models.ServiceRequest{TotalAmount: 10600}
	store.SaveRequest(context.Background(), req)

	handle, err := o.CreateCheckoutRedirect(context.Background(), req, "https://app.example.com/return")
	require.NoError(t, err)
	assert.Equal(t, "cs_1", handle.SessionID)
	assert.Equal(t, "https://gateway.example.com/c/cs_1", handle.URL)

	saved := store.mustGet(t, req.ID)
	require.NotNil(t, saved.ExternalPaymentRef)
	assert.Equal(t, "cs_1", *saved.ExternalPaymentRef)
}

func TestRefundFull(t *testing.T) {
	gateway := testGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/refunds", r.URL.Path)
		writeJSON(w, RefundResult{ID: "re_1", Status: "succeeded", Amount: 10600})
	}))

	store := newFakeStore()
	events := &capturePublisher{}
	o := NewOrchestrator(store, gateway, events, zap.NewNop())
	id := seedPaidRequest(store, 10600)

	status, err := o.Refund(context.Background(), id, nil, "customer cancelled")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, status)

	saved := store.mustGet(t, id)
	assert.Equal(t, int64(10600), saved.AmountRefunded)
	assert.False(t, saved.RefundPending)
	assert.Equal(t, []string{broker.EventTypePaymentRefunded}, events.types())
}

func TestRefundPartialThenRemainder(t *testing.T) {
	gateway := testGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, RefundResult{ID: "re_2", Status: "succeeded", Amount: int64(body["amount"].(float64))})
	}))

	store := newFakeStore()
	o := NewOrchestrator(store, gateway, nil, zap.NewNop())
	id := seedPaidRequest(store, 10000)

	part := int64(4000)
	status, err := o.Refund(context.Background(), id, &part, "")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPartiallyPaid, status)
	assert.Equal(t, int64(4000), store.mustGet(t, id).AmountRefunded)

	// a partial refund equal to what is left behaves as a full refund
	rest := int64(6000)
	status, err = o.Refund(context.Background(), id, &rest, "")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, status)
	assert.Equal(t, int64(10000), store.mustGet(t, id).AmountRefunded)
}

func TestRefundRejectsExcessiveAmount(t *testing.T) {
	var gatewayCalls int32
	gateway := testGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&gatewayCalls, 1)
		writeJSON(w, RefundResult{Status: "succeeded"})
	}))

	store := newFakeStore()
	o := NewOrchestrator(store, gateway, nil, zap.NewNop())
	id := seedPaidRequest(store, 10000)
	before := store.mustGet(t, id)

	excess := int64(10001)
	_, err := o.Refund(context.Background(), id, &excess, "")
	assert.ErrorIs(t, err, ErrInvalidRefundAmount)

	zero := int64(0)
	_, err = o.Refund(context.Background(), id, &zero, "")
	assert.ErrorIs(t, err, ErrInvalidRefundAmount)

	assert.Equal(t, int32(0), atomic.LoadInt32(&gatewayCalls), "gateway must not be reached")
	assert.Equal(t, before, store.mustGet(t, id), "no state may change")
}

func TestRefundNotRefundable(t *testing.T) {
	store := newFakeStore()
	o := NewOrchestrator(store, nil, nil, zap.NewNop())

	req := &models.ServiceRequest{
		PaymentMethod: models.PaymentMethodCash,
		PaymentStatus: models.PaymentStatusPending,
	}
	store.SaveRequest(context.Background(), req)

	_, err := o.Refund(context.Background(), req.ID, nil, "")
	assert.ErrorIs(t, err, ErrNotRefundable)
}

func TestRefundGatewayFailureFlagsPending(t *testing.T) {
	gateway := testGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, RefundResult{ID: "re_3", Status: "failed"})
	}))

	store := newFakeStore()
	o := NewOrchestrator(store, gateway, nil, zap.NewNop())
	id := seedPaidRequest(store, 10000)

	_, err := o.Refund(context.Background(), id, nil, "")
	assert.ErrorIs(t, err, ErrRefundFailed)

	saved := store.mustGet(t, id)
	assert.True(t, saved.RefundPending)
	assert.Equal(t, models.PaymentStatusPaid, saved.PaymentStatus, "payment state stays as it was")
	assert.Equal(t, int64(0), saved.AmountRefunded)
}

func TestHandleGatewayEvent(t *testing.T) {
	store := newFakeStore()
	events := &capturePublisher{}
	o := NewOrchestrator(store, nil, events, zap.NewNop())

	ref := "cs_9"
	req := &models.ServiceRequest{
		PaymentMethod:      models.PaymentMethodGateway,
		PaymentStatus:      models.PaymentStatusPending,
		TotalAmount:        7420,
		ExternalPaymentRef: &ref,
	}
	store.SaveRequest(context.Background(), req)

	err := o.HandleGatewayEvent(context.Background(), GatewayEvent{Type: "checkout.session.completed", Ref: "cs_9"})
	require.NoError(t, err)

	saved := store.mustGet(t, req.ID)
	assert.Equal(t, models.PaymentStatusPaid, saved.PaymentStatus)
	assert.Equal(t, int64(7420), saved.AmountPaid)

	// a duplicate delivery is absorbed without another event
	require.NoError(t, o.HandleGatewayEvent(context.Background(), GatewayEvent{Type: "checkout.session.completed", Ref: "cs_9"}))
	assert.Equal(t, []string{broker.EventTypePaymentSucceeded}, events.types())

	err = o.HandleGatewayEvent(context.Background(), GatewayEvent{Type: "payment_intent.succeeded", Ref: "unknown_ref"})
	assert.Error(t, err)
}

func TestReconcileRequestAppliesSettledIntent(t *testing.T) {
	gateway := testGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payment_intents/pi_55", r.URL.Path)
		require.Equal(t, http.MethodGet, r.Method)
		writeJSON(w, Intent{ID: "pi_55", Status: "succeeded"})
	}))

	store := newFakeStore()
	o := NewOrchestrator(store, gateway, nil, zap.NewNop())

	ref := "pi_55"
	req := &models.ServiceRequest{
		PaymentMethod:      models.PaymentMethodGateway,
		PaymentStatus:      models.PaymentStatusPending,
		TotalAmount:        3100,
		ExternalPaymentRef: &ref,
	}
	store.SaveRequest(context.Background(), req)

	require.NoError(t, o.ReconcileRequest(context.Background(), req))
	saved := store.mustGet(t, req.ID)
	assert.Equal(t, models.PaymentStatusPaid, saved.PaymentStatus)
	assert.Equal(t, int64(3100), saved.AmountPaid)
}

func TestReconcileRequestSkipsSettledAndCash(t *testing.T) {
	store := newFakeStore()
	o := NewOrchestrator(store, nil, nil, zap.NewNop())

	cash := &models.ServiceRequest{PaymentMethod: models.PaymentMethodCash, PaymentStatus: models.PaymentStatusPending}
	assert.NoError(t, o.ReconcileRequest(context.Background(), cash))

	id := seedPaidRequest(store, 100)
	paid := store.mustGet(t, id)
	assert.NoError(t, o.ReconcileRequest(context.Background(), paid))
}
