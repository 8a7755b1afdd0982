package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"home-services-server/httpclient"
)

// Gateway is the external card-payment collaborator. It speaks a
// payment-intent / hosted-checkout / refund API over the resilient
// remote-call client, so transient gateway hiccups are retried with the
// shared backoff policy.
type Gateway struct {
	client *httpclient.Client
}

// NewGateway wraps a remote-call client pointed at the gateway base URL.
func NewGateway(client *httpclient.Client) *Gateway {
	return &Gateway{client: client}
}

// Intent is a gateway-tracked payment intent.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"` // requires_confirmation, succeeded, failed
	Amount       int64  `json:"amount"`
}

// CheckoutSession is a hosted-checkout session created by the gateway.
type CheckoutSession struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Status string `json:"status"`
}

// RefundResult is the gateway's answer to a refund instruction.
type RefundResult struct {
	ID     string `json:"id"`
	Status string `json:"status"` // succeeded, failed
	Amount int64  `json:"amount"`
}

// CreateIntent opens an intent for the given minor-unit amount.
func (g *Gateway) CreateIntent(ctx context.Context, amount int64, requestID uint) (*Intent, error) {
	body := map[string]interface{}{
		"amount":   amount,
		"currency": "usd",
		"metadata": map[string]string{"service_request_id": fmt.Sprintf("%d", requestID)},
	}
	data, err := g.client.Call(ctx, http.MethodPost, "/v1/payment_intents", body)
	if err != nil {
		return nil, err
	}
	var intent Intent
	if err := json.Unmarshal(data, &intent); err != nil {
		return nil, fmt.Errorf("decode intent response: %w", err)
	}
	return &intent, nil
}

// ConfirmIntent confirms a previously opened intent.
func (g *Gateway) ConfirmIntent(ctx context.Context, intentRef string) (*Intent, error) {
	data, err := g.client.Call(ctx, http.MethodPost, "/v1/payment_intents/"+intentRef+"/confirm", nil)
	if err != nil {
		return nil, err
	}
	var intent Intent
	if err := json.Unmarshal(data, &intent); err != nil {
		return nil, fmt.Errorf("decode confirm response: %w", err)
	}
	return &intent, nil
}

// RetrieveIntent fetches the current state of an intent, used by the
// reconciliation job for requests stuck in pending.
func (g *Gateway) RetrieveIntent(ctx context.Context, intentRef string) (*Intent, error) {
	data, err := g.client.Call(ctx, http.MethodGet, "/v1/payment_intents/"+intentRef, nil)
	if err != nil {
		return nil, err
	}
	var intent Intent
	if err := json.Unmarshal(data, &intent); err != nil {
		return nil, fmt.Errorf("decode intent response: %w", err)
	}
	return &intent, nil
}

// CreateCheckoutSession defers card entry to the gateway's hosted page.
// The caller must redirect the browser context and resume via the session id.
func (g *Gateway) CreateCheckoutSession(ctx context.Context, amount int64, requestID uint, returnURL string) (*CheckoutSession, error) {
	body := map[string]interface{}{
		"amount":     amount,
		"currency":   "usd",
		"return_url": returnURL,
		"metadata":   map[string]string{"service_request_id": fmt.Sprintf("%d", requestID)},
	}
	data, err := g.client.Call(ctx, http.MethodPost, "/v1/checkout/sessions", body)
	if err != nil {
		return nil, err
	}
	var session CheckoutSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode checkout session response: %w", err)
	}
	return &session, nil
}

// CreateRefund refunds amount (minor units) against a prior succeeded charge.
func (g *Gateway) CreateRefund(ctx context.Context, chargeRef string, amount int64, reason string) (*RefundResult, error) {
	body := map[string]interface{}{
		"payment_intent": chargeRef,
		"amount":         amount,
	}
	if reason != "" {
		body["reason"] = reason
	}
	data, err := g.client.Call(ctx, http.MethodPost, "/v1/refunds", body)
	if err != nil {
		return nil, err
	}
	var result RefundResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode refund response: %w", err)
	}
	return &result, nil
}
