package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"home-services-server/matching"
	"home-services-server/models"
	"home-services-server/payment"
	"home-services-server/utils"
)

// Step is one stage of the four-step submission wizard. Transitions are
// purely forward/backward with no skipping; moving forward validates the
// current step, moving back never re-validates.
type Step int

const (
	StepDetails  Step = iota + 1 // service + description (+ optional image)
	StepSchedule                 // date, time slot, contact
	StepAddress                  // address, pro assignment, payment method
	StepPayment                  // cash submit or gateway flow
)

func (s Step) String() string {
	switch s {
	case StepDetails:
		return "details"
	case StepSchedule:
		return "schedule"
	case StepAddress:
		return "address"
	case StepPayment:
		return "payment"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// ValidationError is a field-level input error. It is recovered locally and
// never reaches the lifecycle manager.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ErrNotAtPaymentStep is returned when submission is attempted early.
var ErrNotAtPaymentStep = errors.New("submission requires the payment step")

// timeSlots are the labeled scheduling slots offered to customers.
var timeSlots = map[string]bool{
	"morning":   true,
	"afternoon": true,
	"evening":   true,
}

// Draft is the single in-memory record the wizard fills in step by step.
type Draft struct {
	// Step 1
	Category    string
	Description string
	ImageURL    string

	// Step 2
	PreferredDate *time.Time
	PreferredTime string
	CustomerName  string
	CustomerPhone string
	CustomerEmail string

	// Step 3
	Address          string
	City             string
	State            string
	PostalCode       string
	PaymentMethod    models.PaymentMethod
	SelectedWorkerID *uint

	// Pricing, quoted from the selected category.
	Amount int64
}

// Submitter persists the composed request in the pending state.
type Submitter interface {
	Submit(ctx context.Context, req *models.ServiceRequest) error
}

// PaymentOpener opens the payment operation that matches the chosen method.
type PaymentOpener interface {
	OpenCashFlow(ctx context.Context, req *models.ServiceRequest) error
	OpenGatewayIntent(ctx context.Context, req *models.ServiceRequest) (*payment.IntentHandle, error)
	CreateCheckoutRedirect(ctx context.Context, req *models.ServiceRequest, returnURL string) (*payment.CheckoutHandle, error)
}

// Flow drives the four-step submission wizard over one draft.
type Flow struct {
	step      Step
	draft     Draft
	engine    *matching.Engine
	submitter Submitter
	payments  PaymentOpener
	taxRate   float64
	matches   []models.Worker
}

// NewFlow starts a wizard at the details step.
func NewFlow(engine *matching.Engine, submitter Submitter, payments PaymentOpener, taxRate float64) *Flow {
	return &Flow{
		step:      StepDetails,
		engine:    engine,
		submitter: submitter,
		payments:  payments,
		taxRate:   taxRate,
	}
}

// Step returns the wizard's current step.
func (f *Flow) Step() Step {
	return f.step
}

// Draft exposes the in-memory draft for binding form input.
func (f *Flow) Draft() *Draft {
	return &f.draft
}

// Matches returns the workers from the last refresh.
func (f *Flow) Matches() []models.Worker {
	return f.matches
}

// Next validates the current step and advances one step forward. A failed
// validation blocks the step index from advancing.
func (f *Flow) Next() error {
	if f.step >= StepPayment {
		return fmt.Errorf("already at final step")
	}
	if err := f.validateStep(f.step); err != nil {
		return err
	}
	f.step++
	return nil
}

// Back moves one step backward without re-validating anything.
func (f *Flow) Back() {
	if f.step > StepDetails {
		f.step--
	}
}

// RefreshMatches re-runs the matching engine against a fresh worker pool
// snapshot. When a previously selected worker is no longer present in the
// filtered result, the selection is cleared.
func (f *Flow) RefreshMatches(pool []models.Worker) []models.Worker {
	f.matches = f.engine.Match(
		matching.Coverage{Zip: f.draft.PostalCode, City: f.draft.City},
		f.draft.Category,
		pool,
	)

	if f.draft.SelectedWorkerID != nil {
		found := false
		for _, w := range f.matches {
			if w.ID == *f.draft.SelectedWorkerID {
				found = true
				break
			}
		}
		if !found {
			f.draft.SelectedWorkerID = nil
		}
	}
	return f.matches
}

// SelectWorker picks a worker from the current match set.
func (f *Flow) SelectWorker(workerID uint) error {
	for _, w := range f.matches {
		if w.ID == workerID {
			f.draft.SelectedWorkerID = &workerID
			return nil
		}
	}
	return &ValidationError{Field: "worker", Message: "selected worker is not eligible for this request"}
}

// GatewayMode selects how a gateway payment collects the card.
type GatewayMode string

const (
	// GatewayModeIntent embeds an in-page card field bound to an opened intent.
	GatewayModeIntent GatewayMode = "intent"
	// GatewayModeCheckout redirects to the gateway's hosted checkout page.
	GatewayModeCheckout GatewayMode = "checkout"
)

// SubmissionResult is what the wizard hands back after submitting.
type SubmissionResult struct {
	Request  *models.ServiceRequest
	Intent   *payment.IntentHandle  // set for GatewayModeIntent
	Checkout *payment.CheckoutHandle // set for GatewayModeCheckout; redirect required
}

// Submit finalizes the wizard from the payment step. Cash submits and
// finalizes immediately; gateway opens the selected payment flow for the
// composed request.
func (f *Flow) Submit(ctx context.Context, mode GatewayMode, returnURL string) (*SubmissionResult, error) {
	if f.step != StepPayment {
		return nil, ErrNotAtPaymentStep
	}

	req := f.compose()
	if err := f.submitter.Submit(ctx, req); err != nil {
		return nil, fmt.Errorf("submit request: %w", err)
	}

	result := &SubmissionResult{Request: req}

	switch f.draft.PaymentMethod {
	case models.PaymentMethodCash:
		if err := f.payments.OpenCashFlow(ctx, req); err != nil {
			return nil, err
		}
	case models.PaymentMethodGateway:
		switch mode {
		case GatewayModeCheckout:
			checkout, err := f.payments.CreateCheckoutRedirect(ctx, req, returnURL)
			if err != nil {
				return nil, err
			}
			result.Checkout = checkout
		default:
			intent, err := f.payments.OpenGatewayIntent(ctx, req)
			if err != nil {
				return nil, err
			}
			result.Intent = intent
		}
	}
	return result, nil
}

// compose builds the ServiceRequest from the validated draft.
func (f *Flow) compose() *models.ServiceRequest {
	tax := int64(float64(f.draft.Amount) * f.taxRate)
	return &models.ServiceRequest{
		CustomerName:     f.draft.CustomerName,
		CustomerPhone:    f.draft.CustomerPhone,
		CustomerEmail:    f.draft.CustomerEmail,
		Address:          f.draft.Address,
		City:             f.draft.City,
		State:            f.draft.State,
		PostalCode:       f.draft.PostalCode,
		Category:         f.draft.Category,
		Description:      f.draft.Description,
		ImageURL:         f.draft.ImageURL,
		PreferredDate:    f.draft.PreferredDate,
		PreferredTime:    f.draft.PreferredTime,
		AssignedWorkerID: f.draft.SelectedWorkerID,
		PaymentMethod:    f.draft.PaymentMethod,
		PaymentStatus:    models.PaymentStatusPending,
		Amount:           f.draft.Amount,
		Tax:              tax,
		TotalAmount:      f.draft.Amount + tax,
	}
}

func (f *Flow) validateStep(s Step) error {
	d := &f.draft
	switch s {
	case StepDetails:
		if strings.TrimSpace(d.Category) == "" {
			return &ValidationError{Field: "category", Message: "please select a service"}
		}
		if strings.TrimSpace(d.Description) == "" {
			return &ValidationError{Field: "description", Message: "please describe the work needed"}
		}
	case StepSchedule:
		if d.PreferredDate == nil {
			return &ValidationError{Field: "preferred_date", Message: "please pick a date"}
		}
		if !timeSlots[strings.ToLower(strings.TrimSpace(d.PreferredTime))] {
			return &ValidationError{Field: "preferred_time", Message: "please pick a time slot"}
		}
		if strings.TrimSpace(d.CustomerName) == "" {
			return &ValidationError{Field: "customer_name", Message: "please enter your name"}
		}
		if !utils.ValidPhone(d.CustomerPhone) {
			return &ValidationError{Field: "customer_phone", Message: "please enter a valid phone number"}
		}
		if !utils.ValidEmail(d.CustomerEmail) {
			return &ValidationError{Field: "customer_email", Message: "please enter a valid email address"}
		}
	case StepAddress:
		if strings.TrimSpace(d.Address) == "" {
			return &ValidationError{Field: "address", Message: "please enter a street address"}
		}
		if strings.TrimSpace(d.City) == "" {
			return &ValidationError{Field: "city", Message: "please enter a city"}
		}
		if !utils.ValidZip(d.PostalCode) {
			return &ValidationError{Field: "postal_code", Message: utils.ZipRejectedMessage}
		}
		if !utils.KnownZip(d.PostalCode) {
			return &ValidationError{Field: "postal_code", Message: utils.ZipRejectedMessage}
		}
		if d.PaymentMethod != models.PaymentMethodCash && d.PaymentMethod != models.PaymentMethodGateway {
			return &ValidationError{Field: "payment_method", Message: "please choose a payment method"}
		}
	}
	return nil
}
