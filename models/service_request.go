package models

import (
	"time"

	"gorm.io/gorm"
)

// RequestStatus is the primary lifecycle status of a service request.
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusInProcess RequestStatus = "in-process"
	RequestStatusCompleted RequestStatus = "completed"
	RequestStatusCancelled RequestStatus = "cancelled" // legacy terminal value, read as rejected
	RequestStatusRejected  RequestStatus = "rejected"
)

// IsTerminal reports whether no further lifecycle transition is permitted.
func (s RequestStatus) IsTerminal() bool {
	switch s {
	case RequestStatusCompleted, RequestStatusCancelled, RequestStatusRejected:
		return true
	}
	return false
}

// IsWithdrawn reports whether the request ended without being completed.
// The legacy "cancelled" value is equivalent to "rejected" on every read path.
func (s RequestStatus) IsWithdrawn() bool {
	return s == RequestStatusCancelled || s == RequestStatusRejected
}

// PaymentMethod selects how the customer pays.
type PaymentMethod string

const (
	PaymentMethodCash    PaymentMethod = "cash"
	PaymentMethodGateway PaymentMethod = "gateway"
)

// PaymentStatus is the payment sub-state of a service request.
type PaymentStatus string

const (
	PaymentStatusPending       PaymentStatus = "pending"
	PaymentStatusPaid          PaymentStatus = "paid"
	PaymentStatusPartiallyPaid PaymentStatus = "partially_paid"
	PaymentStatusFailed        PaymentStatus = "failed"
	PaymentStatusRefunded      PaymentStatus = "refunded"
)

// ServiceRequest represents a customer's request for a home service.
//
// The record is never hard-deleted; terminal states are retained for audit.
// All monetary amounts are in minor units (cents).
type ServiceRequest struct {
	ID uint `json:"id" gorm:"primaryKey"`

	// Customer contact
	CustomerName  string `json:"customer_name" gorm:"type:varchar(200);not null"`
	CustomerPhone string `json:"customer_phone" gorm:"type:varchar(30);not null"`
	CustomerEmail string `json:"customer_email" gorm:"type:varchar(200);not null"`
	Address       string `json:"address" gorm:"type:text;not null"`
	City          string `json:"city" gorm:"type:varchar(100);not null"`
	State         string `json:"state" gorm:"type:varchar(100)"`
	PostalCode    string `json:"postal_code" gorm:"type:varchar(10);not null"`

	// Service details
	Category    string `json:"category" gorm:"type:varchar(100);not null"`
	Description string `json:"description" gorm:"type:text"`
	ImageURL    string `json:"image_url" gorm:"type:varchar(500)"`

	// Scheduling. PreferredTime is a labeled slot ("morning", "afternoon",
	// "evening"), not a literal clock time. ScheduledAt is the concrete
	// timestamp assigned by staff on acceptance.
	PreferredDate *time.Time `json:"preferred_date"`
	PreferredTime string     `json:"preferred_time" gorm:"type:varchar(30)"`
	ScheduledAt   *time.Time `json:"scheduled_at"`

	// Assignment. Weak reference; the request does not own the worker lifecycle.
	AssignedWorkerID *uint   `json:"assigned_worker_id"`
	AssignedWorker   *Worker `json:"assigned_worker,omitempty" gorm:"foreignKey:AssignedWorkerID"`

	Status RequestStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending'"`

	// Payment sub-state
	PaymentMethod      PaymentMethod `json:"payment_method" gorm:"type:varchar(20);not null;default:'cash'"`
	PaymentStatus      PaymentStatus `json:"payment_status" gorm:"type:varchar(20);not null;default:'pending'"`
	Amount             int64         `json:"amount" gorm:"not null;default:0"`
	Tax                int64         `json:"tax" gorm:"not null;default:0"`
	TotalAmount        int64         `json:"total_amount" gorm:"not null;default:0"`
	AmountPaid         int64         `json:"amount_paid" gorm:"not null;default:0"`
	AmountRefunded     int64         `json:"amount_refunded" gorm:"not null;default:0"`
	ExternalPaymentRef *string       `json:"external_payment_ref" gorm:"type:varchar(200)"`
	RefundPending      bool          `json:"refund_pending" gorm:"default:false"`

	// Audit
	RejectionReason *string        `json:"rejection_reason" gorm:"type:text"`
	CompletionNotes *string        `json:"completion_notes" gorm:"type:text"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

func (ServiceRequest) TableName() string {
	return "service_requests"
}

// AmountOutstanding is the captured amount that has not been refunded yet.
func (r *ServiceRequest) AmountOutstanding() int64 {
	return r.AmountPaid - r.AmountRefunded
}

// Refundable reports whether staff may issue a refund against this request.
func (r *ServiceRequest) Refundable() bool {
	if r.PaymentMethod != PaymentMethodGateway {
		return false
	}
	return r.PaymentStatus == PaymentStatusPaid || r.PaymentStatus == PaymentStatusPartiallyPaid
}

// ServiceRequestCreate is the submission payload composed by the booking flow.
type ServiceRequestCreate struct {
	CustomerName  string        `json:"customer_name" binding:"required"`
	CustomerPhone string        `json:"customer_phone" binding:"required"`
	CustomerEmail string        `json:"customer_email" binding:"required,email"`
	Address       string        `json:"address" binding:"required"`
	City          string        `json:"city" binding:"required"`
	State         string        `json:"state"`
	PostalCode    string        `json:"postal_code" binding:"required"`
	Category      string        `json:"category" binding:"required"`
	Description   string        `json:"description" binding:"required"`
	ImageURL      string        `json:"image_url"`
	PreferredDate *time.Time    `json:"preferred_date"`
	PreferredTime string        `json:"preferred_time"`
	PaymentMethod PaymentMethod `json:"payment_method" binding:"required,oneof=cash gateway"`
	Amount        int64         `json:"amount"`
	WorkerID      *uint         `json:"worker_id"`
}
