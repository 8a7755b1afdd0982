package lifecycle

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"home-services-server/models"
)

// Action is a staff-driven lifecycle transition.
type Action string

const (
	ActionAccept   Action = "accept"
	ActionReject   Action = "reject"
	ActionComplete Action = "complete"
)

// ErrInvalidTransition is returned for any out-of-order transition or any
// transition attempted from a terminal state. The record is left unchanged.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrMissingReason is returned when a rejection carries no reason.
var ErrMissingReason = errors.New("rejection reason is required")

// ErrScheduleInPast is returned when acceptance is attempted with a
// scheduled timestamp in the past.
var ErrScheduleInPast = errors.New("scheduled time must not be in the past")

// transitions is the full legal transition table:
//
//	pending    --accept--->   in-process
//	pending    --reject--->   rejected
//	in-process --complete-->  completed
//	in-process --reject--->   rejected  (cancellation after acceptance)
var transitions = map[models.RequestStatus]map[Action]models.RequestStatus{
	models.RequestStatusPending: {
		ActionAccept: models.RequestStatusInProcess,
		ActionReject: models.RequestStatusRejected,
	},
	models.RequestStatusInProcess: {
		ActionComplete: models.RequestStatusCompleted,
		ActionReject:   models.RequestStatusRejected,
	},
}

// NextStatus resolves the target status for an action, or ErrInvalidTransition.
func NextStatus(from models.RequestStatus, action Action) (models.RequestStatus, error) {
	if targets, ok := transitions[from]; ok {
		if to, ok := targets[action]; ok {
			return to, nil
		}
	}
	return "", fmt.Errorf("%w: cannot %s from %s", ErrInvalidTransition, action, from)
}

// applyAccept validates and applies acceptance on the in-memory record.
// scheduledAt must be a future-or-present concrete timestamp. Acceptance
// proceeds even if a gateway payment has not settled yet; payment is tracked
// independently.
func applyAccept(req *models.ServiceRequest, scheduledAt time.Time, now time.Time) error {
	to, err := NextStatus(req.Status, ActionAccept)
	if err != nil {
		return err
	}
	if scheduledAt.Before(now) {
		return ErrScheduleInPast
	}
	req.Status = to
	req.ScheduledAt = &scheduledAt
	req.UpdatedAt = now
	return nil
}

// applyReject validates and applies rejection. The reason is mandatory.
// Refunding is an explicit, separate staff decision that runs through the
// payment orchestrator; rejection never forces one.
func applyReject(req *models.ServiceRequest, reason string, now time.Time) error {
	to, err := NextStatus(req.Status, ActionReject)
	if err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrMissingReason
	}
	req.Status = to
	req.RejectionReason = &reason
	req.UpdatedAt = now
	return nil
}

// applyComplete validates and applies completion with optional notes.
func applyComplete(req *models.ServiceRequest, notes string, now time.Time) error {
	to, err := NextStatus(req.Status, ActionComplete)
	if err != nil {
		return err
	}
	req.Status = to
	if notes = strings.TrimSpace(notes); notes != "" {
		req.CompletionNotes = &notes
	}
	req.UpdatedAt = now
	return nil
}

// applyReassign sets or clears the worker assignment. Legal in any
// non-terminal state; the status is never altered.
func applyReassign(req *models.ServiceRequest, workerID *uint, now time.Time) error {
	if req.Status.IsTerminal() {
		return fmt.Errorf("%w: cannot reassign worker from %s", ErrInvalidTransition, req.Status)
	}
	req.AssignedWorkerID = workerID
	req.UpdatedAt = now
	return nil
}
