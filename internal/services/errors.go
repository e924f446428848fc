// Package services implements the policy, claim, user and lookup use-cases.
// This file centralizes the service-level error kinds so that they can be
// consistently returned by service methods and checked by callers.
//
// Each kind is a concrete type carrying the details a client needs (which
// resource, which transition) and matches a sentinel through errors.Is, so
// callers can branch either on the sentinel or on the typed value.
// Translation into HTTP status codes is performed at the handler layer.
package services

import (
	"errors"
	"fmt"
)

// Sentinels matched by the typed errors below.
var (
	// ErrNotFound matches every *NotFoundError.
	ErrNotFound = errors.New("not found")

	// ErrIllegalState matches every *IllegalStateError.
	ErrIllegalState = errors.New("illegal state")

	// ErrConcurrentModification matches every *ConcurrentModificationError.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrBusinessRule matches every *BusinessRuleError.
	ErrBusinessRule = errors.New("business rule violated")

	// ErrExportDisabled is returned when policy export is switched off.
	ErrExportDisabled = errors.New("policy export is disabled")
)

// NotFoundError reports a missing resource.
type NotFoundError struct {
	Resource string
	ID       uint64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// IllegalStateError reports an operation the current lifecycle state does
// not allow. To is empty when the operation is not a transition.
type IllegalStateError struct {
	Resource string
	ID       uint64
	From     string
	To       string
	Reason   string
}

func (e *IllegalStateError) Error() string {
	msg := fmt.Sprintf("%s %d: ", e.Resource, e.ID)
	if e.To != "" {
		msg += fmt.Sprintf("transition %s -> %s not allowed", e.From, e.To)
	} else {
		msg += "not allowed in status " + e.From
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *IllegalStateError) Is(target error) bool { return target == ErrIllegalState }

// ConcurrentModificationError reports a lost optimistic-lock race.
type ConcurrentModificationError struct {
	Resource string
	ID       uint64
	Expected int64
	Actual   int64
}

func (e *ConcurrentModificationError) Error() string {
	if e.Actual > 0 {
		return fmt.Sprintf("%s %d was modified concurrently (expected version %d, current %d)",
			e.Resource, e.ID, e.Expected, e.Actual)
	}
	return fmt.Sprintf("%s %d was modified concurrently (expected version %d)", e.Resource, e.ID, e.Expected)
}

func (e *ConcurrentModificationError) Is(target error) bool { return target == ErrConcurrentModification }

// BusinessRuleError reports a well-formed request that breaks a business
// invariant, such as paying more than the claim amount.
type BusinessRuleError struct {
	Rule    string
	Message string
}

func (e *BusinessRuleError) Error() string { return e.Message }

func (e *BusinessRuleError) Is(target error) bool { return target == ErrBusinessRule }
