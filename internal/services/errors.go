package services

import "errors"

var (
	ErrEscalationNotFound = errors.New("escalation not found")
	ErrEscalationResolved = errors.New("escalation already resolved")
	ErrLocationRequired   = errors.New("location id is required")
	ErrLoanRequired       = errors.New("loan id is required")
	ErrInvalidReason      = errors.New("invalid escalation reason")
)
