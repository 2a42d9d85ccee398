package services

import (
	"fmt"

	"github.com/pollwave/pollwave/internal/errors"
)

// Service errors. ErrDeviceBlocked carries the Blocked kind so the API layer
// can map it by classification as well as by identity.
var (
	ErrAlreadyVoted       = &ServiceError{Message: "this device has already voted in this poll"}
	ErrDeviceBlocked      = errors.Blocked("this device is blocked from voting")
	ErrPollNotActive      = &ServiceError{Message: "poll is not accepting votes"}
	ErrPollNotFound       = &ServiceError{Message: "poll not found"}
	ErrOptionNotFound     = &ServiceError{Message: "option not found"}
	ErrDeviceNotFound     = &ServiceError{Message: "device not found"}
	ErrVoteNotFound       = &ServiceError{Message: "vote not found"}
	ErrEmptyTitle         = &ServiceError{Message: "poll title must not be empty"}
	ErrEmptyQuestion      = &ServiceError{Message: "poll question must not be empty"}
	ErrEmptyOptionText    = &ServiceError{Message: "option text must not be empty"}
	ErrOptionTextTooLong  = &ServiceError{Message: "option text must be at most 500 characters"}
	ErrNegativeOrder      = &ServiceError{Message: "option order must not be negative"}
	ErrBadStatusChange    = &ServiceError{Message: "poll status can only move forward"}
	ErrOrderTaken         = &ServiceError{Message: "option order is already taken in this poll"}
	ErrOptionlessVote     = &ServiceError{Message: "vote must reference an option"}
	ErrEmailTaken         = &ServiceError{Message: "email is already registered"}
	ErrInvalidCredentials = &ServiceError{Message: "invalid email or password"}
	ErrAccountDisabled    = &ServiceError{Message: "account is disabled"}
)

// ServiceError represents a service-level error
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// InvalidPollTypeError reports an unrecognized poll type
type InvalidPollTypeError struct {
	Type string
}

func (e *InvalidPollTypeError) Error() string {
	return fmt.Sprintf("invalid poll type: %s", e.Type)
}
