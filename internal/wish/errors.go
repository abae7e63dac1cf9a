package wish

import (
	"errors"
	"fmt"
)

// Error is a submission failure or alternate outcome surfaced to guests.
//
// Callers distinguish codes with the IsX helpers, which see through wrapping.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// InvitationID identifies the affected invitation, if known.
	InvitationID string

	// NameKey identifies the affected guest, if known.
	NameKey string

	// Err is the underlying store error for transient failures.
	Err error
}

// ErrorCode categorizes submission errors.
type ErrorCode string

const (
	// ErrCodeNotPersonalized means the link carries no usable guest name.
	// This is a disabled state rather than a failure.
	ErrCodeNotPersonalized ErrorCode = "NOT_PERSONALIZED"

	// ErrCodeAlreadyPosted means the guest already has a stored wish.
	// Service.Submit reports this as OutcomeAlreadyPosted, not as an error;
	// the code exists for callers that need to render it as one.
	ErrCodeAlreadyPosted ErrorCode = "ALREADY_POSTED"

	// ErrCodeTransient means the store write failed; the guest may retry.
	ErrCodeTransient ErrorCode = "TRANSIENT_WRITE_FAILURE"

	// ErrCodeEmptyMessage means the message was blank after trimming.
	ErrCodeEmptyMessage ErrorCode = "EMPTY_MESSAGE"

	// ErrCodeInvalidAttendance means the attendance value is not recognized.
	ErrCodeInvalidAttendance ErrorCode = "INVALID_ATTENDANCE"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.InvitationID != "" && e.NameKey != "" {
		msg = fmt.Sprintf("%s (invitation=%s, guest=%s)", msg, e.InvitationID, e.NameKey)
	} else if e.InvitationID != "" {
		msg = fmt.Sprintf("%s (invitation=%s)", msg, e.InvitationID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying store error.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the ErrorCode carried by err, or "" if err is not an *Error.
func CodeOf(err error) ErrorCode {
	var we *Error
	if errors.As(err, &we) {
		return we.Code
	}
	return ""
}

// IsNotPersonalized returns true if err is a NOT_PERSONALIZED error.
// Uses errors.As to handle wrapped errors.
func IsNotPersonalized(err error) bool {
	return CodeOf(err) == ErrCodeNotPersonalized
}

// IsEmptyMessage returns true if err is an EMPTY_MESSAGE error.
func IsEmptyMessage(err error) bool {
	return CodeOf(err) == ErrCodeEmptyMessage
}

// IsTransient returns true if err is a TRANSIENT_WRITE_FAILURE error.
func IsTransient(err error) bool {
	return CodeOf(err) == ErrCodeTransient
}

// IsAlreadyPosted returns true if err is an ALREADY_POSTED error.
func IsAlreadyPosted(err error) bool {
	return CodeOf(err) == ErrCodeAlreadyPosted
}

// IsInvalidAttendance returns true if err is an INVALID_ATTENDANCE error.
func IsInvalidAttendance(err error) bool {
	return CodeOf(err) == ErrCodeInvalidAttendance
}

func newNotPersonalizedError(invitationID string) *Error {
	return &Error{
		Code:         ErrCodeNotPersonalized,
		Message:      "invitation link is not personalized",
		InvitationID: invitationID,
	}
}

func newEmptyMessageError(invitationID, nameKey string) *Error {
	return &Error{
		Code:         ErrCodeEmptyMessage,
		Message:      "message is empty",
		InvitationID: invitationID,
		NameKey:      nameKey,
	}
}

func newTransientError(invitationID, nameKey string, err error) *Error {
	return &Error{
		Code:         ErrCodeTransient,
		Message:      "could not save wish",
		InvitationID: invitationID,
		NameKey:      nameKey,
		Err:          err,
	}
}
