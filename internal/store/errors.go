// Package store holds the session, catalog and booking state caches.
package store

import (
	"fmt"

	"stayease/internal/api"
)

// Fallback messages used when a collaborator rejects a call without a payload.
const (
	MsgLoginFailed        = "Login failed"
	MsgRegisterFailed     = "Registration failed"
	MsgFetchHotels        = "Failed to fetch hotels"
	MsgFetchRooms         = "Failed to fetch rooms"
	MsgFetchAvailable     = "Failed to fetch available rooms"
	MsgFetchBookings      = "Failed to fetch bookings"
	MsgFetchAllBookings   = "Failed to fetch all bookings"
	MsgAdminActionFailed  = "Admin action failed"
	MsgUploadFailed       = "Could not upload file"
	MsgSessionIncomplete  = "Login response is missing token, role or user id"
	MsgSessionPersistFail = "Could not save session"
)

// AuthError is a failed login or registration.
type AuthError struct {
	Op      string
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *AuthError) Unwrap() error { return e.Err }

// FetchError is any collaborator failure during a store load or admin action.
// Network errors and HTTP rejections are not distinguished.
type FetchError struct {
	Op      string
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *FetchError) Unwrap() error { return e.Err }

// RegisteredNotAuthenticatedError means registration succeeded but the
// follow-up login did not. The session stays anonymous.
type RegisteredNotAuthenticatedError struct {
	Email string
	Err   error
}

func (e *RegisteredNotAuthenticatedError) Error() string {
	return fmt.Sprintf("registered %s but login failed: %v", e.Email, e.Err)
}

func (e *RegisteredNotAuthenticatedError) Unwrap() error { return e.Err }

// message prefers the collaborator payload and falls back to a fixed string.
func message(err error, fallback string) string {
	if msg := api.Payload(err); msg != "" {
		return msg
	}
	return fallback
}

func newFetchError(op string, err error, fallback string) *FetchError {
	return &FetchError{Op: op, Message: message(err, fallback), Err: err}
}
