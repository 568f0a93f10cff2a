package core

import (
	"context"
	"errors"
)

// Error codes carried on error notices.
const (
	ErrCodeBanned               = "banned"
	ErrCodeInvalidCommand       = "invalid_command"
	ErrCodeInvalidCommandParams = "invalid_command_params"
	ErrCodeInvalidCommandAccess = "invalid_command_access"
	ErrCodeInvalidLogin         = "invalid_login"
	ErrCodeNickVerified         = "nick_verified"
	ErrCodeNickNotVerified      = "nick_not_verified"
	ErrCodeAlreadyBeingUsed     = "already_being_used"
	ErrCodeNegotiationFailed    = "negotiation_failed"
	ErrCodeUserDoesntExist      = "user_doesnt_exist"
	ErrCodePMOffline            = "pm_offline"
	ErrCodeNotBanned            = "not_banned"
	ErrCodeInternal             = "internal_error"

	// Registration error codes
	ErrCodeAlreadyRegistered       = "already_registered"
	ErrCodeNotRegistered           = "not_registered"
	ErrCodeInvalidEmail            = "invalid_email"
	ErrCodeInvalidPassword         = "invalid_password"
	ErrCodeInvalidVerificationCode = "invalid_verification_code"
)

var (
	errNickInUse     = errors.New("nick in use")
	errSessionClosed = errors.New("session closed")
)

// Result is the outcome of handling one inbound event.
// A zero Result is a silent rejection: nothing is sent to the session.
type Result struct {
	OK      bool
	Code    string
	Message string

	// followup runs after the event's store handle is released and
	// replaces this result. It must not touch storage.
	followup func(ctx context.Context) (Result, error)
}

// later defers slow work, such as mail delivery, past the store handle.
func later(fn func(ctx context.Context) (Result, error)) Result {
	return Result{followup: fn}
}
