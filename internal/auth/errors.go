package auth

import (
	"errors"
	"fmt"
)

// Sentinel errors for the authentication flows. Handlers map these to HTTP
// status codes and deliberately vague user-facing messages; everything else
// is treated as an internal provider/storage failure.
var (
	// ErrInvalidCredentials is returned by the provider when the
	// email/password pair is rejected.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSessionNotEstablished means sign-in reported success but no live
	// session could be confirmed afterwards.
	ErrSessionNotEstablished = errors.New("session not established after sign-in")

	// ErrAlreadyRegistered is returned by SignUp when an account already
	// exists for the email. The bootstrapper treats it as success.
	ErrAlreadyRegistered = errors.New("account already registered")

	// ErrMemberNotFound means no member row matches the given number.
	ErrMemberNotFound = errors.New("member not found")

	// ErrMemberSuspended blocks login for suspended/deceased members.
	ErrMemberSuspended = errors.New("member account suspended")

	// ErrInvalidToken covers expired, unknown and already-used tokens.
	// Callers must not distinguish which; the user-facing message is always
	// "link expired or invalid".
	ErrInvalidToken = errors.New("token invalid or expired")

	// ErrTransitionInFlight means the member already has a pending email
	// transition that must complete or fail first.
	ErrTransitionInFlight = errors.New("an email change is already in progress")
)

// RateLimitError is returned when the reset-request limiter rejects a
// (client IP, member number) pair. RetryAfterSeconds is surfaced to the user.
type RateLimitError struct {
	RetryAfterSeconds int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry in %ds", e.RetryAfterSeconds)
}
