package domain

import (
	"errors"
	"fmt"
)

// ValidationError reports input that was rejected before any state changed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

// AuthError reports a missing, invalid or expired session.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string { return e.Reason }

// RateLimitError reports that a quota was exceeded (HTTP 429).
type RateLimitError struct {
	Reason string
}

func (e *RateLimitError) Error() string { return e.Reason }

// NetworkError wraps a failed call to a remote collaborator. The operation is
// left retryable by the caller.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

var (
	// ErrNameRequired is returned when a taking session is started without a display name.
	ErrNameRequired = &ValidationError{Field: "name", Reason: "name required"}
	// ErrAnswerRequired is returned when advancing past a question that has no selection.
	ErrAnswerRequired = &ValidationError{Field: "answer", Reason: "answer required"}
	// ErrOptionOutOfRange is returned for an option index outside 0..3.
	ErrOptionOutOfRange = &ValidationError{Field: "option", Reason: "option out of range"}
	// ErrTopicRequired is returned when generation is requested without a topic.
	ErrTopicRequired = &ValidationError{Field: "topic", Reason: "topic required"}

	// ErrInvalidCredentials is returned when a username/password pair does not match.
	ErrInvalidCredentials = &AuthError{Reason: "invalid credentials"}
	// ErrUnauthenticated is returned when a trusted call carries no usable token.
	ErrUnauthenticated = &AuthError{Reason: "authentication required"}
	// ErrSessionExpired is returned when identity disappears before a submission.
	ErrSessionExpired = &AuthError{Reason: "session expired, please login again"}

	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrResultNotFound indicates an attempt result id is unknown.
	ErrResultNotFound = errors.New("result not found")
	// ErrUserNotFound indicates a username is unknown.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken is returned by signup for a duplicate username.
	ErrUsernameTaken = errors.New("username already taken")
)

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsAuth reports whether err is (or wraps) an AuthError.
func IsAuth(err error) bool {
	var target *AuthError
	return errors.As(err, &target)
}

// IsRateLimit reports whether err is (or wraps) a RateLimitError.
func IsRateLimit(err error) bool {
	var target *RateLimitError
	return errors.As(err, &target)
}

// IsNetwork reports whether err is (or wraps) a NetworkError.
func IsNetwork(err error) bool {
	var target *NetworkError
	return errors.As(err, &target)
}

// Kind returns a short label for err, used on the wire.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsValidation(err):
		return "validation"
	case IsAuth(err):
		return "auth"
	case IsRateLimit(err):
		return "rate_limit"
	case IsNetwork(err):
		return "network"
	case errors.Is(err, ErrQuizNotFound), errors.Is(err, ErrResultNotFound), errors.Is(err, ErrUserNotFound):
		return "not_found"
	case errors.Is(err, ErrUsernameTaken):
		return "conflict"
	default:
		return "internal"
	}
}
