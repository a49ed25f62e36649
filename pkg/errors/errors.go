package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid username or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
)

// Face enrollment and verification errors.
var (
	ErrFaceNotRegistered  = New("FACE_NOT_REGISTERED", http.StatusBadRequest, "face not registered, please register your face first")
	ErrNoFaceDetected     = New("NO_FACE_DETECTED", http.StatusBadRequest, "no face detected in the image")
	ErrFaceMismatch       = New("FACE_MISMATCH", http.StatusUnauthorized, "face does not match the registered profile")
	ErrReEnrollmentLocked = New("REENROLLMENT_LOCKED", http.StatusForbidden, "face already registered, request admin permission to update it")
	ErrVerification       = New("VERIFICATION_ERROR", http.StatusInternalServerError, "face verification failed")
	ErrExtractionTimeout  = New("EXTRACTION_TIMEOUT", http.StatusGatewayTimeout, "face extraction timed out")
	ErrExtraction         = New("EXTRACTION_FAILED", http.StatusBadGateway, "face extraction service failed")
)

// Session and approval workflow errors.
var (
	ErrSessionNotFound  = New("SESSION_NOT_FOUND", http.StatusNotFound, "attendance session not found")
	ErrSessionInactive  = New("SESSION_INACTIVE", http.StatusBadRequest, "attendance session is not active")
	ErrNoActiveSession  = New("NO_ACTIVE_SESSION", http.StatusNotFound, "no active session for this class")
	ErrDuplicateRequest = New("DUPLICATE_REQUEST", http.StatusConflict, "a pending face update request already exists")
	ErrAlreadyProcessed = New("ALREADY_PROCESSED", http.StatusConflict, "request has already been processed")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
