package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Request authentication (AUTH) ----
// Messages are short category strings; which exact byte of a check failed
// is never exposed to the caller.

func ErrKidMismatch() *AppError {
	return New("AUTH_001", "kid mismatch", http.StatusUnauthorized)
}

func ErrMissingAuthHeaders() *AppError {
	return New("AUTH_002", "missing auth headers", http.StatusUnauthorized)
}

func ErrTimestampOutOfWindow() *AppError {
	return New("AUTH_003", "ts out of window", http.StatusUnauthorized)
}

func ErrBadSignature() *AppError {
	return New("AUTH_004", "bad signature", http.StatusUnauthorized)
}

func ErrNonceReplayed() *AppError {
	return New("AUTH_005", "nonce replayed", http.StatusUnauthorized)
}

func ErrBadPlatformPayload() *AppError {
	return New("AUTH_006", "bad platform payload", http.StatusUnauthorized)
}

// ---- Validation (VAL) ----

func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

func ErrBadCSRFToken() *AppError {
	return New("VAL_002", "missing or malformed csrf token", http.StatusBadRequest)
}

// ---- Authorization (AUTHZ) ----

func ErrLinkMissingOrRevoked() *AppError {
	return New("AUTHZ_001", "execution link missing or revoked", http.StatusForbidden)
}

func ErrSecretMissing() *AppError {
	return New("AUTHZ_002", "secret missing", http.StatusForbidden)
}

// ---- Rate limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "rate limit exceeded", http.StatusTooManyRequests)
}

// ---- Dependencies (DEP) ----
// Messages stay generic: credential material and backend addresses must
// never reach the client.

func ErrStorageFailure(err error) *AppError {
	return Wrap("DEP_001", "storage backend failure", http.StatusInternalServerError, err)
}

// InternalError wraps any unanticipated error as a DEP_001.
func InternalError(err error) *AppError {
	return Wrap("DEP_001", "internal server error", http.StatusInternalServerError, err)
}
