package errx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "session state not found"
	// SQLiteErrorMessage describes lead store failures.
	SQLiteErrorMessage = "lead store operation failed"
	// ApologyMessage is the reply shown to the end user when a turn cannot be completed.
	ApologyMessage = "I'm sorry, something went wrong on my side. Please send your message again in a moment."
)

var (
	// ErrSessionBusy is returned when the per-session lock cannot be acquired in time.
	ErrSessionBusy = New(errors.New("session busy"), http.StatusConflict, "another message for this conversation is still being processed")
	// ErrHopLimit is returned when a turn exceeds the configured number of internal hops.
	ErrHopLimit = New(errors.New("hop limit exceeded"), http.StatusInternalServerError, SystemErrorMessage)
	// ErrInvalidInput is returned for malformed inbound requests.
	ErrInvalidInput = New(errors.New("invalid input"), http.StatusBadRequest, "message and thread_id are required")
)

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// WrapRedis maps Redis errors to an AppError with an appropriate status code.
func WrapRedis(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return New(err, http.StatusNotFound, RedisNotFoundMessage)
	}
	return New(err, http.StatusBadGateway, RedisErrorMessage)
}

// WrapSQLite wraps a lead store error with a consistent status code and message.
func WrapSQLite(err error) error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusBadGateway, SQLiteErrorMessage)
}

// StatusOf returns the HTTP status carried by err, or 500 when it carries none.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// PublicMessage returns a message that is safe to show to an external caller.
func PublicMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return SystemErrorMessage
}

// Is reports whether the target matches the AppError itself or the underlying error.
func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); ok && t == e {
		return true
	}
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return errors.As(e.Err, target)
}
