package common

import (
	"errors"
	"fmt"
	"time"
)

// Common error types
var (
	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input parameter")

	// ErrNotConnected indicates the store connection is not established
	ErrNotConnected = errors.New("store not connected")

	// ErrNotInitialized indicates a component is not initialized
	ErrNotInitialized = errors.New("component not initialized")

	// ErrWaitTimeout indicates the bounded wait on an in-flight connect
	// attempt expired before the attempt resolved
	ErrWaitTimeout = errors.New("timed out waiting for in-flight connect attempt")

	// ErrConnectAborted indicates a connect attempt resolved after the
	// desired state had moved to disconnected, so its result was discarded
	ErrConnectAborted = errors.New("connect attempt abandoned by disconnect")
)

// IsInvalidInput checks if err is or wraps ErrInvalidInput
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsNotConnected checks if err is or wraps ErrNotConnected
func IsNotConnected(err error) bool {
	return errors.Is(err, ErrNotConnected)
}

// IsWaitTimeout checks if err is or wraps ErrWaitTimeout
func IsWaitTimeout(err error) bool {
	return errors.Is(err, ErrWaitTimeout)
}

// InvalidInputError returns a wrapped invalid input error with context
func InvalidInputError(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidInput)
}

// NotConnectedError returns a wrapped not connected error with context
func NotConnectedError(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotConnected)
}

// NotInitializedError returns a wrapped not initialized error with context
func NotInitializedError(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotInitialized)
}

// WaitTimeoutError returns a wrapped wait timeout error with the elapsed bound
func WaitTimeoutError(waited time.Duration) error {
	return fmt.Errorf("waited %s: %w", waited, ErrWaitTimeout)
}

// ConnectFailedError represents a connect attempt that exhausted its retry cap
type ConnectFailedError struct {
	Attempts int
	Err      error
}

func (e ConnectFailedError) Error() string {
	return fmt.Sprintf("store connect failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e ConnectFailedError) Unwrap() error {
	return e.Err
}

// NewConnectFailedError creates a new connect failed error
func NewConnectFailedError(attempts int, err error) error {
	return ConnectFailedError{Attempts: attempts, Err: err}
}

// ThrottleExceededError represents an operation rejected because the
// per-minute ceiling for its operation type is already consumed
type ThrottleExceededError struct {
	OperationType   string
	MaxOpsPerMinute int
}

func (e ThrottleExceededError) Error() string {
	return fmt.Sprintf("throttle exceeded for %q: limit %d ops/minute",
		e.OperationType, e.MaxOpsPerMinute)
}

// BatchTooLargeError represents an operation rejected because the requested
// batch size exceeds the configured maximum
type BatchTooLargeError struct {
	OperationType string
	Requested     int
	MaxBatchSize  int
}

func (e BatchTooLargeError) Error() string {
	return fmt.Sprintf("batch too large for %q: requested %d, max %d",
		e.OperationType, e.Requested, e.MaxBatchSize)
}

// OperationLockedError represents an operation rejected by an administrative lock
type OperationLockedError struct {
	OperationType string
}

func (e OperationLockedError) Error() string {
	return fmt.Sprintf("operation type %q is locked", e.OperationType)
}

// IsConnectFailed checks if err is a retry-cap-exhausted connect failure
func IsConnectFailed(err error) bool {
	var e ConnectFailedError
	return errors.As(err, &e)
}

// IsThrottleExceeded checks if err is a throttle ceiling rejection
func IsThrottleExceeded(err error) bool {
	var e ThrottleExceededError
	return errors.As(err, &e)
}

// IsBatchTooLarge checks if err is a batch size rejection
func IsBatchTooLarge(err error) bool {
	var e BatchTooLargeError
	return errors.As(err, &e)
}

// IsOperationLocked checks if err is an administrative lock rejection
func IsOperationLocked(err error) bool {
	var e OperationLockedError
	return errors.As(err, &e)
}

// IsThrottleRejection checks if err is any throttler rejection
func IsThrottleRejection(err error) bool {
	return IsThrottleExceeded(err) || IsBatchTooLarge(err) || IsOperationLocked(err)
}
