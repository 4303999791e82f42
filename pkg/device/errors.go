package device

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a module or output was not found, or no snapshot exists yet
	ErrNotFound = errors.New("output not found")

	// ErrTimeout indicates an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrNotConnected indicates the controller is not connected
	ErrNotConnected = errors.New("controller not connected")

	// ErrUnsupported indicates an operation is not supported by the device
	ErrUnsupported = errors.New("operation not supported")

	// ErrValidation indicates a value or document failed validation
	ErrValidation = errors.New("validation error")

	// ErrConnection indicates a transport-level failure
	ErrConnection = errors.New("connection error")

	// ErrAuthRejected indicates the device refused the credentials
	ErrAuthRejected = errors.New("authentication rejected")

	// ErrProtocol indicates frames failed structural validation
	ErrProtocol = errors.New("protocol error")

	// ErrCommandRejected indicates the device answered a command with an error frame
	ErrCommandRejected = errors.New("command rejected")

	// ErrCommandExpired indicates a queued command outlived its time to live
	ErrCommandExpired = errors.New("command expired")

	// ErrQueueFull indicates the command queue is at capacity
	ErrQueueFull = errors.New("command queue full")

	// ErrStopped indicates the session was stopped
	ErrStopped = errors.New("session stopped")

	// ErrSiblingDropped indicates an output turned off after a command to another output
	ErrSiblingDropped = errors.New("sibling output dropped")
)

// ErrCommandTimeout indicates a command was not acknowledged in time. It matches ErrTimeout.
var ErrCommandTimeout = fmt.Errorf("command %w", ErrTimeout)
