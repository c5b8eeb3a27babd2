// FILE: logweave/src/internal/core/errors.go
package core

import (
	"errors"
	"fmt"
)

var (
	// ErrFrozen is matched by every FrozenConfigurationError
	ErrFrozen = errors.New("configuration is frozen")
	// ErrClosed is returned by writers and engines used after Close or Shutdown
	ErrClosed = errors.New("already closed")
	// ErrQueueFull is returned to producers of a writer using the reject policy
	ErrQueueFull = errors.New("writer queue is full")
)

// PatternSyntaxError reports a malformed format pattern
type PatternSyntaxError struct {
	Pattern string
	Pos     int
	Reason  string
	Err     error
}

func (e *PatternSyntaxError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid pattern %q at offset %d: %s: %v", e.Pattern, e.Pos, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid pattern %q at offset %d: %s", e.Pattern, e.Pos, e.Reason)
}

func (e *PatternSyntaxError) Unwrap() error { return e.Err }

// UnknownPlaceholderError reports a placeholder name no plugin provides
type UnknownPlaceholderError struct {
	Name string
}

func (e *UnknownPlaceholderError) Error() string {
	return fmt.Sprintf("unknown placeholder: %q", e.Name)
}

// UnknownWriterError reports a writer name no plugin provides
type UnknownWriterError struct {
	Name string
}

func (e *UnknownWriterError) Error() string {
	return fmt.Sprintf("unknown writer: %q", e.Name)
}

// WriterConfigurationError reports a known writer with missing or invalid parameters
type WriterConfigurationError struct {
	Writer string
	Key    string
	Err    error
}

func (e *WriterConfigurationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("writer %q: %v", e.Writer, e.Err)
	}
	return fmt.Sprintf("writer %q: key %q: %v", e.Writer, e.Key, e.Err)
}

func (e *WriterConfigurationError) Unwrap() error { return e.Err }

// FrozenConfigurationError is returned by mutations after the configuration was frozen
type FrozenConfigurationError struct {
	Key string
}

func (e *FrozenConfigurationError) Error() string {
	return fmt.Sprintf("cannot set %q: the configuration has already been applied and cannot be modified anymore", e.Key)
}

func (e *FrozenConfigurationError) Is(target error) bool { return target == ErrFrozen }

// RotationError reports a failure to roll a file-backed writer over to a new file
type RotationError struct {
	Path string
	Err  error
}

func (e *RotationError) Error() string {
	return fmt.Sprintf("failed to rotate to %q: %v", e.Path, e.Err)
}

func (e *RotationError) Unwrap() error { return e.Err }

// WriterRuntimeError wraps any failure of a single write, including recovered panics
type WriterRuntimeError struct {
	Writer string
	Err    error
}

func (e *WriterRuntimeError) Error() string {
	return fmt.Sprintf("writer %q failed: %v", e.Writer, e.Err)
}

func (e *WriterRuntimeError) Unwrap() error { return e.Err }
