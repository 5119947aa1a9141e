package common

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	Internal ErrorKind = iota
	InvalidArgument
	Incompatible
	UnknownIdentity
	SnapshotUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid argument"
	case Incompatible:
		return "incompatible options"
	case UnknownIdentity:
		return "unknown identity"
	case SnapshotUnavailable:
		return "snapshot unavailable"
	default:
		return "internal error"
	}
}

// A ToolError carries the kind that decides how main reports the error and which exit code it uses.
type ToolError struct {
	Kind ErrorKind
	Err  error
}

func (e *ToolError) Error() string {
	return e.Err.Error()
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

func (e *ToolError) ExitCode() int {
	if e.Kind == SnapshotUnavailable {
		return 2
	}
	return 1
}

// Usage errors are reported with a pointer to --help.
func (e *ToolError) IsUsage() bool {
	return e.Kind == InvalidArgument || e.Kind == Incompatible
}

func NewInvalidArgument(format string, args ...any) error {
	return &ToolError{InvalidArgument, fmt.Errorf(format, args...)}
}

func NewIncompatible(format string, args ...any) error {
	return &ToolError{Incompatible, fmt.Errorf(format, args...)}
}

func NewUnknownIdentity(format string, args ...any) error {
	return &ToolError{UnknownIdentity, fmt.Errorf(format, args...)}
}

func NewInternal(format string, args ...any) error {
	return &ToolError{Internal, fmt.Errorf(format, args...)}
}

// Wrap a loader error.  ErrNoChange-like sentinels must be filtered out by the caller first.
func NewSnapshotUnavailable(err error) error {
	return &ToolError{SnapshotUnavailable, err}
}

// AsToolError returns the innermost ToolError in the chain, or an Internal one wrapping err.
func AsToolError(err error) *ToolError {
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}
	return &ToolError{Internal, err}
}

// ExitCode maps any error to a process exit code; nil is success.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return AsToolError(err).ExitCode()
}
