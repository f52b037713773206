// Package paraerr provides the error taxonomy shared by every Para component.
package paraerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the purposes of CLI exit codes and retry policy.
type Kind string

const (
	// KindValidation covers bad names, bad paths, missing required arguments.
	KindValidation Kind = "validation"
	// KindNotFound covers an absent session, branch, or worktree.
	KindNotFound Kind = "not_found"
	// KindConflict covers a branch that exists, a name in use, a target branch collision.
	KindConflict Kind = "conflict"
	// KindTransient covers a source-tree or container command that timed out.
	KindTransient Kind = "transient"
	// KindCorruptState covers a record present with its worktree absent, or vice versa.
	KindCorruptState Kind = "corrupt_state"
	// KindProtocol covers a malformed signal payload.
	KindProtocol Kind = "protocol"
	// KindFatal covers missing/unreadable configuration or an unwritable records directory.
	KindFatal Kind = "fatal"
)

// ExitCode maps a Kind to the CLI exit codes enumerated for the command surface.
func (k Kind) ExitCode() int {
	switch k {
	case KindValidation:
		return 2
	case KindNotFound:
		return 3
	case KindConflict:
		return 4
	default:
		return 1
	}
}

// Error is the error type returned by every Para package. It carries a short
// user-facing message, a classification, and an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error of the given kind with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error of the given kind wrapping err. If err is already a
// *Error, the innermost kind is preserved rather than overwritten, matching
// the propagation policy that a cause chain keeps its original classification.
func Wrap(kind Kind, message string, err error) *Error {
	if err == nil {
		return New(kind, message)
	}
	var inner *Error
	if errors.As(err, &inner) {
		kind = inner.Kind
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error   { return New(KindValidation, message) }
func NotFound(message string) *Error     { return New(KindNotFound, message) }
func Conflict(message string) *Error     { return New(KindConflict, message) }
func Transient(message string) *Error    { return New(KindTransient, message) }
func CorruptState(message string) *Error { return New(KindCorruptState, message) }
func Protocol(message string) *Error     { return New(KindProtocol, message) }
func Fatal(message string) *Error        { return New(KindFatal, message) }

// Is reports whether err classifies as kind, unwrapping through cause chains.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

func IsValidation(err error) bool   { return Is(err, KindValidation) }
func IsNotFound(err error) bool     { return Is(err, KindNotFound) }
func IsConflict(err error) bool     { return Is(err, KindConflict) }
func IsTransient(err error) bool    { return Is(err, KindTransient) }
func IsCorruptState(err error) bool { return Is(err, KindCorruptState) }
func IsProtocol(err error) bool     { return Is(err, KindProtocol) }
func IsFatal(err error) bool        { return Is(err, KindFatal) }
