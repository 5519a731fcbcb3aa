// Package faults defines the error taxonomy shared across the pipeline.
//
// DuplicateEvent is a control-flow signal, not a failure: callers consume it
// silently. Transient failures are retried only at the boundary that owns the
// timeout. Conflict and PartialCommit are surfaced to the user verbatim by the
// orchestrator; nothing below it translates errors into user-visible text.
package faults

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateEvent marks an event key that was already observed.
	ErrDuplicateEvent = errors.New("duplicate event")

	// ErrNotFound marks a missing document, project or record. For document
	// store reads a not-found is a valid "create" precondition, not a failure.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks an optimistic-concurrency precondition failure.
	ErrConflict = errors.New("revision conflict")
)

// ConflictError reports a failed expected-revision write. It is never retried
// automatically; a concurrent writer changed the document and a human should
// look before the system overwrites.
type ConflictError struct {
	Path             string
	ExpectedRevision string
	CurrentRevision  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("revision conflict at %s: expected %q, store has %q", e.Path, e.ExpectedRevision, e.CurrentRevision)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// TransientError wraps a timeout, rate limit or temporary unavailability from
// an external collaborator. The boundary that owns the call decides whether to
// retry; lower layers never loop on it.
type TransientError struct {
	System string
	Err    error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient %s failure: %v", e.System, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientError for the named external system.
func Transient(system string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{System: system, Err: err}
}

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// ConfigError marks a missing or invalid required setting. Fatal at startup or
// first use; never silently defaulted.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// CommitTargetError identifies which side of a dual-target commit failed.
type CommitTargetError struct {
	Target string // "archive", "processed" or "task"
	Path   string
	Err    error
}

func (e *CommitTargetError) Error() string {
	return fmt.Sprintf("commit target %s (%s) failed: %v", e.Target, e.Path, e.Err)
}

func (e *CommitTargetError) Unwrap() error { return e.Err }
