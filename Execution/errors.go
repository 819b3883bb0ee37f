package Execution

import "fmt"

// The engine surfaces four error kinds, all carrying enough context for the
// operator in the field to understand why a scan was rejected. None of them
// is ever swallowed or auto-corrected: a failed double-scan attempt must stay
// visible.

// ValidationError means malformed or missing input: unknown control point or
// worker, elapsed time below the minimum dwell. Recoverable by resubmitting
// corrected input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NotFoundError means a referenced entity does not exist.
type NotFoundError struct {
	Entity string
	ID     uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// InvalidStateError means the command is forbidden in the entity's current
// state: double-starting a task, completing without a first scan, aborting a
// completed record.
type InvalidStateError struct {
	Entity  string
	ID      uint
	Status  string
	Command string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s %d is %s, cannot %s", e.Entity, e.ID, e.Status, e.Command)
}

// PreconditionFailedError means a concurrent command won the race: the status
// changed between the read and the commit.
type PreconditionFailedError struct {
	Entity  string
	ID      uint
	Command string
}

func (e *PreconditionFailedError) Error() string {
	return fmt.Sprintf("%s %d was modified concurrently during %s", e.Entity, e.ID, e.Command)
}
