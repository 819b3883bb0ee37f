package Execution

import (
	"Warden/Models"
)

// Store is the persistence contract the engine runs against. Each command
// executes inside a single Atomically call so a transition never leaves a
// ScheduledTask IN_PROGRESS while its execution shows no first scan, or vice
// versa. Lookups return (nil, nil) when the row does not exist; the engine
// turns that into its own NotFoundError.
type Store interface {
	// Atomically runs fn against a transactional view of the store. fn's
	// writes commit together or not at all.
	Atomically(fn func(tx Store) error) error

	GetTask(id uint) (*Models.ScheduledTask, error)
	// CompareAndSetTaskStatus flips a task from one status to another and
	// optionally stamps the execution back-reference. Returns false without
	// writing when the task is no longer in the from status; the engine maps
	// that to PreconditionFailedError.
	CompareAndSetTaskStatus(id uint, from, to Models.TaskStatus, executionID *uint) (bool, error)

	CreateExecution(rec *Models.ExecutionRecord) error
	GetExecution(id uint) (*Models.ExecutionRecord, error)
	SaveExecution(rec *Models.ExecutionRecord) error

	GetSchedule(id uint) (*Models.MaintenanceSchedule, error)
	SaveSchedule(s *Models.MaintenanceSchedule) error

	ControlPointExists(id, tenantID uint) (bool, error)
	WorkerExists(id, tenantID uint) (bool, error)
}
