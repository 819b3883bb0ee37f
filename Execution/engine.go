package Execution

import (
	"log"
	"time"

	"gorm.io/datatypes"

	"Warden/Models"
)

// MinDwellTime is the minimum gap between the two scans of a double-scan
// execution. Anything shorter is a trivially replayed scan and is rejected,
// not just flagged.
const MinDwellTime = 30 * time.Second

// Engine orchestrates scheduled-task and execution-record transitions in
// response to scan commands. Every command runs as one storage transaction;
// status flips go through compare-and-set so concurrent scans against the
// same task serialize to one winner.
type Engine struct {
	store Store
	clock Clock
}

func NewEngine(store Store, clock Clock) *Engine {
	return &Engine{store: store, clock: clock}
}

// SingleScanCommand records an instantaneous proof-of-presence: one scan,
// optionally with the form already attached.
type SingleScanCommand struct {
	TenantID          uint
	ControlPointID    uint
	WorkerID          uint
	ScheduledTaskID   *uint
	ScannedAt         time.Time
	SubmittedAt       *time.Time
	FormData          datatypes.JSON
	Observations      string
	IssuesFound       string
	CorrectiveActions string
	PhotoPath         string
}

// CreateExecution creates a completed single-scan execution. If the command
// names a scheduled task, the task moves straight from PENDING to COMPLETED;
// the IN_PROGRESS hop is not observable because both scans collapse into one
// instant. Tasks that require a double scan reject this path.
func (e *Engine) CreateExecution(cmd SingleScanCommand) (*Models.ExecutionRecord, error) {
	var rec *Models.ExecutionRecord
	err := e.store.Atomically(func(tx Store) error {
		if err := requireActive(tx, cmd.ControlPointID, cmd.WorkerID, cmd.TenantID); err != nil {
			return err
		}

		var task *Models.ScheduledTask
		if cmd.ScheduledTaskID != nil {
			var err error
			task, err = tx.GetTask(*cmd.ScheduledTaskID)
			if err != nil {
				return err
			}
			if task == nil {
				return &NotFoundError{Entity: "scheduled task", ID: *cmd.ScheduledTaskID}
			}
			if task.RequiresDoubleScan {
				return &InvalidStateError{
					Entity: "scheduled task", ID: task.ID,
					Status: string(task.Status), Command: "complete via single scan",
				}
			}
			if task.Status != Models.TaskPending {
				return &InvalidStateError{
					Entity: "scheduled task", ID: task.ID,
					Status: string(task.Status), Command: "complete via single scan",
				}
			}
		}

		rec = &Models.ExecutionRecord{
			TenantID:          cmd.TenantID,
			ScheduledTaskID:   cmd.ScheduledTaskID,
			ControlPointID:    cmd.ControlPointID,
			WorkerID:          cmd.WorkerID,
			Status:            Models.ExecutionCompleted,
			ScannedAt:         cmd.ScannedAt,
			SubmittedAt:       cmd.SubmittedAt,
			FormData:          cmd.FormData,
			Observations:      cmd.Observations,
			IssuesFound:       cmd.IssuesFound,
			CorrectiveActions: cmd.CorrectiveActions,
			PhotoPath:         cmd.PhotoPath,
		}
		completedAt := cmd.ScannedAt
		if cmd.SubmittedAt != nil {
			completedAt = *cmd.SubmittedAt
			flags := EvaluateSingleScan(cmd.ScannedAt, *cmd.SubmittedAt)
			rec.QuickEntry = flags.QuickEntry
			rec.DeferredEntry = flags.DeferredEntry
		}
		rec.CompletedAt = &completedAt

		if err := tx.CreateExecution(rec); err != nil {
			return err
		}

		if task != nil {
			ok, err := tx.CompareAndSetTaskStatus(task.ID, Models.TaskPending, Models.TaskCompleted, &rec.ID)
			if err != nil {
				return err
			}
			if !ok {
				return &PreconditionFailedError{Entity: "scheduled task", ID: task.ID, Command: "complete"}
			}
		}

		if rec.Flagged() {
			log.Printf("execution %d flagged: quick=%v deferred=%v", rec.ID, rec.QuickEntry, rec.DeferredEntry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// StartDoubleScanCommand opens a work session at a control point.
type StartDoubleScanCommand struct {
	TenantID              uint
	ScheduledTaskID       *uint
	MaintenanceScheduleID *uint
	ControlPointID        uint
	WorkerID              uint
	FirstScanAt           time.Time
}

// StartDoubleScan creates an execution carrying only the first scan and moves
// the linked task (if any) from PENDING to IN_PROGRESS. Two concurrent starts
// against the same task yield one success; the loser observes the task
// already started.
func (e *Engine) StartDoubleScan(cmd StartDoubleScanCommand) (*Models.ExecutionRecord, error) {
	var rec *Models.ExecutionRecord
	err := e.store.Atomically(func(tx Store) error {
		ok, err := tx.ControlPointExists(cmd.ControlPointID, cmd.TenantID)
		if err != nil {
			return err
		}
		if !ok {
			return &NotFoundError{Entity: "control point", ID: cmd.ControlPointID}
		}
		ok, err = tx.WorkerExists(cmd.WorkerID, cmd.TenantID)
		if err != nil {
			return err
		}
		if !ok {
			return &NotFoundError{Entity: "worker", ID: cmd.WorkerID}
		}

		var task *Models.ScheduledTask
		if cmd.ScheduledTaskID != nil {
			task, err = tx.GetTask(*cmd.ScheduledTaskID)
			if err != nil {
				return err
			}
			if task == nil {
				return &NotFoundError{Entity: "scheduled task", ID: *cmd.ScheduledTaskID}
			}
			if !task.RequiresDoubleScan {
				return &InvalidStateError{
					Entity: "scheduled task", ID: task.ID,
					Status: string(task.Status), Command: "start double scan on single-scan task",
				}
			}
			if task.Status != Models.TaskPending {
				return &InvalidStateError{
					Entity: "scheduled task", ID: task.ID,
					Status: string(task.Status), Command: "start double scan",
				}
			}
		}

		firstScan := cmd.FirstScanAt
		rec = &Models.ExecutionRecord{
			TenantID:              cmd.TenantID,
			ScheduledTaskID:       cmd.ScheduledTaskID,
			MaintenanceScheduleID: cmd.MaintenanceScheduleID,
			ControlPointID:        cmd.ControlPointID,
			WorkerID:              cmd.WorkerID,
			Status:                Models.ExecutionStarted,
			ScannedAt:             firstScan,
			FirstScanAt:           &firstScan,
			StartedAt:             &firstScan,
		}
		if err := tx.CreateExecution(rec); err != nil {
			return err
		}

		if task != nil {
			ok, err := tx.CompareAndSetTaskStatus(task.ID, Models.TaskPending, Models.TaskInProgress, &rec.ID)
			if err != nil {
				return err
			}
			if !ok {
				return &PreconditionFailedError{Entity: "scheduled task", ID: task.ID, Command: "start double scan"}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// CompleteDoubleScanCommand closes a work session with the second scan and
// the submitted form.
type CompleteDoubleScanCommand struct {
	ExecutionID       uint
	SecondScanAt      time.Time
	FormData          datatypes.JSON
	Observations      string
	IssuesFound       string
	CorrectiveActions string
	PhotoPath         string
}

// CompleteDoubleScan stamps the second scan, attaches the form and evaluates
// the generic double-scan fraud thresholds. Scans closer than MinDwellTime to
// the first are rejected outright.
func (e *Engine) CompleteDoubleScan(cmd CompleteDoubleScanCommand) (*Models.ExecutionRecord, error) {
	var rec *Models.ExecutionRecord
	err := e.store.Atomically(func(tx Store) error {
		var err error
		rec, err = tx.GetExecution(cmd.ExecutionID)
		if err != nil {
			return err
		}
		if rec == nil {
			return &NotFoundError{Entity: "execution", ID: cmd.ExecutionID}
		}
		if rec.Status.Terminal() {
			return &InvalidStateError{
				Entity: "execution", ID: rec.ID,
				Status: string(rec.Status), Command: "complete double scan",
			}
		}
		if rec.FirstScanAt == nil {
			return &InvalidStateError{
				Entity: "execution", ID: rec.ID,
				Status: string(rec.Status), Command: "complete without first scan",
			}
		}
		if rec.SecondScanAt != nil {
			return &InvalidStateError{
				Entity: "execution", ID: rec.ID,
				Status: string(rec.Status), Command: "complete twice",
			}
		}
		if cmd.SecondScanAt.Sub(*rec.FirstScanAt) < MinDwellTime {
			return &ValidationError{Field: "second_scan_at", Reason: "insufficient elapsed time between scans"}
		}

		secondScan := cmd.SecondScanAt
		rec.SecondScanAt = &secondScan
		rec.SubmittedAt = &secondScan
		rec.CompletedAt = &secondScan
		rec.FormData = cmd.FormData
		rec.Observations = cmd.Observations
		rec.IssuesFound = cmd.IssuesFound
		rec.CorrectiveActions = cmd.CorrectiveActions
		rec.PhotoPath = cmd.PhotoPath
		rec.ActualDurationSec = int64(secondScan.Sub(*rec.FirstScanAt).Seconds())
		rec.Status = Models.ExecutionCompleted

		flags := EvaluateDoubleScan(GenericDoubleScan, *rec.FirstScanAt, secondScan)
		rec.QuickEntry = flags.QuickEntry
		rec.DeferredEntry = flags.DeferredEntry

		if err := tx.SaveExecution(rec); err != nil {
			return err
		}

		if rec.ScheduledTaskID != nil {
			if err := completeLinkedTask(tx, *rec.ScheduledTaskID, rec.ID); err != nil {
				return err
			}
		}

		if rec.Flagged() {
			log.Printf("execution %d flagged: quick=%v deferred=%v", rec.ID, rec.QuickEntry, rec.DeferredEntry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// CompleteMaintenanceCommand finalizes a maintenance execution. An explicit
// NextMaintenanceDate wins over the recurrence calculator.
type CompleteMaintenanceCommand struct {
	ExecutionID         uint
	SecondScanAt        *time.Time
	FormData            datatypes.JSON
	Observations        string
	IssuesFound         string
	CorrectiveActions   string
	PhotoPath           string
	NextMaintenanceDate *time.Time
}

// CompleteMaintenanceExecution completes a STARTED or IN_PROGRESS maintenance
// execution, evaluates the maintenance double-scan thresholds when both scans
// are present, and advances the owning schedule's last/next maintenance
// dates.
func (e *Engine) CompleteMaintenanceExecution(cmd CompleteMaintenanceCommand) (*Models.ExecutionRecord, error) {
	var rec *Models.ExecutionRecord
	err := e.store.Atomically(func(tx Store) error {
		var err error
		rec, err = tx.GetExecution(cmd.ExecutionID)
		if err != nil {
			return err
		}
		if rec == nil {
			return &NotFoundError{Entity: "execution", ID: cmd.ExecutionID}
		}
		if rec.Status != Models.ExecutionStarted && rec.Status != Models.ExecutionInProgress {
			return &InvalidStateError{
				Entity: "execution", ID: rec.ID,
				Status: string(rec.Status), Command: "complete maintenance",
			}
		}

		now := e.clock.Now()
		if cmd.SecondScanAt != nil && rec.SecondScanAt == nil {
			if rec.FirstScanAt != nil && !cmd.SecondScanAt.After(*rec.FirstScanAt) {
				return &ValidationError{Field: "second_scan_at", Reason: "must be after the first scan"}
			}
			rec.SecondScanAt = cmd.SecondScanAt
		}
		rec.CompletedAt = &now
		if rec.SubmittedAt == nil {
			rec.SubmittedAt = &now
		}
		if rec.StartedAt != nil {
			rec.ActualDurationSec = int64(now.Sub(*rec.StartedAt).Seconds())
		}
		if len(cmd.FormData) > 0 {
			rec.FormData = cmd.FormData
		}
		if cmd.Observations != "" {
			rec.Observations = cmd.Observations
		}
		if cmd.IssuesFound != "" {
			rec.IssuesFound = cmd.IssuesFound
		}
		if cmd.CorrectiveActions != "" {
			rec.CorrectiveActions = cmd.CorrectiveActions
		}
		if cmd.PhotoPath != "" {
			rec.PhotoPath = cmd.PhotoPath
		}
		if rec.FirstScanAt != nil && rec.SecondScanAt != nil {
			flags := EvaluateDoubleScan(MaintenanceDoubleScan, *rec.FirstScanAt, *rec.SecondScanAt)
			rec.QuickEntry = flags.QuickEntry
			rec.DeferredEntry = flags.DeferredEntry
		}
		rec.Status = Models.ExecutionCompleted

		if err := tx.SaveExecution(rec); err != nil {
			return err
		}

		if rec.ScheduledTaskID != nil {
			if err := completeLinkedTask(tx, *rec.ScheduledTaskID, rec.ID); err != nil {
				return err
			}
		}

		if rec.MaintenanceScheduleID != nil {
			schedule, err := tx.GetSchedule(*rec.MaintenanceScheduleID)
			if err != nil {
				return err
			}
			if schedule == nil {
				return &NotFoundError{Entity: "maintenance schedule", ID: *rec.MaintenanceScheduleID}
			}
			schedule.LastMaintenanceDate = &now
			if cmd.NextMaintenanceDate != nil {
				schedule.NextMaintenanceDate = cmd.NextMaintenanceDate
			} else {
				schedule.NextMaintenanceDate = NextDueDate(now, schedule.Frequency, schedule.Interval)
			}
			if err := tx.SaveSchedule(schedule); err != nil {
				return err
			}
		}

		if rec.Flagged() {
			log.Printf("maintenance execution %d flagged: quick=%v deferred=%v", rec.ID, rec.QuickEntry, rec.DeferredEntry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// AbortExecution marks a non-terminal execution ABORTED and cancels its
// linked task. Aborting an already-aborted execution is a no-op success;
// aborting a completed one fails, completed evidence is immutable.
func (e *Engine) AbortExecution(executionID uint, reason string) (*Models.ExecutionRecord, error) {
	var rec *Models.ExecutionRecord
	err := e.store.Atomically(func(tx Store) error {
		var err error
		rec, err = tx.GetExecution(executionID)
		if err != nil {
			return err
		}
		if rec == nil {
			return &NotFoundError{Entity: "execution", ID: executionID}
		}
		switch rec.Status {
		case Models.ExecutionAborted:
			return nil // idempotent
		case Models.ExecutionCompleted:
			return &InvalidStateError{
				Entity: "execution", ID: rec.ID,
				Status: string(rec.Status), Command: "abort",
			}
		}

		rec.Status = Models.ExecutionAborted
		if reason != "" {
			if rec.Observations != "" {
				rec.Observations += "\n"
			}
			rec.Observations += "aborted: " + reason
		}
		if err := tx.SaveExecution(rec); err != nil {
			return err
		}

		if rec.ScheduledTaskID != nil {
			task, err := tx.GetTask(*rec.ScheduledTaskID)
			if err != nil {
				return err
			}
			if task == nil {
				return &NotFoundError{Entity: "scheduled task", ID: *rec.ScheduledTaskID}
			}
			switch task.Status {
			case Models.TaskCancelled:
				// already cancelled, nothing to do
			case Models.TaskCompleted:
				return &InvalidStateError{
					Entity: "scheduled task", ID: task.ID,
					Status: string(task.Status), Command: "cancel",
				}
			default:
				ok, err := tx.CompareAndSetTaskStatus(task.ID, task.Status, Models.TaskCancelled, nil)
				if err != nil {
					return err
				}
				if !ok {
					return &PreconditionFailedError{Entity: "scheduled task", ID: task.ID, Command: "cancel"}
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// completeLinkedTask flips a linked task to COMPLETED from whatever
// non-terminal status it is in.
func completeLinkedTask(tx Store, taskID, executionID uint) error {
	task, err := tx.GetTask(taskID)
	if err != nil {
		return err
	}
	if task == nil {
		return &NotFoundError{Entity: "scheduled task", ID: taskID}
	}
	if task.Status.Terminal() {
		return &InvalidStateError{
			Entity: "scheduled task", ID: task.ID,
			Status: string(task.Status), Command: "complete",
		}
	}
	ok, err := tx.CompareAndSetTaskStatus(task.ID, task.Status, Models.TaskCompleted, &executionID)
	if err != nil {
		return err
	}
	if !ok {
		return &PreconditionFailedError{Entity: "scheduled task", ID: task.ID, Command: "complete"}
	}
	return nil
}

// requireActive checks the single-scan existence preconditions, reported as
// validation errors so the mobile client treats them as fixable input.
func requireActive(tx Store, controlPointID, workerID, tenantID uint) error {
	ok, err := tx.ControlPointExists(controlPointID, tenantID)
	if err != nil {
		return err
	}
	if !ok {
		return &ValidationError{Field: "control_point_id", Reason: "unknown or inactive control point"}
	}
	ok, err = tx.WorkerExists(workerID, tenantID)
	if err != nil {
		return err
	}
	if !ok {
		return &ValidationError{Field: "worker_id", Reason: "unknown or inactive worker"}
	}
	return nil
}
