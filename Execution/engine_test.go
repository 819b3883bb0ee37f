package Execution

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Warden/Models"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

// fakeStore is an in-memory Store. Atomically serializes commands on one
// mutex, which mirrors the row-lock/optimistic-commit serialization the
// database store provides.
type fakeStore struct {
	mu            sync.Mutex
	tasks         map[uint]*Models.ScheduledTask
	executions    map[uint]*Models.ExecutionRecord
	schedules     map[uint]*Models.MaintenanceSchedule
	controlPoints map[uint]bool
	workers       map[uint]bool
	nextID        uint
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tasks:         map[uint]*Models.ScheduledTask{},
		executions:    map[uint]*Models.ExecutionRecord{},
		schedules:     map[uint]*Models.MaintenanceSchedule{},
		controlPoints: map[uint]bool{},
		workers:       map[uint]bool{},
	}
}

func (s *fakeStore) Atomically(fn func(tx Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s)
}

func (s *fakeStore) GetTask(id uint) (*Models.ScheduledTask, error) {
	task, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	cp := *task
	return &cp, nil
}

func (s *fakeStore) CompareAndSetTaskStatus(id uint, from, to Models.TaskStatus, executionID *uint) (bool, error) {
	task, ok := s.tasks[id]
	if !ok || task.Status != from {
		return false, nil
	}
	task.Status = to
	if executionID != nil {
		task.ExecutionID = executionID
	}
	return true, nil
}

func (s *fakeStore) CreateExecution(rec *Models.ExecutionRecord) error {
	s.nextID++
	rec.ID = s.nextID
	cp := *rec
	s.executions[rec.ID] = &cp
	return nil
}

func (s *fakeStore) GetExecution(id uint) (*Models.ExecutionRecord, error) {
	rec, ok := s.executions[id]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (s *fakeStore) SaveExecution(rec *Models.ExecutionRecord) error {
	cp := *rec
	s.executions[rec.ID] = &cp
	return nil
}

func (s *fakeStore) GetSchedule(id uint) (*Models.MaintenanceSchedule, error) {
	schedule, ok := s.schedules[id]
	if !ok {
		return nil, nil
	}
	cp := *schedule
	return &cp, nil
}

func (s *fakeStore) SaveSchedule(schedule *Models.MaintenanceSchedule) error {
	cp := *schedule
	s.schedules[schedule.ID] = &cp
	return nil
}

func (s *fakeStore) ControlPointExists(id, tenantID uint) (bool, error) {
	return s.controlPoints[id], nil
}

func (s *fakeStore) WorkerExists(id, tenantID uint) (bool, error) {
	return s.workers[id], nil
}

const (
	tenantID       = uint(1)
	controlPointID = uint(10)
	workerID       = uint(20)
)

func newTestEngine(now time.Time) (*Engine, *fakeStore, *fakeClock) {
	store := newFakeStore()
	store.controlPoints[controlPointID] = true
	store.workers[workerID] = true
	clock := &fakeClock{now: now}
	return NewEngine(store, clock), store, clock
}

func pendingTask(store *fakeStore, id uint, doubleScan bool) *Models.ScheduledTask {
	task := &Models.ScheduledTask{
		TenantID:           tenantID,
		WorkerID:           workerID,
		ControlPointID:     controlPointID,
		ScheduledDate:      scanBase,
		RequiresDoubleScan: doubleScan,
		Status:             Models.TaskPending,
	}
	task.ID = id
	store.tasks[id] = task
	return task
}

func TestCreateExecutionSingleScan(t *testing.T) {
	engine, store, _ := newTestEngine(scanBase)
	task := pendingTask(store, 1, false)

	submitted := scanBase.Add(2 * time.Minute)
	rec, err := engine.CreateExecution(SingleScanCommand{
		TenantID:        tenantID,
		ControlPointID:  controlPointID,
		WorkerID:        workerID,
		ScheduledTaskID: &task.ID,
		ScannedAt:       scanBase,
		SubmittedAt:     &submitted,
		FormData:        []byte(`{"reading": 42}`),
	})
	require.NoError(t, err)
	assert.Equal(t, Models.ExecutionCompleted, rec.Status)
	assert.False(t, rec.QuickEntry)
	assert.False(t, rec.DeferredEntry)

	stored := store.tasks[task.ID]
	assert.Equal(t, Models.TaskCompleted, stored.Status)
	require.NotNil(t, stored.ExecutionID)
	assert.Equal(t, rec.ID, *stored.ExecutionID)
}

func TestCreateExecutionFlagsQuickEntry(t *testing.T) {
	engine, _, _ := newTestEngine(scanBase)
	submitted := scanBase.Add(2 * time.Second)
	rec, err := engine.CreateExecution(SingleScanCommand{
		TenantID:       tenantID,
		ControlPointID: controlPointID,
		WorkerID:       workerID,
		ScannedAt:      scanBase,
		SubmittedAt:    &submitted,
	})
	require.NoError(t, err)
	assert.True(t, rec.QuickEntry)
	assert.False(t, rec.DeferredEntry)
	// flags are advisory, the operation still succeeded
	assert.Equal(t, Models.ExecutionCompleted, rec.Status)
}

func TestCreateExecutionFlagsDeferredEntry(t *testing.T) {
	engine, _, _ := newTestEngine(scanBase)
	submitted := scanBase.Add(45 * time.Minute)
	rec, err := engine.CreateExecution(SingleScanCommand{
		TenantID:       tenantID,
		ControlPointID: controlPointID,
		WorkerID:       workerID,
		ScannedAt:      scanBase,
		SubmittedAt:    &submitted,
	})
	require.NoError(t, err)
	assert.False(t, rec.QuickEntry)
	assert.True(t, rec.DeferredEntry)
}

func TestCreateExecutionUnknownControlPoint(t *testing.T) {
	engine, _, _ := newTestEngine(scanBase)
	_, err := engine.CreateExecution(SingleScanCommand{
		TenantID:       tenantID,
		ControlPointID: 999,
		WorkerID:       workerID,
		ScannedAt:      scanBase,
	})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "control_point_id", vErr.Field)
}

func TestCreateExecutionRejectsDoubleScanTask(t *testing.T) {
	engine, store, _ := newTestEngine(scanBase)
	task := pendingTask(store, 1, true)

	_, err := engine.CreateExecution(SingleScanCommand{
		TenantID:        tenantID,
		ControlPointID:  controlPointID,
		WorkerID:        workerID,
		ScheduledTaskID: &task.ID,
		ScannedAt:       scanBase,
	})
	var sErr *InvalidStateError
	require.ErrorAs(t, err, &sErr)
	assert.Equal(t, Models.TaskPending, store.tasks[task.ID].Status)
}

func TestStartDoubleScan(t *testing.T) {
	engine, store, _ := newTestEngine(scanBase)
	task := pendingTask(store, 1, true)

	rec, err := engine.StartDoubleScan(StartDoubleScanCommand{
		TenantID:        tenantID,
		ScheduledTaskID: &task.ID,
		ControlPointID:  controlPointID,
		WorkerID:        workerID,
		FirstScanAt:     scanBase,
	})
	require.NoError(t, err)
	require.NotNil(t, rec.FirstScanAt)
	assert.Equal(t, scanBase, *rec.FirstScanAt)
	assert.Nil(t, rec.SecondScanAt)
	assert.Nil(t, rec.SubmittedAt)
	assert.Equal(t, Models.ExecutionStarted, rec.Status)

	stored := store.tasks[task.ID]
	assert.Equal(t, Models.TaskInProgress, stored.Status)
	require.NotNil(t, stored.ExecutionID)
	assert.Equal(t, rec.ID, *stored.ExecutionID)
}

func TestStartDoubleScanTaskNotPending(t *testing.T) {
	engine, store, _ := newTestEngine(scanBase)
	task := pendingTask(store, 1, true)
	task.Status = Models.TaskInProgress

	_, err := engine.StartDoubleScan(StartDoubleScanCommand{
		TenantID:        tenantID,
		ScheduledTaskID: &task.ID,
		ControlPointID:  controlPointID,
		WorkerID:        workerID,
		FirstScanAt:     scanBase,
	})
	var sErr *InvalidStateError
	require.ErrorAs(t, err, &sErr)
}

func TestStartDoubleScanSingleScanTask(t *testing.T) {
	engine, store, _ := newTestEngine(scanBase)
	task := pendingTask(store, 1, false)

	_, err := engine.StartDoubleScan(StartDoubleScanCommand{
		TenantID:        tenantID,
		ScheduledTaskID: &task.ID,
		ControlPointID:  controlPointID,
		WorkerID:        workerID,
		FirstScanAt:     scanBase,
	})
	var sErr *InvalidStateError
	require.ErrorAs(t, err, &sErr)
}

func TestStartDoubleScanMissingTask(t *testing.T) {
	engine, _, _ := newTestEngine(scanBase)
	missing := uint(404)
	_, err := engine.StartDoubleScan(StartDoubleScanCommand{
		TenantID:        tenantID,
		ScheduledTaskID: &missing,
		ControlPointID:  controlPointID,
		WorkerID:        workerID,
		FirstScanAt:     scanBase,
	})
	var nfErr *NotFoundError
	require.ErrorAs(t, err, &nfErr)
	assert.Equal(t, "scheduled task", nfErr.Entity)
}

func startedExecution(t *testing.T, engine *Engine, store *fakeStore, taskID uint) *Models.ExecutionRecord {
	t.Helper()
	task := pendingTask(store, taskID, true)
	rec, err := engine.StartDoubleScan(StartDoubleScanCommand{
		TenantID:        tenantID,
		ScheduledTaskID: &task.ID,
		ControlPointID:  controlPointID,
		WorkerID:        workerID,
		FirstScanAt:     scanBase,
	})
	require.NoError(t, err)
	return rec
}

func TestCompleteDoubleScanBelowMinimumDwell(t *testing.T) {
	engine, store, _ := newTestEngine(scanBase)
	rec := startedExecution(t, engine, store, 1)

	_, err := engine.CompleteDoubleScan(CompleteDoubleScanCommand{
		ExecutionID:  rec.ID,
		SecondScanAt: scanBase.Add(18 * time.Second),
	})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Reason, "insufficient elapsed time")

	// the rejected attempt must not complete the task
	assert.Equal(t, Models.TaskInProgress, store.tasks[1].Status)
	assert.Nil(t, store.executions[rec.ID].SecondScanAt)
}

func TestCompleteDoubleScan(t *testing.T) {
	engine, store, _ := newTestEngine(scanBase)
	rec := startedExecution(t, engine, store, 1)

	second := scanBase.Add(40 * time.Second)
	completed, err := engine.CompleteDoubleScan(CompleteDoubleScanCommand{
		ExecutionID:  rec.ID,
		SecondScanAt: second,
		FormData:     []byte(`{"state":"ok"}`),
		Observations: "valve seals checked",
	})
	require.NoError(t, err)
	assert.Equal(t, Models.ExecutionCompleted, completed.Status)
	require.NotNil(t, completed.SecondScanAt)
	assert.Equal(t, second, *completed.SecondScanAt)
	assert.Equal(t, second, *completed.SubmittedAt)
	// 40s dwell clears the 30s minimum but is under the 1-minute round
	// threshold, so it completes flagged
	assert.True(t, completed.QuickEntry)
	assert.False(t, completed.DeferredEntry)

	assert.Equal(t, Models.TaskCompleted, store.tasks[1].Status)
}

func TestCompleteDoubleScanUnflaggedWindow(t *testing.T) {
	engine, store, _ := newTestEngine(scanBase)
	rec := startedExecution(t, engine, store, 1)

	completed, err := engine.CompleteDoubleScan(CompleteDoubleScanCommand{
		ExecutionID:  rec.ID,
		SecondScanAt: scanBase.Add(12 * time.Minute),
	})
	require.NoError(t, err)
	assert.False(t, completed.QuickEntry)
	assert.False(t, completed.DeferredEntry)
}

func TestCompleteDoubleScanDeferred(t *testing.T) {
	engine, store, _ := newTestEngine(scanBase)
	rec := startedExecution(t, engine, store, 1)

	completed, err := engine.CompleteDoubleScan(CompleteDoubleScanCommand{
		ExecutionID:  rec.ID,
		SecondScanAt: scanBase.Add(3 * time.Hour),
	})
	require.NoError(t, err)
	assert.False(t, completed.QuickEntry)
	assert.True(t, completed.DeferredEntry)
	// deferred is advisory, completion still went through
	assert.Equal(t, Models.TaskCompleted, store.tasks[1].Status)
}

func TestCompleteDoubleScanTwice(t *testing.T) {
	engine, store, _ := newTestEngine(scanBase)
	rec := startedExecution(t, engine, store, 1)

	_, err := engine.CompleteDoubleScan(CompleteDoubleScanCommand{
		ExecutionID:  rec.ID,
		SecondScanAt: scanBase.Add(5 * time.Minute),
	})
	require.NoError(t, err)

	_, err = engine.CompleteDoubleScan(CompleteDoubleScanCommand{
		ExecutionID:  rec.ID,
		SecondScanAt: scanBase.Add(10 * time.Minute),
	})
	var sErr *InvalidStateError
	require.ErrorAs(t, err, &sErr)
}

func TestCompleteDoubleScanWithoutFirstScan(t *testing.T) {
	engine, store, _ := newTestEngine(scanBase)
	rec := &Models.ExecutionRecord{
		TenantID:       tenantID,
		ControlPointID: controlPointID,
		WorkerID:       workerID,
		Status:         Models.ExecutionStarted,
		ScannedAt:      scanBase,
	}
	require.NoError(t, store.CreateExecution(rec))

	_, err := engine.CompleteDoubleScan(CompleteDoubleScanCommand{
		ExecutionID:  rec.ID,
		SecondScanAt: scanBase.Add(5 * time.Minute),
	})
	var sErr *InvalidStateError
	require.ErrorAs(t, err, &sErr)
}

func TestDoubleScanTaskNeverCompletesWithoutBothScans(t *testing.T) {
	engine, store, _ := newTestEngine(scanBase)
	rec := startedExecution(t, engine, store, 1)

	// a too-early second scan is rejected; task must not complete
	_, err := engine.CompleteDoubleScan(CompleteDoubleScanCommand{
		ExecutionID:  rec.ID,
		SecondScanAt: scanBase.Add(10 * time.Second),
	})
	require.Error(t, err)
	assert.NotEqual(t, Models.TaskCompleted, store.tasks[1].Status)

	// once completed properly, both scans are on the record
	_, err = engine.CompleteDoubleScan(CompleteDoubleScanCommand{
		ExecutionID:  rec.ID,
		SecondScanAt: scanBase.Add(10 * time.Minute),
	})
	require.NoError(t, err)
	stored := store.executions[rec.ID]
	assert.Equal(t, Models.TaskCompleted, store.tasks[1].Status)
	assert.NotNil(t, stored.FirstScanAt)
	assert.NotNil(t, stored.SecondScanAt)
}

func TestConcurrentStartDoubleScanOneWinner(t *testing.T) {
	engine, store, _ := newTestEngine(scanBase)
	task := pendingTask(store, 1, true)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.StartDoubleScan(StartDoubleScanCommand{
				TenantID:        tenantID,
				ScheduledTaskID: &task.ID,
				ControlPointID:  controlPointID,
				WorkerID:        workerID,
				FirstScanAt:     scanBase,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var successes, rejections int
	for err := range errs {
		if err == nil {
			successes++
			continue
		}
		var sErr *InvalidStateError
		var pErr *PreconditionFailedError
		if assert.True(t, errorsAsEither(err, &sErr, &pErr), "unexpected error kind: %v", err) {
			rejections++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, rejections)
	assert.Equal(t, Models.TaskInProgress, store.tasks[task.ID].Status)
}

func errorsAsEither(err error, sErr **InvalidStateError, pErr **PreconditionFailedError) bool {
	if e, ok := err.(*InvalidStateError); ok {
		*sErr = e
		return true
	}
	if e, ok := err.(*PreconditionFailedError); ok {
		*pErr = e
		return true
	}
	return false
}

func TestCompleteMaintenanceExecution(t *testing.T) {
	engine, store, clock := newTestEngine(scanBase)
	schedule := &Models.MaintenanceSchedule{
		TenantID:       tenantID,
		ControlPointID: controlPointID,
		Frequency:      Models.FrequencyMonthly,
		Interval:       1,
	}
	schedule.ID = 7
	store.schedules[schedule.ID] = schedule

	task := pendingTask(store, 1, true)
	rec, err := engine.StartDoubleScan(StartDoubleScanCommand{
		TenantID:              tenantID,
		ScheduledTaskID:       &task.ID,
		MaintenanceScheduleID: &schedule.ID,
		ControlPointID:        controlPointID,
		WorkerID:              workerID,
		FirstScanAt:           scanBase,
	})
	require.NoError(t, err)

	clock.now = scanBase.Add(90 * time.Minute)
	second := scanBase.Add(85 * time.Minute)
	completed, err := engine.CompleteMaintenanceExecution(CompleteMaintenanceCommand{
		ExecutionID:  rec.ID,
		SecondScanAt: &second,
		FormData:     []byte(`{"parts":["filter"]}`),
	})
	require.NoError(t, err)
	assert.Equal(t, Models.ExecutionCompleted, completed.Status)
	assert.Equal(t, int64((90 * time.Minute).Seconds()), completed.ActualDurationSec)
	// 85 minutes between scans sits inside the maintenance window
	assert.False(t, completed.QuickEntry)
	assert.False(t, completed.DeferredEntry)

	assert.Equal(t, Models.TaskCompleted, store.tasks[task.ID].Status)

	stored := store.schedules[schedule.ID]
	require.NotNil(t, stored.LastMaintenanceDate)
	assert.Equal(t, clock.now, *stored.LastMaintenanceDate)
	require.NotNil(t, stored.NextMaintenanceDate)
	assert.Equal(t, *NextDueDate(clock.now, Models.FrequencyMonthly, 1), *stored.NextMaintenanceDate)
}

func TestCompleteMaintenanceExplicitNextDateWins(t *testing.T) {
	engine, store, clock := newTestEngine(scanBase)
	schedule := &Models.MaintenanceSchedule{
		TenantID:  tenantID,
		Frequency: Models.FrequencyWeekly,
		Interval:  2,
	}
	schedule.ID = 7
	store.schedules[schedule.ID] = schedule

	rec, err := engine.StartDoubleScan(StartDoubleScanCommand{
		TenantID:              tenantID,
		MaintenanceScheduleID: &schedule.ID,
		ControlPointID:        controlPointID,
		WorkerID:              workerID,
		FirstScanAt:           scanBase,
	})
	require.NoError(t, err)

	clock.now = scanBase.Add(time.Hour)
	override := date(2025, 9, 1)
	_, err = engine.CompleteMaintenanceExecution(CompleteMaintenanceCommand{
		ExecutionID:         rec.ID,
		NextMaintenanceDate: &override,
	})
	require.NoError(t, err)
	assert.Equal(t, override, *store.schedules[schedule.ID].NextMaintenanceDate)
}

func TestCompleteMaintenanceFlagsQuickRepair(t *testing.T) {
	engine, store, clock := newTestEngine(scanBase)
	rec := startedExecution(t, engine, store, 1)

	clock.now = scanBase.Add(4 * time.Minute)
	second := scanBase.Add(3 * time.Minute)
	completed, err := engine.CompleteMaintenanceExecution(CompleteMaintenanceCommand{
		ExecutionID:  rec.ID,
		SecondScanAt: &second,
	})
	require.NoError(t, err)
	// 3 minutes is fine for a round but suspicious for maintenance work
	assert.True(t, completed.QuickEntry)
	assert.False(t, completed.DeferredEntry)
}

func TestCompleteMaintenanceOnTerminalExecution(t *testing.T) {
	engine, store, _ := newTestEngine(scanBase)
	rec := startedExecution(t, engine, store, 1)

	_, err := engine.CompleteDoubleScan(CompleteDoubleScanCommand{
		ExecutionID:  rec.ID,
		SecondScanAt: scanBase.Add(5 * time.Minute),
	})
	require.NoError(t, err)

	_, err = engine.CompleteMaintenanceExecution(CompleteMaintenanceCommand{ExecutionID: rec.ID})
	var sErr *InvalidStateError
	require.ErrorAs(t, err, &sErr)
}

func TestAbortExecution(t *testing.T) {
	engine, store, _ := newTestEngine(scanBase)
	rec := startedExecution(t, engine, store, 1)

	aborted, err := engine.AbortExecution(rec.ID, "reader damaged")
	require.NoError(t, err)
	assert.Equal(t, Models.ExecutionAborted, aborted.Status)
	assert.Contains(t, aborted.Observations, "reader damaged")
	assert.Equal(t, Models.TaskCancelled, store.tasks[1].Status)

	// aborting again is a no-op success
	_, err = engine.AbortExecution(rec.ID, "reader damaged")
	require.NoError(t, err)
	assert.Equal(t, Models.TaskCancelled, store.tasks[1].Status)
}

func TestAbortCompletedExecutionFails(t *testing.T) {
	engine, store, _ := newTestEngine(scanBase)
	rec := startedExecution(t, engine, store, 1)

	_, err := engine.CompleteDoubleScan(CompleteDoubleScanCommand{
		ExecutionID:  rec.ID,
		SecondScanAt: scanBase.Add(5 * time.Minute),
	})
	require.NoError(t, err)

	_, err = engine.AbortExecution(rec.ID, "late abort")
	var sErr *InvalidStateError
	require.ErrorAs(t, err, &sErr)
	assert.Equal(t, Models.TaskCompleted, store.tasks[1].Status)
}

func TestAbortMissingExecution(t *testing.T) {
	engine, _, _ := newTestEngine(scanBase)
	_, err := engine.AbortExecution(404, "whatever")
	var nfErr *NotFoundError
	require.ErrorAs(t, err, &nfErr)
}
