package Stores

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"Warden/Execution"
	"Warden/Models"
)

// GormStore backs the execution engine with the application database. Every
// engine command runs inside one gorm transaction via Atomically, and status
// flips use a guarded UPDATE (WHERE status = ?) so a lost race surfaces as
// zero affected rows instead of a silent overwrite.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Atomically(fn func(tx Execution.Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) GetTask(id uint) (*Models.ScheduledTask, error) {
	var task Models.ScheduledTask
	if err := s.db.First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load scheduled task %d: %w", id, err)
	}
	return &task, nil
}

func (s *GormStore) CompareAndSetTaskStatus(id uint, from, to Models.TaskStatus, executionID *uint) (bool, error) {
	updates := map[string]interface{}{"status": to}
	if executionID != nil {
		updates["execution_id"] = *executionID
	}
	res := s.db.Model(&Models.ScheduledTask{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("update scheduled task %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) CreateExecution(rec *Models.ExecutionRecord) error {
	if err := s.db.Create(rec).Error; err != nil {
		return fmt.Errorf("create execution record: %w", err)
	}
	return nil
}

func (s *GormStore) GetExecution(id uint) (*Models.ExecutionRecord, error) {
	var rec Models.ExecutionRecord
	if err := s.db.First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load execution %d: %w", id, err)
	}
	return &rec, nil
}

func (s *GormStore) SaveExecution(rec *Models.ExecutionRecord) error {
	if err := s.db.Save(rec).Error; err != nil {
		return fmt.Errorf("save execution %d: %w", rec.ID, err)
	}
	return nil
}

func (s *GormStore) GetSchedule(id uint) (*Models.MaintenanceSchedule, error) {
	var schedule Models.MaintenanceSchedule
	if err := s.db.First(&schedule, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load maintenance schedule %d: %w", id, err)
	}
	return &schedule, nil
}

func (s *GormStore) SaveSchedule(schedule *Models.MaintenanceSchedule) error {
	if err := s.db.Save(schedule).Error; err != nil {
		return fmt.Errorf("save maintenance schedule %d: %w", schedule.ID, err)
	}
	return nil
}

func (s *GormStore) ControlPointExists(id, tenantID uint) (bool, error) {
	var count int64
	err := s.db.Model(&Models.ControlPoint{}).
		Where("id = ? AND tenant_id = ? AND active = ?", id, tenantID, true).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check control point %d: %w", id, err)
	}
	return count > 0, nil
}

func (s *GormStore) WorkerExists(id, tenantID uint) (bool, error) {
	var count int64
	err := s.db.Model(&Models.Worker{}).
		Where("id = ? AND tenant_id = ? AND active = ?", id, tenantID, true).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check worker %d: %w", id, err)
	}
	return count > 0, nil
}
