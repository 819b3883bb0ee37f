package Controllers

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"Warden/Execution"
	"Warden/Models"
	"Warden/Notifications"
)

// MaintenanceController covers the maintenance-specific completion path and
// schedule management.
type MaintenanceController struct {
	DB     *gorm.DB
	Engine *Execution.Engine
}

func NewMaintenanceController(db *gorm.DB, engine *Execution.Engine) *MaintenanceController {
	return &MaintenanceController{DB: db, Engine: engine}
}

type CompleteMaintenanceRequest struct {
	SecondScanAt        string          `json:"second_scan_at"`
	FormData            json.RawMessage `json:"form_data"`
	Observations        string          `json:"observations"`
	IssuesFound         string          `json:"issues_found"`
	CorrectiveActions   string          `json:"corrective_actions"`
	PhotoPath           string          `json:"photo_path"`
	NextMaintenanceDate string          `json:"next_maintenance_date"` // overrides the recurrence calculator
}

// Complete finalizes a maintenance execution and reschedules the owning
// maintenance schedule.
// POST /api/maintenance-executions/:id/complete
func (mc *MaintenanceController) Complete(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid execution ID"})
	}
	var req CompleteMaintenanceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	var secondScanAt *time.Time
	if req.SecondScanAt != "" {
		t, err := parseTimestamp(req.SecondScanAt)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Invalid second_scan_at, use RFC3339",
			})
		}
		secondScanAt = &t
	}
	var nextDate *time.Time
	if req.NextMaintenanceDate != "" {
		t, err := time.Parse("2006-01-02", req.NextMaintenanceDate)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Invalid next_maintenance_date, use YYYY-MM-DD",
			})
		}
		nextDate = &t
	}

	rec, err := mc.Engine.CompleteMaintenanceExecution(Execution.CompleteMaintenanceCommand{
		ExecutionID:         uint(id),
		SecondScanAt:        secondScanAt,
		FormData:            []byte(req.FormData),
		Observations:        req.Observations,
		IssuesFound:         req.IssuesFound,
		CorrectiveActions:   req.CorrectiveActions,
		PhotoPath:           req.PhotoPath,
		NextMaintenanceDate: nextDate,
	})
	if err != nil {
		return engineError(c, err)
	}

	if rec.Flagged() {
		go Notifications.NotifyFlaggedExecution(mc.DB, rec)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":   "Maintenance completed",
		"execution": rec,
	})
}

// Abort cancels a maintenance execution, recording the reason.
// POST /api/maintenance-executions/:id/abort
func (mc *MaintenanceController) Abort(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid execution ID"})
	}
	var req AbortExecutionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	rec, err := mc.Engine.AbortExecution(uint(id), req.Reason)
	if err != nil {
		return engineError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":   "Maintenance aborted",
		"execution": rec,
	})
}

type CreateScheduleRequest struct {
	ControlPointID uint   `json:"control_point_id" validate:"required"`
	Description    string `json:"description"`
	Frequency      string `json:"frequency" validate:"omitempty,oneof=DAILY WEEKLY MONTHLY QUARTERLY YEARLY"`
	Interval       int    `json:"interval"`
	NextDate       string `json:"next_maintenance_date"`
}

// CreateSchedule registers a maintenance schedule. Frequency may be empty for
// one-off entries; interval must be positive when a frequency is set.
// POST /api/maintenance-schedules
func (mc *MaintenanceController) CreateSchedule(c *fiber.Ctx) error {
	var req CreateScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid fields",
			"error":   err.Error(),
		})
	}
	if req.Frequency != "" && req.Interval <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Interval must be a positive integer",
		})
	}

	schedule := Models.MaintenanceSchedule{
		TenantID:       tenantID(c),
		ControlPointID: req.ControlPointID,
		Description:    req.Description,
		Frequency:      Models.Frequency(req.Frequency),
		Interval:       req.Interval,
	}
	if req.NextDate != "" {
		t, err := time.Parse("2006-01-02", req.NextDate)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Invalid next_maintenance_date, use YYYY-MM-DD",
			})
		}
		schedule.NextMaintenanceDate = &t
	}

	if err := mc.DB.Create(&schedule).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to create schedule",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(schedule)
}

// GetSchedules lists schedules, optionally only those due within ?days=N.
// GET /api/maintenance-schedules
func (mc *MaintenanceController) GetSchedules(c *fiber.Ctx) error {
	query := mc.DB.Where("tenant_id = ?", tenantID(c))
	if days := c.Query("days"); days != "" {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid days"})
		}
		now := time.Now().UTC()
		query = query.Where("next_maintenance_date IS NOT NULL AND next_maintenance_date <= ?",
			now.AddDate(0, 0, n))
	}

	var schedules []Models.MaintenanceSchedule
	if err := query.Order("next_maintenance_date ASC").Find(&schedules).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to retrieve schedules",
		})
	}
	return c.JSON(schedules)
}
