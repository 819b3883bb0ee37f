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

// ExecutionController exposes the proof-of-presence engine over HTTP. The
// caller is the worker's mobile app; every rejection body tells the worker
// why the physical scan was refused.
type ExecutionController struct {
	DB     *gorm.DB
	Engine *Execution.Engine
}

func NewExecutionController(db *gorm.DB, engine *Execution.Engine) *ExecutionController {
	return &ExecutionController{DB: db, Engine: engine}
}

type CreateExecutionRequest struct {
	ControlPointID    uint            `json:"control_point_id" validate:"required"`
	WorkerID          uint            `json:"worker_id" validate:"required"`
	ScheduledTaskID   *uint           `json:"scheduled_task_id"`
	ScannedAt         string          `json:"scanned_at" validate:"required"`
	SubmittedAt       string          `json:"submitted_at"`
	FormData          json.RawMessage `json:"form_data"`
	Observations      string          `json:"observations"`
	IssuesFound       string          `json:"issues_found"`
	CorrectiveActions string          `json:"corrective_actions"`
	PhotoPath         string          `json:"photo_path"`
}

// CreateExecution records a single-scan execution.
// POST /api/executions
func (ec *ExecutionController) CreateExecution(c *fiber.Ctx) error {
	var req CreateExecutionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Missing required fields",
			"error":   err.Error(),
		})
	}

	scannedAt, err := parseTimestamp(req.ScannedAt)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid scanned_at, use RFC3339",
		})
	}
	var submittedAt *time.Time
	if req.SubmittedAt != "" {
		t, err := parseTimestamp(req.SubmittedAt)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Invalid submitted_at, use RFC3339",
			})
		}
		submittedAt = &t
	}

	rec, err := ec.Engine.CreateExecution(Execution.SingleScanCommand{
		TenantID:          tenantID(c),
		ControlPointID:    req.ControlPointID,
		WorkerID:          req.WorkerID,
		ScheduledTaskID:   req.ScheduledTaskID,
		ScannedAt:         scannedAt,
		SubmittedAt:       submittedAt,
		FormData:          []byte(req.FormData),
		Observations:      req.Observations,
		IssuesFound:       req.IssuesFound,
		CorrectiveActions: req.CorrectiveActions,
		PhotoPath:         req.PhotoPath,
	})
	if err != nil {
		return engineError(c, err)
	}

	if rec.Flagged() {
		go Notifications.NotifyFlaggedExecution(ec.DB, rec)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":   "Execution recorded",
		"execution": rec,
	})
}

type FirstScanRequest struct {
	ControlPointID        uint   `json:"control_point_id" validate:"required"`
	WorkerID              uint   `json:"worker_id" validate:"required"`
	ScheduledTaskID       *uint  `json:"scheduled_task_id"`
	MaintenanceScheduleID *uint  `json:"maintenance_schedule_id"`
	FirstScanAt           string `json:"first_scan_at" validate:"required"`
}

// FirstScan opens a double-scan work session.
// POST /api/executions/first-scan
func (ec *ExecutionController) FirstScan(c *fiber.Ctx) error {
	var req FirstScanRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Missing required fields",
			"error":   err.Error(),
		})
	}
	firstScanAt, err := parseTimestamp(req.FirstScanAt)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid first_scan_at, use RFC3339",
		})
	}

	rec, err := ec.Engine.StartDoubleScan(Execution.StartDoubleScanCommand{
		TenantID:              tenantID(c),
		ScheduledTaskID:       req.ScheduledTaskID,
		MaintenanceScheduleID: req.MaintenanceScheduleID,
		ControlPointID:        req.ControlPointID,
		WorkerID:              req.WorkerID,
		FirstScanAt:           firstScanAt,
	})
	if err != nil {
		return engineError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":   "Work session opened",
		"execution": rec,
	})
}

type SecondScanRequest struct {
	ExecutionID       uint            `json:"execution_id" validate:"required"`
	SecondScanAt      string          `json:"second_scan_at" validate:"required"`
	FormData          json.RawMessage `json:"form_data"`
	Observations      string          `json:"observations"`
	IssuesFound       string          `json:"issues_found"`
	CorrectiveActions string          `json:"corrective_actions"`
	PhotoPath         string          `json:"photo_path"`
}

// SecondScan closes a double-scan work session.
// POST /api/executions/second-scan
func (ec *ExecutionController) SecondScan(c *fiber.Ctx) error {
	var req SecondScanRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Missing required fields",
			"error":   err.Error(),
		})
	}
	secondScanAt, err := parseTimestamp(req.SecondScanAt)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid second_scan_at, use RFC3339",
		})
	}

	rec, err := ec.Engine.CompleteDoubleScan(Execution.CompleteDoubleScanCommand{
		ExecutionID:       req.ExecutionID,
		SecondScanAt:      secondScanAt,
		FormData:          []byte(req.FormData),
		Observations:      req.Observations,
		IssuesFound:       req.IssuesFound,
		CorrectiveActions: req.CorrectiveActions,
		PhotoPath:         req.PhotoPath,
	})
	if err != nil {
		return engineError(c, err)
	}

	if rec.Flagged() {
		go Notifications.NotifyFlaggedExecution(ec.DB, rec)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":   "Work session closed",
		"execution": rec,
	})
}

type AbortExecutionRequest struct {
	Reason string `json:"reason"`
}

// Abort cancels an open execution.
// POST /api/executions/:id/abort
func (ec *ExecutionController) Abort(c *fiber.Ctx) error {
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

	rec, err := ec.Engine.AbortExecution(uint(id), req.Reason)
	if err != nil {
		return engineError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":   "Execution aborted",
		"execution": rec,
	})
}

// GetExecution fetches one record.
// GET /api/executions/:id
func (ec *ExecutionController) GetExecution(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid execution ID"})
	}
	var rec Models.ExecutionRecord
	if err := ec.DB.Where("tenant_id = ?", tenantID(c)).First(&rec, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Execution not found"})
	}
	return c.JSON(rec)
}

// GetExecutions lists records with optional filters: worker_id,
// control_point_id, start_date/end_date (YYYY-MM-DD on scanned_at), and
// flagged=true for fraud review queues.
// GET /api/executions
func (ec *ExecutionController) GetExecutions(c *fiber.Ctx) error {
	query := ec.DB.Where("tenant_id = ?", tenantID(c))
	query = applyExecutionFilters(query, c)

	var records []Models.ExecutionRecord
	if err := query.Order("scanned_at DESC").Limit(500).Find(&records).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to retrieve executions",
		})
	}
	return c.JSON(records)
}

func applyExecutionFilters(query *gorm.DB, c *fiber.Ctx) *gorm.DB {
	if workerID := c.Query("worker_id"); workerID != "" {
		query = query.Where("worker_id = ?", workerID)
	}
	if cpID := c.Query("control_point_id"); cpID != "" {
		query = query.Where("control_point_id = ?", cpID)
	}
	if start := c.Query("start_date"); start != "" {
		if t, err := time.Parse("2006-01-02", start); err == nil {
			query = query.Where("scanned_at >= ?", t)
		}
	}
	if end := c.Query("end_date"); end != "" {
		if t, err := time.Parse("2006-01-02", end); err == nil {
			query = query.Where("scanned_at < ?", t.AddDate(0, 0, 1))
		}
	}
	if c.Query("flagged") == "true" {
		query = query.Where(
			"quick_entry = ? OR deferred_entry = ? OR repeated_value = ? OR out_of_range = ? OR ocr_deviation = ? OR suspicious_value = ?",
			true, true, true, true, true, true)
	}
	return query
}

func parseTimestamp(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// tenantID resolves the tenant of the authenticated user placed in locals by
// the auth middleware.
func tenantID(c *fiber.Ctx) uint {
	if user, ok := c.Locals("user").(Models.User); ok {
		return user.TenantID
	}
	return 0
}
