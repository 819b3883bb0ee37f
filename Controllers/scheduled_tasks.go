package Controllers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"Warden/Models"
)

// ScheduledTaskController creates and lists work assignments. Status
// transitions are owned exclusively by the execution engine; there is no
// update-status endpoint here on purpose.
type ScheduledTaskController struct {
	DB *gorm.DB
}

func NewScheduledTaskController(db *gorm.DB) *ScheduledTaskController {
	return &ScheduledTaskController{DB: db}
}

type CreateTaskRequest struct {
	WorkerID           uint   `json:"worker_id" validate:"required"`
	TeamID             *uint  `json:"team_id"`
	ControlPointID     uint   `json:"control_point_id" validate:"required"`
	TemplateID         *uint  `json:"template_id"`
	ScheduledDate      string `json:"scheduled_date" validate:"required"`
	StartTime          string `json:"start_time"`
	EndTime            string `json:"end_time"`
	Recurrence         string `json:"recurrence" validate:"omitempty,oneof=none daily weekly"`
	RequiresDoubleScan bool   `json:"requires_double_scan"`
}

// CreateTask schedules a unit of field work.
// POST /api/tasks
func (tc *ScheduledTaskController) CreateTask(c *fiber.Ctx) error {
	var req CreateTaskRequest
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
	scheduledDate, err := time.Parse("2006-01-02", req.ScheduledDate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid scheduled_date, use YYYY-MM-DD",
		})
	}

	tenant := tenantID(c)
	var worker Models.Worker
	if err := tc.DB.Where("tenant_id = ? AND active = ?", tenant, true).First(&worker, req.WorkerID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Worker not found"})
	}
	var cp Models.ControlPoint
	if err := tc.DB.Where("tenant_id = ? AND active = ?", tenant, true).First(&cp, req.ControlPointID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Control point not found"})
	}

	recurrence := req.Recurrence
	if recurrence == "" {
		recurrence = "none"
	}
	task := Models.ScheduledTask{
		TenantID:           tenant,
		WorkerID:           req.WorkerID,
		TeamID:             req.TeamID,
		ControlPointID:     req.ControlPointID,
		TemplateID:         req.TemplateID,
		ScheduledDate:      scheduledDate,
		StartTime:          req.StartTime,
		EndTime:            req.EndTime,
		Recurrence:         recurrence,
		RequiresDoubleScan: req.RequiresDoubleScan,
		Status:             Models.TaskPending,
	}
	if err := tc.DB.Create(&task).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to create task",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(task)
}

// GetTask fetches a single task.
// GET /api/tasks/:id
func (tc *ScheduledTaskController) GetTask(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid task ID"})
	}
	var task Models.ScheduledTask
	if err := tc.DB.Where("tenant_id = ?", tenantID(c)).First(&task, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Task not found"})
	}
	return c.JSON(task)
}

// GetTasks lists tasks with optional worker_id, status and date filters.
// GET /api/tasks
func (tc *ScheduledTaskController) GetTasks(c *fiber.Ctx) error {
	query := tc.DB.Where("tenant_id = ?", tenantID(c))
	if workerID := c.Query("worker_id"); workerID != "" {
		query = query.Where("worker_id = ?", workerID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if date := c.Query("date"); date != "" {
		if t, err := time.Parse("2006-01-02", date); err == nil {
			query = query.Where("scheduled_date = ?", t)
		}
	}

	var tasks []Models.ScheduledTask
	if err := query.Order("scheduled_date ASC, start_time ASC").Find(&tasks).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to retrieve tasks",
		})
	}
	return c.JSON(tasks)
}
