package Controllers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"Warden/Models"
)

// WorkerController manages field agents.
type WorkerController struct {
	DB *gorm.DB
}

func NewWorkerController(db *gorm.DB) *WorkerController {
	return &WorkerController{DB: db}
}

type CreateWorkerRequest struct {
	Name   string `json:"name" validate:"required"`
	Phone  string `json:"phone"`
	Email  string `json:"email" validate:"omitempty,email"`
	TeamID *uint  `json:"team_id"`
}

// CreateWorker registers a field worker.
// POST /api/workers
func (wc *WorkerController) CreateWorker(c *fiber.Ctx) error {
	var req CreateWorkerRequest
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

	worker := Models.Worker{
		TenantID: tenantID(c),
		Name:     strings.TrimSpace(req.Name),
		Phone:    req.Phone,
		Email:    req.Email,
		TeamID:   req.TeamID,
		Active:   true,
	}
	if err := wc.DB.Create(&worker).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to create worker",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(worker)
}

// GetWorkers lists the tenant's workers.
// GET /api/workers
func (wc *WorkerController) GetWorkers(c *fiber.Ctx) error {
	var workers []Models.Worker
	if err := wc.DB.Where("tenant_id = ?", tenantID(c)).Find(&workers).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to retrieve workers",
		})
	}
	return c.JSON(workers)
}

// GetWorker fetches one worker.
// GET /api/workers/:id
func (wc *WorkerController) GetWorker(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid worker ID"})
	}
	var worker Models.Worker
	if err := wc.DB.Where("tenant_id = ?", tenantID(c)).First(&worker, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Worker not found"})
	}
	return c.JSON(worker)
}

// DeactivateWorker retires a worker; their history stays, new scans fail
// validation.
// POST /api/workers/:id/deactivate
func (wc *WorkerController) DeactivateWorker(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid worker ID"})
	}
	var worker Models.Worker
	if err := wc.DB.Where("tenant_id = ?", tenantID(c)).First(&worker, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Worker not found"})
	}
	worker.Active = false
	if err := wc.DB.Save(&worker).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to deactivate worker",
		})
	}
	return c.JSON(fiber.Map{"message": "Worker deactivated"})
}
