package Controllers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"Warden/Models"
)

// ControlPointController manages the scannable locations the engine verifies
// scans against.
type ControlPointController struct {
	DB *gorm.DB
}

func NewControlPointController(db *gorm.DB) *ControlPointController {
	return &ControlPointController{DB: db}
}

type CreateControlPointRequest struct {
	Name    string `json:"name" validate:"required"`
	SiteID  *uint  `json:"site_id"`
	ZoneID  *uint  `json:"zone_id"`
	ChipUID string `json:"chip_uid"`
}

// CreateControlPoint enrolls a control point.
// POST /api/control-points
func (cc *ControlPointController) CreateControlPoint(c *fiber.Ctx) error {
	var req CreateControlPointRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if strings.TrimSpace(req.Name) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Name is required"})
	}

	cp := Models.ControlPoint{
		TenantID: tenantID(c),
		Name:     strings.TrimSpace(req.Name),
		SiteID:   req.SiteID,
		ZoneID:   req.ZoneID,
		ChipUID:  req.ChipUID,
		Active:   true,
	}
	if err := cc.DB.Create(&cp).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to create control point",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(cp)
}

// GetControlPoints lists the tenant's control points.
// GET /api/control-points
func (cc *ControlPointController) GetControlPoints(c *fiber.Ctx) error {
	var points []Models.ControlPoint
	if err := cc.DB.Where("tenant_id = ?", tenantID(c)).Find(&points).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to retrieve control points",
		})
	}
	return c.JSON(points)
}

// GetControlPoint fetches one control point.
// GET /api/control-points/:id
func (cc *ControlPointController) GetControlPoint(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid control point ID"})
	}
	var cp Models.ControlPoint
	if err := cc.DB.Where("tenant_id = ?", tenantID(c)).First(&cp, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Control point not found"})
	}
	return c.JSON(cp)
}

// DeactivateControlPoint takes a control point out of service. Existing
// executions keep referencing it; scans against it start failing validation.
// POST /api/control-points/:id/deactivate
func (cc *ControlPointController) DeactivateControlPoint(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid control point ID"})
	}
	var cp Models.ControlPoint
	if err := cc.DB.Where("tenant_id = ?", tenantID(c)).First(&cp, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Control point not found"})
	}
	cp.Active = false
	if err := cc.DB.Save(&cp).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to deactivate control point",
		})
	}
	return c.JSON(fiber.Map{"message": "Control point deactivated"})
}
