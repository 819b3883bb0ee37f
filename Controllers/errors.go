package Controllers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"Warden/Execution"
)

var validate = validator.New()

// engineError maps the engine's error taxonomy onto HTTP statuses:
// validation 400, not found 404, invalid state and lost races 409. The error
// text carries the entity, its status and the attempted command so the worker
// in the field can see why the scan was rejected.
func engineError(c *fiber.Ctx, err error) error {
	var (
		vErr  *Execution.ValidationError
		nfErr *Execution.NotFoundError
		sErr  *Execution.InvalidStateError
		pErr  *Execution.PreconditionFailedError
	)
	switch {
	case errors.As(err, &vErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   vErr.Error(),
		})
	case errors.As(err, &nfErr):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Not found",
			"error":   nfErr.Error(),
		})
	case errors.As(err, &sErr):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message": "Invalid state",
			"error":   sErr.Error(),
		})
	case errors.As(err, &pErr):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message": "Concurrent modification, retry",
			"error":   pErr.Error(),
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Internal error",
			"error":   err.Error(),
		})
	}
}
