package handler

import (
	"errors"

	"go-school-library/internal/lifecycle"
	"go-school-library/internal/service"
	"go-school-library/pkg/validator"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var notFoundErrors = []error{
	service.ErrBookNotFound,
	service.ErrCategoryNotFound,
	service.ErrBorrowingNotFound,
	service.ErrNotificationNotFound,
	service.ErrUserNotFound,
	service.ErrRoleNotFound,
}

var badRequestErrors = []error{
	lifecycle.ErrMissingReference,
	service.ErrWeakPassword,
	service.ErrWrongPassword,
}

// respondError maps a service error to its HTTP status. Anything unrecognised is
// returned to fiber so the app error handler logs it and answers 500.
func respondError(c *fiber.Ctx, err error) error {
	var verr *validator.Error
	if errors.As(err, &verr) {
		return c.Status(400).JSON(fiber.Map{"error": verr.Error(), "details": verr.Fields})
	}
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return c.Status(404).JSON(fiber.Map{"error": err.Error()})
		}
	}
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		}
	}
	switch {
	case errors.Is(err, service.ErrForbidden):
		return c.Status(403).JSON(fiber.Map{"error": err.Error()})
	case service.IsConflict(err):
		return c.Status(409).JSON(fiber.Map{"error": err.Error()})
	}
	return err
}

// NewErrorHandler answers unhandled errors with the JSON error shape used by every
// handler and logs server faults.
func NewErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal server error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		}
		if code >= 500 {
			log.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}
		return c.Status(code).JSON(fiber.Map{"error": message})
	}
}

func invalidID(c *fiber.Ctx, what string) error {
	return c.Status(400).JSON(fiber.Map{"error": "Invalid " + what + " ID"})
}

func invalidJSON(c *fiber.Ctx) error {
	return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
}

// pagination reads ?limit= and ?offset=, capping limit at 100.
func pagination(c *fiber.Ctx) (limit, offset int) {
	limit = c.QueryInt("limit", 20)
	offset = c.QueryInt("offset", 0)
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
