package handler

import (
	"errors"
	"fmt"
	"strconv"

	"go-digital-inventory/internal/middleware"
	"go-digital-inventory/internal/model"
	"go-digital-inventory/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// respondError maps a service error onto a status code. Unclassified errors
// are logged and hidden behind a generic message.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrInsufficientStock):
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		return c.Status(403).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		return c.Status(404).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrConflict):
		return c.Status(409).JSON(fiber.Map{"error": err.Error()})
	}

	zap.L().Error("request failed",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return c.Status(500).JSON(fiber.Map{"error": "Internal Server Error"})
}

// actor is the username attributed to mutations, set by RequireAuth.
func actor(c *fiber.Ctx) string {
	name, ok := c.Locals(middleware.LocalUsername).(string)
	if !ok || name == "" {
		return "system"
	}
	return name
}

func currentUser(c *fiber.Ctx) *model.User {
	user, _ := c.Locals(middleware.LocalUser).(*model.User)
	return user
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}

// queryID reads a required positive id from the query string.
func queryID(c *fiber.Ctx, key string) (uint, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	id, err := parseID(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return id, nil
}
