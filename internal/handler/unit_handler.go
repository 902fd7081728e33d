package handler

import (
	"go-digital-inventory/internal/model"
	"go-digital-inventory/internal/service"

	"github.com/gofiber/fiber/v2"
)

// UnitHandler serves the sub-inventory of premium accounts and codes. Every
// route takes a tipe that picks the collection.
type UnitHandler struct {
	service service.UnitService
}

func NewUnitHandler(s service.UnitService) *UnitHandler {
	return &UnitHandler{service: s}
}

// GET /api/premium-accounts?item_id=&platform=&status=
func (h *UnitHandler) GetUnits(c *fiber.Ctx) error {
	query := service.UnitQuery{
		Platform: c.Query("platform"),
		Status:   c.Query("status"),
	}
	if raw := c.Query("item_id"); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid item_id"})
		}
		query.ItemID = &id
	}

	listing, err := h.service.ListUnits(c.UserContext(), query)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(listing)
}

// POST /api/premium-accounts
func (h *UnitHandler) AddUnit(c *fiber.Ctx) error {
	var req service.AddUnitRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	unit, err := h.service.AddUnit(c.UserContext(), &req, actor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Unit added", "data": unit})
}

// PUT /api/premium-accounts
func (h *UnitHandler) UpdateUnitStatus(c *fiber.Ctx) error {
	var req service.UpdateUnitStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	unit, err := h.service.UpdateUnitStatus(c.UserContext(), &req, actor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Status updated", "data": unit})
}

// DELETE /api/premium-accounts?id=&tipe=
func (h *UnitHandler) DeleteUnit(c *fiber.Ctx) error {
	id, err := queryID(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}
	kind, ok := model.ParseKind(c.Query("tipe"))
	if !ok {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid tipe"})
	}

	if err := h.service.DeleteUnit(c.UserContext(), kind, id, actor(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Unit deleted"})
}
