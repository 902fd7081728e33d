package handler

import (
	"go-digital-inventory/internal/service"

	"github.com/gofiber/fiber/v2"
)

type TransactionHandler struct {
	service service.LedgerService
}

func NewTransactionHandler(s service.LedgerService) *TransactionHandler {
	return &TransactionHandler{service: s}
}

// saleBody accepts the quantity under its legacy name too.
type saleBody struct {
	ItemID   uint `json:"item_id"`
	Quantity *int `json:"quantity"`
	Jumlah   *int `json:"jumlah"`
}

func (b saleBody) request() *service.SaleRequest {
	req := &service.SaleRequest{ItemID: b.ItemID}
	switch {
	case b.Quantity != nil:
		req.Quantity = *b.Quantity
	case b.Jumlah != nil:
		req.Quantity = *b.Jumlah
	}
	return req
}

// GET /api/transactions
func (h *TransactionHandler) GetTransactions(c *fiber.Ctx) error {
	txs, err := h.service.ListTransactions(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"transactions": txs})
}

// GET /api/transactions/:id
func (h *TransactionHandler) GetTransaction(c *fiber.Ctx) error {
	id, err := parseID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid transaction ID"})
	}
	tx, err := h.service.GetTransaction(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tx)
}

// CreateTransaction records a sale
// POST /api/transactions
func (h *TransactionHandler) CreateTransaction(c *fiber.Ctx) error {
	var body saleBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	result, err := h.service.RecordSale(c.UserContext(), body.request(), actor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(fiber.Map{
		"message":      "Transaction recorded",
		"transaction":  result.Transaction,
		"updated_item": result.UpdatedItem,
	})
}

// DeleteTransaction reverses a sale
// DELETE /api/transactions?id=
func (h *TransactionHandler) DeleteTransaction(c *fiber.Ctx) error {
	id, err := queryID(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	if err := h.service.ReverseSale(c.UserContext(), id, actor(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Transaction deleted"})
}
