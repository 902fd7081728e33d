package handler

import (
	"go-digital-inventory/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ReportHandler struct {
	reports service.ReportService
	audit   service.AuditService
}

func NewReportHandler(reports service.ReportService, audit service.AuditService) *ReportHandler {
	return &ReportHandler{reports: reports, audit: audit}
}

// GET /api/reports
func (h *ReportHandler) GetReport(c *fiber.Ctx) error {
	report, err := h.reports.Report(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(report)
}

// GetAuditLogs returns audit entries newest first
// Query params: page (default 1), limit (default 50, max 200)
func (h *ReportHandler) GetAuditLogs(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", service.DefaultAuditLimit)

	logs, err := h.audit.List(c.UserContext(), page, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(logs)
}
