package handler

import (
	"go-digital-inventory/internal/middleware"
	"go-digital-inventory/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Services is everything the API routes are served from.
type Services struct {
	Auth      service.AuthService
	Users     service.UserService
	Inventory service.InventoryService
	Units     service.UnitService
	Ledger    service.LedgerService
	Reports   service.ReportService
	Audit     service.AuditService
}

// RegisterRoutes mounts the API on router. Login and token validation are
// public; everything else needs a bearer token.
func RegisterRoutes(router fiber.Router, s Services) {
	authHandler := NewAuthHandler(s.Auth)
	userHandler := NewUserHandler(s.Users)
	invHandler := NewInventoryHandler(s.Inventory)
	unitHandler := NewUnitHandler(s.Units)
	txHandler := NewTransactionHandler(s.Ledger)
	reportHandler := NewReportHandler(s.Reports, s.Audit)

	requireAuth := middleware.RequireAuth(s.Auth)

	// ============ PUBLIC ROUTES ============
	auth := router.Group("/auth")
	auth.Post("/login", authHandler.Login)
	auth.Post("/validate-token", authHandler.ValidateToken)
	auth.Post("/change-password", requireAuth, authHandler.ChangePassword)
	auth.Post("/register", requireAuth, middleware.RequireAdmin(), userHandler.Register)

	// ============ PROTECTED ROUTES ============
	protected := router.Group("", requireAuth)

	protected.Get("/items", invHandler.GetItems)
	protected.Get("/items/:id", invHandler.GetItem)
	protected.Post("/items", invHandler.CreateItem)
	protected.Post("/items/reconcile", invHandler.ReconcileItem)
	protected.Put("/items", invHandler.UpdateItem)
	protected.Delete("/items", invHandler.DeleteItem)

	protected.Get("/premium-accounts", unitHandler.GetUnits)
	protected.Post("/premium-accounts", unitHandler.AddUnit)
	protected.Put("/premium-accounts", unitHandler.UpdateUnitStatus)
	protected.Delete("/premium-accounts", unitHandler.DeleteUnit)

	protected.Get("/transactions", txHandler.GetTransactions)
	protected.Get("/transactions/:id", txHandler.GetTransaction)
	protected.Post("/transactions", txHandler.CreateTransaction)
	protected.Delete("/transactions", txHandler.DeleteTransaction)

	protected.Get("/reports", reportHandler.GetReport)
	protected.Get("/audit-logs", reportHandler.GetAuditLogs)
}
