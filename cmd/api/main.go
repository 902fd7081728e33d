package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-digital-inventory/internal/bootstrap"
	"go-digital-inventory/internal/config"
	"go-digital-inventory/internal/handler"
	"go-digital-inventory/internal/logger"
	"go-digital-inventory/internal/metrics"
	"go-digital-inventory/internal/service"
	"go-digital-inventory/internal/ws"
	"go-digital-inventory/pkg/jwt"

	"github.com/bwmarrin/snowflake"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("building logger: %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Setup store
	store, closeStore, err := bootstrap.OpenStore(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("opening store", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer closeStore()

	// 3. Setup WebSocket hub
	wsHub := ws.NewHub(zl)
	go wsHub.Run(ctx)

	node, err := snowflake.NewNode(cfg.NodeID)
	if err != nil {
		zl.Fatal("creating id node", zap.Int64("node_id", cfg.NodeID), zap.Error(err))
	}
	m := metrics.New("inventory")

	// 4. Dependency injection
	audit := service.NewAuditService(store.AuditLogs, node, wsHub, m, zl)
	reconciler := service.NewStockReconciler(store.Items, wsHub, m, zl)
	users := service.NewUserService(store.Users, audit, zl)
	services := handler.Services{
		Auth:      service.NewAuthService(store.Users, jwt.NewIssuer(cfg.JWTSecret, cfg.JWTTTL(), cfg.AppName), zl),
		Users:     users,
		Inventory: service.NewInventoryService(store, reconciler, audit, wsHub, cfg.Location(), zl),
		Units:     service.NewUnitService(store, reconciler, audit, zl),
		Ledger:    service.NewLedgerService(store, audit, wsHub, m, zl),
		Reports: service.NewReportService(store, service.ReportThresholds{
			LowStock:     cfg.LowStockThreshold,
			ExpiringDays: cfg.ExpiringSoonDays,
		}, cfg.Location()),
		Audit: audit,
	}

	// 5. Seed admin
	if created, err := users.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		zl.Warn("failed to seed admin user", zap.Error(err))
	} else if created {
		zl.Info("admin user created", zap.String("username", cfg.AdminUsername))
	}

	// 6. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: cfg.AppName,
	})

	app.Use(fiberlogger.New())
	app.Use(recover.New())
	app.Use(cors.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":     "ok",
			"backend":    cfg.StoreBackend,
			"ws_clients": wsHub.ClientCount(),
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	handler.RegisterRoutes(app.Group("/api"), services)

	// WebSocket route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(wsHub.Handler(ctx)))

	// 7. Graceful shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			zl.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		zl.Error("server forced to shutdown", zap.Error(err))
		os.Exit(1)
	}
	zl.Info("server exited")
}
