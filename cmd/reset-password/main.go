package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go-digital-inventory/internal/bootstrap"
	"go-digital-inventory/internal/config"
	"go-digital-inventory/internal/logger"
	"go-digital-inventory/internal/service"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

// reset-password sets a user's password directly in the configured store.
// Usage: reset-password -username admin -password newsecret
func main() {
	username := flag.String("username", "", "user to reset (defaults to ADMIN_USERNAME)")
	password := flag.String("password", "", "new password (defaults to ADMIN_PASSWORD)")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *username == "" {
		*username = cfg.AdminUsername
	}
	if *password == "" {
		*password = cfg.AdminPassword
	}

	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("building logger: %v", err)
	}
	defer zl.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 2. Setup store
	store, closeStore, err := bootstrap.OpenStore(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("opening store", zap.Error(err))
	}
	defer closeStore()

	node, err := snowflake.NewNode(cfg.NodeID)
	if err != nil {
		zl.Fatal("creating id node", zap.Error(err))
	}
	audit := service.NewAuditService(store.AuditLogs, node, nil, nil, zl)
	users := service.NewUserService(store.Users, audit, zl)

	// 3. Reset
	if err := users.ResetPassword(ctx, *username, *password); err != nil {
		zl.Fatal("resetting password", zap.String("username", *username), zap.Error(err))
	}
	zl.Info("password reset", zap.String("username", *username))
}
