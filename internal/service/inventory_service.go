package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-digital-inventory/internal/model"
	"go-digital-inventory/internal/repository"
	"go-digital-inventory/internal/ws"

	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

type InventoryService interface {
	ListItems(ctx context.Context) ([]model.ItemView, error)
	GetItem(ctx context.Context, id uint) (*model.ItemView, error)
	CreateItem(ctx context.Context, req *CreateItemRequest, actor string) (*model.ItemView, error)
	UpdateItem(ctx context.Context, req *UpdateItemRequest, actor string) (*model.ItemView, error)
	// DeleteItem removes the item and every unit attached to it and returns
	// the number of units removed.
	DeleteItem(ctx context.Context, id uint, actor string) (int64, error)
	// ReconcileItem recomputes stock from the item's units on demand.
	ReconcileItem(ctx context.Context, id uint, actor string) (*model.ItemView, error)
}

type CreateItemRequest struct {
	Platform  string `json:"platform" validate:"required"`
	Kind      string `json:"kind" validate:"required,item_kind"`
	Stock     *int   `json:"stock" validate:"omitempty,gte=0"`
	CostPrice int64  `json:"cost_price" validate:"required,gt=0"`
	SalePrice int64  `json:"sale_price" validate:"required,gt=0"`
	ExpiresAt string `json:"expires_at" validate:"required"`
}

// UpdateItemRequest is a partial update: nil fields are left untouched.
type UpdateItemRequest struct {
	ID        uint    `json:"id" validate:"required"`
	Platform  *string `json:"platform" validate:"omitempty,min=1"`
	Kind      *string `json:"kind" validate:"omitempty,item_kind"`
	Stock     *int    `json:"stock" validate:"omitempty,gte=0"`
	CostPrice *int64  `json:"cost_price" validate:"omitempty,gt=0"`
	SalePrice *int64  `json:"sale_price" validate:"omitempty,gt=0"`
	ExpiresAt *string `json:"expires_at" validate:"omitempty,min=1"`
}

type inventoryService struct {
	items      repository.ItemRepository
	reconciler StockReconciler
	audit      AuditService
	pub        Publisher
	loc        *time.Location
	log        *zap.Logger
	now        func() time.Time
}

func NewInventoryService(store *repository.Store, reconciler StockReconciler, audit AuditService, pub Publisher, loc *time.Location, log *zap.Logger) InventoryService {
	return &inventoryService{
		items:      store.Items,
		reconciler: reconciler,
		audit:      audit,
		pub:        pub,
		loc:        loc,
		log:        log.Named("inventory"),
		now:        time.Now,
	}
}

// parseExpiry accepts a calendar date, read as midnight in the business
// timezone, or a full RFC 3339 timestamp.
func parseExpiry(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, invalid("expires_at must be a date (YYYY-MM-DD) or RFC 3339 timestamp, got %q", s)
}

func (s *inventoryService) ListItems(ctx context.Context) ([]model.ItemView, error) {
	items, err := s.items.FindAll(ctx)
	if err != nil {
		return nil, persistence("listing items", err)
	}
	now := s.now()
	views := make([]model.ItemView, 0, len(items))
	for _, item := range items {
		views = append(views, item.View(now))
	}
	return views, nil
}

func (s *inventoryService) GetItem(ctx context.Context, id uint) (*model.ItemView, error) {
	item, err := s.items.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr("item", id, err)
	}
	view := item.View(s.now())
	return &view, nil
}

func (s *inventoryService) CreateItem(ctx context.Context, req *CreateItemRequest, actor string) (*model.ItemView, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	kind, _ := model.ParseKind(req.Kind)
	platform := strings.TrimSpace(req.Platform)
	if platform == "" {
		return nil, invalid("platform is required")
	}
	expiresAt, err := parseExpiry(req.ExpiresAt, s.loc)
	if err != nil {
		return nil, err
	}

	now := s.now()
	item := &model.Item{
		Platform:  platform,
		Kind:      kind,
		CostPrice: req.CostPrice,
		SalePrice: req.SalePrice,
		ExpiresAt: expiresAt,
		CreatedAt: now,
		UpdatedAt: now,
		UpdatedBy: actor,
	}
	if req.Stock != nil {
		item.Stock = *req.Stock
	}

	if err := s.items.Create(ctx, item); err != nil {
		return nil, persistence("creating item", err)
	}

	s.audit.Record(ctx, AuditEntry{
		Action:  model.ActionCreateItem,
		Actor:   actor,
		Details: fmt.Sprintf("Created item %s %s", item.Platform, item.Kind),
		ItemID:  uintPtr(item.ID),
	})

	view := item.View(now)
	return &view, nil
}

func (s *inventoryService) UpdateItem(ctx context.Context, req *UpdateItemRequest, actor string) (*model.ItemView, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	item, err := s.items.FindByID(ctx, req.ID)
	if err != nil {
		return nil, lookupErr("item", req.ID, err)
	}
	oldStock := item.Stock

	var columns []string
	if req.Platform != nil {
		platform := strings.TrimSpace(*req.Platform)
		if platform == "" {
			return nil, invalid("platform must not be empty")
		}
		item.Platform = platform
		columns = append(columns, "platform")
	}
	if req.Kind != nil {
		item.Kind, _ = model.ParseKind(*req.Kind)
		columns = append(columns, "kind")
	}
	if req.Stock != nil {
		item.Stock = *req.Stock
		columns = append(columns, "stock")
	}
	if req.CostPrice != nil {
		item.CostPrice = *req.CostPrice
		columns = append(columns, "cost_price")
	}
	if req.SalePrice != nil {
		item.SalePrice = *req.SalePrice
		columns = append(columns, "sale_price")
	}
	if req.ExpiresAt != nil {
		expiresAt, err := parseExpiry(*req.ExpiresAt, s.loc)
		if err != nil {
			return nil, err
		}
		item.ExpiresAt = expiresAt
		columns = append(columns, "expires_at")
	}

	now := s.now()
	item.UpdatedAt = now
	item.UpdatedBy = actor
	if err := s.items.Update(ctx, item, columns...); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("item", req.ID)
		}
		return nil, persistence("updating item", err)
	}

	// re-read so the response carries the stock as stored, not as read
	if fresh, err := s.items.FindByID(ctx, req.ID); err == nil {
		item = fresh
	}

	s.audit.Record(ctx, AuditEntry{
		Action:  model.ActionUpdateItem,
		Actor:   actor,
		Details: fmt.Sprintf("Updated item %s %s", item.Platform, item.Kind),
		ItemID:  uintPtr(item.ID),
	})
	if req.Stock != nil && s.pub != nil {
		s.pub.Publish(ws.Event{
			Type:   "stock_update",
			Action: "item_updated",
			Actor:  actor,
			Data: map[string]interface{}{
				"item_id":   item.ID,
				"old_stock": oldStock,
				"new_stock": item.Stock,
			},
		})
	}

	view := item.View(now)
	return &view, nil
}

func (s *inventoryService) DeleteItem(ctx context.Context, id uint, actor string) (int64, error) {
	item, err := s.items.FindByID(ctx, id)
	if err != nil {
		return 0, lookupErr("item", id, err)
	}

	removed, err := s.items.DeleteWithUnits(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, notFound("item", id)
		}
		return 0, persistence("deleting item", err)
	}

	s.audit.Record(ctx, AuditEntry{
		Action:  model.ActionDeleteItem,
		Actor:   actor,
		Details: fmt.Sprintf("Deleted item %s %s with %d linked units", item.Platform, item.Kind, removed),
		ItemID:  uintPtr(id),
	})
	return removed, nil
}

func (s *inventoryService) ReconcileItem(ctx context.Context, id uint, actor string) (*model.ItemView, error) {
	if _, err := s.items.FindByID(ctx, id); err != nil {
		return nil, lookupErr("item", id, err)
	}
	if _, applied, err := s.reconciler.Reconcile(ctx, id); err != nil {
		return nil, persistence("reconciling stock", err)
	} else if !applied {
		return nil, notFound("item", id)
	}
	s.log.Info("stock reconciled on demand", zap.Uint("item_id", id), zap.String("actor", actor))
	return s.GetItem(ctx, id)
}
