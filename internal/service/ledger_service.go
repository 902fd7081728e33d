package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-digital-inventory/internal/metrics"
	"go-digital-inventory/internal/model"
	"go-digital-inventory/internal/repository"
	"go-digital-inventory/internal/ws"

	"go.uber.org/zap"
)

type LedgerService interface {
	ListTransactions(ctx context.Context) ([]model.Transaction, error)
	GetTransaction(ctx context.Context, id uint) (*model.Transaction, error)
	RecordSale(ctx context.Context, req *SaleRequest, actor string) (*SaleResult, error)
	// ReverseSale deletes a transaction and gives its quantity back to the
	// item, when the item still exists. Units marked sold stay sold.
	ReverseSale(ctx context.Context, id uint, actor string) error
}

type SaleRequest struct {
	ItemID   uint `json:"item_id" validate:"required"`
	Quantity int  `json:"quantity" validate:"required,gt=0"`
}

type SaleResult struct {
	Transaction model.Transaction `json:"transaction"`
	UpdatedItem model.ItemView    `json:"updated_item"`
}

type ledgerService struct {
	items        repository.ItemRepository
	transactions repository.TransactionRepository
	audit        AuditService
	pub          Publisher
	metrics      *metrics.Metrics
	log          *zap.Logger
	now          func() time.Time
}

func NewLedgerService(store *repository.Store, audit AuditService, pub Publisher, m *metrics.Metrics, log *zap.Logger) LedgerService {
	return &ledgerService{
		items:        store.Items,
		transactions: store.Transactions,
		audit:        audit,
		pub:          pub,
		metrics:      m,
		log:          log.Named("ledger"),
		now:          time.Now,
	}
}

func (s *ledgerService) ListTransactions(ctx context.Context) ([]model.Transaction, error) {
	txs, err := s.transactions.FindAll(ctx)
	if err != nil {
		return nil, persistence("listing transactions", err)
	}
	if txs == nil {
		txs = []model.Transaction{}
	}
	return txs, nil
}

func (s *ledgerService) GetTransaction(ctx context.Context, id uint) (*model.Transaction, error) {
	tx, err := s.transactions.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr("transaction", id, err)
	}
	return tx, nil
}

func (s *ledgerService) RecordSale(ctx context.Context, req *SaleRequest, actor string) (*SaleResult, error) {
	if req.Quantity <= 0 {
		s.metrics.SaleRejected(metrics.ReasonValidation)
		return nil, invalid("quantity must be greater than zero")
	}
	if err := validate(req); err != nil {
		s.metrics.SaleRejected(metrics.ReasonValidation)
		return nil, err
	}

	item, err := s.items.FindByID(ctx, req.ItemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.SaleRejected(metrics.ReasonNotFound)
		}
		return nil, lookupErr("item", req.ItemID, err)
	}

	// The check and the decrement are one conditional write, so concurrent
	// sales cannot both pass on the same last unit.
	ok, err := s.items.DecrementStock(ctx, item.ID, req.Quantity, actor)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.SaleRejected(metrics.ReasonNotFound)
			return nil, notFound("item", item.ID)
		}
		return nil, persistence("decrementing stock", err)
	}
	if !ok {
		s.metrics.SaleRejected(metrics.ReasonInsufficientStock)
		return nil, fmt.Errorf("%w: requested %d", ErrInsufficientStock, req.Quantity)
	}

	now := s.now()
	tx := model.NewSale(*item, req.Quantity, actor, now)
	if err := s.transactions.Create(ctx, &tx); err != nil {
		s.metrics.SaleRejected(metrics.ReasonPersistence)
		s.restoreStock(ctx, item.ID, req.Quantity, actor)
		return nil, persistence("creating transaction", err)
	}
	s.metrics.SaleRecorded(req.Quantity)

	updated := *item
	updated.Stock -= req.Quantity
	updated.UpdatedAt = now
	updated.UpdatedBy = actor
	if fresh, err := s.items.FindByID(ctx, item.ID); err == nil {
		updated = *fresh
	}

	s.audit.Record(ctx, AuditEntry{
		Action:        model.ActionCreateTransaction,
		Actor:         actor,
		Details:       fmt.Sprintf("Sale %s %s x%d", tx.Platform, tx.Kind, tx.Quantity),
		ItemID:        uintPtr(tx.ItemID),
		TransactionID: uintPtr(tx.ID),
	})
	s.publishStock("sale_recorded", actor, updated.ID, updated.Stock)

	return &SaleResult{Transaction: tx, UpdatedItem: updated.View(now)}, nil
}

// restoreStock undoes a decrement whose transaction could not be stored.
func (s *ledgerService) restoreStock(ctx context.Context, itemID uint, quantity int, actor string) {
	err := s.items.IncrementStock(context.WithoutCancel(ctx), itemID, quantity, actor)
	s.metrics.Compensated(err == nil)
	if err != nil {
		s.log.Error("stock compensation failed, item stock is short",
			zap.Uint("item_id", itemID),
			zap.Int("quantity", quantity),
			zap.Error(err),
		)
		return
	}
	s.log.Warn("sale rolled back after ledger write failure",
		zap.Uint("item_id", itemID),
		zap.Int("quantity", quantity),
	)
}

func (s *ledgerService) ReverseSale(ctx context.Context, id uint, actor string) error {
	tx, err := s.transactions.FindByID(ctx, id)
	if err != nil {
		return lookupErr("transaction", id, err)
	}

	restored := true
	if err := s.items.IncrementStock(ctx, tx.ItemID, tx.Quantity, actor); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return persistence("restoring stock", err)
		}
		// item is gone, nothing to give back
		restored = false
	}

	if err := s.transactions.Delete(ctx, id); err != nil {
		if restored {
			s.withdrawStock(ctx, tx.ItemID, tx.Quantity, actor)
		}
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("transaction", id)
		}
		return persistence("deleting transaction", err)
	}
	s.metrics.SaleReversed()

	s.audit.Record(ctx, AuditEntry{
		Action:        model.ActionDeleteTransaction,
		Actor:         actor,
		Details:       fmt.Sprintf("Reversed sale %s %s x%d", tx.Platform, tx.Kind, tx.Quantity),
		ItemID:        uintPtr(tx.ItemID),
		TransactionID: uintPtr(tx.ID),
	})
	if restored {
		if item, err := s.items.FindByID(ctx, tx.ItemID); err == nil {
			s.publishStock("sale_reversed", actor, item.ID, item.Stock)
		}
	}
	return nil
}

// withdrawStock undoes a restitution whose transaction could not be deleted.
func (s *ledgerService) withdrawStock(ctx context.Context, itemID uint, quantity int, actor string) {
	ok, err := s.items.DecrementStock(context.WithoutCancel(ctx), itemID, quantity, actor)
	s.metrics.Compensated(err == nil && ok)
	if err != nil || !ok {
		s.log.Error("stock compensation failed, item stock is inflated",
			zap.Uint("item_id", itemID),
			zap.Int("quantity", quantity),
			zap.Bool("stock_short", !ok),
			zap.Error(err),
		)
		return
	}
	s.log.Warn("reversal rolled back after ledger delete failure",
		zap.Uint("item_id", itemID),
		zap.Int("quantity", quantity),
	)
}

func (s *ledgerService) publishStock(action, actor string, itemID uint, stock int) {
	if s.pub == nil {
		return
	}
	s.pub.Publish(ws.Event{
		Type:   "stock_update",
		Action: action,
		Actor:  actor,
		Data:   map[string]interface{}{"item_id": itemID, "stock": stock},
	})
}
