package service

import (
	"context"
	"errors"

	"go-digital-inventory/internal/metrics"
	"go-digital-inventory/internal/repository"
	"go-digital-inventory/internal/ws"

	"go.uber.org/zap"
)

// StockReconciler recomputes an item's stock from its available units. It
// runs only after sub-inventory events, so items whose stock is set directly
// are never touched.
type StockReconciler interface {
	// Reconcile writes the recomputed stock and returns it. A missing item
	// is a no-op that reports (0, false, nil).
	Reconcile(ctx context.Context, itemID uint) (stock int, applied bool, err error)
}

type stockReconciler struct {
	items   repository.ItemRepository
	pub     Publisher
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewStockReconciler(items repository.ItemRepository, pub Publisher, m *metrics.Metrics, log *zap.Logger) StockReconciler {
	return &stockReconciler{
		items:   items,
		pub:     pub,
		metrics: m,
		log:     log.Named("reconciler"),
	}
}

func (r *stockReconciler) Reconcile(ctx context.Context, itemID uint) (int, bool, error) {
	stock, err := r.items.RecountStock(ctx, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}

	r.metrics.Reconciled()
	r.log.Debug("stock reconciled", zap.Uint("item_id", itemID), zap.Int("stock", stock))
	if r.pub != nil {
		r.pub.Publish(ws.Event{
			Type:   "stock_update",
			Action: "reconciled",
			Data:   map[string]interface{}{"item_id": itemID, "stock": stock},
		})
	}
	return stock, true, nil
}
