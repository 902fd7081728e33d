package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go-digital-inventory/internal/metrics"
	"go-digital-inventory/internal/model"
	"go-digital-inventory/internal/repository"
	"go-digital-inventory/internal/ws"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []ws.Event
}

func (p *recordingPublisher) Publish(event ws.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Action)
	}
	return out
}

type testEnv struct {
	store      *repository.Store
	pub        *recordingPublisher
	metrics    *metrics.Metrics
	audit      AuditService
	reconciler StockReconciler
	inventory  InventoryService
	units      UnitService
	ledger     LedgerService
	reports    ReportService
	users      UserService
}

var jakarta = mustLocation("Asia/Jakarta")

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, _ := repository.NewTestStore(t)
	return newEnvWithStore(t, store)
}

func newEnvWithStore(t *testing.T, store *repository.Store) *testEnv {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	log := zap.NewNop()
	pub := &recordingPublisher{}
	m := metrics.New("test")
	audit := NewAuditService(store.AuditLogs, node, pub, m, log)
	reconciler := NewStockReconciler(store.Items, pub, m, log)

	return &testEnv{
		store:      store,
		pub:        pub,
		metrics:    m,
		audit:      audit,
		reconciler: reconciler,
		inventory:  NewInventoryService(store, reconciler, audit, pub, jakarta, log),
		units:      NewUnitService(store, reconciler, audit, log),
		ledger:     NewLedgerService(store, audit, pub, m, log),
		reports:    NewReportService(store, ReportThresholds{LowStock: 5, ExpiringDays: 30}, jakarta),
		users:      NewUserService(store.Users, audit, log),
	}
}

func intPtr(v int) *int { return &v }

func (e *testEnv) createItem(t *testing.T, kind model.Kind, stock int, cost, sale int64) *model.ItemView {
	t.Helper()
	item, err := e.inventory.CreateItem(context.Background(), &CreateItemRequest{
		Platform:  "Netflix",
		Kind:      string(kind),
		Stock:     intPtr(stock),
		CostPrice: cost,
		SalePrice: sale,
		ExpiresAt: time.Now().AddDate(0, 3, 0).Format(dateLayout),
	}, "admin")
	require.NoError(t, err)
	return item
}

func (e *testEnv) stockOf(t *testing.T, id uint) int {
	t.Helper()
	item, err := e.store.Items.FindByID(context.Background(), id)
	require.NoError(t, err)
	return item.Stock
}

func (e *testEnv) auditActions(t *testing.T) []model.AuditAction {
	t.Helper()
	page, err := e.audit.List(context.Background(), 1, MaxAuditLimit)
	require.NoError(t, err)
	out := make([]model.AuditAction, 0, len(page.AuditLogs))
	for _, l := range page.AuditLogs {
		out = append(out, l.Action)
	}
	return out
}
