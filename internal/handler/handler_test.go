package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-digital-inventory/internal/repository"
	"go-digital-inventory/internal/service"
	"go-digital-inventory/pkg/jwt"

	"github.com/bwmarrin/snowflake"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	app   *fiber.App
	token string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, _ := repository.NewTestStore(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()

	audit := service.NewAuditService(store.AuditLogs, node, nil, nil, log)
	reconciler := service.NewStockReconciler(store.Items, nil, nil, log)
	users := service.NewUserService(store.Users, audit, log)
	_, err = users.EnsureAdmin(context.Background(), "admin", "admin123")
	require.NoError(t, err)

	svcs := Services{
		Auth:      service.NewAuthService(store.Users, jwt.NewIssuer("handler-test", time.Hour, "digital-inventory"), log),
		Users:     users,
		Inventory: service.NewInventoryService(store, reconciler, audit, nil, time.UTC, log),
		Units:     service.NewUnitService(store, reconciler, audit, log),
		Ledger:    service.NewLedgerService(store, audit, nil, nil, log),
		Reports:   service.NewReportService(store, service.ReportThresholds{LowStock: 5, ExpiringDays: 30}, time.UTC),
		Audit:     audit,
	}

	app := fiber.New()
	RegisterRoutes(app.Group("/api"), svcs)

	s := &testServer{app: app}
	status, body := s.do(t, http.MethodPost, "/api/auth/login", map[string]string{"username": "admin", "password": "admin123"})
	require.Equal(t, 200, status, body)
	s.token = body["token"].(string)
	return s
}

func (s *testServer) do(t *testing.T, method, path string, payload interface{}) (int, map[string]interface{}) {
	t.Helper()
	return s.doWithToken(t, method, path, s.token, payload)
}

func (s *testServer) doWithToken(t *testing.T, method, path, token string, payload interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]interface{}{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (s *testServer) createItem(t *testing.T, stock int) uint {
	t.Helper()
	status, body := s.do(t, http.MethodPost, "/api/items", map[string]interface{}{
		"platform":   "Netflix",
		"kind":       "akun",
		"stock":      stock,
		"cost_price": 1000,
		"sale_price": 1500,
		"expires_at": time.Now().AddDate(0, 2, 0).Format("2006-01-02"),
	})
	require.Equal(t, 201, status, body)
	item := body["item"].(map[string]interface{})
	return uint(item["id"].(float64))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	status, body := s.doWithToken(t, http.MethodGet, "/api/items", "", nil)
	assert.Equal(t, 401, status)
	assert.Equal(t, "Missing authorization token", body["error"])

	status, _ = s.doWithToken(t, http.MethodGet, "/api/items", "garbage", nil)
	assert.Equal(t, 401, status)

	status, _ = s.do(t, http.MethodGet, "/api/items", nil)
	assert.Equal(t, 200, status)
}

func TestLoginAndValidateToken(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.doWithToken(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin", "password": "nope"})
	assert.Equal(t, 401, status)

	status, body := s.doWithToken(t, http.MethodPost, "/api/auth/validate-token", "", map[string]string{"token": s.token})
	assert.Equal(t, 200, status)
	assert.Equal(t, true, body["valid"])

	status, body = s.doWithToken(t, http.MethodPost, "/api/auth/validate-token", "", map[string]string{"token": "bad"})
	assert.Equal(t, 401, status)
	assert.Equal(t, false, body["valid"])
}

func TestRegisterIsAdminOnly(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/api/auth/register", map[string]string{"username": "kasir", "password": "kasir123"})
	require.Equal(t, 201, status, body)
	assert.Equal(t, "staff", body["user"].(map[string]interface{})["role"])
	assert.NotContains(t, body["user"], "password")

	status, _ = s.do(t, http.MethodPost, "/api/auth/register", map[string]string{"username": "kasir", "password": "kasir123"})
	assert.Equal(t, 409, status)

	status, body = s.doWithToken(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "kasir", "password": "kasir123"})
	require.Equal(t, 200, status)
	staffToken := body["token"].(string)

	status, _ = s.doWithToken(t, http.MethodPost, "/api/auth/register", staffToken, map[string]string{"username": "other", "password": "other123"})
	assert.Equal(t, 403, status)
}

func TestItemRoutes(t *testing.T) {
	s := newTestServer(t)
	id := s.createItem(t, 3)

	status, body := s.do(t, http.MethodGet, "/api/items", nil)
	require.Equal(t, 200, status)
	items := body["items"].([]interface{})
	require.Len(t, items, 1)
	item := items[0].(map[string]interface{})
	assert.Equal(t, false, item["is_expired"])
	assert.Contains(t, item, "days_to_expire")
	assert.Equal(t, "account", item["kind"])
	assert.Equal(t, "admin", item["updated_by"])

	status, body = s.do(t, http.MethodPut, "/api/items", map[string]interface{}{"id": id, "sale_price": 2000})
	require.Equal(t, 200, status, body)
	assert.Equal(t, float64(2000), body["item"].(map[string]interface{})["sale_price"])
	assert.Equal(t, float64(3), body["item"].(map[string]interface{})["stock"])

	status, _ = s.do(t, http.MethodPost, "/api/items", map[string]interface{}{"platform": "X"})
	assert.Equal(t, 400, status)

	status, _ = s.do(t, http.MethodDelete, "/api/items", nil)
	assert.Equal(t, 400, status)

	status, _ = s.do(t, http.MethodDelete, "/api/items?id=999", nil)
	assert.Equal(t, 404, status)

	status, body = s.do(t, http.MethodDelete, "/api/items?id=1", nil)
	require.Equal(t, 200, status)
	assert.Equal(t, float64(0), body["units_removed"])
}

func TestPremiumAccountRoutes(t *testing.T) {
	s := newTestServer(t)
	id := s.createItem(t, 0)

	for _, name := range []string{"a@example.com", "b@example.com"} {
		status, body := s.do(t, http.MethodPost, "/api/premium-accounts", map[string]interface{}{
			"item_id":  id,
			"tipe":     "akun",
			"username": name,
			"password": "secret",
		})
		require.Equal(t, 201, status, body)
	}

	status, _ := s.do(t, http.MethodPost, "/api/premium-accounts", map[string]interface{}{
		"item_id": id, "tipe": "akun", "username": "a@example.com", "password": "x",
	})
	assert.Equal(t, 409, status)

	status, body := s.do(t, http.MethodPut, "/api/premium-accounts", map[string]interface{}{
		"id": 1, "tipe": "akun", "status": "sold", "sold_to": "buyer",
	})
	require.Equal(t, 200, status, body)
	assert.Equal(t, "buyer", body["data"].(map[string]interface{})["sold_to"])

	status, body = s.do(t, http.MethodGet, "/api/premium-accounts?status=available&item_id=1", nil)
	require.Equal(t, 200, status)
	assert.Len(t, body["premium_accounts"], 1)
	assert.Empty(t, body["voucher_codes"])

	status, _ = s.do(t, http.MethodDelete, "/api/premium-accounts?id=2&tipe=gift", nil)
	assert.Equal(t, 400, status)

	status, _ = s.do(t, http.MethodDelete, "/api/premium-accounts?id=2&tipe=account", nil)
	assert.Equal(t, 200, status)

	status, body = s.do(t, http.MethodGet, "/api/items/1", nil)
	require.Equal(t, 200, status)
	assert.Equal(t, float64(0), body["stock"])
}

func TestTransactionRoutes(t *testing.T) {
	s := newTestServer(t)
	id := s.createItem(t, 10)

	status, body := s.do(t, http.MethodPost, "/api/transactions", map[string]interface{}{"item_id": id, "jumlah": 3})
	require.Equal(t, 201, status, body)
	tx := body["transaction"].(map[string]interface{})
	assert.Equal(t, float64(4500), tx["total_sale"])
	assert.Equal(t, float64(1500), tx["profit"])
	assert.Equal(t, float64(7), body["updated_item"].(map[string]interface{})["stock"])

	status, body = s.do(t, http.MethodPost, "/api/transactions", map[string]interface{}{"item_id": id, "quantity": 20})
	assert.Equal(t, 400, status)
	assert.Contains(t, body["error"], "insufficient stock")

	status, _ = s.do(t, http.MethodPost, "/api/transactions", map[string]interface{}{"item_id": id, "jumlah": 0})
	assert.Equal(t, 400, status)

	status, _ = s.do(t, http.MethodPost, "/api/transactions", map[string]interface{}{"item_id": 999, "jumlah": 1})
	assert.Equal(t, 404, status)

	status, body = s.do(t, http.MethodGet, "/api/transactions", nil)
	require.Equal(t, 200, status)
	assert.Len(t, body["transactions"], 1)

	status, _ = s.do(t, http.MethodDelete, "/api/transactions?id=1", nil)
	require.Equal(t, 200, status)

	status, body = s.do(t, http.MethodGet, "/api/items/1", nil)
	require.Equal(t, 200, status)
	assert.Equal(t, float64(10), body["stock"])

	status, _ = s.do(t, http.MethodDelete, "/api/transactions?id=1", nil)
	assert.Equal(t, 404, status)
}

func TestReportAndAuditRoutes(t *testing.T) {
	s := newTestServer(t)
	id := s.createItem(t, 10)
	status, _ := s.do(t, http.MethodPost, "/api/transactions", map[string]interface{}{"item_id": id, "jumlah": 2})
	require.Equal(t, 201, status)

	status, body := s.do(t, http.MethodGet, "/api/reports", nil)
	require.Equal(t, 200, status)
	summary := body["summary"].(map[string]interface{})
	assert.Equal(t, float64(3000), summary["total_pendapatan"])
	assert.Equal(t, "33.33", summary["margin_profit"])
	assert.Len(t, body["charts"].(map[string]interface{})["last_7_days"], 7)

	status, body = s.do(t, http.MethodGet, "/api/audit-logs?page=1&limit=1", nil)
	require.Equal(t, 200, status)
	assert.Equal(t, float64(2), body["total"])
	assert.Equal(t, float64(2), body["total_pages"])
	logs := body["audit_logs"].([]interface{})
	require.Len(t, logs, 1)
	assert.Equal(t, "CREATE_TRANSACTION", logs[0].(map[string]interface{})["action"])
}
