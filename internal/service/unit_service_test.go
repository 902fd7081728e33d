package service

import (
	"context"
	"testing"

	"go-digital-inventory/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addAccount(t *testing.T, env *testEnv, itemID uint, username string) *model.Unit {
	t.Helper()
	unit, err := env.units.AddUnit(context.Background(), &AddUnitRequest{
		ItemID:   itemID,
		Tipe:     "akun",
		Username: username,
		Password: "secret",
	}, "staff")
	require.NoError(t, err)
	return unit
}

func TestUnitEventsReconcileStock(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	item := env.createItem(t, model.KindAccount, 0, 1000, 1500)

	first := addAccount(t, env, item.ID, "a@example.com")
	addAccount(t, env, item.ID, "b@example.com")
	third := addAccount(t, env, item.ID, "c@example.com")
	assert.Equal(t, 3, env.stockOf(t, item.ID))
	assert.Equal(t, item.Platform, first.Platform)
	assert.Equal(t, model.StatusAvailable, first.Status)

	sold, err := env.units.UpdateUnitStatus(ctx, &UpdateUnitStatusRequest{
		ID:     first.ID,
		Tipe:   "account",
		Status: model.StatusSold,
	}, "staff")
	require.NoError(t, err)
	assert.Equal(t, 2, env.stockOf(t, item.ID))
	require.NotNil(t, sold.SoldAt)
	require.NotNil(t, sold.SoldTo)
	assert.Equal(t, model.DefaultSoldTo, *sold.SoldTo)

	require.NoError(t, env.units.DeleteUnit(ctx, model.KindAccount, third.ID, "staff"))
	assert.Equal(t, 1, env.stockOf(t, item.ID))

	assert.Equal(t, []model.AuditAction{
		model.ActionDeletePremiumAccount,
		model.ActionUpdateAccountStatus,
		model.ActionAddPremiumAccount,
		model.ActionAddPremiumAccount,
		model.ActionAddPremiumAccount,
		model.ActionCreateItem,
	}, env.auditActions(t))
}

func TestReconcileIsIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	item := env.createItem(t, model.KindAccount, 0, 1000, 1500)
	addAccount(t, env, item.ID, "a@example.com")
	addAccount(t, env, item.ID, "b@example.com")

	for i := 0; i < 3; i++ {
		stock, applied, err := env.reconciler.Reconcile(ctx, item.ID)
		require.NoError(t, err)
		assert.True(t, applied)
		assert.Equal(t, 2, stock)
	}
	assert.Equal(t, 2, env.stockOf(t, item.ID))

	stock, applied, err := env.reconciler.Reconcile(ctx, 9999)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Zero(t, stock)
}

func TestDirectStockIsNotReconciled(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	direct := env.createItem(t, model.KindVoucher, 25, 100, 150)
	tracked := env.createItem(t, model.KindAccount, 0, 1000, 1500)

	unit := addAccount(t, env, tracked.ID, "a@example.com")
	_, err := env.units.UpdateUnitStatus(ctx, &UpdateUnitStatusRequest{ID: unit.ID, Tipe: "account", Status: model.StatusSold}, "staff")
	require.NoError(t, err)

	_, err = env.ledger.RecordSale(ctx, &SaleRequest{ItemID: direct.ID, Quantity: 5}, "staff")
	require.NoError(t, err)

	assert.Equal(t, 20, env.stockOf(t, direct.ID))
	assert.Equal(t, 0, env.stockOf(t, tracked.ID))
}

func TestAddUnitRejections(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	item := env.createItem(t, model.KindAccount, 0, 1000, 1500)
	addAccount(t, env, item.ID, "dup@example.com")

	t.Run("duplicate credential on the same platform", func(t *testing.T) {
		_, err := env.units.AddUnit(ctx, &AddUnitRequest{ItemID: item.ID, Tipe: "account", Username: "dup@example.com", Password: "x"}, "staff")
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("unknown item", func(t *testing.T) {
		_, err := env.units.AddUnit(ctx, &AddUnitRequest{ItemID: 9999, Tipe: "account", Username: "new@example.com", Password: "x"}, "staff")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("missing password", func(t *testing.T) {
		_, err := env.units.AddUnit(ctx, &AddUnitRequest{ItemID: item.ID, Tipe: "account", Username: "new@example.com"}, "staff")
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("missing code", func(t *testing.T) {
		_, err := env.units.AddUnit(ctx, &AddUnitRequest{ItemID: item.ID, Tipe: "kode_redeem", Code: "  "}, "staff")
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown tipe", func(t *testing.T) {
		_, err := env.units.AddUnit(ctx, &AddUnitRequest{ItemID: item.ID, Tipe: "gift", Code: "X"}, "staff")
		assert.ErrorIs(t, err, ErrValidation)
	})

	assert.Equal(t, 1, env.stockOf(t, item.ID))
}

func TestSameCredentialOnAnotherPlatform(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	netflix := env.createItem(t, model.KindAccount, 0, 1000, 1500)
	spotify, err := env.inventory.CreateItem(ctx, &CreateItemRequest{
		Platform:  "Spotify",
		Kind:      "account",
		CostPrice: 500,
		SalePrice: 800,
		ExpiresAt: "2030-01-01",
	}, "admin")
	require.NoError(t, err)

	addAccount(t, env, netflix.ID, "shared@example.com")
	addAccount(t, env, spotify.ID, "shared@example.com")
	assert.Equal(t, 1, env.stockOf(t, spotify.ID))
}

func TestListUnitsFilters(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	item := env.createItem(t, model.KindAccount, 0, 1000, 1500)
	vouchers := env.createItem(t, model.KindVoucher, 0, 100, 150)

	sold := addAccount(t, env, item.ID, "a@example.com")
	addAccount(t, env, item.ID, "b@example.com")
	_, err := env.units.AddUnit(ctx, &AddUnitRequest{ItemID: vouchers.ID, Tipe: "voucher", Code: "V-1", Value: "50k"}, "staff")
	require.NoError(t, err)
	_, err = env.units.UpdateUnitStatus(ctx, &UpdateUnitStatusRequest{ID: sold.ID, Tipe: "account", Status: model.StatusSold, SoldTo: "buyer-1"}, "staff")
	require.NoError(t, err)

	t.Run("default lists everything", func(t *testing.T) {
		listing, err := env.units.ListUnits(ctx, UnitQuery{})
		require.NoError(t, err)
		assert.Len(t, listing.PremiumAccounts, 2)
		assert.Len(t, listing.VoucherCodes, 1)
	})

	t.Run("all disables the status filter", func(t *testing.T) {
		listing, err := env.units.ListUnits(ctx, UnitQuery{Status: "all"})
		require.NoError(t, err)
		assert.Len(t, listing.PremiumAccounts, 2)
	})

	t.Run("by status", func(t *testing.T) {
		listing, err := env.units.ListUnits(ctx, UnitQuery{Status: model.StatusSold})
		require.NoError(t, err)
		require.Len(t, listing.PremiumAccounts, 1)
		assert.Equal(t, "buyer-1", *listing.PremiumAccounts[0].SoldTo)
		assert.Empty(t, listing.VoucherCodes)
	})

	t.Run("by item", func(t *testing.T) {
		listing, err := env.units.ListUnits(ctx, UnitQuery{ItemID: &vouchers.ID})
		require.NoError(t, err)
		assert.Empty(t, listing.PremiumAccounts)
		require.Len(t, listing.VoucherCodes, 1)
		assert.Equal(t, "V-1", listing.VoucherCodes[0].Label())
	})

	t.Run("by platform", func(t *testing.T) {
		listing, err := env.units.ListUnits(ctx, UnitQuery{Platform: "Spotify"})
		require.NoError(t, err)
		assert.Empty(t, listing.PremiumAccounts)
		assert.Empty(t, listing.VoucherCodes)
	})
}

func TestUnitMutationsOnMissingUnit(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.units.UpdateUnitStatus(ctx, &UpdateUnitStatusRequest{ID: 42, Tipe: "voucher", Status: model.StatusSold}, "staff")
	assert.ErrorIs(t, err, ErrNotFound)

	err = env.units.DeleteUnit(ctx, model.KindAccount, 42, "staff")
	assert.ErrorIs(t, err, ErrNotFound)

	err = env.units.DeleteUnit(ctx, model.Kind("gift"), 1, "staff")
	assert.ErrorIs(t, err, ErrValidation)
}
