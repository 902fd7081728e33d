package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestItemDaysLeft(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		expiresAt time.Time
		days      int
		expired   bool
	}{
		{"half a day ahead", now.Add(12 * time.Hour), 1, false},
		{"exactly one day ahead", now.Add(24 * time.Hour), 1, false},
		{"thirty days ahead", now.AddDate(0, 0, 30), 30, false},
		{"just expired", now.Add(-time.Hour), 0, true},
		{"expired three days ago", now.AddDate(0, 0, -3), -3, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			item := Item{ExpiresAt: tc.expiresAt}
			assert.Equal(t, tc.days, item.DaysLeft(now))
			assert.Equal(t, tc.expired, item.Expired(now))

			view := item.View(now)
			assert.Equal(t, tc.days, view.DaysToExpire)
			assert.Equal(t, tc.expired, view.IsExpired)
		})
	}
}

func TestParseKind(t *testing.T) {
	k, ok := ParseKind("akun")
	assert.True(t, ok)
	assert.Equal(t, KindAccount, k)

	k, ok = ParseKind(" Kode_Redeem ")
	assert.True(t, ok)
	assert.Equal(t, KindRedeemCode, k)

	_, ok = ParseKind("gift")
	assert.False(t, ok)
	assert.False(t, Kind("gift").Valid())
}

func TestNewSaleSnapshotsEconomics(t *testing.T) {
	item := Item{ID: 7, Platform: "Netflix", Kind: KindAccount, Stock: 10, CostPrice: 1000, SalePrice: 1500}
	at := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

	tx := NewSale(item, 3, "alice", at)

	assert.Equal(t, uint(7), tx.ItemID)
	assert.Equal(t, "Netflix", tx.Platform)
	assert.Equal(t, KindAccount, tx.Kind)
	assert.Equal(t, int64(3000), tx.TotalCost)
	assert.Equal(t, int64(4500), tx.TotalSale)
	assert.Equal(t, int64(1500), tx.Profit)
	assert.Equal(t, tx.TotalSale-tx.TotalCost, tx.Profit)
	assert.Equal(t, "alice", tx.CreatedBy)
	assert.Equal(t, at, tx.OccurredAt)
}
