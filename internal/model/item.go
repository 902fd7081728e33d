package model

import (
	"math"
	"strings"
	"time"
)

// Kind is the category of digital good an Item sells.
type Kind string

const (
	KindAccount    Kind = "account"
	KindVoucher    Kind = "voucher"
	KindRedeemCode Kind = "redeem_code"
)

// kindAliases keeps the legacy Indonesian labels working on the API.
var kindAliases = map[string]Kind{
	"account":     KindAccount,
	"akun":        KindAccount,
	"voucher":     KindVoucher,
	"redeem_code": KindRedeemCode,
	"kode_redeem": KindRedeemCode,
}

// ParseKind resolves a kind label, including legacy aliases.
func ParseKind(s string) (Kind, bool) {
	k, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]
	return k, ok
}

func (k Kind) Valid() bool {
	switch k {
	case KindAccount, KindVoucher, KindRedeemCode:
		return true
	}
	return false
}

// IsAccount reports whether units of this kind carry a username/password payload.
func (k Kind) IsAccount() bool {
	return k == KindAccount
}

// Item is a sellable SKU. Stock is a cached count: it is either set directly
// or recomputed from the item's available sub-inventory units.
type Item struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Platform  string    `gorm:"type:varchar(100);not null;index" json:"platform"`
	Kind      Kind      `gorm:"type:varchar(20);not null" json:"kind"`
	Stock     int       `gorm:"not null;default:0" json:"stock"`
	CostPrice int64     `gorm:"not null" json:"cost_price"`
	SalePrice int64     `gorm:"not null" json:"sale_price"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy string    `gorm:"type:varchar(100)" json:"updated_by"`
}

// Expired reports whether the item's expiry instant has passed.
func (i Item) Expired(now time.Time) bool {
	return i.ExpiresAt.Before(now)
}

// DaysLeft is ceil((expires_at - now) / 1 day). It goes to zero or below
// once the item expires.
func (i Item) DaysLeft(now time.Time) int {
	d := math.Ceil(float64(i.ExpiresAt.Sub(now)) / float64(24*time.Hour))
	if d == 0 {
		// math.Ceil can return -0
		return 0
	}
	return int(d)
}

// ItemView is an Item annotated with read-time expiry fields.
type ItemView struct {
	Item
	IsExpired    bool `json:"is_expired"`
	DaysToExpire int  `json:"days_to_expire"`
}

func (i Item) View(now time.Time) ItemView {
	return ItemView{
		Item:         i,
		IsExpired:    i.Expired(now),
		DaysToExpire: i.DaysLeft(now),
	}
}
