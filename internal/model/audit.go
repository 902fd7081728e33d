package model

import "time"

type AuditAction string

const (
	ActionCreateItem           AuditAction = "CREATE_ITEM"
	ActionUpdateItem           AuditAction = "UPDATE_ITEM"
	ActionDeleteItem           AuditAction = "DELETE_ITEM"
	ActionAddPremiumAccount    AuditAction = "ADD_PREMIUM_ACCOUNT"
	ActionAddVoucherCode       AuditAction = "ADD_VOUCHER_CODE"
	ActionUpdateAccountStatus  AuditAction = "UPDATE_ACCOUNT_STATUS"
	ActionUpdateCodeStatus     AuditAction = "UPDATE_CODE_STATUS"
	ActionDeletePremiumAccount AuditAction = "DELETE_PREMIUM_ACCOUNT"
	ActionDeleteVoucherCode    AuditAction = "DELETE_VOUCHER_CODE"
	ActionCreateTransaction    AuditAction = "CREATE_TRANSACTION"
	ActionDeleteTransaction    AuditAction = "DELETE_TRANSACTION"
	ActionCreateUser           AuditAction = "CREATE_USER"
)

// AuditLog is an append-only event record. IDs are snowflakes, so they sort
// in creation order.
type AuditLog struct {
	ID            int64       `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Action        AuditAction `gorm:"type:varchar(50);not null;index" json:"action"`
	Actor         string      `gorm:"type:varchar(100);not null" json:"actor"`
	Timestamp     time.Time   `gorm:"not null;index" json:"timestamp"`
	Details       string      `gorm:"type:text" json:"details"`
	ItemID        *uint       `json:"item_id,omitempty"`
	TransactionID *uint       `json:"transaction_id,omitempty"`
}
