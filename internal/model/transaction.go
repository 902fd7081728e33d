package model

import "time"

// Transaction is an immutable sale record. Prices are copied from the Item at
// sale time so historical profit does not move when the Item is repriced.
type Transaction struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ItemID     uint      `gorm:"not null;index" json:"item_id"`
	Platform   string    `gorm:"type:varchar(100);not null" json:"platform"`
	Kind       Kind      `gorm:"type:varchar(20);not null" json:"kind"`
	Quantity   int       `gorm:"not null" json:"quantity"`
	CostPrice  int64     `gorm:"not null" json:"cost_price"`
	SalePrice  int64     `gorm:"not null" json:"sale_price"`
	TotalCost  int64     `gorm:"not null" json:"total_cost"`
	TotalSale  int64     `gorm:"not null" json:"total_sale"`
	Profit     int64     `gorm:"not null" json:"profit"`
	OccurredAt time.Time `gorm:"not null;index" json:"occurred_at"`
	CreatedBy  string    `gorm:"type:varchar(100)" json:"created_by"`
}

// NewSale snapshots the item's economics for a sale of quantity units.
func NewSale(item Item, quantity int, actor string, at time.Time) Transaction {
	q := int64(quantity)
	totalCost := item.CostPrice * q
	totalSale := item.SalePrice * q
	return Transaction{
		ItemID:     item.ID,
		Platform:   item.Platform,
		Kind:       item.Kind,
		Quantity:   quantity,
		CostPrice:  item.CostPrice,
		SalePrice:  item.SalePrice,
		TotalCost:  totalCost,
		TotalSale:  totalSale,
		Profit:     totalSale - totalCost,
		OccurredAt: at,
		CreatedBy:  actor,
	}
}
