package repository

import (
	"context"
	"time"

	"go-digital-inventory/internal/model"

	"gorm.io/gorm"
)

type premiumAccountRow struct {
	ID       uint    `gorm:"primaryKey"`
	ItemID   uint    `gorm:"not null;index"`
	Platform string  `gorm:"type:varchar(100);not null;uniqueIndex:idx_premium_accounts_platform_username"`
	Username string  `gorm:"type:varchar(255);not null;uniqueIndex:idx_premium_accounts_platform_username"`
	Password string  `gorm:"type:varchar(255);not null"`
	Status   string  `gorm:"type:varchar(30);not null;index"`
	Notes    string  `gorm:"type:text"`
	SoldTo   *string `gorm:"type:varchar(255)"`

	CreatedAt time.Time
	SoldAt    *time.Time
}

func (premiumAccountRow) TableName() string {
	return "premium_accounts"
}

type voucherCodeRow struct {
	ID       uint       `gorm:"primaryKey"`
	ItemID   uint       `gorm:"not null;index"`
	Kind     model.Kind `gorm:"type:varchar(20);not null"`
	Platform string     `gorm:"type:varchar(100);not null;uniqueIndex:idx_voucher_codes_platform_code"`
	Code     string     `gorm:"type:varchar(255);not null;uniqueIndex:idx_voucher_codes_platform_code"`
	Value    string     `gorm:"type:varchar(255)"`
	Status   string     `gorm:"type:varchar(30);not null;index"`
	Notes    string     `gorm:"type:text"`
	SoldTo   *string    `gorm:"type:varchar(255)"`

	CreatedAt time.Time
	SoldAt    *time.Time
}

func (voucherCodeRow) TableName() string {
	return "voucher_codes"
}

func (r premiumAccountRow) toUnit() model.Unit {
	return model.Unit{
		ID:        r.ID,
		ItemID:    r.ItemID,
		Kind:      model.KindAccount,
		Platform:  r.Platform,
		Status:    r.Status,
		Notes:     r.Notes,
		CreatedAt: r.CreatedAt,
		SoldAt:    r.SoldAt,
		SoldTo:    r.SoldTo,
		Payload:   model.Account{Username: r.Username, Password: r.Password},
	}
}

func (r voucherCodeRow) toUnit() model.Unit {
	return model.Unit{
		ID:        r.ID,
		ItemID:    r.ItemID,
		Kind:      r.Kind,
		Platform:  r.Platform,
		Status:    r.Status,
		Notes:     r.Notes,
		CreatedAt: r.CreatedAt,
		SoldAt:    r.SoldAt,
		SoldTo:    r.SoldTo,
		Payload:   model.VoucherCode{Code: r.Code, Value: r.Value},
	}
}

type unitRepo struct {
	db *gorm.DB
}

func NewUnitRepo(db *gorm.DB) UnitRepository {
	return &unitRepo{db}
}

func (r *unitRepo) Create(ctx context.Context, unit *model.Unit) error {
	db := r.db.WithContext(ctx)
	switch p := unit.Payload.(type) {
	case model.Account:
		row := premiumAccountRow{
			ItemID:    unit.ItemID,
			Platform:  unit.Platform,
			Username:  p.Username,
			Password:  p.Password,
			Status:    unit.Status,
			Notes:     unit.Notes,
			CreatedAt: unit.CreatedAt,
		}
		if err := db.Create(&row).Error; err != nil {
			return translate(err)
		}
		unit.ID = row.ID
	case model.VoucherCode:
		row := voucherCodeRow{
			ItemID:    unit.ItemID,
			Kind:      unit.Kind,
			Platform:  unit.Platform,
			Code:      p.Code,
			Value:     p.Value,
			Status:    unit.Status,
			Notes:     unit.Notes,
			CreatedAt: unit.CreatedAt,
		}
		if err := db.Create(&row).Error; err != nil {
			return translate(err)
		}
		unit.ID = row.ID
	default:
		return model.ErrPayloadMismatch
	}
	return nil
}

func (r *unitRepo) Exists(ctx context.Context, kind model.Kind, platform, key string) (bool, error) {
	var count int64
	var err error
	if kind.IsAccount() {
		err = r.db.WithContext(ctx).Model(&premiumAccountRow{}).
			Where("platform = ? AND username = ?", platform, key).Count(&count).Error
	} else {
		err = r.db.WithContext(ctx).Model(&voucherCodeRow{}).
			Where("platform = ? AND code = ?", platform, key).Count(&count).Error
	}
	return count > 0, err
}

func (r *unitRepo) FindByID(ctx context.Context, kind model.Kind, id uint) (*model.Unit, error) {
	db := r.db.WithContext(ctx)
	if kind.IsAccount() {
		var row premiumAccountRow
		if err := db.First(&row, "id = ?", id).Error; err != nil {
			return nil, translate(err)
		}
		u := row.toUnit()
		return &u, nil
	}
	var row voucherCodeRow
	if err := db.First(&row, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	u := row.toUnit()
	return &u, nil
}

func (r *unitRepo) scope(filter UnitFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filter.ItemID != nil {
			db = db.Where("item_id = ?", *filter.ItemID)
		}
		if filter.Platform != "" {
			db = db.Where("LOWER(platform) = LOWER(?)", filter.Platform)
		}
		if filter.Status != "" {
			db = db.Where("status = ?", filter.Status)
		}
		return db.Order("id ASC")
	}
}

func (r *unitRepo) List(ctx context.Context, filter UnitFilter) ([]model.Unit, []model.Unit, error) {
	var accountRows []premiumAccountRow
	if err := r.db.WithContext(ctx).Scopes(r.scope(filter)).Find(&accountRows).Error; err != nil {
		return nil, nil, err
	}
	var codeRows []voucherCodeRow
	if err := r.db.WithContext(ctx).Scopes(r.scope(filter)).Find(&codeRows).Error; err != nil {
		return nil, nil, err
	}

	accounts := make([]model.Unit, 0, len(accountRows))
	for _, row := range accountRows {
		accounts = append(accounts, row.toUnit())
	}
	codes := make([]model.Unit, 0, len(codeRows))
	for _, row := range codeRows {
		codes = append(codes, row.toUnit())
	}
	return accounts, codes, nil
}

func (r *unitRepo) UpdateStatus(ctx context.Context, unit *model.Unit) error {
	var target interface{} = &premiumAccountRow{}
	if !unit.Kind.IsAccount() {
		target = &voucherCodeRow{}
	}
	res := r.db.WithContext(ctx).Model(target).
		Where("id = ?", unit.ID).
		Updates(map[string]interface{}{
			"status":  unit.Status,
			"sold_at": unit.SoldAt,
			"sold_to": unit.SoldTo,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *unitRepo) Delete(ctx context.Context, kind model.Kind, id uint) error {
	var target interface{} = &premiumAccountRow{}
	if !kind.IsAccount() {
		target = &voucherCodeRow{}
	}
	res := r.db.WithContext(ctx).Delete(target, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// deleteUnitsOf removes both accounts and codes of an item and reports how
// many units went away. It runs on the caller's transaction.
func deleteUnitsOf(tx *gorm.DB, itemID uint) (int64, error) {
	res := tx.Where("item_id = ?", itemID).Delete(&premiumAccountRow{})
	if res.Error != nil {
		return 0, res.Error
	}
	removed := res.RowsAffected

	res = tx.Where("item_id = ?", itemID).Delete(&voucherCodeRow{})
	if res.Error != nil {
		return 0, res.Error
	}
	return removed + res.RowsAffected, nil
}
