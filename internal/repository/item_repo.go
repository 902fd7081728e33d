package repository

import (
	"context"
	"time"

	"go-digital-inventory/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type itemRepo struct {
	db *gorm.DB
}

func NewItemRepo(db *gorm.DB) ItemRepository {
	return &itemRepo{db}
}

func (r *itemRepo) Create(ctx context.Context, item *model.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *itemRepo) FindAll(ctx context.Context) ([]model.Item, error) {
	var items []model.Item
	err := r.db.WithContext(ctx).Order("id ASC").Find(&items).Error
	return items, err
}

func (r *itemRepo) FindByID(ctx context.Context, id uint) (*model.Item, error) {
	var item model.Item
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (r *itemRepo) Update(ctx context.Context, item *model.Item, columns ...string) error {
	columns = append(columns, "updated_at", "updated_by")
	res := r.db.WithContext(ctx).Model(item).Select(columns).Updates(item)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *itemRepo) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Item{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DecrementStock is a conditional update, so two concurrent sales can never
// both pass the stock check.
func (r *itemRepo) DecrementStock(ctx context.Context, id uint, quantity int, updatedBy string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Item{}).
		Where("id = ? AND stock >= ?", id, quantity).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock - ?", quantity),
			"updated_at": time.Now(),
			"updated_by": updatedBy,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return true, nil
	}

	// Nothing matched: either the item is gone or stock is short.
	if _, err := r.FindByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (r *itemRepo) IncrementStock(ctx context.Context, id uint, quantity int, updatedBy string) error {
	res := r.db.WithContext(ctx).Model(&model.Item{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock + ?", quantity),
			"updated_at": time.Now(),
			"updated_by": updatedBy,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RecountStock sets stock to the number of available units in one
// transaction. The item row is locked before counting, so the last recount
// to commit has seen every unit committed ahead of it.
func (r *itemRepo) RecountStock(ctx context.Context, id uint) (int, error) {
	var item model.Item
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockItem(tx, id); err != nil {
			return err
		}

		res := tx.Exec(`UPDATE items SET stock =
			(SELECT COUNT(*) FROM premium_accounts WHERE item_id = ? AND status = ?) +
			(SELECT COUNT(*) FROM voucher_codes WHERE item_id = ? AND status = ?),
			updated_at = ?
			WHERE id = ?`,
			id, model.StatusAvailable, id, model.StatusAvailable, time.Now(), id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Select("id", "stock").First(&item, "id = ?", id).Error
	})
	if err != nil {
		return 0, translate(err)
	}
	return item.Stock, nil
}

// DeleteWithUnits removes the item and every unit linked to it in one
// transaction. The item goes first, so a unit added concurrently either
// lands before the cascade or finds its item gone on recount.
func (r *itemRepo) DeleteWithUnits(ctx context.Context, id uint) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockItem(tx, id); err != nil {
			return err
		}
		res := tx.Delete(&model.Item{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		var err error
		removed, err = deleteUnitsOf(tx, id)
		return err
	})
	if err != nil {
		return 0, translate(err)
	}
	return removed, nil
}

// lockItem takes the row lock on an item for the rest of tx. SQLite has no
// row locks and serializes writers instead.
func lockItem(tx *gorm.DB, id uint) error {
	var item model.Item
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		First(&item, "id = ?", id).Error
	return translate(err)
}
