package repository

import (
	"errors"
	"strings"

	"go-digital-inventory/internal/model"

	"gorm.io/gorm"
)

// NewGormStore wires the relational adapter. It serves both the postgres and
// the sqlite backends.
func NewGormStore(db *gorm.DB) *Store {
	return &Store{
		Items:        NewItemRepo(db),
		Units:        NewUnitRepo(db),
		Transactions: NewTransactionRepo(db),
		AuditLogs:    NewAuditRepo(db),
		Users:        NewUserRepo(db),
	}
}

// AutoMigrate creates or updates every table the gorm adapter uses.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Item{},
		&premiumAccountRow{},
		&voucherCodeRow{},
		&model.Transaction{},
		&model.AuditLog{},
		&model.User{},
	)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey),
		// the sqlite driver does not translate constraint errors
		strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return ErrDuplicate
	}
	return err
}
