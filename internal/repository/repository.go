package repository

import (
	"context"
	"errors"

	"go-digital-inventory/internal/model"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type ItemRepository interface {
	Create(ctx context.Context, item *model.Item) error
	FindAll(ctx context.Context) ([]model.Item, error)
	FindByID(ctx context.Context, id uint) (*model.Item, error)
	// Update writes only the named columns of item, plus updated_at and
	// updated_by, so a concurrent stock change is never overwritten by a
	// stale read.
	Update(ctx context.Context, item *model.Item, columns ...string) error
	Delete(ctx context.Context, id uint) error

	// DecrementStock lowers stock by quantity only when at least quantity is
	// left, as one atomic step. It returns false with a nil error when stock
	// is insufficient and ErrNotFound when the item does not exist.
	DecrementStock(ctx context.Context, id uint, quantity int, updatedBy string) (bool, error)
	IncrementStock(ctx context.Context, id uint, quantity int, updatedBy string) error

	// RecountStock sets stock to the number of available units of the item
	// as one atomic step and returns it. Concurrent recounts converge on the
	// count seen by the last one to finish.
	RecountStock(ctx context.Context, id uint) (int, error)
	// DeleteWithUnits removes the item together with its units and reports
	// how many units went away.
	DeleteWithUnits(ctx context.Context, id uint) (int64, error)
}

// UnitFilter narrows a sub-inventory listing. Zero values match everything;
// Platform matches case-insensitively.
type UnitFilter struct {
	ItemID   *uint
	Platform string
	Status   string
}

type UnitRepository interface {
	// Create persists the unit and assigns its ID. It returns ErrDuplicate
	// when the credential already exists for the platform.
	Create(ctx context.Context, unit *model.Unit) error
	Exists(ctx context.Context, kind model.Kind, platform, key string) (bool, error)
	FindByID(ctx context.Context, kind model.Kind, id uint) (*model.Unit, error)
	List(ctx context.Context, filter UnitFilter) (accounts, codes []model.Unit, err error)
	UpdateStatus(ctx context.Context, unit *model.Unit) error
	Delete(ctx context.Context, kind model.Kind, id uint) error
}

type TransactionRepository interface {
	Create(ctx context.Context, tx *model.Transaction) error
	FindAll(ctx context.Context) ([]model.Transaction, error)
	FindByID(ctx context.Context, id uint) (*model.Transaction, error)
	Delete(ctx context.Context, id uint) error
}

type AuditRepository interface {
	Append(ctx context.Context, entry *model.AuditLog) error
	// List returns a newest-first page and the total number of entries.
	List(ctx context.Context, offset, limit int) ([]model.AuditLog, int64, error)
}

type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByID(ctx context.Context, id uint) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
	Count(ctx context.Context) (int64, error)
}

// Store bundles one adapter's repositories. Services depend on the
// interfaces only and never learn which backend is active.
type Store struct {
	Items        ItemRepository
	Units        UnitRepository
	Transactions TransactionRepository
	AuditLogs    AuditRepository
	Users        UserRepository
}
