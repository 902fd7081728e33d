package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-digital-inventory/internal/model"
	"go-digital-inventory/internal/repository"

	"go.uber.org/zap"
)

// StatusAll disables the status filter when listing units.
const StatusAll = "all"

type UnitService interface {
	ListUnits(ctx context.Context, query UnitQuery) (*UnitListing, error)
	AddUnit(ctx context.Context, req *AddUnitRequest, actor string) (*model.Unit, error)
	UpdateUnitStatus(ctx context.Context, req *UpdateUnitStatusRequest, actor string) (*model.Unit, error)
	DeleteUnit(ctx context.Context, kind model.Kind, id uint, actor string) error
}

type UnitQuery struct {
	ItemID   *uint
	Platform string
	Status   string
}

type UnitListing struct {
	PremiumAccounts []model.Unit `json:"premium_accounts"`
	VoucherCodes    []model.Unit `json:"voucher_codes"`
}

// AddUnitRequest carries either account credentials or a code, chosen by
// Tipe.
type AddUnitRequest struct {
	ItemID   uint   `json:"item_id" validate:"required"`
	Tipe     string `json:"tipe" validate:"required,item_kind"`
	Username string `json:"username"`
	Password string `json:"password"`
	Code     string `json:"code"`
	Value    string `json:"value"`
	Notes    string `json:"notes"`
}

type UpdateUnitStatusRequest struct {
	ID     uint   `json:"id" validate:"required"`
	Tipe   string `json:"tipe" validate:"required,item_kind"`
	Status string `json:"status" validate:"required"`
	SoldTo string `json:"sold_to"`
}

type unitService struct {
	items      repository.ItemRepository
	units      repository.UnitRepository
	reconciler StockReconciler
	audit      AuditService
	log        *zap.Logger
	now        func() time.Time
}

func NewUnitService(store *repository.Store, reconciler StockReconciler, audit AuditService, log *zap.Logger) UnitService {
	return &unitService{
		items:      store.Items,
		units:      store.Units,
		reconciler: reconciler,
		audit:      audit,
		log:        log.Named("units"),
		now:        time.Now,
	}
}

func unitNoun(kind model.Kind) string {
	if kind.IsAccount() {
		return "account"
	}
	return "code"
}

func (s *unitService) ListUnits(ctx context.Context, query UnitQuery) (*UnitListing, error) {
	filter := repository.UnitFilter{
		ItemID:   query.ItemID,
		Platform: strings.TrimSpace(query.Platform),
		Status:   strings.TrimSpace(query.Status),
	}
	if strings.EqualFold(filter.Status, StatusAll) {
		filter.Status = ""
	}

	accounts, codes, err := s.units.List(ctx, filter)
	if err != nil {
		return nil, persistence("listing units", err)
	}
	if accounts == nil {
		accounts = []model.Unit{}
	}
	if codes == nil {
		codes = []model.Unit{}
	}
	return &UnitListing{PremiumAccounts: accounts, VoucherCodes: codes}, nil
}

func (s *unitService) AddUnit(ctx context.Context, req *AddUnitRequest, actor string) (*model.Unit, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	kind, _ := model.ParseKind(req.Tipe)

	unit := &model.Unit{
		ItemID: req.ItemID,
		Kind:   kind,
		Status: model.StatusAvailable,
		Notes:  req.Notes,
	}
	if kind.IsAccount() {
		unit.Payload = model.Account{
			Username: strings.TrimSpace(req.Username),
			Password: req.Password,
		}
	} else {
		unit.Payload = model.VoucherCode{
			Code:  strings.TrimSpace(req.Code),
			Value: req.Value,
		}
	}
	if err := unit.Validate(); err != nil {
		return nil, invalid("%s", err.Error())
	}

	item, err := s.items.FindByID(ctx, req.ItemID)
	if err != nil {
		return nil, lookupErr("item", req.ItemID, err)
	}
	unit.Platform = item.Platform

	exists, err := s.units.Exists(ctx, kind, unit.Platform, unit.Label())
	if err != nil {
		return nil, persistence("checking unit uniqueness", err)
	}
	if exists {
		return nil, fmt.Errorf("%s %q on %s %w", unitNoun(kind), unit.Label(), unit.Platform, ErrConflict)
	}

	unit.CreatedAt = s.now()
	if err := s.units.Create(ctx, unit); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%s %q on %s %w", unitNoun(kind), unit.Label(), unit.Platform, ErrConflict)
		}
		return nil, persistence("creating unit", err)
	}

	if gone := s.reconcile(ctx, unit.ItemID); gone {
		// the item was deleted after the lookup above
		if err := s.units.Delete(context.WithoutCancel(ctx), kind, unit.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			s.log.Error("removing unit of deleted item", zap.Uint("unit_id", unit.ID), zap.Error(err))
		}
		return nil, notFound("item", req.ItemID)
	}

	action := model.ActionAddVoucherCode
	if kind.IsAccount() {
		action = model.ActionAddPremiumAccount
	}
	s.audit.Record(ctx, AuditEntry{
		Action:  action,
		Actor:   actor,
		Details: fmt.Sprintf("Added %s %s: %s", kind, unit.Platform, unit.Label()),
		ItemID:  uintPtr(unit.ItemID),
	})
	return unit, nil
}

func (s *unitService) UpdateUnitStatus(ctx context.Context, req *UpdateUnitStatusRequest, actor string) (*model.Unit, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	kind, _ := model.ParseKind(req.Tipe)
	status := strings.TrimSpace(req.Status)
	if status == "" {
		return nil, invalid("status is required")
	}

	unit, err := s.units.FindByID(ctx, kind, req.ID)
	if err != nil {
		return nil, lookupErr(unitNoun(kind), req.ID, err)
	}

	unit.MarkStatus(status, strings.TrimSpace(req.SoldTo), s.now())
	if err := s.units.UpdateStatus(ctx, unit); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound(unitNoun(kind), req.ID)
		}
		return nil, persistence("updating unit status", err)
	}

	s.reconcile(ctx, unit.ItemID)

	action := model.ActionUpdateCodeStatus
	if kind.IsAccount() {
		action = model.ActionUpdateAccountStatus
	}
	s.audit.Record(ctx, AuditEntry{
		Action:  action,
		Actor:   actor,
		Details: fmt.Sprintf("Updated status %s: %s -> %s", unit.Platform, unit.Label(), status),
		ItemID:  uintPtr(unit.ItemID),
	})
	return unit, nil
}

func (s *unitService) DeleteUnit(ctx context.Context, kind model.Kind, id uint, actor string) error {
	if !kind.Valid() {
		return invalid("unknown unit kind %q", kind)
	}
	unit, err := s.units.FindByID(ctx, kind, id)
	if err != nil {
		return lookupErr(unitNoun(kind), id, err)
	}

	if err := s.units.Delete(ctx, kind, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(unitNoun(kind), id)
		}
		return persistence("deleting unit", err)
	}

	s.reconcile(ctx, unit.ItemID)

	action := model.ActionDeleteVoucherCode
	if kind.IsAccount() {
		action = model.ActionDeletePremiumAccount
	}
	s.audit.Record(ctx, AuditEntry{
		Action:  action,
		Actor:   actor,
		Details: fmt.Sprintf("Deleted %s %s: %s", unitNoun(kind), unit.Platform, unit.Label()),
		ItemID:  uintPtr(unit.ItemID),
	})
	return nil
}

// reconcile follows every unit mutation and reports whether the item no
// longer exists. The mutation is already stored, so a failure here is logged
// and the next unit event for the item corrects it.
func (s *unitService) reconcile(ctx context.Context, itemID uint) (gone bool) {
	_, applied, err := s.reconciler.Reconcile(context.WithoutCancel(ctx), itemID)
	if err != nil {
		s.log.Error("stock reconciliation failed", zap.Uint("item_id", itemID), zap.Error(err))
		return false
	}
	return !applied
}
