package model

import (
	"encoding/json"
	"errors"
	"time"
)

const (
	StatusAvailable = "available"
	StatusSold      = "sold"

	// DefaultSoldTo is stamped when a unit is sold without a named buyer.
	DefaultSoldTo = "customer"
)

var (
	ErrMissingCredential = errors.New("username and password are required for accounts")
	ErrMissingCode       = errors.New("code is required for vouchers and redeem codes")
	ErrPayloadMismatch   = errors.New("payload does not match unit kind")
)

// UnitPayload is the kind-specific credential carried by a sub-inventory unit.
// It is implemented by Account and VoucherCode only.
type UnitPayload interface {
	// Key is the credential that must be unique within a platform.
	Key() string
	isUnitPayload()
}

// Account is the payload of a premium account unit.
type Account struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a Account) Key() string  { return a.Username }
func (Account) isUnitPayload() {}

// VoucherCode is the payload of a voucher or redeem-code unit.
type VoucherCode struct {
	Code  string `json:"code"`
	Value string `json:"value"`
}

func (v VoucherCode) Key() string  { return v.Code }
func (VoucherCode) isUnitPayload() {}

// Unit is one concrete sellable credential backing an Item's stock. Accounts
// and codes are stored apart and have their own id spaces, so a unit is
// addressed by (Kind, ID).
type Unit struct {
	ID        uint
	ItemID    uint
	Kind      Kind
	Platform  string
	Status    string
	Notes     string
	CreatedAt time.Time
	SoldAt    *time.Time
	SoldTo    *string
	Payload   UnitPayload
}

// Validate checks that the payload variant matches the kind discriminant and
// carries its required fields.
func (u Unit) Validate() error {
	switch p := u.Payload.(type) {
	case Account:
		if !u.Kind.IsAccount() {
			return ErrPayloadMismatch
		}
		if p.Username == "" || p.Password == "" {
			return ErrMissingCredential
		}
	case VoucherCode:
		if u.Kind != KindVoucher && u.Kind != KindRedeemCode {
			return ErrPayloadMismatch
		}
		if p.Code == "" {
			return ErrMissingCode
		}
	default:
		return ErrPayloadMismatch
	}
	return nil
}

// MarkStatus applies a status change, stamping sale fields when sold.
func (u *Unit) MarkStatus(status, soldTo string, now time.Time) {
	u.Status = status
	if status != StatusSold {
		return
	}
	if soldTo == "" {
		soldTo = DefaultSoldTo
	}
	u.SoldAt = &now
	u.SoldTo = &soldTo
}

// Label is the human readable credential, used in audit details.
func (u Unit) Label() string {
	if u.Payload == nil {
		return ""
	}
	return u.Payload.Key()
}

type unitJSON struct {
	ID        uint       `json:"id"`
	ItemID    uint       `json:"item_id"`
	Kind      Kind       `json:"kind"`
	Platform  string     `json:"platform"`
	Status    string     `json:"status"`
	Notes     string     `json:"notes"`
	CreatedAt time.Time  `json:"created_at"`
	SoldAt    *time.Time `json:"sold_at"`
	SoldTo    *string    `json:"sold_to"`
	Username  string     `json:"username,omitempty"`
	Password  string     `json:"password,omitempty"`
	Code      string     `json:"code,omitempty"`
	Value     string     `json:"value,omitempty"`
}

// MarshalJSON flattens the payload next to the common fields.
func (u Unit) MarshalJSON() ([]byte, error) {
	out := unitJSON{
		ID:        u.ID,
		ItemID:    u.ItemID,
		Kind:      u.Kind,
		Platform:  u.Platform,
		Status:    u.Status,
		Notes:     u.Notes,
		CreatedAt: u.CreatedAt,
		SoldAt:    u.SoldAt,
		SoldTo:    u.SoldTo,
	}
	switch p := u.Payload.(type) {
	case Account:
		out.Username, out.Password = p.Username, p.Password
	case VoucherCode:
		out.Code, out.Value = p.Code, p.Value
	}
	return json.Marshal(out)
}

// UnmarshalJSON rebuilds the payload variant from the kind discriminant.
func (u *Unit) UnmarshalJSON(data []byte) error {
	var in unitJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*u = Unit{
		ID:        in.ID,
		ItemID:    in.ItemID,
		Kind:      in.Kind,
		Platform:  in.Platform,
		Status:    in.Status,
		Notes:     in.Notes,
		CreatedAt: in.CreatedAt,
		SoldAt:    in.SoldAt,
		SoldTo:    in.SoldTo,
	}
	if in.Kind.IsAccount() {
		u.Payload = Account{Username: in.Username, Password: in.Password}
	} else {
		u.Payload = VoucherCode{Code: in.Code, Value: in.Value}
	}
	return nil
}
