package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ShippingAddress is the profile section a checkout snapshots into the order.
type ShippingAddress struct {
	FullName     string `json:"fullName" validate:"required"`
	Phone        string `json:"phone" validate:"required"`
	AddressLine1 string `json:"addressLine1" validate:"required"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city" validate:"required"`
	State        string `json:"state" validate:"required"`
	PostalCode   string `json:"postalCode" validate:"required"`
	Country      string `json:"country" validate:"required"`
}

// Validate returns ErrProfileIncomplete naming the missing required fields.
func (a ShippingAddress) Validate() error {
	trimmed := a.trimmed()
	err := validate.Struct(trimmed)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("identity: validate address: %w", err)
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, fe.Field())
	}
	return fmt.Errorf("%w: missing %s", ErrProfileIncomplete, strings.Join(missing, ", "))
}

func (a ShippingAddress) Complete() bool { return a.Validate() == nil }

// IsZero reports whether no field was supplied at all.
func (a ShippingAddress) IsZero() bool { return a == ShippingAddress{} }

func (a ShippingAddress) trimmed() ShippingAddress {
	return ShippingAddress{
		FullName:     strings.TrimSpace(a.FullName),
		Phone:        strings.TrimSpace(a.Phone),
		AddressLine1: strings.TrimSpace(a.AddressLine1),
		AddressLine2: strings.TrimSpace(a.AddressLine2),
		City:         strings.TrimSpace(a.City),
		State:        strings.TrimSpace(a.State),
		PostalCode:   strings.TrimSpace(a.PostalCode),
		Country:      strings.TrimSpace(a.Country),
	}
}

type User struct {
	UID         string
	Email       string
	DisplayName string
	Role        Role
	Address     ShippingAddress
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (u *User) Identity() Identity {
	return Identity{UID: u.UID, Email: u.Email, Role: u.Role}
}

func (u *User) ProfileComplete() bool { return u.Address.Complete() }

func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

type Repository interface {
	Get(ctx context.Context, uid string) (*User, error)
	// Save inserts or replaces the user record.
	Save(ctx context.Context, u *User) error
	SetRole(ctx context.Context, uid string, role Role) error
	List(ctx context.Context) ([]*User, error)
}
