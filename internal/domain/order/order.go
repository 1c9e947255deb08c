package order

import (
	"errors"
	"time"

	"github.com/Zhima-Mochi/minishop-storefront/internal/domain"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/identity"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/payment"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("order: not found")
	ErrConflict          = errors.New("order: concurrent modification")
	ErrInvalidTransition = errors.New("order: invalid status transition")
)

// Line freezes the product name and unit price at purchase time.
type Line struct {
	ProductID string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	Subtotal  decimal.Decimal
}

func NewLine(p *catalog.Product, quantity int) (Line, error) {
	if quantity <= 0 {
		return Line{}, domain.Validation("quantity for product %s must be greater than zero", p.ID)
	}
	return Line{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Quantity:  quantity,
		Subtotal:  p.Price.Mul(decimal.NewFromInt(int64(quantity))),
	}, nil
}

// Order is immutable after creation except for Status and PaymentStatus.
type Order struct {
	ID              string
	OwnerUID        string
	CustomerEmail   string
	IdempotencyKey  string
	Lines           []Line
	TotalAmount     decimal.Decimal
	ShippingAddress identity.ShippingAddress
	Status          Status
	PaymentStatus   payment.Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func New(id string, owner identity.Identity, idempotencyKey string, lines []Line, addr identity.ShippingAddress) (*Order, error) {
	if id == "" {
		return nil, domain.Validation("order id is required")
	}
	if owner.Anonymous() {
		return nil, identity.ErrUnauthorized
	}
	if len(lines) == 0 {
		return nil, domain.Validation("order must contain at least one line")
	}

	total := decimal.Zero
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, domain.Validation("quantity for product %s must be greater than zero", l.ProductID)
		}
		total = total.Add(l.Subtotal)
	}

	now := time.Now().UTC()
	return &Order{
		ID:              id,
		OwnerUID:        owner.UID,
		CustomerEmail:   owner.Email,
		IdempotencyKey:  idempotencyKey,
		Lines:           append([]Line(nil), lines...),
		TotalAmount:     total,
		ShippingAddress: addr,
		Status:          StatusPending,
		PaymentStatus:   payment.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func (o *Order) IsOwnedBy(uid string) bool { return uid != "" && o.OwnerUID == uid }

// Transition moves the order along an edge of the lifecycle table.
func (o *Order) Transition(to Status) error {
	if err := ValidateTransition(o.Status, to); err != nil {
		return err
	}
	o.Status = to
	o.touch()
	return nil
}

func (o *Order) SetPaymentStatus(to payment.Status) error {
	if err := payment.ValidateTransition(o.PaymentStatus, to); err != nil {
		return err
	}
	o.PaymentStatus = to
	o.touch()
	return nil
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Lines = append([]Line(nil), o.Lines...)
	return &c
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}
