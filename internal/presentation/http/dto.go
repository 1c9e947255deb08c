package httppresentation

import (
	"time"

	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/identity"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/order"
	"github.com/shopspring/decimal"
)

const moneyPlaces = 2

func money(d decimal.Decimal) string { return d.StringFixed(moneyPlaces) }

type productResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Price       string    `json:"price"`
	Stock       int       `json:"stock"`
	InStock     bool      `json:"inStock"`
	LowStock    bool      `json:"lowStock"`
	Category    string    `json:"category,omitempty"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toProduct(p *catalog.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Price:       money(p.Price),
		Stock:       p.Stock,
		InStock:     p.Stock > 0,
		LowStock:    p.LowStock(),
		Category:    p.Category,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toProducts(ps []*catalog.Product) []productResponse {
	out := make([]productResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, toProduct(p))
	}
	return out
}

type cartItemResponse struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	UnitPrice string `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
	Available int    `json:"available"`
	Subtotal  string `json:"subtotal"`
}

type cartResponse struct {
	Items     []cartItemResponse `json:"items"`
	Total     string             `json:"total"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

func toCart(c *cart.Cart) cartResponse {
	items := c.Items()
	out := cartResponse{Items: make([]cartItemResponse, 0, len(items)), Total: money(c.Total()), UpdatedAt: c.UpdatedAt}
	for _, it := range items {
		out.Items = append(out.Items, cartItemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: money(it.UnitPrice),
			Quantity:  it.Quantity,
			Available: it.Available,
			Subtotal:  money(it.Subtotal()),
		})
	}
	return out
}

type orderLineResponse struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	UnitPrice string `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
	Subtotal  string `json:"subtotal"`
}

type orderResponse struct {
	ID              string                   `json:"id"`
	OwnerUID        string                   `json:"ownerUid"`
	CustomerEmail   string                   `json:"customerEmail,omitempty"`
	Lines           []orderLineResponse      `json:"lines"`
	TotalAmount     string                   `json:"totalAmount"`
	ShippingAddress identity.ShippingAddress `json:"shippingAddress"`
	Status          string                   `json:"status"`
	PaymentStatus   string                   `json:"paymentStatus"`
	Cancellable     bool                     `json:"cancellable"`
	CreatedAt       time.Time                `json:"createdAt"`
	UpdatedAt       time.Time                `json:"updatedAt"`
}

func toOrder(o *order.Order) orderResponse {
	out := orderResponse{
		ID:              o.ID,
		OwnerUID:        o.OwnerUID,
		CustomerEmail:   o.CustomerEmail,
		Lines:           make([]orderLineResponse, 0, len(o.Lines)),
		TotalAmount:     money(o.TotalAmount),
		ShippingAddress: o.ShippingAddress,
		Status:          string(o.Status),
		PaymentStatus:   string(o.PaymentStatus),
		Cancellable:     o.Status.Cancellable(),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	for _, l := range o.Lines {
		out.Lines = append(out.Lines, orderLineResponse{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: money(l.UnitPrice),
			Quantity:  l.Quantity,
			Subtotal:  money(l.Subtotal),
		})
	}
	return out
}

func toOrders(os []*order.Order) []orderResponse {
	out := make([]orderResponse, 0, len(os))
	for _, o := range os {
		out = append(out, toOrder(o))
	}
	return out
}

type userResponse struct {
	UID             string                   `json:"uid"`
	Email           string                   `json:"email"`
	DisplayName     string                   `json:"displayName,omitempty"`
	Role            string                   `json:"role"`
	Address         identity.ShippingAddress `json:"address"`
	ProfileComplete bool                     `json:"profileComplete"`
	CreatedAt       time.Time                `json:"createdAt"`
}

func toUser(u *identity.User) userResponse {
	return userResponse{
		UID:             u.UID,
		Email:           u.Email,
		DisplayName:     u.DisplayName,
		Role:            string(u.Role),
		Address:         u.Address,
		ProfileComplete: u.ProfileComplete(),
		CreatedAt:       u.CreatedAt,
	}
}
