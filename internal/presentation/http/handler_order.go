package httppresentation

import (
	"net/http"

	apporder "github.com/Zhima-Mochi/minishop-storefront/internal/application/order"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/identity"
	"github.com/go-chi/chi/v5"
)

const headerIdempotencyKey = "Idempotency-Key"

type checkoutRequest struct {
	FromCart        bool                      `json:"fromCart"`
	ProductID       string                    `json:"productId"`
	Quantity        int                       `json:"quantity" validate:"gte=0"`
	ShippingAddress *identity.ShippingAddress `json:"shippingAddress" validate:"-"`
	IdempotencyKey  string                    `json:"idempotencyKey" validate:"max=128"`
}

type transitionRequest struct {
	Status string `json:"status" validate:"required"`
}

// checkout answers 201 for a new order and 200 when an idempotency key replays one.
func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	key := req.IdempotencyKey
	if hk := r.Header.Get(headerIdempotencyKey); hk != "" {
		key = hk
	}

	res, err := h.svc.Checkout.Execute(r.Context(), apporder.CheckoutCommand{
		FromCart:        req.FromCart,
		ProductID:       req.ProductID,
		Quantity:        req.Quantity,
		ShippingAddress: req.ShippingAddress,
		IdempotencyKey:  key,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	w.Header().Set("Location", "/orders/"+res.Order.ID)
	writeJSON(w, status, toOrder(res.Order))
}

func (h *Handler) myOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.Orders.Mine(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrders(orders))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.Orders.Get(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrder(o))
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.Cancel.Execute(r.Context(), apporder.CancelCommand{OrderID: chi.URLParam(r, "orderID")})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrder(o))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.Orders.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrders(orders))
}

func (h *Handler) transitionOrder(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	o, err := h.svc.Transit.Execute(r.Context(), apporder.TransitionCommand{
		OrderID: chi.URLParam(r, "orderID"),
		To:      req.Status,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrder(o))
}
