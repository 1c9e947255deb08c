package httppresentation

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type addToCartRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=1"`
}

type setQuantityRequest struct {
	Quantity int `json:"quantity" validate:"gte=1"`
}

func (h *Handler) viewCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Cart.View(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCart(c))
}

func (h *Handler) addToCart(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	c, err := h.svc.Cart.Add(r.Context(), req.ProductID, req.Quantity)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCart(c))
}

func (h *Handler) setCartQuantity(w http.ResponseWriter, r *http.Request) {
	var req setQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	c, err := h.svc.Cart.SetQuantity(r.Context(), chi.URLParam(r, "productID"), req.Quantity)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCart(c))
}

func (h *Handler) removeFromCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Cart.Remove(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCart(c))
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Cart.Clear(r.Context()); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
