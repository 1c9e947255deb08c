package httppresentation

import (
	"net/http"
	"strconv"

	appcatalog "github.com/Zhima-Mochi/minishop-storefront/internal/application/catalog"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/catalog"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type productRequest struct {
	Name        string          `json:"name" validate:"required"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" validate:"gte=0"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	ImageURL    string          `json:"imageUrl" validate:"omitempty,url"`
}

func (p productRequest) input() appcatalog.ProductInput {
	return appcatalog.ProductInput{
		Name:        p.Name,
		Price:       p.Price,
		Stock:       p.Stock,
		Category:    p.Category,
		Description: p.Description,
		ImageURL:    p.ImageURL,
	}
}

type stockRequest struct {
	Stock *int `json:"stock" validate:"required,gte=0"`
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := catalog.ListFilter{Category: q.Get("category")}
	if raw := q.Get("inStock"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeDomainError(w, r, domain.Validation("inStock must be a boolean"))
			return
		}
		filter.InStockOnly = v
	}
	ps, err := h.svc.Catalog.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProducts(ps))
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Catalog.Get(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProduct(p))
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	ps, err := h.svc.Catalog.LowStock(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProducts(ps))
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	p, err := h.svc.Catalog.Create(r.Context(), req.input())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProduct(p))
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	p, err := h.svc.Catalog.Update(r.Context(), chi.URLParam(r, "productID"), req.input())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProduct(p))
}

func (h *Handler) setStock(w http.ResponseWriter, r *http.Request) {
	var req stockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	p, err := h.svc.Catalog.SetStock(r.Context(), chi.URLParam(r, "productID"), *req.Stock)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProduct(p))
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Catalog.Delete(r.Context(), chi.URLParam(r, "productID")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
