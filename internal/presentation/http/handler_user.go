package httppresentation

import (
	"net/http"

	appidentity "github.com/Zhima-Mochi/minishop-storefront/internal/application/identity"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/identity"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability/logctx"
	"github.com/go-chi/chi/v5"
)

type profileRequest struct {
	DisplayName string                   `json:"displayName" validate:"max=120"`
	Address     identity.ShippingAddress `json:"address" validate:"-"`
}

type roleRequest struct {
	Role string `json:"role" validate:"required,oneof=customer admin"`
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Users.Me(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUser(u))
}

func (h *Handler) completeProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	u, err := h.svc.Users.CompleteProfile(r.Context(), appidentity.ProfileInput{
		DisplayName: req.DisplayName,
		Address:     req.Address,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUser(u))
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	us, err := h.svc.Users.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	out := make([]userResponse, 0, len(us))
	for _, u := range us {
		out = append(out, toUser(u))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) setRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	u, err := h.svc.Users.SetRole(r.Context(), chi.URLParam(r, "uid"), req.Role)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUser(u))
}

// logout discards the session cart and expires the session cookie. Tokens themselves
// are owned by the identity provider.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if id, ok := identity.FromContext(r.Context()); ok {
		if err := h.svc.Cart.Discard(r.Context(), id.UID); err != nil {
			logctx.FromOr(r.Context(), h.log).Warn("cart_discard_failed",
				observability.F("uid", id.UID),
				observability.F("error", err),
			)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
