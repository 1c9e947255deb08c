package httppresentation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Zhima-Mochi/minishop-storefront/internal/application"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/identity"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability/logctx"
	"github.com/go-playground/validator/v10"
)

const (
	maxBodyBytes           = 1 << 20
	completeProfilePath    = "/complete-profile"
	loginPath              = "/login"
	errCodeInternal        = "INTERNAL"
	errCodeWebhookRejected = "WEBHOOK_REJECTED"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type errorBody struct {
	Error    string         `json:"error"`
	Code     string         `json:"code"`
	Redirect string         `json:"redirect,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
}

// decodeJSON reads one JSON document into dst and runs struct validation on it.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Validation("request body is required")
		}
		return domain.Validation("malformed JSON: %v", err)
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return domain.Validation("invalid fields: %s", strings.Join(fields, ", "))
		}
		return domain.Validation("%v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: msg, Code: code})
}

// writeDomainError maps application and domain errors onto HTTP responses.
// Browsers get redirects for the two states they can fix themselves: signing in and
// completing the profile.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	body := errorBody{Error: err.Error(), Code: application.StatusOf(err)}
	status := http.StatusInternalServerError

	var stockErr *catalog.InsufficientStockError
	switch {
	case errors.Is(err, identity.ErrUnauthorized):
		if wantsHTML(r) {
			http.Redirect(w, r, loginPath+"?next="+url.QueryEscape(r.URL.Path), http.StatusSeeOther)
			return
		}
		status = http.StatusUnauthorized
	case errors.Is(err, identity.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, identity.ErrProfileIncomplete):
		if wantsHTML(r) {
			http.Redirect(w, r, completeProfilePath, http.StatusSeeOther)
			return
		}
		status = http.StatusConflict
		body.Redirect = completeProfilePath
	case errors.As(err, &stockErr):
		status = http.StatusConflict
		body.Details = map[string]any{
			"productId": stockErr.ProductID,
			"requested": stockErr.Requested,
			"available": stockErr.Available,
		}
	case errors.Is(err, catalog.ErrStockConflict):
		status = http.StatusConflict
	case errors.Is(err, order.ErrInvalidTransition), errors.Is(err, payment.ErrInvalidTransition):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, order.ErrConflict), errors.Is(err, catalog.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, identity.ErrNotFound),
		errors.Is(err, cart.ErrLineNotFound):
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
	case errors.Is(err, domain.ErrValidation), errors.Is(err, catalog.ErrInvalidQuantity):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		logctx.FromOr(r.Context(), observability.NopLogger()).Error("http_unhandled_error", observability.F("error", err))
		body = errorBody{Error: "internal error", Code: errCodeInternal}
	}
	writeJSON(w, status, body)
}
