package httppresentation

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/identity"
)

const (
	sessionCookie       = "storefront_session"
	headerWebhookSecret = "X-Webhook-Secret"
)

// authenticate resolves the caller from a bearer token, or the session cookie for browsers.
// Requests without a credential continue anonymously; use cases decide whether that is enough.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := credential(r)
		if token == "" || h.provider == nil {
			next.ServeHTTP(w, r)
			return
		}
		id, err := h.provider.Authenticate(r.Context(), token)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(identity.WithIdentity(r.Context(), id)))
	})
}

func credential(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		scheme, token, ok := strings.Cut(auth, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// webhookAuthorized compares the shared secret in constant time.
func (h *Handler) webhookAuthorized(r *http.Request) bool {
	if h.webhookSecret == "" {
		return false
	}
	got := r.Header.Get(headerWebhookSecret)
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.webhookSecret)) == 1
}
