package httppresentation

import (
	"net/http"

	"github.com/Zhima-Mochi/minishop-storefront/internal/application"
	"github.com/Zhima-Mochi/minishop-storefront/internal/application/access"
	appcart "github.com/Zhima-Mochi/minishop-storefront/internal/application/cart"
	appcatalog "github.com/Zhima-Mochi/minishop-storefront/internal/application/catalog"
	appidentity "github.com/Zhima-Mochi/minishop-storefront/internal/application/identity"
	apporder "github.com/Zhima-Mochi/minishop-storefront/internal/application/order"
	apppayment "github.com/Zhima-Mochi/minishop-storefront/internal/application/payment"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/identity"
	domorder "github.com/Zhima-Mochi/minishop-storefront/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Services are the application entry points the HTTP surface drives.
type Services struct {
	Catalog  *appcatalog.Service
	Cart     *appcart.Service
	Users    *appidentity.Service
	Orders   *apporder.Queries
	Checkout application.UseCase[apporder.CheckoutCommand, *apporder.CheckoutResult]
	Transit  application.UseCase[apporder.TransitionCommand, *domorder.Order]
	Cancel   application.UseCase[apporder.CancelCommand, *domorder.Order]
	Payments application.UseCase[apppayment.RecordPaymentCommand, *apppayment.RecordPaymentResult]
}

type Options struct {
	Identity identity.Provider
	Guard    *access.Guard
	// WebhookSecret authenticates payment provider callbacks. Empty disables the endpoint.
	WebhookSecret string
	// Metrics, when set, is served on /metrics.
	Metrics http.Handler
	Tel     observability.Observability
}

type Handler struct {
	svc           Services
	provider      identity.Provider
	guard         *access.Guard
	webhookSecret string
	metrics       http.Handler
	tel           observability.Observability
	log           observability.Logger
}

func NewHandler(svc Services, opts Options) *Handler {
	tel := opts.Tel
	if tel == nil {
		tel = observability.Nop()
	}
	guard := opts.Guard
	if guard == nil {
		guard = access.NewGuard(tel.Logger())
	}
	return &Handler{
		svc:           svc,
		provider:      opts.Identity,
		guard:         guard,
		webhookSecret: opts.WebhookSecret,
		metrics:       opts.Metrics,
		tel:           tel,
		log:           tel.Logger().With(observability.F("component", "http")),
	}
}

// Router builds the chi router. Every route is registered through handle so the
// route template reaches tracing, metrics and access logs.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.authenticate)

	h.handle(r, http.MethodGet, "/health", h.health)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	h.handle(r, http.MethodGet, "/products", h.listProducts)
	h.handle(r, http.MethodGet, "/products/{productID}", h.getProduct)

	h.handle(r, http.MethodGet, "/cart", h.viewCart)
	h.handle(r, http.MethodDelete, "/cart", h.clearCart)
	h.handle(r, http.MethodPost, "/cart/items", h.addToCart)
	h.handle(r, http.MethodPut, "/cart/items/{productID}", h.setCartQuantity)
	h.handle(r, http.MethodDelete, "/cart/items/{productID}", h.removeFromCart)

	h.handle(r, http.MethodPost, "/checkout", h.checkout)
	h.handle(r, http.MethodGet, "/orders", h.myOrders)
	h.handle(r, http.MethodGet, "/orders/{orderID}", h.getOrder)
	h.handle(r, http.MethodPost, "/orders/{orderID}/cancel", h.cancelOrder)

	h.handle(r, http.MethodGet, "/users/me", h.me)
	h.handle(r, http.MethodPut, "/users/me/profile", h.completeProfile)
	h.handle(r, http.MethodPost, "/auth/logout", h.logout)

	h.handle(r, http.MethodPost, "/payments/callback", h.paymentCallback)

	h.handle(r, http.MethodGet, "/admin/products/low-stock", h.lowStock)
	h.handle(r, http.MethodPost, "/admin/products", h.createProduct)
	h.handle(r, http.MethodPut, "/admin/products/{productID}", h.updateProduct)
	h.handle(r, http.MethodPut, "/admin/products/{productID}/stock", h.setStock)
	h.handle(r, http.MethodDelete, "/admin/products/{productID}", h.deleteProduct)
	h.handle(r, http.MethodGet, "/admin/orders", h.listOrders)
	h.handle(r, http.MethodPost, "/admin/orders/{orderID}/status", h.transitionOrder)
	h.handle(r, http.MethodGet, "/admin/users", h.listUsers)
	h.handle(r, http.MethodPut, "/admin/users/{uid}/role", h.setRole)

	return r
}

func (h *Handler) handle(r chi.Router, method, pattern string, fn http.HandlerFunc) {
	chain := withAccessLog(h.log)(withHTTPMetrics(
		h.tel.Metrics().Counter(observability.MHTTPRequests),
		h.tel.Metrics().Histogram(observability.MHTTPRequestDuration),
	)(fn))
	chain = ObservabilityMiddleware(h.log, func(r *http.Request) string {
		return r.Header.Get(headerRequestID)
	})(chain)
	chain = withTrace(chain)

	r.Method(method, pattern, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		chain.ServeHTTP(w, req.WithContext(contextWithRoute(req.Context(), pattern)))
	}))
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
