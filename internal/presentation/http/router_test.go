package httppresentation_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Zhima-Mochi/minishop-storefront/internal/application/access"
	appcart "github.com/Zhima-Mochi/minishop-storefront/internal/application/cart"
	appcatalog "github.com/Zhima-Mochi/minishop-storefront/internal/application/catalog"
	appidentity "github.com/Zhima-Mochi/minishop-storefront/internal/application/identity"
	apporder "github.com/Zhima-Mochi/minishop-storefront/internal/application/order"
	apppayment "github.com/Zhima-Mochi/minishop-storefront/internal/application/payment"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/identity"
	"github.com/Zhima-Mochi/minishop-storefront/internal/infrastructure/auth"
	"github.com/Zhima-Mochi/minishop-storefront/internal/infrastructure/id"
	"github.com/Zhima-Mochi/minishop-storefront/internal/infrastructure/memory"
	httppresentation "github.com/Zhima-Mochi/minishop-storefront/internal/presentation/http"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const webhookSecret = "whsec-0123456789abcdef"

var (
	admin = identity.Identity{UID: "admin-1", Email: "ops@example.com", Role: identity.RoleAdmin}
	ana   = identity.Identity{UID: "u-ana", Email: "ana@example.com", Role: identity.RoleCustomer}
)

type server struct {
	t        *testing.T
	router   http.Handler
	jwt      *auth.JWT
	products *memory.ProductRepository
}

func newServer(t *testing.T) *server {
	t.Helper()
	mug, err := catalog.New("mug", "Mug", decimal.RequireFromString("12.50"), 2)
	require.NoError(t, err)
	tee, err := catalog.New("tee", "Tee", decimal.NewFromInt(20), 10)
	require.NoError(t, err)

	products := memory.NewProductRepository(mug, tee)
	users := memory.NewUserRepository(&identity.User{UID: admin.UID, Email: admin.Email, Role: identity.RoleAdmin})
	carts := memory.NewCartStore()
	signer, err := auth.NewJWT("0123456789abcdef-http", "storefront", time.Hour)
	require.NoError(t, err)

	guard := access.NewGuard(nil)
	ids := id.NewUUIDGenerator()
	deps := apporder.Deps{
		Orders:   access.NewGuardedOrders(memory.NewOrderRepository(), guard),
		Products: access.NewGuardedCatalog(products, guard),
		Users:    users,
		Carts:    carts,
		IDs:      ids,
	}
	svc := httppresentation.Services{
		Catalog:  appcatalog.NewService(products, access.NewGuardedCatalog(products, guard), ids, guard, nil),
		Cart:     appcart.NewService(carts, products, guard, nil),
		Users:    appidentity.NewService(users, guard, nil),
		Orders:   apporder.NewQueries(deps, guard),
		Checkout: access.Wrap(guard, apporder.NewCheckoutUseCase(deps), access.Customer...),
		Transit:  apporder.NewTransitionUseCase(deps, guard),
		Cancel:   apporder.NewCancelUseCase(deps, guard),
		Payments: apppayment.NewRecordPaymentUseCase(deps.Orders, nil, nil),
	}
	h := httppresentation.NewHandler(svc, httppresentation.Options{
		Identity:      auth.NewStoredRoles(signer, users),
		Guard:         guard,
		WebhookSecret: webhookSecret,
	})
	return &server{t: t, router: h.Router(), jwt: signer, products: products}
}

type call struct {
	method, path string
	as           *identity.Identity
	body         any
	header       map[string]string
}

func (s *server) do(c call) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if c.body != nil {
		if raw, ok := c.body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(s.t, json.NewEncoder(&buf).Encode(c.body))
		}
	}
	req := httptest.NewRequest(c.method, c.path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.as != nil {
		token, err := s.jwt.Issue(*c.as)
		require.NoError(s.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range c.header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errorBody struct {
	Error    string         `json:"error"`
	Code     string         `json:"code"`
	Redirect string         `json:"redirect"`
	Details  map[string]any `json:"details"`
}

type orderBody struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PaymentStatus string `json:"paymentStatus"`
	TotalAmount   string `json:"totalAmount"`
	Cancellable   bool   `json:"cancellable"`
}

var anaAddress = map[string]any{
	"fullName":     "Ana Lima",
	"phone":        "+351 900 000 000",
	"addressLine1": "Rua Augusta 1",
	"city":         "Lisbon",
	"state":        "Lisboa",
	"postalCode":   "1100-048",
	"country":      "PT",
}

func TestPublicBrowsing(t *testing.T) {
	s := newServer(t)

	rec := s.do(call{method: http.MethodGet, path: "/health"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = s.do(call{method: http.MethodGet, path: "/products?inStock=true"})
	require.Equal(t, http.StatusOK, rec.Code)
	products := decode[[]map[string]any](t, rec)
	require.Len(t, products, 2)
	assert.Equal(t, "12.50", products[0]["price"])
	assert.Equal(t, true, products[0]["lowStock"])

	rec = s.do(call{method: http.MethodGet, path: "/products?inStock=maybe"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(call{method: http.MethodGet, path: "/products/nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decode[errorBody](t, rec).Code)
}

func TestAuthentication(t *testing.T) {
	s := newServer(t)

	rec := s.do(call{method: http.MethodGet, path: "/cart"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(call{method: http.MethodGet, path: "/cart", header: map[string]string{"Accept": "text/html"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?next=%2Fcart", rec.Header().Get("Location"))

	rec = s.do(call{method: http.MethodGet, path: "/orders/a%26b%3Fx", header: map[string]string{"Accept": "text/html"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?next=%2Forders%2Fa%26b%3Fx", rec.Header().Get("Location"))

	rec = s.do(call{method: http.MethodGet, path: "/cart", header: map[string]string{"Authorization": "Bearer forged"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := s.jwt.Issue(ana)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.AddCookie(&http.Cookie{Name: "storefront_session", Value: token})
	cookieRec := httptest.NewRecorder()
	s.router.ServeHTTP(cookieRec, req)
	require.Equal(t, http.StatusOK, cookieRec.Code)
	me := decode[map[string]any](t, cookieRec)
	assert.Equal(t, ana.UID, me["uid"])
	assert.Equal(t, false, me["profileComplete"])

	rec = s.do(call{method: http.MethodGet, path: "/admin/orders", as: &ana})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCheckoutFlow(t *testing.T) {
	s := newServer(t)

	rec := s.do(call{method: http.MethodPost, path: "/cart/items", as: &ana, body: map[string]any{"productId": "mug", "quantity": 1}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(call{method: http.MethodPost, path: "/checkout", as: &ana, body: map[string]any{"fromCart": true}})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "/complete-profile", decode[errorBody](t, rec).Redirect)

	rec = s.do(call{method: http.MethodPost, path: "/checkout", as: &ana, body: map[string]any{"fromCart": true},
		header: map[string]string{"Accept": "text/html"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/complete-profile", rec.Header().Get("Location"))

	rec = s.do(call{method: http.MethodPut, path: "/users/me/profile", as: &ana, body: map[string]any{"displayName": "Ana", "address": anaAddress}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	idem := map[string]string{"Idempotency-Key": "cart-1"}
	rec = s.do(call{method: http.MethodPost, path: "/checkout", as: &ana, body: map[string]any{"fromCart": true}, header: idem})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[orderBody](t, rec)
	assert.Equal(t, "/orders/"+created.ID, rec.Header().Get("Location"))
	assert.Equal(t, "12.50", created.TotalAmount)
	assert.Equal(t, "pending", created.Status)
	assert.True(t, created.Cancellable)

	rec = s.do(call{method: http.MethodPost, path: "/checkout", as: &ana, body: map[string]any{"fromCart": true}, header: idem})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, created.ID, decode[orderBody](t, rec).ID)

	rec = s.do(call{method: http.MethodGet, path: "/cart", as: &ana})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[map[string]any](t, rec)["items"])

	rec = s.do(call{method: http.MethodPost, path: "/checkout", as: &ana, body: map[string]any{"productId": "mug", "quantity": 5}})
	require.Equal(t, http.StatusConflict, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, "mug", body.Details["productId"])
	assert.EqualValues(t, 1, body.Details["available"])

	rec = s.do(call{method: http.MethodGet, path: "/orders", as: &ana})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]orderBody](t, rec), 1)

	rec = s.do(call{method: http.MethodPost, path: "/orders/" + created.ID + "/cancel", as: &ana})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "cancelled", decode[orderBody](t, rec).Status)

	p, err := s.products.Get(context.Background(), "mug")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Stock)
}

func TestAdminOrderManagement(t *testing.T) {
	s := newServer(t)
	rec := s.do(call{method: http.MethodPost, path: "/checkout", as: &ana,
		body: map[string]any{"productId": "tee", "quantity": 2, "shippingAddress": anaAddress}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	orderID := decode[orderBody](t, rec).ID
	statusPath := "/admin/orders/" + orderID + "/status"

	rec = s.do(call{method: http.MethodPost, path: statusPath, as: &ana, body: map[string]any{"status": "processing"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(call{method: http.MethodPost, path: statusPath, as: &admin, body: map[string]any{"status": "delivered"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(call{method: http.MethodPost, path: statusPath, as: &admin, body: map[string]any{"status": "processing"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "processing", decode[orderBody](t, rec).Status)

	rec = s.do(call{method: http.MethodGet, path: "/admin/orders?status=processing", as: &admin})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]orderBody](t, rec), 1)

	rec = s.do(call{method: http.MethodPost, path: statusPath, as: &admin, body: `{"status":"shipped","extra":1}`})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(call{method: http.MethodPut, path: "/admin/products/tee/stock", as: &admin, body: map[string]any{"stock": 3}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 3, decode[map[string]any](t, rec)["stock"])

	rec = s.do(call{method: http.MethodPut, path: "/admin/products/tee/stock", as: &admin, body: `{}`})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(call{method: http.MethodPut, path: "/admin/users/" + admin.UID + "/role", as: &admin, body: map[string]any{"role": "customer"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPaymentCallback(t *testing.T) {
	s := newServer(t)
	rec := s.do(call{method: http.MethodPost, path: "/checkout", as: &ana,
		body: map[string]any{"productId": "tee", "quantity": 1, "shippingAddress": anaAddress}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	orderID := decode[orderBody](t, rec).ID
	payload := map[string]any{"orderId": orderID, "status": "paid", "reference": "tx-9"}

	rec = s.do(call{method: http.MethodPost, path: "/payments/callback", body: payload})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "WEBHOOK_REJECTED", decode[errorBody](t, rec).Code)

	secret := map[string]string{"X-Webhook-Secret": webhookSecret}
	rec = s.do(call{method: http.MethodPost, path: "/payments/callback", body: payload, header: secret})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[map[string]any](t, rec)
	assert.Equal(t, "paid", res["paymentStatus"])
	assert.Equal(t, false, res["replayed"])

	rec = s.do(call{method: http.MethodPost, path: "/payments/callback", body: payload, header: secret})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode[map[string]any](t, rec)["replayed"])

	payload["status"] = "failed"
	rec = s.do(call{method: http.MethodPost, path: "/payments/callback", body: payload, header: secret})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(call{method: http.MethodGet, path: "/orders/" + orderID, as: &ana})
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[orderBody](t, rec)
	assert.Equal(t, "pending", got.Status, "payment does not move fulfillment")
	assert.Equal(t, "paid", got.PaymentStatus)
}

func TestLogoutDiscardsCart(t *testing.T) {
	s := newServer(t)
	rec := s.do(call{method: http.MethodPost, path: "/cart/items", as: &ana, body: map[string]any{"productId": "tee", "quantity": 2}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(call{method: http.MethodPost, path: "/auth/logout", as: &ana})
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, strings.Contains(rec.Header().Get("Set-Cookie"), "storefront_session=;"))

	rec = s.do(call{method: http.MethodGet, path: "/cart", as: &ana})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[map[string]any](t, rec)["items"])
}
