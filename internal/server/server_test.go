package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/matthieukhl/backoffice/internal/access"
	"github.com/matthieukhl/backoffice/internal/auth"
	"github.com/matthieukhl/backoffice/internal/database/dbtest"
	"github.com/matthieukhl/backoffice/internal/inventory"
	"github.com/matthieukhl/backoffice/internal/orders"
	"github.com/matthieukhl/backoffice/internal/store"
	"github.com/matthieukhl/backoffice/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	t        *testing.T
	handler  http.Handler
	store    *store.Store
	accounts *auth.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := dbtest.Open(t)
	st := store.New(db)
	logger := zap.NewNop()
	accounts := auth.NewService(st, nil, logger, auth.WithBcryptCost(bcrypt.MinCost))

	srv := NewServer(Deps{
		DB:       db,
		Store:    st,
		Accounts: accounts,
		Orders:   orders.NewEngine(st, inventory.NewLedger(), logger),
		Linker:   access.NewLinker(st),
		Logger:   logger,
	})
	return &testEnv{t: t, handler: srv.Handler(), store: st, accounts: accounts}
}

// user registers an account and returns its token
func (e *testEnv) user(name, email string, staff bool) string {
	e.t.Helper()
	session, err := e.accounts.Register(context.Background(), auth.RegisterInput{
		Username: name,
		Email:    email,
		Password: "pw-" + name,
		IsStaff:  staff,
	})
	require.NoError(e.t, err)
	return session.Token
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestRegisterLoginLogout(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/auth/register", "", gin.H{"username": "ada", "email": "ada@example.com", "password": "secret"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reg := decode[map[string]any](t, rec)
	token := reg["token"].(string)
	assert.Equal(t, "ada", reg["username"])

	// registration links a customer record
	c, err := env.store.GetCustomerByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ada", c.Name)

	rec = env.do(http.MethodPost, "/api/auth/register", "", gin.H{"username": "ada", "password": "other"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/api/auth/register", "", gin.H{"username": "bob", "email": "not-an-email", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": "ada", "password": "secret"})
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[map[string]any](t, rec)
	assert.Equal(t, token, login["token"])
	assert.Equal(t, false, login["is_staff"])

	rec = env.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": "ada", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPost, "/api/auth/logout", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodPost, "/api/auth/logout", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerToken(t *testing.T) {
	key, ok := bearerToken("Token abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", key)

	key, ok = bearerToken("bearer  xyz ")
	assert.True(t, ok)
	assert.Equal(t, "xyz", key)

	_, ok = bearerToken("Basic dXNlcjpwdw==")
	assert.False(t, ok)
	_, ok = bearerToken("")
	assert.False(t, ok)
}

func TestProductsReadOpenWriteAdmin(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user("root", "root@shop.test", true)
	user := env.user("ada", "ada@example.com", false)
	product := gin.H{"name": "Lamp", "price": "25.5", "category": "home", "stock": 2}

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodPost, "/api/products", "", product).Code)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodPost, "/api/products", user, product).Code)

	rec := env.do(http.MethodPost, "/api/products", admin, product)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[map[string]any](t, rec)
	assert.Equal(t, "25.50", created["price"])
	assert.Equal(t, true, created["is_low_stock"])
	assert.Nil(t, created["average_rating"])

	rec = env.do(http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]map[string]any](t, rec)
	require.Len(t, list, 1)
	assert.NotContains(t, list[0], "reviews")

	id := int64(created["id"].(float64))
	rec = env.do(http.MethodPatch, fmt.Sprintf("/api/products/%d", id), admin, gin.H{"stock": 40})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, false, decode[map[string]any](t, rec)["is_low_stock"])

	rec = env.do(http.MethodGet, "/api/products/low-stock", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]map[string]any](t, rec))
}

func TestProductValidation(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user("root", "root@shop.test", true)

	rec := env.do(http.MethodPost, "/api/products", admin, gin.H{"name": "Lamp", "category": "toys", "stock": -1, "price": "1.234"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "validation_failed", body["error"])
	fields := body["fields"].(map[string]any)
	assert.Contains(t, fields, "category")
	assert.Contains(t, fields, "stock")

	rec = env.do(http.MethodPost, "/api/products", admin, gin.H{"name": "Lamp", "category": "home", "price": "1.234"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[map[string]any](t, rec)["fields"], "price")

	rec = env.do(http.MethodPost, "/api/products", admin, gin.H{"name": "Lamp"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields = decode[map[string]any](t, rec)["fields"].(map[string]any)
	assert.Contains(t, fields, "price")
	assert.Contains(t, fields, "category")
}

func TestCreateOrderTotalsAndStock(t *testing.T) {
	env := newTestEnv(t)
	token := env.user("ada", "ada@example.com", false)
	customer := storetest.Customer(t, env.store, "Ada", "ada@example.com")
	mouse := storetest.Product(t, env.store, "Mouse", "10.00", 50)
	lamp := storetest.Product(t, env.store, "Lamp", "25.00", 2)

	rec := env.do(http.MethodPost, "/api/orders", token, gin.H{
		"customer": customer.ID,
		"items": []gin.H{
			{"product": mouse.ID, "quantity": 2},
			{"product": lamp.ID, "quantity": 1},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[map[string]any](t, rec)
	assert.Equal(t, "45.00", order["total_amount"])
	assert.Equal(t, "pending", order["status"])
	assert.Equal(t, "Ada", order["customer_name"])
	items := order["items"].([]any)
	require.Len(t, items, 2)
	assert.Equal(t, "20.00", items[0].(map[string]any)["subtotal"])

	assert.Equal(t, 48, storetest.Stock(t, env.store, mouse.ID))
	assert.Equal(t, 1, storetest.Stock(t, env.store, lamp.ID))
}

func TestCreateOrderInsufficientStockRollsBack(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user("root", "root@shop.test", true)
	customer := storetest.Customer(t, env.store, "Ada", "ada@example.com")
	a := storetest.Product(t, env.store, "A", "3.00", 10)
	b := storetest.Product(t, env.store, "B", "4.00", 1)

	rec := env.do(http.MethodPost, "/api/orders", admin, gin.H{
		"customer": customer.ID,
		"items": []gin.H{
			{"product": a.ID, "quantity": 2},
			{"product": b.ID, "quantity": 5},
		},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "insufficient_stock", body["error"])
	assert.EqualValues(t, b.ID, body["product"])
	assert.EqualValues(t, 1, body["available"])

	assert.Equal(t, 10, storetest.Stock(t, env.store, a.ID))
	rec = env.do(http.MethodGet, "/api/orders", admin, nil)
	assert.Empty(t, decode[[]map[string]any](t, rec))
}

func TestCreateOrderForAnotherCustomerIsForbidden(t *testing.T) {
	env := newTestEnv(t)
	token := env.user("bob", "bob@example.com", false)
	ada := storetest.Customer(t, env.store, "Ada", "ada@example.com")
	p := storetest.Product(t, env.store, "A", "3.00", 10)

	rec := env.do(http.MethodPost, "/api/orders", token, gin.H{
		"customer": ada.ID,
		"items":    []gin.H{{"product": p.ID, "quantity": 1}},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 10, storetest.Stock(t, env.store, p.ID))

	rec = env.do(http.MethodPost, "/api/orders", token, gin.H{"customer": ada.ID, "items": []gin.H{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrdersAreScopedToOwner(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user("root", "root@shop.test", true)
	adaToken := env.user("ada", "ada@example.com", false)
	ada := storetest.Customer(t, env.store, "Ada", "ada@example.com")
	bob := storetest.Customer(t, env.store, "Bob", "bob@example.com")
	p := storetest.Product(t, env.store, "A", "3.00", 10)

	var ids []int64
	for _, c := range []int64{ada.ID, bob.ID} {
		rec := env.do(http.MethodPost, "/api/orders", admin, gin.H{
			"customer": c,
			"items":    []gin.H{{"product": p.ID, "quantity": 1}},
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		ids = append(ids, int64(decode[map[string]any](t, rec)["id"].(float64)))
	}

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/orders", "", nil).Code)

	rec := env.do(http.MethodGet, "/api/orders", adaToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]map[string]any](t, rec)
	require.Len(t, list, 1)
	assert.EqualValues(t, ids[0], list[0]["id"])

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, fmt.Sprintf("/api/orders/%d", ids[0]), adaToken, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, fmt.Sprintf("/api/orders/%d", ids[1]), adaToken, nil).Code)

	rec = env.do(http.MethodGet, "/api/orders?status=pending", admin, nil)
	assert.Len(t, decode[[]map[string]any](t, rec), 2)

	rec = env.do(http.MethodGet, fmt.Sprintf("/api/customers/%d/orders", bob.ID), adaToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = env.do(http.MethodGet, fmt.Sprintf("/api/customers/%d/orders", ada.ID), adaToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)

	rec = env.do(http.MethodGet, "/api/order-items", adaToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)
}

func TestRegisterWithTakenEmailCannotSeeOrders(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user("root", "root@shop.test", true)
	env.user("ada", "ada@example.com", false)
	ada := storetest.Customer(t, env.store, "Ada", "ada@example.com")
	p := storetest.Product(t, env.store, "A", "10.00", 5)

	rec := env.do(http.MethodPost, "/api/orders", admin, gin.H{
		"customer": ada.ID,
		"items":    []gin.H{{"product": p.ID, "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(http.MethodPost, "/api/auth/register", "", gin.H{"username": "mallory", "email": "ADA@example.com", "password": "pw"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[map[string]any](t, rec)["fields"], "email")

	rec = env.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": "mallory", "password": "pw"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdateOrderStatus(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user("root", "root@shop.test", true)
	user := env.user("ada", "ada@example.com", false)
	customer := storetest.Customer(t, env.store, "Ada", "ada@example.com")
	p := storetest.Product(t, env.store, "A", "3.00", 10)

	rec := env.do(http.MethodPost, "/api/orders", user, gin.H{
		"customer": customer.ID,
		"items":    []gin.H{{"product": p.ID, "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	path := fmt.Sprintf("/api/orders/%d/update-status", int64(decode[map[string]any](t, rec)["id"].(float64)))

	assert.Equal(t, http.StatusForbidden, env.do(http.MethodPatch, path, user, gin.H{"status": "shipped"}).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPatch, path, admin, gin.H{"status": "lost"}).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPatch, "/api/orders/999/update-status", admin, gin.H{"status": "shipped"}).Code)

	rec = env.do(http.MethodPatch, path, admin, gin.H{"status": "shipped"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"status": "updated", "new_status": "shipped"}, decode[map[string]any](t, rec))
}

func TestOrderItems(t *testing.T) {
	env := newTestEnv(t)
	user := env.user("ada", "ada@example.com", false)
	customer := storetest.Customer(t, env.store, "Ada", "ada@example.com")
	a := storetest.Product(t, env.store, "A", "3.00", 10)
	b := storetest.Product(t, env.store, "B", "2.50", 4)

	rec := env.do(http.MethodPost, "/api/orders", user, gin.H{
		"customer": customer.ID,
		"items":    []gin.H{{"product": a.ID, "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	orderID := int64(decode[map[string]any](t, rec)["id"].(float64))

	rec = env.do(http.MethodPost, "/api/order-items", user, gin.H{"order": orderID, "product": b.ID, "quantity": 3})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	item := decode[map[string]any](t, rec)
	assert.Equal(t, "2.50", item["price"])
	assert.Equal(t, "7.50", item["subtotal"])
	assert.Equal(t, 1, storetest.Stock(t, env.store, b.ID))

	path := fmt.Sprintf("/api/order-items/%d", int64(item["id"].(float64)))
	assert.Equal(t, http.StatusMethodNotAllowed, env.do(http.MethodPut, path, user, gin.H{"quantity": 1}).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, env.do(http.MethodPatch, path, user, gin.H{"quantity": 1}).Code)

	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, path, user, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, path, user, nil).Code)
	// deleting a line does not restock
	assert.Equal(t, 1, storetest.Stock(t, env.store, b.ID))
}

func TestReviews(t *testing.T) {
	env := newTestEnv(t)
	ada := env.user("ada", "ada@example.com", false)
	bob := env.user("bob", "bob@example.com", false)
	p := storetest.Product(t, env.store, "Lamp", "25.00", 20)

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodPost, "/api/reviews", "", gin.H{"product": p.ID, "rating": 5}).Code)

	rec := env.do(http.MethodPost, "/api/reviews", ada, gin.H{"product": p.ID, "rating": 5, "comment": "bright"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	review := decode[map[string]any](t, rec)
	assert.Equal(t, "ada", review["customer_name"])

	rec = env.do(http.MethodPost, "/api/reviews", ada, gin.H{"product": p.ID, "rating": 3})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[map[string]any](t, rec)["fields"], "non_field_errors")

	rec = env.do(http.MethodPost, "/api/reviews", bob, gin.H{"product": p.ID, "rating": 4})
	require.Equal(t, http.StatusCreated, rec.Code)

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/api/reviews", bob, gin.H{"product": p.ID, "rating": 6}).Code)

	rec = env.do(http.MethodGet, fmt.Sprintf("/api/products/%d", p.ID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[map[string]any](t, rec)
	assert.Equal(t, 4.5, detail["average_rating"])
	assert.Len(t, detail["reviews"], 2)

	path := fmt.Sprintf("/api/reviews/%d", int64(review["id"].(float64)))
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodPatch, path, bob, gin.H{"rating": 1}).Code)

	rec = env.do(http.MethodPatch, path, ada, gin.H{"rating": 4})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 4, decode[map[string]any](t, rec)["rating"])

	rec = env.do(http.MethodGet, fmt.Sprintf("/api/reviews?product=%d&rating=4", p.ID), "", nil)
	assert.Len(t, decode[[]map[string]any](t, rec), 2)

	assert.Equal(t, http.StatusForbidden, env.do(http.MethodDelete, path, bob, nil).Code)
	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, path, ada, nil).Code)
}

func TestCustomers(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user("root", "root@shop.test", true)
	user := env.user("ada", "ada@example.com", false)

	body := gin.H{"name": "Grace", "email": "Grace@Example.com"}
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodPost, "/api/customers", user, body).Code)

	rec := env.do(http.MethodPost, "/api/customers", admin, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[map[string]any](t, rec)
	assert.Equal(t, "grace@example.com", created["email"])

	rec = env.do(http.MethodPost, "/api/customers", admin, gin.H{"name": "Other", "email": "grace@example.com"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[map[string]any](t, rec)["fields"], "email")

	rec = env.do(http.MethodGet, "/api/customers?search=grac", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)

	path := fmt.Sprintf("/api/customers/%d", int64(created["id"].(float64)))
	rec = env.do(http.MethodPatch, path, admin, gin.H{"phone": "555-0100"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "555-0100", decode[map[string]any](t, rec)["phone"])

	rec = env.do(http.MethodPatch, path, admin, gin.H{"email": "mallory@example.com"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[map[string]any](t, rec)["fields"], "email")
	rec = env.do(http.MethodPut, path, admin, gin.H{"name": "Grace H", "email": "GRACE@example.com"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "grace@example.com", decode[map[string]any](t, rec)["email"])

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPut, path, admin, gin.H{"phone": "1"}).Code)
	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, path, admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, path, "", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/customers/abc", "", nil).Code)
}

func TestInvalidTokenIsRejected(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/api/products", "no-such-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
