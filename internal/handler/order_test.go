package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artetradicao/storefront/internal/cart"
	"github.com/artetradicao/storefront/internal/order"
	"github.com/artetradicao/storefront/internal/payment"
	"github.com/artetradicao/storefront/internal/session"
)

type mockGateway struct {
	createCheckoutFunc func(ctx context.Context, o *order.Order) (*payment.Checkout, error)
}

func (m *mockGateway) CreateCheckout(ctx context.Context, o *order.Order) (*payment.Checkout, error) {
	return m.createCheckoutFunc(ctx, o)
}

// withSession runs h behind real session middleware, letting prep seed the
// session before the handler sees the request.
func withSession(prep func(s *session.Session), h http.HandlerFunc) http.Handler {
	m := session.NewManager("test_session", time.Hour)
	return m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if prep != nil {
			prep(session.FromContext(r.Context()))
		}
		h(w, r)
	}))
}

func seedCart(t *testing.T) func(s *session.Session) {
	t.Helper()
	id, err := uuid.NewV4()
	require.NoError(t, err)
	return func(s *session.Session) {
		s.Cart.Add(cart.Line{ProductID: id, Name: "Vase", UnitPrice: decimal.RequireFromString("19.90"), Quantity: 2})
	}
}

func checkoutBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]string{
		"name":     "Maria Silva",
		"email":    "maria@example.com",
		"phone":    "11999990000",
		"address":  "Rua das Flores 1",
		"city":     "Sao Paulo",
		"state":    "SP",
		"zip_code": "01000-000",
	})
	require.NoError(t, err)
	return body
}

func TestOrderHandler_PostCheckout(t *testing.T) {
	svc := &mockOrderService{
		placeOrderFunc: func(_ context.Context, c *cart.Cart, info order.CustomerInfo, _ uuid.NullUUID) (*order.Order, error) {
			c.Clear()
			return &order.Order{OrderNumber: "ORD-1-abc", CustomerEmail: info.Email}, nil
		},
	}
	gateway := &mockGateway{
		createCheckoutFunc: func(_ context.Context, o *order.Order) (*payment.Checkout, error) {
			return &payment.Checkout{RedirectURL: "https://pay.example/" + o.OrderNumber}, nil
		},
	}
	h := NewOrderHandler(svc, gateway)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/orders/checkout", bytes.NewReader(checkoutBody(t)))
	withSession(seedCart(t), h.PostCheckout).ServeHTTP(w, r)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Order      order.Order `json:"order"`
		PaymentURL string      `json:"payment_url"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ORD-1-abc", resp.Order.OrderNumber)
	assert.Equal(t, "https://pay.example/ORD-1-abc", resp.PaymentURL)
}

func TestOrderHandler_PostCheckout_GatewayFailureStillCreates(t *testing.T) {
	svc := &mockOrderService{
		placeOrderFunc: func(_ context.Context, c *cart.Cart, _ order.CustomerInfo, _ uuid.NullUUID) (*order.Order, error) {
			return &order.Order{OrderNumber: "ORD-1-abc"}, nil
		},
	}
	gateway := &mockGateway{
		createCheckoutFunc: func(context.Context, *order.Order) (*payment.Checkout, error) {
			return nil, errors.New("gateway down")
		},
	}
	h := NewOrderHandler(svc, gateway)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/orders/checkout", bytes.NewReader(checkoutBody(t)))
	withSession(seedCart(t), h.PostCheckout).ServeHTTP(w, r)

	// The order is already persisted; a gateway outage only costs the redirect.
	require.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotContains(t, resp, "payment_url")
}

func TestOrderHandler_PostCheckout_EmptyCart(t *testing.T) {
	svc := &mockOrderService{
		placeOrderFunc: func(_ context.Context, c *cart.Cart, _ order.CustomerInfo, _ uuid.NullUUID) (*order.Order, error) {
			return nil, order.ErrEmptyCart
		},
	}
	h := NewOrderHandler(svc, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/orders/checkout", bytes.NewReader(checkoutBody(t)))
	withSession(nil, h.PostCheckout).ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrderHandler_PostCheckout_InvalidPayload(t *testing.T) {
	h := NewOrderHandler(&mockOrderService{}, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/orders/checkout", bytes.NewReader([]byte(`{"name":"Maria"}`)))
	withSession(seedCart(t), h.PostCheckout).ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrderHandler_GetOrder_Authorization(t *testing.T) {
	ownerID := uuid.Must(uuid.NewV4())
	otherID := uuid.Must(uuid.NewV4())
	orderID := uuid.Must(uuid.NewV4())

	svc := &mockOrderService{
		getOrderFunc: func(context.Context, uuid.UUID) (*order.Order, error) {
			return &order.Order{
				ID:     orderID,
				UserID: uuid.NullUUID{UUID: ownerID, Valid: true},
			}, nil
		},
	}
	h := NewOrderHandler(svc, nil)

	serve := func(u *session.UserInfo) *httptest.ResponseRecorder {
		router := chi.NewRouter()
		router.Method(http.MethodGet, "/orders/{id}", withSession(func(s *session.Session) {
			s.User = u
		}, h.GetOrder))

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/orders/"+orderID.String(), nil)
		router.ServeHTTP(w, r)
		return w
	}

	t.Run("owner sees own order", func(t *testing.T) {
		w := serve(&session.UserInfo{ID: ownerID, Role: "user"})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("other customer is refused", func(t *testing.T) {
		w := serve(&session.UserInfo{ID: otherID, Role: "user"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin sees everything", func(t *testing.T) {
		w := serve(&session.UserInfo{ID: otherID, Role: "admin"})
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestOrderHandler_TrackOrder(t *testing.T) {
	svc := &mockOrderService{
		getByNumberFunc: func(_ context.Context, number string) (*order.Order, error) {
			if number != "ORD-1-abc" {
				return nil, order.ErrOrderNotFound
			}
			return &order.Order{
				OrderNumber:     "ORD-1-abc",
				Status:          order.StatusShipped,
				PaymentStatus:   order.PaymentPaid,
				TrackingNumber:  "TRACK123",
				CustomerEmail:   "maria@example.com",
				ShippingAddress: "Rua das Flores 1",
			}, nil
		},
	}
	h := NewOrderHandler(svc, nil)

	router := chi.NewRouter()
	router.Get("/orders/track/{number}", h.TrackOrder)

	t.Run("known number", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders/track/ORD-1-abc", nil))

		require.Equal(t, http.StatusOK, w.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "shipped", resp["status"])
		assert.Equal(t, "TRACK123", resp["tracking_number"])

		// Public tracking must not leak contact or address data.
		assert.NotContains(t, resp, "customer_email")
		assert.NotContains(t, resp, "shipping_address")
	})

	t.Run("unknown number", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders/track/ORD-nope", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
