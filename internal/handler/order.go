package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/artetradicao/storefront/internal/order"
	"github.com/artetradicao/storefront/internal/payment"
	"github.com/artetradicao/storefront/internal/session"
)

type OrderHandler struct {
	svc      order.Service
	gateway  payment.Gateway
	validate *validator.Validate
}

// NewOrderHandler builds the checkout and order handlers. gateway may be nil;
// checkout then completes without a payment redirect.
func NewOrderHandler(svc order.Service, gateway payment.Gateway) *OrderHandler {
	return &OrderHandler{
		svc:      svc,
		gateway:  gateway,
		validate: validator.New(),
	}
}

// GetCheckout returns the cart summary the checkout form is built from.
func (h *OrderHandler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	if s.Cart.IsEmpty() {
		respondWithError(w, http.StatusBadRequest, order.ErrEmptyCart.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, viewOf(s.Cart))
}

type checkoutPayload struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"required"`
	Address string `json:"address" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	ZipCode string `json:"zip_code" validate:"required"`
	Notes   string `json:"notes"`
}

// PostCheckout places the order from the session cart. The payment redirect is
// best-effort: if the gateway is down the order still exists and the customer
// can pay later.
func (h *OrderHandler) PostCheckout(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())

	var payload checkoutPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	var userID uuid.NullUUID
	if s.User != nil {
		userID = uuid.NullUUID{UUID: s.User.ID, Valid: true}
	}

	o, err := h.svc.PlaceOrder(r.Context(), s.Cart, order.CustomerInfo{
		Name:    payload.Name,
		Email:   payload.Email,
		Phone:   payload.Phone,
		Address: payload.Address,
		City:    payload.City,
		State:   payload.State,
		ZipCode: payload.ZipCode,
		Notes:   payload.Notes,
	}, userID)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	resp := map[string]interface{}{"order": o}
	if h.gateway != nil {
		checkout, err := h.gateway.CreateCheckout(r.Context(), o)
		if err != nil {
			log.Warn().Err(err).Str("order_number", o.OrderNumber).Msg("handler: payment checkout creation failed")
		} else {
			resp["payment_url"] = checkout.RedirectURL
		}
	}

	respondWithJSON(w, http.StatusCreated, resp)
}

// ListOrders returns the signed-in user's order history.
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())

	orders, err := h.svc.ListOrdersByUser(r.Context(), s.User.ID)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"orders": orders})
}

// GetOrder returns one order. Customers only see their own; admins see all.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())

	id, ok := parseUUIDParam(chi.URLParam(r, "id"))
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	o, err := h.svc.GetOrder(r.Context(), id)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	if !s.IsAdmin() {
		owned := o.UserID.Valid && s.User != nil && o.UserID.UUID == s.User.ID
		if !owned {
			respondWithError(w, http.StatusForbidden, "order belongs to another account")
			return
		}
	}

	respondWithJSON(w, http.StatusOK, o)
}

// TrackOrder is the public lookup by order number printed on the confirmation
// email. It exposes no payment or address detail beyond the status.
func (h *OrderHandler) TrackOrder(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")

	o, err := h.svc.GetOrderByNumber(r.Context(), number)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"order_number":    o.OrderNumber,
		"status":          o.Status,
		"payment_status":  o.PaymentStatus,
		"tracking_number": o.TrackingNumber,
		"tracking_url":    o.TrackingURL,
		"created_at":      o.CreatedAt,
		"shipped_at":      o.ShippedAt,
		"delivered_at":    o.DeliveredAt,
	})
}
