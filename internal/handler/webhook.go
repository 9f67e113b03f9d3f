package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/artetradicao/storefront/internal/order"
	"github.com/artetradicao/storefront/internal/payment"
)

type WebhookHandler struct {
	orders order.Service
}

func NewWebhookHandler(orders order.Service) *WebhookHandler {
	return &WebhookHandler{orders: orders}
}

// PaymentNotification ingests the gateway's payment webhook. Replays of the
// same notification are acknowledged without changing the order again.
func (h *WebhookHandler) PaymentNotification(w http.ResponseWriter, r *http.Request) {
	var n payment.Notification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if n.ExternalReference == "" {
		respondWithError(w, http.StatusBadRequest, "external_reference is required")
		return
	}

	o, err := h.orders.RecordPaymentNotification(r.Context(), n.ExternalReference, n.PaymentID, n.Status)
	if err != nil {
		log.Warn().Err(err).Str("external_reference", n.ExternalReference).Msg("handler: payment webhook rejected")
		respondWithDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"order_number":   o.OrderNumber,
		"status":         o.Status,
		"payment_status": o.PaymentStatus,
	})
}
