// Package payment talks to the external payment gateway. Every call is
// bounded by a short timeout and treated as best-effort: a gateway outage
// must never fail an already-persisted checkout.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/artetradicao/storefront/internal/config"
	"github.com/artetradicao/storefront/internal/order"
)

// Notification is the inbound webhook payload. ExternalReference carries the
// order number the checkout was created with.
type Notification struct {
	ExternalReference string `json:"external_reference"`
	PaymentID         string `json:"payment_id"`
	Status            string `json:"status"`
}

// Checkout is the gateway's answer to a preference creation: where to send
// the customer to pay.
type Checkout struct {
	PreferenceID string `json:"preference_id"`
	RedirectURL  string `json:"redirect_url"`
}

type Gateway interface {
	CreateCheckout(ctx context.Context, o *order.Order) (*Checkout, error)
}

type httpGateway struct {
	cfg     config.PaymentConfig
	baseURL string
	client  *http.Client
}

// NewHTTPGateway builds the real gateway client. appBaseURL is used for the
// webhook callback the gateway reports payments to.
func NewHTTPGateway(cfg config.PaymentConfig, appBaseURL string) Gateway {
	return &httpGateway{
		cfg:     cfg,
		baseURL: appBaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

type preferenceItem struct {
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

type preferenceRequest struct {
	Items             []preferenceItem `json:"items"`
	PayerName         string           `json:"payer_name"`
	PayerEmail        string           `json:"payer_email"`
	ExternalReference string           `json:"external_reference"`
	NotificationURL   string           `json:"notification_url"`
}

func (g *httpGateway) CreateCheckout(ctx context.Context, o *order.Order) (*Checkout, error) {
	items := make([]preferenceItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, preferenceItem{
			Title:     it.ProductName,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		})
	}

	body, err := json.Marshal(preferenceRequest{
		Items:             items,
		PayerName:         o.CustomerName,
		PayerEmail:        o.CustomerEmail,
		ExternalReference: o.OrderNumber,
		NotificationURL:   g.baseURL + "/webhooks/payment",
	})
	if err != nil {
		return nil, fmt.Errorf("payment: failed to encode preference: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/checkout/preferences", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("payment: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.cfg.AccessToken)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment: gateway call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("payment: gateway returned status %d", resp.StatusCode)
	}

	var checkout Checkout
	if err := json.NewDecoder(resp.Body).Decode(&checkout); err != nil {
		return nil, fmt.Errorf("payment: failed to decode gateway response: %w", err)
	}

	return &checkout, nil
}
