package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/artetradicao/storefront/internal/cart"
)

var (
	ErrEmptyCart           = errors.New("cart is empty")
	ErrInvalidCustomerInfo = errors.New("invalid customer info")
)

// numberRetries bounds how often PlaceOrder regenerates the order number after
// a uniqueness collision.
const numberRetries = 3

// CustomerInfo is the contact and shipping data captured at checkout. It is
// denormalized onto the order and never re-reads the user profile afterwards.
type CustomerInfo struct {
	Name    string
	Email   string
	Phone   string
	Address string
	City    string
	State   string
	ZipCode string
	Notes   string
}

// PricingPolicy supplies shipping and tax for a checkout subtotal. The
// storefront currently ships free and untaxed; the policy keeps that decision
// replaceable without touching the order engine.
type PricingPolicy interface {
	Quote(subtotal decimal.Decimal) (shipping, tax decimal.Decimal)
}

type zeroPricing struct{}

func (zeroPricing) Quote(decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	return decimal.Zero, decimal.Zero
}

// ZeroPricing returns the policy charging no shipping and no tax.
func ZeroPricing() PricingPolicy {
	return zeroPricing{}
}

// Notifier hands off a customer email for best-effort background delivery.
type Notifier interface {
	Enqueue(to, subject, body string)
}

type Service interface {
	PlaceOrder(ctx context.Context, c *cart.Cart, info CustomerInfo, userID uuid.NullUUID) (*Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*Order, error)
	GetOrderByNumber(ctx context.Context, number string) (*Order, error)
	ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]Order, error)
	ListOrders(ctx context.Context) ([]Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, next Status, tracking *Tracking) (*Order, error)
	RecordPaymentNotification(ctx context.Context, externalReference, paymentID, state string) (*Order, error)
}

type service struct {
	repo     Repository
	pricing  PricingPolicy
	notifier Notifier
}

// NewService builds the order engine. notifier may be nil; status changes then
// skip customer emails.
func NewService(repo Repository, pricing PricingPolicy, notifier Notifier) Service {
	if pricing == nil {
		pricing = ZeroPricing()
	}
	return &service{repo: repo, pricing: pricing, notifier: notifier}
}

func validateCustomerInfo(info CustomerInfo) error {
	for _, f := range []struct {
		name  string
		value string
	}{
		{"name", info.Name},
		{"email", info.Email},
		{"phone", info.Phone},
		{"address", info.Address},
		{"city", info.City},
		{"state", info.State},
		{"zip_code", info.ZipCode},
	} {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidCustomerInfo, f.name)
		}
	}
	return nil
}

// PlaceOrder turns the cart snapshot into one persisted order plus one item
// per cart line, all-or-nothing. The cart is cleared only after the order is
// durably stored.
func (s *service) PlaceOrder(ctx context.Context, c *cart.Cart, info CustomerInfo, userID uuid.NullUUID) (*Order, error) {
	if c == nil || c.IsEmpty() {
		return nil, ErrEmptyCart
	}
	if err := validateCustomerInfo(info); err != nil {
		return nil, err
	}

	lines := c.Lines()
	subtotal := c.Total()
	shipping, tax := s.pricing.Quote(subtotal)
	discount := decimal.Zero
	total := subtotal.Add(tax).Add(shipping).Sub(discount)

	items := make([]OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, OrderItem{
			ProductID:   uuid.NullUUID{UUID: line.ProductID, Valid: true},
			ProductName: line.Name,
			ProductSKU:  line.SKU,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			TotalPrice:  line.LineTotal(),
		})
	}

	o := &Order{
		UserID:          userID,
		Status:          StatusPending,
		PaymentStatus:   PaymentPending,
		Subtotal:        subtotal,
		TaxAmount:       tax,
		ShippingAmount:  shipping,
		DiscountAmount:  discount,
		TotalAmount:     total,
		CustomerName:    info.Name,
		CustomerEmail:   info.Email,
		CustomerPhone:   info.Phone,
		ShippingAddress: info.Address,
		ShippingCity:    info.City,
		ShippingState:   info.State,
		ShippingZipCode: info.ZipCode,
		Notes:           info.Notes,
		Items:           items,
	}

	var err error
	for attempt := 0; attempt < numberRetries; attempt++ {
		o.OrderNumber, err = NewOrderNumber()
		if err != nil {
			return nil, err
		}
		o.ID = uuid.Nil

		err = s.repo.Create(ctx, o)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrNumberExists) {
			log.Error().Err(err).Msg("service: failed to create order")
			return nil, fmt.Errorf("service: failed to create order: %w", err)
		}
		log.Warn().Str("order_number", o.OrderNumber).Msg("service: order number collision, regenerating")
	}
	if err != nil {
		return nil, fmt.Errorf("service: failed to create order: %w", err)
	}

	c.Clear()

	log.Info().
		Stringer("order_id", o.ID).
		Str("order_number", o.OrderNumber).
		Str("total", o.TotalAmount.String()).
		Int("items", len(o.Items)).
		Msg("service: order placed")

	return o, nil
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) GetOrderByNumber(ctx context.Context, number string) (*Order, error) {
	return s.repo.GetByNumber(ctx, number)
}

func (s *service) ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) ListOrders(ctx context.Context) ([]Order, error) {
	return s.repo.List(ctx)
}

// UpdateStatus moves an order along the status machine. Shipped and delivered
// transitions notify the customer; a notification failure never rolls back the
// already-persisted status change.
func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, next Status, tracking *Tracking) (*Order, error) {
	if !next.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, next)
	}

	o, err := s.repo.UpdateStatus(ctx, id, next, tracking)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrInvalidTransition) {
			return nil, err
		}
		log.Error().Err(err).Stringer("order_id", id).Str("new_status", next.String()).Msg("service: failed to update order status")
		return nil, fmt.Errorf("service: failed to update order status: %w", err)
	}

	log.Info().Stringer("order_id", id).Str("new_status", next.String()).Msg("service: order status updated")

	if s.notifier != nil && (next == StatusShipped || next == StatusDelivered) {
		subject, body := statusEmail(o, next)
		s.notifier.Enqueue(o.CustomerEmail, subject, body)
	}

	return o, nil
}

// RecordPaymentNotification applies a gateway webhook. The external reference
// is the order number; a successful payment advances pending -> paid exactly
// once, and replays of the same report are no-ops.
func (s *service) RecordPaymentNotification(ctx context.Context, externalReference, paymentID, state string) (*Order, error) {
	ps := mapGatewayState(state)

	o, err := s.repo.RecordPayment(ctx, externalReference, paymentID, ps)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, err
		}
		log.Error().Err(err).Str("order_number", externalReference).Msg("service: failed to record payment notification")
		return nil, fmt.Errorf("service: failed to record payment notification: %w", err)
	}

	log.Info().
		Str("order_number", externalReference).
		Str("payment_id", paymentID).
		Str("payment_status", ps.String()).
		Str("order_status", o.Status.String()).
		Msg("service: payment notification recorded")

	return o, nil
}

// mapGatewayState folds the gateway's vocabulary into the local payment
// status. Unknown states stay pending rather than failing the webhook.
func mapGatewayState(state string) PaymentStatus {
	switch strings.ToLower(state) {
	case "approved", "paid":
		return PaymentPaid
	case "rejected", "failed", "cancelled":
		return PaymentFailed
	case "refunded", "charged_back":
		return PaymentRefunded
	case "pending", "in_process":
		return PaymentPending
	default:
		log.Warn().Str("state", state).Msg("service: unknown payment state, treating as pending")
		return PaymentPending
	}
}

func statusEmail(o *Order, next Status) (subject, body string) {
	switch next {
	case StatusShipped:
		subject = "Your order has been shipped!"
		body = fmt.Sprintf("Hello %s,\n\nYour order %s is on its way.", o.CustomerName, o.OrderNumber)
		if o.TrackingNumber != "" {
			body += fmt.Sprintf("\nTracking number: %s", o.TrackingNumber)
		}
		if o.TrackingURL != "" {
			body += fmt.Sprintf("\nTrack it here: %s", o.TrackingURL)
		}
	case StatusDelivered:
		subject = "Your order has been delivered!"
		body = fmt.Sprintf("Hello %s,\n\nYour order %s has been delivered. Enjoy!", o.CustomerName, o.OrderNumber)
	}
	return subject, body
}
