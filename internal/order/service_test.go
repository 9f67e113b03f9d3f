package order

import (
	"context"
	"errors"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artetradicao/storefront/internal/cart"
)

type mockRepository struct {
	createFunc        func(ctx context.Context, o *Order) error
	getByIDFunc       func(ctx context.Context, id uuid.UUID) (*Order, error)
	getByNumberFunc   func(ctx context.Context, number string) (*Order, error)
	listByUserFunc    func(ctx context.Context, userID uuid.UUID) ([]Order, error)
	listFunc          func(ctx context.Context) ([]Order, error)
	updateStatusFunc  func(ctx context.Context, id uuid.UUID, next Status, tracking *Tracking) (*Order, error)
	recordPaymentFunc func(ctx context.Context, orderNumber, paymentID string, status PaymentStatus) (*Order, error)
}

func (m *mockRepository) Create(ctx context.Context, o *Order) error {
	return m.createFunc(ctx, o)
}

func (m *mockRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockRepository) GetByNumber(ctx context.Context, number string) (*Order, error) {
	return m.getByNumberFunc(ctx, number)
}

func (m *mockRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	return m.listByUserFunc(ctx, userID)
}

func (m *mockRepository) List(ctx context.Context) ([]Order, error) {
	return m.listFunc(ctx)
}

func (m *mockRepository) UpdateStatus(ctx context.Context, id uuid.UUID, next Status, tracking *Tracking) (*Order, error) {
	return m.updateStatusFunc(ctx, id, next, tracking)
}

func (m *mockRepository) RecordPayment(ctx context.Context, orderNumber, paymentID string, status PaymentStatus) (*Order, error) {
	return m.recordPaymentFunc(ctx, orderNumber, paymentID, status)
}

type mockNotifier struct {
	sent []string
}

func (m *mockNotifier) Enqueue(to, subject, body string) {
	m.sent = append(m.sent, subject)
}

func testCart(t *testing.T) *cart.Cart {
	t.Helper()
	c := cart.New()
	id1, err := uuid.NewV4()
	require.NoError(t, err)
	id2, err := uuid.NewV4()
	require.NoError(t, err)
	c.Add(cart.Line{ProductID: id1, Name: "Vase", SKU: "VA-1", UnitPrice: decimal.RequireFromString("19.90"), Quantity: 2})
	c.Add(cart.Line{ProductID: id2, Name: "Bowl", SKU: "BO-1", UnitPrice: decimal.RequireFromString("5.50"), Quantity: 1})
	return c
}

func testCustomer() CustomerInfo {
	return CustomerInfo{
		Name:    "Maria Silva",
		Email:   "maria@example.com",
		Phone:   "11999990000",
		Address: "Rua das Flores 1",
		City:    "Sao Paulo",
		State:   "SP",
		ZipCode: "01000-000",
	}
}

func TestService_PlaceOrder(t *testing.T) {
	var created *Order
	repo := &mockRepository{
		createFunc: func(_ context.Context, o *Order) error {
			created = o
			return nil
		},
	}
	svc := NewService(repo, nil, nil)

	c := testCart(t)
	o, err := svc.PlaceOrder(context.Background(), c, testCustomer(), uuid.NullUUID{})
	require.NoError(t, err)
	require.NotNil(t, created)

	assert.Len(t, o.Items, 2)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
	assert.Equal(t, "45.30", o.Subtotal.StringFixed(2))
	assert.Equal(t, "45.30", o.TotalAmount.StringFixed(2))
	assert.Equal(t, "39.80", o.Items[0].TotalPrice.StringFixed(2))
	assert.NotEmpty(t, o.OrderNumber)

	// The cart is only cleared once the order is durably stored.
	assert.True(t, c.IsEmpty())
}

func TestService_PlaceOrder_EmptyCart(t *testing.T) {
	svc := NewService(&mockRepository{}, nil, nil)

	_, err := svc.PlaceOrder(context.Background(), cart.New(), testCustomer(), uuid.NullUUID{})
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestService_PlaceOrder_MissingCustomerField(t *testing.T) {
	svc := NewService(&mockRepository{}, nil, nil)

	info := testCustomer()
	info.ZipCode = "  "
	c := testCart(t)

	_, err := svc.PlaceOrder(context.Background(), c, info, uuid.NullUUID{})
	assert.ErrorIs(t, err, ErrInvalidCustomerInfo)
	assert.False(t, c.IsEmpty(), "cart must survive a failed checkout")
}

func TestService_PlaceOrder_RepositoryFailureKeepsCart(t *testing.T) {
	repo := &mockRepository{
		createFunc: func(context.Context, *Order) error {
			return errors.New("connection lost")
		},
	}
	svc := NewService(repo, nil, nil)

	c := testCart(t)
	_, err := svc.PlaceOrder(context.Background(), c, testCustomer(), uuid.NullUUID{})
	require.Error(t, err)
	assert.False(t, c.IsEmpty())
}

func TestService_PlaceOrder_RetriesNumberCollision(t *testing.T) {
	var numbers []string
	repo := &mockRepository{
		createFunc: func(_ context.Context, o *Order) error {
			numbers = append(numbers, o.OrderNumber)
			if len(numbers) < 2 {
				return ErrNumberExists
			}
			return nil
		},
	}
	svc := NewService(repo, nil, nil)

	_, err := svc.PlaceOrder(context.Background(), testCart(t), testCustomer(), uuid.NullUUID{})
	require.NoError(t, err)
	require.Len(t, numbers, 2)
	assert.NotEqual(t, numbers[0], numbers[1])
}

func TestService_UpdateStatus_NotifiesOnShipped(t *testing.T) {
	repo := &mockRepository{
		updateStatusFunc: func(_ context.Context, id uuid.UUID, next Status, _ *Tracking) (*Order, error) {
			return &Order{
				ID:             id,
				OrderNumber:    "ORD-1-abc",
				Status:         next,
				CustomerName:   "Maria Silva",
				CustomerEmail:  "maria@example.com",
				TrackingNumber: "TRACK123",
			}, nil
		},
	}
	notifier := &mockNotifier{}
	svc := NewService(repo, nil, notifier)

	id, err := uuid.NewV4()
	require.NoError(t, err)

	o, err := svc.UpdateStatus(context.Background(), id, StatusShipped, &Tracking{Number: "TRACK123"})
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, o.Status)
	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0], "shipped")
}

func TestService_UpdateStatus_NoEmailOnOtherTransitions(t *testing.T) {
	repo := &mockRepository{
		updateStatusFunc: func(_ context.Context, id uuid.UUID, next Status, _ *Tracking) (*Order, error) {
			return &Order{ID: id, Status: next}, nil
		},
	}
	notifier := &mockNotifier{}
	svc := NewService(repo, nil, notifier)

	id, err := uuid.NewV4()
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), id, StatusProcessing, nil)
	require.NoError(t, err)
	assert.Empty(t, notifier.sent)
}

func TestService_UpdateStatus_RejectsUnknownStatus(t *testing.T) {
	svc := NewService(&mockRepository{}, nil, nil)

	id, err := uuid.NewV4()
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), id, Status("teleported"), nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestService_UpdateStatus_PropagatesIllegalEdge(t *testing.T) {
	repo := &mockRepository{
		updateStatusFunc: func(context.Context, uuid.UUID, Status, *Tracking) (*Order, error) {
			return nil, ErrInvalidTransition
		},
	}
	notifier := &mockNotifier{}
	svc := NewService(repo, nil, notifier)

	id, err := uuid.NewV4()
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), id, StatusShipped, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Empty(t, notifier.sent)
}

func TestService_RecordPaymentNotification(t *testing.T) {
	testCases := []struct {
		name     string
		state    string
		expected PaymentStatus
	}{
		{"approved maps to paid", "approved", PaymentPaid},
		{"uppercase approved", "APPROVED", PaymentPaid},
		{"rejected maps to failed", "rejected", PaymentFailed},
		{"charged back maps to refunded", "charged_back", PaymentRefunded},
		{"in process stays pending", "in_process", PaymentPending},
		{"unknown state stays pending", "weird_state", PaymentPending},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var recorded PaymentStatus
			repo := &mockRepository{
				recordPaymentFunc: func(_ context.Context, number, paymentID string, status PaymentStatus) (*Order, error) {
					recorded = status
					return &Order{OrderNumber: number, PaymentID: paymentID, PaymentStatus: status}, nil
				},
			}
			svc := NewService(repo, nil, nil)

			_, err := svc.RecordPaymentNotification(context.Background(), "ORD-1-abc", "pay-1", tc.state)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, recorded)
		})
	}
}

func TestService_RecordPaymentNotification_UnknownOrder(t *testing.T) {
	repo := &mockRepository{
		recordPaymentFunc: func(context.Context, string, string, PaymentStatus) (*Order, error) {
			return nil, ErrOrderNotFound
		},
	}
	svc := NewService(repo, nil, nil)

	_, err := svc.RecordPaymentNotification(context.Background(), "ORD-missing", "pay-1", "approved")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
