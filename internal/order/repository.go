package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrNumberExists      = errors.New("order number already exists")
)

// Tracking carries the optional carrier fields written alongside a shipped
// transition.
type Tracking struct {
	Number string
	URL    string
}

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetByNumber(ctx context.Context, number string) (*Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error)
	List(ctx context.Context) ([]Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, next Status, tracking *Tracking) (*Order, error)
	RecordPayment(ctx context.Context, orderNumber, paymentID string, status PaymentStatus) (*Order, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

// Create persists the order and all of its items in a single transaction.
// Either everything lands or nothing does; a partially-created order must
// never be observable.
func (r *postgresRepository) Create(ctx context.Context, o *Order) (err error) {
	if o.ID == uuid.Nil {
		genID, genErr := uuid.NewV4()
		if genErr != nil {
			return fmt.Errorf("repository: failed to generate order id: %w", genErr)
		}
		o.ID = genID
	}

	tx, beginErr := r.db.Begin(ctx)
	if beginErr != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", beginErr)
	}
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("order_id", o.ID).Msg("Failed to rollback transaction after panic")
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("order_id", o.ID).Msg("Failed to rollback transaction")
			}
		} else {
			if commitErr := tx.Commit(ctx); commitErr != nil {
				err = fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
			}
		}
	}()

	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now

	queryOrder := `
		INSERT INTO orders (id, order_number, user_id, status, payment_status, payment_id,
			subtotal, tax_amount, shipping_amount, discount_amount, total_amount,
			customer_name, customer_email, customer_phone, shipping_address,
			shipping_city, shipping_state, shipping_zip_code, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, $10, $11, $12, $13,
			NULLIF($14, ''), NULLIF($15, ''), NULLIF($16, ''), NULLIF($17, ''),
			NULLIF($18, ''), NULLIF($19, ''), $20, $21)
	`
	_, err = tx.Exec(ctx, queryOrder,
		o.ID, o.OrderNumber, o.UserID, string(o.Status), string(o.PaymentStatus), o.PaymentID,
		o.Subtotal, o.TaxAmount, o.ShippingAmount, o.DiscountAmount, o.TotalAmount,
		o.CustomerName, o.CustomerEmail, o.CustomerPhone, o.ShippingAddress,
		o.ShippingCity, o.ShippingState, o.ShippingZipCode, o.Notes,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation && pgErr.ConstraintName == "orders_order_number_key" {
			return ErrNumberExists
		}
		return fmt.Errorf("repository: failed to insert order: %w", err)
	}

	queryItem := `
		INSERT INTO order_items (id, order_id, product_id, product_name, product_sku,
			quantity, unit_price, total_price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10)
	`
	for i := range o.Items {
		item := &o.Items[i]

		itemID, genErr := uuid.NewV4()
		if genErr != nil {
			return fmt.Errorf("repository: failed to generate order item id: %w", genErr)
		}
		item.ID = itemID
		item.OrderID = o.ID
		item.CreatedAt = now
		item.UpdatedAt = now

		_, err = tx.Exec(ctx, queryItem,
			item.ID, item.OrderID, item.ProductID, item.ProductName, item.ProductSKU,
			item.Quantity, item.UnitPrice, item.TotalPrice, item.CreatedAt, item.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("repository: failed to insert order item for order %s: %w", o.ID, err)
		}
	}

	return nil
}

const orderColumns = `
	id, order_number, user_id, status, payment_status, COALESCE(payment_id, ''),
	subtotal, tax_amount, shipping_amount, discount_amount, total_amount,
	customer_name, customer_email, COALESCE(customer_phone, ''),
	COALESCE(shipping_address, ''), COALESCE(shipping_city, ''),
	COALESCE(shipping_state, ''), COALESCE(shipping_zip_code, ''),
	COALESCE(notes, ''), COALESCE(tracking_number, ''), COALESCE(tracking_url, ''),
	shipped_at, delivered_at, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var status, paymentStatus string
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &status, &paymentStatus, &o.PaymentID,
		&o.Subtotal, &o.TaxAmount, &o.ShippingAmount, &o.DiscountAmount, &o.TotalAmount,
		&o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
		&o.ShippingAddress, &o.ShippingCity, &o.ShippingState, &o.ShippingZipCode,
		&o.Notes, &o.TrackingNumber, &o.TrackingURL,
		&o.ShippedAt, &o.DeliveredAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Status = Status(status)
	o.PaymentStatus = PaymentStatus(paymentStatus)
	return &o, nil
}

func (r *postgresRepository) getOrder(ctx context.Context, cond string, arg any) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE ` + cond

	o, err := scanOrder(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order: %w", err)
	}

	items, err := r.loadItems(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items

	return o, nil
}

func (r *postgresRepository) loadItems(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, product_name, COALESCE(product_sku, ''),
			quantity, unit_price, total_price, created_at, updated_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items for order %s: %w", orderID, err)
	}
	defer rows.Close()

	items := make([]OrderItem, 0)
	for rows.Next() {
		var item OrderItem
		err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.ProductSKU,
			&item.Quantity, &item.UnitPrice, &item.TotalPrice, &item.CreatedAt, &item.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item for order %s: %w", orderID, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order items for order %s: %w", orderID, err)
	}

	return items, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	return r.getOrder(ctx, "id = $1", id)
}

func (r *postgresRepository) GetByNumber(ctx context.Context, number string) (*Order, error) {
	return r.getOrder(ctx, "order_number = $1", number)
}

func (r *postgresRepository) listOrders(ctx context.Context, cond string, args ...any) ([]Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	if cond != "" {
		query += " WHERE " + cond
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating orders: %w", err)
	}

	for i := range orders {
		items, err := r.loadItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}

	return orders, nil
}

func (r *postgresRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	return r.listOrders(ctx, "user_id = $1", userID)
}

func (r *postgresRepository) List(ctx context.Context) ([]Order, error) {
	return r.listOrders(ctx, "")
}

// UpdateStatus re-reads the current status under a row lock and validates the
// transition inside the same transaction, so a concurrent update cannot slip a
// stale status past the state machine.
func (r *postgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, next Status, tracking *Tracking) (*Order, error) {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var current string
		err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&current)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("repository: failed to read order status: %w", err)
		}

		if !CanTransition(Status(current), next) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
		}

		now := time.Now().UTC()
		query := `UPDATE orders SET status = $1, updated_at = $2`
		args := []any{string(next), now}

		switch next {
		case StatusShipped:
			query += fmt.Sprintf(", shipped_at = $%d", len(args)+1)
			args = append(args, now)
		case StatusDelivered:
			query += fmt.Sprintf(", delivered_at = $%d", len(args)+1)
			args = append(args, now)
		}
		if tracking != nil {
			query += fmt.Sprintf(", tracking_number = NULLIF($%d, ''), tracking_url = NULLIF($%d, '')", len(args)+1, len(args)+2)
			args = append(args, tracking.Number, tracking.URL)
		}

		args = append(args, id)
		query += fmt.Sprintf(" WHERE id = $%d", len(args))

		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("repository: failed to update order status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

// RecordPayment applies a payment-gateway report under the order's row lock.
// Replaying the same report is a no-op: payment status is only written when it
// differs, and the pending -> paid advance happens at most once.
func (r *postgresRepository) RecordPayment(ctx context.Context, orderNumber, paymentID string, status PaymentStatus) (*Order, error) {
	var orderID uuid.UUID
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var currentStatus, currentPayment string
		err := tx.QueryRow(ctx,
			`SELECT id, status, payment_status FROM orders WHERE order_number = $1 FOR UPDATE`,
			orderNumber,
		).Scan(&orderID, &currentStatus, &currentPayment)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("repository: failed to read order for payment: %w", err)
		}

		nextStatus, changed := applyPayment(Status(currentStatus), PaymentStatus(currentPayment), status)
		if !changed {
			return nil
		}

		_, err = tx.Exec(ctx, `
			UPDATE orders
			SET payment_status = $1, status = $2, payment_id = NULLIF($3, ''), updated_at = $4
			WHERE id = $5`,
			string(status), string(nextStatus), paymentID, time.Now().UTC(), orderID,
		)
		if err != nil {
			return fmt.Errorf("repository: failed to record payment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, orderID)
}
