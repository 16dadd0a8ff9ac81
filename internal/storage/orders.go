package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"shoppingmart/internal/models"
)

// CreateOrder inserts a pending order.
func CreateOrder(ctx context.Context, q Querier, userID int64, total decimal.Decimal, shippingAddress, paymentMethod string) (*models.Order, error) {
	o := models.Order{
		UserID:          userID,
		Total:           total,
		ShippingAddress: shippingAddress,
		PaymentMethod:   paymentMethod,
	}
	err := q.QueryRowContext(ctx, `
		INSERT INTO Orders (user_id, order_total, shipping_address, payment_method, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, status, created_at`,
		userID, total, shippingAddress, paymentMethod, string(models.OrderStatusPending),
	).Scan(&o.ID, &o.Status, &o.CreatedAt)
	if err != nil {
		return nil, classify(err, "create order")
	}
	return &o, nil
}

// AddOrderItems inserts every item of an order. Call it inside WithTx so a
// partial item set is never committed.
func AddOrderItems(ctx context.Context, q Querier, orderID int64, items []models.OrderItem) error {
	for _, item := range items {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO OrderItems (order_id, product_id, quantity, price_at_purchase)
			VALUES ($1, $2, $3, $4)`,
			orderID, item.ProductID, item.Quantity, item.PriceAtPurchase); err != nil {
			return classify(err, fmt.Sprintf("insert item for product %d", item.ProductID))
		}
	}
	return nil
}

const orderColumns = `
		o.id, o.user_id, o.order_total, o.shipping_address, o.payment_method,
		o.status, o.tracking_number, o.created_at`

// ListOrders returns the orders matching every set filter, newest first.
func ListOrders(ctx context.Context, q Querier, f models.OrderFilter) ([]models.Order, error) {
	var (
		conditions []string
		args       []interface{}
	)
	argCount := 0

	if f.Status != nil {
		argCount++
		conditions = append(conditions, fmt.Sprintf("o.status = $%d", argCount))
		args = append(args, string(*f.Status))
	}
	if f.UserID != nil {
		argCount++
		conditions = append(conditions, fmt.Sprintf("o.user_id = $%d", argCount))
		args = append(args, *f.UserID)
	}
	if f.From != nil {
		argCount++
		conditions = append(conditions, fmt.Sprintf("o.created_at >= $%d", argCount))
		args = append(args, *f.From)
	}
	if f.To != nil {
		argCount++
		conditions = append(conditions, fmt.Sprintf("o.created_at <= $%d", argCount))
		args = append(args, *f.To)
	}

	query := `
		SELECT` + orderColumns + `
		FROM Orders o`
	if len(conditions) > 0 {
		query += `
		WHERE ` + strings.Join(conditions, " AND ")
	}
	query += `
		ORDER BY o.created_at DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}
	return orders, nil
}

// GetOrder returns one order with its items. A non-nil userID restricts the
// lookup to that user's orders, so another user's order reads as not found.
func GetOrder(ctx context.Context, q Querier, id int64, userID *int64) (*models.Order, error) {
	query := `
		SELECT` + orderColumns + `
		FROM Orders o
		WHERE o.id = $1`
	args := []interface{}{id}
	if userID != nil {
		query += ` AND o.user_id = $2`
		args = append(args, *userID)
	}

	o, err := scanOrder(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order: %w", err)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT oi.product_id, p.name, oi.quantity, oi.price_at_purchase
		FROM OrderItems oi
		LEFT JOIN Products p ON oi.product_id = p.id
		WHERE oi.order_id = $1
		ORDER BY oi.id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order items: %w", err)
	}
	defer rows.Close()

	o.Items = []models.OrderLine{}
	for rows.Next() {
		var (
			line models.OrderLine
			name sql.NullString
		)
		if err := rows.Scan(&line.ProductID, &name, &line.Quantity, &line.PriceAtPurchase); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		line.ProductName = stringPtr(name)
		o.Items = append(o.Items, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read order items: %w", err)
	}
	return o, nil
}

// UpdateOrderStatus sets an order's status and returns the updated row.
func UpdateOrderStatus(ctx context.Context, q Querier, id int64, status models.OrderStatus) (*models.Order, error) {
	return updateOrder(ctx, q, "update order status", `
		UPDATE Orders o
		SET status = $1, updated_at = CURRENT_TIMESTAMP
		WHERE o.id = $2
		RETURNING`+orderColumns, string(status), id)
}

// SetTrackingNumber records the carrier tracking number and marks the order
// shipped.
func SetTrackingNumber(ctx context.Context, q Querier, id int64, tracking string) (*models.Order, error) {
	return updateOrder(ctx, q, "add tracking number", `
		UPDATE Orders o
		SET tracking_number = $1, status = $2, updated_at = CURRENT_TIMESTAMP
		WHERE o.id = $3
		RETURNING`+orderColumns, tracking, string(models.OrderStatusShipped), id)
}

func updateOrder(ctx context.Context, q Querier, action, query string, args ...interface{}) (*models.Order, error) {
	o, err := scanOrder(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", action, err)
	}
	return o, nil
}

func scanOrder(s scanner) (*models.Order, error) {
	var (
		o        models.Order
		tracking sql.NullString
	)
	if err := s.Scan(&o.ID, &o.UserID, &o.Total, &o.ShippingAddress, &o.PaymentMethod,
		&o.Status, &tracking, &o.CreatedAt); err != nil {
		return nil, err
	}
	o.TrackingNumber = stringPtr(tracking)
	return &o, nil
}
