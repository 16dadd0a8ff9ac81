package service

import (
	"context"
	"fmt"
	"time"

	"shoppingmart/internal/models"
	"shoppingmart/internal/pricing"
	"shoppingmart/internal/storage"
	"shoppingmart/internal/validation"
)

// CalculateOrderTotal prices lines at the stored product prices.
func (s *Service) CalculateOrderTotal(ctx context.Context, lines []models.CartLine, secret, token string) (*models.OrderBreakdown, error) {
	c := s.begin(ctx, opCalculateOrder)
	var breakdown *models.OrderBreakdown
	err := run(
		c.authorize(secret, token),
		func() error {
			return invalid("Invalid cart items", validation.CartLines(lines))
		},
		func() (err error) {
			start := time.Now()
			breakdown, err = s.engine.Calculate(ctx, lines)
			c.observePricing(start)
			return err
		},
	)
	if err = c.finish(err, "Order calculated"); err != nil {
		return nil, err
	}
	return breakdown, nil
}

// Checkout prices lines and places the order in one transaction: the order
// row, its items at the computed unit prices and the stock decrements either
// all commit or none do. Card details are format-checked only.
func (s *Service) Checkout(ctx context.Context, req models.CheckoutRequest, secret, token string) (*models.OrderReceipt, error) {
	c := s.begin(ctx, opCheckout)
	var receipt *models.OrderReceipt
	err := run(
		c.authorize(secret, token),
		func() error {
			return invalid("Invalid checkout request", validation.Checkout(req, s.now()))
		},
		func() error {
			return s.db.WithTx(ctx, func(q storage.Querier) error {
				start := time.Now()
				breakdown, err := pricing.Calculate(ctx, storage.NewProductReader(q), req.Items)
				c.observePricing(start)
				if err != nil {
					return err
				}

				order, err := storage.CreateOrder(ctx, q, c.claims.SubjectID, breakdown.Total, req.ShippingAddress, req.Method)
				if err != nil {
					return err
				}

				items := make([]models.OrderItem, 0, len(breakdown.Items))
				for _, line := range breakdown.Items {
					items = append(items, models.OrderItem{
						ProductID:       line.ProductID,
						Quantity:        line.Quantity,
						PriceAtPurchase: line.UnitPrice,
					})
				}
				if err := storage.AddOrderItems(ctx, q, order.ID, items); err != nil {
					return err
				}

				for _, item := range items {
					if err := storage.ReduceStock(ctx, q, item.ProductID, item.Quantity); err != nil {
						return err
					}
				}

				receipt = &models.OrderReceipt{Order: *order, Breakdown: *breakdown}
				return nil
			})
		},
	)

	var success string
	if receipt != nil {
		success = fmt.Sprintf("Order placed: ID %d", receipt.Order.ID)
	}
	if err = c.finish(err, success); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.OrdersPlacedTotal.Inc()
	}
	return receipt, nil
}

func (c *call) observePricing(start time.Time) {
	if c.s.metrics != nil {
		c.s.metrics.PricingDuration.Observe(time.Since(start).Seconds())
	}
}
