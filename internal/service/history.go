package service

import (
	"context"
	"fmt"
	"net/url"

	"shoppingmart/internal/models"
	"shoppingmart/internal/storage"
	"shoppingmart/internal/validation"
)

// ListOrders returns the caller's own orders, newest first.
func (s *Service) ListOrders(ctx context.Context, secret, token string) ([]models.Order, error) {
	c := s.begin(ctx, opListOrders)
	var orders []models.Order
	err := run(
		c.authorize(secret, token),
		func() error {
			filter := models.OrderFilter{UserID: &c.claims.SubjectID}
			return s.db.WithConn(ctx, func(q storage.Querier) (err error) {
				orders, err = storage.ListOrders(ctx, q, filter)
				return err
			})
		},
	)
	if err = c.finish(err, fmt.Sprintf("Fetched %d orders", len(orders))); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrder returns one of the caller's orders with its items. Orders placed
// by anyone else are reported as not found, whatever the caller's role.
func (s *Service) GetOrder(ctx context.Context, rawID, secret, token string) (*models.Order, error) {
	c := s.begin(ctx, opGetOrder)
	var (
		id    int64
		order *models.Order
	)
	err := run(
		c.authorize(secret, token),
		func() (err error) {
			id, err = parseOrderID(rawID)
			return err
		},
		func() error {
			return s.db.WithConn(ctx, func(q storage.Querier) (err error) {
				order, err = storage.GetOrder(ctx, q, id, &c.claims.SubjectID)
				return err
			})
		},
	)
	if err = c.finish(err, fmt.Sprintf("Order fetched: ID %d", id)); err != nil {
		return nil, err
	}
	return order, nil
}

// ListAllOrders returns every order matching the query filters. Requires the
// admin role.
func (s *Service) ListAllOrders(ctx context.Context, query url.Values, secret, token string) ([]models.Order, error) {
	c := s.begin(ctx, opListAllOrders)
	var (
		filter models.OrderFilter
		orders []models.Order
	)
	err := run(
		c.authorize(secret, token),
		func() error {
			var res validation.Result
			filter, res = validation.OrderFilters(query)
			return invalid("Invalid filters", res)
		},
		func() error {
			return s.db.WithConn(ctx, func(q storage.Querier) (err error) {
				orders, err = storage.ListOrders(ctx, q, filter)
				return err
			})
		},
	)
	if err = c.finish(err, fmt.Sprintf("Admin fetched %d orders", len(orders))); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateOrderStatus moves an order to one of the enumerated statuses.
// Requires the admin role.
func (s *Service) UpdateOrderStatus(ctx context.Context, rawID, rawStatus, secret, token string) (*models.Order, error) {
	c := s.begin(ctx, opUpdateOrderStatus)
	var (
		id     int64
		status models.OrderStatus
		order  *models.Order
	)
	err := run(
		c.authorize(secret, token),
		func() (err error) {
			id, err = parseOrderID(rawID)
			return err
		},
		func() error {
			var res validation.Result
			status, res = validation.OrderStatus(rawStatus)
			return invalid("Invalid order status", res)
		},
		func() error {
			return s.db.WithConn(ctx, func(q storage.Querier) (err error) {
				order, err = storage.UpdateOrderStatus(ctx, q, id, status)
				return err
			})
		},
	)
	if err = c.finish(err, fmt.Sprintf("Order status updated: ID %d to %s", id, status)); err != nil {
		return nil, err
	}
	return order, nil
}

// AddTrackingNumber records a carrier tracking number and marks the order
// shipped. Requires the admin role.
func (s *Service) AddTrackingNumber(ctx context.Context, rawID, rawTracking, secret, token string) (*models.Order, error) {
	c := s.begin(ctx, opAddTracking)
	var (
		id       int64
		tracking string
		order    *models.Order
	)
	err := run(
		c.authorize(secret, token),
		func() (err error) {
			id, err = parseOrderID(rawID)
			return err
		},
		func() error {
			var res validation.Result
			tracking, res = validation.TrackingNumber(rawTracking)
			return invalid("Invalid tracking number", res)
		},
		func() error {
			return s.db.WithConn(ctx, func(q storage.Querier) (err error) {
				order, err = storage.SetTrackingNumber(ctx, q, id, tracking)
				return err
			})
		},
	)
	if err = c.finish(err, fmt.Sprintf("Tracking number added to order: ID %d", id)); err != nil {
		return nil, err
	}
	return order, nil
}

func parseOrderID(raw string) (int64, error) {
	id, res := validation.OrderID(raw)
	if !res.Valid {
		return 0, &Failure{Kind: KindValidation, Message: res.Errors[0], Errors: res.Errors}
	}
	return id, nil
}
