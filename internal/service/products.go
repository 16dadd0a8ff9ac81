package service

import (
	"context"
	"fmt"
	"net/url"

	"shoppingmart/internal/models"
	"shoppingmart/internal/storage"
	"shoppingmart/internal/validation"
)

// InsertProduct creates an active product. Requires the admin role.
func (s *Service) InsertProduct(ctx context.Context, raw map[string]interface{}, secret, token string) (int64, error) {
	c := s.begin(ctx, opInsertProduct)
	var (
		in models.ProductInput
		id int64
	)
	err := run(
		c.authorize(secret, token),
		func() error {
			var res validation.Result
			in, res = validation.Product(raw)
			return invalid("Validation failed", res)
		},
		func() error {
			return s.db.WithConn(ctx, func(q storage.Querier) (err error) {
				id, err = storage.InsertProduct(ctx, q, in)
				return err
			})
		},
	)
	if err = c.finish(err, fmt.Sprintf("Product created: ID %d", id)); err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateProduct applies the recognised fields of raw to an active product.
// Requires the admin role.
func (s *Service) UpdateProduct(ctx context.Context, rawID string, raw map[string]interface{}, secret, token string) error {
	c := s.begin(ctx, opUpdateProduct)
	var (
		id    int64
		patch models.ProductPatch
	)
	err := run(
		c.authorize(secret, token),
		func() (err error) {
			id, err = parseID(rawID)
			return err
		},
		func() error {
			if len(raw) == 0 {
				return fail(KindValidation, "No update data provided")
			}
			var res validation.Result
			patch, res = validation.ProductPatch(raw)
			if err := invalid("Validation failed", res); err != nil {
				return err
			}
			if patch.Empty() {
				return fail(KindValidation, "No valid fields to update")
			}
			return nil
		},
		func() error {
			return s.db.WithConn(ctx, func(q storage.Querier) error {
				return storage.UpdateProduct(ctx, q, id, &patch)
			})
		},
	)
	return c.finish(err, fmt.Sprintf("Product updated: ID %d", id))
}

// DeleteProduct soft-deletes an active product. Deleting it again reports
// not found. Requires the admin role.
func (s *Service) DeleteProduct(ctx context.Context, rawID, secret, token string) error {
	c := s.begin(ctx, opDeleteProduct)
	var id int64
	err := run(
		c.authorize(secret, token),
		func() (err error) {
			id, err = parseID(rawID)
			return err
		},
		func() error {
			return s.db.WithConn(ctx, func(q storage.Querier) error {
				return storage.SoftDeleteProduct(ctx, q, id)
			})
		},
	)
	return c.finish(err, fmt.Sprintf("Product deleted: ID %d", id))
}

// GetProduct returns one product, active or not.
func (s *Service) GetProduct(ctx context.Context, rawID, secret, token string) (*models.Product, error) {
	c := s.begin(ctx, opGetProduct)
	var (
		id int64
		p  *models.Product
	)
	err := run(
		c.authorize(secret, token),
		func() (err error) {
			id, err = parseID(rawID)
			return err
		},
		func() error {
			return s.db.WithConn(ctx, func(q storage.Querier) (err error) {
				p, err = storage.GetProduct(ctx, q, id)
				return err
			})
		},
	)
	if err = c.finish(err, fmt.Sprintf("Product fetched: ID %d", id)); err != nil {
		return nil, err
	}
	return p, nil
}

// ListProducts returns the active products matching the query filters.
func (s *Service) ListProducts(ctx context.Context, query url.Values, secret, token string) ([]models.Product, error) {
	c := s.begin(ctx, opListProducts)
	var (
		filter   models.ProductFilter
		products []models.Product
	)
	err := run(
		c.authorize(secret, token),
		func() error {
			var res validation.Result
			filter, res = validation.Filters(query)
			return invalid("Invalid filters", res)
		},
		func() error {
			return s.db.WithConn(ctx, func(q storage.Querier) (err error) {
				products, err = storage.ListProducts(ctx, q, filter)
				return err
			})
		},
	)
	if err = c.finish(err, fmt.Sprintf("Fetched %d products", len(products))); err != nil {
		return nil, err
	}
	return products, nil
}

func parseID(raw string) (int64, error) {
	id, res := validation.ProductID(raw)
	if !res.Valid {
		return 0, &Failure{Kind: KindValidation, Message: res.Errors[0], Errors: res.Errors}
	}
	return id, nil
}
