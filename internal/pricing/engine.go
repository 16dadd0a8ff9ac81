// Package pricing turns cart lines into an order breakdown using the prices
// and stock currently stored for each product. Client-supplied prices are
// never an input.
package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"shoppingmart/internal/models"
	"shoppingmart/internal/storage"
)

var (
	taxRate               = decimal.RequireFromString("0.10")
	freeShippingThreshold = decimal.NewFromInt(100)
	flatShipping          = decimal.NewFromInt(10)
)

// TaxRateLabel is reported alongside the computed tax.
const TaxRateLabel = "10%"

// ProductReader loads an active product. It returns storage.ErrNotFound when
// the product is missing or inactive.
type ProductReader interface {
	ActiveProduct(ctx context.Context, id int64) (*models.Product, error)
}

// ProductNotFoundError names a cart line whose product is missing or inactive.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("Product with ID %d not found or inactive", e.ProductID)
}

// InsufficientStockError names a line that asks for more than is stocked.
type InsufficientStockError struct {
	ProductID int64
	Name      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for %s. Available: %d, Requested: %d", e.Name, e.Available, e.Requested)
}

// Calculate prices lines in input order. The first missing product or
// short-stocked line fails the whole calculation; no partial breakdown is
// returned.
//
// Each line total is rounded to cents when recorded, while the subtotal
// accumulates unrounded line totals. Subtotal, tax and shipping are then
// rounded independently and the total is their sum.
func Calculate(ctx context.Context, r ProductReader, lines []models.CartLine) (*models.OrderBreakdown, error) {
	items := make([]models.LineDetail, 0, len(lines))
	sum := decimal.Zero

	for _, line := range lines {
		p, err := r.ActiveProduct(ctx, line.ProductID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, &ProductNotFoundError{ProductID: line.ProductID}
		}
		if err != nil {
			return nil, err
		}

		if p.Stock < line.Quantity {
			return nil, &InsufficientStockError{
				ProductID: p.ID,
				Name:      p.Name,
				Available: p.Stock,
				Requested: line.Quantity,
			}
		}

		lineTotal := p.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		sum = sum.Add(lineTotal)

		items = append(items, models.LineDetail{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  line.Quantity,
			LineTotal: lineTotal.Round(2),
		})
	}

	subtotal := sum.Round(2)
	tax := subtotal.Mul(taxRate).Round(2)
	shipping := flatShipping
	if subtotal.GreaterThanOrEqual(freeShippingThreshold) {
		shipping = decimal.Zero
	}
	shipping = shipping.Round(2)

	return &models.OrderBreakdown{
		Subtotal: subtotal,
		Tax:      tax,
		TaxRate:  TaxRateLabel,
		Shipping: shipping,
		Total:    subtotal.Add(tax).Add(shipping),
		Items:    items,
	}, nil
}

// Engine runs Calculate against the database on a single pooled connection
// held for the duration of the call.
type Engine struct {
	db *storage.DB
}

func NewEngine(db *storage.DB) *Engine {
	return &Engine{db: db}
}

func (e *Engine) Calculate(ctx context.Context, lines []models.CartLine) (*models.OrderBreakdown, error) {
	var breakdown *models.OrderBreakdown
	err := e.db.WithConn(ctx, func(q storage.Querier) error {
		var err error
		breakdown, err = Calculate(ctx, storage.NewProductReader(q), lines)
		return err
	})
	if err != nil {
		return nil, err
	}
	return breakdown, nil
}
