package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"shoppingmart/internal/models"
)

const productColumns = `
		p.id, p.name, p.description, p.price, p.stock, p.sku, p.image_url,
		p.category_id, c.name, p.is_active, p.created_at, p.updated_at`

// InsertProduct stores a new active product and returns its id.
func InsertProduct(ctx context.Context, q Querier, in models.ProductInput) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `
		INSERT INTO Products (name, description, price, stock, sku, image_url, category_id, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, true)
		RETURNING id`,
		in.Name, in.Description, in.Price, in.Stock, in.SKU, in.ImageURL, in.CategoryID,
	).Scan(&id)
	if err != nil {
		return 0, classify(err, "insert product")
	}
	return id, nil
}

// UpdateProduct applies patch to an active product. Columns come only from
// the patch's enumerated fields; every value is a bound parameter.
func UpdateProduct(ctx context.Context, q Querier, id int64, patch *models.ProductPatch) error {
	assignments := patch.Assignments()
	if len(assignments) == 0 {
		return errors.New("failed to update product: empty patch")
	}

	sets := make([]string, 0, len(assignments)+1)
	args := make([]interface{}, 0, len(assignments)+1)
	for i, a := range assignments {
		sets = append(sets, fmt.Sprintf("%s = $%d", a.Field.Column(), i+1))
		args = append(args, a.Value)
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	query := fmt.Sprintf(`
		UPDATE Products
		SET %s
		WHERE id = $%d AND is_active = true`, strings.Join(sets, ", "), len(args))

	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return classify(err, "update product")
	}
	return expectRow(res, "update product")
}

// SoftDeleteProduct marks an active product inactive. The row stays for the
// order items that reference it.
func SoftDeleteProduct(ctx context.Context, q Querier, id int64) error {
	res, err := q.ExecContext(ctx, `
		UPDATE Products
		SET is_active = false, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND is_active = true`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return expectRow(res, "delete product")
}

// GetProduct returns a product by id whether or not it is active.
func GetProduct(ctx context.Context, q Querier, id int64) (*models.Product, error) {
	row := q.QueryRowContext(ctx, `
		SELECT`+productColumns+`
		FROM Products p
		LEFT JOIN Categories c ON p.category_id = c.id
		WHERE p.id = $1`, id)

	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product: %w", err)
	}
	return p, nil
}

// ListProducts returns active products matching every set filter, newest
// first.
func ListProducts(ctx context.Context, q Querier, f models.ProductFilter) ([]models.Product, error) {
	conditions := []string{"p.is_active = true"}
	var args []interface{}
	argCount := 0

	if f.CategoryID != nil {
		argCount++
		conditions = append(conditions, fmt.Sprintf("p.category_id = $%d", argCount))
		args = append(args, *f.CategoryID)
	}
	if f.Search != "" {
		argCount++
		conditions = append(conditions, fmt.Sprintf("p.name ILIKE $%d", argCount))
		args = append(args, "%"+escapeLike(f.Search)+"%")
	}
	if f.MinPrice != nil {
		argCount++
		conditions = append(conditions, fmt.Sprintf("p.price >= $%d", argCount))
		args = append(args, *f.MinPrice)
	}
	if f.MaxPrice != nil {
		argCount++
		conditions = append(conditions, fmt.Sprintf("p.price <= $%d", argCount))
		args = append(args, *f.MaxPrice)
	}

	query := `
		SELECT` + productColumns + `
		FROM Products p
		LEFT JOIN Categories c ON p.category_id = c.id
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY p.created_at DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read products: %w", err)
	}
	return products, nil
}

// ActiveProduct loads the fields pricing needs from an active product.
func ActiveProduct(ctx context.Context, q Querier, id int64) (*models.Product, error) {
	var p models.Product
	err := q.QueryRowContext(ctx,
		`SELECT id, name, price, stock FROM Products WHERE id = $1 AND is_active = true`, id,
	).Scan(&p.ID, &p.Name, &p.Price, &p.Stock)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product %d: %w", id, err)
	}
	p.IsActive = true
	return &p, nil
}

// ProductReader serves ActiveProduct lookups from one Querier.
type ProductReader struct {
	q Querier
}

func NewProductReader(q Querier) *ProductReader {
	return &ProductReader{q: q}
}

func (r *ProductReader) ActiveProduct(ctx context.Context, id int64) (*models.Product, error) {
	return ActiveProduct(ctx, r.q, id)
}

// ReduceStock decrements stock only when enough is left, so concurrent
// checkouts can never drive it negative.
func ReduceStock(ctx context.Context, q Querier, id int64, qty int) error {
	res, err := q.ExecContext(ctx, `
		UPDATE Products
		SET stock = stock - $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND is_active = true AND stock >= $1`, qty, id)
	if err != nil {
		return fmt.Errorf("failed to reduce stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to reduce stock: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("product %d: %w", id, ErrInsufficientStock)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(s scanner) (*models.Product, error) {
	var (
		p            models.Product
		description  sql.NullString
		sku          sql.NullString
		imageURL     sql.NullString
		categoryID   sql.NullInt64
		categoryName sql.NullString
	)
	if err := s.Scan(&p.ID, &p.Name, &description, &p.Price, &p.Stock, &sku, &imageURL,
		&categoryID, &categoryName, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Description = stringPtr(description)
	p.SKU = stringPtr(sku)
	p.ImageURL = stringPtr(imageURL)
	p.CategoryName = stringPtr(categoryName)
	if categoryID.Valid {
		id := categoryID.Int64
		p.CategoryID = &id
	}
	return &p, nil
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func expectRow(res sql.Result, action string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s: %w", action, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
