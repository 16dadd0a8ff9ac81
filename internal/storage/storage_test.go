package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shoppingmart/internal/models"
)

func newMock(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return New(sqlDB), mock
}

var productCols = []string{
	"id", "name", "description", "price", "stock", "sku", "image_url",
	"category_id", "category_name", "is_active", "created_at", "updated_at",
}

func strp(s string) *string { return &s }

func TestWithTxCommitsOnSuccess(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO OrderItems").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := db.WithTx(context.Background(), func(q Querier) error {
		return AddOrderItems(context.Background(), q, 9, []models.OrderItem{
			{ProductID: 1, Quantity: 2, PriceAtPurchase: decimal.RequireFromString("25.00")},
		})
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxRollsBackAndKeepsOriginalError(t *testing.T) {
	db, mock := newMock(t)
	boom := errors.New("disk full")
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO OrderItems").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO OrderItems").WillReturnError(boom)
	mock.ExpectRollback()

	err := db.WithTx(context.Background(), func(q Querier) error {
		return AddOrderItems(context.Background(), q, 9, []models.OrderItem{
			{ProductID: 1, Quantity: 1, PriceAtPurchase: decimal.NewFromInt(5)},
			{ProductID: 2, Quantity: 1, PriceAtPurchase: decimal.NewFromInt(6)},
		})
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.PanicsWithValue(t, "kaboom", func() {
		_ = db.WithTx(context.Background(), func(Querier) error { panic("kaboom") })
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithConnReleasesOnError(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT id, name, price, stock FROM Products").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "stock"}))

	err := db.WithConn(context.Background(), func(q Querier) error {
		_, err := ActiveProduct(context.Background(), q, 3)
		return err
	})

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertProductBindsEveryValue(t *testing.T) {
	db, mock := newMock(t)
	in := models.ProductInput{
		Name:       "Lamp",
		Price:      decimal.RequireFromString("19.99"),
		Stock:      4,
		SKU:        strp("HOME-LAMP-1"),
		CategoryID: nil,
	}
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO Products (name, description, price, stock, sku, image_url, category_id, is_active)")).
		WithArgs("Lamp", nil, in.Price, 4, "HOME-LAMP-1", nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	id, err := InsertProduct(context.Background(), db.sql, in)

	require.NoError(t, err)
	assert.Equal(t, int64(11), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertProductDuplicateSKU(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("INSERT INTO Products").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "products_sku_key"})

	_, err := InsertProduct(context.Background(), db.sql, models.ProductInput{Name: "x"})

	assert.ErrorIs(t, err, ErrDuplicateSKU)
}

func TestInsertProductBadCategory(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("INSERT INTO Products").
		WillReturnError(&pq.Error{Code: "23503", Constraint: "products_category_id_fkey"})

	_, err := InsertProduct(context.Background(), db.sql, models.ProductInput{Name: "x"})

	assert.ErrorIs(t, err, ErrInvalidReference)
}

func TestUpdateProductBuildsSetFromPatch(t *testing.T) {
	db, mock := newMock(t)
	var patch models.ProductPatch
	patch.SetStock(3)
	patch.SetName("Renamed")

	mock.ExpectExec(regexp.QuoteMeta("SET name = $1, stock = $2, updated_at = CURRENT_TIMESTAMP\n\t\tWHERE id = $3 AND is_active = true")).
		WithArgs("Renamed", 3, int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, UpdateProduct(context.Background(), db.sql, 8, &patch))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProductNotFound(t *testing.T) {
	db, mock := newMock(t)
	var patch models.ProductPatch
	patch.SetIsActive(false)
	mock.ExpectExec("UPDATE Products").WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, UpdateProduct(context.Background(), db.sql, 8, &patch), ErrNotFound)
}

func TestUpdateProductRejectsEmptyPatch(t *testing.T) {
	db, _ := newMock(t)
	assert.Error(t, UpdateProduct(context.Background(), db.sql, 8, &models.ProductPatch{}))
}

func TestSoftDeleteTwice(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("SET is_active = false")).WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET is_active = false")).WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, SoftDeleteProduct(context.Background(), db.sql, 5))
	assert.ErrorIs(t, SoftDeleteProduct(context.Background(), db.sql, 5), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProductScansNullables(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()
	mock.ExpectQuery("FROM Products p").WithArgs(int64(2)).WillReturnRows(
		sqlmock.NewRows(productCols).AddRow(2, "Mug", nil, "7.50", 30, nil, nil, nil, nil, false, now, now))

	p, err := GetProduct(context.Background(), db.sql, 2)

	require.NoError(t, err)
	assert.Equal(t, "Mug", p.Name)
	assert.Nil(t, p.Description)
	assert.Nil(t, p.CategoryID)
	assert.False(t, p.IsActive)
	assert.Equal(t, "7.5", p.Price.String())
}

func TestGetProductNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("FROM Products p").WillReturnRows(sqlmock.NewRows(productCols))

	_, err := GetProduct(context.Background(), db.sql, 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListProductsComposesFilters(t *testing.T) {
	db, mock := newMock(t)
	cat := int64(4)
	min := decimal.NewFromInt(10)
	max := decimal.NewFromInt(50)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE p.is_active = true AND p.category_id = $1 AND p.name ILIKE $2 AND p.price >= $3 AND p.price <= $4")).
		WithArgs(cat, `%50\% off%`, min, max).
		WillReturnRows(sqlmock.NewRows(productCols).
			AddRow(1, "A", "d", "20.00", 1, "SKU-A", "/a.png", 4, "Home", true, now, now))

	got, err := ListProducts(context.Background(), db.sql, models.ProductFilter{
		CategoryID: &cat, Search: "50% off", MinPrice: &min, MaxPrice: &max,
	})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Home", *got[0].CategoryName)
	assert.Equal(t, int64(4), *got[0].CategoryID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListProductsNoFilters(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE p.is_active = true\n\t\tORDER BY p.created_at DESC")).
		WithArgs().
		WillReturnRows(sqlmock.NewRows(productCols))

	got, err := ListProducts(context.Background(), db.sql, models.ProductFilter{})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestReduceStockConditional(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("stock >= $1")).WithArgs(2, int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("stock >= $1")).WithArgs(20, int64(1)).WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, ReduceStock(context.Background(), db.sql, 1, 2))
	assert.ErrorIs(t, ReduceStock(context.Background(), db.sql, 1, 20), ErrInsufficientStock)
}

func TestCreateOrder(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()
	total := decimal.RequireFromString("65.00")
	mock.ExpectQuery("INSERT INTO Orders").
		WithArgs(int64(42), total, "1 Main St", "credit_card", "pending").
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "created_at"}).AddRow(100, "pending", now))

	o, err := CreateOrder(context.Background(), db.sql, 42, total, "1 Main St", "credit_card")

	require.NoError(t, err)
	assert.Equal(t, int64(100), o.ID)
	assert.Equal(t, models.OrderStatusPending, o.Status)
	assert.True(t, total.Equal(o.Total))
}

func TestClassifyOnlyMapsProductConstraints(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("INSERT INTO Orders").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "orders_pkey"})
	mock.ExpectExec("INSERT INTO OrderItems").
		WillReturnError(&pq.Error{Code: "23503", Constraint: "orderitems_product_id_fkey"})

	_, err := CreateOrder(context.Background(), db.sql, 42, decimal.NewFromInt(1), "1 Main St", "cash")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateSKU)

	err = AddOrderItems(context.Background(), db.sql, 1, []models.OrderItem{{ProductID: 9, Quantity: 1}})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidReference)

	var pqErr *pq.Error
	assert.ErrorAs(t, err, &pqErr)
}

var orderCols = []string{
	"id", "user_id", "order_total", "shipping_address", "payment_method",
	"status", "tracking_number", "created_at",
}

func TestListOrdersComposesFilters(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()
	status := models.OrderStatusShipped
	user := int64(42)
	from := now.Add(-24 * time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE o.status = $1 AND o.user_id = $2 AND o.created_at >= $3\n\t\tORDER BY o.created_at DESC")).
		WithArgs("shipped", int64(42), from).
		WillReturnRows(sqlmock.NewRows(orderCols).AddRow(5, 42, "65.00", "1 Main St", "credit_card", "shipped", "1Z999", now))

	orders, err := ListOrders(context.Background(), db.sql, models.OrderFilter{Status: &status, UserID: &user, From: &from})

	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, models.OrderStatusShipped, orders[0].Status)
	require.NotNil(t, orders[0].TrackingNumber)
	assert.Equal(t, "1Z999", *orders[0].TrackingNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListOrdersNoFilters(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM Orders o\n\t\tORDER BY o.created_at DESC")).
		WillReturnRows(sqlmock.NewRows(orderCols))

	orders, err := ListOrders(context.Background(), db.sql, models.OrderFilter{})

	require.NoError(t, err)
	assert.NotNil(t, orders)
	assert.Empty(t, orders)
}

func TestGetOrderScopedToUserWithItems(t *testing.T) {
	db, mock := newMock(t)
	user := int64(42)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE o.id = $1 AND o.user_id = $2")).WithArgs(int64(5), int64(42)).
		WillReturnRows(sqlmock.NewRows(orderCols).AddRow(5, 42, "65.00", "1 Main St", "cash", "pending", nil, time.Now()))
	mock.ExpectQuery("FROM OrderItems oi").WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "name", "quantity", "price_at_purchase"}).
			AddRow(1, "Mug", 2, "25.00").
			AddRow(3, nil, 1, "5.00"))

	o, err := GetOrder(context.Background(), db.sql, 5, &user)

	require.NoError(t, err)
	assert.Nil(t, o.TrackingNumber)
	require.Len(t, o.Items, 2)
	assert.Equal(t, "Mug", *o.Items[0].ProductName)
	assert.Equal(t, "25.00", o.Items[0].PriceAtPurchase.StringFixed(2))
	assert.Nil(t, o.Items[1].ProductName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrderOfAnotherUserIsNotFound(t *testing.T) {
	db, mock := newMock(t)
	user := int64(7)
	mock.ExpectQuery("FROM Orders o").WithArgs(int64(5), int64(7)).WillReturnRows(sqlmock.NewRows(orderCols))

	_, err := GetOrder(context.Background(), db.sql, 5, &user)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateOrderStatus(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SET status = $1, updated_at = CURRENT_TIMESTAMP")).WithArgs("delivered", int64(5)).
		WillReturnRows(sqlmock.NewRows(orderCols).AddRow(5, 42, "65.00", "1 Main St", "cash", "delivered", nil, time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SET status = $1")).WithArgs("delivered", int64(6)).
		WillReturnRows(sqlmock.NewRows(orderCols))

	o, err := UpdateOrderStatus(context.Background(), db.sql, 5, models.OrderStatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDelivered, o.Status)

	_, err = UpdateOrderStatus(context.Background(), db.sql, 6, models.OrderStatusDelivered)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetTrackingNumberMarksShipped(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SET tracking_number = $1, status = $2")).WithArgs("1Z999", "shipped", int64(5)).
		WillReturnRows(sqlmock.NewRows(orderCols).AddRow(5, 42, "65.00", "1 Main St", "cash", "shipped", "1Z999", time.Now()))

	o, err := SetTrackingNumber(context.Background(), db.sql, 5, "1Z999")

	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, o.Status)
	assert.Equal(t, "1Z999", *o.TrackingNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}
