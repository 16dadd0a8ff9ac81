package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// CartLine is one caller-supplied (product, quantity) pair. It is input to
// pricing only; prices always come from storage.
type CartLine struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// LineDetail is the priced form of a CartLine.
type LineDetail struct {
	ProductID int64
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	LineTotal decimal.Decimal
}

func (l LineDetail) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ProductID int64  `json:"productId"`
		Name      string `json:"name"`
		Price     string `json:"price"`
		Quantity  int    `json:"quantity"`
		ItemTotal string `json:"itemTotal"`
	}{l.ProductID, l.Name, l.UnitPrice.StringFixed(2), l.Quantity, l.LineTotal.StringFixed(2)})
}

// OrderBreakdown is computed per checkout and never persisted as-is.
// Total == Subtotal + Tax + Shipping, each already rounded to cents.
type OrderBreakdown struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	TaxRate  string
	Shipping decimal.Decimal
	Total    decimal.Decimal
	Items    []LineDetail
}

func (b OrderBreakdown) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Subtotal string       `json:"subtotal"`
		Tax      string       `json:"tax"`
		TaxRate  string       `json:"taxRate"`
		Shipping string       `json:"shipping"`
		Total    string       `json:"total"`
		Items    []LineDetail `json:"items"`
	}{
		Subtotal: b.Subtotal.StringFixed(2),
		Tax:      b.Tax.StringFixed(2),
		TaxRate:  b.TaxRate,
		Shipping: b.Shipping.StringFixed(2),
		Total:    b.Total.StringFixed(2),
		Items:    b.Items,
	})
}

// PaymentDetails are format-checked at checkout and then dropped. Card data
// is never stored or logged.
type PaymentDetails struct {
	Method     string `json:"payment_method"`
	CardNumber string `json:"card_number"`
	CardExpiry string `json:"card_expiry"`
	CardCVV    string `json:"card_cvv"`
	CardName   string `json:"card_name"`
}

const PaymentCreditCard = "credit_card"

// CheckoutRequest places an order for the given lines.
type CheckoutRequest struct {
	Items           []CartLine `json:"items"`
	ShippingAddress string     `json:"shipping_address"`
	PaymentDetails
}

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Valid reports whether s is one of the enumerated statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Order is a row of the Orders table. Items is filled only by single order
// lookups.
type Order struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	Total           decimal.Decimal `json:"order_total"`
	ShippingAddress string          `json:"shipping_address"`
	PaymentMethod   string          `json:"payment_method"`
	Status          OrderStatus     `json:"status"`
	TrackingNumber  *string         `json:"tracking_number"`
	CreatedAt       time.Time       `json:"created_at"`
	Items           []OrderLine     `json:"items,omitempty"`
}

// OrderLine is a stored order item with the product name, if the product
// row still exists.
type OrderLine struct {
	ProductID       int64           `json:"product_id"`
	ProductName     *string         `json:"product_name"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
}

// OrderFilter narrows an order listing. Nil fields do not filter.
type OrderFilter struct {
	Status *OrderStatus
	UserID *int64
	From   *time.Time
	To     *time.Time
}

// OrderItem is a row of the OrderItems table. PriceAtPurchase is the
// authoritative unit price the breakdown used.
type OrderItem struct {
	ProductID       int64
	Quantity        int
	PriceAtPurchase decimal.Decimal
}

// OrderReceipt is returned by a successful checkout.
type OrderReceipt struct {
	Order     Order          `json:"order"`
	Breakdown OrderBreakdown `json:"orderDetails"`
}
