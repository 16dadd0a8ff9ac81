package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxPrice is the largest price the products table accepts (NUMERIC(8,2)).
var MaxPrice = decimal.RequireFromString("999999.99")

// Product is a row of the Products table. Rows are never removed; a deleted
// product has IsActive=false.
type Product struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Description  *string         `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Stock        int             `json:"stock"`
	SKU          *string         `json:"sku"`
	ImageURL     *string         `json:"image_url"`
	CategoryID   *int64          `json:"category_id"`
	CategoryName *string         `json:"category_name,omitempty"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ProductInput is a validated insert payload.
type ProductInput struct {
	Name        string
	Description *string
	Price       decimal.Decimal
	Stock       int
	SKU         *string
	ImageURL    *string
	CategoryID  *int64
}

// ProductFilter narrows a product listing. Nil/empty fields do not filter.
type ProductFilter struct {
	CategoryID *int64
	Search     string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
}

// ProductField enumerates the columns an update may touch.
type ProductField int

const (
	FieldName ProductField = iota
	FieldDescription
	FieldPrice
	FieldStock
	FieldSKU
	FieldImageURL
	FieldCategoryID
	FieldIsActive

	productFieldCount
)

var productFieldMeta = [productFieldCount]struct {
	key    string
	column string
}{
	FieldName:        {"name", "name"},
	FieldDescription: {"description", "description"},
	FieldPrice:       {"price", "price"},
	FieldStock:       {"stock", "stock"},
	FieldSKU:         {"sku", "sku"},
	FieldImageURL:    {"image_url", "image_url"},
	FieldCategoryID:  {"category_id", "category_id"},
	FieldIsActive:    {"is_active", "is_active"},
}

// ProductFields returns every updatable field in column order.
func ProductFields() []ProductField {
	out := make([]ProductField, 0, productFieldCount)
	for f := ProductField(0); f < productFieldCount; f++ {
		out = append(out, f)
	}
	return out
}

// Key is the payload key for the field.
func (f ProductField) Key() string { return productFieldMeta[f].key }

// Column is the SQL column for the field.
func (f ProductField) Column() string { return productFieldMeta[f].column }

func (f ProductField) String() string { return f.Key() }

// Assignment is one column = value pair of an update.
type Assignment struct {
	Field ProductField
	Value interface{}
}

// ProductPatch collects typed updates. Only fields set through a setter end
// up in Assignments.
type ProductPatch struct {
	set    [productFieldCount]bool
	values [productFieldCount]interface{}
}

func (p *ProductPatch) assign(f ProductField, v interface{}) {
	p.set[f] = true
	p.values[f] = v
}

func (p *ProductPatch) SetName(name string) { p.assign(FieldName, name) }
func (p *ProductPatch) SetDescription(desc *string) { p.assign(FieldDescription, nullString(desc)) }
func (p *ProductPatch) SetPrice(price decimal.Decimal) { p.assign(FieldPrice, price) }
func (p *ProductPatch) SetStock(stock int) { p.assign(FieldStock, stock) }
func (p *ProductPatch) SetSKU(sku *string) { p.assign(FieldSKU, nullString(sku)) }
func (p *ProductPatch) SetImageURL(url *string) { p.assign(FieldImageURL, nullString(url)) }
func (p *ProductPatch) SetCategoryID(id *int64) { p.assign(FieldCategoryID, nullInt(id)) }
func (p *ProductPatch) SetIsActive(active bool) { p.assign(FieldIsActive, active) }

// Has reports whether f was set.
func (p *ProductPatch) Has(f ProductField) bool { return p.set[f] }

// Empty reports whether no field was set.
func (p *ProductPatch) Empty() bool {
	for _, s := range p.set {
		if s {
			return false
		}
	}
	return true
}

// Assignments lists the set fields in enumeration order.
func (p *ProductPatch) Assignments() []Assignment {
	var out []Assignment
	for _, f := range ProductFields() {
		if p.set[f] {
			out = append(out, Assignment{Field: f, Value: p.values[f]})
		}
	}
	return out
}

// nil pointers bind as SQL NULL
func nullString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func nullInt(i *int64) interface{} {
	if i == nil {
		return nil
	}
	return *i
}
