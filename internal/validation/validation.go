// Package validation checks caller payloads before anything touches the
// database. Validators collect every problem they find and never panic on
// malformed input.
package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"shoppingmart/internal/models"
)

const (
	maxNameLength  = 255
	maxSKULength   = 50
	MaxLineQty     = 10000
	minLineQty     = 1
	msgPrice       = "Price must be between 0 and 999999.99"
	msgPriceScale  = "Price must have at most 2 decimal places"
	msgStock       = "Stock must be a non-negative integer"
	msgCategoryID  = "Category ID must be a positive integer"
	msgProductID   = "Product ID must be a positive integer"
	msgNameMissing = "Product name is required and must be a string"
	msgNameLong    = "Product name is too long (max 255 characters)"
	msgSKULong     = "SKU is too long (max 50 characters)"
)

// Result is the outcome of a validator: Valid is true iff Errors is empty.
type Result struct {
	Valid  bool
	Errors []string
}

type collector struct {
	errs []string
}

func (c *collector) add(format string, args ...interface{}) {
	c.errs = append(c.errs, fmt.Sprintf(format, args...))
}

func (c *collector) result() Result {
	return Result{Valid: len(c.errs) == 0, Errors: c.errs}
}

// Product validates an insert payload. Numbers may arrive as JSON numbers or
// numeric strings.
func Product(raw map[string]interface{}) (models.ProductInput, Result) {
	var (
		in models.ProductInput
		c  collector
	)

	name, ok := raw["name"].(string)
	switch {
	case !ok || strings.TrimSpace(name) == "":
		c.add(msgNameMissing)
	case utf8.RuneCountInString(name) > maxNameLength:
		c.add(msgNameLong)
	default:
		in.Name = name
	}

	if msg := priceError(raw["price"]); msg != "" {
		c.add(msg)
	} else {
		in.Price, _ = toDecimal(raw["price"])
	}

	if stock, ok := toInt(raw["stock"]); ok && stock >= 0 && stock <= math.MaxInt32 {
		in.Stock = int(stock)
	} else {
		c.add(msgStock)
	}

	sku, ok := optionalString(raw, "sku")
	switch {
	case !ok:
		c.add("SKU must be a string")
	case sku != nil && utf8.RuneCountInString(*sku) > maxSKULength:
		c.add(msgSKULong)
	default:
		in.SKU = sku
	}

	if cat, present, ok := optionalID(raw, "category_id"); !ok {
		c.add(msgCategoryID)
	} else if present {
		in.CategoryID = &cat
	}

	if desc, ok := optionalString(raw, "description"); ok {
		in.Description = desc
	} else {
		c.add("Description must be a string")
	}
	if img, ok := optionalString(raw, "image_url"); ok {
		in.ImageURL = img
	} else {
		c.add("Image URL must be a string")
	}

	return in, c.result()
}

// ProductPatch decodes the recognised updatable fields of raw into a patch.
// Keys outside the enumerated field set are ignored.
func ProductPatch(raw map[string]interface{}) (models.ProductPatch, Result) {
	var (
		p models.ProductPatch
		c collector
	)
	for _, f := range models.ProductFields() {
		v, present := raw[f.Key()]
		if !present {
			continue
		}
		if msg := setField(&p, f, v); msg != "" {
			c.add(msg)
		}
	}
	return p, c.result()
}

// setField is the typed setter for each updatable field. It returns a
// message when v does not fit the field.
func setField(p *models.ProductPatch, f models.ProductField, v interface{}) string {
	switch f {
	case models.FieldName:
		name, ok := v.(string)
		if !ok || strings.TrimSpace(name) == "" {
			return msgNameMissing
		}
		if utf8.RuneCountInString(name) > maxNameLength {
			return msgNameLong
		}
		p.SetName(name)
	case models.FieldDescription:
		s, ok := nullableString(v)
		if !ok {
			return "Description must be a string"
		}
		p.SetDescription(s)
	case models.FieldPrice:
		if msg := priceError(v); msg != "" {
			return msg
		}
		price, _ := toDecimal(v)
		p.SetPrice(price)
	case models.FieldStock:
		stock, ok := toInt(v)
		if !ok || stock < 0 || stock > math.MaxInt32 {
			return msgStock
		}
		p.SetStock(int(stock))
	case models.FieldSKU:
		s, ok := nullableString(v)
		if !ok {
			return "SKU must be a string"
		}
		if s != nil && utf8.RuneCountInString(*s) > maxSKULength {
			return msgSKULong
		}
		p.SetSKU(s)
	case models.FieldImageURL:
		s, ok := nullableString(v)
		if !ok {
			return "Image URL must be a string"
		}
		p.SetImageURL(s)
	case models.FieldCategoryID:
		if v == nil {
			p.SetCategoryID(nil)
			return ""
		}
		id, ok := toInt(v)
		if !ok || id < 1 {
			return msgCategoryID
		}
		p.SetCategoryID(&id)
	case models.FieldIsActive:
		active, ok := v.(bool)
		if !ok {
			return "is_active must be a boolean"
		}
		p.SetIsActive(active)
	default:
		panic(fmt.Sprintf("validation: no setter for product field %d", f))
	}
	return ""
}

// ProductID parses a path or payload identifier.
func ProductID(raw string) (int64, Result) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id < 1 {
		return 0, Result{Valid: false, Errors: []string{msgProductID}}
	}
	return id, Result{Valid: true}
}

// CartLines checks every line and reports problems by 1-based position.
func CartLines(lines []models.CartLine) Result {
	var c collector
	if len(lines) == 0 {
		c.add("Cart is empty")
		return c.result()
	}
	for i, line := range lines {
		n := i + 1
		switch {
		case line.ProductID == 0:
			c.add("Item %d: Product ID is required", n)
		case line.ProductID < 0:
			c.add("Item %d: Product ID must be a positive integer", n)
		}
		switch {
		case line.Quantity == 0:
			c.add("Item %d: Quantity is required", n)
		case line.Quantity < minLineQty || line.Quantity > MaxLineQty:
			c.add("Item %d: Quantity must be between %d and %d", n, minLineQty, MaxLineQty)
		}
	}
	return c.result()
}

// priceError checks v against the NUMERIC(8,2) price column. Values with
// more than two significant decimals are rejected rather than rounded.
func priceError(v interface{}) string {
	p, ok := toDecimal(v)
	switch {
	case !ok || p.IsNegative() || p.GreaterThan(models.MaxPrice):
		return msgPrice
	case !p.Equal(p.Round(2)):
		return msgPriceScale
	}
	return ""
}

func toDecimal(v interface{}) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		return d, err == nil
	case decimal.Decimal:
		return n, true
	}
	return decimal.Zero, false
}

func toInt(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || math.Abs(n) > 1<<53 {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	}
	return 0, false
}

// optionalString reads an optional text field. Absent, null and "" all mean
// no value. ok is false only when the value is not a string.
func optionalString(raw map[string]interface{}, key string) (*string, bool) {
	return nullableString(raw[key])
}

func nullableString(v interface{}) (*string, bool) {
	if v == nil {
		return nil, true
	}
	s, ok := v.(string)
	if !ok {
		return nil, false
	}
	if s == "" {
		return nil, true
	}
	return &s, true
}

// optionalID reads an optional positive id. present reports a usable value.
func optionalID(raw map[string]interface{}, key string) (id int64, present bool, ok bool) {
	v, exists := raw[key]
	if !exists || v == nil || v == "" {
		return 0, false, true
	}
	id, ok = toInt(v)
	if !ok || id < 1 {
		return 0, false, false
	}
	return id, true, true
}
