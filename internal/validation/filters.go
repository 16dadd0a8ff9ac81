package validation

import (
	"net/url"
	"strings"

	"shoppingmart/internal/models"
)

// Filters parses listing query parameters. Each bound is checked on its own;
// an absent or blank parameter is always valid.
func Filters(q url.Values) (models.ProductFilter, Result) {
	var (
		f models.ProductFilter
		c collector
	)

	if raw := strings.TrimSpace(q.Get("category_id")); raw != "" {
		if id, ok := toInt(raw); ok && id > 0 {
			f.CategoryID = &id
		} else {
			c.add(msgCategoryID)
		}
	}

	f.Search = strings.TrimSpace(q.Get("search"))

	if raw := strings.TrimSpace(q.Get("minPrice")); raw != "" {
		if d, ok := toDecimal(raw); ok && !d.IsNegative() {
			f.MinPrice = &d
		} else {
			c.add("Minimum price must be non-negative")
		}
	}
	if raw := strings.TrimSpace(q.Get("maxPrice")); raw != "" {
		if d, ok := toDecimal(raw); ok && !d.IsNegative() {
			f.MaxPrice = &d
		} else {
			c.add("Maximum price must be non-negative")
		}
	}

	return f, c.result()
}
