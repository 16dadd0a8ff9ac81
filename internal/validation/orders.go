package validation

import (
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"shoppingmart/internal/models"
)

const (
	maxTrackingLength = 100
	msgOrderID        = "Order ID must be a positive integer"
	msgOrderStatus    = "Invalid order status"
	msgTrackingEmpty  = "Tracking number is required"
	msgTrackingLong   = "Tracking number is too long (max 100 characters)"
	msgUserID         = "User ID must be a positive integer"
)

// OrderID parses a path identifier.
func OrderID(raw string) (int64, Result) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id < 1 {
		return 0, Result{Valid: false, Errors: []string{msgOrderID}}
	}
	return id, Result{Valid: true}
}

// OrderStatus accepts only the enumerated statuses, matched exactly.
func OrderStatus(raw string) (models.OrderStatus, Result) {
	s := models.OrderStatus(raw)
	if !s.Valid() {
		return "", Result{Valid: false, Errors: []string{msgOrderStatus}}
	}
	return s, Result{Valid: true}
}

// TrackingNumber trims raw and requires something to be left.
func TrackingNumber(raw string) (string, Result) {
	t := strings.TrimSpace(raw)
	switch {
	case t == "":
		return "", Result{Valid: false, Errors: []string{msgTrackingEmpty}}
	case utf8.RuneCountInString(t) > maxTrackingLength:
		return "", Result{Valid: false, Errors: []string{msgTrackingLong}}
	}
	return t, Result{Valid: true}
}

// OrderFilters parses the admin order listing parameters. Dates are RFC 3339
// timestamps or plain YYYY-MM-DD days; a plain end_date covers the whole day.
// Blank parameters are absent.
func OrderFilters(q url.Values) (models.OrderFilter, Result) {
	var (
		f models.OrderFilter
		c collector
	)

	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		if s, res := OrderStatus(raw); res.Valid {
			f.Status = &s
		} else {
			c.add(msgOrderStatus)
		}
	}

	if raw := strings.TrimSpace(q.Get("user_id")); raw != "" {
		if id, ok := toInt(raw); ok && id > 0 {
			f.UserID = &id
		} else {
			c.add(msgUserID)
		}
	}

	if raw := strings.TrimSpace(q.Get("start_date")); raw != "" {
		if t, _, ok := parseDate(raw); ok {
			f.From = &t
		} else {
			c.add("Start date must be YYYY-MM-DD or RFC 3339")
		}
	}
	if raw := strings.TrimSpace(q.Get("end_date")); raw != "" {
		if t, day, ok := parseDate(raw); ok {
			if day {
				t = t.Add(24*time.Hour - time.Nanosecond)
			}
			f.To = &t
		} else {
			c.add("End date must be YYYY-MM-DD or RFC 3339")
		}
	}

	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		c.add("End date must not be before start date")
	}

	return f, c.result()
}

// parseDate reports day=true when raw carried no time of day.
func parseDate(raw string) (t time.Time, day bool, ok bool) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, false, true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, true, true
	}
	return time.Time{}, false, false
}
