package validation

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"shoppingmart/internal/models"
)

var (
	cardDigits = regexp.MustCompile(`^\d{13,19}$`)
	cvvDigits  = regexp.MustCompile(`^\d{3,4}$`)
	expiryForm = regexp.MustCompile(`^(\d{2})/(\d{2})$`)
	separators = strings.NewReplacer(" ", "", "-", "")
)

// Checkout validates an order placement: cart lines, shipping address and,
// for card payments, the card format. Nothing here charges a card.
func Checkout(req models.CheckoutRequest, now time.Time) Result {
	c := collector{errs: CartLines(req.Items).Errors}

	if strings.TrimSpace(req.ShippingAddress) == "" {
		c.add("Shipping address is required")
	}
	if strings.TrimSpace(req.Method) == "" {
		c.add("Payment method is required")
	}
	if req.Method == models.PaymentCreditCard {
		c.errs = append(c.errs, Card(req.PaymentDetails, now).Errors...)
	}
	return c.result()
}

// Card checks card number, expiry and CVV formats.
func Card(p models.PaymentDetails, now time.Time) Result {
	var c collector
	if !cardDigits.MatchString(separators.Replace(p.CardNumber)) {
		c.add("Invalid card number format")
	}
	if !validExpiry(p.CardExpiry, now) {
		c.add("Invalid or expired card")
	}
	if !cvvDigits.MatchString(p.CardCVV) {
		c.add("Invalid CVV")
	}
	return c.result()
}

// validExpiry accepts MM/YY; a card is usable through the last day of its
// expiry month.
func validExpiry(expiry string, now time.Time) bool {
	m := expiryForm.FindStringSubmatch(expiry)
	if m == nil {
		return false
	}
	month, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 {
		return false
	}
	firstOfNext := time.Date(2000+year, time.Month(month)+1, 1, 0, 0, 0, 0, time.UTC)
	return now.Before(firstOfNext)
}
