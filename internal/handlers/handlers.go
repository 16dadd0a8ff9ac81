package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"shoppingmart/internal/logger"
	"shoppingmart/internal/models"
	"shoppingmart/internal/service"
)

// Request body limit
const maxBodyBytes = 64 * 1024

// Operations is the gated surface the HTTP layer calls into.
type Operations interface {
	InsertProduct(ctx context.Context, raw map[string]interface{}, secret, token string) (int64, error)
	UpdateProduct(ctx context.Context, id string, raw map[string]interface{}, secret, token string) error
	DeleteProduct(ctx context.Context, id, secret, token string) error
	GetProduct(ctx context.Context, id, secret, token string) (*models.Product, error)
	ListProducts(ctx context.Context, query url.Values, secret, token string) ([]models.Product, error)
	CalculateOrderTotal(ctx context.Context, lines []models.CartLine, secret, token string) (*models.OrderBreakdown, error)
	Checkout(ctx context.Context, req models.CheckoutRequest, secret, token string) (*models.OrderReceipt, error)
	ListOrders(ctx context.Context, secret, token string) ([]models.Order, error)
	GetOrder(ctx context.Context, id, secret, token string) (*models.Order, error)
	ListAllOrders(ctx context.Context, query url.Values, secret, token string) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, id, status, secret, token string) (*models.Order, error)
	AddTrackingNumber(ctx context.Context, id, tracking, secret, token string) (*models.Order, error)
}

// Handler is the trusted caller of the gated operations: it supplies the
// service secret from configuration and forwards the caller's bearer token.
type Handler struct {
	ops    Operations
	secret string
}

func New(ops Operations, serviceSecret string) *Handler {
	return &Handler{ops: ops, secret: serviceSecret}
}

type response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Errors  []string    `json:"errors,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ListProducts handles GET /api/products
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.ops.ListProducts(r.Context(), r.URL.Query(), h.secret, bearerToken(r))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: products})
}

// GetProduct handles GET /api/products/{id}
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.ops.GetProduct(r.Context(), chi.URLParam(r, "id"), h.secret, bearerToken(r))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: p})
}

// CreateProduct handles POST /api/products
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	raw, ok := decodeObject(w, r)
	if !ok {
		return
	}
	id, err := h.ops.InsertProduct(r.Context(), raw, h.secret, bearerToken(r))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, response{
		Success: true,
		Message: "Product created successfully",
		Data:    map[string]int64{"productId": id},
	})
}

// UpdateProduct handles PUT /api/products/{id}
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	raw, ok := decodeObject(w, r)
	if !ok {
		return
	}
	if err := h.ops.UpdateProduct(r.Context(), chi.URLParam(r, "id"), raw, h.secret, bearerToken(r)); err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Message: "Product updated successfully"})
}

// DeleteProduct handles DELETE /api/products/{id}
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.ops.DeleteProduct(r.Context(), chi.URLParam(r, "id"), h.secret, bearerToken(r)); err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Message: "Product deleted successfully"})
}

// QuoteOrder handles POST /api/orders/quote
func (h *Handler) QuoteOrder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Items []models.CartLine `json:"items"`
	}
	if !decode(w, r, &body) {
		return
	}
	breakdown, err := h.ops.CalculateOrderTotal(r.Context(), body.Items, h.secret, bearerToken(r))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: breakdown})
}

// Checkout handles POST /api/orders/checkout
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req models.CheckoutRequest
	if !decode(w, r, &req) {
		return
	}
	receipt, err := h.ops.Checkout(r.Context(), req, h.secret, bearerToken(r))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, response{
		Success: true,
		Message: "Order placed successfully",
		Data:    receipt,
	})
}

// ListOrders handles GET /api/orders
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.ops.ListOrders(r.Context(), h.secret, bearerToken(r))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: orders})
}

// GetOrder handles GET /api/orders/{id}
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.ops.GetOrder(r.Context(), chi.URLParam(r, "id"), h.secret, bearerToken(r))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: order})
}

// ListAllOrders handles GET /api/admin/orders
func (h *Handler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.ops.ListAllOrders(r.Context(), r.URL.Query(), h.secret, bearerToken(r))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: orders})
}

// UpdateOrderStatus handles PUT /api/admin/orders/{id}/status
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if !decode(w, r, &body) {
		return
	}
	order, err := h.ops.UpdateOrderStatus(r.Context(), chi.URLParam(r, "id"), body.Status, h.secret, bearerToken(r))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Message: "Order status updated", Data: order})
}

// AddTrackingNumber handles PUT /api/admin/orders/{id}/tracking
func (h *Handler) AddTrackingNumber(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TrackingNumber string `json:"tracking_number"`
	}
	if !decode(w, r, &body) {
		return
	}
	order, err := h.ops.AddTrackingNumber(r.Context(), chi.URLParam(r, "id"), body.TrackingNumber, h.secret, bearerToken(r))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Message: "Tracking number added", Data: order})
}

// HealthHandler returns service health status
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

func bearerToken(r *http.Request) string {
	token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return strings.TrimSpace(token)
}

// decodeObject reads a JSON object, keeping numbers as json.Number so the
// validators see the caller's exact digits.
func decodeObject(w http.ResponseWriter, r *http.Request) (map[string]interface{}, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		badBody(w, r, err)
		return nil, false
	}
	return raw, true
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		badBody(w, r, err)
		return false
	}
	return true
}

func badBody(w http.ResponseWriter, r *http.Request, err error) {
	logger.Warn("failed to decode request body", map[string]interface{}{
		"request_id": RequestID(r.Context()),
		"error":      err.Error(),
	})
	writeJSON(w, http.StatusBadRequest, response{Success: false, Message: "Invalid request body"})
}

func statusFor(kind service.Kind) int {
	switch kind {
	case service.KindUnauthorized:
		return http.StatusUnauthorized
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict, service.KindInsufficientStock:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	f, ok := service.AsFailure(err)
	if !ok {
		f = &service.Failure{Kind: service.KindUnexpected, Message: "Internal server error"}
	}

	status := statusFor(f.Kind)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", map[string]interface{}{
			"request_id": RequestID(r.Context()),
			"path":       r.URL.Path,
			"error":      err.Error(),
		})
	}
	writeJSON(w, status, response{Success: false, Message: f.Message, Errors: f.Errors})
}

func writeJSON(w http.ResponseWriter, status int, body response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil && !errors.Is(err, http.ErrHandlerTimeout) {
		logger.Error("failed to encode response", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
