package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"shoppingmart/internal/metrics"
)

const requestIDHeader = "X-Request-ID"

type ctxKey struct{}

// NewRouter mounts every route, each wrapped with Prometheus instrumentation.
func NewRouter(h *Handler, m *metrics.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)

	instrument := func(name string, fn http.HandlerFunc) http.HandlerFunc {
		return instrumentHandler(m, name, fn)
	}

	r.Get("/health", instrument("health", HealthHandler))
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", instrument("products", h.ListProducts))
		r.Post("/", instrument("products", h.CreateProduct))
		r.Get("/{id}", instrument("product", h.GetProduct))
		r.Put("/{id}", instrument("product", h.UpdateProduct))
		r.Delete("/{id}", instrument("product", h.DeleteProduct))
	})

	r.Route("/api/orders", func(r chi.Router) {
		r.Get("/", instrument("orders", h.ListOrders))
		r.Post("/quote", instrument("order-quote", h.QuoteOrder))
		r.Post("/checkout", instrument("order-checkout", h.Checkout))
		r.Get("/{id}", instrument("order", h.GetOrder))
	})

	r.Route("/api/admin/orders", func(r chi.Router) {
		r.Get("/", instrument("admin-orders", h.ListAllOrders))
		r.Put("/{id}/status", instrument("admin-order-status", h.UpdateOrderStatus))
		r.Put("/{id}/tracking", instrument("admin-order-tracking", h.AddTrackingNumber))
	})

	return r
}

// RequestID returns the id assigned to the request, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// requestID keeps a caller-supplied X-Request-ID or assigns a new one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

// instrumentHandler wraps an HTTP handler with Prometheus instrumentation
func instrumentHandler(m *metrics.Registry, handlerName string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		// Wrap ResponseWriter to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		handler(wrapped, r)

		duration := time.Since(startTime).Seconds()
		m.HTTPRequestDuration.WithLabelValues(handlerName, r.Method).Observe(duration)
		m.HTTPRequestsTotal.WithLabelValues(handlerName, r.Method, strconv.Itoa(wrapped.statusCode)).Inc()
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
