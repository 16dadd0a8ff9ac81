// Package service runs the gated product and order operations. Every call
// goes through the same pipeline: authorize, validate, execute. The first
// failing stage ends the call, and exactly one audit record is emitted
// however the call ends.
package service

import (
	"context"
	"time"

	"shoppingmart/internal/audit"
	"shoppingmart/internal/auth"
	"shoppingmart/internal/logger"
	"shoppingmart/internal/metrics"
	"shoppingmart/internal/models"
	"shoppingmart/internal/pricing"
	"shoppingmart/internal/storage"
)

// operation names a gated call and the messages it reports. notFound is
// the caller-facing message when the row the call targets does not exist.
type operation struct {
	name     string
	elevated bool
	failMsg  string
	notFound string
}

const (
	productNotFound = "Product not found"
	orderNotFound   = "Order not found"
)

var (
	opInsertProduct     = operation{"InsertProduct", true, "Failed to create product", productNotFound}
	opUpdateProduct     = operation{"UpdateProduct", true, "Failed to update product", productNotFound}
	opDeleteProduct     = operation{"DeleteProduct", true, "Failed to delete product", productNotFound}
	opGetProduct        = operation{"GetProduct", false, "Failed to fetch product", productNotFound}
	opListProducts      = operation{"ListProducts", false, "Failed to fetch products", productNotFound}
	opCalculateOrder    = operation{"CalculateOrderTotal", false, "Order calculation failed", productNotFound}
	opCheckout          = operation{"Checkout", false, "Checkout failed. Please try again.", productNotFound}
	opListOrders        = operation{"ListOrders", false, "Failed to fetch orders", orderNotFound}
	opGetOrder          = operation{"GetOrder", false, "Failed to fetch order", orderNotFound}
	opListAllOrders     = operation{"ListAllOrders", true, "Failed to fetch orders", orderNotFound}
	opUpdateOrderStatus = operation{"UpdateOrderStatus", true, "Failed to update order status", orderNotFound}
	opAddTracking       = operation{"AddTrackingNumber", true, "Failed to add tracking number", orderNotFound}
)

type Service struct {
	db      *storage.DB
	gate    *auth.Gate
	sink    audit.Sink
	engine  *pricing.Engine
	metrics *metrics.Registry
	now     func() time.Time
}

type Option func(*Service)

// WithMetrics records gate verdicts and operation outcomes on m.
func WithMetrics(m *metrics.Registry) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock replaces the clock used for card expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(db *storage.DB, gate *auth.Gate, sink audit.Sink, opts ...Option) *Service {
	if sink == nil {
		sink = audit.Discard{}
	}
	s := &Service{
		db:     db,
		gate:   gate,
		sink:   sink,
		engine: pricing.NewEngine(db),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// call is the state of one pass through the pipeline.
type call struct {
	s      *Service
	ctx    context.Context
	op     operation
	claims *models.IdentityClaims
	denied bool
}

func (s *Service) begin(ctx context.Context, op operation) *call {
	return &call{s: s, ctx: ctx, op: op}
}

// run executes stages in order and stops at the first error.
func run(stages ...func() error) error {
	for _, stage := range stages {
		if err := stage(); err != nil {
			return err
		}
	}
	return nil
}

func (c *call) authorize(secret, token string) func() error {
	return func() error {
		v, err := c.s.gate.Authorize(secret, token, c.op.elevated)
		if err != nil {
			return err
		}
		if !v.Authorized {
			c.denied = true
			c.observeGate("denied")
			kind := KindUnauthorized
			if v.Reason == auth.ReasonElevatedRequired {
				kind = KindForbidden
			}
			return fail(kind, v.Reason)
		}
		c.observeGate("authorized")
		c.claims = v.Claims
		return nil
	}
}

// finish emits the call's audit record and returns the caller-facing error.
func (c *call) finish(err error, success string) error {
	if err == nil {
		c.emit(c.actor(), success)
		c.observeOutcome("success")
		return nil
	}

	f := classify(err, c.op)
	switch {
	case c.denied:
		c.emit(audit.ActorUnauthorized, "Authentication failed: "+f.Message)
	case f.Kind == KindUnexpected:
		logger.Error("gated operation failed", map[string]interface{}{
			"operation": c.op.name,
			"error":     err.Error(),
		})
		c.emit(audit.ActorError, err.Error())
	default:
		c.emit(c.actor(), f.Message)
	}
	c.observeOutcome(f.Kind.String())
	return f
}

func (c *call) actor() string {
	if c.claims == nil {
		return audit.ActorError
	}
	return c.claims.ActorID()
}

func (c *call) emit(actor, outcome string) {
	c.s.sink.Emit(c.ctx, audit.New(actor, c.op.name, outcome))
}

func (c *call) observeGate(verdict string) {
	if c.s.metrics != nil {
		c.s.metrics.GateDecisionsTotal.WithLabelValues(c.op.name, verdict).Inc()
	}
}

func (c *call) observeOutcome(outcome string) {
	if c.s.metrics != nil {
		c.s.metrics.OperationsTotal.WithLabelValues(c.op.name, outcome).Inc()
	}
}
