package service

import (
	"errors"
	"fmt"

	"shoppingmart/internal/config"
	"shoppingmart/internal/pricing"
	"shoppingmart/internal/storage"
	"shoppingmart/internal/validation"
)

// Kind classifies a failed operation so callers can pick a response status.
type Kind int

const (
	KindUnauthorized Kind = iota + 1
	KindForbidden
	KindValidation
	KindNotFound
	KindConflict
	KindInsufficientStock
	KindUnexpected
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInsufficientStock:
		return "insufficient_stock"
	case KindUnexpected:
		return "unexpected"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Failure is the error every operation returns. Message is safe to show to
// the caller; the underlying cause of an unexpected failure is only audited
// and logged.
type Failure struct {
	Kind    Kind
	Message string
	Errors  []string
	cause   error
}

func (f *Failure) Error() string {
	if f.cause != nil {
		return f.Message + ": " + f.cause.Error()
	}
	return f.Message
}

func (f *Failure) Unwrap() error { return f.cause }

// AsFailure extracts the *Failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	ok := errors.As(err, &f)
	return f, ok
}

func invalid(message string, res validation.Result) error {
	if res.Valid {
		return nil
	}
	return &Failure{Kind: KindValidation, Message: message, Errors: res.Errors}
}

func fail(kind Kind, message string) error {
	return &Failure{Kind: kind, Message: message}
}

// classify turns whatever a stage returned into a *Failure. Unknown errors
// become KindUnexpected with the operation's generic message.
func classify(err error, op operation) *Failure {
	if f, ok := AsFailure(err); ok {
		return f
	}

	var (
		cfgErr   *config.ConfigurationError
		notFound *pricing.ProductNotFoundError
		short    *pricing.InsufficientStockError
	)
	switch {
	case errors.As(err, &cfgErr):
		return &Failure{Kind: KindUnexpected, Message: cfgErr.Error(), cause: err}
	case errors.As(err, &notFound):
		return &Failure{Kind: KindNotFound, Message: notFound.Error(), cause: err}
	case errors.As(err, &short):
		return &Failure{Kind: KindInsufficientStock, Message: short.Error(), cause: err}
	case errors.Is(err, storage.ErrNotFound):
		return &Failure{Kind: KindNotFound, Message: op.notFound, cause: err}
	case errors.Is(err, storage.ErrDuplicateSKU):
		return &Failure{Kind: KindConflict, Message: "Product with this SKU already exists", cause: err}
	case errors.Is(err, storage.ErrInvalidReference):
		return &Failure{Kind: KindValidation, Message: "Invalid category reference", cause: err}
	case errors.Is(err, storage.ErrInsufficientStock):
		return &Failure{Kind: KindInsufficientStock, Message: "Insufficient stock to complete the order", cause: err}
	}
	return &Failure{Kind: KindUnexpected, Message: op.failMsg, cause: err}
}
