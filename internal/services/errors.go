package services

import (
	"errors"

	"github.com/example/tienda/internal/models"
)

// ValidationError rejects bad input before any record is created. Handlers
// map it to 400.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func validationErr(msg string) error {
	return &ValidationError{Msg: msg}
}

// DeclineError reports that the processor declined a structurally valid
// charge. The failed payment row has already been persisted. Handlers map it
// to 402.
type DeclineError struct {
	Payment *models.Payment
}

func (e *DeclineError) Error() string {
	return "card declined"
}

// Lookup and ownership errors shared by payment and checkout operations.
// Ownership is checked after existence, so a non-owner sees 403, not 404.
var (
	ErrPaymentNotFound = errors.New("payment not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrNotOwner        = errors.New("not authorized")
	ErrCannotReturn    = errors.New("order cannot be returned")
)
