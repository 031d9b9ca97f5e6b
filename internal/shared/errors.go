package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a missing client, product, purchase or invoice.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed input or mismatched totals.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates a duplicate name or id.
	ErrConflict = errors.New("duplicate entry")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// InsufficientStockError reports an attempted consumption beyond the
// available quantity. It carries the quantity on hand so callers can
// surface it or degrade gracefully on the sale path.
type InsufficientStockError struct {
	ProductID int64
	Requested float64
	Available float64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: available %.2f, required %.2f", e.ProductID, e.Available, e.Requested)
}

// AsInsufficientStock unwraps err into an InsufficientStockError if present.
func AsInsufficientStock(err error) (*InsufficientStockError, bool) {
	var target *InsufficientStockError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
