package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned by single-record lookups when nothing matches.
	ErrNotFound = errors.New("not found")

	ErrCustomerNotFound  = errors.New("customer does not exist")
	ErrProductsNotFound  = errors.New("one or more products do not exist")
	ErrInsufficientStock = errors.New("one or more products do not have enough stock")

	// ErrInternalInconsistency means a product that an earlier step found is
	// gone. It points at a logic or data-race defect, not at bad input.
	ErrInternalInconsistency = errors.New("internal inconsistency")

	ErrNoItems           = errors.New("order must contain at least one product")
	ErrInvalidQuantity   = errors.New("product quantity must be greater than zero")
	ErrRequestInProgress = errors.New("request with this idempotency key is in progress")
)

type ProductsNotFoundError struct {
	IDs []string
}

func (e *ProductsNotFoundError) Error() string {
	if len(e.IDs) == 0 {
		return ErrProductsNotFound.Error()
	}
	return fmt.Sprintf("%s: %s", ErrProductsNotFound, strings.Join(e.IDs, ", "))
}

func (e *ProductsNotFoundError) Is(target error) bool {
	return target == ErrProductsNotFound
}

type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("%s: product %s requested %d, available %d",
		ErrInsufficientStock, e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// IsRejection reports whether err rejects the request itself. Rejections are
// final: retrying the same request gives the same answer.
func IsRejection(err error) bool {
	return RejectionReason(err) != ""
}

// RejectionReason is a short stable label for a rejection, or "" when err is
// not one.
func RejectionReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCustomerNotFound):
		return "customer_not_found"
	case errors.Is(err, ErrProductsNotFound):
		return "products_not_found"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrNoItems):
		return "no_items"
	case errors.Is(err, ErrInvalidQuantity):
		return "invalid_quantity"
	}
	return ""
}
