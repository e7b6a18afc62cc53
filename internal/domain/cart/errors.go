package cart

import (
	"errors"

	"github.com/example/ec-cart/internal/apperr"
	"github.com/example/ec-cart/internal/domain/product"
)

var (
	ErrCartNotFound       = errors.New("cart not found")
	ErrItemNotInCart      = errors.New("product not in cart")
	ErrProductNotFound    = product.ErrProductNotFound
	ErrDuplicateItem      = errors.New("product already exists in the cart")
	ErrNegativeQuantity   = errors.New("resulting quantity cannot be negative")
	ErrProductUnavailable = errors.New("product is not available")
	ErrInsufficientStock  = errors.New("requested quantity exceeds available stock")
	ErrNoCartsExist       = errors.New("no cart exists")
	ErrUnauthenticated    = errors.New("no authenticated owner")
	ErrInvalidQuantity    = errors.New("quantity must be positive")
)

// Store-level errors. Adapters return these; the engine translates them.
var (
	ErrRecordNotFound  = errors.New("record not found")
	ErrDuplicateRecord = errors.New("duplicate record")
	ErrTxConflict      = errors.New("concurrent transaction conflict")
)

func unauthenticated() error {
	return apperr.New(apperr.KindUnauthenticated, "Owner", "", nil, ErrUnauthenticated)
}

func cartNotFound(field, value string) error {
	return apperr.NotFound("Cart", field, value, ErrCartNotFound)
}

func itemNotInCart(productID string) error {
	return apperr.NotFound("CartItem", "productId", productID, ErrItemNotInCart)
}

func productNotFound(productID string) error {
	return apperr.NotFound("Product", "productId", productID, ErrProductNotFound)
}

func duplicateItem(productID string) error {
	return apperr.Conflict("CartItem", "productId", productID, ErrDuplicateItem)
}

func negativeQuantity(quantity int) error {
	return apperr.Conflict("CartItem", "quantity", quantity, ErrNegativeQuantity)
}

func productUnavailable(name string) error {
	return apperr.Unavailable("Product", "name", name, ErrProductUnavailable)
}

func insufficientStock(available int) error {
	return apperr.Unavailable("Product", "availableQuantity", available, ErrInsufficientStock)
}

func invalidQuantity(quantity int) error {
	return apperr.Invalid("CartItem", "quantity", quantity, ErrInvalidQuantity)
}

func noCartsExist() error {
	return apperr.New(apperr.KindEmptyResult, "Cart", "", nil, ErrNoCartsExist)
}
