package cart

import "errors"

var (
	ErrEmptySelection  = errors.New("no cart items selected")
	ErrUnknownCartItem = errors.New("selected item is not in the cart")
	ErrUnknownPromo    = errors.New("promo code not found")
	ErrPromoMinimum    = errors.New("subtotal is below the promo minimum")
)
