package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// CartItem is one line of the remote cart. The remote cart owns it; the local
// copy is only used for display, quantity edits and building a draft.
type CartItem struct {
	ID         string   `json:"id"`
	UserID     string   `json:"userId"`
	ActivityID string   `json:"activityId"`
	Quantity   int      `json:"quantity"`
	Activity   Activity `json:"activity"`
}

// LineTotal is price × quantity.
func (c CartItem) LineTotal() decimal.Decimal {
	return c.Activity.Price.Mul(decimal.NewFromInt(int64(c.Quantity)))
}

func ValidateQuantity(q int) error {
	if q < 1 {
		return ErrInvalidQuantity
	}
	return nil
}

// DraftItem is one booked activity inside a Draft.
type DraftItem struct {
	CartID      string          `json:"cartId"`
	ActivityID  string          `json:"activityId"`
	Title       string          `json:"title"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int             `json:"quantity"`
	BookingDate time.Time       `json:"bookingDate"`
}

// Draft is the client-assembled pre-checkout payload. It is built from the
// selected cart lines, parked in the session between the cart and checkout
// steps, then moved into the checkout sequencer which destroys it on finish.
type Draft struct {
	Items     []DraftItem     `json:"items"`
	PromoCode string          `json:"promoCode,omitempty"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Discount  decimal.Decimal `json:"discount"`
	Total     decimal.Decimal `json:"total"`
	Currency  string          `json:"currency"`
	CreatedAt time.Time       `json:"createdAt"`
}

func (d *Draft) Empty() bool {
	return d == nil || len(d.Items) == 0
}

// CartIDs returns the remote cart ids the transaction is created from.
func (d *Draft) CartIDs() []string {
	if d == nil {
		return nil
	}
	ids := make([]string, 0, len(d.Items))
	for _, item := range d.Items {
		ids = append(ids, item.CartID)
	}
	return ids
}
