// Package cart turns selected cart lines into a priced transaction draft.
package cart

import (
	"context"
	"time"

	"github.com/fjod/go_travel/internal/domain"
	"github.com/shopspring/decimal"
)

type Summary struct {
	Subtotal  domain.Money `json:"subtotal"`
	Discount  domain.Money `json:"discount"`
	Total     domain.Money `json:"total"`
	PromoCode string       `json:"promoCode,omitempty"`
	ItemCount int          `json:"itemCount"`
}

// Subtotal is Σ(price × quantity).
func Subtotal(items []domain.CartItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.LineTotal())
	}
	return sum
}

// Total is subtotal minus discount, floored at zero.
func Total(subtotal, discount decimal.Decimal) decimal.Decimal {
	total := subtotal.Sub(discount)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

type Aggregator struct {
	discounter Discounter
	now        func() time.Time
}

type Option func(*Aggregator)

func WithDiscounter(d Discounter) Option {
	return func(a *Aggregator) { a.discounter = d }
}

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		discounter: FlatDiscount{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Aggregator) Summarize(ctx context.Context, items []domain.CartItem, promoCode string) (Summary, error) {
	subtotal := Subtotal(items)
	discount, err := a.discounter.Discount(ctx, promoCode, subtotal)
	if err != nil {
		return Summary{}, err
	}

	count := 0
	for _, item := range items {
		count += item.Quantity
	}

	return Summary{
		Subtotal:  domain.NewMoney(subtotal),
		Discount:  domain.NewMoney(discount),
		Total:     domain.NewMoney(Total(subtotal, discount)),
		PromoCode: normalizeCode(promoCode),
		ItemCount: count,
	}, nil
}

// BuildDraft packages the selected cart lines into a transaction draft. Lines
// keep cart order; repeated ids are collapsed.
func (a *Aggregator) BuildDraft(ctx context.Context, items []domain.CartItem, selectedIDs []string, promoCode string, bookingDate time.Time) (*domain.Draft, error) {
	selected, err := selectItems(items, selectedIDs)
	if err != nil {
		return nil, err
	}

	summary, err := a.Summarize(ctx, selected, promoCode)
	if err != nil {
		return nil, err
	}

	draft := &domain.Draft{
		Items:     make([]domain.DraftItem, 0, len(selected)),
		PromoCode: summary.PromoCode,
		Subtotal:  summary.Subtotal.Amount,
		Discount:  summary.Discount.Amount,
		Total:     summary.Total.Amount,
		Currency:  summary.Total.Currency.String(),
		CreatedAt: a.now().UTC(),
	}
	for _, item := range selected {
		draft.Items = append(draft.Items, domain.DraftItem{
			CartID:      item.ID,
			ActivityID:  item.ActivityID,
			Title:       item.Activity.Title,
			UnitPrice:   item.Activity.Price,
			Quantity:    item.Quantity,
			BookingDate: bookingDate,
		})
	}
	return draft, nil
}

func selectItems(items []domain.CartItem, selectedIDs []string) ([]domain.CartItem, error) {
	if len(selectedIDs) == 0 {
		return nil, ErrEmptySelection
	}

	want := make(map[string]bool, len(selectedIDs))
	for _, id := range selectedIDs {
		want[id] = true
	}

	selected := make([]domain.CartItem, 0, len(want))
	for _, item := range items {
		if !want[item.ID] {
			continue
		}
		if err := domain.ValidateQuantity(item.Quantity); err != nil {
			return nil, err
		}
		if item.ActivityID == "" {
			item.ActivityID = item.Activity.ID
		}
		selected = append(selected, item)
		delete(want, item.ID)
	}

	if len(want) > 0 {
		return nil, ErrUnknownCartItem
	}
	return selected, nil
}
