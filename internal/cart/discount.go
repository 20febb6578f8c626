package cart

import (
	"context"
	"fmt"
	"strings"

	"github.com/fjod/go_travel/internal/domain"
	"github.com/shopspring/decimal"
)

// FlatPromoDiscount is taken off the subtotal whenever any promo code is
// present. The code itself is not checked.
var FlatPromoDiscount = decimal.NewFromInt(50000)

// Discounter decides how much a promo code takes off a subtotal.
type Discounter interface {
	Discount(ctx context.Context, promoCode string, subtotal decimal.Decimal) (decimal.Decimal, error)
}

// FlatDiscount is the default Discounter.
type FlatDiscount struct{}

func (FlatDiscount) Discount(_ context.Context, promoCode string, _ decimal.Decimal) (decimal.Decimal, error) {
	if normalizeCode(promoCode) == "" {
		return decimal.Zero, nil
	}
	return FlatPromoDiscount, nil
}

type PromoLister interface {
	Promos(ctx context.Context) ([]domain.Promo, error)
}

// RemotePromoValidator looks the code up in the remote promo list and applies
// that promo's own discount and minimum claim price.
type RemotePromoValidator struct {
	promos PromoLister
}

func NewRemotePromoValidator(promos PromoLister) *RemotePromoValidator {
	return &RemotePromoValidator{promos: promos}
}

func (v *RemotePromoValidator) Discount(ctx context.Context, promoCode string, subtotal decimal.Decimal) (decimal.Decimal, error) {
	code := normalizeCode(promoCode)
	if code == "" {
		return decimal.Zero, nil
	}

	promos, err := v.promos.Promos(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch promos: %w", err)
	}

	for _, p := range promos {
		if !strings.EqualFold(p.PromoCode, code) {
			continue
		}
		if subtotal.LessThan(p.MinimumClaimPrice) {
			return decimal.Zero, fmt.Errorf("%w: %s needs %s", ErrPromoMinimum, p.PromoCode, p.MinimumClaimPrice.StringFixed(0))
		}
		return p.PromoDiscountPrice, nil
	}
	return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownPromo, code)
}

func normalizeCode(code string) string {
	return strings.TrimSpace(code)
}
