package commerce

import (
	"context"
	"net/url"

	"github.com/fjod/go_travel/internal/domain"
)

func (c *Client) Activities(ctx context.Context) ([]domain.Activity, error) {
	return getData[[]domain.Activity](ctx, c, "/activities")
}

func (c *Client) Activity(ctx context.Context, id string) (domain.Activity, error) {
	return getData[domain.Activity](ctx, c, "/activity/"+url.PathEscape(id))
}

func (c *Client) Categories(ctx context.Context) ([]domain.Category, error) {
	return getData[[]domain.Category](ctx, c, "/categories")
}

func (c *Client) Promos(ctx context.Context) ([]domain.Promo, error) {
	return getData[[]domain.Promo](ctx, c, "/promos")
}

func (c *Client) PaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error) {
	return getData[[]domain.PaymentMethod](ctx, c, "/payment-methods")
}
