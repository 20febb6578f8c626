package commerce

import (
	"context"
	"net/http"
	"net/url"

	"github.com/fjod/go_travel/internal/domain"
)

func (c *Client) Carts(ctx context.Context) ([]domain.CartItem, error) {
	return getData[[]domain.CartItem](ctx, c, "/carts")
}

func (c *Client) AddCart(ctx context.Context, activityID string) error {
	_, err := c.doJSON(ctx, http.MethodPost, "/add-cart", map[string]string{"activityId": activityID})
	return err
}

func (c *Client) UpdateCart(ctx context.Context, cartID string, quantity int) error {
	_, err := c.doJSON(ctx, http.MethodPost, "/update-cart/"+url.PathEscape(cartID), map[string]int{"quantity": quantity})
	return err
}

func (c *Client) DeleteCart(ctx context.Context, cartID string) error {
	_, err := c.doJSON(ctx, http.MethodDelete, "/delete-cart/"+url.PathEscape(cartID), nil)
	return err
}
