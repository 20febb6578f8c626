package commerce

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fjod/go_travel/internal/domain"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Message string      `json:"message"`
	Data    domain.User `json:"data"`
	Token   string      `json:"token"`
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (string, domain.User, error) {
	raw, err := c.doJSON(ctx, http.MethodPost, "/login", loginRequest{Email: email, Password: password})
	if err != nil {
		return "", domain.User{}, err
	}

	var resp loginResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", domain.User{}, fmt.Errorf("decode /login: %w", err)
	}
	if resp.Token == "" {
		return "", domain.User{}, ErrMissingToken
	}
	return resp.Token, resp.Data, nil
}

func (c *Client) Logout(ctx context.Context) error {
	_, err := c.doJSON(ctx, http.MethodGet, "/logout", nil)
	return err
}

// CurrentUser returns the owner of the client's token.
func (c *Client) CurrentUser(ctx context.Context) (domain.User, error) {
	return getData[domain.User](ctx, c, "/user")
}
