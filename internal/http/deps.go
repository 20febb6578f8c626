package http

import (
	"context"
	"time"

	"github.com/fjod/go_travel/internal/checkout"
	"github.com/fjod/go_travel/internal/domain"
)

// Remote is the commerce API as seen by one visitor. It is satisfied by
// *commerce.Client.
type Remote interface {
	checkout.API
	Login(ctx context.Context, email, password string) (string, domain.User, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (domain.User, error)
	Carts(ctx context.Context) ([]domain.CartItem, error)
	AddCart(ctx context.Context, activityID string) error
	UpdateCart(ctx context.Context, cartID string, quantity int) error
	DeleteCart(ctx context.Context, cartID string) error
	MyTransactions(ctx context.Context) ([]domain.Transaction, error)
	Transaction(ctx context.Context, id string) (domain.Transaction, error)
	CancelTransaction(ctx context.Context, id string) error
}

// RemoteFactory returns a Remote authenticated with token. An empty token
// gives an anonymous client.
type RemoteFactory func(token string) Remote

type SessionStore interface {
	Save(ctx context.Context, s *domain.Session, ttl time.Duration) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
}

type DraftStore interface {
	Save(ctx context.Context, sessionID string, d *domain.Draft) error
	Take(ctx context.Context, sessionID string) (*domain.Draft, error)
	Peek(ctx context.Context, sessionID string) (*domain.Draft, error)
	Delete(ctx context.Context, sessionID string) error
}

// Catalog serves cached reference data.
type Catalog interface {
	Categories(ctx context.Context) ([]domain.Category, error)
	Activities(ctx context.Context) ([]domain.Activity, error)
	Activity(ctx context.Context, id string) (domain.Activity, error)
	Promos(ctx context.Context) ([]domain.Promo, error)
	PaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error)
	PaymentMethod(ctx context.Context, id string) (domain.PaymentMethod, bool, error)
}
