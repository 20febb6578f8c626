package http

import (
	"net/http"
	"time"

	"github.com/fjod/go_travel/internal/cart"
	"github.com/fjod/go_travel/internal/checkout"
	"github.com/fjod/go_travel/internal/metrics"
	"github.com/fjod/go_travel/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// Deps is everything the HTTP surface needs. Metrics and Limiter are optional.
type Deps struct {
	Remote         RemoteFactory
	Sessions       SessionStore
	Drafts         DraftStore
	Catalog        Catalog
	Aggregator     *cart.Aggregator
	Checkouts      *checkout.Registry
	Observer       checkout.Observer
	BackPolicy     checkout.BackPolicy
	Metrics        *metrics.Metrics
	Limiter        *RateLimiter
	Log            *logger.Logger
	RequestTimeout time.Duration
	RemoteTimeout  time.Duration
	SessionTTL     time.Duration
	MaxBodySize    int64
}

func NewRouter(d Deps) http.Handler {
	if d.Log != nil {
		respondLog = d.Log
	}

	sessionHandler := NewSessionHandler(d.Remote, d.Sessions, d.Drafts, d.Checkouts, d.SessionTTL, d.RemoteTimeout, d.Log)
	catalogHandler := NewCatalogHandler(d.Catalog, d.RemoteTimeout)
	cartHandler := NewCartHandler(d.Remote, d.Drafts, d.Aggregator, d.RemoteTimeout, d.Log)
	ordersHandler := NewOrdersHandler(d.Remote, d.RemoteTimeout)
	checkoutHandler := NewCheckoutHandler(CheckoutHandlerConfig{
		Remote:     d.Remote,
		Drafts:     d.Drafts,
		Catalog:    d.Catalog,
		Checkouts:  d.Checkouts,
		Observer:   d.Observer,
		BackPolicy: d.BackPolicy,
		Timeout:    d.RemoteTimeout,
		Log:        d.Log,
	})

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  d.Log.With(logrus.Fields{"component": "http"}),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}
	r.Use(middleware.Timeout(d.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(SessionMiddleware(d.Sessions, d.Log))
		if d.Limiter != nil {
			r.Use(d.Limiter.Handler)
		}

		r.Group(func(r chi.Router) {
			if d.MaxBodySize > 0 {
				r.Use(middleware.RequestSize(d.MaxBodySize))
			}

			r.Post("/session", sessionHandler.Login)
			r.Get("/session", sessionHandler.Current)
			r.Delete("/session", sessionHandler.Logout)

			r.Get("/categories", catalogHandler.ListCategories)
			r.Get("/activities", catalogHandler.ListActivities)
			r.Get("/activities/{id}", catalogHandler.GetActivity)
			r.Get("/promos", catalogHandler.ListPromos)

			r.Group(func(r chi.Router) {
				r.Use(RequireLogin)

				r.Get("/cart", cartHandler.GetCart)
				r.Post("/cart/items", cartHandler.AddItem)
				r.Put("/cart/items/{id}", cartHandler.UpdateItem)
				r.Delete("/cart/items/{id}", cartHandler.RemoveItem)
				r.Post("/cart/checkout", cartHandler.Checkout)
				r.Get("/cart/checkout", cartHandler.Draft)

				r.Post("/checkout", checkoutHandler.Start)
				r.Get("/checkout", checkoutHandler.View)
				r.Delete("/checkout", checkoutHandler.Abandon)
				r.Get("/checkout/payment-methods", checkoutHandler.PaymentMethods)
				r.Put("/checkout/payment-method", checkoutHandler.SelectPaymentMethod)
				r.Post("/checkout/next", checkoutHandler.Next)
				r.Post("/checkout/back", checkoutHandler.Back)
				r.Post("/checkout/finish", checkoutHandler.Finish)

				r.Get("/transactions", ordersHandler.ListTransactions)
				r.Get("/transactions/{id}", ordersHandler.GetTransaction)
				r.Post("/transactions/{id}/cancel", ordersHandler.CancelTransaction)
			})
		})

		// Proof images are larger than the JSON body limit; readProofImage
		// caps them itself.
		r.With(RequireLogin).Post("/checkout/proof", checkoutHandler.UploadProof)
	})

	return r
}
